package forecast

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// recordNamespace scopes the name-based UUIDs assigned to records without an ID
var recordNamespace = uuid.MustParse("6f1c3f0e-7a52-4d8e-9a0b-3c5e2d41b7aa")

// dateLayouts are tried in order when a date arrives as text
var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	MonthKeyLayout,
	MonthLabelLayout,
	"January 2006",
}

// NormalizeRecord coerces a raw row into an Observation. It never fails:
// unusable numbers become 0 and an unusable date is left zero.
func NormalizeRecord(raw map[string]any) Observation {
	obs := Observation{
		ID:   recordID(raw),
		Date: ParseDate(firstPresent(raw, "ds", "date")),
	}

	for _, f := range NumericFields {
		obs.SetValue(f, ParseNumeric(raw[string(f)]))
	}

	emissions, ok := lookup(raw, string(FieldEmissions), "y")
	if ok {
		obs.Emissions = ParseNumeric(emissions)
	}
	obs.EmissionsMissing = !ok

	return obs
}

// NormalizeRecords normalizes every row in order
func NormalizeRecords(rows []map[string]any) []Observation {
	observations := make([]Observation, 0, len(rows))
	for _, row := range rows {
		observations = append(observations, NormalizeRecord(row))
	}
	return observations
}

// ParseNumeric converts a loosely typed cell into a float64.
// Text has every character other than digits and '.' removed first.
func ParseNumeric(v any) float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint64:
		f = float64(n)
	case fmt.Stringer:
		f = parseNumericText(n.String())
	case string:
		f = parseNumericText(n)
	case []byte:
		f = parseNumericText(string(n))
	default:
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func parseNumericText(s string) float64 {
	var b strings.Builder
	seenDot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.':
			// a second decimal point ends the number
			if seenDot {
				return parseCleaned(b.String())
			}
			seenDot = true
			b.WriteRune(r)
		}
	}
	return parseCleaned(b.String())
}

func parseCleaned(s string) float64 {
	if s == "" || s == "." {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// ParseDate converts a date cell into a UTC time, returning the zero time
// when nothing usable is found
func ParseDate(v any) time.Time {
	switch d := v.(type) {
	case time.Time:
		return d.UTC()
	case *time.Time:
		if d == nil {
			return time.Time{}
		}
		return d.UTC()
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return time.Time{}
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

// recordID keeps a caller supplied ID or derives a stable one from the row
func recordID(raw map[string]any) string {
	if id, ok := raw["id"]; ok && id != nil {
		if s := strings.TrimSpace(fmt.Sprint(id)); s != "" {
			return s
		}
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v;", k, raw[k])
	}
	return uuid.NewSHA1(recordNamespace, []byte(b.String())).String()
}

// lookup returns the first key that is present with a non-blank value
func lookup(raw map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

func firstPresent(raw map[string]any, keys ...string) any {
	v, _ := lookup(raw, keys...)
	return v
}

// NormalizeForecast coerces loosely typed forecast rows, such as a client
// echoing back an earlier forecast, into ForecastPoints. Rows without a
// usable date are skipped.
func NormalizeForecast(rows []map[string]any) []ForecastPoint {
	points := make([]ForecastPoint, 0, len(rows))
	for _, row := range rows {
		date := ParseDate(firstPresent(row, "date", "ds"))
		if date.IsZero() {
			continue
		}
		points = append(points, ForecastPoint{
			Date:               date,
			PredictedEmissions: ParseNumeric(firstPresent(row, "predicted_emissions", "yhat")),
			LowerBound:         ParseNumeric(firstPresent(row, "lower_bound", "yhat_lower")),
			UpperBound:         ParseNumeric(firstPresent(row, "upper_bound", "yhat_upper")),
		})
	}
	return points
}
