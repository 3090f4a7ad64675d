package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbon-scribe/emissions-forecast/internal/forecast/cache"
	"carbon-scribe/emissions-forecast/internal/metrics"
)

// RecommendationLimit is the number of top impacts considered for advice
const RecommendationLimit = 3

// ServiceConfig holds the pipeline defaults applied when a request leaves
// a setting empty
type ServiceConfig struct {
	Horizon int
	// MaxHorizon caps requested horizons; 0 means DefaultMaxHorizon
	MaxHorizon    int
	MinHistory    int
	JitterEnabled bool
	Jitter        JitterBand
	// Seed fixes the noise sequence when non-zero
	Seed         uint64
	Optimization OptimizationConfig
	Thresholds   QualityThresholds
}

// DefaultServiceConfig returns the standard pipeline defaults
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Horizon:       DefaultHorizon,
		MaxHorizon:    DefaultMaxHorizon,
		MinHistory:    DefaultMinHistory,
		JitterEnabled: true,
		Jitter:        DefaultJitterBand(),
		Optimization:  DefaultOptimizationConfig(),
		Thresholds:    DefaultQualityThresholds(),
	}
}

// Service runs the forecasting pipeline
type Service struct {
	config  ServiceConfig
	cache   *cache.ResultCache
	metrics *metrics.PipelineMetrics
	logger  *zap.Logger
}

// NewService creates a new forecast service. cache and metrics may be nil.
func NewService(config ServiceConfig, resultCache *cache.ResultCache, pipelineMetrics *metrics.PipelineMetrics, logger *zap.Logger) *Service {
	return &Service{
		config:  config,
		cache:   resultCache,
		metrics: pipelineMetrics,
		logger:  logger,
	}
}

// Config returns the service defaults
func (s *Service) Config() ServiceConfig {
	return s.config
}

// =====================================================
// Requests and Results
// =====================================================

// RunRequest describes one pipeline run
type RunRequest struct {
	// Data holds raw rows; it is ignored when Observations is set
	Data         []map[string]any `json:"data"`
	Observations []Observation    `json:"-"`
	Horizon      int              `json:"forecast_periods"`
	Seed         *uint64          `json:"seed,omitempty"`
	Jitter       *bool            `json:"jitter,omitempty"`
	Reduction    *float64         `json:"reduction,omitempty"`
	BoundDamping *float64         `json:"bound_damping,omitempty"`
	// Impacts overrides regression-derived impact scores
	Impacts map[string]float64 `json:"impacts,omitempty"`
	// StrictDates rejects observations that share a date
	StrictDates bool `json:"strict_dates"`
}

// RunResult is the full output of a pipeline run
type RunResult struct {
	RunID             uuid.UUID                `json:"run_id"`
	GeneratedAt       time.Time                `json:"generated_at"`
	Cached            bool                     `json:"cached"`
	Aggregates        []MonthlyAggregate       `json:"aggregates"`
	Dropped           DropCounts               `json:"dropped"`
	Summary           Summary                  `json:"summary"`
	GrowthRate        float64                  `json:"growth_rate"`
	Horizon           int                      `json:"horizon"`
	Forecast          []ForecastPoint          `json:"forecast"`
	OptimizedForecast []OptimizedForecastPoint `json:"optimized_forecast"`
	Impacts           map[string]float64       `json:"impacts"`
	ImpactDetails     map[string]ImpactDetail  `json:"impact_details,omitempty"`
	ImpactSource      string                   `json:"impact_source"`
	Suggestions       []Suggestion             `json:"suggestions"`
	Recommendations   []string                 `json:"recommendations"`
	Savings           Savings                  `json:"savings"`
	Backtest          AccuracyMetrics          `json:"backtest"`
	Assessment        Assessment               `json:"assessment"`
}

// Impact score sources reported in RunResult.ImpactSource
const (
	ImpactSourceRequest     = "request"
	ImpactSourceRegression  = "regression"
	ImpactSourceSynthesized = "synthesized"
)

// runSettings are the resolved options of a single run
// fingerprintRow keeps the missing-emissions flag in the cache key, since a
// blank cell and an explicit zero aggregate differently
type fingerprintRow struct {
	Observation
	EmissionsMissing bool `json:"emissions_missing"`
}

func fingerprintRows(observations []Observation) []fingerprintRow {
	rows := make([]fingerprintRow, len(observations))
	for i, obs := range observations {
		rows[i] = fingerprintRow{Observation: obs, EmissionsMissing: obs.EmissionsMissing}
	}
	return rows
}

type runSettings struct {
	Horizon      int                `json:"horizon"`
	Jitter       bool               `json:"jitter"`
	Band         JitterBand         `json:"band"`
	Seed         uint64             `json:"seed"`
	Seeded       bool               `json:"seeded"`
	Optimization OptimizationConfig `json:"optimization"`
}

// =====================================================
// Pipeline Operations
// =====================================================

// Run normalizes and aggregates the request data, then forecasts, optimizes,
// scores impacts and backtests. Seeded or jitter-free runs are memoized.
func (s *Service) Run(ctx context.Context, req *RunRequest) (*RunResult, error) {
	start := time.Now()

	result, err := s.run(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrInvalidHorizon) || errors.Is(err, ErrDuplicateDates) {
			status = "rejected"
		}
	}
	s.metrics.ObserveRun(status, time.Since(start))

	return result, err
}

func (s *Service) run(ctx context.Context, req *RunRequest) (*RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	settings, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	observations := req.Observations
	if observations == nil {
		observations = NormalizeRecords(req.Data)
	}
	if req.StrictDates {
		if err := CheckDuplicateDates(observations); err != nil {
			return nil, err
		}
	}

	if s.cache == nil || !settings.Seeded {
		return s.compute(observations, settings, req.Impacts)
	}

	key, err := cache.Fingerprint(fingerprintRows(observations), settings, req.Impacts)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint run: %w", err)
	}

	value, hit, err := s.cache.GetOrSet(key, func() (interface{}, error) {
		return s.compute(observations, settings, req.Impacts)
	})
	s.metrics.ObserveCache(hit)
	if err != nil {
		return nil, err
	}

	result := *value.(*RunResult)
	result.Cached = hit
	return &result, nil
}

// resolve merges request overrides with the service defaults
func (s *Service) resolve(req *RunRequest) (runSettings, error) {
	settings := runSettings{
		Horizon:      s.config.Horizon,
		Jitter:       s.config.JitterEnabled,
		Band:         s.config.Jitter,
		Seed:         s.config.Seed,
		Seeded:       s.config.Seed != 0,
		Optimization: s.config.Optimization,
	}

	if req.Horizon < 0 {
		return settings, fmt.Errorf("%w: got %d", ErrInvalidHorizon, req.Horizon)
	}
	if req.Horizon > 0 {
		settings.Horizon = req.Horizon
	}
	if limit := s.maxHorizon(); settings.Horizon > limit {
		return settings, fmt.Errorf("%w: %d exceeds the maximum of %d", ErrInvalidHorizon, settings.Horizon, limit)
	}
	if req.Jitter != nil {
		settings.Jitter = *req.Jitter
	}
	if req.Seed != nil {
		settings.Seed = *req.Seed
		settings.Seeded = true
	}
	if req.Reduction != nil {
		settings.Optimization.Reduction = *req.Reduction
	}
	if req.BoundDamping != nil {
		settings.Optimization.BoundDamping = *req.BoundDamping
	}

	return settings, nil
}

func (s *Service) maxHorizon() int {
	switch {
	case s.config.MaxHorizon <= 0:
		return DefaultMaxHorizon
	case s.config.MaxHorizon > MaxHorizonLimit:
		return MaxHorizonLimit
	default:
		return s.config.MaxHorizon
	}
}

// streams returns independent noise sources for the forecast, the backtest
// and impact synthesis
func (s runSettings) streams() (Noise, Noise, Uniform) {
	var impactSrc *BandNoise
	if s.Seeded {
		impactSrc = NewSeededNoise(s.Seed+2, s.Band)
	} else {
		impactSrc = NewRandomNoise(s.Band)
	}

	if !s.Jitter {
		return NoJitter, NoJitter, impactSrc
	}
	if s.Seeded {
		return NewSeededNoise(s.Seed, s.Band), NewSeededNoise(s.Seed+1, s.Band), impactSrc
	}
	return NewRandomNoise(s.Band), NewRandomNoise(s.Band), impactSrc
}

func (s *Service) compute(observations []Observation, settings runSettings, requestImpacts map[string]float64) (*RunResult, error) {
	aggregation := AggregateMonthly(observations)
	s.metrics.AddDropped("missing_date", aggregation.Dropped.MissingDate)
	s.metrics.AddDropped("missing_emissions", aggregation.Dropped.MissingEmissions)

	if aggregation.Dropped.Total() > 0 {
		s.logger.Warn("Observations excluded from aggregation",
			zap.Int("missing_date", aggregation.Dropped.MissingDate),
			zap.Int("missing_emissions", aggregation.Dropped.MissingEmissions))
	}

	aggregates := aggregation.Aggregates
	if err := CheckHistory(aggregates, s.config.MinHistory); err != nil {
		return nil, err
	}

	forecastNoise, backtestNoise, impactSrc := settings.streams()

	rate := EstimateGrowthRate(aggregates)
	points, err := SynthesizeForecast(aggregates, rate, settings.Horizon, forecastNoise)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize forecast: %w", err)
	}
	optimized := Optimize(points, settings.Optimization)
	points, optimized = FilterAfterHistory(aggregates, points, optimized)
	savings := CalculateSavings(points, optimized)

	result := &RunResult{
		RunID:             uuid.New(),
		GeneratedAt:       time.Now().UTC(),
		Aggregates:        aggregates,
		Dropped:           aggregation.Dropped,
		Summary:           SummarizeColumns(observations),
		GrowthRate:        rate,
		Horizon:           settings.Horizon,
		Forecast:          points,
		OptimizedForecast: optimized,
		Savings:           savings,
		Recommendations:   []string{},
	}

	s.scoreImpacts(result, observations, requestImpacts, impactSrc)

	backtest, err := s.backtest(aggregates, settings.Horizon, backtestNoise)
	if err != nil {
		return nil, err
	}
	result.Backtest = backtest
	result.Assessment = Assess(backtest, s.config.Thresholds)

	s.metrics.AddForecastPoints(len(points))
	if len(backtest.AlignedPairs) > 0 {
		s.metrics.SetQualityScore(backtest.QualityScore)
	}

	s.logger.Info("Forecast generated",
		zap.String("run_id", result.RunID.String()),
		zap.Int("months", len(aggregates)),
		zap.Int("horizon", settings.Horizon),
		zap.Float64("growth_rate", rate),
		zap.String("impact_source", result.ImpactSource),
		zap.Float64("quality_score", backtest.QualityScore))

	return result, nil
}

// scoreImpacts fills impacts from the request, a regression fit, or a
// synthesized placeholder, in that order of preference
func (s *Service) scoreImpacts(result *RunResult, observations []Observation, requestImpacts map[string]float64, src Uniform) {
	switch {
	case len(requestImpacts) > 0:
		result.Impacts = requestImpacts
		result.ImpactSource = ImpactSourceRequest
	default:
		details, err := EstimateImpacts(observations)
		if err == nil {
			result.ImpactDetails = details
			result.Impacts = ImpactScores(details)
			result.ImpactSource = ImpactSourceRegression
			result.Recommendations = Recommendations(details, RecommendationLimit)
			break
		}
		s.logger.Debug("Impact regression unavailable, synthesizing scores", zap.Error(err))
		result.Impacts = SynthesizeImpacts(src)
		result.ImpactSource = ImpactSourceSynthesized
	}

	result.Suggestions = ScoreImpacts(result.Impacts)
}

// backtest forecasts the most recent months from the history before them and
// evaluates the result. It returns empty metrics when no month can be held out.
func (s *Service) backtest(aggregates []MonthlyAggregate, horizon int, noise Noise) (AccuracyMetrics, error) {
	holdout := len(aggregates) - s.config.MinHistory
	if holdout > horizon {
		holdout = horizon
	}
	if holdout <= 0 {
		return Evaluate(nil), nil
	}

	train := aggregates[:len(aggregates)-holdout]
	points, err := SynthesizeForecast(train, EstimateGrowthRate(train), holdout, noise)
	if err != nil {
		return AccuracyMetrics{}, fmt.Errorf("failed to synthesize backtest: %w", err)
	}
	return AlignAndEvaluate(aggregates[len(aggregates)-holdout:], points), nil
}

// OptimizeForecast applies a reduction to an existing forecast. Nil
// overrides fall back to the service defaults.
func (s *Service) OptimizeForecast(points []ForecastPoint, reduction, damping *float64) ([]OptimizedForecastPoint, Savings) {
	config := s.config.Optimization
	if reduction != nil {
		config.Reduction = *reduction
	}
	if damping != nil {
		config.BoundDamping = *damping
	}

	optimized := Optimize(points, config)
	savings := CalculateSavings(points, optimized)

	s.logger.Info("Forecast optimized",
		zap.Int("points", len(points)),
		zap.Float64("reduction", config.Reduction),
		zap.Float64("savings_total", savings.Total))

	return optimized, savings
}

// EvaluateForecast aggregates observed rows and evaluates a forecast against them
func (s *Service) EvaluateForecast(observations []Observation, points []ForecastPoint) (AccuracyMetrics, Assessment) {
	aggregation := AggregateMonthly(observations)
	metrics := AlignAndEvaluate(aggregation.Aggregates, points)
	assessment := Assess(metrics, s.config.Thresholds)

	if len(metrics.AlignedPairs) > 0 {
		s.metrics.SetQualityScore(metrics.QualityScore)
	}

	s.logger.Info("Forecast evaluated",
		zap.Int("aligned_pairs", len(metrics.AlignedPairs)),
		zap.Float64("mae", metrics.MAE),
		zap.Float64("quality_score", metrics.QualityScore))

	return metrics, assessment
}
