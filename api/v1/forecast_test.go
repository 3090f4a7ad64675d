package v1

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbon-scribe/emissions-forecast/internal/config"
)

func setupRouter(t *testing.T, cfg *config.Config, reg prometheus.Registerer) (*gin.Engine, *ForecastAPI) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	api, err := SetupForecastAPI(cfg, reg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(api.Close)

	router := gin.New()
	RegisterForecastRoutes(router.Group("/api/v1"), api)
	return router, api
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSetupForecastAPI(t *testing.T) {
	t.Run("defaults build cache and metrics", func(t *testing.T) {
		_, api := setupRouter(t, config.Default(), prometheus.NewRegistry())
		assert.NotNil(t, api.Cache)
		assert.NotNil(t, api.Metrics)
		assert.NotNil(t, api.Service)
	})

	t.Run("disabled cache and metrics", func(t *testing.T) {
		cfg := config.Default()
		cfg.Cache.Enabled = false
		cfg.Metrics.Enabled = false

		_, api := setupRouter(t, cfg, prometheus.NewRegistry())
		assert.Nil(t, api.Cache)
		assert.Nil(t, api.Metrics)
	})

	t.Run("no registerer", func(t *testing.T) {
		_, api := setupRouter(t, config.Default(), nil)
		assert.Nil(t, api.Metrics)
	})
}

func TestForecastRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	router, api := setupRouter(t, config.Default(), reg)

	w := doRequest(t, router, http.MethodGet, "/api/v1/forecast/sample?rows=15&seed=4", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var sample struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sample))
	require.Len(t, sample.Data, 15)

	body := map[string]any{
		"data":             sample.Data,
		"forecast_periods": 3,
		"seed":             21,
	}

	w = doRequest(t, router, http.MethodPost, "/api/v1/forecast/predict", body)
	require.Equal(t, http.StatusOK, w.Code)
	var first map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.Equal(t, false, first["cached"])
	assert.Len(t, first["forecast"], 3)

	w = doRequest(t, router, http.MethodPost, "/api/v1/forecast/predict", body)
	require.Equal(t, http.StatusOK, w.Code)
	var second map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, true, second["cached"])
	assert.Equal(t, first["forecast"], second["forecast"])

	stats := api.Cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)

	assert.Equal(t, 1, testutil.CollectAndCount(reg, "emissions_forecast_last_quality_score"))
}
