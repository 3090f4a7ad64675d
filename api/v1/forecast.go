package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"carbon-scribe/emissions-forecast/internal/config"
	"carbon-scribe/emissions-forecast/internal/forecast"
	"carbon-scribe/emissions-forecast/internal/forecast/cache"
	"carbon-scribe/emissions-forecast/internal/metrics"
	"carbon-scribe/emissions-forecast/internal/reports"
)

// ForecastAPI holds the forecast API dependencies
type ForecastAPI struct {
	Handler *reports.Handler
	Service *forecast.Service
	Cache   *cache.ResultCache
	Metrics *metrics.PipelineMetrics
}

// SetupForecastAPI builds the forecast service and handler from configuration.
// Metrics are registered with registerer when it is non-nil and metrics are enabled.
func SetupForecastAPI(cfg *config.Config, registerer prometheus.Registerer, logger *zap.Logger) (*ForecastAPI, error) {
	var resultCache *cache.ResultCache
	if cfg.Cache.Enabled {
		resultCache = cache.New(cfg.Cache.TTL, cfg.Cache.CleanupInterval)
	}

	var pipelineMetrics *metrics.PipelineMetrics
	if cfg.Metrics.Enabled && registerer != nil {
		pipelineMetrics = metrics.New(registerer)
	}

	service := forecast.NewService(cfg.ServiceConfig(), resultCache, pipelineMetrics, logger)
	handler := reports.NewHandler(service, cfg.ExportOptions(), pipelineMetrics, logger)

	return &ForecastAPI{
		Handler: handler,
		Service: service,
		Cache:   resultCache,
		Metrics: pipelineMetrics,
	}, nil
}

// RegisterForecastRoutes registers the forecast routes on the router group
func RegisterForecastRoutes(router *gin.RouterGroup, api *ForecastAPI) {
	api.Handler.RegisterRoutes(router)
}

// Close releases background resources held by the API
func (a *ForecastAPI) Close() {
	if a.Cache != nil {
		a.Cache.Stop()
	}
}
