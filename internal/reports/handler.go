package reports

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-scribe/emissions-forecast/internal/forecast"
	"carbon-scribe/emissions-forecast/internal/ingestion"
	"carbon-scribe/emissions-forecast/internal/metrics"
	"carbon-scribe/emissions-forecast/internal/reports/export"
)

// MaxUploadBytes bounds multipart uploads
const MaxUploadBytes = 10 << 20

// Handler handles HTTP requests for forecasting operations
type Handler struct {
	service *forecast.Service
	export  export.Options
	metrics *metrics.PipelineMetrics
	logger  *zap.Logger
}

// NewHandler creates a new forecast handler. pipelineMetrics may be nil.
func NewHandler(service *forecast.Service, exportOptions export.Options, pipelineMetrics *metrics.PipelineMetrics, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		export:  exportOptions,
		metrics: pipelineMetrics,
		logger:  logger,
	}
}

// RegisterRoutes registers forecasting routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	forecasts := router.Group("/forecast")
	{
		forecasts.POST("/upload", h.upload)
		forecasts.GET("/sample", h.sample)

		forecasts.POST("/predict", h.predict)
		forecasts.POST("/optimize", h.optimize)
		forecasts.POST("/impacts", h.impacts)
		forecasts.POST("/evaluate", h.evaluate)

		forecasts.POST("/export", h.exportForecast)
	}
}

// =====================================================
// Request and Response Types
// =====================================================

// UploadResponse describes an ingested dataset
type UploadResponse struct {
	Data     []forecast.Observation    `json:"data"`
	Mappings []ingestion.ColumnMapping `json:"mappings"`
	Unmapped []string                  `json:"unmapped,omitempty"`
	Filled   map[string]int            `json:"filled,omitempty"`
	Summary  forecast.Summary          `json:"summary"`
}

// UploadRecordsRequest carries already parsed rows
type UploadRecordsRequest struct {
	Data        []map[string]any `json:"data" binding:"required"`
	FillMissing *bool            `json:"fill_missing,omitempty"`
}

// OptimizeRequest applies reduction measures to a forecast
type OptimizeRequest struct {
	Forecast     []map[string]any `json:"forecast" binding:"required"`
	Reduction    *float64         `json:"reduction,omitempty"`
	BoundDamping *float64         `json:"bound_damping,omitempty"`
}

// OptimizeResponse holds the optimized forecast and its savings
type OptimizeResponse struct {
	OptimizedForecast []forecast.OptimizedForecastPoint `json:"optimized_forecast"`
	Savings           forecast.Savings                  `json:"savings"`
}

// ImpactsRequest carries per-factor impact scores
type ImpactsRequest struct {
	Impacts map[string]float64 `json:"impacts" binding:"required"`
}

// ImpactsResponse holds ranked suggestions
type ImpactsResponse struct {
	Suggestions []forecast.Suggestion `json:"suggestions"`
}

// EvaluateRequest pairs observed data with a forecast
type EvaluateRequest struct {
	Data     []map[string]any `json:"data" binding:"required"`
	Forecast []map[string]any `json:"forecast" binding:"required"`
}

// EvaluateResponse holds accuracy metrics and their assessment
type EvaluateResponse struct {
	Metrics    forecast.AccuracyMetrics `json:"metrics"`
	Assessment forecast.Assessment      `json:"assessment"`
}

// ExportRequest selects the forecast to download
type ExportRequest struct {
	Forecast          []map[string]any `json:"forecast"`
	OptimizedForecast []map[string]any `json:"optimized_forecast"`
	Format            string           `json:"format"`
}

// SampleResponse holds generated sample data
type SampleResponse struct {
	Data    []forecast.Observation `json:"data"`
	Summary forecast.Summary       `json:"summary"`
}

// =====================================================
// Ingestion Endpoints
// =====================================================

// upload handles POST /api/v1/forecast/upload
func (h *Handler) upload(c *gin.Context) {
	var (
		dataset *ingestion.Dataset
		err     error
	)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		dataset, err = h.uploadFile(c)
	} else {
		var req UploadRecordsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		opts := ingestion.DefaultOptions()
		if req.FillMissing != nil {
			opts.FillMissing = *req.FillMissing
		}
		var table *ingestion.Table
		table, err = ingestion.TableFromRecords(ingestion.FormatJSON, req.Data)
		if err == nil {
			dataset, err = ingestion.Parse(table, opts)
		}
	}

	if err != nil {
		h.logger.Warn("Failed to ingest upload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	observations := dataset.Observations()
	c.JSON(http.StatusOK, UploadResponse{
		Data:     observations,
		Mappings: dataset.Mappings,
		Unmapped: dataset.Unmapped,
		Filled:   dataset.Filled,
		Summary:  forecast.SummarizeColumns(observations),
	})
}

func (h *Handler) uploadFile(c *gin.Context) (*ingestion.Dataset, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		return nil, err
	}
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	opts := ingestion.DefaultOptions()
	if fill := c.PostForm("fill_missing"); fill != "" {
		opts.FillMissing, _ = strconv.ParseBool(fill)
	}

	h.logger.Info("Ingesting upload",
		zap.String("file_name", header.Filename),
		zap.Int64("size", header.Size))

	return ingestion.Load(header.Filename, file, opts)
}

// sample handles GET /api/v1/forecast/sample
func (h *Handler) sample(c *gin.Context) {
	seed, err := strconv.ParseUint(c.DefaultQuery("seed", "42"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seed"})
		return
	}
	rows := h.getIntParam(c, "rows", ingestion.DefaultSampleRows)
	if rows <= 0 || rows > 600 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rows must be between 1 and 600"})
		return
	}

	observations := ingestion.GenerateSample(seed, rows)
	c.JSON(http.StatusOK, SampleResponse{
		Data:    observations,
		Summary: forecast.SummarizeColumns(observations),
	})
}

// =====================================================
// Pipeline Endpoints
// =====================================================

// predict handles POST /api/v1/forecast/predict
func (h *Handler) predict(c *gin.Context) {
	var req forecast.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "data is required"})
		return
	}

	result, err := h.service.Run(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, "Failed to generate forecast", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// optimize handles POST /api/v1/forecast/optimize
func (h *Handler) optimize(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	points := forecast.NormalizeForecast(req.Forecast)
	optimized, savings := h.service.OptimizeForecast(points, req.Reduction, req.BoundDamping)

	c.JSON(http.StatusOK, OptimizeResponse{
		OptimizedForecast: optimized,
		Savings:           savings,
	})
}

// impacts handles POST /api/v1/forecast/impacts
func (h *Handler) impacts(c *gin.Context) {
	var req ImpactsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ImpactsResponse{
		Suggestions: forecast.ScoreImpacts(req.Impacts),
	})
}

// evaluate handles POST /api/v1/forecast/evaluate
func (h *Handler) evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	observations := forecast.NormalizeRecords(req.Data)
	points := forecast.NormalizeForecast(req.Forecast)
	accuracy, assessment := h.service.EvaluateForecast(observations, points)

	c.JSON(http.StatusOK, EvaluateResponse{
		Metrics:    accuracy,
		Assessment: assessment,
	})
}

// =====================================================
// Export Endpoints
// =====================================================

// exportForecast handles POST /api/v1/forecast/export
func (h *Handler) exportForecast(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	format, err := export.ParseFormat(req.Format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raw := forecast.NormalizeForecast(req.Forecast)
	optimized := make([]forecast.OptimizedForecastPoint, 0, len(req.OptimizedForecast))
	for _, p := range forecast.NormalizeForecast(req.OptimizedForecast) {
		optimized = append(optimized, forecast.OptimizedForecastPoint(p))
	}

	points := export.SelectForExport(raw, optimized)
	if len(points) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no forecast data to export"})
		return
	}

	report := &export.Report{
		Title:     h.export.PDF.Title,
		Points:    points,
		Optimized: len(optimized) > 0,
	}
	if len(optimized) > 0 && len(raw) > 0 {
		savings := forecast.CalculateSavings(raw, optimized)
		report.Savings = &savings
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, report, h.export); err != nil {
		h.logger.Error("Failed to export forecast", zap.Error(err), zap.String("format", string(format)))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.metrics.ObserveExport(string(format))

	fileName := format.FileName(h.export.FileName)
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// =====================================================
// Helper Methods
// =====================================================

// respondError maps pipeline errors onto status codes
func (h *Handler) respondError(c *gin.Context, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, forecast.ErrInsufficientData),
		errors.Is(err, forecast.ErrNoHistory),
		errors.Is(err, forecast.ErrInvalidHorizon),
		errors.Is(err, forecast.ErrDuplicateDates):
		status = http.StatusBadRequest
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	} else {
		h.logger.Warn(msg, zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// getIntParam gets an integer query parameter with a default value
func (h *Handler) getIntParam(c *gin.Context, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
