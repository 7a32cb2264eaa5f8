package handlers

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/vinyl-tracker/internal/analytics"
	"github.com/codyseavey/vinyl-tracker/internal/charts"
	"github.com/codyseavey/vinyl-tracker/internal/models"
)

// reservedPlotParams are query parameters of GET /plots/:entity that are not
// filter columns.
var reservedPlotParams = map[string]bool{
	"x_measure": true,
	"y_measure": true,
	"loglog":    true,
}

type AnalyticsHandler struct {
	engine *analytics.Engine
}

func NewAnalyticsHandler(engine *analytics.Engine) *AnalyticsHandler {
	return &AnalyticsHandler{engine: engine}
}

type AggregateRequest struct {
	Groupings []string       `json:"groupings" binding:"required,min=1"`
	XMeasure  models.Measure `json:"x_measure"`
	YMeasure  models.Measure `json:"y_measure"`
	Filter    models.Filter  `json:"filter"`
	LogLog    *bool          `json:"loglog"`
}

type AggregateResponse struct {
	Result *analytics.GroupResult `json:"result"`
	Figure charts.Figure          `json:"figure"`
}

type TimeseriesRequest struct {
	ColorDimension string        `json:"color_dimension" binding:"required"`
	YVariable      string        `json:"y_variable"`
	Filter         models.Filter `json:"filter"`
}

type TimeseriesResponse struct {
	Result *analytics.TimeseriesResult `json:"result"`
	Figure charts.Figure               `json:"figure"`
}

// ListPlots returns the scatter presets
func (h *AnalyticsHandler) ListPlots(c *gin.Context) {
	c.JSON(http.StatusOK, analytics.EntityPlots())
}

// GetPlot runs a preset scatter aggregation. Query parameters other than
// x_measure, y_measure and loglog are filters in col=v1,v2 form.
func (h *AnalyticsHandler) GetPlot(c *gin.Context) {
	entity := c.Param("entity")
	if _, ok := analytics.PlotFor(entity); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown plot: " + entity})
		return
	}

	x := measureParam(c, "x_measure")
	y := measureParam(c, "y_measure")
	logLog := true
	if v := c.Query("loglog"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "loglog must be a boolean"})
			return
		}
		logLog = parsed
	}

	query := c.Request.URL.Query()
	cols := make([]string, 0, len(query))
	for col := range query {
		if !reservedPlotParams[col] {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)

	var args []string
	for _, col := range cols {
		for _, v := range query[col] {
			args = append(args, col+"="+v)
		}
	}
	filter, err := models.ParseFilterArgs(args)
	if err != nil {
		respondError(c, err)
		return
	}

	result, plot, err := h.engine.AggregateEntity(c.Request.Context(), entity, x, y, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	fig := charts.Scatter(result, charts.ScatterOptions{
		Title:       plot.Title,
		LogLog:      logLog,
		HoverPrefix: plot.HoverPrefix,
	})
	c.JSON(http.StatusOK, gin.H{
		"plot":   plot,
		"result": result,
		"figure": fig,
	})
}

// Aggregate runs an arbitrary grouped aggregation.
func (h *AnalyticsHandler) Aggregate(c *gin.Context) {
	var req AggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.XMeasure == "" {
		req.XMeasure = models.MeasureMedian
	}
	if req.YMeasure == "" {
		req.YMeasure = models.MeasureMedian
	}

	result, err := h.engine.AggregateByGroup(c.Request.Context(), req.Groupings, req.XMeasure, req.YMeasure, req.Filter)
	if err != nil {
		respondError(c, err)
		return
	}

	logLog := req.LogLog == nil || *req.LogLog
	c.JSON(http.StatusOK, AggregateResponse{
		Result: result,
		Figure: charts.Scatter(result, charts.ScatterOptions{LogLog: logLog}),
	})
}

// Timeseries builds the per-release daily price lines.
func (h *AnalyticsHandler) Timeseries(c *gin.Context) {
	var req TimeseriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.YVariable == "" {
		req.YVariable = models.ColLowestPrice
	}

	result, err := h.engine.AggregateTimeseries(c.Request.Context(), req.ColorDimension, req.YVariable, req.Filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, TimeseriesResponse{
		Result: result,
		Figure: charts.Timeseries(result),
	})
}

func measureParam(c *gin.Context, name string) models.Measure {
	return models.Measure(c.DefaultQuery(name, string(models.MeasureMedian)))
}
