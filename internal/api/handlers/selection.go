package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/vinyl-tracker/internal/analytics"
	"github.com/codyseavey/vinyl-tracker/internal/metrics"
	"github.com/codyseavey/vinyl-tracker/internal/selection"
)

type SelectionHandler struct{}

func NewSelectionHandler() *SelectionHandler {
	return &SelectionHandler{}
}

type ResolveRequest struct {
	Entities []selection.CardEntity `json:"entities" binding:"dive"`
	Clicks   []*int                 `json:"clicks"`
}

// ExtractRequest names the customdata layout either directly with
// field_order or through a plot preset. Field defaults to the preset's id
// column.
type ExtractRequest struct {
	Plot       string                   `json:"plot"`
	Field      string                   `json:"field"`
	FieldOrder []string                 `json:"field_order"`
	Event      selection.SelectionEvent `json:"event"`
}

// Resolve turns card click counts into a filter. No active card is 204.
func (h *SelectionHandler) Resolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filter, ok := selection.ResolveActiveSelections(req.Entities, req.Clicks)
	if !ok {
		metrics.SelectionResolutions.WithLabelValues("none").Inc()
		c.Status(http.StatusNoContent)
		return
	}
	metrics.SelectionResolutions.WithLabelValues("selected").Inc()
	c.JSON(http.StatusOK, gin.H{"filter": filter})
}

// Extract pulls one field out of a chart selection.
func (h *SelectionHandler) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Plot != "" {
		plot, ok := analytics.PlotFor(req.Plot)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plot: " + req.Plot})
			return
		}
		req.FieldOrder = plot.Groupings
		if req.Field == "" {
			req.Field = plot.IDColumn
		}
	}
	if req.Field == "" || len(req.FieldOrder) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "field and field_order or plot are required"})
		return
	}

	filter, err := selection.ExtractSelected(req.Field, req.Event, req.FieldOrder)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"filter": filter})
}
