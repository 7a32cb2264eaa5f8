package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/vinyl-tracker/internal/analytics"
	"github.com/codyseavey/vinyl-tracker/internal/database"
	"github.com/codyseavey/vinyl-tracker/internal/logging"
	"github.com/codyseavey/vinyl-tracker/internal/models"
	"github.com/codyseavey/vinyl-tracker/internal/selection"
)

// isBadRequest reports errors caused by the caller's arguments.
func isBadRequest(err error) bool {
	return analytics.IsInvalidRequest(err) ||
		errors.Is(err, models.ErrUnknownColumn) ||
		errors.Is(err, models.ErrInvalidFilter) ||
		errors.Is(err, database.ErrUnknownTable) ||
		errors.Is(err, selection.ErrUnknownField) ||
		errors.Is(err, selection.ErrMalformedPoint)
}

// respondError maps service errors to status codes. An empty result or a
// cleared chart selection is not an error for the dashboard: it gets 204 so
// the client renders nothing new.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, analytics.ErrEmptyResult), errors.Is(err, selection.ErrEmptySelection):
		c.Status(http.StatusNoContent)
	case isBadRequest(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		logging.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
