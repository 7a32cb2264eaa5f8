package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/vinyl-tracker/internal/models"
	"github.com/codyseavey/vinyl-tracker/internal/services"
)

type CatalogHandler struct {
	catalog *services.CatalogService
}

func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

type CardsRequest struct {
	Filter models.Filter `json:"filter"`
}

// ListEntities returns dropdown options for an entity kind, or fuzzy search
// results when q is set.
func (h *CatalogHandler) ListEntities(c *gin.Context) {
	kind, ok := models.ParseEntityKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown entity: " + c.Param("kind")})
		return
	}

	if q := c.Query("q"); q != "" {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		matches, err := h.catalog.Search(c.Request.Context(), kind, q, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"entity": kind, "query": q, "results": nonNil(matches)})
		return
	}

	opts, err := h.catalog.Options(c.Request.Context(), kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entity": kind, "results": nonNil(opts)})
}

// GetCards returns drill-down card metadata for the entities in filter.
func (h *CatalogHandler) GetCards(c *gin.Context) {
	kind, ok := models.ParseEntityKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown entity: " + c.Param("kind")})
		return
	}

	var req CardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Filter) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filter is required"})
		return
	}

	cards, err := h.catalog.Cards(c.Request.Context(), kind, req.Filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entity": kind, "cards": nonNil(cards)})
}

// GetMissingReleases lists release ids the collector still has to look up.
func (h *CatalogHandler) GetMissingReleases(c *gin.Context) {
	ids, err := h.catalog.MissingReleases(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"release_ids": nonNil(ids), "count": len(ids)})
}

// nonNil keeps empty lists as [] rather than null in responses.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
