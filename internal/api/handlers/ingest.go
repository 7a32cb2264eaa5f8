package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/vinyl-tracker/internal/models"
	"github.com/codyseavey/vinyl-tracker/internal/services"
)

type IngestHandler struct {
	ingest       *services.IngestService
	importWorker *services.ImportWorker
}

// NewIngestHandler creates the ingest handler. importWorker is nil when the
// inbox importer is disabled.
func NewIngestHandler(ingest *services.IngestService, importWorker *services.ImportWorker) *IngestHandler {
	return &IngestHandler{
		ingest:       ingest,
		importWorker: importWorker,
	}
}

type ObservationsRequest struct {
	Observations []models.PriceObservation `json:"observations" binding:"required,min=1"`
}

type ReleasesRequest struct {
	Releases      []models.ReleaseBundle `json:"releases" binding:"required,min=1"`
	StoreMetadata *bool                  `json:"store_metadata"`
	StorePrices   *bool                  `json:"store_prices"`
}

type RunImportRequest struct {
	File string `json:"file"`
}

// StoreObservations appends marketplace observations.
func (h *IngestHandler) StoreObservations(c *gin.Context) {
	var req ObservationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := h.ingest.StoreObservations(c.Request.Context(), req.Observations)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, services.IngestResult{Observations: n})
}

// StoreReleases stores release bundles. Metadata and prices are both stored
// unless disabled in the request.
func (h *IngestHandler) StoreReleases(c *gin.Context) {
	var req ReleasesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	storeMetadata := req.StoreMetadata == nil || *req.StoreMetadata
	storePrices := req.StorePrices == nil || *req.StorePrices

	var total services.IngestResult
	for _, bundle := range req.Releases {
		if bundle.Release.ReleaseID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "release.release_id is required"})
			return
		}
		res, err := h.ingest.StoreRelease(c.Request.Context(), bundle, storeMetadata, storePrices)
		total.Observations += res.Observations
		total.Releases += res.Releases
		total.MetadataWarnings += res.MetadataWarnings
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "stored": total})
			return
		}
	}
	c.JSON(http.StatusCreated, total)
}

// GetImportStatus returns the inbox import worker status
func (h *IngestHandler) GetImportStatus(c *gin.Context) {
	if h.importWorker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "importer is disabled"})
		return
	}
	c.JSON(http.StatusOK, h.importWorker.GetStatus())
}

// RunImport wakes the import worker, optionally queueing one inbox file
// ahead of the rest.
func (h *IngestHandler) RunImport(c *gin.Context) {
	if h.importWorker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "importer is disabled"})
		return
	}

	var req RunImportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if req.File == "" {
		h.importWorker.RunNow()
		c.JSON(http.StatusAccepted, gin.H{"queued": true})
		return
	}

	pos, err := h.importWorker.QueueFile(req.File)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": true, "file": req.File, "position": pos})
}
