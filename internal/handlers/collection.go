package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/prlens/prlens/internal/githubapi"
	"github.com/prlens/prlens/internal/services"
	"github.com/prlens/prlens/internal/workers"
)

type CollectionHandler struct {
	collectorService *services.CollectorService
	processor        *workers.Processor
}

func NewCollectionHandler(collectorService *services.CollectorService, processor *workers.Processor) *CollectionHandler {
	return &CollectionHandler{
		collectorService: collectorService,
		processor:        processor,
	}
}

// SyncRepository runs a full collection for the repository in the path
func (h *CollectionHandler) SyncRepository(c *gin.Context) {
	owner := c.Param("owner")
	repo := c.Param("repo")

	result, err := h.collectorService.CollectRepositoryData(c.Request.Context(), owner, repo)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, githubapi.ErrAccessDenied) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Status reports stored entity counts and the rate limit state
func (h *CollectionHandler) Status(c *gin.Context) {
	status, err := h.collectorService.GetCollectionStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, status)
}

// ProcessingStats reports the worker pool counters
func (h *CollectionHandler) ProcessingStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.processor.Stats())
}

// Cleanup deletes data older than the retention window given in days
func (h *CollectionHandler) Cleanup(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "90"))
	if err != nil || days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
		return
	}

	result, err := h.collectorService.CleanupOldData(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
