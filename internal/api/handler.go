package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shiftsync/internal/models"
	"shiftsync/internal/service"
)

// Handler wires the HTTP surface to the sync service
type Handler struct {
	svc service.Service
}

// NewHandler creates a new API handler
func NewHandler(svc service.Service) *Handler {
	return &Handler{svc: svc}
}

// SetupRoutes registers all routes on the given router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.Health)

	authed := router.Group("/api", AuthMiddleware())
	authed.POST("/sync", h.Sync)
	authed.GET("/bootstrap", h.Bootstrap)
}

// Health is an unauthenticated liveness probe
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Sync handles POST /api/sync
func (h *Handler) Sync(c *gin.Context) {
	var req models.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "INVALID_REQUEST",
			Message: "Malformed sync request: " + err.Error(),
		})
		return
	}

	resp, err := h.svc.Sync(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Status:  "error",
			Code:    "INTERNAL_ERROR",
			Message: "Sync failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Bootstrap handles GET /api/bootstrap
func (h *Handler) Bootstrap(c *gin.Context) {
	includeDeleted := c.Query("includeDeleted") == "true"

	resp, err := h.svc.Bootstrap(c.Request.Context(), includeDeleted)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Status:  "error",
			Code:    "INTERNAL_ERROR",
			Message: "Bootstrap failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
