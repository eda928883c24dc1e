package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"greenbox-backend/internal/model"
)

// GetContainer handles GET /api/containers/:code.
func (h *Handler) GetContainer(c *gin.Context) {
	container, err := h.engine.ContainerByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		abortWithEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, container)
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// PatchContainerStatus handles PATCH /api/containers/:code/status, the
// facility-staff action marking a container washed, faulty, or back in
// service. Only the four recognized status values are accepted.
func (h *Handler) PatchContainerStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := model.ParseContainerStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	container, err := h.engine.SetContainerStatus(c.Request.Context(), c.Param("code"), status)
	if err != nil {
		abortWithEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, container)
}
