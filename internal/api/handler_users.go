package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"greenbox-backend/internal/model"
	"greenbox-backend/internal/points"
)

type createUserRequest struct {
	Handle      string `json:"handle" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
	Email       string `json:"email"`
}

// PostUser handles POST /api/users. Users are created on first login by
// the auth layer; this endpoint is its entry point and is idempotent per
// handle.
func (h *Handler) PostUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := model.User{
		Handle:      req.Handle,
		DisplayName: req.DisplayName,
		Email:       req.Email,
	}
	if err := h.engine.DB().Where("handle = ?", req.Handle).FirstOrCreate(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, user)
}

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return 0, false
	}
	return id, true
}

// GetUser handles GET /api/users/:id.
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	user, err := h.engine.UserByID(c.Request.Context(), id)
	if err != nil {
		abortWithEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetUserImpact handles GET /api/users/:id/impact: the environmental
// impact attributed to the user's completed returns.
func (h *Handler) GetUserImpact(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	user, err := h.engine.UserByID(c.Request.Context(), id)
	if err != nil {
		abortWithEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, points.ForUsage(user.TotalReturns))
}
