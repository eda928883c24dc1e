package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"greenbox-backend/internal/points"
)

type reserveRequest struct {
	UserID      int64     `json:"user_id" binding:"required"`
	LocationID  string    `json:"location_id" binding:"required"`
	DesiredTime time.Time `json:"desired_time" binding:"required"`
}

// PostReserve handles POST /api/checkouts.
func (h *Handler) PostReserve(c *gin.Context) {
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	checkout, err := h.engine.Reserve(c.Request.Context(), req.UserID, req.LocationID, req.DesiredTime)
	if err != nil {
		abortWithEngineError(c, err)
		return
	}

	h.dispatch(checkout.UserID, fmt.Sprintf(
		"Reservation confirmed: zone %d at %s, pickup %s.",
		checkout.PickupZone, checkout.PickupLocation,
		checkout.PickupTimeSlot.Format(time.RFC3339)))

	c.JSON(http.StatusCreated, checkout)
}

type pickupRequest struct {
	ContainerCode string `json:"container_code" binding:"required"`
}

// PostPickup handles POST /api/checkouts/:id/pickup.
func (h *Handler) PostPickup(c *gin.Context) {
	var req pickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	checkout, err := h.engine.PickUp(c.Request.Context(), c.Param("id"), req.ContainerCode)
	if err != nil {
		abortWithEngineError(c, err)
		return
	}

	h.dispatch(checkout.UserID, fmt.Sprintf(
		"Container picked up. Return it by %s to keep your streak.",
		checkout.ExpectedReturnDate.Format(time.RFC3339)))

	c.JSON(http.StatusOK, checkout)
}

type returnRequest struct {
	ReturnLocation string `json:"return_location"`
}

// PostReturn handles POST /api/checkouts/:id/return.
func (h *Handler) PostReturn(c *gin.Context) {
	var req returnRequest
	// Body is optional; the return location defaults to the pickup location.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	checkout, err := h.engine.Return(c.Request.Context(), c.Param("id"), req.ReturnLocation)
	if err != nil {
		abortWithEngineError(c, err)
		return
	}

	// The outcome is a pure function of the committed record, so it can be
	// recomputed here for the message without another engine call.
	outcome := points.ForReturn(checkout.ExpectedReturnDate, *checkout.ActualReturnDate)
	if outcome.Late {
		h.dispatch(checkout.UserID, fmt.Sprintf("Container returned late (%d points). Your streak has reset.", outcome.Points))
	} else {
		h.dispatch(checkout.UserID, fmt.Sprintf("Container returned on time, +%d points!", outcome.Points))
	}

	c.JSON(http.StatusOK, checkout)
}

type cancelRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// PostCancel handles POST /api/checkouts/:id/cancel.
func (h *Handler) PostCancel(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.engine.Cancel(c.Request.Context(), c.Param("id"), req.UserID); err != nil {
		abortWithEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetCheckout handles GET /api/checkouts/:id.
func (h *Handler) GetCheckout(c *gin.Context) {
	checkout, err := h.engine.CheckoutByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkout)
}
