package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// LocationResponse represents the API response for a single location.
type LocationResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Open        string `json:"open"`
	Close       string `json:"close"`
	Timezone    string `json:"timezone"`
	SlotMinutes int    `json:"slotMinutes"`
	Zones       int    `json:"zones"`
}

// GetLocations handles GET /api/locations.
func (h *Handler) GetLocations(c *gin.Context) {
	responses := make([]LocationResponse, 0, len(h.cfg.Locations))
	for _, loc := range h.cfg.Locations {
		if loc.Disabled {
			continue
		}
		responses = append(responses, LocationResponse{
			ID:          loc.ID,
			Name:        loc.Name,
			Open:        loc.Open,
			Close:       loc.Close,
			Timezone:    loc.Timezone,
			SlotMinutes: loc.SlotMinutes,
			Zones:       loc.Zones,
		})
	}
	c.JSON(http.StatusOK, responses)
}

// GetSlots handles GET /api/locations/:location_id/slots?date=2026-03-10.
// Without a date it lists today's remaining grid.
func (h *Handler) GetSlots(c *gin.Context) {
	day := time.Now().UTC()
	if dateParam := c.Query("date"); dateParam != "" {
		parsed, err := time.Parse("2006-01-02", dateParam)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid 'date' format. Use YYYY-MM-DD."})
			return
		}
		day = parsed
	}

	grid, err := h.engine.Availability(c.Request.Context(), c.Param("location_id"), day)
	if err != nil {
		abortWithEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, grid)
}
