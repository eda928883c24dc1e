package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"greenbox-backend/config"
	"greenbox-backend/internal/lifecycle"
	"greenbox-backend/internal/mw"
	"greenbox-backend/internal/notification"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, engine lifecycle.Coordinator, notifier *notification.WorkerPool, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(cfg, engine, notifier, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), 5)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Static catalog; safe to cache.
		api.GET("/locations", caching, handler.GetLocations)
		// Availability must stay fresh, never cached.
		api.GET("/locations/:location_id/slots", handler.GetSlots)

		api.POST("/checkouts", handler.PostReserve)
		api.GET("/checkouts/:id", handler.GetCheckout)
		api.POST("/checkouts/:id/pickup", handler.PostPickup)
		api.POST("/checkouts/:id/return", handler.PostReturn)
		api.POST("/checkouts/:id/cancel", handler.PostCancel)

		api.POST("/users", handler.PostUser)
		api.GET("/users/:id", handler.GetUser)
		api.GET("/users/:id/impact", handler.GetUserImpact)

		api.GET("/containers/:code", handler.GetContainer)
		api.PATCH("/containers/:code/status", handler.PatchContainerStatus)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
