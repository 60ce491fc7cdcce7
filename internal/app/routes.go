package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/walpay/core/internal/middleware"
	"github.com/walpay/core/internal/modules/auth"
	"github.com/walpay/core/internal/modules/payment"
	"github.com/walpay/core/internal/modules/seller"
	"github.com/walpay/core/internal/pkg/response"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes(svcs services) {
	r := a.router
	authMW := svcs.resolver.Auth()

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "not found")
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":    "walpay-core",
		"version": "1.0.0",
	}

	api := r.Group(apiPrefix)
	api.Use(svcs.resolver.OptionalAuth())
	api.Use(middleware.Idempotence(a.rc.Raw()))

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		uptimeMs := time.Since(processStart).Milliseconds()
		c.JSON(http.StatusOK, gin.H{
			"timestamp": uptimeMs,
			"humanize":  humanizeDuration(time.Duration(uptimeMs) * time.Millisecond),
		})
	})
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"jobs":   a.sched.List(),
		})
	})
	// The job outlives the request, so it must not run on the request context.
	api.POST("/health/jobs/:name/run", authMW, func(c *gin.Context) {
		if err := a.sched.Run(context.Background(), c.Param("name")); err != nil {
			response.NotFound(c, "job not found")
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"data": "scheduled"})
	})

	// Credential endpoints carry a fixed-window rate limit keyed on route
	// and client IP so code guessing burns out fast.
	authGroup := api.Group("")
	authGroup.Use(middleware.RateLimit(a.rc.Raw(), a.cfg.RateLimit.Max, a.cfg.RateLimit.Window()))
	auth.NewHandler(svcs.sellers, svcs.otps, svcs.sessions, a.logger.Named("AuthHandler")).
		RegisterRoutes(authGroup, authMW)

	seller.NewHandler(svcs.sellers, a.logger.Named("SellerHandler")).
		RegisterRoutes(api, authMW)

	// Public checkout pages are anonymous GETs; a short shared cache keeps
	// hot links from hammering Mongo.
	payment.NewHandler(svcs.payments, a.logger.Named("PaymentHandler")).
		RegisterRoutes(api, authMW, middleware.HTTPCache(a.rc.Raw(), a.cfg.RateLimit.CacheTTL()))
}

var processStart = time.Now()

func humanizeDuration(d time.Duration) string {
	if d < time.Minute {
		return d.Truncate(time.Second).String()
	}
	if d < time.Hour {
		return d.Truncate(time.Minute).String()
	}
	if d < 24*time.Hour {
		return d.Truncate(time.Hour).String()
	}
	return d.Truncate(24 * time.Hour).String()
}
