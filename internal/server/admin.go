package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/gntpd/internal/observability"
	"github.com/danmuck/gntpd/internal/registry"
)

// AppLister exposes registered applications to the admin surface.
type AppLister interface {
	Applications() []registry.ApplicationInfo
}

// NewAdminRouter builds the HTTP observe surface: health, readiness,
// prometheus metrics, and the registered-application listing.
func NewAdminRouter(registry AppLister, corsOrigins []string) *gin.Engine {
	observability.RegisterMetrics()
	started := time.Now()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(started).String(),
			"service": "gntpd",
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"uptime": time.Since(started).String(),
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/applications", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"applications": registry.Applications(),
		})
	})

	return r
}

func normalizeOrigins(in []string) []string {
	if len(in) == 0 {
		return []string{"http://localhost", "http://127.0.0.1"}
	}
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
