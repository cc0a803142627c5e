package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterConfig carries everything the HTTP surface depends on.
type RouterConfig struct {
	Reservations interface {
		SlotSelector
		BookingConfirmer
	}
	Admin             AdminAPI
	DB                Pinger
	Logger            *zap.Logger
	MaxRequestsPerMin int
	Production        bool
}

// NewRouter assembles the gin engine: middleware, the booking flow, and the
// admin surface.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(cfg.Logger))
	if cfg.MaxRequestsPerMin > 0 {
		r.Use(rateLimit(cfg.MaxRequestsPerMin, cfg.Logger))
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, codeNotFound, "not found")
	})

	r.GET("/health", handleHealth(cfg.DB))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/slots/select", handleSelectSlot(cfg.Reservations))
		v1.POST("/bookings/confirm", handleConfirmBooking(cfg.Reservations))

		admin := v1.Group("/admin")
		{
			admin.POST("/tenants", handleCreateTenant(cfg.Admin))
			admin.GET("/tenants/:tenantID", handleGetTenant(cfg.Admin))
			admin.POST("/tenants/:tenantID/resources", handleCreateResource(cfg.Admin))
			admin.GET("/tenants/:tenantID/resources", handleListResources(cfg.Admin))
			admin.PATCH("/tenants/:tenantID/resources/:resourceID", handleSetResourceActive(cfg.Admin))
		}
	}

	return r
}
