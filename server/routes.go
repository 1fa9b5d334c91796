package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/authsession/config"
	"github.com/tech-arch1tect/authsession/handlers/auth"
	jwtmiddleware "github.com/tech-arch1tect/authsession/middleware/jwt"
	"github.com/tech-arch1tect/authsession/middleware/ratelimit"
	"github.com/tech-arch1tect/authsession/openapi"
	"github.com/tech-arch1tect/authsession/services/jwt"
	"github.com/tech-arch1tect/authsession/services/logging"
	"github.com/tech-arch1tect/authsession/services/metrics"
	"github.com/tech-arch1tect/authsession/services/tokenpolicy"
	"gorm.io/gorm"
)

const (
	healthTimeout = 2 * time.Second
	authPrefix    = "/api/auth"
	apiVersion    = "1.0.0"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func RegisterRoutes(srv *Server, cfg *config.Config, authHandler *auth.Handler, access *jwt.Service, policies tokenpolicy.Policies, limiter ratelimit.Limiter, collector *metrics.Collector, db *gorm.DB, logger *logging.Service) {
	srv.Get("/health", healthHandler(db))

	var guard []echo.MiddlewareFunc
	if limiter != nil {
		guard = append(guard, echo.MiddlewareFunc(limiter))
	}

	requireAuth := jwtmiddleware.RequireAccessToken(access, policies, cfg.Server.RequestTimeout, logger.Named("jwt"))
	authHandler.Register(srv.Group(authPrefix), requireAuth, guard...)

	if cfg.Docs.Enabled {
		doc := openapi.New(cfg.App.Name, apiVersion).
			Description("Access token issuance and revocation with rotating refresh tokens.")
		authHandler.Describe(doc, authPrefix)
		srv.Get(cfg.Docs.Path+".json", doc.JSONHandler())
		srv.Get(cfg.Docs.Path+".yaml", doc.YAMLHandler())
	}

	if cfg.Metrics.Enabled {
		srv.Get(cfg.Metrics.Path, echo.WrapHandler(collector.Handler()))
	}
}

func healthHandler(db *gorm.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := HealthResponse{Status: "ok", Database: "ok"}

		sqlDB, err := db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
			return c.JSON(http.StatusServiceUnavailable, resp)
		}

		return c.JSON(http.StatusOK, resp)
	}
}
