package app

import (
	"gorm.io/gorm"

	httpx "github.com/tracebind/passport-backend/internal/http"
	"github.com/tracebind/passport-backend/internal/http/handlers"
	"github.com/tracebind/passport-backend/internal/http/middleware"
	"github.com/tracebind/passport-backend/internal/observability"
	"github.com/tracebind/passport-backend/internal/platform/logger"
	"github.com/tracebind/passport-backend/internal/realtime"
)

func wireRouter(
	db *gorm.DB,
	log *logger.Logger,
	metrics *observability.Metrics,
	s Services,
	hub *realtime.SSEHub,
) httpx.RouterConfig {
	return httpx.RouterConfig{
		Log:     log,
		Metrics: metrics,

		AuthMiddleware: middleware.NewAuthMiddleware(log, s.Auth),

		HealthHandler:       handlers.NewHealthHandler(db),
		AuthHandler:         handlers.NewAuthHandler(s.Auth),
		ConnectionHandler:   handlers.NewConnectionHandler(s.Connection),
		ProfileHandler:      handlers.NewProfileHandler(s.Profile),
		ProductHandler:      handlers.NewProductHandler(s.Product),
		ContributionHandler: handlers.NewContributionHandler(s.Contribution),
		CommentHandler:      handlers.NewCommentHandler(s.Comment),
		LibraryHandler:      handlers.NewLibraryHandler(s.Library),
		PassportHandler:     handlers.NewPassportHandler(s.Passport),
		DashboardHandler:    handlers.NewDashboardHandler(s.Dashboard),
		AuditHandler:        handlers.NewAuditHandler(s.Audit),
		RealtimeHandler:     handlers.NewRealtimeHandler(log, hub),
	}
}
