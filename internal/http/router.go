package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/tracebind/passport-backend/internal/http/handlers"
	httpMW "github.com/tracebind/passport-backend/internal/http/middleware"
	"github.com/tracebind/passport-backend/internal/observability"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler       *httpH.HealthHandler
	AuthHandler         *httpH.AuthHandler
	ConnectionHandler   *httpH.ConnectionHandler
	ProfileHandler      *httpH.ProfileHandler
	ProductHandler      *httpH.ProductHandler
	ContributionHandler *httpH.ContributionHandler
	CommentHandler      *httpH.CommentHandler
	LibraryHandler      *httpH.LibraryHandler
	PassportHandler     *httpH.PassportHandler
	DashboardHandler    *httpH.DashboardHandler
	AuditHandler        *httpH.AuditHandler
	RealtimeHandler     *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("passport-backend"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS())
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readycheck", cfg.HealthHandler.ReadyCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Public: registration, login and the invite landing page run
		// before the caller has an account.
		if cfg.AuthHandler != nil {
			api.POST("/auth/register", cfg.AuthHandler.Register)
			api.POST("/auth/login", cfg.AuthHandler.Login)
			api.POST("/auth/refresh", cfg.AuthHandler.Refresh)
		}
		if cfg.ConnectionHandler != nil {
			api.GET("/invitations/validate", cfg.ConnectionHandler.ValidateToken)
		}
	}

	// Public passport read: the QR code on a garment label resolves here.
	if cfg.PassportHandler != nil {
		r.GET("/public/passports/:uid", cfg.PassportHandler.PublicView)
	}

	protected := api.Group("")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.AuthHandler != nil {
			protected.GET("/me", cfg.AuthHandler.Me)
		}

		if cfg.RealtimeHandler != nil {
			protected.GET("/sse/stream", cfg.RealtimeHandler.Stream)
		}

		// Supplier address book (brand side).
		if cfg.ProfileHandler != nil {
			protected.GET("/suppliers", cfg.ProfileHandler.List)
			protected.GET("/suppliers/:id", cfg.ProfileHandler.Get)
			protected.PATCH("/suppliers/:id", cfg.ProfileHandler.Update)
		}
		if cfg.ConnectionHandler != nil {
			protected.POST("/suppliers/invite", cfg.ConnectionHandler.Invite)
			protected.POST("/suppliers/:id/reinvite", cfg.ConnectionHandler.Reinvite)
			protected.DELETE("/suppliers/:id", cfg.ConnectionHandler.Disconnect)

			// Supplier side of the handshake.
			protected.GET("/connections/incoming", cfg.ConnectionHandler.ListIncoming)
			protected.POST("/connections/:id/respond", cfg.ConnectionHandler.Respond)
			protected.POST("/connections/:id/disconnect", cfg.ConnectionHandler.DisconnectAsSupplier)

			protected.GET("/directory/suppliers", cfg.ConnectionHandler.SearchDirectory)
		}

		// Product catalog (brand side).
		if cfg.ProductHandler != nil {
			protected.POST("/products", cfg.ProductHandler.Create)
			protected.GET("/products", cfg.ProductHandler.List)
			protected.GET("/products/:id", cfg.ProductHandler.Get)
			protected.DELETE("/products/:id", cfg.ProductHandler.Delete)
			protected.POST("/products/:id/versions", cfg.ProductHandler.StartVersionRound)

			protected.PATCH("/versions/:id/metadata", cfg.ProductHandler.UpdateVersionMetadata)
			protected.PATCH("/versions/:id/impact", cfg.ProductHandler.UpdateVersionImpact)
			protected.POST("/versions/:id/materials", cfg.ProductHandler.AddMaterial)
			protected.DELETE("/versions/:id/materials/:lineID", cfg.ProductHandler.RemoveMaterial)
			protected.POST("/versions/:id/suppliers", cfg.ProductHandler.AddSupplier)
			protected.DELETE("/versions/:id/suppliers/:lineID", cfg.ProductHandler.RemoveSupplier)
			protected.POST("/versions/:id/certifications", cfg.ProductHandler.AddCertification)
			protected.DELETE("/versions/:id/certifications/:lineID", cfg.ProductHandler.RemoveCertification)

			protected.POST("/products/:id/media", cfg.ProductHandler.AddMedia)
			protected.POST("/products/:id/media/:mediaID/main", cfg.ProductHandler.SetMainMedia)
			protected.DELETE("/products/:id/media/:mediaID", cfg.ProductHandler.DeleteMedia)
		}

		// Contribution workflow.
		if cfg.ContributionHandler != nil {
			protected.POST("/products/:id/requests", cfg.ContributionHandler.Assign)
			protected.GET("/products/:id/requests", cfg.ContributionHandler.ListForProduct)

			protected.GET("/requests", cfg.ContributionHandler.ListForSupplier)
			protected.GET("/requests/:id", cfg.ContributionHandler.Get)
			protected.POST("/requests/:id/accept", cfg.ContributionHandler.Accept)
			protected.POST("/requests/:id/decline", cfg.ContributionHandler.Decline)
			protected.PUT("/requests/:id/draft", cfg.ContributionHandler.SaveDraft)
			protected.POST("/requests/:id/submit", cfg.ContributionHandler.Submit)
			protected.POST("/requests/:id/review", cfg.ContributionHandler.Review)
			protected.POST("/requests/:id/cancel", cfg.ContributionHandler.Cancel)
		}
		if cfg.CommentHandler != nil {
			protected.POST("/requests/:id/comments", cfg.CommentHandler.Add)
			protected.GET("/requests/:id/comments", cfg.CommentHandler.List)
		}

		// Reference libraries.
		if cfg.LibraryHandler != nil {
			protected.GET("/library/materials", cfg.LibraryHandler.ListMaterials)
			protected.POST("/library/materials", cfg.LibraryHandler.CreateMaterial)
			protected.PATCH("/library/materials/:id", cfg.LibraryHandler.UpdateMaterial)
			protected.DELETE("/library/materials/:id", cfg.LibraryHandler.DeleteMaterial)

			protected.GET("/library/certifications", cfg.LibraryHandler.ListCertifications)
			protected.POST("/library/certifications", cfg.LibraryHandler.CreateCertification)
			protected.PATCH("/library/certifications/:id", cfg.LibraryHandler.UpdateCertification)
			protected.DELETE("/library/certifications/:id", cfg.LibraryHandler.DeleteCertification)

			protected.GET("/library/certificate-definitions", cfg.LibraryHandler.ListCertificateDefinitions)
			protected.POST("/library/certificate-definitions", cfg.LibraryHandler.CreateCertificateDefinition)
			protected.PATCH("/library/certificate-definitions/:id", cfg.LibraryHandler.UpdateCertificateDefinition)
			protected.DELETE("/library/certificate-definitions/:id", cfg.LibraryHandler.DeleteCertificateDefinition)

			protected.GET("/library/material-definitions", cfg.LibraryHandler.ListMaterialDefinitions)
			protected.POST("/library/material-definitions", cfg.LibraryHandler.CreateMaterialDefinition)
			protected.PATCH("/library/material-definitions/:id", cfg.LibraryHandler.UpdateMaterialDefinition)
			protected.DELETE("/library/material-definitions/:id", cfg.LibraryHandler.DeleteMaterialDefinition)
		}

		// Passports & traceability.
		if cfg.PassportHandler != nil {
			protected.POST("/products/:id/passport", cfg.PassportHandler.Publish)
			protected.GET("/products/:id/passport", cfg.PassportHandler.Get)
			protected.POST("/products/:id/passport/archive", cfg.PassportHandler.Archive)
			protected.GET("/products/:id/chain", cfg.PassportHandler.Chain)
		}

		if cfg.DashboardHandler != nil {
			protected.GET("/dashboard/brand", cfg.DashboardHandler.BrandOverview)
			protected.GET("/dashboard/supplier", cfg.DashboardHandler.SupplierOverview)
		}
		if cfg.AuditHandler != nil {
			protected.GET("/audit", cfg.AuditHandler.List)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{"message": "route not found", "code": "NOT_FOUND"},
		})
	})

	return r
}
