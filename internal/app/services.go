package app

import (
	"gorm.io/gorm"

	"github.com/tracebind/passport-backend/internal/observability"
	"github.com/tracebind/passport-backend/internal/platform/logger"
	"github.com/tracebind/passport-backend/internal/realtime"
	"github.com/tracebind/passport-backend/internal/services"
)

type Services struct {
	Async    *services.Dispatcher
	Notifier services.Notifier

	Audit        services.AuditService
	Auth         services.AuthService
	Connection   services.ConnectionService
	Profile      services.ProfileService
	Product      services.ProductService
	Contribution services.ContributionService
	Comment      services.CommentService
	Library      services.LibraryService
	Passport     services.PassportService
	Dashboard    services.DashboardService
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	cfg Config,
	r Repos,
	hub *realtime.SSEHub,
	clients Clients,
	metrics *observability.Metrics,
) (Services, error) {
	var emit services.SSEEmitter
	if clients.Bus != nil {
		emit = &services.RedisEmitter{Bus: clients.Bus}
	} else {
		emit = &services.HubEmitter{Hub: hub}
	}

	async := services.NewDispatcher(log, metrics)
	notify := services.NewNotifier(log, emit, clients.Mailer)
	audit := services.NewAuditService(db, log, r.Audit)

	auth, err := services.NewAuthService(db, log, r.Users, r.Tenants, r.Members, r.Conns, r.Profiles, audit, async)
	if err != nil {
		return Services{}, err
	}

	connection := services.NewConnectionService(db, log, r.Conns, r.Profiles, r.Tenants, audit, notify, async, clients.Graph, metrics)
	profile := services.NewProfileService(db, log, r.Profiles, r.Conns, audit, async)
	product := services.NewProductService(db, log, r.Products, r.Versions, r.Media, r.Profiles, r.Passports,
		r.Materials, r.MaterialDefs, r.Certs, r.CertDefs, clients.Vault, audit, async, clients.Graph, metrics)
	contribution := services.NewContributionService(db, log, r.Requests, r.Comments, r.Products, r.Versions,
		r.Profiles, r.Tenants, r.Materials, r.MaterialDefs, r.Certs, r.CertDefs, clients.Vault,
		audit, notify, async, clients.Graph, metrics)
	comment := services.NewCommentService(db, log, r.Comments, r.Requests, r.Users, r.Tenants, audit, notify, async)
	library := services.NewLibraryService(db, log, r.Materials, r.Certs, r.CertDefs, r.MaterialDefs, r.Versions, audit, async)
	passport := services.NewPassportService(db, log, r.Passports, r.Products, r.Versions, r.Media, r.Tenants,
		r.Materials, r.Certs, r.CertDefs, clients.Vault, clients.Labels, cfg.AppBaseURL,
		audit, notify, async, clients.Graph, metrics)
	dashboard := services.NewDashboardService(db, log, r.Products, r.Versions, r.Passports, r.Requests, r.Conns, r.Profiles, r.Tenants)

	return Services{
		Async:    async,
		Notifier: notify,

		Audit:        audit,
		Auth:         auth,
		Connection:   connection,
		Profile:      profile,
		Product:      product,
		Contribution: contribution,
		Comment:      comment,
		Library:      library,
		Passport:     passport,
		Dashboard:    dashboard,
	}, nil
}
