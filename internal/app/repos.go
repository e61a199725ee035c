package app

import (
	"gorm.io/gorm"

	"github.com/tracebind/passport-backend/internal/data/repos"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

type Repos struct {
	Users    repos.UserRepo
	Tenants  repos.TenantRepo
	Members  repos.TenantMemberRepo
	Conns    repos.ConnectionRepo
	Profiles repos.SupplierProfileRepo

	Products repos.ProductRepo
	Versions repos.VersionRepo
	Media    repos.MediaRepo

	Requests repos.RequestRepo
	Comments repos.CommentRepo

	Materials    repos.MaterialRepo
	Certs        repos.CertificationRepo
	CertDefs     repos.CertificateDefinitionRepo
	MaterialDefs repos.MaterialDefinitionRepo

	Passports repos.PassportRepo
	Audit     repos.AuditRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Users:    repos.NewUserRepo(db, log),
		Tenants:  repos.NewTenantRepo(db, log),
		Members:  repos.NewTenantMemberRepo(db, log),
		Conns:    repos.NewConnectionRepo(db, log),
		Profiles: repos.NewSupplierProfileRepo(db, log),

		Products: repos.NewProductRepo(db, log),
		Versions: repos.NewVersionRepo(db, log),
		Media:    repos.NewMediaRepo(db, log),

		Requests: repos.NewRequestRepo(db, log),
		Comments: repos.NewCommentRepo(db, log),

		Materials:    repos.NewMaterialRepo(db, log),
		Certs:        repos.NewCertificationRepo(db, log),
		CertDefs:     repos.NewCertificateDefinitionRepo(db, log),
		MaterialDefs: repos.NewMaterialDefinitionRepo(db, log),

		Passports: repos.NewPassportRepo(db, log),
		Audit:     repos.NewAuditRepo(db, log),
	}
}
