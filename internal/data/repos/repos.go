package repos

import (
	"gorm.io/gorm"

	"github.com/tracebind/passport-backend/internal/data/repos/auditlog"
	"github.com/tracebind/passport-backend/internal/data/repos/catalog"
	"github.com/tracebind/passport-backend/internal/data/repos/identity"
	"github.com/tracebind/passport-backend/internal/data/repos/library"
	"github.com/tracebind/passport-backend/internal/data/repos/network"
	"github.com/tracebind/passport-backend/internal/data/repos/passport"
	"github.com/tracebind/passport-backend/internal/data/repos/workflow"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

type UserRepo = identity.UserRepo
type TenantRepo = identity.TenantRepo
type TenantMemberRepo = identity.TenantMemberRepo

type ConnectionRepo = network.ConnectionRepo
type SupplierProfileRepo = network.SupplierProfileRepo

type ProductRepo = catalog.ProductRepo
type VersionRepo = catalog.VersionRepo
type MediaRepo = catalog.MediaRepo

type RequestRepo = workflow.RequestRepo
type CommentRepo = workflow.CommentRepo

type MaterialRepo = library.MaterialRepo
type CertificationRepo = library.CertificationRepo
type CertificateDefinitionRepo = library.CertificateDefinitionRepo
type MaterialDefinitionRepo = library.MaterialDefinitionRepo

type PassportRepo = passport.PassportRepo
type AuditRepo = auditlog.AuditRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return identity.NewUserRepo(db, baseLog)
}
func NewTenantRepo(db *gorm.DB, baseLog *logger.Logger) TenantRepo {
	return identity.NewTenantRepo(db, baseLog)
}
func NewTenantMemberRepo(db *gorm.DB, baseLog *logger.Logger) TenantMemberRepo {
	return identity.NewTenantMemberRepo(db, baseLog)
}

func NewConnectionRepo(db *gorm.DB, baseLog *logger.Logger) ConnectionRepo {
	return network.NewConnectionRepo(db, baseLog)
}
func NewSupplierProfileRepo(db *gorm.DB, baseLog *logger.Logger) SupplierProfileRepo {
	return network.NewSupplierProfileRepo(db, baseLog)
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return catalog.NewProductRepo(db, baseLog)
}
func NewVersionRepo(db *gorm.DB, baseLog *logger.Logger) VersionRepo {
	return catalog.NewVersionRepo(db, baseLog)
}
func NewMediaRepo(db *gorm.DB, baseLog *logger.Logger) MediaRepo {
	return catalog.NewMediaRepo(db, baseLog)
}

func NewRequestRepo(db *gorm.DB, baseLog *logger.Logger) RequestRepo {
	return workflow.NewRequestRepo(db, baseLog)
}
func NewCommentRepo(db *gorm.DB, baseLog *logger.Logger) CommentRepo {
	return workflow.NewCommentRepo(db, baseLog)
}

func NewMaterialRepo(db *gorm.DB, baseLog *logger.Logger) MaterialRepo {
	return library.NewMaterialRepo(db, baseLog)
}
func NewCertificationRepo(db *gorm.DB, baseLog *logger.Logger) CertificationRepo {
	return library.NewCertificationRepo(db, baseLog)
}
func NewCertificateDefinitionRepo(db *gorm.DB, baseLog *logger.Logger) CertificateDefinitionRepo {
	return library.NewCertificateDefinitionRepo(db, baseLog)
}
func NewMaterialDefinitionRepo(db *gorm.DB, baseLog *logger.Logger) MaterialDefinitionRepo {
	return library.NewMaterialDefinitionRepo(db, baseLog)
}

func NewPassportRepo(db *gorm.DB, baseLog *logger.Logger) PassportRepo {
	return passport.NewPassportRepo(db, baseLog)
}
func NewAuditRepo(db *gorm.DB, baseLog *logger.Logger) AuditRepo {
	return auditlog.NewAuditRepo(db, baseLog)
}
