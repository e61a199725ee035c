package domain

import (
	"github.com/tracebind/passport-backend/internal/domain/auditlog"
	"github.com/tracebind/passport-backend/internal/domain/catalog"
	"github.com/tracebind/passport-backend/internal/domain/identity"
	"github.com/tracebind/passport-backend/internal/domain/library"
	"github.com/tracebind/passport-backend/internal/domain/network"
	"github.com/tracebind/passport-backend/internal/domain/passport"
	"github.com/tracebind/passport-backend/internal/domain/workflow"
)

// Identity & tenancy.
type User = identity.User
type Tenant = identity.Tenant
type TenantMember = identity.TenantMember
type TenantType = identity.TenantType
type TenantStatus = identity.TenantStatus
type MemberRole = identity.MemberRole
type MemberStatus = identity.MemberStatus

const (
	TenantTypeBrand       = identity.TenantTypeBrand
	TenantTypeSupplier    = identity.TenantTypeSupplier
	TenantTypePersonal    = identity.TenantTypePersonal
	TenantTypeHybrid      = identity.TenantTypeHybrid
	TenantTypeSystemAdmin = identity.TenantTypeSystemAdmin

	TenantStatusActive    = identity.TenantStatusActive
	TenantStatusSuspended = identity.TenantStatusSuspended
	TenantStatusArchived  = identity.TenantStatusArchived

	MemberRoleOwner  = identity.MemberRoleOwner
	MemberRoleAdmin  = identity.MemberRoleAdmin
	MemberRoleMember = identity.MemberRoleMember

	MemberStatusActive   = identity.MemberStatusActive
	MemberStatusInactive = identity.MemberStatusInactive
)

func Slugify(name string) string { return identity.Slugify(name) }

// Supplier network.
type SupplierProfile = network.SupplierProfile
type TenantConnection = network.TenantConnection
type ConnectionStatus = network.ConnectionStatus

const (
	ConnectionPending      = network.ConnectionPending
	ConnectionActive       = network.ConnectionActive
	ConnectionRejected     = network.ConnectionRejected
	ConnectionSuspended    = network.ConnectionSuspended
	ConnectionDisconnected = network.ConnectionDisconnected

	MaxInviteRetries = network.MaxInviteRetries
)

func NewInvitationToken() (string, error) { return network.NewInvitationToken() }

// Product catalog & versions.
type Product = catalog.Product
type ProductVersion = catalog.ProductVersion
type ProductMedia = catalog.ProductMedia
type VersionMaterial = catalog.VersionMaterial
type VersionSupplier = catalog.VersionSupplier
type VersionCertification = catalog.VersionCertification
type VersionStatus = catalog.VersionStatus
type VersionSnapshot = catalog.VersionSnapshot

const (
	VersionWorkingDraft     = catalog.VersionWorkingDraft
	VersionSubmitted        = catalog.VersionSubmitted
	VersionApproved         = catalog.VersionApproved
	VersionRevisionRequired = catalog.VersionRevisionRequired
	VersionRejected         = catalog.VersionRejected
	VersionCancelled        = catalog.VersionCancelled
)

func CloneVersion(src VersionSnapshot) VersionSnapshot { return catalog.CloneVersion(src) }

func NewVersionRound(src VersionSnapshot, sequence int) VersionSnapshot {
	return catalog.NewVersionRound(src, sequence)
}

// Contribution workflow.
type DataContributionRequest = workflow.DataContributionRequest
type CollaborationComment = workflow.CollaborationComment
type RequestStatus = workflow.RequestStatus

const (
	RequestSent             = workflow.RequestSent
	RequestInProgress       = workflow.RequestInProgress
	RequestSubmitted        = workflow.RequestSubmitted
	RequestChangesRequested = workflow.RequestChangesRequested
	RequestCompleted        = workflow.RequestCompleted
	RequestDeclined         = workflow.RequestDeclined
	RequestCancelled        = workflow.RequestCancelled
)

func NonTerminalRequestStatuses() []RequestStatus { return workflow.NonTerminalStatuses() }

// Reference libraries.
type Material = library.Material
type Certification = library.Certification
type CertificateDefinition = library.CertificateDefinition
type MaterialDefinition = library.MaterialDefinition
type MaterialType = library.MaterialType
type CertificateCategory = library.CertificateCategory

const (
	MaterialNatural   = library.MaterialNatural
	MaterialSynthetic = library.MaterialSynthetic
	MaterialRecycled  = library.MaterialRecycled
	MaterialBlend     = library.MaterialBlend
	MaterialOther     = library.MaterialOther

	CertCategoryEnvironmental = library.CertCategoryEnvironmental
	CertCategorySocial        = library.CertCategorySocial
	CertCategoryQuality       = library.CertCategoryQuality
	CertCategorySafety        = library.CertCategorySafety
	CertCategoryOther         = library.CertCategoryOther
)

// Passports.
type ProductPassport = passport.ProductPassport
type PassportStatus = passport.PassportStatus

const (
	PassportDraft     = passport.PassportDraft
	PassportPublished = passport.PassportPublished
	PassportArchived  = passport.PassportArchived
)

func NewPublicUID() (string, error) { return passport.NewPublicUID() }

// Audit trail.
type AuditLog = auditlog.AuditLog
type AuditAction = auditlog.Action

const (
	AuditCreate = auditlog.ActionCreate
	AuditUpdate = auditlog.ActionUpdate
	AuditDelete = auditlog.ActionDelete
)
