package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/tracebind/passport-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Identity & tenancy
		// =========================
		&types.User{},
		&types.Tenant{},
		&types.TenantMember{},

		// =========================
		// Supplier network
		// =========================
		&types.TenantConnection{},
		&types.SupplierProfile{},

		// =========================
		// Product catalog + versions
		// =========================
		&types.Product{},
		&types.ProductVersion{},
		&types.VersionMaterial{},
		&types.VersionSupplier{},
		&types.VersionCertification{},
		&types.ProductMedia{},

		// =========================
		// Contribution workflow
		// =========================
		&types.DataContributionRequest{},
		&types.CollaborationComment{},

		// =========================
		// Reference libraries
		// =========================
		&types.Material{},
		&types.Certification{},
		&types.CertificateDefinition{},
		&types.MaterialDefinition{},

		// =========================
		// Passports + audit
		// =========================
		&types.ProductPassport{},
		&types.AuditLog{},
	)
}

// EnsureWorkflowIndexes adds the partial indexes AutoMigrate cannot express.
func EnsureWorkflowIndexes(db *gorm.DB) error {
	// One open workflow round per (product, supplier profile).
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_request_one_open
		ON data_contribution_request (product_id, supplier_profile_id)
		WHERE status IN ('SENT','IN_PROGRESS','SUBMITTED','CHANGES_REQUESTED');
	`).Error; err != nil {
		return fmt.Errorf("create idx_request_one_open: %w", err)
	}

	// At most one live main image per product.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_media_one_main
		ON product_media (product_id)
		WHERE is_main AND deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_media_one_main: %w", err)
	}

	return nil
}

// EnsureLibraryIndexes keeps the System-vs-tenant visibility lookups fast.
// Name/code uniqueness across the visibility union is service-enforced
// because it spans rows two different tenants can see.
func EnsureLibraryIndexes(db *gorm.DB) error {
	for _, table := range []string{"material", "certification", "certificate_definition", "material_definition"} {
		if err := db.Exec(fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS idx_%s_tenant_name
			ON %s (tenant_id, name);
		`, table, table)).Error; err != nil {
			return fmt.Errorf("create idx_%s_tenant_name: %w", table, err)
		}
		if err := db.Exec(fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS idx_%s_tenant_code
			ON %s (tenant_id, code);
		`, table, table)).Error; err != nil {
			return fmt.Errorf("create idx_%s_tenant_code: %w", table, err)
		}
	}

	return nil
}
