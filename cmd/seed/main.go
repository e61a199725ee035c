// Seeds the System Global reference libraries from a YAML catalog. Rows are
// created with tenant_id NULL, which makes them visible to every tenant and
// immutable through the API. Re-running is safe: entries are matched by code
// and updated in place.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/tracebind/passport-backend/internal/data/db"
	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/platform/envutil"
	"github.com/tracebind/passport-backend/internal/platform/logger"
	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Materials []struct {
		Name         string `yaml:"name"`
		Code         string `yaml:"code"`
		Description  string `yaml:"description"`
		MaterialType string `yaml:"material_type"`
	} `yaml:"materials"`

	Certifications []struct {
		Name   string `yaml:"name"`
		Code   string `yaml:"code"`
		Issuer string `yaml:"issuer"`
	} `yaml:"certifications"`

	CertificateDefinitions []struct {
		Name            string `yaml:"name"`
		Code            string `yaml:"code"`
		IssuerAuthority string `yaml:"issuer_authority"`
		Category        string `yaml:"category"`
		Description     string `yaml:"description"`
	} `yaml:"certificate_definitions"`

	MaterialDefinitions []struct {
		Name                   string   `yaml:"name"`
		Code                   string   `yaml:"code"`
		Description            string   `yaml:"description"`
		MaterialType           string   `yaml:"material_type"`
		DefaultCarbonFootprint *float64 `yaml:"default_carbon_footprint"`
	} `yaml:"material_definitions"`
}

func main() {
	_ = godotenv.Load()

	var path string
	flag.StringVar(&path, "catalog", "", "path to the seed catalog (YAML)")
	flag.Parse()
	if path == "" {
		path = envutil.String("SEED_CATALOG", "seed/system_library.yaml")
	}

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Error("read catalog", "path", path, "error", err)
		os.Exit(1)
	}
	var catalog catalogFile
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		log.Error("parse catalog", "path", path, "error", err)
		os.Exit(1)
	}

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("init postgres", "error", err)
		os.Exit(1)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Error("automigrate", "error", err)
		os.Exit(1)
	}

	if err := seed(pg.DB(), catalog); err != nil {
		log.Error("seed failed", "error", err)
		os.Exit(1)
	}
	log.Info("system library seeded",
		"materials", len(catalog.Materials),
		"certifications", len(catalog.Certifications),
		"certificate_definitions", len(catalog.CertificateDefinitions),
		"material_definitions", len(catalog.MaterialDefinitions))
}

func seed(gdb *gorm.DB, catalog catalogFile) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		for _, m := range catalog.Materials {
			row := types.Material{
				Name:         m.Name,
				Code:         m.Code,
				Description:  m.Description,
				MaterialType: materialType(m.MaterialType),
			}
			if err := upsertSystem(tx, &types.Material{}, m.Code, &row); err != nil {
				return fmt.Errorf("material %s: %w", m.Code, err)
			}
		}
		for _, c := range catalog.Certifications {
			row := types.Certification{Name: c.Name, Code: c.Code, Issuer: c.Issuer}
			if err := upsertSystem(tx, &types.Certification{}, c.Code, &row); err != nil {
				return fmt.Errorf("certification %s: %w", c.Code, err)
			}
		}
		for _, d := range catalog.CertificateDefinitions {
			row := types.CertificateDefinition{
				Name:            d.Name,
				Code:            d.Code,
				IssuerAuthority: d.IssuerAuthority,
				Category:        certCategory(d.Category),
				Description:     d.Description,
			}
			if err := upsertSystem(tx, &types.CertificateDefinition{}, d.Code, &row); err != nil {
				return fmt.Errorf("certificate definition %s: %w", d.Code, err)
			}
		}
		for _, d := range catalog.MaterialDefinitions {
			row := types.MaterialDefinition{
				Name:                   d.Name,
				Code:                   d.Code,
				Description:            d.Description,
				MaterialType:           materialType(d.MaterialType),
				DefaultCarbonFootprint: d.DefaultCarbonFootprint,
			}
			if err := upsertSystem(tx, &types.MaterialDefinition{}, d.Code, &row); err != nil {
				return fmt.Errorf("material definition %s: %w", d.Code, err)
			}
		}
		return nil
	})
}

// upsertSystem matches an existing System row by code (tenant_id NULL) and
// updates it, or inserts a fresh one. Tenant-owned rows with the same code
// are never touched.
func upsertSystem(tx *gorm.DB, model any, code string, row any) error {
	res := tx.Model(model).
		Where("tenant_id IS NULL AND code = ?", code).
		Updates(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return tx.Create(row).Error
}

func materialType(raw string) types.MaterialType {
	switch types.MaterialType(raw) {
	case types.MaterialNatural, types.MaterialSynthetic, types.MaterialRecycled, types.MaterialBlend:
		return types.MaterialType(raw)
	default:
		return types.MaterialOther
	}
}

func certCategory(raw string) types.CertificateCategory {
	switch types.CertificateCategory(raw) {
	case types.CertCategoryEnvironmental, types.CertCategorySocial,
		types.CertCategoryQuality, types.CertCategorySafety:
		return types.CertificateCategory(raw)
	default:
		return types.CertCategoryOther
	}
}
