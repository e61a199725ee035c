package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/platform/logger"
	"github.com/tracebind/passport-backend/internal/platform/neo4jdb"
)

// UpsertProductChain mirrors one version snapshot into neo4j:
// (Tenant)-[:OWNS]->(Product)-[:HAS_VERSION]->(Version) plus
// (Version)-[:USES_MATERIAL {percentage}]->(Material) and
// (Version)-[:SOURCED_FROM {role}]->(SupplierProfile). Existing line edges of
// the version are dropped first so the mirror tracks full-replace saves.
// Material and profile rows decorate node names; lines referencing nothing in
// a library are postgres-only and skipped here.
func UpsertProductChain(
	ctx context.Context,
	client *neo4jdb.Client,
	log *logger.Logger,
	product *types.Product,
	version *types.ProductVersion,
	materialLines []*types.VersionMaterial,
	materialRows []*types.Material,
	supplierLines []*types.VersionSupplier,
	profileRows []*types.SupplierProfile,
) error {
	if !client.Enabled() {
		return nil
	}
	if product == nil || product.ID == uuid.Nil || version == nil || version.ID == uuid.Nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	materialNames := make(map[uuid.UUID]string, len(materialRows))
	for _, m := range materialRows {
		if m == nil || m.ID == uuid.Nil {
			continue
		}
		materialNames[m.ID] = m.Name
	}
	profileNames := make(map[uuid.UUID]string, len(profileRows))
	for _, p := range profileRows {
		if p == nil || p.ID == uuid.Nil {
			continue
		}
		profileNames[p.ID] = p.Name
	}

	materialRels := make([]map[string]any, 0, len(materialLines))
	for _, l := range materialLines {
		if l == nil || l.ID == uuid.Nil || l.MaterialID == nil || *l.MaterialID == uuid.Nil {
			continue
		}
		materialRels = append(materialRels, map[string]any{
			"line_id":        l.ID.String(),
			"material_id":    l.MaterialID.String(),
			"material_name":  materialNames[*l.MaterialID],
			"percentage":     l.Percentage,
			"origin_country": l.OriginCountry,
			"synced_at":      now,
		})
	}

	supplierRels := make([]map[string]any, 0, len(supplierLines))
	for _, l := range supplierLines {
		if l == nil || l.ID == uuid.Nil || l.SupplierProfileID == nil || *l.SupplierProfileID == uuid.Nil {
			continue
		}
		supplierRels = append(supplierRels, map[string]any{
			"line_id":      l.ID.String(),
			"profile_id":   l.SupplierProfileID.String(),
			"profile_name": profileNames[*l.SupplierProfileID],
			"role":         l.Role,
			"synced_at":    now,
		})
	}

	session := client.WriteSession(ctx)
	defer session.Close(ctx)

	// Best-effort schema init.
	{
		stmts := []string{
			`CREATE CONSTRAINT tenant_id_unique IF NOT EXISTS FOR (t:Tenant) REQUIRE t.id IS UNIQUE`,
			`CREATE CONSTRAINT product_id_unique IF NOT EXISTS FOR (p:Product) REQUIRE p.id IS UNIQUE`,
			`CREATE CONSTRAINT version_id_unique IF NOT EXISTS FOR (v:Version) REQUIRE v.id IS UNIQUE`,
			`CREATE CONSTRAINT material_id_unique IF NOT EXISTS FOR (m:Material) REQUIRE m.id IS UNIQUE`,
			`CREATE CONSTRAINT supplier_profile_id_unique IF NOT EXISTS FOR (sp:SupplierProfile) REQUIRE sp.id IS UNIQUE`,
		}
		for _, q := range stmts {
			if res, err := session.Run(ctx, q, nil); err != nil {
				if log != nil {
					log.Warn("neo4j schema init failed (continuing)", "error", err)
				}
			} else {
				_, _ = res.Consume(ctx)
			}
		}
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if res, err := tx.Run(ctx, `
MERGE (t:Tenant {id: $tenant_id})
SET t.synced_at = $synced_at
MERGE (p:Product {id: $product_id})
SET p.sku = $sku,
    p.gtin = $gtin,
    p.synced_at = $synced_at
MERGE (t)-[:OWNS]->(p)
MERGE (v:Version {id: $version_id})
SET v.version_sequence = $version_sequence,
    v.revision = $revision,
    v.status = $status,
    v.product_name = $product_name,
    v.synced_at = $synced_at
MERGE (p)-[:HAS_VERSION]->(v)
`, map[string]any{
			"tenant_id":        product.TenantID.String(),
			"product_id":       product.ID.String(),
			"sku":              product.SKU,
			"gtin":             product.GTIN,
			"version_id":       version.ID.String(),
			"version_sequence": version.VersionSequence,
			"revision":         version.Revision,
			"status":           string(version.Status),
			"product_name":     version.ProductName,
			"synced_at":        now,
		}); err != nil {
			return nil, err
		} else if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		// Full-replace semantics: drop the version's line edges before
		// re-projecting the payload.
		if res, err := tx.Run(ctx, `
MATCH (v:Version {id: $version_id})-[e:USES_MATERIAL|SOURCED_FROM]->()
DELETE e
`, map[string]any{"version_id": version.ID.String()}); err != nil {
			return nil, err
		} else if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		if len(materialRels) > 0 {
			res, err := tx.Run(ctx, `
MATCH (v:Version {id: $version_id})
UNWIND $rels AS r
MERGE (m:Material {id: r.material_id})
SET m.name = CASE WHEN r.material_name = '' THEN coalesce(m.name, '') ELSE r.material_name END,
    m.synced_at = r.synced_at
MERGE (v)-[e:USES_MATERIAL]->(m)
SET e.line_id = r.line_id,
    e.percentage = r.percentage,
    e.origin_country = r.origin_country,
    e.synced_at = r.synced_at
`, map[string]any{"version_id": version.ID.String(), "rels": materialRels})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		if len(supplierRels) > 0 {
			res, err := tx.Run(ctx, `
MATCH (v:Version {id: $version_id})
UNWIND $rels AS r
MERGE (sp:SupplierProfile {id: r.profile_id})
SET sp.name = CASE WHEN r.profile_name = '' THEN coalesce(sp.name, '') ELSE r.profile_name END,
    sp.synced_at = r.synced_at
MERGE (v)-[e:SOURCED_FROM]->(sp)
SET e.line_id = r.line_id,
    e.role = r.role,
    e.synced_at = r.synced_at
`, map[string]any{"version_id": version.ID.String(), "rels": supplierRels})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		return nil, nil
	})
	return err
}

type ChainMaterial struct {
	MaterialID    uuid.UUID `json:"material_id"`
	Name          string    `json:"name"`
	Percentage    float64   `json:"percentage"`
	OriginCountry string    `json:"origin_country"`
}

type ChainSupplier struct {
	SupplierProfileID uuid.UUID `json:"supplier_profile_id"`
	Name              string    `json:"name"`
	Role              string    `json:"role"`
}

type ProductChainView struct {
	ProductID uuid.UUID       `json:"product_id"`
	VersionID uuid.UUID       `json:"version_id"`
	Materials []ChainMaterial `json:"materials"`
	Suppliers []ChainSupplier `json:"suppliers"`
}

// ProductChain reads the projected chain of one product version back out of
// neo4j. Returns (nil, nil) when the client is not configured so callers can
// report traceability as unavailable rather than failing.
func ProductChain(
	ctx context.Context,
	client *neo4jdb.Client,
	productID uuid.UUID,
	versionID uuid.UUID,
) (*ProductChainView, error) {
	if !client.Enabled() {
		return nil, nil
	}
	if productID == uuid.Nil || versionID == uuid.Nil {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	session := client.ReadSession(ctx)
	defer session.Close(ctx)

	params := map[string]any{
		"product_id": productID.String(),
		"version_id": versionID.String(),
	}

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		view := &ProductChainView{
			ProductID: productID,
			VersionID: versionID,
			Materials: []ChainMaterial{},
			Suppliers: []ChainSupplier{},
		}

		res, err := tx.Run(ctx, `
MATCH (p:Product {id: $product_id})-[:HAS_VERSION]->(v:Version {id: $version_id})-[e:USES_MATERIAL]->(m:Material)
RETURN m.id AS material_id,
       coalesce(m.name, '') AS name,
       e.percentage AS percentage,
       coalesce(e.origin_country, '') AS origin_country
ORDER BY name
`, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			row, err := chainMaterialFromRecord(rec)
			if err != nil {
				return nil, err
			}
			view.Materials = append(view.Materials, row)
		}

		res, err = tx.Run(ctx, `
MATCH (p:Product {id: $product_id})-[:HAS_VERSION]->(v:Version {id: $version_id})-[e:SOURCED_FROM]->(sp:SupplierProfile)
RETURN sp.id AS profile_id,
       coalesce(sp.name, '') AS name,
       coalesce(e.role, '') AS role
ORDER BY name
`, params)
		if err != nil {
			return nil, err
		}
		records, err = res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			row, err := chainSupplierFromRecord(rec)
			if err != nil {
				return nil, err
			}
			view.Suppliers = append(view.Suppliers, row)
		}

		return view, nil
	})
	if err != nil {
		return nil, err
	}
	view, ok := out.(*ProductChainView)
	if !ok {
		return nil, fmt.Errorf("graph: unexpected chain result type %T", out)
	}
	return view, nil
}

func chainMaterialFromRecord(rec *neo4j.Record) (ChainMaterial, error) {
	id, err := uuidField(rec, "material_id")
	if err != nil {
		return ChainMaterial{}, err
	}
	return ChainMaterial{
		MaterialID:    id,
		Name:          stringField(rec, "name"),
		Percentage:    floatField(rec, "percentage"),
		OriginCountry: stringField(rec, "origin_country"),
	}, nil
}

func chainSupplierFromRecord(rec *neo4j.Record) (ChainSupplier, error) {
	id, err := uuidField(rec, "profile_id")
	if err != nil {
		return ChainSupplier{}, err
	}
	return ChainSupplier{
		SupplierProfileID: id,
		Name:              stringField(rec, "name"),
		Role:              stringField(rec, "role"),
	}, nil
}

func uuidField(rec *neo4j.Record, key string) (uuid.UUID, error) {
	raw, ok := rec.Get(key)
	if !ok {
		return uuid.Nil, fmt.Errorf("graph: record missing %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("graph: record field %q is %T, want string", key, raw)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("graph: record field %q: %w", key, err)
	}
	return id, nil
}

func stringField(rec *neo4j.Record, key string) string {
	raw, ok := rec.Get(key)
	if !ok {
		return ""
	}
	s, _ := raw.(string)
	return s
}

func floatField(rec *neo4j.Record, key string) float64 {
	raw, ok := rec.Get(key)
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return 0
	}
}
