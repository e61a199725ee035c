package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/platform/logger"
	"github.com/tracebind/passport-backend/internal/platform/neo4jdb"
)

// UpsertSupplyNetwork mirrors a brand↔supplier connection into neo4j as
// (supplier:Tenant)-[:SUPPLIES {status}]->(brand:Tenant). Best-effort: a nil
// client or an unresolved supplier makes it a no-op, and callers schedule it
// strictly after the primary commit.
func UpsertSupplyNetwork(
	ctx context.Context,
	client *neo4jdb.Client,
	log *logger.Logger,
	conn *types.TenantConnection,
) error {
	if !client.Enabled() {
		return nil
	}
	if conn == nil || conn.ID == uuid.Nil || conn.SupplierTenantID == nil || *conn.SupplierTenantID == uuid.Nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	brand := map[string]any{
		"id":        conn.RequesterTenantID.String(),
		"name":      "",
		"slug":      "",
		"type":      "",
		"synced_at": now,
	}
	if conn.RequesterTenant != nil {
		brand["name"] = conn.RequesterTenant.Name
		brand["slug"] = conn.RequesterTenant.Slug
		brand["type"] = string(conn.RequesterTenant.Type)
	}

	supplier := map[string]any{
		"id":        conn.SupplierTenantID.String(),
		"name":      "",
		"slug":      "",
		"type":      "",
		"synced_at": now,
	}
	if conn.SupplierTenant != nil {
		supplier["name"] = conn.SupplierTenant.Name
		supplier["slug"] = conn.SupplierTenant.Slug
		supplier["type"] = string(conn.SupplierTenant.Type)
	}

	session := client.WriteSession(ctx)
	defer session.Close(ctx)

	// Best-effort schema init.
	{
		stmts := []string{
			`CREATE CONSTRAINT tenant_id_unique IF NOT EXISTS FOR (t:Tenant) REQUIRE t.id IS UNIQUE`,
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
		res, err := tx.Run(ctx, `
MERGE (b:Tenant {id: $brand.id})
SET b.name = CASE WHEN $brand.name = '' THEN coalesce(b.name, '') ELSE $brand.name END,
    b.slug = CASE WHEN $brand.slug = '' THEN coalesce(b.slug, '') ELSE $brand.slug END,
    b.type = CASE WHEN $brand.type = '' THEN coalesce(b.type, '') ELSE $brand.type END,
    b.synced_at = $brand.synced_at
MERGE (s:Tenant {id: $supplier.id})
SET s.name = CASE WHEN $supplier.name = '' THEN coalesce(s.name, '') ELSE $supplier.name END,
    s.slug = CASE WHEN $supplier.slug = '' THEN coalesce(s.slug, '') ELSE $supplier.slug END,
    s.type = CASE WHEN $supplier.type = '' THEN coalesce(s.type, '') ELSE $supplier.type END,
    s.synced_at = $supplier.synced_at
MERGE (s)-[e:SUPPLIES]->(b)
SET e.connection_id = $connection_id,
    e.status = $status,
    e.synced_at = $synced_at
`, map[string]any{
			"brand":         brand,
			"supplier":      supplier,
			"connection_id": conn.ID.String(),
			"status":        string(conn.Status),
			"synced_at":     now,
		})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}
