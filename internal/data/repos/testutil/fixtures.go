package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/tracebind/passport-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "x",
		FirstName:    "A",
		LastName:     "B",
		IsActive:     true,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedTenant(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, tenantType types.TenantType) *types.Tenant {
	tb.Helper()
	t := &types.Tenant{
		ID:     uuid.New(),
		Name:   name,
		Slug:   types.Slugify(fmt.Sprintf("%s-%s", name, uuid.NewString()[:8])),
		Type:   tenantType,
		Status: types.TenantStatusActive,
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed tenant: %v", err)
	}
	return t
}

func SeedMember(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID, userID uuid.UUID, role types.MemberRole) *types.TenantMember {
	tb.Helper()
	m := &types.TenantMember{
		ID:       uuid.New(),
		TenantID: tenantID,
		UserID:   userID,
		Role:     role,
		Status:   types.MemberStatusActive,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed member: %v", err)
	}
	return m
}

func SeedConnection(tb testing.TB, ctx context.Context, tx *gorm.DB, requesterID uuid.UUID, email string, status types.ConnectionStatus) *types.TenantConnection {
	tb.Helper()
	token := uuid.NewString()
	c := &types.TenantConnection{
		ID:                uuid.New(),
		RequesterTenantID: requesterID,
		InvitationEmail:   email,
		InvitationToken:   &token,
		Status:            status,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed connection: %v", err)
	}
	return c
}

func SeedProfile(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID, connectionID uuid.UUID, name string) *types.SupplierProfile {
	tb.Helper()
	p := &types.SupplierProfile{
		ID:               uuid.New(),
		TenantID:         tenantID,
		ConnectionID:     connectionID,
		Name:             name,
		ConnectionStatus: types.ConnectionPending,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed supplier profile: %v", err)
	}
	return p
}

func SeedProduct(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, sku string) *types.Product {
	tb.Helper()
	p := &types.Product{
		ID:       uuid.New(),
		TenantID: tenantID,
		SKU:      sku,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed product: %v", err)
	}
	return p
}

func SeedVersion(tb testing.TB, ctx context.Context, tx *gorm.DB, productID, createdBy uuid.UUID, seq, rev int, status types.VersionStatus) *types.ProductVersion {
	tb.Helper()
	v := &types.ProductVersion{
		ID:                uuid.New(),
		ProductID:         productID,
		CreatedByTenantID: createdBy,
		VersionSequence:   seq,
		Revision:          rev,
		VersionName:       fmt.Sprintf("v%d.%d", seq, rev),
		Status:            status,
		ProductName:       "product",
	}
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed version: %v", err)
	}
	return v
}

func SeedRequest(tb testing.TB, ctx context.Context, tx *gorm.DB, brandID, supplierID, profileID, productID, versionID uuid.UUID, status types.RequestStatus) *types.DataContributionRequest {
	tb.Helper()
	r := &types.DataContributionRequest{
		ID:                uuid.New(),
		BrandTenantID:     brandID,
		SupplierTenantID:  supplierID,
		SupplierProfileID: profileID,
		ProductID:         productID,
		CurrentVersionID:  versionID,
		InitialVersionID:  versionID,
		Status:            status,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed request: %v", err)
	}
	return r
}

func SeedMaterial(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID *uuid.UUID, name, code string) *types.Material {
	tb.Helper()
	m := &types.Material{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     name,
		Code:     code,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed material: %v", err)
	}
	return m
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
