package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/tracebind/passport-backend/internal/domain"
)

// Child-collection access for versionRepo. Replace* implements the
// full-replace contract for draft saves: every existing row for the version
// is deleted and the payload rows are inserted fresh, no diffing.

func (r *versionRepo) ReplaceMaterials(ctx context.Context, tx *gorm.DB, versionID uuid.UUID, rows []*types.VersionMaterial) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if versionID == uuid.Nil {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("version_id = ?", versionID).
		Delete(&types.VersionMaterial{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		row.VersionID = versionID
	}
	return transaction.WithContext(ctx).Create(&rows).Error
}

func (r *versionRepo) ReplaceSuppliers(ctx context.Context, tx *gorm.DB, versionID uuid.UUID, rows []*types.VersionSupplier) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if versionID == uuid.Nil {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("version_id = ?", versionID).
		Delete(&types.VersionSupplier{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		row.VersionID = versionID
	}
	return transaction.WithContext(ctx).Create(&rows).Error
}

func (r *versionRepo) ReplaceCertifications(ctx context.Context, tx *gorm.DB, versionID uuid.UUID, rows []*types.VersionCertification) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if versionID == uuid.Nil {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("version_id = ?", versionID).
		Delete(&types.VersionCertification{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		row.VersionID = versionID
	}
	return transaction.WithContext(ctx).Create(&rows).Error
}

func (r *versionRepo) ListMaterials(ctx context.Context, tx *gorm.DB, versionID uuid.UUID) ([]*types.VersionMaterial, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if versionID == uuid.Nil {
		return []*types.VersionMaterial{}, nil
	}

	var results []*types.VersionMaterial
	if err := transaction.WithContext(ctx).
		Where("version_id = ?", versionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *versionRepo) ListSuppliers(ctx context.Context, tx *gorm.DB, versionID uuid.UUID) ([]*types.VersionSupplier, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if versionID == uuid.Nil {
		return []*types.VersionSupplier{}, nil
	}

	var results []*types.VersionSupplier
	if err := transaction.WithContext(ctx).
		Where("version_id = ?", versionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *versionRepo) ListCertifications(ctx context.Context, tx *gorm.DB, versionID uuid.UUID) ([]*types.VersionCertification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if versionID == uuid.Nil {
		return []*types.VersionCertification{}, nil
	}

	var results []*types.VersionCertification
	if err := transaction.WithContext(ctx).
		Where("version_id = ?", versionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *versionRepo) AddMaterials(ctx context.Context, tx *gorm.DB, rows []*types.VersionMaterial) ([]*types.VersionMaterial, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.VersionMaterial{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *versionRepo) AddSuppliers(ctx context.Context, tx *gorm.DB, rows []*types.VersionSupplier) ([]*types.VersionSupplier, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.VersionSupplier{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *versionRepo) AddCertifications(ctx context.Context, tx *gorm.DB, rows []*types.VersionCertification) ([]*types.VersionCertification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.VersionCertification{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Remove* deletes are scoped to the version so a line ID from another
// product cannot be removed by guessing; callers translate 0 rows to a
// not-found.
func (r *versionRepo) RemoveMaterial(ctx context.Context, tx *gorm.DB, versionID, lineID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if versionID == uuid.Nil || lineID == uuid.Nil {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND version_id = ?", lineID, versionID).
		Delete(&types.VersionMaterial{})
	return res.RowsAffected, res.Error
}

func (r *versionRepo) RemoveSupplier(ctx context.Context, tx *gorm.DB, versionID, lineID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if versionID == uuid.Nil || lineID == uuid.Nil {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND version_id = ?", lineID, versionID).
		Delete(&types.VersionSupplier{})
	return res.RowsAffected, res.Error
}

func (r *versionRepo) RemoveCertification(ctx context.Context, tx *gorm.DB, versionID, lineID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if versionID == uuid.Nil || lineID == uuid.Nil {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND version_id = ?", lineID, versionID).
		Delete(&types.VersionCertification{})
	return res.RowsAffected, res.Error
}

// VersionLineCounts tallies one version's child rows. Dashboard completion
// meters read these in bulk instead of loading the lines.
type VersionLineCounts struct {
	Materials      int64
	Suppliers      int64
	Certifications int64
}

func (r *versionRepo) CountLinesByVersions(ctx context.Context, tx *gorm.DB, versionIDs []uuid.UUID) (map[uuid.UUID]VersionLineCounts, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	out := make(map[uuid.UUID]VersionLineCounts, len(versionIDs))
	if len(versionIDs) == 0 {
		return out, nil
	}

	type grouped struct {
		VersionID uuid.UUID `gorm:"column:version_id"`
		N         int64     `gorm:"column:n"`
	}
	tally := func(model any, assign func(c *VersionLineCounts, n int64)) error {
		var rows []grouped
		if err := transaction.WithContext(ctx).
			Model(model).
			Select("version_id, COUNT(*) AS n").
			Where("version_id IN ?", versionIDs).
			Group("version_id").
			Find(&rows).Error; err != nil {
			return err
		}
		for _, g := range rows {
			c := out[g.VersionID]
			assign(&c, g.N)
			out[g.VersionID] = c
		}
		return nil
	}

	if err := tally(&types.VersionMaterial{}, func(c *VersionLineCounts, n int64) { c.Materials = n }); err != nil {
		return nil, err
	}
	if err := tally(&types.VersionSupplier{}, func(c *VersionLineCounts, n int64) { c.Suppliers = n }); err != nil {
		return nil, err
	}
	if err := tally(&types.VersionCertification{}, func(c *VersionLineCounts, n int64) { c.Certifications = n }); err != nil {
		return nil, err
	}
	return out, nil
}

// Reference lookups backing the library delete policies. Material,
// Certification and MaterialDefinition deletes are refused while any line
// still points at them; CertificateDefinition deletes instead null the
// pointing links, and the returned link IDs end up in the audit record.

func (r *versionRepo) CountMaterialReferences(ctx context.Context, tx *gorm.DB, materialID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.VersionMaterial{}).
		Where("material_id = ?", materialID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *versionRepo) CountMaterialDefinitionReferences(ctx context.Context, tx *gorm.DB, definitionID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.VersionMaterial{}).
		Where("source_definition_id = ?", definitionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *versionRepo) CountCertificationReferences(ctx context.Context, tx *gorm.DB, certificationID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.VersionCertification{}).
		Where("certification_id = ?", certificationID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *versionRepo) ListCertificateDefinitionLinkIDs(ctx context.Context, tx *gorm.DB, definitionID uuid.UUID) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var ids []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.VersionCertification{}).
		Where("certificate_definition_id = ?", definitionID).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *versionRepo) NullifyCertificateDefinitionLinks(ctx context.Context, tx *gorm.DB, definitionID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.VersionCertification{}).
		Where("certificate_definition_id = ?", definitionID).
		Update("certificate_definition_id", nil)
	return res.RowsAffected, res.Error
}
