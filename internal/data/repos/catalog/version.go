package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/platform/logger"
)

type VersionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, versions []*types.ProductVersion) ([]*types.ProductVersion, error)
	GetByID(ctx context.Context, tx *gorm.DB, versionID uuid.UUID) (*types.ProductVersion, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, versionIDs []uuid.UUID) ([]*types.ProductVersion, error)
	GetLatestByProductID(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*types.ProductVersion, error)
	ListByProductID(ctx context.Context, tx *gorm.DB, productID uuid.UUID) ([]*types.ProductVersion, error)
	NextSequence(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (int, error)
	Save(ctx context.Context, tx *gorm.DB, version *types.ProductVersion) error

	GetSnapshot(ctx context.Context, tx *gorm.DB, versionID uuid.UUID) (*types.VersionSnapshot, error)
	InsertSnapshot(ctx context.Context, tx *gorm.DB, snap *types.VersionSnapshot) error

	ReplaceMaterials(ctx context.Context, tx *gorm.DB, versionID uuid.UUID, rows []*types.VersionMaterial) error
	ReplaceSuppliers(ctx context.Context, tx *gorm.DB, versionID uuid.UUID, rows []*types.VersionSupplier) error
	ReplaceCertifications(ctx context.Context, tx *gorm.DB, versionID uuid.UUID, rows []*types.VersionCertification) error
	ListMaterials(ctx context.Context, tx *gorm.DB, versionID uuid.UUID) ([]*types.VersionMaterial, error)
	ListSuppliers(ctx context.Context, tx *gorm.DB, versionID uuid.UUID) ([]*types.VersionSupplier, error)
	ListCertifications(ctx context.Context, tx *gorm.DB, versionID uuid.UUID) ([]*types.VersionCertification, error)
	AddMaterials(ctx context.Context, tx *gorm.DB, rows []*types.VersionMaterial) ([]*types.VersionMaterial, error)
	AddSuppliers(ctx context.Context, tx *gorm.DB, rows []*types.VersionSupplier) ([]*types.VersionSupplier, error)
	AddCertifications(ctx context.Context, tx *gorm.DB, rows []*types.VersionCertification) ([]*types.VersionCertification, error)
	RemoveMaterial(ctx context.Context, tx *gorm.DB, versionID, lineID uuid.UUID) (int64, error)
	RemoveSupplier(ctx context.Context, tx *gorm.DB, versionID, lineID uuid.UUID) (int64, error)
	RemoveCertification(ctx context.Context, tx *gorm.DB, versionID, lineID uuid.UUID) (int64, error)
	CountLinesByVersions(ctx context.Context, tx *gorm.DB, versionIDs []uuid.UUID) (map[uuid.UUID]VersionLineCounts, error)

	CountMaterialReferences(ctx context.Context, tx *gorm.DB, materialID uuid.UUID) (int64, error)
	CountMaterialDefinitionReferences(ctx context.Context, tx *gorm.DB, definitionID uuid.UUID) (int64, error)
	CountCertificationReferences(ctx context.Context, tx *gorm.DB, certificationID uuid.UUID) (int64, error)
	ListCertificateDefinitionLinkIDs(ctx context.Context, tx *gorm.DB, definitionID uuid.UUID) ([]uuid.UUID, error)
	NullifyCertificateDefinitionLinks(ctx context.Context, tx *gorm.DB, definitionID uuid.UUID) (int64, error)
}

type versionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVersionRepo(db *gorm.DB, baseLog *logger.Logger) VersionRepo {
	return &versionRepo{db: db, log: baseLog.With("repo", "VersionRepo")}
}

func (r *versionRepo) Create(ctx context.Context, tx *gorm.DB, versions []*types.ProductVersion) ([]*types.ProductVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(versions) == 0 {
		return []*types.ProductVersion{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

func (r *versionRepo) GetByID(ctx context.Context, tx *gorm.DB, versionID uuid.UUID) (*types.ProductVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if versionID == uuid.Nil {
		return nil, nil
	}

	var row types.ProductVersion
	err := transaction.WithContext(ctx).
		Where("id = ?", versionID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *versionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, versionIDs []uuid.UUID) ([]*types.ProductVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(versionIDs) == 0 {
		return []*types.ProductVersion{}, nil
	}

	var results []*types.ProductVersion
	if err := transaction.WithContext(ctx).
		Where("id IN ?", versionIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetLatestByProductID returns the newest version line: highest sequence,
// then highest revision within it.
func (r *versionRepo) GetLatestByProductID(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*types.ProductVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if productID == uuid.Nil {
		return nil, nil
	}

	var row types.ProductVersion
	err := transaction.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("version_sequence DESC").
		Order("revision DESC").
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *versionRepo) ListByProductID(ctx context.Context, tx *gorm.DB, productID uuid.UUID) ([]*types.ProductVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if productID == uuid.Nil {
		return nil, nil
	}

	var results []*types.ProductVersion
	if err := transaction.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("version_sequence DESC").
		Order("revision DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *versionRepo) NextSequence(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var max *int
	if err := transaction.WithContext(ctx).
		Model(&types.ProductVersion{}).
		Where("product_id = ?", productID).
		Select("MAX(version_sequence)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 1, nil
	}
	return *max + 1, nil
}

func (r *versionRepo) Save(ctx context.Context, tx *gorm.DB, version *types.ProductVersion) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if version == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(version).Error
}

func (r *versionRepo) GetSnapshot(ctx context.Context, tx *gorm.DB, versionID uuid.UUID) (*types.VersionSnapshot, error) {
	version, err := r.GetByID(ctx, tx, versionID)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, nil
	}

	materials, err := r.ListMaterials(ctx, tx, versionID)
	if err != nil {
		return nil, err
	}
	suppliers, err := r.ListSuppliers(ctx, tx, versionID)
	if err != nil {
		return nil, err
	}
	certifications, err := r.ListCertifications(ctx, tx, versionID)
	if err != nil {
		return nil, err
	}

	return &types.VersionSnapshot{
		Version:        version,
		Materials:      materials,
		Suppliers:      suppliers,
		Certifications: certifications,
	}, nil
}

// InsertSnapshot persists a version together with its child rows, the write
// half of the clone step during review rejection.
func (r *versionRepo) InsertSnapshot(ctx context.Context, tx *gorm.DB, snap *types.VersionSnapshot) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if snap == nil || snap.Version == nil {
		return nil
	}

	if err := transaction.WithContext(ctx).Create(snap.Version).Error; err != nil {
		return err
	}
	if len(snap.Materials) > 0 {
		if err := transaction.WithContext(ctx).Create(&snap.Materials).Error; err != nil {
			return err
		}
	}
	if len(snap.Suppliers) > 0 {
		if err := transaction.WithContext(ctx).Create(&snap.Suppliers).Error; err != nil {
			return err
		}
	}
	if len(snap.Certifications) > 0 {
		if err := transaction.WithContext(ctx).Create(&snap.Certifications).Error; err != nil {
			return err
		}
	}
	return nil
}
