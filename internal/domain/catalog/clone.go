package catalog

import (
	"time"

	"github.com/google/uuid"
)

// VersionSnapshot bundles a version with its child collections, the unit the
// review workflow clones and the passport page renders.
type VersionSnapshot struct {
	Version        *ProductVersion
	Materials      []*VersionMaterial
	Suppliers      []*VersionSupplier
	Certifications []*VersionCertification
}

// CloneVersion deep-copies a snapshot into a fresh WORKING_DRAFT with
// revision+1 and parent_version_id pointing back at the source. All rows get
// new IDs; the source rows are left untouched. Callers persist the result
// and repoint the owning request inside the same transaction.
// NewVersionRound deep-copies the version that closed the previous round into
// revision 1 of the given sequence. The carried-over data becomes the starting
// draft when a brand reopens data collection on a finished product.
func NewVersionRound(src VersionSnapshot, sequence int) VersionSnapshot {
	out := CloneVersion(src)
	if out.Version == nil {
		return out
	}
	out.Version.VersionSequence = sequence
	out.Version.Revision = 1
	return out
}

func CloneVersion(src VersionSnapshot) VersionSnapshot {
	if src.Version == nil {
		return VersionSnapshot{}
	}

	v := *src.Version
	v.ID = uuid.New()
	v.Revision = src.Version.Revision + 1
	v.Status = VersionWorkingDraft
	parent := src.Version.ID
	v.ParentVersionID = &parent
	v.Product = nil
	v.CreatedAt = time.Time{}
	v.UpdatedAt = time.Time{}

	out := VersionSnapshot{Version: &v}

	out.Materials = make([]*VersionMaterial, 0, len(src.Materials))
	for _, m := range src.Materials {
		if m == nil {
			continue
		}
		c := *m
		c.ID = uuid.New()
		c.VersionID = v.ID
		c.Version = nil
		c.CreatedAt = time.Time{}
		c.UpdatedAt = time.Time{}
		out.Materials = append(out.Materials, &c)
	}

	out.Suppliers = make([]*VersionSupplier, 0, len(src.Suppliers))
	for _, s := range src.Suppliers {
		if s == nil {
			continue
		}
		c := *s
		c.ID = uuid.New()
		c.VersionID = v.ID
		c.Version = nil
		c.CreatedAt = time.Time{}
		c.UpdatedAt = time.Time{}
		out.Suppliers = append(out.Suppliers, &c)
	}

	out.Certifications = make([]*VersionCertification, 0, len(src.Certifications))
	for _, cert := range src.Certifications {
		if cert == nil {
			continue
		}
		c := *cert
		c.ID = uuid.New()
		c.VersionID = v.ID
		c.Version = nil
		c.CreatedAt = time.Time{}
		c.UpdatedAt = time.Time{}
		out.Certifications = append(out.Certifications, &c)
	}

	return out
}
