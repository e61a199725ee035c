package catalog

import (
	"testing"

	"github.com/google/uuid"
)

func draftSnapshot(t *testing.T) VersionSnapshot {
	t.Helper()
	cf := 12.5
	matID := uuid.New()
	ver := &ProductVersion{
		ID:                     uuid.New(),
		ProductID:              uuid.New(),
		VersionSequence:        2,
		Revision:               3,
		Status:                 VersionSubmitted,
		ProductName:            "Organic Tee",
		Category:               "T-Shirts",
		Description:            "100% organic cotton",
		ManufacturingCountry:   "PT",
		TotalCarbonFootprintKG: &cf,
		RecyclabilityClass:     "A",
	}
	return VersionSnapshot{
		Version: ver,
		Materials: []*VersionMaterial{
			{ID: uuid.New(), VersionID: ver.ID, MaterialID: &matID, Percentage: 80, OriginCountry: "IN"},
			{ID: uuid.New(), VersionID: ver.ID, UnlistedMaterialName: "Mystery blend", Percentage: 20, OriginCountry: "TR"},
		},
		Suppliers: []*VersionSupplier{
			{ID: uuid.New(), VersionID: ver.ID, Role: "SPINNING", UnlistedSupplierName: "Local spinner"},
		},
		Certifications: []*VersionCertification{
			{ID: uuid.New(), VersionID: ver.ID, DocumentURL: "https://vault/doc.pdf", ContentType: "application/pdf"},
		},
	}
}

func TestCloneVersionCreatesNextRevisionDraft(t *testing.T) {
	src := draftSnapshot(t)
	got := CloneVersion(src)

	if got.Version == nil {
		t.Fatalf("clone produced no version")
	}
	if got.Version.ID == src.Version.ID {
		t.Fatalf("clone must get a fresh id")
	}
	if got.Version.Revision != src.Version.Revision+1 {
		t.Fatalf("revision: got=%d want=%d", got.Version.Revision, src.Version.Revision+1)
	}
	if got.Version.VersionSequence != src.Version.VersionSequence {
		t.Fatalf("sequence must carry over: got=%d", got.Version.VersionSequence)
	}
	if got.Version.Status != VersionWorkingDraft {
		t.Fatalf("clone status: got=%s", got.Version.Status)
	}
	if got.Version.ParentVersionID == nil || *got.Version.ParentVersionID != src.Version.ID {
		t.Fatalf("parent pointer: got=%v want=%s", got.Version.ParentVersionID, src.Version.ID)
	}
	if got.Version.ProductName != "Organic Tee" || got.Version.ManufacturingCountry != "PT" {
		t.Fatalf("scalars not carried: %+v", got.Version)
	}
	if got.Version.TotalCarbonFootprintKG == nil || *got.Version.TotalCarbonFootprintKG != 12.5 {
		t.Fatalf("impact scalar not carried")
	}
}

func TestCloneVersionDeepCopiesChildren(t *testing.T) {
	src := draftSnapshot(t)
	got := CloneVersion(src)

	if len(got.Materials) != 2 || len(got.Suppliers) != 1 || len(got.Certifications) != 1 {
		t.Fatalf("child counts: m=%d s=%d c=%d", len(got.Materials), len(got.Suppliers), len(got.Certifications))
	}
	for i, m := range got.Materials {
		if m.ID == src.Materials[i].ID {
			t.Fatalf("material %d kept its id", i)
		}
		if m.VersionID != got.Version.ID {
			t.Fatalf("material %d not repointed at clone", i)
		}
	}
	if got.Materials[0].Percentage != 80 || got.Materials[1].UnlistedMaterialName != "Mystery blend" {
		t.Fatalf("material fields not carried")
	}
	if got.Suppliers[0].Role != "SPINNING" || got.Suppliers[0].VersionID != got.Version.ID {
		t.Fatalf("supplier line not carried/repointed")
	}
	if got.Certifications[0].DocumentURL != "https://vault/doc.pdf" {
		t.Fatalf("certification line not carried")
	}

	// The source must be untouched.
	if src.Version.Status != VersionSubmitted || src.Version.Revision != 3 {
		t.Fatalf("source version mutated: %+v", src.Version)
	}
	if src.Materials[0].VersionID != src.Version.ID {
		t.Fatalf("source material repointed")
	}
}

func TestNewVersionRoundStartsFreshSequence(t *testing.T) {
	src := draftSnapshot(t)
	got := NewVersionRound(src, src.Version.VersionSequence+1)

	if got.Version == nil {
		t.Fatalf("round produced no version")
	}
	if got.Version.VersionSequence != 3 {
		t.Fatalf("sequence: got=%d want=3", got.Version.VersionSequence)
	}
	if got.Version.Revision != 1 {
		t.Fatalf("a new round restarts at revision 1, got=%d", got.Version.Revision)
	}
	if got.Version.Status != VersionWorkingDraft {
		t.Fatalf("round status: got=%s", got.Version.Status)
	}
	if got.Version.ParentVersionID == nil || *got.Version.ParentVersionID != src.Version.ID {
		t.Fatalf("round must point back at the closing version")
	}
	if len(got.Materials) != 2 || got.Materials[0].Percentage != 80 {
		t.Fatalf("round must carry the previous round's data forward")
	}
	if src.Version.VersionSequence != 2 || src.Version.Revision != 3 {
		t.Fatalf("source version mutated: %+v", src.Version)
	}
}

func TestCloneVersionNilSource(t *testing.T) {
	got := CloneVersion(VersionSnapshot{})
	if got.Version != nil || got.Materials != nil {
		t.Fatalf("nil source should clone to empty snapshot")
	}
}

func TestVersionStatusEditable(t *testing.T) {
	if !VersionWorkingDraft.Editable() {
		t.Fatalf("WORKING_DRAFT must be editable")
	}
	for _, s := range []VersionStatus{VersionSubmitted, VersionApproved, VersionRevisionRequired, VersionRejected, VersionCancelled} {
		if s.Editable() {
			t.Fatalf("%s must not be editable", s)
		}
	}
}
