package identity

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "simple", in: "Acme Apparel", want: "acme-apparel"},
		{name: "punctuation collapsed", in: "Nordic Textiles, GmbH & Co.", want: "nordic-textiles-gmbh-co"},
		{name: "leading and trailing junk", in: "  --Thread Mill--  ", want: "thread-mill"},
		{name: "unicode stripped", in: "Größe Stoffe", want: "gr-e-stoffe"},
		{name: "digits survive", in: "Mill 42", want: "mill-42"},
		{name: "empty falls back", in: "!!!", want: "tenant"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := Slugify(tc.in); got != tc.want {
				t.Fatalf("Slugify(%q): got=%q want=%q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSlugifyBoundsLength(t *testing.T) {
	in := strings.Repeat("verylongcompanyname", 20)
	got := Slugify(in)
	if len(got) > maxSlugLen {
		t.Fatalf("slug exceeds cap: len=%d", len(got))
	}
	if strings.HasSuffix(got, "-") || strings.HasPrefix(got, "-") {
		t.Fatalf("slug has dangling hyphen: %q", got)
	}
}

func TestTenantTypeCanSupply(t *testing.T) {
	if !TenantTypeSupplier.CanSupply() {
		t.Fatalf("SUPPLIER should be able to supply")
	}
	if !TenantTypeHybrid.CanSupply() {
		t.Fatalf("HYBRID should be able to supply")
	}
	if TenantTypeBrand.CanSupply() {
		t.Fatalf("BRAND should not be able to supply")
	}
}
