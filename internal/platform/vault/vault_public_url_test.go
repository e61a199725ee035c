package vault

import (
	"strings"
	"testing"
)

func TestGetPublicURLGCSDefault(t *testing.T) {
	v := &fileVault{
		mediaBucket: bucketConfig{name: "media-bucket"},
	}

	got := v.GetPublicURL(CategoryMedia, "products/p1/cover.png")
	want := "https://storage.googleapis.com/media-bucket/products/p1/cover.png"
	if got != want {
		t.Fatalf("GetPublicURL: want=%q got=%q", want, got)
	}
}

func TestGetPublicURLUsesCDNDomain(t *testing.T) {
	v := &fileVault{
		docBucket: bucketConfig{
			name:      "document-bucket",
			cdnDomain: "cdn.example.com",
		},
	}

	got := v.GetPublicURL(CategoryDocument, "certificates/file.pdf")
	want := "https://cdn.example.com/certificates/file.pdf"
	if got != want {
		t.Fatalf("GetPublicURL: want=%q got=%q", want, got)
	}
}

func TestGetPublicURLUsesPublicBaseURL(t *testing.T) {
	v := &fileVault{
		publicBaseURL: "http://localhost:4443",
		docBucket: bucketConfig{
			name: "document-bucket",
		},
	}

	got := v.GetPublicURL(CategoryDocument, "/certificates/file.pdf")
	want := "http://localhost:4443/document-bucket/certificates/file.pdf"
	if got != want {
		t.Fatalf("GetPublicURL: want=%q got=%q", want, got)
	}
}

func TestGetPublicURLUsesEmulatorMediaEndpoint(t *testing.T) {
	v := &fileVault{
		emulatorHost:  "http://fake-gcs:4443",
		publicBaseURL: "http://localhost:4443",
		mediaBucket: bucketConfig{
			name: "media-bucket",
		},
	}

	got := v.GetPublicURL(CategoryMedia, "products/p1/cover.png")
	want := "http://localhost:4443/storage/v1/b/media-bucket/o/products%2Fp1%2Fcover.png?alt=media"
	if got != want {
		t.Fatalf("GetPublicURL: want=%q got=%q", want, got)
	}
}

func TestGetPublicURLUsesEmulatorHostWhenPublicBaseMissing(t *testing.T) {
	v := &fileVault{
		emulatorHost: "http://fake-gcs:4443",
		labelBucket: bucketConfig{
			name: "label-bucket",
		},
	}

	got := v.GetPublicURL(CategoryLabel, "/labels/pp-1.png")
	want := "http://fake-gcs:4443/storage/v1/b/label-bucket/o/labels%2Fpp-1.png?alt=media"
	if got != want {
		t.Fatalf("GetPublicURL: want=%q got=%q", want, got)
	}
}

func TestEmulatorPublicURLEscapesKeys(t *testing.T) {
	v := &fileVault{
		emulatorHost:  "http://fake-gcs:4443",
		publicBaseURL: "http://localhost:4443",
		mediaBucket:   bucketConfig{name: "media-bucket"},
		labelBucket:   bucketConfig{name: "label-bucket"},
	}

	cases := []struct {
		name       string
		category   Category
		key        string
		wantBucket string
	}{
		{
			name:       "media png",
			category:   CategoryMedia,
			key:        "products/p1/gallery/1.png",
			wantBucket: "media-bucket",
		},
		{
			name:       "label png",
			category:   CategoryLabel,
			key:        "labels/passports/pp-1.png",
			wantBucket: "label-bucket",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			publicURL := v.GetPublicURL(tc.category, tc.key)
			if !strings.HasPrefix(publicURL, "http://localhost:4443/storage/v1/b/"+tc.wantBucket+"/o/") {
				t.Fatalf("publicURL prefix mismatch for %s: %s", tc.name, publicURL)
			}
			if !strings.Contains(publicURL, "alt=media") {
				t.Fatalf("publicURL should include alt=media for renderable object endpoint: %s", publicURL)
			}
			if !strings.Contains(publicURL, strings.ReplaceAll(tc.key, "/", "%2F")) {
				t.Fatalf("publicURL should escape object key path: %s", publicURL)
			}
		})
	}
}

func TestGetPublicURLUnknownCategoryReturnsKey(t *testing.T) {
	v := &fileVault{}

	got := v.GetPublicURL(Category("bogus"), "some/key.png")
	if got != "some/key.png" {
		t.Fatalf("GetPublicURL: want key passthrough got=%q", got)
	}
}
