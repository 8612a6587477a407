package worker

import (
	"strings"
	"testing"
)

func TestPhotoObjectKey(t *testing.T) {
	cases := []struct {
		sessionID string
		photoURL  string
		want      string
	}{
		{"sess-1", "/uploads/abc.jpg", "uploads/sess-1/abc.jpg"},
		{"sess-1", "abc.png", "uploads/sess-1/abc.png"},
	}
	for _, tc := range cases {
		if got := photoObjectKey(tc.sessionID, tc.photoURL); got != tc.want {
			t.Errorf("photoObjectKey(%q, %q) = %q, want %q", tc.sessionID, tc.photoURL, got, tc.want)
		}
	}
}

func TestPhotoDataURI(t *testing.T) {
	uri := photoDataURI("uploads/sess-1/photo.png", []byte{0x89, 0x50})
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Fatalf("unexpected prefix: %q", uri)
	}
	if !strings.HasSuffix(uri, "iVA=") {
		t.Fatalf("unexpected payload: %q", uri)
	}

	uri = photoDataURI("uploads/sess-1/photo.bin", []byte{1})
	if !strings.HasPrefix(uri, "data:application/octet-stream;base64,") {
		t.Fatalf("unknown extension fallback: %q", uri)
	}
}
