package assetstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalPut(t *testing.T) {
	dir := t.TempDir()
	s := NewLocal(dir, "")

	url, err := s.Put(context.Background(), "camp-1/asset-abc", []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(url, "file://") {
		t.Errorf("expected file:// URL, got %q", url)
	}
	if !strings.HasSuffix(url, ".png") {
		t.Errorf("content type should determine the extension, got %q", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "camp-1", "asset-abc.png"))
	if err != nil {
		t.Fatalf("asset file not written: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("asset bytes mismatch: %q", data)
	}
}

func TestLocalPut_BaseURL(t *testing.T) {
	s := NewLocal(t.TempDir(), "https://cdn.example/assets")

	url, err := s.Put(context.Background(), "camp-1/a.png", []byte("x"), "image/png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://cdn.example/assets/camp-1/a.png" {
		t.Errorf("expected base-URL-joined URL, got %q", url)
	}
}

func TestExtFor(t *testing.T) {
	tests := []struct {
		contentType string
		expected    string
	}{
		{"image/png", ".png"},
		{"image/jpeg", ".jpg"},
		{"video/mp4", ".mp4"},
		{"application/octet-stream", ".bin"},
	}
	for _, tt := range tests {
		if got := extFor(tt.contentType); got != tt.expected {
			t.Errorf("extFor(%q) = %q, expected %q", tt.contentType, got, tt.expected)
		}
	}
}
