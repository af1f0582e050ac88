package fetch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSavePage_SlugFromLastSegment(t *testing.T) {
	dir := t.TempDir()
	path, err := SavePage(dir, "https://example.invalid/s-anzeige/mercedes-e200/2701234567-216-3331", "<html></html>")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Base(path) != "2701234567-216-3331.html" {
		t.Fatalf("unexpected filename: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "<html></html>" {
		t.Fatalf("body not written: %v %q", err, data)
	}
}

func TestSavePage_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	p1, err := SavePage(dir, "https://example.invalid/a/listing", "one")
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	p2, err := SavePage(dir, "https://example.invalid/a/listing", "two")
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if p1 == p2 {
		t.Fatalf("expected a distinct path for the repeat save")
	}
	data, _ := os.ReadFile(p1)
	if string(data) != "one" {
		t.Fatalf("original file clobbered: %q", data)
	}
}

func TestSuggestFilename_SanitizesAndFallsBack(t *testing.T) {
	cases := []struct {
		url, want string
	}{
		{"https://example.invalid/a/schönes-auto!-123", "schnes-auto-123.html"},
		{"https://example.invalid/", "listing.html"},
		{"not a url at all %", "listing.html"},
	}
	for _, tc := range cases {
		if got := suggestFilename(tc.url); got != tc.want {
			t.Fatalf("%q: got %q want %q", tc.url, got, tc.want)
		}
	}
}

func TestSavePage_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := SavePage(file, "https://example.invalid/a", "body"); err == nil {
		t.Fatalf("expected error when dir path is a file")
	}
	if err := func() error {
		_, err := SavePage(filepath.Join(file, "nested"), "https://example.invalid/a", "body")
		return err
	}(); err == nil || !strings.Contains(err.Error(), "create pages dir") {
		t.Fatalf("expected create dir error, got %v", err)
	}
}
