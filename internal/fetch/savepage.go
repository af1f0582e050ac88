package fetch

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SavePage writes a fetched page under dir with a filename derived from the
// URL's last path segment, and returns the saved path. An existing file is
// never overwritten; a timestamp suffix keeps repeats apart.
func SavePage(dir, rawURL, body string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create pages dir: %w", err)
	}
	target := uniquePath(dir, suggestFilename(rawURL))
	if err := os.WriteFile(target, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write page: %w", err)
	}
	return target, nil
}

// suggestFilename slugs the last non-empty path segment, keeping
// alphanumerics, dash, underscore, and dot. Listing URLs usually end with a
// dotted numeric id, which stays readable this way.
func suggestFilename(rawURL string) string {
	slug := ""
	if u, err := url.Parse(rawURL); err == nil {
		path := strings.TrimRight(u.Path, "/")
		if i := strings.LastIndexByte(path, '/'); i >= 0 {
			slug = path[i+1:]
		} else {
			slug = path
		}
	}
	var b strings.Builder
	for _, r := range slug {
		if r == '-' || r == '_' || r == '.' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" {
		name = "listing"
	}
	return name + ".html"
}

func uniquePath(dir, filename string) string {
	target := filepath.Join(dir, filename)
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return target
	}
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	stamp := time.Now().Format("20060102-150405")
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s", stem, stamp, ext))
}
