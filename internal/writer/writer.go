package writer

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"github.com/go-scripts/cookiecode-sync/internal/types"
)

// FileWriter writes diagnostic artifacts into one output directory
type FileWriter struct {
	outputDir string
}

// New creates a new FileWriter, creating outputDir if needed
func New(outputDir string) (*FileWriter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileWriter{outputDir: outputDir}, nil
}

// Dir returns the output directory
func (w *FileWriter) Dir() string {
	return w.outputDir
}

// WriteArtifact writes data to name inside the output directory and returns
// the path written. Existing files are overwritten.
func (w *FileWriter) WriteArtifact(name string, data []byte) (string, error) {
	p := filepath.Join(w.outputDir, filepath.Base(name))
	if err := os.WriteFile(p, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return p, nil
}

var unsafeID = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// SafeID derives a filename-safe identifier from the last path segment of
// an edit URL, e.g. ".../customer-edit/42" -> "42".
func SafeID(rawURL string) string {
	segment := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		segment = path.Base(u.Path)
	}
	id := unsafeID.ReplaceAllString(segment, "")
	if id == "" {
		return "unknown"
	}
	return id
}

// ReadURLCache loads a URL cache file. A missing file yields an error
// matching os.ErrNotExist.
func ReadURLCache(p string) (types.URLCache, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return types.URLCache{}, err
	}

	var cache types.URLCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return types.URLCache{}, fmt.Errorf("failed to decode url cache %s: %w", p, err)
	}
	return cache, nil
}

// WriteURLCache writes the cache as indented JSON, creating parent
// directories as needed.
func WriteURLCache(p string, cache types.URLCache) error {
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode url cache: %w", err)
	}

	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("failed to write url cache: %w", err)
	}
	return nil
}
