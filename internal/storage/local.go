// Package storage keeps the files of each job in a directory of its own:
// the uploaded document, the preview and the rendered exports.
package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultInputName is used when an upload arrives without a usable name.
const DefaultInputName = "input.pdf"

// PreviewFile is the name of the preview document in a job directory.
const PreviewFile = "preview.json"

// Local stores job files below a root directory.
type Local struct {
	root string
}

// NewLocal creates root if needed and returns a store rooted at its
// absolute path.
func NewLocal(root string) (*Local, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving storage root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage root %q: %w", root, err)
	}
	return &Local{root: root}, nil
}

// JobDir returns the directory of jobID, creating it if needed.
func (l *Local) JobDir(jobID string) (string, error) {
	if jobID == "" || strings.ContainsAny(jobID, `/\`) || jobID == "." || jobID == ".." {
		return "", fmt.Errorf("invalid job id %q", jobID)
	}
	dir := filepath.Join(l.root, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating job directory: %w", err)
	}
	return dir, nil
}

// SafeFileName strips path separators from an uploaded file name.
func SafeFileName(name string) string {
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." {
		return DefaultInputName
	}
	return name
}

// SaveInput writes the uploaded document into the job directory and returns
// its path.
func (l *Local) SaveInput(jobID, fileName string, r io.Reader) (string, error) {
	dir, err := l.JobDir(jobID)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, SafeFileName(fileName))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating input file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("writing input file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing input file: %w", err)
	}
	return path, nil
}

type previewDoc struct {
	Rows []map[string]any `json:"rows"`
}

// SavePreview writes rows as {"rows": [...]} and returns the file path.
func (l *Local) SavePreview(jobID string, rows []map[string]any) (string, error) {
	dir, err := l.JobDir(jobID)
	if err != nil {
		return "", err
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	data, err := json.Marshal(previewDoc{Rows: rows})
	if err != nil {
		return "", fmt.Errorf("encoding preview: %w", err)
	}
	path := filepath.Join(dir, PreviewFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing preview: %w", err)
	}
	return path, nil
}

// ReadPreview loads the rows written by SavePreview.
func (l *Local) ReadPreview(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading preview: %w", err)
	}
	var doc previewDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding preview: %w", err)
	}
	return doc.Rows, nil
}

// OutputPath returns the path of the export with the given extension.
func (l *Local) OutputPath(jobID, ext string) (string, error) {
	dir, err := l.JobDir(jobID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "output."+strings.TrimPrefix(ext, ".")), nil
}

// Exists reports whether path names an existing regular file.
func (l *Local) Exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// ExportFileName builds the download name of an export, for example
// BBVA_DEBITO_2024-01-01_2024-01-31.xlsx. Missing dates read "undated".
func ExportFileName(bank, productType, from, to, ext string) string {
	part := func(s, fallback string) string {
		s = strings.TrimSpace(s)
		if s == "" {
			return fallback
		}
		return strings.ReplaceAll(SafeFileName(s), " ", "_")
	}
	return fmt.Sprintf("%s_%s_%s_%s.%s",
		strings.ToUpper(part(bank, "UNKNOWN")),
		strings.ToUpper(part(productType, "UNKNOWN")),
		part(from, "undated"),
		part(to, "undated"),
		strings.TrimPrefix(ext, "."),
	)
}
