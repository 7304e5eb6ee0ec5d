// Package uploads stores cover images on the local filesystem.
package uploads

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Disk implements storage.Blobs under a root directory. Objects are served
// by the HTTP API below baseURL.
type Disk struct {
	root    string
	baseURL string
}

// NewDisk creates the root directory if needed.
func NewDisk(root, baseURL string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root is the directory objects are written to.
func (d *Disk) Root() string {
	return d.root
}

// Upload writes r to path, replacing any existing file.
func (d *Disk) Upload(ctx context.Context, path, contentType string, r io.Reader) error {
	target, err := d.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("store object: %w", err)
	}
	return nil
}

// PublicURL returns the address the object is served at.
func (d *Disk) PublicURL(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return d.baseURL + "/" + strings.Join(parts, "/")
}

// resolve keeps path inside root.
func (d *Disk) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(path))
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("invalid object path %q", path)
	}
	return filepath.Join(d.root, clean), nil
}
