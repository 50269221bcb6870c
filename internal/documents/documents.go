// Package documents stores the source files behind invoices. An invoice's
// FileURL holds the object name returned by Save.
package documents

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"pivik/internal/core"
)

type Store interface {
	// Save writes the content under a fresh unique name and returns it.
	Save(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error)
	// Open returns the stored content; core.ErrNotFound when absent.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

// ObjectName builds "<uuid>_<base filename>" so uploads with the same
// original name never collide.
func ObjectName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	base = strings.ReplaceAll(base, "..", "_")
	if base == "." || base == "/" || base == "" {
		base = "document"
	}
	return uuid.NewString() + "_" + base
}

// ValidateName rejects names that could escape the storage root.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: invalid document name %q", core.ErrValidation, name)
	}
	return nil
}
