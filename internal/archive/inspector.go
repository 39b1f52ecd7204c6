// Package archive opens uploaded brushset archives and extracts them into
// private scratch directories.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/proconverter/proconverter-lemons/internal/domain"
)

// Inspector validates and extracts uploaded archives.
type Inspector struct {
	workDir    string
	maxEntries int
}

func NewInspector(workDir string, maxEntries int) *Inspector {
	return &Inspector{workDir: workDir, maxEntries: maxEntries}
}

// Inspect opens the archive at path, rejects it if it is not a well-formed
// zip container or carries more entries than the bomb bound, and extracts it
// into a fresh uniquely named scratch directory. Ownership of the returned
// directory passes to the caller, who must remove it.
func (i *Inspector) Inspect(path string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCorruptArchive, err)
	}
	defer reader.Close()

	// Entry bound is checked before anything touches the disk.
	if len(reader.File) > i.maxEntries {
		return "", domain.ErrTooManyEntries
	}

	root := filepath.Join(i.workDir, "extract_"+uuid.NewString())
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}

	for _, entry := range reader.File {
		if err := extractEntry(root, entry); err != nil {
			os.RemoveAll(root)
			return "", err
		}
	}

	return root, nil
}

func extractEntry(root string, entry *zip.File) error {
	// Reject entry names that would escape the scratch directory.
	dest := filepath.Join(root, filepath.FromSlash(entry.Name))
	if !strings.HasPrefix(dest, filepath.Clean(root)+string(os.PathSeparator)) {
		return fmt.Errorf("%w: entry %q escapes archive root", domain.ErrCorruptArchive, entry.Name)
	}

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create entry directory: %w", err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCorruptArchive, err)
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create extracted file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCorruptArchive, err)
	}
	return nil
}
