// Package packager serializes a finalized session into a single downloadable
// zip archive and releases the session's scratch resources.
package packager

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/flate"

	"github.com/proconverter/proconverter-lemons/internal/domain"
)

// Packager writes output archives into outputDir, which outlives session
// scratch cleanup.
type Packager struct {
	outputDir string
}

func NewPackager(outputDir string) (*Packager, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Packager{outputDir: outputDir}, nil
}

// Package writes the session's artifacts into one zip, ordered
// lexicographically by stored name (the committed determinism contract), and
// removes the session's scratch directory afterwards. Entry names have the
// accumulator's file-index prefix stripped; sequence numbers keep them
// collision-free. Returns the archive path; the archive is the only
// surviving artifact.
func (p *Packager) Package(s *domain.Session) (string, error) {
	artifacts := make([]domain.StoredArtifact, len(s.Artifacts))
	copy(artifacts, s.Artifacts)
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].StoredName < artifacts[j].StoredName
	})

	archivePath := filepath.Join(p.outputDir, fmt.Sprintf("stamps_%s.zip", uuid.NewString()))
	if err := writeArchive(archivePath, artifacts); err != nil {
		os.Remove(archivePath)
		return "", err
	}

	if err := os.RemoveAll(s.Dir); err != nil {
		slog.Error("Failed to remove session directory after packaging", "dir", s.Dir, "error", err)
	}

	return archivePath, nil
}

func writeArchive(archivePath string, artifacts []domain.StoredArtifact) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create output archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	// klauspost's flate is substantially faster than stdlib on PNG payloads.
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestSpeed)
	})

	for _, artifact := range artifacts {
		if err := addEntry(zw, artifact); err != nil {
			zw.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish output archive: %w", err)
	}
	return nil
}

func addEntry(zw *zip.Writer, artifact domain.StoredArtifact) error {
	w, err := zw.Create(entryName(artifact.StoredName))
	if err != nil {
		return fmt.Errorf("failed to create archive entry: %w", err)
	}

	f, err := os.Open(artifact.Path)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to write archive entry: %w", err)
	}
	return nil
}

// entryName strips the accumulator's file-index disambiguation prefix so the
// archive presents clean names: "03-stamp_017.png" becomes "stamp_017.png".
func entryName(storedName string) string {
	if idx := strings.Index(storedName, "-"); idx >= 0 {
		return storedName[idx+1:]
	}
	return storedName
}
