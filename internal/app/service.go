package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/proconverter/proconverter-lemons/internal/domain"
	"github.com/proconverter/proconverter-lemons/internal/logging"
	"github.com/proconverter/proconverter-lemons/internal/metrics"
)

// Consumer-side interfaces over the pipeline components.

type Inspector interface {
	Inspect(archivePath string) (string, error)
}

type Qualifier interface {
	Qualify(rootDir string, normalizeGrayscale bool) ([]domain.Artifact, error)
}

type Packager interface {
	Package(s *domain.Session) (string, error)
}

type Gate interface {
	CheckOnce(ctx context.Context, sessionID, licenseKey string) (int, error)
	SettleOnce(ctx context.Context, sessionID, licenseKey string) int
}

// Service is the application layer - the only component that references all
// pipeline pieces. It orchestrates one conversion unit per call.
type Service struct {
	registry  domain.SessionRegistry
	inspector Inspector
	qualifier Qualifier
	packager  Packager
	gate      Gate
	downloads *DownloadStore
	workDir   string
}

var _ domain.ConverterService = (*Service)(nil)

func NewService(registry domain.SessionRegistry, inspector Inspector, qualifier Qualifier, packager Packager, gate Gate, downloads *DownloadStore, workDir string) *Service {
	return &Service{
		registry:  registry,
		inspector: inspector,
		qualifier: qualifier,
		packager:  packager,
		gate:      gate,
		downloads: downloads,
		workDir:   workDir,
	}
}

// ProcessUnit runs one conversion unit through the pipeline. On the first
// file the license is checked before anything touches the disk; on the last
// file the session is packaged and settled. A unit failure after the session
// exists abandons the session (scratch removed, caller must restart with a
// fresh id).
func (s *Service) ProcessUnit(ctx context.Context, req domain.ConvertRequest) (*domain.ConvertResult, error) {
	timer := prometheus.NewTimer(metrics.UnitDuration)
	defer timer.ObserveDuration()

	log := logging.WithUnit(req.SessionID, req.FileIndex)

	result, err := s.processUnit(ctx, req, log)
	if err != nil {
		metrics.ConversionUnitsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	outcome := "accumulated"
	if result.Completed {
		outcome = "completed"
	}
	metrics.ConversionUnitsTotal.WithLabelValues(outcome).Inc()
	return result, nil
}

func (s *Service) processUnit(ctx context.Context, req domain.ConvertRequest, log *slog.Logger) (*domain.ConvertResult, error) {
	sess, err := s.openSession(ctx, req, log)
	if err != nil {
		return nil, err
	}

	added, total, err := s.convertInto(sess, req, log)
	if err != nil {
		// The unit was invalid; the session cannot be trusted to continue.
		s.registry.Destroy(req.SessionID)
		return nil, err
	}

	result := &domain.ConvertResult{
		ImagesAdded: added,
		ImagesTotal: total,
	}

	if !req.IsLastFile {
		log.Info("Unit accumulated", "images_added", added, "images_total", total)
		return result, nil
	}

	return s.completeSession(ctx, req, result, log)
}

// openSession applies the first-file boundary: license check before any
// session state or scratch exists. Subsequent units only look the session up.
func (s *Service) openSession(ctx context.Context, req domain.ConvertRequest, log *slog.Logger) (*domain.Session, error) {
	if !req.IsFirstFile {
		return s.registry.Get(req.SessionID)
	}

	if _, err := s.gate.CheckOnce(ctx, req.SessionID, req.LicenseKey); err != nil {
		log.Info("License check failed", "error", err)
		return nil, err
	}

	sess, err := s.registry.Create(req.SessionID, req.LicenseKey)
	if err != nil {
		return nil, err
	}
	sess.Validated = true
	return sess, nil
}

// convertInto persists the upload, inspects and qualifies it, and
// accumulates its artifacts. Unit-level scratch (the upload copy and the
// extraction root) is removed on every exit path.
func (s *Service) convertInto(sess *domain.Session, req domain.ConvertRequest, log *slog.Logger) (added, total int, err error) {
	upload, err := s.persistUpload(req.File)
	if err != nil {
		return 0, 0, err
	}
	defer os.Remove(upload)

	root, err := s.inspector.Inspect(upload)
	if err != nil {
		return 0, 0, err
	}
	defer os.RemoveAll(root)

	artifacts, err := s.qualifier.Qualify(root, req.MakeTransparent)
	if err != nil {
		return 0, 0, err
	}

	// The unit is fully valid; only now may its artifacts join the session.
	stored, err := s.registry.Accumulate(req.SessionID, req.FileIndex, artifacts)
	if err != nil {
		return 0, 0, err
	}

	return len(stored), len(sess.Artifacts), nil
}

func (s *Service) completeSession(ctx context.Context, req domain.ConvertRequest, result *domain.ConvertResult, log *slog.Logger) (*domain.ConvertResult, error) {
	sess, err := s.registry.Finalize(req.SessionID)
	if err != nil {
		return nil, err
	}

	archivePath, err := s.packager.Package(sess)
	if err != nil {
		// Packaging consumed the session either way; release the scratch.
		if rmErr := os.RemoveAll(sess.Dir); rmErr != nil {
			log.Error("Failed to remove session directory", "error", rmErr)
		}
		return nil, err
	}

	// Settlement is strictly after successful packaging and never blocks
	// the download (fail-open).
	result.RemainingUses = s.gate.SettleOnce(ctx, req.SessionID, sess.LicenseKey)
	result.Completed = true
	result.DownloadToken = s.downloads.Put(archivePath)

	log.Info("Session completed",
		"images_total", result.ImagesTotal,
		"remaining_uses", result.RemainingUses)
	return result, nil
}

func (s *Service) persistUpload(file io.Reader) (string, error) {
	tmp, err := os.CreateTemp(s.workDir, "upload_*.brushset")
	if err != nil {
		return "", fmt.Errorf("failed to persist upload: %w", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, file); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to persist upload: %w", err)
	}
	return tmp.Name(), nil
}

// OpenDownload serves a packaged archive exactly once.
func (s *Service) OpenDownload(token string) (io.ReadCloser, string, error) {
	return s.downloads.Open(token)
}

// SweepScratch removes leftover scratch from a previous run. Tokens live in
// memory, so nothing under the work dir is reachable after a restart.
func SweepScratch(workDir string) error {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		path := filepath.Join(workDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to sweep %s: %w", path, err)
		}
	}
	return nil
}
