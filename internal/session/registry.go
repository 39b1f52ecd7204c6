// Package session implements the in-process session registry and artifact
// accumulator.
//
// Sessions are created at the first-file boundary and torn down at packaging
// or on failure. A clockwork-driven janitor sweeps sessions a client
// abandoned mid-sequence.
package session

import (
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/proconverter/proconverter-lemons/internal/domain"
	"github.com/proconverter/proconverter-lemons/internal/metrics"
)

// Registry owns all live sessions of this process. Units of one session
// arrive sequentially by protocol; the mutex only guards concurrent requests
// from distinct sessions.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session

	workDir string
	ttl     time.Duration
	clock   clockwork.Clock

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

var _ domain.SessionRegistry = (*Registry)(nil)

func NewRegistry(workDir string, ttl time.Duration, clock clockwork.Clock) *Registry {
	return &Registry{
		sessions: make(map[string]*domain.Session),
		workDir:  workDir,
		ttl:      ttl,
		clock:    clock,
		stopCh:   make(chan struct{}),
	}
}

// Create registers a new session and creates its private scratch directory.
// The directory name combines the sanitized caller id with a random token so
// hostile session ids cannot collide or escape the work dir.
func (r *Registry) Create(sessionID, licenseKey string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; ok {
		return nil, domain.ErrSessionAlreadyExists
	}

	dir := filepath.Join(r.workDir, fmt.Sprintf("session_%s_%s", sanitize(sessionID), uuid.NewString()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	s := &domain.Session{
		ID:           sessionID,
		LicenseKey:   licenseKey,
		Dir:          dir,
		LastActivity: r.clock.Now(),
	}
	r.sessions[sessionID] = s
	metrics.ActiveSessions.Inc()

	return s, nil
}

// Get returns the live session or domain.ErrSessionNotFound.
func (r *Registry) Get(sessionID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Accumulate encodes the unit's artifacts as PNG into the session directory
// and appends them to the session. Stored names embed the zero-padded file
// index and a session-global sequence number, so no two conversion units can
// collide and lexicographic order equals accumulation order.
func (r *Registry) Accumulate(sessionID string, fileIndex int, artifacts []domain.Artifact) ([]domain.StoredArtifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	stored := make([]domain.StoredArtifact, 0, len(artifacts))
	for _, artifact := range artifacts {
		name := fmt.Sprintf("%02d-stamp_%03d.png", fileIndex, s.NextSeq)
		s.NextSeq++

		path := filepath.Join(s.Dir, name)
		if err := encodePNG(path, artifact); err != nil {
			return nil, err
		}

		stored = append(stored, domain.StoredArtifact{
			Path:       path,
			StoredName: name,
			FileIndex:  fileIndex,
		})
	}

	// Append only after every artifact of the unit was written.
	s.Artifacts = append(s.Artifacts, stored...)
	s.LastActivity = r.clock.Now()
	metrics.QualifyingImagesTotal.Add(float64(len(stored)))

	return stored, nil
}

// Finalize removes the session from the registry and hands its state to the
// caller. The scratch directory survives until the caller releases it; a
// second finalize for the same session reports ErrSessionNotFound.
func (r *Registry) Finalize(sessionID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	delete(r.sessions, sessionID)
	metrics.ActiveSessions.Dec()

	return s, nil
}

// Destroy removes the session and its scratch directory. Unknown sessions
// are a no-op, so failure paths can call it unconditionally.
func (r *Registry) Destroy(sessionID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
		metrics.ActiveSessions.Dec()
	}
	r.mu.Unlock()

	if ok {
		removeDir(s.Dir)
	}
}

// StartJanitor launches the background sweep of abandoned sessions.
func (r *Registry) StartJanitor(interval time.Duration) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := r.clock.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				r.sweep()
			case <-r.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the janitor. Safe to call more than once.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

func (r *Registry) sweep() {
	cutoff := r.clock.Now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*domain.Session
	for id, s := range r.sessions {
		if s.LastActivity.Before(cutoff) {
			delete(r.sessions, id)
			expired = append(expired, s)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		removeDir(s.Dir)
		metrics.ActiveSessions.Dec()
		metrics.SessionsSweptTotal.Inc()
		slog.Info("Swept abandoned session", "session_id", s.ID, "artifacts", len(s.Artifacts))
	}
}

func encodePNG(path string, artifact domain.Artifact) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create artifact file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, artifact.Image); err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	return nil
}

func removeDir(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		slog.Error("Failed to remove session directory", "dir", dir, "error", err)
	}
}

// sanitize keeps session ids filesystem-safe: anything outside
// [a-zA-Z0-9_-] is dropped, and long ids are truncated.
func sanitize(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
		if b.Len() >= 32 {
			break
		}
	}
	return b.String()
}
