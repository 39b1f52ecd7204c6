package session

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proconverter/proconverter-lemons/internal/domain"
)

func testArtifact() domain.Artifact {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(1, 1, color.NRGBA{A: 200})
	return domain.Artifact{Image: img, Width: 4, Height: 4}
}

func newTestRegistry(t *testing.T) (*Registry, clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	r := NewRegistry(t.TempDir(), 30*time.Minute, clock)
	t.Cleanup(r.Stop)
	return r, clock
}

func TestCreate_MakesScratchDir(t *testing.T) {
	r, _ := newTestRegistry(t)

	s, err := r.Create("s1", "key-1")
	require.NoError(t, err)

	info, err := os.Stat(s.Dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "key-1", s.LicenseKey)
}

func TestCreate_DuplicateSessionRejected(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Create("s1", "key-1")
	require.NoError(t, err)

	_, err = r.Create("s1", "key-1")
	assert.ErrorIs(t, err, domain.ErrSessionAlreadyExists)
}

func TestCreate_SanitizesHostileSessionID(t *testing.T) {
	r, _ := newTestRegistry(t)

	s, err := r.Create("../../etc/passwd", "key-1")
	require.NoError(t, err)

	rel, err := filepath.Rel(r.workDir, s.Dir)
	require.NoError(t, err)
	assert.False(t, filepath.IsAbs(rel))
	assert.NotContains(t, rel, "..")
}

func TestAccumulate_NamespacesAcrossUnits(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Create("s1", "key-1")
	require.NoError(t, err)

	first, err := r.Accumulate("s1", 0, []domain.Artifact{testArtifact(), testArtifact()})
	require.NoError(t, err)
	second, err := r.Accumulate("s1", 1, []domain.Artifact{testArtifact(), testArtifact()})
	require.NoError(t, err)

	assert.Equal(t, "00-stamp_000.png", first[0].StoredName)
	assert.Equal(t, "00-stamp_001.png", first[1].StoredName)
	assert.Equal(t, "01-stamp_002.png", second[0].StoredName)
	assert.Equal(t, "01-stamp_003.png", second[1].StoredName)

	s, err := r.Get("s1")
	require.NoError(t, err)
	require.Len(t, s.Artifacts, 4)

	// Every stored artifact exists on disk under a distinct name.
	seen := map[string]bool{}
	for _, a := range s.Artifacts {
		assert.False(t, seen[a.StoredName])
		seen[a.StoredName] = true
		_, err := os.Stat(a.Path)
		assert.NoError(t, err)
	}
}

func TestAccumulate_UnknownSession(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Accumulate("ghost", 0, []domain.Artifact{testArtifact()})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestFinalize_SecondCallFails(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Create("s1", "key-1")
	require.NoError(t, err)
	_, err = r.Accumulate("s1", 0, []domain.Artifact{testArtifact()})
	require.NoError(t, err)

	s, err := r.Finalize("s1")
	require.NoError(t, err)
	assert.Len(t, s.Artifacts, 1)

	// Scratch dir survives finalize; the packager owns its removal.
	_, err = os.Stat(s.Dir)
	assert.NoError(t, err)

	_, err = r.Finalize("s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestDestroy_RemovesScratchDir(t *testing.T) {
	r, _ := newTestRegistry(t)
	s, err := r.Create("s1", "key-1")
	require.NoError(t, err)

	r.Destroy("s1")

	_, err = os.Stat(s.Dir)
	assert.True(t, os.IsNotExist(err))

	// Destroying again is a no-op.
	r.Destroy("s1")
}

func TestJanitor_SweepsAbandonedSessions(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewRegistry(t.TempDir(), 10*time.Minute, clock)
	defer r.Stop()

	stale, err := r.Create("stale", "key-1")
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	fresh, err := r.Create("fresh", "key-2")
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)
	r.sweep()

	_, err = r.Get("stale")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, statErr := os.Stat(stale.Dir)
	assert.True(t, os.IsNotExist(statErr))

	_, err = r.Get("fresh")
	assert.NoError(t, err)
	_, statErr = os.Stat(fresh.Dir)
	assert.NoError(t, statErr)
}
