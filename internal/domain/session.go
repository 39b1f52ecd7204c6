package domain

import "time"

// Session is the server-side state for one caller-driven conversion session.
// Created at the first-file boundary, destroyed at packaging or on failure.
type Session struct {
	// ID is the opaque token supplied by the caller.
	ID string
	// LicenseKey is the key validated at session start.
	LicenseKey string
	// Validated reports whether the license check succeeded for this session.
	Validated bool
	// Dir is the session's private scratch directory. Artifacts accumulate
	// here until packaging removes the directory.
	Dir string
	// Artifacts is the append-only list of stored artifacts, in
	// accumulation order. Packaging is the sole consumer.
	Artifacts []StoredArtifact
	// NextSeq is the session-global artifact sequence number, embedded in
	// stored names so no two conversion units can collide.
	NextSeq int
	// LastActivity is used by the janitor to detect abandoned sessions.
	LastActivity time.Time
}

// SessionRegistry owns all live sessions of this process. Units of one
// session arrive strictly in sequence (client-side protocol constraint);
// distinct sessions may be served concurrently.
type SessionRegistry interface {
	// Create registers a new session and creates its scratch directory.
	Create(sessionID, licenseKey string) (*Session, error)
	// Get returns the live session or ErrSessionNotFound.
	Get(sessionID string) (*Session, error)
	// Accumulate encodes the unit's artifacts into the session directory
	// under collision-free names and appends them to the session.
	Accumulate(sessionID string, fileIndex int, artifacts []Artifact) ([]StoredArtifact, error)
	// Finalize removes the session from the registry and returns its
	// artifacts in accumulation order. The scratch directory survives
	// until the caller releases it; a second call for the same session
	// returns ErrSessionNotFound.
	Finalize(sessionID string) (*Session, error)
	// Destroy removes the session and its scratch directory. Destroying an
	// unknown session is a no-op.
	Destroy(sessionID string)
}
