package domain

import "image"

// Artifact is a qualifying stamp image extracted from one conversion unit.
// It is owned by the session that accumulated it until packaging consumes it.
type Artifact struct {
	// Image is the decoded (and possibly normalized) pixel data.
	Image image.Image
	// Width and Height are the pixel dimensions of Image.
	Width  int
	Height int
	// Grayscale reports whether the source image was single-channel
	// before normalization.
	Grayscale bool
	// SourcePath is the path of the entry inside the extracted archive,
	// used for logging only.
	SourcePath string
}

// StoredArtifact is an artifact that has been written into a session's
// scratch directory by the accumulator.
type StoredArtifact struct {
	// Path is the absolute location of the encoded PNG on disk.
	Path string
	// StoredName is the collision-free name inside the session directory,
	// e.g. "03-stamp_017.png". Lexicographic order of stored names equals
	// accumulation order.
	StoredName string
	// FileIndex is the zero-based position of the originating conversion
	// unit in the session's file sequence.
	FileIndex int
}
