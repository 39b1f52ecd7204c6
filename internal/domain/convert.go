package domain

import (
	"context"
	"io"
)

// ConvertRequest describes one conversion unit: a single archive upload
// within a multi-file session. First/last flags are caller-asserted sequence
// boundaries (trust boundary, not a protocol guarantee).
type ConvertRequest struct {
	SessionID       string
	LicenseKey      string
	FileIndex       int
	IsFirstFile     bool
	IsLastFile      bool
	MakeTransparent bool
	Filename        string
	File            io.Reader
}

// ConvertResult is the outcome of processing one conversion unit.
type ConvertResult struct {
	// ImagesAdded is the number of qualifying images this unit contributed.
	ImagesAdded int
	// ImagesTotal is the session's accumulated total after this unit.
	ImagesTotal int
	// Completed reports whether this unit finished the session.
	Completed bool
	// DownloadToken locates the packaged archive when Completed is true.
	DownloadToken string
	// RemainingUses is the post-settlement balance when Completed is true;
	// RemainingUnknown if the provider was unreachable during settlement.
	RemainingUses int
}

// ConverterService is the application-layer surface consumed by the HTTP
// handlers.
type ConverterService interface {
	ProcessUnit(ctx context.Context, req ConvertRequest) (*ConvertResult, error)
	// OpenDownload returns the packaged archive for a one-time download.
	// The caller must close the reader; the file is purged afterwards
	// whether or not the transfer completed.
	OpenDownload(token string) (io.ReadCloser, string, error)
}
