package domain

import "errors"

var (
	// Conversion unit errors (user input).
	ErrCorruptArchive     = errors.New("the uploaded file is not a valid .brushset file")
	ErrTooManyEntries     = errors.New("brush set contains too many items")
	ErrNoQualifyingImages = errors.New("no valid stamp images found in the file (min 1024x1024px)")

	// Session lifecycle errors.
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")

	// License errors.
	ErrLicenseNotFound    = errors.New("license key not found")
	ErrLicenseInactive    = errors.New("license key is not active")
	ErrLicenseExhausted   = errors.New("license key has no remaining uses")
	ErrLicenseUnavailable = errors.New("license service unavailable")

	// Download errors.
	ErrDownloadNotFound = errors.New("download not found")
)
