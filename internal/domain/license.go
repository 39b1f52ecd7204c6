package domain

import "context"

// LicenseStatus is the provider's view of one license key.
type LicenseStatus struct {
	Active    bool
	Remaining int
}

// RemainingUnknown is reported when settlement could not reach the provider;
// the download is still delivered and the balance is best-effort.
const RemainingUnknown = -1

// LicenseService is the external licensing provider, reduced to the two
// operations the conversion pipeline needs.
type LicenseService interface {
	// Check returns the key's active flag and remaining-uses counter, or
	// ErrLicenseNotFound / ErrLicenseUnavailable.
	Check(ctx context.Context, key string) (LicenseStatus, error)
	// Decrement consumes one usage credit and returns the new remaining
	// count, or ErrLicenseUnavailable.
	Decrement(ctx context.Context, key string) (int, error)
}
