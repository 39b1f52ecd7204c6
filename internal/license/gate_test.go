package license

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proconverter/proconverter-lemons/internal/domain"
)

type fakeProvider struct {
	status        domain.LicenseStatus
	checkErr      error
	decrementErr  error
	remaining     int
	checkCalls    int
	decrementCall int
}

func (f *fakeProvider) Check(ctx context.Context, key string) (domain.LicenseStatus, error) {
	f.checkCalls++
	return f.status, f.checkErr
}

func (f *fakeProvider) Decrement(ctx context.Context, key string) (int, error) {
	f.decrementCall++
	if f.decrementErr != nil {
		return 0, f.decrementErr
	}
	return f.remaining, nil
}

func TestCheckOnce_ActiveKeyWithBalance(t *testing.T) {
	provider := &fakeProvider{status: domain.LicenseStatus{Active: true, Remaining: 3}}
	gate := NewGate(provider)

	remaining, err := gate.CheckOnce(context.Background(), "s1", "key")
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
	assert.Equal(t, 1, provider.checkCalls)
}

func TestCheckOnce_InactiveKey(t *testing.T) {
	provider := &fakeProvider{status: domain.LicenseStatus{Active: false, Remaining: 3}}
	gate := NewGate(provider)

	_, err := gate.CheckOnce(context.Background(), "s1", "key")
	assert.ErrorIs(t, err, domain.ErrLicenseInactive)
}

func TestCheckOnce_ExhaustedKey(t *testing.T) {
	provider := &fakeProvider{status: domain.LicenseStatus{Active: true, Remaining: 0}}
	gate := NewGate(provider)

	_, err := gate.CheckOnce(context.Background(), "s1", "key")
	assert.ErrorIs(t, err, domain.ErrLicenseExhausted)
}

func TestCheckOnce_ProviderFailureIsHardStop(t *testing.T) {
	provider := &fakeProvider{checkErr: domain.ErrLicenseUnavailable}
	gate := NewGate(provider)

	_, err := gate.CheckOnce(context.Background(), "s1", "key")
	assert.ErrorIs(t, err, domain.ErrLicenseUnavailable)
}

func TestSettleOnce_DecrementsBalance(t *testing.T) {
	provider := &fakeProvider{remaining: 2}
	gate := NewGate(provider)

	remaining := gate.SettleOnce(context.Background(), "s1", "key")
	assert.Equal(t, 2, remaining)
	assert.Equal(t, 1, provider.decrementCall)
}

func TestSettleOnce_FailOpenOnProviderOutage(t *testing.T) {
	provider := &fakeProvider{decrementErr: domain.ErrLicenseUnavailable}
	gate := NewGate(provider)

	remaining := gate.SettleOnce(context.Background(), "s1", "key")
	assert.Equal(t, domain.RemainingUnknown, remaining)
}
