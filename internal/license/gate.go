package license

import (
	"context"
	"log/slog"

	"github.com/proconverter/proconverter-lemons/internal/domain"
	"github.com/proconverter/proconverter-lemons/internal/metrics"
)

// Gate applies the session-boundary license policy on top of the provider:
// one fail-closed check at the first-file boundary, one fail-open settlement
// after packaging. Exactly-once relies on the caller's first/last-file flags
// (a documented trust boundary), not on server-side locking.
type Gate struct {
	provider domain.LicenseService
}

func NewGate(provider domain.LicenseService) *Gate {
	return &Gate{provider: provider}
}

// CheckOnce validates the key at session start. Any failure is a hard stop:
// the unit is not extracted and no session state is created.
func (g *Gate) CheckOnce(ctx context.Context, sessionID, key string) (int, error) {
	status, err := g.provider.Check(ctx, key)
	if err != nil {
		return 0, err
	}
	if !status.Active {
		return 0, domain.ErrLicenseInactive
	}
	if status.Remaining <= 0 {
		return 0, domain.ErrLicenseExhausted
	}

	slog.Info("License validated", "session_id", sessionID, "remaining", status.Remaining)
	return status.Remaining, nil
}

// SettleOnce consumes one usage credit after a successful packaging. The
// provider being unreachable must not block the download: the settlement is
// logged as failed and the reported balance degrades to RemainingUnknown.
func (g *Gate) SettleOnce(ctx context.Context, sessionID, key string) int {
	remaining, err := g.provider.Decrement(ctx, key)
	if err != nil {
		metrics.SettlementFailuresTotal.Inc()
		slog.Warn("Settlement failed, serving download anyway",
			"session_id", sessionID, "error", err)
		return domain.RemainingUnknown
	}

	slog.Info("Session settled", "session_id", sessionID, "remaining", remaining)
	return remaining
}
