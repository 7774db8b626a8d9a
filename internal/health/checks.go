package health

import (
    "context"

    "github.com/hamzaKhattat/powerdialer/internal/db"
    "github.com/hamzaKhattat/powerdialer/internal/numbers"
)

// DatabaseChecker reports the MySQL persistence backend's health via the
// connection wrapper's background ping result.
func DatabaseChecker(conn *db.DB) CheckFunc {
    return func(ctx context.Context) error {
        if !conn.IsHealthy() {
            return errUnhealthy("persistence database")
        }
        return nil
    }
}

// NumberManagerChecker queries the number manager's recency cache size and
// always reports ready; Size returns no error, so a failing recency
// backend is not detected by this check.
func NumberManagerChecker(mgr *numbers.Manager) CheckFunc {
    return func(ctx context.Context) error {
        mgr.Size(ctx)
        return nil
    }
}

type unhealthyError string

func (e unhealthyError) Error() string { return string(e) + " is unhealthy" }

func errUnhealthy(component string) error {
    return unhealthyError(component)
}
