package ports

import (
	"context"
	"time"

	"github.com/layer-3/rangda/core"
)

// NonceStore persists replay-guard records for issued challenges.
//
// Consume is the replay guard: it must atomically find an unexpired
// record and delete it, so that two concurrent consumers of the same
// token can never both observe it. Implementations that cannot do a
// native conditional delete must simulate one with a store-level
// unique-claim primitive, never with separate find and delete round
// trips.
type NonceStore interface {
	// Create stores a new record for token expiring at expiresAt.
	Create(ctx context.Context, token string, expiresAt time.Time) error

	// FindUnexpired returns the record for token if it exists and its
	// expiration is strictly after now; otherwise (nil, nil).
	FindUnexpired(ctx context.Context, token string, now time.Time) (*core.NonceRecord, error)

	// Consume atomically deletes the record for token if it exists and
	// is unexpired at now, reporting whether a record was claimed.
	Consume(ctx context.Context, token string, now time.Time) (bool, error)

	// DeleteIfPresent removes the record for token regardless of expiry,
	// reporting whether one existed.
	DeleteIfPresent(ctx context.Context, token string) (bool, error)

	// DeleteAllExpired removes every record with expiration at or before
	// now and returns how many were removed.
	DeleteAllExpired(ctx context.Context, now time.Time) (int, error)
}
