package actiontoken

import (
	"context"
	"errors"
	"time"
)

// ErrRecordNotFound is returned by repositories when no live token matches.
var ErrRecordNotFound = errors.New("action token record not found")

// Repository persists action tokens. Implementations must make EnableIfDisabled
// atomic per id: concurrent callers see exactly one true result.
type Repository interface {
	Create(ctx context.Context, token *ActionToken) error
	// FindLive returns the token with id whose expiry is not before now.
	FindLive(ctx context.Context, id string, now time.Time) (*ActionToken, error)
	// FindLiveWithSecret is FindLive restricted to a matching secret digest.
	FindLiveWithSecret(ctx context.Context, id, secretHash string, now time.Time) (*ActionToken, error)
	// EnableIfDisabled flips enabled for a live, matching, still-disabled token
	// and reports whether this call performed the transition.
	EnableIfDisabled(ctx context.Context, id, secretHash string, now time.Time) (bool, error)
	// DeleteLive removes a live token and reports whether one was removed.
	DeleteLive(ctx context.Context, id string, now time.Time) (bool, error)
	// DeleteExpired purges tokens that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
