package actiontoken

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fredericlb/BespokeSynthPatches/internal/utils/platformerrors"
)

// ErrNotFoundOrExpired is returned when no live token matches the request.
var ErrNotFoundOrExpired = errors.New("action token not found or expired")

// DefaultTTL is the lifetime of a freshly issued token.
const DefaultTTL = 2 * time.Hour

// Service issues, enables and consumes action tokens.
type Service struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time
	log  zerolog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo Repository, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		ttl:  DefaultTTL,
		now:  time.Now,
		log:  log.With().Str("component", "action-token-service").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a disabled token and returns it together with its secret.
func (s *Service) Issue(ctx context.Context) (*Issued, error) {
	secret, err := generateSecret()
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to generate action token", err, "b6a41f0e-2c7d-4f1a-9e55-0d8c3a7b1e20")
	}

	now := s.now().UTC()
	token := &ActionToken{
		ID:         uuid.NewString(),
		SecretHash: HashSecret(secret),
		Enabled:    false,
		ExpiresAt:  now.Add(s.ttl),
		CreatedAt:  now,
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeDatabase,
			"failed to store action token", err, "4f0b7d9c-63e2-4a8b-b1d5-92c7e0f4a316")
	}

	s.log.Info().Str("token_id", token.ID).Time("expires_at", token.ExpiresAt).Msg("action token issued")
	return &Issued{ID: token.ID, Secret: secret, ExpiresAt: token.ExpiresAt}, nil
}

// IsEnabled reports the enabled flag of a live token.
func (s *Service) IsEnabled(ctx context.Context, id string) (bool, error) {
	token, err := s.repo.FindLive(ctx, id, s.now().UTC())
	if err != nil {
		return false, s.lookupError(ctx, id, err)
	}
	return token.Enabled, nil
}

// Enable flips a live token to enabled. It returns the token when this call
// enabled it and nil when it was already enabled.
func (s *Service) Enable(ctx context.Context, id, secret string) (*ActionToken, error) {
	now := s.now().UTC()
	hash := HashSecret(secret)

	token, err := s.repo.FindLiveWithSecret(ctx, id, hash, now)
	if err != nil {
		return nil, s.lookupError(ctx, id, err)
	}

	switched, err := s.repo.EnableIfDisabled(ctx, id, hash, now)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeDatabase,
			"failed to enable action token", err, "e2d5a8c1-7b34-4f96-8a0e-5c1b9d3f7a42")
	}
	if switched {
		// the token may already be consumed; the result only depends on the swap
		token.Enabled = true
		s.log.Info().Str("token_id", id).Msg("action token enabled")
		return token, nil
	}

	// lost the swap: either enabled earlier or removed since the first read
	if _, err := s.repo.FindLiveWithSecret(ctx, id, hash, now); err != nil {
		return nil, s.lookupError(ctx, id, err)
	}
	return nil, nil
}

// Consume deletes a live token regardless of its enabled flag.
func (s *Service) Consume(ctx context.Context, id string) error {
	deleted, err := s.repo.DeleteLive(ctx, id, s.now().UTC())
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeDatabase,
			"failed to consume action token", err, "9a3c6e1f-0d28-4b7a-a5f4-3e8d1c6b0f97")
	}
	if !deleted {
		return s.lookupError(ctx, id, ErrRecordNotFound)
	}
	s.log.Debug().Str("token_id", id).Msg("action token consumed")
	return nil
}

// PurgeExpired removes every expired token and returns how many were removed.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now().UTC())
}

func (s *Service) lookupError(ctx context.Context, id string, err error) error {
	if errors.Is(err, ErrRecordNotFound) {
		return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			"action token not found or expired", ErrNotFoundOrExpired, "1d7e4b2a-c9f3-4e60-8b17-a4f2d06c9e58",
			map[string]any{"token_id": id})
	}
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeDatabase,
		"failed to load action token", err, "c5f81a3d-4e27-4b9c-9d06-7b2e5a1f8c34")
}

func generateSecret() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
