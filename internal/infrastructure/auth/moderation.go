package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fredericlb/BespokeSynthPatches/internal/config"
)

const (
	moderationIssuer   = "bespoke-patches"
	moderationAudience = "patch-moderation"
)

var ErrInvalidModerationToken = errors.New("invalid moderation token")

// ModerationClaims binds a token to one patch.
type ModerationClaims struct {
	jwt.RegisteredClaims
}

// ModerationSigner issues HS256 tokens whose subject is a patch uuid. Holders
// may view the pending patch and decide on it.
type ModerationSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewModerationSigner(cfg *config.Config) *ModerationSigner {
	return &ModerationSigner{
		secret: []byte(cfg.ModerationSecret),
		ttl:    cfg.ModerationTokenTTL,
		now:    time.Now,
	}
}

// Issue signs a token for patchID.
func (s *ModerationSigner) Issue(patchID string) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("moderation secret is not configured")
	}
	now := s.now()
	claims := ModerationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   moderationIssuer,
			Subject:  patchID,
			Audience: jwt.ClaimStrings{moderationAudience},
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks the signature, expiry and that the token was issued for patchID.
func (s *ModerationSigner) Verify(tokenString, patchID string) error {
	if tokenString == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidModerationToken)
	}

	claims := &ModerationClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(moderationIssuer),
		jwt.WithAudience(moderationAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidModerationToken, err)
	}
	if claims.Subject != patchID {
		return fmt.Errorf("%w: issued for another patch", ErrInvalidModerationToken)
	}
	return nil
}
