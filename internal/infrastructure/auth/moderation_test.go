package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredericlb/BespokeSynthPatches/internal/config"
)

func newSigner(secret string, ttl time.Duration) *ModerationSigner {
	return NewModerationSigner(&config.Config{ModerationSecret: secret, ModerationTokenTTL: ttl})
}

func TestModerationSigner_RoundTrip(t *testing.T) {
	signer := newSigner("s3cret", time.Hour)

	token, err := signer.Issue("patch-1")
	require.NoError(t, err)

	assert.NoError(t, signer.Verify(token, "patch-1"))
}

func TestModerationSigner_Rejects(t *testing.T) {
	signer := newSigner("s3cret", time.Hour)
	token, err := signer.Issue("patch-1")
	require.NoError(t, err)

	otherSigner := newSigner("other", time.Hour)
	forged, err := otherSigner.Issue("patch-1")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "patch-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		patchID string
	}{
		{name: "empty", token: "", patchID: "patch-1"},
		{name: "garbage", token: "not-a-jwt", patchID: "patch-1"},
		{name: "other patch", token: token, patchID: "patch-2"},
		{name: "other secret", token: forged, patchID: "patch-1"},
		{name: "alg none", token: unsigned, patchID: "patch-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := signer.Verify(tt.token, tt.patchID)
			assert.ErrorIs(t, err, ErrInvalidModerationToken)
		})
	}
}

func TestModerationSigner_Expiry(t *testing.T) {
	signer := newSigner("s3cret", time.Hour)
	issuedAt := time.Now()
	signer.now = func() time.Time { return issuedAt }

	token, err := signer.Issue("patch-1")
	require.NoError(t, err)

	signer.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	assert.ErrorIs(t, signer.Verify(token, "patch-1"), ErrInvalidModerationToken)
}

func TestModerationSigner_RequiresSecret(t *testing.T) {
	_, err := newSigner("", time.Hour).Issue("patch-1")
	assert.Error(t, err)
}
