package jwt_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	customjwt "github.com/smallbiznis/fintrack-auth/internal/jwt"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestGeneratorRoundTrip(t *testing.T) {
	generator, err := customjwt.NewGenerator(testSecret, time.Hour, "fintrack")
	require.NoError(t, err)

	token, expiresAt, err := generator.GenerateAccessToken(99)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := generator.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, int64(99), claims.UserID)
	require.NotEmpty(t, claims.TokenID)
	require.Equal(t, expiresAt.Unix(), claims.ExpiresAt.Unix())
}

func TestValidateRejectsGarbage(t *testing.T) {
	generator, err := customjwt.NewGenerator(testSecret, time.Hour, "fintrack")
	require.NoError(t, err)

	_, err = generator.ValidateAccessToken("invalid_token")
	require.ErrorIs(t, err, customjwt.ErrMalformed)

	_, err = generator.ValidateAccessToken("")
	require.ErrorIs(t, err, customjwt.ErrMalformed)
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	generator, err := customjwt.NewGenerator(testSecret, time.Hour, "fintrack")
	require.NoError(t, err)

	token, _, err := generator.GenerateAccessToken(7)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = generator.ValidateAccessToken(tampered)
	require.ErrorIs(t, err, customjwt.ErrBadSignature)
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	issuer, err := customjwt.NewGenerator([]byte("ffffffffffffffffffffffffffffffff"), time.Hour, "fintrack")
	require.NoError(t, err)
	verifier, err := customjwt.NewGenerator(testSecret, time.Hour, "fintrack")
	require.NoError(t, err)

	token, _, err := issuer.GenerateAccessToken(7)
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.ErrorIs(t, err, customjwt.ErrBadSignature)
}

func TestForgedExpiredTokenReportsSignatureFirst(t *testing.T) {
	past := func() time.Time { return time.Now().Add(-2 * time.Hour) }
	forger, err := customjwt.NewGenerator([]byte("ffffffffffffffffffffffffffffffff"), time.Hour, "fintrack", customjwt.WithClock(past))
	require.NoError(t, err)
	verifier, err := customjwt.NewGenerator(testSecret, time.Hour, "fintrack")
	require.NoError(t, err)

	token, _, err := forger.GenerateAccessToken(7)
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.ErrorIs(t, err, customjwt.ErrBadSignature)
	require.NotErrorIs(t, err, customjwt.ErrExpired)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	past := func() time.Time { return time.Now().Add(-2 * time.Hour) }
	issuer, err := customjwt.NewGenerator(testSecret, time.Hour, "fintrack", customjwt.WithClock(past))
	require.NoError(t, err)
	verifier, err := customjwt.NewGenerator(testSecret, time.Hour, "fintrack")
	require.NoError(t, err)

	token, _, err := issuer.GenerateAccessToken(7)
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.ErrorIs(t, err, customjwt.ErrExpired)
}

func TestValidateRejectsOtherIssuer(t *testing.T) {
	issuer, err := customjwt.NewGenerator(testSecret, time.Hour, "someone-else")
	require.NoError(t, err)
	verifier, err := customjwt.NewGenerator(testSecret, time.Hour, "fintrack")
	require.NoError(t, err)

	token, _, err := issuer.GenerateAccessToken(7)
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.ErrorIs(t, err, customjwt.ErrMalformed)
}

func TestNewGeneratorValidatesInput(t *testing.T) {
	_, err := customjwt.NewGenerator([]byte("short"), time.Hour, "fintrack")
	require.Error(t, err)

	_, err = customjwt.NewGenerator(testSecret, 0, "fintrack")
	require.Error(t, err)
}
