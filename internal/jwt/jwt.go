package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"
)

// MinSecretLength is the shortest HS256 secret accepted.
const MinSecretLength = 32

// Verification failures. Callers outside this package should not surface the
// difference to clients.
var (
	ErrMalformed    = errors.New("token is malformed")
	ErrBadSignature = errors.New("token signature is invalid")
	ErrExpired      = errors.New("token has expired")
)

var allowedAlgorithms = []gojose.SignatureAlgorithm{gojose.HS256}

// Claims is the verified content of an access token.
type Claims struct {
	UserID    int64
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Option customizes a Generator.
type Option func(*Generator)

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// Generator is responsible for signing and validating JWTs.
type Generator struct {
	secret    []byte
	accessTTL time.Duration
	issuer    string
	signer    gojose.Signer
	now       func() time.Time
}

// NewGenerator constructs a JWT generator around a process-wide HS256 secret.
func NewGenerator(secret []byte, accessTTL time.Duration, issuer string, opts ...Option) (*Generator, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)
	}
	if accessTTL <= 0 {
		return nil, fmt.Errorf("jwt access ttl must be positive")
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	signer, err := gojose.NewSigner(gojose.SigningKey{Algorithm: gojose.HS256, Key: key}, (&gojose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return nil, fmt.Errorf("new signer: %w", err)
	}

	g := &Generator{
		secret:    key,
		accessTTL: accessTTL,
		issuer:    issuer,
		signer:    signer,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// GenerateAccessToken produces a signed JWT whose subject is the user id.
func (g *Generator) GenerateAccessToken(userID int64) (string, time.Time, error) {
	now := g.now().UTC()
	expiresAt := now.Add(g.accessTTL)

	stdClaims := gojwt.Claims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    g.issuer,
		IssuedAt:  gojwt.NewNumericDate(now),
		Expiry:    gojwt.NewNumericDate(expiresAt),
		NotBefore: gojwt.NewNumericDate(now),
	}

	token, err := gojwt.Signed(g.signer).Claims(stdClaims).Serialize()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("serialize jwt: %w", err)
	}

	return token, expiresAt, nil
}

// ValidateAccessToken checks the signature before looking at any claim, so a
// tampered token is rejected without its expiry being read.
func (g *Generator) ValidateAccessToken(token string) (*Claims, error) {
	parsed, err := gojwt.ParseSigned(token, allowedAlgorithms)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", ErrMalformed)
	}

	var std gojwt.Claims
	if err := parsed.Claims(g.secret, &std); err != nil {
		return nil, fmt.Errorf("verify token: %w", ErrBadSignature)
	}

	if err := std.ValidateWithLeeway(gojwt.Expected{Issuer: g.issuer, Time: g.now()}, 0); err != nil {
		if errors.Is(err, gojwt.ErrExpired) {
			return nil, fmt.Errorf("validate claims: %w", ErrExpired)
		}
		return nil, fmt.Errorf("validate claims: %v: %w", err, ErrMalformed)
	}

	userID, err := strconv.ParseInt(std.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("subject claim: %w", ErrMalformed)
	}
	if std.Expiry == nil {
		return nil, fmt.Errorf("expiry claim missing: %w", ErrMalformed)
	}

	claims := &Claims{
		UserID:    userID,
		TokenID:   std.ID,
		ExpiresAt: std.Expiry.Time(),
	}
	if std.IssuedAt != nil {
		claims.IssuedAt = std.IssuedAt.Time()
	}
	return claims, nil
}
