package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/smallbiznis/fintrack-auth/internal/config"
	"github.com/smallbiznis/fintrack-auth/internal/domain"
	"github.com/smallbiznis/fintrack-auth/internal/jwt"
	"github.com/smallbiznis/fintrack-auth/internal/password"
	"github.com/smallbiznis/fintrack-auth/internal/repository"
)

const (
	maxEmailLength    = 254
	maxPasswordLength = 128
	maxNameLength     = 100

	// Verified against when the email is unknown so both login failures cost the same.
	dummyPassword = "fintrack-timing-equalizer"
)

// AuthService encapsulates authentication flows.
type AuthService struct {
	users     repository.UserRepository
	attempts  repository.LoginAttemptStore
	hasher    password.Hasher
	jwt       *jwt.Generator
	snowflake *snowflake.Node
	cfg       config.Config
	logger    *zap.Logger
	tracer    trace.Tracer
	dummyHash string
}

// NewAuthService wires dependencies. attempts may be nil to disable lockout
// and tracer may be nil to disable spans.
func NewAuthService(users repository.UserRepository, attempts repository.LoginAttemptStore, hasher password.Hasher, generator *jwt.Generator, node *snowflake.Node, cfg config.Config, tracer trace.Tracer, logger *zap.Logger) (*AuthService, error) {
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	if cfg.PasswordMinLength <= 0 {
		cfg.PasswordMinLength = 8
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &AuthService{
		users:     users,
		attempts:  attempts,
		hasher:    hasher,
		jwt:       generator,
		snowflake: node,
		cfg:       cfg,
		logger:    logger,
		tracer:    tracer,
		dummyHash: dummyHash,
	}, nil
}

// Register creates an account and signs the new user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Register")
	defer span.End()

	email := repository.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if err := s.validateRegistration(email, in.Password, name); err != nil {
		return AuthResult{}, err
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return AuthResult{}, newValidationError("Password is too long.")
		}
		span.RecordError(err)
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.users.Create(ctx, domain.User{
		ID:           s.snowflake.Generate().Int64(),
		Email:        email,
		PasswordHash: hashed,
		Name:         name,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return AuthResult{}, ErrEmailAlreadyRegistered
		}
		span.RecordError(err)
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	result, err := s.issue(created)
	if err != nil {
		span.RecordError(err)
		return AuthResult{}, err
	}

	s.audit("password.register.success", "user_id", created.ID)
	return result, nil
}

// Login verifies credentials. Unknown email and wrong password are reported
// with the same error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Login")
	defer span.End()

	email := repository.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return AuthResult{}, newValidationError("Email and password are required.")
	}

	if utf8.RuneCountInString(in.Password) > maxPasswordLength {
		return AuthResult{}, ErrInvalidCredentials
	}

	key := attemptKey(email, in.ClientIP)
	if s.lockedOut(ctx, key) {
		s.audit("password.login.locked", "email", email, "client_ip", in.ClientIP)
		return AuthResult{}, ErrTooManyAttempts
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			span.RecordError(err)
			return AuthResult{}, fmt.Errorf("load user: %w", err)
		}
		_, _ = s.hasher.Verify(in.Password, s.dummyHash)
		s.recordFailure(ctx, key)
		return AuthResult{}, ErrInvalidCredentials
	}

	valid, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		s.log().Warn("stored password hash is unusable", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	if err != nil || !valid {
		span.RecordError(fmt.Errorf("invalid password"))
		s.recordFailure(ctx, key)
		return AuthResult{}, ErrInvalidCredentials
	}

	s.resetFailures(ctx, key)

	result, err := s.issue(user)
	if err != nil {
		span.RecordError(err)
		return AuthResult{}, err
	}

	s.audit("password.login.success", "user_id", user.ID)
	return result, nil
}

// GetCurrentUser loads the user behind a verified identity.
func (s *AuthService) GetCurrentUser(ctx context.Context, userID int64) (UserViewModel, error) {
	ctx, span := s.startSpan(ctx, "AuthService.GetCurrentUser")
	defer span.End()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return UserViewModel{}, ErrNotFound
		}
		span.RecordError(err)
		return UserViewModel{}, fmt.Errorf("load user: %w", err)
	}
	return newUserViewModel(user), nil
}

// Authenticate verifies a bearer token. Every failure is ErrUnauthenticated;
// the specific cause is only logged.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	_, span := s.startSpan(ctx, "AuthService.Authenticate")
	defer span.End()

	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		span.RecordError(err)
		s.log().Debug("access token rejected", zap.String("reason", tokenFailureReason(err)), zap.Error(err))
		return domain.Identity{}, ErrUnauthenticated.withCause(err)
	}

	return domain.Identity{
		UserID:    claims.UserID,
		TokenID:   claims.TokenID,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

func (s *AuthService) issue(user domain.User) (AuthResult, error) {
	token, expiresAt, err := s.jwt.GenerateAccessToken(user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}
	return AuthResult{
		User:      newUserViewModel(user),
		AuthToken: token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *AuthService) validateRegistration(email, pw, name string) error {
	switch {
	case email == "":
		return newValidationError("Email is required.")
	case len(email) > maxEmailLength || !validEmail(email):
		return newValidationError("Please provide a valid email address.")
	case pw == "":
		return newValidationError("Password is required.")
	case utf8.RuneCountInString(pw) < s.cfg.PasswordMinLength:
		return newValidationError(fmt.Sprintf("Password must be at least %d characters.", s.cfg.PasswordMinLength))
	case utf8.RuneCountInString(pw) > maxPasswordLength:
		return newValidationError(fmt.Sprintf("Password must be at most %d characters.", maxPasswordLength))
	case name == "":
		return newValidationError("Name is required.")
	case utf8.RuneCountInString(name) > maxNameLength:
		return newValidationError(fmt.Sprintf("Name must be at most %d characters.", maxNameLength))
	}
	return nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}

func (s *AuthService) lockoutEnabled() bool {
	return s.attempts != nil && s.cfg.LoginMaxAttempts > 0
}

// attemptKey scopes failure counters to an email and client address.
func attemptKey(email, clientIP string) string {
	if clientIP == "" {
		return email
	}
	return email + "|" + clientIP
}

// lockedOut fails open when the attempt store is unavailable.
func (s *AuthService) lockedOut(ctx context.Context, key string) bool {
	if !s.lockoutEnabled() {
		return false
	}
	n, err := s.attempts.Failures(ctx, key)
	if err != nil {
		s.log().Warn("login attempt lookup failed", zap.Error(err))
		return false
	}
	return n >= s.cfg.LoginMaxAttempts
}

func (s *AuthService) recordFailure(ctx context.Context, key string) {
	if !s.lockoutEnabled() {
		return
	}
	if _, err := s.attempts.RecordFailure(ctx, key, s.cfg.LoginLockoutWindow); err != nil {
		s.log().Warn("record login failure", zap.Error(err))
	}
}

func (s *AuthService) resetFailures(ctx context.Context, key string) {
	if !s.lockoutEnabled() {
		return
	}
	if err := s.attempts.Reset(ctx, key); err != nil {
		s.log().Warn("reset login failures", zap.Error(err))
	}
}

func tokenFailureReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return "expired"
	case errors.Is(err, jwt.ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, jwt.ErrMalformed):
		return "malformed"
	default:
		return "unknown"
	}
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *AuthService) audit(event string, attrs ...any) {
	logger := s.log()
	if logger == nil {
		return
	}
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", time.Now().UTC()))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	logger.Info("audit", fields...)
}

func (s *AuthService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}
