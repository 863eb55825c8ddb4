// Package bootstrap seeds data the service expects on first start.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/fintrack-auth/internal/config"
	"github.com/smallbiznis/fintrack-auth/internal/service"
)

type registrar interface {
	Register(ctx context.Context, in service.RegisterInput) (service.AuthResult, error)
}

// EnsureAdmin creates the configured admin account on start if it is missing.
func EnsureAdmin(lc fx.Lifecycle, cfg config.Config, auth *service.AuthService, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ensureAdmin(ctx, cfg, auth, logger)
		},
	})
}

// ensureAdmin is a no-op when no admin email is configured.
func ensureAdmin(ctx context.Context, cfg config.Config, auth registrar, logger *zap.Logger) error {
	if cfg.AdminEmail == "" {
		return nil
	}
	if cfg.AdminPassword == "" {
		return fmt.Errorf("admin bootstrap missing required config")
	}

	name := cfg.AdminName
	if name == "" {
		name = "Admin"
	}

	created, err := auth.Register(ctx, service.RegisterInput{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Name:     name,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailAlreadyRegistered) {
			return nil
		}
		return fmt.Errorf("bootstrap create admin: %w", err)
	}

	if logger != nil {
		logger.Info("bootstrap admin user created",
			zap.String("email", created.User.Email),
			zap.Int64("user_id", created.User.ID),
		)
	}
	return nil
}
