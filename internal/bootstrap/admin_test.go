package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/fintrack-auth/internal/config"
	"github.com/smallbiznis/fintrack-auth/internal/service"
)

type fakeRegistrar struct {
	calls int
	seen  map[string]bool
}

func (f *fakeRegistrar) Register(_ context.Context, in service.RegisterInput) (service.AuthResult, error) {
	f.calls++
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[in.Email] {
		return service.AuthResult{}, service.ErrEmailAlreadyRegistered
	}
	f.seen[in.Email] = true
	return service.AuthResult{User: service.UserViewModel{ID: 1, Email: in.Email, Name: in.Name}}, nil
}

func TestAdminSkippedWithoutEmail(t *testing.T) {
	reg := &fakeRegistrar{}
	require.NoError(t, ensureAdmin(context.Background(), config.Config{}, reg, zap.NewNop()))
	require.Zero(t, reg.calls)
}

func TestAdminIsIdempotent(t *testing.T) {
	reg := &fakeRegistrar{}
	cfg := config.Config{AdminEmail: "admin@fintrack.test", AdminPassword: "admin-password"}

	require.NoError(t, ensureAdmin(context.Background(), cfg, reg, zap.NewNop()))
	require.NoError(t, ensureAdmin(context.Background(), cfg, reg, zap.NewNop()))
	require.Equal(t, 2, reg.calls)
}

func TestAdminRequiresPassword(t *testing.T) {
	reg := &fakeRegistrar{}
	err := ensureAdmin(context.Background(), config.Config{AdminEmail: "admin@fintrack.test"}, reg, zap.NewNop())
	require.Error(t, err)
	require.Zero(t, reg.calls)
}
