package repository_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/fintrack-auth/internal/domain"
	"github.com/smallbiznis/fintrack-auth/internal/repository"
)

// runUserRepositoryContract exercises behaviour every driver must share.
func runUserRepositoryContract(t *testing.T, repo repository.UserRepository) {
	t.Helper()
	ctx := context.Background()

	t.Run("create normalizes email and looks up both ways", func(t *testing.T) {
		created, err := repo.Create(ctx, domain.User{
			ID:           101,
			Email:        "  Test@Example.com ",
			PasswordHash: "hash",
			Name:         "Test User",
			CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		})
		require.NoError(t, err)
		require.Equal(t, "test@example.com", created.Email)

		byEmail, err := repo.GetByEmail(ctx, "TEST@example.COM")
		require.NoError(t, err)
		require.Equal(t, int64(101), byEmail.ID)
		require.Equal(t, "hash", byEmail.PasswordHash)
		require.Equal(t, "Test User", byEmail.Name)
		require.True(t, byEmail.CreatedAt.Equal(created.CreatedAt))

		byID, err := repo.GetByID(ctx, 101)
		require.NoError(t, err)
		require.Equal(t, "test@example.com", byID.Email)
	})

	t.Run("duplicate email differing only in case is rejected", func(t *testing.T) {
		_, err := repo.Create(ctx, domain.User{ID: 102, Email: "dup@example.com", PasswordHash: "h", Name: "A"})
		require.NoError(t, err)

		_, err = repo.Create(ctx, domain.User{ID: 103, Email: "DUP@example.com", PasswordHash: "h", Name: "B"})
		require.ErrorIs(t, err, repository.ErrDuplicateEmail)

		_, err = repo.GetByID(ctx, 103)
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("missing users report ErrNotFound", func(t *testing.T) {
		_, err := repo.GetByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, repository.ErrNotFound)

		_, err = repo.GetByID(ctx, 999999)
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("concurrent creates with the same email admit exactly one", func(t *testing.T) {
		const workers = 8
		var (
			wg         sync.WaitGroup
			successes  atomic.Int32
			duplicates atomic.Int32
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := repo.Create(ctx, domain.User{
					ID:           int64(200 + i),
					Email:        "race@example.com",
					PasswordHash: "h",
					Name:         "Racer",
				})
				switch {
				case err == nil:
					successes.Add(1)
				case errors.Is(err, repository.ErrDuplicateEmail):
					duplicates.Add(1)
				}
			}(i)
		}
		wg.Wait()

		require.Equal(t, int32(1), successes.Load())
		require.Equal(t, int32(workers-1), duplicates.Load())
	})
}
