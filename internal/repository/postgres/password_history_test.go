package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"credcore/internal/repository"
	"credcore/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPasswordHistoryRepository_Record(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()

	user := tc.CreateTestUser("history@example.com", "password123!", false)

	t.Run("success", func(t *testing.T) {
		entry, err := tc.PasswordHistoryRepo.Record(ctx, user.ID, "$2a$10$somehash",
			testutil.String("192.0.2.10"), testutil.String("test-agent"))
		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, entry.ID)
		require.Equal(t, user.ID, entry.UserID)
		require.False(t, entry.CreatedAt.IsZero())
	})

	t.Run("unknown owner", func(t *testing.T) {
		_, err := tc.PasswordHistoryRepo.Record(ctx, uuid.New(), "$2a$10$somehash", nil, nil)
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("nil owner", func(t *testing.T) {
		_, err := tc.PasswordHistoryRepo.Record(ctx, uuid.Nil, "$2a$10$somehash", nil, nil)
		require.ErrorIs(t, err, repository.ErrValidation)
	})

	t.Run("empty hash", func(t *testing.T) {
		_, err := tc.PasswordHistoryRepo.Record(ctx, user.ID, "", nil, nil)
		require.ErrorIs(t, err, repository.ErrValidation)
	})
}

func TestPasswordHistoryRepository_RecentAndTrim(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()

	user := tc.CreateTestUser("trim@example.com", "password123!", false)

	for i := 0; i < 8; i++ {
		_, err := tc.PasswordHistoryRepo.Record(ctx, user.ID,
			fmt.Sprintf("$2a$10$hashnumber%02d", i), nil, nil)
		require.NoError(t, err)
	}

	t.Run("recent newest first", func(t *testing.T) {
		entries, err := tc.PasswordHistoryRepo.Recent(ctx, user.ID, 3)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		for i := 1; i < len(entries); i++ {
			require.False(t, entries[i].CreatedAt.After(entries[i-1].CreatedAt))
		}
	})

	t.Run("invalid count", func(t *testing.T) {
		_, err := tc.PasswordHistoryRepo.Recent(ctx, user.ID, 0)
		require.ErrorIs(t, err, repository.ErrValidation)
	})

	t.Run("trim keeps newest", func(t *testing.T) {
		removed, err := tc.PasswordHistoryRepo.Trim(ctx, user.ID, repository.PasswordHistoryKeep)
		require.NoError(t, err)
		require.EqualValues(t, 3, removed)

		entries, err := tc.PasswordHistoryRepo.Recent(ctx, user.ID, 100)
		require.NoError(t, err)
		require.Len(t, entries, repository.PasswordHistoryKeep)
	})

	t.Run("trim idempotent", func(t *testing.T) {
		removed, err := tc.PasswordHistoryRepo.Trim(ctx, user.ID, repository.PasswordHistoryKeep)
		require.NoError(t, err)
		require.Zero(t, removed)
	})

	t.Run("purge", func(t *testing.T) {
		removed, err := tc.PasswordHistoryRepo.Purge(ctx, user.ID)
		require.NoError(t, err)
		require.EqualValues(t, repository.PasswordHistoryKeep, removed)

		entries, err := tc.PasswordHistoryRepo.Recent(ctx, user.ID, 100)
		require.NoError(t, err)
		require.Empty(t, entries)
	})
}

func TestPasswordHistoryRepository_CascadeOnHardDelete(t *testing.T) {
	tc := testutil.NewTestContext(t)
	ctx := context.Background()

	user := tc.CreateTestUser("cascade@example.com", "password123!", false)
	_, err := tc.PasswordHistoryRepo.Record(ctx, user.ID, "$2a$10$somehash", nil, nil)
	require.NoError(t, err)

	_, err = tc.DB.ExecContext(ctx, "DELETE FROM users WHERE id = $1", user.ID)
	require.NoError(t, err)

	entries, err := tc.PasswordHistoryRepo.Recent(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}
