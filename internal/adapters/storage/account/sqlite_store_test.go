package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"clubhouse/internal/adapters/storage"
	store "clubhouse/internal/adapters/storage/account"
	"clubhouse/internal/adapters/storage/storagetest"
	domain "clubhouse/internal/domain/account"
	"clubhouse/internal/domain/failure"
)

func newAccount(id, email, name, role string, created time.Time) domain.Account {
	return domain.Account{
		ID:               id,
		Email:            email,
		DisplayName:      name,
		Role:             role,
		MembershipStatus: domain.MembershipNone,
		CreatedAt:        created,
	}
}

func TestSQLiteStore_CreateGetSave(t *testing.T) {
	db := storagetest.OpenDB(t)
	s := store.NewSQLiteStore(db)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newAccount("a1", " Ana@Example.com", "Ana", domain.RoleAthlete, storagetest.Epoch)))

	got, err := s.GetByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	require.Equal(t, "a1", got.ID)
	require.Equal(t, "ana@example.com", got.Email)
	require.True(t, got.LockedUntil.IsZero())

	err = s.Create(ctx, newAccount("a2", "ana@example.com", "", domain.RoleAthlete, storagetest.Epoch))
	require.ErrorIs(t, err, storage.ErrUniqueViolation)

	got.FailedLogins = 3
	got.LockedUntil = storagetest.Epoch.Add(time.Hour)
	require.NoError(t, s.Save(ctx, got))
	again, err := s.GetByID(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, 3, again.FailedLogins)
	require.True(t, again.LockedUntil.Equal(storagetest.Epoch.Add(time.Hour)))

	require.NoError(t, s.SetMembershipStatus(ctx, "a1", domain.MembershipPending))
	_, err = s.GetByID(ctx, "missing")
	require.ErrorIs(t, err, failure.ErrNotFound)
	require.ErrorIs(t, s.SetMembershipStatus(ctx, "missing", domain.MembershipActive), failure.ErrNotFound)
}

func TestSQLiteStore_ListFilters(t *testing.T) {
	db := storagetest.OpenDB(t)
	s := store.NewSQLiteStore(db)
	ctx := context.Background()

	for i, a := range []domain.Account{
		newAccount("a1", "carol@example.com", "Carol Coach", domain.RoleCoach, storagetest.Epoch),
		newAccount("a2", "bea@example.com", "Bea Athlete", domain.RoleAthlete, storagetest.Epoch),
		newAccount("a3", "adam@example.com", "Adam Smith", domain.RoleAthlete, storagetest.Epoch),
	} {
		a.CreatedAt = a.CreatedAt.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Create(ctx, a))
	}

	ids := func(accts []domain.Account) []string {
		out := make([]string, 0, len(accts))
		for _, a := range accts {
			out = append(out, a.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter store.ListFilter
		want   []string
		total  int
	}{
		{"default newest first", store.ListFilter{}, []string{"a3", "a2", "a1"}, 3},
		{"by role", store.ListFilter{Role: domain.RoleAthlete}, []string{"a3", "a2"}, 2},
		{"search display name", store.ListFilter{Search: "SMITH"}, []string{"a3"}, 1},
		{"search email", store.ListFilter{Search: "bea@"}, []string{"a2"}, 1},
		{"sort by email", store.ListFilter{Sort: "email"}, []string{"a3", "a2", "a1"}, 3},
		{"sort by email desc", store.ListFilter{Sort: "email", Desc: true}, []string{"a1", "a2", "a3"}, 3},
		{"paged", store.ListFilter{Sort: "created_at", Limit: 1, Offset: 1}, []string{"a2"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.filter)
			require.NoError(t, err)
			require.Equal(t, tt.want, ids(got))

			n, err := s.CountMatching(ctx, tt.filter)
			require.NoError(t, err)
			require.Equal(t, tt.total, n)
		})
	}

	n, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}
