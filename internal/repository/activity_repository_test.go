package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/narin-dev/lms-analytics-api/pkg/docstore"
)

func TestActivityRepositoryListWindow(t *testing.T) {
	store := docstore.NewMemoryStore()
	store.Put("users/u1/activity", "2026-08-28", map[string]interface{}{"lessonsCompleted": 3.0})
	store.Put("users/u1/activity", "2026-08-29", map[string]interface{}{"lessonsCompleted": "2"})
	store.Put("users/u1/activity", "2026-01-01", map[string]interface{}{"lessonsCompleted": 9.0})

	window := map[string]struct{}{
		"2026-08-28": {},
		"2026-08-29": {},
	}

	repo := NewActivityRepository(store)
	days, err := repo.ListWindow(context.Background(), "u1", window)
	require.NoError(t, err)
	require.Len(t, days, 2)
	require.Equal(t, 3, days[0].LessonsCompleted)
	require.Equal(t, 2, days[1].LessonsCompleted)
}

func TestActivityRepositoryMissingCounterDefaultsZero(t *testing.T) {
	store := docstore.NewMemoryStore()
	store.Put("users/u1/activity", "2026-08-29", map[string]interface{}{})

	repo := NewActivityRepository(store)
	days, err := repo.ListWindow(context.Background(), "u1", map[string]struct{}{"2026-08-29": {}})
	require.NoError(t, err)
	require.Len(t, days, 1)
	require.Equal(t, 0, days[0].LessonsCompleted)
}
