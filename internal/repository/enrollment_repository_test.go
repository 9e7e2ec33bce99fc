package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/narin-dev/lms-analytics-api/pkg/docstore"
)

func TestEnrollmentRepositoryListApproved(t *testing.T) {
	store := docstore.NewMemoryStore()
	store.Put("enrollments", "enr-1", map[string]interface{}{
		"userId": "u1", "courseId": "c1", "status": "approved",
		"userName": "Nok", "userEmail": "nok@example.com",
	})
	store.Put("enrollments", "enr-2", map[string]interface{}{
		"userId": "u2", "courseId": "c1", "status": "pending",
	})
	store.Put("enrollments", "enr-3", map[string]interface{}{
		"userId": "", "courseId": "c1", "status": "approved",
	})

	repo := NewEnrollmentRepository(store)
	enrollments, err := repo.ListApproved(context.Background())
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	require.Equal(t, "u1", enrollments[0].StudentID)
	require.Equal(t, "Nok", enrollments[0].StudentName)
}

func TestEnrollmentRepositoryListApprovedFailure(t *testing.T) {
	store := docstore.NewMemoryStore()
	store.FailPaths["enrollments"] = errors.New("backend down")

	repo := NewEnrollmentRepository(store)
	_, err := repo.ListApproved(context.Background())
	require.Error(t, err)
}

func TestEnrollmentRepositoryMissingNameDefaults(t *testing.T) {
	store := docstore.NewMemoryStore()
	store.Put("enrollments", "enr-1", map[string]interface{}{
		"userId": "u1", "courseId": "c1", "status": "approved",
	})

	repo := NewEnrollmentRepository(store)
	enrollments, err := repo.ListApproved(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Unknown", enrollments[0].StudentName)
	require.Equal(t, "", enrollments[0].StudentEmail)
}
