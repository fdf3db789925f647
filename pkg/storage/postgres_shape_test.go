package storage_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightlane/agencyhub/pkg/domain"
	"github.com/brightlane/agencyhub/pkg/storage"
)

// These tests pin the postgres query shapes: predicate fragments must be
// rebound to numbered placeholders and spliced after the id equality, so
// detail visibility uses exactly the listing predicate.

func newMockStore(t *testing.T) (*storage.SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return storage.NewSQLStore(db), mock
}

func TestMatchesScopeQueryShape(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM tasks WHERE id = \$1 AND \(campaign_id = \$2\)\)`).
		WithArgs(int64(42), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	visible, err := s.MatchesScope(context.Background(), domain.EntityTask, 42, storage.Where("campaign_id = ?", int64(7)))
	require.NoError(t, err)
	assert.True(t, visible)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchesScopeShortCircuitsWithoutQuery(t *testing.T) {
	s, mock := newMockStore(t)

	visible, err := s.MatchesScope(context.Background(), domain.EntityTask, 42, storage.All())
	require.NoError(t, err)
	assert.True(t, visible)

	visible, err = s.MatchesScope(context.Background(), domain.EntityTask, 42, storage.None())
	require.NoError(t, err)
	assert.False(t, visible)

	// Neither case may touch the database.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMapsZeroRowsToNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM approval_requests WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Delete(context.Background(), domain.EntityApproval, 9)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailLookupIsCaseInsensitiveInSQL(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`LOWER\(email\) = LOWER\(\$1\)`).
		WithArgs("Acme@X.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "company", "phone", "created_at", "updated_at"}))

	client, err := s.ClientByEmail(context.Background(), "Acme@X.com")
	require.NoError(t, err)
	assert.Nil(t, client)
	assert.NoError(t, mock.ExpectationsWereMet())
}
