package storage

import (
	"context"
	"errors"
	"os"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/offerbot/models"
)

func mockOfferRepo(t *testing.T) (*OfferRepo, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return &OfferRepo{db: sqlx.NewDb(mockDB, "postgres")}, mock
}

func TestOfferDeleteRemovesRow(t *testing.T) {
	repo, mock := mockOfferRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM offers WHERE id = $1`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferDeleteMissingIsNotFound(t *testing.T) {
	repo, mock := mockOfferRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM offers WHERE id = $1`)).
		WithArgs(int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 404)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferIncrementStatsMissingIsNotFound(t *testing.T) {
	repo, mock := mockOfferRepo(t)

	mock.ExpectExec("UPDATE offers").
		WithArgs(int64(404), true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.IncrementStats(context.Background(), 404, true)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

// Deleting an offer must take its submissions with it; the repository
// relies on the schema's foreign key for that.
func TestSubmissionsCascadeOnOfferDelete(t *testing.T) {
	ddl, err := os.ReadFile("../migrations/000001_init.up.sql")
	require.NoError(t, err)

	assert.Regexp(t,
		regexp.MustCompile(`offer_id\s+BIGINT\s+NOT NULL\s+REFERENCES offers \(id\) ON DELETE CASCADE`),
		string(ddl))
}
