package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medsbuddy/internal/domain"
	"medsbuddy/internal/repository"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestUserGetByIDWrapsDriverError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`(?s)SELECT .* FROM users\s+WHERE id = \?`).
		WithArgs(int64(7)).
		WillReturnError(errors.New("db down"))

	_, err := NewUserRepository(db).GetByID(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan user: db down")
	assert.NotErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMedicationListWrapsQueryError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`(?s)SELECT .* FROM medications\s+WHERE user_id = \?`).
		WillReturnError(errors.New("disk I/O error"))

	_, err := NewMedicationRepository(db).ListByUser(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query medications: disk I/O error")
}

func TestMedicationDeleteRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM medication_logs WHERE medication_id=\?`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM medications WHERE id=\?`).
		WithArgs(int64(3)).
		WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	err := NewMedicationRepository(db).Delete(context.Background(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete medication: locked")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMedicationLogCreateMapsUniqueViolation(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO medication_logs`).
		WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: medication_logs.user_id, medication_logs.medication_id, medication_logs.scheduled_for (2067)"))

	_, err := NewMedicationLogRepository(db).Create(context.Background(), &domain.MedicationLog{
		MedicationID: 1, UserID: 1, ScheduledFor: "2024-03-01",
	})
	var conflict *repository.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "user_id,medication_id,scheduled_for", conflict.Field)
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestConflictFrom(t *testing.T) {
	assert.Nil(t, conflictFrom(nil))
	assert.Nil(t, conflictFrom(errors.New("no such table: users")))

	err := conflictFrom(errors.New("UNIQUE constraint failed: users.email"))
	var conflict *repository.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "email", conflict.Field)
}
