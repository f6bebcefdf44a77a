package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medsbuddy/internal/domain"
	"medsbuddy/internal/repository"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func createUser(t *testing.T, repo repository.UserRepository, username, email string) *domain.User {
	t.Helper()

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "First",
		LastName:     "Last",
		Role:         domain.RolePatient,
	}
	_, err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	return user
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(context.Background(), db))
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))

	user := createUser(t, repo, "alice", "alice@example.com")
	assert.Positive(t, user.ID)

	got, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Equal(t, domain.RolePatient, got.Role)
	assert.WithinDuration(t, user.CreatedAt, got.CreatedAt, time.Second)

	got, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.GetByID(ctx, 404)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepositoryUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))
	createUser(t, repo, "alice", "alice@example.com")

	_, err := repo.Create(ctx, &domain.User{
		Username: "alice2", Email: "alice@example.com", PasswordHash: "h",
		FirstName: "A", LastName: "B", Role: domain.RolePatient,
	})
	var conflict *repository.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "email", conflict.Field)
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = repo.Create(ctx, &domain.User{
		Username: "alice", Email: "other@example.com", PasswordHash: "h",
		FirstName: "A", LastName: "B", Role: domain.RoleCaretaker,
	})
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "username", conflict.Field)
}

func TestMedicationRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	user := createUser(t, NewUserRepository(db), "alice", "alice@example.com")
	repo := NewMedicationRepository(db)

	notes := "with food"
	med := &domain.Medication{
		UserID: user.ID, Name: "Aspirin", Dosage: "100mg", Frequency: "once_daily",
		Times: []string{"08:00", "20:00"}, Notes: &notes,
	}
	_, err := repo.Create(ctx, med)
	require.NoError(t, err)

	bare := &domain.Medication{UserID: user.ID, Name: "Vitamin D", Dosage: "1000IU", Frequency: "weekly"}
	_, err = repo.Create(ctx, bare)
	require.NoError(t, err)

	got, err := repo.Get(ctx, med.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "20:00"}, got.Times)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "with food", *got.Notes)

	got, err = repo.Get(ctx, bare.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Times)
	assert.Nil(t, got.Notes)

	list, err := repo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, med.ID, list[0].ID)

	other, err := repo.ListByUser(ctx, user.ID+1)
	require.NoError(t, err)
	assert.Empty(t, other)

	name := "Aspirin EC"
	times := []string{"09:00"}
	updated, err := repo.Update(ctx, med.ID, domain.MedicationPatch{Name: &name, Times: &times})
	require.NoError(t, err)
	assert.Equal(t, "Aspirin EC", updated.Name)
	assert.Equal(t, "100mg", updated.Dosage)
	assert.Equal(t, []string{"09:00"}, updated.Times)

	_, err = repo.Update(ctx, 999, domain.MedicationPatch{Name: &name})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMedicationDeleteCascadesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	user := createUser(t, NewUserRepository(db), "alice", "alice@example.com")
	meds := NewMedicationRepository(db)
	logs := NewMedicationLogRepository(db)

	med := &domain.Medication{UserID: user.ID, Name: "Aspirin", Dosage: "100mg", Frequency: "once_daily"}
	_, err := meds.Create(ctx, med)
	require.NoError(t, err)
	_, err = logs.Create(ctx, &domain.MedicationLog{
		MedicationID: med.ID, UserID: user.ID, TakenAt: time.Now(), ScheduledFor: "2024-03-01",
	})
	require.NoError(t, err)

	require.NoError(t, meds.Delete(ctx, med.ID))
	require.NoError(t, meds.Delete(ctx, med.ID))

	_, err = meds.Get(ctx, med.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	remaining, err := logs.List(ctx, user.ID, "", "")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestMedicationLogRepositoryRange(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	user := createUser(t, NewUserRepository(db), "alice", "alice@example.com")
	med := &domain.Medication{UserID: user.ID, Name: "Aspirin", Dosage: "100mg", Frequency: "once_daily"}
	_, err := NewMedicationRepository(db).Create(ctx, med)
	require.NoError(t, err)
	repo := NewMedicationLogRepository(db)

	for _, day := range []string{"2024-02-29", "2024-03-01", "2024-03-02", "2024-03-03", "2024-03-04"} {
		_, err := repo.Create(ctx, &domain.MedicationLog{
			MedicationID: med.ID, UserID: user.ID, TakenAt: time.Now(), ScheduledFor: day,
		})
		require.NoError(t, err)
	}

	got, err := repo.List(ctx, user.ID, "2024-03-01", "2024-03-03")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2024-03-01", got[0].ScheduledFor)
	assert.Equal(t, "2024-03-03", got[2].ScheduledFor)

	all, err := repo.List(ctx, user.ID, "2024-03-01", "")
	require.NoError(t, err)
	assert.Len(t, all, 5)

	day, err := repo.ListForDate(ctx, user.ID, "2024-03-02")
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, med.ID, day[0].MedicationID)
}

func TestMedicationLogUniquePerDay(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	user := createUser(t, NewUserRepository(db), "alice", "alice@example.com")
	med := &domain.Medication{UserID: user.ID, Name: "Aspirin", Dosage: "100mg", Frequency: "once_daily"}
	_, err := NewMedicationRepository(db).Create(ctx, med)
	require.NoError(t, err)
	repo := NewMedicationLogRepository(db)

	log := domain.MedicationLog{MedicationID: med.ID, UserID: user.ID, TakenAt: time.Now(), ScheduledFor: "2024-03-01"}
	first := log
	_, err = repo.Create(ctx, &first)
	require.NoError(t, err)

	second := log
	_, err = repo.Create(ctx, &second)
	var conflict *repository.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "user_id,medication_id,scheduled_for", conflict.Field)

	next := log
	next.ScheduledFor = "2024-03-02"
	_, err = repo.Create(ctx, &next)
	require.NoError(t, err)
}
