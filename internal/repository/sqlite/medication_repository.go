package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"medsbuddy/internal/domain"
	"medsbuddy/internal/repository"
)

const selectMedication = `
SELECT id, user_id, name, dosage, frequency, times, notes, created_at
FROM medications`

type MedicationRepository struct {
	db *sql.DB
}

func NewMedicationRepository(db *sql.DB) repository.MedicationRepository {
	return &MedicationRepository{db: db}
}

func (r *MedicationRepository) Create(ctx context.Context, med *domain.Medication) (int64, error) {
	if med.CreatedAt.IsZero() {
		med.CreatedAt = time.Now().UTC()
	}

	times, err := encodeTimes(med.Times)
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO medications (user_id, name, dosage, frequency, times, notes, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		med.UserID,
		med.Name,
		med.Dosage,
		med.Frequency,
		times,
		nullString(med.Notes),
		med.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert medication: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("medication last insert id: %w", err)
	}
	med.ID = id
	return id, nil
}

func (r *MedicationRepository) Get(ctx context.Context, id int64) (*domain.Medication, error) {
	return scanMedication(r.db.QueryRowContext(ctx, selectMedication+` WHERE id = ?`, id))
}

func (r *MedicationRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Medication, error) {
	rows, err := r.db.QueryContext(ctx, selectMedication+` WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query medications: %w", err)
	}
	defer rows.Close()

	meds := []domain.Medication{}
	for rows.Next() {
		med, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		meds = append(meds, *med)
	}
	return meds, rows.Err()
}

func (r *MedicationRepository) Update(ctx context.Context, id int64, patch domain.MedicationPatch) (*domain.Medication, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // safe no-op on commit

	med, err := scanMedication(tx.QueryRowContext(ctx, selectMedication+` WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	patch.Apply(med)

	times, err := encodeTimes(med.Times)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE medications
SET name=?, dosage=?, frequency=?, times=?, notes=?
WHERE id=?`,
		med.Name,
		med.Dosage,
		med.Frequency,
		times,
		nullString(med.Notes),
		id,
	); err != nil {
		return nil, fmt.Errorf("update medication: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit medication update: %w", err)
	}
	return med, nil
}

func (r *MedicationRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM medication_logs WHERE medication_id=?`, id); err != nil {
		return fmt.Errorf("delete medication logs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM medications WHERE id=?`, id); err != nil {
		return fmt.Errorf("delete medication: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit medication delete: %w", err)
	}
	return nil
}

func scanMedication(scanner interface {
	Scan(dest ...any) error
}) (*domain.Medication, error) {
	var (
		med   domain.Medication
		times sql.NullString
		notes sql.NullString
	)
	if err := scanner.Scan(
		&med.ID,
		&med.UserID,
		&med.Name,
		&med.Dosage,
		&med.Frequency,
		&times,
		&notes,
		&med.CreatedAt,
	); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("medication: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan medication: %w", err)
	}

	if times.Valid && times.String != "" {
		if err := json.Unmarshal([]byte(times.String), &med.Times); err != nil {
			return nil, fmt.Errorf("decode medication %d times: %w", med.ID, err)
		}
	}
	if notes.Valid {
		v := notes.String
		med.Notes = &v
	}
	med.CreatedAt = med.CreatedAt.UTC()
	return &med, nil
}

// encodeTimes serializes the time labels as JSON text; nil stays NULL.
func encodeTimes(times []string) (any, error) {
	if times == nil {
		return nil, nil
	}
	raw, err := json.Marshal(times)
	if err != nil {
		return nil, fmt.Errorf("encode medication times: %w", err)
	}
	return string(raw), nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
