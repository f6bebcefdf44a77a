package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"medsbuddy/internal/domain"
	"medsbuddy/internal/repository"
)

const selectMedicationLog = `
SELECT id, medication_id, user_id, taken_at, scheduled_for, created_at
FROM medication_logs`

type MedicationLogRepository struct {
	db *sql.DB
}

func NewMedicationLogRepository(db *sql.DB) repository.MedicationLogRepository {
	return &MedicationLogRepository{db: db}
}

func (r *MedicationLogRepository) Create(ctx context.Context, log *domain.MedicationLog) (int64, error) {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO medication_logs (medication_id, user_id, taken_at, scheduled_for, created_at)
VALUES (?, ?, ?, ?, ?)`,
		log.MedicationID,
		log.UserID,
		log.TakenAt.UTC(),
		log.ScheduledFor,
		log.CreatedAt.UTC(),
	)
	if err != nil {
		if conflict := conflictFrom(err); conflict != nil {
			return 0, conflict
		}
		return 0, fmt.Errorf("insert medication log: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("medication log last insert id: %w", err)
	}
	log.ID = id
	return id, nil
}

func (r *MedicationLogRepository) List(ctx context.Context, userID int64, startDate, endDate string) ([]domain.MedicationLog, error) {
	if startDate != "" && endDate != "" {
		return r.query(ctx, selectMedicationLog+`
WHERE user_id = ? AND scheduled_for >= ? AND scheduled_for <= ?
ORDER BY scheduled_for ASC, id ASC`, userID, startDate, endDate)
	}
	return r.query(ctx, selectMedicationLog+`
WHERE user_id = ?
ORDER BY scheduled_for ASC, id ASC`, userID)
}

func (r *MedicationLogRepository) ListForDate(ctx context.Context, userID int64, date string) ([]domain.MedicationLog, error) {
	return r.query(ctx, selectMedicationLog+`
WHERE user_id = ? AND scheduled_for = ?
ORDER BY id ASC`, userID, date)
}

func (r *MedicationLogRepository) query(ctx context.Context, query string, args ...any) ([]domain.MedicationLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query medication logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.MedicationLog{}
	for rows.Next() {
		var log domain.MedicationLog
		if err := rows.Scan(
			&log.ID,
			&log.MedicationID,
			&log.UserID,
			&log.TakenAt,
			&log.ScheduledFor,
			&log.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan medication log: %w", err)
		}
		log.TakenAt = log.TakenAt.UTC()
		log.CreatedAt = log.CreatedAt.UTC()
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
