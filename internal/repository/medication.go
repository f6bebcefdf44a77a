package repository

import (
	"context"

	"medsbuddy/internal/domain"
)

// MedicationRepository exposes persistence operations for medications.
// Implementations are identity-agnostic; ownership is checked by callers.
type MedicationRepository interface {
	Create(ctx context.Context, med *domain.Medication) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Medication, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Medication, error)
	Update(ctx context.Context, id int64, patch domain.MedicationPatch) (*domain.Medication, error)
	// Delete removes the medication and its logs. Missing ids are not an error.
	Delete(ctx context.Context, id int64) error
}

// MedicationLogRepository manages taken-dose records.
type MedicationLogRepository interface {
	Create(ctx context.Context, log *domain.MedicationLog) (int64, error)
	// List returns the user's logs. When both startDate and endDate are set the
	// result is limited to scheduled days in [startDate, endDate].
	List(ctx context.Context, userID int64, startDate, endDate string) ([]domain.MedicationLog, error)
	ListForDate(ctx context.Context, userID int64, date string) ([]domain.MedicationLog, error)
}
