package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"medsbuddy/internal/adherence"
	"medsbuddy/internal/cache"
	"medsbuddy/internal/domain"
	"medsbuddy/internal/repository"
)

// DefaultReportTTL bounds how long a cached adherence report is served.
const DefaultReportTTL = 10 * time.Minute

// MedicationInput is the data needed to add a medication.
type MedicationInput struct {
	Name      string
	Dosage    string
	Frequency string
	Times     []string
	Notes     *string
}

// MedicationService covers medication management, dose logging and adherence
// reporting for the acting user. Every operation is scoped to userID.
type MedicationService interface {
	List(ctx context.Context, userID int64) ([]domain.Medication, error)
	Get(ctx context.Context, userID, id int64) (*domain.Medication, error)
	Create(ctx context.Context, userID int64, in MedicationInput) (*domain.Medication, error)
	Update(ctx context.Context, userID, id int64, patch domain.MedicationPatch) (*domain.Medication, error)
	Delete(ctx context.Context, userID, id int64) error
	MarkTaken(ctx context.Context, userID, id int64) (*domain.MedicationLog, error)
	ListLogs(ctx context.Context, userID int64, startDate, endDate string) ([]domain.MedicationLog, error)
	Adherence(ctx context.Context, userID int64) (adherence.Report, error)
}

// Option customizes a MedicationService.
type Option func(*medicationService)

// WithClock replaces the wall clock used for "today" and takenAt.
func WithClock(now func() time.Time) Option {
	return func(s *medicationService) { s.now = now }
}

// WithReportTTL sets how long adherence reports stay cached.
func WithReportTTL(ttl time.Duration) Option {
	return func(s *medicationService) {
		if ttl > 0 {
			s.reportTTL = ttl
		}
	}
}

type medicationService struct {
	meds      repository.MedicationRepository
	logs      repository.MedicationLogRepository
	cache     cache.Cache
	logger    logrus.FieldLogger
	now       func() time.Time
	reportTTL time.Duration
}

func NewMedicationService(meds repository.MedicationRepository, logs repository.MedicationLogRepository, reports cache.Cache, logger logrus.FieldLogger, opts ...Option) MedicationService {
	if reports == nil {
		reports = cache.Nop{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &medicationService{
		meds:      meds,
		logs:      logs,
		cache:     reports,
		logger:    logger,
		now:       time.Now,
		reportTTL: DefaultReportTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *medicationService) List(ctx context.Context, userID int64) ([]domain.Medication, error) {
	meds, err := s.meds.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	return meds, nil
}

func (s *medicationService) Get(ctx context.Context, userID, id int64) (*domain.Medication, error) {
	return s.owned(ctx, userID, id)
}

func (s *medicationService) Create(ctx context.Context, userID int64, in MedicationInput) (*domain.Medication, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Dosage = strings.TrimSpace(in.Dosage)
	in.Frequency = strings.TrimSpace(in.Frequency)

	var verr ValidationError
	if in.Name == "" {
		verr.Fields = append(verr.Fields, FieldError{Field: "name", Message: "name is required"})
	}
	if in.Dosage == "" {
		verr.Fields = append(verr.Fields, FieldError{Field: "dosage", Message: "dosage is required"})
	}
	if in.Frequency == "" {
		verr.Fields = append(verr.Fields, FieldError{Field: "frequency", Message: "frequency is required"})
	}
	if len(verr.Fields) > 0 {
		return nil, &verr
	}

	med := &domain.Medication{
		UserID:    userID,
		Name:      in.Name,
		Dosage:    in.Dosage,
		Frequency: in.Frequency,
		Times:     in.Times,
		Notes:     in.Notes,
		CreatedAt: s.now().UTC(),
	}
	if _, err := s.meds.Create(ctx, med); err != nil {
		return nil, fmt.Errorf("create medication: %w", err)
	}

	s.invalidateReport(ctx, userID)
	return med, nil
}

func (s *medicationService) Update(ctx context.Context, userID, id int64, patch domain.MedicationPatch) (*domain.Medication, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}

	required := []struct {
		field string
		value *string
	}{
		{"name", patch.Name},
		{"dosage", patch.Dosage},
		{"frequency", patch.Frequency},
	}
	for _, r := range required {
		if r.value != nil && strings.TrimSpace(*r.value) == "" {
			return nil, invalid(r.field, r.field+" must not be empty")
		}
	}
	if patch.Empty() {
		return nil, invalid("body", "no fields to update")
	}

	med, err := s.meds.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMedicationNotFound
		}
		return nil, fmt.Errorf("update medication: %w", err)
	}

	s.invalidateReport(ctx, userID)
	return med, nil
}

func (s *medicationService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.meds.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete medication: %w", err)
	}

	s.invalidateReport(ctx, userID)
	return nil
}

func (s *medicationService) MarkTaken(ctx context.Context, userID, id int64) (*domain.MedicationLog, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	today := domain.DateOf(now)

	existing, err := s.logs.ListForDate(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("list logs for %s: %w", today, err)
	}
	for _, l := range existing {
		if l.MedicationID == id {
			return nil, ErrAlreadyMarked
		}
	}

	log := &domain.MedicationLog{
		MedicationID: id,
		UserID:       userID,
		TakenAt:      now,
		ScheduledFor: today,
		CreatedAt:    now,
	}
	if _, err := s.logs.Create(ctx, log); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyMarked
		}
		return nil, fmt.Errorf("create medication log: %w", err)
	}

	s.invalidateReport(ctx, userID)
	return log, nil
}

func (s *medicationService) ListLogs(ctx context.Context, userID int64, startDate, endDate string) ([]domain.MedicationLog, error) {
	start, err := domain.ParseDate(startDate)
	if err != nil {
		return nil, invalid("startDate", "startDate must be a YYYY-MM-DD date")
	}
	end, err := domain.ParseDate(endDate)
	if err != nil {
		return nil, invalid("endDate", "endDate must be a YYYY-MM-DD date")
	}
	if start.After(end) {
		return nil, invalid("startDate", "startDate must not be after endDate")
	}

	logs, err := s.logs.List(ctx, userID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("list medication logs: %w", err)
	}
	return logs, nil
}

func (s *medicationService) Adherence(ctx context.Context, userID int64) (adherence.Report, error) {
	now := s.now().UTC()
	start, end := adherence.Window(now)
	key := cache.AdherenceKey(userID, end)

	var cached adherence.Report
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("read cached adherence report")
	} else if hit {
		return cached, nil
	}

	meds, err := s.meds.ListByUser(ctx, userID)
	if err != nil {
		return adherence.Report{}, fmt.Errorf("list medications: %w", err)
	}
	logs, err := s.logs.List(ctx, userID, start, end)
	if err != nil {
		return adherence.Report{}, fmt.Errorf("list medication logs: %w", err)
	}

	report := adherence.Build(now, len(meds), len(logs))
	if err := s.cache.Set(ctx, key, report, s.reportTTL); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("cache adherence report")
	}
	return report, nil
}

// owned loads a medication and hides it unless userID owns it.
func (s *medicationService) owned(ctx context.Context, userID, id int64) (*domain.Medication, error) {
	med, err := s.meds.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMedicationNotFound
		}
		return nil, fmt.Errorf("get medication: %w", err)
	}
	if med.UserID != userID {
		return nil, ErrMedicationNotFound
	}
	return med, nil
}

func (s *medicationService) invalidateReport(ctx context.Context, userID int64) {
	key := cache.AdherenceKey(userID, domain.DateOf(s.now()))
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("invalidate adherence report")
	}
}
