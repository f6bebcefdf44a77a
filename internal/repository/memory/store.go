// Package memory keeps every entity in process memory. It enforces the same
// uniqueness rules as the sqlite schema and is selected with database.driver=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"medsbuddy/internal/domain"
	"medsbuddy/internal/repository"
)

// Store holds one arena per entity with its own id sequence.
type Store struct {
	mu sync.RWMutex

	users   map[int64]domain.User
	meds    map[int64]domain.Medication
	logs    map[int64]domain.MedicationLog
	nextIDs struct{ user, med, log int64 }
}

func New() *Store {
	return &Store{
		users: make(map[int64]domain.User),
		meds:  make(map[int64]domain.Medication),
		logs:  make(map[int64]domain.MedicationLog),
	}
}

func (s *Store) Users() repository.UserRepository { return &userRepository{s: s} }

func (s *Store) Medications() repository.MedicationRepository { return &medicationRepository{s: s} }

func (s *Store) MedicationLogs() repository.MedicationLogRepository {
	return &medicationLogRepository{s: s}
}

type userRepository struct{ s *Store }

func (r *userRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Username == user.Username {
			return 0, &repository.ConflictError{Field: "username"}
		}
		if existing.Email == user.Email {
			return 0, &repository.ConflictError{Field: "email"}
		}
	}

	r.s.nextIDs.user++
	user.ID = r.s.nextIDs.user
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.s.users[user.ID] = *user
	return user.ID, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id })
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r *userRepository) find(match func(domain.User) bool) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
}

type medicationRepository struct{ s *Store }

func (r *medicationRepository) Create(ctx context.Context, med *domain.Medication) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextIDs.med++
	med.ID = r.s.nextIDs.med
	if med.CreatedAt.IsZero() {
		med.CreatedAt = time.Now().UTC()
	}
	r.s.meds[med.ID] = cloneMedication(*med)
	return med.ID, nil
}

func (r *medicationRepository) Get(ctx context.Context, id int64) (*domain.Medication, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	med, ok := r.s.meds[id]
	if !ok {
		return nil, fmt.Errorf("medication: %w", repository.ErrNotFound)
	}
	out := cloneMedication(med)
	return &out, nil
}

func (r *medicationRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Medication, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	meds := []domain.Medication{}
	for _, med := range r.s.meds {
		if med.UserID == userID {
			meds = append(meds, cloneMedication(med))
		}
	}
	sort.Slice(meds, func(i, j int) bool { return meds[i].ID < meds[j].ID })
	return meds, nil
}

func (r *medicationRepository) Update(ctx context.Context, id int64, patch domain.MedicationPatch) (*domain.Medication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	med, ok := r.s.meds[id]
	if !ok {
		return nil, fmt.Errorf("medication: %w", repository.ErrNotFound)
	}
	patch.Apply(&med)
	r.s.meds[id] = cloneMedication(med)
	out := cloneMedication(med)
	return &out, nil
}

func (r *medicationRepository) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.meds, id)
	for logID, log := range r.s.logs {
		if log.MedicationID == id {
			delete(r.s.logs, logID)
		}
	}
	return nil
}

type medicationLogRepository struct{ s *Store }

func (r *medicationLogRepository) Create(ctx context.Context, log *domain.MedicationLog) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.logs {
		if existing.UserID == log.UserID &&
			existing.MedicationID == log.MedicationID &&
			existing.ScheduledFor == log.ScheduledFor {
			return 0, &repository.ConflictError{Field: "user_id,medication_id,scheduled_for"}
		}
	}

	r.s.nextIDs.log++
	log.ID = r.s.nextIDs.log
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	r.s.logs[log.ID] = *log
	return log.ID, nil
}

func (r *medicationLogRepository) List(ctx context.Context, userID int64, startDate, endDate string) ([]domain.MedicationLog, error) {
	ranged := startDate != "" && endDate != ""
	return r.filter(func(l domain.MedicationLog) bool {
		if l.UserID != userID {
			return false
		}
		if ranged {
			return l.ScheduledFor >= startDate && l.ScheduledFor <= endDate
		}
		return true
	}), nil
}

func (r *medicationLogRepository) ListForDate(ctx context.Context, userID int64, date string) ([]domain.MedicationLog, error) {
	return r.filter(func(l domain.MedicationLog) bool {
		return l.UserID == userID && l.ScheduledFor == date
	}), nil
}

func (r *medicationLogRepository) filter(match func(domain.MedicationLog) bool) []domain.MedicationLog {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	logs := []domain.MedicationLog{}
	for _, l := range r.s.logs {
		if match(l) {
			logs = append(logs, l)
		}
	}
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].ScheduledFor != logs[j].ScheduledFor {
			return logs[i].ScheduledFor < logs[j].ScheduledFor
		}
		return logs[i].ID < logs[j].ID
	})
	return logs
}

func cloneMedication(m domain.Medication) domain.Medication {
	if m.Times != nil {
		m.Times = append([]string(nil), m.Times...)
	}
	if m.Notes != nil {
		notes := *m.Notes
		m.Notes = &notes
	}
	return m
}
