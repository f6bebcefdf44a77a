package http

import (
	"time"

	"medsbuddy/internal/domain"
)

// UserResponse is the public view of a user; it never carries the password.
type UserResponse struct {
	ID        int64       `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Role      domain.Role `json:"role"`
	CreatedAt string      `json:"createdAt"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type MedicationResponse struct {
	ID        int64    `json:"id"`
	UserID    int64    `json:"userId"`
	Name      string   `json:"name"`
	Dosage    string   `json:"dosage"`
	Frequency string   `json:"frequency"`
	Times     []string `json:"times"`
	Notes     *string  `json:"notes"`
	CreatedAt string   `json:"createdAt"`
}

type MedicationLogResponse struct {
	ID           int64  `json:"id"`
	MedicationID int64  `json:"medicationId"`
	UserID       int64  `json:"userId"`
	TakenAt      string `json:"takenAt"`
	ScheduledFor string `json:"scheduledFor"`
	CreatedAt    string `json:"createdAt"`
}

type AdherenceResponse struct {
	AdherenceRate      int    `json:"adherenceRate"`
	TotalExpectedDoses int    `json:"totalExpectedDoses"`
	TotalTakenDoses    int    `json:"totalTakenDoses"`
	Period             string `json:"period"`
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		CreatedAt: formatTime(user.CreatedAt),
	}
}

func medicationToResponse(med domain.Medication) MedicationResponse {
	times := med.Times
	if times == nil {
		times = []string{}
	}
	return MedicationResponse{
		ID:        med.ID,
		UserID:    med.UserID,
		Name:      med.Name,
		Dosage:    med.Dosage,
		Frequency: med.Frequency,
		Times:     times,
		Notes:     med.Notes,
		CreatedAt: formatTime(med.CreatedAt),
	}
}

func logToResponse(log domain.MedicationLog) MedicationLogResponse {
	return MedicationLogResponse{
		ID:           log.ID,
		MedicationID: log.MedicationID,
		UserID:       log.UserID,
		TakenAt:      formatTime(log.TakenAt),
		ScheduledFor: log.ScheduledFor,
		CreatedAt:    formatTime(log.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
