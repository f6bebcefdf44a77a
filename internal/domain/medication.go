package domain

import "time"

// Medication is a drug regimen owned by a single user.
type Medication struct {
	ID        int64
	UserID    int64
	Name      string
	Dosage    string
	Frequency string
	// Times holds clock-time labels in the order the user entered them.
	// nil means none were supplied.
	Times     []string
	Notes     *string
	CreatedAt time.Time
}

// MedicationPatch carries the fields of a partial medication update.
// Nil fields are left untouched.
type MedicationPatch struct {
	Name      *string
	Dosage    *string
	Frequency *string
	Times     *[]string
	Notes     *string
}

// Apply copies the non-nil fields of p onto m.
func (p MedicationPatch) Apply(m *Medication) {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Dosage != nil {
		m.Dosage = *p.Dosage
	}
	if p.Frequency != nil {
		m.Frequency = *p.Frequency
	}
	if p.Times != nil {
		m.Times = append([]string(nil), (*p.Times)...)
	}
	if p.Notes != nil {
		notes := *p.Notes
		m.Notes = &notes
	}
}

// Empty reports whether the patch changes nothing.
func (p MedicationPatch) Empty() bool {
	return p.Name == nil && p.Dosage == nil && p.Frequency == nil && p.Times == nil && p.Notes == nil
}
