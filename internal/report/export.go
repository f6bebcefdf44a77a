// Package report exports a user's adherence report to object storage.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"medsbuddy/internal/adherence"
	"medsbuddy/internal/domain"
	"medsbuddy/internal/service"
	"medsbuddy/internal/storage"
)

const contentType = "application/json"

// Document is the exported JSON layout.
type Document struct {
	GeneratedAt time.Time       `json:"generatedAt"`
	User        User            `json:"user"`
	Adherence   Adherence       `json:"adherence"`
	Medications []Medication    `json:"medications"`
	Logs        []MedicationLog `json:"logs"`
}

type User struct {
	ID        int64       `json:"id"`
	Username  string      `json:"username"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Role      domain.Role `json:"role"`
}

type Adherence struct {
	AdherenceRate      int    `json:"adherenceRate"`
	TotalExpectedDoses int    `json:"totalExpectedDoses"`
	TotalTakenDoses    int    `json:"totalTakenDoses"`
	Period             string `json:"period"`
}

type Medication struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Dosage    string   `json:"dosage"`
	Frequency string   `json:"frequency"`
	Times     []string `json:"times"`
	Notes     *string  `json:"notes,omitempty"`
}

type MedicationLog struct {
	MedicationID int64     `json:"medicationId"`
	TakenAt      time.Time `json:"takenAt"`
	ScheduledFor string    `json:"scheduledFor"`
}

// Exporter builds report documents and stores them under
// <prefix>/<userId>/<date>-<uuid>.json in the configured bucket.
type Exporter struct {
	users  service.UserService
	meds   service.MedicationService
	store  storage.Service
	bucket string
	prefix string
	logger logrus.FieldLogger
	now    func() time.Time
}

type Config struct {
	Bucket    string
	KeyPrefix string
	Logger    logrus.FieldLogger
	// Now defaults to time.Now.
	Now func() time.Time
}

func NewExporter(users service.UserService, meds service.MedicationService, store storage.Service, cfg Config) *Exporter {
	e := &Exporter{
		users:  users,
		meds:   meds,
		store:  store,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.KeyPrefix, "/"),
		logger: cfg.Logger,
		now:    cfg.Now,
	}
	if e.logger == nil {
		e.logger = logrus.StandardLogger()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Export uploads the user's current report and returns its object URL.
func (e *Exporter) Export(ctx context.Context, userID int64) (string, error) {
	doc, err := e.Build(ctx, userID)
	if err != nil {
		return "", err
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	key := path.Join(e.UserPrefix(userID), fmt.Sprintf("%s-%s.json", domain.DateOf(doc.GeneratedAt), uuid.NewString()))
	url, err := e.store.Put(ctx, bytes.NewReader(body), storage.PutOptions{
		Bucket:      e.bucket,
		Key:         key,
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("store report: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"key":     key,
		"bytes":   len(body),
	}).Info("report exported")
	return url, nil
}

// Build assembles the report document without storing it.
func (e *Exporter) Build(ctx context.Context, userID int64) (*Document, error) {
	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	summary, err := e.meds.Adherence(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("compute adherence: %w", err)
	}
	meds, err := e.meds.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	logs, err := e.meds.ListLogs(ctx, userID, summary.StartDate, summary.EndDate)
	if err != nil {
		return nil, err
	}

	return &Document{
		GeneratedAt: e.now().UTC(),
		User: User{
			ID:        user.ID,
			Username:  user.Username,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Role:      user.Role,
		},
		Adherence:   adherenceOf(summary),
		Medications: medicationsOf(meds),
		Logs:        logsOf(logs),
	}, nil
}

// List returns the user's exported reports.
func (e *Exporter) List(ctx context.Context, userID int64) ([]storage.ObjectInfo, error) {
	return e.store.ListObjects(ctx, e.bucket, e.UserPrefix(userID)+"/")
}

// Purge deletes every exported report of the user.
func (e *Exporter) Purge(ctx context.Context, userID int64) (int, error) {
	n, err := e.store.DeletePrefix(ctx, e.bucket, e.UserPrefix(userID)+"/")
	if err != nil {
		return n, err
	}
	e.logger.WithFields(logrus.Fields{"user_id": userID, "deleted": n}).Info("reports purged")
	return n, nil
}

// UserPrefix is the key prefix holding a user's reports.
func (e *Exporter) UserPrefix(userID int64) string {
	id := strconv.FormatInt(userID, 10)
	if e.prefix == "" {
		return id
	}
	return e.prefix + "/" + id
}

func adherenceOf(r adherence.Report) Adherence {
	return Adherence{
		AdherenceRate:      r.Rate,
		TotalExpectedDoses: r.ExpectedDoses,
		TotalTakenDoses:    r.TakenDoses,
		Period:             r.Period(),
	}
}

func medicationsOf(meds []domain.Medication) []Medication {
	out := make([]Medication, len(meds))
	for i, m := range meds {
		times := m.Times
		if times == nil {
			times = []string{}
		}
		out[i] = Medication{
			ID:        m.ID,
			Name:      m.Name,
			Dosage:    m.Dosage,
			Frequency: m.Frequency,
			Times:     times,
			Notes:     m.Notes,
		}
	}
	return out
}

func logsOf(logs []domain.MedicationLog) []MedicationLog {
	out := make([]MedicationLog, len(logs))
	for i, l := range logs {
		out[i] = MedicationLog{
			MedicationID: l.MedicationID,
			TakenAt:      l.TakenAt.UTC(),
			ScheduledFor: l.ScheduledFor,
		}
	}
	return out
}
