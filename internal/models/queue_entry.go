package models

import (
	"encoding/json"
	"time"
)

type EntryStatus string

const (
	StatusWaiting        EntryStatus = "WAITING"
	StatusCalled         EntryStatus = "CALLED"
	StatusInConsultation EntryStatus = "IN_CONSULTATION"
	StatusCompleted      EntryStatus = "COMPLETED"
	StatusCancelled      EntryStatus = "CANCELLED"
)

var (
	// ActiveStatuses block a second join of the same patient.
	ActiveStatuses = []EntryStatus{StatusWaiting, StatusCalled}
	// VisibleStatuses are listed in a queue snapshot.
	VisibleStatuses = []EntryStatus{StatusWaiting, StatusCalled, StatusInConsultation}
)

var transitions = map[EntryStatus][]EntryStatus{
	StatusWaiting:        {StatusCalled, StatusCancelled},
	StatusCalled:         {StatusInConsultation, StatusCancelled},
	StatusInConsultation: {StatusCompleted},
}

// CanTransition reports whether an entry may move from s to next.
// COMPLETED and CANCELLED are terminal.
func (s EntryStatus) CanTransition(next EntryStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s EntryStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// QueueEntry is never soft-deleted: terminal entries stay for the day's history.
type QueueEntry struct {
	ID                    uint        `gorm:"primaryKey" json:"id"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"-"`
	QueueID               uint        `gorm:"index;not null" json:"queue_id"`
	Queue                 *Queue      `gorm:"foreignKey:QueueID" json:"-"`
	PatientID             uint        `gorm:"index;not null" json:"patient_id"`
	Patient               User        `gorm:"foreignKey:PatientID" json:"-"`
	Position              int         `gorm:"not null;index" json:"position"` // arrival order, never reused within a queue
	Status                EntryStatus `gorm:"type:varchar(20);index;not null;default:WAITING" json:"status"`
	CalledAt              *time.Time  `json:"called_at,omitempty"`
	ConsultationStartedAt *time.Time  `json:"consultation_started_at,omitempty"`
	CompletedAt           *time.Time  `json:"completed_at,omitempty"`
	CancelledAt           *time.Time  `json:"cancelled_at,omitempty"`
}

// MarshalJSON adds the patient summary when the patient was preloaded.
func (e QueueEntry) MarshalJSON() ([]byte, error) {
	type plain QueueEntry
	var patient *PatientSummary
	if e.Patient.ID != 0 {
		s := e.Patient.Summary()
		patient = &s
	}
	return json.Marshal(struct {
		plain
		Patient *PatientSummary `json:"patient,omitempty"`
	}{plain(e), patient})
}
