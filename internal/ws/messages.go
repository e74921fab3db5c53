package ws

import (
	"encoding/json"

	"medqueue/internal/models"
	"medqueue/internal/queue"
)

// Inbound events.
const (
	EventWatch                = "watch"
	EventUnwatch              = "unwatch"
	EventGetQueueStatus       = "getQueueStatus"
	EventJoinQueue            = "joinQueue"
	EventCallNextPatient      = "callNextPatient"
	EventMarkInConsultation   = "markInConsultation"
	EventCompleteConsultation = "completeConsultation"
	EventLeaveQueue           = "leaveQueue"
)

// Outbound-only events.
const (
	EventError         = "error"
	EventQueueUpdated  = "queueUpdated"
	EventPatientCalled = "patientCalled"
)

// Envelope wraps every message in both directions.
type Envelope struct {
	Event     string          `json:"event"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type DoctorRequest struct {
	DoctorID uint `json:"doctor_id" binding:"required,gt=0"`
}

type JoinRequest struct {
	DoctorID uint `json:"doctor_id" binding:"required,gt=0"`
	// defaults to the caller for patients
	PatientID uint `json:"patient_id,omitempty"`
}

type EntryRequest struct {
	EntryID uint `json:"entry_id" binding:"required,gt=0"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type QueueData struct {
	Queue queue.Snapshot `json:"queue"`
}

type EntryData struct {
	Entry *models.QueueEntry `json:"entry"`
}

type WatchData struct {
	DoctorID uint `json:"doctor_id"`
}

func encode(event, requestID string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, RequestID: requestID, Data: raw})
}
