// Package queue implements the consultation queue: one FIFO queue per doctor
// per calendar day, entry status transitions and wait time estimation.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"medqueue/internal/models"
	"medqueue/internal/storage"
)

const DefaultMinutesPerPatient = 15

// Notifier receives queue changes after they are committed. Implementations
// must not block; delivery is best effort.
type Notifier interface {
	QueueUpdated(doctorID uint, snapshot Snapshot)
	PatientCalled(doctorID uint, entry models.QueueEntry)
}

// Users looks up directory records.
type Users interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

type Config struct {
	MinutesPerPatient int
	// Location decides where a calendar day starts. Defaults to time.Local.
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

// Snapshot is the full visible state of a doctor's queue for one day.
type Snapshot struct {
	DoctorID          uint                `json:"doctor_id"`
	Date              string              `json:"date"`
	QueueID           uint                `json:"queue_id,omitempty"`
	Entries           []models.QueueEntry `json:"entries"`
	CurrentPosition   int                 `json:"current_position"`
	EstimatedWaitTime int                 `json:"estimated_wait_time"`
}

// PatientPosition describes where a patient stands in today's queue.
type PatientPosition struct {
	Entry             models.QueueEntry `json:"entry"`
	Rank              int               `json:"rank"`
	PatientsAhead     int               `json:"patients_ahead"`
	EstimatedWaitTime int               `json:"estimated_wait_time"`
	CurrentPosition   int               `json:"current_position"`
}

// PatientQueue is one of the queues a patient stands in today.
type PatientQueue struct {
	DoctorID uint   `json:"doctor_id"`
	Date     string `json:"date"`
	PatientPosition
}

type Engine struct {
	store    *storage.QueueStore
	users    Users
	notifier Notifier
	cfg      Config
	log      zerolog.Logger
}

func NewEngine(store *storage.QueueStore, users Users, cfg Config, logger zerolog.Logger) *Engine {
	if cfg.MinutesPerPatient <= 0 {
		cfg.MinutesPerPatient = DefaultMinutesPerPatient
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		store: store,
		users: users,
		cfg:   cfg,
		log:   logger.With().Str("component", "queue").Logger(),
	}
}

// SetNotifier installs the receiver of committed changes. It must be called
// before the engine serves requests.
func (e *Engine) SetNotifier(n Notifier) {
	e.notifier = n
}

// Today returns the current calendar day in the clinic time zone.
func (e *Engine) Today() string {
	return models.DayOf(e.cfg.Now(), e.cfg.Location)
}

// JoinQueue appends the patient to the doctor's queue for today, creating the
// queue on first use. A patient that already has a WAITING or CALLED entry
// gets that entry back unchanged.
func (e *Engine) JoinQueue(ctx context.Context, doctorID, patientID uint) (*models.QueueEntry, error) {
	defer observe("join", time.Now())
	if doctorID == 0 || patientID == 0 {
		return nil, fmt.Errorf("%w: doctor_id and patient_id are required", ErrInvalidInput)
	}
	if err := e.requireRole(ctx, doctorID, models.RoleDoctor, ErrDoctorNotFound); err != nil {
		return nil, err
	}
	patient, err := e.users.GetUser(ctx, patientID)
	if err != nil || patient.Role != models.RolePatient {
		if err == nil || errors.Is(err, storage.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("load patient %d: %w", patientID, err)
	}

	date := e.Today()
	var (
		entry   *models.QueueEntry
		created bool
	)
	err = e.store.Transaction(ctx, func(tx *storage.QueueStore) error {
		q, err := e.findOrCreateQueue(ctx, tx, doctorID, date)
		if err != nil {
			return err
		}
		existing, err := tx.FindActiveEntry(ctx, q.ID, patientID)
		switch {
		case err == nil:
			entry = existing
			return nil
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}

		position, err := tx.NextPosition(ctx, q.ID)
		if err != nil {
			return err
		}
		entry, err = tx.CreateEntry(ctx, q.ID, patientID, position)
		if err != nil {
			return err
		}
		entry.Patient = *patient
		created = true
		return e.refreshWaitTime(ctx, tx, q.ID, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("join queue: %w", err)
	}

	if !created {
		joinsTotal.WithLabelValues("existing").Inc()
		return entry, nil
	}
	joinsTotal.WithLabelValues("created").Inc()
	e.log.Debug().
		Uint("doctor_id", doctorID).
		Uint("patient_id", patientID).
		Int("position", entry.Position).
		Msg("patient joined queue")
	e.publish(ctx, doctorID, date)
	return entry, nil
}

// GetQueueStatus returns today's snapshot of the doctor's queue. A doctor
// without a queue today gets an empty snapshot.
func (e *Engine) GetQueueStatus(ctx context.Context, doctorID uint) (*Snapshot, error) {
	defer observe("status", time.Now())
	return e.snapshot(ctx, doctorID, e.Today())
}

// CallNextPatient moves the earliest WAITING entry to CALLED. It returns nil
// when nobody is waiting.
func (e *Engine) CallNextPatient(ctx context.Context, doctorID uint) (*models.QueueEntry, error) {
	defer observe("call_next", time.Now())
	if doctorID == 0 {
		return nil, fmt.Errorf("%w: doctor_id is required", ErrInvalidInput)
	}

	date := e.Today()
	var called *models.QueueEntry
	err := e.store.Transaction(ctx, func(tx *storage.QueueStore) error {
		q, err := tx.FindQueueForUpdate(ctx, doctorID, date)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		next, err := tx.FirstWaiting(ctx, q.ID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		now := e.cfg.Now()
		if err := tx.UpdateEntryStatus(ctx, next.ID, models.StatusCalled, now); err != nil {
			return err
		}
		next.Status = models.StatusCalled
		next.CalledAt = &now
		called = next

		position := next.Position
		return e.refreshWaitTime(ctx, tx, q.ID, &position)
	})
	if err != nil {
		return nil, fmt.Errorf("call next: %w", err)
	}
	if called == nil {
		callsTotal.WithLabelValues("empty").Inc()
		return nil, nil
	}

	callsTotal.WithLabelValues("called").Inc()
	transitionsTotal.WithLabelValues(string(models.StatusCalled)).Inc()
	e.log.Debug().
		Uint("doctor_id", doctorID).
		Uint("entry_id", called.ID).
		Int("position", called.Position).
		Msg("patient called")
	e.publish(ctx, doctorID, date)
	if e.notifier != nil {
		e.notifier.PatientCalled(doctorID, *called)
	}
	return called, nil
}

// MarkInConsultation moves a CALLED entry to IN_CONSULTATION. Only one entry
// of a queue may be in consultation at a time.
func (e *Engine) MarkInConsultation(ctx context.Context, entryID uint) (*models.QueueEntry, error) {
	defer observe("in_consultation", time.Now())
	return e.transition(ctx, entryID, models.StatusInConsultation)
}

// CompleteConsultation moves an IN_CONSULTATION entry to COMPLETED.
func (e *Engine) CompleteConsultation(ctx context.Context, entryID uint) (*models.QueueEntry, error) {
	defer observe("complete", time.Now())
	return e.transition(ctx, entryID, models.StatusCompleted)
}

// CancelEntry removes a WAITING or CALLED entry from the queue.
func (e *Engine) CancelEntry(ctx context.Context, entryID uint) (*models.QueueEntry, error) {
	defer observe("cancel", time.Now())
	return e.transition(ctx, entryID, models.StatusCancelled)
}

// GetEntry returns an entry together with the doctor owning its queue.
func (e *Engine) GetEntry(ctx context.Context, entryID uint) (*models.QueueEntry, uint, error) {
	if entryID == 0 {
		return nil, 0, fmt.Errorf("%w: entry_id is required", ErrInvalidInput)
	}
	entry, err := e.store.GetEntry(ctx, entryID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, 0, ErrEntryNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load entry %d: %w", entryID, err)
	}
	q, err := e.store.GetQueue(ctx, entry.QueueID)
	if err != nil {
		return nil, 0, fmt.Errorf("load queue %d: %w", entry.QueueID, err)
	}
	return entry, q.DoctorID, nil
}

// GetPatientPosition reports the rank and wait of the patient's active entry
// in the doctor's queue today.
func (e *Engine) GetPatientPosition(ctx context.Context, doctorID, patientID uint) (*PatientPosition, error) {
	defer observe("position", time.Now())
	if doctorID == 0 || patientID == 0 {
		return nil, fmt.Errorf("%w: doctor_id and patient_id are required", ErrInvalidInput)
	}
	q, err := e.store.FindQueue(ctx, doctorID, e.Today())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find queue: %w", err)
	}
	entry, err := e.store.FindActiveEntry(ctx, q.ID, patientID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find entry: %w", err)
	}

	pos := &PatientPosition{Entry: *entry, CurrentPosition: q.CurrentPosition}
	if entry.Status == models.StatusWaiting {
		ahead, err := e.store.CountWaitingAhead(ctx, q.ID, entry.Position)
		if err != nil {
			return nil, err
		}
		pos.PatientsAhead = int(ahead)
		pos.Rank = pos.PatientsAhead + 1
		pos.EstimatedWaitTime = pos.Rank * e.cfg.MinutesPerPatient
	}
	return pos, nil
}

// PatientQueues lists every queue the patient holds a visible entry in today,
// oldest join first.
func (e *Engine) PatientQueues(ctx context.Context, patientID uint) ([]PatientQueue, error) {
	defer observe("patient_queues", time.Now())
	if patientID == 0 {
		return nil, fmt.Errorf("%w: patient_id is required", ErrInvalidInput)
	}
	entries, err := e.store.ListPatientEntries(ctx, patientID, e.Today())
	if err != nil {
		return nil, err
	}
	out := make([]PatientQueue, 0, len(entries))
	for _, entry := range entries {
		item := PatientQueue{
			DoctorID:        entry.Queue.DoctorID,
			Date:            entry.Queue.Date,
			PatientPosition: PatientPosition{CurrentPosition: entry.Queue.CurrentPosition},
		}
		if entry.Status == models.StatusWaiting {
			ahead, err := e.store.CountWaitingAhead(ctx, entry.QueueID, entry.Position)
			if err != nil {
				return nil, err
			}
			item.PatientsAhead = int(ahead)
			item.Rank = item.PatientsAhead + 1
			item.EstimatedWaitTime = item.Rank * e.cfg.MinutesPerPatient
		}
		entry.Queue = nil
		item.Entry = entry
		out = append(out, item)
	}
	return out, nil
}

// Republish pushes today's snapshot of the doctor's queue to the notifier
// without changing anything.
func (e *Engine) Republish(ctx context.Context, doctorID uint) {
	e.publish(ctx, doctorID, e.Today())
}

func (e *Engine) transition(ctx context.Context, entryID uint, to models.EntryStatus) (*models.QueueEntry, error) {
	if entryID == 0 {
		return nil, fmt.Errorf("%w: entry_id is required", ErrInvalidInput)
	}
	// Read outside the transaction to learn the queue, so rows are always
	// locked queue first, entry second.
	probe, err := e.store.GetEntry(ctx, entryID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load entry %d: %w", entryID, err)
	}

	var (
		entry *models.QueueEntry
		q     *models.Queue
	)
	err = e.store.Transaction(ctx, func(tx *storage.QueueStore) error {
		var err error
		if q, err = tx.GetQueue(ctx, probe.QueueID); err != nil {
			return err
		}
		if entry, err = tx.GetEntry(ctx, entryID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrEntryNotFound
			}
			return err
		}
		if !entry.Status.CanTransition(to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, entry.Status, to)
		}
		if to == models.StatusInConsultation {
			busy, err := tx.CountByStatus(ctx, q.ID, models.StatusInConsultation)
			if err != nil {
				return err
			}
			if busy > 0 {
				return ErrConsultationInProgress
			}
		}

		now := e.cfg.Now()
		if err := tx.UpdateEntryStatus(ctx, entry.ID, to, now); err != nil {
			return err
		}
		stamp(entry, to, now)
		return e.refreshWaitTime(ctx, tx, q.ID, nil)
	})
	if err != nil {
		if Kind(err) != KindInternal {
			return nil, err
		}
		return nil, fmt.Errorf("transition to %s: %w", to, err)
	}

	transitionsTotal.WithLabelValues(string(to)).Inc()
	e.log.Debug().
		Uint("doctor_id", q.DoctorID).
		Uint("entry_id", entry.ID).
		Str("status", string(to)).
		Msg("entry transitioned")
	e.publish(ctx, q.DoctorID, q.Date)
	return entry, nil
}

func stamp(entry *models.QueueEntry, status models.EntryStatus, at time.Time) {
	entry.Status = status
	switch status {
	case models.StatusCalled:
		entry.CalledAt = &at
	case models.StatusInConsultation:
		entry.ConsultationStartedAt = &at
	case models.StatusCompleted:
		entry.CompletedAt = &at
	case models.StatusCancelled:
		entry.CancelledAt = &at
	}
}

func (e *Engine) requireRole(ctx context.Context, userID uint, role models.Role, notFoundErr error) error {
	u, err := e.users.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return notFoundErr
	}
	if err != nil {
		return fmt.Errorf("load user %d: %w", userID, err)
	}
	if u.Role != role {
		return notFoundErr
	}
	return nil
}

// findOrCreateQueue returns the locked queue row for (doctorID, date). A
// concurrent creator winning the insert is resolved by reading its row.
func (e *Engine) findOrCreateQueue(ctx context.Context, tx *storage.QueueStore, doctorID uint, date string) (*models.Queue, error) {
	q, err := tx.FindQueueForUpdate(ctx, doctorID, date)
	if err == nil {
		return q, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if _, err := tx.CreateQueue(ctx, doctorID, date); err != nil && !errors.Is(err, storage.ErrAlreadyExists) {
		return nil, err
	}
	return tx.FindQueueForUpdate(ctx, doctorID, date)
}

// refreshWaitTime stores waitingCount * MinutesPerPatient, and the current
// position when one is given.
func (e *Engine) refreshWaitTime(ctx context.Context, tx *storage.QueueStore, queueID uint, currentPosition *int) error {
	waiting, err := tx.CountByStatus(ctx, queueID, models.StatusWaiting)
	if err != nil {
		return err
	}
	wait := int(waiting) * e.cfg.MinutesPerPatient
	return tx.UpdateQueueAggregates(ctx, queueID, storage.QueueAggregates{
		CurrentPosition:   currentPosition,
		EstimatedWaitTime: &wait,
	})
}

func (e *Engine) snapshot(ctx context.Context, doctorID uint, date string) (*Snapshot, error) {
	snap := &Snapshot{DoctorID: doctorID, Date: date, Entries: []models.QueueEntry{}}
	q, err := e.store.FindQueue(ctx, doctorID, date)
	if errors.Is(err, storage.ErrNotFound) {
		return snap, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find queue: %w", err)
	}
	entries, err := e.store.ListActiveEntries(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	snap.QueueID = q.ID
	snap.Entries = entries
	snap.CurrentPosition = q.CurrentPosition
	snap.EstimatedWaitTime = q.EstimatedWaitTime
	return snap, nil
}

// publish pushes a fresh snapshot to the notifier. Failures are logged and
// never reach the caller of the mutating operation.
func (e *Engine) publish(ctx context.Context, doctorID uint, date string) {
	if e.notifier == nil {
		return
	}
	snap, err := e.snapshot(context.WithoutCancel(ctx), doctorID, date)
	if err != nil {
		e.log.Warn().Err(err).Uint("doctor_id", doctorID).Msg("snapshot for broadcast failed")
		return
	}
	e.notifier.QueueUpdated(doctorID, *snap)
}
