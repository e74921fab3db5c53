package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medqueue/internal/models"
)

// QueueStore persists queues and their entries. A store returned by
// Transaction is bound to that transaction; every method on it runs inside it.
type QueueStore struct {
	db *gorm.DB
	// lockRows enables SELECT ... FOR UPDATE (postgres only).
	lockRows bool
	// writeMu serializes write transactions on single-writer databases.
	writeMu *sync.Mutex
	inTx    bool
}

func NewQueueStore(db *gorm.DB) *QueueStore {
	s := &QueueStore{db: db}
	switch db.Dialector.Name() {
	case "postgres":
		s.lockRows = true
	case "sqlite":
		s.writeMu = &sync.Mutex{}
	}
	return s
}

// Transaction runs fn against a store bound to a single database transaction.
// Calling it on an already transaction-bound store reuses that transaction.
func (s *QueueStore) Transaction(ctx context.Context, fn func(tx *QueueStore) error) error {
	if s.inTx {
		return fn(s)
	}
	if s.writeMu != nil {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&QueueStore{db: tx, lockRows: s.lockRows, writeMu: s.writeMu, inTx: true})
	})
}

func (s *QueueStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// forUpdate adds a row lock when running inside a transaction on postgres.
func (s *QueueStore) forUpdate(db *gorm.DB) *gorm.DB {
	if s.inTx && s.lockRows {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// FindQueue returns the queue of a doctor for a calendar day.
func (s *QueueStore) FindQueue(ctx context.Context, doctorID uint, date string) (*models.Queue, error) {
	var q models.Queue
	err := s.conn(ctx).Where("doctor_id = ? AND date = ?", doctorID, date).First(&q).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &q, nil
}

// FindQueueForUpdate is FindQueue with the queue row locked until the
// surrounding transaction ends.
func (s *QueueStore) FindQueueForUpdate(ctx context.Context, doctorID uint, date string) (*models.Queue, error) {
	var q models.Queue
	err := s.forUpdate(s.conn(ctx)).Where("doctor_id = ? AND date = ?", doctorID, date).First(&q).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &q, nil
}

// GetQueue loads a queue by id. Inside a transaction on postgres the row is
// locked.
func (s *QueueStore) GetQueue(ctx context.Context, queueID uint) (*models.Queue, error) {
	var q models.Queue
	if err := s.forUpdate(s.conn(ctx)).First(&q, queueID).Error; err != nil {
		return nil, notFound(err)
	}
	return &q, nil
}

// CreateQueue inserts an empty queue. It returns ErrAlreadyExists when a
// queue for the same doctor and day was created concurrently; the caller is
// expected to look it up again.
func (s *QueueStore) CreateQueue(ctx context.Context, doctorID uint, date string) (*models.Queue, error) {
	q := models.Queue{DoctorID: doctorID, Date: date}
	res := s.conn(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "doctor_id"}, {Name: "date"}},
			DoNothing: true,
		}).
		Create(&q)
	if res.Error != nil {
		return nil, fmt.Errorf("create queue: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyExists
	}
	return &q, nil
}

// ListActiveEntries returns the WAITING, CALLED and IN_CONSULTATION entries of
// a queue in position order with the patient preloaded.
func (s *QueueStore) ListActiveEntries(ctx context.Context, queueID uint) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	err := s.conn(ctx).
		Preload("Patient").
		Where("queue_id = ? AND status IN ?", queueID, models.VisibleStatuses).
		Order("position ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// FindActiveEntry returns the WAITING or CALLED entry of a patient.
func (s *QueueStore) FindActiveEntry(ctx context.Context, queueID, patientID uint) (*models.QueueEntry, error) {
	var e models.QueueEntry
	err := s.conn(ctx).
		Preload("Patient").
		Where("queue_id = ? AND patient_id = ? AND status IN ?", queueID, patientID, models.ActiveStatuses).
		Order("position ASC").
		First(&e).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

// ListPatientEntries returns the visible entries a patient holds in any
// doctor's queue for date, with the queue preloaded.
func (s *QueueStore) ListPatientEntries(ctx context.Context, patientID uint, date string) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	err := s.conn(ctx).
		Joins("JOIN queues ON queues.id = queue_entries.queue_id AND queues.deleted_at IS NULL").
		Preload("Queue").
		Where("queue_entries.patient_id = ? AND queues.date = ? AND queue_entries.status IN ?",
			patientID, date, models.VisibleStatuses).
		Order("queue_entries.id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list patient entries: %w", err)
	}
	return entries, nil
}

// NextPosition returns one past the highest position ever handed out in the
// queue, so positions of completed or cancelled entries are never reused.
func (s *QueueStore) NextPosition(ctx context.Context, queueID uint) (int, error) {
	var maxPosition int
	row := s.conn(ctx).Model(&models.QueueEntry{}).
		Where("queue_id = ?", queueID).
		Select("COALESCE(MAX(position),0)").
		Row()
	if err := row.Scan(&maxPosition); err != nil {
		return 0, fmt.Errorf("next position: %w", err)
	}
	return maxPosition + 1, nil
}

// FirstWaiting returns the WAITING entry with the lowest position.
func (s *QueueStore) FirstWaiting(ctx context.Context, queueID uint) (*models.QueueEntry, error) {
	var e models.QueueEntry
	err := s.conn(ctx).
		Preload("Patient").
		Where("queue_id = ? AND status = ?", queueID, models.StatusWaiting).
		Order("position ASC").
		First(&e).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (s *QueueStore) CountByStatus(ctx context.Context, queueID uint, status models.EntryStatus) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.QueueEntry{}).
		Where("queue_id = ? AND status = ?", queueID, status).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", status, err)
	}
	return n, nil
}

// CountWaitingAhead counts WAITING entries with a smaller position.
func (s *QueueStore) CountWaitingAhead(ctx context.Context, queueID uint, position int) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.QueueEntry{}).
		Where("queue_id = ? AND status = ? AND position < ?", queueID, models.StatusWaiting, position).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count ahead: %w", err)
	}
	return n, nil
}

// CreateEntry appends a WAITING entry at the given position.
func (s *QueueStore) CreateEntry(ctx context.Context, queueID, patientID uint, position int) (*models.QueueEntry, error) {
	e := models.QueueEntry{
		QueueID:   queueID,
		PatientID: patientID,
		Position:  position,
		Status:    models.StatusWaiting,
	}
	if err := s.conn(ctx).Omit(clause.Associations).Create(&e).Error; err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	return &e, nil
}

// GetEntry loads an entry with its patient. Inside a transaction on postgres
// the entry row is locked.
func (s *QueueStore) GetEntry(ctx context.Context, entryID uint) (*models.QueueEntry, error) {
	var e models.QueueEntry
	if err := s.forUpdate(s.conn(ctx)).Preload("Patient").First(&e, entryID).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

// UpdateEntryStatus sets the status of an entry and stamps the matching
// timestamp column with at.
func (s *QueueStore) UpdateEntryStatus(ctx context.Context, entryID uint, status models.EntryStatus, at time.Time) error {
	updates := map[string]any{"status": status}
	switch status {
	case models.StatusCalled:
		updates["called_at"] = at
	case models.StatusInConsultation:
		updates["consultation_started_at"] = at
	case models.StatusCompleted:
		updates["completed_at"] = at
	case models.StatusCancelled:
		updates["cancelled_at"] = at
	}
	res := s.conn(ctx).Model(&models.QueueEntry{}).Where("id = ?", entryID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update entry %d: %w", entryID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// QueueAggregates holds the derived queue columns; nil fields are left as is.
type QueueAggregates struct {
	CurrentPosition   *int
	EstimatedWaitTime *int
}

func (s *QueueStore) UpdateQueueAggregates(ctx context.Context, queueID uint, agg QueueAggregates) error {
	updates := map[string]any{}
	if agg.CurrentPosition != nil {
		updates["current_position"] = *agg.CurrentPosition
	}
	if agg.EstimatedWaitTime != nil {
		updates["estimated_wait_time"] = *agg.EstimatedWaitTime
	}
	if len(updates) == 0 {
		return nil
	}
	res := s.conn(ctx).Model(&models.Queue{}).Where("id = ?", queueID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update queue %d: %w", queueID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *QueueStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
