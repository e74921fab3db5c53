package queue

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medqueue/internal/models"
	"medqueue/internal/storage"
)

type recordingNotifier struct {
	mu      sync.Mutex
	updates []Snapshot
	called  []models.QueueEntry
	order   []string
}

func (n *recordingNotifier) QueueUpdated(doctorID uint, snap Snapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, snap)
	n.order = append(n.order, "queueUpdated")
}

func (n *recordingNotifier) PatientCalled(doctorID uint, entry models.QueueEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.called = append(n.called, entry)
	n.order = append(n.order, "patientCalled")
}

func (n *recordingNotifier) lastUpdate(t *testing.T) Snapshot {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.updates)
	return n.updates[len(n.updates)-1]
}

type fixture struct {
	engine   *Engine
	users    *storage.UserStore
	notifier *recordingNotifier

	mu  sync.Mutex
	now time.Time
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func (f *fixture) user(t *testing.T, name string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Name: name, Surname: "Test", Email: name + "@clinic.test", Phone: "100", PasswordHash: "x", Role: role}
	require.NoError(t, f.users.CreateUser(context.Background(), u))
	return u
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, storage.AutoMigrate(db))

	f := &fixture{
		users:    storage.NewUserStore(db),
		notifier: &recordingNotifier{},
		now:      time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
	}
	f.engine = NewEngine(storage.NewQueueStore(db), f.users, Config{
		MinutesPerPatient: 15,
		Location:          time.UTC,
		Now:               f.clock,
	}, zerolog.Nop())
	f.engine.SetNotifier(f.notifier)
	return f
}

func TestJoinQueue_CreatesQueueAndEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.user(t, "doc", models.RoleDoctor)
	pat := f.user(t, "pat", models.RolePatient)

	entry, err := f.engine.JoinQueue(ctx, doc.ID, pat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Position)
	assert.Equal(t, models.StatusWaiting, entry.Status)
	assert.Equal(t, "pat", entry.Patient.Name)

	snap, err := f.engine.GetQueueStatus(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", snap.Date)
	assert.NotZero(t, snap.QueueID)
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, 0, snap.CurrentPosition)
	assert.Equal(t, 15, snap.EstimatedWaitTime)
}

func TestJoinQueue_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.user(t, "doc", models.RoleDoctor)
	pat := f.user(t, "pat", models.RolePatient)

	first, err := f.engine.JoinQueue(ctx, doc.ID, pat.ID)
	require.NoError(t, err)
	second, err := f.engine.JoinQueue(ctx, doc.ID, pat.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Position, second.Position)

	snap, err := f.engine.GetQueueStatus(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Entries, 1)
	assert.Equal(t, 15, snap.EstimatedWaitTime)

	// only the first join changed anything
	assert.Len(t, f.notifier.updates, 1)

	// still idempotent while CALLED
	_, err = f.engine.CallNextPatient(ctx, doc.ID)
	require.NoError(t, err)
	third, err := f.engine.JoinQueue(ctx, doc.ID, pat.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)
	assert.Equal(t, models.StatusCalled, third.Status)
}

func TestJoinQueue_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.user(t, "doc", models.RoleDoctor)
	pat := f.user(t, "pat", models.RolePatient)
	staff := f.user(t, "staff", models.RoleStaff)

	_, err := f.engine.JoinQueue(ctx, 0, pat.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, KindInvalidInput, Kind(err))

	_, err = f.engine.JoinQueue(ctx, 9999, pat.ID)
	assert.ErrorIs(t, err, ErrDoctorNotFound)
	assert.Equal(t, KindNotFound, Kind(err))

	_, err = f.engine.JoinQueue(ctx, staff.ID, pat.ID)
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	_, err = f.engine.JoinQueue(ctx, doc.ID, 9999)
	assert.ErrorIs(t, err, ErrPatientNotFound)

	_, err = f.engine.JoinQueue(ctx, doc.ID, staff.ID)
	assert.ErrorIs(t, err, ErrPatientNotFound)

	assert.Empty(t, f.notifier.updates)
}

// Two patients, one doctor: call order follows arrival order and the wait
// time follows the number of WAITING entries.
func TestQueueFlow_TwoPatients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.user(t, "doc", models.RoleDoctor)
	a := f.user(t, "a", models.RolePatient)
	b := f.user(t, "b", models.RolePatient)

	ea, err := f.engine.JoinQueue(ctx, doc.ID, a.ID)
	require.NoError(t, err)
	eb, err := f.engine.JoinQueue(ctx, doc.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, ea.Position)
	assert.Equal(t, 2, eb.Position)
	assert.Equal(t, 30, f.notifier.lastUpdate(t).EstimatedWaitTime)

	called, err := f.engine.CallNextPatient(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, called)
	assert.Equal(t, ea.ID, called.ID)
	assert.Equal(t, models.StatusCalled, called.Status)
	require.NotNil(t, called.CalledAt)

	snap := f.notifier.lastUpdate(t)
	assert.Equal(t, 1, snap.CurrentPosition)
	assert.Equal(t, 15, snap.EstimatedWaitTime)
	require.Len(t, snap.Entries, 2)
	assert.Equal(t, models.StatusCalled, snap.Entries[0].Status)
	assert.Equal(t, models.StatusWaiting, snap.Entries[1].Status)
	assert.Equal(t, []string{"queueUpdated", "queueUpdated", "queueUpdated", "patientCalled"}, f.notifier.order)
	require.Len(t, f.notifier.called, 1)
	assert.Equal(t, ea.ID, f.notifier.called[0].ID)

	_, err = f.engine.MarkInConsultation(ctx, ea.ID)
	require.NoError(t, err)
	done, err := f.engine.CompleteConsultation(ctx, ea.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	called, err = f.engine.CallNextPatient(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, called)
	assert.Equal(t, eb.ID, called.ID)

	final, err := f.engine.GetQueueStatus(ctx, doc.ID)
	require.NoError(t, err)
	snap = *final
	assert.Equal(t, 2, snap.CurrentPosition)
	assert.Equal(t, 0, snap.EstimatedWaitTime)
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, eb.ID, snap.Entries[0].ID)

	called, err = f.engine.CallNextPatient(ctx, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, called)
}

func TestCallNextPatient_NoQueue(t *testing.T) {
	f := newFixture(t)
	doc := f.user(t, "doc", models.RoleDoctor)

	called, err := f.engine.CallNextPatient(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Nil(t, called)
	assert.Empty(t, f.notifier.updates)

	_, err = f.engine.CallNextPatient(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetQueueStatus_EmptyWithoutQueue(t *testing.T) {
	f := newFixture(t)
	snap, err := f.engine.GetQueueStatus(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, uint(42), snap.DoctorID)
	assert.Zero(t, snap.QueueID)
	assert.NotNil(t, snap.Entries)
	assert.Empty(t, snap.Entries)
	assert.Zero(t, snap.EstimatedWaitTime)
}

func TestTransitions_StateMachine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.user(t, "doc", models.RoleDoctor)
	pat := f.user(t, "pat", models.RolePatient)

	entry, err := f.engine.JoinQueue(ctx, doc.ID, pat.ID)
	require.NoError(t, err)

	// WAITING cannot skip to IN_CONSULTATION or COMPLETED
	_, err = f.engine.MarkInConsultation(ctx, entry.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, KindInvalidTransition, Kind(err))
	_, err = f.engine.CompleteConsultation(ctx, entry.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.engine.CallNextPatient(ctx, doc.ID)
	require.NoError(t, err)
	_, err = f.engine.CompleteConsultation(ctx, entry.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	started, err := f.engine.MarkInConsultation(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInConsultation, started.Status)
	require.NotNil(t, started.ConsultationStartedAt)

	_, err = f.engine.MarkInConsultation(ctx, entry.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.engine.CancelEntry(ctx, entry.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.engine.CompleteConsultation(ctx, entry.ID)
	require.NoError(t, err)

	// COMPLETED is terminal
	for _, op := range []func(context.Context, uint) (*models.QueueEntry, error){
		f.engine.MarkInConsultation, f.engine.CompleteConsultation, f.engine.CancelEntry,
	} {
		_, err = op(ctx, entry.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	}

	_, err = f.engine.MarkInConsultation(ctx, 9999)
	assert.ErrorIs(t, err, ErrEntryNotFound)
	_, err = f.engine.CompleteConsultation(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMarkInConsultation_OnePerQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.user(t, "doc", models.RoleDoctor)
	a := f.user(t, "a", models.RolePatient)
	b := f.user(t, "b", models.RolePatient)

	ea, err := f.engine.JoinQueue(ctx, doc.ID, a.ID)
	require.NoError(t, err)
	eb, err := f.engine.JoinQueue(ctx, doc.ID, b.ID)
	require.NoError(t, err)
	_, err = f.engine.CallNextPatient(ctx, doc.ID)
	require.NoError(t, err)
	_, err = f.engine.CallNextPatient(ctx, doc.ID)
	require.NoError(t, err)

	_, err = f.engine.MarkInConsultation(ctx, ea.ID)
	require.NoError(t, err)
	_, err = f.engine.MarkInConsultation(ctx, eb.ID)
	assert.ErrorIs(t, err, ErrConsultationInProgress)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.engine.CompleteConsultation(ctx, ea.ID)
	require.NoError(t, err)
	_, err = f.engine.MarkInConsultation(ctx, eb.ID)
	assert.NoError(t, err)
}

func TestCancelEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.user(t, "doc", models.RoleDoctor)
	a := f.user(t, "a", models.RolePatient)
	b := f.user(t, "b", models.RolePatient)

	ea, err := f.engine.JoinQueue(ctx, doc.ID, a.ID)
	require.NoError(t, err)
	_, err = f.engine.JoinQueue(ctx, doc.ID, b.ID)
	require.NoError(t, err)

	cancelled, err := f.engine.CancelEntry(ctx, ea.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	snap := f.notifier.lastUpdate(t)
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, 15, snap.EstimatedWaitTime)

	// rejoining after cancel gets a fresh position; positions are never reused
	again, err := f.engine.JoinQueue(ctx, doc.ID, a.ID)
	require.NoError(t, err)
	assert.NotEqual(t, ea.ID, again.ID)
	assert.Equal(t, 3, again.Position)
}

func TestQueue_DayPartition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.user(t, "doc", models.RoleDoctor)
	a := f.user(t, "a", models.RolePatient)
	b := f.user(t, "b", models.RolePatient)

	_, err := f.engine.JoinQueue(ctx, doc.ID, a.ID)
	require.NoError(t, err)
	_, err = f.engine.JoinQueue(ctx, doc.ID, b.ID)
	require.NoError(t, err)
	yesterday, err := f.engine.GetQueueStatus(ctx, doc.ID)
	require.NoError(t, err)

	f.advance(24 * time.Hour)

	today, err := f.engine.GetQueueStatus(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", today.Date)
	assert.Empty(t, today.Entries)

	// yesterday's WAITING entry does not block today's join
	e, err := f.engine.JoinQueue(ctx, doc.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, e.Position)
	assert.NotEqual(t, yesterday.QueueID, e.QueueID)

	called, err := f.engine.CallNextPatient(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, called.ID)
}

func TestQueue_TimeZoneDecidesDay(t *testing.T) {
	f := newFixture(t)
	loc := time.FixedZone("UTC+3", 3*60*60)
	f.engine.cfg.Location = loc
	// 22:30 UTC is already the next day at UTC+3
	f.now = time.Date(2026, 10, 15, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-10-16", f.engine.Today())
}

func TestGetPatientPosition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.user(t, "doc", models.RoleDoctor)
	a := f.user(t, "a", models.RolePatient)
	b := f.user(t, "b", models.RolePatient)
	c := f.user(t, "c", models.RolePatient)

	_, err := f.engine.GetPatientPosition(ctx, doc.ID, a.ID)
	assert.ErrorIs(t, err, ErrEntryNotFound)

	for _, p := range []*models.User{a, b, c} {
		_, err := f.engine.JoinQueue(ctx, doc.ID, p.ID)
		require.NoError(t, err)
	}

	pos, err := f.engine.GetPatientPosition(ctx, doc.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, pos.Rank)
	assert.Equal(t, 2, pos.PatientsAhead)
	assert.Equal(t, 45, pos.EstimatedWaitTime)

	_, err = f.engine.CallNextPatient(ctx, doc.ID)
	require.NoError(t, err)

	pos, err = f.engine.GetPatientPosition(ctx, doc.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCalled, pos.Entry.Status)
	assert.Zero(t, pos.Rank)
	assert.Zero(t, pos.EstimatedWaitTime)
	assert.Equal(t, 1, pos.CurrentPosition)

	pos, err = f.engine.GetPatientPosition(ctx, doc.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, pos.Rank)
	assert.Equal(t, 1, pos.PatientsAhead)
	assert.Equal(t, 30, pos.EstimatedWaitTime)

	_, err = f.engine.GetPatientPosition(ctx, 0, c.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.user(t, "doc", models.RoleDoctor)
	pat := f.user(t, "pat", models.RolePatient)

	joined, err := f.engine.JoinQueue(ctx, doc.ID, pat.ID)
	require.NoError(t, err)

	entry, doctorID, err := f.engine.GetEntry(ctx, joined.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, doctorID)
	assert.Equal(t, pat.ID, entry.PatientID)

	_, _, err = f.engine.GetEntry(ctx, 9999)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestJoinQueue_ConcurrentDistinctPatients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.user(t, "doc", models.RoleDoctor)

	const n = 20
	patients := make([]*models.User, n)
	for i := range patients {
		patients[i] = f.user(t, fmt.Sprintf("p%02d", i), models.RolePatient)
	}

	var wg sync.WaitGroup
	positions := make([]int, n)
	errs := make([]error, n)
	for i := range patients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := f.engine.JoinQueue(ctx, doc.ID, patients[i].ID)
			errs[i] = err
			if err == nil {
				positions[i] = e.Position
			}
		}(i)
	}
	wg.Wait()

	seen := map[int]bool{}
	for i := range positions {
		require.NoError(t, errs[i])
		assert.False(t, seen[positions[i]], "position %d handed out twice", positions[i])
		seen[positions[i]] = true
	}
	for p := 1; p <= n; p++ {
		assert.True(t, seen[p], "position %d missing", p)
	}

	snap, err := f.engine.GetQueueStatus(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Entries, n)
	assert.Equal(t, n*15, snap.EstimatedWaitTime)
}

func TestJoinQueue_ConcurrentSamePatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.user(t, "doc", models.RoleDoctor)
	pat := f.user(t, "pat", models.RolePatient)

	const n = 10
	ids := make([]uint, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := f.engine.JoinQueue(ctx, doc.ID, pat.ID)
			if assert.NoError(t, err) {
				ids[i] = e.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	snap, err := f.engine.GetQueueStatus(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Entries, 1)
}

func TestCallNextPatient_Concurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.user(t, "doc", models.RoleDoctor)

	const waiting = 5
	for i := 0; i < waiting; i++ {
		p := f.user(t, fmt.Sprintf("p%d", i), models.RolePatient)
		_, err := f.engine.JoinQueue(ctx, doc.ID, p.ID)
		require.NoError(t, err)
	}

	const callers = 8
	results := make(chan *models.QueueEntry, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := f.engine.CallNextPatient(ctx, doc.ID)
			assert.NoError(t, err)
			results <- e
		}()
	}
	wg.Wait()
	close(results)

	calledIDs := map[uint]bool{}
	empty := 0
	for e := range results {
		if e == nil {
			empty++
			continue
		}
		assert.False(t, calledIDs[e.ID], "entry %d called twice", e.ID)
		calledIDs[e.ID] = true
	}
	assert.Len(t, calledIDs, waiting)
	assert.Equal(t, callers-waiting, empty)

	snap, err := f.engine.GetQueueStatus(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, waiting, snap.CurrentPosition)
	assert.Zero(t, snap.EstimatedWaitTime)
}

func TestKind(t *testing.T) {
	assert.Equal(t, KindInternal, Kind(fmt.Errorf("boom")))
	assert.Equal(t, KindNotFound, Kind(fmt.Errorf("wrap: %w", ErrEntryNotFound)))
	assert.Equal(t, KindInvalidTransition, Kind(ErrConsultationInProgress))
	assert.Equal(t, KindInvalidInput, Kind(fmt.Errorf("%w: x", ErrInvalidInput)))
	assert.Equal(t, "not_found", KindNotFound.String())
}

func TestPatientQueues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	docA := f.user(t, "doca", models.RoleDoctor)
	docB := f.user(t, "docb", models.RoleDoctor)
	first := f.user(t, "first", models.RolePatient)
	pat := f.user(t, "pat", models.RolePatient)

	_, err := f.engine.JoinQueue(ctx, docA.ID, first.ID)
	require.NoError(t, err)
	_, err = f.engine.JoinQueue(ctx, docA.ID, pat.ID)
	require.NoError(t, err)
	f.advance(time.Minute)
	_, err = f.engine.JoinQueue(ctx, docB.ID, pat.ID)
	require.NoError(t, err)
	_, err = f.engine.CallNextPatient(ctx, docB.ID)
	require.NoError(t, err)

	list, err := f.engine.PatientQueues(ctx, pat.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, docA.ID, list[0].DoctorID)
	assert.Equal(t, "2026-10-15", list[0].Date)
	assert.Equal(t, 2, list[0].Rank)
	assert.Equal(t, 30, list[0].EstimatedWaitTime)

	assert.Equal(t, docB.ID, list[1].DoctorID)
	assert.Equal(t, models.StatusCalled, list[1].Entry.Status)
	assert.Equal(t, 0, list[1].Rank)
	assert.Equal(t, 1, list[1].CurrentPosition)

	// tomorrow the patient stands nowhere
	f.advance(24 * time.Hour)
	list, err = f.engine.PatientQueues(ctx, pat.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.engine.PatientQueues(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRepublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.user(t, "doc", models.RoleDoctor)
	pat := f.user(t, "pat", models.RolePatient)
	_, err := f.engine.JoinQueue(ctx, doc.ID, pat.ID)
	require.NoError(t, err)

	f.engine.Republish(ctx, doc.ID)
	snap := f.notifier.lastUpdate(t)
	assert.Len(t, snap.Entries, 1)

	// after midnight the rebroadcast shows the new, empty day
	f.advance(24 * time.Hour)
	f.engine.Republish(ctx, doc.ID)
	snap = f.notifier.lastUpdate(t)
	assert.Equal(t, "2026-10-16", snap.Date)
	assert.Empty(t, snap.Entries)
}
