package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "routinekeeper/contracts/mq"
	"routinekeeper/internal/clock"
	"routinekeeper/internal/model"
	"routinekeeper/internal/notes"
	"routinekeeper/internal/notify"
	"routinekeeper/internal/store"
	"routinekeeper/internal/tracker"
	"routinekeeper/pkg/metrics"
)

// ErrItemsPending is returned by Close while any review item is still
// awaiting disposition.
var ErrItemsPending = errors.New("cannot close session: items are still pending")

// ErrWrongPhase is returned when an operation is issued outside the phase
// that allows it.
var ErrWrongPhase = errors.New("operation not valid in current session phase")

// Manager wires the session state machine to its collaborators.
type Manager struct {
	sessions  *store.SessionRepository
	routines  *store.RoutineRepository
	goals     *store.GoalRepository
	tracker   *tracker.Tracker
	reminders *notify.ReminderService
	notesQ    *notes.Coalescer
	publisher notify.Publisher
	clock     clock.Clock
	logger    *zap.Logger
}

func NewManager(
	sessions *store.SessionRepository,
	routines *store.RoutineRepository,
	goals *store.GoalRepository,
	trk *tracker.Tracker,
	reminders *notify.ReminderService,
	notesQ *notes.Coalescer,
	publisher notify.Publisher,
	clk clock.Clock,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		sessions:  sessions,
		routines:  routines,
		goals:     goals,
		tracker:   trk,
		reminders: reminders,
		notesQ:    notesQ,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

// Session is a live handle on one review session. Disposition actions are
// serialized per item: a second action on an item whose first action is
// still awaiting persistence is rejected, while actions on distinct items
// may proceed concurrently.
type Session struct {
	mgr *Manager
	doc *model.ReviewSessionDoc

	mu       sync.Mutex
	inFlight map[string]bool
}

// Open creates a new session in the Planning phase for the given user and
// persists it. One session exists per planning cycle; the previous cycle's
// session is never reopened.
func (m *Manager) Open(ctx context.Context, ownerID string) (*Session, error) {
	doc := &model.ReviewSessionDoc{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Phase:     model.PhasePlanning,
		CreatedAt: m.clock.Now(),
	}
	if err := m.sessions.Insert(ctx, doc); err != nil {
		return nil, err
	}

	m.logger.Info("Review session opened",
		zap.String("session_id", doc.ID),
		zap.String("owner_id", ownerID),
	)
	return &Session{
		mgr:      m,
		doc:      doc,
		inFlight: make(map[string]bool),
	}, nil
}

// Resume wraps an existing session document in a live handle.
func (m *Manager) Resume(ctx context.Context, sessionID string) (*Session, error) {
	doc, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Session{
		mgr:      m,
		doc:      doc,
		inFlight: make(map[string]bool),
	}, nil
}

// Doc returns a snapshot of the session document.
func (s *Session) Doc() model.ReviewSessionDoc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.doc
}

// BeginReview aggregates everything due as of now and moves the session
// from Planning to Review: overdue uncompleted tasks, routines whose
// current period has elapsed unmet occurrences, and recurring-review goals
// whose next review date has passed. Shared goals get a collaborative
// review entry alongside the personal items.
func (s *Session) BeginReview(ctx context.Context) error {
	s.mu.Lock()
	if s.doc.Phase != model.PhasePlanning {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	s.mu.Unlock()

	now := s.mgr.clock.Now()

	goals, err := s.mgr.goals.ListByOwner(ctx, s.doc.OwnerID)
	if err != nil {
		return err
	}
	routines, err := s.mgr.routines.ListByOwner(ctx, s.doc.OwnerID)
	if err != nil {
		return err
	}

	state, err := s.mgr.aggregate(goals, routines, now)
	if err != nil {
		return err
	}

	s.mu.Lock()
	prevPhase := s.doc.Phase
	prevState := s.doc.ReviewPhase
	s.doc.Phase = model.PhaseReview
	s.doc.ReviewPhase = state
	snapshot := *s.doc
	s.mu.Unlock()

	if err := s.mgr.sessions.Update(ctx, &snapshot); err != nil {
		s.mu.Lock()
		s.doc.Phase = prevPhase
		s.doc.ReviewPhase = prevState
		s.mu.Unlock()
		return err
	}

	s.mgr.logger.Info("Review phase entered",
		zap.String("session_id", s.doc.ID),
		zap.Int("items", len(state.TaskReviews)),
		zap.Int("shared_goals", len(state.SharedGoalReviews)),
	)
	return nil
}

// Close transitions the session to its terminal phase. It is rejected
// while any item is still pending.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.doc.Phase != model.PhaseReview {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	if s.doc.PendingCount() > 0 {
		s.mu.Unlock()
		return ErrItemsPending
	}
	s.doc.Phase = model.PhaseClosed
	snapshot := *s.doc
	s.mu.Unlock()

	if err := s.mgr.sessions.Update(ctx, &snapshot); err != nil {
		s.mu.Lock()
		s.doc.Phase = model.PhaseReview
		s.mu.Unlock()
		return err
	}

	metrics.SessionsClosed.Inc()
	s.mgr.logger.Info("Review session closed",
		zap.String("session_id", s.doc.ID),
		zap.String("owner_id", s.doc.OwnerID),
	)

	if s.mgr.publisher != nil {
		counts := map[model.ItemStatus]int{}
		for _, item := range snapshot.ReviewPhase.TaskReviews {
			counts[item.Status]++
		}
		payload := mqcontracts.SessionClosedPayload{
			SessionID: snapshot.ID,
			OwnerID:   snapshot.OwnerID,
			ClosedAt:  s.mgr.clock.Now().Format(time.RFC3339),
			Completed: counts[model.ItemCompleted],
			Missed:    counts[model.ItemMissed],
			Archived:  counts[model.ItemArchived],
		}
		if err := s.mgr.publisher.Publish("session.closed", payload); err != nil {
			// The close itself is committed; the event is advisory.
			s.mgr.logger.Error("Failed to publish session.closed",
				zap.String("session_id", snapshot.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}
