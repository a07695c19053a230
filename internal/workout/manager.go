package workout

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"backend-stridequest/internal/config"
	"backend-stridequest/internal/metrics"
	"backend-stridequest/internal/progression"
	"backend-stridequest/internal/stream"
)

// Manager owns the active sessions, at most one per user. Lifecycle calls
// (start/pause/resume/end) serialize through its mutex; per-tick mutation
// stays inside each session.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	cfg   config.Config
	hub   *stream.Hub
	store *Store

	// now and rng are injectable for tests.
	now func() time.Time
	rng *rand.Rand
}

func NewManager(cfg config.Config, hub *stream.Hub, store *Store) *Manager {
	return &Manager{
		sessions: map[string]*Session{},
		cfg:      cfg,
		hub:      hub,
		store:    store,
		now:      time.Now,
	}
}

// Start begins a workout for the user. Outdoor kinds require a location
// grant; a user with a non-ended session gets ErrAlreadyActive.
func (m *Manager) Start(userID string, kind Kind, locationGranted bool, src SampleSource) (*Session, error) {
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	if !kind.Indoor() && !locationGranted {
		return nil, ErrPermissionDenied
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[userID]; ok && existing.State() != StateEnded {
		return nil, ErrAlreadyActive
	}

	s := newSession(userID, kind, m.cfg, m.hub, m.now, m.rng)
	s.attachSource(src)
	s.startLoop()
	m.sessions[userID] = s
	return s, nil
}

// Pause suspends the user's active session.
func (m *Manager) Pause(userID string) (State, error) {
	s, ok := m.current(userID)
	if !ok {
		return StateIdle, ErrNoSession
	}
	err := s.pause()
	return s.State(), err
}

// Resume restarts the user's paused session.
func (m *Manager) Resume(userID string, src SampleSource) (State, error) {
	s, ok := m.current(userID)
	if !ok {
		return StateIdle, ErrNoSession
	}
	err := s.resume(src)
	return s.State(), err
}

// End finishes the user's session and returns the summary. The summary is
// built and returned even when persistence fails; ending with no running
// session (including a second End) reports ErrNoSession.
func (m *Manager) End(ctx context.Context, userID string) (*Summary, error) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNoSession
	}

	final, questSum, err := s.end()
	if err != nil {
		return nil, err
	}

	level, totalXP := m.userProgression(ctx, userID)
	prog := progression.Calculate(string(s.Kind), final.DurationSec, final.DistanceM, final.MaxSpeedKmh, level, totalXP)

	summary := BuildSummary(s.ID, userID, s.Kind, s.StartedAt, s.EndedAt(), final, questSum, prog)
	m.persist(ctx, s, &summary)

	if m.hub != nil && len(summary.Quests.Completed) > 0 {
		m.hub.Notify(stream.EventSessionSummary, s.ID, summary)
	}
	return &summary, nil
}

// Current returns the user's non-ended session.
func (m *Manager) Current(userID string) (*Session, bool) {
	return m.current(userID)
}

// Ingest feeds one position sample into the user's active session.
func (m *Manager) Ingest(userID string, sample metrics.PositionSample) error {
	s, ok := m.current(userID)
	if !ok {
		return ErrNoSession
	}
	s.EnqueueSample(sample)
	return nil
}

func (m *Manager) current(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok || s.State() == StateEnded {
		return nil, false
	}
	return s, true
}

func (m *Manager) userProgression(ctx context.Context, userID string) (level, totalXP int) {
	if m.store == nil {
		return 1, 0
	}
	level, totalXP, err := m.store.UserProgression(ctx, userID)
	if err != nil {
		log.Printf("workout: load progression for %s failed: %v", userID, err)
		return 1, 0
	}
	return level, totalXP
}

// persist saves the workout and progression. Failures are logged, never
// propagated: the in-memory summary stays the source of truth and the
// caller may retry.
func (m *Manager) persist(ctx context.Context, s *Session, summary *Summary) {
	if m.store == nil || !summary.Eligible {
		return
	}

	if err := m.store.SaveWorkout(ctx, *summary, s.Route()); err != nil {
		log.Printf("workout %s: save failed: %v", s.ID, err)
	}
	if err := m.store.UpdateUserProgression(ctx, summary.UserID, summary.Progression, summary.Quests.TotalXP, summary.Quests.TotalCoins); err != nil {
		log.Printf("workout %s: progression update failed: %v", s.ID, err)
	}
	unlocked, err := m.store.CheckAchievements(ctx, summary.UserID, summary.Progression.AchievementCandidates)
	if err != nil {
		log.Printf("workout %s: achievement check failed: %v", s.ID, err)
		return
	}
	summary.UnlockedAchievements = unlocked
}
