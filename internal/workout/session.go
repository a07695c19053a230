package workout

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"backend-stridequest/internal/config"
	"backend-stridequest/internal/metrics"
	"backend-stridequest/internal/quest"
	"backend-stridequest/internal/stream"

	"github.com/google/uuid"
)

// Session is the state machine for one workout. All mutation funnels
// through its mutex: the 1 Hz metrics tick, the quest tick, sample arrival
// and the lifecycle calls all serialize against it, so no partial update of
// the snapshot or the active-quest list is ever observable.
type Session struct {
	ID        string
	UserID    string
	Kind      Kind
	StartedAt time.Time

	mu      sync.Mutex
	state   State
	endedAt time.Time

	// lifecycle serializes pause/resume/end against each other. mu alone
	// covers tick-vs-lifecycle; without this, two concurrent pauses could
	// both pass the state check and both close the stop channel.
	lifecycle sync.Mutex

	acc     *metrics.Accumulator
	quests  *quest.Engine
	pending []metrics.PositionSample
	latest  metrics.Snapshot

	pausedAt       time.Time
	pausedTotal    time.Duration
	lastIndoorTick time.Time

	metricsTick   time.Duration
	questTick     time.Duration
	excludePaused bool

	hub *stream.Hub
	now func() time.Time

	stop chan struct{}
	done chan struct{}

	unsubscribe func()
}

func newSession(userID string, kind Kind, cfg config.Config, hub *stream.Hub, now func() time.Time, rng *rand.Rand) *Session {
	if now == nil {
		now = time.Now
	}
	if cfg.MetricsTickSec <= 0 {
		cfg.MetricsTickSec = 1
	}
	if cfg.QuestTickSec <= 0 {
		cfg.QuestTickSec = 10
	}
	id := uuid.NewString()
	startedAt := now()

	s := &Session{
		ID:            id,
		UserID:        userID,
		Kind:          kind,
		StartedAt:     startedAt,
		state:         StateActive,
		acc:           metrics.NewAccumulator(profileFor(kind)),
		quests:        quest.NewEngine(id, startedAt, time.Duration(cfg.QuestWarmupSec)*time.Second, rng),
		metricsTick:   time.Duration(cfg.MetricsTickSec) * time.Second,
		questTick:     time.Duration(cfg.QuestTickSec) * time.Second,
		excludePaused: cfg.DurationExcludesPaused,
		hub:           hub,
		now:           now,
	}
	s.lastIndoorTick = startedAt
	return s
}

// attachSource subscribes the session to a platform location feed. Outdoor
// sessions only.
func (s *Session) attachSource(src SampleSource) {
	if src == nil || s.Kind.Indoor() {
		return
	}
	s.unsubscribe = src.Subscribe(s.EnqueueSample)
}

func (s *Session) detachSource() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// EnqueueSample buffers one position sample for the next metrics tick.
// Samples arriving while the session is not Active are dropped: pause stops
// ingestion without discarding accumulated state.
func (s *Session) EnqueueSample(sample metrics.PositionSample) {
	if s.Kind.Indoor() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = s.now()
	}
	s.pending = append(s.pending, sample)
}

func (s *Session) startLoop() {
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
}

// stopLoop cancels the tick goroutine and waits for it to exit. After it
// returns no further tick can fire.
func (s *Session) stopLoop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop = nil
	s.done = nil
}

func (s *Session) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	metricsTicker := time.NewTicker(s.metricsTick)
	defer metricsTicker.Stop()
	questTicker := time.NewTicker(s.questTick)
	defer questTicker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-metricsTicker.C:
			s.onMetricsTick(s.now())
		case <-questTicker.C:
			s.onQuestTick(s.now())
		}
	}
}

// onMetricsTick applies buffered samples (outdoor) or advances the indoor
// simulation, refreshes the snapshot and publishes it.
func (s *Session) onMetricsTick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}

	if s.Kind.Indoor() {
		delta := now.Sub(s.lastIndoorTick).Seconds()
		if delta < 0 {
			delta = 0
		}
		s.lastIndoorTick = now
		s.acc.Tick(delta)
	} else if len(s.pending) > 0 {
		sortSamples(s.pending)
		for _, sample := range s.pending {
			s.acc.Ingest(sample)
		}
		s.pending = s.pending[:0]
	}

	s.latest = s.acc.Snapshot(s.durationSecLocked(now))
	if s.hub != nil {
		s.hub.Notify(stream.EventMetricsTick, s.ID, s.latest)
	}
}

// onQuestTick drives the quest engine with the latest snapshot and
// publishes any lifecycle events it produced.
func (s *Session) onQuestTick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}

	events := s.quests.Tick(now, s.latest)
	if s.hub == nil {
		return
	}
	for _, ev := range events {
		s.hub.Notify(ev.Kind, s.ID, ev.Quest)
	}
	if len(events) > 0 {
		s.hub.Notify(stream.EventMetricsTick, s.ID, s.latest)
	}
}

// pause stops ticking and sample ingestion without discarding state.
func (s *Session) pause() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.state != StateActive {
		state := s.state
		s.mu.Unlock()
		log.Printf("workout %s: pause ignored in state %s", s.ID, state)
		return ErrInvalidTransition
	}
	s.mu.Unlock()

	s.stopLoop()
	s.detachSource()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StatePaused
	s.pausedAt = s.now()
	return nil
}

// resume restarts ticking from the preserved state.
func (s *Session) resume(src SampleSource) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.state != StatePaused {
		state := s.state
		s.mu.Unlock()
		log.Printf("workout %s: resume ignored in state %s", s.ID, state)
		return ErrInvalidTransition
	}
	now := s.now()
	s.pausedTotal += now.Sub(s.pausedAt)
	s.pausedAt = time.Time{}
	s.lastIndoorTick = now
	s.state = StateActive
	s.mu.Unlock()

	s.attachSource(src)
	s.startLoop()
	return nil
}

// end freezes the session. It returns the final snapshot and quest summary;
// a second call reports ErrNoSession and mutates nothing.
func (s *Session) end() (metrics.Snapshot, quest.SessionSummary, error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.state != StateActive && s.state != StatePaused {
		s.mu.Unlock()
		return metrics.Snapshot{}, quest.SessionSummary{}, ErrNoSession
	}
	wasActive := s.state == StateActive
	s.mu.Unlock()

	if wasActive {
		s.stopLoop()
	}
	s.detachSource()

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if s.state == StatePaused {
		s.pausedTotal += now.Sub(s.pausedAt)
		s.pausedAt = time.Time{}
	}
	s.state = StateEnded
	s.endedAt = now
	s.latest = s.acc.Snapshot(s.durationSecLocked(now))
	return s.latest, s.quests.Finalize(), nil
}

// durationSecLocked reports elapsed duration. Paused intervals count by
// default; the DURATION_EXCLUDES_PAUSED config flag switches to moving time.
func (s *Session) durationSecLocked(now time.Time) float64 {
	end := now
	if s.state == StateEnded {
		end = s.endedAt
	}
	d := end.Sub(s.StartedAt)
	if s.excludePaused {
		paused := s.pausedTotal
		if !s.pausedAt.IsZero() {
			paused += now.Sub(s.pausedAt)
		}
		d -= paused
	}
	if d < 0 {
		d = 0
	}
	return d.Seconds()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) EndedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endedAt
}

// Latest returns the most recent metrics snapshot.
func (s *Session) Latest() metrics.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// QuestSummary returns the running quest tally.
func (s *Session) QuestSummary() quest.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quests.Summary()
}

// Route hands out a copy of the recorded route.
func (s *Session) Route() []metrics.PositionSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acc.Route()
}
