package quest

import (
	"math/rand"
	"time"

	"backend-stridequest/internal/metrics"

	"github.com/google/uuid"
)

const (
	// maxActive caps how many quests run at once.
	maxActive = 2
	// minSpawnGapSec/maxSpawnGapSec bound the randomized delay between
	// quest generations after the first one.
	minSpawnGapSec = 60
	maxSpawnGapSec = 120

	paceBandMin       = 3.0  // min/km
	paceBandMax       = 10.0 // min/km
	burstSpeedKmh     = 12.0
	motionSpeedMps    = 1.0
	progressPerTick   = 10.0
	enduranceDecay    = 5.0
	sprintTickSeconds = 10.0
)

// Engine owns the live quests of exactly one workout session. It is driven
// by the session's quest tick; all methods assume the caller serializes
// access.
type Engine struct {
	warmup    time.Duration
	startedAt time.Time

	lastGen    time.Time
	nextGapSec int

	active  []*Quest
	summary SessionSummary

	rng *rand.Rand
}

// NewEngine creates the quest engine for one workout. A nil rng gets a
// time-seeded source; tests pass a fixed seed.
func NewEngine(workoutID string, startedAt time.Time, warmup time.Duration, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		warmup:    warmup,
		startedAt: startedAt,
		rng:       rng,
		summary: SessionSummary{
			SessionID: uuid.NewString(),
			WorkoutID: workoutID,
			IsActive:  true,
		},
	}
}

// Tick evaluates all active quests against the current metrics and then
// considers generating a new one. Expiration is checked before any progress
// is applied, so a quest that times out on the same tick it would have
// completed expires. Returns the lifecycle notifications to publish.
func (e *Engine) Tick(now time.Time, snap metrics.Snapshot) []Notification {
	if now.Sub(e.startedAt) < e.warmup {
		return nil
	}

	var events []Notification

	remaining := e.active[:0]
	for _, q := range e.active {
		if q.TimeLimitSec > 0 && now.Sub(q.StartedAt).Seconds() >= float64(q.TimeLimitSec) {
			q.State = StateExpired
			events = append(events, Notification{Kind: NotifyExpired, Quest: *q})
			continue
		}

		e.applyProgress(q, snap)

		if q.Progress >= q.Target {
			e.complete(q, now)
			events = append(events, Notification{Kind: NotifyCompleted, Quest: *q})
			continue
		}
		remaining = append(remaining, q)
	}
	e.active = remaining

	if q := e.maybeGenerate(now); q != nil {
		events = append(events, Notification{Kind: NotifyGenerated, Quest: *q})
	}

	e.summary.Active = e.activeCopies()
	return events
}

func (e *Engine) applyProgress(q *Quest, snap metrics.Snapshot) {
	speedMps := snap.SpeedKmh / 3.6

	switch q.Kind {
	case KindDistanceSprint:
		q.Progress += speedMps * sprintTickSeconds
	case KindPaceMaintain:
		if snap.PaceMinPerKm != metrics.PaceUndefined &&
			snap.PaceMinPerKm >= paceBandMin && snap.PaceMinPerKm <= paceBandMax {
			q.Progress += progressPerTick
		}
	case KindSpeedBurst:
		if snap.SpeedKmh > burstSpeedKmh {
			q.Progress += progressPerTick
		}
	case KindEnduranceTest:
		if speedMps > motionSpeedMps {
			q.Progress += progressPerTick
		} else {
			q.Progress -= enduranceDecay
			if q.Progress < 0 {
				q.Progress = 0
			}
		}
	}
}

// complete moves a quest to its terminal Completed state and credits the
// reward exactly once. Quests reach here only while Active, which is what
// makes the reward idempotent: a Completed quest never re-enters the active
// set.
func (e *Engine) complete(q *Quest, now time.Time) {
	if q.State != StateActive {
		return
	}
	q.State = StateCompleted
	q.CompletedAt = now
	e.summary.Completed = append(e.summary.Completed, *q)
	e.summary.TotalXP += q.RewardXP
	e.summary.TotalCoins += q.RewardCoins
}

func (e *Engine) maybeGenerate(now time.Time) *Quest {
	if len(e.active) >= maxActive {
		return nil
	}
	if !e.lastGen.IsZero() && now.Sub(e.lastGen).Seconds() < float64(e.nextGapSec) {
		return nil
	}

	tpl := catalog[e.rng.Intn(len(catalog))]
	d := difficulties[e.rng.Intn(len(difficulties))]
	q := buildQuest(uuid.NewString(), tpl, d)
	q.State = StateActive
	q.StartedAt = now

	e.active = append(e.active, &q)
	e.lastGen = now
	e.nextGapSec = minSpawnGapSec + e.rng.Intn(maxSpawnGapSec-minSpawnGapSec+1)
	return &q
}

// Summary returns a copy of the running tally.
func (e *Engine) Summary() SessionSummary {
	s := e.summary
	s.Active = e.activeCopies()
	s.Completed = append([]Quest(nil), e.summary.Completed...)
	return s
}

// Finalize closes the quest session and returns the terminal summary.
// Quests still active at workout end stay in the Active list unresolved.
func (e *Engine) Finalize() SessionSummary {
	e.summary.IsActive = false
	return e.Summary()
}

func (e *Engine) activeCopies() []Quest {
	out := make([]Quest, 0, len(e.active))
	for _, q := range e.active {
		out = append(out, *q)
	}
	return out
}
