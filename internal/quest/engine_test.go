package quest

import (
	"math/rand"
	"testing"
	"time"

	"backend-stridequest/internal/metrics"
)

func movingSnap(speedKmh float64) metrics.Snapshot {
	pace := metrics.PaceUndefined
	if speedKmh > 0 {
		pace = 60 / speedKmh
	}
	return metrics.Snapshot{SpeedKmh: speedKmh, PaceMinPerKm: pace}
}

func newTestEngine(startedAt time.Time, warmup time.Duration) *Engine {
	return NewEngine("workout-1", startedAt, warmup, rand.New(rand.NewSource(1)))
}

func TestNoQuestsBeforeWarmup(t *testing.T) {
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	e := newTestEngine(start, 3*time.Minute)

	for elapsed := 10; elapsed < 180; elapsed += 10 {
		events := e.Tick(start.Add(time.Duration(elapsed)*time.Second), movingSnap(10))
		if len(events) != 0 {
			t.Fatalf("got events during warm-up at %ds", elapsed)
		}
	}
	if len(e.Summary().Active) != 0 {
		t.Fatalf("expected no active quests during warm-up")
	}
}

func TestFirstQuestGeneratedAfterWarmup(t *testing.T) {
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	e := newTestEngine(start, 3*time.Minute)

	events := e.Tick(start.Add(180*time.Second), movingSnap(10))
	if len(events) != 1 || events[0].Kind != NotifyGenerated {
		t.Fatalf("expected one generated event, got %+v", events)
	}
	if q := events[0].Quest; q.State != StateActive || q.StartedAt.IsZero() {
		t.Fatalf("generated quest not activated: %+v", q)
	}
}

func TestActiveQuestCap(t *testing.T) {
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	e := newTestEngine(start, 0)

	// a slow walk keeps every quest kind incomplete for a long while
	now := start
	for i := 0; i < 360; i++ {
		now = now.Add(10 * time.Second)
		e.Tick(now, movingSnap(2))
		if n := len(e.Summary().Active); n > 2 {
			t.Fatalf("active quest cap violated: %d", n)
		}
	}
}

func TestSpawnGapBetweenGenerations(t *testing.T) {
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	e := newTestEngine(start, 0)

	var genTimes []time.Time
	now := start
	for i := 0; i < 30; i++ {
		now = now.Add(10 * time.Second)
		for _, ev := range e.Tick(now, movingSnap(2)) {
			if ev.Kind == NotifyGenerated {
				genTimes = append(genTimes, now)
			}
		}
	}
	if len(genTimes) < 2 {
		t.Fatalf("expected at least two generations, got %d", len(genTimes))
	}
	for i := 1; i < len(genTimes); i++ {
		gap := genTimes[i].Sub(genTimes[i-1]).Seconds()
		if gap < 60 {
			t.Fatalf("generation gap too short: %vs", gap)
		}
	}
}

func TestDistanceSprintExpiresAtZeroSpeed(t *testing.T) {
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	e := newTestEngine(start, 0)

	tpl := catalog[0]
	if tpl.kind != KindDistanceSprint {
		t.Fatalf("catalog order changed")
	}
	q := buildQuest("q-sprint", tpl, DifficultyEasy)
	q.State = StateActive
	q.StartedAt = start
	e.active = append(e.active, &q)

	var expired *Notification
	now := start
	for i := 0; i < 13 && expired == nil; i++ {
		now = now.Add(10 * time.Second)
		for _, ev := range e.Tick(now, movingSnap(0)) {
			ev := ev
			if ev.Kind == NotifyExpired && ev.Quest.ID == "q-sprint" {
				expired = &ev
			}
			if ev.Kind == NotifyCompleted && ev.Quest.ID == "q-sprint" {
				t.Fatalf("zero-speed sprint must not complete")
			}
		}
	}
	if expired == nil {
		t.Fatalf("sprint never expired")
	}
	if got := now.Sub(start).Seconds(); got != 120 {
		t.Fatalf("expected expiry at the 120s mark, got %vs", got)
	}
	if expired.Quest.Progress != 0 {
		t.Fatalf("expected zero progress, got %v", expired.Quest.Progress)
	}
	if e.Summary().TotalXP != 0 {
		t.Fatalf("expiration must not credit rewards")
	}
}

func TestDistanceSprintCompletes(t *testing.T) {
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	e := newTestEngine(start, 0)

	q := buildQuest("q-sprint", catalog[0], DifficultyEasy) // 200 m target
	q.State = StateActive
	q.StartedAt = start
	e.active = append(e.active, &q)

	// 18 km/h = 5 m/s => 50 m of progress per tick, done on the 4th tick
	var completed bool
	now := start
	for i := 0; i < 4; i++ {
		now = now.Add(10 * time.Second)
		for _, ev := range e.Tick(now, movingSnap(18)) {
			if ev.Kind == NotifyCompleted && ev.Quest.ID == "q-sprint" {
				completed = true
				if ev.Quest.CompletedAt.IsZero() {
					t.Fatalf("completed quest missing timestamp")
				}
			}
		}
	}
	if !completed {
		t.Fatalf("sprint did not complete")
	}

	sum := e.Summary()
	if len(sum.Completed) != 1 || sum.TotalXP != 10 || sum.TotalCoins != 5 {
		t.Fatalf("unexpected reward tally: %+v", sum)
	}
}

func TestExpirationBeatsCompletionOnSameTick(t *testing.T) {
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	e := newTestEngine(start, 0)

	q := buildQuest("q-sprint", catalog[0], DifficultyEasy)
	q.State = StateActive
	q.StartedAt = start
	q.Progress = 199 // one tick from completion
	e.active = append(e.active, &q)

	events := e.Tick(start.Add(120*time.Second), movingSnap(18))
	if len(events) == 0 || events[0].Kind != NotifyExpired {
		t.Fatalf("expected expiration to win the tick, got %+v", events)
	}
	if e.Summary().TotalXP != 0 {
		t.Fatalf("expired quest credited a reward")
	}
}

func TestEnduranceDecaysOnStillTicksFlooredAtZero(t *testing.T) {
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	e := newTestEngine(start, 0)

	q := buildQuest("q-end", catalog[3], DifficultyEasy)
	if q.Kind != KindEnduranceTest {
		t.Fatalf("catalog order changed")
	}
	q.State = StateActive
	q.StartedAt = start
	e.active = append(e.active, &q)

	now := start.Add(10 * time.Second)
	e.Tick(now, movingSnap(8)) // moving: +10
	if q.Progress != 10 {
		t.Fatalf("expected progress 10, got %v", q.Progress)
	}

	now = now.Add(10 * time.Second)
	e.Tick(now, movingSnap(0)) // still: -5
	if q.Progress != 5 {
		t.Fatalf("expected decay to 5, got %v", q.Progress)
	}

	for i := 0; i < 3; i++ {
		now = now.Add(10 * time.Second)
		e.Tick(now, movingSnap(0))
	}
	if q.Progress != 0 {
		t.Fatalf("decay must floor at zero, got %v", q.Progress)
	}
}

func TestPaceMaintainOnlyCountsBandTicks(t *testing.T) {
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	e := newTestEngine(start, 0)

	q := buildQuest("q-pace", catalog[1], DifficultyEasy)
	q.State = StateActive
	q.StartedAt = start
	e.active = append(e.active, &q)

	now := start.Add(10 * time.Second)
	e.Tick(now, movingSnap(10)) // 6 min/km, in band
	if q.Progress != 10 {
		t.Fatalf("in-band tick not counted: %v", q.Progress)
	}

	now = now.Add(10 * time.Second)
	e.Tick(now, movingSnap(30)) // 2 min/km, implausible
	if q.Progress != 10 {
		t.Fatalf("out-of-band tick counted: %v", q.Progress)
	}

	now = now.Add(10 * time.Second)
	e.Tick(now, movingSnap(0)) // sentinel pace
	if q.Progress != 10 {
		t.Fatalf("sentinel pace tick counted: %v", q.Progress)
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	e := newTestEngine(start, 0)

	q := buildQuest("q-burst", catalog[2], DifficultyEasy) // 30 s above 12 km/h
	q.State = StateActive
	q.StartedAt = start
	e.active = append(e.active, &q)

	now := start
	for i := 0; i < 3; i++ {
		now = now.Add(10 * time.Second)
		e.Tick(now, movingSnap(15))
	}
	if q.State != StateCompleted {
		t.Fatalf("expected completion, got %s", q.State)
	}

	// further ticks must not touch the completed quest or re-credit it
	xp := e.Summary().TotalXP
	for i := 0; i < 10; i++ {
		now = now.Add(10 * time.Second)
		e.Tick(now, movingSnap(15))
	}
	if q.State != StateCompleted {
		t.Fatalf("terminal state revisited: %s", q.State)
	}
	if got := e.Summary().TotalXP; got < xp {
		t.Fatalf("reward tally decreased: %d -> %d", xp, got)
	}
	for _, c := range e.Summary().Completed {
		if c.ID == "q-burst" && c.State != StateCompleted {
			t.Fatalf("completed log mutated")
		}
	}
}

func TestFinalizeClosesSummary(t *testing.T) {
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	e := newTestEngine(start, 0)

	e.Tick(start.Add(10*time.Second), movingSnap(10))
	sum := e.Finalize()
	if sum.IsActive {
		t.Fatalf("finalized summary still active")
	}
	if sum.WorkoutID != "workout-1" || sum.SessionID == "" {
		t.Fatalf("summary ids missing: %+v", sum)
	}
}
