package workout

import (
	"errors"
	"time"

	"backend-stridequest/internal/metrics"
	"backend-stridequest/internal/progression"
	"backend-stridequest/internal/quest"
)

type Kind string

const (
	KindOutdoorRun  Kind = "outdoor_run"
	KindOutdoorWalk Kind = "outdoor_walk"
	KindIndoorRun   Kind = "indoor_run"
	KindIndoorWalk  Kind = "indoor_walk"
)

func (k Kind) Valid() bool {
	switch k {
	case KindOutdoorRun, KindOutdoorWalk, KindIndoorRun, KindIndoorWalk:
		return true
	}
	return false
}

func (k Kind) Indoor() bool {
	return k == KindIndoorRun || k == KindIndoorWalk
}

// profileFor maps a workout kind onto the accumulator constants. The indoor
// base speeds seed the synthetic signal; kcal/km drives the calorie estimate.
func profileFor(k Kind) metrics.Profile {
	switch k {
	case KindIndoorRun:
		return metrics.Profile{Indoor: true, BaseSpeedKmh: 10, KcalPerKm: 60}
	case KindIndoorWalk:
		return metrics.Profile{Indoor: true, BaseSpeedKmh: 5, KcalPerKm: 48}
	case KindOutdoorWalk:
		return metrics.Profile{KcalPerKm: 50}
	default:
		return metrics.Profile{KcalPerKm: 62}
	}
}

type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
	StatePaused State = "paused"
	StateEnded  State = "ended"
)

var (
	// ErrAlreadyActive: start while another session is running. Surfaced
	// to the client as a conflict.
	ErrAlreadyActive = errors.New("a workout session is already active")
	// ErrInvalidTransition: pause/resume from the wrong state. Logged and
	// treated as a no-op.
	ErrInvalidTransition = errors.New("invalid session state transition")
	// ErrNoSession: end/pause/resume with nothing to act on.
	ErrNoSession = errors.New("no active workout session")
	// ErrPermissionDenied: outdoor start without a location grant.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrUnknownKind: unrecognized workout kind.
	ErrUnknownKind = errors.New("unknown workout kind")
)

// Summary is the immutable end-of-workout record handed back to the client.
// It is the source of truth even when persistence fails.
type Summary struct {
	WorkoutID string    `json:"workout_id"`
	UserID    string    `json:"user_id"`
	Kind      Kind      `json:"kind"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`

	Metrics     metrics.Snapshot     `json:"metrics"`
	Quests      quest.SessionSummary `json:"quests"`
	Progression progression.Result   `json:"progression"`

	// Eligible is false for workouts under the minimum duration: they
	// keep their raw metrics for display but earn and persist nothing.
	Eligible bool `json:"eligible"`

	// UnlockedAchievements are the candidates the persistence collaborator
	// confirmed as newly unlocked. Empty when persistence is unavailable.
	UnlockedAchievements []string `json:"unlocked_achievements"`
}
