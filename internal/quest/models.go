package quest

import "time"

type Kind string

const (
	KindDistanceSprint Kind = "distance_sprint"
	KindPaceMaintain   Kind = "pace_maintain"
	KindSpeedBurst     Kind = "speed_burst"
	KindEnduranceTest  Kind = "endurance_test"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type State string

const (
	StatePending   State = "pending"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateExpired   State = "expired"
)

// Quest is one short in-workout challenge. Progress is monotonic for every
// kind except endurance_test, which decays on still ticks.
type Quest struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Kind         Kind       `json:"kind"`
	Difficulty   Difficulty `json:"difficulty"`
	Target       float64    `json:"target"`
	Progress     float64    `json:"progress"`
	State        State      `json:"state"`
	TimeLimitSec int        `json:"time_limit_sec,omitempty"`
	StartedAt    time.Time  `json:"started_at,omitempty"`
	CompletedAt  time.Time  `json:"completed_at,omitempty"`
	RewardXP     int        `json:"reward_xp"`
	RewardCoins  int        `json:"reward_coins"`
}

// SessionSummary is the running quest tally for one workout.
type SessionSummary struct {
	SessionID  string  `json:"session_id"`
	WorkoutID  string  `json:"workout_id"`
	Active     []Quest `json:"active_quests"`
	Completed  []Quest `json:"completed_quests"`
	TotalXP    int     `json:"total_xp_earned"`
	TotalCoins int     `json:"total_coins_earned"`
	IsActive   bool    `json:"is_active"`
}

// Notification is one outward quest lifecycle event.
type Notification struct {
	Kind  string `json:"kind"` // quest_generated | quest_completed | quest_expired
	Quest Quest  `json:"quest"`
}

const (
	NotifyGenerated = "quest_generated"
	NotifyCompleted = "quest_completed"
	NotifyExpired   = "quest_expired"
)
