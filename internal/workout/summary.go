package workout

import (
	"time"

	"backend-stridequest/internal/metrics"
	"backend-stridequest/internal/progression"
	"backend-stridequest/internal/quest"
)

// BuildSummary assembles the final workout record from the frozen metrics,
// the terminal quest log and the progression result. Workouts under the
// minimum duration keep their raw metrics but have calories, XP, quest
// rewards and achievements zeroed out.
func BuildSummary(
	workoutID, userID string,
	kind Kind,
	startedAt, endedAt time.Time,
	final metrics.Snapshot,
	quests quest.SessionSummary,
	prog progression.Result,
) Summary {
	eligible := final.DurationSec >= progression.MinWorkoutSec
	if !eligible {
		final.Calories = 0
		quests.Active = nil
		quests.Completed = nil
		quests.TotalXP = 0
		quests.TotalCoins = 0
		prog = progression.Result{NewLevel: prog.NewLevel}
	}

	return Summary{
		WorkoutID:   workoutID,
		UserID:      userID,
		Kind:        kind,
		StartedAt:   startedAt,
		EndedAt:     endedAt,
		Metrics:     final,
		Quests:      quests,
		Progression: prog,
		Eligible:    eligible,
	}
}
