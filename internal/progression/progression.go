// Package progression converts completed workout metrics into XP, level-ups,
// skill points and achievement candidates. Everything here is pure: callers
// persist the results elsewhere.
package progression

import "math"

// MinWorkoutSec is the minimum duration for a workout to earn anything.
// Shorter workouts yield zero XP and are not persisted.
const MinWorkoutSec = 180.0

const (
	baseXP              = 10.0
	xpPerAchievement    = 15.0
	maxWorkoutXP        = 100
	skillPointsPerLevel = 2
)

// Result is the pure output of one completed workout.
type Result struct {
	XPGained              int      `json:"xp_gained"`
	NewLevel              int      `json:"new_level"`
	SkillPointsGained     int      `json:"skill_points_gained"`
	AchievementCandidates []string `json:"achievement_candidates"`
}

// ExperienceForLevel returns the cumulative XP required to hold a level.
// Strictly increasing: floor(100 * 1.5^(level-1)).
func ExperienceForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return int(math.Floor(100 * math.Pow(1.5, float64(level-1))))
}

// ResolveLevelUp walks the level ladder from the current level with the new
// cumulative XP. The threshold grows geometrically, so the loop runs at most
// O(log xp) iterations.
func ResolveLevelUp(level, xp int) (newLevel, skillPoints int) {
	if level < 1 {
		level = 1
	}
	newLevel = level
	for xp >= ExperienceForLevel(newLevel+1) {
		newLevel++
		skillPoints += skillPointsPerLevel
	}
	return newLevel, skillPoints
}

// TypeMultiplier scales workout XP by kind. Unknown kinds earn the neutral
// multiplier.
func TypeMultiplier(kind string) float64 {
	switch kind {
	case "outdoor_run":
		return 1.2
	case "indoor_run":
		return 1.1
	case "outdoor_walk":
		return 1.0
	case "indoor_walk":
		return 0.9
	default:
		return 1.0
	}
}

// WorkoutXP computes the XP for one completed workout, clamped to
// [0, maxWorkoutXP]. Workouts under MinWorkoutSec earn exactly zero.
func WorkoutXP(kind string, durationSec, distanceM float64, achievementCount int) int {
	if durationSec < MinWorkoutSec {
		return 0
	}
	minutes := durationSec / 60
	raw := baseXP +
		math.Round(minutes*2) +
		math.Round(distanceM/200) +
		xpPerAchievement*float64(achievementCount)
	xp := int(math.Round(raw * TypeMultiplier(kind)))
	if xp < 0 {
		return 0
	}
	if xp > maxWorkoutXP {
		return maxWorkoutXP
	}
	return xp
}

type threshold struct {
	name  string
	value float64
}

var (
	distanceThresholds = []threshold{
		{"1K Completed", 1000},
		{"2K Conqueror", 2000},
		{"5K Finisher", 5000},
		{"10K Legend", 10000},
	}
	durationThresholds = []threshold{
		{"Ten Minute Mover", 600},
		{"Half Hour Hero", 1800},
		{"Hour of Power", 3600},
	}
	speedThresholds = []threshold{
		{"Speed Demon", 12},
		{"Velocity Rush", 15},
		{"Lightning Legs", 18},
	}
)

// AchievementCandidates reports every threshold a workout crossed, once
// each. Workouts under MinWorkoutSec report nothing.
func AchievementCandidates(durationSec, distanceM, maxSpeedKmh float64) []string {
	if durationSec < MinWorkoutSec {
		return nil
	}
	var out []string
	for _, t := range distanceThresholds {
		if distanceM >= t.value {
			out = append(out, t.name)
		}
	}
	for _, t := range durationThresholds {
		if durationSec >= t.value {
			out = append(out, t.name)
		}
	}
	for _, t := range speedThresholds {
		if maxSpeedKmh >= t.value {
			out = append(out, t.name)
		}
	}
	return out
}

// Calculate is the one-shot entry point for a finished workout: candidates
// first (they feed the XP formula), then XP, then level resolution against
// the user's cumulative XP.
func Calculate(kind string, durationSec, distanceM, maxSpeedKmh float64, currentLevel, currentXP int) Result {
	candidates := AchievementCandidates(durationSec, distanceM, maxSpeedKmh)
	xp := WorkoutXP(kind, durationSec, distanceM, len(candidates))
	newLevel, skillPoints := ResolveLevelUp(currentLevel, currentXP+xp)
	return Result{
		XPGained:              xp,
		NewLevel:              newLevel,
		SkillPointsGained:     skillPoints,
		AchievementCandidates: candidates,
	}
}
