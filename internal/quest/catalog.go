package quest

import "fmt"

// template describes one catalog entry before difficulty scaling.
type template struct {
	kind    Kind
	title   string
	desc    string
	targets [3]float64 // easy, medium, hard
	limit   int        // seconds; 0 means no time limit
}

var catalog = []template{
	{
		kind:    KindDistanceSprint,
		title:   "Distance Sprint",
		desc:    "Cover %.0f meters before the clock runs out",
		targets: [3]float64{200, 400, 600},
		limit:   120,
	},
	{
		kind:    KindPaceMaintain,
		title:   "Steady Strider",
		desc:    "Hold a plausible running pace for %.0f seconds",
		targets: [3]float64{60, 90, 120},
	},
	{
		kind:    KindSpeedBurst,
		title:   "Speed Burst",
		desc:    "Stay above 12 km/h for %.0f seconds",
		targets: [3]float64{30, 45, 60},
	},
	{
		kind:    KindEnduranceTest,
		title:   "Endurance Test",
		desc:    "Keep moving for %.0f seconds, standing still costs you",
		targets: [3]float64{180, 300, 420},
	},
}

var difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

func difficultyIndex(d Difficulty) int {
	switch d {
	case DifficultyMedium:
		return 1
	case DifficultyHard:
		return 2
	default:
		return 0
	}
}

// rewards scale with difficulty only.
func rewardsFor(d Difficulty) (xp, coins int) {
	i := difficultyIndex(d)
	return 10 * (i + 1), 5 * (i + 1)
}

func buildQuest(id string, tpl template, d Difficulty) Quest {
	target := tpl.targets[difficultyIndex(d)]
	xp, coins := rewardsFor(d)
	return Quest{
		ID:           id,
		Title:        tpl.title,
		Description:  fmt.Sprintf(tpl.desc, target),
		Kind:         tpl.kind,
		Difficulty:   d,
		Target:       target,
		State:        StatePending,
		TimeLimitSec: tpl.limit,
		RewardXP:     xp,
		RewardCoins:  coins,
	}
}
