package workout

import (
	"context"
	"encoding/json"
	"errors"

	"backend-stridequest/internal/db"
	"backend-stridequest/internal/metrics"
	"backend-stridequest/internal/progression"

	"github.com/jackc/pgx/v5"
)

// Store is the persistence collaborator for finished workouts. The engine
// never depends on it succeeding.
type Store struct {
	db db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{db: q}
}

// SaveWorkout writes the workout row with its route as JSON.
func (st *Store) SaveWorkout(ctx context.Context, sum Summary, route []metrics.PositionSample) error {
	routeJSON, err := json.Marshal(route)
	if err != nil {
		return err
	}

	_, err = st.db.Exec(ctx, `
		INSERT INTO workouts (id, user_id, kind, started_at, ended_at, duration_sec, distance_m, max_speed_kmh, calories, xp_earned, quest_xp, quest_coins, route)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, sum.WorkoutID, sum.UserID, string(sum.Kind), sum.StartedAt, sum.EndedAt,
		sum.Metrics.DurationSec, sum.Metrics.DistanceM, sum.Metrics.MaxSpeedKmh, sum.Metrics.Calories,
		sum.Progression.XPGained, sum.Quests.TotalXP, sum.Quests.TotalCoins, routeJSON)
	return err
}

// UserProgression loads the user's current level and cumulative XP. A user
// with no row starts at level 1 with 0 XP.
func (st *Store) UserProgression(ctx context.Context, userID string) (level, totalXP int, err error) {
	row := st.db.QueryRow(ctx, `
		SELECT level, total_xp FROM user_progression WHERE user_id=$1
	`, userID)
	if err := row.Scan(&level, &totalXP); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 1, 0, nil
		}
		return 0, 0, err
	}
	return level, totalXP, nil
}

// UpdateUserProgression applies the workout's XP, level and skill-point
// deltas. Quest rewards ride along in the same upsert.
func (st *Store) UpdateUserProgression(ctx context.Context, userID string, res progression.Result, questXP, questCoins int) error {
	_, err := st.db.Exec(ctx, `
		INSERT INTO user_progression (user_id, level, total_xp, skill_points, coins)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (user_id) DO UPDATE SET
			level = $2,
			total_xp = user_progression.total_xp + $3,
			skill_points = user_progression.skill_points + $4,
			coins = user_progression.coins + $5
	`, userID, res.NewLevel, res.XPGained+questXP, res.SkillPointsGained, questCoins)
	return err
}

// CheckAchievements marks each candidate the user has not unlocked yet and
// returns the newly unlocked names.
func (st *Store) CheckAchievements(ctx context.Context, userID string, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	rows, err := st.db.Query(ctx, `
		SELECT name FROM user_achievements WHERE user_id=$1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := map[string]struct{}{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		existing[name] = struct{}{}
	}

	var unlocked []string
	for _, name := range candidates {
		if _, ok := existing[name]; ok {
			continue
		}
		if _, err := st.db.Exec(ctx, `
			INSERT INTO user_achievements (user_id, name)
			VALUES ($1,$2)
			ON CONFLICT (user_id, name) DO NOTHING
		`, userID, name); err != nil {
			return nil, err
		}
		unlocked = append(unlocked, name)
	}
	return unlocked, nil
}
