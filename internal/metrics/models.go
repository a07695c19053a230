package metrics

import "time"

// PaceUndefined marks a pace with no meaningful value (standing still).
// It is deliberately not zero: clients must render a placeholder, never 0:00.
const PaceUndefined = -1.0

// PositionSample is one timestamped GPS fix. ElevationM and SpeedMps are
// optional because not every platform reports them.
type PositionSample struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RecordedAt time.Time `json:"recorded_at"`
	ElevationM *float64  `json:"elevation_m,omitempty"`
	SpeedMps   *float64  `json:"speed_mps,omitempty"`
}

// Snapshot is the per-tick view of an in-progress workout. DistanceM and
// MaxSpeedKmh never decrease within a session. Estimated is true when the
// values were synthesized (indoor mode) rather than measured.
type Snapshot struct {
	DurationSec  float64 `json:"duration_sec"`
	DistanceM    float64 `json:"distance_m"`
	PaceMinPerKm float64 `json:"pace_min_per_km"`
	SpeedKmh     float64 `json:"speed_kmh"`
	MaxSpeedKmh  float64 `json:"max_speed_kmh"`
	Calories     float64 `json:"calories"`
	Estimated    bool    `json:"estimated"`
}
