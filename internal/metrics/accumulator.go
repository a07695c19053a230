package metrics

import (
	"math"

	"backend-stridequest/internal/shared/geo"
)

// maxPlausibleSpeedMps filters GPS position jumps: any increment implying a
// faster speed is excluded from the distance total. Fixed, not configurable.
const maxPlausibleSpeedMps = 50.0

// Profile carries the workout-kind constants the accumulator needs.
type Profile struct {
	Indoor bool
	// BaseSpeedKmh seeds the indoor synthetic speed signal.
	BaseSpeedKmh float64
	// KcalPerKm drives the calorie estimate.
	KcalPerKm float64
}

// Accumulator turns a stream of position samples (or indoor wall-clock
// ticks) into a running metrics Snapshot. It is not safe for concurrent
// use; the owning session serializes access.
type Accumulator struct {
	profile Profile

	route       []PositionSample
	distanceM   float64
	speedKmh    float64
	maxSpeedKmh float64

	// indoorElapsed is the integrated wall-clock time for the synthetic
	// indoor signal.
	indoorElapsed float64
}

func NewAccumulator(profile Profile) *Accumulator {
	return &Accumulator{profile: profile}
}

// Ingest consumes one outdoor sample. Samples with NaN coordinates are
// dropped without failing the stream; out-of-order timestamps are clamped
// to zero elapsed time. The sample is appended to the route even when its
// distance increment is rejected as an outlier.
func (a *Accumulator) Ingest(sample PositionSample) Snapshot {
	if math.IsNaN(sample.Lat) || math.IsNaN(sample.Lng) {
		return a.snapshot()
	}

	if len(a.route) > 0 {
		prev := a.route[len(a.route)-1]
		dt := sample.RecordedAt.Sub(prev.RecordedAt).Seconds()
		if dt < 0 {
			dt = 0
		}
		dist := geo.HaversineM(prev.Lat, prev.Lng, sample.Lat, sample.Lng)

		accepted := dist == 0 || (dt > 0 && dist/dt <= maxPlausibleSpeedMps)
		if accepted {
			a.distanceM += dist
		}

		switch {
		case sample.SpeedMps != nil && *sample.SpeedMps >= 0:
			a.speedKmh = *sample.SpeedMps * 3.6
		case accepted && dt > 0:
			a.speedKmh = dist / dt * 3.6
		default:
			a.speedKmh = 0
		}
	} else if sample.SpeedMps != nil && *sample.SpeedMps >= 0 {
		a.speedKmh = *sample.SpeedMps * 3.6
	}

	if a.speedKmh > a.maxSpeedKmh {
		a.maxSpeedKmh = a.speedKmh
	}

	a.route = append(a.route, sample)
	return a.snapshot()
}

// Tick advances the indoor simulation by elapsedDelta seconds. The speed is
// a synthetic signal (kind base plus a slow sine wobble), not a measurement;
// distance is its integral. Snapshots produced this way carry Estimated=true.
func (a *Accumulator) Tick(elapsedDelta float64) Snapshot {
	if elapsedDelta < 0 {
		elapsedDelta = 0
	}
	a.indoorElapsed += elapsedDelta

	a.speedKmh = a.profile.BaseSpeedKmh + 0.6*math.Sin(a.indoorElapsed*2*math.Pi/40)
	if a.speedKmh < 0 {
		a.speedKmh = 0
	}
	if a.speedKmh > a.maxSpeedKmh {
		a.maxSpeedKmh = a.speedKmh
	}
	a.distanceM += a.speedKmh / 3.6 * elapsedDelta

	return a.snapshot()
}

// Snapshot returns the current metrics with the given session duration.
func (a *Accumulator) Snapshot(durationSec float64) Snapshot {
	s := a.snapshot()
	s.DurationSec = durationSec
	return s
}

// Route hands out a copy of the ordered sample sequence.
func (a *Accumulator) Route() []PositionSample {
	out := make([]PositionSample, len(a.route))
	copy(out, a.route)
	return out
}

func (a *Accumulator) snapshot() Snapshot {
	pace := PaceUndefined
	if a.speedKmh > 0 {
		pace = 60 / a.speedKmh
	}
	return Snapshot{
		DistanceM:    a.distanceM,
		PaceMinPerKm: pace,
		SpeedKmh:     a.speedKmh,
		MaxSpeedKmh:  a.maxSpeedKmh,
		Calories:     a.profile.KcalPerKm * a.distanceM / 1000,
		Estimated:    a.profile.Indoor,
	}
}
