package meter

import (
	"fmt"
	"math"
)

// Scale maps between linear level, decibels, and a display proportion in
// [0, 1]. The divisions give the scale its calibration: consecutive
// divisions get evenly spaced proportions, so a scale with dense divisions
// near 0 dB spends most of its display range there and compresses the
// floor. Immutable after construction; share one Scale by reference across
// all viewers that use the same calibration.
type Scale struct {
	minusInfinityDb float64
	divisions       []float64
}

// NewScale returns a Scale with the given floor and division points.
// Divisions are in decibels, strictly ascending, lowest first, and there
// must be at least two of them. The floor must not exceed the lowest
// division.
func NewScale(minusInfinityDb float64, divisions ...float64) (*Scale, error) {
	if len(divisions) < 2 {
		return nil, fmt.Errorf("scale needs at least two divisions, got %d", len(divisions))
	}
	for i := 1; i < len(divisions); i++ {
		if divisions[i] <= divisions[i-1] {
			return nil, fmt.Errorf("divisions must be strictly ascending: %.1f after %.1f",
				divisions[i], divisions[i-1])
		}
	}
	if minusInfinityDb > divisions[0] {
		return nil, fmt.Errorf("floor %.1f dB is above the lowest division %.1f dB",
			minusInfinityDb, divisions[0])
	}
	d := make([]float64, len(divisions))
	copy(d, divisions)
	return &Scale{minusInfinityDb: minusInfinityDb, divisions: d}, nil
}

var defaultScale = func() *Scale {
	s, err := NewScale(DefaultMinusInfinityDb, -60, -40, -20, -10, -3, 0)
	if err != nil {
		panic(err)
	}
	return s
}()

// DefaultScale returns the shared default calibration: a −96 dB floor with
// divisions at −60, −40, −20, −10, −3 and 0 dB.
func DefaultScale() *Scale {
	return defaultScale
}

// MinusInfinityDb returns the configured floor in decibels.
func (s *Scale) MinusInfinityDb() float64 {
	return s.minusInfinityDb
}

// Divisions returns a copy of the division points in decibels.
func (s *Scale) Divisions() []float64 {
	d := make([]float64, len(s.divisions))
	copy(d, s.divisions)
	return d
}

// ProportionForLevel converts a linear level to its display proportion.
// Levels at or below zero map to the floor.
func (s *Scale) ProportionForLevel(level float64) float64 {
	return s.ProportionForLevelDb(levelToDb(level, s.minusInfinityDb))
}

// ProportionForLevelDb converts a level in decibels to its display
// proportion. The input is clamped to [MinusInfinityDb, divisions.last].
// Division i sits at proportion i/(N−1); levels within a segment are
// linearly interpolated, and anything at or below the lowest division
// reports 0.
func (s *Scale) ProportionForLevelDb(db float64) float64 {
	last := len(s.divisions) - 1
	if db >= s.divisions[last] {
		return 1
	}
	if db <= s.divisions[0] {
		return 0
	}

	i := 0
	for db >= s.divisions[i+1] {
		i++
	}
	t := (db - s.divisions[i]) / (s.divisions[i+1] - s.divisions[i])
	return (float64(i) + t) / float64(last)
}

// LevelDbForProportion is the inverse of ProportionForLevelDb. Proportion 0
// returns the floor; inputs are clamped to [0, 1].
func (s *Scale) LevelDbForProportion(proportion float64) float64 {
	last := len(s.divisions) - 1
	if proportion <= 0 {
		return s.minusInfinityDb
	}
	if proportion >= 1 {
		return s.divisions[last]
	}

	pos := proportion * float64(last)
	i := int(pos)
	t := pos - float64(i)
	return s.divisions[i] + t*(s.divisions[i+1]-s.divisions[i])
}

// levelToDb converts a linear level to decibels, mapping zero, negative and
// underflowing levels to floorDb.
func levelToDb(level, floorDb float64) float64 {
	if level <= 0 {
		return floorDb
	}
	db := 20 * math.Log10(level)
	if db < floorDb {
		return floorDb
	}
	return db
}

// dbToLevel converts decibels back to a linear level.
func dbToLevel(db float64) float64 {
	return math.Pow(10, db/20)
}
