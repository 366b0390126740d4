package social

import (
	"time"

	"github.com/avaley/petpack/internal/pets"
)

// seqSource is a scripted entropy source: it replays vals in order and then
// repeats the final value. calls counts Float64 draws so tests can assert
// an operation consumed no randomness.
type seqSource struct {
	vals  []float64
	i     int
	calls int
}

func (s *seqSource) Float64() float64 {
	s.calls++
	if len(s.vals) == 0 {
		return 0.5
	}
	v := s.vals[s.i]
	if s.i < len(s.vals)-1 {
		s.i++
	}
	return v
}

func (s *seqSource) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return 0
}

// testTime is a fixed wall-clock base; built with time.Date so snapshots
// survive a JSON round trip unchanged.
func testTime() time.Time {
	return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
}

// neutralTraits returns a trait block that contributes nothing to any
// formula: mid friendliness and energy, mid probability skews.
func neutralTraits() pets.Traits {
	return pets.Traits{
		Friendliness:    50,
		Energy:          50,
		Sociability:     50,
		Possessiveness:  0.5,
		Competitiveness: 0.5,
		Confidence:      0.5,
	}
}
