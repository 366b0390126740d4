// Owner attention rhythm, sampled from layered simplex noise so the owner's
// comings and goings look organic yet replay identically for a given seed.
package sim

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/avaley/petpack/internal/social"
)

// OwnerAttention models the household human: when they are home, which pet
// they single out, and what they do with it.
type OwnerAttention struct {
	presence opensimplex.Noise
	pick     opensimplex.Noise
}

// NewOwnerAttention builds the rhythm for a seed.
func NewOwnerAttention(seed int64) *OwnerAttention {
	return &OwnerAttention{
		presence: opensimplex.NewNormalized(seed),
		pick:     opensimplex.NewNormalized(seed + 1),
	}
}

// Presence returns the owner's availability for a sim-hour in [0,1].
// A daily home/work/sleep curve sets the baseline; noise roughens it.
func (oa *OwnerAttention) Presence(hour uint64) float64 {
	n := octaveNoise(oa.presence, float64(hour), 0, 3, 0.15, 0.5)
	return dailyCurve(hour%24)*0.6 + n*0.4
}

// dailyCurve approximates a working owner's schedule.
func dailyCurve(hourOfDay uint64) float64 {
	switch {
	case hourOfDay < 6:
		return 0.05 // asleep
	case hourOfDay < 9:
		return 0.85 // morning routine
	case hourOfDay < 17:
		return 0.2 // at work
	case hourOfDay < 22:
		return 0.9 // evening, pets get the most of it
	default:
		return 0.3 // winding down
	}
}

// Kind returns what the owner does with a pet at the given hour.
// Meal times are fixed; everything else drifts with the noise field.
func (oa *OwnerAttention) Kind(hour uint64) social.AttentionKind {
	h := hour % 24
	if h == 7 || h == 18 {
		return social.AttentionFeeding
	}

	v := oa.pick.Eval2(float64(hour)*0.7, 1.0)
	switch {
	case v < 0.2:
		return social.AttentionTreats
	case v < 0.45:
		return social.AttentionPlaying
	case v < 0.65:
		return social.AttentionCuddling
	case v < 0.85:
		return social.AttentionPetting
	default:
		return social.AttentionGrooming
	}
}

// Favorite picks which pet gets the session this hour. The choice drifts
// through the pack rather than jumping randomly, which is what makes the
// others jealous.
func (oa *OwnerAttention) Favorite(hour uint64, ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	v := oa.pick.Eval2(float64(hour)*0.31, 7.5)
	idx := int(v * float64(len(ids)))
	if idx >= len(ids) {
		idx = len(ids) - 1
	}
	return ids[idx]
}

// Duration maps presence to session length in sim-minutes.
func (oa *OwnerAttention) Duration(presence float64) float64 {
	return 5 + presence*20
}

// octaveNoise layers multiple noise frequencies into fractal noise.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
