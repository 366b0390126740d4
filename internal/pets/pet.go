// Package pets provides the pet data model and the spawner that generates
// a starting pack.
package pets

import (
	"time"
)

// SizeClass buckets pets for dominance scoring.
type SizeClass uint8

const (
	SizeSmall  SizeClass = iota
	SizeMedium
	SizeLarge
)

// SizeName returns the lowercase name for a size class.
func SizeName(s SizeClass) string {
	switch s {
	case SizeSmall:
		return "small"
	case SizeMedium:
		return "medium"
	case SizeLarge:
		return "large"
	default:
		return "medium"
	}
}

// ParseSize maps a size name back to its class. Unknown names normalize to
// medium rather than erroring; snapshot restore must never fail on a bad
// categorical value.
func ParseSize(name string) SizeClass {
	switch name {
	case "small":
		return SizeSmall
	case "medium":
		return SizeMedium
	case "large":
		return SizeLarge
	default:
		return SizeMedium
	}
}

// Traits is the personality block consumed by the social engine.
// The 0–100 axes describe outward temperament; the 0–1 axes are the
// probability skews used by competition and dominance formulas.
type Traits struct {
	Friendliness    float64 `json:"friendliness"`    // 0–100
	Energy          float64 `json:"energy"`          // 0–100
	Sociability     float64 `json:"sociability"`     // 0–100
	Possessiveness  float64 `json:"possessiveness"`  // 0–1
	Competitiveness float64 `json:"competitiveness"` // 0–1
	Confidence      float64 `json:"confidence"`      // 0–1
}

// Pet is one companion in the pack. The social engine never touches this
// struct directly; it receives the ID and a copy of Traits through the
// facade, and trick proficiencies are passed in per call.
type Pet struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Species string    `json:"species"`
	Size    SizeClass `json:"size"`
	BornAt  time.Time `json:"born_at"`
	Traits  Traits    `json:"traits"`

	// Tricks maps trick name to proficiency 0–1. Owned here, not by the
	// teaching service, so pets can learn through channels other than
	// peer teaching (training mini-games, out of scope).
	Tricks map[string]float64 `json:"tricks"`
}

// AgeDays returns the pet's age in whole days at the given time.
func (p *Pet) AgeDays(now time.Time) int {
	d := now.Sub(p.BornAt)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}

// Proficiency returns the pet's proficiency at a trick, zero if unknown.
func (p *Pet) Proficiency(trick string) float64 {
	return p.Tricks[trick]
}

// GainProficiency raises a trick's proficiency, clamped to 1.0.
func (p *Pet) GainProficiency(trick string, gain float64) {
	if p.Tricks == nil {
		p.Tricks = make(map[string]float64)
	}
	v := p.Tricks[trick] + gain
	if v > 1 {
		v = 1
	}
	if v < 0 {
		v = 0
	}
	p.Tricks[trick] = v
}
