// Relationship ledger — one pet's friendships, grudges, and social energy,
// keyed by the other pet's identity.
package social

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/avaley/petpack/internal/entropy"
	"github.com/avaley/petpack/internal/pets"
)

// ErrNoRelationship is returned when an operation needs an existing
// relationship record and the pets have never met.
var ErrNoRelationship = errors.New("no relationship: pets have never met")

// Category is the discrete label derived from a friendship score.
type Category uint8

const (
	CategoryStranger Category = iota
	CategoryEnemy
	CategoryRival
	CategoryAcquaintance
	CategoryFriend
	CategoryBestFriend
)

// CategoryName returns the lowercase name for a category.
func CategoryName(c Category) string {
	switch c {
	case CategoryEnemy:
		return "enemy"
	case CategoryRival:
		return "rival"
	case CategoryAcquaintance:
		return "acquaintance"
	case CategoryFriend:
		return "friend"
	case CategoryBestFriend:
		return "best_friend"
	default:
		return "stranger"
	}
}

// categoryForScore is the monotone step function from clamped score to
// category. Pure: the only way a category is ever derived.
func categoryForScore(score float64) Category {
	s := clamp(score, -100, 100)
	switch {
	case s >= BestFriendThreshold:
		return CategoryBestFriend
	case s >= FriendThreshold:
		return CategoryFriend
	case s >= AcquaintanceThreshold:
		return CategoryAcquaintance
	case s >= RivalThreshold:
		return CategoryRival
	default:
		return CategoryEnemy
	}
}

// Relationship is one directed record: how the owning pet feels about
// another. Friendship drifts unbounded internally and is clamped at read.
type Relationship struct {
	OtherID         string    `json:"other_id"`
	Friendship      float64   `json:"friendship"`
	Trust           float64   `json:"trust"`
	Compatibility   float64   `json:"compatibility"`
	FirstMet        time.Time `json:"first_met"`
	LastInteraction time.Time `json:"last_interaction"`
	Interactions    int       `json:"interactions"`
	Positive        int       `json:"positive"`
	Negative        int       `json:"negative"`
}

// Score returns the clamped friendship score.
func (r *Relationship) Score() float64 {
	return clamp(r.Friendship, -100, 100)
}

// Category returns the label for the current score.
func (r *Relationship) Category() Category {
	return categoryForScore(r.Friendship)
}

// Ledger holds every relationship record one pet keeps, plus the social
// energy gauge that interaction kinds push around.
type Ledger struct {
	ownerID      string
	traits       pets.Traits
	rng          entropy.Source
	records      map[string]*Relationship
	socialEnergy float64
}

// NewLedger creates an empty ledger for one pet.
func NewLedger(ownerID string, traits pets.Traits, rng entropy.Source) *Ledger {
	return &Ledger{
		ownerID:      ownerID,
		traits:       traits,
		rng:          rng,
		records:      make(map[string]*Relationship),
		socialEnergy: socialEnergyStart,
	}
}

// OwnerID returns the identity this ledger belongs to.
func (l *Ledger) OwnerID() string { return l.ownerID }

// MeetResult reports the outcome of a first meeting.
type MeetResult struct {
	AlreadyKnow       bool      `json:"already_know"`
	FirstMeeting      time.Time `json:"first_meeting"`
	InitialImpression float64   `json:"initial_impression"`
	Category          Category  `json:"category"`
	Compatibility     float64   `json:"compatibility"`
}

// Meet introduces another pet. Idempotent: a second call reports
// AlreadyKnow and leaves the existing record untouched. The initial
// impression is a bounded random draw shaded by how friendly both pets are
// and how mismatched their energy is; compatibility is computed once from
// trait similarity and frozen.
func (l *Ledger) Meet(otherID string, other pets.Traits, now time.Time) MeetResult {
	if otherID == l.ownerID {
		return MeetResult{AlreadyKnow: true}
	}
	if rec, ok := l.records[otherID]; ok {
		return MeetResult{
			AlreadyKnow:   true,
			FirstMeeting:  rec.FirstMet,
			Category:      rec.Category(),
			Compatibility: rec.Compatibility,
		}
	}

	draw := impressionMin + l.rng.Float64()*(impressionMax-impressionMin)
	impression := draw +
		(l.traits.Friendliness-50)*friendlinessWeight +
		(other.Friendliness-50)*friendlinessWeight -
		math.Abs(l.traits.Energy-other.Energy)*energyMismatchWeight

	rec := &Relationship{
		OtherID:       otherID,
		Friendship:    impression,
		Compatibility: compatibility(l.traits, other),
		FirstMet:      now,
	}
	l.records[otherID] = rec

	return MeetResult{
		FirstMeeting:      now,
		InitialImpression: impression,
		Category:          rec.Category(),
		Compatibility:     rec.Compatibility,
	}
}

// compatibility measures trait similarity on a 0..1 scale, equal weight per
// axis. Frozen into the record at first meeting.
func compatibility(a, b pets.Traits) float64 {
	d := math.Abs(a.Friendliness-b.Friendliness)/100 +
		math.Abs(a.Energy-b.Energy)/100 +
		math.Abs(a.Sociability-b.Sociability)/100 +
		math.Abs(a.Possessiveness-b.Possessiveness) +
		math.Abs(a.Competitiveness-b.Competitiveness) +
		math.Abs(a.Confidence-b.Confidence)
	return clamp(1-d/6, 0, 1)
}

// InteractResult reports the friendship movement from one interaction.
type InteractResult struct {
	FriendshipChange float64  `json:"friendship_change"`
	OldFriendship    float64  `json:"old_friendship"`
	NewFriendship    float64  `json:"new_friendship"`
	OldCategory      Category `json:"old_category"`
	NewCategory      Category `json:"new_category"`
	CategoryChanged  bool     `json:"category_changed"`
}

// Interact applies one interaction toward a known pet. The base delta comes
// from the fixed per-kind table, then saturation scaling damps gains near
// the top of the scale and amplifies losses once a relationship has soured.
func (l *Ledger) Interact(otherID string, kind Interaction, success bool, now time.Time) (InteractResult, error) {
	rec, ok := l.records[otherID]
	if !ok {
		return InteractResult{}, ErrNoRelationship
	}

	base := interactionTable[kind] // zero delta for unknown kinds
	delta := base.failure
	if success {
		delta = base.success
	}
	delta = l.saturate(rec.Score(), delta)

	old := rec.Score()
	oldCat := rec.Category()

	rec.Friendship += delta
	rec.Interactions++
	rec.LastInteraction = now
	switch {
	case delta > 0:
		rec.Positive++
		l.socialEnergy = clamp(l.socialEnergy+socialEnergyRise, 0, 100)
	case delta < 0:
		rec.Negative++
		l.socialEnergy = clamp(l.socialEnergy-socialEnergyFall, 0, 100)
	}
	l.adjustTrust(rec, kind, success)

	newCat := rec.Category()
	return InteractResult{
		FriendshipChange: delta,
		OldFriendship:    old,
		NewFriendship:    rec.Score(),
		OldCategory:      oldCat,
		NewCategory:      newCat,
		CategoryChanged:  newCat != oldCat,
	}, nil
}

// saturate applies diminishing returns at the top of the scale and
// amplified damage at the bottom.
func (l *Ledger) saturate(current, delta float64) float64 {
	switch {
	case delta > 0 && current >= saturationExtreme:
		return delta * saturationTopScale
	case delta > 0 && current >= saturationHigh:
		return delta * saturationHighScale
	case delta < 0 && current <= saturationLow:
		return delta * saturationLowScale
	default:
		return delta
	}
}

// adjustTrust nudges trust on the kinds that express or betray it.
func (l *Ledger) adjustTrust(rec *Relationship, kind Interaction, success bool) {
	switch {
	case kind == InteractShareFood && success:
		rec.Trust = clamp(rec.Trust+trustGainShare, 0, 100)
	case kind == InteractGroom && success:
		rec.Trust = clamp(rec.Trust+trustGainGroom, 0, 100)
	case kind == InteractFight || kind == InteractStealFood:
		rec.Trust = clamp(rec.Trust-trustLossHurt, 0, 100)
	}
}

// AdjustFriendship applies a direct score delta from an external system
// (teaching bonds, caretaker scripts). The pets must already know each
// other.
func (l *Ledger) AdjustFriendship(otherID string, delta float64, now time.Time) error {
	rec, ok := l.records[otherID]
	if !ok {
		return ErrNoRelationship
	}
	rec.Friendship += delta
	rec.LastInteraction = now
	switch {
	case delta > 0:
		rec.Positive++
	case delta < 0:
		rec.Negative++
	}
	return nil
}

// Relationship returns a copy of the record toward another pet.
func (l *Ledger) Relationship(otherID string) (Relationship, bool) {
	rec, ok := l.records[otherID]
	if !ok {
		return Relationship{}, false
	}
	return *rec, true
}

// Friendship returns the clamped score toward another pet, zero for
// strangers.
func (l *Ledger) Friendship(otherID string) float64 {
	rec, ok := l.records[otherID]
	if !ok {
		return 0
	}
	return rec.Score()
}

// CategoryOf returns the category toward another pet, stranger if they have
// never met.
func (l *Ledger) CategoryOf(otherID string) Category {
	rec, ok := l.records[otherID]
	if !ok {
		return CategoryStranger
	}
	return rec.Category()
}

// BestFriend returns the identity with the highest friendship score, only
// if that score clears the best-friend reporting floor.
func (l *Ledger) BestFriend() (string, bool) {
	bestID := ""
	bestScore := math.Inf(-1)
	for id, rec := range l.records {
		s := rec.Score()
		if s > bestScore || (s == bestScore && id < bestID) {
			bestID, bestScore = id, s
		}
	}
	if bestID == "" || bestScore < BestFriendMinimum {
		return "", false
	}
	return bestID, true
}

// Friends returns identities with friendship at or above min, strongest
// first.
func (l *Ledger) Friends(min float64) []string {
	return l.selectByScore(func(s float64) bool { return s >= min }, true)
}

// Rivals returns identities with friendship at or below max, worst first.
func (l *Ledger) Rivals(max float64) []string {
	return l.selectByScore(func(s float64) bool { return s <= max }, false)
}

func (l *Ledger) selectByScore(keep func(float64) bool, desc bool) []string {
	var ids []string
	for id, rec := range l.records {
		if keep(rec.Score()) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		si, sj := l.records[ids[i]].Score(), l.records[ids[j]].Score()
		if si != sj {
			if desc {
				return si > sj
			}
			return si < sj
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Known returns every identity this pet has met, sorted.
func (l *Ledger) Known() []string {
	ids := make([]string, 0, len(l.records))
	for id := range l.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SocialEnergy returns the current gauge value.
func (l *Ledger) SocialEnergy() float64 { return l.socialEnergy }

// WantsSocialInteraction reports whether the pet is seeking company: the
// gauge ran low, or a sociable pet is merely restless, or it has no friends
// at all.
func (l *Ledger) WantsSocialInteraction() bool {
	if l.socialEnergy < socialEnergyLow {
		return true
	}
	if l.traits.Sociability >= highSociability && l.socialEnergy < socialEnergyMid {
		return true
	}
	for _, rec := range l.records {
		if rec.Score() >= FriendThreshold {
			return false
		}
	}
	return true
}

// LedgerSnapshot is the flat serialized form of a ledger.
type LedgerSnapshot struct {
	OwnerID       string                 `json:"owner_id"`
	SocialEnergy  *float64               `json:"social_energy,omitempty"`
	Relationships []RelationshipSnapshot `json:"relationships"`
}

// RelationshipSnapshot is one serialized record. Category is stored as a
// name for readability but is rederived from the score on restore.
type RelationshipSnapshot struct {
	OtherID         string    `json:"other_id"`
	Friendship      float64   `json:"friendship"`
	Trust           float64   `json:"trust"`
	Category        string    `json:"category"`
	Compatibility   float64   `json:"compatibility"`
	FirstMet        time.Time `json:"first_met"`
	LastInteraction time.Time `json:"last_interaction"`
	Interactions    int       `json:"interactions"`
	Positive        int       `json:"positive"`
	Negative        int       `json:"negative"`
}

// Snapshot captures the full ledger state.
func (l *Ledger) Snapshot() LedgerSnapshot {
	energy := l.socialEnergy
	snap := LedgerSnapshot{
		OwnerID:       l.ownerID,
		SocialEnergy:  &energy,
		Relationships: make([]RelationshipSnapshot, 0, len(l.records)),
	}
	for _, id := range l.Known() {
		rec := l.records[id]
		snap.Relationships = append(snap.Relationships, RelationshipSnapshot{
			OtherID:         rec.OtherID,
			Friendship:      rec.Friendship,
			Trust:           rec.Trust,
			Category:        CategoryName(rec.Category()),
			Compatibility:   rec.Compatibility,
			FirstMet:        rec.FirstMet,
			LastInteraction: rec.LastInteraction,
			Interactions:    rec.Interactions,
			Positive:        rec.Positive,
			Negative:        rec.Negative,
		})
	}
	return snap
}

// Restore replaces the ledger's state with a snapshot. Missing fields take
// defaults (social energy 50, trust 0) and malformed values are clamped;
// restore never fails.
func (l *Ledger) Restore(snap LedgerSnapshot) {
	l.records = make(map[string]*Relationship, len(snap.Relationships))
	if snap.SocialEnergy != nil {
		l.socialEnergy = clamp(*snap.SocialEnergy, 0, 100)
	} else {
		l.socialEnergy = socialEnergyStart
	}
	for _, rs := range snap.Relationships {
		if rs.OtherID == "" || rs.OtherID == l.ownerID {
			continue
		}
		l.records[rs.OtherID] = &Relationship{
			OtherID:         rs.OtherID,
			Friendship:      rs.Friendship,
			Trust:           clamp(rs.Trust, 0, 100),
			Compatibility:   clamp(rs.Compatibility, 0, 1),
			FirstMet:        rs.FirstMet,
			LastInteraction: rs.LastInteraction,
			Interactions:    rs.Interactions,
			Positive:        rs.Positive,
			Negative:        rs.Negative,
		}
	}
}
