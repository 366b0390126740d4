// Jealousy and competition — one pet's resentment toward specific rivals,
// fed by witnessed attention and competition losses, relieved by attention
// received and by time.
package social

import (
	"sort"
	"time"

	"github.com/avaley/petpack/internal/entropy"
)

// JealousyLevel is the discrete label over jealousy intensity.
type JealousyLevel uint8

const (
	JealousyNone JealousyLevel = iota
	JealousyMild
	JealousyModerate
	JealousyHigh
	JealousyExtreme
)

// LevelName returns the lowercase name for a jealousy level.
func LevelName(l JealousyLevel) string {
	switch l {
	case JealousyMild:
		return "mild"
	case JealousyModerate:
		return "moderate"
	case JealousyHigh:
		return "high"
	case JealousyExtreme:
		return "extreme"
	default:
		return "none"
	}
}

// LevelForIntensity maps a raw intensity to its discrete level.
func LevelForIntensity(v float64) JealousyLevel {
	switch {
	case v >= jealousyExtreme:
		return JealousyExtreme
	case v >= jealousyHigh:
		return JealousyHigh
	case v >= jealousyModerate:
		return JealousyModerate
	case v >= jealousyMild:
		return JealousyMild
	default:
		return JealousyNone
	}
}

// responseTable holds the behavioral responses sampled per level.
var responseTable = map[JealousyLevel][]string{
	JealousyNone:     {"glances over", "carries on unbothered"},
	JealousyMild:     {"side-eyes the pair", "shuffles a little closer", "huffs quietly"},
	JealousyModerate: {"pushes between them", "paws at the owner", "whines for attention"},
	JealousyHigh:     {"blocks the rival's path", "demands attention loudly", "sulks in the corner"},
	JealousyExtreme:  {"knocks something over", "refuses to look at anyone", "wedges itself into the owner's lap"},
}

// ResourceKind names what a competition is over.
type ResourceKind string

const (
	ResourceFood      ResourceKind = "food"
	ResourceAttention ResourceKind = "attention"
	ResourceToy       ResourceKind = "toy"
)

// resourceBonus is the win-probability bump for resources a pet cares more
// about. Unknown resources add nothing.
func resourceBonus(r ResourceKind) float64 {
	switch r {
	case ResourceFood:
		return competeFoodBonus
	case ResourceAttention:
		return competeAttentionBonus
	default:
		return 0
	}
}

// JealousyEngine tracks one pet's jealousy records, rivalry set, and recent
// competition losses. A record exists only while its intensity is positive.
type JealousyEngine struct {
	ownerID         string
	possessiveness  float64
	competitiveness float64
	rng             entropy.Source

	records       map[string]float64
	rivalries     map[string]bool
	lossTimes     map[string][]time.Time
	lastAttention time.Time
	hasAttention  bool
}

// NewJealousyEngine creates an empty engine for one pet. The trait skews
// are fixed at construction.
func NewJealousyEngine(ownerID string, possessiveness, competitiveness float64, rng entropy.Source) *JealousyEngine {
	return &JealousyEngine{
		ownerID:         ownerID,
		possessiveness:  clamp01(possessiveness),
		competitiveness: clamp01(competitiveness),
		rng:             rng,
		records:         make(map[string]float64),
		rivalries:       make(map[string]bool),
		lossTimes:       make(map[string][]time.Time),
	}
}

// OwnerID returns the identity this engine belongs to.
func (j *JealousyEngine) OwnerID() string { return j.ownerID }

// WitnessResult reports the jealousy movement from a witnessed attention
// event.
type WitnessResult struct {
	RivalID   string        `json:"rival_id"`
	Intensity float64       `json:"intensity"`
	Level     JealousyLevel `json:"level"`
	Response  string        `json:"response"`
}

// WitnessAttention registers that this pet watched a rival receive owner
// attention. The sting scales with duration, the kind of attention, the
// pet's possessiveness, and how starved of attention the pet itself is.
func (j *JealousyEngine) WitnessAttention(rivalID string, kind AttentionKind, duration float64, now time.Time) WitnessResult {
	if duration < 0 {
		duration = 0
	}
	gain := duration * jealousyPerUnit *
		attentionKindMult(kind) *
		(0.5 + j.possessiveness) *
		j.recencyFactor(now)

	v := clamp(j.records[rivalID]+gain, 0, 100)
	if v > 0 {
		j.records[rivalID] = v
	}
	level := LevelForIntensity(v)
	return WitnessResult{
		RivalID:   rivalID,
		Intensity: v,
		Level:     level,
		Response:  j.sampleResponse(level),
	}
}

// recencyFactor makes neglect sharpen jealousy and fresh attention soften
// it.
func (j *JealousyEngine) recencyFactor(now time.Time) float64 {
	if !j.hasAttention {
		return jealousyStarvedMult
	}
	since := now.Sub(j.lastAttention)
	switch {
	case since > jealousyStarvedHrs*time.Hour:
		return jealousyStarvedMult
	case since < time.Duration(jealousySatedMins)*time.Minute:
		return jealousySatedMult
	default:
		return 1.0
	}
}

func (j *JealousyEngine) sampleResponse(level JealousyLevel) string {
	pool := responseTable[level]
	if len(pool) == 0 {
		return "watches"
	}
	return pool[j.rng.Intn(len(pool))]
}

// ReceiveAttention registers direct owner attention. Every jealousy record
// softens, not just the one tied to whoever was favored lately; feeling
// loved reduces jealousy broadly.
func (j *JealousyEngine) ReceiveAttention(kind AttentionKind, duration float64, now time.Time) {
	if duration < 0 {
		duration = 0
	}
	j.lastAttention = now
	j.hasAttention = true
	relief := duration * jealousyRelief
	for id, v := range j.records {
		v -= relief
		if v <= 0 {
			delete(j.records, id)
		} else {
			j.records[id] = v
		}
	}
}

// CompeteOutcome reports a resolved resource competition from this pet's
// side.
type CompeteOutcome struct {
	RivalID        string       `json:"rival_id"`
	Resource       ResourceKind `json:"resource"`
	Won            bool         `json:"won"`
	Probability    float64      `json:"probability"`
	Jealousy       float64      `json:"jealousy"`
	JealousyChange float64      `json:"jealousy_change"`
	RivalryFormed  bool         `json:"rivalry_formed"`
}

// Compete resolves a head-to-head resource contest from this pet's
// perspective. Existing jealousy toward the rival raises the drive to win;
// a loss feeds that same jealousy and can harden into a rivalry, a win
// vents some of it. rivalIsFriend halves the jealousy cost of losing to an
// actual friend.
func (j *JealousyEngine) Compete(rivalID string, resource ResourceKind, rivalIsFriend bool, now time.Time) CompeteOutcome {
	p := 0.5 +
		(j.possessiveness-0.5)*competeTraitWeight +
		(j.competitiveness-0.5)*competeTraitWeight +
		j.records[rivalID]/100*competeJealousyWeight +
		resourceBonus(resource)
	p = clamp01(p)

	won := j.rng.Float64() < p
	out := CompeteOutcome{RivalID: rivalID, Resource: resource, Won: won, Probability: p}
	if won {
		out.JealousyChange = j.RecordCompetitionWin(rivalID)
	} else {
		out.JealousyChange, out.RivalryFormed = j.RecordCompetitionLoss(rivalID, rivalIsFriend, now)
	}
	out.Jealousy = j.records[rivalID]
	return out
}

// RecordCompetitionLoss applies the loser's side of a competition: a
// jealousy bump toward the winner and possible rivalry promotion once the
// losses pile up inside the rolling week. Exposed so the caller can apply
// a contest resolved elsewhere symmetrically to both pets.
func (j *JealousyEngine) RecordCompetitionLoss(rivalID string, rivalIsFriend bool, now time.Time) (change float64, rivalryFormed bool) {
	bump := jealousyLossBump
	if rivalIsFriend {
		bump /= 2
	}
	old := j.records[rivalID]
	v := clamp(old+bump, 0, 100)
	if v > 0 {
		j.records[rivalID] = v
	}

	times := append(j.lossTimes[rivalID], now)
	cutoff := now.AddDate(0, 0, -rivalryWindowDays)
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	j.lossTimes[rivalID] = kept

	if len(kept) >= rivalryLossCount && !j.rivalries[rivalID] {
		j.rivalries[rivalID] = true
		rivalryFormed = true
	}
	return v - old, rivalryFormed
}

// RecordCompetitionWin applies the winner's side: beating a rival vents
// jealousy toward them. Returns the (non-positive) intensity change.
func (j *JealousyEngine) RecordCompetitionWin(rivalID string) float64 {
	old, ok := j.records[rivalID]
	if !ok {
		return 0
	}
	v := old - jealousyWinRelief
	if v <= 0 {
		delete(j.records, rivalID)
		return -old
	}
	j.records[rivalID] = v
	return -jealousyWinRelief
}

// Decay ages every jealousy record by the elapsed hours. Intensity only
// ever falls here, and records that reach zero are removed rather than
// kept as zero entries.
func (j *JealousyEngine) Decay(hoursElapsed float64) {
	if hoursElapsed <= 0 {
		return
	}
	drop := hoursElapsed * jealousyDecayPerHr
	for id, v := range j.records {
		v -= drop
		if v <= 0 {
			delete(j.records, id)
		} else {
			j.records[id] = v
		}
	}
}

// JealousyToward returns the intensity toward a specific rival, zero when
// no record exists.
func (j *JealousyEngine) JealousyToward(rivalID string) float64 {
	return j.records[rivalID]
}

// Level returns the discrete jealousy level toward a rival.
func (j *JealousyEngine) Level(rivalID string) JealousyLevel {
	return LevelForIntensity(j.records[rivalID])
}

// IsJealous reports whether any record has crossed the mild threshold.
func (j *JealousyEngine) IsJealous() bool {
	for _, v := range j.records {
		if v >= jealousyMild {
			return true
		}
	}
	return false
}

// Rivals returns the rivalry set, sorted.
func (j *JealousyEngine) Rivals() []string {
	ids := make([]string, 0, len(j.rivalries))
	for id := range j.rivalries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsRival reports whether an identity has been promoted to the rivalry
// set.
func (j *JealousyEngine) IsRival(id string) bool { return j.rivalries[id] }

// ClearRivalry removes an identity from the rivalry set. Rivalries never
// expire on their own; only the caretaker clears them.
func (j *JealousyEngine) ClearRivalry(id string) { delete(j.rivalries, id) }

// Records returns a copy of every jealousy record.
func (j *JealousyEngine) Records() map[string]float64 {
	out := make(map[string]float64, len(j.records))
	for id, v := range j.records {
		out[id] = v
	}
	return out
}

// JealousySnapshot is the flat serialized form of the engine.
type JealousySnapshot struct {
	OwnerID       string                 `json:"owner_id"`
	Records       map[string]float64     `json:"records,omitempty"`
	Rivalries     []string               `json:"rivalries,omitempty"`
	LossTimes     map[string][]time.Time `json:"loss_times,omitempty"`
	LastAttention *time.Time             `json:"last_attention,omitempty"`
}

// Snapshot captures the full engine state.
func (j *JealousyEngine) Snapshot() JealousySnapshot {
	snap := JealousySnapshot{
		OwnerID:   j.ownerID,
		Records:   j.Records(),
		Rivalries: j.Rivals(),
		LossTimes: make(map[string][]time.Time, len(j.lossTimes)),
	}
	for id, times := range j.lossTimes {
		if len(times) > 0 {
			snap.LossTimes[id] = append([]time.Time(nil), times...)
		}
	}
	if j.hasAttention {
		t := j.lastAttention
		snap.LastAttention = &t
	}
	return snap
}

// Restore replaces the engine's state with a snapshot. Out-of-range
// intensities clamp, non-positive records are dropped, and missing fields
// leave their defaults; restore never fails.
func (j *JealousyEngine) Restore(snap JealousySnapshot) {
	j.records = make(map[string]float64, len(snap.Records))
	for id, v := range snap.Records {
		v = clamp(v, 0, 100)
		if id != "" && v > 0 {
			j.records[id] = v
		}
	}
	j.rivalries = make(map[string]bool, len(snap.Rivalries))
	for _, id := range snap.Rivalries {
		if id != "" {
			j.rivalries[id] = true
		}
	}
	j.lossTimes = make(map[string][]time.Time, len(snap.LossTimes))
	for id, times := range snap.LossTimes {
		if id != "" && len(times) > 0 {
			j.lossTimes[id] = append([]time.Time(nil), times...)
		}
	}
	if snap.LastAttention != nil {
		j.lastAttention = *snap.LastAttention
		j.hasAttention = true
	} else {
		j.lastAttention = time.Time{}
		j.hasAttention = false
	}
}
