// Dominance hierarchy — pack-wide ranking from biographical inputs and
// challenge outcomes, plus the challenge resolver itself.
package social

import (
	"errors"
	"sort"
	"time"

	"github.com/avaley/petpack/internal/entropy"
	"github.com/avaley/petpack/internal/pets"
)

var (
	// ErrNotMember is returned when an identity is not in the hierarchy.
	ErrNotMember = errors.New("not a pack member")
	// ErrAlreadyMember is returned when adding an identity twice.
	ErrAlreadyMember = errors.New("already a pack member")
	// ErrSelfChallenge is returned when a pet challenges itself.
	ErrSelfChallenge = errors.New("cannot challenge self")
)

// Rank is a pack member's discrete position. Recomputation only ever
// assigns top, middle, and bottom; second remains a legal restored value
// from older snapshots and normalizes to middle on the next recompute.
type Rank uint8

const (
	RankMiddle Rank = iota
	RankTop
	RankSecond
	RankBottom
)

// RankName returns the lowercase name for a rank.
func RankName(r Rank) string {
	switch r {
	case RankTop:
		return "top"
	case RankSecond:
		return "second"
	case RankBottom:
		return "bottom"
	default:
		return "middle"
	}
}

// ParseRank maps a rank name to its value. Unknown names normalize to
// middle; restore must never fail on a bad categorical value.
func ParseRank(name string) Rank {
	switch name {
	case "top":
		return RankTop
	case "second":
		return RankSecond
	case "bottom":
		return RankBottom
	default:
		return RankMiddle
	}
}

// rankOrder gives ranks a comparable height for outranking checks.
func rankOrder(r Rank) int {
	switch r {
	case RankTop:
		return 3
	case RankSecond:
		return 2
	case RankMiddle:
		return 1
	default:
		return 0
	}
}

// ChallengeContext names the resource a dominance challenge is over.
type ChallengeContext string

const (
	ContextFood      ChallengeContext = "food"
	ContextAttention ChallengeContext = "attention"
	ContextToy       ChallengeContext = "toy"
)

// Member is one pack member's dominance state.
type Member struct {
	ID         string         `json:"id"`
	AgeDays    int            `json:"age_days"`
	Size       pets.SizeClass `json:"size"`
	Confidence float64        `json:"confidence"`
	Score      float64        `json:"score"`
	Wins       int            `json:"wins"`
	Losses     int            `json:"losses"`
	JoinedAt   time.Time      `json:"joined_at"`
	Rank       Rank           `json:"rank"`
}

// Hierarchy is the pack-wide aggregate: an indexed member collection, a
// sparse pairwise outcome ledger, and the pack stability gauge. One
// instance per pack; mutating calls must be serialized by the caller.
type Hierarchy struct {
	rng            entropy.Source
	members        map[string]*Member
	pairs          map[pairKey]int
	stability      float64
	challengeTimes []time.Time
}

// pairKey is an ordered (challenger, target) pair.
type pairKey struct {
	Challenger string
	Target     string
}

// NewHierarchy creates an empty hierarchy at full stability.
func NewHierarchy(rng entropy.Source) *Hierarchy {
	return &Hierarchy{
		rng:       rng,
		members:   make(map[string]*Member),
		pairs:     make(map[pairKey]int),
		stability: 1.0,
	}
}

// AddMember brings a pet into the hierarchy with a score derived from its
// age bracket, size class, confidence, neutral win rate, and tenure, then
// recomputes ranks.
func (h *Hierarchy) AddMember(id string, ageDays int, size pets.SizeClass, confidence float64, now time.Time) error {
	if _, ok := h.members[id]; ok {
		return ErrAlreadyMember
	}
	m := &Member{
		ID:         id,
		AgeDays:    ageDays,
		Size:       size,
		Confidence: clamp01(confidence),
		JoinedAt:   now,
	}
	m.Score = initialScore(m, now)
	h.members[id] = m
	h.recomputeRanks()
	return nil
}

// initialScore composes the weighted dominance components.
func initialScore(m *Member, now time.Time) float64 {
	var agePts float64
	switch {
	case m.AgeDays < ageBabyDays:
		agePts = agePointsBaby
	case m.AgeDays < ageYoungDays:
		agePts = agePointsYoung
	default:
		agePts = agePointsAdult
	}

	var sizePts float64
	switch m.Size {
	case pets.SizeSmall:
		sizePts = sizePointsSmall
	case pets.SizeLarge:
		sizePts = sizePointsLarge
	default:
		sizePts = sizePointsMedium
	}

	winPts := winRateNeutral
	if total := m.Wins + m.Losses; total > 0 {
		winPts = float64(m.Wins) / float64(total) * winRateWeight
	}

	tenure := now.Sub(m.JoinedAt).Hours() / 24 * tenurePerDay
	if tenure < 0 {
		tenure = 0
	}
	if tenure > tenureCap {
		tenure = tenureCap
	}

	return clamp(agePts+sizePts+m.Confidence*confidenceWeight+winPts+tenure, 0, 100)
}

// RemoveMember drops a pet and every pairwise entry touching it, then
// recomputes ranks unconditionally so no stale top or bottom survives.
func (h *Hierarchy) RemoveMember(id string) error {
	if _, ok := h.members[id]; !ok {
		return ErrNotMember
	}
	delete(h.members, id)
	for k := range h.pairs {
		if k.Challenger == id || k.Target == id {
			delete(h.pairs, k)
		}
	}
	h.recomputeRanks()
	return nil
}

// recomputeRanks deterministically rederives every rank by score order:
// one top, one bottom, everyone else middle. A sole member is top.
func (h *Hierarchy) recomputeRanks() {
	if len(h.members) == 0 {
		return
	}
	ordered := h.byScore()
	if len(ordered) == 1 {
		ordered[0].Rank = RankTop
		return
	}
	for i, m := range ordered {
		switch i {
		case 0:
			m.Rank = RankTop
		case len(ordered) - 1:
			m.Rank = RankBottom
		default:
			m.Rank = RankMiddle
		}
	}
}

// byScore returns members sorted by score descending, id ascending on ties
// so ordering is deterministic.
func (h *Hierarchy) byScore() []*Member {
	ordered := make([]*Member, 0, len(h.members))
	for _, m := range h.members {
		ordered = append(ordered, m)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

// ChallengeOutcome reports a resolved dominance challenge.
type ChallengeOutcome struct {
	ChallengerWon   bool    `json:"challenger_won"`
	WinnerID        string  `json:"winner_id"`
	LoserID         string  `json:"loser_id"`
	Probability     float64 `json:"probability"`
	ChallengerScore float64 `json:"challenger_score"`
	TargetScore     float64 `json:"target_score"`
	RanksChanged    bool    `json:"ranks_changed"`
	Stability       float64 `json:"stability"`
}

// Challenge resolves a head-to-head dominance contest. The challenger's win
// probability starts even, tilts with the score gap, stretches with the
// context, and picks up a little noise; a single draw decides it. Losing a
// challenge you initiated costs more than losing one you defended.
func (h *Hierarchy) Challenge(challengerID, targetID string, ctx ChallengeContext, now time.Time) (ChallengeOutcome, error) {
	if challengerID == targetID {
		return ChallengeOutcome{}, ErrSelfChallenge
	}
	challenger, ok := h.members[challengerID]
	if !ok {
		return ChallengeOutcome{}, ErrNotMember
	}
	target, ok := h.members[targetID]
	if !ok {
		return ChallengeOutcome{}, ErrNotMember
	}

	p := 0.5 + (challenger.Score-target.Score)/challengeScoreDivisor
	p *= challengeContextMult(ctx)
	p += h.rng.Float64()*2*challengeNoise - challengeNoise
	p = clamp01(p)

	won := h.rng.Float64() < p

	out := ChallengeOutcome{ChallengerWon: won, Probability: p}
	if won {
		challenger.Score = clamp(challenger.Score+challengerWinGain, 0, 100)
		target.Score = clamp(target.Score-challengerWinCost, 0, 100)
		challenger.Wins++
		target.Losses++
		h.pairs[pairKey{challengerID, targetID}]++
		out.WinnerID, out.LoserID = challengerID, targetID
	} else {
		target.Score = clamp(target.Score+defenderWinGain, 0, 100)
		challenger.Score = clamp(challenger.Score-defenderWinCost, 0, 100)
		target.Wins++
		challenger.Losses++
		h.pairs[pairKey{challengerID, targetID}]--
		out.WinnerID, out.LoserID = targetID, challengerID
	}
	out.ChallengerScore = challenger.Score
	out.TargetScore = target.Score

	h.recordChallenge(now)

	before := h.rankSignature()
	h.recomputeRanks()
	out.RanksChanged = h.rankSignature() != before
	out.Stability = h.stability
	return out, nil
}

// rankSignature flattens the current rank assignment for change detection.
func (h *Hierarchy) rankSignature() string {
	sig := make([]byte, 0, len(h.members)*8)
	for _, m := range h.byScore() {
		sig = append(sig, m.ID...)
		sig = append(sig, byte('0'+rankOrder(m.Rank)), ';')
	}
	return string(sig)
}

// recordChallenge tracks challenge density inside the rolling day and
// erodes stability once the pack squabbles past the free allowance.
func (h *Hierarchy) recordChallenge(now time.Time) {
	h.challengeTimes = append(h.challengeTimes, now)
	h.pruneChallenges(now)
	if len(h.challengeTimes) > stabilityFreeChallenges {
		h.stability = clamp(h.stability-stabilityDecay, 0, 1)
	}
}

func (h *Hierarchy) pruneChallenges(now time.Time) {
	cutoff := now.Add(-stabilityWindowHours * time.Hour)
	kept := h.challengeTimes[:0]
	for _, t := range h.challengeTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	h.challengeTimes = kept
}

// RecoverStability lets the pack settle: called by the care loop after a
// challenge-free stretch.
func (h *Hierarchy) RecoverStability(now time.Time) {
	h.pruneChallenges(now)
	h.stability = clamp(h.stability+stabilityRecovery, 0, 1)
}

// Stability returns the current pack stability, 0..1.
func (h *Hierarchy) Stability() float64 { return h.stability }

// ResourcePriority returns member identities ordered by dominance score,
// highest first: the turn order for exclusive resources.
func (h *Hierarchy) ResourcePriority() []string {
	ordered := h.byScore()
	ids := make([]string, len(ordered))
	for i, m := range ordered {
		ids[i] = m.ID
	}
	return ids
}

// ShouldSubmit reports whether the submitter should yield to the dominant
// pet without a contest: always across a wide score gap, usually across a
// moderate one, and across a narrow one only when the pairwise history says
// the submitter keeps losing this matchup. Unknown identities never submit.
func (h *Hierarchy) ShouldSubmit(submitterID, dominantID string) bool {
	sub, ok := h.members[submitterID]
	if !ok {
		return false
	}
	dom, ok := h.members[dominantID]
	if !ok {
		return false
	}
	gap := dom.Score - sub.Score
	switch {
	case gap > submitAlwaysGap:
		return true
	case gap > submitUsuallyGap:
		return h.rng.Float64() < submitUsuallyP
	case gap > submitHistoryGap:
		return h.netHistory(submitterID, dominantID) < 0
	default:
		return false
	}
}

// netHistory combines both directions of the pairwise ledger: positive
// means a has come out ahead of b overall.
func (h *Hierarchy) netHistory(a, b string) int {
	return h.pairs[pairKey{a, b}] - h.pairs[pairKey{b, a}]
}

// PairTally returns the raw directional tally for (challenger, target).
func (h *Hierarchy) PairTally(challenger, target string) int {
	return h.pairs[pairKey{challenger, target}]
}

// Rank returns a member's current rank.
func (h *Hierarchy) Rank(id string) (Rank, bool) {
	m, ok := h.members[id]
	if !ok {
		return RankMiddle, false
	}
	return m.Rank, true
}

// Score returns a member's current dominance score.
func (h *Hierarchy) Score(id string) (float64, bool) {
	m, ok := h.members[id]
	if !ok {
		return 0, false
	}
	return m.Score, true
}

// Outranks reports whether a holds a strictly higher rank than b. Two
// middle-ranked pets do not outrank each other.
func (h *Hierarchy) Outranks(a, b string) bool {
	ma, ok := h.members[a]
	if !ok {
		return false
	}
	mb, ok := h.members[b]
	if !ok {
		return false
	}
	return rankOrder(ma.Rank) > rankOrder(mb.Rank)
}

// Members returns copies of every member, score order.
func (h *Hierarchy) Members() []Member {
	ordered := h.byScore()
	out := make([]Member, len(ordered))
	for i, m := range ordered {
		out[i] = *m
	}
	return out
}

// Size returns the member count.
func (h *Hierarchy) Size() int { return len(h.members) }

// HierarchySnapshot is the flat serialized form of the aggregate.
type HierarchySnapshot struct {
	Members        []MemberSnapshot `json:"members"`
	Pairs          []PairSnapshot   `json:"pairs"`
	Stability      *float64         `json:"stability,omitempty"`
	ChallengeTimes []time.Time      `json:"challenge_times,omitempty"`
}

// MemberSnapshot is one serialized member; size and rank are stored as
// names and normalize on restore.
type MemberSnapshot struct {
	ID         string    `json:"id"`
	AgeDays    int       `json:"age_days"`
	Size       string    `json:"size"`
	Confidence float64   `json:"confidence"`
	Score      float64   `json:"score"`
	Wins       int       `json:"wins"`
	Losses     int       `json:"losses"`
	JoinedAt   time.Time `json:"joined_at"`
	Rank       string    `json:"rank"`
}

// PairSnapshot is one serialized pairwise tally.
type PairSnapshot struct {
	Challenger string `json:"challenger"`
	Target     string `json:"target"`
	Net        int    `json:"net"`
}

// Snapshot captures the full hierarchy state.
func (h *Hierarchy) Snapshot() HierarchySnapshot {
	stability := h.stability
	snap := HierarchySnapshot{
		Members:        make([]MemberSnapshot, 0, len(h.members)),
		Pairs:          make([]PairSnapshot, 0, len(h.pairs)),
		Stability:      &stability,
		ChallengeTimes: append([]time.Time(nil), h.challengeTimes...),
	}
	for _, m := range h.byScore() {
		snap.Members = append(snap.Members, MemberSnapshot{
			ID:         m.ID,
			AgeDays:    m.AgeDays,
			Size:       pets.SizeName(m.Size),
			Confidence: m.Confidence,
			Score:      m.Score,
			Wins:       m.Wins,
			Losses:     m.Losses,
			JoinedAt:   m.JoinedAt,
			Rank:       RankName(m.Rank),
		})
	}
	keys := make([]pairKey, 0, len(h.pairs))
	for k := range h.pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Challenger != keys[j].Challenger {
			return keys[i].Challenger < keys[j].Challenger
		}
		return keys[i].Target < keys[j].Target
	})
	for _, k := range keys {
		snap.Pairs = append(snap.Pairs, PairSnapshot{k.Challenger, k.Target, h.pairs[k]})
	}
	return snap
}

// Restore replaces the hierarchy's state with a snapshot. Unknown size or
// rank names normalize, stability defaults to full, and ranks are
// recomputed unconditionally afterward; restore never fails.
func (h *Hierarchy) Restore(snap HierarchySnapshot) {
	h.members = make(map[string]*Member, len(snap.Members))
	h.pairs = make(map[pairKey]int, len(snap.Pairs))
	for _, ms := range snap.Members {
		if ms.ID == "" {
			continue
		}
		h.members[ms.ID] = &Member{
			ID:         ms.ID,
			AgeDays:    ms.AgeDays,
			Size:       pets.ParseSize(ms.Size),
			Confidence: clamp01(ms.Confidence),
			Score:      clamp(ms.Score, 0, 100),
			Wins:       ms.Wins,
			Losses:     ms.Losses,
			JoinedAt:   ms.JoinedAt,
			Rank:       ParseRank(ms.Rank),
		}
	}
	for _, ps := range snap.Pairs {
		if ps.Challenger == "" || ps.Target == "" || ps.Net == 0 {
			continue
		}
		h.pairs[pairKey{ps.Challenger, ps.Target}] = ps.Net
	}
	if snap.Stability != nil {
		h.stability = clamp01(*snap.Stability)
	} else {
		h.stability = 1.0
	}
	h.challengeTimes = append([]time.Time(nil), snap.ChallengeTimes...)
	h.recomputeRanks()
}
