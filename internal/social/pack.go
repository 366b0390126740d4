// Pack facade — owns the hierarchy and every pet's component set, resolves
// cross-component lookups by identity key, and applies pairwise events to
// both sides. The simulation loop, API, and persistence all go through
// this type.
package social

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/avaley/petpack/internal/entropy"
	"github.com/avaley/petpack/internal/pets"
)

// maxEvents bounds the in-memory event log.
const maxEvents = 200

// Event is one human-readable social happening.
type Event struct {
	Time        time.Time `json:"time"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
}

// memberState bundles one pet's social components. Components reference
// other pets by identity only; this struct is the only place a pet's
// pieces live together.
type memberState struct {
	name     string
	traits   pets.Traits
	ledger   *Ledger
	jealousy *JealousyEngine
	teaching *TeachingProfile
}

// Pack is the facade over one pack's social state. A single mutex guards
// the aggregate: the simulation mutates from one goroutine while the API
// reads from another.
type Pack struct {
	mu        sync.Mutex
	rng       entropy.Source
	hierarchy *Hierarchy
	members   map[string]*memberState
	events    []Event
}

// NewPack creates an empty pack drawing randomness from one source.
func NewPack(rng entropy.Source) *Pack {
	return &Pack{
		rng:       rng,
		hierarchy: NewHierarchy(rng),
		members:   make(map[string]*memberState),
	}
}

// AddPet brings a pet into the pack: fresh ledger, jealousy engine, and
// teaching profile, plus hierarchy membership.
func (p *Pack) AddPet(id, name string, traits pets.Traits, ageDays int, size pets.SizeClass, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.members[id]; ok {
		return ErrAlreadyMember
	}
	if err := p.hierarchy.AddMember(id, ageDays, size, traits.Confidence, now); err != nil {
		return err
	}
	p.members[id] = &memberState{
		name:     name,
		traits:   traits,
		ledger:   NewLedger(id, traits, p.rng),
		jealousy: NewJealousyEngine(id, traits.Possessiveness, traits.Competitiveness, p.rng),
		teaching: NewTeachingProfile(id, p.rng),
	}
	p.emit("pack", now, "%s joined the pack", p.displayName(id))
	return nil
}

// RemovePet drops a pet from the pack and the hierarchy. Other pets keep
// their relationship and jealousy records toward the departed identity;
// memory of a packmate outlives the packmate.
func (p *Pack) RemovePet(id string, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.members[id]
	if !ok {
		return ErrNotMember
	}
	if err := p.hierarchy.RemoveMember(id); err != nil {
		return err
	}
	delete(p.members, id)
	p.emit("pack", now, "%s left the pack", nameOr(m.name, id))
	return nil
}

// HasPet reports pack membership.
func (p *Pack) HasPet(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.members[id]
	return ok
}

// PetIDs returns every member identity, sorted.
func (p *Pack) PetIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idsLocked()
}

func (p *Pack) idsLocked() []string {
	ids := make([]string, 0, len(p.members))
	for id := range p.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PetName returns the display name registered for an identity, or the
// identity itself.
func (p *Pack) PetName(id string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.displayName(id)
}

func (p *Pack) displayName(id string) string {
	if m, ok := p.members[id]; ok {
		return nameOr(m.name, id)
	}
	return id
}

func nameOr(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

// Meet introduces two pack members to each other, both directions.
func (p *Pack) Meet(aID, bID string, now time.Time) (MeetResult, MeetResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, b, err := p.pair(aID, bID)
	if err != nil {
		return MeetResult{}, MeetResult{}, err
	}
	ra := a.ledger.Meet(bID, b.traits, now)
	rb := b.ledger.Meet(aID, a.traits, now)
	if !ra.AlreadyKnow {
		p.emit("social", now, "%s and %s met for the first time", p.displayName(aID), p.displayName(bID))
	}
	return ra, rb, nil
}

// Interact applies one interaction symmetrically. Both pets must have met.
func (p *Pack) Interact(aID, bID string, kind Interaction, success bool, now time.Time) (InteractResult, InteractResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, b, err := p.pair(aID, bID)
	if err != nil {
		return InteractResult{}, InteractResult{}, err
	}
	if _, ok := a.ledger.Relationship(bID); !ok {
		return InteractResult{}, InteractResult{}, ErrNoRelationship
	}
	if _, ok := b.ledger.Relationship(aID); !ok {
		return InteractResult{}, InteractResult{}, ErrNoRelationship
	}
	ra, err := a.ledger.Interact(bID, kind, success, now)
	if err != nil {
		return InteractResult{}, InteractResult{}, err
	}
	rb, err := b.ledger.Interact(aID, kind, success, now)
	if err != nil {
		return ra, InteractResult{}, err
	}
	if ra.CategoryChanged {
		p.emit("social", now, "%s now sees %s as %s", p.displayName(aID), p.displayName(bID), CategoryName(ra.NewCategory))
	}
	if rb.CategoryChanged {
		p.emit("social", now, "%s now sees %s as %s", p.displayName(bID), p.displayName(aID), CategoryName(rb.NewCategory))
	}
	return ra, rb, nil
}

// ApplyBonding nudges friendship both ways without an interaction record,
// for effects like the bond built during a teaching session. Pets that
// have not met are silently skipped.
func (p *Pack) ApplyBonding(aID, bID string, delta float64, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a, ok := p.members[aID]; ok {
		_ = a.ledger.AdjustFriendship(bID, delta, now)
	}
	if b, ok := p.members[bID]; ok {
		_ = b.ledger.AdjustFriendship(aID, delta, now)
	}
}

// GiveAttention records the owner attending to one pet: the favored pet
// receives it (softening all its jealousy), and every other member
// witnesses it. Reactions come back sorted by observer identity.
func (p *Pack) GiveAttention(favoredID string, kind AttentionKind, duration float64, now time.Time) ([]WitnessResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	favored, ok := p.members[favoredID]
	if !ok {
		return nil, ErrNotMember
	}
	favored.jealousy.ReceiveAttention(kind, duration, now)

	var reactions []WitnessResult
	for _, id := range p.idsLocked() {
		if id == favoredID {
			continue
		}
		observer := p.members[id]
		res := observer.jealousy.WitnessAttention(favoredID, kind, duration, now)
		reactions = append(reactions, res)
		if res.Level >= JealousyHigh {
			p.emit("jealousy", now, "%s %s as the owner fusses over %s",
				p.displayName(id), res.Response, p.displayName(favoredID))
		}
	}
	return reactions, nil
}

// WitnessAttention applies one explicit witnessed-attention event, for
// callers that track presence themselves.
func (p *Pack) WitnessAttention(observerID, favoredID string, kind AttentionKind, duration float64, now time.Time) (WitnessResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	observer, ok := p.members[observerID]
	if !ok {
		return WitnessResult{}, ErrNotMember
	}
	return observer.jealousy.WitnessAttention(favoredID, kind, duration, now), nil
}

// Challenge resolves a dominance challenge between two members.
func (p *Pack) Challenge(challengerID, targetID string, ctx ChallengeContext, now time.Time) (ChallengeOutcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out, err := p.hierarchy.Challenge(challengerID, targetID, ctx, now)
	if err != nil {
		return ChallengeOutcome{}, err
	}
	p.emit("dominance", now, "%s challenged %s over %s and %s",
		p.displayName(challengerID), p.displayName(targetID), string(ctx), winLossWord(out.ChallengerWon))
	if out.RanksChanged {
		p.emit("dominance", now, "the pack order shifted; %s leads", p.displayName(p.hierarchy.ResourcePriority()[0]))
	}
	return out, nil
}

func winLossWord(won bool) string {
	if won {
		return "won"
	}
	return "lost"
}

// CompeteResult reports a facade-resolved competition, including the
// submission shortcut and both pets' bookkeeping.
type CompeteResult struct {
	WinnerID      string  `json:"winner_id"`
	LoserID       string  `json:"loser_id"`
	Conceded      bool    `json:"conceded"`
	Probability   float64 `json:"probability"`
	LoserJealousy float64 `json:"loser_jealousy"`
	RivalryFormed bool    `json:"rivalry_formed"`
}

// Compete resolves a resource contest between two members. The hierarchy
// is consulted first: a pet that should submit concedes without a contest.
// Otherwise the initiator's engine rolls the outcome and both engines
// record their side, with friendship softening the loser's jealousy.
func (p *Pack) Compete(aID, bID string, resource ResourceKind, now time.Time) (CompeteResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, b, err := p.pair(aID, bID)
	if err != nil {
		return CompeteResult{}, err
	}

	if p.hierarchy.ShouldSubmit(aID, bID) {
		p.emit("competition", now, "%s yields the %s to %s without a fuss",
			p.displayName(aID), string(resource), p.displayName(bID))
		return CompeteResult{WinnerID: bID, LoserID: aID, Conceded: true}, nil
	}

	aLikesB := a.ledger.CategoryOf(bID) >= CategoryFriend
	bLikesA := b.ledger.CategoryOf(aID) >= CategoryFriend

	out := a.jealousy.Compete(bID, resource, aLikesB, now)
	res := CompeteResult{Probability: out.Probability}
	if out.Won {
		res.WinnerID, res.LoserID = aID, bID
		_, formed := b.jealousy.RecordCompetitionLoss(aID, bLikesA, now)
		res.LoserJealousy = b.jealousy.JealousyToward(aID)
		res.RivalryFormed = formed
	} else {
		res.WinnerID, res.LoserID = bID, aID
		b.jealousy.RecordCompetitionWin(aID)
		res.LoserJealousy = a.jealousy.JealousyToward(bID)
		res.RivalryFormed = out.RivalryFormed
	}

	p.emit("competition", now, "%s beat %s to the %s",
		p.displayName(res.WinnerID), p.displayName(res.LoserID), string(resource))
	if res.RivalryFormed {
		p.emit("competition", now, "%s now counts %s as a rival",
			p.displayName(res.LoserID), p.displayName(res.WinnerID))
	}
	return res, nil
}

// Teach runs a teaching session. The facade resolves the student's
// friendship toward the teacher and whether the teacher outranks the
// student, then applies the returned bonding to both ledgers. The student
// gain is returned for the caller to apply to the student's actual trick
// proficiency.
func (p *Pack) Teach(teacherID, studentID, trick string, teacherProf, studentProf float64, now time.Time) (TeachOutcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	teacher, student, err := p.pair(teacherID, studentID)
	if err != nil {
		return TeachOutcome{}, err
	}

	friendship := student.ledger.Friendship(teacherID)
	outranks := p.hierarchy.Outranks(teacherID, studentID)

	out, err := teacher.teaching.Teach(studentID, trick, teacherProf, studentProf, friendship, outranks)
	if err != nil {
		return TeachOutcome{}, err
	}
	if out.Success {
		student.teaching.LearnFromPeer(teacherID, trick, 1.0)
		p.emit("teaching", now, "%s taught %s to %s",
			p.displayName(teacherID), trick, p.displayName(studentID))
	}
	_ = student.ledger.AdjustFriendship(teacherID, out.BondingGain, now)
	_ = teacher.ledger.AdjustFriendship(studentID, out.BondingGain, now)
	return out, nil
}

// ObserveTrick registers one pet watching another perform a trick.
func (p *Pack) ObserveTrick(observerID, performerID, trick string, performerProf float64, now time.Time) (ObserveOutcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	observer, ok := p.members[observerID]
	if !ok {
		return ObserveOutcome{}, ErrNotMember
	}
	out := observer.teaching.Observe(trick, performerProf)
	if out.Learned {
		p.emit("teaching", now, "%s picked up %s just from watching %s",
			p.displayName(observerID), trick, p.displayName(performerID))
	}
	return out, nil
}

// RecommendTeacher scores the given candidates (identity to proficiency at
// the trick) for a student and returns the best mastered option.
func (p *Pack) RecommendTeacher(studentID, trick string, proficiencies map[string]float64) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	student, ok := p.members[studentID]
	if !ok {
		return "", false, ErrNotMember
	}

	ids := make([]string, 0, len(proficiencies))
	for id := range proficiencies {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var candidates []TeacherCandidate
	for _, id := range ids {
		m, ok := p.members[id]
		if !ok || id == studentID || !CanTeach(proficiencies[id]) {
			continue
		}
		candidates = append(candidates, TeacherCandidate{
			ID:            id,
			Proficiency:   proficiencies[id],
			TeachingSkill: m.teaching.Skill(),
			Friendship:    student.ledger.Friendship(id),
			HigherRank:    p.hierarchy.Outranks(id, studentID),
		})
	}
	id, found := RecommendTeacher(candidates)
	return id, found, nil
}

// DecayJealousy ages every member's jealousy records.
func (p *Pack) DecayJealousy(hoursElapsed float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.members {
		m.jealousy.Decay(hoursElapsed)
	}
}

// RecoverStability nudges pack stability back up after a calm stretch.
func (p *Pack) RecoverStability(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hierarchy.RecoverStability(now)
}

// Stability returns the hierarchy's stability gauge.
func (p *Pack) Stability() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hierarchy.Stability()
}

// ResourcePriority returns the pack's feeding order.
func (p *Pack) ResourcePriority() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hierarchy.ResourcePriority()
}

// RankOf returns a member's rank.
func (p *Pack) RankOf(id string) (Rank, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hierarchy.Rank(id)
}

// HierarchyMembers returns the pack's dominance records, score order.
func (p *Pack) HierarchyMembers() []Member {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hierarchy.Members()
}

// Relationship returns a copy of how a feels about b.
func (p *Pack) Relationship(aID, bID string) (Relationship, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.members[aID]
	if !ok {
		return Relationship{}, false
	}
	return m.ledger.Relationship(bID)
}

// CategoryBetween returns how a currently categorizes b.
func (p *Pack) CategoryBetween(aID, bID string) Category {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.members[aID]
	if !ok {
		return CategoryStranger
	}
	return m.ledger.CategoryOf(bID)
}

// BestFriendOf returns a member's best friend, if any qualifies.
func (p *Pack) BestFriendOf(id string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.members[id]
	if !ok {
		return "", false
	}
	return m.ledger.BestFriend()
}

// WantsSocialInteraction reports whether a member is seeking company.
func (p *Pack) WantsSocialInteraction(id string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.members[id]
	if !ok {
		return false, ErrNotMember
	}
	return m.ledger.WantsSocialInteraction(), nil
}

// IsJealous reports whether any of a member's jealousy records clears the
// mild threshold.
func (p *Pack) IsJealous(id string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.members[id]
	if !ok {
		return false, ErrNotMember
	}
	return m.jealousy.IsJealous(), nil
}

// LedgerSnapshotOf returns a member's serialized relationship state.
func (p *Pack) LedgerSnapshotOf(id string) (LedgerSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.members[id]
	if !ok {
		return LedgerSnapshot{}, ErrNotMember
	}
	return m.ledger.Snapshot(), nil
}

// JealousySnapshotOf returns a member's serialized jealousy state.
func (p *Pack) JealousySnapshotOf(id string) (JealousySnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.members[id]
	if !ok {
		return JealousySnapshot{}, ErrNotMember
	}
	return m.jealousy.Snapshot(), nil
}

// TeachingSnapshotOf returns a member's serialized teaching state.
func (p *Pack) TeachingSnapshotOf(id string) (TeachingSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.members[id]
	if !ok {
		return TeachingSnapshot{}, ErrNotMember
	}
	return m.teaching.Snapshot(), nil
}

// EmitEvent appends an external happening to the pack's event log.
func (p *Pack) EmitEvent(category, description string, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emit(category, at, "%s", description)
}

// Events returns up to limit of the most recent events, oldest first.
func (p *Pack) Events(limit int) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if limit <= 0 || limit > len(p.events) {
		limit = len(p.events)
	}
	out := make([]Event, limit)
	copy(out, p.events[len(p.events)-limit:])
	return out
}

func (p *Pack) emit(category string, at time.Time, format string, args ...any) {
	p.events = append(p.events, Event{
		Time:        at,
		Category:    category,
		Description: fmt.Sprintf(format, args...),
	})
	if len(p.events) > maxEvents {
		p.events = p.events[len(p.events)-maxEvents:]
	}
}

// pair fetches two distinct members.
func (p *Pack) pair(aID, bID string) (*memberState, *memberState, error) {
	a, ok := p.members[aID]
	if !ok {
		return nil, nil, ErrNotMember
	}
	b, ok := p.members[bID]
	if !ok {
		return nil, nil, ErrNotMember
	}
	return a, b, nil
}

// PetSocialSnapshot bundles one pet's serialized component states.
type PetSocialSnapshot struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Traits   pets.Traits      `json:"traits"`
	Ledger   LedgerSnapshot   `json:"ledger"`
	Jealousy JealousySnapshot `json:"jealousy"`
	Teaching TeachingSnapshot `json:"teaching"`
}

// PackSnapshot is the pack's full serialized social state. The event log
// is presentation history, not state, and is not captured.
type PackSnapshot struct {
	Hierarchy HierarchySnapshot   `json:"hierarchy"`
	Pets      []PetSocialSnapshot `json:"pets"`
}

// Snapshot captures the whole pack.
func (p *Pack) Snapshot() PackSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := PackSnapshot{
		Hierarchy: p.hierarchy.Snapshot(),
		Pets:      make([]PetSocialSnapshot, 0, len(p.members)),
	}
	for _, id := range p.idsLocked() {
		m := p.members[id]
		snap.Pets = append(snap.Pets, PetSocialSnapshot{
			ID:       id,
			Name:     m.name,
			Traits:   m.traits,
			Ledger:   m.ledger.Snapshot(),
			Jealousy: m.jealousy.Snapshot(),
			Teaching: m.teaching.Snapshot(),
		})
	}
	return snap
}

// Restore replaces the pack's state with a snapshot. Each component's
// restore fills defaults for whatever the snapshot is missing; restore
// never fails.
func (p *Pack) Restore(snap PackSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.members = make(map[string]*memberState, len(snap.Pets))
	for _, ps := range snap.Pets {
		if ps.ID == "" {
			continue
		}
		m := &memberState{
			name:     ps.Name,
			traits:   ps.Traits,
			ledger:   NewLedger(ps.ID, ps.Traits, p.rng),
			jealousy: NewJealousyEngine(ps.ID, ps.Traits.Possessiveness, ps.Traits.Competitiveness, p.rng),
			teaching: NewTeachingProfile(ps.ID, p.rng),
		}
		m.ledger.Restore(ps.Ledger)
		m.jealousy.Restore(ps.Jealousy)
		m.teaching.Restore(ps.Teaching)
		p.members[ps.ID] = m
	}
	p.hierarchy.Restore(snap.Hierarchy)
	p.events = nil
}
