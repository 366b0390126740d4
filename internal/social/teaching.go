// Peer teaching — skill transfer between a proficient teacher pet and a
// student, plus passive learning by watching.
package social

import (
	"errors"

	"github.com/avaley/petpack/internal/entropy"
)

// ErrBelowMastery is returned when a pet tries to teach a trick it has not
// mastered. No probability roll happens; the attempt simply cannot start.
var ErrBelowMastery = errors.New("below mastery threshold")

// CanTeach reports whether a proficiency is high enough to teach from.
func CanTeach(proficiency float64) bool {
	return proficiency >= MasteryThreshold
}

// TeachingProfile holds one pet's record as a teacher and a student: a
// slowly growing teaching-skill scalar, what it has taught, who first
// taught it each trick, and what it has watched others perform.
type TeachingProfile struct {
	ownerID string
	rng     entropy.Source

	skill       float64
	taught      map[string]int
	learnedFrom map[string]string
	observed    map[string]int
}

// NewTeachingProfile creates an empty profile for one pet.
func NewTeachingProfile(ownerID string, rng entropy.Source) *TeachingProfile {
	return &TeachingProfile{
		ownerID:     ownerID,
		rng:         rng,
		taught:      make(map[string]int),
		learnedFrom: make(map[string]string),
		observed:    make(map[string]int),
	}
}

// OwnerID returns the identity this profile belongs to.
func (t *TeachingProfile) OwnerID() string { return t.ownerID }

// TeachOutcome reports one teaching attempt.
type TeachOutcome struct {
	Trick        string  `json:"trick"`
	StudentID    string  `json:"student_id"`
	Success      bool    `json:"success"`
	Probability  float64 `json:"probability"`
	StudentGain  float64 `json:"student_gain"`
	TeacherSkill float64 `json:"teacher_skill"`
	BondingGain  float64 `json:"bonding_gain"`
}

// Teach attempts to pass a trick to a student. The teacher must have
// mastered the trick; past that gate, success rides on teaching skill,
// friendship, rank, and how far along the student already is. Beginners
// are easy to teach, near-masters are not. The bonding gain is returned
// for the caller to apply to both pets' ledgers; a failed lesson still
// bonds a little.
func (t *TeachingProfile) Teach(studentID, trick string, teacherProf, studentProf, friendship float64, teacherOutranks bool) (TeachOutcome, error) {
	teacherProf = clamp01(teacherProf)
	studentProf = clamp01(studentProf)
	friendship = clamp(friendship, -100, 100)

	if !CanTeach(teacherProf) {
		return TeachOutcome{}, ErrBelowMastery
	}

	p := teachBaseP +
		t.skill*teachSkillWeight +
		friendship/100*teachFriendWeight
	if teacherOutranks {
		p += teachRankBonus
	}
	if studentProf < teachBeginnerBelow {
		p += teachBeginnerBonus
	}
	if studentProf > teachPlateauAbove {
		p -= teachPlateauPenalty
	}
	p = clamp01(p)

	out := TeachOutcome{
		Trick:       trick,
		StudentID:   studentID,
		Probability: p,
	}
	if t.rng.Float64() < p {
		masteryDepth := (teacherProf - MasteryThreshold) / (1 - MasteryThreshold)
		if masteryDepth > 1 {
			masteryDepth = 1
		}
		friendBonus := 1.0
		if friendship > 0 {
			friendBonus += friendship / 100 * teachFriendWeight
		}
		out.Success = true
		out.StudentGain = teachBaseGain * (1 + masteryDepth*teachMasteryScale) * friendBonus
		out.BondingGain = teachBondingWin
		t.skill = clamp01(t.skill + teachSkillStep)
		t.taught[trick]++
	} else {
		out.BondingGain = teachBondingLoss
	}
	out.TeacherSkill = t.skill
	return out, nil
}

// LearnOutcome reports a student-side learning attempt.
type LearnOutcome struct {
	Trick     string `json:"trick"`
	TeacherID string `json:"teacher_id"`
	Learned   bool   `json:"learned"`
}

// LearnFromPeer rolls the student's side of a lesson against the teaching
// quality. The first peer to successfully teach a trick is recorded as its
// teacher for good; later teachers do not overwrite that credit.
func (t *TeachingProfile) LearnFromPeer(teacherID, trick string, teachingQuality float64) LearnOutcome {
	q := clamp01(teachingQuality)
	learned := q >= 1 || t.rng.Float64() < q
	if learned {
		if _, ok := t.learnedFrom[trick]; !ok {
			t.learnedFrom[trick] = teacherID
		}
	}
	return LearnOutcome{Trick: trick, TeacherID: teacherID, Learned: learned}
}

// ObserveOutcome reports one observation of a performed trick.
type ObserveOutcome struct {
	Trick        string  `json:"trick"`
	Observations int     `json:"observations"`
	Learned      bool    `json:"learned"`
	Gain         float64 `json:"gain"`
}

// Observe registers watching another pet perform a trick. Repeated
// observation slowly builds a capped chance of picking the trick up for
// free, weighted by how well the performer actually did it.
func (t *TeachingProfile) Observe(trick string, performerProf float64) ObserveOutcome {
	t.observed[trick]++
	count := t.observed[trick]

	chance := float64(count) * observeChanceStep
	if chance > observeChanceCap {
		chance = observeChanceCap
	}
	chance *= clamp01(performerProf)

	out := ObserveOutcome{Trick: trick, Observations: count}
	if t.rng.Float64() < chance {
		out.Learned = true
		out.Gain = observeGain
	}
	return out
}

// TeacherCandidate is one option scored by RecommendTeacher. Friendship is
// from the student toward the candidate; HigherRank means the candidate
// outranks the student.
type TeacherCandidate struct {
	ID            string
	Proficiency   float64
	TeachingSkill float64
	Friendship    float64
	HigherRank    bool
}

// RecommendTeacher picks the most promising teacher from the candidates:
// proficiency dominates, teaching experience and friendship tilt the
// choice, and outranking the student helps. Returns false when there are
// no candidates.
func RecommendTeacher(candidates []TeacherCandidate) (string, bool) {
	bestID := ""
	bestScore := 0.0
	for _, c := range candidates {
		score := c.Proficiency*recommendProfWeight +
			c.TeachingSkill*recommendSkillWeight +
			c.Friendship*recommendFriendWeight
		if c.HigherRank {
			score += recommendRankBonus
		}
		if bestID == "" || score > bestScore || (score == bestScore && c.ID < bestID) {
			bestID, bestScore = c.ID, score
		}
	}
	return bestID, bestID != ""
}

// Skill returns the current teaching-skill scalar.
func (t *TeachingProfile) Skill() float64 { return t.skill }

// TimesTaught returns how often this pet has successfully taught a trick.
func (t *TeachingProfile) TimesTaught(trick string) int { return t.taught[trick] }

// LearnedFrom returns which peer first taught this pet a trick.
func (t *TeachingProfile) LearnedFrom(trick string) (string, bool) {
	id, ok := t.learnedFrom[trick]
	return id, ok
}

// Observations returns how often this pet has watched a trick performed.
func (t *TeachingProfile) Observations(trick string) int { return t.observed[trick] }

// TeachingSnapshot is the flat serialized form of a profile.
type TeachingSnapshot struct {
	OwnerID     string            `json:"owner_id"`
	Skill       float64           `json:"skill"`
	Taught      map[string]int    `json:"taught,omitempty"`
	LearnedFrom map[string]string `json:"learned_from,omitempty"`
	Observed    map[string]int    `json:"observed,omitempty"`
}

// Snapshot captures the full profile state.
func (t *TeachingProfile) Snapshot() TeachingSnapshot {
	snap := TeachingSnapshot{
		OwnerID:     t.ownerID,
		Skill:       t.skill,
		Taught:      make(map[string]int, len(t.taught)),
		LearnedFrom: make(map[string]string, len(t.learnedFrom)),
		Observed:    make(map[string]int, len(t.observed)),
	}
	for k, v := range t.taught {
		snap.Taught[k] = v
	}
	for k, v := range t.learnedFrom {
		snap.LearnedFrom[k] = v
	}
	for k, v := range t.observed {
		snap.Observed[k] = v
	}
	return snap
}

// Restore replaces the profile's state with a snapshot. Skill clamps to
// 0..1 and missing maps become empty; restore never fails.
func (t *TeachingProfile) Restore(snap TeachingSnapshot) {
	t.skill = clamp01(snap.Skill)
	t.taught = make(map[string]int, len(snap.Taught))
	for k, v := range snap.Taught {
		if v > 0 {
			t.taught[k] = v
		}
	}
	t.learnedFrom = make(map[string]string, len(snap.LearnedFrom))
	for k, v := range snap.LearnedFrom {
		if k != "" && v != "" {
			t.learnedFrom[k] = v
		}
	}
	t.observed = make(map[string]int, len(snap.Observed))
	for k, v := range snap.Observed {
		if v > 0 {
			t.observed[k] = v
		}
	}
}
