// Runner ties the pack's social systems together and runs them each tick.
package sim

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/avaley/petpack/internal/entropy"
	"github.com/avaley/petpack/internal/pets"
	"github.com/avaley/petpack/internal/social"
	"github.com/avaley/petpack/internal/statestore"
)

// encounterEvery is how often (in ticks) pets seek each other out.
const encounterEvery = 15

// friendlyKinds is the rotation for everyday encounters. Teasing shows up
// in the mix so negative history accumulates organically.
var friendlyKinds = []social.Interaction{
	social.InteractPlayTogether,
	social.InteractExploreTogether,
	social.InteractSleepNearby,
	social.InteractGroom,
	social.InteractShareFood,
	social.InteractTease,
}

// contestResources is the rotation for periodic resource competitions.
var contestResources = []social.ResourceKind{
	social.ResourceFood,
	social.ResourceToy,
	social.ResourceAttention,
}

// challengeContexts is the rotation for dominance challenges.
var challengeContexts = []social.ChallengeContext{
	social.ContextFood,
	social.ContextAttention,
	social.ContextToy,
}

// PackStats tracks aggregate pack statistics, refreshed daily.
type PackStats struct {
	Pets           int     `json:"pets"`
	AvgFriendship  float64 `json:"avg_friendship"`
	BestFriends    int     `json:"best_friends"`
	Rivalries      int     `json:"rivalries"`
	JealousPets    int     `json:"jealous_pets"`
	Stability      float64 `json:"stability"`
	TricksKnown    int     `json:"tricks_known"`
	TricksMastered int     `json:"tricks_mastered"`
}

// Runner holds the complete world state and wires systems together.
type Runner struct {
	Pets  []*pets.Pet
	Index map[string]*pets.Pet
	Pack  *social.Pack

	Attention *OwnerAttention
	Epoch     time.Time // sim wall-clock at tick zero

	rng entropy.Source

	mu       sync.Mutex
	lastTick uint64
	stats    PackStats
}

// NewRunner creates a Runner from spawned or restored components.
func NewRunner(petList []*pets.Pet, pack *social.Pack, attention *OwnerAttention, rng entropy.Source, epoch time.Time) *Runner {
	index := make(map[string]*pets.Pet, len(petList))
	for _, p := range petList {
		index[p.ID] = p
	}

	r := &Runner{
		Pets:      petList,
		Index:     index,
		Pack:      pack,
		Attention: attention,
		Epoch:     epoch,
		rng:       rng,
	}
	r.updateStats()
	return r
}

// CurrentTick returns the most recently processed tick number.
func (r *Runner) CurrentTick() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastTick
}

// SetTick positions the runner when resuming a saved world.
func (r *Runner) SetTick(t uint64) {
	r.mu.Lock()
	r.lastTick = t
	r.mu.Unlock()
}

// Stats returns the most recent daily statistics.
func (r *Runner) Stats() PackStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// SimNow maps a tick to the sim wall-clock. One tick is one sim-minute.
func (r *Runner) SimNow(tick uint64) time.Time {
	return r.Epoch.Add(time.Duration(tick) * time.Minute)
}

// WorldState packages the current world for persistence.
func (r *Runner) WorldState(savedAt time.Time) *statestore.WorldState {
	return &statestore.WorldState{
		SavedAt: savedAt,
		Epoch:   r.Epoch,
		Tick:    int64(r.CurrentTick()),
		Pets:    r.Pets,
		Social:  r.Pack.Snapshot(),
	}
}

// TickMinute runs every tick: spontaneous encounters between pets.
func (r *Runner) TickMinute(tick uint64) {
	r.mu.Lock()
	r.lastTick = tick
	r.mu.Unlock()

	if tick%encounterEvery == 0 {
		r.socialEncounter(tick)
	}
}

// TickHour runs every sim-hour: owner attention, resource contests,
// jealousy cooldown.
func (r *Runner) TickHour(tick uint64) {
	hour := tick / TicksPerHour
	now := r.SimNow(tick)

	if presence := r.Attention.Presence(hour); presence >= 0.5 {
		ids := r.Pack.PetIDs()
		favored := r.Attention.Favorite(hour, ids)
		if favored != "" {
			kind := r.Attention.Kind(hour)
			duration := r.Attention.Duration(presence)
			if _, err := r.Pack.GiveAttention(favored, kind, duration, now); err != nil {
				slog.Error("attention session failed", "pet", favored, "error", err)
			}
		}
	}

	if hour%3 == 0 {
		r.resourceContest(hour, now)
	}
	if hour%8 == 0 {
		r.ladderChallenge(hour, now)
	}

	r.Pack.DecayJealousy(1)
}

// TickDay runs every sim-day: stability recovery, a teaching session,
// statistics, daily summary.
func (r *Runner) TickDay(tick uint64) {
	now := r.SimNow(tick)

	r.Pack.RecoverStability(now)
	r.teachingSession(tick, now)
	r.updateStats()

	stats := r.Stats()
	eventCounts := make(map[string]int)
	for _, e := range r.Pack.Events(0) {
		eventCounts[e.Category]++
	}

	slog.Info("daily report",
		"tick", tick,
		"time", SimTime(tick),
		"pets", stats.Pets,
		"avg_friendship", stats.AvgFriendship,
		"best_friends", stats.BestFriends,
		"rivalries", stats.Rivalries,
		"jealous", stats.JealousPets,
		"stability", stats.Stability,
		"tricks_mastered", stats.TricksMastered,
		"events_social", eventCounts["social"],
		"events_jealousy", eventCounts["jealousy"],
		"events_hierarchy", eventCounts["hierarchy"],
		"events_teaching", eventCounts["teaching"],
	)
}

// socialEncounter pairs two pets for an everyday interaction. Pets that
// want company initiate; pairing rotates deterministically so every pet
// gets a turn.
func (r *Runner) socialEncounter(tick uint64) {
	ids := r.Pack.PetIDs()
	if len(ids) < 2 {
		return
	}
	now := r.SimNow(tick)
	step := tick / encounterEvery

	// Pets low on social energy (or without a friend) initiate first.
	var wanters []string
	for _, id := range ids {
		if want, err := r.Pack.WantsSocialInteraction(id); err == nil && want {
			wanters = append(wanters, id)
		}
	}
	initiators := wanters
	if len(initiators) == 0 {
		initiators = ids
	}

	a := initiators[int(step%uint64(len(initiators)))]
	bIdx := int((step*3 + 1) % uint64(len(ids)))
	b := ids[bIdx]
	if b == a {
		b = ids[(bIdx+1)%len(ids)]
	}

	if _, _, err := r.Pack.Meet(a, b, now); err != nil {
		return
	}

	kind := friendlyKinds[int(step%uint64(len(friendlyKinds)))]
	success := r.rng.Float64() < 0.8
	if _, _, err := r.Pack.Interact(a, b, kind, success, now); err != nil {
		slog.Error("interaction failed", "a", a, "b", b, "error", err)
	}
}

// resourceContest has a lower-priority pet contest a resource against the
// pet just above it in the feeding order.
func (r *Runner) resourceContest(hour uint64, now time.Time) {
	priority := r.Pack.ResourcePriority()
	if len(priority) < 2 {
		return
	}
	round := hour / 3
	i := int(round % uint64(len(priority)-1))
	challenger := priority[i+1]
	holder := priority[i]
	resource := contestResources[int(round%uint64(len(contestResources)))]

	if _, err := r.Pack.Compete(challenger, holder, resource, now); err != nil {
		slog.Error("competition failed", "challenger", challenger, "holder", holder, "error", err)
	}
}

// ladderChallenge has the bottom-ranked pet test the one above it.
func (r *Runner) ladderChallenge(hour uint64, now time.Time) {
	members := r.Pack.HierarchyMembers()
	if len(members) < 2 {
		return
	}
	challenger := members[len(members)-1].ID
	target := members[len(members)-2].ID
	ctx := challengeContexts[int((hour/8)%uint64(len(challengeContexts)))]

	if _, err := r.Pack.Challenge(challenger, target, ctx, now); err != nil {
		slog.Error("challenge failed", "challenger", challenger, "target", target, "error", err)
	}
}

// teachingSession runs the daily trick lesson. The day's student learns its
// weakest teachable trick from the best teacher, or just watches when no
// pack mate is qualified to teach.
func (r *Runner) teachingSession(tick uint64, now time.Time) {
	ids := r.Pack.PetIDs()
	if len(ids) < 2 {
		return
	}
	day := tick / TicksPerDay
	studentID := ids[int(day%uint64(len(ids)))]
	student := r.Index[studentID]
	if student == nil {
		return
	}

	trick, teachable := r.pickLesson(studentID, ids)
	if trick == "" {
		return
	}

	if teachable {
		proficiencies := make(map[string]float64)
		for _, id := range ids {
			if id == studentID {
				continue
			}
			proficiencies[id] = r.Index[id].Proficiency(trick)
		}

		teacherID, ok, err := r.Pack.RecommendTeacher(studentID, trick, proficiencies)
		if err != nil || !ok {
			return
		}

		out, err := r.Pack.Teach(teacherID, studentID, trick,
			r.Index[teacherID].Proficiency(trick), student.Proficiency(trick), now)
		if err != nil {
			slog.Error("lesson failed", "teacher", teacherID, "student", studentID, "error", err)
			return
		}
		if out.Success {
			student.GainProficiency(trick, out.StudentGain)
		}
		return
	}

	// Nobody has mastered anything the student lacks, so it watches the
	// best performer instead.
	performerID, prof := r.bestPerformer(trick, studentID, ids)
	if performerID == "" {
		return
	}
	out, err := r.Pack.ObserveTrick(studentID, performerID, trick, prof, now)
	if err != nil {
		return
	}
	if out.Learned {
		student.GainProficiency(trick, out.Gain)
	}
}

// pickLesson chooses the trick the student most needs. Tricks a pack mate
// has mastered come first; otherwise any trick a pack mate performs better
// is worth watching. Returns the trick and whether it can be taught.
func (r *Runner) pickLesson(studentID string, ids []string) (string, bool) {
	student := r.Index[studentID]

	mastered := make(map[string]bool)
	performed := make(map[string]float64)
	for _, id := range ids {
		if id == studentID {
			continue
		}
		for trick, prof := range r.Index[id].Tricks {
			if social.CanTeach(prof) {
				mastered[trick] = true
			}
			if prof > performed[trick] {
				performed[trick] = prof
			}
		}
	}

	pick := func(pool map[string]bool) string {
		best := ""
		bestProf := 0.0
		tricks := make([]string, 0, len(pool))
		for trick := range pool {
			tricks = append(tricks, trick)
		}
		sort.Strings(tricks)
		for _, trick := range tricks {
			p := student.Proficiency(trick)
			if social.CanTeach(p) {
				continue // already mastered, nothing to gain
			}
			if best == "" || p < bestProf {
				best = trick
				bestProf = p
			}
		}
		return best
	}

	if trick := pick(mastered); trick != "" {
		return trick, true
	}

	watchable := make(map[string]bool)
	for trick, prof := range performed {
		if prof > student.Proficiency(trick) {
			watchable[trick] = true
		}
	}
	return pick(watchable), false
}

// bestPerformer finds the pack mate with the highest proficiency in a trick.
func (r *Runner) bestPerformer(trick, studentID string, ids []string) (string, float64) {
	best := ""
	bestProf := 0.0
	for _, id := range ids {
		if id == studentID {
			continue
		}
		if p := r.Index[id].Proficiency(trick); p > bestProf {
			best = id
			bestProf = p
		}
	}
	return best, bestProf
}

func (r *Runner) updateStats() {
	ids := r.Pack.PetIDs()

	stats := PackStats{
		Pets:      len(ids),
		Stability: r.Pack.Stability(),
	}

	totalFriendship := 0.0
	pairs := 0
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if rel, ok := r.Pack.Relationship(ids[i], ids[j]); ok {
				totalFriendship += rel.Score()
				pairs++
			}
		}
	}
	if pairs > 0 {
		stats.AvgFriendship = totalFriendship / float64(pairs)
	}

	for _, id := range ids {
		if _, ok := r.Pack.BestFriendOf(id); ok {
			stats.BestFriends++
		}
		if jealous, err := r.Pack.IsJealous(id); err == nil && jealous {
			stats.JealousPets++
		}
		if snap, err := r.Pack.JealousySnapshotOf(id); err == nil {
			stats.Rivalries += len(snap.Rivalries)
		}
	}

	for _, p := range r.Pets {
		stats.TricksKnown += len(p.Tricks)
		for _, prof := range p.Tricks {
			if social.CanTeach(prof) {
				stats.TricksMastered++
			}
		}
	}

	r.mu.Lock()
	r.stats = stats
	r.mu.Unlock()
}
