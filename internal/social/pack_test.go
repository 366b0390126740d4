package social

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avaley/petpack/internal/pets"
)

func addNeutralPet(t *testing.T, p *Pack, id, name string, now time.Time) {
	t.Helper()
	require.NoError(t, p.AddPet(id, name, neutralTraits(), 400, pets.SizeMedium, now))
}

func TestPack_AddRemove(t *testing.T) {
	p := NewPack(&seqSource{})
	now := testTime()

	require.NoError(t, p.AddPet("ada", "Ada", neutralTraits(), 1000, pets.SizeLarge, now))
	assert.ErrorIs(t, p.AddPet("ada", "Ada", neutralTraits(), 1000, pets.SizeLarge, now), ErrAlreadyMember)
	assert.True(t, p.HasPet("ada"))
	assert.Equal(t, "Ada", p.PetName("ada"))
	assert.Equal(t, "ghost", p.PetName("ghost"), "unknown ids fall back to themselves")

	rank, ok := p.RankOf("ada")
	require.True(t, ok)
	assert.Equal(t, RankTop, rank)

	addNeutralPet(t, p, "bo", "Bo", now)
	assert.Equal(t, []string{"ada", "bo"}, p.PetIDs())

	require.NoError(t, p.RemovePet("bo", now.Add(time.Hour)))
	assert.False(t, p.HasPet("bo"))
	assert.ErrorIs(t, p.RemovePet("bo", now), ErrNotMember)

	events := p.Events(0)
	require.Len(t, events, 3)
	assert.Equal(t, "pack", events[0].Category)
	assert.Contains(t, events[0].Description, "Ada joined the pack")
	assert.Contains(t, events[2].Description, "Bo left the pack")
}

func TestPack_MeetAndInteract(t *testing.T) {
	p := NewPack(&seqSource{vals: []float64{0.5}})
	now := testTime()
	addNeutralPet(t, p, "ada", "Ada", now)
	addNeutralPet(t, p, "bo", "Bo", now)

	_, _, err := p.Interact("ada", "bo", InteractPlayTogether, true, now)
	assert.ErrorIs(t, err, ErrNoRelationship, "interaction requires an introduction")

	ra, rb, err := p.Meet("ada", "bo", now)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, ra.InitialImpression, 1e-9)
	assert.InDelta(t, 10.0, rb.InitialImpression, 1e-9)

	ra2, _, err := p.Meet("ada", "bo", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ra2.AlreadyKnow)

	ia, ib, err := p.Interact("ada", "bo", InteractPlayTogether, true, now.Add(time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 22.0, ia.NewFriendship, 1e-9)
	assert.InDelta(t, 22.0, ib.NewFriendship, 1e-9, "interactions land on both ledgers")

	rel, ok := p.Relationship("bo", "ada")
	require.True(t, ok)
	assert.InDelta(t, 22.0, rel.Score(), 1e-9)

	_, _, err = p.Meet("ada", "ghost", now)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestPack_GiveAttention(t *testing.T) {
	p := NewPack(&seqSource{})
	now := testTime()
	addNeutralPet(t, p, "ada", "Ada", now)
	addNeutralPet(t, p, "bo", "Bo", now)
	addNeutralPet(t, p, "cleo", "Cleo", now)

	// Seed a grudge so the favored pet has something to soothe.
	res, err := p.WitnessAttention("ada", "bo", AttentionFeeding, 2.0, now)
	require.NoError(t, err)
	require.InDelta(t, 9.0, res.Intensity, 1e-9)

	reactions, err := p.GiveAttention("ada", AttentionPetting, 2.0, now.Add(time.Minute))
	require.NoError(t, err)

	require.Len(t, reactions, 2, "everyone but the favored pet reacts")
	assert.Equal(t, "ada", reactions[0].RivalID)
	assert.Equal(t, "ada", reactions[1].RivalID)
	assert.InDelta(t, 6.6, reactions[0].Intensity, 1e-9)
	assert.InDelta(t, 6.6, reactions[1].Intensity, 1e-9)

	snap, err := p.JealousySnapshotOf("ada")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, snap.Records["bo"], 1e-9, "receiving attention soothes existing records")

	_, err = p.GiveAttention("ghost", AttentionPetting, 1.0, now)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestPack_Challenge(t *testing.T) {
	p := NewPack(&seqSource{vals: []float64{0.5, 0.1}})
	now := testTime()
	strong := neutralTraits()
	strong.Confidence = 0.9
	weak := neutralTraits()
	weak.Confidence = 0.2
	require.NoError(t, p.AddPet("ada", "Ada", strong, 1000, pets.SizeLarge, now)) // 77.5
	require.NoError(t, p.AddPet("bo", "Bo", weak, 400, pets.SizeSmall, now))      // 40.0

	out, err := p.Challenge("bo", "ada", ContextToy, now)
	require.NoError(t, err)
	assert.True(t, out.ChallengerWon)
	assert.InDelta(t, 0.3125, out.Probability, 1e-9)
	assert.False(t, out.RanksChanged, "a single upset does not flip a two-pet order")

	events := p.Events(0)
	last := events[len(events)-1]
	assert.Equal(t, "dominance", last.Category)
	assert.Equal(t, "Bo challenged Ada over toy and won", last.Description)

	_, err = p.Challenge("ada", "ada", ContextToy, now)
	assert.ErrorIs(t, err, ErrSelfChallenge)
}

func TestPack_Compete_Concession(t *testing.T) {
	rng := &seqSource{vals: []float64{0.99}}
	p := NewPack(rng)
	now := testTime()
	strong := neutralTraits()
	strong.Confidence = 0.9
	timid := neutralTraits()
	timid.Confidence = 0.0
	require.NoError(t, p.AddPet("ada", "Ada", strong, 1000, pets.SizeLarge, now)) // 77.5
	require.NoError(t, p.AddPet("dot", "Dot", timid, 100, pets.SizeSmall, now))   // 20.0

	res, err := p.Compete("dot", "ada", ResourceFood, now)
	require.NoError(t, err)

	assert.True(t, res.Conceded)
	assert.Equal(t, "ada", res.WinnerID)
	assert.Equal(t, "dot", res.LoserID)
	assert.Zero(t, res.Probability)
	assert.Zero(t, rng.calls, "a concession needs no randomness")

	snap, err := p.JealousySnapshotOf("dot")
	require.NoError(t, err)
	assert.Empty(t, snap.Records, "yielding without a contest breeds no jealousy")
}

func TestPack_Compete_LossJealousyAndRivalry(t *testing.T) {
	// Two even pets: meeting burns two draws, then each contest one. The
	// initiator keeps losing on 0.9 draws.
	p := NewPack(&seqSource{vals: []float64{0.5, 0.5, 0.9}})
	now := testTime()
	addNeutralPet(t, p, "ada", "Ada", now)
	addNeutralPet(t, p, "bo", "Bo", now)
	_, _, err := p.Meet("ada", "bo", now)
	require.NoError(t, err)

	res, err := p.Compete("ada", "bo", ResourceToy, now)
	require.NoError(t, err)
	assert.Equal(t, "bo", res.WinnerID)
	assert.False(t, res.Conceded)
	assert.InDelta(t, 0.5, res.Probability, 1e-9)
	assert.InDelta(t, 15.0, res.LoserJealousy, 1e-9)
	assert.False(t, res.RivalryFormed)

	// Becoming friends halves what a loss costs.
	p.ApplyBonding("ada", "bo", 60, now)
	res, err = p.Compete("ada", "bo", ResourceToy, now.Add(time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 0.545, res.Probability, 1e-9, "existing jealousy raises the drive to win")
	assert.InDelta(t, 22.5, res.LoserJealousy, 1e-9)

	res, err = p.Compete("ada", "bo", ResourceToy, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, res.RivalryFormed, "the third loss inside a week hardens into rivalry")

	snap, err := p.JealousySnapshotOf("ada")
	require.NoError(t, err)
	assert.Equal(t, []string{"bo"}, snap.Rivalries)

	events := p.Events(0)
	last := events[len(events)-1]
	assert.Equal(t, "Ada now counts Bo as a rival", last.Description)
}

func TestPack_Teach_Flow(t *testing.T) {
	p := NewPack(&seqSource{vals: []float64{0.5, 0.5, 0.1}})
	now := testTime()
	master := neutralTraits()
	master.Confidence = 0.9
	pup := neutralTraits()
	pup.Confidence = 0.1
	require.NoError(t, p.AddPet("ada", "Ada", master, 1000, pets.SizeLarge, now)) // top
	require.NoError(t, p.AddPet("bo", "Bo", pup, 100, pets.SizeSmall, now))       // bottom

	_, _, err := p.Meet("ada", "bo", now)
	require.NoError(t, err)
	p.ApplyBonding("ada", "bo", 50, now) // both sides now at 60

	out, err := p.Teach("ada", "bo", "spin", 0.9, 0.0, now.Add(time.Hour))
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.InDelta(t, 0.92, out.Probability, 1e-9, "friendship, rank, and a beginner student all help")
	assert.InDelta(t, 0.21, out.StudentGain, 1e-9)
	assert.InDelta(t, 3.0, out.BondingGain, 1e-9)

	snap, err := p.TeachingSnapshotOf("bo")
	require.NoError(t, err)
	assert.Equal(t, "ada", snap.LearnedFrom["spin"], "the student remembers who taught it")

	rel, ok := p.Relationship("bo", "ada")
	require.True(t, ok)
	assert.InDelta(t, 63.0, rel.Score(), 1e-9, "the lesson's bond lands on both ledgers")
	rel, ok = p.Relationship("ada", "bo")
	require.True(t, ok)
	assert.InDelta(t, 63.0, rel.Score(), 1e-9)

	events := p.Events(0)
	last := events[len(events)-1]
	assert.Equal(t, "teaching", last.Category)
	assert.Equal(t, "Ada taught spin to Bo", last.Description)
}

func TestPack_Teach_BelowMastery(t *testing.T) {
	p := NewPack(&seqSource{vals: []float64{0.5}})
	now := testTime()
	addNeutralPet(t, p, "ada", "Ada", now)
	addNeutralPet(t, p, "bo", "Bo", now)
	_, _, err := p.Meet("ada", "bo", now)
	require.NoError(t, err)

	_, err = p.Teach("ada", "bo", "spin", 0.5, 0.0, now)
	assert.ErrorIs(t, err, ErrBelowMastery)

	rel, ok := p.Relationship("bo", "ada")
	require.True(t, ok)
	assert.InDelta(t, 10.0, rel.Score(), 1e-9, "a refused lesson bonds nothing")
}

func TestPack_Teach_RankRead(t *testing.T) {
	// Freshly met, no bonding: probability shows the rank and beginner
	// bonuses plus the thin just-met friendship.
	p := NewPack(&seqSource{vals: []float64{0.5, 0.5, 0.99}})
	now := testTime()
	master := neutralTraits()
	master.Confidence = 0.9
	pup := neutralTraits()
	pup.Confidence = 0.1
	require.NoError(t, p.AddPet("ada", "Ada", master, 1000, pets.SizeLarge, now))
	require.NoError(t, p.AddPet("bo", "Bo", pup, 100, pets.SizeSmall, now))
	_, _, err := p.Meet("ada", "bo", now)
	require.NoError(t, err)

	out, err := p.Teach("ada", "bo", "spin", 0.9, 0.0, now)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.InDelta(t, 0.82, out.Probability, 1e-9)
	assert.InDelta(t, 1.0, out.BondingGain, 1e-9)
}

func TestPack_ObserveTrick(t *testing.T) {
	p := NewPack(&seqSource{vals: []float64{0.04}})
	now := testTime()
	addNeutralPet(t, p, "ada", "Ada", now)
	addNeutralPet(t, p, "bo", "Bo", now)

	out, err := p.ObserveTrick("bo", "ada", "spin", 1.0, now)
	require.NoError(t, err)
	assert.True(t, out.Learned)
	assert.InDelta(t, 0.05, out.Gain, 1e-9)

	events := p.Events(0)
	last := events[len(events)-1]
	assert.Equal(t, "Bo picked up spin just from watching Ada", last.Description)

	_, err = p.ObserveTrick("ghost", "ada", "spin", 1.0, now)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestPack_RecommendTeacher(t *testing.T) {
	p := NewPack(&seqSource{})
	now := testTime()
	addNeutralPet(t, p, "ada", "Ada", now)
	addNeutralPet(t, p, "bo", "Bo", now)
	addNeutralPet(t, p, "cleo", "Cleo", now)

	id, found, err := p.RecommendTeacher("bo", "spin", map[string]float64{
		"ada":   0.9,
		"cleo":  0.5, // below mastery, filtered
		"bo":    1.0, // the student is never its own teacher
		"ghost": 1.0, // not a member
	})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ada", id)

	_, found, err = p.RecommendTeacher("bo", "spin", map[string]float64{"cleo": 0.5})
	require.NoError(t, err)
	assert.False(t, found, "no mastered candidates means no recommendation")

	_, _, err = p.RecommendTeacher("ghost", "spin", nil)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestPack_DecayAndStability(t *testing.T) {
	p := NewPack(&seqSource{})
	now := testTime()
	addNeutralPet(t, p, "ada", "Ada", now)
	addNeutralPet(t, p, "bo", "Bo", now)

	_, err := p.WitnessAttention("ada", "bo", AttentionFeeding, 2.0, now) // 9
	require.NoError(t, err)

	p.DecayJealousy(2)
	snap, err := p.JealousySnapshotOf("ada")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, snap.Records["bo"], 1e-9)

	jealous, err := p.IsJealous("ada")
	require.NoError(t, err)
	assert.False(t, jealous)

	p.RecoverStability(now)
	assert.InDelta(t, 1.0, p.Stability(), 1e-9)
}

func TestPack_Events_Bounded(t *testing.T) {
	p := NewPack(&seqSource{})
	now := testTime()
	for i := 0; i < 250; i++ {
		p.EmitEvent("care", "the owner refilled the water bowl", now.Add(time.Duration(i)*time.Minute))
	}

	all := p.Events(0)
	assert.Len(t, all, 200, "the log keeps only the most recent entries")
	assert.Equal(t, now.Add(50*time.Minute), all[0].Time)
	assert.Equal(t, now.Add(249*time.Minute), all[len(all)-1].Time)

	recent := p.Events(5)
	require.Len(t, recent, 5)
	assert.Equal(t, now.Add(245*time.Minute), recent[0].Time, "oldest first within the window")
}

func TestPack_SnapshotRestore_RoundTrip(t *testing.T) {
	p := NewPack(&seqSource{vals: []float64{0.5, 0.5, 0.3, 0.9, 0.9, 0.9, 0.5}})
	now := testTime()
	strong := neutralTraits()
	strong.Confidence = 0.9
	require.NoError(t, p.AddPet("ada", "Ada", strong, 1000, pets.SizeLarge, now))
	addNeutralPet(t, p, "bo", "Bo", now)
	addNeutralPet(t, p, "cleo", "Cleo", now)

	_, _, err := p.Meet("ada", "bo", now)
	require.NoError(t, err)
	_, _, err = p.Interact("ada", "bo", InteractShareFood, true, now.Add(time.Hour))
	require.NoError(t, err)
	_, err = p.Challenge("bo", "ada", ContextFood, now.Add(2*time.Hour))
	require.NoError(t, err)
	_, err = p.Compete("cleo", "ada", ResourceToy, now.Add(3*time.Hour))
	require.NoError(t, err)
	_, err = p.GiveAttention("ada", AttentionCuddling, 1.5, now.Add(4*time.Hour))
	require.NoError(t, err)
	_, err = p.Teach("ada", "bo", "spin", 1.0, 0.2, now.Add(5*time.Hour))
	require.NoError(t, err)

	snap := p.Snapshot()

	restored := NewPack(&seqSource{})
	restored.Restore(snap)
	assert.Equal(t, snap, restored.Snapshot())
	assert.Empty(t, restored.Events(0), "the event log is history, not state")

	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	var decoded PackSnapshot
	require.NoError(t, json.Unmarshal(raw, &decoded))
	fromJSON := NewPack(&seqSource{})
	fromJSON.Restore(decoded)
	assert.Equal(t, snap, fromJSON.Snapshot())
}
