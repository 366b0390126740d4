package social

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTeach(t *testing.T) {
	assert.True(t, CanTeach(0.8))
	assert.True(t, CanTeach(1.0))
	assert.False(t, CanTeach(0.79))
	assert.False(t, CanTeach(0.0))
}

func TestTeachingProfile_Teach_RequiresMastery(t *testing.T) {
	rng := &seqSource{vals: []float64{0.0}}
	tp := NewTeachingProfile("ada", rng)

	// Even perfect conditions cannot buy a lesson from a non-master.
	out, err := tp.Teach("bo", "spin", 0.5, 0.0, 100, true)
	assert.ErrorIs(t, err, ErrBelowMastery)
	assert.Zero(t, out)
	assert.Zero(t, rng.calls, "the gate sits before any draw")
	assert.Zero(t, tp.Skill())
	assert.Zero(t, tp.TimesTaught("spin"))
}

func TestTeachingProfile_Teach_BaseSuccess(t *testing.T) {
	rng := &seqSource{vals: []float64{0.5}}
	tp := NewTeachingProfile("ada", rng)

	out, err := tp.Teach("bo", "spin", 0.8, 0.5, 0, false)
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.InDelta(t, 0.6, out.Probability, 1e-9)
	assert.InDelta(t, 0.15, out.StudentGain, 1e-9)
	assert.InDelta(t, 3.0, out.BondingGain, 1e-9)
	assert.InDelta(t, 0.02, out.TeacherSkill, 1e-9, "skill grows on success")
	assert.Equal(t, 1, tp.TimesTaught("spin"))
}

func TestTeachingProfile_Teach_Probability(t *testing.T) {
	probFor := func(skillSnap float64, studentProf, friendship float64, outranks bool) float64 {
		tp := NewTeachingProfile("ada", &seqSource{vals: []float64{0.99}})
		tp.Restore(TeachingSnapshot{OwnerID: "ada", Skill: skillSnap})
		out, err := tp.Teach("bo", "spin", 0.8, studentProf, friendship, outranks)
		require.NoError(t, err)
		return out.Probability
	}

	assert.InDelta(t, 0.6, probFor(0, 0.5, 0, false), 1e-9)
	assert.InDelta(t, 0.7, probFor(0, 0.5, 0, true), 1e-9, "rank bonus")
	assert.InDelta(t, 0.7, probFor(0, 0.2, 0, false), 1e-9, "beginner bonus")
	assert.InDelta(t, 0.5, probFor(0, 0.8, 0, false), 1e-9, "plateau penalty")
	assert.InDelta(t, 0.8, probFor(0, 0.5, 100, false), 1e-9, "friendship helps")
	assert.InDelta(t, 0.4, probFor(0, 0.5, -100, false), 1e-9, "enmity hurts")
	assert.InDelta(t, 1.0, probFor(1, 0.2, 100, true), 1e-9, "stacked bonuses clamp")
}

func TestTeachingProfile_Teach_GainScaling(t *testing.T) {
	gainFor := func(teacherProf, friendship float64) float64 {
		tp := NewTeachingProfile("ada", &seqSource{vals: []float64{0.0}})
		out, err := tp.Teach("bo", "spin", teacherProf, 0.5, friendship, false)
		require.NoError(t, err)
		require.True(t, out.Success)
		return out.StudentGain
	}

	assert.InDelta(t, 0.15, gainFor(0.8, 0), 1e-9)
	assert.InDelta(t, 0.1875, gainFor(0.9, 0), 1e-9)
	assert.InDelta(t, 0.225, gainFor(1.0, 0), 1e-9, "deep mastery teaches faster")
	assert.InDelta(t, 0.27, gainFor(1.0, 100), 1e-9)
	assert.InDelta(t, 0.225, gainFor(1.0, -80), 1e-9, "negative friendship never shrinks the gain")
}

func TestTeachingProfile_Teach_Failure(t *testing.T) {
	rng := &seqSource{vals: []float64{0.99}}
	tp := NewTeachingProfile("ada", rng)

	out, err := tp.Teach("bo", "spin", 0.8, 0.5, 0, false)
	require.NoError(t, err)

	assert.False(t, out.Success)
	assert.Zero(t, out.StudentGain)
	assert.InDelta(t, 1.0, out.BondingGain, 1e-9, "a failed lesson still bonds a little")
	assert.Zero(t, tp.Skill())
	assert.Zero(t, tp.TimesTaught("spin"))
}

func TestTeachingProfile_Teach_SkillAccumulates(t *testing.T) {
	rng := &seqSource{vals: []float64{0.0}}
	tp := NewTeachingProfile("ada", rng)

	for i := 0; i < 2; i++ {
		_, err := tp.Teach("bo", "spin", 0.8, 0.0, 0, false)
		require.NoError(t, err)
	}
	assert.InDelta(t, 0.04, tp.Skill(), 1e-9)
	assert.Equal(t, 2, tp.TimesTaught("spin"))
}

func TestTeachingProfile_LearnFromPeer(t *testing.T) {
	rng := &seqSource{vals: []float64{0.4}}
	tp := NewTeachingProfile("bo", rng)

	out := tp.LearnFromPeer("ada", "spin", 1.0)
	assert.True(t, out.Learned)
	assert.Zero(t, rng.calls, "full quality needs no draw")
	id, ok := tp.LearnedFrom("spin")
	require.True(t, ok)
	assert.Equal(t, "ada", id)

	// A later teacher never overwrites the first credit.
	out = tp.LearnFromPeer("cleo", "spin", 1.0)
	assert.True(t, out.Learned)
	id, _ = tp.LearnedFrom("spin")
	assert.Equal(t, "ada", id)

	out = tp.LearnFromPeer("ada", "roll_over", 0.5) // draw 0.4
	assert.True(t, out.Learned)

	out = tp.LearnFromPeer("ada", "fetch", 0.0)
	assert.False(t, out.Learned)
	_, ok = tp.LearnedFrom("fetch")
	assert.False(t, ok)
}

func TestTeachingProfile_Observe(t *testing.T) {
	t.Run("eventually learns", func(t *testing.T) {
		tp := NewTeachingProfile("bo", &seqSource{vals: []float64{0.28}})
		var learnedAt int
		for i := 1; i <= 6; i++ {
			out := tp.Observe("spin", 1.0)
			assert.Equal(t, i, out.Observations)
			if out.Learned {
				learnedAt = i
				assert.InDelta(t, 0.05, out.Gain, 1e-9)
				break
			}
			assert.Zero(t, out.Gain)
		}
		assert.Equal(t, 6, learnedAt, "chance caps at 0.3 after six viewings")
	})

	t.Run("first glance can stick", func(t *testing.T) {
		tp := NewTeachingProfile("bo", &seqSource{vals: []float64{0.04}})
		out := tp.Observe("spin", 1.0)
		assert.True(t, out.Learned)
	})

	t.Run("sloppy performance teaches nothing", func(t *testing.T) {
		tp := NewTeachingProfile("bo", &seqSource{vals: []float64{0.0}})
		for i := 0; i < 10; i++ {
			out := tp.Observe("spin", 0.0)
			assert.False(t, out.Learned)
		}
		assert.Equal(t, 10, tp.Observations("spin"))
	})
}

func TestRecommendTeacher(t *testing.T) {
	id, ok := RecommendTeacher(nil)
	assert.False(t, ok)
	assert.Empty(t, id)

	// Proficiency alone loses to a modest master with skill, friendship,
	// and rank on their side.
	id, ok = RecommendTeacher([]TeacherCandidate{
		{ID: "ada", Proficiency: 0.9},
		{ID: "bo", Proficiency: 0.85, TeachingSkill: 0.5, Friendship: 50, HigherRank: true},
	})
	require.True(t, ok)
	assert.Equal(t, "bo", id)

	// Identical scores break toward the smaller identity.
	id, ok = RecommendTeacher([]TeacherCandidate{
		{ID: "zed", Proficiency: 0.9},
		{ID: "ada", Proficiency: 0.9},
	})
	require.True(t, ok)
	assert.Equal(t, "ada", id)
}

func TestTeachingProfile_SnapshotRestore_RoundTrip(t *testing.T) {
	tp := NewTeachingProfile("ada", &seqSource{vals: []float64{0.0}})
	_, err := tp.Teach("bo", "spin", 0.9, 0.2, 20, false)
	require.NoError(t, err)
	tp.LearnFromPeer("cleo", "fetch", 1.0)
	tp.Observe("roll_over", 0.9)

	snap := tp.Snapshot()

	restored := NewTeachingProfile("ada", &seqSource{})
	restored.Restore(snap)
	assert.Equal(t, snap, restored.Snapshot())

	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	var decoded TeachingSnapshot
	require.NoError(t, json.Unmarshal(raw, &decoded))
	fromJSON := NewTeachingProfile("ada", &seqSource{})
	fromJSON.Restore(decoded)
	assert.Equal(t, snap, fromJSON.Snapshot())
}

func TestTeachingProfile_Restore_Defaults(t *testing.T) {
	tp := NewTeachingProfile("ada", &seqSource{})
	tp.Restore(TeachingSnapshot{
		OwnerID: "ada",
		Skill:   3.5,
		Taught:  map[string]int{"spin": 2, "fetch": 0, "sit": -1},
		LearnedFrom: map[string]string{
			"spin": "bo",
			"":     "bo",
			"sit":  "",
		},
		Observed: map[string]int{"roll_over": 4, "speak": 0},
	})

	assert.InDelta(t, 1.0, tp.Skill(), 1e-9, "skill clamps to 0..1")
	assert.Equal(t, 2, tp.TimesTaught("spin"))
	assert.Zero(t, tp.TimesTaught("fetch"), "non-positive counts are dropped")
	assert.Zero(t, tp.TimesTaught("sit"))

	id, ok := tp.LearnedFrom("spin")
	require.True(t, ok)
	assert.Equal(t, "bo", id)
	_, ok = tp.LearnedFrom("sit")
	assert.False(t, ok, "blank teacher credits are dropped")

	assert.Equal(t, 4, tp.Observations("roll_over"))
	assert.Zero(t, tp.Observations("speak"))
}
