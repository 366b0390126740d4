package statestore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avaley/petpack/internal/entropy"
	"github.com/avaley/petpack/internal/pets"
	"github.com/avaley/petpack/internal/social"
)

// fixtureWorld builds a small lived-in world: two pets, a friendship, a
// challenge, and some witnessed attention, so every snapshot section has
// content to survive the trip.
func fixtureWorld(t *testing.T) *WorldState {
	t.Helper()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	herd := []*pets.Pet{
		{
			ID: "p1", Name: "Ada", Species: "dog", Size: pets.SizeLarge,
			BornAt: now.AddDate(-3, 0, 0),
			Traits: pets.Traits{
				Friendliness: 70, Energy: 55, Sociability: 60,
				Possessiveness: 0.4, Competitiveness: 0.6, Confidence: 0.8,
			},
			Tricks: map[string]float64{"sit": 0.9, "spin": 0.4},
		},
		{
			ID: "p2", Name: "Bo", Species: "cat", Size: pets.SizeSmall,
			BornAt: now.AddDate(0, -10, 0),
			Traits: pets.Traits{
				Friendliness: 45, Energy: 70, Sociability: 40,
				Possessiveness: 0.7, Competitiveness: 0.5, Confidence: 0.3,
			},
			Tricks: map[string]float64{"high_five": 0.85},
		},
	}

	pack := social.NewPack(entropy.NewSeeded(7))
	for _, p := range herd {
		require.NoError(t, pack.AddPet(p.ID, p.Name, p.Traits, p.AgeDays(now), p.Size, now))
	}
	_, _, err := pack.Meet("p1", "p2", now)
	require.NoError(t, err)
	_, _, err = pack.Interact("p1", "p2", social.InteractPlayTogether, true, now.Add(time.Hour))
	require.NoError(t, err)
	_, err = pack.Challenge("p2", "p1", social.ContextFood, now.Add(2*time.Hour))
	require.NoError(t, err)
	_, err = pack.GiveAttention("p1", social.AttentionFeeding, 1.5, now.Add(3*time.Hour))
	require.NoError(t, err)

	return &WorldState{
		SavedAt: now.Add(4 * time.Hour),
		Epoch:   now,
		Tick:    96,
		Pets:    herd,
		Social:  pack.Snapshot(),
	}
}

// assertWorldEqual compares two world states. The social snapshot is
// compared through its JSON form so an empty map saved and a nil map
// loaded count as the same thing.
func assertWorldEqual(t *testing.T, want, got *WorldState) {
	t.Helper()
	assert.True(t, want.SavedAt.Equal(got.SavedAt),
		"saved_at: want %v, got %v", want.SavedAt, got.SavedAt)
	assert.True(t, want.Epoch.Equal(got.Epoch),
		"epoch: want %v, got %v", want.Epoch, got.Epoch)
	assert.Equal(t, want.Tick, got.Tick)
	assert.Equal(t, want.Pets, got.Pets)

	wantSocial, err := json.Marshal(want.Social)
	require.NoError(t, err)
	gotSocial, err := json.Marshal(got.Social)
	require.NoError(t, err)
	assert.JSONEq(t, string(wantSocial), string(gotSocial))
}
