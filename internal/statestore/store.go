// Package statestore persists pack world state. Two backends share one
// interface: an embedded SQLite file for the default single-process setup
// and Redis for deployments that already run one.
package statestore

import (
	"context"
	"errors"
	"time"

	"github.com/avaley/petpack/internal/pets"
	"github.com/avaley/petpack/internal/social"
)

// ErrNoWorld is returned by LoadWorld when nothing has been saved yet.
var ErrNoWorld = errors.New("no saved world")

// WorldState is everything one save captures: the pets themselves, the
// social engine's snapshot, and where the simulation clock stood. Epoch
// anchors the sim calendar so pet ages read the same after a restart.
type WorldState struct {
	SavedAt time.Time           `json:"saved_at"`
	Epoch   time.Time           `json:"epoch"`
	Tick    int64               `json:"tick"`
	Pets    []*pets.Pet         `json:"pets"`
	Social  social.PackSnapshot `json:"social"`
}

// Store persists and recalls world state.
type Store interface {
	SaveWorld(ctx context.Context, ws *WorldState) error
	LoadWorld(ctx context.Context) (*WorldState, error)
	HasWorld(ctx context.Context) (bool, error)
	Close() error
}
