// Pet spawning — generates a starting pack with species-weighted
// temperaments, sizes, ages, and a few starter tricks.
package pets

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// speciesProfile holds the trait tendencies a species spawns around.
type speciesProfile struct {
	name            string
	sizes           []SizeClass
	friendliness    float64
	energy          float64
	sociability     float64
	possessiveness  float64
	competitiveness float64
	confidence      float64
}

var speciesProfiles = []speciesProfile{
	{"dog", []SizeClass{SizeMedium, SizeLarge}, 75, 70, 80, 0.5, 0.6, 0.7},
	{"cat", []SizeClass{SizeSmall, SizeMedium}, 50, 55, 40, 0.7, 0.5, 0.8},
	{"rabbit", []SizeClass{SizeSmall}, 60, 75, 55, 0.4, 0.3, 0.35},
	{"bird", []SizeClass{SizeSmall}, 65, 60, 75, 0.45, 0.4, 0.5},
	{"ferret", []SizeClass{SizeSmall}, 55, 85, 60, 0.6, 0.7, 0.6},
}

// starterTricks is the pool pets may already half-know when spawned.
var starterTricks = []string{
	"sit", "spin", "roll_over", "high_five", "fetch",
	"play_dead", "shake", "speak",
}

// Name pool for procedural generation.
var petNames = []string{
	"Biscuit", "Mochi", "Ziggy", "Pepper", "Waffle", "Clover", "Pixel",
	"Noodle", "Maple", "Tofu", "Comet", "Juniper", "Pickle", "Sprout",
	"Echo", "Bean", "Truffle", "Nimbus", "Pudding", "Sage", "Ember",
	"Dumpling", "Fig", "Willow", "Cricket", "Mango", "Olive", "Pebble",
	"Quill", "Rocket", "Sesame", "Tundra", "Umber", "Violet", "Wasabi",
}

// Spawner creates pets for the simulation. Trait rolls come from a seeded
// generator so a pack is reproducible from its seed.
type Spawner struct {
	rng   *rand.Rand
	used  map[string]bool
	newID func() string
}

// NewSpawner creates a pet spawner with the given seed.
func NewSpawner(seed int64) *Spawner {
	return &Spawner{
		rng:   rand.New(rand.NewSource(seed + 300)),
		used:  make(map[string]bool),
		newID: uuid.NewString,
	}
}

// SpawnPack creates a batch of pets with varied ages so the dominance
// hierarchy has meaningful brackets from the first tick.
func (s *Spawner) SpawnPack(count int, now time.Time) []*Pet {
	pack := make([]*Pet, 0, count)
	for i := 0; i < count; i++ {
		pack = append(pack, s.spawnOne(now))
	}
	return pack
}

func (s *Spawner) spawnOne(now time.Time) *Pet {
	sp := speciesProfiles[s.rng.Intn(len(speciesProfiles))]
	size := sp.sizes[s.rng.Intn(len(sp.sizes))]

	// Age: weighted toward young adults, with some babies and elders.
	ageDays := s.weightedAgeDays()

	traits := Traits{
		Friendliness:    s.rollWide(sp.friendliness),
		Energy:          s.rollWide(sp.energy),
		Sociability:     s.rollWide(sp.sociability),
		Possessiveness:  s.rollUnit(sp.possessiveness),
		Competitiveness: s.rollUnit(sp.competitiveness),
		Confidence:      s.rollUnit(sp.confidence),
	}

	return &Pet{
		ID:      s.newID(),
		Name:    s.pickName(),
		Species: sp.name,
		Size:    size,
		BornAt:  now.AddDate(0, 0, -ageDays),
		Traits:  traits,
		Tricks:  s.starterTrickSet(),
	}
}

func (s *Spawner) weightedAgeDays() int {
	// Bell curve centered around 500 days, range 30–2500.
	age := 500.0 + s.rng.NormFloat64()*400.0
	if age < 30 {
		age = 30
	}
	if age > 2500 {
		age = 2500
	}
	return int(age)
}

// rollWide perturbs a 0–100 tendency.
func (s *Spawner) rollWide(center float64) float64 {
	return clampf(center+s.rng.NormFloat64()*12.0, 0, 100)
}

// rollUnit perturbs a 0–1 tendency.
func (s *Spawner) rollUnit(center float64) float64 {
	return clampf(center+s.rng.NormFloat64()*0.12, 0.05, 0.95)
}

// starterTrickSet gives each pet one to three tricks at modest proficiency,
// with a small chance of one mastered trick so peer teaching has a seed.
func (s *Spawner) starterTrickSet() map[string]float64 {
	tricks := make(map[string]float64)
	n := 1 + s.rng.Intn(3)
	for i := 0; i < n; i++ {
		trick := starterTricks[s.rng.Intn(len(starterTricks))]
		tricks[trick] = 0.2 + s.rng.Float64()*0.4
	}
	if s.rng.Float64() < 0.3 {
		trick := starterTricks[s.rng.Intn(len(starterTricks))]
		tricks[trick] = 0.85 + s.rng.Float64()*0.15
	}
	return tricks
}

func (s *Spawner) pickName() string {
	// Prefer unused names; fall back to reuse once the pool is exhausted.
	for tries := 0; tries < 3*len(petNames); tries++ {
		name := petNames[s.rng.Intn(len(petNames))]
		if !s.used[name] {
			s.used[name] = true
			return name
		}
	}
	return petNames[s.rng.Intn(len(petNames))]
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
