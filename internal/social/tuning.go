// Package social implements the pack's social engine: the relationship
// ledger, the dominance hierarchy, the jealousy and competition engine, and
// the peer teaching service. All tuning constants live here so balance work
// touches one file.
package social

// Friendship category thresholds over the clamped -100..100 score.
const (
	BestFriendThreshold   = 80.0
	FriendThreshold       = 40.0
	AcquaintanceThreshold = 0.0
	RivalThreshold        = -40.0
	// Below RivalThreshold is enemy territory.

	// BestFriendMinimum is the floor for reporting a best friend at all.
	BestFriendMinimum = 60.0
)

// Friendship saturation: deltas shrink near the positive extremes and grow
// in the hole, so scores drift asymptotically instead of pinning.
const (
	saturationHigh       = 60.0
	saturationExtreme    = 80.0
	saturationLow        = -40.0
	saturationHighScale  = 0.5
	saturationTopScale   = 0.25
	saturationLowScale   = 1.25
)

// Initial impression draw bounds and trait adjustment weights.
const (
	impressionMin        = -20.0
	impressionMax        = 40.0
	friendlinessWeight   = 0.1
	energyMismatchWeight = 0.05
)

// Social energy gauge movement per interaction.
const (
	socialEnergyStart = 50.0
	socialEnergyRise  = 4.0
	socialEnergyFall  = 6.0
	socialEnergyLow   = 30.0
	socialEnergyMid   = 60.0
	highSociability   = 70.0
)

// Interaction identifies a pairwise interaction kind raised by the caller.
type Interaction string

const (
	InteractPlayTogether    Interaction = "play_together"
	InteractShareFood       Interaction = "share_food"
	InteractGroom           Interaction = "groom"
	InteractExploreTogether Interaction = "explore_together"
	InteractSleepNearby     Interaction = "sleep_nearby"
	InteractTease           Interaction = "tease"
	InteractStealFood       Interaction = "steal_food"
	InteractFight           Interaction = "fight"
)

// interactionDelta is the base friendship movement for one interaction,
// before saturation scaling.
type interactionDelta struct {
	success float64
	failure float64
}

// interactionTable holds the fixed base deltas per kind. Unknown kinds fall
// back to a zero delta: the interaction is recorded but moves nothing.
var interactionTable = map[Interaction]interactionDelta{
	InteractPlayTogether:    {12, -4},
	InteractShareFood:       {12, -5},
	InteractGroom:           {6, -2},
	InteractExploreTogether: {7, -3},
	InteractSleepNearby:     {5, -1},
	InteractTease:           {-4, -1},
	InteractStealFood:       {-10, -10},
	InteractFight:           {-15, -15},
}

// Trust nudges ride along on a few interaction kinds.
const (
	trustGainShare = 1.5
	trustGainGroom = 1.0
	trustLossHurt  = 2.0
)

// Dominance score composition weights (see Hierarchy).
const (
	ageBabyDays  = 180
	ageYoungDays = 730

	agePointsBaby  = 0.0
	agePointsYoung = 15.0
	agePointsAdult = 25.0

	sizePointsSmall  = 10.0
	sizePointsMedium = 15.0
	sizePointsLarge  = 20.0

	confidenceWeight = 25.0
	winRateWeight    = 20.0
	winRateNeutral   = 10.0

	tenurePerDay = 0.5
	tenureCap    = 10.0
)

// Challenge resolution.
const (
	challengeScoreDivisor = 200.0
	challengeNoise        = 0.1

	challengerWinGain  = 5.0
	challengerWinCost  = 3.0 // loser's cost when the challenger wins
	defenderWinGain    = 3.0
	defenderWinCost    = 5.0 // challenger's cost when the target holds
)

// challengeContextMult returns the win-probability multiplier for the
// disputed resource. Unknown contexts are neutral.
func challengeContextMult(ctx ChallengeContext) float64 {
	switch ctx {
	case ContextFood:
		return 1.1
	case ContextAttention:
		return 1.2
	default:
		return 1.0
	}
}

// Pack stability: frequent challenges inside a rolling day erode it.
const (
	stabilityWindowHours   = 24
	stabilityFreeChallenges = 3
	stabilityDecay         = 0.05
	stabilityRecovery      = 0.1
)

// Submission gaps.
const (
	submitAlwaysGap  = 30.0
	submitUsuallyGap = 15.0
	submitHistoryGap = 5.0
	submitUsuallyP   = 0.8
)

// AttentionKind labels owner attention as seen by the jealousy engine.
type AttentionKind string

const (
	AttentionFeeding  AttentionKind = "feeding"
	AttentionTreats   AttentionKind = "treats"
	AttentionPlaying  AttentionKind = "playing"
	AttentionCuddling AttentionKind = "cuddling"
	AttentionGrooming AttentionKind = "grooming"
	AttentionPetting  AttentionKind = "petting"
)

// attentionKindMult weights how much witnessing a kind of attention stings.
// Unknown kinds are neutral.
func attentionKindMult(kind AttentionKind) float64 {
	switch kind {
	case AttentionFeeding, AttentionTreats:
		return 1.5
	case AttentionPlaying, AttentionCuddling:
		return 1.3
	case AttentionGrooming, AttentionPetting:
		return 1.1
	default:
		return 1.0
	}
}

// Jealousy accumulation and relief.
const (
	jealousyPerUnit     = 2.0 // intensity per unit of witnessed duration
	jealousyRelief      = 2.5 // intensity removed per unit of received duration
	jealousyDecayPerHr  = 2.0
	jealousyLossBump    = 15.0
	jealousyWinRelief   = 10.0
	jealousyStarvedHrs  = 2.0  // no attention for this long feels worse
	jealousySatedMins   = 30.0 // recent attention softens the sting
	jealousyStarvedMult = 1.5
	jealousySatedMult   = 0.7
)

// Jealousy level thresholds.
const (
	jealousyMild     = 20.0
	jealousyModerate = 40.0
	jealousyHigh     = 60.0
	jealousyExtreme  = 80.0
)

// Rivalry promotion: repeated competition losses inside a rolling week.
const (
	rivalryLossCount  = 3
	rivalryWindowDays = 7
)

// Competition probability skews.
const (
	competeTraitWeight    = 0.2
	competeJealousyWeight = 0.3
	competeFoodBonus      = 0.1
	competeAttentionBonus = 0.15
)

// Peer teaching.
const (
	// MasteryThreshold is the proficiency floor required to teach a trick.
	MasteryThreshold = 0.8

	teachBaseP          = 0.6
	teachSkillWeight    = 0.2
	teachFriendWeight   = 0.2
	teachRankBonus      = 0.1
	teachBeginnerBonus  = 0.1
	teachBeginnerBelow  = 0.3
	teachPlateauPenalty = 0.1
	teachPlateauAbove   = 0.7

	teachBaseGain      = 0.15
	teachMasteryScale  = 0.5 // up to +50% gain from a deeply proficient teacher
	teachSkillStep     = 0.02
	teachBondingWin    = 3.0
	teachBondingLoss   = 1.0

	observeChanceStep = 0.05
	observeChanceCap  = 0.3
	observeGain       = 0.05

	recommendProfWeight   = 100.0
	recommendSkillWeight  = 30.0
	recommendFriendWeight = 0.2
	recommendRankBonus    = 20.0
)

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clamp01 bounds a probability to [0, 1].
func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}
