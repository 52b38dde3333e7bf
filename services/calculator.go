package services

import (
	"tournament-rewards-system/models"
)

// PlacementValue linearly interpolates a placement onto the skill scale:
// 1st place maps to MaxSkillCap, last place to MinSkillValue. A single
// participant tournament maps to the cap.
func PlacementValue(placement, totalParticipants int) float64 {
	if totalParticipants <= 1 {
		return models.MaxSkillCap
	}
	if placement < 1 {
		placement = 1
	}
	if placement > totalParticipants {
		placement = totalParticipants
	}
	span := models.MaxSkillCap - models.MinSkillValue
	frac := float64(placement-1) / float64(totalParticipants-1)
	return models.MaxSkillCap - frac*span
}

// CalculateSkillProgression converts a placement plus the user's history into
// a bounded skill value.
//
// The new value is a weighted average of the baseline and the placement
// value, where the placement side's weight grows with the number of
// tournaments already recorded for this skill:
//
//	baseline_weight  = 1 / (n + 1)
//	placement_weight = n / (n + 1)
//
// This converges rather than accumulates: as n grows, a single event moves
// the value less, and a very bad placement can legitimately lower it. The
// delta is scaled by weightMultiplier before clamping, so heavier-weighted
// skills move faster.
func CalculateSkillProgression(baseline float64, placement, totalParticipants, tournamentCount int, weightMultiplier float64) float64 {
	if tournamentCount < 0 {
		tournamentCount = 0
	}
	placementValue := PlacementValue(placement, totalParticipants)

	n := float64(tournamentCount)
	baselineWeight := 1.0 / (n + 1.0)
	placementWeight := n / (n + 1.0)

	baseNew := baseline*baselineWeight + placementValue*placementWeight
	delta := baseNew - baseline

	final := baseline + delta*weightMultiplier
	if final < models.MinSkillValue {
		final = models.MinSkillValue
	}
	if final > models.MaxSkillCap {
		final = models.MaxSkillCap
	}
	return final
}
