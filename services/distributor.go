package services

import (
	"math"

	"tournament-rewards-system/models"
)

// DistributeSkillPoints splits a placement's point pool proportionally across
// the enabled skill mappings, rounded to one decimal per skill.
//
// The rounding remainder is deliberately not redistributed: the sum of the
// allocations may drift from totalPoints by up to 0.05 per enabled skill.
// Callers that care assert against that tolerance, not exact equality.
//
// Zero enabled mappings yields an empty map — base XP and credits still
// apply, so this is not an error.
func DistributeSkillPoints(totalPoints float64, mappings []models.SkillMapping) map[string]float64 {
	allocations := make(map[string]float64)
	if totalPoints <= 0 {
		return allocations
	}

	var totalWeight float64
	for _, m := range mappings {
		if m.Enabled && m.Weight > 0 {
			totalWeight += m.Weight
		}
	}
	if totalWeight == 0 {
		return allocations
	}

	for _, m := range mappings {
		if !m.Enabled || m.Weight <= 0 {
			continue
		}
		share := totalPoints * m.Weight / totalWeight
		allocations[m.SkillName] = math.Round(share*10) / 10
	}
	return allocations
}
