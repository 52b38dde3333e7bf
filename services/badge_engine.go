package services

import (
	"fmt"
	"strings"

	"tournament-rewards-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// defaultTierBadges are used when a placement tier carries no badge spec.
var defaultTierBadges = map[int]models.BadgeSpec{
	1: {BadgeType: models.BadgeTypeChampion, Title: "Champion", Icon: "🥇", Rarity: models.BadgeRarityEpic},
	2: {BadgeType: models.BadgeTypeRunnerUp, Title: "Runner Up", Icon: "🥈", Rarity: models.BadgeRarityRare},
	3: {BadgeType: models.BadgeTypeThirdPlace, Title: "Third Place", Icon: "🥉", Rarity: models.BadgeRarityRare},
}

// BadgeTypeCode resolves the stable code for a badge spec. Custom specs
// without an explicit code get one slugified from the title, e.g.
// "Iron Defense Award" -> "IRON_DEFENSE_AWARD".
func BadgeTypeCode(spec models.BadgeSpec) string {
	if spec.BadgeType != "" {
		return spec.BadgeType
	}
	return strings.ToUpper(strings.ReplaceAll(slug.Make(spec.Title), "-", "_"))
}

// AssignBadges derives the badge rows for one participant. The participation
// badge is always included unless already present; a tier badge is added for
// podium-style tiers that define one (falling back to the defaults for
// placements 1-3). Idempotent: types in alreadyPresent are never re-issued.
func AssignBadges(userID, tournamentID string, placement int, tierBadge *models.BadgeSpec, alreadyPresent map[string]bool) []models.Badge {
	var out []models.Badge

	if !alreadyPresent[models.BadgeTypeParticipant] {
		out = append(out, models.Badge{
			ID:           uuid.NewString(),
			UserID:       userID,
			TournamentID: tournamentID,
			BadgeType:    models.BadgeTypeParticipant,
			Category:     models.BadgeCategoryParticipation,
			Title:        "Participant",
			Description:  "Competed in the tournament",
			Icon:         "🎖️",
			Rarity:       models.BadgeRarityCommon,
			Metadata:     models.BadgeMetadata{"placement": placement},
		})
	}

	spec := tierBadge
	if spec == nil {
		if d, ok := defaultTierBadges[placement]; ok {
			spec = &d
		}
	}
	if spec == nil {
		return out
	}

	code := BadgeTypeCode(*spec)
	if alreadyPresent[code] {
		return out
	}

	rarity := spec.Rarity
	if rarity == "" {
		rarity = models.BadgeRarityRare
	}
	description := spec.Description
	if description == "" {
		description = fmt.Sprintf("Finished %s", ordinal(placement))
	}
	out = append(out, models.Badge{
		ID:           uuid.NewString(),
		UserID:       userID,
		TournamentID: tournamentID,
		BadgeType:    code,
		Category:     models.BadgeCategoryPlacement,
		Title:        spec.Title,
		Description:  description,
		Icon:         spec.Icon,
		Rarity:       rarity,
		Metadata:     models.BadgeMetadata{"placement": placement},
	})
	return out
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 10 {
	case 1:
		if n%100 != 11 {
			suffix = "st"
		}
	case 2:
		if n%100 != 12 {
			suffix = "nd"
		}
	case 3:
		if n%100 != 13 {
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
