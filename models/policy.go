package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SkillMapping pairs a skill with a relative weight used to split a
// placement's point pool. Disabled mappings are kept in the policy for
// operator visibility but never receive points.
type SkillMapping struct {
	SkillName string        `json:"skill_name"`
	Weight    float64       `json:"weight"` // must be > 0
	Category  SkillCategory `json:"category"`
	Enabled   bool          `json:"enabled"`
}

// BadgeSpec describes the badge a placement tier grants.
type BadgeSpec struct {
	BadgeType   string `json:"badge_type,omitempty"` // derived from Title when empty
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Rarity      string `json:"rarity,omitempty"`
}

// PlacementTier maps an exact final rank to its rewards. Ranks beyond the
// configured tiers fall back to ParticipationDefaults.
type PlacementTier struct {
	Placement      int        `json:"placement"` // exact rank, 1 = best
	XPMultiplier   float64    `json:"xp_multiplier"`
	Credits        int64      `json:"credits"`
	SkillPointPool float64    `json:"skill_point_pool"`
	Badge          *BadgeSpec `json:"badge,omitempty"`
}

// ParticipationDefaults apply to every participant regardless of rank, and
// serve as the fallback tier for ranks beyond the configured ones.
type ParticipationDefaults struct {
	BaseXP         int64   `json:"base_xp"`
	Credits        int64   `json:"credits"`
	SkillPointPool float64 `json:"skill_point_pool"`
}

// RewardPolicy is the per-tournament reward configuration. It is loaded once
// per distribution call into this immutable value object and passed by value
// through the call chain; the engine never mutates it.
type RewardPolicy struct {
	Name                  string                `json:"name,omitempty"`
	SkillMappings         []SkillMapping        `json:"skill_mappings"`
	PlacementTiers        []PlacementTier       `json:"placement_tiers"`
	ParticipationDefaults ParticipationDefaults `json:"participation_defaults"`
}

func (p RewardPolicy) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *RewardPolicy) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for RewardPolicy", value)
	}
	return json.Unmarshal(raw, p)
}

// DefaultRewardPolicy is the system fallback used when a tournament carries
// no policy, or a malformed one.
func DefaultRewardPolicy() RewardPolicy {
	return RewardPolicy{
		Name: "system_default",
		SkillMappings: []SkillMapping{
			{SkillName: "speed", Weight: 4.0, Category: SkillCategoryPhysical, Enabled: true},
			{SkillName: "agility", Weight: 3.0, Category: SkillCategoryPhysical, Enabled: true},
			{SkillName: "stamina", Weight: 2.0, Category: SkillCategoryPhysical, Enabled: true},
			{SkillName: "technique", Weight: 3.0, Category: SkillCategoryTechnical, Enabled: true},
			{SkillName: "game_sense", Weight: 2.0, Category: SkillCategoryTactical, Enabled: true},
			{SkillName: "composure", Weight: 1.0, Category: SkillCategoryMental, Enabled: true},
		},
		PlacementTiers: []PlacementTier{
			{Placement: 1, XPMultiplier: 3.0, Credits: 50, SkillPointPool: 10.0,
				Badge: &BadgeSpec{BadgeType: BadgeTypeChampion, Title: "Champion", Icon: "🥇", Rarity: BadgeRarityEpic}},
			{Placement: 2, XPMultiplier: 2.0, Credits: 30, SkillPointPool: 8.0,
				Badge: &BadgeSpec{BadgeType: BadgeTypeRunnerUp, Title: "Runner Up", Icon: "🥈", Rarity: BadgeRarityRare}},
			{Placement: 3, XPMultiplier: 1.5, Credits: 20, SkillPointPool: 6.0,
				Badge: &BadgeSpec{BadgeType: BadgeTypeThirdPlace, Title: "Third Place", Icon: "🥉", Rarity: BadgeRarityRare}},
		},
		ParticipationDefaults: ParticipationDefaults{
			BaseXP:         100,
			Credits:        5,
			SkillPointPool: 5.0,
		},
	}
}

// Validate checks a policy submitted by an operator. The engine itself never
// rejects a bad policy at distribution time (it substitutes the default), but
// the attach endpoint refuses one outright so operators get feedback early.
func (p RewardPolicy) Validate() error {
	if len(p.SkillMappings) == 0 {
		return fmt.Errorf("policy needs at least one skill mapping")
	}
	seen := make(map[string]bool, len(p.SkillMappings))
	for _, m := range p.SkillMappings {
		if m.SkillName == "" {
			return fmt.Errorf("skill mapping with empty name")
		}
		if m.Weight <= 0 {
			return fmt.Errorf("skill %q: weight must be > 0, got %v", m.SkillName, m.Weight)
		}
		if !ValidSkillCategory(m.Category) {
			return fmt.Errorf("skill %q: unknown category %q", m.SkillName, m.Category)
		}
		if seen[m.SkillName] {
			return fmt.Errorf("duplicate skill mapping %q", m.SkillName)
		}
		seen[m.SkillName] = true
	}
	ranks := make(map[int]bool, len(p.PlacementTiers))
	for _, t := range p.PlacementTiers {
		if t.Placement < 1 {
			return fmt.Errorf("placement tier rank must be >= 1, got %d", t.Placement)
		}
		if t.XPMultiplier < 0 || t.SkillPointPool < 0 || t.Credits < 0 {
			return fmt.Errorf("placement tier %d: negative reward values", t.Placement)
		}
		if ranks[t.Placement] {
			return fmt.Errorf("duplicate placement tier %d", t.Placement)
		}
		ranks[t.Placement] = true
	}
	if p.ParticipationDefaults.BaseXP < 0 || p.ParticipationDefaults.Credits < 0 ||
		p.ParticipationDefaults.SkillPointPool < 0 {
		return fmt.Errorf("participation defaults: negative reward values")
	}
	return nil
}

// TierFor resolves the reward tier for a placement. Ranks without an exact
// tier get the participation fallback: defaults-based values, no tier badge.
func (p RewardPolicy) TierFor(placement int) PlacementTier {
	for _, t := range p.PlacementTiers {
		if t.Placement == placement {
			return t
		}
	}
	return PlacementTier{
		Placement:      placement,
		XPMultiplier:   1.0,
		Credits:        p.ParticipationDefaults.Credits,
		SkillPointPool: p.ParticipationDefaults.SkillPointPool,
	}
}

// EnabledMappings filters the policy's skill mappings to the enabled ones.
func (p RewardPolicy) EnabledMappings() []SkillMapping {
	out := make([]SkillMapping, 0, len(p.SkillMappings))
	for _, m := range p.SkillMappings {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out
}

// CategoryFor returns the category of a skill according to this policy.
func (p RewardPolicy) CategoryFor(skillName string) (SkillCategory, bool) {
	for _, m := range p.SkillMappings {
		if m.SkillName == skillName {
			return m.Category, true
		}
	}
	return "", false
}
