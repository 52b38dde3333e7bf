package models

import (
	"time"
)

// SkillCategory groups skills for bonus-XP purposes.
type SkillCategory string

const (
	SkillCategoryPhysical  SkillCategory = "PHYSICAL"
	SkillCategoryTechnical SkillCategory = "TECHNICAL"
	SkillCategoryTactical  SkillCategory = "TACTICAL"
	SkillCategoryMental    SkillCategory = "MENTAL"
)

// CategoryXPRates maps a skill category to bonus XP per allocated skill point.
var CategoryXPRates = map[SkillCategory]int64{
	SkillCategoryPhysical:  8,
	SkillCategoryTechnical: 10,
	SkillCategoryTactical:  10,
	SkillCategoryMental:    12,
}

// ValidSkillCategory reports whether c is one of the known categories.
func ValidSkillCategory(c SkillCategory) bool {
	_, ok := CategoryXPRates[c]
	return ok
}

// Bounds for skill values produced by the progression calculator, and the
// neutral baseline assumed for users whose onboarding never recorded one.
const (
	MinSkillValue        = 1.0
	MaxSkillCap          = 10.0
	DefaultSkillBaseline = 5.0
)

// UserSkillBaseline is the skill value recorded during onboarding, before any
// tournament participation. Written by the onboarding flow; read-only here.
// The current skill value is never stored anywhere — it is derived on read
// from this baseline plus the SkillReward ledger and tournament history.
type UserSkillBaseline struct {
	ID        string        `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID    string        `json:"user_id" gorm:"not null;uniqueIndex:idx_baseline_user_skill,priority:1"`
	SkillName string        `json:"skill_name" gorm:"not null;uniqueIndex:idx_baseline_user_skill,priority:2"`
	Category  SkillCategory `json:"category" gorm:"type:varchar(16);not null"`
	Value     float64       `json:"value" gorm:"not null"` // within [MinSkillValue, MaxSkillCap]

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// SkillSnapshot is one entry of the derived skill profile returned to
// callers. Not persisted.
type SkillSnapshot struct {
	SkillName    string        `json:"skill_name"`
	Category     SkillCategory `json:"category"`
	Baseline     float64       `json:"baseline"`
	CurrentValue float64       `json:"current_value"`
	TotalPoints  float64       `json:"total_points"` // ledger sum, raw distributor units
	Tournaments  int           `json:"tournaments"`  // events contributing to the value
}
