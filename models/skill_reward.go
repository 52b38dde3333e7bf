package models

import (
	"time"
)

// RewardSourceType identifies the event that produced a ledger row.
type RewardSourceType string

const (
	RewardSourceTournament RewardSourceType = "TOURNAMENT"
	RewardSourceTraining   RewardSourceType = "TRAINING"
	RewardSourceAssessment RewardSourceType = "ASSESSMENT"
	RewardSourceAdjustment RewardSourceType = "ADJUSTMENT"
)

// SkillReward is the append-only skill point ledger. Rows are immutable once
// written; corrections are new offsetting rows with negative points, never
// in-place edits. This ledger is the single source of truth for how a skill
// value got where it is.
type SkillReward struct {
	ID         string           `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID     string           `json:"user_id" gorm:"not null;index:idx_skill_reward_user"`
	SourceType RewardSourceType `json:"source_type" gorm:"type:varchar(16);not null;index:idx_skill_reward_source,priority:1"`
	SourceID   string           `json:"source_id" gorm:"not null;index:idx_skill_reward_source,priority:2"`

	SkillName     string  `json:"skill_name" gorm:"not null"`
	PointsAwarded float64 `json:"points_awarded" gorm:"not null"` // signed

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
