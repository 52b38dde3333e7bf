package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// SkillPointMap stores per-skill point allocations as jsonb.
type SkillPointMap map[string]float64

func (m SkillPointMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *SkillPointMap) Scan(value interface{}) error {
	if value == nil {
		*m = SkillPointMap{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for SkillPointMap", value)
	}
	return json.Unmarshal(raw, m)
}

// TournamentParticipation is the reward outcome for one (user, tournament).
// Created exactly once by the reward orchestrator; replaced in place on a
// forced redistribution, never duplicated.
type TournamentParticipation struct {
	ID           string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID       string `json:"user_id" gorm:"not null;uniqueIndex:idx_participation_user_tournament,priority:1"`
	TournamentID string `json:"tournament_id" gorm:"not null;uniqueIndex:idx_participation_user_tournament,priority:2"`

	Placement   int           `json:"placement" gorm:"not null"`
	SkillPoints SkillPointMap `json:"skill_points" gorm:"type:jsonb"`

	BaseXP  int64 `json:"base_xp" gorm:"default:0"`
	BonusXP int64 `json:"bonus_xp" gorm:"default:0"`
	TotalXP int64 `json:"total_xp" gorm:"default:0"`
	Credits int64 `json:"credits" gorm:"default:0"`

	DistributedAt time.Time `json:"distributed_at"`
	DistributedBy string    `json:"distributed_by"` // operator user ID, or "scheduler"

	Timestamps
}

// Timestamps adds GORM auto-times.
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
