package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Badge rarity tiers.
const (
	BadgeRarityCommon    = "COMMON"
	BadgeRarityRare      = "RARE"
	BadgeRarityEpic      = "EPIC"
	BadgeRarityLegendary = "LEGENDARY"
)

// Well-known badge type codes. Custom tier badges from a policy get a code
// slugified from their title instead.
const (
	BadgeTypeParticipant = "PARTICIPANT"
	BadgeTypeChampion    = "CHAMPION"
	BadgeTypeRunnerUp    = "RUNNER_UP"
	BadgeTypeThirdPlace  = "THIRD_PLACE"
)

// BadgeMetadata is free-form jsonb attached to an awarded badge.
type BadgeMetadata map[string]interface{}

func (m BadgeMetadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *BadgeMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = BadgeMetadata{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for BadgeMetadata", value)
	}
	return json.Unmarshal(raw, m)
}

// Badge is an awarded badge instance. Unique on (user, tournament, type) —
// re-running a distribution never duplicates one, including the always
// granted participation badge.
type Badge struct {
	ID           string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID       string `json:"user_id" gorm:"not null;uniqueIndex:idx_badge_user_tournament_type,priority:1"`
	TournamentID string `json:"tournament_id" gorm:"not null;uniqueIndex:idx_badge_user_tournament_type,priority:2"`
	BadgeType    string `json:"badge_type" gorm:"not null;uniqueIndex:idx_badge_user_tournament_type,priority:3"`

	Category    string        `json:"category" gorm:"type:varchar(32)"` // placement or participation
	Title       string        `json:"title" gorm:"not null"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"` // emoji or CDN URL
	Rarity      string        `json:"rarity" gorm:"type:varchar(16);default:'COMMON'"`
	Metadata    BadgeMetadata `json:"metadata" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BadgeCategory values for grouping in the showcase.
const (
	BadgeCategoryPlacement     = "placement"
	BadgeCategoryParticipation = "participation"
)
