package models

import (
	"time"
)

// Tournament status lifecycle. The engine only ever reads tournaments in
// StatusCompleted and moves them to StatusRewardsDistributed; everything
// before that is owned by the bracket/session service.
const (
	TournamentStatusDraft              = "draft"
	TournamentStatusPublished          = "published"
	TournamentStatusInProgress         = "in_progress"
	TournamentStatusCompleted          = "completed"
	TournamentStatusRewardsDistributed = "rewards_distributed"
)

// Tournament represents a completed competition whose rewards this service
// distributes. Bracket generation, subscriptions and scoring live in the
// arena service; we only carry the fields the reward engine needs.
type Tournament struct {
	ID          string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name        string `json:"name" gorm:"not null"`
	Slug        string `json:"slug" gorm:"uniqueIndex"`
	Discipline  string `json:"discipline"` // e.g., "football", "basketball"
	Description string `json:"description"`

	Status    string     `json:"status" gorm:"type:varchar(32);default:'draft';index"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	TotalParticipants int  `json:"total_participants" gorm:"default:0"`
	AutoDistribute    bool `json:"auto_distribute" gorm:"default:false"`

	// RewardPolicy is attached by an operator before the tournament
	// completes. Nullable: a missing or malformed policy falls back to
	// DefaultRewardPolicy at distribution time.
	RewardPolicy *RewardPolicy `json:"reward_policy,omitempty" gorm:"type:jsonb"`

	RewardsDistributedAt *time.Time `json:"rewards_distributed_at,omitempty"`
	RewardsDistributedBy string     `json:"rewards_distributed_by,omitempty"`

	Timestamps
}

// TournamentStanding is one row of the final placement list, written by the
// bracket service once the tournament completes. Read-only to this engine.
type TournamentStanding struct {
	ID           string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	TournamentID string `json:"tournament_id" gorm:"not null;uniqueIndex:idx_standing_user,priority:1"`
	UserID       string `json:"user_id" gorm:"not null;uniqueIndex:idx_standing_user,priority:2"`
	Placement    int    `json:"placement" gorm:"not null"` // 1 = best

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
