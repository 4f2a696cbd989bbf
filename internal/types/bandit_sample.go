package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BanditSample records one posterior draw made during slate
// generation: which action won and at what estimated reward.
type BanditSample struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID          string         `gorm:"not null;index" json:"user_id"`
	Domain          string         `gorm:"not null;index" json:"domain"`
	MissionID       string         `gorm:"index" json:"mission_id"`
	Action          string         `gorm:"not null" json:"action"`
	EstimatedReward float64        `gorm:"not null" json:"estimated_reward"`
	Accepted        bool           `gorm:"not null" json:"accepted"`
	Payload         datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	SelectedAt      time.Time      `gorm:"not null;index" json:"selected_at"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (BanditSample) TableName() string { return "bandit_sample" }
