package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BanditRun records a policy being (re)initialised for a user, with
// its starting parameters.
type BanditRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     string         `gorm:"not null;index" json:"user_id"`
	Domain     string         `gorm:"not null;index" json:"domain"`
	PolicyType string         `gorm:"not null" json:"policy_type"`
	Parameters datatypes.JSON `gorm:"type:jsonb" json:"parameters"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (BanditRun) TableName() string { return "bandit_run" }
