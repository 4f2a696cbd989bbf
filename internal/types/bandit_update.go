package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BanditUpdate records one reward application, including the posterior
// parameters after the step. Source distinguishes live bindings from
// offline reconstructions.
type BanditUpdate struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     string         `gorm:"not null;index" json:"user_id"`
	Domain     string         `gorm:"not null;index" json:"domain"`
	Action     string         `gorm:"not null" json:"action"`
	Reward     float64        `gorm:"not null" json:"reward"`
	Source     string         `gorm:"not null" json:"source"`
	Parameters datatypes.JSON `gorm:"type:jsonb" json:"parameters"`
	ObservedAt time.Time      `gorm:"not null;index" json:"observed_at"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (BanditUpdate) TableName() string { return "bandit_update" }
