package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SelectedSlate is the persisted output of one slate generation: the
// planned mission and the content chosen for it.
type SelectedSlate struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     string         `gorm:"not null;index" json:"user_id"`
	PlanID     string         `gorm:"not null;index" json:"plan_id"`
	MissionID  string         `gorm:"not null" json:"mission_id"`
	Items      datatypes.JSON `gorm:"type:jsonb" json:"items"`
	SelectedAt time.Time      `gorm:"not null;index" json:"selected_at"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (SelectedSlate) TableName() string { return "selected_slate" }
