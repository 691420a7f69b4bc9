package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit actions recognised by the task lifecycle.
const (
	ActionCreated   = "TASK_CREATED"
	ActionUpdated   = "TASK_UPDATED"
	ActionCompleted = "TASK_COMPLETED"
	ActionReopened  = "TASK_REOPENED"
	ActionDeleted   = "TASK_DELETED"
)

// AuditRecord is an append-only log entry capturing a task state transition.
// Once written, only the Viewed flag may change (false to true).
type AuditRecord struct {
	ID string `gorm:"primaryKey;type:uuid" json:"id"`

	TaskID string `gorm:"type:uuid;not null;index" json:"task_id"`
	Task   *Task  `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"task,omitempty"`

	// ActorID is nil for system-initiated transitions.
	ActorID *string `gorm:"type:uuid;index" json:"actor_id"`
	Actor   *User   `gorm:"foreignKey:ActorID;constraint:OnDelete:SET NULL" json:"actor,omitempty"`

	Action         string            `gorm:"not null;index" json:"action"`
	PreviousValues datatypes.JSONMap `json:"previous_values"`
	NewValues      datatypes.JSONMap `json:"new_values"`

	Viewed    bool      `gorm:"not null;default:false" json:"viewed"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (r *AuditRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
