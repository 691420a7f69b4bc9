package models

import "gorm.io/gorm"

// Task is a unit of work owned by a user. Deletion is a status flag so that the
// audit history of a task stays resolvable after removal.
type Task struct {
	BaseModel

	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Quote       string `gorm:"type:text" json:"quote,omitempty"`
	Completed   bool   `gorm:"not null;default:false" json:"completed"`
	Deleted     bool   `gorm:"not null;default:false;index" json:"-"`

	OwnerID string `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner   *User  `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`

	AuditRecords []AuditRecord `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
}

// ActiveTasks scopes a query to tasks that have not been soft deleted.
// Every standard lookup and listing goes through this single choke point.
func ActiveTasks(db *gorm.DB) *gorm.DB {
	return db.Where("deleted = ?", false)
}
