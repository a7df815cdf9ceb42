package models

import (
	"time"
)

// Update request status values
const (
	UpdateRequestPending  = "pending"
	UpdateRequestApproved = "approved"
	UpdateRequestRejected = "rejected"
)

// UpdateRequest is a baker-initiated petition to reopen an order's locked
// completion details. At most one request may be pending per order; resolved
// requests are archived, not deleted. Applied marks an approval that has been
// consumed by a subsequent completion-detail update.
type UpdateRequest struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	OrderID          uint       `gorm:"not null;index" json:"order_id"`
	RequestedByID    uint       `gorm:"not null" json:"requested_by_id"`
	Reason           string     `gorm:"not null" json:"reason"`
	RequestedChanges string     `json:"requested_changes"` // free-form JSON describing the desired edits
	Status           string     `gorm:"not null;default:'pending'" json:"status"`
	AdminNote        *string    `json:"admin_note,omitempty"`
	ResolvedByID     *uint      `json:"resolved_by_id,omitempty"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	Applied          bool       `gorm:"not null;default:false" json:"applied"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the UpdateRequest model
func (UpdateRequest) TableName() string {
	return "update_requests"
}
