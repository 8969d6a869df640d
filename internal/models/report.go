package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportReviewed ReportStatus = "reviewed"
	ReportResolved ReportStatus = "resolved"
)

// rank orders statuses so transitions can be checked for monotonicity.
func (s ReportStatus) rank() int {
	switch s {
	case ReportPending:
		return 0
	case ReportReviewed:
		return 1
	case ReportResolved:
		return 2
	}
	return -1
}

// CanMoveTo reports whether next is a legal forward move from s.
// pending -> resolved is allowed for single-step admin decisions.
func (s ReportStatus) CanMoveTo(next ReportStatus) bool {
	if s == ReportResolved || next.rank() < 0 || s.rank() < 0 {
		return false
	}
	return next.rank() > s.rank()
}

type AdminAction string

const (
	ActionBlockUser  AdminAction = "block_user"
	ActionDeleteUser AdminAction = "delete_user"
	ActionRequestID  AdminAction = "request_id"
	ActionNoAction   AdminAction = "no_action"
)

func (a AdminAction) Valid() bool {
	switch a {
	case ActionBlockUser, ActionDeleteUser, ActionRequestID, ActionNoAction:
		return true
	}
	return false
}

// Report is a user-submitted complaint about another user.
type Report struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ReporterID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"reporter_id"`
	ReportedID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"reported_id"`
	Reason          string         `gorm:"not null;size:500" json:"reason"`
	Details         string         `gorm:"type:text" json:"details,omitempty"`
	Status          ReportStatus   `gorm:"not null;default:'pending';size:20;index" json:"status"`
	AdminAction     *AdminAction   `gorm:"size:20" json:"admin_action"`
	AdminNotes      string         `gorm:"size:1000" json:"admin_notes,omitempty"`
	ResolvedBy      *uuid.UUID     `gorm:"type:uuid" json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
	SideEffectError string         `gorm:"type:text" json:"side_effect_error,omitempty"`
	AuditSnapshot   datatypes.JSON `gorm:"type:jsonb" json:"audit_snapshot,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (r *Report) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	if r.Status == "" {
		r.Status = ReportPending
	}
	return nil
}
