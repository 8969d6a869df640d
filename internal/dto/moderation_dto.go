package dto

import (
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/models"
	"github.com/google/uuid"
)

type CreateReportRequest struct {
	ReportedID uuid.UUID `json:"reported_id"`
	Reason     string    `json:"reason"`
	Details    string    `json:"details"`
}

type ResolveReportRequest struct {
	Action     models.AdminAction `json:"action"`
	AdminNotes string             `json:"admin_notes"`
}

type ReportListResponse struct {
	Reports []models.Report `json:"reports"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

// ResolveReportResponse carries Warning when the status change committed but
// its side effect failed.
type ResolveReportResponse struct {
	Report  *models.Report `json:"report"`
	Warning string         `json:"warning,omitempty"`
}

type BlockListResponse struct {
	Blocked []uuid.UUID `json:"blocked"`
}
