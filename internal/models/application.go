// internal/models/application.go
package models

import "time"

// ApplicationStatus is the review state of a seller application.
type ApplicationStatus string

const (
	StatusNone     ApplicationStatus = "none"
	StatusPending  ApplicationStatus = "pending"
	StatusApproved ApplicationStatus = "approved"
	StatusRejected ApplicationStatus = "rejected"
)

// ParseStatus normalises a wire status. Unknown or empty values map to StatusNone.
func ParseStatus(s string) ApplicationStatus {
	switch ApplicationStatus(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return ApplicationStatus(s)
	case "submitted", "under_review", "in_review":
		return StatusPending
	default:
		return StatusNone
	}
}

// Application is created once per submission cycle and reused on resubmission.
type Application struct {
	ID              string            `json:"application_id"`
	BusinessID      string            `json:"business_id"`
	Status          ApplicationStatus `json:"status"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	ReviewedAt      *time.Time        `json:"reviewed_at,omitempty"`
}

// StatusOf returns the status of app, or StatusNone when app is nil.
func StatusOf(app *Application) ApplicationStatus {
	if app == nil || app.Status == "" {
		return StatusNone
	}
	return app.Status
}

// Snapshot is one fetch of the four remote sub-entities. Nil means absent.
type Snapshot struct {
	Business    *Business    `json:"business,omitempty"`
	Legal       *LegalInfo   `json:"legal,omitempty"`
	Social      *SocialInfo  `json:"social,omitempty"`
	Application *Application `json:"application,omitempty"`
}
