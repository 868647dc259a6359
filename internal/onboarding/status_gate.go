package onboarding

import (
	"time"

	"seller-onboarding/internal/models"
)

// GateAction is the single follow-up the status screen offers.
type GateAction string

const (
	ActionNone             GateAction = "none"
	ActionEditAndResubmit  GateAction = "editAndResubmit"
	ActionGoToDashboard    GateAction = "goToDashboard"
	ActionStartApplication GateAction = "startApplication"
)

// ApprovedRedirectDelay is how long the approved screen shows before redirecting.
const ApprovedRedirectDelay = 3 * time.Second

// Display is the status screen configuration for one application status.
type Display struct {
	Icon          string        `json:"icon"`
	Title         string        `json:"title"`
	Message       string        `json:"message"`
	LockedFields  bool          `json:"lockedFields"`
	Action        GateAction    `json:"action"`
	RedirectAfter time.Duration `json:"redirectAfter,omitempty"`
}

// Gate projects an application status onto its display. Fields are locked only
// while a review is outstanding.
func Gate(status models.ApplicationStatus, rejectionReason string) Display {
	switch status {
	case models.StatusPending:
		return Display{
			Icon:         "hourglass",
			Title:        "Application under review",
			Message:      "We are reviewing your business details. You will be notified once a decision is made.",
			LockedFields: true,
			Action:       ActionNone,
		}
	case models.StatusApproved:
		return Display{
			Icon:          "check-circle",
			Title:         "Application approved",
			Message:       "Your seller account is active. Taking you to your dashboard.",
			Action:        ActionGoToDashboard,
			RedirectAfter: ApprovedRedirectDelay,
		}
	case models.StatusRejected:
		msg := "Your application was not approved. Update your details and resubmit."
		if rejectionReason != "" {
			msg = "Your application was not approved: " + rejectionReason + ". Update your details and resubmit."
		}
		return Display{
			Icon:    "x-circle",
			Title:   "Application rejected",
			Message: msg,
			Action:  ActionEditAndResubmit,
		}
	default:
		return Display{
			Icon:    "store",
			Title:   "Become a seller",
			Message: "Complete your business profile to submit a seller application.",
			Action:  ActionStartApplication,
		}
	}
}

// AllowsWrites reports whether wizard writes are permitted for status.
func AllowsWrites(status models.ApplicationStatus) bool {
	return status != models.StatusPending && status != models.StatusApproved
}
