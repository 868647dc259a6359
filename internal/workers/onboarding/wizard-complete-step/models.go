// internal/workers/onboarding/wizard-complete-step/models.go
package wizardcompletestep

import (
	"seller-onboarding/internal/models"
	"seller-onboarding/internal/onboarding"
)

const (
	ActionComplete = "complete"
	ActionSkip     = "skip"
	ActionBack     = "back"
	ActionSubmit   = "submit"
)

// Input is one wizard action. Only the payload matching Step is read.
type Input struct {
	UserID   string             `json:"userId"`
	Step     int                `json:"step"`
	Action   string             `json:"action"`
	Business *models.Business   `json:"business,omitempty"`
	Legal    *models.LegalInfo  `json:"legal,omitempty"`
	Social   *models.SocialInfo `json:"social,omitempty"`
}

type Output struct {
	Step          int                      `json:"wizardStep"`
	Terminal      bool                     `json:"wizardTerminal"`
	Status        models.ApplicationStatus `json:"sellerStatus"`
	EditMode      bool                     `json:"isEditMode"`
	BusinessID    string                   `json:"businessId,omitempty"`
	ApplicationID string                   `json:"applicationId,omitempty"`
	Skipped       models.SkipFlags         `json:"skipped"`
	Submitted     bool                     `json:"applicationSubmitted"`
	Display       onboarding.Display       `json:"statusDisplay"`
}

func outputFrom(st onboarding.WizardState, submitted bool) *Output {
	return &Output{
		Step:          int(st.Step),
		Terminal:      st.Terminal,
		Status:        st.Status,
		EditMode:      st.EditMode,
		BusinessID:    st.BusinessID,
		ApplicationID: st.ApplicationID,
		Skipped:       st.Skipped,
		Submitted:     submitted,
		Display:       st.Display,
	}
}
