// internal/workers/onboarding/wizard-load/models.go
package wizardload

import (
	"seller-onboarding/internal/models"
	"seller-onboarding/internal/onboarding"
)

type Input struct {
	UserID string `json:"userId"`
}

// Output is written back as process variables.
type Output struct {
	Step          int                      `json:"wizardStep"`
	Terminal      bool                     `json:"wizardTerminal"`
	Status        models.ApplicationStatus `json:"sellerStatus"`
	EditMode      bool                     `json:"isEditMode"`
	BusinessID    string                   `json:"businessId,omitempty"`
	ApplicationID string                   `json:"applicationId,omitempty"`
	Skipped       models.SkipFlags         `json:"skipped"`
	Completeness  onboarding.Completeness  `json:"completeness"`
	Display       onboarding.Display       `json:"statusDisplay"`
}

func outputFrom(st onboarding.WizardState) *Output {
	return &Output{
		Step:          int(st.Step),
		Terminal:      st.Terminal,
		Status:        st.Status,
		EditMode:      st.EditMode,
		BusinessID:    st.BusinessID,
		ApplicationID: st.ApplicationID,
		Skipped:       st.Skipped,
		Completeness:  st.Completeness,
		Display:       st.Display,
	}
}
