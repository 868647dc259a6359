package onboarding

import (
	"seller-onboarding/internal/models"
)

// WizardState is derived from the four remote entities on every load. It is
// never the source of truth; Prefill carries the fetched values so edit mode
// and the read-only review can show them.
type WizardState struct {
	UserID        string                   `json:"userId"`
	BusinessID    string                   `json:"businessId,omitempty"`
	ApplicationID string                   `json:"applicationId,omitempty"`
	Step          Step                     `json:"step"`
	Terminal      bool                     `json:"terminal"`
	Status        models.ApplicationStatus `json:"status"`
	EditMode      bool                     `json:"isEditMode"`
	Skipped       models.SkipFlags         `json:"skipped"`
	Completeness  Completeness             `json:"completeness"`
	Prefill       models.Snapshot          `json:"prefill"`
	Display       Display                  `json:"display"`
}

// defaultState is the safe starting point: step 1, nothing known.
func defaultState(userID string) WizardState {
	return WizardState{
		UserID:  userID,
		Step:    StepBasic,
		Status:  models.StatusNone,
		Display: Gate(models.StatusNone, ""),
	}
}

// buildState derives the full state from one snapshot.
func buildState(userID string, snap models.Snapshot, skipped models.SkipFlags) WizardState {
	c := EvaluateSnapshot(snap)
	status := models.StatusOf(snap.Application)
	res := Resolve(c, status, skipped)

	st := WizardState{
		UserID:       userID,
		Step:         res.Step,
		Terminal:     res.IsTerminal(),
		Status:       status,
		EditMode:     res.EditMode,
		Skipped:      skipped,
		Completeness: c,
		Prefill:      snap,
	}
	if snap.Business != nil {
		st.BusinessID = snap.Business.ID
	}
	reason := ""
	if snap.Application != nil {
		st.ApplicationID = snap.Application.ID
		reason = snap.Application.RejectionReason
	}
	if res.IsTerminal() {
		// Terminal(pending) can come from a contradictory statusless record.
		st.Status = res.Terminal
	}
	st.Display = Gate(st.Status, reason)
	return st
}
