package onboarding

import (
	"fmt"

	"seller-onboarding/internal/models"
)

// Step is a wizard page. StepNone is used while the wizard is terminal.
type Step int

const (
	StepNone   Step = 0
	StepBasic  Step = 1
	StepLegal  Step = 2
	StepSocial Step = 3
	StepReview Step = 4
)

func (s Step) Valid() bool {
	return s >= StepBasic && s <= StepReview
}

// Resolution is the StepResolver output: exactly one of a step or a terminal
// status.
type Resolution struct {
	Step     Step                     `json:"step"`
	Terminal models.ApplicationStatus `json:"terminal,omitempty"`
	EditMode bool                     `json:"isEditMode"`
}

func (r Resolution) IsTerminal() bool {
	return r.Terminal != ""
}

// String is used as a metrics label.
func (r Resolution) String() string {
	if r.IsTerminal() {
		return string(r.Terminal)
	}
	return fmt.Sprintf("step%d", r.Step)
}

func stepAt(s Step) Resolution { return Resolution{Step: s} }
func terminal(st models.ApplicationStatus) Resolution { return Resolution{Terminal: st} }

// Resolve maps a completeness vector and the application status to a wizard
// state. Rules are evaluated top down and the first match wins. Skipped steps
// count as done for ordering only.
func Resolve(c Completeness, status models.ApplicationStatus, skipped models.SkipFlags) Resolution {
	switch status {
	case models.StatusApproved:
		return terminal(models.StatusApproved)
	case models.StatusPending:
		return terminal(models.StatusPending)
	case models.StatusRejected:
		return Resolution{Step: StepBasic, EditMode: true}
	}

	switch {
	case !c.Basic:
		return stepAt(StepBasic)
	case !c.Legal && !skipped.Legal:
		return stepAt(StepLegal)
	case !c.Social && !skipped.Social:
		return stepAt(StepSocial)
	case !c.HasApplication:
		return stepAt(StepReview)
	default:
		// An application with no status is contradictory; treat it as under review.
		return terminal(models.StatusPending)
	}
}

// ResolveSnapshot evaluates and resolves one fetch.
func ResolveSnapshot(snap models.Snapshot, skipped models.SkipFlags) Resolution {
	return Resolve(EvaluateSnapshot(snap), models.StatusOf(snap.Application), skipped)
}
