package onboarding

import "seller-onboarding/internal/models"

// Action is one wizard input. The set is closed; Controller.Dispatch is the
// single entry point that consumes it.
type Action interface {
	Kind() string
	isAction()
}

type CompleteBasic struct {
	Business models.Business `json:"business"`
}

type CompleteLegal struct {
	Legal models.LegalInfo `json:"legal"`
}

type CompleteSocial struct {
	Social models.SocialInfo `json:"social"`
}

type SkipLegal struct{}

type SkipSocial struct{}

// Submit sends the review application from step 4.
type Submit struct{}

type GoBack struct{}

// Reload re-derives the state from the remote entities.
type Reload struct{}

func (CompleteBasic) Kind() string  { return "CompleteBasic" }
func (CompleteLegal) Kind() string  { return "CompleteLegal" }
func (CompleteSocial) Kind() string { return "CompleteSocial" }
func (SkipLegal) Kind() string      { return "SkipLegal" }
func (SkipSocial) Kind() string     { return "SkipSocial" }
func (Submit) Kind() string         { return "Submit" }
func (GoBack) Kind() string         { return "GoBack" }
func (Reload) Kind() string         { return "Reload" }

func (CompleteBasic) isAction()  {}
func (CompleteLegal) isAction()  {}
func (CompleteSocial) isAction() {}
func (SkipLegal) isAction()      {}
func (SkipSocial) isAction()     {}
func (Submit) isAction()         {}
func (GoBack) isAction()         {}
func (Reload) isAction()         {}

// stepOf returns the wizard step an action writes, or StepNone for actions that
// do not write.
func stepOf(a Action) Step {
	switch a.(type) {
	case CompleteBasic:
		return StepBasic
	case CompleteLegal, SkipLegal:
		return StepLegal
	case CompleteSocial, SkipSocial:
		return StepSocial
	case Submit:
		return StepReview
	default:
		return StepNone
	}
}
