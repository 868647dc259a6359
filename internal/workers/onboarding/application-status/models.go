// internal/workers/onboarding/application-status/models.go
package applicationstatus

import (
	"seller-onboarding/internal/models"
	"seller-onboarding/internal/onboarding"
)

// Input selects the user. With WaitForDecision the job keeps polling while the
// application is pending, until the job timeout.
type Input struct {
	UserID          string `json:"userId"`
	WaitForDecision bool   `json:"waitForDecision"`
}

type Output struct {
	Status   models.ApplicationStatus `json:"sellerStatus"`
	Decided  bool                     `json:"decisionMade"`
	Approved bool                     `json:"sellerApproved"`
	Display  onboarding.Display       `json:"statusDisplay"`
}
