// Package onboarding reconciles the four remote seller entities into one wizard
// state and applies wizard actions back onto them.
package onboarding

import (
	"strings"

	"seller-onboarding/internal/models"
)

// Completeness says which sub-entities meet their minimum-field requirement.
type Completeness struct {
	Basic          bool `json:"basicComplete"`
	Legal          bool `json:"legalComplete"`
	Social         bool `json:"socialComplete"`
	HasApplication bool `json:"hasApplication"`
}

// Evaluate is pure; nil means the entity is absent.
//
// Only PAN, GST and MSME gate legal completeness. Aadhaar, FASSI and the
// export/import code are stored but do not count.
func Evaluate(b *models.Business, l *models.LegalInfo, s *models.SocialInfo, a *models.Application) Completeness {
	return Completeness{
		Basic:          b != nil && allSet(b.Name, b.Email, b.Phone, b.Address),
		Legal:          l != nil && anySet(l.PAN, l.GST, l.MSME),
		Social:         s != nil && anySet(s.Links()...),
		HasApplication: a != nil && a.ID != "",
	}
}

// EvaluateSnapshot applies Evaluate to one fetch.
func EvaluateSnapshot(snap models.Snapshot) Completeness {
	return Evaluate(snap.Business, snap.Legal, snap.Social, snap.Application)
}

func allSet(vals ...string) bool {
	for _, v := range vals {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

func anySet(vals ...string) bool {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}
