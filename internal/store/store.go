// Package store defines the four remote entity accessors the onboarding engine
// reads and writes, plus a fan-out loader that fetches them as one snapshot.
package store

import (
	"context"

	"seller-onboarding/internal/models"
)

// BusinessStore reads and writes the seller's Business record.
// Get methods return an error matching errors.ErrNotFound when nothing exists.
type BusinessStore interface {
	GetByUser(ctx context.Context, userID string) (*models.Business, error)
	Get(ctx context.Context, businessID string) (*models.Business, error)
	Create(ctx context.Context, b *models.Business) (string, error)
	Update(ctx context.Context, businessID string, b *models.Business) error
}

// LegalStore is keyed by business ID.
type LegalStore interface {
	Get(ctx context.Context, businessID string) (*models.LegalInfo, error)
	Create(ctx context.Context, info *models.LegalInfo) (string, error)
	Update(ctx context.Context, businessID string, info *models.LegalInfo) error
}

// SocialStore is keyed by business ID.
type SocialStore interface {
	Get(ctx context.Context, businessID string) (*models.SocialInfo, error)
	Create(ctx context.Context, info *models.SocialInfo) (string, error)
	Update(ctx context.Context, businessID string, info *models.SocialInfo) error
}

// ApplicationStore submits and reads the review application. Submit is used for
// both the first submission and a resubmission after rejection; the backend
// resets the status to pending either way.
type ApplicationStore interface {
	GetByBusiness(ctx context.Context, businessID string) (*models.Application, error)
	Submit(ctx context.Context, businessID string) (*models.Application, error)
}

// EntityStore groups the four accessors. Creates are not idempotent; callers
// consult the completeness vector before creating.
type EntityStore struct {
	Business    BusinessStore
	Legal       LegalStore
	Social      SocialStore
	Application ApplicationStore
}
