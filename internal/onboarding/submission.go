package onboarding

import (
	"context"

	"seller-onboarding/internal/cache"
	"seller-onboarding/internal/common/errors"
	"seller-onboarding/internal/common/logger"
	"seller-onboarding/internal/models"
	"seller-onboarding/internal/store"
)

// SubmissionManager sends the review application. It never retries: a network
// failure goes back to the caller, who offers the retry.
type SubmissionManager struct {
	applications store.ApplicationStore
	cache        cache.Cache
	logger       logger.Logger
}

func NewSubmissionManager(applications store.ApplicationStore, c cache.Cache, log logger.Logger) *SubmissionManager {
	return &SubmissionManager{
		applications: applications,
		cache:        c,
		logger:       log.WithFields(map[string]interface{}{"component": "submission"}),
	}
}

// SubmitRequest carries what the manager needs from the wizard state.
type SubmitRequest struct {
	UserID       string
	BusinessID   string
	Completeness Completeness
	EditMode     bool
	Skipped      models.SkipFlags
}

// Submit creates the application, or resubmits it in edit mode. Only basic
// completeness is required; legal and social are optional here. On success the
// pending status is written to the cache so a cold start knows a review is in
// flight without a network round trip.
func (m *SubmissionManager) Submit(ctx context.Context, req SubmitRequest) (*models.Application, error) {
	if req.BusinessID == "" || !req.Completeness.Basic {
		return nil, errors.NewIncompleteBusinessError(req.BusinessID)
	}
	if req.Completeness.HasApplication && !req.EditMode {
		return nil, errors.NewInvalidStepError(int(StepReview), "application already submitted")
	}

	app, err := m.applications.Submit(ctx, req.BusinessID)
	if err != nil {
		m.logger.Error("application submit failed", map[string]interface{}{
			"userId":     req.UserID,
			"businessId": req.BusinessID,
			"resubmit":   req.EditMode,
			"error":      err,
		})
		return nil, err
	}
	app.Status = models.StatusPending

	// A cancelled caller (disposed controller) must not leave cache writes behind.
	if ctx.Err() != nil {
		return app, nil
	}

	if err := m.cache.Save(ctx, req.UserID, cache.Entry{
		BusinessID:    req.BusinessID,
		ApplicationID: app.ID,
		SellerStatus:  models.StatusPending,
		Skipped:       req.Skipped,
	}); err != nil {
		m.logger.Warn("cache write after submit failed", map[string]interface{}{
			"userId": req.UserID,
			"error":  err,
		})
	}

	m.logger.Info("application submitted", map[string]interface{}{
		"userId":        req.UserID,
		"businessId":    req.BusinessID,
		"applicationId": app.ID,
		"resubmit":      req.EditMode,
	})
	return app, nil
}
