package onboarding

import (
	"context"
	"time"

	"seller-onboarding/internal/cache"
	"seller-onboarding/internal/common/errors"
	"seller-onboarding/internal/common/logger"
	"seller-onboarding/internal/models"
	"seller-onboarding/internal/store"
)

// StatusUpdate is one observation of the application status.
type StatusUpdate struct {
	Status  models.ApplicationStatus
	Display Display
	At      time.Time
	Err     error
}

// StatusPoller watches a pending application until a reviewer decides it.
type StatusPoller struct {
	store  store.EntityStore
	cache  cache.Cache
	logger logger.Logger
}

func NewStatusPoller(es store.EntityStore, c cache.Cache, log logger.Logger) *StatusPoller {
	if c == nil {
		c = cache.NewMemory()
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &StatusPoller{
		store:  es,
		cache:  c,
		logger: log.WithFields(map[string]interface{}{"component": "status-poller"}),
	}
}

// Watch polls the user's application every interval and calls fn whenever the
// status changes, starting with the first observation. Failed polls are
// reported through fn with Err set and retried on the next tick. Watch returns
// when the status leaves pending, when ctx ends, or when the marketplace
// rejects the credentials.
func (p *StatusPoller) Watch(ctx context.Context, userID string, interval time.Duration, fn func(StatusUpdate)) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	businessID, err := p.businessID(ctx, userID)
	if err != nil {
		return err
	}
	if businessID == "" {
		fn(StatusUpdate{Status: models.StatusNone, Display: Gate(models.StatusNone, ""), At: time.Now()})
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := models.ApplicationStatus("")
	for {
		app, err := p.store.Application.GetByBusiness(ctx, businessID)
		switch {
		case errors.IsAbsent(err):
			fn(StatusUpdate{Status: models.StatusNone, Display: Gate(models.StatusNone, ""), At: time.Now()})
			return nil
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.AsStandardError(err).Code == errors.ErrCodeUnauthorized {
				return err
			}
			p.logger.Warn("status poll failed", map[string]interface{}{
				"userId":     userID,
				"businessId": businessID,
				"error":      err,
			})
			fn(StatusUpdate{Status: last, Display: Gate(last, ""), At: time.Now(), Err: err})
		default:
			status := models.StatusOf(app)
			if status != last {
				last = status
				p.remember(ctx, userID, businessID, app)
				fn(StatusUpdate{Status: status, Display: Gate(status, app.RejectionReason), At: time.Now()})
			}
			if status != models.StatusPending {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// businessID finds the business to watch. A cached ID is used only after the
// marketplace confirms the business still belongs to userID.
func (p *StatusPoller) businessID(ctx context.Context, userID string) (string, error) {
	if e, err := p.cache.Get(ctx, userID); err == nil && e.BusinessID != "" {
		b, err := p.store.Business.Get(ctx, e.BusinessID)
		switch {
		case err == nil && b.UserID == userID:
			return b.ID, nil
		case err == nil:
			p.logger.Warn("cached business belongs to another user", map[string]interface{}{
				"userId":     userID,
				"businessId": e.BusinessID,
			})
		case !errors.IsAbsent(err):
			return "", err
		}
	}
	b, err := p.store.Business.GetByUser(ctx, userID)
	if errors.IsAbsent(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return b.ID, nil
}

// remember refreshes the cached seller status, keeping the other fields.
func (p *StatusPoller) remember(ctx context.Context, userID, businessID string, app *models.Application) {
	e, err := p.cache.Get(ctx, userID)
	if err != nil {
		p.logger.Warn("cache read failed", map[string]interface{}{"userId": userID, "error": err})
		return
	}
	e.BusinessID = businessID
	e.ApplicationID = app.ID
	e.SellerStatus = models.StatusOf(app)
	if err := p.cache.Save(ctx, userID, e); err != nil {
		p.logger.Warn("cache write failed", map[string]interface{}{"userId": userID, "error": err})
	}
}
