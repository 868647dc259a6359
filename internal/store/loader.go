package store

import (
	"context"
	stderrors "errors"
	"sync"

	"seller-onboarding/internal/common/errors"
	"seller-onboarding/internal/models"
)

// LoadResult is one fan-out fetch. Snapshot fields are nil for absent or failed
// entities; the per-entity errors keep failures distinguishable from absence.
// NotFound is never recorded as an error.
type LoadResult struct {
	Snapshot       models.Snapshot
	BusinessErr    error
	LegalErr       error
	SocialErr      error
	ApplicationErr error
}

// Fatal returns the error that must fail the whole load: any Business failure,
// or an Unauthorized response from any accessor.
func (r *LoadResult) Fatal() error {
	if r.BusinessErr != nil {
		return r.BusinessErr
	}
	for _, err := range []error{r.LegalErr, r.SocialErr, r.ApplicationErr} {
		if stderrors.Is(err, errors.ErrUnauthorized) {
			return err
		}
	}
	return nil
}

// Load resolves the user's business and then fetches the business detail,
// legal, social and application records concurrently, joining all four.
func Load(ctx context.Context, es EntityStore, userID string) *LoadResult {
	res := &LoadResult{}

	ref, err := es.Business.GetByUser(ctx, userID)
	if err != nil {
		if !errors.IsAbsent(err) {
			res.BusinessErr = err
		}
		return res
	}
	if ref == nil || ref.ID == "" {
		return res
	}

	return LoadBusiness(ctx, es, ref.ID)
}

// LoadBusiness fetches the four entities for a known business ID.
func LoadBusiness(ctx context.Context, es EntityStore, businessID string) *LoadResult {
	res := &LoadResult{}

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		b, err := es.Business.Get(ctx, businessID)
		res.Snapshot.Business, res.BusinessErr = keep(b, err)
	}()
	go func() {
		defer wg.Done()
		l, err := es.Legal.Get(ctx, businessID)
		res.Snapshot.Legal, res.LegalErr = keep(l, err)
	}()
	go func() {
		defer wg.Done()
		s, err := es.Social.Get(ctx, businessID)
		res.Snapshot.Social, res.SocialErr = keep(s, err)
	}()
	go func() {
		defer wg.Done()
		a, err := es.Application.GetByBusiness(ctx, businessID)
		res.Snapshot.Application, res.ApplicationErr = keep(a, err)
	}()

	wg.Wait()
	return res
}

// keep folds NotFound into absence and drops the value on any other failure.
func keep[T any](v *T, err error) (*T, error) {
	switch {
	case err == nil:
		return v, nil
	case errors.IsAbsent(err):
		return nil, nil
	default:
		return nil, err
	}
}
