package onboarding

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"seller-onboarding/internal/audit"
	"seller-onboarding/internal/cache"
	"seller-onboarding/internal/common/errors"
	"seller-onboarding/internal/common/logger"
	"seller-onboarding/internal/common/metrics"
	"seller-onboarding/internal/models"
	"seller-onboarding/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Deps are the collaborators of a Controller. Cache, Audit and Logger default
// to in-memory, no-op and silent implementations.
type Deps struct {
	Store       store.EntityStore
	Cache       cache.Cache
	Audit       audit.Recorder
	Logger      logger.Logger
	DurableSkip bool
}

// Controller drives one user's wizard. Operations are serialised; Dispose may
// be called from any goroutine and aborts whatever is in flight.
type Controller struct {
	store       store.EntityStore
	cache       cache.Cache
	audit       audit.Recorder
	logger      logger.Logger
	submitter   *SubmissionManager
	durableSkip bool
	tracer      trace.Tracer

	opMu sync.Mutex

	stateMu   sync.RWMutex
	state     WizardState
	loaded    bool
	localSkip models.SkipFlags

	life     context.Context
	kill     context.CancelFunc
	disposed atomic.Bool
}

func NewController(d Deps) *Controller {
	if d.Cache == nil {
		d.Cache = cache.NewMemory()
	}
	if d.Audit == nil {
		d.Audit = audit.Noop{}
	}
	if d.Logger == nil {
		d.Logger = logger.NewNoOpLogger()
	}
	log := d.Logger.WithFields(map[string]interface{}{"component": "wizard"})
	life, kill := context.WithCancel(context.Background())

	return &Controller{
		store:       d.Store,
		cache:       d.Cache,
		audit:       d.Audit,
		logger:      log,
		submitter:   NewSubmissionManager(d.Store.Application, d.Cache, d.Logger),
		durableSkip: d.DurableSkip,
		tracer:      otel.Tracer("seller-onboarding/onboarding"),
		state:       defaultState(""),
		life:        life,
		kill:        kill,
	}
}

// State returns the current wizard state.
func (c *Controller) State() WizardState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Dispose stops the controller. Operations still in flight return
// CONTROLLER_DISPOSED and leave state and cache untouched.
func (c *Controller) Dispose() {
	if c.disposed.CompareAndSwap(false, true) {
		c.kill()
	}
}

// LoadForUser fetches the four entities, resolves the step and writes the
// advisory identifiers to the cache. It never blocks the user from starting:
// on any failure the state is step 1 with no business, and the error is
// returned alongside it.
func (c *Controller) LoadForUser(ctx context.Context, userID string) (WizardState, error) {
	ctx, span := c.tracer.Start(ctx, "onboarding.LoadForUser", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	ctx, done, err := c.begin(ctx, "loadForUser")
	if err != nil {
		return c.State(), err
	}
	defer done()

	c.opMu.Lock()
	defer c.opMu.Unlock()

	st, err := c.load(ctx, userID)
	c.observe(span, "Load", err)
	return st, err
}

// Dispatch applies one wizard action.
func (c *Controller) Dispatch(ctx context.Context, action Action) (WizardState, error) {
	if action == nil {
		return c.State(), errors.NewInvalidStepError(0, "no action given")
	}
	ctx, span := c.tracer.Start(ctx, "onboarding.Dispatch", trace.WithAttributes(attribute.String("action", action.Kind())))
	defer span.End()

	ctx, done, err := c.begin(ctx, action.Kind())
	if err != nil {
		return c.State(), err
	}
	defer done()

	c.opMu.Lock()
	defer c.opMu.Unlock()

	st, err := c.apply(ctx, action)
	if err != nil && c.disposed.Load() {
		err = errors.NewDisposedError(action.Kind())
	}
	c.observe(span, action.Kind(), err)
	return st, err
}

// CompleteStep maps a step number and payload onto an action. A nil payload
// for step 2 or 3 skips the step.
func (c *Controller) CompleteStep(ctx context.Context, step Step, payload interface{}) (WizardState, error) {
	action, err := actionFor(step, payload)
	if err != nil {
		return c.State(), err
	}
	return c.Dispatch(ctx, action)
}

// GoBack moves one step back, never below step 1. Remote writes already made
// stay in place.
func (c *Controller) GoBack(ctx context.Context) (WizardState, error) {
	return c.Dispatch(ctx, GoBack{})
}

func actionFor(step Step, payload interface{}) (Action, error) {
	switch step {
	case StepBasic:
		switch p := payload.(type) {
		case models.Business:
			return CompleteBasic{Business: p}, nil
		case *models.Business:
			if p != nil {
				return CompleteBasic{Business: *p}, nil
			}
		}
		return nil, errors.NewInvalidStepError(int(step), "step 1 requires business details")
	case StepLegal:
		switch p := payload.(type) {
		case nil:
			return SkipLegal{}, nil
		case models.LegalInfo:
			return CompleteLegal{Legal: p}, nil
		case *models.LegalInfo:
			if p == nil {
				return SkipLegal{}, nil
			}
			return CompleteLegal{Legal: *p}, nil
		}
	case StepSocial:
		switch p := payload.(type) {
		case nil:
			return SkipSocial{}, nil
		case models.SocialInfo:
			return CompleteSocial{Social: p}, nil
		case *models.SocialInfo:
			if p == nil {
				return SkipSocial{}, nil
			}
			return CompleteSocial{Social: *p}, nil
		}
	case StepReview:
		return Submit{}, nil
	}
	return nil, errors.NewInvalidStepError(int(step), fmt.Sprintf("unsupported payload %T", payload))
}

// begin derives an operation context that is cancelled when the controller is
// disposed.
func (c *Controller) begin(ctx context.Context, op string) (context.Context, func(), error) {
	if c.disposed.Load() {
		return nil, nil, errors.NewDisposedError(op)
	}
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}, nil
}

func (c *Controller) observe(span trace.Span, op string, err error) {
	result := "ok"
	if err != nil {
		result = string(errors.AsStandardError(err).Code)
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}
	metrics.WizardActions.WithLabelValues(op, result).Inc()
}

// effect is what a finished operation writes outside the state.
type effect struct {
	clearCache bool
	saveCache  bool
	localSkip  *models.SkipFlags
	events     []audit.Event
}

// commit installs st and applies eff unless the controller was disposed while
// the operation ran.
func (c *Controller) commit(ctx context.Context, op string, st WizardState, eff effect) error {
	if c.disposed.Load() {
		return errors.NewDisposedError(op)
	}

	c.stateMu.Lock()
	c.state = st
	c.loaded = true
	if eff.localSkip != nil {
		c.localSkip = *eff.localSkip
	}
	c.stateMu.Unlock()

	metrics.StepResolutions.WithLabelValues(resolutionLabel(st)).Inc()

	if eff.clearCache {
		if err := c.cache.Clear(ctx, st.UserID); err != nil {
			c.logger.Warn("cache clear failed", map[string]interface{}{"userId": st.UserID, "error": err})
		}
	}
	if eff.saveCache {
		if err := c.cache.Save(ctx, st.UserID, entryFor(st)); err != nil {
			c.logger.Warn("cache write failed", map[string]interface{}{"userId": st.UserID, "error": err})
		}
	}
	for _, e := range eff.events {
		if err := c.audit.Record(ctx, e); err != nil {
			c.logger.Warn("audit insert failed", map[string]interface{}{
				"userId": e.UserID,
				"event":  string(e.Type),
				"error":  err,
			})
		}
	}
	return nil
}

func resolutionLabel(st WizardState) string {
	if st.Terminal {
		return string(st.Status)
	}
	return fmt.Sprintf("step%d", st.Step)
}

func entryFor(st WizardState) cache.Entry {
	e := cache.Entry{
		BusinessID:    st.BusinessID,
		ApplicationID: st.ApplicationID,
		Skipped:       st.Skipped,
	}
	if st.Status != models.StatusNone {
		e.SellerStatus = st.Status
	}
	return e
}

// load is LoadForUser without locking or tracing.
func (c *Controller) load(ctx context.Context, userID string) (WizardState, error) {
	localSkip := c.currentLocalSkip(userID)

	st, eff, loadErr := c.fetch(ctx, userID, localSkip)
	eff.localSkip = &localSkip
	if err := c.commit(ctx, "loadForUser", st, eff); err != nil {
		return c.State(), err
	}
	if loadErr != nil {
		c.logger.Error("wizard load failed, starting at step 1", map[string]interface{}{
			"userId": userID,
			"error":  loadErr,
		})
		return st, loadErr
	}

	c.logger.Info("wizard loaded", map[string]interface{}{
		"userId":     userID,
		"businessId": st.BusinessID,
		"step":       int(st.Step),
		"status":     string(st.Status),
		"editMode":   st.EditMode,
	})
	return st, nil
}

// currentLocalSkip returns the in-memory skip flags, reset when the controller
// switches to another user.
func (c *Controller) currentLocalSkip(userID string) models.SkipFlags {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	if c.state.UserID != userID {
		return models.SkipFlags{}
	}
	return c.localSkip
}

// fetch builds the state for userID from the remote entities.
func (c *Controller) fetch(ctx context.Context, userID string, localSkip models.SkipFlags) (WizardState, effect, error) {
	res := store.Load(ctx, c.store, userID)
	if err := res.Fatal(); err != nil {
		return defaultState(userID), effect{}, err
	}

	snap := res.Snapshot
	if snap.Business == nil {
		return defaultState(userID), effect{clearCache: true}, nil
	}
	if snap.Business.UserID != userID {
		return c.denied(userID, snap.Business.ID)
	}

	if res.LegalErr != nil {
		c.logger.Warn("legal info fetch failed, treating as absent", map[string]interface{}{"userId": userID, "error": res.LegalErr})
	}
	if res.SocialErr != nil {
		c.logger.Warn("social info fetch failed, treating as absent", map[string]interface{}{"userId": userID, "error": res.SocialErr})
	}
	if res.ApplicationErr != nil {
		app, ok := c.cachedApplication(ctx, userID, snap.Business.ID)
		if !ok {
			return defaultState(userID), effect{}, res.ApplicationErr
		}
		c.logger.Warn("application fetch failed, using cached seller status", map[string]interface{}{
			"userId": userID,
			"status": string(app.Status),
			"error":  res.ApplicationErr,
		})
		metrics.CacheFallbacks.Inc()
		snap.Application = app
	}

	st := buildState(userID, snap, c.skipFlags(snap.Business, localSkip))
	return st, effect{saveCache: true}, nil
}

// denied produces the safe default after an ownership mismatch.
func (c *Controller) denied(userID, businessID string) (WizardState, effect, error) {
	c.logger.Error("business ownership mismatch", map[string]interface{}{
		"userId":     userID,
		"businessId": businessID,
	})
	return defaultState(userID), effect{
		clearCache: true,
		localSkip:  &models.SkipFlags{},
		events: []audit.Event{{
			Type:       audit.EventAccessDenied,
			UserID:     userID,
			BusinessID: businessID,
		}},
	}, errors.NewAccessDeniedError(userID, businessID)
}

// cachedApplication rebuilds a minimal application from the cache, only when
// the cache belongs to the same business and knows a status.
func (c *Controller) cachedApplication(ctx context.Context, userID, businessID string) (*models.Application, bool) {
	e, err := c.cache.Get(ctx, userID)
	if err != nil {
		c.logger.Warn("cache read failed", map[string]interface{}{"userId": userID, "error": err})
		return nil, false
	}
	if e.BusinessID != businessID || e.SellerStatus == "" || e.SellerStatus == models.StatusNone {
		return nil, false
	}
	return &models.Application{
		ID:         e.ApplicationID,
		BusinessID: businessID,
		Status:     e.SellerStatus,
	}, true
}

func (c *Controller) skipFlags(b *models.Business, localSkip models.SkipFlags) models.SkipFlags {
	if c.durableSkip && b != nil {
		return b.Skipped
	}
	return localSkip
}

// apply runs one action against the current state.
func (c *Controller) apply(ctx context.Context, action Action) (WizardState, error) {
	cur := c.State()

	if _, ok := action.(Reload); ok {
		if cur.UserID == "" {
			return cur, errors.NewInvalidStepError(0, "wizard not loaded")
		}
		return c.load(ctx, cur.UserID)
	}

	c.stateMu.RLock()
	loaded := c.loaded
	localSkip := c.localSkip
	c.stateMu.RUnlock()

	step := stepOf(action)
	if !loaded {
		return cur, errors.NewInvalidStepError(int(step), "wizard not loaded")
	}
	if cur.Terminal || !AllowsWrites(cur.Status) {
		return cur, errors.NewTerminalStateError(string(cur.Status))
	}

	if _, ok := action.(GoBack); ok {
		next := cur
		if next.Step > StepBasic {
			next.Step--
		}
		if err := c.commit(ctx, action.Kind(), next, effect{}); err != nil {
			return cur, err
		}
		return next, nil
	}

	// A rejected application has every step prefilled and each write is an
	// update, so edit mode accepts any step. Otherwise the seller cannot act
	// ahead of the resolved step.
	if step > cur.Step && !cur.EditMode {
		return cur, errors.NewInvalidStepError(int(step), fmt.Sprintf("current step is %d", cur.Step))
	}

	switch a := action.(type) {
	case CompleteBasic:
		return c.completeBasic(ctx, cur, a.Business)
	case CompleteLegal:
		return c.completeLegal(ctx, cur, a.Legal)
	case CompleteSocial:
		return c.completeSocial(ctx, cur, a.Social)
	case SkipLegal:
		return c.skip(ctx, cur, StepLegal, localSkip)
	case SkipSocial:
		return c.skip(ctx, cur, StepSocial, localSkip)
	case Submit:
		return c.submit(ctx, cur)
	}
	return cur, errors.NewInvalidStepError(int(step), fmt.Sprintf("unknown action %s", action.Kind()))
}

// owner refetches the business and checks it belongs to the current user. A
// nil business with a nil error means there is none. With no business known
// yet it looks the user up first, so a business hidden by an earlier failed
// load is updated instead of duplicated.
func (c *Controller) owner(ctx context.Context, cur WizardState) (*models.Business, error) {
	id := cur.BusinessID
	if id == "" {
		ref, err := c.store.Business.GetByUser(ctx, cur.UserID)
		if errors.IsAbsent(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		id = ref.ID
	}

	b, err := c.store.Business.Get(ctx, id)
	if errors.IsAbsent(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if b.UserID != cur.UserID {
		return b, errors.NewAccessDeniedError(cur.UserID, b.ID)
	}
	return b, nil
}

// guard runs the ownership check and turns a mismatch into the safe default.
func (c *Controller) guard(ctx context.Context, cur WizardState, op string) (*models.Business, *WizardState, error) {
	b, err := c.owner(ctx, cur)
	if errors.IsAbsent(err) || err == nil {
		return b, nil, nil
	}
	if !errorsIsAccessDenied(err) {
		return nil, nil, err
	}
	st, eff, deniedErr := c.denied(cur.UserID, b.ID)
	if cerr := c.commit(ctx, op, st, eff); cerr != nil {
		return nil, nil, cerr
	}
	return nil, &st, deniedErr
}

func errorsIsAccessDenied(err error) bool {
	return errors.AsStandardError(err).Code == errors.ErrCodeAccessDenied
}

// missingBusiness resets to step 1 when the business vanished remotely.
func (c *Controller) missingBusiness(ctx context.Context, cur WizardState, op string) (WizardState, error) {
	st := defaultState(cur.UserID)
	if err := c.commit(ctx, op, st, effect{clearCache: true}); err != nil {
		return cur, err
	}
	return st, errors.NewIncompleteBusinessError(cur.BusinessID)
}

func (c *Controller) completeBasic(ctx context.Context, cur WizardState, b models.Business) (WizardState, error) {
	const op = "CompleteBasic"
	normalizeBusiness(&b)
	if errs := ValidateBusiness(&b); len(errs) > 0 {
		return cur, errors.NewValidationError(int(StepBasic), errs)
	}

	existing, denied, err := c.guard(ctx, cur, op)
	if denied != nil {
		return *denied, err
	}
	if err != nil {
		return cur, err
	}

	b.UserID = cur.UserID
	snap := cur.Prefill
	if existing != nil {
		b.ID = existing.ID
		b.Skipped = existing.Skipped
		if err := c.store.Business.Update(ctx, existing.ID, &b); err != nil {
			return cur, err
		}
		if cur.BusinessID == "" {
			// Found through the lookup guard; the rest of the snapshot is unknown.
			res := store.LoadBusiness(ctx, c.store, existing.ID)
			snap = res.Snapshot
		}
	} else {
		if cur.BusinessID != "" {
			return c.missingBusiness(ctx, cur, op)
		}
		id, err := c.store.Business.Create(ctx, &b)
		if err != nil {
			return cur, err
		}
		b.ID = id
		snap = models.Snapshot{}
	}
	snap.Business = &b

	return c.advance(ctx, cur, op, StepBasic, snap, nil, audit.Event{
		Type:       audit.EventStepCompleted,
		UserID:     cur.UserID,
		BusinessID: b.ID,
		Step:       int(StepBasic),
		Details:    map[string]interface{}{"created": existing == nil},
	})
}

func (c *Controller) completeLegal(ctx context.Context, cur WizardState, l models.LegalInfo) (WizardState, error) {
	const op = "CompleteLegal"
	normalizeLegal(&l)
	if errs := ValidateLegal(&l); len(errs) > 0 {
		return cur, errors.NewValidationError(int(StepLegal), errs)
	}

	biz, denied, err := c.guard(ctx, cur, op)
	if denied != nil {
		return *denied, err
	}
	if err != nil {
		return cur, err
	}
	if biz == nil {
		return c.missingBusiness(ctx, cur, op)
	}

	l.BusinessID = biz.ID
	snap := cur.Prefill
	snap.Business = biz
	if snap.Legal != nil {
		err = c.store.Legal.Update(ctx, biz.ID, &l)
	} else {
		_, err = c.store.Legal.Create(ctx, &l)
	}
	if err != nil {
		return cur, err
	}
	snap.Legal = &l

	return c.advance(ctx, cur, op, StepLegal, snap, nil, audit.Event{
		Type:       audit.EventStepCompleted,
		UserID:     cur.UserID,
		BusinessID: biz.ID,
		Step:       int(StepLegal),
	})
}

func (c *Controller) completeSocial(ctx context.Context, cur WizardState, s models.SocialInfo) (WizardState, error) {
	const op = "CompleteSocial"
	normalizeSocial(&s)
	if errs := ValidateSocial(&s); len(errs) > 0 {
		return cur, errors.NewValidationError(int(StepSocial), errs)
	}

	biz, denied, err := c.guard(ctx, cur, op)
	if denied != nil {
		return *denied, err
	}
	if err != nil {
		return cur, err
	}
	if biz == nil {
		return c.missingBusiness(ctx, cur, op)
	}

	s.BusinessID = biz.ID
	snap := cur.Prefill
	snap.Business = biz
	if snap.Social != nil {
		err = c.store.Social.Update(ctx, biz.ID, &s)
	} else {
		_, err = c.store.Social.Create(ctx, &s)
	}
	if err != nil {
		return cur, err
	}
	snap.Social = &s

	return c.advance(ctx, cur, op, StepSocial, snap, nil, audit.Event{
		Type:       audit.EventStepCompleted,
		UserID:     cur.UserID,
		BusinessID: biz.ID,
		Step:       int(StepSocial),
	})
}

// skip marks step 2 or 3 as skipped. With durable skip the flag is written to
// the business record; otherwise it lives only in this controller and is
// forgotten on the next cold start.
func (c *Controller) skip(ctx context.Context, cur WizardState, step Step, localSkip models.SkipFlags) (WizardState, error) {
	op := "SkipLegal"
	if step == StepSocial {
		op = "SkipSocial"
	}
	event := audit.Event{
		Type:       audit.EventStepSkipped,
		UserID:     cur.UserID,
		BusinessID: cur.BusinessID,
		Step:       int(step),
		Details:    map[string]interface{}{"durable": c.durableSkip},
	}

	if !c.durableSkip {
		if step == StepLegal {
			localSkip.Legal = true
		} else {
			localSkip.Social = true
		}
		return c.advance(ctx, cur, op, step, cur.Prefill, &localSkip, event)
	}

	biz, denied, err := c.guard(ctx, cur, op)
	if denied != nil {
		return *denied, err
	}
	if err != nil {
		return cur, err
	}
	if biz == nil {
		return c.missingBusiness(ctx, cur, op)
	}

	updated := *biz
	if step == StepLegal {
		updated.Skipped.Legal = true
	} else {
		updated.Skipped.Social = true
	}
	if err := c.store.Business.Update(ctx, biz.ID, &updated); err != nil {
		return cur, err
	}

	snap := cur.Prefill
	snap.Business = &updated
	return c.advance(ctx, cur, op, step, snap, nil, event)
}

func (c *Controller) submit(ctx context.Context, cur WizardState) (WizardState, error) {
	const op = "Submit"

	biz, denied, err := c.guard(ctx, cur, op)
	if denied != nil {
		return *denied, err
	}
	if err != nil {
		return cur, err
	}
	if biz == nil {
		return c.missingBusiness(ctx, cur, op)
	}

	snap := cur.Prefill
	snap.Business = biz
	app, err := c.submitter.Submit(ctx, SubmitRequest{
		UserID:       cur.UserID,
		BusinessID:   biz.ID,
		Completeness: EvaluateSnapshot(snap),
		EditMode:     cur.EditMode,
		Skipped:      cur.Skipped,
	})
	if err != nil {
		return cur, err
	}
	snap.Application = app

	return c.advance(ctx, cur, op, StepReview, snap, nil, audit.Event{
		Type:       audit.EventApplicationSubmitted,
		UserID:     cur.UserID,
		BusinessID: biz.ID,
		Step:       int(StepReview),
		Details: map[string]interface{}{
			"applicationId": app.ID,
			"resubmission":  cur.EditMode,
		},
	})
}

// advance re-resolves after a write to step done. The wizard moves at least one
// step forward, and further when later steps are already complete.
func (c *Controller) advance(ctx context.Context, cur WizardState, op string, done Step, snap models.Snapshot, localSkip *models.SkipFlags, event audit.Event) (WizardState, error) {
	skipSource := c.currentLocalSkip(cur.UserID)
	if localSkip != nil {
		skipSource = *localSkip
	}
	st := buildState(cur.UserID, snap, c.skipFlags(snap.Business, skipSource))

	if !st.Terminal {
		next := done + 1
		if st.Step > next {
			next = st.Step
		}
		if next > StepReview {
			next = StepReview
		}
		st.Step = next
	}

	eff := effect{saveCache: true, localSkip: localSkip, events: []audit.Event{event}}
	if op == "Submit" {
		// The submission manager already wrote the pending status.
		eff.saveCache = false
	}
	if err := c.commit(ctx, op, st, eff); err != nil {
		return cur, err
	}

	c.logger.Info("wizard step completed", map[string]interface{}{
		"userId":     st.UserID,
		"businessId": st.BusinessID,
		"action":     op,
		"step":       int(st.Step),
		"terminal":   st.Terminal,
	})
	return st, nil
}
