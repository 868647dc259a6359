package onboarding

import (
	"context"
	"sync"
	"testing"
	"time"

	"seller-onboarding/internal/audit"
	"seller-onboarding/internal/cache"
	"seller-onboarding/internal/common/errors"
	"seller-onboarding/internal/common/logger"
	"seller-onboarding/internal/models"
	"seller-onboarding/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = "user-1"

type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAudit) Record(_ context.Context, e audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingAudit) types() []audit.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	mem   *store.Memory
	cache *cache.Memory
	audit *recordingAudit
}

func newHarness() *harness {
	return &harness{
		mem:   store.NewMemory(),
		cache: cache.NewMemory(),
		audit: &recordingAudit{},
	}
}

func (h *harness) controller(t *testing.T, durableSkip bool) *Controller {
	t.Helper()
	c := NewController(Deps{
		Store:       h.mem.EntityStore(),
		Cache:       h.cache,
		Audit:       h.audit,
		Logger:      logger.NewTestLogger(t),
		DurableSkip: durableSkip,
	})
	t.Cleanup(c.Dispose)
	return c
}

func (h *harness) seedBusiness() {
	h.mem.PutBusiness(*completeBusiness())
}

func (h *harness) seedAll(status models.ApplicationStatus) {
	h.seedBusiness()
	h.mem.PutLegal(models.LegalInfo{BusinessID: "biz-1", PAN: "ABCDE1234F"})
	h.mem.PutSocial(models.SocialInfo{BusinessID: "biz-1", Website: "https://acme.in"})
	h.mem.PutApplication(models.Application{ID: "app-1", BusinessID: "biz-1", Status: status, RejectionReason: "PAN mismatch"})
}

func codeOf(err error) errors.ErrorCode {
	return errors.AsStandardError(err).Code
}

func TestLoadForUser_NewSeller(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.cache.Save(context.Background(), testUser, cache.Entry{BusinessID: "stale"}))
	c := h.controller(t, true)

	st, err := c.LoadForUser(context.Background(), testUser)
	require.NoError(t, err)

	assert.Equal(t, StepBasic, st.Step)
	assert.False(t, st.Terminal)
	assert.Empty(t, st.BusinessID)
	assert.Equal(t, models.StatusNone, st.Status)
	assert.Equal(t, ActionStartApplication, st.Display.Action)

	e, _ := h.cache.Get(context.Background(), testUser)
	assert.True(t, e.IsZero())
}

func TestLoadForUser_Resolution(t *testing.T) {
	tests := []struct {
		name         string
		seed         func(h *harness)
		wantStep     Step
		wantTerminal models.ApplicationStatus
		wantEdit     bool
	}{
		{
			name:     "business only",
			seed:     func(h *harness) { h.seedBusiness() },
			wantStep: StepLegal,
		},
		{
			name: "legal done",
			seed: func(h *harness) {
				h.seedBusiness()
				h.mem.PutLegal(models.LegalInfo{BusinessID: "biz-1", GST: "29ABCDE1234F1Z5"})
			},
			wantStep: StepSocial,
		},
		{
			name: "legal skipped durably",
			seed: func(h *harness) {
				b := completeBusiness()
				b.Skipped.Legal = true
				h.mem.PutBusiness(*b)
			},
			wantStep: StepSocial,
		},
		{
			name: "all present no application",
			seed: func(h *harness) {
				h.seedBusiness()
				h.mem.PutLegal(models.LegalInfo{BusinessID: "biz-1", PAN: "ABCDE1234F"})
				h.mem.PutSocial(models.SocialInfo{BusinessID: "biz-1", LinkedIn: "https://linkedin.com/company/acme"})
			},
			wantStep: StepReview,
		},
		{
			name:         "pending",
			seed:         func(h *harness) { h.seedAll(models.StatusPending) },
			wantTerminal: models.StatusPending,
		},
		{
			name:         "approved",
			seed:         func(h *harness) { h.seedAll(models.StatusApproved) },
			wantTerminal: models.StatusApproved,
		},
		{
			name:     "rejected",
			seed:     func(h *harness) { h.seedAll(models.StatusRejected) },
			wantStep: StepBasic,
			wantEdit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			tt.seed(h)
			c := h.controller(t, true)

			st, err := c.LoadForUser(context.Background(), testUser)
			require.NoError(t, err)

			if tt.wantTerminal != "" {
				assert.True(t, st.Terminal)
				assert.Equal(t, tt.wantTerminal, st.Status)
			} else {
				assert.False(t, st.Terminal)
				assert.Equal(t, tt.wantStep, st.Step)
			}
			assert.Equal(t, tt.wantEdit, st.EditMode)
			assert.Equal(t, "biz-1", st.BusinessID)

			e, err := h.cache.Get(context.Background(), testUser)
			require.NoError(t, err)
			assert.Equal(t, "biz-1", e.BusinessID)
		})
	}
}

func TestLoadForUser_Idempotent(t *testing.T) {
	h := newHarness()
	h.seedAll(models.StatusRejected)
	c := h.controller(t, true)

	first, err := c.LoadForUser(context.Background(), testUser)
	require.NoError(t, err)
	second, err := c.LoadForUser(context.Background(), testUser)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLoadForUser_ApprovedShowsRedirect(t *testing.T) {
	h := newHarness()
	h.seedAll(models.StatusApproved)
	c := h.controller(t, true)

	st, err := c.LoadForUser(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, ActionGoToDashboard, st.Display.Action)
	assert.Equal(t, ApprovedRedirectDelay, st.Display.RedirectAfter)

	e, _ := h.cache.Get(context.Background(), testUser)
	assert.Equal(t, models.StatusApproved, e.SellerStatus)
	assert.Equal(t, "app-1", e.ApplicationID)
}

func TestLoadForUser_OwnershipMismatch(t *testing.T) {
	h := newHarness()
	h.seedBusiness()
	b := completeBusiness()
	b.UserID = "user-2"
	h.mem.PutBusiness(*b)
	require.NoError(t, h.cache.Save(context.Background(), testUser, cache.Entry{BusinessID: "biz-1"}))
	c := h.controller(t, true)

	st, err := c.LoadForUser(context.Background(), testUser)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAccessDenied, codeOf(err))

	assert.Equal(t, defaultState(testUser), st)
	e, _ := h.cache.Get(context.Background(), testUser)
	assert.True(t, e.IsZero())
	assert.Equal(t, []audit.EventType{audit.EventAccessDenied}, h.audit.types())
}

func TestLoadForUser_FetchFailures(t *testing.T) {
	t.Run("business lookup fails", func(t *testing.T) {
		h := newHarness()
		h.seedBusiness()
		h.mem.Fail(store.OpBusinessGetByUser, errors.NewNetworkError("business get by user", nil))
		require.NoError(t, h.cache.Save(context.Background(), testUser, cache.Entry{BusinessID: "biz-1"}))
		c := h.controller(t, true)

		st, err := c.LoadForUser(context.Background(), testUser)
		require.Error(t, err)
		assert.True(t, errors.IsTransient(err))
		assert.Equal(t, StepBasic, st.Step)
		assert.Empty(t, st.BusinessID)

		e, _ := h.cache.Get(context.Background(), testUser)
		assert.Equal(t, "biz-1", e.BusinessID, "cache is left alone on failure")
	})

	t.Run("legal fetch fails is treated as absent", func(t *testing.T) {
		h := newHarness()
		h.seedBusiness()
		h.mem.PutLegal(models.LegalInfo{BusinessID: "biz-1", PAN: "ABCDE1234F"})
		h.mem.Fail(store.OpLegalGet, errors.NewTimeoutError("legal get", nil))
		c := h.controller(t, true)

		st, err := c.LoadForUser(context.Background(), testUser)
		require.NoError(t, err)
		assert.Equal(t, StepLegal, st.Step)
	})

	t.Run("application fetch fails with cached status", func(t *testing.T) {
		h := newHarness()
		h.seedAll(models.StatusApproved)
		h.mem.Fail(store.OpApplicationGet, errors.NewNetworkError("application get", nil))
		require.NoError(t, h.cache.Save(context.Background(), testUser, cache.Entry{
			BusinessID:    "biz-1",
			ApplicationID: "app-1",
			SellerStatus:  models.StatusApproved,
		}))
		c := h.controller(t, true)

		st, err := c.LoadForUser(context.Background(), testUser)
		require.NoError(t, err)
		assert.True(t, st.Terminal)
		assert.Equal(t, models.StatusApproved, st.Status)
		assert.Equal(t, "app-1", st.ApplicationID)
	})

	t.Run("application fetch fails with cache for another business", func(t *testing.T) {
		h := newHarness()
		h.seedAll(models.StatusApproved)
		h.mem.Fail(store.OpApplicationGet, errors.NewNetworkError("application get", nil))
		require.NoError(t, h.cache.Save(context.Background(), testUser, cache.Entry{
			BusinessID:   "biz-old",
			SellerStatus: models.StatusApproved,
		}))
		c := h.controller(t, true)

		st, err := c.LoadForUser(context.Background(), testUser)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeNetwork, codeOf(err))
		assert.Equal(t, StepBasic, st.Step)
		assert.False(t, st.Terminal)
	})

	t.Run("unauthorized on optional fetch fails the load", func(t *testing.T) {
		h := newHarness()
		h.seedBusiness()
		h.mem.Fail(store.OpSocialGet, errors.NewUnauthorizedError("token expired"))
		c := h.controller(t, true)

		_, err := c.LoadForUser(context.Background(), testUser)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeUnauthorized, codeOf(err))
	})
}

func TestWizard_HappyPath(t *testing.T) {
	h := newHarness()
	c := h.controller(t, true)
	ctx := context.Background()

	_, err := c.LoadForUser(ctx, testUser)
	require.NoError(t, err)

	st, err := c.Dispatch(ctx, CompleteBasic{Business: models.Business{
		Name:    " Acme Traders ",
		Email:   "owner@acme.in",
		Phone:   "+91 98765-43210",
		Address: "12 MG Road",
	}})
	require.NoError(t, err)
	assert.Equal(t, StepLegal, st.Step)
	require.NotEmpty(t, st.BusinessID)
	assert.Equal(t, "Acme Traders", st.Prefill.Business.Name)
	assert.Equal(t, testUser, st.Prefill.Business.UserID)
	assert.Equal(t, 1, h.mem.Calls(store.OpBusinessCreate))

	st, err = c.Dispatch(ctx, CompleteLegal{Legal: models.LegalInfo{PAN: "abcde1234f"}})
	require.NoError(t, err)
	assert.Equal(t, StepSocial, st.Step)
	assert.Equal(t, "ABCDE1234F", st.Prefill.Legal.PAN)

	st, err = c.Dispatch(ctx, SkipSocial{})
	require.NoError(t, err)
	assert.Equal(t, StepReview, st.Step)
	assert.True(t, st.Skipped.Social)

	st, err = c.Dispatch(ctx, Submit{})
	require.NoError(t, err)
	assert.True(t, st.Terminal)
	assert.Equal(t, models.StatusPending, st.Status)
	assert.False(t, st.EditMode)
	assert.True(t, st.Display.LockedFields)
	require.NotEmpty(t, st.ApplicationID)

	e, _ := h.cache.Get(ctx, testUser)
	assert.Equal(t, models.StatusPending, e.SellerStatus)
	assert.Equal(t, st.ApplicationID, e.ApplicationID)

	assert.Equal(t, []audit.EventType{
		audit.EventStepCompleted,
		audit.EventStepCompleted,
		audit.EventStepSkipped,
		audit.EventApplicationSubmitted,
	}, h.audit.types())

	// A cold start lands on the same terminal state.
	fresh := h.controller(t, true)
	again, err := fresh.LoadForUser(ctx, testUser)
	require.NoError(t, err)
	assert.True(t, again.Terminal)
	assert.Equal(t, models.StatusPending, again.Status)
}

func TestWizard_RejectedResubmission(t *testing.T) {
	h := newHarness()
	h.seedAll(models.StatusRejected)
	c := h.controller(t, true)
	ctx := context.Background()

	st, err := c.LoadForUser(ctx, testUser)
	require.NoError(t, err)
	require.True(t, st.EditMode)
	assert.Equal(t, "ABCDE1234F", st.Prefill.Legal.PAN)
	assert.Contains(t, st.Display.Message, "PAN mismatch")

	b := *st.Prefill.Business
	b.Name = "Acme Traders Pvt Ltd"
	st, err = c.Dispatch(ctx, CompleteBasic{Business: b})
	require.NoError(t, err)
	assert.Equal(t, StepLegal, st.Step, "edit mode walks every step")
	assert.True(t, st.EditMode)

	st, err = c.Dispatch(ctx, CompleteLegal{Legal: models.LegalInfo{PAN: "ABCDE1234G"}})
	require.NoError(t, err)
	assert.Equal(t, StepSocial, st.Step)

	st, err = c.Dispatch(ctx, CompleteSocial{Social: *st.Prefill.Social})
	require.NoError(t, err)
	assert.Equal(t, StepReview, st.Step)

	st, err = c.Dispatch(ctx, Submit{})
	require.NoError(t, err)
	assert.True(t, st.Terminal)
	assert.Equal(t, models.StatusPending, st.Status)
	assert.False(t, st.EditMode)
	assert.Equal(t, "app-1", st.ApplicationID, "resubmission keeps the application")

	assert.Equal(t, 0, h.mem.Calls(store.OpBusinessCreate))
	assert.Equal(t, 0, h.mem.Calls(store.OpLegalCreate))
	assert.Equal(t, 1, h.mem.Calls(store.OpLegalUpdate))
	assert.Equal(t, 1, h.mem.Calls(store.OpSocialUpdate))
}

func TestWizard_RejectedResubmissionAcrossControllers(t *testing.T) {
	h := newHarness()
	h.seedAll(models.StatusRejected)
	ctx := context.Background()

	// Each action runs on a fresh controller, the way the job workers and the
	// CLI drive the wizard.
	run := func(action Action) WizardState {
		t.Helper()
		c := h.controller(t, true)
		loaded, err := c.LoadForUser(ctx, testUser)
		require.NoError(t, err)
		require.Equal(t, StepBasic, loaded.Step)
		require.True(t, loaded.EditMode)

		st, err := c.Dispatch(ctx, action)
		require.NoError(t, err)
		return st
	}

	st := run(CompleteBasic{Business: *completeBusiness()})
	assert.Equal(t, StepLegal, st.Step)

	st = run(CompleteLegal{Legal: models.LegalInfo{PAN: "ABCDE1234G"}})
	assert.Equal(t, StepSocial, st.Step)

	st = run(CompleteSocial{Social: models.SocialInfo{Website: "https://acme.co.in"}})
	assert.Equal(t, StepReview, st.Step)

	st = run(Submit{})
	assert.True(t, st.Terminal)
	assert.Equal(t, models.StatusPending, st.Status)
	assert.Equal(t, "app-1", st.ApplicationID)

	assert.Equal(t, 1, h.mem.Calls(store.OpLegalUpdate))
	assert.Equal(t, 1, h.mem.Calls(store.OpSocialUpdate))
	assert.Zero(t, h.mem.Calls(store.OpLegalCreate))
}

func TestWizard_TerminalStatesRejectWrites(t *testing.T) {
	actions := []Action{
		CompleteBasic{Business: *completeBusiness()},
		CompleteLegal{Legal: models.LegalInfo{PAN: "ABCDE1234F"}},
		SkipSocial{},
		Submit{},
		GoBack{},
	}

	for _, status := range []models.ApplicationStatus{models.StatusPending, models.StatusApproved} {
		for _, action := range actions {
			t.Run(string(status)+"/"+action.Kind(), func(t *testing.T) {
				h := newHarness()
				h.seedAll(status)
				c := h.controller(t, true)

				before, err := c.LoadForUser(context.Background(), testUser)
				require.NoError(t, err)
				gets := h.mem.Calls(store.OpBusinessGet)

				st, err := c.Dispatch(context.Background(), action)
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeTerminalState, codeOf(err))
				assert.Equal(t, before, st)

				assert.Equal(t, gets, h.mem.Calls(store.OpBusinessGet))
				assert.Zero(t, h.mem.Calls(store.OpBusinessUpdate))
				assert.Zero(t, h.mem.Calls(store.OpApplicationSubmit))
			})
		}
	}
}

func TestWizard_Guards(t *testing.T) {
	t.Run("not loaded", func(t *testing.T) {
		h := newHarness()
		c := h.controller(t, true)
		_, err := c.Dispatch(context.Background(), SkipLegal{})
		assert.Equal(t, errors.ErrCodeInvalidStep, codeOf(err))
	})

	t.Run("nil action", func(t *testing.T) {
		h := newHarness()
		c := h.controller(t, true)
		st, err := c.Dispatch(context.Background(), nil)
		assert.Equal(t, errors.ErrCodeInvalidStep, codeOf(err))
		assert.Equal(t, c.State(), st)
	})

	t.Run("step ahead of current", func(t *testing.T) {
		h := newHarness()
		h.seedBusiness()
		c := h.controller(t, true)
		_, err := c.LoadForUser(context.Background(), testUser)
		require.NoError(t, err)

		_, err = c.Dispatch(context.Background(), CompleteSocial{Social: models.SocialInfo{Website: "https://acme.in"}})
		assert.Equal(t, errors.ErrCodeInvalidStep, codeOf(err))

		_, err = c.Dispatch(context.Background(), Submit{})
		assert.Equal(t, errors.ErrCodeInvalidStep, codeOf(err))
		assert.Zero(t, h.mem.Calls(store.OpApplicationSubmit))
	})

	t.Run("validation never reaches the network", func(t *testing.T) {
		h := newHarness()
		c := h.controller(t, true)
		_, err := c.LoadForUser(context.Background(), testUser)
		require.NoError(t, err)
		lookups := h.mem.Calls(store.OpBusinessGetByUser)

		bad := *completeBusiness()
		bad.Email = "owner-at-acme"
		st, err := c.Dispatch(context.Background(), CompleteBasic{Business: bad})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeValidationFailed, codeOf(err))
		assert.Equal(t, "email", errors.AsStandardError(err).Fields[0].Field)
		assert.Equal(t, StepBasic, st.Step)

		assert.Equal(t, lookups, h.mem.Calls(store.OpBusinessGetByUser))
		assert.Zero(t, h.mem.Calls(store.OpBusinessCreate))
	})

	t.Run("network failure leaves state unchanged", func(t *testing.T) {
		h := newHarness()
		h.seedBusiness()
		c := h.controller(t, true)
		before, err := c.LoadForUser(context.Background(), testUser)
		require.NoError(t, err)

		h.mem.Fail(store.OpLegalCreate, errors.NewNetworkError("legal create", nil))
		st, err := c.Dispatch(context.Background(), CompleteLegal{Legal: models.LegalInfo{PAN: "ABCDE1234F"}})
		require.Error(t, err)
		assert.True(t, errors.IsTransient(err))
		assert.Equal(t, before, st)
		assert.Equal(t, before, c.State())
		assert.Empty(t, h.audit.types())
	})
}

func TestWizard_OwnershipCheckedBeforeWrite(t *testing.T) {
	h := newHarness()
	h.seedBusiness()
	c := h.controller(t, true)
	_, err := c.LoadForUser(context.Background(), testUser)
	require.NoError(t, err)

	b := completeBusiness()
	b.UserID = "user-2"
	h.mem.PutBusiness(*b)

	st, err := c.Dispatch(context.Background(), CompleteLegal{Legal: models.LegalInfo{PAN: "ABCDE1234F"}})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAccessDenied, codeOf(err))
	assert.Equal(t, defaultState(testUser), st)
	assert.Zero(t, h.mem.Calls(store.OpLegalCreate))

	e, _ := h.cache.Get(context.Background(), testUser)
	assert.True(t, e.IsZero())
	assert.Equal(t, []audit.EventType{audit.EventAccessDenied}, h.audit.types())
}

func TestWizard_BusinessVanished(t *testing.T) {
	h := newHarness()
	h.seedBusiness()
	c := h.controller(t, true)
	_, err := c.LoadForUser(context.Background(), testUser)
	require.NoError(t, err)

	h.mem.Fail(store.OpBusinessGet, errors.NewNotFoundError("business", "biz-1"))
	st, err := c.Dispatch(context.Background(), SkipLegal{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeIncompleteBusiness, codeOf(err))
	assert.Equal(t, StepBasic, st.Step)
	assert.Empty(t, st.BusinessID)
}

func TestWizard_CreateGuardFindsHiddenBusiness(t *testing.T) {
	h := newHarness()
	h.seedBusiness()
	h.mem.PutLegal(models.LegalInfo{BusinessID: "biz-1", MSME: "UDYAM-1"})
	c := h.controller(t, true)

	h.mem.Fail(store.OpBusinessGetByUser, errors.NewTimeoutError("business get by user", nil))
	_, err := c.LoadForUser(context.Background(), testUser)
	require.Error(t, err)
	h.mem.Fail(store.OpBusinessGetByUser, nil)

	st, err := c.Dispatch(context.Background(), CompleteBasic{Business: *completeBusiness()})
	require.NoError(t, err)
	assert.Zero(t, h.mem.Calls(store.OpBusinessCreate))
	assert.Equal(t, 1, h.mem.Calls(store.OpBusinessUpdate))
	assert.Equal(t, "biz-1", st.BusinessID)
	assert.Equal(t, StepSocial, st.Step, "existing legal info is picked up")
}

func TestWizard_SkipDurability(t *testing.T) {
	tests := []struct {
		name        string
		durable     bool
		wantUpdates int
		wantResume  Step
	}{
		{name: "durable skip survives a cold start", durable: true, wantUpdates: 1, wantResume: StepSocial},
		{name: "local skip is forgotten on a cold start", durable: false, wantUpdates: 0, wantResume: StepLegal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.seedBusiness()
			ctx := context.Background()
			c := h.controller(t, tt.durable)

			_, err := c.LoadForUser(ctx, testUser)
			require.NoError(t, err)

			st, err := c.CompleteStep(ctx, StepLegal, nil)
			require.NoError(t, err)
			assert.Equal(t, StepSocial, st.Step)
			assert.True(t, st.Skipped.Legal)
			assert.Equal(t, tt.wantUpdates, h.mem.Calls(store.OpBusinessUpdate))

			st, err = c.Dispatch(ctx, Reload{})
			require.NoError(t, err)
			assert.Equal(t, StepSocial, st.Step, "same controller keeps the skip")

			fresh := h.controller(t, tt.durable)
			st, err = fresh.LoadForUser(ctx, testUser)
			require.NoError(t, err)
			assert.Equal(t, tt.wantResume, st.Step)
		})
	}
}

func TestWizard_LocalSkipResetOnUserChange(t *testing.T) {
	h := newHarness()
	h.seedBusiness()
	other := completeBusiness()
	other.ID = "biz-2"
	other.UserID = "user-2"
	h.mem.PutBusiness(*other)
	c := h.controller(t, false)
	ctx := context.Background()

	_, err := c.LoadForUser(ctx, testUser)
	require.NoError(t, err)
	_, err = c.Dispatch(ctx, SkipLegal{})
	require.NoError(t, err)

	st, err := c.LoadForUser(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, StepLegal, st.Step)
	assert.False(t, st.Skipped.Legal)
}

func TestWizard_GoBack(t *testing.T) {
	h := newHarness()
	h.seedBusiness()
	h.mem.PutLegal(models.LegalInfo{BusinessID: "biz-1", PAN: "ABCDE1234F"})
	c := h.controller(t, true)
	ctx := context.Background()

	st, err := c.LoadForUser(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, StepSocial, st.Step)
	reads := h.mem.Calls(store.OpBusinessGet)

	for _, want := range []Step{StepLegal, StepBasic, StepBasic} {
		st, err = c.GoBack(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, st.Step)
	}
	assert.Equal(t, reads, h.mem.Calls(store.OpBusinessGet))

	// Completing step 1 again jumps forward past data that already exists.
	st, err = c.Dispatch(ctx, CompleteBasic{Business: *st.Prefill.Business})
	require.NoError(t, err)
	assert.Equal(t, StepSocial, st.Step)
}

func TestWizard_CompleteStepPayloads(t *testing.T) {
	h := newHarness()
	h.seedBusiness()
	c := h.controller(t, true)
	ctx := context.Background()
	_, err := c.LoadForUser(ctx, testUser)
	require.NoError(t, err)

	_, err = c.CompleteStep(ctx, StepBasic, nil)
	assert.Equal(t, errors.ErrCodeInvalidStep, codeOf(err))

	_, err = c.CompleteStep(ctx, StepLegal, "not a payload")
	assert.Equal(t, errors.ErrCodeInvalidStep, codeOf(err))

	st, err := c.CompleteStep(ctx, StepLegal, &models.LegalInfo{GST: "29ABCDE1234F1Z5"})
	require.NoError(t, err)
	assert.Equal(t, StepSocial, st.Step)

	st, err = c.CompleteStep(ctx, StepSocial, models.SocialInfo{Instagram: "https://instagram.com/acme"})
	require.NoError(t, err)
	assert.Equal(t, StepReview, st.Step)
}

type blockingBusinesses struct {
	store.BusinessStore
	started chan struct{}
	once    sync.Once
}

func (b *blockingBusinesses) GetByUser(ctx context.Context, userID string) (*models.Business, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return nil, errors.NewNetworkError("business get by user", ctx.Err())
}

func TestWizard_Dispose(t *testing.T) {
	t.Run("in-flight load is discarded", func(t *testing.T) {
		h := newHarness()
		h.seedBusiness()
		es := h.mem.EntityStore()
		blocking := &blockingBusinesses{BusinessStore: es.Business, started: make(chan struct{})}
		es.Business = blocking
		require.NoError(t, h.cache.Save(context.Background(), testUser, cache.Entry{BusinessID: "biz-1"}))

		c := NewController(Deps{Store: es, Cache: h.cache, Logger: logger.NewTestLogger(t)})

		type result struct {
			st  WizardState
			err error
		}
		done := make(chan result, 1)
		go func() {
			st, err := c.LoadForUser(context.Background(), testUser)
			done <- result{st, err}
		}()

		<-blocking.started
		c.Dispose()

		select {
		case r := <-done:
			require.Error(t, r.err)
			assert.Equal(t, errors.ErrCodeDisposed, codeOf(r.err))
			assert.Empty(t, r.st.UserID)
		case <-time.After(2 * time.Second):
			t.Fatal("load did not return after Dispose")
		}

		e, _ := h.cache.Get(context.Background(), testUser)
		assert.Equal(t, "biz-1", e.BusinessID)
	})

	t.Run("operations after dispose fail", func(t *testing.T) {
		h := newHarness()
		c := h.controller(t, true)
		_, err := c.LoadForUser(context.Background(), testUser)
		require.NoError(t, err)

		c.Dispose()
		c.Dispose()

		_, err = c.Dispatch(context.Background(), CompleteBasic{Business: *completeBusiness()})
		assert.Equal(t, errors.ErrCodeDisposed, codeOf(err))
		_, err = c.LoadForUser(context.Background(), testUser)
		assert.Equal(t, errors.ErrCodeDisposed, codeOf(err))
		assert.Zero(t, h.mem.Calls(store.OpBusinessCreate))
	})
}
