package store

import (
	"context"
	"sync"
	"time"

	"seller-onboarding/internal/common/errors"
	"seller-onboarding/internal/models"

	"github.com/google/uuid"
)

// Operation names accepted by Memory.Fail and Memory.Calls.
const (
	OpBusinessGetByUser = "business.getByUser"
	OpBusinessGet       = "business.get"
	OpBusinessCreate    = "business.create"
	OpBusinessUpdate    = "business.update"
	OpLegalGet          = "legal.get"
	OpLegalCreate       = "legal.create"
	OpLegalUpdate       = "legal.update"
	OpSocialGet         = "social.get"
	OpSocialCreate      = "social.create"
	OpSocialUpdate      = "social.update"
	OpApplicationGet    = "application.get"
	OpApplicationSubmit = "application.submit"
)

// Memory is an in-process EntityStore backend. It is safe for concurrent use
// and supports injected failures per operation.
type Memory struct {
	mu           sync.Mutex
	businesses   map[string]models.Business
	byUser       map[string]string
	legal        map[string]models.LegalInfo
	social       map[string]models.SocialInfo
	applications map[string]models.Application
	failures     map[string]error
	calls        map[string]int
	now          func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		businesses:   map[string]models.Business{},
		byUser:       map[string]string{},
		legal:        map[string]models.LegalInfo{},
		social:       map[string]models.SocialInfo{},
		applications: map[string]models.Application{},
		failures:     map[string]error{},
		calls:        map[string]int{},
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// EntityStore exposes m through the four accessor interfaces.
func (m *Memory) EntityStore() EntityStore {
	return EntityStore{
		Business:    memBusiness{m},
		Legal:       memLegal{m},
		Social:      memSocial{m},
		Application: memApplication{m},
	}
}

// Fail makes every later call of op return err. A nil err clears the failure.
func (m *Memory) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Calls returns how many times op was invoked.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// PutBusiness seeds or replaces a business record.
func (m *Memory) PutBusiness(b models.Business) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.businesses[b.ID] = b
	m.byUser[b.UserID] = b.ID
}

func (m *Memory) PutLegal(l models.LegalInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.legal[l.BusinessID] = l
}

func (m *Memory) PutSocial(s models.SocialInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.social[s.BusinessID] = s
}

func (m *Memory) PutApplication(a models.Application) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applications[a.BusinessID] = a
}

// Review sets the outcome of a pending application, as a reviewer would.
func (m *Memory) Review(businessID string, status models.ApplicationStatus, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.applications[businessID]
	if !ok {
		return errors.NewNotFoundError("application", businessID)
	}
	reviewed := m.now()
	app.Status = status
	app.RejectionReason = reason
	app.ReviewedAt = &reviewed
	m.applications[businessID] = app
	return nil
}

// enter records a call and returns any injected failure for op.
func (m *Memory) enter(op string) error {
	m.calls[op]++
	return m.failures[op]
}

type memBusiness struct{ m *Memory }

func (s memBusiness) GetByUser(ctx context.Context, userID string) (*models.Business, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.enter(OpBusinessGetByUser); err != nil {
		return nil, err
	}
	id, ok := s.m.byUser[userID]
	if !ok {
		return nil, errors.NewNotFoundError("business", "user:"+userID)
	}
	return &models.Business{ID: id}, nil
}

func (s memBusiness) Get(ctx context.Context, businessID string) (*models.Business, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.enter(OpBusinessGet); err != nil {
		return nil, err
	}
	b, ok := s.m.businesses[businessID]
	if !ok {
		return nil, errors.NewNotFoundError("business", businessID)
	}
	return &b, nil
}

func (s memBusiness) Create(ctx context.Context, b *models.Business) (string, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.enter(OpBusinessCreate); err != nil {
		return "", err
	}
	if _, exists := s.m.byUser[b.UserID]; exists {
		return "", errors.NewBadResponseError("business create", 409, "business already exists for user")
	}
	rec := *b
	rec.ID = uuid.NewString()
	s.m.businesses[rec.ID] = rec
	s.m.byUser[rec.UserID] = rec.ID
	return rec.ID, nil
}

func (s memBusiness) Update(ctx context.Context, businessID string, b *models.Business) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.enter(OpBusinessUpdate); err != nil {
		return err
	}
	cur, ok := s.m.businesses[businessID]
	if !ok {
		return errors.NewNotFoundError("business", businessID)
	}
	rec := *b
	rec.ID = businessID
	rec.UserID = cur.UserID
	s.m.businesses[businessID] = rec
	return nil
}

type memLegal struct{ m *Memory }

func (s memLegal) Get(ctx context.Context, businessID string) (*models.LegalInfo, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.enter(OpLegalGet); err != nil {
		return nil, err
	}
	l, ok := s.m.legal[businessID]
	if !ok {
		return nil, errors.NewNotFoundError("legal info", businessID)
	}
	return &l, nil
}

func (s memLegal) Create(ctx context.Context, info *models.LegalInfo) (string, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.enter(OpLegalCreate); err != nil {
		return "", err
	}
	s.m.legal[info.BusinessID] = *info
	return info.BusinessID, nil
}

func (s memLegal) Update(ctx context.Context, businessID string, info *models.LegalInfo) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.enter(OpLegalUpdate); err != nil {
		return err
	}
	if _, ok := s.m.legal[businessID]; !ok {
		return errors.NewNotFoundError("legal info", businessID)
	}
	rec := *info
	rec.BusinessID = businessID
	s.m.legal[businessID] = rec
	return nil
}

type memSocial struct{ m *Memory }

func (s memSocial) Get(ctx context.Context, businessID string) (*models.SocialInfo, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.enter(OpSocialGet); err != nil {
		return nil, err
	}
	v, ok := s.m.social[businessID]
	if !ok {
		return nil, errors.NewNotFoundError("social info", businessID)
	}
	return &v, nil
}

func (s memSocial) Create(ctx context.Context, info *models.SocialInfo) (string, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.enter(OpSocialCreate); err != nil {
		return "", err
	}
	s.m.social[info.BusinessID] = *info
	return info.BusinessID, nil
}

func (s memSocial) Update(ctx context.Context, businessID string, info *models.SocialInfo) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.enter(OpSocialUpdate); err != nil {
		return err
	}
	if _, ok := s.m.social[businessID]; !ok {
		return errors.NewNotFoundError("social info", businessID)
	}
	rec := *info
	rec.BusinessID = businessID
	s.m.social[businessID] = rec
	return nil
}

type memApplication struct{ m *Memory }

func (s memApplication) GetByBusiness(ctx context.Context, businessID string) (*models.Application, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.enter(OpApplicationGet); err != nil {
		return nil, err
	}
	a, ok := s.m.applications[businessID]
	if !ok {
		return nil, errors.NewNotFoundError("application", businessID)
	}
	return &a, nil
}

// Submit creates the application, or resets an existing one to pending while
// keeping its ID.
func (s memApplication) Submit(ctx context.Context, businessID string) (*models.Application, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.enter(OpApplicationSubmit); err != nil {
		return nil, err
	}
	if _, ok := s.m.businesses[businessID]; !ok {
		return nil, errors.NewNotFoundError("business", businessID)
	}

	app, ok := s.m.applications[businessID]
	if !ok {
		app = models.Application{
			ID:         uuid.NewString(),
			BusinessID: businessID,
			CreatedAt:  s.m.now(),
		}
	}
	app.Status = models.StatusPending
	app.RejectionReason = ""
	app.ReviewedAt = nil
	s.m.applications[businessID] = app

	out := app
	return &out, nil
}
