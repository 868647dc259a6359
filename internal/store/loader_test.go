package store

import (
	"context"
	"testing"

	"seller-onboarding/internal/common/errors"
	"seller-onboarding/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedComplete(m *Memory) {
	m.PutBusiness(models.Business{ID: "biz-1", UserID: "user-1", Name: "Acme", Email: "a@acme.in", Phone: "9876543210", Address: "1 Road"})
	m.PutLegal(models.LegalInfo{BusinessID: "biz-1", PAN: "ABCDE1234F"})
	m.PutSocial(models.SocialInfo{BusinessID: "biz-1", Website: "https://acme.in"})
	m.PutApplication(models.Application{ID: "app-1", BusinessID: "biz-1", Status: models.StatusPending})
}

func TestLoad_NoBusiness(t *testing.T) {
	m := NewMemory()

	res := Load(context.Background(), m.EntityStore(), "user-1")

	assert.NoError(t, res.Fatal())
	assert.Nil(t, res.Snapshot.Business)
	assert.Equal(t, 0, m.Calls(OpLegalGet), "fan-out must not run without a business")
}

func TestLoad_AllEntities(t *testing.T) {
	m := NewMemory()
	seedComplete(m)

	res := Load(context.Background(), m.EntityStore(), "user-1")

	require.NoError(t, res.Fatal())
	require.NotNil(t, res.Snapshot.Business)
	assert.Equal(t, "Acme", res.Snapshot.Business.Name)
	assert.Equal(t, "ABCDE1234F", res.Snapshot.Legal.PAN)
	assert.Equal(t, "https://acme.in", res.Snapshot.Social.Website)
	assert.Equal(t, "app-1", res.Snapshot.Application.ID)
}

func TestLoad_PartialFailures(t *testing.T) {
	tests := []struct {
		name      string
		op        string
		err       error
		wantFatal bool
		check     func(t *testing.T, res *LoadResult)
	}{
		{
			name: "legal network error is absent",
			op:   OpLegalGet,
			err:  errors.NewNetworkError("legal get", assert.AnError),
			check: func(t *testing.T, res *LoadResult) {
				assert.Nil(t, res.Snapshot.Legal)
				assert.Error(t, res.LegalErr)
				assert.NotNil(t, res.Snapshot.Social)
			},
		},
		{
			name: "social timeout is absent",
			op:   OpSocialGet,
			err:  errors.NewTimeoutError("social get", assert.AnError),
			check: func(t *testing.T, res *LoadResult) {
				assert.Nil(t, res.Snapshot.Social)
				assert.NotNil(t, res.Snapshot.Legal)
			},
		},
		{
			name:      "business detail failure is fatal",
			op:        OpBusinessGet,
			err:       errors.NewNetworkError("business get", assert.AnError),
			wantFatal: true,
		},
		{
			name:      "lookup failure is fatal",
			op:        OpBusinessGetByUser,
			err:       errors.NewTimeoutError("business lookup", assert.AnError),
			wantFatal: true,
		},
		{
			name:      "unauthorized anywhere is fatal",
			op:        OpSocialGet,
			err:       errors.NewUnauthorizedError("token expired"),
			wantFatal: true,
		},
		{
			name: "application failure is kept for the caller",
			op:   OpApplicationGet,
			err:  errors.NewNetworkError("application get", assert.AnError),
			check: func(t *testing.T, res *LoadResult) {
				assert.Nil(t, res.Snapshot.Application)
				assert.True(t, errors.IsTransient(res.ApplicationErr))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMemory()
			seedComplete(m)
			m.Fail(tt.op, tt.err)

			res := Load(context.Background(), m.EntityStore(), "user-1")

			if tt.wantFatal {
				assert.Error(t, res.Fatal())
				return
			}
			assert.NoError(t, res.Fatal())
			if tt.check != nil {
				tt.check(t, res)
			}
		})
	}
}

func TestMemory_SubmitKeepsIDOnResubmission(t *testing.T) {
	m := NewMemory()
	seedComplete(m)
	require.NoError(t, m.Review("biz-1", models.StatusRejected, "blurry PAN"))

	app, err := m.EntityStore().Application.Submit(context.Background(), "biz-1")

	require.NoError(t, err)
	assert.Equal(t, "app-1", app.ID)
	assert.Equal(t, models.StatusPending, app.Status)
	assert.Empty(t, app.RejectionReason)
	assert.Nil(t, app.ReviewedAt)
}

func TestMemory_OneBusinessPerUser(t *testing.T) {
	m := NewMemory()
	es := m.EntityStore()

	id, err := es.Business.Create(context.Background(), &models.Business{UserID: "user-9", Name: "First"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = es.Business.Create(context.Background(), &models.Business{UserID: "user-9", Name: "Second"})
	assert.ErrorIs(t, err, errors.ErrBadResponse)
}
