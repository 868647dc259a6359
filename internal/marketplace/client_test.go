package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"seller-onboarding/internal/common/config"
	"seller-onboarding/internal/common/errors"
	"seller-onboarding/internal/common/logger"
	"seller-onboarding/internal/models"
	"seller-onboarding/internal/store"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T, family string, r *mux.Router) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return New(config.MarketplaceConfig{
		BaseURL:   srv.URL,
		Family:    family,
		Timeout:   2000,
		AuthToken: "token-123",
	}, logger.NewTestLogger(t))
}

func TestBusinessFamily_LoadsEveryShape(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/business/get/user/{userId}", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Bearer token-123", req.Header.Get("Authorization"))
		assert.NotEmpty(t, req.Header.Get("X-Request-ID"))
		writeJSON(w, http.StatusOK, map[string]interface{}{"business_id": "biz-1"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/business/get/{id}", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"id":           mux.Vars(req)["id"],
				"user_id":      "user-1",
				"name":         "Acme Traders",
				"email":        "hello@acme.in",
				"phone_number": "9876543210",
				"address":      "12 MG Road",
				"skipped":      map[string]bool{"legal": true},
			},
		})
	}).Methods(http.MethodGet)
	r.HandleFunc("/business/legal/get/{id}", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"result": map[string]interface{}{"data": map[string]interface{}{"gstin": "27ABCDE1234F1Z5"}},
		})
	}).Methods(http.MethodGet)
	r.HandleFunc("/business/social/get/{id}", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "no social"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/business/application/get/business/{id}", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": []map[string]interface{}{
				{"id": "app-old", "status": "rejected"},
				{"id": "app-1", "status": "under_review", "created_at": "2024-05-01T10:00:00Z"},
			},
		})
	}).Methods(http.MethodGet)

	c := newTestClient(t, config.FamilyBusiness, r)

	res := store.Load(context.Background(), c.EntityStore(), "user-1")
	require.NoError(t, res.Fatal())

	snap := res.Snapshot
	require.NotNil(t, snap.Business)
	assert.Equal(t, "biz-1", snap.Business.ID)
	assert.Equal(t, "9876543210", snap.Business.Phone)
	assert.True(t, snap.Business.Skipped.Legal)
	assert.False(t, snap.Business.Skipped.Social)

	require.NotNil(t, snap.Legal)
	assert.Equal(t, "27ABCDE1234F1Z5", snap.Legal.GST)
	assert.Equal(t, "biz-1", snap.Legal.BusinessID)

	assert.Nil(t, snap.Social)
	assert.NoError(t, res.SocialErr)

	require.NotNil(t, snap.Application)
	assert.Equal(t, "app-1", snap.Application.ID)
	assert.Equal(t, models.StatusPending, snap.Application.Status)
	assert.Equal(t, 2024, snap.Application.CreatedAt.Year())
}

func TestCompanyFamily_UsesCompanyPaths(t *testing.T) {
	var created map[string]interface{}
	r := mux.NewRouter()
	r.HandleFunc("/company/get/user/{userId}", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"result": map[string]interface{}{"data": map[string]interface{}{"company": map[string]string{"company_id": "co-7"}}},
		})
	}).Methods(http.MethodGet)
	r.HandleFunc("/company/legal/create", func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&created))
		writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
	}).Methods(http.MethodPost)
	r.HandleFunc("/company/application/get/company/{id}", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]string{"application_id": "app-9", "status": "approved", "reviewed_at": "2024-06-01T00:00:00Z"},
		})
	}).Methods(http.MethodGet)

	c := newTestClient(t, config.FamilyCompany, r)
	es := c.EntityStore()

	ref, err := es.Business.GetByUser(context.Background(), "user-7")
	require.NoError(t, err)
	assert.Equal(t, "co-7", ref.ID)

	id, err := es.Legal.Create(context.Background(), &models.LegalInfo{BusinessID: "co-7", PAN: "ABCDE1234F"})
	require.NoError(t, err)
	assert.Equal(t, "co-7", id)
	assert.Equal(t, "co-7", created["company_id"])
	assert.Equal(t, "ABCDE1234F", created["pan"])

	app, err := es.Application.GetByBusiness(context.Background(), "co-7")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, app.Status)
	require.NotNil(t, app.ReviewedAt)
}

func TestSubmit_PostsBusinessID(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/business/application/create", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "biz-1", body["id"])
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]string{"application_id": "app-1"}})
	}).Methods(http.MethodPost)

	c := newTestClient(t, config.FamilyBusiness, r)

	app, err := c.EntityStore().Application.Submit(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Equal(t, "app-1", app.ID)
	assert.Equal(t, models.StatusPending, app.Status)
	assert.False(t, app.CreatedAt.IsZero())
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name:    "404 is not found",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
			want:    errors.ErrNotFound,
		},
		{
			name:    "401 is unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) },
			want:    errors.ErrUnauthorized,
		},
		{
			name:    "403 is unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) },
			want:    errors.ErrUnauthorized,
		},
		{
			name:    "500 is bad response",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			want:    errors.ErrBadResponse,
		},
		{
			name: "success false with not found message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "message": "Business not found"})
			},
			want: errors.ErrNotFound,
		},
		{
			name: "slow backend times out",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(500 * time.Millisecond):
				case <-r.Context().Done():
				}
				w.WriteHeader(http.StatusOK)
			},
			want: errors.ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mux.NewRouter()
			r.HandleFunc("/business/get/{id}", tt.handler)
			srv := httptest.NewServer(r)
			defer srv.Close()

			c := New(config.MarketplaceConfig{BaseURL: srv.URL, Family: config.FamilyBusiness, Timeout: 100}, logger.NewNoOpLogger())

			_, err := c.EntityStore().Business.Get(context.Background(), "biz-1")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNetworkErrorWhenBackendDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(config.MarketplaceConfig{BaseURL: url, Family: config.FamilyBusiness, Timeout: 1000}, logger.NewNoOpLogger())

	_, err := c.EntityStore().Legal.Get(context.Background(), "biz-1")
	assert.ErrorIs(t, err, errors.ErrNetwork)
	assert.True(t, errors.IsTransient(err))
}

func TestEmptyEnvelopeIsNotFound(t *testing.T) {
	bodies := map[string]interface{}{
		"null data":     map[string]interface{}{"success": true, "data": nil},
		"null result":   map[string]interface{}{"success": true, "result": map[string]interface{}{"data": nil}},
		"empty list":    map[string]interface{}{"success": true, "data": []interface{}{}},
		"bare envelope": map[string]interface{}{"success": true},
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			r := mux.NewRouter()
			r.PathPrefix("/business/").HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				writeJSON(w, http.StatusOK, body)
			})
			es := newTestClient(t, config.FamilyBusiness, r).EntityStore()
			ctx := context.Background()

			b, err := es.Business.Get(ctx, "biz-1")
			assert.Nil(t, b)
			assert.ErrorIs(t, err, errors.ErrNotFound)

			ref, err := es.Business.GetByUser(ctx, "user-1")
			assert.Nil(t, ref)
			assert.ErrorIs(t, err, errors.ErrNotFound)

			l, err := es.Legal.Get(ctx, "biz-1")
			assert.Nil(t, l)
			assert.ErrorIs(t, err, errors.ErrNotFound)

			s, err := es.Social.Get(ctx, "biz-1")
			assert.Nil(t, s)
			assert.ErrorIs(t, err, errors.ErrNotFound)
		})
	}
}

func TestIDOnlyLegalRecordExists(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/business/legal/get/{id}", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]string{"business_id": "biz-1"}})
	}).Methods(http.MethodGet)

	l, err := newTestClient(t, config.FamilyBusiness, r).EntityStore().Legal.Get(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Equal(t, "biz-1", l.BusinessID)
	assert.Empty(t, l.PAN)
}
