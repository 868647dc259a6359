// Package marketplace adapts the marketplace REST collaborator to the four
// entity accessors. Response shape differences between the business/* and
// company/* endpoint families stop at this package.
package marketplace

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"strings"
	"time"

	"seller-onboarding/internal/common/config"
	"seller-onboarding/internal/common/errors"
	commonhttp "seller-onboarding/internal/common/http"
	"seller-onboarding/internal/common/logger"
	"seller-onboarding/internal/common/metrics"
	"seller-onboarding/internal/models"
	"seller-onboarding/internal/store"

	"github.com/tidwall/gjson"
)

type Client struct {
	http   *commonhttp.Client
	routes routes
	logger logger.Logger
}

func New(cfg config.MarketplaceConfig, log logger.Logger, opts ...commonhttp.Option) *Client {
	if cfg.AuthToken != "" {
		opts = append([]commonhttp.Option{commonhttp.WithBearerToken(cfg.AuthToken)}, opts...)
	}
	return &Client{
		http:   commonhttp.NewClient(cfg.BaseURL, config.GetDuration(cfg.Timeout), opts...),
		routes: routesFor(cfg.Family),
		logger: log.WithFields(map[string]interface{}{"component": "marketplace", "family": cfg.Family}),
	}
}

// EntityStore exposes the client through the four accessor interfaces.
func (c *Client) EntityStore() store.EntityStore {
	return store.EntityStore{
		Business:    businessAPI{c},
		Legal:       legalAPI{c},
		Social:      socialAPI{c},
		Application: applicationAPI{c},
	}
}

// call performs one request and maps every failure onto the onboarding error
// taxonomy. resource names the entity for NotFound errors.
func (c *Client) call(ctx context.Context, op, resource, id, method, p string, payload interface{}) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.DoJSON(ctx, method, p, payload)
	if err != nil {
		mapped := transportError(op, err)
		c.observe(op, string(errors.AsStandardError(mapped).Code), start)
		c.logger.Warn("marketplace request failed", map[string]interface{}{
			"operation": op,
			"path":      p,
			"error":     err,
		})
		return nil, mapped
	}

	outcome := "ok"
	defer func() { c.observe(op, outcome, start) }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		outcome = string(errors.ErrCodeNotFound)
		return nil, errors.NewNotFoundError(resource, id)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		outcome = string(errors.ErrCodeUnauthorized)
		return nil, errors.NewUnauthorizedError(op)
	case resp.StatusCode >= 300:
		outcome = string(errors.ErrCodeBadResponse)
		c.logger.Error("marketplace returned error status", map[string]interface{}{
			"operation": op,
			"status":    resp.StatusCode,
			"requestId": resp.RequestID,
		})
		return nil, errors.NewBadResponseError(op, resp.StatusCode, truncate(resp.Body))
	}

	// Some endpoints answer 200 with {"success": false}.
	if ok := gjson.GetBytes(resp.Body, "success"); ok.Exists() && !ok.Bool() {
		msg := strings.ToLower(gjson.GetBytes(resp.Body, "message").String())
		if strings.Contains(msg, "not found") {
			outcome = string(errors.ErrCodeNotFound)
			return nil, errors.NewNotFoundError(resource, id)
		}
		outcome = string(errors.ErrCodeBadResponse)
		return nil, errors.NewBadResponseError(op, resp.StatusCode, truncate(resp.Body))
	}

	return resp.Body, nil
}

func (c *Client) observe(op, outcome string, start time.Time) {
	metrics.MarketplaceRequestDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
}

func transportError(op string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeoutError(op, err)
	}
	var ne net.Error
	if stderrors.As(err, &ne) && ne.Timeout() {
		return errors.NewTimeoutError(op, err)
	}
	return errors.NewNetworkError(op, err)
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}

// createdID reads the new record's ID from a create response.
func createdID(body []byte) string {
	return idOf(unwrap(body))
}

type businessAPI struct{ c *Client }

func (a businessAPI) GetByUser(ctx context.Context, userID string) (*models.Business, error) {
	body, err := a.c.call(ctx, "business lookup", "business", "user:"+userID, http.MethodGet, path(a.c.routes.businessByUser, userID), nil)
	if err != nil {
		return nil, err
	}
	b := decodeBusiness(unwrap(body))
	if b == nil || b.ID == "" {
		return nil, errors.NewNotFoundError("business", "user:"+userID)
	}
	return b, nil
}

func (a businessAPI) Get(ctx context.Context, businessID string) (*models.Business, error) {
	body, err := a.c.call(ctx, "business get", "business", businessID, http.MethodGet, path(a.c.routes.businessGet, businessID), nil)
	if err != nil {
		return nil, err
	}
	b := decodeBusiness(unwrap(body))
	if b == nil {
		return nil, errors.NewNotFoundError("business", businessID)
	}
	if b.ID == "" {
		b.ID = businessID
	}
	return b, nil
}

func (a businessAPI) Create(ctx context.Context, b *models.Business) (string, error) {
	body, err := a.c.call(ctx, "business create", "business", b.UserID, http.MethodPost, a.c.routes.businessCreate, a.c.businessPayload(b))
	if err != nil {
		return "", err
	}
	id := createdID(body)
	if id == "" {
		return "", errors.NewBadResponseError("business create", http.StatusOK, "response carries no id")
	}
	return id, nil
}

func (a businessAPI) Update(ctx context.Context, businessID string, b *models.Business) error {
	_, err := a.c.call(ctx, "business update", "business", businessID, http.MethodPut, path(a.c.routes.businessUpdate, businessID), a.c.businessPayload(b))
	return err
}

func (c *Client) businessPayload(b *models.Business) map[string]interface{} {
	return map[string]interface{}{
		"user_id":       b.UserID,
		"name":          b.Name,
		"email":         b.Email,
		"phone":         b.Phone,
		"address":       b.Address,
		"city":          b.City,
		"state":         b.State,
		"pincode":       b.Pincode,
		"business_type": b.BusinessType,
		"skipped": map[string]bool{
			"legal":  b.Skipped.Legal,
			"social": b.Skipped.Social,
		},
	}
}

type legalAPI struct{ c *Client }

func (a legalAPI) Get(ctx context.Context, businessID string) (*models.LegalInfo, error) {
	body, err := a.c.call(ctx, "legal get", "legal info", businessID, http.MethodGet, path(a.c.routes.legalGet, businessID), nil)
	if err != nil {
		return nil, err
	}
	l := decodeLegal(unwrap(body), businessID)
	if l == nil {
		return nil, errors.NewNotFoundError("legal info", businessID)
	}
	return l, nil
}

func (a legalAPI) Create(ctx context.Context, info *models.LegalInfo) (string, error) {
	payload := a.c.legalPayload(info)
	payload[a.c.routes.idKey] = info.BusinessID
	if _, err := a.c.call(ctx, "legal create", "legal info", info.BusinessID, http.MethodPost, a.c.routes.legalCreate, payload); err != nil {
		return "", err
	}
	return info.BusinessID, nil
}

func (a legalAPI) Update(ctx context.Context, businessID string, info *models.LegalInfo) error {
	_, err := a.c.call(ctx, "legal update", "legal info", businessID, http.MethodPut, path(a.c.routes.legalUpdate, businessID), a.c.legalPayload(info))
	return err
}

func (c *Client) legalPayload(l *models.LegalInfo) map[string]interface{} {
	return map[string]interface{}{
		"aadhaar":       l.Aadhaar,
		"pan":           l.PAN,
		"gst":           l.GST,
		"msme":          l.MSME,
		"fassi":         l.FASSI,
		"export_import": l.ExportImport,
	}
}

type socialAPI struct{ c *Client }

func (a socialAPI) Get(ctx context.Context, businessID string) (*models.SocialInfo, error) {
	body, err := a.c.call(ctx, "social get", "social info", businessID, http.MethodGet, path(a.c.routes.socialGet, businessID), nil)
	if err != nil {
		return nil, err
	}
	s := decodeSocial(unwrap(body), businessID)
	if s == nil {
		return nil, errors.NewNotFoundError("social info", businessID)
	}
	return s, nil
}

func (a socialAPI) Create(ctx context.Context, info *models.SocialInfo) (string, error) {
	payload := a.c.socialPayload(info)
	payload[a.c.routes.idKey] = info.BusinessID
	if _, err := a.c.call(ctx, "social create", "social info", info.BusinessID, http.MethodPost, a.c.routes.socialCreate, payload); err != nil {
		return "", err
	}
	return info.BusinessID, nil
}

func (a socialAPI) Update(ctx context.Context, businessID string, info *models.SocialInfo) error {
	_, err := a.c.call(ctx, "social update", "social info", businessID, http.MethodPut, path(a.c.routes.socialUpdate, businessID), a.c.socialPayload(info))
	return err
}

func (c *Client) socialPayload(s *models.SocialInfo) map[string]interface{} {
	return map[string]interface{}{
		"linkedin":  s.LinkedIn,
		"instagram": s.Instagram,
		"facebook":  s.Facebook,
		"website":   s.Website,
		"telegram":  s.Telegram,
		"youtube":   s.YouTube,
		"x":         s.X,
	}
}

type applicationAPI struct{ c *Client }

func (a applicationAPI) GetByBusiness(ctx context.Context, businessID string) (*models.Application, error) {
	body, err := a.c.call(ctx, "application get", "application", businessID, http.MethodGet, path(a.c.routes.applicationGet, businessID), nil)
	if err != nil {
		return nil, err
	}
	app := decodeApplication(unwrap(body), businessID)
	if app == nil || app.ID == "" {
		return nil, errors.NewNotFoundError("application", businessID)
	}
	return app, nil
}

// Submit posts {id: businessId}. The backend treats a second post for the same
// business as a resubmission.
func (a applicationAPI) Submit(ctx context.Context, businessID string) (*models.Application, error) {
	body, err := a.c.call(ctx, "application submit", "business", businessID, http.MethodPost, a.c.routes.applicationCreate, map[string]string{"id": businessID})
	if err != nil {
		return nil, err
	}
	app := decodeApplication(unwrap(body), businessID)
	if app == nil {
		app = &models.Application{BusinessID: businessID}
	}
	// The create endpoint may echo only the ID; a successful post is pending.
	if app.Status == models.StatusNone {
		app.Status = models.StatusPending
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}
	return app, nil
}
