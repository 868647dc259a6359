package cache

import (
	"context"
	"strconv"
	"time"

	"seller-onboarding/internal/common/database"
	"seller-onboarding/internal/common/errors"
	"seller-onboarding/internal/models"
)

const (
	fieldBusinessID    = "businessId"
	fieldApplicationID = "applicationId"
	fieldSellerStatus  = "sellerStatus"
	fieldSkippedLegal  = "skippedLegal"
	fieldSkippedSocial = "skippedSocial"
)

// RedisCache stores one hash per user under prefix+userID.
type RedisCache struct {
	client *database.RedisClient
	prefix string
	ttl    time.Duration
}

func NewRedisCache(client *database.RedisClient, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: "onboarding:user:",
		ttl:    ttl,
	}
}

func (c *RedisCache) key(userID string) string {
	return c.prefix + userID
}

func (c *RedisCache) Get(ctx context.Context, userID string) (Entry, error) {
	fields, err := c.client.HGetAll(ctx, c.key(userID))
	if err != nil {
		return Entry{}, errors.NewCacheError("read", err)
	}
	skippedLegal, _ := strconv.ParseBool(fields[fieldSkippedLegal])
	skippedSocial, _ := strconv.ParseBool(fields[fieldSkippedSocial])

	e := Entry{
		BusinessID:    fields[fieldBusinessID],
		ApplicationID: fields[fieldApplicationID],
		Skipped:       models.SkipFlags{Legal: skippedLegal, Social: skippedSocial},
	}
	if s := fields[fieldSellerStatus]; s != "" {
		e.SellerStatus = models.ParseStatus(s)
	}
	return e, nil
}

func (c *RedisCache) Save(ctx context.Context, userID string, e Entry) error {
	if e.IsZero() {
		return c.Clear(ctx, userID)
	}
	status := ""
	if e.SellerStatus != models.StatusNone {
		status = string(e.SellerStatus)
	}
	err := c.client.HSetWithTTL(ctx, c.key(userID), map[string]interface{}{
		fieldBusinessID:    e.BusinessID,
		fieldApplicationID: e.ApplicationID,
		fieldSellerStatus:  status,
		fieldSkippedLegal:  strconv.FormatBool(e.Skipped.Legal),
		fieldSkippedSocial: strconv.FormatBool(e.Skipped.Social),
	}, c.ttl)
	if err != nil {
		return errors.NewCacheError("write", err)
	}
	return nil
}

func (c *RedisCache) Clear(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, c.key(userID)); err != nil {
		return errors.NewCacheError("clear", err)
	}
	return nil
}
