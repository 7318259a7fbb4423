package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/paymesh/transfersaga/internal/domain"
	"github.com/paymesh/transfersaga/internal/usecase"
)

// CachedVerificationClient decorates a VerificationClient with a
// short-lived cache. Verification data changes rarely; caching keeps
// the fraud engine's lookup off the external collaborator's hot path.
// Cache faults degrade to a direct fetch.
type CachedVerificationClient struct {
	inner  usecase.VerificationClient
	cache  usecase.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedVerificationClient creates a new CachedVerificationClient.
func NewCachedVerificationClient(inner usecase.VerificationClient, cache usecase.Cache, ttl time.Duration, logger zerolog.Logger) *CachedVerificationClient {
	return &CachedVerificationClient{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// GetVerificationData returns cached verification data or fetches it.
func (c *CachedVerificationClient) GetVerificationData(ctx context.Context, customerID string) (*domain.VerificationData, error) {
	key := "verification:" + customerID

	cached, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("customer_id", customerID).Msg("verification cache read failed")
	} else if cached != nil {
		var data domain.VerificationData
		if err := json.Unmarshal(cached, &data); err == nil {
			return &data, nil
		}
	}

	data, err := c.inner.GetVerificationData(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if body, err := json.Marshal(data); err == nil {
		if err := c.cache.Set(ctx, key, body, c.ttl); err != nil {
			c.logger.Warn().Err(err).Str("customer_id", customerID).Msg("verification cache write failed")
		}
	}

	return data, nil
}
