package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stackfluence/stackfluence/internal/model"
)

// Cache key prefixes and TTLs.
const (
	linkKeyPrefix     = "link:"
	negCacheKeySuffix = ":neg"

	// DefaultLinkTTL is the TTL for cached link data.
	DefaultLinkTTL = 24 * time.Hour

	// NegativeCacheTTL is the TTL for negative cache entries.
	NegativeCacheTTL = 5 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// linkKey builds the cache key for a creator/campaign/asset path.
func linkKey(creatorHandle, campaignSlug, assetSlug string) string {
	key := linkKeyPrefix + creatorHandle + "/" + campaignSlug
	if assetSlug != "" {
		key += "/" + assetSlug
	}
	return key
}

// GetLink retrieves a link from cache by its path.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetLink(ctx context.Context, creatorHandle, campaignSlug, assetSlug string) (*model.CachedLinkConfig, error) {
	key := linkKey(creatorHandle, campaignSlug, assetSlug)

	result, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrCacheMiss
	}

	cached := &model.CachedLinkConfig{
		ID:                 result["id"],
		OrganizationID:     result["organization_id"],
		DestinationURL:     result["destination_url"],
		IOSDeeplink:        result["ios_deeplink"],
		IOSFallbackURL:     result["ios_fallback_url"],
		AndroidDeeplink:    result["android_deeplink"],
		AndroidFallbackURL: result["android_fallback_url"],
		UniversalLink:      result["universal_link"],
		ParamOverrides:     result["param_overrides"],
		Enabled:            result["enabled"],
		DeletedAt:          result["deleted_at"],
		UpdatedAt:          result["updated_at"],
	}

	return cached, nil
}

// SetLink stores a link in cache under its path key.
func (c *Cache) SetLink(ctx context.Context, link *model.LinkConfig) error {
	key := linkKey(link.CreatorHandle, link.CampaignSlug, link.AssetSlug)
	cached := link.ToCachedLinkConfig()

	fields := map[string]any{
		"id":              cached.ID,
		"organization_id": cached.OrganizationID,
		"destination_url": cached.DestinationURL,
		"enabled":         cached.Enabled,
		"updated_at":      cached.UpdatedAt,
	}

	// Only set optional fields if they have values
	if cached.IOSDeeplink != "" {
		fields["ios_deeplink"] = cached.IOSDeeplink
	}
	if cached.IOSFallbackURL != "" {
		fields["ios_fallback_url"] = cached.IOSFallbackURL
	}
	if cached.AndroidDeeplink != "" {
		fields["android_deeplink"] = cached.AndroidDeeplink
	}
	if cached.AndroidFallbackURL != "" {
		fields["android_fallback_url"] = cached.AndroidFallbackURL
	}
	if cached.UniversalLink != "" {
		fields["universal_link"] = cached.UniversalLink
	}
	if cached.ParamOverrides != "" {
		fields["param_overrides"] = cached.ParamOverrides
	}
	if cached.DeletedAt != "" {
		fields["deleted_at"] = cached.DeletedAt
	}

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key) // drop stale optional fields
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, DefaultLinkTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to cache link: %w", err)
	}

	// Remove negative cache if exists
	c.client.Del(ctx, key+negCacheKeySuffix)

	return nil
}

// DeleteLink removes a link from cache.
func (c *Cache) DeleteLink(ctx context.Context, creatorHandle, campaignSlug, assetSlug string) error {
	key := linkKey(creatorHandle, campaignSlug, assetSlug)

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.Del(ctx, key+negCacheKeySuffix)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete link from cache: %w", err)
	}

	return nil
}

// IsNegativelyCached checks if a link path is in negative cache.
func (c *Cache) IsNegativelyCached(ctx context.Context, creatorHandle, campaignSlug, assetSlug string) (bool, error) {
	key := linkKey(creatorHandle, campaignSlug, assetSlug) + negCacheKeySuffix

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}

	return exists > 0, nil
}

// SetNegativeCache marks a link path as not found.
func (c *Cache) SetNegativeCache(ctx context.Context, creatorHandle, campaignSlug, assetSlug string) error {
	key := linkKey(creatorHandle, campaignSlug, assetSlug) + negCacheKeySuffix

	err := c.client.SetEx(ctx, key, "", NegativeCacheTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}

	return nil
}
