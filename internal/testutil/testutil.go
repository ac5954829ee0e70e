// Package testutil provides helpers shared by integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stackfluence/stackfluence/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// resetSchema applies a migration's down then up script.
func resetSchema(ctx context.Context, pool *pgxpool.Pool, migration string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	downPath := filepath.Join(root, "migrations", migration+".down.sql")
	upPath := filepath.Join(root, "migrations", migration+".up.sql")

	downSQL, err := os.ReadFile(downPath)
	if err != nil {
		return fmt.Errorf("read down migration: %w", err)
	}
	if _, err := pool.Exec(ctx, string(downSQL)); err != nil {
		return fmt.Errorf("apply down migration: %w", err)
	}

	upSQL, err := os.ReadFile(upPath)
	if err != nil {
		return fmt.Errorf("read up migration: %w", err)
	}
	if _, err := pool.Exec(ctx, string(upSQL)); err != nil {
		return fmt.Errorf("apply up migration: %w", err)
	}

	return nil
}

// ResetOrganizationsSchema drops and recreates the organizations schema for tests.
func ResetOrganizationsSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, "000001_organizations")
}

// ResetLinksSchema drops and recreates the links schema for tests.
func ResetLinksSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, "000002_links")
}

// ResetAPIKeysSchema drops and recreates the api_keys schema for tests.
func ResetAPIKeysSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, "000003_api_keys")
}

// ResetClickEventsSchema drops and recreates the click_events schema for tests.
func ResetClickEventsSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, "000004_click_events")
}

// ResetAttributionEventsSchema drops and recreates the attribution event tables for tests.
func ResetAttributionEventsSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, "000005_attribution_events")
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestLink creates a test wrapped link with sensible defaults.
func NewTestLink(t testing.TB, creatorHandle, campaignSlug string) *model.LinkConfig {
	t.Helper()
	now := time.Now().UTC()
	return &model.LinkConfig{
		ID:             fmt.Sprintf("link-%d", now.UnixNano()),
		OrganizationID: "test-org",
		CreatorHandle:  creatorHandle,
		CampaignSlug:   campaignSlug,
		DestinationURL: fmt.Sprintf("https://shop.example.com/%s/%s", creatorHandle, campaignSlug),
		ParamOverrides: map[string]string{},
		Enabled:        true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewTestLinkWithApp creates a test link carrying mobile destinations.
func NewTestLinkWithApp(t testing.TB, creatorHandle, campaignSlug string) *model.LinkConfig {
	t.Helper()
	link := NewTestLink(t, creatorHandle, campaignSlug)
	link.IOSDeeplink = "myapp://campaign/" + campaignSlug
	link.IOSFallbackURL = "https://apps.apple.com/app/id0000000000"
	link.AndroidDeeplink = "myapp://campaign/" + campaignSlug
	link.AndroidFallbackURL = "https://play.google.com/store/apps/details?id=com.example.app"
	link.UniversalLink = "https://app.example.com/c/" + campaignSlug
	return link
}

// NewTestAPIKey creates a test API key with sensible defaults.
func NewTestAPIKey(t testing.TB, orgID string) *model.APIKey {
	t.Helper()
	now := time.Now().UTC()
	return &model.APIKey{
		ID:             fmt.Sprintf("key-%d", now.UnixNano()),
		OrganizationID: orgID,
		KeyHash:        fmt.Sprintf("hash-%d", now.UnixNano()),
		KeyPrefix:      "sk_test_",
		Scopes:         []string{model.ScopeRead, model.ScopeWrite},
		RateLimitTier:  model.TierFree,
		Name:           "Test Key",
		CreatedAt:      now,
	}
}

// NewTestAPIKeyWithTier creates a test API key with a specific tier.
func NewTestAPIKeyWithTier(t testing.TB, orgID string, tier string) *model.APIKey {
	t.Helper()
	key := NewTestAPIKey(t, orgID)
	key.RateLimitTier = tier
	return key
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
