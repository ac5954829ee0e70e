//go:build integration

package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stackfluence/stackfluence/internal/testutil"
)

// ============================================================================
// Migration Integration Tests
// ============================================================================

func TestIntegrationMigration_ApplyAllTables(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	// Verify all expected tables exist
	tables := []string{
		"organizations",
		"links",
		"api_keys",
		"click_events",
		"session_events",
		"pageview_events",
		"conversion_events",
		"refund_events",
	}

	for _, table := range tables {
		t.Run(table, func(t *testing.T) {
			exists, err := tableExists(ctx, pool, table)
			if err != nil {
				t.Fatalf("tableExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Table %q should exist after migrations", table)
			}
		})
	}
}

func TestIntegrationMigration_LinksTableSchema(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	// Verify links table has expected columns
	expectedColumns := []string{
		"id",
		"organization_id",
		"creator_handle",
		"campaign_slug",
		"asset_slug",
		"destination_url",
		"ios_deeplink",
		"ios_fallback_url",
		"android_deeplink",
		"android_fallback_url",
		"universal_link",
		"param_overrides",
		"enabled",
		"deleted_at",
		"created_at",
		"updated_at",
	}

	for _, col := range expectedColumns {
		t.Run(col, func(t *testing.T) {
			exists, err := columnExists(ctx, pool, "links", col)
			if err != nil {
				t.Fatalf("columnExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Column %q should exist in links table", col)
			}
		})
	}
}

func TestIntegrationMigration_LinksPathUniqueness(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	insert := `
		INSERT INTO links (id, organization_id, creator_handle, campaign_slug, asset_slug, destination_url)
		VALUES ($1, 'org', 'jane', 'summer', NULL, 'https://example.com')
	`

	if _, err := pool.Exec(ctx, insert, "mig-link-1"); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	// Second row with the same NULL asset_slug must be rejected.
	if _, err := pool.Exec(ctx, insert, "mig-link-2"); err == nil {
		t.Error("Expected unique violation for duplicate asset-less path")
	}
}

func TestIntegrationMigration_APIKeysTableSchema(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	expectedColumns := []string{
		"id",
		"organization_id",
		"key_hash",
		"key_prefix",
		"scopes",
		"rate_limit_tier",
		"name",
		"revoked_at",
		"last_used_at",
		"created_at",
	}

	for _, col := range expectedColumns {
		t.Run(col, func(t *testing.T) {
			exists, err := columnExists(ctx, pool, "api_keys", col)
			if err != nil {
				t.Fatalf("columnExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Column %q should exist in api_keys table", col)
			}
		})
	}
}

func TestIntegrationMigration_ClickEventsTableSchema(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	clickEventCols := []string{
		"id",
		"event_id",
		"click_id",
		"session_id",
		"link_id",
		"organization_id",
		"creator_handle",
		"campaign_slug",
		"destination_url_raw",
		"destination_url_final",
		"utm_params",
		"injected_params",
		"platform_click_ids",
		"referrer_full",
		"referrer_domain",
		"source_platform",
		"source_medium",
		"source_detail",
		"is_in_app",
		"in_app_platform",
		"sec_fetch_site",
		"user_agent",
		"device_type",
		"os_family",
		"visitor_hash",
		"risk_score",
		"is_suspected_bot",
		"bot_signals",
		"clicked_at",
	}

	for _, col := range clickEventCols {
		exists, err := columnExists(ctx, pool, "click_events", col)
		if err != nil {
			t.Fatalf("columnExists failed: %v", err)
		}
		if !exists {
			t.Errorf("Column %q should exist in click_events table", col)
		}
	}
}

func TestIntegrationMigration_AttributionEventTablesSchema(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	conversionCols := []string{
		"id",
		"click_id",
		"organization_id",
		"event_type",
		"order_id",
		"revenue_cents",
		"currency",
		"metadata",
		"created_at",
	}

	for _, col := range conversionCols {
		exists, err := columnExists(ctx, pool, "conversion_events", col)
		if err != nil {
			t.Fatalf("columnExists failed: %v", err)
		}
		if !exists {
			t.Errorf("Column %q should exist in conversion_events table", col)
		}
	}

	refundCols := []string{
		"id",
		"click_id",
		"organization_id",
		"original_order_id",
		"refund_amount_cents",
		"reason",
		"created_at",
	}

	for _, col := range refundCols {
		exists, err := columnExists(ctx, pool, "refund_events", col)
		if err != nil {
			t.Fatalf("columnExists failed: %v", err)
		}
		if !exists {
			t.Errorf("Column %q should exist in refund_events table", col)
		}
	}
}

func TestIntegrationMigration_RollbackLinks(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	root, err := testutil.ProjectRoot()
	if err != nil {
		t.Fatalf("ProjectRoot failed: %v", err)
	}

	// Apply down migration
	downPath := filepath.Join(root, "migrations", "000002_links.down.sql")
	downSQL, err := os.ReadFile(downPath)
	if err != nil {
		t.Fatalf("read down migration: %v", err)
	}
	if _, err := pool.Exec(ctx, string(downSQL)); err != nil {
		t.Fatalf("apply down migration: %v", err)
	}

	// Verify table doesn't exist
	exists, err := tableExists(ctx, pool, "links")
	if err != nil {
		t.Fatalf("tableExists failed: %v", err)
	}
	if exists {
		t.Error("links table should not exist after rollback")
	}

	// Re-apply up migration for cleanup
	upPath := filepath.Join(root, "migrations", "000002_links.up.sql")
	upSQL, err := os.ReadFile(upPath)
	if err != nil {
		t.Fatalf("read up migration: %v", err)
	}
	if _, err := pool.Exec(ctx, string(upSQL)); err != nil {
		t.Fatalf("reapply up migration: %v", err)
	}
}

func TestIntegrationMigration_Idempotency(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	root, err := testutil.ProjectRoot()
	if err != nil {
		t.Fatalf("ProjectRoot failed: %v", err)
	}

	// Apply up migration again (should be idempotent via IF NOT EXISTS)
	upPath := filepath.Join(root, "migrations", "000002_links.up.sql")
	upSQL, err := os.ReadFile(upPath)
	if err != nil {
		t.Fatalf("read links up migration: %v", err)
	}
	if _, err := pool.Exec(ctx, string(upSQL)); err != nil {
		t.Fatalf("second apply should not fail: %v", err)
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName).Scan(&exists)
	return exists, err
}

func columnExists(ctx context.Context, pool *pgxpool.Pool, tableName, columnName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.columns
			WHERE table_schema = 'public'
			AND table_name = $1
			AND column_name = $2
		)
	`, tableName, columnName).Scan(&exists)
	return exists, err
}

// ============================================================================
// Test Environment Setup
// ============================================================================

func newMigrationTestEnv(t *testing.T) (context.Context, *pgxpool.Pool) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	unlock, err := testutil.AcquireDBLock(ctx, pool)
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	for _, reset := range []func(context.Context, *pgxpool.Pool) error{
		testutil.ResetOrganizationsSchema,
		testutil.ResetLinksSchema,
		testutil.ResetAPIKeysSchema,
		testutil.ResetClickEventsSchema,
		testutil.ResetAttributionEventsSchema,
	} {
		if err := reset(ctx, pool); err != nil {
			t.Fatalf("reset schema: %v", err)
		}
	}

	return ctx, pool
}
