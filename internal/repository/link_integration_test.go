//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stackfluence/stackfluence/internal/testutil"
)

// ============================================================================
// Link Repository Integration Tests
// ============================================================================

func TestIntegrationLinkRepository_CreateLink(t *testing.T) {
	ctx, repo := newLinkTestEnv(t)

	link := testutil.NewTestLink(t, testutil.UniqueID("creator"), "summer")

	err := repo.CreateLink(ctx, link)
	if err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	// Verify link exists in DB
	retrieved, err := repo.GetLinkByID(ctx, link.ID)
	if err != nil {
		t.Fatalf("GetLinkByID failed: %v", err)
	}

	if retrieved.CreatorHandle != link.CreatorHandle {
		t.Errorf("CreatorHandle mismatch: got %q, want %q", retrieved.CreatorHandle, link.CreatorHandle)
	}
	if retrieved.DestinationURL != link.DestinationURL {
		t.Errorf("DestinationURL mismatch: got %q, want %q", retrieved.DestinationURL, link.DestinationURL)
	}
	if retrieved.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestIntegrationLinkRepository_CreateLink_DuplicatePath(t *testing.T) {
	ctx, repo := newLinkTestEnv(t)

	creator := testutil.UniqueID("creator")
	link1 := testutil.NewTestLink(t, creator, "summer")
	link2 := testutil.NewTestLink(t, creator, "summer")
	link2.ID = testutil.UniqueID("link") // Different ID, same path

	if err := repo.CreateLink(ctx, link1); err != nil {
		t.Fatalf("CreateLink (first) failed: %v", err)
	}

	err := repo.CreateLink(ctx, link2)
	if !errors.Is(err, ErrLinkExists) {
		t.Errorf("Expected ErrLinkExists, got: %v", err)
	}
}

func TestIntegrationLinkRepository_GetByID_NotFound(t *testing.T) {
	ctx, repo := newLinkTestEnv(t)

	_, err := repo.GetLinkByID(ctx, "nonexistent-id")
	if !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("Expected ErrLinkNotFound, got: %v", err)
	}
}

func TestIntegrationLinkRepository_GetByPath(t *testing.T) {
	ctx, repo := newLinkTestEnv(t)

	creator := testutil.UniqueID("creator")
	link := testutil.NewTestLink(t, creator, "summer")

	if err := repo.CreateLink(ctx, link); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	retrieved, err := repo.GetLinkByPath(ctx, creator, "summer", "")
	if err != nil {
		t.Fatalf("GetLinkByPath failed: %v", err)
	}

	if retrieved.ID != link.ID {
		t.Errorf("ID mismatch: got %q, want %q", retrieved.ID, link.ID)
	}
}

func TestIntegrationLinkRepository_GetByPath_NotFound(t *testing.T) {
	ctx, repo := newLinkTestEnv(t)

	_, err := repo.GetLinkByPath(ctx, "nobody", "nothing", "")
	if !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("Expected ErrLinkNotFound, got: %v", err)
	}
}

func TestIntegrationLinkRepository_UpdateLink(t *testing.T) {
	ctx, repo := newLinkTestEnv(t)

	link := testutil.NewTestLink(t, testutil.UniqueID("creator"), "summer")

	if err := repo.CreateLink(ctx, link); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	// Update destination and overrides
	newDestination := "https://updated.example.com/new-path"
	link.DestinationURL = newDestination
	link.ParamOverrides = map[string]string{"coupon": "VIP10"}

	if err := repo.UpdateLink(ctx, link); err != nil {
		t.Fatalf("UpdateLink failed: %v", err)
	}

	retrieved, err := repo.GetLinkByID(ctx, link.ID)
	if err != nil {
		t.Fatalf("GetLinkByID failed: %v", err)
	}

	if retrieved.DestinationURL != newDestination {
		t.Errorf("DestinationURL not updated: got %q, want %q", retrieved.DestinationURL, newDestination)
	}
	if retrieved.ParamOverrides["coupon"] != "VIP10" {
		t.Errorf("ParamOverrides not updated: got %v", retrieved.ParamOverrides)
	}
	if !retrieved.UpdatedAt.After(link.CreatedAt) {
		t.Error("UpdatedAt should be after CreatedAt")
	}
}

func TestIntegrationLinkRepository_DeleteLink_SoftDelete(t *testing.T) {
	ctx, repo := newLinkTestEnv(t)

	creator := testutil.UniqueID("creator")
	link := testutil.NewTestLink(t, creator, "summer")

	if err := repo.CreateLink(ctx, link); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	if err := repo.DeleteLink(ctx, link.ID); err != nil {
		t.Fatalf("DeleteLink failed: %v", err)
	}

	// Link should not be found by path (soft deleted)
	_, err := repo.GetLinkByPath(ctx, creator, "summer", "")
	if !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("Expected ErrLinkNotFound after soft delete, got: %v", err)
	}

	// The path frees up for reuse
	exists, err := repo.LinkPathExists(ctx, creator, "summer", "")
	if err != nil {
		t.Fatalf("LinkPathExists failed: %v", err)
	}
	if exists {
		t.Error("Path should not exist after soft delete")
	}
}

func TestIntegrationLinkRepository_ListLinks_Pagination(t *testing.T) {
	ctx, repo := newLinkTestEnv(t)

	// Create 5 links
	orgID := "pagination-test-org"
	for i := 0; i < 5; i++ {
		link := testutil.NewTestLink(t, testutil.UniqueID("creator"), "summer")
		link.OrganizationID = orgID
		if err := repo.CreateLink(ctx, link); err != nil {
			t.Fatalf("CreateLink failed: %v", err)
		}
		time.Sleep(1 * time.Millisecond) // Ensure different created_at
	}

	// Fetch first page
	filter := LinkFilter{OrganizationID: orgID}
	links, nextCursor, err := repo.ListLinks(ctx, filter, "", 2)
	if err != nil {
		t.Fatalf("ListLinks failed: %v", err)
	}

	if len(links) != 2 {
		t.Errorf("Expected 2 links, got %d", len(links))
	}
	if nextCursor == "" {
		t.Error("Expected nextCursor for more pages")
	}

	// Fetch second page
	links2, nextCursor2, err := repo.ListLinks(ctx, filter, nextCursor, 2)
	if err != nil {
		t.Fatalf("ListLinks (page 2) failed: %v", err)
	}

	if len(links2) != 2 {
		t.Errorf("Expected 2 links on page 2, got %d", len(links2))
	}

	// IDs should not overlap
	for _, l1 := range links {
		for _, l2 := range links2 {
			if l1.ID == l2.ID {
				t.Errorf("Duplicate link ID across pages: %s", l1.ID)
			}
		}
	}

	// Fetch third page (should have 1 link)
	links3, _, err := repo.ListLinks(ctx, filter, nextCursor2, 2)
	if err != nil {
		t.Fatalf("ListLinks (page 3) failed: %v", err)
	}

	if len(links3) != 1 {
		t.Errorf("Expected 1 link on page 3, got %d", len(links3))
	}
}

func TestIntegrationLinkRepository_ListLinks_CreatorFilter(t *testing.T) {
	ctx, repo := newLinkTestEnv(t)

	orgID := "filter-test-org"
	creatorA := testutil.UniqueID("a")
	creatorB := testutil.UniqueID("b")

	for _, creator := range []string{creatorA, creatorA, creatorB} {
		link := testutil.NewTestLink(t, creator, testutil.UniqueID("campaign"))
		link.OrganizationID = orgID
		if err := repo.CreateLink(ctx, link); err != nil {
			t.Fatalf("CreateLink failed: %v", err)
		}
	}

	links, _, err := repo.ListLinks(ctx, LinkFilter{OrganizationID: orgID, CreatorHandle: creatorA}, "", 10)
	if err != nil {
		t.Fatalf("ListLinks failed: %v", err)
	}

	if len(links) != 2 {
		t.Errorf("Expected 2 links for creator filter, got %d", len(links))
	}
	for _, l := range links {
		if l.CreatorHandle != creatorA {
			t.Errorf("Unexpected creator %q in filtered result", l.CreatorHandle)
		}
	}
}

// ============================================================================
// Test Environment Setup
// ============================================================================

func newLinkTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetLinksSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset links schema: %v", err)
	}

	return ctx, repo
}
