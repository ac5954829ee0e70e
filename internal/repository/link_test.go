package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stackfluence/stackfluence/internal/model"
	"github.com/stackfluence/stackfluence/internal/testutil"
)

func TestRepository_CreateAndGetLink(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	link := newTestLink()
	if err := repo.CreateLink(ctx, link); err != nil {
		t.Fatalf("create link: %v", err)
	}

	byID, err := repo.GetLinkByID(ctx, link.ID)
	if err != nil {
		t.Fatalf("get link by ID: %v", err)
	}
	assertLinkEqual(t, link, byID)

	byPath, err := repo.GetLinkByPath(ctx, link.CreatorHandle, link.CampaignSlug, link.AssetSlug)
	if err != nil {
		t.Fatalf("get link by path: %v", err)
	}
	assertLinkEqual(t, link, byPath)

	exists, err := repo.LinkPathExists(ctx, link.CreatorHandle, link.CampaignSlug, link.AssetSlug)
	if err != nil {
		t.Fatalf("link path exists: %v", err)
	}
	if !exists {
		t.Fatalf("expected link path to exist")
	}

	duplicate := newTestLink()
	duplicate.CreatorHandle = link.CreatorHandle
	duplicate.CampaignSlug = link.CampaignSlug
	duplicate.AssetSlug = link.AssetSlug
	if err := repo.CreateLink(ctx, duplicate); !errors.Is(err, ErrLinkExists) {
		t.Fatalf("expected ErrLinkExists, got %v", err)
	}
}

func TestRepository_GetLinkByPath_AssetVariants(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	base := newTestLink()
	if err := repo.CreateLink(ctx, base); err != nil {
		t.Fatalf("create base link: %v", err)
	}

	withAsset := newTestLink()
	withAsset.CreatorHandle = base.CreatorHandle
	withAsset.CampaignSlug = base.CampaignSlug
	withAsset.AssetSlug = "story-1"
	if err := repo.CreateLink(ctx, withAsset); err != nil {
		t.Fatalf("create asset link: %v", err)
	}

	got, err := repo.GetLinkByPath(ctx, base.CreatorHandle, base.CampaignSlug, "")
	if err != nil {
		t.Fatalf("get asset-less link: %v", err)
	}
	if got.ID != base.ID {
		t.Fatalf("empty asset slug resolved to %q, want %q", got.ID, base.ID)
	}

	got, err = repo.GetLinkByPath(ctx, base.CreatorHandle, base.CampaignSlug, "story-1")
	if err != nil {
		t.Fatalf("get asset link: %v", err)
	}
	if got.ID != withAsset.ID {
		t.Fatalf("asset slug resolved to %q, want %q", got.ID, withAsset.ID)
	}
}

func TestRepository_UpdateLink(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	link := newTestLink()
	if err := repo.CreateLink(ctx, link); err != nil {
		t.Fatalf("create link: %v", err)
	}

	link.DestinationURL = "https://example.com/updated"
	link.UniversalLink = "https://app.example.com/updated"
	link.ParamOverrides = map[string]string{"utm_source": "brand_override"}
	link.Enabled = false

	if err := repo.UpdateLink(ctx, link); err != nil {
		t.Fatalf("update link: %v", err)
	}

	loaded, err := repo.GetLinkByID(ctx, link.ID)
	if err != nil {
		t.Fatalf("get link by ID: %v", err)
	}

	if loaded.DestinationURL != link.DestinationURL {
		t.Fatalf("expected destination %q, got %q", link.DestinationURL, loaded.DestinationURL)
	}
	if loaded.UniversalLink != link.UniversalLink {
		t.Fatalf("expected universal link %q, got %q", link.UniversalLink, loaded.UniversalLink)
	}
	if loaded.ParamOverrides["utm_source"] != "brand_override" {
		t.Fatalf("expected param override to persist, got %v", loaded.ParamOverrides)
	}
	if loaded.Enabled {
		t.Fatalf("expected link to be disabled")
	}
}

func TestRepository_DeleteLink(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	link := newTestLink()
	if err := repo.CreateLink(ctx, link); err != nil {
		t.Fatalf("create link: %v", err)
	}

	if err := repo.DeleteLink(ctx, link.ID); err != nil {
		t.Fatalf("delete link: %v", err)
	}

	if _, err := repo.GetLinkByID(ctx, link.ID); !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}

func newTestRepository(t *testing.T, ctx context.Context) *Repository {
	t.Helper()

	dbURL := testutil.RequireEnv(t, "DATABASE_URL")
	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("create repository: %v", err)
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
		t.Fatalf("reset schema: %v", err)
	}

	return repo
}

func newTestLink() *model.LinkConfig {
	now := time.Now().UTC()
	nano := now.UnixNano()

	return &model.LinkConfig{
		ID:             fmt.Sprintf("test-%d", nano),
		OrganizationID: "test-org",
		CreatorHandle:  fmt.Sprintf("creator-%d", nano),
		CampaignSlug:   fmt.Sprintf("campaign-%d", nano),
		DestinationURL: "https://example.com",
		ParamOverrides: map[string]string{},
		Enabled:        true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func assertLinkEqual(t *testing.T, expected, actual *model.LinkConfig) {
	t.Helper()

	if expected.CreatorHandle != actual.CreatorHandle {
		t.Fatalf("creator_handle mismatch: %q vs %q", expected.CreatorHandle, actual.CreatorHandle)
	}
	if expected.CampaignSlug != actual.CampaignSlug {
		t.Fatalf("campaign_slug mismatch: %q vs %q", expected.CampaignSlug, actual.CampaignSlug)
	}
	if expected.AssetSlug != actual.AssetSlug {
		t.Fatalf("asset_slug mismatch: %q vs %q", expected.AssetSlug, actual.AssetSlug)
	}
	if expected.DestinationURL != actual.DestinationURL {
		t.Fatalf("destination_url mismatch: %q vs %q", expected.DestinationURL, actual.DestinationURL)
	}
	if expected.Enabled != actual.Enabled {
		t.Fatalf("enabled mismatch: %v vs %v", expected.Enabled, actual.Enabled)
	}
}
