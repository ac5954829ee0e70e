//go:build integration

package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stackfluence/stackfluence/internal/analytics"
	"github.com/stackfluence/stackfluence/internal/botrisk"
	"github.com/stackfluence/stackfluence/internal/cache"
	"github.com/stackfluence/stackfluence/internal/clickid"
	"github.com/stackfluence/stackfluence/internal/intel"
	"github.com/stackfluence/stackfluence/internal/metrics"
	"github.com/stackfluence/stackfluence/internal/repository"
	"github.com/stackfluence/stackfluence/internal/service"
	"github.com/stackfluence/stackfluence/internal/testutil"
)

const testUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

func TestRedirect_CacheMissThenHit(t *testing.T) {
	env := newRedirectTestEnv(t)

	handle := fmt.Sprintf("creator%d", time.Now().UnixNano()%1e9)
	link, err := env.svc.CreateLink(env.ctx, service.CreateLinkInput{
		OrganizationID: "test-org",
		CreatorHandle:  handle,
		CampaignSlug:   "summer-sale",
		DestinationURL: "https://shop.example.com/sale",
	})
	if err != nil {
		t.Fatalf("create link: %v", err)
	}

	rec := env.get(t, "/c/"+handle+"/summer-sale")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "https://shop.example.com/sale") {
		t.Fatalf("unexpected Location %q", location)
	}
	if !strings.Contains(location, "inf_click_id=") {
		t.Fatalf("expected click identifier on destination, got %q", location)
	}

	snap := env.recorder.Snapshot()
	if snap.RedirectCacheMisses != 1 || snap.RedirectCacheHits != 0 {
		t.Fatalf("unexpected cache counters: hits=%d misses=%d", snap.RedirectCacheHits, snap.RedirectCacheMisses)
	}

	if _, err := env.cache.GetLink(env.ctx, handle, "summer-sale", ""); err != nil {
		t.Fatalf("expected cached link for %s, got %v", link.ID, err)
	}

	rec2 := env.get(t, "/c/"+handle+"/summer-sale")
	if rec2.Code != http.StatusFound {
		t.Fatalf("expected 302 on second hit, got %d", rec2.Code)
	}

	snap2 := env.recorder.Snapshot()
	if snap2.RedirectCacheHits != 1 || snap2.RedirectCacheMisses != 1 {
		t.Fatalf("unexpected cache counters after hit: hits=%d misses=%d", snap2.RedirectCacheHits, snap2.RedirectCacheMisses)
	}
	if snap2.RedirectsServed != 2 {
		t.Fatalf("expected 2 served redirects, got %d", snap2.RedirectsServed)
	}
}

func TestRedirect_UnknownPath(t *testing.T) {
	env := newRedirectTestEnv(t)

	rec := env.get(t, "/c/nobody/nothing")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRedirect_DisabledLinkLooksUnknown(t *testing.T) {
	env := newRedirectTestEnv(t)

	handle := fmt.Sprintf("paused%d", time.Now().UnixNano()%1e9)
	link := testutil.NewTestLink(t, handle, "paused-campaign")
	link.Enabled = false
	if err := env.repo.CreateLink(env.ctx, link); err != nil {
		t.Fatalf("create link: %v", err)
	}

	rec := env.get(t, "/c/"+handle+"/paused-campaign")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for disabled link, got %d", rec.Code)
	}
}

func TestRedirect_BlockedUserAgent(t *testing.T) {
	env := newRedirectTestEnv(t)

	handle := fmt.Sprintf("bot%d", time.Now().UnixNano()%1e9)
	if err := env.repo.CreateLink(env.ctx, testutil.NewTestLink(t, handle, "launch")); err != nil {
		t.Fatalf("create link: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/c/"+handle+"/launch", nil)
	req.Header.Set("User-Agent", "curl/8.4.0")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for blocked agent, got %d", rec.Code)
	}
	if snap := env.recorder.Snapshot(); snap.BotsBlocked != 1 {
		t.Fatalf("expected 1 blocked bot, got %d", snap.BotsBlocked)
	}
}

func TestRedirect_SetsTrackingCookies(t *testing.T) {
	env := newRedirectTestEnv(t)

	handle := fmt.Sprintf("cookies%d", time.Now().UnixNano()%1e9)
	if err := env.repo.CreateLink(env.ctx, testutil.NewTestLink(t, handle, "drop")); err != nil {
		t.Fatalf("create link: %v", err)
	}

	rec := env.get(t, "/c/"+handle+"/drop")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}

	cookies := rec.Result().Cookies()
	var gotClick, gotSession bool
	for _, c := range cookies {
		switch c.Name {
		case ClickCookieName:
			gotClick = true
			if _, ok := env.codec.Verify(c.Value); !ok {
				t.Fatalf("click cookie does not verify: %q", c.Value)
			}
		case SessionCookieName:
			gotSession = true
		}
	}
	if !gotClick || !gotSession {
		t.Fatalf("missing tracking cookies: click=%v session=%v", gotClick, gotSession)
	}
}

func TestRedirect_ReusesSessionCookie(t *testing.T) {
	env := newRedirectTestEnv(t)

	handle := fmt.Sprintf("repeat%d", time.Now().UnixNano()%1e9)
	if err := env.repo.CreateLink(env.ctx, testutil.NewTestLink(t, handle, "restock")); err != nil {
		t.Fatalf("create link: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/c/"+handle+"/restock", nil)
	req.Header.Set("User-Agent", testUserAgent)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "existing-session"})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName && c.Value != "existing-session" {
			t.Fatalf("session cookie rotated: %q", c.Value)
		}
	}
}

type redirectTestEnv struct {
	ctx      context.Context
	repo     *repository.Repository
	cache    *cache.Cache
	recorder *metrics.InMemoryRecorder
	svc      *service.LinkService
	codec    *clickid.Codec
	router   *chi.Mux
}

func (e *redirectTestEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("User-Agent", testUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func newRedirectTestEnv(t *testing.T) *redirectTestEnv {
	t.Helper()

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	repo, err := repository.New(ctx, dbURL)
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
		t.Fatalf("reset schema: %v", err)
	}

	cacheClient, err := cache.New(ctx, redisURL)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() {
		_ = cacheClient.Close()
	})

	if err := testutil.FlushRedis(ctx, cacheClient.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}

	recorder := metrics.NewInMemory()
	svc := service.NewLinkService(repo, cacheClient, "http://localhost:8080", recorder)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := analytics.NewPublisher(cacheClient.Client(), logger, recorder)
	codec := clickid.New(clickid.Config{Secret: "integration-test-secret"})

	redirectHandler := NewRedirectHandler(
		svc,
		publisher,
		codec,
		botrisk.NewScorer(),
		intel.NewClassifier(),
		cacheClient,
		recorder,
		logger,
		RedirectConfig{
			BotFlagThreshold: 0.5,
			DedupeWindow:     3 * time.Second,
			ClickCookieTTL:   168 * time.Hour,
			SessionCookieTTL: 720 * time.Hour,
		},
	)

	router := chi.NewRouter()
	router.Get("/c/{creatorHandle}/{campaignSlug}", redirectHandler.Redirect)
	router.Get("/c/{creatorHandle}/{campaignSlug}/{assetSlug}", redirectHandler.Redirect)

	return &redirectTestEnv{
		ctx:      ctx,
		repo:     repo,
		cache:    cacheClient,
		recorder: recorder,
		svc:      svc,
		codec:    codec,
		router:   router,
	}
}
