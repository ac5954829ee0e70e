package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stackfluence/stackfluence/internal/analytics"
	"github.com/stackfluence/stackfluence/internal/botrisk"
	"github.com/stackfluence/stackfluence/internal/cache"
	"github.com/stackfluence/stackfluence/internal/clickid"
	"github.com/stackfluence/stackfluence/internal/intel"
	"github.com/stackfluence/stackfluence/internal/metrics"
	"github.com/stackfluence/stackfluence/internal/model"
	"github.com/stackfluence/stackfluence/internal/params"
	"github.com/stackfluence/stackfluence/internal/service"
)

// Cookie names set on the redirect domain.
const (
	ClickCookieName   = "inf_click_id"
	SessionCookieName = "inf_session_id"
)

// RedirectConfig carries the tunables for the redirect path.
type RedirectConfig struct {
	BotFlagThreshold float64
	DedupeWindow     time.Duration
	ClickCookieTTL   time.Duration
	SessionCookieTTL time.Duration

	RateLimitEnabled bool
	RateLimitRPS     int
	RateLimitBurst   int
}

// RedirectHandler serves wrapped-link clicks: resolve, score, classify,
// mint, publish, redirect. Everything that can be deferred off the
// hot path is.
type RedirectHandler struct {
	svc        *service.LinkService
	publisher  *analytics.Publisher
	codec      *clickid.Codec
	scorer     *botrisk.Scorer
	classifier *intel.Classifier
	cache      *cache.Cache
	metrics    metrics.Recorder
	logger     *slog.Logger
	cfg        RedirectConfig
}

// NewRedirectHandler creates a RedirectHandler.
func NewRedirectHandler(
	svc *service.LinkService,
	publisher *analytics.Publisher,
	codec *clickid.Codec,
	scorer *botrisk.Scorer,
	classifier *intel.Classifier,
	cacheClient *cache.Cache,
	recorder metrics.Recorder,
	logger *slog.Logger,
	cfg RedirectConfig,
) *RedirectHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &RedirectHandler{
		svc:        svc,
		publisher:  publisher,
		codec:      codec,
		scorer:     scorer,
		classifier: classifier,
		cache:      cacheClient,
		metrics:    recorder,
		logger:     logger,
		cfg:        cfg,
	}
}

// Redirect handles GET /c/{creatorHandle}/{campaignSlug}[/{assetSlug}].
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	creatorHandle := chi.URLParam(r, "creatorHandle")
	campaignSlug := chi.URLParam(r, "campaignSlug")
	assetSlug := chi.URLParam(r, "assetSlug")

	link, cacheHit, err := h.svc.ResolveLink(ctx, creatorHandle, campaignSlug, assetSlug)
	if err != nil {
		h.handleResolveError(w, r, err)
		return
	}

	userAgent := r.UserAgent()
	clientIP := getClientIP(r)
	headers := collectHeaders(r)
	query := flattenQuery(r)

	// Rate-limit trips on the click path are a bot signal, not an
	// HTTP error: humans never hit per-IP redirect limits, and a 429
	// would leak that the limiter exists.
	rateLimited := false
	if h.cfg.RateLimitEnabled && h.cache != nil {
		if result, rlErr := h.cache.CheckIPRateLimit(ctx, clientIP, h.cfg.RateLimitRPS, h.cfg.RateLimitBurst); rlErr == nil && !result.Allowed {
			rateLimited = true
		}
	}

	verdict := h.scorer.Score(botrisk.Input{
		UserAgent:   userAgent,
		Headers:     headers,
		RateLimited: rateLimited,
	})

	if verdict.ShouldBlock {
		h.metrics.IncBotBlocked()
		h.logger.Info("bot_blocked",
			slog.String("link_id", link.ID),
			slog.String("reason", verdict.Reason),
			slog.Float64("risk_score", verdict.RiskScore),
		)
		// Indistinguishable from a dead link.
		writeSecurityHeaders(w)
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	// Duplicate clicks within the window still redirect, the event
	// is just marked so it never counts toward billing.
	duplicate := false
	if h.cache != nil && h.cfg.DedupeWindow > 0 {
		if first, dErr := h.cache.ClaimClick(ctx, clientIP, r.URL.Path, userAgent, h.cfg.DedupeWindow); dErr == nil && !first {
			duplicate = true
		}
	}

	info := h.classifier.Classify(intel.Input{
		UserAgent:      userAgent,
		Referer:        r.Referer(),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		Headers:        headers,
		Query:          query,
	})

	platformParams := params.ExtractPlatformParams(query)
	cid := h.codec.Mint()
	resolution := params.ResolveDestination(link, cid.String(), info, platformParams, headers)

	sessionID := sessionIDFromRequest(r)

	event := h.buildClickEvent(link, cid.String(), sessionID, clientIP, userAgent, r, info, verdict, duplicate, resolution, platformParams, query, start)
	h.publisher.PublishAsync(event)

	if event.IsSuspectedBot {
		h.metrics.IncBotFlagged()
	}
	if cacheHit {
		h.metrics.IncRedirectCacheHit()
	} else {
		h.metrics.IncRedirectCacheMiss()
	}

	setTrackingCookies(w, r, cid, sessionID, h.cfg)
	writeSecurityHeaders(w)

	h.metrics.IncRedirectServed()
	h.metrics.ObserveRedirectDuration(time.Since(start))
	h.logger.Info("redirect_served",
		slog.String("link_id", link.ID),
		slog.String("click_id", cid.UID),
		slog.String("source_platform", info.SourcePlatform),
		slog.Bool("cache_hit", cacheHit),
		slog.Duration("duration", time.Since(start)),
	)

	http.Redirect(w, r, resolution.FinalURL, http.StatusFound)
}

func (h *RedirectHandler) buildClickEvent(
	link *model.LinkConfig,
	clickID, sessionID, clientIP, userAgent string,
	r *http.Request,
	info intel.Intelligence,
	verdict botrisk.Verdict,
	duplicate bool,
	resolution params.Resolution,
	platformParams, query map[string]string,
	clickedAt time.Time,
) *model.ClickEvent {
	suspected := duplicate || verdict.RiskScore >= h.cfg.BotFlagThreshold
	botReason := verdict.Reason
	if duplicate && botReason == "" {
		botReason = "duplicate_click"
	}

	signalsJSON, _ := json.Marshal(verdict.Signals)

	utm := make(map[string]string)
	for k, v := range resolution.PersistedParams {
		if strings.HasPrefix(k, "utm_") {
			utm[k] = v
		}
	}

	return &model.ClickEvent{
		ClickID:   clickID,
		SessionID: sessionID,

		LinkID:         link.ID,
		OrganizationID: link.OrganizationID,
		CreatorHandle:  link.CreatorHandle,
		CampaignSlug:   link.CampaignSlug,
		AssetSlug:      link.AssetSlug,

		DestinationURLRaw:   link.DestinationURL,
		DestinationURLFinal: resolution.FinalURL,

		UTM:              utm,
		InjectedParams:   resolution.PersistedParams,
		PlatformClickIDs: platformParams,
		QueryParams:      query,

		RefererFull:    analytics.SanitizeReferrer(r.Referer()),
		RefererDomain:  analytics.ExtractReferrerDomain(r.Referer()),
		RefererPath:    info.RefererPath,
		SourcePlatform: info.SourcePlatform,
		SourceMedium:   info.SourceMedium,
		SourceDetail:   info.SourceDetail,
		IsInAppBrowser: info.IsInAppBrowser,
		InAppPlatform:  info.InAppPlatform,

		SecFetchSite: r.Header.Get("Sec-Fetch-Site"),
		SecFetchMode: r.Header.Get("Sec-Fetch-Mode"),
		SecFetchDest: r.Header.Get("Sec-Fetch-Dest"),
		SecFetchUser: r.Header.Get("Sec-Fetch-User"),

		UserAgent:      analytics.TruncateUserAgent(userAgent),
		DeviceClass:    info.DeviceClass,
		OSFamily:       info.OSFamily,
		OSVersion:      info.OSVersion,
		BrowserFamily:  info.BrowserFamily,
		BrowserVersion: info.BrowserVersion,
		IsMobile:       info.IsMobile,

		VisitorHash: analytics.GenerateVisitorHash(clientIP, userAgent, clickedAt),
		CountryCode: analytics.ExtractCountryCode(r.Header.Get("CF-IPCountry")),

		Language: info.Language,
		Locale:   info.Locale,

		RiskScore:      verdict.RiskScore,
		IsSuspectedBot: suspected,
		BotReason:      botReason,
		BotSignals:     signalsJSON,

		ClickedAt: clickedAt.UTC(),
	}
}

func (h *RedirectHandler) handleResolveError(w http.ResponseWriter, r *http.Request, err error) {
	writeSecurityHeaders(w)

	switch {
	case errors.Is(err, service.ErrLinkNotFound), errors.Is(err, service.ErrLinkDisabled):
		// Disabled links look exactly like unknown ones.
		http.Error(w, "Not Found", http.StatusNotFound)
	default:
		h.logger.Error("redirect_resolve_failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// sessionIDFromRequest returns the existing session cookie value or a
// fresh UUID for first-time visitors.
func sessionIDFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return uuid.NewString()
}

func setTrackingCookies(w http.ResponseWriter, r *http.Request, cid clickid.ClickID, sessionID string, cfg RedirectConfig) {
	secure := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"

	http.SetCookie(w, &http.Cookie{
		Name:     ClickCookieName,
		Value:    cid.String(),
		Path:     "/",
		MaxAge:   int(cfg.ClickCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(cfg.SessionCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")
}

// collectHeaders lowercases the inbound header set into a flat map.
// Multi-valued headers keep their first value; the classifiers only
// read singleton headers.
func collectHeaders(r *http.Request) map[string]string {
	headers := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		if len(values) > 0 {
			headers[strings.ToLower(name)] = values[0]
		}
	}
	return headers
}

// flattenQuery keeps the first value per query key.
func flattenQuery(r *http.Request) map[string]string {
	values := r.URL.Query()
	query := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			query[key] = vals[0]
		}
	}
	return query
}

// getClientIP extracts the client IP, preferring proxy headers.
func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
