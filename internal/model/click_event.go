// Package model defines domain entities for the application.
package model

import "time"

// ClickEvent is the wide analytic row persisted per redirect. It
// carries the full source intelligence, injected parameters, and bot
// signals so attribution and billing queries never need the raw
// request again.
type ClickEvent struct {
	ID      string `json:"id"`       // ULID (time-sortable)
	EventID string `json:"event_id"` // Idempotency key (Redis stream ID)

	ClickID   string `json:"click_id"`   // signed click identifier (wire form)
	SessionID string `json:"session_id"` // repeat-visit stitching cookie

	// Link reference
	LinkID         string `json:"link_id"`
	OrganizationID string `json:"organization_id"`
	CreatorHandle  string `json:"creator_handle"`
	CampaignSlug   string `json:"campaign_slug"`
	AssetSlug      string `json:"asset_slug,omitempty"`

	// Destinations
	DestinationURLRaw   string `json:"destination_url_raw"`
	DestinationURLFinal string `json:"destination_url_final"`

	// Injected and captured parameters
	UTM              map[string]string `json:"utm,omitempty"`
	InjectedParams   map[string]string `json:"injected_params,omitempty"`
	PlatformClickIDs map[string]string `json:"platform_click_ids,omitempty"`
	QueryParams      map[string]string `json:"query_params,omitempty"`

	// Source intelligence
	RefererFull    string `json:"referer_full,omitempty"`
	RefererDomain  string `json:"referer_domain,omitempty"`
	RefererPath    string `json:"referer_path,omitempty"`
	SourcePlatform string `json:"source_platform"`
	SourceMedium   string `json:"source_medium"`
	SourceDetail   string `json:"source_detail,omitempty"`
	IsInAppBrowser bool   `json:"is_in_app_browser"`
	InAppPlatform  string `json:"in_app_platform,omitempty"`

	// Sec-Fetch metadata headers
	SecFetchSite string `json:"sec_fetch_site,omitempty"`
	SecFetchMode string `json:"sec_fetch_mode,omitempty"`
	SecFetchDest string `json:"sec_fetch_dest,omitempty"`
	SecFetchUser string `json:"sec_fetch_user,omitempty"`

	// User agent and device
	UserAgent      string `json:"user_agent,omitempty"` // truncated 500 chars
	DeviceClass    string `json:"device_class"`
	OSFamily       string `json:"os_family"`
	OSVersion      string `json:"os_version,omitempty"`
	BrowserFamily  string `json:"browser_family"`
	BrowserVersion string `json:"browser_version,omitempty"`
	IsMobile       bool   `json:"is_mobile"`

	// Privacy-safe visitor identification
	VisitorHash string `json:"visitor_hash"` // SHA256(IP + UA + daily_salt)[0:16]

	// Geo (unfilled until a GeoIP source is wired)
	CountryCode string `json:"country_code,omitempty"`

	// Language
	Language string `json:"language,omitempty"`
	Locale   string `json:"locale,omitempty"`

	// Bot / fraud
	RiskScore      float64 `json:"risk_score"`
	IsSuspectedBot bool    `json:"is_suspected_bot"`
	BotReason      string  `json:"bot_reason,omitempty"`
	BotSignals     []byte  `json:"bot_signals,omitempty"` // JSON, stored as JSONB

	// Timestamps
	ClickedAt time.Time `json:"clicked_at"`
	CreatedAt time.Time `json:"created_at"`
}
