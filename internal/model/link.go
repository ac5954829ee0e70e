// Package model defines domain entities for the application.
package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// LinkStatus represents the computed status of a wrapped link.
type LinkStatus string

const (
	LinkStatusActive  LinkStatus = "active"
	LinkStatusPaused  LinkStatus = "paused"
	LinkStatusDeleted LinkStatus = "deleted"
)

// LinkConfig is a creator/campaign wrapped link. The redirect path is
// /c/{creator_handle}/{campaign_slug}[/{asset_slug}]. The core
// components only ever read this; it is owned by the persistence layer.
type LinkConfig struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	CreatorHandle  string `json:"creator_handle"`
	CampaignSlug   string `json:"campaign_slug"`
	AssetSlug      string `json:"asset_slug,omitempty"`

	// Destinations
	DestinationURL     string `json:"destination_url"`
	IOSDeeplink        string `json:"ios_deeplink,omitempty"`
	IOSFallbackURL     string `json:"ios_fallback_url,omitempty"`
	AndroidDeeplink    string `json:"android_deeplink,omitempty"`
	AndroidFallbackURL string `json:"android_fallback_url,omitempty"`
	UniversalLink      string `json:"universal_link,omitempty"`

	// Brand-specified parameters, applied after every computed value.
	ParamOverrides map[string]string `json:"param_overrides,omitempty"`

	Enabled   bool       `json:"enabled"`
	DeletedAt *time.Time `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Status computes the current status of the link.
func (l *LinkConfig) Status() LinkStatus {
	if l.DeletedAt != nil {
		return LinkStatusDeleted
	}
	if !l.Enabled {
		return LinkStatusPaused
	}
	return LinkStatusActive
}

// IsActive returns true if the link can serve redirects.
func (l *LinkConfig) IsActive() bool {
	return l.Status() == LinkStatusActive
}

// HasAppDestination reports whether any mobile app destination is
// configured. Mobile-attribution parameters are only injected when
// this is true.
func (l *LinkConfig) HasAppDestination() bool {
	return l.IOSDeeplink != "" || l.IOSFallbackURL != "" ||
		l.AndroidDeeplink != "" || l.AndroidFallbackURL != "" ||
		l.UniversalLink != ""
}

// CachedLinkConfig is the Redis hash representation of a LinkConfig.
// String-typed fields for hash compatibility.
type CachedLinkConfig struct {
	ID                 string `redis:"id"`
	OrganizationID     string `redis:"organization_id"`
	DestinationURL     string `redis:"destination_url"`
	IOSDeeplink        string `redis:"ios_deeplink"`
	IOSFallbackURL     string `redis:"ios_fallback_url"`
	AndroidDeeplink    string `redis:"android_deeplink"`
	AndroidFallbackURL string `redis:"android_fallback_url"`
	UniversalLink      string `redis:"universal_link"`
	ParamOverrides     string `redis:"param_overrides"` // JSON object or empty
	Enabled            string `redis:"enabled"`         // "1" or "0"
	DeletedAt          string `redis:"deleted_at"`      // Unix timestamp or empty
	UpdatedAt          string `redis:"updated_at"`      // Unix timestamp
}

// ToLinkConfig converts the cached form back to the domain model.
func (c *CachedLinkConfig) ToLinkConfig(creatorHandle, campaignSlug, assetSlug string) *LinkConfig {
	link := &LinkConfig{
		ID:                 c.ID,
		OrganizationID:     c.OrganizationID,
		CreatorHandle:      creatorHandle,
		CampaignSlug:       campaignSlug,
		AssetSlug:          assetSlug,
		DestinationURL:     c.DestinationURL,
		IOSDeeplink:        c.IOSDeeplink,
		IOSFallbackURL:     c.IOSFallbackURL,
		AndroidDeeplink:    c.AndroidDeeplink,
		AndroidFallbackURL: c.AndroidFallbackURL,
		UniversalLink:      c.UniversalLink,
		Enabled:            c.Enabled == "1",
	}

	if c.ParamOverrides != "" {
		overrides := map[string]string{}
		if err := json.Unmarshal([]byte(c.ParamOverrides), &overrides); err == nil && len(overrides) > 0 {
			link.ParamOverrides = overrides
		}
	}

	if c.DeletedAt != "" {
		if ts, err := strconv.ParseInt(c.DeletedAt, 10, 64); err == nil {
			t := time.Unix(ts, 0)
			link.DeletedAt = &t
		}
	}

	if c.UpdatedAt != "" {
		if ts, err := strconv.ParseInt(c.UpdatedAt, 10, 64); err == nil {
			link.UpdatedAt = time.Unix(ts, 0)
		}
	}

	return link
}

// ToCachedLinkConfig converts the domain model to its Redis hash form.
func (l *LinkConfig) ToCachedLinkConfig() *CachedLinkConfig {
	cached := &CachedLinkConfig{
		ID:                 l.ID,
		OrganizationID:     l.OrganizationID,
		DestinationURL:     l.DestinationURL,
		IOSDeeplink:        l.IOSDeeplink,
		IOSFallbackURL:     l.IOSFallbackURL,
		AndroidDeeplink:    l.AndroidDeeplink,
		AndroidFallbackURL: l.AndroidFallbackURL,
		UniversalLink:      l.UniversalLink,
		Enabled:            boolToString(l.Enabled),
		UpdatedAt:          strconv.FormatInt(l.UpdatedAt.Unix(), 10),
	}

	if len(l.ParamOverrides) > 0 {
		if data, err := json.Marshal(l.ParamOverrides); err == nil {
			cached.ParamOverrides = string(data)
		}
	}

	if l.DeletedAt != nil {
		cached.DeletedAt = strconv.FormatInt(l.DeletedAt.Unix(), 10)
	}

	return cached
}

// boolToString converts boolean to "1" or "0".
func boolToString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
