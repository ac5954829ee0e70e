// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/stackfluence/stackfluence/internal/model"
)

// CreateLinkRequest represents the request body for creating a wrapped link.
type CreateLinkRequest struct {
	CreatorHandle      string            `json:"creator_handle"`
	CampaignSlug       string            `json:"campaign_slug"`
	AssetSlug          string            `json:"asset_slug,omitempty"`
	DestinationURL     string            `json:"destination_url"`
	IOSDeeplink        string            `json:"ios_deeplink,omitempty"`
	IOSFallbackURL     string            `json:"ios_fallback_url,omitempty"`
	AndroidDeeplink    string            `json:"android_deeplink,omitempty"`
	AndroidFallbackURL string            `json:"android_fallback_url,omitempty"`
	UniversalLink      string            `json:"universal_link,omitempty"`
	ParamOverrides     map[string]string `json:"param_overrides,omitempty"`
}

// UpdateLinkRequest represents the request body for updating a link.
// Omitted fields are left unchanged; param_overrides replaces the full set.
type UpdateLinkRequest struct {
	DestinationURL     *string           `json:"destination_url,omitempty"`
	IOSDeeplink        *string           `json:"ios_deeplink,omitempty"`
	IOSFallbackURL     *string           `json:"ios_fallback_url,omitempty"`
	AndroidDeeplink    *string           `json:"android_deeplink,omitempty"`
	AndroidFallbackURL *string           `json:"android_fallback_url,omitempty"`
	UniversalLink      *string           `json:"universal_link,omitempty"`
	ParamOverrides     map[string]string `json:"param_overrides,omitempty"`
	Enabled            *bool             `json:"enabled,omitempty"`
}

// LinkResponse represents a wrapped link in API responses.
type LinkResponse struct {
	ID                 string            `json:"id"`
	OrganizationID     string            `json:"organization_id"`
	CreatorHandle      string            `json:"creator_handle"`
	CampaignSlug       string            `json:"campaign_slug"`
	AssetSlug          string            `json:"asset_slug,omitempty"`
	WrappedURL         string            `json:"wrapped_url"`
	DestinationURL     string            `json:"destination_url"`
	IOSDeeplink        string            `json:"ios_deeplink,omitempty"`
	IOSFallbackURL     string            `json:"ios_fallback_url,omitempty"`
	AndroidDeeplink    string            `json:"android_deeplink,omitempty"`
	AndroidFallbackURL string            `json:"android_fallback_url,omitempty"`
	UniversalLink      string            `json:"universal_link,omitempty"`
	ParamOverrides     map[string]string `json:"param_overrides,omitempty"`
	Status             string            `json:"status"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// LinkListResponse represents a paginated list of links.
type LinkListResponse struct {
	Data       []LinkResponse `json:"data"`
	Pagination *Pagination    `json:"pagination"`
}

// Pagination provides cursor-based pagination info.
type Pagination struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToLinkResponse converts a LinkConfig model to LinkResponse DTO.
func ToLinkResponse(link *model.LinkConfig, wrappedURL string) *LinkResponse {
	return &LinkResponse{
		ID:                 link.ID,
		OrganizationID:     link.OrganizationID,
		CreatorHandle:      link.CreatorHandle,
		CampaignSlug:       link.CampaignSlug,
		AssetSlug:          link.AssetSlug,
		WrappedURL:         wrappedURL,
		DestinationURL:     link.DestinationURL,
		IOSDeeplink:        link.IOSDeeplink,
		IOSFallbackURL:     link.IOSFallbackURL,
		AndroidDeeplink:    link.AndroidDeeplink,
		AndroidFallbackURL: link.AndroidFallbackURL,
		UniversalLink:      link.UniversalLink,
		ParamOverrides:     link.ParamOverrides,
		Status:             string(link.Status()),
		CreatedAt:          link.CreatedAt,
		UpdatedAt:          link.UpdatedAt,
	}
}
