// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stackfluence/stackfluence/internal/cache"
	"github.com/stackfluence/stackfluence/internal/metrics"
	"github.com/stackfluence/stackfluence/internal/model"
	"github.com/stackfluence/stackfluence/internal/repository"
)

// Service errors.
var (
	ErrInvalidDestination = errors.New("invalid destination URL")
	ErrInvalidDeeplink    = errors.New("invalid deep link URI")
	ErrInvalidPath        = errors.New("invalid creator handle or slug")
	ErrPathExists         = errors.New("link path already exists")
	ErrLinkNotFound       = errors.New("link not found")
	ErrLinkDisabled       = errors.New("link is disabled")
	ErrURLTooLong         = errors.New("destination URL too long")
)

// Path segment validation: 2-64 chars, alphanumeric + hyphen + underscore.
var slugRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{2,64}$`)

const maxDestinationLength = 2048

// LinkService handles wrapped link business logic.
type LinkService struct {
	repo    *repository.Repository
	cache   *cache.Cache
	baseURL string
	metrics metrics.Recorder
}

// NewLinkService creates a new LinkService.
func NewLinkService(repo *repository.Repository, cache *cache.Cache, baseURL string, recorder metrics.Recorder) *LinkService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &LinkService{
		repo:    repo,
		cache:   cache,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		metrics: recorder,
	}
}

// CreateLinkInput defines input for creating a wrapped link.
type CreateLinkInput struct {
	OrganizationID     string
	CreatorHandle      string
	CampaignSlug       string
	AssetSlug          string
	DestinationURL     string
	IOSDeeplink        string
	IOSFallbackURL     string
	AndroidDeeplink    string
	AndroidFallbackURL string
	UniversalLink      string
	ParamOverrides     map[string]string
}

// CreateLink creates a new wrapped link.
func (s *LinkService) CreateLink(ctx context.Context, input CreateLinkInput) (*model.LinkConfig, error) {
	// Validate path segments
	if !slugRegex.MatchString(input.CreatorHandle) || !slugRegex.MatchString(input.CampaignSlug) {
		return nil, ErrInvalidPath
	}
	if input.AssetSlug != "" && !slugRegex.MatchString(input.AssetSlug) {
		return nil, ErrInvalidPath
	}

	// Validate web destinations
	if err := s.validateDestination(input.DestinationURL); err != nil {
		return nil, err
	}
	for _, u := range []string{input.IOSFallbackURL, input.AndroidFallbackURL, input.UniversalLink} {
		if u == "" {
			continue
		}
		if err := s.validateDestination(u); err != nil {
			return nil, err
		}
	}

	// Deep links carry app-custom schemes, so only require one
	for _, u := range []string{input.IOSDeeplink, input.AndroidDeeplink} {
		if u == "" {
			continue
		}
		if err := validateDeeplink(u); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	link := &model.LinkConfig{
		ID:                 uuid.NewString(),
		OrganizationID:     input.OrganizationID,
		CreatorHandle:      input.CreatorHandle,
		CampaignSlug:       input.CampaignSlug,
		AssetSlug:          input.AssetSlug,
		DestinationURL:     input.DestinationURL,
		IOSDeeplink:        input.IOSDeeplink,
		IOSFallbackURL:     input.IOSFallbackURL,
		AndroidDeeplink:    input.AndroidDeeplink,
		AndroidFallbackURL: input.AndroidFallbackURL,
		UniversalLink:      input.UniversalLink,
		ParamOverrides:     input.ParamOverrides,
		Enabled:            true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.CreateLink(ctx, link); err != nil {
		if errors.Is(err, repository.ErrLinkExists) {
			return nil, ErrPathExists
		}
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	s.metrics.IncLinkCreated()

	return link, nil
}

// GetLink retrieves a link by ID.
func (s *LinkService) GetLink(ctx context.Context, id string) (*model.LinkConfig, error) {
	link, err := s.repo.GetLinkByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	return link, nil
}

// ListLinksInput defines input for listing links.
type ListLinksInput struct {
	OrganizationID string
	CreatorHandle  string
	CampaignSlug   string
	Status         string
	Cursor         string
	Limit          int
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
}

// ListLinksOutput defines output for listing links.
type ListLinksOutput struct {
	Links      []*model.LinkConfig
	NextCursor string
	HasMore    bool
}

// ListLinks retrieves a paginated list of links for an organization.
func (s *LinkService) ListLinks(ctx context.Context, input ListLinksInput) (*ListLinksOutput, error) {
	// Set defaults
	if input.Limit <= 0 || input.Limit > 100 {
		input.Limit = 20
	}

	filter := repository.LinkFilter{
		OrganizationID: input.OrganizationID,
		CreatorHandle:  input.CreatorHandle,
		CampaignSlug:   input.CampaignSlug,
		CreatedAfter:   input.CreatedAfter,
		CreatedBefore:  input.CreatedBefore,
	}

	links, nextCursor, err := s.repo.ListLinks(ctx, filter, input.Cursor, input.Limit)
	if err != nil {
		return nil, err
	}

	// Filter by computed status if specified
	if input.Status != "" {
		filtered := make([]*model.LinkConfig, 0, len(links))
		targetStatus := model.LinkStatus(input.Status)
		for _, link := range links {
			if link.Status() == targetStatus {
				filtered = append(filtered, link)
			}
		}
		links = filtered
	}

	return &ListLinksOutput{
		Links:      links,
		NextCursor: nextCursor,
		HasMore:    nextCursor != "",
	}, nil
}

// UpdateLinkInput defines input for updating a link.
// Nil pointers leave the field unchanged.
type UpdateLinkInput struct {
	ID                 string
	DestinationURL     *string
	IOSDeeplink        *string
	IOSFallbackURL     *string
	AndroidDeeplink    *string
	AndroidFallbackURL *string
	UniversalLink      *string
	ParamOverrides     map[string]string // Replaces the full set when non-nil
	Enabled            *bool
}

// UpdateLink updates a link's mutable fields.
func (s *LinkService) UpdateLink(ctx context.Context, input UpdateLinkInput) (*model.LinkConfig, error) {
	// Get existing link
	link, err := s.repo.GetLinkByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	// Apply updates
	if input.DestinationURL != nil {
		if err := s.validateDestination(*input.DestinationURL); err != nil {
			return nil, err
		}
		link.DestinationURL = *input.DestinationURL
	}

	for _, f := range []struct {
		in  *string
		out *string
		web bool
	}{
		{input.IOSDeeplink, &link.IOSDeeplink, false},
		{input.AndroidDeeplink, &link.AndroidDeeplink, false},
		{input.IOSFallbackURL, &link.IOSFallbackURL, true},
		{input.AndroidFallbackURL, &link.AndroidFallbackURL, true},
		{input.UniversalLink, &link.UniversalLink, true},
	} {
		if f.in == nil {
			continue
		}
		if *f.in != "" {
			if f.web {
				if err := s.validateDestination(*f.in); err != nil {
					return nil, err
				}
			} else if err := validateDeeplink(*f.in); err != nil {
				return nil, err
			}
		}
		*f.out = *f.in
	}

	if input.ParamOverrides != nil {
		link.ParamOverrides = input.ParamOverrides
	}

	if input.Enabled != nil {
		link.Enabled = *input.Enabled
	}

	// Update in database
	if err := s.repo.UpdateLink(ctx, link); err != nil {
		return nil, err
	}

	s.metrics.IncLinkUpdated()

	// Invalidate cache; eventual consistency is acceptable
	_ = s.cache.DeleteLink(ctx, link.CreatorHandle, link.CampaignSlug, link.AssetSlug)

	return link, nil
}

// DeleteLink soft-deletes a link.
func (s *LinkService) DeleteLink(ctx context.Context, id string) error {
	// Get link first for the cache invalidation path
	link, err := s.repo.GetLinkByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return ErrLinkNotFound
		}
		return err
	}

	// Soft delete in database
	if err := s.repo.DeleteLink(ctx, id); err != nil {
		return err
	}

	s.metrics.IncLinkDeleted()

	// Invalidate cache
	_ = s.cache.DeleteLink(ctx, link.CreatorHandle, link.CampaignSlug, link.AssetSlug)

	return nil
}

// ResolveLink resolves a redirect path to its link config.
// This is the hot path - optimized for speed with cache-first lookup.
func (s *LinkService) ResolveLink(ctx context.Context, creatorHandle, campaignSlug, assetSlug string) (*model.LinkConfig, bool, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveRedirectDuration(time.Since(start))
	}()

	cacheHit := false

	// Step 1: Try cache
	cached, err := s.cache.GetLink(ctx, creatorHandle, campaignSlug, assetSlug)
	if err == nil {
		// Cache hit - validate and return
		cacheHit = true
		s.metrics.IncRedirectCacheHit()
		link := cached.ToLinkConfig(creatorHandle, campaignSlug, assetSlug)
		validated, err := s.validateServableLink(ctx, link)
		return validated, cacheHit, err
	}

	// Step 2: Check negative cache
	if errors.Is(err, cache.ErrCacheMiss) {
		s.metrics.IncRedirectCacheMiss()
		isNegative, _ := s.cache.IsNegativelyCached(ctx, creatorHandle, campaignSlug, assetSlug)
		if isNegative {
			return nil, cacheHit, ErrLinkNotFound
		}
	}
	// Redis errors fall through to the DB

	// Step 3: DB lookup
	link, err := s.repo.GetLinkByPath(ctx, creatorHandle, campaignSlug, assetSlug)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			_ = s.cache.SetNegativeCache(ctx, creatorHandle, campaignSlug, assetSlug)
			return nil, cacheHit, ErrLinkNotFound
		}
		return nil, cacheHit, err
	}

	// Step 4: Backfill cache
	_ = s.cache.SetLink(ctx, link)

	// Step 5: Validate and return
	validated, err := s.validateServableLink(ctx, link)
	return validated, cacheHit, err
}

// WrappedURL returns the public redirect URL for a link.
func (s *LinkService) WrappedURL(link *model.LinkConfig) string {
	path := s.baseURL + "/c/" + link.CreatorHandle + "/" + link.CampaignSlug
	if link.AssetSlug != "" {
		path += "/" + link.AssetSlug
	}
	return path
}

// BaseURL returns the configured base URL.
func (s *LinkService) BaseURL() string {
	return s.baseURL
}

// validateServableLink checks that a link may serve redirects.
func (s *LinkService) validateServableLink(ctx context.Context, link *model.LinkConfig) (*model.LinkConfig, error) {
	// Check deleted
	if link.DeletedAt != nil {
		// Evict stale cache entries
		_ = s.cache.DeleteLink(ctx, link.CreatorHandle, link.CampaignSlug, link.AssetSlug)
		return nil, ErrLinkNotFound
	}

	// Check disabled
	if !link.Enabled {
		return nil, ErrLinkDisabled
	}

	return link, nil
}

// validateDestination validates a web destination URL.
func (s *LinkService) validateDestination(dest string) error {
	if dest == "" {
		return ErrInvalidDestination
	}

	if len(dest) > maxDestinationLength {
		return ErrURLTooLong
	}

	parsed, err := url.Parse(dest)
	if err != nil {
		return ErrInvalidDestination
	}

	// Only allow http and https schemes
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidDestination
	}

	// Must have a host
	if parsed.Host == "" {
		return ErrInvalidDestination
	}

	return nil
}

// validateDeeplink validates an app deep link URI.
// Custom schemes are expected (myapp://products/42).
func validateDeeplink(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidDeeplink
	}
	if parsed.Scheme == "" {
		return ErrInvalidDeeplink
	}
	switch strings.ToLower(parsed.Scheme) {
	case "javascript", "data", "vbscript", "file":
		return ErrInvalidDeeplink
	}
	return nil
}
