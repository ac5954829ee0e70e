package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stackfluence/stackfluence/internal/model"
)

// Common errors for link repository operations.
var (
	ErrLinkNotFound  = errors.New("link not found")
	ErrLinkExists    = errors.New("link path already exists")
	ErrInvalidCursor = errors.New("invalid pagination cursor")
)

// LinkFilter defines filters for listing links.
type LinkFilter struct {
	OrganizationID string
	CreatorHandle  string
	CampaignSlug   string
	Status         model.LinkStatus
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
}

// PaginationCursor represents decoded cursor for pagination.
type PaginationCursor struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

const linkColumns = `id, organization_id, creator_handle, campaign_slug, asset_slug,
		destination_url, ios_deeplink, ios_fallback_url, android_deeplink, android_fallback_url,
		universal_link, param_overrides, enabled, deleted_at, created_at, updated_at`

// CreateLink inserts a new wrapped link into the database.
func (r *Repository) CreateLink(ctx context.Context, link *model.LinkConfig) error {
	overrides, err := json.Marshal(link.ParamOverrides)
	if err != nil {
		return fmt.Errorf("failed to marshal param overrides: %w", err)
	}

	query := `
		INSERT INTO links (id, organization_id, creator_handle, campaign_slug, asset_slug,
			destination_url, ios_deeplink, ios_fallback_url, android_deeplink, android_fallback_url,
			universal_link, param_overrides, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.pool.Exec(ctx, query,
		link.ID,
		link.OrganizationID,
		link.CreatorHandle,
		link.CampaignSlug,
		nullIfEmpty(link.AssetSlug),
		link.DestinationURL,
		nullIfEmpty(link.IOSDeeplink),
		nullIfEmpty(link.IOSFallbackURL),
		nullIfEmpty(link.AndroidDeeplink),
		nullIfEmpty(link.AndroidFallbackURL),
		nullIfEmpty(link.UniversalLink),
		overrides,
		link.Enabled,
		link.CreatedAt,
		link.UpdatedAt,
	)

	if err != nil {
		// Check for unique constraint violation
		if isUniqueViolation(err) {
			return ErrLinkExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

// GetLinkByID retrieves a link by its ID.
func (r *Repository) GetLinkByID(ctx context.Context, id string) (*model.LinkConfig, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM links
		WHERE id = $1 AND deleted_at IS NULL
	`

	link, err := scanLink(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link by ID: %w", err)
	}

	return link, nil
}

// GetLinkByPath retrieves a link by its creator/campaign/asset path.
// This is the hot path for redirects. An empty assetSlug matches the
// row whose asset_slug is NULL.
func (r *Repository) GetLinkByPath(ctx context.Context, creatorHandle, campaignSlug, assetSlug string) (*model.LinkConfig, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM links
		WHERE creator_handle = $1
		  AND campaign_slug = $2
		  AND asset_slug IS NOT DISTINCT FROM $3
		  AND deleted_at IS NULL
	`

	link, err := scanLink(r.pool.QueryRow(ctx, query, creatorHandle, campaignSlug, nullIfEmpty(assetSlug)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link by path: %w", err)
	}

	return link, nil
}

// ListLinks retrieves a paginated list of links scoped to an organization.
func (r *Repository) ListLinks(ctx context.Context, filter LinkFilter, cursor string, limit int) ([]*model.LinkConfig, string, error) {
	// Decode cursor if provided
	var cursorData *PaginationCursor
	if cursor != "" {
		var err error
		cursorData, err = decodeCursor(cursor)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
	}

	query := `
		SELECT ` + linkColumns + `
		FROM links
		WHERE deleted_at IS NULL
		  AND organization_id = $1
	`
	args := []any{filter.OrganizationID}
	argIndex := 2

	if filter.CreatorHandle != "" {
		query += fmt.Sprintf(" AND creator_handle = $%d", argIndex)
		args = append(args, filter.CreatorHandle)
		argIndex++
	}

	if filter.CampaignSlug != "" {
		query += fmt.Sprintf(" AND campaign_slug = $%d", argIndex)
		args = append(args, filter.CampaignSlug)
		argIndex++
	}

	if cursorData != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIndex, argIndex+1)
		args = append(args, cursorData.CreatedAt, cursorData.ID)
		argIndex += 2
	}

	if filter.CreatedAfter != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, *filter.CreatedAfter)
		argIndex++
	}

	if filter.CreatedBefore != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIndex)
		args = append(args, *filter.CreatedBefore)
		argIndex++
	}

	// Note: Status filtering is computed at app level, not DB level

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argIndex)
	args = append(args, limit+1) // Fetch one extra to determine hasMore

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var links []*model.LinkConfig
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating links: %w", err)
	}

	// Determine if there are more results
	var nextCursor string
	if len(links) > limit {
		links = links[:limit] // Remove extra row
		lastLink := links[len(links)-1]
		nextCursor = encodeCursor(&PaginationCursor{
			ID:        lastLink.ID,
			CreatedAt: lastLink.CreatedAt,
		})
	}

	return links, nextCursor, nil
}

// UpdateLink updates a link's mutable fields.
func (r *Repository) UpdateLink(ctx context.Context, link *model.LinkConfig) error {
	overrides, err := json.Marshal(link.ParamOverrides)
	if err != nil {
		return fmt.Errorf("failed to marshal param overrides: %w", err)
	}

	query := `
		UPDATE links
		SET destination_url = $2, ios_deeplink = $3, ios_fallback_url = $4,
		    android_deeplink = $5, android_fallback_url = $6, universal_link = $7,
		    param_overrides = $8, enabled = $9, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query,
		link.ID,
		link.DestinationURL,
		nullIfEmpty(link.IOSDeeplink),
		nullIfEmpty(link.IOSFallbackURL),
		nullIfEmpty(link.AndroidDeeplink),
		nullIfEmpty(link.AndroidFallbackURL),
		nullIfEmpty(link.UniversalLink),
		overrides,
		link.Enabled,
	)

	if err != nil {
		return fmt.Errorf("failed to update link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

// DeleteLink performs a soft delete on a link.
func (r *Repository) DeleteLink(ctx context.Context, id string) error {
	query := `
		UPDATE links
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

// LinkPathExists checks if a creator/campaign/asset path is already taken.
func (r *Repository) LinkPathExists(ctx context.Context, creatorHandle, campaignSlug, assetSlug string) (bool, error) {
	query := `SELECT EXISTS(
		SELECT 1 FROM links
		WHERE creator_handle = $1
		  AND campaign_slug = $2
		  AND asset_slug IS NOT DISTINCT FROM $3
		  AND deleted_at IS NULL)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, creatorHandle, campaignSlug, nullIfEmpty(assetSlug)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check link path existence: %w", err)
	}

	return exists, nil
}

// scanLink scans a single row into a LinkConfig model.
func scanLink(row pgx.Row) (*model.LinkConfig, error) {
	var (
		link      model.LinkConfig
		assetSlug *string
		iosDeep   *string
		iosFall   *string
		andDeep   *string
		andFall   *string
		universal *string
		overrides []byte
	)
	err := row.Scan(
		&link.ID,
		&link.OrganizationID,
		&link.CreatorHandle,
		&link.CampaignSlug,
		&assetSlug,
		&link.DestinationURL,
		&iosDeep,
		&iosFall,
		&andDeep,
		&andFall,
		&universal,
		&overrides,
		&link.Enabled,
		&link.DeletedAt,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	link.AssetSlug = deref(assetSlug)
	link.IOSDeeplink = deref(iosDeep)
	link.IOSFallbackURL = deref(iosFall)
	link.AndroidDeeplink = deref(andDeep)
	link.AndroidFallbackURL = deref(andFall)
	link.UniversalLink = deref(universal)

	if len(overrides) > 0 {
		if err := json.Unmarshal(overrides, &link.ParamOverrides); err != nil {
			return nil, fmt.Errorf("failed to unmarshal param overrides: %w", err)
		}
	}

	return &link, nil
}

// nullIfEmpty maps "" to a SQL NULL so optional text columns stay NULL
// instead of storing empty strings.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	// PostgreSQL error code 23505 is unique_violation
	return err != nil && (contains(err.Error(), "23505") || contains(err.Error(), "unique"))
}

// contains checks if a string contains a substring.
func contains(s, substr string) bool {
	return len(s) >= len(substr) && searchString(s, substr)
}

// searchString is a simple string search.
func searchString(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// encodeCursor encodes pagination cursor to base64.
func encodeCursor(cursor *PaginationCursor) string {
	data, _ := json.Marshal(cursor)
	return base64.URLEncoding.EncodeToString(data)
}

// decodeCursor decodes base64 pagination cursor.
func decodeCursor(s string) (*PaginationCursor, error) {
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}

	var cursor PaginationCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}
