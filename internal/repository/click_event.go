package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stackfluence/stackfluence/internal/model"
)

// ErrClickEventNotFound is returned when no click event matches a click identifier.
var ErrClickEventNotFound = errors.New("click event not found")

// ClickEventRepository provides database access for click events.
type ClickEventRepository struct {
	repo *Repository
}

// NewClickEventRepository creates a new ClickEventRepository.
func NewClickEventRepository(repo *Repository) *ClickEventRepository {
	return &ClickEventRepository{repo: repo}
}

// BulkInsert inserts multiple click events with idempotency via ON CONFLICT DO NOTHING.
func (r *ClickEventRepository) BulkInsert(ctx context.Context, events []*model.ClickEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Moderate batch sizes (< 1000) go through a multi-statement batch;
	// rows are wide so COPY buys little here.
	batch := &pgx.Batch{}

	query := `
		INSERT INTO click_events (
			id, event_id, click_id, session_id,
			link_id, organization_id, creator_handle, campaign_slug, asset_slug,
			destination_url_raw, destination_url_final,
			utm_params, injected_params, platform_click_ids, query_params,
			referrer_full, referrer_domain, referrer_path,
			source_platform, source_medium, source_detail,
			is_in_app, in_app_platform,
			sec_fetch_site, sec_fetch_mode, sec_fetch_dest, sec_fetch_user,
			user_agent, device_type, os_family, os_version, browser_family, browser_version, is_mobile,
			visitor_hash, country_code, language, locale,
			risk_score, is_suspected_bot, bot_reason, bot_signals,
			clicked_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
			$31, $32, $33, $34, $35, $36, $37, $38, $39, $40,
			$41, $42, $43, NOW()
		)
		ON CONFLICT (event_id) DO NOTHING
	`

	for _, event := range events {
		utmJSON, _ := json.Marshal(event.UTM)
		injectedJSON, _ := json.Marshal(event.InjectedParams)
		platformJSON, _ := json.Marshal(event.PlatformClickIDs)
		queryJSON, _ := json.Marshal(event.QueryParams)

		batch.Queue(query,
			event.ID,
			event.EventID,
			event.ClickID,
			nullableString(event.SessionID),
			event.LinkID,
			event.OrganizationID,
			event.CreatorHandle,
			event.CampaignSlug,
			nullableString(event.AssetSlug),
			event.DestinationURLRaw,
			event.DestinationURLFinal,
			utmJSON,
			injectedJSON,
			platformJSON,
			queryJSON,
			nullableString(event.RefererFull),
			nullableString(event.RefererDomain),
			nullableString(event.RefererPath),
			event.SourcePlatform,
			event.SourceMedium,
			nullableString(event.SourceDetail),
			event.IsInAppBrowser,
			nullableString(event.InAppPlatform),
			nullableString(event.SecFetchSite),
			nullableString(event.SecFetchMode),
			nullableString(event.SecFetchDest),
			nullableString(event.SecFetchUser),
			nullableString(event.UserAgent),
			event.DeviceClass,
			nullableString(event.OSFamily),
			nullableString(event.OSVersion),
			nullableString(event.BrowserFamily),
			nullableString(event.BrowserVersion),
			event.IsMobile,
			event.VisitorHash,
			nullableString(event.CountryCode),
			nullableString(event.Language),
			nullableString(event.Locale),
			event.RiskScore,
			event.IsSuspectedBot,
			nullableString(event.BotReason),
			event.BotSignals,
			event.ClickedAt,
		)
	}

	results := r.repo.pool.SendBatch(ctx, batch)
	defer results.Close()

	// Check for errors in batch execution
	for i := 0; i < len(events); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert event %d: %w", i, err)
		}
	}

	return nil
}

// GetByClickID retrieves the click event minted under a given click identifier.
func (r *ClickEventRepository) GetByClickID(ctx context.Context, clickID string) (*model.ClickEvent, error) {
	query := `
		SELECT id, click_id, link_id, organization_id, creator_handle, campaign_slug, asset_slug,
		       destination_url_final, utm_params, platform_click_ids,
		       referrer_domain, referrer_path,
		       source_platform, source_medium, source_detail, is_in_app,
		       device_type, os_family, is_mobile, visitor_hash,
		       risk_score, is_suspected_bot, bot_reason, clicked_at
		FROM click_events
		WHERE click_id = $1
		ORDER BY clicked_at ASC
		LIMIT 1
	`

	var (
		event        model.ClickEvent
		assetSlug    *string
		refDomain    *string
		refPath      *string
		sourceDetail *string
		osFamily     *string
		botReason    *string
		utmJSON      []byte
		platformJSON []byte
	)
	err := r.repo.pool.QueryRow(ctx, query, clickID).Scan(
		&event.ID,
		&event.ClickID,
		&event.LinkID,
		&event.OrganizationID,
		&event.CreatorHandle,
		&event.CampaignSlug,
		&assetSlug,
		&event.DestinationURLFinal,
		&utmJSON,
		&platformJSON,
		&refDomain,
		&refPath,
		&event.SourcePlatform,
		&event.SourceMedium,
		&sourceDetail,
		&event.IsInAppBrowser,
		&event.DeviceClass,
		&osFamily,
		&event.IsMobile,
		&event.VisitorHash,
		&event.RiskScore,
		&event.IsSuspectedBot,
		&botReason,
		&event.ClickedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClickEventNotFound
		}
		return nil, fmt.Errorf("failed to get click event: %w", err)
	}

	event.AssetSlug = deref(assetSlug)
	event.RefererDomain = deref(refDomain)
	event.RefererPath = deref(refPath)
	event.SourceDetail = deref(sourceDetail)
	event.OSFamily = deref(osFamily)
	event.BotReason = deref(botReason)
	if len(utmJSON) > 0 {
		_ = json.Unmarshal(utmJSON, &event.UTM)
	}
	if len(platformJSON) > 0 {
		_ = json.Unmarshal(platformJSON, &event.PlatformClickIDs)
	}

	return &event, nil
}

// nullableString returns nil for empty strings.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
