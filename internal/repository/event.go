package repository

import (
	"context"
	"fmt"

	"github.com/stackfluence/stackfluence/internal/model"
)

// InsertSessionEvent records a landing-page session.
func (r *Repository) InsertSessionEvent(ctx context.Context, event *model.SessionEvent) error {
	query := `
		INSERT INTO session_events (id, click_id, organization_id, session_id, page_url, referrer, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.ClickID,
		event.OrganizationID,
		nullableString(event.SessionID),
		nullableString(event.PageURL),
		nullableString(event.Referrer),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session event: %w", err)
	}

	return nil
}

// InsertPageViewEvent records a page view inside an attributed session.
func (r *Repository) InsertPageViewEvent(ctx context.Context, event *model.PageViewEvent) error {
	query := `
		INSERT INTO pageview_events (id, click_id, organization_id, page_url, time_on_page_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.ClickID,
		event.OrganizationID,
		nullableString(event.PageURL),
		event.TimeOnPageMS,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert pageview event: %w", err)
	}

	return nil
}

// InsertConversionEvent records a conversion attributed to a click.
func (r *Repository) InsertConversionEvent(ctx context.Context, event *model.ConversionEvent) error {
	query := `
		INSERT INTO conversion_events (id, click_id, organization_id, event_type, order_id,
			revenue_cents, currency, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	metadata := event.Metadata
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}

	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.ClickID,
		event.OrganizationID,
		string(event.EventType),
		nullableString(event.OrderID),
		event.RevenueCents,
		event.Currency,
		metadata,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversion event: %w", err)
	}

	return nil
}

// InsertRefundEvent records a refund against an earlier conversion.
func (r *Repository) InsertRefundEvent(ctx context.Context, event *model.RefundEvent) error {
	query := `
		INSERT INTO refund_events (id, click_id, organization_id, original_order_id,
			refund_amount_cents, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.ClickID,
		event.OrganizationID,
		event.OriginalOrderID,
		event.RefundAmountCents,
		nullableString(event.Reason),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert refund event: %w", err)
	}

	return nil
}
