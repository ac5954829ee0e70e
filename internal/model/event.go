// Package model defines domain entities for the application.
package model

import "time"

// ConversionType enumerates the supported conversion kinds.
type ConversionType string

const (
	ConversionPurchase  ConversionType = "purchase"
	ConversionSignup    ConversionType = "signup"
	ConversionAddToCart ConversionType = "add_to_cart"
	ConversionLead      ConversionType = "lead"
	ConversionCustom    ConversionType = "custom"
)

// IsValid reports whether the conversion type is one we accept.
func (c ConversionType) IsValid() bool {
	switch c {
	case ConversionPurchase, ConversionSignup, ConversionAddToCart, ConversionLead, ConversionCustom:
		return true
	}
	return false
}

// SessionEvent records a landing-page session tied to a click.
type SessionEvent struct {
	ID             string    `json:"id"`
	ClickID        string    `json:"click_id"`
	OrganizationID string    `json:"organization_id"`
	SessionID      string    `json:"session_id,omitempty"`
	PageURL        string    `json:"page_url,omitempty"`
	Referrer       string    `json:"referrer,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// PageViewEvent records a page view inside an attributed session.
type PageViewEvent struct {
	ID             string    `json:"id"`
	ClickID        string    `json:"click_id"`
	OrganizationID string    `json:"organization_id"`
	PageURL        string    `json:"page_url,omitempty"`
	TimeOnPageMS   int64     `json:"time_on_page_ms,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversionEvent records a downstream conversion attributed to a click.
type ConversionEvent struct {
	ID             string         `json:"id"`
	ClickID        string         `json:"click_id"`
	OrganizationID string         `json:"organization_id"`
	EventType      ConversionType `json:"event_type"`
	OrderID        string         `json:"order_id,omitempty"`
	RevenueCents   int64          `json:"revenue_cents,omitempty"`
	Currency       string         `json:"currency"`
	Metadata       []byte         `json:"metadata,omitempty"` // JSON, stored as JSONB
	CreatedAt      time.Time      `json:"created_at"`
}

// RefundEvent records a refund against a previously ingested conversion.
type RefundEvent struct {
	ID                string    `json:"id"`
	ClickID           string    `json:"click_id"`
	OrganizationID    string    `json:"organization_id"`
	OriginalOrderID   string    `json:"original_order_id"`
	RefundAmountCents int64     `json:"refund_amount_cents,omitempty"`
	Reason            string    `json:"reason,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
