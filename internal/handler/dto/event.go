package dto

import "encoding/json"

// SessionEventRequest is the body for POST /api/v1/events/session.
type SessionEventRequest struct {
	ClickID   string `json:"click_id"`
	SessionID string `json:"session_id,omitempty"`
	PageURL   string `json:"page_url,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
}

// PageViewEventRequest is the body for POST /api/v1/events/pageview.
type PageViewEventRequest struct {
	ClickID      string `json:"click_id"`
	PageURL      string `json:"page_url,omitempty"`
	TimeOnPageMS int64  `json:"time_on_page_ms,omitempty"`
}

// ConversionEventRequest is the body for POST /api/v1/events/conversion.
type ConversionEventRequest struct {
	ClickID      string          `json:"click_id"`
	EventType    string          `json:"event_type"`
	OrderID      string          `json:"order_id,omitempty"`
	RevenueCents int64           `json:"revenue_cents,omitempty"`
	Currency     string          `json:"currency,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

// RefundEventRequest is the body for POST /api/v1/events/refund.
type RefundEventRequest struct {
	ClickID           string `json:"click_id"`
	OriginalOrderID   string `json:"original_order_id"`
	RefundAmountCents int64  `json:"refund_amount_cents,omitempty"`
	Reason            string `json:"reason,omitempty"`
}

// EventAcceptedResponse acknowledges an ingested attribution event.
type EventAcceptedResponse struct {
	ID      string `json:"id"`
	ClickID string `json:"click_id"`
	Status  string `json:"status"`
}
