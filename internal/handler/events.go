package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stackfluence/stackfluence/internal/auth"
	"github.com/stackfluence/stackfluence/internal/clickid"
	"github.com/stackfluence/stackfluence/internal/handler/dto"
	"github.com/stackfluence/stackfluence/internal/metrics"
	"github.com/stackfluence/stackfluence/internal/model"
	"github.com/stackfluence/stackfluence/internal/repository"
)

// EventHandler ingests server-side attribution events posted by
// advertiser backends: sessions, page views, conversions, refunds.
// Every event must present a valid signed click identifier.
type EventHandler struct {
	repo    *repository.Repository
	codec   *clickid.Codec
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(repo *repository.Repository, codec *clickid.Codec, recorder metrics.Recorder, logger *slog.Logger) *EventHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &EventHandler{
		repo:    repo,
		codec:   codec,
		metrics: recorder,
		logger:  logger,
	}
}

// Session handles POST /api/v1/events/session.
func (h *EventHandler) Session(w http.ResponseWriter, r *http.Request) {
	var req dto.SessionEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if !h.verifyClickID(w, req.ClickID) {
		return
	}

	event := &model.SessionEvent{
		ID:             uuid.NewString(),
		ClickID:        req.ClickID,
		OrganizationID: auth.OrganizationIDFromContext(r.Context()),
		SessionID:      req.SessionID,
		PageURL:        req.PageURL,
		Referrer:       req.Referrer,
		CreatedAt:      time.Now().UTC(),
	}

	h.ingest(r.Context(), w, "session", event.ID, event.ClickID, func(ctx context.Context) error {
		return h.repo.InsertSessionEvent(ctx, event)
	})
}

// PageView handles POST /api/v1/events/pageview.
func (h *EventHandler) PageView(w http.ResponseWriter, r *http.Request) {
	var req dto.PageViewEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if !h.verifyClickID(w, req.ClickID) {
		return
	}
	if req.TimeOnPageMS < 0 {
		h.writeError(w, http.StatusBadRequest, "INVALID_DURATION", "time_on_page_ms must not be negative")
		return
	}

	event := &model.PageViewEvent{
		ID:             uuid.NewString(),
		ClickID:        req.ClickID,
		OrganizationID: auth.OrganizationIDFromContext(r.Context()),
		PageURL:        req.PageURL,
		TimeOnPageMS:   req.TimeOnPageMS,
		CreatedAt:      time.Now().UTC(),
	}

	h.ingest(r.Context(), w, "pageview", event.ID, event.ClickID, func(ctx context.Context) error {
		return h.repo.InsertPageViewEvent(ctx, event)
	})
}

// Conversion handles POST /api/v1/events/conversion.
func (h *EventHandler) Conversion(w http.ResponseWriter, r *http.Request) {
	var req dto.ConversionEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if !h.verifyClickID(w, req.ClickID) {
		return
	}

	eventType := model.ConversionType(req.EventType)
	if !eventType.IsValid() {
		h.writeError(w, http.StatusBadRequest, "INVALID_EVENT_TYPE", "event_type must be one of: purchase, signup, add_to_cart, lead, custom")
		return
	}
	if req.RevenueCents < 0 {
		h.writeError(w, http.StatusBadRequest, "INVALID_REVENUE", "revenue_cents must not be negative")
		return
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		h.writeError(w, http.StatusBadRequest, "INVALID_CURRENCY", "currency must be a 3-letter ISO code")
		return
	}

	event := &model.ConversionEvent{
		ID:             uuid.NewString(),
		ClickID:        req.ClickID,
		OrganizationID: auth.OrganizationIDFromContext(r.Context()),
		EventType:      eventType,
		OrderID:        req.OrderID,
		RevenueCents:   req.RevenueCents,
		Currency:       currency,
		Metadata:       req.Metadata,
		CreatedAt:      time.Now().UTC(),
	}

	h.ingest(r.Context(), w, "conversion", event.ID, event.ClickID, func(ctx context.Context) error {
		return h.repo.InsertConversionEvent(ctx, event)
	})
}

// Refund handles POST /api/v1/events/refund.
func (h *EventHandler) Refund(w http.ResponseWriter, r *http.Request) {
	var req dto.RefundEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if !h.verifyClickID(w, req.ClickID) {
		return
	}
	if req.OriginalOrderID == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ORDER_ID", "original_order_id is required")
		return
	}
	if req.RefundAmountCents < 0 {
		h.writeError(w, http.StatusBadRequest, "INVALID_AMOUNT", "refund_amount_cents must not be negative")
		return
	}

	event := &model.RefundEvent{
		ID:                uuid.NewString(),
		ClickID:           req.ClickID,
		OrganizationID:    auth.OrganizationIDFromContext(r.Context()),
		OriginalOrderID:   req.OriginalOrderID,
		RefundAmountCents: req.RefundAmountCents,
		Reason:            req.Reason,
		CreatedAt:         time.Now().UTC(),
	}

	h.ingest(r.Context(), w, "refund", event.ID, event.ClickID, func(ctx context.Context) error {
		return h.repo.InsertRefundEvent(ctx, event)
	})
}

// verifyClickID checks the signed click identifier. Tampered and
// expired identifiers get the same answer so callers can't probe
// which one it was.
func (h *EventHandler) verifyClickID(w http.ResponseWriter, raw string) bool {
	if raw == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_CLICK_ID", "click_id is required")
		return false
	}
	if _, ok := h.codec.Verify(raw); !ok {
		h.writeError(w, http.StatusBadRequest, "INVALID_CLICK_ID", "click_id is invalid or expired")
		return false
	}
	return true
}

func (h *EventHandler) ingest(ctx context.Context, w http.ResponseWriter, eventType, id, clickID string, insert func(context.Context) error) {
	if err := insert(ctx); err != nil {
		h.logger.Error("event_ingest_failed",
			slog.String("event_type", eventType),
			slog.String("click_id", clickID),
			slog.String("error", err.Error()),
		)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	h.metrics.IncAttributionEventIngested(eventType)
	h.logger.Info("event_ingested",
		slog.String("event_type", eventType),
		slog.String("event_id", id),
	)

	writeJSON(w, http.StatusAccepted, dto.EventAcceptedResponse{
		ID:      id,
		ClickID: clickID,
		Status:  "accepted",
	})
}

func (h *EventHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
