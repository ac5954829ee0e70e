package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stackfluence/stackfluence/internal/auth"
	"github.com/stackfluence/stackfluence/internal/handler/dto"
	"github.com/stackfluence/stackfluence/internal/service"
)

// LinkHandler handles HTTP requests for wrapped link operations.
type LinkHandler struct {
	svc    *service.LinkService
	logger *slog.Logger
}

// NewLinkHandler creates a new LinkHandler.
func NewLinkHandler(svc *service.LinkService, logger *slog.Logger) *LinkHandler {
	return &LinkHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/v1/links.
func (h *LinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID := auth.OrganizationIDFromContext(r.Context())

	var req dto.CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	input := service.CreateLinkInput{
		OrganizationID:     orgID,
		CreatorHandle:      req.CreatorHandle,
		CampaignSlug:       req.CampaignSlug,
		AssetSlug:          req.AssetSlug,
		DestinationURL:     req.DestinationURL,
		IOSDeeplink:        req.IOSDeeplink,
		IOSFallbackURL:     req.IOSFallbackURL,
		AndroidDeeplink:    req.AndroidDeeplink,
		AndroidFallbackURL: req.AndroidFallbackURL,
		UniversalLink:      req.UniversalLink,
		ParamOverrides:     req.ParamOverrides,
	}

	link, err := h.svc.CreateLink(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("link_created",
		"link_id", link.ID,
		"organization_id", link.OrganizationID,
		"creator_handle", link.CreatorHandle,
		"campaign_slug", link.CampaignSlug,
		"has_app_destination", link.HasAppDestination(),
	)

	response := dto.ToLinkResponse(link, h.svc.WrappedURL(link))
	writeJSON(w, http.StatusCreated, response)
}

// Get handles GET /api/v1/links/{id}.
func (h *LinkHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Link ID is required")
		return
	}

	link, err := h.svc.GetLink(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	// Keys may only read their own organization's links
	if link.OrganizationID != auth.OrganizationIDFromContext(r.Context()) {
		h.writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found")
		return
	}

	response := dto.ToLinkResponse(link, h.svc.WrappedURL(link))
	writeJSON(w, http.StatusOK, response)
}

// List handles GET /api/v1/links.
func (h *LinkHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 20
	if l := query.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	input := service.ListLinksInput{
		OrganizationID: auth.OrganizationIDFromContext(r.Context()),
		CreatorHandle:  query.Get("creator_handle"),
		CampaignSlug:   query.Get("campaign_slug"),
		Cursor:         query.Get("cursor"),
		Limit:          limit,
		Status:         query.Get("status"),
	}

	// Parse date filters
	if after := query.Get("created_after"); after != "" {
		if t, err := time.Parse(time.RFC3339, after); err == nil {
			input.CreatedAfter = &t
		}
	}
	if before := query.Get("created_before"); before != "" {
		if t, err := time.Parse(time.RFC3339, before); err == nil {
			input.CreatedBefore = &t
		}
	}

	result, err := h.svc.ListLinks(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	responses := make([]dto.LinkResponse, len(result.Links))
	for i, link := range result.Links {
		responses[i] = *dto.ToLinkResponse(link, h.svc.WrappedURL(link))
	}

	writeJSON(w, http.StatusOK, dto.LinkListResponse{
		Data: responses,
		Pagination: &dto.Pagination{
			NextCursor: result.NextCursor,
			HasMore:    result.HasMore,
		},
	})
}

// Update handles PATCH /api/v1/links/{id}.
func (h *LinkHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Link ID is required")
		return
	}

	if !h.ownsLink(w, r, id) {
		return
	}

	var req dto.UpdateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	input := service.UpdateLinkInput{
		ID:                 id,
		DestinationURL:     req.DestinationURL,
		IOSDeeplink:        req.IOSDeeplink,
		IOSFallbackURL:     req.IOSFallbackURL,
		AndroidDeeplink:    req.AndroidDeeplink,
		AndroidFallbackURL: req.AndroidFallbackURL,
		UniversalLink:      req.UniversalLink,
		ParamOverrides:     req.ParamOverrides,
		Enabled:            req.Enabled,
	}

	link, err := h.svc.UpdateLink(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("link_updated",
		"link_id", link.ID,
		"creator_handle", link.CreatorHandle,
		"campaign_slug", link.CampaignSlug,
	)

	response := dto.ToLinkResponse(link, h.svc.WrappedURL(link))
	writeJSON(w, http.StatusOK, response)
}

// Delete handles DELETE /api/v1/links/{id}.
func (h *LinkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Link ID is required")
		return
	}

	if !h.ownsLink(w, r, id) {
		return
	}

	if err := h.svc.DeleteLink(r.Context(), id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("link_deleted", "link_id", id)

	w.WriteHeader(http.StatusNoContent)
}

// ownsLink verifies the authenticated organization owns the link.
// Writes a 404 (not 403) on mismatch so foreign IDs are not probeable.
func (h *LinkHandler) ownsLink(w http.ResponseWriter, r *http.Request, id string) bool {
	link, err := h.svc.GetLink(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return false
	}
	if link.OrganizationID != auth.OrganizationIDFromContext(r.Context()) {
		h.writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found")
		return false
	}
	return true
}

// handleServiceError maps service errors to HTTP responses.
func (h *LinkHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrLinkNotFound):
		h.writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found")
	case errors.Is(err, service.ErrPathExists):
		h.writeError(w, http.StatusConflict, "PATH_TAKEN", "A link already exists for this creator, campaign, and asset")
	case errors.Is(err, service.ErrInvalidDestination):
		h.writeError(w, http.StatusBadRequest, "INVALID_DESTINATION", "Invalid destination URL")
	case errors.Is(err, service.ErrInvalidDeeplink):
		h.writeError(w, http.StatusBadRequest, "INVALID_DEEPLINK", "Invalid deep link URI")
	case errors.Is(err, service.ErrInvalidPath):
		h.writeError(w, http.StatusBadRequest, "INVALID_PATH", "Invalid creator handle or slug")
	case errors.Is(err, service.ErrURLTooLong):
		h.writeError(w, http.StatusBadRequest, "URL_TOO_LONG", "Destination URL exceeds maximum length")
	default:
		h.logger.Error("internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes an error response.
func (h *LinkHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
