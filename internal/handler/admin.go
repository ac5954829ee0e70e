package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stackfluence/stackfluence/internal/auth"
	"github.com/stackfluence/stackfluence/internal/handler/dto"
	"github.com/stackfluence/stackfluence/internal/model"
)

// AdminLinkLookup resolves wrapped paths without touching the cache,
// so operators see what the database actually holds.
type AdminLinkLookup interface {
	GetLinkByPath(ctx context.Context, creatorHandle, campaignSlug, assetSlug string) (*model.LinkConfig, error)
}

// AdminClickLookup fetches a single persisted click event.
type AdminClickLookup interface {
	GetByClickID(ctx context.Context, clickID string) (*model.ClickEvent, error)
}

// AdminHandler provides admin-only endpoints for debugging and
// operations. Routes mounted under it require the admin scope.
type AdminHandler struct {
	links  AdminLinkLookup
	clicks AdminClickLookup
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(links AdminLinkLookup, clicks AdminClickLookup, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		links:  links,
		clicks: clicks,
		logger: logger,
	}
}

// LookupLink handles GET /api/v1/admin/links/lookup.
// Resolves a wrapped path straight from the database, bypassing the
// redirect cache. Soft-deleted and disabled links are returned too;
// that is the point of the endpoint.
func (h *AdminHandler) LookupLink(w http.ResponseWriter, r *http.Request) {
	creatorHandle := r.URL.Query().Get("creator_handle")
	campaignSlug := r.URL.Query().Get("campaign_slug")
	assetSlug := r.URL.Query().Get("asset_slug")

	if creatorHandle == "" || campaignSlug == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_PATH", "creator_handle and campaign_slug are required")
		return
	}

	link, err := h.links.GetLinkByPath(r.Context(), creatorHandle, campaignSlug, assetSlug)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "No link found for this path")
		return
	}

	h.logger.Info("admin_link_lookup",
		slog.String("admin_org", auth.OrganizationIDFromContext(r.Context())),
		slog.String("link_id", link.ID),
	)

	writeJSON(w, http.StatusOK, link)
}

// LookupClick handles GET /api/v1/admin/clicks/{clickID}.
// Fetches the persisted click event for a signed click identifier,
// including its bot signals and injected parameters.
func (h *AdminHandler) LookupClick(w http.ResponseWriter, r *http.Request) {
	clickID := chi.URLParam(r, "clickID")
	if clickID == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_CLICK_ID", "Click ID is required")
		return
	}

	event, err := h.clicks.GetByClickID(r.Context(), clickID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "CLICK_NOT_FOUND", "No click event found for this identifier")
		return
	}

	h.logger.Info("admin_click_lookup",
		slog.String("admin_org", auth.OrganizationIDFromContext(r.Context())),
		slog.String("click_id", clickID),
	)

	writeJSON(w, http.StatusOK, event)
}

func (h *AdminHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
