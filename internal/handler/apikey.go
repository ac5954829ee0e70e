package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/stackfluence/stackfluence/internal/auth"
	"github.com/stackfluence/stackfluence/internal/handler/dto"
	"github.com/stackfluence/stackfluence/internal/model"
	"github.com/stackfluence/stackfluence/internal/repository"
)

// APIKeyHandler handles API key management endpoints.
type APIKeyHandler struct {
	logger     *slog.Logger
	repository *repository.Repository
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(logger *slog.Logger, repo *repository.Repository) *APIKeyHandler {
	return &APIKeyHandler{
		logger:     logger,
		repository: repo,
	}
}

// Create handles POST /api/v1/keys.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := auth.OrganizationIDFromContext(ctx)
	if orgID == "" {
		writeAPIKeyError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req dto.CreateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIKeyError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	for _, scope := range req.Scopes {
		if !slices.Contains(model.ValidScopes, scope) {
			writeAPIKeyError(w, http.StatusBadRequest, "INVALID_SCOPE",
				"Invalid scope: "+scope+". Valid scopes: read, write, events, admin")
			return
		}
	}
	if len(req.Scopes) == 0 {
		req.Scopes = []string{model.ScopeRead}
	}

	env := auth.EnvLive
	if req.Environment == auth.EnvTest {
		env = auth.EnvTest
	}

	generatedKey, err := auth.GenerateAPIKey(env)
	if err != nil {
		h.logger.Error("failed to generate API key", slog.String("error", err.Error()))
		writeAPIKeyError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate API key")
		return
	}

	apiKey := &model.APIKey{
		ID:             ulid.Make().String(),
		OrganizationID: orgID,
		KeyHash:        generatedKey.Hash,
		KeyPrefix:      generatedKey.Prefix,
		Scopes:         req.Scopes,
		RateLimitTier:  model.TierFree,
		Name:           req.Name,
		CreatedAt:      time.Now(),
	}

	if err := h.repository.CreateAPIKey(ctx, apiKey); err != nil {
		h.logger.Error("failed to create API key", slog.String("error", err.Error()))
		writeAPIKeyError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create API key")
		return
	}

	h.logger.Info("api_key_created",
		slog.String("key_id", apiKey.ID),
		slog.String("key_prefix", apiKey.KeyPrefix),
		slog.String("organization_id", orgID),
	)

	// Plaintext key is shown once and never stored.
	writeJSON(w, http.StatusCreated, dto.CreateAPIKeyResponse{
		ID:            apiKey.ID,
		Key:           generatedKey.Plaintext,
		Name:          apiKey.Name,
		KeyPrefix:     apiKey.KeyPrefix,
		Scopes:        apiKey.Scopes,
		RateLimitTier: apiKey.RateLimitTier,
		CreatedAt:     apiKey.CreatedAt,
	})
}

// List handles GET /api/v1/keys.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := auth.OrganizationIDFromContext(ctx)
	if orgID == "" {
		writeAPIKeyError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	keys, err := h.repository.ListAPIKeysByOrganizationID(ctx, orgID)
	if err != nil {
		h.logger.Error("failed to list API keys", slog.String("error", err.Error()))
		writeAPIKeyError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list API keys")
		return
	}

	responses := make([]dto.APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		responses = append(responses, toAPIKeyResponse(key))
	}

	writeJSON(w, http.StatusOK, dto.APIKeyListResponse{Keys: responses})
}

// Revoke handles DELETE /api/v1/keys/{keyID}.
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := auth.OrganizationIDFromContext(ctx)
	if orgID == "" {
		writeAPIKeyError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	keyID := chi.URLParam(r, "keyID")
	if keyID == "" {
		writeAPIKeyError(w, http.StatusBadRequest, "INVALID_REQUEST", "Key ID is required")
		return
	}

	// Not found, cross-org, and already-revoked all answer the same
	// way so key ids can't be enumerated.
	key, err := h.repository.GetAPIKeyByID(ctx, keyID)
	if err != nil || key.OrganizationID != orgID || key.IsRevoked() {
		writeAPIKeyError(w, http.StatusNotFound, "KEY_NOT_FOUND", "API key not found or already revoked")
		return
	}

	if err := h.repository.RevokeAPIKey(ctx, keyID); err != nil {
		h.logger.Error("failed to revoke API key", slog.String("error", err.Error()))
		writeAPIKeyError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke API key")
		return
	}

	h.logger.Info("api_key_revoked",
		slog.String("key_id", keyID),
		slog.String("organization_id", orgID),
	)

	w.WriteHeader(http.StatusNoContent)
}

// Rotate handles POST /api/v1/keys/{keyID}/rotate. The new key keeps
// the old key's name, scopes, and tier.
func (h *APIKeyHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := auth.OrganizationIDFromContext(ctx)
	if orgID == "" {
		writeAPIKeyError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	keyID := chi.URLParam(r, "keyID")
	if keyID == "" {
		writeAPIKeyError(w, http.StatusBadRequest, "INVALID_REQUEST", "Key ID is required")
		return
	}

	oldKey, err := h.repository.GetAPIKeyByID(ctx, keyID)
	if err != nil || oldKey.OrganizationID != orgID || oldKey.IsRevoked() {
		writeAPIKeyError(w, http.StatusNotFound, "KEY_NOT_FOUND", "API key not found or already revoked")
		return
	}

	generatedKey, err := auth.GenerateAPIKey(auth.EnvLive)
	if err != nil {
		h.logger.Error("failed to generate API key", slog.String("error", err.Error()))
		writeAPIKeyError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate API key")
		return
	}

	now := time.Now()

	newKey := &model.APIKey{
		ID:             ulid.Make().String(),
		OrganizationID: oldKey.OrganizationID,
		KeyHash:        generatedKey.Hash,
		KeyPrefix:      generatedKey.Prefix,
		Scopes:         oldKey.Scopes,
		RateLimitTier:  oldKey.RateLimitTier,
		Name:           oldKey.Name,
		CreatedAt:      now,
	}

	// Create first, revoke second: a rotation that fails midway must
	// never leave the caller with zero working keys.
	if err := h.repository.CreateAPIKey(ctx, newKey); err != nil {
		h.logger.Error("failed to create rotated API key", slog.String("error", err.Error()))
		writeAPIKeyError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to rotate API key")
		return
	}

	if err := h.repository.RevokeAPIKey(ctx, oldKey.ID); err != nil {
		h.logger.Error("failed to revoke old API key during rotation", slog.String("error", err.Error()))
	}

	h.logger.Info("api_key_rotated",
		slog.String("old_key_id", oldKey.ID),
		slog.String("new_key_id", newKey.ID),
		slog.String("organization_id", orgID),
	)

	writeJSON(w, http.StatusCreated, dto.RotateAPIKeyResponse{
		OldKeyID:        oldKey.ID,
		OldKeyRevokedAt: now,
		NewKey: dto.CreateAPIKeyResponse{
			ID:            newKey.ID,
			Key:           generatedKey.Plaintext,
			Name:          newKey.Name,
			KeyPrefix:     newKey.KeyPrefix,
			Scopes:        newKey.Scopes,
			RateLimitTier: newKey.RateLimitTier,
			CreatedAt:     newKey.CreatedAt,
		},
	})
}

func toAPIKeyResponse(key *model.APIKey) dto.APIKeyResponse {
	return dto.APIKeyResponse{
		ID:            key.ID,
		Name:          key.Name,
		KeyPrefix:     key.KeyPrefix,
		Scopes:        key.Scopes,
		RateLimitTier: key.RateLimitTier,
		LastUsedAt:    key.LastUsedAt,
		RevokedAt:     key.RevokedAt,
		CreatedAt:     key.CreatedAt,
	}
}

// writeAPIKeyError writes a JSON error response.
func writeAPIKeyError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
