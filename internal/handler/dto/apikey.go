package dto

import "time"

// CreateAPIKeyRequest is the body for POST /api/v1/keys.
type CreateAPIKeyRequest struct {
	Name        string   `json:"name,omitempty"`
	Scopes      []string `json:"scopes,omitempty"`
	Environment string   `json:"environment,omitempty"` // "live" or "test"
}

// APIKeyResponse is a key without its secret material.
type APIKeyResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name,omitempty"`
	KeyPrefix     string     `json:"key_prefix"`
	Scopes        []string   `json:"scopes"`
	RateLimitTier string     `json:"rate_limit_tier"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CreateAPIKeyResponse carries the plaintext key. Returned exactly
// once, at creation or rotation.
type CreateAPIKeyResponse struct {
	ID            string    `json:"id"`
	Key           string    `json:"key"`
	Name          string    `json:"name,omitempty"`
	KeyPrefix     string    `json:"key_prefix"`
	Scopes        []string  `json:"scopes"`
	RateLimitTier string    `json:"rate_limit_tier"`
	CreatedAt     time.Time `json:"created_at"`
}

// RotateAPIKeyResponse pairs the revoked key with its replacement.
type RotateAPIKeyResponse struct {
	OldKeyID        string               `json:"old_key_id"`
	OldKeyRevokedAt time.Time            `json:"old_key_revoked_at"`
	NewKey          CreateAPIKeyResponse `json:"new_key"`
}

// APIKeyListResponse wraps the key listing.
type APIKeyListResponse struct {
	Keys []APIKeyResponse `json:"keys"`
}
