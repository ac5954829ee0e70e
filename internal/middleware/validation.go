// Package middleware provides HTTP middleware for the Stackfluence API.
package middleware

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// Validation limits.
const (
	// MaxSlugLength is the maximum length for creator handles and
	// campaign/asset slugs.
	MaxSlugLength = 64

	// MinSlugLength is the minimum length for creator handles and
	// campaign/asset slugs.
	MinSlugLength = 2

	// MaxDestinationURLLength is the maximum length for destination URLs.
	MaxDestinationURLLength = 2048
)

// Validation errors.
var (
	ErrSlugTooLong        = errors.New("slug exceeds maximum length")
	ErrSlugTooShort       = errors.New("slug is too short")
	ErrSlugInvalid        = errors.New("slug contains invalid characters")
	ErrHandleReserved     = errors.New("creator handle is reserved")
	ErrDestinationTooLong = errors.New("destination URL exceeds maximum length")
	ErrDestinationInvalid = errors.New("destination URL is invalid")
	ErrDestinationUnsafe  = errors.New("destination URL uses unsafe scheme")
	ErrHandleConfusable   = errors.New("handle contains confusable characters")
)

// ReservedHandles contains creator handles that cannot be registered.
// These are reserved for system routes and common paths.
var ReservedHandles = map[string]bool{
	// System routes
	"api":     true,
	"admin":   true,
	"healthz": true,
	"readyz":  true,
	"metrics": true,
	"static":  true,
	"assets":  true,
	"public":  true,
	"private": true,
	"c":       true,

	// Common paths attackers might try
	"login":    true,
	"logout":   true,
	"auth":     true,
	"oauth":    true,
	"callback": true,
	"events":   true,

	// Brand protection
	"stackfluence": true,
	"influencer":   true,

	// Common abuse targets
	"password":    true,
	"reset":       true,
	"verify":      true,
	"confirm":     true,
	"activate":    true,
	"unsubscribe": true,

	// Common file extensions
	"robots":     true,
	"sitemap":    true,
	"favicon":    true,
	"well-known": true,
}

// validSlugPattern matches valid handle/slug characters.
// Allowed: a-z, A-Z, 0-9, hyphen, underscore
var validSlugPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateSlug validates a campaign or asset slug segment.
func ValidateSlug(slug string) error {
	if slug == "" {
		return nil // asset slug is optional
	}

	if len(slug) > MaxSlugLength {
		return ErrSlugTooLong
	}

	if len(slug) < MinSlugLength {
		return ErrSlugTooShort
	}

	if !validSlugPattern.MatchString(slug) {
		return ErrSlugInvalid
	}

	return nil
}

// ValidateCreatorHandle validates a creator handle for link creation.
// Handles share slug rules plus a reserved-word check.
func ValidateCreatorHandle(handle string) error {
	if handle == "" {
		return ErrSlugTooShort
	}

	if err := ValidateSlug(handle); err != nil {
		return err
	}

	// Check reserved handles (case-insensitive)
	if ReservedHandles[strings.ToLower(handle)] {
		return ErrHandleReserved
	}

	return nil
}

// ValidateDestinationURL validates a destination URL for link creation.
func ValidateDestinationURL(url string) error {
	if len(url) > MaxDestinationURLLength {
		return ErrDestinationTooLong
	}

	// Basic scheme validation
	lowerURL := strings.ToLower(url)
	if !strings.HasPrefix(lowerURL, "http://") && !strings.HasPrefix(lowerURL, "https://") {
		return ErrDestinationInvalid
	}

	// Block dangerous schemes (in case of URL encoding tricks)
	forbiddenSchemes := []string{"javascript:", "data:", "vbscript:", "file:"}
	for _, scheme := range forbiddenSchemes {
		if strings.Contains(lowerURL, scheme) {
			return ErrDestinationUnsafe
		}
	}

	return nil
}

// ValidateHandleConfusables checks for lookalike characters in handles.
// Prevents homograph impersonation of established creators.
func ValidateHandleConfusables(handle string) error {
	if handle == "" {
		return nil
	}

	// Check for any non-ASCII characters
	for _, r := range handle {
		if r > unicode.MaxASCII {
			// Reject all non-ASCII to prevent homograph attacks.
			// Strict but safe; can be relaxed with proper normalization.
			return ErrHandleConfusable
		}
	}

	// Check for confusable ASCII patterns
	// These are common substitutions in impersonation
	confusables := map[string]bool{
		"0": true, // Can look like 'O' or 'o'
		"1": true, // Can look like 'l' or 'I'
		"l": true, // Can look like '1' or 'I'
		"I": true, // Can look like '1' or 'l'
		"O": true, // Can look like '0'
	}

	// Count confusable characters - too many is suspicious
	confusableCount := 0
	for _, r := range handle {
		if confusables[string(r)] {
			confusableCount++
		}
	}

	// If more than 50% of characters are confusable, reject
	if len(handle) > 3 && float64(confusableCount)/float64(len(handle)) > 0.5 {
		return ErrHandleConfusable
	}

	return nil
}
