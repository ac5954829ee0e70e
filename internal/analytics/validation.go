// Package analytics provides click event capture and processing.
package analytics

import (
	"fmt"

	"github.com/stackfluence/stackfluence/internal/model"
)

const (
	maxMetaLength     = 500
	visitorHashLength = 16
)

// ValidateClickEvent validates the fields a click event must carry
// before it is persisted. Events failing validation are dead-lettered
// rather than inserted.
func ValidateClickEvent(event *model.ClickEvent) error {
	if event.ClickID == "" {
		return fmt.Errorf("click_id is required")
	}
	if event.LinkID == "" {
		return fmt.Errorf("link_id is required")
	}
	if event.OrganizationID == "" {
		return fmt.Errorf("organization_id is required")
	}
	if event.CreatorHandle == "" {
		return fmt.Errorf("creator_handle is required")
	}
	if event.SourcePlatform == "" {
		return fmt.Errorf("source_platform is required")
	}
	if event.SourceMedium == "" {
		return fmt.Errorf("source_medium is required")
	}
	if event.VisitorHash == "" {
		return fmt.Errorf("visitor_hash is required")
	}
	if len(event.VisitorHash) != visitorHashLength || !isHex(event.VisitorHash) {
		return fmt.Errorf("visitor_hash must be %d hex chars", visitorHashLength)
	}
	if event.CountryCode != "" && len(event.CountryCode) != 2 {
		return fmt.Errorf("country_code must be 2 chars")
	}
	if event.RiskScore < 0 || event.RiskScore > 1 {
		return fmt.Errorf("risk_score out of range")
	}
	if event.ClickedAt.IsZero() {
		return fmt.Errorf("clicked_at must be set")
	}
	if len(event.RefererFull) > maxMetaLength {
		return fmt.Errorf("referer too long")
	}
	if len(event.UserAgent) > maxMetaLength {
		return fmt.Errorf("user_agent too long")
	}
	return nil
}

func isHex(value string) bool {
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F') {
			continue
		}
		return false
	}
	return true
}
