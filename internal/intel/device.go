package intel

import (
	"strings"

	ua "github.com/mileusna/useragent"
)

// deviceInfo holds the enrichment parsed from the user agent.
type deviceInfo struct {
	deviceClass    string
	osFamily       string
	osVersion      string
	browserFamily  string
	browserVersion string
	isMobile       bool
}

// parseDevice extracts device class, OS, and browser from the UA.
func parseDevice(userAgent string) deviceInfo {
	if userAgent == "" {
		return deviceInfo{deviceClass: "unknown", osFamily: "unknown", browserFamily: "unknown"}
	}

	parsed := ua.Parse(userAgent)

	deviceClass := "other"
	switch {
	case parsed.Mobile:
		deviceClass = "mobile"
	case parsed.Tablet:
		deviceClass = "tablet"
	case parsed.Desktop:
		deviceClass = "desktop"
	}

	info := deviceInfo{
		deviceClass:    deviceClass,
		osFamily:       parsed.OS,
		osVersion:      parsed.OSVersion,
		browserFamily:  parsed.Name,
		browserVersion: parsed.Version,
		isMobile:       parsed.Mobile || parsed.Tablet,
	}
	if info.osFamily == "" {
		info.osFamily = "unknown"
	}
	if info.browserFamily == "" {
		info.browserFamily = "unknown"
	}
	return info
}

// parseAcceptLanguage extracts the primary language and locale.
// "en-US,en;q=0.9" yields language "en" and locale "en-US".
func parseAcceptLanguage(header string) (language, locale string) {
	if header == "" {
		return "", ""
	}

	first := header
	if i := strings.Index(first, ","); i >= 0 {
		first = first[:i]
	}
	if i := strings.Index(first, ";"); i >= 0 {
		first = first[:i]
	}
	first = strings.TrimSpace(first)
	if first == "" {
		return "", ""
	}

	parts := strings.SplitN(first, "-", 2)
	language = strings.ToLower(parts[0])
	if len(parts) > 1 {
		locale = first
	}
	return language, locale
}
