// Package intel classifies where a click came from.
// Given a single request's user agent, referer, query parameters, and
// selected headers it resolves a (platform, medium, detail) source
// triple through a strict priority cascade, and enriches the click
// with device, browser, and locale information.
package intel

// Source mediums.
const (
	MediumSocial     = "social"
	MediumSearch     = "search"
	MediumEmail      = "email"
	MediumMessaging  = "messaging"
	MediumPaidSocial = "paid_social"
	MediumPaidSearch = "paid_search"
	MediumReferral   = "referral"
	MediumDirect     = "direct"
)

// Sentinel platforms for unresolved sources.
const (
	PlatformDirect          = "direct"
	PlatformUnknown         = "unknown"
	PlatformUnknownExternal = "unknown_external"
)

// Intelligence is everything extracted from a single click request.
// Produced once per request and never mutated afterwards.
type Intelligence struct {
	// Source classification
	SourcePlatform string `json:"source_platform"`
	SourceMedium   string `json:"source_medium"`
	SourceDetail   string `json:"source_detail,omitempty"` // story, post, video, dm, ...

	// In-app browser
	IsInAppBrowser bool   `json:"is_in_app_browser"`
	InAppPlatform  string `json:"in_app_platform,omitempty"`

	// Device enrichment
	DeviceClass    string `json:"device_class"` // mobile, tablet, desktop, other
	OSFamily       string `json:"os_family"`
	OSVersion      string `json:"os_version,omitempty"`
	BrowserFamily  string `json:"browser_family"`
	BrowserVersion string `json:"browser_version,omitempty"`
	IsMobile       bool   `json:"is_mobile"`

	// Locale from Accept-Language
	Language string `json:"language,omitempty"`
	Locale   string `json:"locale,omitempty"`

	// Raw referer parsing
	RefererDomain string `json:"referer_domain,omitempty"`
	RefererPath   string `json:"referer_path,omitempty"`
	RefererFull   string `json:"referer_full,omitempty"`
}

// Input carries the raw request signals the classifier reads.
type Input struct {
	UserAgent      string
	Referer        string
	AcceptLanguage string
	Headers        map[string]string // matched case-insensitively
	Query          map[string]string
}
