package intel

import "strings"

// Classifier resolves click sources. Stateless: it consults only
// immutable package-level tables and is safe for concurrent use.
type Classifier struct{}

// NewClassifier creates a Classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify runs the full source cascade and enrichment for one request.
//
// Cascade priority:
//  1. in-app browser UA signature
//  2. referer domain classification
//  3. platform ad click-id query parameters
//  4. explicit UTM parameters
//  5. email client / link scanner UA
//  6. Sec-Fetch-Site: cross-site
//  7. unknown referer, then absolute direct fallback
func (c *Classifier) Classify(in Input) Intelligence {
	var intel Intelligence

	inAppPlatform, isInApp := detectInApp(in.UserAgent)
	intel.IsInAppBrowser = isInApp
	intel.InAppPlatform = inAppPlatform

	ref := classifyReferer(in.Referer)
	intel.RefererDomain = ref.domain
	intel.RefererPath = ref.path
	intel.RefererFull = in.Referer

	clickIDSource, clickIDMatched := detectClickIDParam(in.Query)

	switch {
	case isInApp:
		intel.SourcePlatform = inAppPlatform
		intel.SourceMedium = MediumSocial
		if ref.detail != "" {
			intel.SourceDetail = ref.detail
		} else {
			intel.SourceDetail = "in_app"
		}

	case ref.resolved():
		intel.SourcePlatform = ref.platform
		intel.SourceMedium = ref.medium
		intel.SourceDetail = ref.detail

	case clickIDMatched:
		intel.SourcePlatform = clickIDSource.platform
		intel.SourceMedium = clickIDSource.medium

	default:
		if utmSource, ok := resolveUTM(in.Query); ok {
			intel.SourcePlatform = utmSource.platform
			intel.SourceMedium = utmSource.medium
		} else if client, ok := detectEmailClient(in.UserAgent); ok {
			intel.SourcePlatform = client
			intel.SourceMedium = MediumEmail
			intel.SourceDetail = "link_scanner"
		} else if strings.EqualFold(headerValue(in.Headers, "sec-fetch-site"), "cross-site") {
			intel.SourcePlatform = PlatformUnknownExternal
			intel.SourceMedium = MediumReferral
			intel.SourceDetail = "no_referrer"
		} else if ref.platform == PlatformUnknown {
			// A referer was present but unclassifiable.
			intel.SourcePlatform = PlatformUnknown
			intel.SourceMedium = MediumReferral
		} else {
			intel.SourcePlatform = PlatformDirect
			intel.SourceMedium = MediumDirect
		}
	}

	// Overlay: click-id evidence is stronger than a bare cross-site
	// signal. Only the unknown_external case is upgraded; see the
	// design notes for why this isn't generalized.
	if !isInApp && clickIDMatched && intel.SourcePlatform == PlatformUnknownExternal {
		intel.SourcePlatform = clickIDSource.platform
		intel.SourceMedium = clickIDSource.medium
	}

	device := parseDevice(in.UserAgent)
	intel.DeviceClass = device.deviceClass
	intel.OSFamily = device.osFamily
	intel.OSVersion = device.osVersion
	intel.BrowserFamily = device.browserFamily
	intel.BrowserVersion = device.browserVersion
	intel.IsMobile = device.isMobile

	intel.Language, intel.Locale = parseAcceptLanguage(in.AcceptLanguage)

	return intel
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
