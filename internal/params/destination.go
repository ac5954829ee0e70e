package params

import (
	"strings"

	"github.com/stackfluence/stackfluence/internal/intel"
	"github.com/stackfluence/stackfluence/internal/model"
)

// Resolution is the outcome of destination resolution for one click.
type Resolution struct {
	// FinalURL is the outbound redirect target with the minimal
	// parameter set appended.
	FinalURL string

	// PersistedParams is the full computed parameter set, stored for
	// analytics. Deliberately larger than what gets appended to the
	// URL: UTMs and mobile-SDK params stay out of the advertiser's
	// address bar.
	PersistedParams map[string]string
}

// ResolveDestination picks the redirect target (accounting for mobile
// deep-linking) and computes both parameter views.
func ResolveDestination(link *model.LinkConfig, clickID string, in intel.Intelligence, platformParams map[string]string, headers map[string]string) Resolution {
	persisted := BuildTrackingParams(BuildInput{
		ClickID:           clickID,
		SourcePlatform:    in.SourcePlatform,
		DestinationURL:    link.DestinationURL,
		Referrer:          in.RefererFull,
		CreatorHandle:     link.CreatorHandle,
		CampaignSlug:      link.CampaignSlug,
		ParamOverrides:    link.ParamOverrides,
		HasAppDestination: link.HasAppDestination(),
		PlatformParams:    platformParams,
		Headers:           headers,
	})

	baseURL := link.DestinationURL

	isIOS := isIOSFamily(in.OSFamily)
	isAndroid := isAndroidFamily(in.OSFamily)

	if in.IsMobile {
		switch {
		case isIOS:
			if link.UniversalLink != "" {
				baseURL = link.UniversalLink
			} else if link.IOSFallbackURL != "" {
				baseURL = link.IOSFallbackURL
			}
		case isAndroid:
			if link.UniversalLink != "" {
				baseURL = link.UniversalLink
			} else if link.AndroidFallbackURL != "" {
				baseURL = link.AndroidFallbackURL
			}
		}
	}

	// The visible URL gets only what downstream tools need: ad click
	// ids (only-if-missing against the advertiser's own URL), brand
	// overrides, and the click identifier.
	merged := make(map[string]string, len(platformParams)+len(link.ParamOverrides))
	for k, v := range platformParams {
		merged[k] = v
	}
	for k, v := range link.ParamOverrides {
		merged[k] = v
	}
	finalURL := InjectParams(baseURL, merged, PolicyOnlyIfMissing)

	// Literal appends always win, even against pre-existing values.
	literal := map[string]string{ClickIDParam: clickID}
	if in.IsMobile {
		switch {
		case isIOS && link.IOSDeeplink != "" && link.IOSFallbackURL != "":
			literal["ios_deeplink"] = appendClickID(link.IOSDeeplink, clickID)
		case isAndroid && link.AndroidDeeplink != "" && link.AndroidFallbackURL != "":
			literal["android_deeplink"] = appendClickID(link.AndroidDeeplink, clickID)
		}
	}
	finalURL = InjectParams(finalURL, literal, PolicyAlwaysOverride)

	return Resolution{FinalURL: finalURL, PersistedParams: persisted}
}

func isIOSFamily(osFamily string) bool {
	os := strings.ToLower(osFamily)
	return strings.Contains(os, "ios") || strings.Contains(os, "iphone") || strings.Contains(os, "ipad")
}

func isAndroidFamily(osFamily string) bool {
	return strings.Contains(strings.ToLower(osFamily), "android")
}
