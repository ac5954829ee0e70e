// Package params computes the tracking parameters for a click and
// resolves the final redirect destination. A strict rule order decides
// which values win when keys collide: UTMs first, then the click
// identifier, platform passthrough, mobile-attribution blocks, and the
// link's own overrides last, so brand-specified values always beat
// computed ones.
package params

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ClickIDParam is the query/cookie parameter carrying the signed click
// identifier. Always present in both the persisted set and the
// outbound URL.
const ClickIDParam = "inf_click_id"

const (
	utmContentMaxLen  = 180
	utmCampaignMaxLen = 500
)

// platformSource maps a classified source platform to its utm_source
// bucket.
var platformSource = map[string]string{
	"instagram":  "instagram",
	"tiktok":     "tiktok",
	"youtube":    "youtube",
	"twitter":    "x",
	"facebook":   "facebook",
	"linkedin":   "linkedin",
	"pinterest":  "pinterest",
	"snapchat":   "snapchat",
	"reddit":     "reddit",
	"threads":    "threads",
	"telegram":   "telegram",
	"whatsapp":   "whatsapp",
	"discord":    "discord",
	"google":     "google",
	"bing":       "bing",
	"duckduckgo": "duckduckgo",
	"gmail":      "gmail",
	"outlook":    "outlook",
	"yahoo_mail": "yahoo_mail",
	"linktree":   "linktree",
	"direct":     "direct",
}

// passthroughParams are ad click ids the platforms author. We forward
// them verbatim and never synthesize them; advertiser analytics tools
// expect them on the final URL.
var passthroughParams = []string{
	"fbclid",    // Meta / Facebook / Instagram
	"ttclid",    // TikTok
	"ScCid",     // Snapchat
	"gclid",     // Google Ads
	"wbraid",    // Google Ads (web-to-app)
	"gbraid",    // Google Ads (app-to-app)
	"epik",      // Pinterest
	"li_fat_id", // LinkedIn
	"msclkid",   // Microsoft Ads
	"twclid",    // Twitter/X Ads
	"rdt_cid",   // Reddit Ads
}

// ExtractPlatformParams copies the platform-authored click ids out of
// the inbound query string.
func ExtractPlatformParams(query map[string]string) map[string]string {
	captured := make(map[string]string)
	for _, key := range passthroughParams {
		if v, ok := query[key]; ok {
			captured[key] = v
		}
	}
	return captured
}

var underscoreRunRe = regexp.MustCompile(`_{3,}`)

// sanitizeContent builds utm_content from the destination URL's
// path+query, readable enough for dashboards:
//
//	/ → _   ? → ~   & → __   = → -
//
// Runs of 3+ underscores collapse to 2; output is capped at 180 chars.
// A bare host yields "home".
func sanitizeContent(destURL string) string {
	parsed, err := url.Parse(destURL)
	if err != nil {
		return "home"
	}

	raw := parsed.Path
	if parsed.RawQuery != "" {
		raw += "?" + parsed.RawQuery
	}
	raw = strings.TrimPrefix(raw, "/")

	if raw == "" {
		return "home"
	}

	sanitized := strings.NewReplacer(
		"/", "_",
		"?", "~",
		"&", "__",
		"=", "-",
	).Replace(raw)

	sanitized = underscoreRunRe.ReplaceAllString(sanitized, "__")

	return truncateRunes(sanitized, utmContentMaxLen)
}

// truncateRunes caps s at max bytes without splitting a rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// BuildInput carries everything the rule engine reads.
type BuildInput struct {
	ClickID           string
	SourcePlatform    string
	DestinationURL    string
	Referrer          string
	CreatorHandle     string
	CampaignSlug      string
	ParamOverrides    map[string]string
	HasAppDestination bool
	PlatformParams    map[string]string
	Headers           map[string]string
}

// BuildTrackingParams computes the full persisted parameter set.
// Later rules override earlier ones on key collision.
func BuildTrackingParams(in BuildInput) map[string]string {
	params := make(map[string]string)

	// Rule 1: UTM params, always authored by us.
	source, ok := platformSource[in.SourcePlatform]
	if !ok {
		source = in.SourcePlatform
		if source == "" {
			source = "unknown"
		}
	}
	params["utm_source"] = source
	params["utm_medium"] = "creator"
	params["utm_content"] = sanitizeContent(in.DestinationURL)

	// utm_campaign: the raw referrer when present, else the
	// Sec-Fetch-Site bucket, else omitted entirely.
	if in.Referrer != "" {
		params["utm_campaign"] = truncateRunes(in.Referrer, utmCampaignMaxLen)
	} else if site := headerValue(in.Headers, "sec-fetch-site"); site != "" {
		params["utm_campaign"] = strings.ToLower(site)
	}

	// Rule 2: the click identifier, never omitted.
	params[ClickIDParam] = in.ClickID

	// Rule 3: platform passthrough, forwarded verbatim.
	for k, v := range in.PlatformParams {
		params[k] = v
	}

	// Rule 4: mobile-attribution SDK conventions, only when the link
	// has an app destination. Fires regardless of the current device:
	// it depends on the link, not the request.
	if in.HasAppDestination {
		// AppsFlyer
		params["pid"] = "stackfluence_" + in.SourcePlatform
		params["c"] = in.CampaignSlug
		params["af_sub1"] = in.CreatorHandle
		params["af_sub2"] = in.ClickID
		params["af_sub3"] = ""

		// Branch
		params["~channel"] = in.SourcePlatform
		params["~campaign"] = in.CampaignSlug
		params["~feature"] = "influencer"
		params["~tags"] = in.CreatorHandle

		// Adjust
		params["adj_tracker"] = in.ClickID
		params["adj_campaign"] = in.CampaignSlug
		params["adj_creative"] = in.CreatorHandle

		// Kochava
		params["ko_click_id"] = in.ClickID

		// Singular
		params["singular_click_id"] = in.ClickID
	}

	// Rule 5: per-link overrides, always last. Brand wins.
	for k, v := range in.ParamOverrides {
		params[k] = v
	}

	return params
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
