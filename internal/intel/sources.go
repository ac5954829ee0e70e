package intel

// clickIDParam ties a platform ad click-id query parameter to its
// origin. Order matters: the first parameter present on the inbound
// URL wins.
type clickIDParam struct {
	param    string
	platform string
	medium   string
}

var clickIDParams = []clickIDParam{
	{"fbclid", "facebook", MediumPaidSocial},   // Meta (Facebook/Instagram)
	{"ttclid", "tiktok", MediumPaidSocial},     // TikTok Ads
	{"ScCid", "snapchat", MediumPaidSocial},    // Snap Ads
	{"gclid", "google", MediumPaidSearch},      // Google Ads
	{"wbraid", "google", MediumPaidSearch},     // Google Ads web-to-app
	{"gbraid", "google", MediumPaidSearch},     // Google Ads app-to-app
	{"msclkid", "bing", MediumPaidSearch},      // Microsoft Ads
	{"epik", "pinterest", MediumPaidSocial},    // Pinterest Ads
	{"li_fat_id", "linkedin", MediumPaidSocial}, // LinkedIn Ads
	{"twclid", "twitter", MediumPaidSocial},    // X Ads
	{"rdt_cid", "reddit", MediumPaidSocial},    // Reddit Ads
}

// detectClickIDParam scans the inbound query for platform click ids.
func detectClickIDParam(query map[string]string) (platformMedium, bool) {
	for _, entry := range clickIDParams {
		if _, ok := query[entry.param]; ok {
			return platformMedium{platform: entry.platform, medium: entry.medium}, true
		}
	}
	return platformMedium{}, false
}

// utmSourceAliases normalizes common utm_source spellings to a
// canonical platform and default medium.
var utmSourceAliases = map[string]platformMedium{
	"instagram":  {"instagram", MediumSocial},
	"ig":         {"instagram", MediumSocial},
	"tiktok":     {"tiktok", MediumSocial},
	"tt":         {"tiktok", MediumSocial},
	"facebook":   {"facebook", MediumSocial},
	"fb":         {"facebook", MediumSocial},
	"meta":       {"facebook", MediumSocial},
	"twitter":    {"twitter", MediumSocial},
	"x":          {"twitter", MediumSocial},
	"youtube":    {"youtube", MediumSocial},
	"yt":         {"youtube", MediumSocial},
	"linkedin":   {"linkedin", MediumSocial},
	"pinterest":  {"pinterest", MediumSocial},
	"snapchat":   {"snapchat", MediumSocial},
	"reddit":     {"reddit", MediumSocial},
	"threads":    {"threads", MediumSocial},
	"telegram":   {"telegram", MediumMessaging},
	"whatsapp":   {"whatsapp", MediumMessaging},
	"discord":    {"discord", MediumMessaging},
	"google":     {"google", MediumSearch},
	"bing":       {"bing", MediumSearch},
	"newsletter": {"newsletter", MediumEmail},
	"email":      {"email", MediumEmail},
	"mail":       {"email", MediumEmail},
}

// resolveUTM maps explicit UTM parameters to a source. Any explicit
// utm_source beats "direct", even when unrecognized; utm_medium, when
// present, overrides the alias-derived medium.
func resolveUTM(query map[string]string) (platformMedium, bool) {
	source, ok := query["utm_source"]
	if !ok || source == "" {
		return platformMedium{}, false
	}

	result, known := utmSourceAliases[source]
	if !known {
		result = platformMedium{platform: source, medium: MediumReferral}
	}

	if medium := query["utm_medium"]; medium != "" {
		result.medium = medium
	}

	return result, true
}
