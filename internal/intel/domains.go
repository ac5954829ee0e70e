package intel

import (
	"net/url"
	"regexp"
	"strings"
)

// platformMedium pairs a platform with its default medium.
type platformMedium struct {
	platform string
	medium   string
}

// domainTable maps referer hosts to platform/medium. Exact hosts first;
// lookups also try suffix matches so m.* / l.* subdomains resolve.
var domainTable = map[string]platformMedium{
	// Social
	"instagram.com":     {"instagram", MediumSocial},
	"l.instagram.com":   {"instagram", MediumSocial},
	"www.instagram.com": {"instagram", MediumSocial},
	"tiktok.com":        {"tiktok", MediumSocial},
	"www.tiktok.com":    {"tiktok", MediumSocial},
	"vm.tiktok.com":     {"tiktok", MediumSocial},
	"twitter.com":       {"twitter", MediumSocial},
	"x.com":             {"twitter", MediumSocial},
	"t.co":              {"twitter", MediumSocial},
	"facebook.com":      {"facebook", MediumSocial},
	"www.facebook.com":  {"facebook", MediumSocial},
	"m.facebook.com":    {"facebook", MediumSocial},
	"l.facebook.com":    {"facebook", MediumSocial},
	"lm.facebook.com":   {"facebook", MediumSocial},
	"fb.me":             {"facebook", MediumSocial},
	"youtube.com":       {"youtube", MediumSocial},
	"www.youtube.com":   {"youtube", MediumSocial},
	"m.youtube.com":     {"youtube", MediumSocial},
	"youtu.be":          {"youtube", MediumSocial},
	"linkedin.com":      {"linkedin", MediumSocial},
	"www.linkedin.com":  {"linkedin", MediumSocial},
	"lnkd.in":           {"linkedin", MediumSocial},
	"pinterest.com":     {"pinterest", MediumSocial},
	"www.pinterest.com": {"pinterest", MediumSocial},
	"pin.it":            {"pinterest", MediumSocial},
	"reddit.com":        {"reddit", MediumSocial},
	"www.reddit.com":    {"reddit", MediumSocial},
	"old.reddit.com":    {"reddit", MediumSocial},
	"snapchat.com":      {"snapchat", MediumSocial},
	"www.snapchat.com":  {"snapchat", MediumSocial},
	"threads.net":       {"threads", MediumSocial},
	"www.threads.net":   {"threads", MediumSocial},
	"tumblr.com":        {"tumblr", MediumSocial},
	"www.tumblr.com":    {"tumblr", MediumSocial},

	// Search
	"google.com":       {"google", MediumSearch},
	"www.google.com":   {"google", MediumSearch},
	"google.co.uk":     {"google", MediumSearch},
	"google.ca":        {"google", MediumSearch},
	"bing.com":         {"bing", MediumSearch},
	"www.bing.com":     {"bing", MediumSearch},
	"duckduckgo.com":   {"duckduckgo", MediumSearch},
	"yahoo.com":        {"yahoo", MediumSearch},
	"search.yahoo.com": {"yahoo", MediumSearch},
	"baidu.com":        {"baidu", MediumSearch},
	"www.baidu.com":    {"baidu", MediumSearch},
	"yandex.com":       {"yandex", MediumSearch},

	// Messaging
	"t.me":             {"telegram", MediumMessaging},
	"web.telegram.org": {"telegram", MediumMessaging},
	"wa.me":            {"whatsapp", MediumMessaging},
	"web.whatsapp.com": {"whatsapp", MediumMessaging},
	"discord.com":      {"discord", MediumMessaging},
	"discordapp.com":   {"discord", MediumMessaging},

	// Email webmail
	"mail.google.com":    {"gmail", MediumEmail},
	"outlook.live.com":   {"outlook", MediumEmail},
	"outlook.office.com": {"outlook", MediumEmail},
	"mail.yahoo.com":     {"yahoo_mail", MediumEmail},

	// Link-in-bio and shortener services
	"bit.ly":       {"bitly", MediumReferral},
	"tinyurl.com":  {"tinyurl", MediumReferral},
	"linktr.ee":    {"linktree", MediumReferral},
	"beacons.ai":   {"beacons", MediumReferral},
	"stan.store":   {"stan_store", MediumReferral},
	"hoo.be":       {"hoobe", MediumReferral},
	"snipfeed.co":  {"snipfeed", MediumReferral},
	"campsite.bio": {"campsite", MediumReferral},
	"tap.bio":      {"tapbio", MediumReferral},
}

// googleRegionalRe matches regional Google domains like google.de or
// google.com.au that the static table can't enumerate.
var googleRegionalRe = regexp.MustCompile(`^google\.[a-z]{2,3}(\.[a-z]{2})?$`)

// refererResult is the outcome of referer classification.
type refererResult struct {
	platform string
	medium   string
	detail   string
	domain   string
	path     string
}

// classifyReferer parses the Referer URL and resolves it against the
// domain table. Parse failures degrade to an unknown referral rather
// than propagating.
func classifyReferer(referer string) refererResult {
	if referer == "" {
		return refererResult{platform: PlatformDirect, medium: MediumDirect}
	}

	parsed, err := url.Parse(referer)
	if err != nil || parsed.Host == "" {
		return refererResult{platform: PlatformUnknown, medium: MediumReferral}
	}

	fullHost := strings.ToLower(parsed.Host)
	bareHost := strings.TrimPrefix(fullHost, "www.")
	path := parsed.Path

	// Exact match on the full host, then on the www-stripped host.
	for _, host := range []string{fullHost, bareHost} {
		if pm, ok := domainTable[host]; ok {
			return refererResult{
				platform: pm.platform,
				medium:   pm.medium,
				detail:   extractSourceDetail(pm.platform, path),
				domain:   fullHost,
				path:     path,
			}
		}
	}

	// Subdomain of a known platform.
	for known, pm := range domainTable {
		if strings.HasSuffix(bareHost, "."+known) {
			return refererResult{
				platform: pm.platform,
				medium:   pm.medium,
				detail:   extractSourceDetail(pm.platform, path),
				domain:   fullHost,
				path:     path,
			}
		}
	}

	// Regional Google domains.
	if googleRegionalRe.MatchString(bareHost) {
		return refererResult{
			platform: "google",
			medium:   MediumSearch,
			detail:   "search_organic",
			domain:   fullHost,
			path:     path,
		}
	}

	return refererResult{
		platform: PlatformUnknown,
		medium:   MediumReferral,
		domain:   fullHost,
		path:     path,
	}
}

// resolved reports whether referer classification produced a usable
// platform, as opposed to the direct/unknown sentinels.
func (r refererResult) resolved() bool {
	return r.platform != PlatformDirect && r.platform != PlatformUnknown
}
