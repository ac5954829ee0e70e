package intel

import "regexp"

// inAppPattern ties a platform to one webview UA signature.
type inAppPattern struct {
	platform string
	pattern  *regexp.Regexp
}

// inAppPatterns identify platform-specific in-app WebViews. The UA is
// often more reliable than the Referer for social platforms, which
// strip or rewrite it.
var inAppPatterns = buildInAppPatterns([]struct {
	platform string
	patterns []string
}{
	{"instagram", []string{`Instagram`, `FBAN/FBIOS.*Instagram`}},
	{"tiktok", []string{`BytedanceWebview`, `ByteLocale`, `musical_ly`, `TikTok`}},
	{"facebook", []string{`FBAN/`, `FBAV/`, `FB_IAB`, `\[FB`}},
	{"snapchat", []string{`Snapchat`}},
	{"twitter", []string{`Twitter`, `TwitterAndroid`}},
	{"linkedin", []string{`LinkedInApp`}},
	{"pinterest", []string{`Pinterest`}},
	{"reddit", []string{`Reddit/`}},
	{"telegram", []string{`TelegramBot`, `Telegram`}},
	{"whatsapp", []string{`WhatsApp`}},
	{"wechat", []string{`MicroMessenger`}},
	{"line", []string{`Line/`}},
	{"discord", []string{`Discord`}},
	{"threads", []string{`Barcelona`}}, // Meta Threads ships under codename Barcelona
	{"youtube", []string{`com.google.android.youtube`, `YouTube`}},
})

func buildInAppPatterns(entries []struct {
	platform string
	patterns []string
}) []inAppPattern {
	var out []inAppPattern
	for _, e := range entries {
		for _, p := range e.patterns {
			out = append(out, inAppPattern{
				platform: e.platform,
				pattern:  regexp.MustCompile(`(?i)` + p),
			})
		}
	}
	return out
}

// detectInApp checks whether the UA indicates an in-app browser.
func detectInApp(userAgent string) (string, bool) {
	if userAgent == "" {
		return "", false
	}
	for _, entry := range inAppPatterns {
		if entry.pattern.MatchString(userAgent) {
			return entry.platform, true
		}
	}
	return "", false
}

// emailClientPattern ties an email client or link scanner to a UA signature.
type emailClientPattern struct {
	client  string
	pattern *regexp.Regexp
}

// emailClientPatterns match mail clients and the scanners that prefetch
// links inside emails.
var emailClientPatterns = []emailClientPattern{
	{"thunderbird", regexp.MustCompile(`(?i)Thunderbird`)},
	{"outlook", regexp.MustCompile(`(?i)Microsoft Outlook|MSOffice`)},
	{"gmail", regexp.MustCompile(`(?i)GoogleImageProxy`)},
	{"yahoo_mail", regexp.MustCompile(`(?i)YahooMailProxy`)},
	{"apple_mail", regexp.MustCompile(`(?i)AppleMail`)},
	{"mimecast", regexp.MustCompile(`(?i)Mimecast`)},
	{"proofpoint", regexp.MustCompile(`(?i)Proofpoint`)},
	{"barracuda", regexp.MustCompile(`(?i)Barracuda`)},
}

// detectEmailClient checks whether the UA belongs to an email client or
// link scanner.
func detectEmailClient(userAgent string) (string, bool) {
	if userAgent == "" {
		return "", false
	}
	for _, entry := range emailClientPatterns {
		if entry.pattern.MatchString(userAgent) {
			return entry.client, true
		}
	}
	return "", false
}
