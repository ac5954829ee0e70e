// Package botrisk scores a request's bot likelihood from its metadata.
// Suspicious traffic is flagged, not blocked: false positives on
// blocking destroy attribution revenue, false positives on flagging
// only affect billing classification. The one exception is unambiguous
// automation tooling, which is hard-blocked.
package botrisk

import (
	"math"
	"regexp"
	"strings"

	ua "github.com/mileusna/useragent"
)

// Additive signal weights. Hard blocks bypass them entirely.
const (
	weightKnownBot        = 0.6
	weightBotLibrary      = 0.4
	weightMissingLang     = 0.15
	weightMissingSecFetch = 0.2
	weightDatacenterASN   = 0.25
	weightRateLimited     = 0.3
)

// hardBlockPatterns match automation libraries and headless tooling.
// A match means this is definitely not a human click.
var hardBlockPatterns = compilePatterns([]string{
	`curl/`,
	`wget/`,
	`python-requests`,
	`python-urllib`,
	`Go-http-client`,
	`scrapy`,
	`aiohttp`,
	`node-fetch`,
	`axios/`,
	`java/`,
	`libwww-perl`,
	`HeadlessChrome`,
	`PhantomJS`,
	`Selenium`,
	`puppeteer`,
})

// knownBotPatterns match benign crawlers and link-preview fetchers.
// Not malicious, but not billable either.
var knownBotPatterns = compilePatterns([]string{
	`Googlebot`,
	`bingbot`,
	`Slurp`,
	`DuckDuckBot`,
	`facebookexternalhit`,
	`Twitterbot`,
	`LinkedInBot`,
	`Slackbot`,
	`TelegramBot`,
	`Discordbot`,
	`WhatsApp`,
})

// datacenterASNs are autonomous systems of major cloud providers.
// Residential traffic never originates there.
var datacenterASNs = map[int]struct{}{
	14061:  {}, // DigitalOcean
	16509:  {}, // Amazon AWS
	15169:  {}, // Google Cloud
	8075:   {}, // Microsoft Azure
	13335:  {}, // Cloudflare
	20473:  {}, // Vultr
	63949:  {}, // Linode/Akamai
	14618:  {}, // Amazon
	396982: {}, // Google
}

func compilePatterns(raw []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(raw))
	for _, p := range raw {
		patterns = append(patterns, regexp.MustCompile(`(?i)`+p))
	}
	return patterns
}

// Signals records every flag that contributed to a score, so
// persistence can store why a score is what it is.
type Signals struct {
	UABlocked             bool `json:"ua_blocked"`
	UAIsKnownBot          bool `json:"ua_is_known_bot"`
	UAIsBotLibrary        bool `json:"ua_is_bot_lib"`
	MissingAcceptLanguage bool `json:"missing_accept_language"`
	MissingSecFetch       bool `json:"missing_sec_fetch"`
	IsDatacenterASN       bool `json:"is_datacenter_asn"`
	RateLimited           bool `json:"rate_limited"`
}

// Verdict is the scorer's output for a single request.
type Verdict struct {
	RiskScore   float64 `json:"risk_score"`   // 0.0 human .. 1.0 bot
	ShouldBlock bool    `json:"should_block"` // hard block: don't redirect at all
	Signals     Signals `json:"signals"`
	Reason      string  `json:"reason,omitempty"`
}

// Input is everything the scorer looks at. No I/O is performed.
type Input struct {
	UserAgent   string
	Headers     map[string]string // lowercase keys preferred, matched case-insensitively
	ASN         int               // 0 = unknown
	RateLimited bool
}

// Scorer computes bot risk verdicts. Stateless and safe for
// concurrent use.
type Scorer struct{}

// NewScorer creates a Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score computes the verdict for a single request.
func (s *Scorer) Score(in Input) Verdict {
	var signals Signals
	score := 0.0

	// Layer 1: automation tooling. First match short-circuits.
	for _, p := range hardBlockPatterns {
		if p.MatchString(in.UserAgent) {
			signals.UABlocked = true
			return Verdict{
				RiskScore:   1.0,
				ShouldBlock: true,
				Signals:     signals,
				Reason:      "blocked user agent: " + p.String(),
			}
		}
	}

	// Layer 2: benign crawlers. Flagged, never blocked. Each matching
	// pattern adds weight.
	for _, p := range knownBotPatterns {
		if p.MatchString(in.UserAgent) {
			signals.UAIsKnownBot = true
			score += weightKnownBot
		}
	}

	// Independent parser's bot signal.
	if in.UserAgent != "" && ua.Parse(in.UserAgent).Bot {
		signals.UAIsBotLibrary = true
		score += weightBotLibrary
	}

	// Layer 3: header sanity.
	if headerValue(in.Headers, "accept-language") == "" {
		signals.MissingAcceptLanguage = true
		score += weightMissingLang
	}

	// Real browsers send Sec-Fetch-* since ~2020. A UA that claims to
	// be a browser without them is suspicious.
	if !hasSecFetchHeader(in.Headers) && strings.Contains(in.UserAgent, "Mozilla") {
		signals.MissingSecFetch = true
		score += weightMissingSecFetch
	}

	// Layer 4: datacenter origin.
	if _, ok := datacenterASNs[in.ASN]; ok && in.ASN != 0 {
		signals.IsDatacenterASN = true
		score += weightDatacenterASN
	}

	// Layer 5: the rate limiter already tripped on this request.
	if in.RateLimited {
		signals.RateLimited = true
		score += weightRateLimited
	}

	if score > 1.0 {
		score = 1.0
	}

	return Verdict{
		RiskScore:   round3(score),
		ShouldBlock: false,
		Signals:     signals,
	}
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func hasSecFetchHeader(headers map[string]string) bool {
	for k := range headers {
		if strings.HasPrefix(strings.ToLower(k), "sec-fetch") {
			return true
		}
	}
	return false
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
