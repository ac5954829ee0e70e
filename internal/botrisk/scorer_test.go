package botrisk

import "testing"

const realChromeUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func realHeaders() map[string]string {
	return map[string]string{
		"accept-language": "en-US,en;q=0.9",
		"sec-fetch-dest":  "document",
		"sec-fetch-mode":  "navigate",
		"sec-fetch-site":  "cross-site",
	}
}

func TestHardBlocks(t *testing.T) {
	s := NewScorer()

	uas := []string{
		"curl/7.88.1",
		"python-requests/2.31.0",
		"Go-http-client/1.1",
		"Scrapy/2.11.0",
		"Mozilla/5.0 HeadlessChrome/120.0",
		"puppeteer",
	}

	for _, uaStr := range uas {
		t.Run(uaStr, func(t *testing.T) {
			v := s.Score(Input{UserAgent: uaStr, Headers: realHeaders()})
			if !v.ShouldBlock {
				t.Error("ShouldBlock = false, want true")
			}
			if v.RiskScore != 1.0 {
				t.Errorf("RiskScore = %v, want 1.0", v.RiskScore)
			}
			if !v.Signals.UABlocked {
				t.Error("Signals.UABlocked = false, want true")
			}
			if v.Reason == "" {
				t.Error("Reason is empty for a hard block")
			}
		})
	}
}

func TestRealBrowserNotBlocked(t *testing.T) {
	s := NewScorer()
	v := s.Score(Input{UserAgent: realChromeUA, Headers: realHeaders()})

	if v.ShouldBlock {
		t.Error("ShouldBlock = true for a real browser")
	}
	if v.RiskScore != 0.0 {
		t.Errorf("RiskScore = %v, want 0.0 for clean traffic", v.RiskScore)
	}
}

func TestKnownBotsFlaggedNotBlocked(t *testing.T) {
	s := NewScorer()

	uas := []string{
		"Googlebot/2.1 (+http://www.google.com/bot.html)",
		"facebookexternalhit/1.1",
		"Twitterbot/1.0",
		"LinkedInBot/1.0",
	}

	for _, uaStr := range uas {
		t.Run(uaStr, func(t *testing.T) {
			v := s.Score(Input{UserAgent: uaStr, Headers: realHeaders()})
			if v.ShouldBlock {
				t.Error("ShouldBlock = true, want false for benign crawler")
			}
			if v.RiskScore < 0.5 {
				t.Errorf("RiskScore = %v, want >= 0.5", v.RiskScore)
			}
			if !v.Signals.UAIsKnownBot {
				t.Error("Signals.UAIsKnownBot = false, want true")
			}
		})
	}
}

func TestSingleSignalsIncreaseScore(t *testing.T) {
	s := NewScorer()
	clean := s.Score(Input{UserAgent: realChromeUA, Headers: realHeaders()})

	tests := []struct {
		name  string
		input Input
		check func(t *testing.T, v Verdict)
	}{
		{
			name: "missing accept-language",
			input: Input{
				UserAgent: realChromeUA,
				Headers: map[string]string{
					"sec-fetch-dest": "document",
					"sec-fetch-mode": "navigate",
				},
			},
			check: func(t *testing.T, v Verdict) {
				if !v.Signals.MissingAcceptLanguage {
					t.Error("MissingAcceptLanguage = false")
				}
			},
		},
		{
			name: "missing sec-fetch on browser UA",
			input: Input{
				UserAgent: realChromeUA,
				Headers:   map[string]string{"accept-language": "en-US"},
			},
			check: func(t *testing.T, v Verdict) {
				if !v.Signals.MissingSecFetch {
					t.Error("MissingSecFetch = false")
				}
			},
		},
		{
			name:  "datacenter ASN",
			input: Input{UserAgent: realChromeUA, Headers: realHeaders(), ASN: 16509},
			check: func(t *testing.T, v Verdict) {
				if !v.Signals.IsDatacenterASN {
					t.Error("IsDatacenterASN = false")
				}
			},
		},
		{
			name:  "rate limited",
			input: Input{UserAgent: realChromeUA, Headers: realHeaders(), RateLimited: true},
			check: func(t *testing.T, v Verdict) {
				if !v.Signals.RateLimited {
					t.Error("RateLimited = false")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := s.Score(tt.input)
			if v.RiskScore <= clean.RiskScore {
				t.Errorf("RiskScore = %v, want > clean baseline %v", v.RiskScore, clean.RiskScore)
			}
			if v.ShouldBlock {
				t.Error("ShouldBlock = true without a hard-block UA")
			}
			tt.check(t, v)
		})
	}
}

func TestResidentialASNClean(t *testing.T) {
	s := NewScorer()
	v := s.Score(Input{UserAgent: realChromeUA, Headers: realHeaders(), ASN: 7922}) // Comcast

	if v.Signals.IsDatacenterASN {
		t.Error("IsDatacenterASN = true for residential ASN")
	}
	if v.RiskScore != 0.0 {
		t.Errorf("RiskScore = %v, want 0.0", v.RiskScore)
	}
}

func TestScoreClampedAtOne(t *testing.T) {
	s := NewScorer()

	// Known bot (0.6) + bot library (0.4) + missing headers + rate
	// limited sums past 1.0 and must clamp without blocking.
	v := s.Score(Input{
		UserAgent:   "Googlebot/2.1",
		Headers:     map[string]string{},
		ASN:         16509,
		RateLimited: true,
	})

	if v.RiskScore != 1.0 {
		t.Errorf("RiskScore = %v, want clamped 1.0", v.RiskScore)
	}
	if v.ShouldBlock {
		t.Error("ShouldBlock = true via additive layers; only hard blocks may block")
	}
}

func TestEmptyUserAgent(t *testing.T) {
	s := NewScorer()
	v := s.Score(Input{UserAgent: "", Headers: map[string]string{}})

	if v.ShouldBlock {
		t.Error("ShouldBlock = true for empty UA")
	}
	// Missing language counts; missing sec-fetch doesn't (no Mozilla claim).
	if v.Signals.MissingSecFetch {
		t.Error("MissingSecFetch = true for non-browser UA")
	}
	if !v.Signals.MissingAcceptLanguage {
		t.Error("MissingAcceptLanguage = false")
	}
}
