package params

import "net/url"

// Policy controls collisions when merging parameters onto a URL that
// may already define them.
type Policy int

const (
	// PolicyOnlyIfMissing keeps parameters the destination URL already
	// defines. The default for values merged onto the advertiser's
	// own URL.
	PolicyOnlyIfMissing Policy = iota

	// PolicyAlwaysOverride makes our values win.
	PolicyAlwaysOverride
)

// InjectParams merges params onto rawURL according to policy.
// An unparseable URL is returned unchanged.
func InjectParams(rawURL string, params map[string]string, policy Policy) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	existing := parsed.Query()
	for key, value := range params {
		if policy == PolicyOnlyIfMissing && existing.Has(key) {
			continue
		}
		existing.Set(key, value)
	}

	parsed.RawQuery = existing.Encode()
	return parsed.String()
}

// appendClickID tacks the click identifier onto a deep link URL,
// respecting whether it already carries a query string.
func appendClickID(deeplink, clickID string) string {
	sep := "?"
	for i := 0; i < len(deeplink); i++ {
		if deeplink[i] == '?' {
			sep = "&"
			break
		}
	}
	return deeplink + sep + ClickIDParam + "=" + clickID
}
