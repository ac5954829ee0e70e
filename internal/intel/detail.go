package intel

import "strings"

// socialPlatforms are platforms whose empty referer path means the
// click came from the profile root ("link in bio").
var socialPlatforms = map[string]bool{
	"instagram": true,
	"tiktok":    true,
	"youtube":   true,
	"twitter":   true,
	"facebook":  true,
	"snapchat":  true,
	"linkedin":  true,
	"pinterest": true,
	"reddit":    true,
	"threads":   true,
	"tumblr":    true,
}

// extractSourceDetail maps a referer path to a coarse placement label
// within the platform (story, post, video, dm, ...). Substring tests
// run in priority order per platform.
func extractSourceDetail(platform, path string) string {
	if path == "" || path == "/" {
		if socialPlatforms[platform] {
			return "bio"
		}
		return ""
	}

	p := strings.ToLower(path)

	switch platform {
	case "instagram":
		switch {
		case strings.Contains(p, "/stories/"):
			return "story"
		case strings.Contains(p, "/p/"):
			return "post"
		case strings.Contains(p, "/reel/"):
			return "reel"
		case strings.Contains(p, "/direct/"):
			return "dm"
		}
		return "feed"

	case "tiktok":
		if strings.Contains(p, "/video/") || strings.Contains(p, "/@") {
			return "video"
		}
		return "feed"

	case "youtube":
		switch {
		case strings.Contains(p, "/watch"):
			return "video"
		case strings.Contains(p, "/shorts/"):
			return "short"
		case strings.Contains(p, "/channel/"), strings.Contains(p, "/@"):
			return "channel"
		}
		return "feed"

	case "twitter":
		switch {
		case strings.Contains(p, "/status/"):
			return "tweet"
		case strings.Contains(p, "/messages"):
			return "dm"
		}
		return "feed"

	case "facebook":
		switch {
		case strings.Contains(p, "/messages"), strings.Contains(p, "/msg"):
			return "dm"
		case strings.Contains(p, "/groups/"):
			return "group"
		case strings.Contains(p, "/posts/"):
			return "post"
		}
		return "feed"

	case "google", "bing", "duckduckgo", "yahoo", "yandex", "baidu":
		return "search_organic"
	}

	return ""
}
