package provider

import (
	"net/url"
	"strings"

	"github.com/raphaelgruber/scout/internal/models"
)

// ClassifyLink reports which platform a result link belongs to. Only
// Instagram posts/reels and YouTube watch links are recognized.
func ClassifyLink(link string) (models.Platform, bool) {
	_, platform, ok := CanonicalLink(link)
	return platform, ok
}

// CanonicalLink recognizes link and rewrites it to the single URL form used
// as candidate identity, so one item found by two providers compares equal.
// YouTube links become https://www.youtube.com/watch?v=<id>; Instagram links
// lose their query, fragment and mobile host.
func CanonicalLink(link string) (string, models.Platform, bool) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return "", "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")

	switch {
	case host == "instagram.com":
		if !strings.HasPrefix(u.Path, "/p/") && !strings.HasPrefix(u.Path, "/reel/") {
			return "", "", false
		}
		path := u.Path
		if !strings.HasSuffix(path, "/") {
			path += "/"
		}
		return "https://www.instagram.com" + path, models.PlatformSocialPost, true
	case host == "youtube.com":
		if u.Path != "/watch" && u.Path != "/watch/" {
			return "", "", false
		}
		id := u.Query().Get("v")
		if id == "" {
			return "", "", false
		}
		return youtubeWatchURL(id), models.PlatformVideo, true
	case host == "youtu.be":
		id := strings.Trim(u.Path, "/")
		if id == "" || strings.Contains(id, "/") {
			return "", "", false
		}
		return youtubeWatchURL(id), models.PlatformVideo, true
	}
	return "", "", false
}

func youtubeWatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
}
