package feed

import (
	"fmt"
	"regexp"
)

// Fixed preview image convention for the video platform.
const thumbnailURLTemplate = "https://img.youtube.com/vi/%s/mqdefault.jpg"

func thumbnailURL(videoID string) string {
	return fmt.Sprintf(thumbnailURLTemplate, videoID)
}

// Recognized URL shapes carrying an 11-character video identifier.
var (
	linkVideoPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/v/([a-zA-Z0-9_-]{11})`),
	}
	contentVideoPattern = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([a-zA-Z0-9_-]{11})`)
	imgTagPattern       = regexp.MustCompile(`<img[^>]+src="([^"]+)"`)
)

// ResolveThumbnail derives a best-effort preview image for an item.
// Precedence: an explicit thumbnail wins; for video sources the link is
// probed for a video id; then embedded content is scanned for a video URL
// and finally for a plain <img> tag. Malformed or absent input yields "".
func ResolveThumbnail(current, link, content string, kind SourceKind) string {
	if current != "" {
		return current
	}

	if kind == SourceKindVideo {
		for _, pattern := range linkVideoPatterns {
			if match := pattern.FindStringSubmatch(link); match != nil {
				return thumbnailURL(match[1])
			}
		}
	}

	if content == "" {
		return ""
	}

	if match := contentVideoPattern.FindStringSubmatch(content); match != nil {
		return thumbnailURL(match[1])
	}

	if match := imgTagPattern.FindStringSubmatch(content); match != nil {
		return match[1]
	}

	return ""
}
