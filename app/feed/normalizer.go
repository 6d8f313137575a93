package feed

import (
	"cmp"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// untitledPlaceholder substitutes for entries that arrive without a title.
const untitledPlaceholder = "Untitled"

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalizer converts raw entries into canonical items. It performs no
// I/O; the clock is injectable for tests and defaults to time.Now.
type Normalizer struct {
	now func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// Run normalizes one entry for a source of the given kind. The second
// return value is false when the entry has no link: such entries cannot
// be deduplicated or stored and must be skipped by the caller.
func (n *Normalizer) Run(entry Entry, kind SourceKind) (Item, bool) {
	if entry.Link == "" {
		return Item{}, false
	}

	item := Item{
		Title:       cmp.Or(entry.Title, untitledPlaceholder),
		Link:        entry.Link,
		Description: cmp.Or(entry.Summary, entry.Description, entry.Content),
	}

	if entry.PublishedAt != nil {
		item.PublishedAt = *entry.PublishedAt
	} else {
		item.PublishedAt = n.now()
	}

	switch kind {
	case SourceKindVideo:
		if entry.Video != nil {
			item.Thumbnail = entry.Video.Thumbnail
			if item.Thumbnail == "" && entry.Video.ID != "" {
				item.Thumbnail = thumbnailURL(entry.Video.ID)
			}
			item.ViewCount = parseCount(entry.Video.Views)
			item.LikeCount = parseCount(entry.Video.Likes)
		}
	default:
		item.WordCount = countWords(entry)
	}

	return item, true
}

// parseCount parses a numeric extension field. Malformed or negative
// values are treated as absent, not zero.
func parseCount(raw string) *int64 {
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || value < 0 {
		return nil
	}
	return &value
}

// countWords computes the word count of the best available text field.
// An entry with no text at all yields nil (unknown), while text that
// strips down to nothing yields an explicit zero.
func countWords(entry Entry) *int {
	text := cmp.Or(entry.Content, entry.Description, entry.Summary)
	if text == "" {
		return nil
	}

	clean := tagPattern.ReplaceAllString(text, " ")
	clean = strings.TrimSpace(whitespacePattern.ReplaceAllString(clean, " "))

	count := 0
	if clean != "" {
		count = len(strings.Split(clean, " "))
	}
	return &count
}
