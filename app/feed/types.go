package feed

import (
	"time"
)

// SourceKind selects the normalization branch for a source's entries.
type SourceKind string

const (
	SourceKindArticle SourceKind = "article"
	SourceKindVideo   SourceKind = "video"
)

// Entry is the ephemeral representation of one parsed feed entry. It lives
// for a single fetch+normalize cycle and is never persisted.
type Entry struct {
	Title       string
	Link        string
	PublishedAt *time.Time // parsed feed timestamp, nil when absent or unparseable
	Summary     string     // short snippet (media:description for video feeds)
	Description string
	Content     string

	// Video is set only for entries carrying video platform extensions.
	// Articles leave it nil, so kind-specific handling branches on presence
	// instead of re-probing raw extension maps.
	Video *VideoMeta
}

// VideoMeta holds the platform extension fields of a video entry. Count
// values stay raw strings until normalization, which parses them
// leniently (malformed means absent, never zero).
type VideoMeta struct {
	ID        string
	Thumbnail string
	Views     string
	Likes     string
}

// Item is the canonical normalized record handed to persistence.
// Nil count fields mean "unknown", which is distinct from zero.
type Item struct {
	Title       string
	Link        string
	PublishedAt time.Time
	Description string
	Thumbnail   string
	ViewCount   *int64
	LikeCount   *int64
	WordCount   *int
}

// Result aggregates one ingestion run. Added counts every successful
// create or update; Errors holds one human-readable entry per failed
// source, prefixed with the source name.
type Result struct {
	Added  int      `json:"added"`
	Errors []string `json:"errors"`
}
