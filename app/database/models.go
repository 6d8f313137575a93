package database

import (
	"time"
)

// Source kinds as stored in the sources.kind column.
const (
	SourceKindArticle = "article"
	SourceKindVideo   = "video"
)

type Source struct {
	ID        string
	Name      string
	URL       string // Feed URL, globally unique natural key
	Kind      string // "article" or "video"
	IconURL   string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SourceWithUnread is a Source annotated with its unread item count,
// used by the sources listing endpoint.
type SourceWithUnread struct {
	Source
	UnreadCount int
}

type Item struct {
	ID          string
	SourceID    string
	SourceName  string // joined from sources, empty unless the query includes it
	SourceKind  string
	Title       string
	URL         string // Unique business key used for deduplication
	Description string
	Thumbnail   string
	PublishedAt time.Time
	ViewCount   *int64 // nil means unknown, distinct from zero
	LikeCount   *int64
	WordCount   *int
	IsRead      bool
	IsFavorite  bool
	ToStudy     bool
	WatchLater  bool
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewItem carries the fields written on first sighting of a link.
// Count fields are pointers: nil leaves any stored value untouched on update.
type NewItem struct {
	SourceID    string
	Title       string
	URL         string
	Description string
	Thumbnail   string
	PublishedAt time.Time
	ViewCount   *int64
	LikeCount   *int64
	WordCount   *int
}

// AnnotationPatch holds user-editable flags for a partial item update.
// Nil fields are not modified.
type AnnotationPatch struct {
	IsRead     *bool
	IsFavorite *bool
	ToStudy    *bool
	WatchLater *bool
	Notes      *string
}

// ItemFilter restricts item listing queries. Zero values mean "no constraint".
type ItemFilter struct {
	SourceKind    string
	PublishedFrom *time.Time
	PublishedTo   *time.Time
	TitleSearch   string
	Favorites     bool
	Unread        bool
	ToStudy       bool
	WatchLater    bool
	Limit         int
	Offset        int
}

type Stats struct {
	Total      int
	Unread     int
	Favorites  int
	ToStudy    int
	WatchLater int
}
