package api

import (
	"context"
	"time"

	"veille/app/database"
	"veille/app/feed"
	"veille/app/tasks"
)

type SourceStore interface {
	ListSources() ([]database.SourceWithUnread, error)
	GetSource(id string) (*database.Source, error)
	GetSourceByURL(url string) (*database.Source, error)
	CreateSource(name, url, kind, iconURL string) (*database.Source, error)
	SetSourceEnabled(id string, enabled bool) (*database.Source, error)
	DeleteSource(id string) error
}

var _ SourceStore = (*database.SourceRepository)(nil)

type ItemStore interface {
	ListItems(filter database.ItemFilter) ([]database.Item, int, error)
	UpdateAnnotations(id string, patch database.AnnotationPatch) (*database.Item, error)
	GetStats() (database.Stats, error)
	GetItemsWithNotes() ([]database.Item, error)
	GetItemCount() (int, error)
}

var _ ItemStore = (*database.ItemRepository)(nil)

// Refresher triggers ingestion runs on demand. Full-batch runs go
// through the scheduler so the API shares its single-flight guard.
type Refresher interface {
	RunNow(ctx context.Context) (feed.Result, bool)
	RunSource(ctx context.Context, sourceID string) (feed.Result, error)
}

var _ Refresher = (*tasks.Scheduler)(nil)

type Handler struct {
	sourceRepo SourceStore
	itemRepo   ItemStore
	refresher  Refresher

	authPassword     string
	authPasswordHash string
	sessionSecret    string
}

// itemResponse is the JSON shape of an item, matching the field names the
// frontend consumes. Nil counts serialize as null, never zero.
type itemResponse struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"sourceId"`
	SourceName  string    `json:"sourceName"`
	SourceKind  string    `json:"sourceKind"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
	ViewCount   *int64    `json:"viewCount"`
	LikeCount   *int64    `json:"likeCount"`
	WordCount   *int      `json:"wordCount"`
	IsRead      bool      `json:"isRead"`
	IsFavorite  bool      `json:"isFavorite"`
	ToStudy     bool      `json:"toStudy"`
	WatchLater  bool      `json:"watchLater"`
	Notes       string    `json:"notes,omitempty"`
}

func toItemResponse(item database.Item) itemResponse {
	return itemResponse{
		ID:          item.ID,
		SourceID:    item.SourceID,
		SourceName:  item.SourceName,
		SourceKind:  item.SourceKind,
		Title:       item.Title,
		URL:         item.URL,
		Description: item.Description,
		Thumbnail:   item.Thumbnail,
		PublishedAt: item.PublishedAt,
		ViewCount:   item.ViewCount,
		LikeCount:   item.LikeCount,
		WordCount:   item.WordCount,
		IsRead:      item.IsRead,
		IsFavorite:  item.IsFavorite,
		ToStudy:     item.ToStudy,
		WatchLater:  item.WatchLater,
		Notes:       item.Notes,
	}
}

type sourceResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Kind        string `json:"kind"`
	Icon        string `json:"icon,omitempty"`
	Enabled     bool   `json:"enabled"`
	UnreadCount *int   `json:"unreadCount,omitempty"`
}

func toSourceResponse(source database.Source) sourceResponse {
	return sourceResponse{
		ID:      source.ID,
		Name:    source.Name,
		URL:     source.URL,
		Kind:    source.Kind,
		Icon:    source.IconURL,
		Enabled: source.Enabled,
	}
}
