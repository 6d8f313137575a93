package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"golang.org/x/time/rate"
)

// fetchTimeout bounds a single feed download. Fixed by contract, not
// configurable.
const fetchTimeout = 10 * time.Second

// FetchError reports a failed feed retrieval or parse, carrying the
// source URL and the underlying cause.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch feed %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher retrieves and parses remote feed documents. One Fetcher is
// shared across all sources; the limiter spaces out upstream requests.
type Fetcher struct {
	client    *http.Client
	parser    *gofeed.Parser
	limiter   *rate.Limiter
	userAgent string
}

func NewFetcher(client *http.Client, userAgent string) *Fetcher {
	return &Fetcher{
		client:    client,
		parser:    gofeed.NewParser(),
		limiter:   rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
		userAgent: userAgent,
	}
}

// Run downloads and parses the feed at url. An empty but well-formed feed
// yields an empty slice and no error; every failure is a *FetchError.
func (f *Fetcher) Run(ctx context.Context, url string) ([]Entry, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)}
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		entries = append(entries, convertItem(item))
	}

	return entries, nil
}

func convertItem(item *gofeed.Item) Entry {
	entry := Entry{
		Title:       item.Title,
		Link:        item.Link,
		Description: item.Description,
		Content:     item.Content,
	}

	if item.PublishedParsed != nil {
		entry.PublishedAt = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		entry.PublishedAt = item.UpdatedParsed
	}

	entry.Video = extractVideoMeta(item)
	if entry.Video != nil && entry.Summary == "" {
		entry.Summary = mediaDescription(item)
	}

	return entry
}

// extractVideoMeta pulls the yt:videoId and media:group statistics out of
// the raw extension tree. Returns nil when the entry carries no video id.
func extractVideoMeta(item *gofeed.Item) *VideoMeta {
	videoID := extensionValue(item, "yt", "videoId")
	if videoID == "" {
		return nil
	}

	meta := &VideoMeta{ID: videoID}

	group := firstExtension(item, "media", "group")
	if group == nil {
		return meta
	}

	if thumb := firstChild(group, "thumbnail"); thumb != nil {
		meta.Thumbnail = thumb.Attrs["url"]
	}

	community := firstChild(group, "community")
	if community == nil {
		return meta
	}

	if stats := firstChild(community, "statistics"); stats != nil {
		meta.Views = stats.Attrs["views"]
	}
	if rating := firstChild(community, "starRating"); rating != nil {
		meta.Likes = rating.Attrs["count"]
	}

	return meta
}

func mediaDescription(item *gofeed.Item) string {
	group := firstExtension(item, "media", "group")
	if group == nil {
		return ""
	}
	if desc := firstChild(group, "description"); desc != nil {
		return desc.Value
	}
	return ""
}

func extensionValue(item *gofeed.Item, namespace, name string) string {
	if e := firstExtension(item, namespace, name); e != nil {
		return e.Value
	}
	return ""
}

func firstExtension(item *gofeed.Item, namespace, name string) *ext.Extension {
	exts, ok := item.Extensions[namespace]
	if !ok {
		return nil
	}
	list, ok := exts[name]
	if !ok || len(list) == 0 {
		return nil
	}
	return &list[0]
}

func firstChild(parent *ext.Extension, name string) *ext.Extension {
	list, ok := parent.Children[name]
	if !ok || len(list) == 0 {
		return nil
	}
	return &list[0]
}
