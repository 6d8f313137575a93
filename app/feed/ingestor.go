package feed

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"veille/app/database"
)

// ErrSourceNotFound is returned by RunSource when the id does not resolve.
var ErrSourceNotFound = errors.New("source not found")

// Ingestor merges remote feed documents into the item store. It holds no
// run state of its own; preventing overlapping runs is the caller's job.
type Ingestor struct {
	fetcher    FetcherInterface
	normalizer *Normalizer
	sourceRepo SourceStore
	itemRepo   ItemStore
}

func NewIngestor(fetcher FetcherInterface, sourceRepo SourceStore, itemRepo ItemStore) *Ingestor {
	return &Ingestor{
		fetcher:    fetcher,
		normalizer: NewNormalizer(),
		sourceRepo: sourceRepo,
		itemRepo:   itemRepo,
	}
}

// Run refreshes every enabled source sequentially. A failing source is
// recorded in the result and never aborts the batch; an empty source list
// is a successful no-op.
func (i *Ingestor) Run(ctx context.Context) Result {
	started := time.Now()
	result := Result{Errors: []string{}}

	sources, err := i.sourceRepo.GetEnabledSources()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("sources: %s", err))
		return result
	}

	for _, source := range sources {
		i.ingestSource(ctx, source, &result)
	}

	slog.Info("Ingestion run completed",
		"sources", len(sources),
		"added", result.Added,
		"errors", len(result.Errors),
		"duration", time.Since(started))

	return result
}

// RunSource refreshes a single source identified by id.
func (i *Ingestor) RunSource(ctx context.Context, sourceID string) (Result, error) {
	source, err := i.sourceRepo.GetSource(sourceID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load source: %w", err)
	}
	if source == nil {
		return Result{}, ErrSourceNotFound
	}

	result := Result{Errors: []string{}}
	i.ingestSource(ctx, *source, &result)
	return result, nil
}

func (i *Ingestor) ingestSource(ctx context.Context, source database.Source, result *Result) {
	entries, err := i.fetcher.Run(ctx, source.URL)
	if err != nil {
		slog.Warn("Source fetch failed", "source", source.Name, "error", err)
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", source.Name, err))
		return
	}

	kind := SourceKind(source.Kind)

	for _, entry := range entries {
		item, ok := i.normalizer.Run(entry, kind)
		if !ok {
			// No link, cannot be deduplicated or stored.
			continue
		}

		item.Thumbnail = ResolveThumbnail(item.Thumbnail, item.Link, cmp.Or(entry.Content, entry.Description), kind)

		err := i.itemRepo.UpsertByLink(database.NewItem{
			SourceID:    source.ID,
			Title:       item.Title,
			URL:         item.Link,
			Description: item.Description,
			Thumbnail:   item.Thumbnail,
			PublishedAt: item.PublishedAt,
			ViewCount:   item.ViewCount,
			LikeCount:   item.LikeCount,
			WordCount:   item.WordCount,
		})

		if errors.Is(err, database.ErrConflict) {
			// Lost a race on the unique key; the row exists, nothing to do.
			continue
		}
		if err != nil {
			slog.Error("Item upsert failed", "source", source.Name, "link", item.Link, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", source.Name, err))
			continue
		}

		result.Added++
	}
}
