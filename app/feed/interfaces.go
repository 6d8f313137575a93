package feed

import (
	"context"

	"veille/app/database"
)

// FetcherInterface lets tests substitute the network fetcher.
type FetcherInterface interface {
	Run(ctx context.Context, url string) ([]Entry, error)
}

var _ FetcherInterface = (*Fetcher)(nil)

// SourceStore is the slice of the source repository the ingestor reads.
type SourceStore interface {
	GetEnabledSources() ([]database.Source, error)
	GetSource(id string) (*database.Source, error)
}

var _ SourceStore = (*database.SourceRepository)(nil)

// ItemStore is the slice of the item repository the ingestor writes.
type ItemStore interface {
	UpsertByLink(item database.NewItem) error
}

var _ ItemStore = (*database.ItemRepository)(nil)
