package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const youtubeFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015"
      xmlns:media="http://search.yahoo.com/mrss/"
      xmlns="http://www.w3.org/2005/Atom">
  <title>Test Channel</title>
  <entry>
    <id>yt:video:dQw4w9WgXcQ</id>
    <yt:videoId>dQw4w9WgXcQ</yt:videoId>
    <title>Test Video</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=dQw4w9WgXcQ"/>
    <published>2024-05-01T10:00:00+00:00</published>
    <media:group>
      <media:title>Test Video</media:title>
      <media:thumbnail url="https://i4.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg" width="480" height="360"/>
      <media:description>A test video description</media:description>
      <media:community>
        <media:starRating count="56" average="5.00" min="1" max="5"/>
        <media:statistics views="1234"/>
      </media:community>
    </media:group>
  </entry>
</feed>`

const articleFixture = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Newsletter</title>
    <link>https://example.com</link>
    <description>Weekly articles</description>
    <item>
      <title>First Article</title>
      <link>https://example.com/article-1</link>
      <description>A short teaser</description>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Second Article</title>
      <link>https://example.com/article-2</link>
      <description>Another teaser</description>
    </item>
  </channel>
</rss>`

func serveFixture(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchVideoFeed(t *testing.T) {
	server := serveFixture(t, youtubeFixture)

	fetcher := NewFetcher(server.Client(), "Veille-Feed-Reader/1.0")
	entries, err := fetcher.Run(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(entries))
	}

	entry := entries[0]
	if entry.Title != "Test Video" {
		t.Errorf("Expected title 'Test Video', got: %s", entry.Title)
	}
	if entry.Link != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("Unexpected link: %s", entry.Link)
	}
	if entry.PublishedAt == nil {
		t.Error("Expected published timestamp to be parsed")
	}

	if entry.Video == nil {
		t.Fatal("Expected video metadata to be extracted")
	}
	if entry.Video.ID != "dQw4w9WgXcQ" {
		t.Errorf("Expected video id 'dQw4w9WgXcQ', got: %s", entry.Video.ID)
	}
	if entry.Video.Views != "1234" {
		t.Errorf("Expected raw views '1234', got: %s", entry.Video.Views)
	}
	if entry.Video.Likes != "56" {
		t.Errorf("Expected raw likes '56', got: %s", entry.Video.Likes)
	}
	if entry.Video.Thumbnail != "https://i4.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg" {
		t.Errorf("Unexpected thumbnail: %s", entry.Video.Thumbnail)
	}
	if entry.Summary != "A test video description" {
		t.Errorf("Expected media description as summary, got: %s", entry.Summary)
	}
}

func TestFetchArticleFeed(t *testing.T) {
	server := serveFixture(t, articleFixture)

	fetcher := NewFetcher(server.Client(), "Veille-Feed-Reader/1.0")
	entries, err := fetcher.Run(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got: %d", len(entries))
	}

	if entries[0].Video != nil {
		t.Error("Expected no video metadata on an article entry")
	}
	if entries[0].Description != "A short teaser" {
		t.Errorf("Unexpected description: %s", entries[0].Description)
	}
	if entries[1].PublishedAt != nil {
		t.Error("Expected missing pubDate to stay nil")
	}
}

func TestFetchEmptyFeedIsNotAnError(t *testing.T) {
	empty := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Empty</title><link>https://example.com</link><description>d</description></channel></rss>`
	server := serveFixture(t, empty)

	fetcher := NewFetcher(server.Client(), "Veille-Feed-Reader/1.0")
	entries, err := fetcher.Run(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error for empty feed, got: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected 0 entries, got: %d", len(entries))
	}
}

func TestFetchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "Veille-Feed-Reader/1.0")
	_, err := fetcher.Run(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *FetchError, got: %T", err)
	}
	if fetchErr.URL != server.URL {
		t.Errorf("Expected error to carry source URL, got: %s", fetchErr.URL)
	}
}

func TestFetchMalformedDocument(t *testing.T) {
	server := serveFixture(t, "this is not xml")

	fetcher := NewFetcher(server.Client(), "Veille-Feed-Reader/1.0")
	_, err := fetcher.Run(context.Background(), server.URL)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *FetchError for malformed document, got: %v", err)
	}
}

func TestFetchSendsUserAgent(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Write([]byte(articleFixture))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "Veille-Feed-Reader/1.0")
	if _, err := fetcher.Run(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if gotUserAgent != "Veille-Feed-Reader/1.0" {
		t.Errorf("Expected custom user agent, got: %s", gotUserAgent)
	}
}

func TestFetchTimeoutContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	fetcher := NewFetcher(server.Client(), "Veille-Feed-Reader/1.0")
	_, err := fetcher.Run(ctx, server.URL)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *FetchError on timeout, got: %v", err)
	}
}
