package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ItemRepository handles database operations for reading-list items
type ItemRepository struct {
	db *DB
}

func NewItemRepository(db *DB) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `i.id, i.source_id, s.name, s.kind, i.title, i.url,
	COALESCE(i.description, ''), COALESCE(i.thumbnail, ''), i.published_at,
	i.view_count, i.like_count, i.word_count,
	i.is_read, i.is_favorite, i.to_study, i.watch_later,
	COALESCE(i.notes, ''), i.created_at, i.updated_at`

// UpsertByLink stores an item keyed by its URL. On first sighting the full
// record is created with default annotation flags; when the URL already
// exists only the view and like counts are refreshed, and only with
// present (non-nil) values. User annotations are never touched.
// The upsert is atomic per key; concurrent writers racing on the same URL
// surface as ErrConflict only if a second unique constraint fires.
func (r *ItemRepository) UpsertByLink(item NewItem) error {
	_, err := r.db.Exec(`
		INSERT INTO items (
			id, source_id, title, url, description, thumbnail,
			published_at, view_count, like_count, word_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			view_count = COALESCE(excluded.view_count, items.view_count),
			like_count = COALESCE(excluded.like_count, items.like_count),
			updated_at = CURRENT_TIMESTAMP
	`, uuid.NewString(), item.SourceID, item.Title, item.URL, item.Description,
		item.Thumbnail, item.PublishedAt.UTC(), item.ViewCount, item.LikeCount,
		item.WordCount)

	if err != nil {
		return fmt.Errorf("failed to upsert item: %w", mapConstraintError(err))
	}

	return nil
}

func (r *ItemRepository) GetItem(id string) (*Item, error) {
	var item Item
	err := r.db.QueryRow(`
		SELECT `+itemColumns+`
		FROM items i
		JOIN sources s ON s.id = i.source_id
		WHERE i.id = ?
	`, id).Scan(
		&item.ID, &item.SourceID, &item.SourceName, &item.SourceKind,
		&item.Title, &item.URL, &item.Description, &item.Thumbnail,
		&item.PublishedAt, &item.ViewCount, &item.LikeCount, &item.WordCount,
		&item.IsRead, &item.IsFavorite, &item.ToStudy, &item.WatchLater,
		&item.Notes, &item.CreatedAt, &item.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return &item, nil
}

func (r *ItemRepository) GetItemByURL(url string) (*Item, error) {
	var item Item
	err := r.db.QueryRow(`
		SELECT `+itemColumns+`
		FROM items i
		JOIN sources s ON s.id = i.source_id
		WHERE i.url = ?
	`, url).Scan(
		&item.ID, &item.SourceID, &item.SourceName, &item.SourceKind,
		&item.Title, &item.URL, &item.Description, &item.Thumbnail,
		&item.PublishedAt, &item.ViewCount, &item.LikeCount, &item.WordCount,
		&item.IsRead, &item.IsFavorite, &item.ToStudy, &item.WatchLater,
		&item.Notes, &item.CreatedAt, &item.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item by URL: %w", err)
	}

	return &item, nil
}

// ListItems returns items matching the filter ordered by published date
// descending, plus the total match count for pagination.
func (r *ItemRepository) ListItems(filter ItemFilter) ([]Item, int, error) {
	where, args := buildItemFilter(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM items i JOIN sources s ON s.id = i.source_id` + where
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	query := `
		SELECT ` + itemColumns + `
		FROM items i
		JOIN sources s ON s.id = i.source_id` + where + `
		ORDER BY i.published_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		err := rows.Scan(
			&item.ID, &item.SourceID, &item.SourceName, &item.SourceKind,
			&item.Title, &item.URL, &item.Description, &item.Thumbnail,
			&item.PublishedAt, &item.ViewCount, &item.LikeCount, &item.WordCount,
			&item.IsRead, &item.IsFavorite, &item.ToStudy, &item.WatchLater,
			&item.Notes, &item.CreatedAt, &item.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, total, nil
}

func buildItemFilter(filter ItemFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if filter.SourceKind != "" {
		clauses = append(clauses, "s.kind = ?")
		args = append(args, filter.SourceKind)
	}
	if filter.PublishedFrom != nil {
		clauses = append(clauses, "i.published_at >= ?")
		args = append(args, filter.PublishedFrom.UTC())
	}
	if filter.PublishedTo != nil {
		clauses = append(clauses, "i.published_at <= ?")
		args = append(args, filter.PublishedTo.UTC())
	}
	if filter.TitleSearch != "" {
		clauses = append(clauses, "i.title LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(filter.TitleSearch)+"%")
	}
	if filter.Favorites {
		clauses = append(clauses, "i.is_favorite = 1")
	}
	if filter.Unread {
		clauses = append(clauses, "i.is_read = 0")
	}
	if filter.ToStudy {
		clauses = append(clauses, "i.to_study = 1")
	}
	if filter.WatchLater {
		clauses = append(clauses, "i.watch_later = 1")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// UpdateAnnotations applies a partial update of user-editable fields.
// Returns the updated item, or nil if the id does not exist.
func (r *ItemRepository) UpdateAnnotations(id string, patch AnnotationPatch) (*Item, error) {
	var sets []string
	var args []interface{}

	if patch.IsRead != nil {
		sets = append(sets, "is_read = ?")
		args = append(args, *patch.IsRead)
	}
	if patch.IsFavorite != nil {
		sets = append(sets, "is_favorite = ?")
		args = append(args, *patch.IsFavorite)
	}
	if patch.ToStudy != nil {
		sets = append(sets, "to_study = ?")
		args = append(args, *patch.ToStudy)
	}
	if patch.WatchLater != nil {
		sets = append(sets, "watch_later = ?")
		args = append(args, *patch.WatchLater)
	}
	if patch.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *patch.Notes)
	}

	if len(sets) == 0 {
		return r.GetItem(id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	result, err := r.db.Exec(`UPDATE items SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update annotations: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	return r.GetItem(id)
}

// GetStats returns annotation counters across all items
func (r *ItemRepository) GetStats() (Stats, error) {
	var stats Stats
	err := r.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN is_read = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_favorite = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN to_study = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN watch_later = 1 THEN 1 ELSE 0 END), 0)
		FROM items
	`).Scan(&stats.Total, &stats.Unread, &stats.Favorites, &stats.ToStudy, &stats.WatchLater)

	if err != nil {
		return Stats{}, fmt.Errorf("failed to get item stats: %w", err)
	}

	return stats, nil
}

// GetItemsWithNotes returns items carrying non-empty notes, newest first,
// for the markdown export
func (r *ItemRepository) GetItemsWithNotes() ([]Item, error) {
	rows, err := r.db.Query(`
		SELECT ` + itemColumns + `
		FROM items i
		JOIN sources s ON s.id = i.source_id
		WHERE TRIM(i.notes) != ''
		ORDER BY i.published_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get items with notes: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		err := rows.Scan(
			&item.ID, &item.SourceID, &item.SourceName, &item.SourceKind,
			&item.Title, &item.URL, &item.Description, &item.Thumbnail,
			&item.PublishedAt, &item.ViewCount, &item.LikeCount, &item.WordCount,
			&item.IsRead, &item.IsFavorite, &item.ToStudy, &item.WatchLater,
			&item.Notes, &item.CreatedAt, &item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

func (r *ItemRepository) GetItemCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get item count: %w", err)
	}
	return count, nil
}
