package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SourceRepository handles database operations for feed sources
type SourceRepository struct {
	db *DB
}

func NewSourceRepository(db *DB) *SourceRepository {
	return &SourceRepository{db: db}
}

const sourceColumns = `id, name, url, kind, COALESCE(icon_url, ''), enabled, created_at, updated_at`

// RegisterSource inserts a source definition or updates an existing one,
// keyed by the feed URL. Used at startup to sync the seed file into the
// database. Returns the database ID and whether a new row was created.
func (r *SourceRepository) RegisterSource(name, url, kind, iconURL string, enabled bool) (string, bool, error) {
	existing, err := r.GetSourceByURL(url)
	if err != nil {
		return "", false, fmt.Errorf("failed to check existing source: %w", err)
	}

	if existing != nil {
		_, err = r.db.Exec(`
			UPDATE sources
			SET name = ?, kind = ?, icon_url = ?, updated_at = ?
			WHERE id = ?
		`, name, kind, iconURL, time.Now().UTC(), existing.ID)
		if err != nil {
			return "", false, fmt.Errorf("failed to update source: %w", err)
		}
		return existing.ID, false, nil
	}

	id := uuid.NewString()
	_, err = r.db.Exec(`
		INSERT INTO sources (id, name, url, kind, icon_url, enabled)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, name, url, kind, iconURL, enabled)
	if err != nil {
		return "", false, fmt.Errorf("failed to insert source: %w", mapConstraintError(err))
	}

	return id, true, nil
}

// CreateSource inserts a new source. Returns ErrConflict when a source
// with the same URL already exists.
func (r *SourceRepository) CreateSource(name, url, kind, iconURL string) (*Source, error) {
	id := uuid.NewString()
	_, err := r.db.Exec(`
		INSERT INTO sources (id, name, url, kind, icon_url, enabled)
		VALUES (?, ?, ?, ?, ?, 1)
	`, id, name, url, kind, iconURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create source: %w", mapConstraintError(err))
	}

	return r.GetSource(id)
}

func (r *SourceRepository) GetSource(id string) (*Source, error) {
	var source Source
	err := r.db.QueryRow(`
		SELECT `+sourceColumns+`
		FROM sources
		WHERE id = ?
	`, id).Scan(
		&source.ID, &source.Name, &source.URL, &source.Kind, &source.IconURL,
		&source.Enabled, &source.CreatedAt, &source.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return &source, nil
}

func (r *SourceRepository) GetSourceByURL(url string) (*Source, error) {
	var source Source
	err := r.db.QueryRow(`
		SELECT `+sourceColumns+`
		FROM sources
		WHERE url = ?
	`, url).Scan(
		&source.ID, &source.Name, &source.URL, &source.Kind, &source.IconURL,
		&source.Enabled, &source.CreatedAt, &source.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source by URL: %w", err)
	}

	return &source, nil
}

// GetEnabledSources returns all sources with the enabled flag set,
// ordered by name for stable batch processing.
func (r *SourceRepository) GetEnabledSources() ([]Source, error) {
	rows, err := r.db.Query(`
		SELECT ` + sourceColumns + `
		FROM sources
		WHERE enabled = 1
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get enabled sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var source Source
		err := rows.Scan(
			&source.ID, &source.Name, &source.URL, &source.Kind, &source.IconURL,
			&source.Enabled, &source.CreatedAt, &source.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

// ListSources returns all sources with their unread item counts
func (r *SourceRepository) ListSources() ([]SourceWithUnread, error) {
	rows, err := r.db.Query(`
		SELECT s.id, s.name, s.url, s.kind, COALESCE(s.icon_url, ''), s.enabled,
		       s.created_at, s.updated_at,
		       COUNT(CASE WHEN i.is_read = 0 THEN 1 END) AS unread_count
		FROM sources s
		LEFT JOIN items i ON i.source_id = s.id
		GROUP BY s.id
		ORDER BY s.name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []SourceWithUnread
	for rows.Next() {
		var source SourceWithUnread
		err := rows.Scan(
			&source.ID, &source.Name, &source.URL, &source.Kind, &source.IconURL,
			&source.Enabled, &source.CreatedAt, &source.UpdatedAt,
			&source.UnreadCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

func (r *SourceRepository) SetSourceEnabled(id string, enabled bool) (*Source, error) {
	result, err := r.db.Exec(`
		UPDATE sources
		SET enabled = ?, updated_at = ?
		WHERE id = ?
	`, enabled, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to set source enabled: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	return r.GetSource(id)
}

// DeleteSource removes a source and, via ON DELETE CASCADE, all its items
func (r *SourceRepository) DeleteSource(id string) error {
	result, err := r.db.Exec(`DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *SourceRepository) GetSourceCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}
