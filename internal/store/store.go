// SPDX-License-Identifier: MIT

// Package store provides SQLite persistence for artifact metadata.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)

	"github.com/strmforge/mediapack/internal/media"
)

// ErrNotFound is returned when no row matches the key.
var ErrNotFound = errors.New("store: not found")

// Store persists trickplay and I-frame playlist metadata.
type Store struct {
	db *sql.DB
}

// New opens the SQLite store and runs migrations. WAL mode plus a busy
// timeout suit the read-heavy artifact-serving workload.
func New(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trickplay_infos (
		item_id TEXT NOT NULL,
		width INTEGER NOT NULL,
		tile_width INTEGER NOT NULL,
		tile_height INTEGER NOT NULL,
		interval_ms INTEGER NOT NULL,
		thumbnail_count INTEGER NOT NULL,
		height INTEGER NOT NULL,
		bandwidth INTEGER NOT NULL,
		PRIMARY KEY (item_id, width)
	);

	CREATE TABLE IF NOT EXISTS iframe_playlist_infos (
		item_id TEXT PRIMARY KEY,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		segment_count INTEGER NOT NULL,
		bandwidth INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trickplay_item ON trickplay_infos(item_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// GetTrickplay loads one row by (item, width).
func (s *Store) GetTrickplay(ctx context.Context, itemID string, width int) (media.TrickplayInfo, error) {
	query := `
	SELECT item_id, width, tile_width, tile_height, interval_ms, thumbnail_count, height, bandwidth
	FROM trickplay_infos WHERE item_id = ? AND width = ?
	`
	var info media.TrickplayInfo
	err := s.db.QueryRowContext(ctx, query, itemID, width).Scan(
		&info.ItemID, &info.Width, &info.TileWidth, &info.TileHeight,
		&info.Interval, &info.ThumbnailCount, &info.Height, &info.Bandwidth,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return media.TrickplayInfo{}, ErrNotFound
	}
	if err != nil {
		return media.TrickplayInfo{}, err
	}
	return info, nil
}

// ListTrickplayByItem returns every row of one video, ordered by width.
func (s *Store) ListTrickplayByItem(ctx context.Context, itemID string) ([]media.TrickplayInfo, error) {
	query := `
	SELECT item_id, width, tile_width, tile_height, interval_ms, thumbnail_count, height, bandwidth
	FROM trickplay_infos WHERE item_id = ? ORDER BY width
	`
	return s.queryTrickplay(ctx, query, itemID)
}

// ListTrickplay pages over all rows ordered by item then width.
func (s *Store) ListTrickplay(ctx context.Context, limit, offset int) ([]media.TrickplayInfo, error) {
	query := `
	SELECT item_id, width, tile_width, tile_height, interval_ms, thumbnail_count, height, bandwidth
	FROM trickplay_infos ORDER BY item_id, width LIMIT ? OFFSET ?
	`
	return s.queryTrickplay(ctx, query, limit, offset)
}

func (s *Store) queryTrickplay(ctx context.Context, query string, args ...any) ([]media.TrickplayInfo, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []media.TrickplayInfo
	for rows.Next() {
		var info media.TrickplayInfo
		if err := rows.Scan(
			&info.ItemID, &info.Width, &info.TileWidth, &info.TileHeight,
			&info.Interval, &info.ThumbnailCount, &info.Height, &info.Bandwidth,
		); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// UpsertTrickplay inserts or atomically replaces one row.
func (s *Store) UpsertTrickplay(ctx context.Context, info media.TrickplayInfo) error {
	query := `
	INSERT INTO trickplay_infos (item_id, width, tile_width, tile_height, interval_ms, thumbnail_count, height, bandwidth)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(item_id, width) DO UPDATE SET
		tile_width = excluded.tile_width,
		tile_height = excluded.tile_height,
		interval_ms = excluded.interval_ms,
		thumbnail_count = excluded.thumbnail_count,
		height = excluded.height,
		bandwidth = excluded.bandwidth
	`
	_, err := s.db.ExecContext(ctx, query,
		info.ItemID, info.Width, info.TileWidth, info.TileHeight,
		info.Interval, info.ThumbnailCount, info.Height, info.Bandwidth,
	)
	return err
}

// DeleteTrickplayByItem removes all rows of one video.
func (s *Store) DeleteTrickplayByItem(ctx context.Context, itemID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM trickplay_infos WHERE item_id = ?`, itemID)
	return err
}

// DeleteTrickplay removes one row by (item, width).
func (s *Store) DeleteTrickplay(ctx context.Context, itemID string, width int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM trickplay_infos WHERE item_id = ? AND width = ?`, itemID, width)
	return err
}

// GetIFrame loads the single I-frame playlist row of a video.
func (s *Store) GetIFrame(ctx context.Context, itemID string) (media.IFramePlaylistInfo, error) {
	query := `
	SELECT item_id, width, height, segment_count, bandwidth
	FROM iframe_playlist_infos WHERE item_id = ?
	`
	var info media.IFramePlaylistInfo
	err := s.db.QueryRowContext(ctx, query, itemID).Scan(
		&info.ItemID, &info.Width, &info.Height, &info.SegmentCount, &info.Bandwidth,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return media.IFramePlaylistInfo{}, ErrNotFound
	}
	if err != nil {
		return media.IFramePlaylistInfo{}, err
	}
	return info, nil
}

// ListIFrame pages over all rows ordered by item.
func (s *Store) ListIFrame(ctx context.Context, limit, offset int) ([]media.IFramePlaylistInfo, error) {
	query := `
	SELECT item_id, width, height, segment_count, bandwidth
	FROM iframe_playlist_infos ORDER BY item_id LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []media.IFramePlaylistInfo
	for rows.Next() {
		var info media.IFramePlaylistInfo
		if err := rows.Scan(&info.ItemID, &info.Width, &info.Height, &info.SegmentCount, &info.Bandwidth); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// UpsertIFrame inserts or atomically replaces the video's row; exactly one
// row exists per video.
func (s *Store) UpsertIFrame(ctx context.Context, info media.IFramePlaylistInfo) error {
	query := `
	INSERT INTO iframe_playlist_infos (item_id, width, height, segment_count, bandwidth)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(item_id) DO UPDATE SET
		width = excluded.width,
		height = excluded.height,
		segment_count = excluded.segment_count,
		bandwidth = excluded.bandwidth
	`
	_, err := s.db.ExecContext(ctx, query,
		info.ItemID, info.Width, info.Height, info.SegmentCount, info.Bandwidth,
	)
	return err
}

// DeleteIFrameByItem removes the video's I-frame row.
func (s *Store) DeleteIFrameByItem(ctx context.Context, itemID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM iframe_playlist_infos WHERE item_id = ?`, itemID)
	return err
}
