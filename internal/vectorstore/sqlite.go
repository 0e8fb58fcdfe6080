package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ragbench/ragbench/internal/errdefs"
)

// SQLite stores vectors as little-endian float32 BLOBs and ranks by
// cosine in Go over a flat scan. SQLite has no vector type, so search
// cost is linear in collection size, which is the intended scale here.
// The schema comes from the embedded migrations in internal/database;
// callers hand over an opened, migrated *sql.DB.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite wraps an opened database. The caller keeps ownership of db
// until Close.
func NewSQLite(db *sql.DB, logger *slog.Logger) *SQLite {
	return &SQLite{db: db, logger: logger}
}

func (s *SQLite) Upsert(ctx context.Context, collection string, entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin upsert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var established int
	err = tx.QueryRowContext(ctx,
		"SELECT dimension FROM collections WHERE name = ?", collection,
	).Scan(&established)
	if errors.Is(err, sql.ErrNoRows) {
		established = 0
	} else if err != nil {
		return 0, fmt.Errorf("failed to read collection dimension: %w", err)
	}

	dim, err := validateEntries(collection, entries, established)
	if err != nil {
		return 0, err
	}
	if established == 0 {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO collections (name, dimension) VALUES (?, ?)", collection, dim,
		); err != nil {
			return 0, fmt.Errorf("failed to create collection %q: %w", collection, err)
		}
	}

	for _, e := range entries {
		metadata, err := json.Marshal(e.Metadata)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal metadata for entry %q: %w", e.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entries (collection, id, vector, content, metadata)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (collection, id) DO UPDATE SET
				vector = excluded.vector,
				content = excluded.content,
				metadata = excluded.metadata`,
			collection, e.ID, EncodeVector(e.Values), e.Text, string(metadata),
		); err != nil {
			return 0, fmt.Errorf("failed to upsert entry %q: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return len(entries), nil
}

func (s *SQLite) Search(ctx context.Context, collection string, query []float32, topK int) ([]Result, error) {
	if err := validateQuery(query, topK); err != nil {
		return nil, err
	}

	var dim int
	err := s.db.QueryRowContext(ctx,
		"SELECT dimension FROM collections WHERE name = ?", collection,
	).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return []Result{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read collection dimension: %w", err)
	}
	if len(query) != dim {
		return nil, errdefs.DimensionMismatch(collection, dim, len(query))
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, vector, content, metadata FROM entries WHERE collection = ?", collection,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan collection %q: %w", collection, err)
	}
	defer rows.Close()

	q := normalize(query)
	results := make([]Result, 0, topK)
	for rows.Next() {
		var (
			id       string
			blob     []byte
			content  string
			metadata string
		)
		if err := rows.Scan(&id, &blob, &content, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		values, err := DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("corrupt vector for entry %q: %w", id, err)
		}

		var meta map[string]string
		if err := json.Unmarshal([]byte(metadata), &meta); err != nil {
			if s.logger != nil {
				s.logger.Warn("failed to parse entry metadata",
					slog.String("entry_id", id), slog.Any("error", err))
			}
			meta = nil
		}
		results = append(results, Result{
			ChunkID:  id,
			Text:     content,
			Score:    dot(q, normalize(values)),
			Metadata: meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return rankResults(results, topK), nil
}

func (s *SQLite) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM collections ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan collection name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate collections: %w", err)
	}
	return names, nil
}

func (s *SQLite) Stats(ctx context.Context, collection string) (CollectionStats, error) {
	var stats CollectionStats
	err := s.db.QueryRowContext(ctx, `
		SELECT c.name, c.dimension, COUNT(e.id)
		FROM collections c
		LEFT JOIN entries e ON e.collection = c.name
		WHERE c.name = ?
		GROUP BY c.name, c.dimension`, collection,
	).Scan(&stats.Name, &stats.Dimension, &stats.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return CollectionStats{}, errdefs.NotFound("collection", collection)
	}
	if err != nil {
		return CollectionStats{}, fmt.Errorf("failed to read collection stats: %w", err)
	}
	return stats, nil
}

func (s *SQLite) Delete(ctx context.Context, collection string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE collection = ?", collection); err != nil {
		return fmt.Errorf("failed to delete entries of %q: %w", collection, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", collection); err != nil {
		return fmt.Errorf("failed to delete collection %q: %w", collection, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
