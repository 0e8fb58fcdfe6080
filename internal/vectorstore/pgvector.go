package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/ragbench/ragbench/internal/database"
	"github.com/ragbench/ragbench/internal/errdefs"
)

// Pgvector backs the Store contract with PostgreSQL + pgvector. The
// <=> operator is cosine distance, so 1 - (embedding <=> query) is the
// same cosine similarity the in-process backends compute on raw
// vectors. Rows per collection live in the entries table; the
// collections table pins each collection's dimension.
type Pgvector struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPgvector runs migrations against connURL, then opens a pool and
// verifies connectivity.
func NewPgvector(ctx context.Context, connURL string, logger *slog.Logger) (*Pgvector, error) {
	if err := database.MigratePostgres(connURL); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Pgvector{pool: pool, logger: logger}, nil
}

func (p *Pgvector) Upsert(ctx context.Context, collection string, entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	dim, err := validateEntries(collection, entries, 0)
	if err != nil {
		return 0, err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin upsert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Create-if-absent, then lock the row. The row lock serializes
	// concurrent upserts to the same collection; when two first-upserts
	// race, the loser sees the winner's dimension below.
	if _, err := tx.Exec(ctx, `
		INSERT INTO collections (name, dimension) VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING`, collection, dim,
	); err != nil {
		return 0, fmt.Errorf("failed to create collection %q: %w", collection, err)
	}
	var established int
	if err := tx.QueryRow(ctx,
		"SELECT dimension FROM collections WHERE name = $1 FOR UPDATE", collection,
	).Scan(&established); err != nil {
		return 0, fmt.Errorf("failed to read collection dimension: %w", err)
	}
	if established != dim {
		return 0, errdefs.DimensionMismatch(collection, established, dim)
	}

	for _, e := range entries {
		metadata, err := json.Marshal(e.Metadata)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal metadata for entry %q: %w", e.ID, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO entries (collection, id, embedding, content, metadata)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (collection, id) DO UPDATE SET
				embedding = EXCLUDED.embedding,
				content = EXCLUDED.content,
				metadata = EXCLUDED.metadata`,
			collection, e.ID, pgvector.NewVector(e.Values), e.Text, metadata,
		); err != nil {
			return 0, fmt.Errorf("failed to upsert entry %q: %w", e.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return len(entries), nil
}

func (p *Pgvector) Search(ctx context.Context, collection string, query []float32, topK int) ([]Result, error) {
	if err := validateQuery(query, topK); err != nil {
		return nil, err
	}

	var dim int
	err := p.pool.QueryRow(ctx,
		"SELECT dimension FROM collections WHERE name = $1", collection,
	).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return []Result{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read collection dimension: %w", err)
	}
	if len(query) != dim {
		return nil, errdefs.DimensionMismatch(collection, dim, len(query))
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, content, metadata, 1 - (embedding <=> $2) AS similarity
		FROM entries
		WHERE collection = $1
		ORDER BY embedding <=> $2
		LIMIT $3`, collection, pgvector.NewVector(query), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %q: %w", collection, err)
	}
	defer rows.Close()

	results := make([]Result, 0, topK)
	for rows.Next() {
		var (
			r        Result
			metadata []byte
		)
		if err := rows.Scan(&r.ChunkID, &r.Text, &metadata, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &r.Metadata); err != nil {
				if p.logger != nil {
					p.logger.Warn("failed to parse entry metadata",
						slog.String("entry_id", r.ChunkID), slog.Any("error", err))
				}
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search rows: %w", err)
	}
	return results, nil
}

func (p *Pgvector) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, "SELECT name FROM collections ORDER BY name")
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

func (p *Pgvector) Stats(ctx context.Context, collection string) (CollectionStats, error) {
	var stats CollectionStats
	err := p.pool.QueryRow(ctx, `
		SELECT c.name, c.dimension, count(e.id)
		FROM collections c
		LEFT JOIN entries e ON e.collection = c.name
		WHERE c.name = $1
		GROUP BY c.name, c.dimension`, collection,
	).Scan(&stats.Name, &stats.Dimension, &stats.Count)
	if errors.Is(err, pgx.ErrNoRows) {
		return CollectionStats{}, errdefs.NotFound("collection", collection)
	}
	if err != nil {
		return CollectionStats{}, fmt.Errorf("failed to read collection stats: %w", err)
	}
	return stats, nil
}

func (p *Pgvector) Delete(ctx context.Context, collection string) error {
	if _, err := p.pool.Exec(ctx, "DELETE FROM collections WHERE name = $1", collection); err != nil {
		return fmt.Errorf("failed to delete collection %q: %w", collection, err)
	}
	return nil
}

func (p *Pgvector) Close() error {
	p.pool.Close()
	return nil
}
