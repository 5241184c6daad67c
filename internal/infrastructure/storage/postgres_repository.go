package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"GossipSearch/internal/ports"
)

// PostgresRepository tracks ingested articles and their content hashes
// so unchanged articles can skip the embedding call on re-ingestion.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.DedupRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// KnownHashes returns the stored content hash for each id that already
// exists. A nil db yields an empty map, disabling dedup.
func (r *PostgresRepository) KnownHashes(ctx context.Context, ids []string) (map[string]string, error) {
	if r.db == nil || len(ids) == 0 {
		return map[string]string{}, nil
	}

	query, args, err := r.builder.
		Select("article_id", "content_hash").
		From("ingested_articles").
		Where(sq.Expr("article_id = ANY(?)", pq.StringArray(ids))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query known hashes: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		result[id] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// SaveIngested upserts the ingestion record for an article.
func (r *PostgresRepository) SaveIngested(ctx context.Context, id, url, title, contentHash string) error {
	if r.db == nil {
		return nil
	}

	query, args, err := r.builder.
		Insert("ingested_articles").
		Columns("article_id", "url", "title", "content_hash").
		Values(id, url, title, contentHash).
		Suffix(`ON CONFLICT (article_id) DO UPDATE
                SET url = EXCLUDED.url,
                    title = EXCLUDED.title,
                    content_hash = EXCLUDED.content_hash,
                    updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert ingested: %w", err)
	}
	return nil
}
