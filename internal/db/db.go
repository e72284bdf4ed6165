package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ragchat/internal/config"
	"ragchat/internal/helper"
	"ragchat/internal/models"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// ChunkRow is one chunk of one index build.
type ChunkRow struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`

	ID        int64           `bun:"id,pk,autoincrement"`
	IndexID   string          `bun:"index_id,notnull"`
	ChunkKey  string          `bun:"chunk_key,notnull"`
	Source    string          `bun:"source"`
	Ordinal   int             `bun:"ordinal,notnull"`
	Content   string          `bun:"content,notnull"`
	Embedding pgvector.Vector `bun:"embedding,notnull,type:vector"`
	Score     float32         `bun:"score,scanonly"`
}

func (r ChunkRow) chunk() models.Chunk {
	return models.Chunk{ID: r.ChunkKey, Source: r.Source, Ordinal: r.Ordinal, Content: r.Content}
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is empty")
	}
	switch cfg.Driver {
	case "pq":
		return sql.Open("postgres", cfg.DSN)
	default:
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN))), nil
	}
}

// Open connects, pings and prepares the schema.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*bun.DB, error) {
	sqldb, err := ConnectDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db := NewDB(sqldb, cfg.Debug)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := InitDB(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*ChunkRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create chunks table: %w", err)
	}
	_, err := db.NewCreateIndex().
		Model((*ChunkRow)(nil)).
		Index("chunks_index_id_idx").
		IfNotExists().
		Column("index_id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create chunks index: %w", err)
	}
	return nil
}

// Index is one build stored in the shared chunks table under its own id.
type Index struct {
	db   *bun.DB
	id   string
	size int
}

// NewIndex inserts all rows of a build in one transaction.
func NewIndex(ctx context.Context, db *bun.DB, chunks []models.Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) == 0 {
		return nil, errors.New("no chunks to index")
	}
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}

	rows := make([]ChunkRow, len(chunks))
	for i, chunk := range chunks {
		rows[i] = ChunkRow{
			IndexID:   id,
			ChunkKey:  chunk.ID,
			Source:    chunk.Source,
			Ordinal:   chunk.Ordinal,
			Content:   chunk.Content,
			Embedding: pgvector.NewVector(vectors[i]),
		}
	}

	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}
	log.Debug().Str("index_id", id).Int("rows", len(rows)).Msg("Built pgvector index")
	return &Index{db: db, id: id, size: len(rows)}, nil
}

// Search ranks by cosine distance. Score is the cosine similarity.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]models.Match, error) {
	if k <= 0 {
		return nil, nil
	}
	vec := pgvector.NewVector(query)

	var rows []ChunkRow
	err := x.db.NewSelect().
		Model(&rows).
		Column("chunk_key", "source", "ordinal", "content").
		ColumnExpr("1 - (embedding <=> ?) AS score", vec).
		Where("index_id = ?", x.id).
		OrderExpr("embedding <=> ?", vec).
		Order("ordinal ASC").
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	matches := make([]models.Match, len(rows))
	for i, r := range rows {
		matches[i] = models.Match{Chunk: r.chunk(), Score: r.Score}
	}
	return matches, nil
}

func (x *Index) Len() int {
	return x.size
}

// Close deletes the rows of this build.
func (x *Index) Close(ctx context.Context) error {
	_, err := x.db.NewDelete().Model((*ChunkRow)(nil)).Where("index_id = ?", x.id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete index %s: %w", x.id, err)
	}
	return nil
}
