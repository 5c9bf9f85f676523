package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/songlist/editor/internal/ports"
)

// DefaultDocumentName is the row holding the song document
const DefaultDocumentName = "songs"

// PostgresRepositoryImpl keeps the document in one row of the documents table
type PostgresRepositoryImpl struct {
	db   *sqlx.DB
	name string
}

// NewPostgresRepository creates a postgres-backed document repository
func NewPostgresRepository(db *sqlx.DB, name string) *PostgresRepositoryImpl {
	if name == "" {
		name = DefaultDocumentName
	}
	return &PostgresRepositoryImpl{db: db, name: name}
}

func (r *PostgresRepositoryImpl) Name() string {
	return "postgres"
}

func (r *PostgresRepositoryImpl) Read(ctx context.Context) ([]byte, error) {
	query := `
		SELECT body
		FROM documents
		WHERE name = $1`

	var body string
	err := r.db.GetContext(ctx, &body, query, r.name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %q: %w", r.name, ports.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return []byte(body), nil
}

func (r *PostgresRepositoryImpl) Write(ctx context.Context, data []byte) error {
	query := `
		INSERT INTO documents (name, body, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE
		SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`

	if _, err := r.db.ExecContext(ctx, query, r.name, string(data)); err != nil {
		return fmt.Errorf("put document: %w", err)
	}

	return nil
}

func (r *PostgresRepositoryImpl) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}
