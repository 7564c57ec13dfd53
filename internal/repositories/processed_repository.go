package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ProcessedRepository remembers identifiers that already went through a
// successful render, so re-running a CSV with skip_processed enabled
// only renders the new rows.
type ProcessedRepository struct {
	db *pgxpool.Pool
}

func NewProcessedRepository(db *pgxpool.Pool) *ProcessedRepository {
	return &ProcessedRepository{db: db}
}

func (r *ProcessedRepository) IsProcessed(ctx context.Context, identifier string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM processed_identifiers WHERE identifier=$1)
	`, identifier).Scan(&exists)
	return exists, err
}

func (r *ProcessedRepository) MarkProcessed(ctx context.Context, identifier string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO processed_identifiers (identifier)
		VALUES ($1)
		ON CONFLICT (identifier) DO NOTHING
	`, identifier)
	return err
}
