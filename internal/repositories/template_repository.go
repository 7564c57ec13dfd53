package repositories

import (
	"context"
	"errors"

	"mockup/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrTemplateNotFound = errors.New("template not found")

type TemplateRepository struct {
	db *pgxpool.Pool
}

func NewTemplateRepository(db *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Upsert creates the template or replaces it wholesale. The editor
// saves the full template on every change, so replace is the only
// write path.
func (r *TemplateRepository) Upsert(ctx context.Context, t *models.Template) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO templates (id, name, base_image_path, variables, masks)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE
		SET name=EXCLUDED.name,
		    base_image_path=EXCLUDED.base_image_path,
		    variables=EXCLUDED.variables,
		    masks=EXCLUDED.masks,
		    updated_at=now(),
		    deleted_at=NULL
	`, t.ID, t.Name, t.BaseImagePath, t.Variables, t.Masks)
	return err
}

func (r *TemplateRepository) List(ctx context.Context) ([]models.Template, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, base_image_path, variables, masks
		FROM templates
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Template
	for rows.Next() {
		var t models.Template
		if err := rows.Scan(&t.ID, &t.Name, &t.BaseImagePath, &t.Variables, &t.Masks); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TemplateRepository) Get(ctx context.Context, id string) (*models.Template, error) {
	var t models.Template
	err := r.db.QueryRow(ctx, `
		SELECT id, name, base_image_path, variables, masks
		FROM templates
		WHERE id=$1 AND deleted_at IS NULL
	`, id).Scan(&t.ID, &t.Name, &t.BaseImagePath, &t.Variables, &t.Masks)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE templates
		SET deleted_at=now()
		WHERE id=$1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}
