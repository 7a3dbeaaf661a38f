package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ssorath/centsible/internal/database"
	"github.com/ssorath/centsible/internal/models"
)

type CategoryRepository struct {
	db *database.DB
}

func NewCategoryRepository(db *database.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) (*models.Category, error) {
	category.ID = uuid.New().String()
	category.CreatedAt = time.Now()

	query := `
		INSERT INTO categories (id, user_id, name, kind, color, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, name, kind, color, created_at`

	var created models.Category
	err := r.db.Pool.QueryRow(ctx, query,
		category.ID, category.UserID, category.Name, category.Kind, category.Color, category.CreatedAt,
	).Scan(&created.ID, &created.UserID, &created.Name, &created.Kind, &created.Color, &created.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &created, nil
}

// SeedDefaults inserts the starter category set for a new account in one batch.
func (r *CategoryRepository) SeedDefaults(ctx context.Context, userID string) error {
	batch := &pgx.Batch{}
	now := time.Now()

	for _, c := range models.DefaultCategories() {
		batch.Queue(
			`INSERT INTO categories (id, user_id, name, kind, color, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New().String(), userID, c.Name, c.Kind, c.Color, now,
		)
	}

	results := r.db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	for range models.DefaultCategories() {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to seed default categories: %w", database.MapPostgresError(err))
		}
	}

	return nil
}

func (r *CategoryRepository) List(ctx context.Context, userID string) ([]*models.Category, error) {
	query := `
		SELECT id, user_id, name, kind, color, created_at
		FROM categories WHERE user_id = $1
		ORDER BY kind, name`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	categories := make([]*models.Category, 0)
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Kind, &c.Color, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, userID, id string) (*models.Category, error) {
	query := `
		SELECT id, user_id, name, kind, color, created_at
		FROM categories WHERE id = $1 AND user_id = $2`

	var c models.Category
	err := r.db.Pool.QueryRow(ctx, query, id, userID).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Kind, &c.Color, &c.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &c, nil
}

// Delete removes a category; transactions referencing it keep their rows with
// category_id set to NULL by the schema.
func (r *CategoryRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM categories WHERE id = $1 AND user_id = $2`

	result, err := r.db.Pool.Exec(ctx, query, id, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
