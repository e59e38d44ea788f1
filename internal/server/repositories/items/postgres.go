package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/teamvault/teamvault/internal/common"
	"github.com/teamvault/teamvault/internal/dbx"
	"github.com/teamvault/teamvault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const itemColumns = `id, folder_id, personal, title, payload, nonce, auth_tag,
	metadata, attachment_key, created_at, updated_at, accessed_at`

func (r *PostgresRepository) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	query :=
		`INSERT INTO items (folder_id, personal, title, payload, nonce, auth_tag, metadata, attachment_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		item.FolderID, item.Personal, item.Title, item.Payload,
		item.Nonce, item.AuthTag, item.Metadata, item.AttachmentKey).Scan(&item.ID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return item, nil
}

func (r *PostgresRepository) Find(ctx context.Context, id string) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	item := &models.Item{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.FolderID, &item.Personal, &item.Title, &item.Payload,
		&item.Nonce, &item.AuthTag, &item.Metadata, &item.AttachmentKey,
		&item.CreatedAt, &item.UpdatedAt, &item.AccessedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return item, nil
}

func (r *PostgresRepository) ListByFolder(ctx context.Context, folderID string) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE folder_id = $1 ORDER BY title`
	return r.queryItems(ctx, query, folderID)
}

func (r *PostgresRepository) SearchByTitle(ctx context.Context, q string) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE title ILIKE '%' || $1 || '%' ORDER BY title`
	return r.queryItems(ctx, query, q)
}

func (r *PostgresRepository) Touch(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE items SET accessed_at = now() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetAttachmentKey(ctx context.Context, id, key string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE items SET attachment_key = $2, updated_at = now() WHERE id = $1`, id, key)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteByFolder(ctx context.Context, folderID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE folder_id = $1`, folderID); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) queryItems(ctx context.Context, query string, args ...any) ([]*models.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var result []*models.Item
	for rows.Next() {
		item := &models.Item{}
		err := rows.Scan(
			&item.ID, &item.FolderID, &item.Personal, &item.Title, &item.Payload,
			&item.Nonce, &item.AuthTag, &item.Metadata, &item.AttachmentKey,
			&item.CreatedAt, &item.UpdatedAt, &item.AccessedAt)
		if err != nil {
			return nil, fmt.Errorf("error performing sql request: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return result, nil
}
