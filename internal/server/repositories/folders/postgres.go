package folders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/teamvault/teamvault/internal/common"
	"github.com/teamvault/teamvault/internal/dbx"
	"github.com/teamvault/teamvault/internal/server/models"
)

// maxDepth bounds the ancestor walk. The tree is enforced acyclic at
// mutation time; this guard only keeps a corrupted parent chain from
// looping forever.
const maxDepth = 128

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, folder *models.Folder) (*models.Folder, error) {
	query :=
		`INSERT INTO folders (parent_id, description, personal, owner_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		folder.ParentID, folder.Description, folder.Personal, folder.OwnerID).Scan(&folder.ID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return folder, nil
}

func (r *PostgresRepository) Find(ctx context.Context, id string) (*models.Folder, error) {
	query := `SELECT id, parent_id, description, personal, owner_id FROM folders WHERE id = $1`
	return r.scanFolder(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) FindPersonalByOwner(ctx context.Context, ownerID string) (*models.Folder, error) {
	query := `SELECT id, parent_id, description, personal, owner_id FROM folders WHERE owner_id = $1 AND personal`
	return r.scanFolder(r.db.QueryRowContext(ctx, query, ownerID))
}

// Ancestors walks parent pointers iteratively from the folder up to its root
// anchor, target first. No recursion: depth is bounded explicitly.
func (r *PostgresRepository) Ancestors(ctx context.Context, id string) ([]*models.Folder, error) {
	var chain []*models.Folder

	current, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	for depth := 0; depth < maxDepth; depth++ {
		chain = append(chain, current)

		if current.ParentID == nil {
			return chain, nil
		}

		current, err = r.Find(ctx, *current.ParentID)
		if err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("folder %s: ancestor chain exceeds depth %d", id, maxDepth)
}

func (r *PostgresRepository) HasChildren(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM folders WHERE parent_id = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}

	return exists, nil
}

func (r *PostgresRepository) SetParent(ctx context.Context, id, parentID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE folders SET parent_id = $2 WHERE id = $1`, id, parentID)
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE id = $1`, id)
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

func (r *PostgresRepository) scanFolder(row *sql.Row) (*models.Folder, error) {
	folder := &models.Folder{}
	err := row.Scan(&folder.ID, &folder.ParentID, &folder.Description, &folder.Personal, &folder.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return folder, nil
}
