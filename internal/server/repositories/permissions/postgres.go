package permissions

import (
	"context"
	"fmt"

	"github.com/teamvault/teamvault/internal/dbx"
	"github.com/teamvault/teamvault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByFolder(ctx context.Context, folderID string) ([]*models.FolderGroupPermission, error) {
	query := `SELECT folder_id, group_id, can_read, can_write FROM folder_group_permissions WHERE folder_id = $1`

	rows, err := r.db.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var perms []*models.FolderGroupPermission
	for rows.Next() {
		p := &models.FolderGroupPermission{}
		if err := rows.Scan(&p.FolderID, &p.GroupID, &p.Read, &p.Write); err != nil {
			return nil, fmt.Errorf("error performing sql request: %w", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return perms, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, perm *models.FolderGroupPermission) error {
	query :=
		`INSERT INTO folder_group_permissions (folder_id, group_id, can_read, can_write)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (folder_id, group_id)
		 DO UPDATE SET can_read = EXCLUDED.can_read, can_write = EXCLUDED.can_write`

	if _, err := r.db.ExecContext(ctx, query, perm.FolderID, perm.GroupID, perm.Read, perm.Write); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, folderID, groupID string) error {
	query := `DELETE FROM folder_group_permissions WHERE folder_id = $1 AND group_id = $2`

	if _, err := r.db.ExecContext(ctx, query, folderID, groupID); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}
