package groups

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

func (r *PostgresRepository) Create(ctx context.Context, group *models.Group) (*models.Group, error) {
	query :=
		`INSERT INTO groups (description, parent_id)
		 VALUES ($1, $2)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query, group.Description, group.ParentID).Scan(&group.ID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return group, nil
}

func (r *PostgresRepository) Find(ctx context.Context, id string) (*models.Group, error) {
	query := `SELECT id, description, parent_id FROM groups WHERE id = $1`

	group := &models.Group{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&group.ID, &group.Description, &group.ParentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return group, nil
}

// GroupsOf returns the group ids userID belongs to. An unknown user simply
// has no memberships; no error is returned for it.
func (r *PostgresRepository) GroupsOf(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT group_id FROM user_group_memberships WHERE user_id = $1`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error performing sql request: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return ids, nil
}

func (r *PostgresRepository) IsMember(ctx context.Context, userID, groupID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM user_group_memberships WHERE user_id = $1 AND group_id = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, groupID).Scan(&exists); err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}

	return exists, nil
}

func (r *PostgresRepository) AddMember(ctx context.Context, userID, groupID string) error {
	query :=
		`INSERT INTO user_group_memberships (user_id, group_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, userID, groupID); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RemoveMember(ctx context.Context, userID, groupID string) error {
	query := `DELETE FROM user_group_memberships WHERE user_id = $1 AND group_id = $2`

	if _, err := r.db.ExecContext(ctx, query, userID, groupID); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RemoveAllMemberships(ctx context.Context, userID string) error {
	query := `DELETE FROM user_group_memberships WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}
