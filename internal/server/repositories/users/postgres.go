package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

const userColumns = `id, login, display_name, auth_method, locale, email,
	password_hash, password_expires_at, personal_secret_hash, active,
	created_at, updated_at`

func (r *PostgresRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Login, &user.DisplayName, &user.AuthMethod,
		&user.Locale, &user.Email, &user.PasswordHash, &user.PasswordExpiresAt,
		&user.PersonalSecretHash, &user.Active, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (login, display_name, auth_method, locale, email, password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Login, user.DisplayName, user.AuthMethod, user.Locale,
		user.Email, user.PasswordHash).Scan(&user.ID)

	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE login = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, login))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id string, hash string, expiresAt *time.Time) error {
	query :=
		`UPDATE users SET password_hash = $2, password_expires_at = $3, updated_at = now()
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, hash, expiresAt)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return checkAffected(res)
}

func (r *PostgresRepository) UpdatePersonalSecretHash(ctx context.Context, id string, hash string) error {
	query :=
		`UPDATE users SET personal_secret_hash = $2, updated_at = now()
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, hash)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return checkAffected(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
