package users

import (
	"context"
	"time"

	"github.com/teamvault/teamvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id string, hash string, expiresAt *time.Time) error
	UpdatePersonalSecretHash(ctx context.Context, id string, hash string) error
	Delete(ctx context.Context, id string) error
}
