package folders

import (
	"context"

	"github.com/teamvault/teamvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, folder *models.Folder) (*models.Folder, error)
	Find(ctx context.Context, id string) (*models.Folder, error)
	FindPersonalByOwner(ctx context.Context, ownerID string) (*models.Folder, error)
	// Ancestors returns the chain from the folder itself up to its root
	// anchor, target first.
	Ancestors(ctx context.Context, id string) ([]*models.Folder, error)
	HasChildren(ctx context.Context, id string) (bool, error)
	SetParent(ctx context.Context, id, parentID string) error
	Delete(ctx context.Context, id string) error
}
