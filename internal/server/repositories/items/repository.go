package items

import (
	"context"

	"github.com/teamvault/teamvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, item *models.Item) (*models.Item, error)
	Find(ctx context.Context, id string) (*models.Item, error)
	ListByFolder(ctx context.Context, folderID string) ([]*models.Item, error)
	// SearchByTitle matches against the plaintext title only; payloads are
	// never searchable.
	SearchByTitle(ctx context.Context, q string) ([]*models.Item, error)
	Touch(ctx context.Context, id string) error
	SetAttachmentKey(ctx context.Context, id, key string) error
	Delete(ctx context.Context, id string) error
	DeleteByFolder(ctx context.Context, folderID string) error
}
