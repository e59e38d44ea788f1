package permissions

import (
	"context"

	"github.com/teamvault/teamvault/internal/server/models"
)

type Repository interface {
	FindByFolder(ctx context.Context, folderID string) ([]*models.FolderGroupPermission, error)
	Upsert(ctx context.Context, perm *models.FolderGroupPermission) error
	Delete(ctx context.Context, folderID, groupID string) error
}
