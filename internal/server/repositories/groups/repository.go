package groups

import (
	"context"

	"github.com/teamvault/teamvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, group *models.Group) (*models.Group, error)
	Find(ctx context.Context, id string) (*models.Group, error)
	GroupsOf(ctx context.Context, userID string) ([]string, error)
	IsMember(ctx context.Context, userID, groupID string) (bool, error)
	AddMember(ctx context.Context, userID, groupID string) error
	RemoveMember(ctx context.Context, userID, groupID string) error
	RemoveAllMemberships(ctx context.Context, userID string) error
}
