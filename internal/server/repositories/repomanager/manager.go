// Package repomanager hands out aggregate repositories over a dbx.DBTX so
// services can run the same code against the base connection or inside a
// transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/teamvault/teamvault/internal/dbx"
	"github.com/teamvault/teamvault/internal/server/repositories/folders"
	"github.com/teamvault/teamvault/internal/server/repositories/groups"
	"github.com/teamvault/teamvault/internal/server/repositories/items"
	"github.com/teamvault/teamvault/internal/server/repositories/permissions"
	"github.com/teamvault/teamvault/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Groups(db dbx.DBTX) groups.Repository
	Folders(db dbx.DBTX) folders.Repository
	Permissions(db dbx.DBTX) permissions.Repository
	Items(db dbx.DBTX) items.Repository
}
