// Package access computes effective folder permissions: the union of group
// grants along a folder's ancestor chain, with a read-through cache.
package access

import (
	"context"

	"github.com/teamvault/teamvault/internal/dbx"
	"github.com/teamvault/teamvault/internal/server/repositories/repomanager"
)

// Access is an effective {read, write} pair. Write implies read.
type Access struct {
	Read  bool
	Write bool
}

// Resolver answers "may user U read/write folder F". It is a pure function
// over current store state; callers own cache invalidation on writes.
type Resolver struct {
	db    dbx.DBTX
	rm    repomanager.RepositoryManager
	cache *Cache
}

func NewResolver(db dbx.DBTX, rm repomanager.RepositoryManager, cache *Cache) *Resolver {
	return &Resolver{db: db, rm: rm, cache: cache}
}

// Resolve computes the effective permission of userID on folderID.
//
// A personal folder short-circuits the group algorithm: only the owner ever
// gets access, admins included get nothing. For shared folders the result is
// the OR-union of every grant row along the ancestor chain whose group the
// user belongs to; a deeper folder can add to what an ancestor granted but
// never revoke it. Admins need no special case here: the seeded
// Admins-on-Root grant row is inherited everywhere.
//
// An unknown folder is ErrorNotFound. An unknown user simply has no group
// memberships and resolves to no access.
func (r *Resolver) Resolve(ctx context.Context, userID, folderID string) (Access, error) {
	if acc, ok := r.cache.Get(userID, folderID); ok {
		return acc, nil
	}

	folderRepo := r.rm.Folders(r.db)

	folder, err := folderRepo.Find(ctx, folderID)
	if err != nil {
		return Access{}, err
	}

	var acc Access

	if folder.Personal {
		owned := folder.OwnerID != nil && *folder.OwnerID == userID
		acc = Access{Read: owned, Write: owned}
		r.cache.Put(userID, folderID, acc)
		return acc, nil
	}

	groupIDs, err := r.rm.Groups(r.db).GroupsOf(ctx, userID)
	if err != nil {
		return Access{}, err
	}

	memberOf := make(map[string]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		memberOf[id] = struct{}{}
	}

	chain, err := folderRepo.Ancestors(ctx, folderID)
	if err != nil {
		return Access{}, err
	}

	permRepo := r.rm.Permissions(r.db)

	for _, node := range chain {
		// Grant rows carry no meaning on personal folders.
		if node.Personal {
			continue
		}

		perms, err := permRepo.FindByFolder(ctx, node.ID)
		if err != nil {
			return Access{}, err
		}

		for _, p := range perms {
			if _, ok := memberOf[p.GroupID]; !ok {
				continue
			}
			acc.Read = acc.Read || p.Read
			acc.Write = acc.Write || p.Write
		}
	}

	acc.Read = acc.Read || acc.Write

	r.cache.Put(userID, folderID, acc)
	return acc, nil
}
