package services

import (
	"context"
	"database/sql"

	"github.com/teamvault/teamvault/internal/common"
	"github.com/teamvault/teamvault/internal/dbx"
	"github.com/teamvault/teamvault/internal/logging"
	"github.com/teamvault/teamvault/internal/server/access"
	"github.com/teamvault/teamvault/internal/server/audit"
	"github.com/teamvault/teamvault/internal/server/auth"
	"github.com/teamvault/teamvault/internal/server/models"
	"github.com/teamvault/teamvault/internal/server/repositories/repomanager"
)

type FolderService struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	resolver *access.Resolver
	cache    *access.Cache
	sink     audit.Sink
	logger   logging.Logger
}

func NewFolderService(db *sql.DB, rm repomanager.RepositoryManager, resolver *access.Resolver,
	cache *access.Cache, sink audit.Sink, logger logging.Logger) *FolderService {
	return &FolderService{
		db:       db,
		rm:       rm,
		resolver: resolver,
		cache:    cache,
		sink:     sink,
		logger:   logger.With("module", "folder_service"),
	}
}

// Create adds a shared folder under parentID. The caller needs write on the
// parent. Personal folders never get subfolders.
func (s *FolderService) Create(ctx context.Context, identity *auth.Identity, parentID, description string) (*models.Folder, error) {
	parent, err := s.rm.Folders(s.db).Find(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.Personal {
		return nil, common.ErrorValidation
	}

	acc, err := s.resolver.Resolve(ctx, identity.UserID, parentID)
	if err != nil {
		return nil, err
	}
	if !acc.Write {
		return nil, common.ErrorForbidden
	}

	folder, err := s.rm.Folders(s.db).Create(ctx, &models.Folder{
		ParentID:    &parentID,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateAll()
	s.sink.Record(audit.Entry{Actor: identity.UserID, Operation: "folder.create", SubjectType: "folder", SubjectID: folder.ID})

	return folder, nil
}

// Move reparents a shared folder. Anchors and personal folders stay where
// they are, the caller needs write on both ends, and a folder cannot move
// under its own descendant.
func (s *FolderService) Move(ctx context.Context, identity *auth.Identity, folderID, newParentID string) error {
	folderRepo := s.rm.Folders(s.db)

	folder, err := folderRepo.Find(ctx, folderID)
	if err != nil {
		return err
	}
	if folder.IsAnchor() || folder.Personal {
		return common.ErrorValidation
	}

	newParent, err := folderRepo.Find(ctx, newParentID)
	if err != nil {
		return err
	}
	if newParent.Personal {
		return common.ErrorValidation
	}

	for _, id := range []string{folderID, newParentID} {
		acc, err := s.resolver.Resolve(ctx, identity.UserID, id)
		if err != nil {
			return err
		}
		if !acc.Write {
			return common.ErrorForbidden
		}
	}

	// A move under the folder's own subtree would detach it into a cycle.
	chain, err := folderRepo.Ancestors(ctx, newParentID)
	if err != nil {
		return err
	}
	for _, node := range chain {
		if node.ID == folderID {
			return common.ErrorValidation
		}
	}

	if err := folderRepo.SetParent(ctx, folderID, newParentID); err != nil {
		return err
	}

	s.cache.InvalidateAll()
	s.sink.Record(audit.Entry{Actor: identity.UserID, Operation: "folder.move", SubjectType: "folder", SubjectID: folderID})

	return nil
}

// Delete removes an empty shared folder together with its items and grant
// rows. Anchors are permanent; personal folders go away only with their
// owner.
func (s *FolderService) Delete(ctx context.Context, identity *auth.Identity, folderID string) error {
	folder, err := s.rm.Folders(s.db).Find(ctx, folderID)
	if err != nil {
		return err
	}
	if folder.IsAnchor() || folder.Personal {
		return common.ErrorValidation
	}

	acc, err := s.resolver.Resolve(ctx, identity.UserID, folderID)
	if err != nil {
		return err
	}
	if !acc.Write {
		return common.ErrorForbidden
	}

	hasChildren, err := s.rm.Folders(s.db).HasChildren(ctx, folderID)
	if err != nil {
		return err
	}
	if hasChildren {
		return common.ErrorValidation
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.rm.Items(tx).DeleteByFolder(ctx, folderID); err != nil {
			return err
		}
		return s.rm.Folders(tx).Delete(ctx, folderID)
	})
	if err != nil {
		return err
	}

	s.cache.InvalidateAll()
	s.sink.Record(audit.Entry{Actor: identity.UserID, Operation: "folder.delete", SubjectType: "folder", SubjectID: folderID})

	return nil
}

// SetPermission upserts a group's grant on a shared folder. Write implies
// read, so the stored row is normalized before it lands.
func (s *FolderService) SetPermission(ctx context.Context, identity *auth.Identity, folderID, groupID string, read, write bool) error {
	folder, err := s.rm.Folders(s.db).Find(ctx, folderID)
	if err != nil {
		return err
	}
	if folder.Personal {
		return common.ErrorValidation
	}

	if _, err := s.rm.Groups(s.db).Find(ctx, groupID); err != nil {
		return err
	}

	acc, err := s.resolver.Resolve(ctx, identity.UserID, folderID)
	if err != nil {
		return err
	}
	if !acc.Write {
		return common.ErrorForbidden
	}

	err = s.rm.Permissions(s.db).Upsert(ctx, &models.FolderGroupPermission{
		FolderID: folderID,
		GroupID:  groupID,
		Read:     read || write,
		Write:    write,
	})
	if err != nil {
		return err
	}

	s.cache.InvalidateAll()
	s.sink.Record(audit.Entry{Actor: identity.UserID, Operation: "folder.set_permission", SubjectType: "folder", SubjectID: folderID})

	return nil
}

// DropPermission removes a group's grant row from a folder. Descendants that
// inherited it lose it with the same invalidation sweep.
func (s *FolderService) DropPermission(ctx context.Context, identity *auth.Identity, folderID, groupID string) error {
	folder, err := s.rm.Folders(s.db).Find(ctx, folderID)
	if err != nil {
		return err
	}
	if folder.Personal {
		return common.ErrorValidation
	}

	acc, err := s.resolver.Resolve(ctx, identity.UserID, folderID)
	if err != nil {
		return err
	}
	if !acc.Write {
		return common.ErrorForbidden
	}

	if err := s.rm.Permissions(s.db).Delete(ctx, folderID, groupID); err != nil {
		return err
	}

	s.cache.InvalidateAll()
	s.sink.Record(audit.Entry{Actor: identity.UserID, Operation: "folder.drop_permission", SubjectType: "folder", SubjectID: folderID})

	return nil
}
