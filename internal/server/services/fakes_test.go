package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/teamvault/teamvault/internal/common"
	"github.com/teamvault/teamvault/internal/dbx"
	"github.com/teamvault/teamvault/internal/logging"
	"github.com/teamvault/teamvault/internal/server/models"
	foldersrepo "github.com/teamvault/teamvault/internal/server/repositories/folders"
	groupsrepo "github.com/teamvault/teamvault/internal/server/repositories/groups"
	itemsrepo "github.com/teamvault/teamvault/internal/server/repositories/items"
	permsrepo "github.com/teamvault/teamvault/internal/server/repositories/permissions"
	usersrepo "github.com/teamvault/teamvault/internal/server/repositories/users"
)

// In-memory repositories backing the service tests. They implement the same
// interfaces the Postgres repositories do, so the services cannot tell the
// difference.

type memUsers struct {
	byID map[string]*models.User
	seq  int
}

func (m *memUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	for _, u := range m.byID {
		if u.Login == user.Login {
			return nil, common.ErrorAlreadyExists
		}
	}
	m.seq++
	user.ID = fmt.Sprintf("user-%d", m.seq)
	m.byID[user.ID] = user
	return user, nil
}

func (m *memUsers) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	for _, u := range m.byID {
		if u.Login == login {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (m *memUsers) UpdatePasswordHash(ctx context.Context, id string, hash string, expiresAt *time.Time) error {
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	u.PasswordExpiresAt = expiresAt
	return nil
}

func (m *memUsers) UpdatePersonalSecretHash(ctx context.Context, id string, hash string) error {
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PersonalSecretHash = hash
	return nil
}

func (m *memUsers) Delete(ctx context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(m.byID, id)
	return nil
}

type memGroups struct {
	byID   map[string]*models.Group
	byUser map[string][]string
	seq    int
}

func (m *memGroups) Create(ctx context.Context, group *models.Group) (*models.Group, error) {
	m.seq++
	group.ID = fmt.Sprintf("group-%d", m.seq)
	m.byID[group.ID] = group
	return group, nil
}

func (m *memGroups) Find(ctx context.Context, id string) (*models.Group, error) {
	g, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return g, nil
}

func (m *memGroups) GroupsOf(ctx context.Context, userID string) ([]string, error) {
	return m.byUser[userID], nil
}

func (m *memGroups) IsMember(ctx context.Context, userID, groupID string) (bool, error) {
	for _, id := range m.byUser[userID] {
		if id == groupID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memGroups) AddMember(ctx context.Context, userID, groupID string) error {
	m.byUser[userID] = append(m.byUser[userID], groupID)
	return nil
}

func (m *memGroups) RemoveMember(ctx context.Context, userID, groupID string) error {
	var kept []string
	for _, id := range m.byUser[userID] {
		if id != groupID {
			kept = append(kept, id)
		}
	}
	m.byUser[userID] = kept
	return nil
}

func (m *memGroups) RemoveAllMemberships(ctx context.Context, userID string) error {
	delete(m.byUser, userID)
	return nil
}

type memFolders struct {
	byID map[string]*models.Folder
	seq  int
}

func (m *memFolders) Create(ctx context.Context, folder *models.Folder) (*models.Folder, error) {
	m.seq++
	folder.ID = fmt.Sprintf("folder-%d", m.seq)
	m.byID[folder.ID] = folder
	return folder, nil
}

func (m *memFolders) Find(ctx context.Context, id string) (*models.Folder, error) {
	f, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return f, nil
}

func (m *memFolders) FindPersonalByOwner(ctx context.Context, ownerID string) (*models.Folder, error) {
	for _, f := range m.byID {
		if f.Personal && f.OwnerID != nil && *f.OwnerID == ownerID {
			return f, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memFolders) Ancestors(ctx context.Context, id string) ([]*models.Folder, error) {
	var chain []*models.Folder
	current, err := m.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	for {
		chain = append(chain, current)
		if current.ParentID == nil {
			return chain, nil
		}
		current, err = m.Find(ctx, *current.ParentID)
		if err != nil {
			return nil, err
		}
	}
}

func (m *memFolders) HasChildren(ctx context.Context, id string) (bool, error) {
	for _, f := range m.byID {
		if f.ParentID != nil && *f.ParentID == id {
			return true, nil
		}
	}
	return false, nil
}

func (m *memFolders) SetParent(ctx context.Context, id, parentID string) error {
	f, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	f.ParentID = &parentID
	return nil
}

func (m *memFolders) Delete(ctx context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(m.byID, id)
	return nil
}

type memPerms struct {
	byFolder map[string][]*models.FolderGroupPermission
}

func (m *memPerms) FindByFolder(ctx context.Context, folderID string) ([]*models.FolderGroupPermission, error) {
	return m.byFolder[folderID], nil
}

func (m *memPerms) Upsert(ctx context.Context, perm *models.FolderGroupPermission) error {
	for _, p := range m.byFolder[perm.FolderID] {
		if p.GroupID == perm.GroupID {
			p.Read = perm.Read
			p.Write = perm.Write
			return nil
		}
	}
	m.byFolder[perm.FolderID] = append(m.byFolder[perm.FolderID], perm)
	return nil
}

func (m *memPerms) Delete(ctx context.Context, folderID, groupID string) error {
	var kept []*models.FolderGroupPermission
	for _, p := range m.byFolder[folderID] {
		if p.GroupID != groupID {
			kept = append(kept, p)
		}
	}
	m.byFolder[folderID] = kept
	return nil
}

type memItems struct {
	byID map[string]*models.Item
	seq  int
}

func (m *memItems) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	m.seq++
	item.ID = fmt.Sprintf("item-%d", m.seq)
	m.byID[item.ID] = item
	return item, nil
}

func (m *memItems) Find(ctx context.Context, id string) (*models.Item, error) {
	item, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	clone := *item
	return &clone, nil
}

func (m *memItems) ListByFolder(ctx context.Context, folderID string) ([]*models.Item, error) {
	var result []*models.Item
	for _, item := range m.byID {
		if item.FolderID == folderID {
			clone := *item
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (m *memItems) SearchByTitle(ctx context.Context, q string) ([]*models.Item, error) {
	var result []*models.Item
	for _, item := range m.byID {
		if strings.Contains(strings.ToLower(item.Title), strings.ToLower(q)) {
			clone := *item
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (m *memItems) Touch(ctx context.Context, id string) error {
	item, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	now := time.Now()
	item.AccessedAt = &now
	return nil
}

func (m *memItems) SetAttachmentKey(ctx context.Context, id, key string) error {
	item, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	item.AttachmentKey = key
	return nil
}

func (m *memItems) Delete(ctx context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memItems) DeleteByFolder(ctx context.Context, folderID string) error {
	for id, item := range m.byID {
		if item.FolderID == folderID {
			delete(m.byID, id)
		}
	}
	return nil
}

type memRepoManager struct {
	users   *memUsers
	groups  *memGroups
	folders *memFolders
	perms   *memPerms
	items   *memItems
}

func newMemRepoManager() *memRepoManager {
	return &memRepoManager{
		users:   &memUsers{byID: map[string]*models.User{}},
		groups:  &memGroups{byID: map[string]*models.Group{}, byUser: map[string][]string{}},
		folders: &memFolders{byID: map[string]*models.Folder{}},
		perms:   &memPerms{byFolder: map[string][]*models.FolderGroupPermission{}},
		items:   &memItems{byID: map[string]*models.Item{}},
	}
}

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *memRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.users }
func (m *memRepoManager) Groups(db dbx.DBTX) groupsrepo.Repository     { return m.groups }
func (m *memRepoManager) Folders(db dbx.DBTX) foldersrepo.Repository   { return m.folders }
func (m *memRepoManager) Permissions(db dbx.DBTX) permsrepo.Repository { return m.perms }
func (m *memRepoManager) Items(db dbx.DBTX) itemsrepo.Repository       { return m.items }

func strptr(s string) *string { return &s }

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}
func (l nopLogger) With(args ...any) logging.Logger                  { return l }

// seedTree loads the anchors, the built-in groups and a small shared
// hierarchy: Root ── Infra, with the Admins-on-Root seed grant.
func seedTree(rm *memRepoManager) {
	rm.folders.byID[models.RootFolderID] = &models.Folder{ID: models.RootFolderID, Description: "Root"}
	rm.folders.byID[models.PersonalRootsFolderID] = &models.Folder{ID: models.PersonalRootsFolderID, Description: "Personal folders"}
	rm.folders.byID["infra"] = &models.Folder{ID: "infra", ParentID: strptr(models.RootFolderID), Description: "Infra"}

	rm.groups.byID[models.EveryoneGroupID] = &models.Group{ID: models.EveryoneGroupID, Description: "Everyone"}
	rm.groups.byID[models.AdminsGroupID] = &models.Group{ID: models.AdminsGroupID, Description: "Admins"}

	rm.perms.byFolder[models.RootFolderID] = []*models.FolderGroupPermission{
		{FolderID: models.RootFolderID, GroupID: models.AdminsGroupID, Read: true, Write: true},
	}
}
