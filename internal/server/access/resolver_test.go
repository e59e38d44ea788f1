package access

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/teamvault/teamvault/internal/common"
	"github.com/teamvault/teamvault/internal/dbx"
	"github.com/teamvault/teamvault/internal/server/models"
	foldersrepo "github.com/teamvault/teamvault/internal/server/repositories/folders"
	groupsrepo "github.com/teamvault/teamvault/internal/server/repositories/groups"
	itemsrepo "github.com/teamvault/teamvault/internal/server/repositories/items"
	permsrepo "github.com/teamvault/teamvault/internal/server/repositories/permissions"
	usersrepo "github.com/teamvault/teamvault/internal/server/repositories/users"
)

// --- in-memory fakes ---

type fakeFolders struct {
	byID map[string]*models.Folder
}

func (f *fakeFolders) Create(ctx context.Context, folder *models.Folder) (*models.Folder, error) {
	f.byID[folder.ID] = folder
	return folder, nil
}

func (f *fakeFolders) Find(ctx context.Context, id string) (*models.Folder, error) {
	folder, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return folder, nil
}

func (f *fakeFolders) FindPersonalByOwner(ctx context.Context, ownerID string) (*models.Folder, error) {
	for _, folder := range f.byID {
		if folder.Personal && folder.OwnerID != nil && *folder.OwnerID == ownerID {
			return folder, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFolders) Ancestors(ctx context.Context, id string) ([]*models.Folder, error) {
	var chain []*models.Folder
	current, err := f.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	for {
		chain = append(chain, current)
		if current.ParentID == nil {
			return chain, nil
		}
		current, err = f.Find(ctx, *current.ParentID)
		if err != nil {
			return nil, err
		}
	}
}

func (f *fakeFolders) HasChildren(ctx context.Context, id string) (bool, error) {
	for _, folder := range f.byID {
		if folder.ParentID != nil && *folder.ParentID == id {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFolders) SetParent(ctx context.Context, id, parentID string) error {
	folder, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	folder.ParentID = &parentID
	return nil
}

func (f *fakeFolders) Delete(ctx context.Context, id string) error {
	delete(f.byID, id)
	return nil
}

type fakePerms struct {
	byFolder map[string][]*models.FolderGroupPermission
}

func (f *fakePerms) FindByFolder(ctx context.Context, folderID string) ([]*models.FolderGroupPermission, error) {
	return f.byFolder[folderID], nil
}

func (f *fakePerms) Upsert(ctx context.Context, perm *models.FolderGroupPermission) error {
	f.byFolder[perm.FolderID] = append(f.byFolder[perm.FolderID], perm)
	return nil
}

func (f *fakePerms) Delete(ctx context.Context, folderID, groupID string) error {
	var kept []*models.FolderGroupPermission
	for _, p := range f.byFolder[folderID] {
		if p.GroupID != groupID {
			kept = append(kept, p)
		}
	}
	f.byFolder[folderID] = kept
	return nil
}

type fakeGroups struct {
	byUser map[string][]string
}

func (f *fakeGroups) Create(ctx context.Context, g *models.Group) (*models.Group, error) { return g, nil }
func (f *fakeGroups) Find(ctx context.Context, id string) (*models.Group, error) {
	return nil, common.ErrorNotFound
}
func (f *fakeGroups) GroupsOf(ctx context.Context, userID string) ([]string, error) {
	return f.byUser[userID], nil
}
func (f *fakeGroups) IsMember(ctx context.Context, userID, groupID string) (bool, error) {
	for _, id := range f.byUser[userID] {
		if id == groupID {
			return true, nil
		}
	}
	return false, nil
}
func (f *fakeGroups) AddMember(ctx context.Context, userID, groupID string) error {
	f.byUser[userID] = append(f.byUser[userID], groupID)
	return nil
}
func (f *fakeGroups) RemoveMember(ctx context.Context, userID, groupID string) error {
	var kept []string
	for _, id := range f.byUser[userID] {
		if id != groupID {
			kept = append(kept, id)
		}
	}
	f.byUser[userID] = kept
	return nil
}
func (f *fakeGroups) RemoveAllMemberships(ctx context.Context, userID string) error {
	delete(f.byUser, userID)
	return nil
}

type fakeRepoManager struct {
	folders *fakeFolders
	perms   *fakePerms
	groups  *fakeGroups
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error         { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository               { return nil }
func (m *fakeRepoManager) Groups(db dbx.DBTX) groupsrepo.Repository             { return m.groups }
func (m *fakeRepoManager) Folders(db dbx.DBTX) foldersrepo.Repository           { return m.folders }
func (m *fakeRepoManager) Permissions(db dbx.DBTX) permsrepo.Repository         { return m.perms }
func (m *fakeRepoManager) Items(db dbx.DBTX) itemsrepo.Repository               { return nil }

func strptr(s string) *string { return &s }

// newVaultFixture builds the tree
//
//	Root ── Datacenters ── GCP ── VPNs
//	PersonalRoots ── bobPersonal (owner: bob)
//
// with the Admins-on-Root seed grant and a GCPAdmins rw grant on GCP.
func newVaultFixture() (*fakeRepoManager, *Resolver, *Cache) {
	folders := &fakeFolders{byID: map[string]*models.Folder{
		models.RootFolderID:          {ID: models.RootFolderID, Description: "Root"},
		models.PersonalRootsFolderID: {ID: models.PersonalRootsFolderID, Description: "Personal folders"},
		"datacenters":                {ID: "datacenters", ParentID: strptr(models.RootFolderID), Description: "Datacenters"},
		"gcp":                        {ID: "gcp", ParentID: strptr("datacenters"), Description: "GCP"},
		"vpns":                       {ID: "vpns", ParentID: strptr("gcp"), Description: "VPNs"},
		"bob-personal":               {ID: "bob-personal", ParentID: strptr(models.PersonalRootsFolderID), Personal: true, OwnerID: strptr("bob")},
	}}

	perms := &fakePerms{byFolder: map[string][]*models.FolderGroupPermission{
		models.RootFolderID: {{FolderID: models.RootFolderID, GroupID: models.AdminsGroupID, Read: true, Write: true}},
		"gcp":               {{FolderID: "gcp", GroupID: "gcpadmins", Read: true, Write: true}},
	}}

	groups := &fakeGroups{byUser: map[string][]string{
		"alice": {models.EveryoneGroupID, "gcpadmins"},
		"bob":   {models.EveryoneGroupID},
		"root":  {models.EveryoneGroupID, models.AdminsGroupID},
	}}

	rm := &fakeRepoManager{folders: folders, perms: perms, groups: groups}
	cache := NewCache()
	return rm, NewResolver(nil, rm, cache), cache
}

// --- tests ---

func TestResolve_InheritanceFromAncestor(t *testing.T) {
	_, resolver, _ := newVaultFixture()
	ctx := context.Background()

	// alice has a grant on GCP only; VPNs has no rows of its own.
	acc, err := resolver.Resolve(ctx, "alice", "vpns")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !acc.Read || !acc.Write {
		t.Fatalf("expected {true,true} via inheritance, got %+v", acc)
	}
}

func TestResolve_NoGrantMeansNoAccess(t *testing.T) {
	_, resolver, _ := newVaultFixture()

	acc, err := resolver.Resolve(context.Background(), "bob", "vpns")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if acc.Read || acc.Write {
		t.Fatalf("expected no access, got %+v", acc)
	}
}

func TestResolve_AdminEverywhereOnShared(t *testing.T) {
	_, resolver, _ := newVaultFixture()
	ctx := context.Background()

	for _, folderID := range []string{models.RootFolderID, "datacenters", "gcp", "vpns"} {
		acc, err := resolver.Resolve(ctx, "root", folderID)
		if err != nil {
			t.Fatalf("Resolve(%s) error: %v", folderID, err)
		}
		if !acc.Read || !acc.Write {
			t.Fatalf("expected admin {true,true} on %s, got %+v", folderID, acc)
		}
	}
}

func TestResolve_PersonalFolderOwnerOnly(t *testing.T) {
	_, resolver, _ := newVaultFixture()
	ctx := context.Background()

	acc, err := resolver.Resolve(ctx, "bob", "bob-personal")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !acc.Read || !acc.Write {
		t.Fatalf("expected owner {true,true}, got %+v", acc)
	}

	// Nobody else, admin included.
	for _, userID := range []string{"alice", "root"} {
		acc, err := resolver.Resolve(ctx, userID, "bob-personal")
		if err != nil {
			t.Fatalf("Resolve(%s) error: %v", userID, err)
		}
		if acc.Read || acc.Write {
			t.Fatalf("expected %s to have no access to a foreign personal folder, got %+v", userID, acc)
		}
	}
}

func TestResolve_WriteImpliesRead(t *testing.T) {
	rm, resolver, _ := newVaultFixture()

	// A write-only row still yields read.
	rm.perms.byFolder["datacenters"] = []*models.FolderGroupPermission{
		{FolderID: "datacenters", GroupID: models.EveryoneGroupID, Read: false, Write: true},
	}

	acc, err := resolver.Resolve(context.Background(), "bob", "datacenters")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !acc.Write {
		t.Fatalf("expected write, got %+v", acc)
	}
	if !acc.Read {
		t.Fatalf("write must imply read, got %+v", acc)
	}
}

func TestResolve_DescendantCannotRevoke(t *testing.T) {
	rm, resolver, _ := newVaultFixture()

	// An all-false row on VPNs must not cancel alice's grant on GCP.
	rm.perms.byFolder["vpns"] = []*models.FolderGroupPermission{
		{FolderID: "vpns", GroupID: "gcpadmins", Read: false, Write: false},
	}

	acc, err := resolver.Resolve(context.Background(), "alice", "vpns")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !acc.Read || !acc.Write {
		t.Fatalf("expected ancestor grant to survive, got %+v", acc)
	}
}

func TestResolve_UnknownFolder(t *testing.T) {
	_, resolver, _ := newVaultFixture()

	_, err := resolver.Resolve(context.Background(), "alice", "no-such-folder")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestResolve_UnknownUserHasNoGrants(t *testing.T) {
	_, resolver, _ := newVaultFixture()

	acc, err := resolver.Resolve(context.Background(), "ghost", "gcp")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if acc.Read || acc.Write {
		t.Fatalf("expected no access for unknown user, got %+v", acc)
	}
}

func TestResolve_CacheReadThroughAndInvalidation(t *testing.T) {
	rm, resolver, cache := newVaultFixture()
	ctx := context.Background()

	acc, err := resolver.Resolve(ctx, "alice", "vpns")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !acc.Write {
		t.Fatalf("expected write, got %+v", acc)
	}
	if cache.Size() == 0 {
		t.Fatalf("expected resolver to populate the cache")
	}

	// Revoke the grant behind the cache's back: the stale value is still
	// served until invalidation, which is the documented narrow window.
	rm.perms.byFolder["gcp"] = nil

	acc, err = resolver.Resolve(ctx, "alice", "vpns")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !acc.Write {
		t.Fatalf("expected cached value before invalidation, got %+v", acc)
	}

	cache.InvalidateAll()

	acc, err = resolver.Resolve(ctx, "alice", "vpns")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if acc.Read || acc.Write {
		t.Fatalf("expected fresh computation after invalidation, got %+v", acc)
	}
}
