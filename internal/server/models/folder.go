package models

// Folder is a node in the permission/containment tree. ParentID is nil only
// for the two seeded anchors. OwnerID is set iff Personal.
type Folder struct {
	ID          string
	ParentID    *string
	Description string
	Personal    bool
	OwnerID     *string
}

// IsAnchor reports whether the folder is one of the two fixed roots that can
// never be moved or deleted.
func (f *Folder) IsAnchor() bool {
	return f.ID == RootFolderID || f.ID == PersonalRootsFolderID
}
