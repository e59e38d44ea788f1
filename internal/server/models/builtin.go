package models

// Fixed ids of rows seeded by the initial migration. The two folder anchors
// root the forest; the admin user and the built-in groups can never be
// removed.
const (
	RootFolderID          = "00000000-0000-0000-0000-00000000000a"
	PersonalRootsFolderID = "00000000-0000-0000-0000-00000000000b"

	EveryoneGroupID = "00000000-0000-0000-0000-000000000001"
	AdminsGroupID   = "00000000-0000-0000-0000-000000000002"

	AdminUserID = "00000000-0000-0000-0000-000000000099"
)
