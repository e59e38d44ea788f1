package models

// FolderGroupPermission is a grant row: group → {read, write} on a folder.
// Write implies read; the resolver enforces that as a post-step regardless
// of what a row says.
type FolderGroupPermission struct {
	FolderID string
	GroupID  string
	Read     bool
	Write    bool
}
