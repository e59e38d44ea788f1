package models

type Group struct {
	ID          string
	Description string
	ParentID    *string
}

type UserGroupMembership struct {
	UserID  string
	GroupID string
}
