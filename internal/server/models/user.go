package models

import "time"

type User struct {
	ID                 string
	Login              string
	DisplayName        string
	AuthMethod         string
	Locale             string
	Email              string
	PasswordHash       string
	PasswordExpiresAt  *time.Time
	PersonalSecretHash string
	Active             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
