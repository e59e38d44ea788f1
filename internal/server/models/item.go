package models

import "time"

// Item is an encrypted secret. Title and Metadata stay in plaintext (title
// is the only searchable field); the payload is AES-GCM protected with
// ciphertext, nonce and tag stored separately. Personal mirrors the flag of
// the containing folder.
type Item struct {
	ID            string
	FolderID      string
	Personal      bool
	Title         string
	Payload       []byte
	Nonce         []byte
	AuthTag       []byte
	Metadata      string
	AttachmentKey string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	AccessedAt    *time.Time
}
