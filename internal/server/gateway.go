// Package server wires the vault together: configuration, storage,
// permission resolution, the domain services and graceful shutdown.
package server

import (
	"context"
	"database/sql"

	"github.com/teamvault/teamvault/internal/common"
	"github.com/teamvault/teamvault/internal/cryptox"
	"github.com/teamvault/teamvault/internal/server/access"
	"github.com/teamvault/teamvault/internal/server/auth"
	"github.com/teamvault/teamvault/internal/server/repositories/repomanager"
)

// Need names the access level a caller asks the gateway to check.
type Need int

const (
	NeedRead Need = iota
	NeedWrite
)

// Gateway is the single entry point a transport goes through: it turns a
// bearer token into an identity, answers authorization questions and moves
// payloads across the encryption boundary.
type Gateway struct {
	db        *sql.DB
	rm        repomanager.RepositoryManager
	resolver  *access.Resolver
	tokenKey  []byte
	masterKey []byte
}

func NewGateway(db *sql.DB, rm repomanager.RepositoryManager, resolver *access.Resolver,
	tokenKey, masterKey []byte) *Gateway {
	return &Gateway{
		db:        db,
		rm:        rm,
		resolver:  resolver,
		tokenKey:  tokenKey,
		masterKey: masterKey,
	}
}

// Authenticate verifies a bearer token and returns the identity it carries.
func (g *Gateway) Authenticate(token string) (*auth.Identity, error) {
	return auth.Verify(token, g.tokenKey)
}

// Authorize reports whether the identity may act on folderID at the asked
// level. A personal folder additionally demands the unlocked flag on the
// token: even the owner stays out until the second secret has been shown.
func (g *Gateway) Authorize(ctx context.Context, identity *auth.Identity, folderID string, need Need) (bool, error) {
	folder, err := g.rm.Folders(g.db).Find(ctx, folderID)
	if err != nil {
		return false, err
	}

	if folder.Personal && !identity.PersonalUnlocked {
		return false, nil
	}

	acc, err := g.resolver.Resolve(ctx, identity.UserID, folderID)
	if err != nil {
		return false, err
	}

	if need == NeedWrite {
		return acc.Write, nil
	}
	return acc.Read, nil
}

// ProtectPayload encrypts plaintext under the key the context derives from
// the master key.
func (g *Gateway) ProtectPayload(plaintext []byte, kc cryptox.KeyContext) (ciphertext, nonce, tag []byte, err error) {
	key := kc.Key(g.masterKey)
	defer common.WipeByteArray(key)
	return cryptox.Encrypt(plaintext, key)
}

// UnprotectPayload reverses ProtectPayload. Any mismatch between the parts
// and the derived key fails closed with ErrDecryptionFailed.
func (g *Gateway) UnprotectPayload(ciphertext, nonce, tag []byte, kc cryptox.KeyContext) ([]byte, error) {
	key := kc.Key(g.masterKey)
	defer common.WipeByteArray(key)
	return cryptox.Decrypt(ciphertext, nonce, tag, key)
}
