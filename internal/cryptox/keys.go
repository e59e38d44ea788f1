package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/teamvault/teamvault/internal/common"
	"golang.org/x/crypto/argon2"
)

// argon2id parameters.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	keyLen       = 32
)

// sharedKeyInfo salts the shared-key derivation so the encryption key is
// never the raw master key itself.
var sharedKeyInfo = []byte("teamvault/shared-key/v1")

// KeyContext selects which encryption key protects a payload: the shared
// master-key path or a per-user personal path.
//
// The personal key mixes the master key with a secret that is supplied only
// at personal-folder login and never persisted. Nothing stored in the
// database plus the master key alone can reconstruct it, which is what keeps
// personal items opaque to admins.
type KeyContext struct {
	personal bool
	userID   string
	secret   []byte
}

// SharedContext returns the key context for items in shared folders.
func SharedContext() KeyContext {
	return KeyContext{}
}

// PersonalContext returns the key context for items in the personal folder
// of userID. secret is the plaintext personal secret from the current
// request; the caller keeps ownership and should wipe it after use.
func PersonalContext(userID string, secret []byte) KeyContext {
	return KeyContext{personal: true, userID: userID, secret: secret}
}

// Personal reports whether this context uses the per-user key path.
func (kc KeyContext) Personal() bool {
	return kc.personal
}

// Key derives the 32-byte AES key for this context.
//
// Shared: argon2id(masterKey, fixed info string) — recoverable from the
// environment alone, as shared items must outlive any one user.
//
// Personal: argon2id(personalSecret, SHA-256(masterKey ‖ userID)) — requires
// the in-flight secret, so it cannot be re-derived server-side.
func (kc KeyContext) Key(masterKey []byte) []byte {
	if !kc.personal {
		return argon2.IDKey(masterKey, sharedKeyInfo, argonTime, argonMemory, argonThreads, keyLen)
	}

	h := sha256.New()
	h.Write(masterKey)
	h.Write([]byte(kc.userID))
	salt := h.Sum(nil)

	return argon2.IDKey(kc.secret, salt, argonTime, argonMemory, argonThreads, keyLen)
}

// HashSecret hashes a password or personal secret for storage using argon2id
// with a random salt. The encoding is "argon2id$<salt-b64>$<digest-b64>".
func HashSecret(secret []byte) string {
	salt := common.GenerateRandByteArray(16)
	digest := argon2.IDKey(secret, salt, argonTime, argonMemory, argonThreads, keyLen)

	return fmt.Sprintf("argon2id$%s$%s",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest))
}

// VerifySecret checks a candidate secret against a stored HashSecret value
// in constant time. Any parse failure is reported as ErrorUnauthorized so
// callers cannot distinguish a missing hash from a wrong secret.
func VerifySecret(encoded string, candidate []byte) error {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[0] != "argon2id" {
		return common.ErrorUnauthorized
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return common.ErrorUnauthorized
	}
	digest, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return common.ErrorUnauthorized
	}

	got := argon2.IDKey(candidate, salt, argonTime, argonMemory, argonThreads, uint32(len(digest)))
	if subtle.ConstantTimeCompare(digest, got) != 1 {
		return common.ErrorUnauthorized
	}

	return nil
}
