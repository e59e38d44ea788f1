// Package services implements the domain operations on top of the
// repositories: accounts and groups, the folder tree with its grants, and
// encrypted items.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/teamvault/teamvault/internal/common"
	"github.com/teamvault/teamvault/internal/cryptox"
	"github.com/teamvault/teamvault/internal/dbx"
	"github.com/teamvault/teamvault/internal/logging"
	"github.com/teamvault/teamvault/internal/server/access"
	"github.com/teamvault/teamvault/internal/server/audit"
	"github.com/teamvault/teamvault/internal/server/auth"
	"github.com/teamvault/teamvault/internal/server/config"
	"github.com/teamvault/teamvault/internal/server/models"
	"github.com/teamvault/teamvault/internal/server/repositories/repomanager"
)

type UserService struct {
	db            *sql.DB
	rm            repomanager.RepositoryManager
	cache         *access.Cache
	sink          audit.Sink
	logger        logging.Logger
	tokenKey      []byte
	tokenValidity time.Duration
}

func NewUserService(db *sql.DB, rm repomanager.RepositoryManager, cache *access.Cache,
	sink audit.Sink, logger logging.Logger, cfg *config.Config) *UserService {
	return &UserService{
		db:            db,
		rm:            rm,
		cache:         cache,
		sink:          sink,
		logger:        logger.With("module", "user_service"),
		tokenKey:      []byte(cfg.TokenKey),
		tokenValidity: cfg.TokenValidityDuration,
	}
}

// Register creates a user together with their personal folder and the
// Everyone membership in one transaction: a user either fully exists or not
// at all.
func (s *UserService) Register(ctx context.Context, login, displayName, password string) (*models.User, error) {
	user := &models.User{
		Login:        login,
		DisplayName:  displayName,
		AuthMethod:   "local",
		Locale:       "en",
		PasswordHash: cryptox.HashSecret([]byte(password)),
		Active:       true,
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.rm.Users(tx).Create(ctx, user)
		if err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}
		user = created

		parentID := models.PersonalRootsFolderID
		_, err = s.rm.Folders(tx).Create(ctx, &models.Folder{
			ParentID:    &parentID,
			Description: login,
			Personal:    true,
			OwnerID:     &user.ID,
		})
		if err != nil {
			return fmt.Errorf("error creating personal folder: %w", err)
		}

		if err := s.rm.Groups(tx).AddMember(ctx, user.ID, models.EveryoneGroupID); err != nil {
			return fmt.Errorf("error joining Everyone: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateAll()
	s.sink.Record(audit.Entry{Actor: user.ID, Operation: "user.register", SubjectType: "user", SubjectID: user.ID})

	return user, nil
}

// Login verifies credentials and issues an identity token. The admin flag
// is checked once here and embedded in the token; it stays valid until the
// token expires even if membership changes.
func (s *UserService) Login(ctx context.Context, login, password string) (string, error) {
	user, err := s.rm.Users(s.db).GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", common.ErrorInternal
	}

	if !user.Active {
		return "", common.ErrorUnauthorized
	}
	if user.PasswordExpiresAt != nil && user.PasswordExpiresAt.Before(time.Now()) {
		return "", common.ErrorUnauthorized
	}

	if err := cryptox.VerifySecret(user.PasswordHash, []byte(password)); err != nil {
		return "", common.ErrorUnauthorized
	}

	isAdmin, err := s.rm.Groups(s.db).IsMember(ctx, user.ID, models.AdminsGroupID)
	if err != nil {
		return "", common.ErrorInternal
	}

	token, err := auth.Issue(user.ID, isAdmin, false, s.tokenKey, s.tokenValidity)
	if err != nil {
		return "", common.ErrorInternal
	}

	s.sink.Record(audit.Entry{Actor: user.ID, Operation: "user.login", SubjectType: "user", SubjectID: user.ID})

	return token, nil
}

// PersonalLogin elevates an already authenticated identity: on a correct
// personal secret it issues a fresh token with the personal-folder-unlocked
// flag set. The secret itself is never persisted.
func (s *UserService) PersonalLogin(ctx context.Context, identity *auth.Identity, secret []byte) (string, error) {
	user, err := s.rm.Users(s.db).GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", common.ErrorInternal
	}

	if err := cryptox.VerifySecret(user.PersonalSecretHash, secret); err != nil {
		return "", common.ErrorUnauthorized
	}

	isAdmin, err := s.rm.Groups(s.db).IsMember(ctx, user.ID, models.AdminsGroupID)
	if err != nil {
		return "", common.ErrorInternal
	}

	token, err := auth.Issue(user.ID, isAdmin, true, s.tokenKey, s.tokenValidity)
	if err != nil {
		return "", common.ErrorInternal
	}

	s.sink.Record(audit.Entry{Actor: user.ID, Operation: "user.personal_login", SubjectType: "user", SubjectID: user.ID})

	return token, nil
}

// SetPassword replaces the stored password hash.
func (s *UserService) SetPassword(ctx context.Context, userID, password string, expiresAt *time.Time) error {
	return s.rm.Users(s.db).UpdatePasswordHash(ctx, userID, cryptox.HashSecret([]byte(password)), expiresAt)
}

// SetPersonalSecret stores the verification hash of the personal secret.
// Only the hash is kept; the encryption key derived from the secret cannot
// be reconstructed from it.
func (s *UserService) SetPersonalSecret(ctx context.Context, userID string, secret []byte) error {
	return s.rm.Users(s.db).UpdatePersonalSecretHash(ctx, userID, cryptox.HashSecret(secret))
}

// Delete removes a user and cascades: group memberships, the personal
// folder with everything in it, then the user row — all in one transaction.
// The built-in admin can never be removed.
func (s *UserService) Delete(ctx context.Context, identity *auth.Identity, userID string) error {
	if !identity.IsAdmin {
		return common.ErrorForbidden
	}
	if userID == models.AdminUserID {
		return common.ErrorForbidden
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.rm.Groups(tx).RemoveAllMemberships(ctx, userID); err != nil {
			return err
		}

		personal, err := s.rm.Folders(tx).FindPersonalByOwner(ctx, userID)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		if personal != nil {
			if err := s.rm.Items(tx).DeleteByFolder(ctx, personal.ID); err != nil {
				return err
			}
			if err := s.rm.Folders(tx).Delete(ctx, personal.ID); err != nil {
				return err
			}
		}

		return s.rm.Users(tx).Delete(ctx, userID)
	})
	if err != nil {
		return err
	}

	s.cache.InvalidateAll()
	s.sink.Record(audit.Entry{Actor: identity.UserID, Operation: "user.delete", SubjectType: "user", SubjectID: userID})

	return nil
}

// CreateGroup adds a group. Admin only.
func (s *UserService) CreateGroup(ctx context.Context, identity *auth.Identity, description string) (*models.Group, error) {
	if !identity.IsAdmin {
		return nil, common.ErrorForbidden
	}

	group, err := s.rm.Groups(s.db).Create(ctx, &models.Group{Description: description})
	if err != nil {
		return nil, err
	}

	s.sink.Record(audit.Entry{Actor: identity.UserID, Operation: "group.create", SubjectType: "group", SubjectID: group.ID})

	return group, nil
}

// AddToGroup puts a user into a group. Admin only.
func (s *UserService) AddToGroup(ctx context.Context, identity *auth.Identity, userID, groupID string) error {
	if !identity.IsAdmin {
		return common.ErrorForbidden
	}

	if err := s.rm.Groups(s.db).AddMember(ctx, userID, groupID); err != nil {
		return err
	}

	s.cache.InvalidateAll()
	s.sink.Record(audit.Entry{Actor: identity.UserID, Operation: "group.add_member", SubjectType: "group", SubjectID: groupID})

	return nil
}

// RemoveFromGroup takes a user out of a group. Admin only. The built-in
// admin's Admins membership is not revocable.
func (s *UserService) RemoveFromGroup(ctx context.Context, identity *auth.Identity, userID, groupID string) error {
	if !identity.IsAdmin {
		return common.ErrorForbidden
	}
	if userID == models.AdminUserID && groupID == models.AdminsGroupID {
		return common.ErrorForbidden
	}

	if err := s.rm.Groups(s.db).RemoveMember(ctx, userID, groupID); err != nil {
		return err
	}

	s.cache.InvalidateAll()
	s.sink.Record(audit.Entry{Actor: identity.UserID, Operation: "group.remove_member", SubjectType: "group", SubjectID: groupID})

	return nil
}
