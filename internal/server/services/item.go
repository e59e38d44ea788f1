package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/teamvault/teamvault/internal/common"
	"github.com/teamvault/teamvault/internal/cryptox"
	"github.com/teamvault/teamvault/internal/logging"
	"github.com/teamvault/teamvault/internal/server/access"
	"github.com/teamvault/teamvault/internal/server/audit"
	"github.com/teamvault/teamvault/internal/server/auth"
	sc "github.com/teamvault/teamvault/internal/server/config"
	"github.com/teamvault/teamvault/internal/server/models"
	"github.com/teamvault/teamvault/internal/server/repositories/repomanager"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

type ItemService struct {
	db        *sql.DB
	rm        repomanager.RepositoryManager
	resolver  *access.Resolver
	sink      audit.Sink
	logger    logging.Logger
	config    *sc.Config
	masterKey []byte
}

func NewItemService(db *sql.DB, rm repomanager.RepositoryManager, resolver *access.Resolver,
	sink audit.Sink, logger logging.Logger, config *sc.Config) *ItemService {
	return &ItemService{
		db:        db,
		rm:        rm,
		resolver:  resolver,
		sink:      sink,
		logger:    logger.With("module", "item_service"),
		config:    config,
		masterKey: []byte(config.MasterKey),
	}
}

// keyFor derives the encryption key for an item in the given folder. Shared
// folders use the team key; a personal folder uses the owner's key, which
// exists only while the owner's secret is in flight.
func (s *ItemService) keyFor(folder *models.Folder, identity *auth.Identity, personalSecret []byte) ([]byte, error) {
	if !folder.Personal {
		return cryptox.SharedContext().Key(s.masterKey), nil
	}

	if !identity.PersonalUnlocked {
		return nil, common.ErrorForbidden
	}
	if len(personalSecret) == 0 {
		return nil, common.ErrorValidation
	}

	return cryptox.PersonalContext(identity.UserID, personalSecret).Key(s.masterKey), nil
}

// Add encrypts plaintext and stores it as an item in folderID. The caller
// needs write on the folder; a personal folder additionally needs the
// unlocked flag and the owner's secret for key derivation.
func (s *ItemService) Add(ctx context.Context, identity *auth.Identity, folderID, title string,
	plaintext []byte, metadata string, personalSecret []byte) (*models.Item, error) {

	folder, err := s.rm.Folders(s.db).Find(ctx, folderID)
	if err != nil {
		return nil, err
	}

	acc, err := s.resolver.Resolve(ctx, identity.UserID, folderID)
	if err != nil {
		return nil, err
	}
	if !acc.Write {
		return nil, common.ErrorForbidden
	}

	key, err := s.keyFor(folder, identity, personalSecret)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	ciphertext, nonce, tag, err := cryptox.Encrypt(plaintext, key)
	if err != nil {
		return nil, err
	}

	item, err := s.rm.Items(s.db).Create(ctx, &models.Item{
		FolderID: folderID,
		Personal: folder.Personal,
		Title:    title,
		Payload:  ciphertext,
		Nonce:    nonce,
		AuthTag:  tag,
		Metadata: metadata,
	})
	if err != nil {
		return nil, err
	}

	s.sink.Record(audit.Entry{Actor: identity.UserID, Operation: "item.create", SubjectType: "item", SubjectID: item.ID})

	return item, nil
}

// Get decrypts an item for a caller with read access to its folder and
// stamps the access time. A wrong personal secret surfaces as a decryption
// failure, not as a permission error.
func (s *ItemService) Get(ctx context.Context, identity *auth.Identity, itemID string, personalSecret []byte) ([]byte, *models.Item, error) {
	itemRepo := s.rm.Items(s.db)

	item, err := itemRepo.Find(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}

	folder, err := s.rm.Folders(s.db).Find(ctx, item.FolderID)
	if err != nil {
		return nil, nil, err
	}

	acc, err := s.resolver.Resolve(ctx, identity.UserID, item.FolderID)
	if err != nil {
		return nil, nil, err
	}
	if !acc.Read {
		return nil, nil, common.ErrorForbidden
	}

	key, err := s.keyFor(folder, identity, personalSecret)
	if err != nil {
		return nil, nil, err
	}
	defer common.WipeByteArray(key)

	plaintext, err := cryptox.Decrypt(item.Payload, item.Nonce, item.AuthTag, key)
	if err != nil {
		return nil, nil, err
	}

	if err := itemRepo.Touch(ctx, itemID); err != nil {
		s.logger.Warn(ctx, "could not stamp access time", "item", itemID, "error", err.Error())
	}

	s.sink.Record(audit.Entry{Actor: identity.UserID, Operation: "item.read", SubjectType: "item", SubjectID: itemID})

	return plaintext, item, nil
}

// List returns the items of a folder without payloads. Titles and metadata
// are plaintext; the ciphertext stays on the server until a Get.
func (s *ItemService) List(ctx context.Context, identity *auth.Identity, folderID string) ([]*models.Item, error) {
	acc, err := s.resolver.Resolve(ctx, identity.UserID, folderID)
	if err != nil {
		return nil, err
	}
	if !acc.Read {
		return nil, common.ErrorForbidden
	}

	items, err := s.rm.Items(s.db).ListByFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		stripPayload(item)
	}

	return items, nil
}

// Search matches item titles and keeps only hits the caller may read. The
// permission filter runs per folder, so an unreadable folder never leaks
// even the titles it holds.
func (s *ItemService) Search(ctx context.Context, identity *auth.Identity, q string) ([]*models.Item, error) {
	hits, err := s.rm.Items(s.db).SearchByTitle(ctx, q)
	if err != nil {
		return nil, err
	}

	var result []*models.Item
	for _, item := range hits {
		acc, err := s.resolver.Resolve(ctx, identity.UserID, item.FolderID)
		if err != nil {
			return nil, err
		}
		if !acc.Read {
			continue
		}
		stripPayload(item)
		result = append(result, item)
	}

	return result, nil
}

// Delete removes an item. Write on the containing folder is required; a
// personal item additionally requires the unlocked flag.
func (s *ItemService) Delete(ctx context.Context, identity *auth.Identity, itemID string) error {
	item, err := s.rm.Items(s.db).Find(ctx, itemID)
	if err != nil {
		return err
	}

	if item.Personal && !identity.PersonalUnlocked {
		return common.ErrorForbidden
	}

	acc, err := s.resolver.Resolve(ctx, identity.UserID, item.FolderID)
	if err != nil {
		return err
	}
	if !acc.Write {
		return common.ErrorForbidden
	}

	if err := s.rm.Items(s.db).Delete(ctx, itemID); err != nil {
		return err
	}

	s.sink.Record(audit.Entry{Actor: identity.UserID, Operation: "item.delete", SubjectType: "item", SubjectID: itemID})

	return nil
}

func randomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("attachments/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *ItemService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// AttachmentUploadURL hands out a presigned PUT for an item's attachment and
// records the storage key on the item. The client encrypts before upload;
// the store only ever sees ciphertext.
func (s *ItemService) AttachmentUploadURL(ctx context.Context, identity *auth.Identity, itemID string) (string, string, error) {
	item, err := s.rm.Items(s.db).Find(ctx, itemID)
	if err != nil {
		return "", "", err
	}

	if item.Personal && !identity.PersonalUnlocked {
		return "", "", common.ErrorForbidden
	}

	acc, err := s.resolver.Resolve(ctx, identity.UserID, item.FolderID)
	if err != nil {
		return "", "", err
	}
	if !acc.Write {
		return "", "", common.ErrorForbidden
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := randomStorageKey()

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", "", err
	}

	if err := s.rm.Items(s.db).SetAttachmentKey(ctx, itemID, key); err != nil {
		return "", "", err
	}

	s.sink.Record(audit.Entry{Actor: identity.UserID, Operation: "item.attachment_upload", SubjectType: "item", SubjectID: itemID})

	return key, req.URL, nil
}

// AttachmentDownloadURL hands out a presigned GET for an item's attachment.
func (s *ItemService) AttachmentDownloadURL(ctx context.Context, identity *auth.Identity, itemID string) (string, error) {
	item, err := s.rm.Items(s.db).Find(ctx, itemID)
	if err != nil {
		return "", err
	}

	if item.Personal && !identity.PersonalUnlocked {
		return "", common.ErrorForbidden
	}

	acc, err := s.resolver.Resolve(ctx, identity.UserID, item.FolderID)
	if err != nil {
		return "", err
	}
	if !acc.Read {
		return "", common.ErrorForbidden
	}

	if item.AttachmentKey == "" {
		return "", common.ErrorNotFound
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &item.AttachmentKey,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	s.sink.Record(audit.Entry{Actor: identity.UserID, Operation: "item.attachment_download", SubjectType: "item", SubjectID: itemID})

	return req.URL, nil
}

func stripPayload(item *models.Item) {
	item.Payload = nil
	item.Nonce = nil
	item.AuthTag = nil
}
