package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"linkmark/internal/filestore"
	"linkmark/internal/model"
	appErr "linkmark/internal/pkg/errors"
	"linkmark/internal/repo"
)

const maxUploadSize = 32 << 20

type FileService struct {
	files *repo.FileRepo
	store filestore.Store
}

func NewFileService(files *repo.FileRepo, store filestore.Store) *FileService {
	return &FileService{files: files, store: store}
}

// Upload hashes the content, stores the blob under a random key and records
// the row. The hash is recorded, not used as the key: two users uploading the
// same bytes must not share a row or learn of each other's copy.
func (s *FileService) Upload(ctx context.Context, userID, name, contentType string, r filestore.ReadSeekCloser, size int64) (*model.File, error) {
	if size <= 0 || size > maxUploadSize {
		return nil, appErr.ErrInvalid
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErr.ErrInvalid
	}
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return nil, err
	}
	key := newID()
	if err := s.store.Save(ctx, key, r, size); err != nil {
		logutil.GetLogger(ctx).Error("save file to store failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	file := &model.File{
		ID:          newID(),
		UserID:      userID,
		StoreKey:    key,
		Name:        name,
		ContentType: contentType,
		Size:        size,
		SHA256:      hex.EncodeToString(hasher.Sum(nil)),
		Ctime:       time.Now().UnixMilli(),
	}
	if err := s.files.Create(ctx, file); err != nil {
		return nil, err
	}
	return file, nil
}

func (s *FileService) List(ctx context.Context, userID string) ([]model.File, error) {
	return s.files.ListByUser(ctx, userID)
}

// Open serves a stored blob. The store key is random and unguessable, but
// ownership is still checked before touching the backing store.
func (s *FileService) Open(ctx context.Context, userID, storeKey string) (*model.File, io.ReadCloser, error) {
	file, err := s.files.GetByStoreKey(ctx, storeKey)
	if err != nil {
		return nil, nil, err
	}
	if file.UserID != userID {
		return nil, nil, appErr.ErrNotFound
	}
	body, err := s.store.Open(ctx, storeKey)
	if err != nil {
		return nil, nil, err
	}
	return file, body, nil
}

func (s *FileService) PublicURL(file *model.File, baseURL string) string {
	return s.store.URL(file.StoreKey, baseURL)
}
