package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"linkmark/internal/model"
	"linkmark/internal/pkg/dbutil"
	appErr "linkmark/internal/pkg/errors"
)

var fileColumns = []string{"id", "user_id", "store_key", "name", "content_type", "size", "sha256", "ctime"}

type FileRepo struct {
	db *sql.DB
}

func NewFileRepo(db *sql.DB) *FileRepo {
	return &FileRepo{db: db}
}

func (r *FileRepo) Create(ctx context.Context, file *model.File) error {
	data := map[string]interface{}{
		"id":           file.ID,
		"user_id":      file.UserID,
		"store_key":    file.StoreKey,
		"name":         file.Name,
		"content_type": file.ContentType,
		"size":         file.Size,
		"sha256":       file.SHA256,
		"ctime":        file.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("files", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *FileRepo) GetByStoreKey(ctx context.Context, storeKey string) (*model.File, error) {
	where := map[string]interface{}{"store_key": storeKey}
	sqlStr, args, err := builder.BuildSelect("files", where, fileColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var file model.File
	if err := scanFile(rows, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *FileRepo) ListByUser(ctx context.Context, userID string) ([]model.File, error) {
	where := map[string]interface{}{"user_id": userID, "_orderby": "ctime desc"}
	sqlStr, args, err := builder.BuildSelect("files", where, fileColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	files := make([]model.File, 0)
	for rows.Next() {
		var file model.File
		if err := scanFile(rows, &file); err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func scanFile(rows *sql.Rows, file *model.File) error {
	return rows.Scan(
		&file.ID,
		&file.UserID,
		&file.StoreKey,
		&file.Name,
		&file.ContentType,
		&file.Size,
		&file.SHA256,
		&file.Ctime,
	)
}
