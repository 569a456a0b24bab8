package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"linkmark/internal/model"
	"linkmark/internal/pkg/dbutil"
	appErr "linkmark/internal/pkg/errors"
)

var bookmarkColumns = []string{"id", "user_id", "url", "title", "notes", "category", "pinned", "ctime", "mtime"}

type BookmarkRepo struct {
	db *sql.DB
}

func NewBookmarkRepo(db *sql.DB) *BookmarkRepo {
	return &BookmarkRepo{db: db}
}

func (r *BookmarkRepo) Create(ctx context.Context, bookmark *model.Bookmark) error {
	data := map[string]interface{}{
		"id":       bookmark.ID,
		"user_id":  bookmark.UserID,
		"url":      bookmark.URL,
		"title":    bookmark.Title,
		"notes":    bookmark.Notes,
		"category": bookmark.Category,
		"pinned":   bookmark.Pinned,
		"ctime":    bookmark.Ctime,
		"mtime":    bookmark.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("bookmarks", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *BookmarkRepo) GetByID(ctx context.Context, userID, bookmarkID string) (*model.Bookmark, error) {
	where := map[string]interface{}{"id": bookmarkID, "user_id": userID}
	sqlStr, args, err := builder.BuildSelect("bookmarks", where, bookmarkColumns)
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
	var bookmark model.Bookmark
	if err := scanBookmark(rows, &bookmark); err != nil {
		return nil, err
	}
	return &bookmark, nil
}

func (r *BookmarkRepo) ListByUser(ctx context.Context, userID, category string, limit uint) ([]model.Bookmark, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": "pinned desc, mtime desc",
	}
	if category != "" {
		where["category"] = category
	}
	if limit > 0 {
		where["_limit"] = []uint{0, limit}
	}
	sqlStr, args, err := builder.BuildSelect("bookmarks", where, bookmarkColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	bookmarks := make([]model.Bookmark, 0)
	for rows.Next() {
		var bookmark model.Bookmark
		if err := scanBookmark(rows, &bookmark); err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, bookmark)
	}
	return bookmarks, rows.Err()
}

func (r *BookmarkRepo) Update(ctx context.Context, bookmark *model.Bookmark) error {
	where := map[string]interface{}{"id": bookmark.ID, "user_id": bookmark.UserID}
	update := map[string]interface{}{
		"url":      bookmark.URL,
		"title":    bookmark.Title,
		"notes":    bookmark.Notes,
		"category": bookmark.Category,
		"mtime":    bookmark.Mtime,
	}
	return r.exec(ctx, where, update)
}

func (r *BookmarkRepo) UpdatePinned(ctx context.Context, userID, bookmarkID string, pinned int, mtime int64) error {
	where := map[string]interface{}{"id": bookmarkID, "user_id": userID}
	update := map[string]interface{}{"pinned": pinned, "mtime": mtime}
	return r.exec(ctx, where, update)
}

func (r *BookmarkRepo) exec(ctx context.Context, where, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate("bookmarks", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *BookmarkRepo) Delete(ctx context.Context, userID, bookmarkID string) error {
	where := map[string]interface{}{"id": bookmarkID, "user_id": userID}
	sqlStr, args, err := builder.BuildDelete("bookmarks", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func scanBookmark(rows *sql.Rows, bookmark *model.Bookmark) error {
	return rows.Scan(
		&bookmark.ID,
		&bookmark.UserID,
		&bookmark.URL,
		&bookmark.Title,
		&bookmark.Notes,
		&bookmark.Category,
		&bookmark.Pinned,
		&bookmark.Ctime,
		&bookmark.Mtime,
	)
}
