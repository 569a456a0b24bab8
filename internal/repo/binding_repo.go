package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"linkmark/internal/model"
	"linkmark/internal/pkg/dbutil"
	appErr "linkmark/internal/pkg/errors"
)

var bindingColumns = []string{"id", "user_id", "provider", "provider_account_id", "email", "access_token", "refresh_token", "ctime", "mtime"}

type BindingRepo struct {
	db *sql.DB
}

func NewBindingRepo(db *sql.DB) *BindingRepo {
	return &BindingRepo{db: db}
}

func (r *BindingRepo) Create(ctx context.Context, binding *model.ProviderBinding) error {
	data := map[string]interface{}{
		"id":                  binding.ID,
		"user_id":             binding.UserID,
		"provider":            binding.Provider,
		"provider_account_id": binding.ProviderAccountID,
		"email":               binding.Email,
		"access_token":        binding.AccessToken,
		"refresh_token":       binding.RefreshToken,
		"ctime":               binding.Ctime,
		"mtime":               binding.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("provider_bindings", []map[string]interface{}{data})
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

func (r *BindingRepo) GetByProviderAccount(ctx context.Context, provider, providerAccountID string) (*model.ProviderBinding, error) {
	return r.getOne(ctx, map[string]interface{}{
		"provider":            provider,
		"provider_account_id": providerAccountID,
	})
}

func (r *BindingRepo) GetByID(ctx context.Context, bindingID string) (*model.ProviderBinding, error) {
	return r.getOne(ctx, map[string]interface{}{"id": bindingID})
}

func (r *BindingRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.ProviderBinding, error) {
	sqlStr, args, err := builder.BuildSelect("provider_bindings", where, bindingColumns)
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
	var binding model.ProviderBinding
	if err := scanBinding(rows, &binding); err != nil {
		return nil, err
	}
	return &binding, nil
}

func (r *BindingRepo) ListByUser(ctx context.Context, userID string) ([]model.ProviderBinding, error) {
	where := map[string]interface{}{"user_id": userID, "_orderby": "ctime asc"}
	sqlStr, args, err := builder.BuildSelect("provider_bindings", where, bindingColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	bindings := make([]model.ProviderBinding, 0)
	for rows.Next() {
		var binding model.ProviderBinding
		if err := scanBinding(rows, &binding); err != nil {
			return nil, err
		}
		bindings = append(bindings, binding)
	}
	return bindings, rows.Err()
}

func (r *BindingRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	sqlStr, args, err := builder.BuildSelect("provider_bindings", map[string]interface{}{"user_id": userID}, []string{"COUNT(1)"})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return 0, nil
	}
	var count int
	if err := rows.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanBinding(rows *sql.Rows, binding *model.ProviderBinding) error {
	return rows.Scan(
		&binding.ID,
		&binding.UserID,
		&binding.Provider,
		&binding.ProviderAccountID,
		&binding.Email,
		&binding.AccessToken,
		&binding.RefreshToken,
		&binding.Ctime,
		&binding.Mtime,
	)
}
