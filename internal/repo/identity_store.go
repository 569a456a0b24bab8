package repo

import (
	"context"
	"database/sql"
	"fmt"

	"linkmark/internal/model"
	appErr "linkmark/internal/pkg/errors"
)

// IdentityStore groups the relational operations the merge and unlink flows
// need. Every multi-row operation runs inside a single transaction with
// explicit ordered statements; the schema's declarative cascades are not
// relied on, so behavior stays the same regardless of cascade configuration.
type IdentityStore struct {
	db       *sql.DB
	bindings *BindingRepo
}

func NewIdentityStore(db *sql.DB, bindings *BindingRepo) *IdentityStore {
	return &IdentityStore{db: db, bindings: bindings}
}

func (s *IdentityStore) FindBinding(ctx context.Context, provider, providerAccountID string) (*model.ProviderBinding, error) {
	return s.bindings.GetByProviderAccount(ctx, provider, providerAccountID)
}

// MergeInto re-points every bookmark, file and provider binding owned by the
// superseded user to the surviving user, deletes the superseded user's
// sessions and finally the superseded user row. The parameter names are the
// merge-direction policy: the first argument always survives.
func (s *IdentityStore) MergeInto(ctx context.Context, survivingUserID, supersededUserID string) error {
	if survivingUserID == "" || supersededUserID == "" {
		return appErr.ErrInvalid
	}
	if survivingUserID == supersededUserID {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE id = $1`, survivingUserID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return appErr.ErrNotFound
	}

	steps := []struct {
		query string
		args  []interface{}
	}{
		{`UPDATE bookmarks SET user_id = $1 WHERE user_id = $2`, []interface{}{survivingUserID, supersededUserID}},
		{`UPDATE files SET user_id = $1 WHERE user_id = $2`, []interface{}{survivingUserID, supersededUserID}},
		{`UPDATE provider_bindings SET user_id = $1 WHERE user_id = $2`, []interface{}{survivingUserID, supersededUserID}},
		{`DELETE FROM sessions WHERE user_id = $1`, []interface{}{supersededUserID}},
		{`DELETE FROM users WHERE id = $1`, []interface{}{supersededUserID}},
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, step.args...); err != nil {
			return fmt.Errorf("merge step failed: %w", err)
		}
	}
	return tx.Commit()
}

// UnlinkBinding removes one provider binding unless it is the user's last
// sign-in method. The user row is locked first so two concurrent unlinks
// cannot both pass the count check and jointly strand the account.
func (s *IdentityStore) UnlinkBinding(ctx context.Context, userID, bindingID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var lockedID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&lockedID)
	if err == sql.ErrNoRows {
		return appErr.ErrNotFound
	}
	if err != nil {
		return err
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM provider_bindings WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return err
	}
	if count <= 1 {
		return appErr.ErrForbidden
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM provider_bindings WHERE id = $1 AND user_id = $2`, bindingID, userID)
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
	return tx.Commit()
}

// DeleteUser removes the user and everything it owns in one transaction,
// with explicit ordered deletes.
func (s *IdentityStore) DeleteUser(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	steps := []string{
		`DELETE FROM bookmarks WHERE user_id = $1`,
		`DELETE FROM files WHERE user_id = $1`,
		`DELETE FROM provider_bindings WHERE user_id = $1`,
		`DELETE FROM sessions WHERE user_id = $1`,
	}
	for _, query := range steps {
		if _, err := tx.ExecContext(ctx, query, userID); err != nil {
			return fmt.Errorf("delete step failed: %w", err)
		}
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
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
	return tx.Commit()
}
