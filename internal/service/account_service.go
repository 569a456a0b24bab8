package service

import (
	"context"

	"linkmark/internal/model"
	appErr "linkmark/internal/pkg/errors"
	"linkmark/internal/repo"
)

type AccountService struct {
	users    *repo.UserRepo
	bindings *repo.BindingRepo
	store    *repo.IdentityStore
}

func NewAccountService(users *repo.UserRepo, bindings *repo.BindingRepo, store *repo.IdentityStore) *AccountService {
	return &AccountService{users: users, bindings: bindings, store: store}
}

func (s *AccountService) Get(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *AccountService) ListBindings(ctx context.Context, userID string) ([]model.ProviderBinding, error) {
	return s.bindings.ListByUser(ctx, userID)
}

// Unlink removes one provider binding. The check that at least one sign-in
// method remains and the deletion happen in the same locked transaction
// inside the identity store.
func (s *AccountService) Unlink(ctx context.Context, userID, bindingID string) error {
	if userID == "" || bindingID == "" {
		return appErr.ErrInvalid
	}
	return s.store.UnlinkBinding(ctx, userID, bindingID)
}

// Delete removes the user and everything it owns.
func (s *AccountService) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return appErr.ErrInvalid
	}
	return s.store.DeleteUser(ctx, userID)
}
