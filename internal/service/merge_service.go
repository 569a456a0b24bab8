package service

import (
	"context"
	"strings"

	"linkmark/internal/mergeticket"
	"linkmark/internal/model"
	appErr "linkmark/internal/pkg/errors"
)

// MergeStatus is the terminal state of a merge attempt that did not fail.
type MergeStatus string

const (
	MergeStatusMerged        MergeStatus = "merged"
	MergeStatusAlreadyLinked MergeStatus = "already_linked"
)

type identityStore interface {
	FindBinding(ctx context.Context, provider, providerAccountID string) (*model.ProviderBinding, error)
	MergeInto(ctx context.Context, survivingUserID, supersededUserID string) error
}

// MergeService drives identity consolidation. Two entry protocols exist: the
// ticket flow (start -> external re-auth -> callback) and the direct flow
// (explicit provider + account id from settings). Both end in the same
// MergeInto with the same direction rule: the identity named when the merge
// was authorized survives, never the one most recently authenticated. That
// keeps an attacker who controls a second OAuth account from displacing an
// established identity.
type MergeService struct {
	store     identityStore
	codec     *mergeticket.Codec
	providers map[string]struct{}
}

func NewMergeService(store identityStore, codec *mergeticket.Codec, allowedProviders []string) *MergeService {
	allowed := make(map[string]struct{}, len(allowedProviders))
	for _, name := range allowedProviders {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			allowed[name] = struct{}{}
		}
	}
	return &MergeService{store: store, codec: codec, providers: allowed}
}

func (s *MergeService) ProviderAllowed(provider string) bool {
	_, ok := s.providers[strings.ToLower(provider)]
	return ok
}

// Start issues the signed ticket binding the current user and provider. The
// caller puts it in the merge cookie and redirects to the provider; nothing
// about the pending merge is kept server-side because the flow spans an
// external redirect and may land on a different worker.
func (s *MergeService) Start(currentUserID, provider string) (string, error) {
	provider = strings.ToLower(provider)
	if currentUserID == "" || !s.ProviderAllowed(provider) {
		return "", appErr.ErrInvalid
	}
	return s.codec.Issue(currentUserID, provider)
}

// Complete finishes the ticket flow after the callback's OAuth exchange
// resolved a session for authedUserID. The ticket's target is the surviving
// identity; the just-authenticated one (possibly created moments ago by the
// OAuth step) is absorbed.
func (s *MergeService) Complete(ctx context.Context, ticket, callbackProvider, authedUserID string) (MergeStatus, error) {
	payload, err := s.codec.Verify(ticket)
	if err != nil {
		return "", mergeticket.ErrTicketInvalid
	}
	if !strings.EqualFold(payload.Provider, callbackProvider) {
		// The ticket is genuine but authorizes a different provider.
		return "", appErr.ErrForbidden
	}
	if authedUserID == "" {
		return "", mergeticket.ErrTicketInvalid
	}
	if authedUserID == payload.TargetUserID {
		return MergeStatusAlreadyLinked, nil
	}
	if err := s.store.MergeInto(ctx, payload.TargetUserID, authedUserID); err != nil {
		return "", err
	}
	return MergeStatusMerged, nil
}

// Direct claims an external account by (provider, provider account id)
// without a fresh OAuth round-trip. The acting user survives.
func (s *MergeService) Direct(ctx context.Context, currentUserID, provider, providerAccountID string) (MergeStatus, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	providerAccountID = strings.TrimSpace(providerAccountID)
	if currentUserID == "" || provider == "" || providerAccountID == "" {
		return "", appErr.ErrInvalid
	}
	if !s.ProviderAllowed(provider) {
		return "", appErr.ErrInvalid
	}
	binding, err := s.store.FindBinding(ctx, provider, providerAccountID)
	if err != nil {
		return "", err
	}
	if binding.UserID == currentUserID {
		return MergeStatusAlreadyLinked, nil
	}
	if err := s.store.MergeInto(ctx, currentUserID, binding.UserID); err != nil {
		return "", err
	}
	return MergeStatusMerged, nil
}
