package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"linkmark/internal/mergeticket"
	"linkmark/internal/model"
	appErr "linkmark/internal/pkg/errors"
)

type fakeIdentityStore struct {
	bindings map[string]*model.ProviderBinding // keyed provider|accountID
	merges   [][2]string                       // {surviving, superseded}
	mergeErr error
}

func newFakeIdentityStore() *fakeIdentityStore {
	return &fakeIdentityStore{bindings: map[string]*model.ProviderBinding{}}
}

func (f *fakeIdentityStore) addBinding(userID, provider, accountID string) {
	f.bindings[provider+"|"+accountID] = &model.ProviderBinding{
		ID:                "b-" + accountID,
		UserID:            userID,
		Provider:          provider,
		ProviderAccountID: accountID,
	}
}

func (f *fakeIdentityStore) FindBinding(_ context.Context, provider, accountID string) (*model.ProviderBinding, error) {
	binding, ok := f.bindings[provider+"|"+accountID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return binding, nil
}

func (f *fakeIdentityStore) MergeInto(_ context.Context, surviving, superseded string) error {
	if f.mergeErr != nil {
		return f.mergeErr
	}
	f.merges = append(f.merges, [2]string{surviving, superseded})
	return nil
}

func newTestMergeService(store *fakeIdentityStore) (*MergeService, *mergeticket.Codec) {
	codec := mergeticket.NewCodec([]byte("test-secret"))
	return NewMergeService(store, codec, []string{"google", "github"}), codec
}

func TestStartRejectsUnknownProvider(t *testing.T) {
	svc, _ := newTestMergeService(newFakeIdentityStore())
	_, err := svc.Start("u1", "gitlab")
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = svc.Start("", "github")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestTicketFlowMergesIntoTicketTarget(t *testing.T) {
	// u1 holds google:g1; a github sign-in produced fresh account u2. The
	// ticket was issued for u1, so u1 survives and u2 is absorbed.
	store := newFakeIdentityStore()
	svc, _ := newTestMergeService(store)

	ticket, err := svc.Start("u1", "github")
	require.NoError(t, err)

	status, err := svc.Complete(context.Background(), ticket, "github", "u2")
	require.NoError(t, err)
	require.Equal(t, MergeStatusMerged, status)
	require.Equal(t, [][2]string{{"u1", "u2"}}, store.merges)
}

func TestTicketFlowAlreadyLinkedIsNoOp(t *testing.T) {
	store := newFakeIdentityStore()
	svc, _ := newTestMergeService(store)

	ticket, err := svc.Start("u1", "github")
	require.NoError(t, err)

	status, err := svc.Complete(context.Background(), ticket, "github", "u1")
	require.NoError(t, err)
	require.Equal(t, MergeStatusAlreadyLinked, status)
	require.Empty(t, store.merges)
}

func TestTicketFlowRejectsProviderMismatch(t *testing.T) {
	store := newFakeIdentityStore()
	svc, _ := newTestMergeService(store)

	ticket, err := svc.Start("u1", "github")
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), ticket, "google", "u2")
	require.ErrorIs(t, err, appErr.ErrForbidden)
	require.Empty(t, store.merges)
}

func TestTicketFlowRejectsExpiredTicket(t *testing.T) {
	store := newFakeIdentityStore()
	base := time.Now()
	svc := NewMergeService(store, codecAt(base), []string{"github"})

	ticket, err := svc.Start("u1", "github")
	require.NoError(t, err)

	// Re-verify through a service whose codec clock moved past the window.
	late := NewMergeService(store, codecAt(base.Add(301*time.Second)), []string{"github"})
	_, err = late.Complete(context.Background(), ticket, "github", "u2")
	require.ErrorIs(t, err, mergeticket.ErrTicketInvalid)
	require.Empty(t, store.merges)
}

func TestTicketFlowRejectsGarbageTicket(t *testing.T) {
	store := newFakeIdentityStore()
	svc, _ := newTestMergeService(store)

	_, err := svc.Complete(context.Background(), "not-a-ticket", "github", "u2")
	require.ErrorIs(t, err, mergeticket.ErrTicketInvalid)
	require.Empty(t, store.merges)
}

func TestDirectMergeNotFound(t *testing.T) {
	store := newFakeIdentityStore()
	svc, _ := newTestMergeService(store)

	_, err := svc.Direct(context.Background(), "u1", "github", "h1")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.Empty(t, store.merges)
}

func TestDirectMergeAlreadyLinked(t *testing.T) {
	store := newFakeIdentityStore()
	store.addBinding("u1", "github", "h1")
	svc, _ := newTestMergeService(store)

	status, err := svc.Direct(context.Background(), "u1", "github", "h1")
	require.NoError(t, err)
	require.Equal(t, MergeStatusAlreadyLinked, status)
	require.Empty(t, store.merges)
}

func TestDirectMergeActingUserSurvives(t *testing.T) {
	store := newFakeIdentityStore()
	store.addBinding("u2", "github", "h1")
	svc, _ := newTestMergeService(store)

	status, err := svc.Direct(context.Background(), "u1", "github", "h1")
	require.NoError(t, err)
	require.Equal(t, MergeStatusMerged, status)
	require.Equal(t, [][2]string{{"u1", "u2"}}, store.merges)
}

func TestDirectMergeValidatesInput(t *testing.T) {
	svc, _ := newTestMergeService(newFakeIdentityStore())
	for _, tc := range []struct{ user, provider, account string }{
		{"", "github", "h1"},
		{"u1", "", "h1"},
		{"u1", "github", ""},
		{"u1", "gitlab", "h1"},
	} {
		_, err := svc.Direct(context.Background(), tc.user, tc.provider, tc.account)
		require.ErrorIs(t, err, appErr.ErrInvalid)
	}
}

func codecAt(at time.Time) *mergeticket.Codec {
	codec := mergeticket.NewCodec([]byte("test-secret"))
	codec.SetNowFunc(func() time.Time { return at })
	return codec
}
