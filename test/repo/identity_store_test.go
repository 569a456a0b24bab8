package repo_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"linkmark/internal/model"
	appErr "linkmark/internal/pkg/errors"
	"linkmark/internal/pkg/timeutil"
	"linkmark/internal/repo"
	"linkmark/test/testutil"
)

var idSeq int

func testID(prefix string) string {
	idSeq++
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), idSeq)
}

type fixtures struct {
	users     *repo.UserRepo
	bindings  *repo.BindingRepo
	sessions  *repo.SessionRepo
	bookmarks *repo.BookmarkRepo
	files     *repo.FileRepo
	store     *repo.IdentityStore
}

func newFixtures(t *testing.T) (*fixtures, func()) {
	db, cleanup := testutil.OpenTestDB(t)
	bindings := repo.NewBindingRepo(db)
	return &fixtures{
		users:     repo.NewUserRepo(db),
		bindings:  bindings,
		sessions:  repo.NewSessionRepo(db),
		bookmarks: repo.NewBookmarkRepo(db),
		files:     repo.NewFileRepo(db),
		store:     repo.NewIdentityStore(db, bindings),
	}, cleanup
}

func (f *fixtures) createUser(t *testing.T, email string) string {
	t.Helper()
	now := timeutil.NowMilli()
	user := &model.User{
		ID:    testID("user"),
		Email: email,
		Role:  model.RoleUser,
		Ctime: now,
		Mtime: now,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user.ID
}

func (f *fixtures) createBinding(t *testing.T, userID, provider string) *model.ProviderBinding {
	t.Helper()
	now := timeutil.NowMilli()
	binding := &model.ProviderBinding{
		ID:                testID("binding"),
		UserID:            userID,
		Provider:          provider,
		ProviderAccountID: testID("acct"),
		Email:             "x@example.com",
		Ctime:             now,
		Mtime:             now,
	}
	require.NoError(t, f.bindings.Create(context.Background(), binding))
	return binding
}

func (f *fixtures) createBookmark(t *testing.T, userID string) string {
	t.Helper()
	now := timeutil.NowMilli()
	bookmark := &model.Bookmark{
		ID:     testID("bm"),
		UserID: userID,
		URL:    "https://example.com",
		Title:  "example",
		Ctime:  now,
		Mtime:  now,
	}
	require.NoError(t, f.bookmarks.Create(context.Background(), bookmark))
	return bookmark.ID
}

func (f *fixtures) createSession(t *testing.T, userID string) string {
	t.Helper()
	now := timeutil.NowMilli()
	session := &model.Session{
		ID:        testID("sess"),
		UserID:    userID,
		ExpiresAt: now + 3600_000,
		Ctime:     now,
	}
	require.NoError(t, f.sessions.Create(context.Background(), session))
	return session.ID
}

func TestMergeIntoReparentsEverything(t *testing.T) {
	f, cleanup := newFixtures(t)
	defer cleanup()
	ctx := context.Background()

	surviving := f.createUser(t, "a@example.com")
	superseded := f.createUser(t, "a@example.com")
	f.createBinding(t, surviving, "google")
	supersededBinding := f.createBinding(t, superseded, "github")
	bookmarkID := f.createBookmark(t, superseded)
	sessionID := f.createSession(t, superseded)
	keptSession := f.createSession(t, surviving)

	require.NoError(t, f.store.MergeInto(ctx, surviving, superseded))

	// Binding now belongs to the surviving user.
	moved, err := f.bindings.GetByID(ctx, supersededBinding.ID)
	require.NoError(t, err)
	require.Equal(t, surviving, moved.UserID)

	// Bookmark re-parented, reachable as the surviving user.
	bookmark, err := f.bookmarks.GetByID(ctx, surviving, bookmarkID)
	require.NoError(t, err)
	require.Equal(t, surviving, bookmark.UserID)

	// Superseded user's sessions are gone, surviving user's stay.
	_, err = f.sessions.GetByID(ctx, sessionID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = f.sessions.GetByID(ctx, keptSession)
	require.NoError(t, err)

	// Superseded user row is gone.
	_, err = f.users.GetByID(ctx, superseded)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	_, err = f.users.GetByID(ctx, surviving)
	require.NoError(t, err)
}

func TestMergeIntoSameUserIsNoOp(t *testing.T) {
	f, cleanup := newFixtures(t)
	defer cleanup()
	ctx := context.Background()

	userID := f.createUser(t, "same@example.com")
	f.createBinding(t, userID, "google")
	sessionID := f.createSession(t, userID)

	require.NoError(t, f.store.MergeInto(ctx, userID, userID))

	_, err := f.users.GetByID(ctx, userID)
	require.NoError(t, err)
	_, err = f.sessions.GetByID(ctx, sessionID)
	require.NoError(t, err)
}

func TestMergeIntoMissingSurvivorFails(t *testing.T) {
	f, cleanup := newFixtures(t)
	defer cleanup()
	ctx := context.Background()

	superseded := f.createUser(t, "orphan@example.com")
	err := f.store.MergeInto(ctx, "no-such-user", superseded)
	require.Error(t, err)

	// Nothing happened to the would-be superseded user.
	_, err = f.users.GetByID(ctx, superseded)
	require.NoError(t, err)
}

func TestUnlinkGuard(t *testing.T) {
	f, cleanup := newFixtures(t)
	defer cleanup()
	ctx := context.Background()

	userID := f.createUser(t, "guard@example.com")
	first := f.createBinding(t, userID, "google")
	second := f.createBinding(t, userID, "github")

	require.NoError(t, f.store.UnlinkBinding(ctx, userID, second.ID))

	// The remaining binding is the last path into the account.
	err := f.store.UnlinkBinding(ctx, userID, first.ID)
	require.ErrorIs(t, err, appErr.ErrForbidden)

	remaining, err := f.bindings.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, first.ID, remaining[0].ID)
}

func TestUnlinkSomeoneElsesBinding(t *testing.T) {
	f, cleanup := newFixtures(t)
	defer cleanup()
	ctx := context.Background()

	owner := f.createUser(t, "owner@example.com")
	other := f.createUser(t, "other@example.com")
	f.createBinding(t, owner, "google")
	ownerBinding := f.createBinding(t, owner, "github")
	f.createBinding(t, other, "google")
	f.createBinding(t, other, "github")

	err := f.store.UnlinkBinding(ctx, other, ownerBinding.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestDeleteUserRemovesEverything(t *testing.T) {
	f, cleanup := newFixtures(t)
	defer cleanup()
	ctx := context.Background()

	userID := f.createUser(t, "bye@example.com")
	binding := f.createBinding(t, userID, "google")
	f.createBookmark(t, userID)
	f.createSession(t, userID)

	require.NoError(t, f.store.DeleteUser(ctx, userID))

	_, err := f.users.GetByID(ctx, userID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = f.bindings.GetByID(ctx, binding.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	bookmarks, err := f.bookmarks.ListByUser(ctx, userID, "", 0)
	require.NoError(t, err)
	require.Empty(t, bookmarks)

	require.ErrorIs(t, f.store.DeleteUser(ctx, userID), appErr.ErrNotFound)
}
