package handler_test

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"linkmark/internal/config"
	"linkmark/internal/handler"
	"linkmark/internal/mergeticket"
	"linkmark/internal/middleware"
	"linkmark/internal/model"
	"linkmark/internal/oauth"
	"linkmark/internal/pkg/timeutil"
	"linkmark/internal/ratelimit"
	"linkmark/internal/repo"
	"linkmark/internal/service"
	"linkmark/test/testutil"
)

const (
	testSessionCookie = "lm_session"
	testBaseURL       = "http://linkmark.test"
)

// fakeProvider resolves any authorization code of the form
// "accountID:email" into a profile, so tests drive the full callback path
// without talking to a real provider.
type fakeProvider struct {
	name string
}

func (p *fakeProvider) Name() string {
	return p.name
}

func (p *fakeProvider) AuthURL(state, redirectURL string) (string, error) {
	return "https://" + p.name + ".example/authorize?state=" + state, nil
}

func (p *fakeProvider) ExchangeCode(_ context.Context, code, _ string) (*oauth.Profile, error) {
	parts := strings.SplitN(code, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("bad code")
	}
	return &oauth.Profile{
		Provider:          p.name,
		ProviderAccountID: parts[0],
		Email:             parts[1],
		EmailVerified:     true,
	}, nil
}

type testEnv struct {
	users    *repo.UserRepo
	bindings *repo.BindingRepo
	sessions *repo.SessionRepo
	auth     *service.AuthService
}

func newTestID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setupRouter(t *testing.T) (http.Handler, *testEnv, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, cleanup := testutil.OpenTestDB(t)
	userRepo := repo.NewUserRepo(db)
	bindingRepo := repo.NewBindingRepo(db)
	sessionRepo := repo.NewSessionRepo(db)
	bookmarkRepo := repo.NewBookmarkRepo(db)
	identityStore := repo.NewIdentityStore(db, bindingRepo)

	sessionSecret := []byte("test-secret")
	sessionCfg := config.SessionConfig{
		Secret:     "test-secret",
		TTLHours:   1,
		CookieName: testSessionCookie,
	}
	providers := map[string]oauth.Provider{
		"google": &fakeProvider{name: "google"},
		"github": &fakeProvider{name: "github"},
	}
	authService := service.NewAuthService(userRepo, bindingRepo, sessionRepo, sessionSecret, time.Hour, providers)
	mergeService := service.NewMergeService(identityStore, mergeticket.NewCodec([]byte("merge-secret")), []string{"google", "github"})
	accountService := service.NewAccountService(userRepo, bindingRepo, identityStore)
	bookmarkService := service.NewBookmarkService(bookmarkRepo, nil)
	exportService := service.NewExportService(bookmarkRepo)

	deps := handler.RouterDeps{
		Auth:          handler.NewAuthHandler(authService, sessionCfg, testBaseURL),
		Accounts:      handler.NewAccountHandler(accountService, sessionCfg),
		Merge:         handler.NewMergeHandler(mergeService, authService, sessionCfg, testBaseURL),
		Bookmarks:     handler.NewBookmarkHandler(bookmarkService),
		Export:        handler.NewExportHandler(exportService),
		Files:         handler.NewFileHandler(nil),
		Sessions:      sessionRepo,
		SessionCookie: testSessionCookie,
		SessionSecret: sessionSecret,
		MergeLimiter:  ratelimit.New(100, time.Minute),
	}

	engine, err := webapi.NewEngine(
		"/api",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)

	env := &testEnv{
		users:    userRepo,
		bindings: bindingRepo,
		sessions: sessionRepo,
		auth:     authService,
	}
	return engine, env, cleanup
}

// seedUser creates a user with one provider binding and returns the user id,
// the binding and a valid session cookie value.
func (e *testEnv) seedUser(t *testing.T, provider string) (string, *model.ProviderBinding, string) {
	t.Helper()
	now := timeutil.NowMilli()
	user := &model.User{
		ID:    newTestID(),
		Email: newTestID() + "@example.com",
		Role:  model.RoleUser,
		Ctime: now,
		Mtime: now,
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	binding := &model.ProviderBinding{
		ID:                newTestID(),
		UserID:            user.ID,
		Provider:          provider,
		ProviderAccountID: newTestID(),
		Email:             user.Email,
		Ctime:             now,
		Mtime:             now,
	}
	require.NoError(t, e.bindings.Create(context.Background(), binding))
	token, err := e.auth.IssueSession(context.Background(), user.ID)
	require.NoError(t, err)
	return user.ID, binding, token
}
