package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"linkmark/internal/mergeticket"
	appErr "linkmark/internal/pkg/errors"
)

func TestMergeStartRequiresAuth(t *testing.T) {
	router, _, cleanup := setupRouter(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/account/merge/start?provider=github", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestMergeStartRejectsUnknownProvider(t *testing.T) {
	router, env, cleanup := setupRouter(t)
	defer cleanup()

	_, _, session := env.seedUser(t, "google")
	req := httptest.NewRequest(http.MethodGet, "/api/account/merge/start?provider=gitlab", nil)
	req.AddCookie(&http.Cookie{Name: testSessionCookie, Value: session})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMergeFlowEndToEnd(t *testing.T) {
	router, env, cleanup := setupRouter(t)
	defer cleanup()

	// u1 signs in with google and wants to absorb u2, a separate account
	// created by a github sign-in.
	u1, _, session := env.seedUser(t, "google")
	u2, u2Binding, _ := env.seedUser(t, "github")

	req := httptest.NewRequest(http.MethodGet, "/api/account/merge/start?provider=github", nil)
	req.AddCookie(&http.Cookie{Name: testSessionCookie, Value: session})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusFound, resp.Code)

	location, err := url.Parse(resp.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "github.example", location.Host)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	var ticket string
	for _, cookie := range resp.Result().Cookies() {
		if cookie.Name == mergeticket.CookieName {
			ticket = cookie.Value
			require.Equal(t, "/", cookie.Path)
			require.True(t, cookie.HttpOnly)
			require.Equal(t, int(mergeticket.TTL.Seconds()), cookie.MaxAge)
		}
	}
	require.NotEmpty(t, ticket)

	// Provider redirects back; the code resolves to u2's github identity.
	code := u2Binding.ProviderAccountID + ":" + u2Binding.Email
	req = httptest.NewRequest(http.MethodGet, "/api/account/merge/callback?code="+url.QueryEscape(code)+"&state="+state, nil)
	req.AddCookie(&http.Cookie{Name: mergeticket.CookieName, Value: ticket})
	req.AddCookie(&http.Cookie{Name: testSessionCookie, Value: session})
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusFound, resp.Code)
	require.Equal(t, "/settings?merge=merged", resp.Header().Get("Location"))

	// Both the ticket cookie and the session cookie are cleared: the user
	// must sign in again as the surviving identity.
	for _, cookie := range resp.Result().Cookies() {
		if cookie.Name == mergeticket.CookieName || cookie.Name == testSessionCookie {
			require.Empty(t, cookie.Value)
			require.Less(t, cookie.MaxAge, 0)
		}
	}

	// The github binding now belongs to u1 and u2 is gone.
	moved, err := env.bindings.GetByID(context.Background(), u2Binding.ID)
	require.NoError(t, err)
	require.Equal(t, u1, moved.UserID)
	_, err = env.users.GetByID(context.Background(), u2)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	// The old session no longer works.
	req = httptest.NewRequest(http.MethodGet, "/api/account/me", nil)
	req.AddCookie(&http.Cookie{Name: testSessionCookie, Value: session})
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestMergeCallbackWithoutTicketCookie(t *testing.T) {
	router, _, cleanup := setupRouter(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/account/merge/callback?code=x:y&state=z", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusFound, resp.Code)
	require.Equal(t, "/settings", resp.Header().Get("Location"))
}

func TestMergeCallbackWithTamperedTicket(t *testing.T) {
	router, env, cleanup := setupRouter(t)
	defer cleanup()

	_, _, session := env.seedUser(t, "google")
	_, u2Binding, _ := env.seedUser(t, "github")

	req := httptest.NewRequest(http.MethodGet, "/api/account/merge/start?provider=github", nil)
	req.AddCookie(&http.Cookie{Name: testSessionCookie, Value: session})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusFound, resp.Code)

	location, err := url.Parse(resp.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")

	code := u2Binding.ProviderAccountID + ":" + u2Binding.Email
	req = httptest.NewRequest(http.MethodGet, "/api/account/merge/callback?code="+url.QueryEscape(code)+"&state="+state, nil)
	req.AddCookie(&http.Cookie{Name: mergeticket.CookieName, Value: "forged.ticket"})
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusFound, resp.Code)
	require.Equal(t, "/settings?merge=merge_token_invalid", resp.Header().Get("Location"))
}

func TestMergeCallbackProviderMismatch(t *testing.T) {
	router, env, cleanup := setupRouter(t)
	defer cleanup()

	_, _, session := env.seedUser(t, "google")
	_, otherBinding, _ := env.seedUser(t, "github")

	// Grab a genuine ticket scoped to google.
	req := httptest.NewRequest(http.MethodGet, "/api/account/merge/start?provider=google", nil)
	req.AddCookie(&http.Cookie{Name: testSessionCookie, Value: session})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusFound, resp.Code)
	var ticket string
	for _, cookie := range resp.Result().Cookies() {
		if cookie.Name == mergeticket.CookieName {
			ticket = cookie.Value
		}
	}
	require.NotEmpty(t, ticket)

	// Start again against github so the callback state resolves to a
	// github identity, then replay the google ticket.
	req = httptest.NewRequest(http.MethodGet, "/api/account/merge/start?provider=github", nil)
	req.AddCookie(&http.Cookie{Name: testSessionCookie, Value: session})
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	location, err := url.Parse(resp.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")

	code := otherBinding.ProviderAccountID + ":" + otherBinding.Email
	req = httptest.NewRequest(http.MethodGet, "/api/account/merge/callback?code="+url.QueryEscape(code)+"&state="+state, nil)
	req.AddCookie(&http.Cookie{Name: mergeticket.CookieName, Value: ticket})
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusFound, resp.Code)
	require.Equal(t, "/settings?merge=provider_mismatch", resp.Header().Get("Location"))
}

func TestDirectMerge(t *testing.T) {
	router, env, cleanup := setupRouter(t)
	defer cleanup()

	u1, _, session := env.seedUser(t, "google")
	u2, u2Binding, _ := env.seedUser(t, "github")

	body, _ := json.Marshal(map[string]string{
		"provider":   "github",
		"account_id": u2Binding.ProviderAccountID,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/account/merge", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: testSessionCookie, Value: session})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	moved, err := env.bindings.GetByID(context.Background(), u2Binding.ID)
	require.NoError(t, err)
	require.Equal(t, u1, moved.UserID)
	_, err = env.users.GetByID(context.Background(), u2)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestDirectMergeUnknownBinding(t *testing.T) {
	router, env, cleanup := setupRouter(t)
	defer cleanup()

	_, _, session := env.seedUser(t, "google")

	body, _ := json.Marshal(map[string]string{
		"provider":   "github",
		"account_id": "no-such-account",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/account/merge", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: testSessionCookie, Value: session})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusNotFound, resp.Code)
}
