package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"linkmark/internal/config"
	"linkmark/internal/mergeticket"
	appErr "linkmark/internal/pkg/errors"
	"linkmark/internal/pkg/response"
	"linkmark/internal/pkg/sessiontoken"
	"linkmark/internal/service"
)

const settingsPath = "/settings"

type MergeHandler struct {
	merge      *service.MergeService
	auth       *service.AuthService
	stateStore *oauthStateStore
	session    config.SessionConfig
	baseURL    string
}

func NewMergeHandler(merge *service.MergeService, auth *service.AuthService, session config.SessionConfig, baseURL string) *MergeHandler {
	return &MergeHandler{
		merge:      merge,
		auth:       auth,
		stateStore: newOAuthStateStore(),
		session:    session,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// Start begins the re-authentication merge flow. The signed ticket rides in a
// short-lived cookie while the browser round-trips through the provider; the
// state parameter separately guards the callback against CSRF.
func (h *MergeHandler) Start(c *gin.Context) {
	provider := strings.ToLower(strings.TrimSpace(c.Query("provider")))
	ticket, err := h.merge.Start(getUserID(c), provider)
	if err != nil {
		handleError(c, err)
		return
	}
	state := h.stateStore.Create(provider, "merge", settingsPath)
	authURL, err := h.auth.GetAuthURL(provider, state, h.callbackURL())
	if err != nil {
		handleError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(mergeticket.CookieName, ticket, int(mergeticket.TTL.Seconds()), "/", "", h.session.Secure, true)
	c.Redirect(http.StatusFound, authURL)
}

// Callback finishes the flow after the provider redirected back. Whatever
// happens the ticket cookie is single-use: it is cleared before the user
// sees a result. On success the browser session is also destroyed, so the
// user signs in again as the surviving identity.
func (h *MergeHandler) Callback(c *gin.Context) {
	ticket, err := c.Cookie(mergeticket.CookieName)
	if err != nil || ticket == "" {
		// No pending merge; the user probably landed here stale.
		c.Redirect(http.StatusFound, settingsPath)
		return
	}
	h.clearTicketCookie(c)

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		h.redirectResult(c, "merge_token_invalid")
		return
	}
	stored, ok := h.stateStore.Consume(state)
	if !ok || stored.Mode != "merge" {
		h.redirectResult(c, "merge_token_invalid")
		return
	}
	profile, err := h.auth.ExchangeCode(c.Request.Context(), stored.Provider, code, h.callbackURL())
	if err != nil {
		logutil.GetLogger(c.Request.Context()).Warn("merge code exchange failed",
			zap.String("provider", stored.Provider), zap.Error(err))
		h.redirectResult(c, "exchange_failed")
		return
	}
	authedUser, err := h.auth.ResolveUser(c.Request.Context(), profile)
	if err != nil {
		h.redirectResult(c, "error")
		return
	}
	status, err := h.merge.Complete(c.Request.Context(), ticket, profile.Provider, authedUser.ID)
	switch {
	case errors.Is(err, mergeticket.ErrTicketInvalid):
		h.redirectResult(c, "merge_token_invalid")
		return
	case errors.Is(err, appErr.ErrForbidden):
		h.redirectResult(c, "provider_mismatch")
		return
	case err != nil:
		h.redirectResult(c, "error")
		return
	}
	if status == service.MergeStatusMerged {
		h.signOut(c)
	}
	h.redirectResult(c, string(status))
}

// Direct merges by naming the other account outright, no re-authentication.
// It answers 404 for an unknown binding, which doubles as the response for a
// binding the caller is not allowed to learn about.
func (h *MergeHandler) Direct(c *gin.Context) {
	var req struct {
		Provider  string `json:"provider" form:"provider"`
		AccountID string `json:"account_id" form:"accountId"`
	}
	if err := c.ShouldBind(&req); err != nil {
		handleError(c, appErr.ErrInvalid)
		return
	}
	status, err := h.merge.Direct(c.Request.Context(), getUserID(c), strings.ToLower(strings.TrimSpace(req.Provider)), strings.TrimSpace(req.AccountID))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"status": string(status)})
}

// signOut revokes whatever session the browser carried into the callback and
// clears the cookie.
func (h *MergeHandler) signOut(c *gin.Context) {
	if token, err := c.Cookie(h.session.CookieName); err == nil && token != "" {
		if claims, err := sessiontoken.Parse(token, []byte(h.session.Secret)); err == nil {
			_ = h.auth.SignOut(c.Request.Context(), claims.SessionID)
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.session.CookieName, "", -1, "/", "", h.session.Secure, true)
}

func (h *MergeHandler) callbackURL() string {
	return h.baseURL + "/api/account/merge/callback"
}

func (h *MergeHandler) clearTicketCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(mergeticket.CookieName, "", -1, "/", "", h.session.Secure, true)
}

func (h *MergeHandler) redirectResult(c *gin.Context, status string) {
	c.Redirect(http.StatusFound, settingsPath+"?merge="+url.QueryEscape(status))
}
