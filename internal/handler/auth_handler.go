package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"linkmark/internal/config"
	"linkmark/internal/pkg/response"
	"linkmark/internal/service"
)

type AuthHandler struct {
	auth       *service.AuthService
	stateStore *oauthStateStore
	session    config.SessionConfig
	baseURL    string
}

func NewAuthHandler(auth *service.AuthService, session config.SessionConfig, baseURL string) *AuthHandler {
	return &AuthHandler{
		auth:       auth,
		stateStore: newOAuthStateStore(),
		session:    session,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// AuthURL hands the frontend the provider authorization URL for a login.
func (h *AuthHandler) AuthURL(c *gin.Context) {
	provider := strings.ToLower(c.Param("provider"))
	state := h.stateStore.Create(provider, "login", c.Query("return"))
	authURL, err := h.auth.GetAuthURL(provider, state, h.loginCallbackURL(provider))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"url": authURL})
}

func (h *AuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		h.redirectLoginError(c, "invalid")
		return
	}
	stored, ok := h.stateStore.Consume(state)
	if !ok || stored.Mode != "login" {
		h.redirectLoginError(c, "invalid")
		return
	}
	provider := strings.ToLower(c.Param("provider"))
	if stored.Provider != provider {
		h.redirectLoginError(c, "invalid")
		return
	}
	profile, err := h.auth.ExchangeCode(c.Request.Context(), provider, code, h.loginCallbackURL(provider))
	if err != nil {
		h.redirectLoginError(c, "exchange_failed")
		return
	}
	_, token, err := h.auth.LoginOrCreate(c.Request.Context(), profile)
	if err != nil {
		h.redirectLoginError(c, "internal")
		return
	}
	h.setSessionCookie(c, token)
	c.Redirect(http.StatusFound, sanitizeReturnTo(stored.ReturnTo, "/"))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.SignOut(c.Request.Context(), getSessionID(c)); err != nil {
		handleError(c, err)
		return
	}
	h.clearSessionCookie(c)
	response.Success(c, gin.H{"ok": true})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	maxAge := int((time.Duration(h.session.TTLHours) * time.Hour) / time.Second)
	c.SetCookie(h.session.CookieName, token, maxAge, "/", "", h.session.Secure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.session.CookieName, "", -1, "/", "", h.session.Secure, true)
}

func (h *AuthHandler) loginCallbackURL(provider string) string {
	return h.baseURL + "/api/auth/" + provider + "/callback"
}

func (h *AuthHandler) redirectLoginError(c *gin.Context, code string) {
	c.Redirect(http.StatusFound, "/login?error="+url.QueryEscape(code))
}

// sanitizeReturnTo only accepts same-site absolute paths; anything else falls
// back to the default so the callback cannot be used as an open redirect.
func sanitizeReturnTo(returnTo, fallback string) string {
	if returnTo == "" || !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") {
		return fallback
	}
	return returnTo
}
