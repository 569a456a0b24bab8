package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linkmark/internal/config"
	appErr "linkmark/internal/pkg/errors"
	"linkmark/internal/pkg/response"
	"linkmark/internal/service"
)

type AccountHandler struct {
	accounts *service.AccountService
	session  config.SessionConfig
}

func NewAccountHandler(accounts *service.AccountService, session config.SessionConfig) *AccountHandler {
	return &AccountHandler{accounts: accounts, session: session}
}

func (h *AccountHandler) Me(c *gin.Context) {
	user, err := h.accounts.Get(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"id":           user.ID,
		"email":        user.Email,
		"display_name": user.DisplayName,
		"role":         user.Role,
	})
}

func (h *AccountHandler) ListBindings(c *gin.Context) {
	bindings, err := h.accounts.ListBindings(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	items := make([]gin.H, 0, len(bindings))
	for _, item := range bindings {
		items = append(items, gin.H{
			"id":       item.ID,
			"provider": item.Provider,
			"email":    item.Email,
		})
	}
	response.Success(c, gin.H{"bindings": items})
}

// Unlink removes one provider binding. The last binding can never be removed:
// it is the only way back into the account.
func (h *AccountHandler) Unlink(c *gin.Context) {
	var req struct {
		AccountID string `json:"account_id" form:"accountId"`
	}
	if err := c.ShouldBind(&req); err != nil || req.AccountID == "" {
		handleError(c, appErr.ErrInvalid)
		return
	}
	if err := h.accounts.Unlink(c.Request.Context(), getUserID(c), req.AccountID); err != nil {
		handleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, settingsPath)
}

// Delete tears the account down and sends the browser back to the landing
// page with a marker the frontend can turn into a farewell notice.
func (h *AccountHandler) Delete(c *gin.Context) {
	if err := h.accounts.Delete(c.Request.Context(), getUserID(c)); err != nil {
		handleError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.session.CookieName, "", -1, "/", "", h.session.Secure, true)
	c.Redirect(http.StatusFound, "/?deleted=1")
}
