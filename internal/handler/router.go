package handler

import (
	"github.com/gin-gonic/gin"

	"linkmark/internal/middleware"
	"linkmark/internal/ratelimit"
	"linkmark/internal/repo"
)

type RouterDeps struct {
	Auth          *AuthHandler
	Accounts      *AccountHandler
	Merge         *MergeHandler
	Bookmarks     *BookmarkHandler
	Export        *ExportHandler
	Files         *FileHandler
	Sessions      *repo.SessionRepo
	SessionCookie string
	SessionSecret []byte
	MergeLimiter  *ratelimit.Limiter
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/auth/:provider/login", deps.Auth.AuthURL)
	api.GET("/auth/:provider/callback", deps.Auth.Callback)

	// The merge callback authenticates through the ticket cookie and the
	// provider round trip, not through a session.
	api.GET("/account/merge/callback", deps.Merge.Callback)

	authGroup := api.Group("")
	authGroup.Use(middleware.SessionAuth(deps.SessionCookie, deps.SessionSecret, deps.Sessions))

	authGroup.POST("/auth/logout", deps.Auth.Logout)
	authGroup.GET("/account/me", deps.Accounts.Me)
	authGroup.GET("/account/bindings", deps.Accounts.ListBindings)
	authGroup.POST("/account/delete", deps.Accounts.Delete)

	// Merge, unlink and upload are the abuse-prone operations; they share
	// one attempt-rate budget per user.
	limited := authGroup.Group("")
	limited.Use(middleware.RateLimit(deps.MergeLimiter))
	limited.GET("/account/merge/start", deps.Merge.Start)
	limited.POST("/account/merge", deps.Merge.Direct)
	limited.POST("/account/unlink", deps.Accounts.Unlink)
	limited.POST("/files/upload", deps.Files.Upload)

	authGroup.POST("/bookmarks", deps.Bookmarks.Create)
	authGroup.GET("/bookmarks", deps.Bookmarks.List)
	authGroup.GET("/bookmarks/:id", deps.Bookmarks.Get)
	authGroup.PUT("/bookmarks/:id", deps.Bookmarks.Update)
	authGroup.PUT("/bookmarks/:id/pin", deps.Bookmarks.Pin)
	authGroup.DELETE("/bookmarks/:id", deps.Bookmarks.Delete)

	authGroup.GET("/export", deps.Export.Export)
	authGroup.GET("/files", deps.Files.List)
	authGroup.GET("/files/:key", deps.Files.Get)
}
