package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"linkmark/internal/pkg/response"
	"linkmark/internal/service"
)

type BookmarkHandler struct {
	bookmarks *service.BookmarkService
}

func NewBookmarkHandler(bookmarks *service.BookmarkService) *BookmarkHandler {
	return &BookmarkHandler{bookmarks: bookmarks}
}

func (h *BookmarkHandler) Create(c *gin.Context) {
	var req service.CreateBookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request")
		return
	}
	bookmark, err := h.bookmarks.Create(c.Request.Context(), getUserID(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, bookmark)
}

func (h *BookmarkHandler) List(c *gin.Context) {
	limit := uint(0)
	if value := c.Query("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = uint(parsed)
		}
	}
	bookmarks, err := h.bookmarks.List(c.Request.Context(), getUserID(c), c.Query("category"), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, bookmarks)
}

func (h *BookmarkHandler) Get(c *gin.Context) {
	bookmark, err := h.bookmarks.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, bookmark)
}

func (h *BookmarkHandler) Update(c *gin.Context) {
	var req service.UpdateBookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request")
		return
	}
	bookmark, err := h.bookmarks.Update(c.Request.Context(), getUserID(c), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, bookmark)
}

type pinRequest struct {
	Pinned bool `json:"pinned"`
}

func (h *BookmarkHandler) Pin(c *gin.Context) {
	var req pinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request")
		return
	}
	if err := h.bookmarks.SetPinned(c.Request.Context(), getUserID(c), c.Param("id"), req.Pinned); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *BookmarkHandler) Delete(c *gin.Context) {
	if err := h.bookmarks.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
