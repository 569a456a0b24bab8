package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linkmark/internal/service"
)

type ExportHandler struct {
	export *service.ExportService
}

func NewExportHandler(export *service.ExportService) *ExportHandler {
	return &ExportHandler{export: export}
}

func (h *ExportHandler) Export(c *gin.Context) {
	page, err := h.export.ExportHTML(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="bookmarks.html"`)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}
