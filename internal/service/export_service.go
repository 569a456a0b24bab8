package service

import (
	"bytes"
	"context"
	"fmt"
	stdhtml "html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"linkmark/internal/model"
	"linkmark/internal/repo"
)

// ExportService renders a user's bookmarks as a single standalone HTML page.
// Notes are markdown and go through goldmark; everything else is escaped.
type ExportService struct {
	bookmarks *repo.BookmarkRepo
	md        goldmark.Markdown
}

func NewExportService(bookmarks *repo.BookmarkRepo) *ExportService {
	return &ExportService{
		bookmarks: bookmarks,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

func (s *ExportService) ExportHTML(ctx context.Context, userID string) (string, error) {
	bookmarks, err := s.bookmarks.ListByUser(ctx, userID, "", 0)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Bookmarks</title>\n</head>\n<body>\n")
	fmt.Fprintf(&out, "<h1>Bookmarks</h1>\n<p>Exported %s, %d items</p>\n",
		time.Now().UTC().Format("2006-01-02"), len(bookmarks))
	for _, group := range groupByCategory(bookmarks) {
		name := group.category
		if name == "" {
			name = "uncategorized"
		}
		fmt.Fprintf(&out, "<h2>%s</h2>\n", stdhtml.EscapeString(name))
		for i := range group.items {
			if err := s.renderBookmark(&out, &group.items[i]); err != nil {
				return "", err
			}
		}
	}
	out.WriteString("</body>\n</html>\n")
	return out.String(), nil
}

func (s *ExportService) renderBookmark(out *bytes.Buffer, bookmark *model.Bookmark) error {
	title := bookmark.Title
	if title == "" {
		title = bookmark.URL
	}
	fmt.Fprintf(out, "<h3><a href=\"%s\">%s</a></h3>\n",
		stdhtml.EscapeString(bookmark.URL), stdhtml.EscapeString(title))
	if strings.TrimSpace(bookmark.Notes) == "" {
		return nil
	}
	if err := s.md.Convert([]byte(bookmark.Notes), out); err != nil {
		return err
	}
	return nil
}

type categoryGroup struct {
	category string
	items    []model.Bookmark
}

// groupByCategory keeps the listing order inside each group and orders groups
// by first appearance, so the export is stable for a stable listing.
func groupByCategory(bookmarks []model.Bookmark) []categoryGroup {
	index := map[string]int{}
	groups := make([]categoryGroup, 0)
	for _, bookmark := range bookmarks {
		pos, ok := index[bookmark.Category]
		if !ok {
			pos = len(groups)
			index[bookmark.Category] = pos
			groups = append(groups, categoryGroup{category: bookmark.Category})
		}
		groups[pos].items = append(groups[pos].items, bookmark)
	}
	return groups
}
