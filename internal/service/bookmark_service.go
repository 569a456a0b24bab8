package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"linkmark/internal/ai"
	"linkmark/internal/model"
	appErr "linkmark/internal/pkg/errors"
	"linkmark/internal/repo"
)

const (
	maxTitleLen = 512
	maxNotesLen = 64 * 1024
	maxURLLen   = 2048
)

// categories the classifier is allowed to answer with; anything else from the
// model is discarded.
var knownCategories = []string{
	"tech", "news", "reading", "video", "shopping", "reference", "social", "other",
}

type BookmarkService struct {
	bookmarks *repo.BookmarkRepo
	generator ai.IGenerator
	cache     *expirable.LRU[string, string]
}

// NewBookmarkService builds the service. generator may be nil, in which case
// bookmarks without an explicit category stay uncategorized.
func NewBookmarkService(bookmarks *repo.BookmarkRepo, generator ai.IGenerator) *BookmarkService {
	return &BookmarkService{
		bookmarks: bookmarks,
		generator: generator,
		cache:     expirable.NewLRU[string, string](10000, nil, 2*time.Hour),
	}
}

type CreateBookmarkRequest struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Notes    string `json:"notes"`
	Category string `json:"category"`
}

type UpdateBookmarkRequest struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Notes    string `json:"notes"`
	Category string `json:"category"`
}

func (s *BookmarkService) Create(ctx context.Context, userID string, req *CreateBookmarkRequest) (*model.Bookmark, error) {
	if err := validateBookmarkFields(req.URL, req.Title, req.Notes); err != nil {
		return nil, err
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = s.categorize(ctx, req.URL, req.Title)
	}
	now := time.Now().UnixMilli()
	bookmark := &model.Bookmark{
		ID:       newID(),
		UserID:   userID,
		URL:      strings.TrimSpace(req.URL),
		Title:    strings.TrimSpace(req.Title),
		Notes:    req.Notes,
		Category: category,
		Ctime:    now,
		Mtime:    now,
	}
	if err := s.bookmarks.Create(ctx, bookmark); err != nil {
		return nil, err
	}
	return bookmark, nil
}

func (s *BookmarkService) Get(ctx context.Context, userID, bookmarkID string) (*model.Bookmark, error) {
	return s.bookmarks.GetByID(ctx, userID, bookmarkID)
}

func (s *BookmarkService) List(ctx context.Context, userID, category string, limit uint) ([]model.Bookmark, error) {
	return s.bookmarks.ListByUser(ctx, userID, category, limit)
}

func (s *BookmarkService) Update(ctx context.Context, userID, bookmarkID string, req *UpdateBookmarkRequest) (*model.Bookmark, error) {
	if err := validateBookmarkFields(req.URL, req.Title, req.Notes); err != nil {
		return nil, err
	}
	bookmark, err := s.bookmarks.GetByID(ctx, userID, bookmarkID)
	if err != nil {
		return nil, err
	}
	bookmark.URL = strings.TrimSpace(req.URL)
	bookmark.Title = strings.TrimSpace(req.Title)
	bookmark.Notes = req.Notes
	bookmark.Category = strings.TrimSpace(req.Category)
	if bookmark.Category == "" {
		bookmark.Category = s.categorize(ctx, bookmark.URL, bookmark.Title)
	}
	bookmark.Mtime = time.Now().UnixMilli()
	if err := s.bookmarks.Update(ctx, bookmark); err != nil {
		return nil, err
	}
	return bookmark, nil
}

func (s *BookmarkService) SetPinned(ctx context.Context, userID, bookmarkID string, pinned bool) error {
	val := 0
	if pinned {
		val = 1
	}
	return s.bookmarks.UpdatePinned(ctx, userID, bookmarkID, val, time.Now().UnixMilli())
}

func (s *BookmarkService) Delete(ctx context.Context, userID, bookmarkID string) error {
	return s.bookmarks.Delete(ctx, userID, bookmarkID)
}

// categorize asks the model for a single category word. Failures degrade to
// an empty category; a bookmark is never rejected because the classifier is
// down.
func (s *BookmarkService) categorize(ctx context.Context, rawURL, title string) string {
	if s.generator == nil {
		return ""
	}
	input := strings.TrimSpace(rawURL + "\n" + title)
	cacheKey := s.cacheKey("category", input)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached
	}
	prompt := fmt.Sprintf(
		"Classify the following bookmark into exactly one of these categories: %s.\nAnswer with the category word only.\nURL: %s\nTitle: %s",
		strings.Join(knownCategories, ", "), rawURL, title,
	)
	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		if err != ai.ErrUnavailable {
			logutil.GetLogger(ctx).Warn("bookmark categorize failed", zap.Error(err))
		}
		return ""
	}
	category := parseCategory(raw)
	s.cache.Add(cacheKey, category)
	return category
}

func (s *BookmarkService) cacheKey(feature, text string) string {
	hash := sha256.Sum256([]byte(text))
	return feature + ":" + hex.EncodeToString(hash[:])
}

// parseCategory normalizes a model answer down to one known category word.
// Model output is untrusted: it may carry punctuation, quoting or a full
// sentence around the word we asked for.
func parseCategory(raw string) string {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	cleaned = strings.Trim(cleaned, "\"'`.,:;!")
	for _, known := range knownCategories {
		if cleaned == known {
			return known
		}
	}
	// Some models answer "category: tech" or similar; take the last field.
	fields := strings.Fields(cleaned)
	if len(fields) > 0 {
		last := strings.Trim(fields[len(fields)-1], "\"'`.,:;!")
		for _, known := range knownCategories {
			if last == known {
				return known
			}
		}
	}
	return ""
}

func validateBookmarkFields(rawURL, title, notes string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" || len(rawURL) > maxURLLen {
		return appErr.ErrInvalid
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return appErr.ErrInvalid
	}
	if len(title) > maxTitleLen || len(notes) > maxNotesLen {
		return appErr.ErrInvalid
	}
	return nil
}
