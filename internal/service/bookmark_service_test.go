package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	appErr "linkmark/internal/pkg/errors"
)

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"tech", "tech"},
		{" Tech ", "tech"},
		{"\"news\"", "news"},
		{"reading.", "reading"},
		{"category: video", "video"},
		{"The category is shopping", "shopping"},
		{"", ""},
		{"banana", ""},
		{"tech news reading", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, parseCategory(tc.in), "input %q", tc.in)
	}
}

func TestValidateBookmarkFields(t *testing.T) {
	require.NoError(t, validateBookmarkFields("https://example.com/a", "title", "notes"))
	require.NoError(t, validateBookmarkFields("http://example.com", "", ""))

	for _, rawURL := range []string{
		"",
		"   ",
		"ftp://example.com/file",
		"javascript:alert(1)",
		"not a url",
		"https://",
	} {
		require.ErrorIs(t, validateBookmarkFields(rawURL, "t", "n"), appErr.ErrInvalid, "url %q", rawURL)
	}

	longTitle := make([]byte, maxTitleLen+1)
	require.ErrorIs(t, validateBookmarkFields("https://example.com", string(longTitle), ""), appErr.ErrInvalid)
}
