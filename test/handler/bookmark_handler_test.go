package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBookmarkCRUDAndExport(t *testing.T) {
	router, env, cleanup := setupRouter(t)
	defer cleanup()

	_, _, session := env.seedUser(t, "google")
	do := func(method, path string, payload interface{}) *httptest.ResponseRecorder {
		var body *bytes.Reader
		if payload != nil {
			data, _ := json.Marshal(payload)
			body = bytes.NewReader(data)
		} else {
			body = bytes.NewReader(nil)
		}
		req := httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(&http.Cookie{Name: testSessionCookie, Value: session})
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	resp := do(http.MethodPost, "/api/bookmarks", map[string]string{
		"url":   "https://go.dev/blog",
		"title": "Go blog",
		"notes": "# Reading list\n\n- generics",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)

	resp = do(http.MethodPost, "/api/bookmarks", map[string]string{
		"url": "ftp://bad.example",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(http.MethodGet, "/api/bookmarks", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = do(http.MethodPut, "/api/bookmarks/"+created.Data.ID+"/pin", map[string]bool{"pinned": true})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = do(http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Header().Get("Content-Type"), "text/html")
	page := resp.Body.String()
	require.True(t, strings.Contains(page, "Go blog"))
	require.True(t, strings.Contains(page, "<li>generics</li>"))

	resp = do(http.MethodDelete, "/api/bookmarks/"+created.Data.ID, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = do(http.MethodGet, "/api/bookmarks/"+created.Data.ID, nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
}
