package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lggurgel/gurgelhub/internal/domain"
	"github.com/lggurgel/gurgelhub/internal/service"
	"github.com/lggurgel/gurgelhub/internal/storage/inmemory"
)

const (
	tokenAlice = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	tokenBob   = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func newTestServer(t *testing.T) (*httptest.Server, *inmemory.Store) {
	t.Helper()
	store := inmemory.New()
	log := zerolog.Nop()

	articles := service.NewArticleService(store, log)
	comments := service.NewCommentService(store, log)
	inline := service.NewInlineCommentService(store, log)
	search := service.NewSearchService(store, nil, 0, 10, log)

	srv := httptest.NewServer(NewRouter(store, articles, comments, inline, search, log))
	t.Cleanup(srv.Close)
	return srv, store
}

func seedArticle(t *testing.T, store *inmemory.Store) *domain.Article {
	t.Helper()
	article := &domain.Article{
		Title:       "Test Article",
		Slug:        "test-article",
		Content:     "# Test\n\nBody.",
		IsPublished: true,
	}
	created, err := store.CreateArticle(context.Background(), article)
	require.NoError(t, err)
	return created
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestRouter_CommentRoundTrip(t *testing.T) {
	srv, store := newTestServer(t)
	article := seedArticle(t, store)

	resp, created := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/v1/articles/%s/comments", srv.URL, article.ID),
		map[string]any{"authorToken": tokenAlice, "content": "hello", "authorName": "alice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	commentID := created["id"].(string)
	assert.Equal(t, "alice", created["authorName"])
	assert.Equal(t, float64(0), created["replyCount"])

	resp, _ = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/v1/articles/%s/comments", srv.URL, article.ID),
		map[string]any{"authorToken": tokenBob, "content": "a reply", "parentId": commentID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, listed := doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/v1/articles/%s/comments", srv.URL, article.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), listed["total"])

	comments := listed["comments"].([]any)
	require.Len(t, comments, 1)
	root := comments[0].(map[string]any)
	assert.Equal(t, commentID, root["id"])
	assert.Len(t, root["replies"].([]any), 1)
}

func TestRouter_WrongTokenDeleteReads404(t *testing.T) {
	srv, store := newTestServer(t)
	article := seedArticle(t, store)

	resp, created := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/v1/articles/%s/comments", srv.URL, article.ID),
		map[string]any{"authorToken": tokenAlice, "content": "mine"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	commentID := created["id"].(string)

	// A wrong token is indistinguishable from a missing comment.
	resp, body := doJSON(t, http.MethodDelete,
		fmt.Sprintf("%s/api/v1/comments/%s", srv.URL, commentID),
		map[string]any{"authorToken": tokenBob})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "not found or unauthorized")

	resp, _ = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/v1/comments/%s", srv.URL, commentID), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_ValidationMaps400(t *testing.T) {
	srv, store := newTestServer(t)
	article := seedArticle(t, store)

	resp, _ := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/v1/articles/%s/comments", srv.URL, article.ID),
		map[string]any{"authorToken": "short", "content": "hello"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/v1/articles/%s/inline-comments", srv.URL, article.ID),
		map[string]any{
			"authorToken": tokenAlice, "content": "note", "selector": "p1",
			"selectedText": "text", "startOffset": 20, "endOffset": 10,
			"contentHash": "deadbeefdeadbeefdeadbeefdeadbeef",
		})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_UnknownFieldRejected(t *testing.T) {
	srv, store := newTestServer(t)
	article := seedArticle(t, store)

	resp, _ := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/v1/articles/%s/comments", srv.URL, article.ID),
		map[string]any{"authorToken": tokenAlice, "content": "hello", "bogus": true})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_ListArticlesCarriesCounts(t *testing.T) {
	srv, store := newTestServer(t)
	article := seedArticle(t, store)

	resp, _ := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/v1/articles/%s/comments", srv.URL, article.ID),
		map[string]any{"authorToken": tokenAlice, "content": "one"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, listed := doJSON(t, http.MethodGet, srv.URL+"/api/v1/articles", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	articles := listed["articles"].([]any)
	require.Len(t, articles, 1)
	first := articles[0].(map[string]any)
	assert.Equal(t, float64(1), first["commentCount"])
	assert.Equal(t, float64(0), first["inlineCommentCount"])
}

func TestRouter_Healthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}
