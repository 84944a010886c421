package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lggurgel/gurgelhub/internal/domain"
)

func TestArticleService_CreatePublishedStampsPublishedAt(t *testing.T) {
	_, _, _, articles := newTestServices(t)
	ctx := context.Background()

	draft, err := articles.Create(ctx, CreateArticleInput{
		Title:   "Draft",
		Slug:    "draft",
		Content: "body",
	})
	require.NoError(t, err)
	assert.Nil(t, draft.PublishedAt)

	published, err := articles.Create(ctx, CreateArticleInput{
		Title:       "Live",
		Slug:        "live",
		Content:     "body",
		IsPublished: true,
	})
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)
}

func TestArticleService_PublishTransitionStampsOnce(t *testing.T) {
	_, _, _, articles := newTestServices(t)
	ctx := context.Background()

	article, err := articles.Create(ctx, CreateArticleInput{
		Title:   "Draft",
		Slug:    "draft",
		Content: "body",
	})
	require.NoError(t, err)

	yes := true
	updated, err := articles.Update(ctx, article.ID, UpdateArticleInput{IsPublished: &yes})
	require.NoError(t, err)
	require.NotNil(t, updated.PublishedAt)
	firstStamp := *updated.PublishedAt

	// Re-publishing an already published article keeps the original stamp.
	title := "Renamed"
	updated, err = articles.Update(ctx, article.ID, UpdateArticleInput{Title: &title, IsPublished: &yes})
	require.NoError(t, err)
	require.NotNil(t, updated.PublishedAt)
	assert.Equal(t, firstStamp, *updated.PublishedAt)
	assert.Equal(t, "Renamed", updated.Title)
}

func TestArticleService_GetBySlug(t *testing.T) {
	_, _, _, articles := newTestServices(t)
	ctx := context.Background()

	created, err := articles.Create(ctx, CreateArticleInput{
		Title:       "Findable",
		Slug:        "findable",
		Content:     "body",
		IsPublished: true,
	})
	require.NoError(t, err)

	found, err := articles.GetBySlug(ctx, "findable")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = articles.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestArticleService_Stats(t *testing.T) {
	_, comments, inline, articles := newTestServices(t)
	ctx := context.Background()
	article := createPublishedArticle(t, articles)

	c1, err := comments.Create(ctx, article.ID, CreateCommentInput{AuthorToken: tok1, Content: "one"})
	require.NoError(t, err)
	_, err = comments.Create(ctx, article.ID, CreateCommentInput{ParentID: &c1.ID, AuthorToken: tok2, Content: "two"})
	require.NoError(t, err)
	_, err = inline.Create(ctx, article.ID, inlineInput(tok1, 5, 15))
	require.NoError(t, err)

	stats, err := articles.Stats(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Comments)
	assert.Equal(t, 1, stats.InlineComments)
}

func TestArticleService_DeleteCascades(t *testing.T) {
	_, comments, _, articles := newTestServices(t)
	ctx := context.Background()
	article := createPublishedArticle(t, articles)

	c, err := comments.Create(ctx, article.ID, CreateCommentInput{AuthorToken: tok1, Content: "orphaned soon"})
	require.NoError(t, err)

	deleted, err := articles.Delete(ctx, article.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = comments.Get(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
