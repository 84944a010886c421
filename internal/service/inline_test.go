package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lggurgel/gurgelhub/internal/domain"
)

const testContentHash = "deadbeefdeadbeefdeadbeefdeadbeef"

func inlineInput(token string, start, end int) CreateInlineCommentInput {
	return CreateInlineCommentInput{
		Selector:     "p1",
		SelectedText: "the selected passage",
		StartOffset:  start,
		EndOffset:    end,
		ContentHash:  testContentHash,
		AuthorToken:  token,
		Content:      "inline note",
	}
}

func TestInlineService_GroupsBySelection(t *testing.T) {
	_, _, inline, articles := newTestServices(t)
	ctx := context.Background()
	article := createPublishedArticle(t, articles)

	// Two independent comments on the same selection, one on another.
	i1, err := inline.Create(ctx, article.ID, inlineInput(tok1, 10, 20))
	require.NoError(t, err)
	i2, err := inline.Create(ctx, article.ID, inlineInput(tok2, 10, 20))
	require.NoError(t, err)
	i3, err := inline.Create(ctx, article.ID, inlineInput(tok1, 30, 40))
	require.NoError(t, err)

	groups, total, err := inline.ListForArticle(ctx, article.ID, true, false)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, groups, 2)

	// Groups ordered by start offset; comments inside by creation time.
	first := groups[0]
	assert.Equal(t, 10, first.StartOffset)
	assert.Equal(t, 20, first.EndOffset)
	require.Len(t, first.Comments, 2)
	assert.Equal(t, i1.ID, first.Comments[0].Node.ID)
	assert.Equal(t, i2.ID, first.Comments[1].Node.ID)
	assert.Equal(t, 2, first.TotalCount)

	second := groups[1]
	assert.Equal(t, 30, second.StartOffset)
	require.Len(t, second.Comments, 1)
	assert.Equal(t, i3.ID, second.Comments[0].Node.ID)
	assert.Equal(t, 1, second.TotalCount)
}

func TestInlineService_RepliesCountTowardGroupTotal(t *testing.T) {
	_, _, inline, articles := newTestServices(t)
	ctx := context.Background()
	article := createPublishedArticle(t, articles)

	root, err := inline.Create(ctx, article.ID, inlineInput(tok1, 10, 20))
	require.NoError(t, err)

	reply := inlineInput(tok2, 10, 20)
	reply.ParentID = &root.ID
	mid, err := inline.Create(ctx, article.ID, reply)
	require.NoError(t, err)

	nested := inlineInput(tok1, 10, 20)
	nested.ParentID = &mid.ID
	_, err = inline.Create(ctx, article.ID, nested)
	require.NoError(t, err)

	groups, total, err := inline.ListForArticle(ctx, article.ID, true, false)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, groups, 1)

	// Replies never open a group of their own, but the whole subtree
	// counts toward the selection's total.
	g := groups[0]
	require.Len(t, g.Comments, 1)
	assert.Equal(t, root.ID, g.Comments[0].Node.ID)
	assert.Equal(t, 3, g.TotalCount)
	require.Len(t, g.Comments[0].Replies, 1)
	assert.Len(t, g.Comments[0].Replies[0].Replies, 1)
}

func TestInlineService_ResolveToggle(t *testing.T) {
	_, _, inline, articles := newTestServices(t)
	ctx := context.Background()
	article := createPublishedArticle(t, articles)

	c, err := inline.Create(ctx, article.ID, inlineInput(tok1, 10, 20))
	require.NoError(t, err)
	assert.False(t, c.IsResolved)

	resolved, err := inline.Resolve(ctx, c.ID, tok1, true)
	require.NoError(t, err)
	assert.True(t, resolved.IsResolved)
	require.NotNil(t, resolved.ResolvedAt)

	reopened, err := inline.Resolve(ctx, c.ID, tok1, false)
	require.NoError(t, err)
	assert.False(t, reopened.IsResolved)
	assert.Nil(t, reopened.ResolvedAt)
}

func TestInlineService_ResolveWrongToken(t *testing.T) {
	_, _, inline, articles := newTestServices(t)
	ctx := context.Background()
	article := createPublishedArticle(t, articles)

	c, err := inline.Create(ctx, article.ID, inlineInput(tok1, 10, 20))
	require.NoError(t, err)

	_, err = inline.Resolve(ctx, c.ID, tok2, true)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	unchanged, err := inline.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, unchanged.IsResolved)
}

func TestInlineService_ListExcludesResolvedOnRequest(t *testing.T) {
	_, _, inline, articles := newTestServices(t)
	ctx := context.Background()
	article := createPublishedArticle(t, articles)

	open, err := inline.Create(ctx, article.ID, inlineInput(tok1, 10, 20))
	require.NoError(t, err)
	done, err := inline.Create(ctx, article.ID, inlineInput(tok2, 30, 40))
	require.NoError(t, err)
	_, err = inline.Resolve(ctx, done.ID, tok2, true)
	require.NoError(t, err)

	groups, total, err := inline.ListForArticle(ctx, article.ID, false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, groups, 1)
	assert.Equal(t, open.ID, groups[0].Comments[0].Node.ID)
}

func TestInlineService_SelectionValidation(t *testing.T) {
	_, _, inline, articles := newTestServices(t)
	ctx := context.Background()
	article := createPublishedArticle(t, articles)

	in := inlineInput(tok1, 20, 10)
	_, err := inline.Create(ctx, article.ID, in)
	assert.ErrorIs(t, err, domain.ErrValidation)

	in = inlineInput(tok1, -1, 10)
	_, err = inline.Create(ctx, article.ID, in)
	assert.ErrorIs(t, err, domain.ErrValidation)

	in = inlineInput(tok1, 10, 20)
	in.ContentHash = "short"
	_, err = inline.Create(ctx, article.ID, in)
	assert.ErrorIs(t, err, domain.ErrValidation)

	in = inlineInput(tok1, 10, 20)
	in.Selector = ""
	_, err = inline.Create(ctx, article.ID, in)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInlineService_SelectionCountsCharactersNotBytes(t *testing.T) {
	_, _, inline, articles := newTestServices(t)
	ctx := context.Background()
	article := createPublishedArticle(t, articles)

	// 3000 Cyrillic characters are 6000 bytes; the 5000 limit counts
	// characters, so this selection is valid.
	in := inlineInput(tok1, 10, 20)
	in.SelectedText = strings.Repeat("я", 3000)
	_, err := inline.Create(ctx, article.ID, in)
	assert.NoError(t, err)

	in = inlineInput(tok1, 30, 40)
	in.SelectedText = strings.Repeat("я", domain.MaxSelectedText+1)
	_, err = inline.Create(ctx, article.ID, in)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInlineService_SoftDeleteKeepsRepliesVisible(t *testing.T) {
	_, _, inline, articles := newTestServices(t)
	ctx := context.Background()
	article := createPublishedArticle(t, articles)

	root, err := inline.Create(ctx, article.ID, inlineInput(tok1, 10, 20))
	require.NoError(t, err)

	reply := inlineInput(tok2, 10, 20)
	reply.ParentID = &root.ID
	child, err := inline.Create(ctx, article.ID, reply)
	require.NoError(t, err)

	deleted, err := inline.Delete(ctx, root.ID, tok1)
	require.NoError(t, err)
	assert.True(t, deleted)

	groups, _, err := inline.ListForArticle(ctx, article.ID, true, false)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	g := groups[0].Comments[0]
	assert.Equal(t, domain.DeletedPlaceholder, g.Node.Content)
	assert.True(t, g.Node.IsDeleted)
	require.Len(t, g.Replies, 1)
	assert.Equal(t, child.ID, g.Replies[0].Node.ID)
}

func TestInlineService_HardDeleteChildless(t *testing.T) {
	_, _, inline, articles := newTestServices(t)
	ctx := context.Background()
	article := createPublishedArticle(t, articles)

	c, err := inline.Create(ctx, article.ID, inlineInput(tok1, 10, 20))
	require.NoError(t, err)

	deleted, err := inline.Delete(ctx, c.ID, tok1)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = inline.Get(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	groups, total, err := inline.ListForArticle(ctx, article.ID, true, false)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, groups)
}
