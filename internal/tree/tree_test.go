package tree

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lggurgel/gurgelhub/internal/domain"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newComment(id string, parentID *string, minuteOffset int, deleted bool) *domain.Comment {
	return &domain.Comment{
		ID:        id,
		ArticleID: "article-1",
		ParentID:  parentID,
		Content:   "content of " + id,
		IsDeleted: deleted,
		CreatedAt: base.Add(time.Duration(minuteOffset) * time.Minute),
	}
}

func ptr(s string) *string { return &s }

func flatIDs(threads []*Thread[*domain.Comment]) []string {
	var ids []string
	var walk func(t *Thread[*domain.Comment])
	walk = func(t *Thread[*domain.Comment]) {
		ids = append(ids, t.Node.ID)
		for _, r := range t.Replies {
			walk(r)
		}
	}
	for _, t := range threads {
		walk(t)
	}
	return ids
}

func TestAssemble_BasicNesting(t *testing.T) {
	flat := []*domain.Comment{
		newComment("root", nil, 0, false),
		newComment("reply-late", ptr("root"), 20, false),
		newComment("reply-early", ptr("root"), 10, false),
		newComment("nested", ptr("reply-early"), 15, false),
	}

	threads := Assemble(flat)
	require.Len(t, threads, 1)

	root := threads[0]
	assert.Equal(t, "root", root.Node.ID)
	assert.Equal(t, 2, root.ReplyCount)

	// Replies sorted oldest first regardless of input order.
	require.Len(t, root.Replies, 2)
	assert.Equal(t, "reply-early", root.Replies[0].Node.ID)
	assert.Equal(t, "reply-late", root.Replies[1].Node.ID)

	require.Len(t, root.Replies[0].Replies, 1)
	assert.Equal(t, "nested", root.Replies[0].Replies[0].Node.ID)
}

func TestAssemble_OrderIndependent(t *testing.T) {
	flat := []*domain.Comment{
		newComment("a", nil, 0, false),
		newComment("a1", ptr("a"), 1, false),
		newComment("a2", ptr("a"), 2, false),
		newComment("a1x", ptr("a1"), 3, false),
		newComment("a1y", ptr("a1"), 4, false),
		newComment("a2x", ptr("a2"), 5, false),
	}

	want := flatIDs(Assemble(flat))

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]*domain.Comment(nil), flat...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, want, flatIDs(Assemble(shuffled)))
	}
}

func TestAssemble_DeletedLeafElided(t *testing.T) {
	flat := []*domain.Comment{
		newComment("root", nil, 0, false),
		newComment("gone", ptr("root"), 1, true),
		newComment("kept", ptr("root"), 2, false),
	}

	threads := Assemble(flat)
	require.Len(t, threads, 1)
	assert.Equal(t, 1, threads[0].ReplyCount)
	assert.NotContains(t, flatIDs(threads), "gone")
}

func TestAssemble_DeletedWithSurvivingChildKept(t *testing.T) {
	flat := []*domain.Comment{
		newComment("root", nil, 0, true),
		newComment("child", ptr("root"), 1, false),
	}

	threads := Assemble(flat)
	require.Len(t, threads, 1)
	assert.True(t, threads[0].Node.IsDeleted)
	require.Len(t, threads[0].Replies, 1)
	assert.Equal(t, "child", threads[0].Replies[0].Node.ID)
}

func TestAssemble_DeletedChainCollapses(t *testing.T) {
	// A deleted node whose only subtree is also deleted vanishes entirely.
	flat := []*domain.Comment{
		newComment("root", nil, 0, false),
		newComment("mid", ptr("root"), 1, true),
		newComment("leaf", ptr("mid"), 2, true),
	}

	threads := Assemble(flat)
	require.Len(t, threads, 1)
	assert.Empty(t, threads[0].Replies)
	assert.Equal(t, 0, threads[0].ReplyCount)
}

func TestAssemble_OrphanTreatedAsRoot(t *testing.T) {
	// Parent not in the loaded set: the node becomes a root instead of
	// silently disappearing.
	flat := []*domain.Comment{
		newComment("stray", ptr("missing-parent"), 0, false),
	}

	threads := Assemble(flat)
	require.Len(t, threads, 1)
	assert.Equal(t, "stray", threads[0].Node.ID)
}

func TestAssemble_DeletedRootWithoutChildrenElided(t *testing.T) {
	flat := []*domain.Comment{
		newComment("gone", nil, 0, true),
		newComment("kept", nil, 1, false),
	}

	threads := Assemble(flat)
	require.Len(t, threads, 1)
	assert.Equal(t, "kept", threads[0].Node.ID)
}

func TestExpand_RootedAtArbitraryNode(t *testing.T) {
	flat := []*domain.Comment{
		newComment("root", nil, 0, false),
		newComment("mid", ptr("root"), 1, false),
		newComment("leaf", ptr("mid"), 2, false),
	}

	children := ChildrenMap(flat)
	thread := Expand(flat[1], children)
	require.NotNil(t, thread)
	assert.Equal(t, "mid", thread.Node.ID)
	require.Len(t, thread.Replies, 1)
	assert.Equal(t, "leaf", thread.Replies[0].Node.ID)
}

func TestCountDescendants(t *testing.T) {
	flat := []*domain.Comment{
		newComment("a", nil, 0, false),
		newComment("a1", ptr("a"), 1, false),
		newComment("a2", ptr("a"), 2, false),
		newComment("a1x", ptr("a1"), 3, false),
	}

	children := ChildrenMap(flat)
	assert.Equal(t, 3, CountDescendants("a", children))
	assert.Equal(t, 1, CountDescendants("a1", children))
	assert.Equal(t, 0, CountDescendants("a1x", children))
	assert.Equal(t, 0, CountDescendants("unknown", children))
}

func TestAssemble_EmptyInput(t *testing.T) {
	assert.Empty(t, Assemble([]*domain.Comment{}))
}
