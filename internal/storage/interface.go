package storage

import (
	"context"

	"github.com/lggurgel/gurgelhub/internal/domain"
)

// ListArgs carries offset pagination for article listings.
type ListArgs struct {
	Offset int
	Limit  int
}

// CommentFilter narrows flat comment loads per article.
type CommentFilter struct {
	// IncludeDeleted keeps soft-deleted rows in the result. Listings always
	// load them so that deleted comments anchoring replies stay visible;
	// the tree assembler elides deleted leaves afterwards.
	IncludeDeleted bool
	// IncludeResolved only applies to inline comments.
	IncludeResolved bool
}

// Storage is the entity store contract. Every mutating call is one atomic
// unit of work: token and existence are re-checked inside the same
// transaction as the write, so concurrent edit/delete on one comment
// cannot interleave a partial write.
type Storage interface {
	// Articles
	CreateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error)
	GetArticleByID(ctx context.Context, id string) (*domain.Article, error)
	GetArticleBySlug(ctx context.Context, slug string) (*domain.Article, error)
	ListArticles(ctx context.Context, args ListArgs, publishedOnly bool) ([]*domain.Article, int, error)
	UpdateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error)
	DeleteArticle(ctx context.Context, id string) (bool, error)
	IncrementViewCount(ctx context.Context, slug string) error

	// Full-text search. Ranking is delegated to the backing store.
	SearchArticles(ctx context.Context, query string, args ListArgs) ([]*domain.SearchHit, int, error)
	SuggestTitles(ctx context.Context, partial string, limit int) ([]string, error)

	// General comments
	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	GetCommentByID(ctx context.Context, id string) (*domain.Comment, error)
	GetCommentsByArticleID(ctx context.Context, articleID string, filter CommentFilter) ([]*domain.Comment, error)
	CountTopLevelComments(ctx context.Context, articleID string, includeDeleted bool) (int, error)
	CountCommentsByArticleID(ctx context.Context, articleID string) (int, error)
	// UpdateComment rewrites content after matching the author token.
	// Fails with domain.ErrUnauthorized on token mismatch and
	// domain.ErrValidation when the comment is soft-deleted.
	UpdateComment(ctx context.Context, id, authorToken, content string) (*domain.Comment, error)
	// DeleteComment soft-deletes when the comment has replies, otherwise
	// removes the row (cascading to any descendants so no orphans remain).
	// Returns false on not-found or token mismatch.
	DeleteComment(ctx context.Context, id, authorToken string) (bool, error)

	// Inline comments
	CreateInlineComment(ctx context.Context, comment *domain.InlineComment) (*domain.InlineComment, error)
	GetInlineCommentByID(ctx context.Context, id string) (*domain.InlineComment, error)
	// GetInlineCommentsByArticleID returns the flat set ordered by
	// (start_offset, created_at) so grouping preserves selection order.
	GetInlineCommentsByArticleID(ctx context.Context, articleID string, filter CommentFilter) ([]*domain.InlineComment, error)
	CountInlineCommentsByArticleID(ctx context.Context, articleID string) (int, error)
	UpdateInlineComment(ctx context.Context, id, authorToken, content string) (*domain.InlineComment, error)
	DeleteInlineComment(ctx context.Context, id, authorToken string) (bool, error)
	// ResolveInlineComment toggles resolution; only the token of that
	// comment node (not a thread ancestor) is accepted.
	ResolveInlineComment(ctx context.Context, id, authorToken string, resolved bool) (*domain.InlineComment, error)

	// Batch lookups for per-request dataloaders.
	CountCommentsByArticleIDs(ctx context.Context, articleIDs []string) (map[string]int, error)
	CountInlineCommentsByArticleIDs(ctx context.Context, articleIDs []string) (map[string]int, error)
}
