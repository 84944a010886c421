package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/lggurgel/gurgelhub/internal/domain"
	"github.com/lggurgel/gurgelhub/internal/storage"
	"github.com/lggurgel/gurgelhub/internal/tree"
)

// Pagination defaults for top-level comment threads.
const (
	DefaultCommentsPerPage = 20
	MaxCommentsPerPage     = 100
)

// CommentService holds the business rules for general article comments:
// validation, token authorization, the soft/hard delete policy and tree
// assembly. It keeps no state between calls.
type CommentService struct {
	store storage.Storage
	log   zerolog.Logger
}

// NewCommentService creates a new comment service.
func NewCommentService(store storage.Storage, log zerolog.Logger) *CommentService {
	return &CommentService{
		store: store,
		log:   log.With().Str("component", "comment_service").Logger(),
	}
}

// CreateCommentInput carries everything needed to create a comment or a
// reply. AuthorToken is the opaque capability that later authorizes edit
// and delete; it is never interpreted beyond its length.
type CreateCommentInput struct {
	ParentID    *string
	AuthorName  *string
	AuthorToken string
	Content     string
}

// Create adds a comment to a published article. ParentID, when set, must
// reference a comment of the same article.
func (s *CommentService) Create(ctx context.Context, articleID string, in CreateCommentInput) (*domain.Comment, error) {
	if err := validateContent(in.Content); err != nil {
		return nil, err
	}
	if err := validateToken(in.AuthorToken); err != nil {
		return nil, err
	}
	if err := validateAuthorName(in.AuthorName); err != nil {
		return nil, err
	}

	article, err := s.store.GetArticleByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if !article.IsPublished {
		return nil, domain.ErrNotFound
	}

	comment, err := s.store.CreateComment(ctx, &domain.Comment{
		ArticleID:   articleID,
		ParentID:    in.ParentID,
		AuthorName:  in.AuthorName,
		AuthorToken: in.AuthorToken,
		Content:     in.Content,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.log.Debug().Str("comment_id", comment.ID).Str("article_id", articleID).Msg("comment created")
	return comment, nil
}

// Get returns a single comment without replies.
func (s *CommentService) Get(ctx context.Context, id string) (*domain.Comment, error) {
	return s.store.GetCommentByID(ctx, id)
}

// GetWithReplies returns the thread rooted at the given comment. The whole
// flat set of the comment's article is loaded once; no per-node queries.
func (s *CommentService) GetWithReplies(ctx context.Context, id string) (*tree.Thread[*domain.Comment], error) {
	comment, err := s.store.GetCommentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	flat, err := s.store.GetCommentsByArticleID(ctx, comment.ArticleID, storage.CommentFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load article comments: %w", err)
	}

	thread := tree.Expand(comment, tree.ChildrenMap(flat))
	if thread == nil {
		// A deleted comment with no surviving replies is gone for readers.
		return nil, domain.ErrNotFound
	}
	return thread, nil
}

// ListForArticle returns one page of top-level threads plus the total
// top-level count. Pagination slices the top-level list before assembly;
// top-level order is newest first, replies inside each tree stay oldest
// first.
func (s *CommentService) ListForArticle(ctx context.Context, articleID string, page, perPage int, includeDeleted bool) ([]*tree.Thread[*domain.Comment], int, error) {
	page, perPage = normalizePage(page, perPage)

	total, err := s.store.CountTopLevelComments(ctx, articleID, includeDeleted)
	if err != nil {
		return nil, 0, err
	}

	flat, err := s.store.GetCommentsByArticleID(ctx, articleID, storage.CommentFilter{IncludeDeleted: includeDeleted})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load article comments: %w", err)
	}

	children := tree.ChildrenMap(flat)

	var roots []*domain.Comment
	for _, c := range flat {
		if c.ParentID == nil {
			roots = append(roots, c)
		}
	}
	sort.SliceStable(roots, func(i, j int) bool {
		return roots[i].CreatedAt.After(roots[j].CreatedAt)
	})

	start := (page - 1) * perPage
	if start >= len(roots) {
		return []*tree.Thread[*domain.Comment]{}, total, nil
	}
	end := start + perPage
	if end > len(roots) {
		end = len(roots)
	}

	threads := make([]*tree.Thread[*domain.Comment], 0, end-start)
	for _, root := range roots[start:end] {
		if t := tree.Expand(root, children); t != nil {
			threads = append(threads, t)
		}
	}
	return threads, total, nil
}

// Update rewrites a comment's content when the author token matches. The
// token check happens inside the store transaction, so a concurrent delete
// fails the edit instead of corrupting state. Deleted comments cannot be
// edited.
func (s *CommentService) Update(ctx context.Context, id, authorToken, content string) (*domain.Comment, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}
	if err := validateToken(authorToken); err != nil {
		return nil, err
	}
	return s.store.UpdateComment(ctx, id, authorToken, content)
}

// Delete removes a comment as its author. Comments with replies are
// soft-deleted so the thread keeps its shape; childless comments lose
// their row entirely. Returns false when the comment is missing or the
// token does not match, without telling which.
func (s *CommentService) Delete(ctx context.Context, id, authorToken string) (bool, error) {
	deleted, err := s.store.DeleteComment(ctx, id, authorToken)
	if err != nil {
		return false, err
	}
	if deleted {
		s.log.Debug().Str("comment_id", id).Msg("comment deleted")
	}
	return deleted, nil
}

// CountForArticle counts the non-deleted comments of an article.
func (s *CommentService) CountForArticle(ctx context.Context, articleID string) (int, error) {
	return s.store.CountCommentsByArticleID(ctx, articleID)
}

// === Shared validation ===

// Bounds are character counts, not byte counts: multibyte content must
// not hit the limit early.

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content cannot be empty", domain.ErrValidation)
	}
	if n := utf8.RuneCountInString(content); n < domain.MinContentLength || n > domain.MaxContentLength {
		return fmt.Errorf("%w: content must be %d-%d characters", domain.ErrValidation,
			domain.MinContentLength, domain.MaxContentLength)
	}
	return nil
}

func validateToken(token string) error {
	if n := utf8.RuneCountInString(token); n < domain.MinTokenLength || n > domain.MaxTokenLength {
		return fmt.Errorf("%w: author token must be %d-%d characters", domain.ErrValidation,
			domain.MinTokenLength, domain.MaxTokenLength)
	}
	return nil
}

func validateAuthorName(name *string) error {
	if name == nil {
		return nil
	}
	if *name == "" || utf8.RuneCountInString(*name) > domain.MaxAuthorNameLen {
		return fmt.Errorf("%w: author name must be 1-%d characters", domain.ErrValidation,
			domain.MaxAuthorNameLen)
	}
	return nil
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultCommentsPerPage
	}
	if perPage > MaxCommentsPerPage {
		perPage = MaxCommentsPerPage
	}
	return page, perPage
}
