package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/lggurgel/gurgelhub/internal/domain"
	"github.com/lggurgel/gurgelhub/internal/storage"
	"github.com/lggurgel/gurgelhub/internal/tree"
)

// InlineCommentService manages comments anchored to text selections. It
// shares the threading and delete rules of CommentService and adds the
// resolve workflow plus grouping by selection.
type InlineCommentService struct {
	store storage.Storage
	log   zerolog.Logger
}

// NewInlineCommentService creates a new inline comment service.
func NewInlineCommentService(store storage.Storage, log zerolog.Logger) *InlineCommentService {
	return &InlineCommentService{
		store: store,
		log:   log.With().Str("component", "inline_comment_service").Logger(),
	}
}

// CreateInlineCommentInput carries a new inline comment. Selection fields
// are required for top-level comments and inherited conceptually by
// replies, which still record the same selection as their parent thread.
type CreateInlineCommentInput struct {
	ParentID     *string
	Selector     string
	SelectedText string
	StartOffset  int
	EndOffset    int
	ContentHash  string
	AuthorName   *string
	AuthorToken  string
	Content      string
}

// InlineCommentGroup is one text selection with every top-level comment
// made on it, each carrying its assembled reply tree. TotalCount covers
// full subtrees, not just immediate replies.
type InlineCommentGroup struct {
	Selector     string
	SelectedText string
	StartOffset  int
	EndOffset    int
	Comments     []*tree.Thread[*domain.InlineComment]
	TotalCount   int
}

type selectionKey struct {
	selector string
	start    int
	end      int
}

// Create adds an inline comment to a published article.
func (s *InlineCommentService) Create(ctx context.Context, articleID string, in CreateInlineCommentInput) (*domain.InlineComment, error) {
	if err := validateContent(in.Content); err != nil {
		return nil, err
	}
	if err := validateToken(in.AuthorToken); err != nil {
		return nil, err
	}
	if err := validateAuthorName(in.AuthorName); err != nil {
		return nil, err
	}
	if err := validateSelection(in); err != nil {
		return nil, err
	}

	article, err := s.store.GetArticleByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if !article.IsPublished {
		return nil, domain.ErrNotFound
	}

	comment, err := s.store.CreateInlineComment(ctx, &domain.InlineComment{
		ArticleID:    articleID,
		ParentID:     in.ParentID,
		Selector:     in.Selector,
		SelectedText: in.SelectedText,
		StartOffset:  in.StartOffset,
		EndOffset:    in.EndOffset,
		ContentHash:  in.ContentHash,
		AuthorName:   in.AuthorName,
		AuthorToken:  in.AuthorToken,
		Content:      in.Content,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create inline comment: %w", err)
	}

	s.log.Debug().
		Str("comment_id", comment.ID).
		Str("article_id", articleID).
		Str("selector", comment.Selector).
		Msg("inline comment created")
	return comment, nil
}

// Get returns a single inline comment without replies.
func (s *InlineCommentService) Get(ctx context.Context, id string) (*domain.InlineComment, error) {
	return s.store.GetInlineCommentByID(ctx, id)
}

// GetWithReplies returns the thread rooted at the given inline comment.
func (s *InlineCommentService) GetWithReplies(ctx context.Context, id string) (*tree.Thread[*domain.InlineComment], error) {
	comment, err := s.store.GetInlineCommentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	flat, err := s.store.GetInlineCommentsByArticleID(ctx, comment.ArticleID, storage.CommentFilter{IncludeResolved: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load inline comments: %w", err)
	}

	thread := tree.Expand(comment, tree.ChildrenMap(flat))
	if thread == nil {
		return nil, domain.ErrNotFound
	}
	return thread, nil
}

// ListForArticle returns the article's inline comments grouped by text
// selection, in first-seen order of the (selector, start, end) triple over
// comments sorted by (start_offset, created_at). Each group's total counts
// every comment in its threads, descendants included. The second return
// value is the sum of all group totals.
func (s *InlineCommentService) ListForArticle(ctx context.Context, articleID string, includeResolved, includeDeleted bool) ([]*InlineCommentGroup, int, error) {
	flat, err := s.store.GetInlineCommentsByArticleID(ctx, articleID, storage.CommentFilter{
		IncludeResolved: includeResolved,
		IncludeDeleted:  includeDeleted,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load inline comments: %w", err)
	}

	children := tree.ChildrenMap(flat)

	groups := []*InlineCommentGroup{}
	byKey := make(map[selectionKey]*InlineCommentGroup)

	for _, c := range flat {
		if c.ParentID != nil {
			continue // replies never form their own group
		}

		thread := tree.Expand(c, children)
		if thread == nil {
			continue
		}

		key := selectionKey{selector: c.Selector, start: c.StartOffset, end: c.EndOffset}
		group, ok := byKey[key]
		if !ok {
			group = &InlineCommentGroup{
				Selector:     c.Selector,
				SelectedText: c.SelectedText,
				StartOffset:  c.StartOffset,
				EndOffset:    c.EndOffset,
			}
			byKey[key] = group
			groups = append(groups, group)
		}

		group.Comments = append(group.Comments, thread)
		group.TotalCount += 1 + tree.CountDescendants(c.ID, children)
	}

	total := 0
	for _, g := range groups {
		total += g.TotalCount
	}
	return groups, total, nil
}

// Update rewrites an inline comment's content when the author token
// matches. Deleted comments cannot be edited.
func (s *InlineCommentService) Update(ctx context.Context, id, authorToken, content string) (*domain.InlineComment, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}
	if err := validateToken(authorToken); err != nil {
		return nil, err
	}
	return s.store.UpdateInlineComment(ctx, id, authorToken, content)
}

// Resolve toggles the resolution state of one inline comment. Only the
// token of that comment node is accepted, never a thread ancestor's.
func (s *InlineCommentService) Resolve(ctx context.Context, id, authorToken string, resolved bool) (*domain.InlineComment, error) {
	if err := validateToken(authorToken); err != nil {
		return nil, err
	}
	return s.store.ResolveInlineComment(ctx, id, authorToken, resolved)
}

// Delete removes an inline comment with the same soft/hard policy as
// general comments.
func (s *InlineCommentService) Delete(ctx context.Context, id, authorToken string) (bool, error) {
	deleted, err := s.store.DeleteInlineComment(ctx, id, authorToken)
	if err != nil {
		return false, err
	}
	if deleted {
		s.log.Debug().Str("comment_id", id).Msg("inline comment deleted")
	}
	return deleted, nil
}

// CountForArticle counts the non-deleted inline comments of an article.
func (s *InlineCommentService) CountForArticle(ctx context.Context, articleID string) (int, error) {
	return s.store.CountInlineCommentsByArticleID(ctx, articleID)
}

func validateSelection(in CreateInlineCommentInput) error {
	if in.Selector == "" || utf8.RuneCountInString(in.Selector) > domain.MaxSelectorLength {
		return fmt.Errorf("%w: selector must be 1-%d characters", domain.ErrValidation,
			domain.MaxSelectorLength)
	}
	if in.SelectedText == "" || utf8.RuneCountInString(in.SelectedText) > domain.MaxSelectedText {
		return fmt.Errorf("%w: selected text must be 1-%d characters", domain.ErrValidation,
			domain.MaxSelectedText)
	}
	if in.StartOffset < 0 || in.EndOffset < 0 {
		return fmt.Errorf("%w: offsets cannot be negative", domain.ErrValidation)
	}
	if in.StartOffset >= in.EndOffset {
		return fmt.Errorf("%w: start offset must be before end offset", domain.ErrValidation)
	}
	if n := utf8.RuneCountInString(in.ContentHash); n < domain.MinTokenLength || n > domain.MaxTokenLength {
		return fmt.Errorf("%w: content hash must be %d-%d characters", domain.ErrValidation,
			domain.MinTokenLength, domain.MaxTokenLength)
	}
	return nil
}
