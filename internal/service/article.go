package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lggurgel/gurgelhub/internal/domain"
	"github.com/lggurgel/gurgelhub/internal/storage"
)

// ArticleService is a thin collaborator around the article store: CRUD,
// listing and the publish transition. The comment services only consult it
// indirectly through the article rows it maintains.
type ArticleService struct {
	store storage.Storage
	log   zerolog.Logger
}

// NewArticleService creates a new article service.
func NewArticleService(store storage.Storage, log zerolog.Logger) *ArticleService {
	return &ArticleService{
		store: store,
		log:   log.With().Str("component", "article_service").Logger(),
	}
}

// CreateArticleInput carries a new article.
type CreateArticleInput struct {
	Title       string
	Slug        string
	Description *string
	Content     string
	Tags        []string
	IsPublished bool
}

// UpdateArticleInput carries a partial article update; nil fields are
// left untouched.
type UpdateArticleInput struct {
	Title       *string
	Description *string
	Content     *string
	Tags        []string
	IsPublished *bool
}

// CommentStats is the per-article comment statistics pair.
type CommentStats struct {
	Comments       int `json:"comments"`
	InlineComments int `json:"inlineComments"`
}

// Create stores a new article; publishing at creation stamps PublishedAt.
func (s *ArticleService) Create(ctx context.Context, in CreateArticleInput) (*domain.Article, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Slug) == "" {
		return nil, fmt.Errorf("%w: title and slug are required", domain.ErrValidation)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", domain.ErrValidation)
	}

	article := &domain.Article{
		Title:       in.Title,
		Slug:        in.Slug,
		Description: in.Description,
		Content:     in.Content,
		Tags:        in.Tags,
		IsPublished: in.IsPublished,
	}
	if in.IsPublished {
		now := time.Now().UTC()
		article.PublishedAt = &now
	}

	created, err := s.store.CreateArticle(ctx, article)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("article_id", created.ID).Str("slug", created.Slug).Msg("article created")
	return created, nil
}

// Get returns an article by id.
func (s *ArticleService) Get(ctx context.Context, id string) (*domain.Article, error) {
	return s.store.GetArticleByID(ctx, id)
}

// GetBySlug returns an article by its slug.
func (s *ArticleService) GetBySlug(ctx context.Context, slug string) (*domain.Article, error) {
	return s.store.GetArticleBySlug(ctx, slug)
}

// List returns one page of articles, newest first, plus the total count.
func (s *ArticleService) List(ctx context.Context, page, perPage int, publishedOnly bool) ([]*domain.Article, int, error) {
	page, perPage = normalizePage(page, perPage)
	return s.store.ListArticles(ctx, storage.ListArgs{
		Offset: (page - 1) * perPage,
		Limit:  perPage,
	}, publishedOnly)
}

// Update applies a partial update. Flipping IsPublished from false to true
// stamps PublishedAt once.
func (s *ArticleService) Update(ctx context.Context, id string, in UpdateArticleInput) (*domain.Article, error) {
	article, err := s.store.GetArticleByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		article.Title = *in.Title
	}
	if in.Description != nil {
		article.Description = in.Description
	}
	if in.Content != nil {
		article.Content = *in.Content
	}
	if in.Tags != nil {
		article.Tags = in.Tags
	}
	if in.IsPublished != nil {
		if *in.IsPublished && !article.IsPublished {
			now := time.Now().UTC()
			article.PublishedAt = &now
		}
		article.IsPublished = *in.IsPublished
	}

	return s.store.UpdateArticle(ctx, article)
}

// Delete removes an article; the store cascades to its comments.
func (s *ArticleService) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.store.DeleteArticle(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.log.Info().Str("article_id", id).Msg("article deleted")
	}
	return deleted, nil
}

// IncrementViewCount bumps the view counter for a slug.
func (s *ArticleService) IncrementViewCount(ctx context.Context, slug string) error {
	return s.store.IncrementViewCount(ctx, slug)
}

// Stats returns the comment counts for one article.
func (s *ArticleService) Stats(ctx context.Context, articleID string) (*CommentStats, error) {
	if _, err := s.store.GetArticleByID(ctx, articleID); err != nil {
		return nil, err
	}

	comments, err := s.store.CountCommentsByArticleID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	inline, err := s.store.CountInlineCommentsByArticleID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	return &CommentStats{Comments: comments, InlineComments: inline}, nil
}
