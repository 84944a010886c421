package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lggurgel/gurgelhub/internal/domain"
	"github.com/lggurgel/gurgelhub/internal/storage"
)

// Store implements the Storage interface in memory. It is used by tests
// and by the dev server when no database is configured. A single RWMutex
// makes every mutation one atomic unit of work, mirroring the row-level
// guarantees of the postgres store.
type Store struct {
	mu sync.RWMutex

	articles       map[string]*domain.Article
	articlesBySlug map[string]string // map[slug]articleID

	comments          map[string]*domain.Comment
	commentsByArticle map[string][]string // map[articleID][]commentID
	commentsByParent  map[string][]string // map[parentID][]commentID

	inline          map[string]*domain.InlineComment
	inlineByArticle map[string][]string
	inlineByParent  map[string][]string
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		articles:          make(map[string]*domain.Article),
		articlesBySlug:    make(map[string]string),
		comments:          make(map[string]*domain.Comment),
		commentsByArticle: make(map[string][]string),
		commentsByParent:  make(map[string][]string),
		inline:            make(map[string]*domain.InlineComment),
		inlineByArticle:   make(map[string][]string),
		inlineByParent:    make(map[string][]string),
	}
}

// Every read and write boundary exchanges shallow copies: callers must
// never alias a struct the store still mutates under its write lock.

func copyArticle(a *domain.Article) *domain.Article {
	c := *a
	return &c
}

func copyComment(c *domain.Comment) *domain.Comment {
	cp := *c
	return &cp
}

func copyInline(c *domain.InlineComment) *domain.InlineComment {
	cp := *c
	return &cp
}

// === Article Methods ===

func (s *Store) CreateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.articlesBySlug[article.Slug]; ok {
		return nil, domain.ErrValidation
	}

	article.ID = uuid.NewString()
	article.CreatedAt = time.Now().UTC()
	s.articles[article.ID] = copyArticle(article)
	s.articlesBySlug[article.Slug] = article.ID
	return article, nil
}

func (s *Store) GetArticleByID(ctx context.Context, id string) (*domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	article, ok := s.articles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyArticle(article), nil
}

func (s *Store) GetArticleBySlug(ctx context.Context, slug string) (*domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.articlesBySlug[slug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyArticle(s.articles[id]), nil
}

func (s *Store) ListArticles(ctx context.Context, args storage.ListArgs, publishedOnly bool) ([]*domain.Article, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.Article, 0, len(s.articles))
	for _, a := range s.articles {
		if publishedOnly && !a.IsPublished {
			continue
		}
		all = append(all, a)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	start := args.Offset
	if start >= len(all) {
		return []*domain.Article{}, total, nil
	}
	end := start + args.Limit
	if end > len(all) {
		end = len(all)
	}

	page := make([]*domain.Article, 0, end-start)
	for _, a := range all[start:end] {
		page = append(page, copyArticle(a))
	}
	return page, total, nil
}

func (s *Store) UpdateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.articles[article.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if existing.Slug != article.Slug {
		delete(s.articlesBySlug, existing.Slug)
		s.articlesBySlug[article.Slug] = article.ID
	}
	now := time.Now().UTC()
	article.CreatedAt = existing.CreatedAt
	// The counter belongs to IncrementViewCount; a stale read must not
	// roll it back.
	article.ViewCount = existing.ViewCount
	article.UpdatedAt = &now
	s.articles[article.ID] = copyArticle(article)
	return article, nil
}

func (s *Store) DeleteArticle(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	article, ok := s.articles[id]
	if !ok {
		return false, nil
	}

	// Cascade: an article takes all of its comments with it.
	for _, cid := range s.commentsByArticle[id] {
		c := s.comments[cid]
		if c == nil {
			continue
		}
		if c.ParentID != nil {
			s.removeFromIndex(s.commentsByParent, *c.ParentID, cid)
		}
		delete(s.comments, cid)
		delete(s.commentsByParent, cid)
	}
	delete(s.commentsByArticle, id)

	for _, cid := range s.inlineByArticle[id] {
		c := s.inline[cid]
		if c == nil {
			continue
		}
		if c.ParentID != nil {
			s.removeFromIndex(s.inlineByParent, *c.ParentID, cid)
		}
		delete(s.inline, cid)
		delete(s.inlineByParent, cid)
	}
	delete(s.inlineByArticle, id)

	delete(s.articlesBySlug, article.Slug)
	delete(s.articles, id)
	return true, nil
}

func (s *Store) IncrementViewCount(ctx context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.articlesBySlug[slug]
	if !ok {
		return domain.ErrNotFound
	}
	s.articles[id].ViewCount++
	return nil
}

// === Search Methods ===

// SearchArticles is a naive substring fallback: real ranking lives in the
// postgres store. Good enough for dev and tests.
func (s *Store) SearchArticles(ctx context.Context, query string, args storage.ListArgs) ([]*domain.SearchHit, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []*domain.SearchHit{}, 0, nil
	}

	var hits []*domain.SearchHit
	for _, a := range s.articles {
		if !a.IsPublished {
			continue
		}
		if !strings.Contains(strings.ToLower(a.Title), q) &&
			!strings.Contains(strings.ToLower(a.Content), q) {
			continue
		}
		hits = append(hits, &domain.SearchHit{
			ID:          a.ID,
			Title:       a.Title,
			Slug:        a.Slug,
			Description: a.Description,
			Snippet:     snippet(a.Content, q),
			Tags:        a.Tags,
			PublishedAt: a.PublishedAt,
			ViewCount:   a.ViewCount,
			Relevance:   1,
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Title < hits[j].Title })

	total := len(hits)
	start := args.Offset
	if start >= len(hits) {
		return []*domain.SearchHit{}, total, nil
	}
	end := start + args.Limit
	if end > len(hits) {
		end = len(hits)
	}
	return hits[start:end], total, nil
}

func (s *Store) SuggestTitles(ctx context.Context, partial string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(partial))
	if q == "" {
		return []string{}, nil
	}

	var titles []string
	for _, a := range s.articles {
		if a.IsPublished && strings.Contains(strings.ToLower(a.Title), q) {
			titles = append(titles, a.Title)
		}
	}
	sort.Strings(titles)
	if len(titles) > limit {
		titles = titles[:limit]
	}
	return titles, nil
}

func snippet(content, q string) string {
	idx := strings.Index(strings.ToLower(content), q)
	if idx < 0 {
		idx = 0
	}
	end := idx + 150
	if end > len(content) {
		end = len(content)
	}
	return content[idx:end]
}

// === General Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.articles[comment.ArticleID]; !ok {
		return nil, domain.ErrNotFound
	}
	if comment.ParentID != nil {
		parent, ok := s.comments[*comment.ParentID]
		if !ok || parent.ArticleID != comment.ArticleID {
			return nil, domain.ErrInvalidParent
		}
	}

	comment.ID = uuid.NewString()
	comment.CreatedAt = time.Now().UTC()
	s.comments[comment.ID] = copyComment(comment)

	s.commentsByArticle[comment.ArticleID] = append(s.commentsByArticle[comment.ArticleID], comment.ID)
	if comment.ParentID != nil {
		s.commentsByParent[*comment.ParentID] = append(s.commentsByParent[*comment.ParentID], comment.ID)
	}
	return comment, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyComment(comment), nil
}

func (s *Store) GetCommentsByArticleID(ctx context.Context, articleID string, filter storage.CommentFilter) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.commentsByArticle[articleID]
	result := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		c, ok := s.comments[id]
		if !ok {
			continue
		}
		if c.IsDeleted && !filter.IncludeDeleted {
			// Soft-deleted rows stay loaded only when they anchor replies;
			// the tree assembler needs them to keep thread shape.
			if len(s.commentsByParent[c.ID]) == 0 {
				continue
			}
		}
		result = append(result, copyComment(c))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) CountTopLevelComments(ctx context.Context, articleID string, includeDeleted bool) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, id := range s.commentsByArticle[articleID] {
		c, ok := s.comments[id]
		if !ok || c.ParentID != nil {
			continue
		}
		if c.IsDeleted && !includeDeleted {
			continue
		}
		count++
	}
	return count, nil
}

func (s *Store) CountCommentsByArticleID(ctx context.Context, articleID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countForArticle(articleID), nil
}

func (s *Store) countForArticle(articleID string) int {
	count := 0
	for _, id := range s.commentsByArticle[articleID] {
		if c, ok := s.comments[id]; ok && !c.IsDeleted {
			count++
		}
	}
	return count
}

func (s *Store) UpdateComment(ctx context.Context, id, authorToken, content string) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if comment.AuthorToken != authorToken {
		return nil, domain.ErrUnauthorized
	}
	if comment.IsDeleted {
		return nil, domain.ErrValidation
	}

	now := time.Now().UTC()
	comment.Content = content
	comment.IsEdited = true
	comment.UpdatedAt = &now
	return copyComment(comment), nil
}

func (s *Store) DeleteComment(ctx context.Context, id, authorToken string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[id]
	if !ok {
		return false, nil
	}
	if comment.AuthorToken != authorToken {
		return false, nil
	}

	if len(s.commentsByParent[id]) > 0 {
		// Soft delete preserves thread shape below this node.
		now := time.Now().UTC()
		comment.IsDeleted = true
		comment.Content = domain.DeletedPlaceholder
		comment.AuthorName = nil
		comment.UpdatedAt = &now
		return true, nil
	}

	s.hardDeleteComment(comment)
	return true, nil
}

// hardDeleteComment removes a comment and recursively all descendants so
// the store never keeps orphans. Caller holds the write lock.
func (s *Store) hardDeleteComment(comment *domain.Comment) {
	// Snapshot: the recursion edits the index slices being walked.
	children := append([]string(nil), s.commentsByParent[comment.ID]...)
	for _, childID := range children {
		if child, ok := s.comments[childID]; ok {
			s.hardDeleteComment(child)
		}
	}
	delete(s.commentsByParent, comment.ID)
	if comment.ParentID != nil {
		s.removeFromIndex(s.commentsByParent, *comment.ParentID, comment.ID)
	}
	s.removeFromIndex(s.commentsByArticle, comment.ArticleID, comment.ID)
	delete(s.comments, comment.ID)
}

// === Inline Comment Methods ===

func (s *Store) CreateInlineComment(ctx context.Context, comment *domain.InlineComment) (*domain.InlineComment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.articles[comment.ArticleID]; !ok {
		return nil, domain.ErrNotFound
	}
	if comment.ParentID != nil {
		parent, ok := s.inline[*comment.ParentID]
		if !ok || parent.ArticleID != comment.ArticleID {
			return nil, domain.ErrInvalidParent
		}
	}

	comment.ID = uuid.NewString()
	comment.CreatedAt = time.Now().UTC()
	s.inline[comment.ID] = copyInline(comment)

	s.inlineByArticle[comment.ArticleID] = append(s.inlineByArticle[comment.ArticleID], comment.ID)
	if comment.ParentID != nil {
		s.inlineByParent[*comment.ParentID] = append(s.inlineByParent[*comment.ParentID], comment.ID)
	}
	return comment, nil
}

func (s *Store) GetInlineCommentByID(ctx context.Context, id string) (*domain.InlineComment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, ok := s.inline[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyInline(comment), nil
}

func (s *Store) GetInlineCommentsByArticleID(ctx context.Context, articleID string, filter storage.CommentFilter) ([]*domain.InlineComment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.inlineByArticle[articleID]
	result := make([]*domain.InlineComment, 0, len(ids))
	for _, id := range ids {
		c, ok := s.inline[id]
		if !ok {
			continue
		}
		if c.IsResolved && !filter.IncludeResolved {
			continue
		}
		if c.IsDeleted && !filter.IncludeDeleted {
			if len(s.inlineByParent[c.ID]) == 0 {
				continue
			}
		}
		result = append(result, copyInline(c))
	}

	// Selection order first, then age: grouping preserves this order.
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartOffset != result[j].StartOffset {
			return result[i].StartOffset < result[j].StartOffset
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) CountInlineCommentsByArticleID(ctx context.Context, articleID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countInlineForArticle(articleID), nil
}

func (s *Store) countInlineForArticle(articleID string) int {
	count := 0
	for _, id := range s.inlineByArticle[articleID] {
		if c, ok := s.inline[id]; ok && !c.IsDeleted {
			count++
		}
	}
	return count
}

func (s *Store) UpdateInlineComment(ctx context.Context, id, authorToken, content string) (*domain.InlineComment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.inline[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if comment.AuthorToken != authorToken {
		return nil, domain.ErrUnauthorized
	}
	if comment.IsDeleted {
		return nil, domain.ErrValidation
	}

	now := time.Now().UTC()
	comment.Content = content
	comment.IsEdited = true
	comment.UpdatedAt = &now
	return copyInline(comment), nil
}

func (s *Store) DeleteInlineComment(ctx context.Context, id, authorToken string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.inline[id]
	if !ok {
		return false, nil
	}
	if comment.AuthorToken != authorToken {
		return false, nil
	}

	if len(s.inlineByParent[id]) > 0 {
		now := time.Now().UTC()
		comment.IsDeleted = true
		comment.Content = domain.DeletedPlaceholder
		comment.AuthorName = nil
		comment.UpdatedAt = &now
		return true, nil
	}

	s.hardDeleteInline(comment)
	return true, nil
}

func (s *Store) hardDeleteInline(comment *domain.InlineComment) {
	children := append([]string(nil), s.inlineByParent[comment.ID]...)
	for _, childID := range children {
		if child, ok := s.inline[childID]; ok {
			s.hardDeleteInline(child)
		}
	}
	delete(s.inlineByParent, comment.ID)
	if comment.ParentID != nil {
		s.removeFromIndex(s.inlineByParent, *comment.ParentID, comment.ID)
	}
	s.removeFromIndex(s.inlineByArticle, comment.ArticleID, comment.ID)
	delete(s.inline, comment.ID)
}

func (s *Store) ResolveInlineComment(ctx context.Context, id, authorToken string, resolved bool) (*domain.InlineComment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.inline[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if comment.AuthorToken != authorToken {
		return nil, domain.ErrUnauthorized
	}

	comment.IsResolved = resolved
	if resolved {
		now := time.Now().UTC()
		comment.ResolvedAt = &now
	} else {
		comment.ResolvedAt = nil
	}
	return copyInline(comment), nil
}

// === Batch Methods ===

func (s *Store) CountCommentsByArticleIDs(ctx context.Context, articleIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]int, len(articleIDs))
	for _, id := range articleIDs {
		result[id] = s.countForArticle(id)
	}
	return result, nil
}

func (s *Store) CountInlineCommentsByArticleIDs(ctx context.Context, articleIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]int, len(articleIDs))
	for _, id := range articleIDs {
		result[id] = s.countInlineForArticle(id)
	}
	return result, nil
}

func (s *Store) removeFromIndex(index map[string][]string, key, id string) {
	ids := index[key]
	for i, existing := range ids {
		if existing == id {
			index[key] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}
