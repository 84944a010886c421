package web

import (
	"time"

	"github.com/lggurgel/gurgelhub/internal/domain"
	"github.com/lggurgel/gurgelhub/internal/service"
	"github.com/lggurgel/gurgelhub/internal/tree"
)

// === Requests ===

type createCommentRequest struct {
	ParentID    *string `json:"parentId,omitempty"`
	AuthorName  *string `json:"authorName,omitempty"`
	AuthorToken string  `json:"authorToken"`
	Content     string  `json:"content"`
}

type updateCommentRequest struct {
	AuthorToken string `json:"authorToken"`
	Content     string `json:"content"`
}

type deleteCommentRequest struct {
	AuthorToken string `json:"authorToken"`
}

type createInlineCommentRequest struct {
	ParentID     *string `json:"parentId,omitempty"`
	Selector     string  `json:"selector"`
	SelectedText string  `json:"selectedText"`
	StartOffset  int     `json:"startOffset"`
	EndOffset    int     `json:"endOffset"`
	ContentHash  string  `json:"contentHash"`
	AuthorName   *string `json:"authorName,omitempty"`
	AuthorToken  string  `json:"authorToken"`
	Content      string  `json:"content"`
}

type resolveInlineCommentRequest struct {
	AuthorToken string `json:"authorToken"`
	Resolved    bool   `json:"resolved"`
}

type createArticleRequest struct {
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Description *string  `json:"description,omitempty"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags,omitempty"`
	IsPublished bool     `json:"isPublished"`
}

type updateArticleRequest struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Content     *string  `json:"content,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	IsPublished *bool    `json:"isPublished,omitempty"`
}

// === Responses ===

// commentResponse is the wire shape of one comment node, nested replies
// included. A freshly created comment always reports ReplyCount 0: nothing
// can reply to it within the same request.
type commentResponse struct {
	ID         string             `json:"id"`
	ArticleID  string             `json:"articleId"`
	ParentID   *string            `json:"parentId,omitempty"`
	AuthorName *string            `json:"authorName,omitempty"`
	Content    string             `json:"content"`
	IsEdited   bool               `json:"isEdited"`
	IsDeleted  bool               `json:"isDeleted"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  *time.Time         `json:"updatedAt,omitempty"`
	ReplyCount int                `json:"replyCount"`
	Replies    []*commentResponse `json:"replies"`
}

type commentTreeResponse struct {
	Comments []*commentResponse `json:"comments"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	PerPage  int                `json:"perPage"`
}

type inlineCommentResponse struct {
	ID           string                   `json:"id"`
	ArticleID    string                   `json:"articleId"`
	ParentID     *string                  `json:"parentId,omitempty"`
	Selector     string                   `json:"selector"`
	SelectedText string                   `json:"selectedText"`
	StartOffset  int                      `json:"startOffset"`
	EndOffset    int                      `json:"endOffset"`
	ContentHash  string                   `json:"contentHash"`
	AuthorName   *string                  `json:"authorName,omitempty"`
	Content      string                   `json:"content"`
	IsResolved   bool                     `json:"isResolved"`
	IsEdited     bool                     `json:"isEdited"`
	IsDeleted    bool                     `json:"isDeleted"`
	CreatedAt    time.Time                `json:"createdAt"`
	UpdatedAt    *time.Time               `json:"updatedAt,omitempty"`
	ResolvedAt   *time.Time               `json:"resolvedAt,omitempty"`
	ReplyCount   int                      `json:"replyCount"`
	Replies      []*inlineCommentResponse `json:"replies"`
}

type inlineCommentGroupResponse struct {
	Selector     string                   `json:"selector"`
	SelectedText string                   `json:"selectedText"`
	StartOffset  int                      `json:"startOffset"`
	EndOffset    int                      `json:"endOffset"`
	Comments     []*inlineCommentResponse `json:"comments"`
	TotalCount   int                      `json:"totalCount"`
}

type inlineCommentsResponse struct {
	Groups []*inlineCommentGroupResponse `json:"groups"`
	Total  int                           `json:"total"`
}

type articleResponse struct {
	*domain.Article
	CommentCount       *int `json:"commentCount,omitempty"`
	InlineCommentCount *int `json:"inlineCommentCount,omitempty"`
}

type articleListResponse struct {
	Articles []*articleResponse `json:"articles"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	PerPage  int                `json:"perPage"`
}

type suggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

type deletedResponse struct {
	Deleted bool `json:"deleted"`
}

// === Converters ===

func toCommentResponse(c *domain.Comment, replyCount int) *commentResponse {
	authorName := c.AuthorName
	if c.IsDeleted {
		authorName = nil
	}
	return &commentResponse{
		ID:         c.ID,
		ArticleID:  c.ArticleID,
		ParentID:   c.ParentID,
		AuthorName: authorName,
		Content:    c.Content,
		IsEdited:   c.IsEdited,
		IsDeleted:  c.IsDeleted,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
		ReplyCount: replyCount,
		Replies:    []*commentResponse{},
	}
}

func toCommentThreadResponse(t *tree.Thread[*domain.Comment]) *commentResponse {
	resp := toCommentResponse(t.Node, t.ReplyCount)
	for _, reply := range t.Replies {
		resp.Replies = append(resp.Replies, toCommentThreadResponse(reply))
	}
	return resp
}

func toInlineCommentResponse(c *domain.InlineComment, replyCount int) *inlineCommentResponse {
	authorName := c.AuthorName
	if c.IsDeleted {
		authorName = nil
	}
	return &inlineCommentResponse{
		ID:           c.ID,
		ArticleID:    c.ArticleID,
		ParentID:     c.ParentID,
		Selector:     c.Selector,
		SelectedText: c.SelectedText,
		StartOffset:  c.StartOffset,
		EndOffset:    c.EndOffset,
		ContentHash:  c.ContentHash,
		AuthorName:   authorName,
		Content:      c.Content,
		IsResolved:   c.IsResolved,
		IsEdited:     c.IsEdited,
		IsDeleted:    c.IsDeleted,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		ResolvedAt:   c.ResolvedAt,
		ReplyCount:   replyCount,
		Replies:      []*inlineCommentResponse{},
	}
}

func toInlineThreadResponse(t *tree.Thread[*domain.InlineComment]) *inlineCommentResponse {
	resp := toInlineCommentResponse(t.Node, t.ReplyCount)
	for _, reply := range t.Replies {
		resp.Replies = append(resp.Replies, toInlineThreadResponse(reply))
	}
	return resp
}

func toInlineGroupResponse(g *service.InlineCommentGroup) *inlineCommentGroupResponse {
	comments := make([]*inlineCommentResponse, 0, len(g.Comments))
	for _, t := range g.Comments {
		comments = append(comments, toInlineThreadResponse(t))
	}
	return &inlineCommentGroupResponse{
		Selector:     g.Selector,
		SelectedText: g.SelectedText,
		StartOffset:  g.StartOffset,
		EndOffset:    g.EndOffset,
		Comments:     comments,
		TotalCount:   g.TotalCount,
	}
}
