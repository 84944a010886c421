package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lggurgel/gurgelhub/internal/dataloader"
	"github.com/lggurgel/gurgelhub/internal/service"
)

// listArticles returns one page of articles. Comment counts are attached
// through the request's dataloaders, which batch them into one grouped
// query per comment kind regardless of page size.
func (h *Handler) listArticles(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "perPage", 10)
	publishedOnly := queryBool(r, "publishedOnly", true)

	articles, total, err := h.articles.List(r.Context(), page, perPage, publishedOnly)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	loaders := dataloader.For(r.Context())
	items := make([]*articleResponse, 0, len(articles))
	for _, article := range articles {
		item := &articleResponse{Article: article}
		if count, err := loaders.CommentCount(r.Context(), article.ID); err == nil {
			item.CommentCount = &count
		}
		if count, err := loaders.InlineCommentCount(r.Context(), article.ID); err == nil {
			item.InlineCommentCount = &count
		}
		items = append(items, item)
	}

	writeJSON(w, http.StatusOK, articleListResponse{
		Articles: items,
		Total:    total,
		Page:     page,
		PerPage:  perPage,
	})
}

func (h *Handler) createArticle(w http.ResponseWriter, r *http.Request) {
	var req createArticleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	article, err := h.articles.Create(r.Context(), service.CreateArticleInput{
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
		Content:     req.Content,
		Tags:        req.Tags,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, article)
}

func (h *Handler) getArticle(w http.ResponseWriter, r *http.Request) {
	article, err := h.articles.Get(r.Context(), chi.URLParam(r, "articleID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

// getArticleBySlug is the read path used by article pages; it also bumps
// the view counter.
func (h *Handler) getArticleBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	article, err := h.articles.GetBySlug(r.Context(), slug)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.articles.IncrementViewCount(r.Context(), slug); err != nil {
		h.log.Warn().Err(err).Str("slug", slug).Msg("failed to bump view count")
	}
	writeJSON(w, http.StatusOK, article)
}

func (h *Handler) updateArticle(w http.ResponseWriter, r *http.Request) {
	var req updateArticleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	article, err := h.articles.Update(r.Context(), chi.URLParam(r, "articleID"), service.UpdateArticleInput{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Tags:        req.Tags,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (h *Handler) deleteArticle(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.articles.Delete(r.Context(), chi.URLParam(r, "articleID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "article not found"})
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Deleted: true})
}

func (h *Handler) searchArticles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query parameter q is required"})
		return
	}

	result, err := h.search.Search(r.Context(), query, queryInt(r, "page", 1))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) suggestTitles(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.search.Suggest(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit", 5))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestionsResponse{Suggestions: suggestions})
}
