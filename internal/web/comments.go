package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lggurgel/gurgelhub/internal/domain"
	"github.com/lggurgel/gurgelhub/internal/service"
)

// listArticleComments returns one page of top-level threads for an article.
func (h *Handler) listArticleComments(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "articleID")
	if _, err := h.articles.Get(r.Context(), articleID); err != nil {
		writeError(w, h.log, err)
		return
	}

	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "perPage", service.DefaultCommentsPerPage)

	threads, total, err := h.comments.ListForArticle(r.Context(), articleID, page, perPage, false)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	comments := make([]*commentResponse, 0, len(threads))
	for _, t := range threads {
		comments = append(comments, toCommentThreadResponse(t))
	}
	writeJSON(w, http.StatusOK, commentTreeResponse{
		Comments: comments,
		Total:    total,
		Page:     page,
		PerPage:  perPage,
	})
}

// createComment adds a comment or reply to a published article.
func (h *Handler) createComment(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "articleID")

	var req createCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	comment, err := h.comments.Create(r.Context(), articleID, service.CreateCommentInput{
		ParentID:    req.ParentID,
		AuthorName:  req.AuthorName,
		AuthorToken: req.AuthorToken,
		Content:     req.Content,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCommentResponse(comment, 0))
}

// getComment returns a comment with its full reply tree.
func (h *Handler) getComment(w http.ResponseWriter, r *http.Request) {
	thread, err := h.comments.GetWithReplies(r.Context(), chi.URLParam(r, "commentID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommentThreadResponse(thread))
}

// updateComment edits a comment's content as its author.
func (h *Handler) updateComment(w http.ResponseWriter, r *http.Request) {
	var req updateCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	comment, err := h.comments.Update(r.Context(), chi.URLParam(r, "commentID"), req.AuthorToken, req.Content)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommentResponse(comment, 0))
}

// deleteComment deletes a comment as its author. The response does not
// reveal whether the comment existed when the token did not match.
func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	var req deleteCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	deleted, err := h.comments.Delete(r.Context(), chi.URLParam(r, "commentID"), req.AuthorToken)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if !deleted {
		writeError(w, h.log, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Deleted: true})
}

// commentStats returns the per-article comment counters.
func (h *Handler) commentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.articles.Stats(r.Context(), chi.URLParam(r, "articleID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func queryBool(r *http.Request, name string, fallback bool) bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
