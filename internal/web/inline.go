package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lggurgel/gurgelhub/internal/domain"
	"github.com/lggurgel/gurgelhub/internal/service"
)

// listInlineComments returns the article's inline comments grouped by text
// selection. includeResolved defaults to true, includeDeleted to false.
func (h *Handler) listInlineComments(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "articleID")
	if _, err := h.articles.Get(r.Context(), articleID); err != nil {
		writeError(w, h.log, err)
		return
	}

	includeResolved := queryBool(r, "includeResolved", true)
	includeDeleted := queryBool(r, "includeDeleted", false)

	groups, total, err := h.inline.ListForArticle(r.Context(), articleID, includeResolved, includeDeleted)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	groupResponses := make([]*inlineCommentGroupResponse, 0, len(groups))
	for _, g := range groups {
		groupResponses = append(groupResponses, toInlineGroupResponse(g))
	}
	writeJSON(w, http.StatusOK, inlineCommentsResponse{Groups: groupResponses, Total: total})
}

// createInlineComment anchors a new comment to a text selection.
func (h *Handler) createInlineComment(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "articleID")

	var req createInlineCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	comment, err := h.inline.Create(r.Context(), articleID, service.CreateInlineCommentInput{
		ParentID:     req.ParentID,
		Selector:     req.Selector,
		SelectedText: req.SelectedText,
		StartOffset:  req.StartOffset,
		EndOffset:    req.EndOffset,
		ContentHash:  req.ContentHash,
		AuthorName:   req.AuthorName,
		AuthorToken:  req.AuthorToken,
		Content:      req.Content,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toInlineCommentResponse(comment, 0))
}

// getInlineComment returns an inline comment with its full reply tree.
func (h *Handler) getInlineComment(w http.ResponseWriter, r *http.Request) {
	thread, err := h.inline.GetWithReplies(r.Context(), chi.URLParam(r, "commentID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toInlineThreadResponse(thread))
}

// updateInlineComment edits an inline comment's content as its author.
func (h *Handler) updateInlineComment(w http.ResponseWriter, r *http.Request) {
	var req updateCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	comment, err := h.inline.Update(r.Context(), chi.URLParam(r, "commentID"), req.AuthorToken, req.Content)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toInlineCommentResponse(comment, 0))
}

// resolveInlineComment toggles an inline comment's resolved state.
func (h *Handler) resolveInlineComment(w http.ResponseWriter, r *http.Request) {
	var req resolveInlineCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	comment, err := h.inline.Resolve(r.Context(), chi.URLParam(r, "commentID"), req.AuthorToken, req.Resolved)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toInlineCommentResponse(comment, 0))
}

// deleteInlineComment deletes an inline comment as its author.
func (h *Handler) deleteInlineComment(w http.ResponseWriter, r *http.Request) {
	var req deleteCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	deleted, err := h.inline.Delete(r.Context(), chi.URLParam(r, "commentID"), req.AuthorToken)
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
