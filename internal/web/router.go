// Package web is the thin HTTP delivery layer. It validates request
// shapes, calls into the services and maps domain errors onto statuses;
// all business rules live below it.
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/lggurgel/gurgelhub/internal/dataloader"
	"github.com/lggurgel/gurgelhub/internal/service"
	"github.com/lggurgel/gurgelhub/internal/storage"
)

// Handler bundles the services behind the HTTP routes.
type Handler struct {
	articles *service.ArticleService
	comments *service.CommentService
	inline   *service.InlineCommentService
	search   *service.SearchService
	log      zerolog.Logger
}

// NewRouter wires all routes. The dataloader middleware gives every
// request fresh batch loaders for comment counts.
func NewRouter(
	store storage.Storage,
	articles *service.ArticleService,
	comments *service.CommentService,
	inline *service.InlineCommentService,
	search *service.SearchService,
	log zerolog.Logger,
) http.Handler {
	h := &Handler{
		articles: articles,
		comments: comments,
		inline:   inline,
		search:   search,
		log:      log.With().Str("component", "web").Logger(),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.With(func(next http.Handler) http.Handler {
			return dataloader.Middleware(store, next)
		}).Get("/articles", h.listArticles)

		r.Post("/articles", h.createArticle)
		r.Get("/articles/slug/{slug}", h.getArticleBySlug)
		r.Get("/articles/{articleID}", h.getArticle)
		r.Patch("/articles/{articleID}", h.updateArticle)
		r.Delete("/articles/{articleID}", h.deleteArticle)

		r.Get("/search", h.searchArticles)
		r.Get("/search/suggestions", h.suggestTitles)

		r.Get("/articles/{articleID}/comments", h.listArticleComments)
		r.Post("/articles/{articleID}/comments", h.createComment)
		r.Get("/articles/{articleID}/comments/stats", h.commentStats)
		r.Get("/comments/{commentID}", h.getComment)
		r.Put("/comments/{commentID}", h.updateComment)
		r.Delete("/comments/{commentID}", h.deleteComment)

		r.Get("/articles/{articleID}/inline-comments", h.listInlineComments)
		r.Post("/articles/{articleID}/inline-comments", h.createInlineComment)
		r.Get("/inline-comments/{commentID}", h.getInlineComment)
		r.Put("/inline-comments/{commentID}", h.updateInlineComment)
		r.Post("/inline-comments/{commentID}/resolve", h.resolveInlineComment)
		r.Delete("/inline-comments/{commentID}", h.deleteInlineComment)
	})

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return router
}
