package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lggurgel/gurgelhub/internal/config"
	"github.com/lggurgel/gurgelhub/internal/domain"
	"github.com/lggurgel/gurgelhub/internal/logger"
	"github.com/lggurgel/gurgelhub/internal/service"
	"github.com/lggurgel/gurgelhub/internal/storage"
	"github.com/lggurgel/gurgelhub/internal/storage/inmemory"
	"github.com/lggurgel/gurgelhub/internal/storage/postgres"
	"github.com/lggurgel/gurgelhub/internal/web"
)

func main() {
	storageType := flag.String("storage", "postgres", "Storage type (in-memory or postgres)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		// Logger config may itself be broken, fall back to stderr.
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	log.Info().Str("storage", *storageType).Msg("starting gurgelhub")

	var store storage.Storage
	if *storageType == "postgres" {
		if cfg.Database.URL == "" {
			log.Fatal().Msg("DATABASE_URL must be set for postgres storage")
		}
		store, err = postgres.New(cfg.Database.URL, cfg.Database.MigrationsPath, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
	} else {
		store = inmemory.New()
		seedDevData(store, log)
	}

	var cache *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		cache = redis.NewClient(opts)
		defer cache.Close()
	}

	articles := service.NewArticleService(store, log)
	comments := service.NewCommentService(store, log)
	inline := service.NewInlineCommentService(store, log)
	search := service.NewSearchService(store, cache, cfg.Search.CacheTTL, cfg.Search.ResultsPerPage, log)

	router := web.NewRouter(store, articles, comments, inline, search, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
}

// seedDevData gives the in-memory dev server something to browse.
func seedDevData(store storage.Storage, log zerolog.Logger) {
	ctx := context.Background()

	description := "A tour of the comment subsystem."
	article, err := store.CreateArticle(ctx, &domain.Article{
		Title:       "Designing threaded comments",
		Slug:        "designing-threaded-comments",
		Description: &description,
		Content:     "# Designing threaded comments\n\nHow reply trees are assembled without N+1 queries.",
		Tags:        []string{"go", "design"},
		IsPublished: true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("seed: failed to create article")
	}

	authorName := "ana"
	root, err := store.CreateComment(ctx, &domain.Comment{
		ArticleID:   article.ID,
		AuthorName:  &authorName,
		AuthorToken: "dev-token-00000000000000000000000000",
		Content:     "Great writeup, the tree assembly part especially.",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("seed: failed to create comment")
	}

	_, err = store.CreateComment(ctx, &domain.Comment{
		ArticleID:   article.ID,
		ParentID:    &root.ID,
		AuthorToken: "dev-token-11111111111111111111111111",
		Content:     "Agreed. Curious how deep threads behave.",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("seed: failed to create reply")
	}

	log.Info().Str("article_id", article.ID).Msg("seeded dev data")
}
