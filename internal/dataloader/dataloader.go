package dataloader

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/lggurgel/gurgelhub/internal/storage"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders batches per-article comment counts within one request. Listing N
// articles triggers one grouped count query per comment kind instead of
// 2N individual counts.
type Loaders struct {
	CommentCountByArticleID       *dataloader.Loader
	InlineCommentCountByArticleID *dataloader.Loader
}

func countBatchFn(count func(ctx context.Context, articleIDs []string) (map[string]int, error)) dataloader.BatchFunc {
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		articleIDs := make([]string, len(keys))
		for i, k := range keys {
			articleIDs[i] = k.String()
		}

		counts, err := count(ctx, articleIDs)
		results := make([]*dataloader.Result, len(keys))
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		for i, id := range articleIDs {
			results[i] = &dataloader.Result{Data: counts[id]}
		}
		return results
	}
}

// Middleware injects fresh loaders into every request's context.
func Middleware(store storage.Storage, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loaders := Loaders{
			CommentCountByArticleID: dataloader.NewBatchedLoader(
				countBatchFn(store.CountCommentsByArticleIDs),
				dataloader.WithWait(time.Millisecond*1),
			),
			InlineCommentCountByArticleID: dataloader.NewBatchedLoader(
				countBatchFn(store.CountInlineCommentsByArticleIDs),
				dataloader.WithWait(time.Millisecond*1),
			),
		}

		ctx := context.WithValue(r.Context(), key, &loaders)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// For extracts the loaders from the request context.
func For(ctx context.Context) *Loaders {
	return ctx.Value(key).(*Loaders)
}

// CommentCount loads the non-deleted comment count for one article through
// the batch loader.
func (l *Loaders) CommentCount(ctx context.Context, articleID string) (int, error) {
	return loadCount(ctx, l.CommentCountByArticleID, articleID)
}

// InlineCommentCount loads the non-deleted inline comment count for one
// article through the batch loader.
func (l *Loaders) InlineCommentCount(ctx context.Context, articleID string) (int, error) {
	return loadCount(ctx, l.InlineCommentCountByArticleID, articleID)
}

func loadCount(ctx context.Context, loader *dataloader.Loader, articleID string) (int, error) {
	raw, err := loader.Load(ctx, dataloader.StringKey(articleID))()
	if err != nil {
		return 0, err
	}
	count, ok := raw.(int)
	if !ok {
		return 0, fmt.Errorf("unexpected loader result type %T", raw)
	}
	return count, nil
}
