package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lggurgel/gurgelhub/internal/domain"
	"github.com/lggurgel/gurgelhub/internal/storage"
)

// Store implements the Storage interface on top of PostgreSQL. Schema is
// managed by SQL migrations, not AutoMigrate, because the articles table
// carries a generated tsvector column and a GIN index that gorm cannot
// express.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// New connects to PostgreSQL and applies pending migrations.
func New(dsn, migrationsPath string, log zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{
		db:  db,
		log: log.With().Str("component", "postgres").Logger(),
	}

	if err := s.runMigrations(migrationsPath); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) runMigrations(path string) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", path), "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	s.log.Info().Str("path", path).Msg("migrations applied")
	return nil
}

func translateGormErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

// === Article Methods ===

func (s *Store) CreateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error) {
	if err := s.db.WithContext(ctx).Create(article).Error; err != nil {
		return nil, err
	}
	return article, nil
}

func (s *Store) GetArticleByID(ctx context.Context, id string) (*domain.Article, error) {
	var article domain.Article
	if err := s.db.WithContext(ctx).First(&article, "id = ?", id).Error; err != nil {
		return nil, translateGormErr(err)
	}
	return &article, nil
}

func (s *Store) GetArticleBySlug(ctx context.Context, slug string) (*domain.Article, error) {
	var article domain.Article
	if err := s.db.WithContext(ctx).First(&article, "slug = ?", slug).Error; err != nil {
		return nil, translateGormErr(err)
	}
	return &article, nil
}

func (s *Store) ListArticles(ctx context.Context, args storage.ListArgs, publishedOnly bool) ([]*domain.Article, int, error) {
	query := s.db.WithContext(ctx).Model(&domain.Article{})
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var articles []*domain.Article
	err := query.Order("created_at DESC").Offset(args.Offset).Limit(args.Limit).Find(&articles).Error
	return articles, int(total), err
}

func (s *Store) UpdateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Article
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&existing, "id = ?", article.ID).Error; err != nil {
			return translateGormErr(err)
		}
		article.CreatedAt = existing.CreatedAt
		article.ViewCount = existing.ViewCount
		now := time.Now().UTC()
		article.UpdatedAt = &now

		// Only the editable columns: view_count belongs to
		// IncrementViewCount and must not be written back from a stale read.
		return tx.Model(&domain.Article{}).Where("id = ?", article.ID).
			Updates(map[string]interface{}{
				"title":        article.Title,
				"slug":         article.Slug,
				"description":  article.Description,
				"content":      article.Content,
				"tags":         article.Tags,
				"is_published": article.IsPublished,
				"published_at": article.PublishedAt,
				"updated_at":   article.UpdatedAt,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return article, nil
}

func (s *Store) DeleteArticle(ctx context.Context, id string) (bool, error) {
	// Comments go with the article through ON DELETE CASCADE.
	result := s.db.WithContext(ctx).Delete(&domain.Article{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *Store) IncrementViewCount(ctx context.Context, slug string) error {
	return s.db.WithContext(ctx).
		Model(&domain.Article{}).
		Where("slug = ?", slug).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// === Search Methods ===

type searchRow struct {
	ID          string
	Title       string
	Slug        string
	Description *string
	Snippet     string
	Tags        pq.StringArray `gorm:"type:text[]"`
	PublishedAt *time.Time
	ViewCount   int
	Rank        float64
	Count       int64
}

// SearchArticles delegates ranking to PostgreSQL full-text search:
// ts_rank_cd for ordering, ts_headline for highlighted snippets. The last
// term gets a prefix match so search-as-you-type works.
func (s *Store) SearchArticles(ctx context.Context, query string, args storage.ListArgs) ([]*domain.SearchHit, int, error) {
	terms := strings.Fields(strings.TrimSpace(query))
	if len(terms) == 0 {
		return []*domain.SearchHit{}, 0, nil
	}
	tsParts := make([]string, len(terms))
	for i, term := range terms {
		if i == len(terms)-1 {
			tsParts[i] = term + ":*"
		} else {
			tsParts[i] = term
		}
	}
	tsQuery := strings.Join(tsParts, " & ")

	const sql = `
		WITH search_query AS (
			SELECT to_tsquery('english', @query) AS query
		),
		ranked_articles AS (
			SELECT
				a.id, a.title, a.slug, a.description, a.tags,
				a.published_at, a.view_count,
				ts_rank_cd(a.search_vector, q.query) AS rank,
				ts_headline('english', a.content, q.query,
					'StartSel=<mark>, StopSel=</mark>, MaxWords=35, MinWords=15') AS snippet
			FROM articles a, search_query q
			WHERE a.search_vector @@ q.query
			AND a.is_published = true
		),
		total_count AS (
			SELECT count(*) AS count FROM ranked_articles
		)
		SELECT r.*, t.count
		FROM ranked_articles r, total_count t
		ORDER BY r.rank DESC
		OFFSET @offset LIMIT @limit`

	var rows []searchRow
	err := s.db.WithContext(ctx).Raw(sql,
		map[string]interface{}{"query": tsQuery, "offset": args.Offset, "limit": args.Limit},
	).Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return []*domain.SearchHit{}, 0, nil
	}

	hits := make([]*domain.SearchHit, len(rows))
	for i, row := range rows {
		hits[i] = &domain.SearchHit{
			ID:          row.ID,
			Title:       row.Title,
			Slug:        row.Slug,
			Description: row.Description,
			Snippet:     row.Snippet,
			Tags:        row.Tags,
			PublishedAt: row.PublishedAt,
			ViewCount:   row.ViewCount,
			Relevance:   row.Rank,
		}
	}
	return hits, int(rows[0].Count), nil
}

// SuggestTitles uses pg_trgm distance ordering for typeahead suggestions.
func (s *Store) SuggestTitles(ctx context.Context, partial string, limit int) ([]string, error) {
	if strings.TrimSpace(partial) == "" {
		return []string{}, nil
	}

	var titles []string
	err := s.db.WithContext(ctx).Raw(`
		SELECT title
		FROM articles
		WHERE title ILIKE @pattern
		AND is_published = true
		ORDER BY title <-> @raw
		LIMIT @limit`,
		map[string]interface{}{
			"pattern": "%" + partial + "%",
			"raw":     partial,
			"limit":   limit,
		},
	).Scan(&titles).Error
	return titles, err
}

// === General Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var articleCount int64
		if err := tx.Model(&domain.Article{}).Where("id = ?", comment.ArticleID).Count(&articleCount).Error; err != nil {
			return err
		}
		if articleCount == 0 {
			return domain.ErrNotFound
		}

		if comment.ParentID != nil {
			var parent domain.Comment
			if err := tx.First(&parent, "id = ?", *comment.ParentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domain.ErrInvalidParent
				}
				return err
			}
			if parent.ArticleID != comment.ArticleID {
				return domain.ErrInvalidParent
			}
		}

		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	var comment domain.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, translateGormErr(err)
	}
	return &comment, nil
}

func (s *Store) GetCommentsByArticleID(ctx context.Context, articleID string, filter storage.CommentFilter) ([]*domain.Comment, error) {
	query := s.db.WithContext(ctx).Where("article_id = ?", articleID)
	if !filter.IncludeDeleted {
		// Keep soft-deleted rows that still anchor replies; the tree
		// assembler elides the rest.
		query = query.Where(
			"is_deleted = false OR id IN (SELECT DISTINCT parent_id FROM comments WHERE article_id = ? AND parent_id IS NOT NULL)",
			articleID,
		)
	}

	var comments []*domain.Comment
	err := query.Order("created_at ASC").Find(&comments).Error
	return comments, err
}

func (s *Store) CountTopLevelComments(ctx context.Context, articleID string, includeDeleted bool) (int, error) {
	query := s.db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("article_id = ? AND parent_id IS NULL", articleID)
	if !includeDeleted {
		query = query.Where("is_deleted = ?", false)
	}

	var count int64
	err := query.Count(&count).Error
	return int(count), err
}

func (s *Store) CountCommentsByArticleID(ctx context.Context, articleID string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("article_id = ? AND is_deleted = ?", articleID, false).
		Count(&count).Error
	return int(count), err
}

func (s *Store) UpdateComment(ctx context.Context, id, authorToken, content string) (*domain.Comment, error) {
	var comment domain.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row lock so a concurrent delete and edit cannot interleave.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&comment, "id = ?", id).Error; err != nil {
			return translateGormErr(err)
		}
		if comment.AuthorToken != authorToken {
			return domain.ErrUnauthorized
		}
		if comment.IsDeleted {
			return domain.ErrValidation
		}

		now := time.Now().UTC()
		comment.Content = content
		comment.IsEdited = true
		comment.UpdatedAt = &now
		return tx.Save(&comment).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (s *Store) DeleteComment(ctx context.Context, id, authorToken string) (bool, error) {
	deleted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment domain.Comment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&comment, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if comment.AuthorToken != authorToken {
			return nil
		}

		var replyCount int64
		if err := tx.Model(&domain.Comment{}).Where("parent_id = ?", id).Count(&replyCount).Error; err != nil {
			return err
		}

		if replyCount > 0 {
			now := time.Now().UTC()
			comment.IsDeleted = true
			comment.Content = domain.DeletedPlaceholder
			comment.AuthorName = nil
			comment.UpdatedAt = &now
			if err := tx.Save(&comment).Error; err != nil {
				return err
			}
		} else {
			// ON DELETE CASCADE removes any descendants.
			if err := tx.Delete(&comment).Error; err != nil {
				return err
			}
		}
		deleted = true
		return nil
	})
	return deleted, err
}

// === Inline Comment Methods ===

func (s *Store) CreateInlineComment(ctx context.Context, comment *domain.InlineComment) (*domain.InlineComment, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var articleCount int64
		if err := tx.Model(&domain.Article{}).Where("id = ?", comment.ArticleID).Count(&articleCount).Error; err != nil {
			return err
		}
		if articleCount == 0 {
			return domain.ErrNotFound
		}

		if comment.ParentID != nil {
			var parent domain.InlineComment
			if err := tx.First(&parent, "id = ?", *comment.ParentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domain.ErrInvalidParent
				}
				return err
			}
			if parent.ArticleID != comment.ArticleID {
				return domain.ErrInvalidParent
			}
		}

		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *Store) GetInlineCommentByID(ctx context.Context, id string) (*domain.InlineComment, error) {
	var comment domain.InlineComment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, translateGormErr(err)
	}
	return &comment, nil
}

func (s *Store) GetInlineCommentsByArticleID(ctx context.Context, articleID string, filter storage.CommentFilter) ([]*domain.InlineComment, error) {
	query := s.db.WithContext(ctx).Where("article_id = ?", articleID)
	if !filter.IncludeResolved {
		query = query.Where("is_resolved = ?", false)
	}
	if !filter.IncludeDeleted {
		query = query.Where(
			"is_deleted = false OR id IN (SELECT DISTINCT parent_id FROM inline_comments WHERE article_id = ? AND parent_id IS NOT NULL)",
			articleID,
		)
	}

	var comments []*domain.InlineComment
	err := query.Order("start_offset ASC, created_at ASC").Find(&comments).Error
	return comments, err
}

func (s *Store) CountInlineCommentsByArticleID(ctx context.Context, articleID string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&domain.InlineComment{}).
		Where("article_id = ? AND is_deleted = ?", articleID, false).
		Count(&count).Error
	return int(count), err
}

func (s *Store) UpdateInlineComment(ctx context.Context, id, authorToken, content string) (*domain.InlineComment, error) {
	var comment domain.InlineComment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&comment, "id = ?", id).Error; err != nil {
			return translateGormErr(err)
		}
		if comment.AuthorToken != authorToken {
			return domain.ErrUnauthorized
		}
		if comment.IsDeleted {
			return domain.ErrValidation
		}

		now := time.Now().UTC()
		comment.Content = content
		comment.IsEdited = true
		comment.UpdatedAt = &now
		return tx.Save(&comment).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (s *Store) DeleteInlineComment(ctx context.Context, id, authorToken string) (bool, error) {
	deleted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment domain.InlineComment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&comment, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if comment.AuthorToken != authorToken {
			return nil
		}

		var replyCount int64
		if err := tx.Model(&domain.InlineComment{}).Where("parent_id = ?", id).Count(&replyCount).Error; err != nil {
			return err
		}

		if replyCount > 0 {
			now := time.Now().UTC()
			comment.IsDeleted = true
			comment.Content = domain.DeletedPlaceholder
			comment.AuthorName = nil
			comment.UpdatedAt = &now
			if err := tx.Save(&comment).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Delete(&comment).Error; err != nil {
				return err
			}
		}
		deleted = true
		return nil
	})
	return deleted, err
}

func (s *Store) ResolveInlineComment(ctx context.Context, id, authorToken string, resolved bool) (*domain.InlineComment, error) {
	var comment domain.InlineComment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&comment, "id = ?", id).Error; err != nil {
			return translateGormErr(err)
		}
		if comment.AuthorToken != authorToken {
			return domain.ErrUnauthorized
		}

		comment.IsResolved = resolved
		if resolved {
			now := time.Now().UTC()
			comment.ResolvedAt = &now
		} else {
			comment.ResolvedAt = nil
		}
		return tx.Model(&comment).Select("is_resolved", "resolved_at").
			Updates(map[string]interface{}{
				"is_resolved": comment.IsResolved,
				"resolved_at": comment.ResolvedAt,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// === Batch Methods ===

type articleCountRow struct {
	ArticleID string
	Count     int64
}

func (s *Store) CountCommentsByArticleIDs(ctx context.Context, articleIDs []string) (map[string]int, error) {
	return s.countByArticleIDs(ctx, "comments", articleIDs)
}

func (s *Store) CountInlineCommentsByArticleIDs(ctx context.Context, articleIDs []string) (map[string]int, error) {
	return s.countByArticleIDs(ctx, "inline_comments", articleIDs)
}

// countByArticleIDs groups counts for all requested articles in one query,
// which is what the per-request dataloader batches into.
func (s *Store) countByArticleIDs(ctx context.Context, table string, articleIDs []string) (map[string]int, error) {
	var rows []articleCountRow
	err := s.db.WithContext(ctx).
		Table(table).
		Select("article_id, count(*) as count").
		Where("article_id IN ? AND is_deleted = ?", articleIDs, false).
		Group("article_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]int, len(articleIDs))
	for _, id := range articleIDs {
		result[id] = 0
	}
	for _, row := range rows {
		result[row.ArticleID] = int(row.Count)
	}
	return result, nil
}
