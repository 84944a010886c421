package domain

import (
	"time"

	"github.com/lib/pq"
)

// DeletedPlaceholder replaces the content of soft-deleted comments.
const DeletedPlaceholder = "[deleted]"

// Validation bounds shared by both comment kinds.
const (
	MinContentLength  = 1
	MaxContentLength  = 10000
	MinTokenLength    = 32
	MaxTokenLength    = 64
	MaxAuthorNameLen  = 100
	MaxSelectorLength = 500
	MaxSelectedText   = 5000
)

// Article is a published markdown article. Content is stored verbatim;
// rendering happens elsewhere. The search vector is a generated column
// managed by the database, it is never written from Go.
type Article struct {
	ID          string         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Title       string         `json:"title" gorm:"type:varchar(255);not null"`
	Slug        string         `json:"slug" gorm:"type:varchar(255);uniqueIndex;not null"`
	Description *string        `json:"description,omitempty" gorm:"type:text"`
	Content     string         `json:"content" gorm:"type:text;not null"`
	Tags        pq.StringArray `json:"tags" gorm:"type:text[]"`
	ViewCount   int            `json:"viewCount" gorm:"not null;default:0"`
	IsPublished bool           `json:"isPublished" gorm:"not null;default:false"`
	PublishedAt *time.Time     `json:"publishedAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt" gorm:"not null;default:now()"`
	UpdatedAt   *time.Time     `json:"updatedAt,omitempty"`
}

// Comment is a general article comment with recursive threading support.
// Anonymous authors hold an opaque token that authorizes edit and delete;
// the token is a capability, not an identity, and is never exposed.
type Comment struct {
	ID          string     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ArticleID   string     `json:"articleId" gorm:"type:uuid;not null;index"`
	ParentID    *string    `json:"parentId,omitempty" gorm:"type:uuid;index"`
	AuthorName  *string    `json:"authorName,omitempty" gorm:"type:varchar(100)"`
	AuthorToken string     `json:"-" gorm:"type:varchar(64);not null;index"`
	Content     string     `json:"content" gorm:"type:text;not null"`
	IsEdited    bool       `json:"isEdited" gorm:"not null;default:false"`
	IsDeleted   bool       `json:"isDeleted" gorm:"not null;default:false"`
	CreatedAt   time.Time  `json:"createdAt" gorm:"not null;default:now()"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// InlineComment is a Confluence-style comment anchored to a text selection
// inside one content block of an article. The selection is identified by a
// selector (a path to the block, opaque here) plus character offsets.
type InlineComment struct {
	ID           string     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ArticleID    string     `json:"articleId" gorm:"type:uuid;not null;index"`
	ParentID     *string    `json:"parentId,omitempty" gorm:"type:uuid;index"`
	Selector     string     `json:"selector" gorm:"type:varchar(500);not null"`
	SelectedText string     `json:"selectedText" gorm:"type:text;not null"`
	StartOffset  int        `json:"startOffset" gorm:"not null"`
	EndOffset    int        `json:"endOffset" gorm:"not null"`
	ContentHash  string     `json:"contentHash" gorm:"type:varchar(64);not null"`
	AuthorName   *string    `json:"authorName,omitempty" gorm:"type:varchar(100)"`
	AuthorToken  string     `json:"-" gorm:"type:varchar(64);not null;index"`
	Content      string     `json:"content" gorm:"type:text;not null"`
	IsResolved   bool       `json:"isResolved" gorm:"not null;default:false"`
	IsEdited     bool       `json:"isEdited" gorm:"not null;default:false"`
	IsDeleted    bool       `json:"isDeleted" gorm:"not null;default:false"`
	CreatedAt    time.Time  `json:"createdAt" gorm:"not null;default:now()"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	ResolvedAt   *time.Time `json:"resolvedAt,omitempty"`
}

// SearchHit is one ranked full-text search result. Snippet comes from the
// database's ts_headline with <mark> tags around matched terms.
type SearchHit struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Description *string    `json:"description,omitempty"`
	Snippet     string     `json:"snippet"`
	Tags        []string   `json:"tags"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	ViewCount   int        `json:"viewCount"`
	Relevance   float64    `json:"relevanceScore"`
}

// Tree accessors. Both comment kinds satisfy tree.Node so the assembler
// can stay generic over them.

func (c *Comment) NodeID() string           { return c.ID }
func (c *Comment) NodeParentID() *string    { return c.ParentID }
func (c *Comment) NodeCreatedAt() time.Time { return c.CreatedAt }
func (c *Comment) NodeDeleted() bool        { return c.IsDeleted }

func (c *InlineComment) NodeID() string           { return c.ID }
func (c *InlineComment) NodeParentID() *string    { return c.ParentID }
func (c *InlineComment) NodeCreatedAt() time.Time { return c.CreatedAt }
func (c *InlineComment) NodeDeleted() bool        { return c.IsDeleted }
