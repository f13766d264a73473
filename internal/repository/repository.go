package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/blog-realtime-api/internal/database"
	"github.com/blog-realtime-api/internal/identity"
	"github.com/blog-realtime-api/internal/models"
)

// ErrDuplicate is returned when an insert hits a uniqueness constraint
var ErrDuplicate = errors.New("duplicate record")

// BlogRepository defines the counter operations on blogs
type BlogRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Blog, error)
	Exists(ctx context.Context, id int64) (bool, error)
	AdjustLikes(ctx context.Context, id int64, delta int) error
	AdjustComments(ctx context.Context, id int64, delta int) error
}

// UserRepository defines the account lookups the interaction layer needs
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id int64) (*models.Comment, error)
	UpdateContent(ctx context.Context, id int64, content string) error
	Delete(ctx context.Context, id int64) (bool, error)
	AdjustLikes(ctx context.Context, id int64, delta int) error
	List(ctx context.Context, filter models.CommentFilter) ([]*models.Comment, int, error)
	Stats(ctx context.Context, id int64) (*models.CommentStats, error)
}

// LikeRepository defines the reaction ledger operations.
// A nil commentID addresses the blog-level like.
type LikeRepository interface {
	Find(ctx context.Context, blogID int64, commentID *int64, actor identity.Actor) (*models.Like, error)
	Create(ctx context.Context, like *models.Like, actor identity.Actor) error
	Delete(ctx context.Context, id int64) (bool, error)
	ListByComment(ctx context.Context, commentID int64, page, limit int) ([]*models.Like, int, error)
	ListByActor(ctx context.Context, actor identity.Actor) (*models.MyLikes, error)
}

// TxRunner runs fn with repositories bound to one transaction. An error
// from fn rolls back every write made through them.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx *Repositories) error) error
}

// Repositories holds all repository interfaces
type Repositories struct {
	Blog    BlogRepository
	User    UserRepository
	Comment CommentRepository
	Like    LikeRepository
	Tx      TxRunner
}

// Atomic runs fn inside a transaction, or directly when none is configured
func (r *Repositories) Atomic(ctx context.Context, fn func(tx *Repositories) error) error {
	if r.Tx == nil {
		return fn(r)
	}
	return r.Tx.RunInTx(ctx, fn)
}

// querier is satisfied by both *database.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	repos := bind(db)
	repos.Tx = &txRunner{db: db}
	return repos
}

func bind(q querier) *Repositories {
	return &Repositories{
		Blog:    &blogRepo{db: q},
		User:    &userRepo{db: q},
		Comment: &commentRepo{db: q},
		Like:    &likeRepo{db: q},
	}
}

type txRunner struct {
	db *database.DB
}

func (t *txRunner) RunInTx(ctx context.Context, fn func(tx *Repositories) error) error {
	return t.db.WithTx(ctx, func(tx *sql.Tx) error {
		return fn(bind(tx))
	})
}
