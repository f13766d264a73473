package repository

import (
	"context"
	"database/sql"

	"github.com/blog-realtime-api/internal/database"
	"github.com/blog-realtime-api/internal/models"
)

// blogRepo is the concrete implementation of BlogRepository
type blogRepo struct {
	db querier
}

// NewBlogRepo creates a new blog repository
func NewBlogRepo(db *database.DB) BlogRepository {
	return &blogRepo{db: db}
}

// GetByID retrieves a blog with its counters
func (r *blogRepo) GetByID(ctx context.Context, id int64) (*models.Blog, error) {
	query := `SELECT id, title, slug, likes_count, comments_count FROM blogs WHERE id = $1`

	var blog models.Blog
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&blog.ID, &blog.Title, &blog.Slug, &blog.LikesCount, &blog.CommentsCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &blog, nil
}

// Exists checks if a blog with the given ID exists
func (r *blogRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM blogs WHERE id = $1)", id).Scan(&exists)
	return exists, err
}

// AdjustLikes applies a floored delta to the blog like counter
func (r *blogRepo) AdjustLikes(ctx context.Context, id int64, delta int) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE blogs SET likes_count = GREATEST(likes_count + $1, 0) WHERE id = $2",
		delta, id,
	)
	return err
}

// AdjustComments applies a floored delta to the blog comment counter
func (r *blogRepo) AdjustComments(ctx context.Context, id int64, delta int) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE blogs SET comments_count = GREATEST(comments_count + $1, 0) WHERE id = $2",
		delta, id,
	)
	return err
}
