package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/blog-realtime-api/internal/database"
	"github.com/blog-realtime-api/internal/models"
)

const commentColumns = `
	c.id, c.blog_id, c.user_id, c.anonymous_id, c.ip_address, c.name, c.content,
	c.likes_count, c.created_at, c.updated_at, u.name, u.email`

// commentRepo is the concrete implementation of CommentRepository
type commentRepo struct {
	db querier
}

// NewCommentRepo creates a new comment repository
func NewCommentRepo(db *database.DB) CommentRepository {
	return &commentRepo{db: db}
}

// Create inserts a new comment and fills in its generated fields
func (r *commentRepo) Create(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (blog_id, user_id, anonymous_id, ip_address, name, content)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, likes_count, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		comment.BlogID, comment.UserID, comment.AnonymousID, comment.IPAddress,
		comment.Name, comment.Content,
	).Scan(&comment.ID, &comment.LikesCount, &comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		return err
	}

	comment.IsAnonymous = comment.UserID == nil
	return nil
}

// GetByID retrieves a comment by ID
func (r *commentRepo) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	query := `SELECT ` + commentColumns + `
		FROM comments c
		LEFT JOIN users u ON c.user_id = u.id
		WHERE c.id = $1`

	comment, err := scanComment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return comment, nil
}

// UpdateContent replaces the body of a comment
func (r *commentRepo) UpdateContent(ctx context.Context, id int64, content string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE comments SET content = $1, updated_at = NOW() WHERE id = $2",
		content, id,
	)
	return err
}

// Delete removes a comment permanently; likes on it cascade
func (r *commentRepo) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM comments WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// AdjustLikes applies a floored delta to the comment like counter
func (r *commentRepo) AdjustLikes(ctx context.Context, id int64, delta int) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE comments SET likes_count = GREATEST(likes_count + $1, 0) WHERE id = $2",
		delta, id,
	)
	return err
}

// List returns one page of comments plus the total matching the filter.
// The filter must be normalized: Sort and Order are interpolated.
func (r *commentRepo) List(ctx context.Context, filter models.CommentFilter) ([]*models.Comment, int, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.BlogID > 0 {
		args = append(args, filter.BlogID)
		conditions = append(conditions, fmt.Sprintf("c.blog_id = $%d", len(args)))
	}
	if filter.UserID > 0 {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("c.user_id = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments c "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s
		FROM comments c
		LEFT JOIN users u ON c.user_id = u.id
		%s
		ORDER BY c.%s %s, c.id %s
		LIMIT $%d OFFSET $%d`,
		commentColumns, where, filter.Sort, filter.Order, filter.Order, len(args)+1, len(args)+2,
	)
	args = append(args, filter.Limit, filter.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0, filter.Limit)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, 0, err
		}
		comments = append(comments, comment)
	}

	return comments, total, rows.Err()
}

// Stats returns the counters around a single comment
func (r *commentRepo) Stats(ctx context.Context, id int64) (*models.CommentStats, error) {
	query := `
		SELECT c.id, c.likes_count,
			(SELECT COUNT(*) FROM likes WHERE comment_id = c.id),
			(SELECT COUNT(*) FROM comments WHERE blog_id = c.blog_id),
			c.created_at, c.updated_at
		FROM comments c WHERE c.id = $1
	`

	var stats models.CommentStats
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&stats.CommentID, &stats.LikesCount, &stats.TotalLikes, &stats.TotalCommentsInBlog,
		&stats.CreatedAt, &stats.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanComment(row rowScanner) (*models.Comment, error) {
	var (
		comment     models.Comment
		userID      sql.NullInt64
		anonymousID sql.NullString
		userName    sql.NullString
		userEmail   sql.NullString
	)

	err := row.Scan(
		&comment.ID, &comment.BlogID, &userID, &anonymousID, &comment.IPAddress,
		&comment.Name, &comment.Content, &comment.LikesCount, &comment.CreatedAt,
		&comment.UpdatedAt, &userName, &userEmail,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		comment.UserID = &userID.Int64
		comment.UserInfo = &models.CommentUser{Username: userName.String, Email: userEmail.String}
	}
	if anonymousID.Valid {
		comment.AnonymousID = &anonymousID.String
	}
	comment.IsAnonymous = comment.UserID == nil

	return &comment, nil
}
