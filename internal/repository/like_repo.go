package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/blog-realtime-api/internal/database"
	"github.com/blog-realtime-api/internal/identity"
	"github.com/blog-realtime-api/internal/models"
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const uniqueViolation = "23505"

// likeRepo is the concrete implementation of LikeRepository
type likeRepo struct {
	db querier
}

// NewLikeRepo creates a new like repository
func NewLikeRepo(db *database.DB) LikeRepository {
	return &likeRepo{db: db}
}

// Find looks up the like of actor on the exact target. The comment id is
// compared null-safely so a blog-level like never matches a comment like.
func (r *likeRepo) Find(ctx context.Context, blogID int64, commentID *int64, actor identity.Actor) (*models.Like, error) {
	clause, arg := actorClause(actor, 3)
	query := `
		SELECT id, blog_id, comment_id, user_id, anonymous_id, ip_address, created_at
		FROM likes
		WHERE blog_id = $1 AND comment_id IS NOT DISTINCT FROM $2::bigint AND ` + clause + `
		LIMIT 1`

	var (
		like        models.Like
		cID         sql.NullInt64
		userID      sql.NullInt64
		anonymousID sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, blogID, nullInt64(commentID), arg).Scan(
		&like.ID, &like.BlogID, &cID, &userID, &anonymousID, &like.IPAddress, &like.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if cID.Valid {
		like.CommentID = &cID.Int64
	}
	if userID.Valid {
		like.UserID = &userID.Int64
	}
	if anonymousID.Valid {
		like.AnonymousID = &anonymousID.String
	}

	return &like, nil
}

// Create records a like for actor. Losing a race against a concurrent
// insert of the same tuple returns ErrDuplicate.
func (r *likeRepo) Create(ctx context.Context, like *models.Like, actor identity.Actor) error {
	var (
		userID      sql.NullInt64
		anonymousID sql.NullString
	)
	if id, ok := actor.UserID(); ok {
		userID = sql.NullInt64{Int64: id, Valid: true}
		like.UserID = &id
	}
	if id, ok := actor.AnonymousID(); ok {
		anonymousID = sql.NullString{String: id, Valid: true}
		like.AnonymousID = &id
	}
	like.IPAddress = actor.Address()

	query := `
		INSERT INTO likes (blog_id, comment_id, user_id, anonymous_id, ip_address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		like.BlogID, nullInt64(like.CommentID), userID, anonymousID, like.IPAddress,
	).Scan(&like.ID, &like.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// Delete removes a like; false means it was already gone
func (r *likeRepo) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM likes WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// ListByComment returns a page of likes on a comment, newest first
func (r *likeRepo) ListByComment(ctx context.Context, commentID int64, page, limit int) ([]*models.Like, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM likes WHERE comment_id = $1", commentID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT l.id, l.blog_id, l.comment_id, l.user_id, l.ip_address, l.created_at, u.name, u.email
		FROM likes l
		LEFT JOIN users u ON l.user_id = u.id
		WHERE l.comment_id = $1
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, commentID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	likes := make([]*models.Like, 0, limit)
	for rows.Next() {
		var (
			like      models.Like
			cID       sql.NullInt64
			userID    sql.NullInt64
			userName  sql.NullString
			userEmail sql.NullString
		)
		err := rows.Scan(&like.ID, &like.BlogID, &cID, &userID, &like.IPAddress, &like.CreatedAt, &userName, &userEmail)
		if err != nil {
			return nil, 0, err
		}
		if cID.Valid {
			like.CommentID = &cID.Int64
		}
		if userID.Valid {
			like.UserID = &userID.Int64
			like.UserInfo = &models.LikeUser{Name: userName.String, Email: userEmail.String}
		}
		likes = append(likes, &like)
	}

	return likes, total, rows.Err()
}

// ListByActor collects every blog and comment the actor currently likes
func (r *likeRepo) ListByActor(ctx context.Context, actor identity.Actor) (*models.MyLikes, error) {
	clause, arg := actorClause(actor, 1)
	result := &models.MyLikes{
		LikedBlogs:    []int64{},
		LikedComments: []models.LikedComment{},
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT blog_id FROM likes WHERE "+clause+" AND comment_id IS NULL ORDER BY blog_id", arg)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var blogID int64
		if err := rows.Scan(&blogID); err != nil {
			rows.Close()
			return nil, err
		}
		result.LikedBlogs = append(result.LikedBlogs, blogID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.QueryContext(ctx,
		"SELECT blog_id, comment_id FROM likes WHERE "+clause+" AND comment_id IS NOT NULL ORDER BY comment_id", arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var liked models.LikedComment
		if err := rows.Scan(&liked.BlogID, &liked.CommentID); err != nil {
			return nil, err
		}
		result.LikedComments = append(result.LikedComments, liked)
	}

	return result, rows.Err()
}

// actorClause builds the predicate matching the actor's authoritative
// identity column, mirroring the partial unique indexes on likes.
func actorClause(actor identity.Actor, n int) (string, interface{}) {
	if id, ok := actor.UserID(); ok {
		return fmt.Sprintf("user_id = $%d", n), id
	}
	if id, ok := actor.AnonymousID(); ok {
		return fmt.Sprintf("user_id IS NULL AND anonymous_id = $%d", n), id
	}
	return fmt.Sprintf("user_id IS NULL AND anonymous_id IS NULL AND ip_address = $%d", n), actor.Address()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// helper to convert a nil id to NULL
func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
