package service

import (
	"context"
	"strings"

	"github.com/blog-realtime-api/internal/identity"
	"github.com/blog-realtime-api/internal/models"
	"github.com/blog-realtime-api/internal/repository"
	"github.com/blog-realtime-api/internal/validation"
	"github.com/rs/zerolog"
)

// DefaultCommenterName is used for registered commenters whose account
// row is gone and who supplied no name
const DefaultCommenterName = "Anonymous"

// commentService is the concrete implementation of CommentService
type commentService struct {
	repos  *repository.Repositories
	events *emitter
	log    zerolog.Logger
}

func newCommentService(repos *repository.Repositories, events *emitter, log zerolog.Logger) *commentService {
	return &commentService{
		repos:  repos,
		events: events,
		log:    log.With().Str("service", "comment").Logger(),
	}
}

// Create stores a comment by actor on a blog and bumps the blog's comment counter
func (s *commentService) Create(ctx context.Context, blogID int64, actor identity.Actor, name, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	name = strings.TrimSpace(name)

	if err := invalid(validation.ValidateNewComment(blogID, actor.IsAnonymous(), name, content)); err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)

	exists, err := s.repos.Blog.Exists(ctx, blogID)
	if err != nil {
		return nil, storeError("failed to check blog", err)
	}
	if !exists {
		return nil, notFoundError("Blog not found")
	}

	comment := &models.Comment{
		BlogID:    blogID,
		IPAddress: actor.Address(),
		Name:      name,
		Content:   content,
	}
	if userID, ok := actor.UserID(); ok {
		comment.UserID = &userID
		comment.Name, err = s.accountName(ctx, userID, name)
		if err != nil {
			return nil, err
		}
	} else if anonymousID, ok := actor.AnonymousID(); ok {
		comment.AnonymousID = &anonymousID
	}

	err = s.repos.Atomic(ctx, func(tx *repository.Repositories) error {
		if err := tx.Comment.Create(ctx, comment); err != nil {
			return storeError("failed to create comment", err)
		}
		if err := tx.Blog.AdjustComments(ctx, blogID, 1); err != nil {
			return storeError("failed to update comment count", err)
		}
		return nil
	})
	if err != nil {
		return nil, asStoreError("failed to create comment", err)
	}

	// Re-read to pick up the joined author details
	if stored, err := s.repos.Comment.GetByID(ctx, comment.ID); err == nil && stored != nil {
		comment = stored
	}

	s.log.Info().
		Int64("comment_id", comment.ID).
		Int64("blog_id", blogID).
		Str("actor", actor.Key()).
		Msg("Comment created")

	s.events.commentCreated(comment)
	return comment, nil
}

// accountName prefers the stored account name over the supplied one
func (s *commentService) accountName(ctx context.Context, userID int64, supplied string) (string, error) {
	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		return "", storeError("failed to read user", err)
	}
	if user != nil && user.Name != "" {
		return user.Name, nil
	}
	if supplied != "" && validation.ValidName(supplied) {
		return supplied, nil
	}
	return DefaultCommenterName, nil
}

// Update replaces the body of a comment owned by actor
func (s *commentService) Update(ctx context.Context, commentID int64, actor identity.Actor, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if err := invalid(validation.ValidateCommentEdit(content)); err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)

	comment, err := s.owned(ctx, commentID, actor, "You can only edit your own comments")
	if err != nil {
		return nil, err
	}

	if err := s.repos.Comment.UpdateContent(ctx, commentID, content); err != nil {
		return nil, storeError("failed to update comment", err)
	}

	updated, err := s.repos.Comment.GetByID(ctx, commentID)
	if err != nil {
		return nil, storeError("failed to read comment", err)
	}
	if updated == nil {
		return nil, notFoundError("Comment not found")
	}

	s.log.Info().Int64("comment_id", commentID).Int64("blog_id", comment.BlogID).Msg("Comment updated")

	s.events.commentUpdated(updated)
	return updated, nil
}

// Delete permanently removes a comment owned by actor
func (s *commentService) Delete(ctx context.Context, commentID int64, actor identity.Actor) error {
	ctx = context.WithoutCancel(ctx)

	comment, err := s.owned(ctx, commentID, actor, "You can only delete your own comments")
	if err != nil {
		return err
	}

	err = s.repos.Atomic(ctx, func(tx *repository.Repositories) error {
		removed, err := tx.Comment.Delete(ctx, commentID)
		if err != nil {
			return storeError("failed to delete comment", err)
		}
		if !removed {
			return notFoundError("Comment not found")
		}
		if err := tx.Blog.AdjustComments(ctx, comment.BlogID, -1); err != nil {
			return storeError("failed to update comment count", err)
		}
		return nil
	})
	if err != nil {
		return asStoreError("failed to delete comment", err)
	}

	s.log.Info().Int64("comment_id", commentID).Int64("blog_id", comment.BlogID).Msg("Comment deleted")

	s.events.commentDeleted(comment.BlogID, commentID)
	return nil
}

// owned loads a comment and checks actor may modify it
func (s *commentService) owned(ctx context.Context, commentID int64, actor identity.Actor, denied string) (*models.Comment, error) {
	comment, err := s.Get(ctx, commentID)
	if err != nil {
		return nil, err
	}

	author := identity.AuthorOf(comment.UserID, comment.AnonymousID, comment.IPAddress)
	if !actor.CanModify(author) {
		s.log.Warn().
			Int64("comment_id", commentID).
			Str("actor", actor.Key()).
			Msg("Comment modification denied")
		return nil, forbiddenError(denied)
	}
	return comment, nil
}

// Get returns a single comment
func (s *commentService) Get(ctx context.Context, commentID int64) (*models.Comment, error) {
	if commentID <= 0 {
		return nil, validationError("Comment ID is required")
	}
	comment, err := s.repos.Comment.GetByID(ctx, commentID)
	if err != nil {
		return nil, storeError("failed to read comment", err)
	}
	if comment == nil {
		return nil, notFoundError("Comment not found")
	}
	return comment, nil
}

// List returns a filtered page of comments across all blogs
func (s *commentService) List(ctx context.Context, filter models.CommentFilter) (*models.CommentPage, error) {
	filter.Normalize()

	comments, total, err := s.repos.Comment.List(ctx, filter)
	if err != nil {
		return nil, storeError("failed to list comments", err)
	}
	if comments == nil {
		comments = []*models.Comment{}
	}

	return &models.CommentPage{
		Comments:   comments,
		Pagination: models.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

// ListByBlog returns a page of one blog's comments
func (s *commentService) ListByBlog(ctx context.Context, blogID int64, filter models.CommentFilter) (*models.CommentPage, error) {
	if blogID <= 0 {
		return nil, validationError("Blog ID is required")
	}
	exists, err := s.repos.Blog.Exists(ctx, blogID)
	if err != nil {
		return nil, storeError("failed to check blog", err)
	}
	if !exists {
		return nil, notFoundError("Blog not found")
	}

	filter.BlogID = blogID
	return s.List(ctx, filter)
}

// Stats returns the read-only statistics of a comment
func (s *commentService) Stats(ctx context.Context, commentID int64) (*models.CommentStats, error) {
	if commentID <= 0 {
		return nil, validationError("Comment ID is required")
	}
	stats, err := s.repos.Comment.Stats(ctx, commentID)
	if err != nil {
		return nil, storeError("failed to read comment stats", err)
	}
	if stats == nil {
		return nil, notFoundError("Comment not found")
	}
	return stats, nil
}
