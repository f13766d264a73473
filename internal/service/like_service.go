package service

import (
	"context"
	"errors"

	"github.com/blog-realtime-api/internal/identity"
	"github.com/blog-realtime-api/internal/models"
	"github.com/blog-realtime-api/internal/repository"
	"github.com/blog-realtime-api/internal/validation"
	"github.com/rs/zerolog"
)

// likeService is the concrete implementation of LikeService
type likeService struct {
	repos  *repository.Repositories
	events *emitter
	log    zerolog.Logger
}

func newLikeService(repos *repository.Repositories, events *emitter, log zerolog.Logger) *likeService {
	return &likeService{
		repos:  repos,
		events: events,
		log:    log.With().Str("service", "like").Logger(),
	}
}

// Toggle deletes the actor's like if present, otherwise records one, then
// reports the counter as read back after the write. The response and the
// broadcast carry that same value.
func (s *likeService) Toggle(ctx context.Context, blogID int64, commentID *int64, actor identity.Actor) (*models.ToggleResult, error) {
	if err := invalid(validation.ValidateLikeTarget(blogID, commentID)); err != nil {
		return nil, err
	}

	// A client going away must not abort a write half way
	ctx = context.WithoutCancel(ctx)

	if err := s.checkTarget(ctx, blogID, commentID); err != nil {
		return nil, err
	}

	existing, err := s.repos.Like.Find(ctx, blogID, commentID, actor)
	if err != nil {
		return nil, storeError("failed to check like", err)
	}

	if existing != nil {
		return s.unlike(ctx, existing, blogID, commentID, actor)
	}
	return s.like(ctx, blogID, commentID, actor)
}

func (s *likeService) like(ctx context.Context, blogID int64, commentID *int64, actor identity.Actor) (*models.ToggleResult, error) {
	var count int
	err := s.repos.Atomic(ctx, func(tx *repository.Repositories) error {
		if err := tx.Like.Create(ctx, &models.Like{BlogID: blogID, CommentID: commentID}, actor); err != nil {
			return err
		}
		var err error
		count, err = s.adjust(ctx, tx, blogID, commentID, 1)
		return err
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// A concurrent request already recorded this like
		s.log.Debug().Int64("blog_id", blogID).Str("actor", actor.Key()).Msg("Concurrent like detected")
		count, err := s.readCount(ctx, s.repos, blogID, commentID)
		if err != nil {
			return nil, err
		}
		return &models.ToggleResult{Liked: true, LikesCount: count}, nil
	}
	if err != nil {
		return nil, asStoreError("failed to add like", err)
	}
	s.events.likes(blogID, commentID, 1, count)

	return &models.ToggleResult{Liked: true, LikesCount: count}, nil
}

func (s *likeService) unlike(ctx context.Context, existing *models.Like, blogID int64, commentID *int64, actor identity.Actor) (*models.ToggleResult, error) {
	var (
		removed bool
		count   int
	)
	err := s.repos.Atomic(ctx, func(tx *repository.Repositories) error {
		var err error
		removed, err = tx.Like.Delete(ctx, existing.ID)
		if err != nil || !removed {
			return err
		}
		count, err = s.adjust(ctx, tx, blogID, commentID, -1)
		return err
	})
	if err != nil {
		return nil, asStoreError("failed to remove like", err)
	}
	if !removed {
		// A concurrent request already removed it and adjusted the counter
		s.log.Debug().Int64("blog_id", blogID).Str("actor", actor.Key()).Msg("Concurrent unlike detected")
		count, err := s.readCount(ctx, s.repos, blogID, commentID)
		if err != nil {
			return nil, err
		}
		return &models.ToggleResult{Liked: false, LikesCount: count}, nil
	}
	s.events.likes(blogID, commentID, -1, count)

	return &models.ToggleResult{Liked: false, LikesCount: count}, nil
}

// adjust applies a floored delta to the targeted counter and re-reads it
func (s *likeService) adjust(ctx context.Context, repos *repository.Repositories, blogID int64, commentID *int64, delta int) (int, error) {
	var err error
	if commentID != nil {
		err = repos.Comment.AdjustLikes(ctx, *commentID, delta)
	} else {
		err = repos.Blog.AdjustLikes(ctx, blogID, delta)
	}
	if err != nil {
		return 0, storeError("failed to update like count", err)
	}
	return s.readCount(ctx, repos, blogID, commentID)
}

func (s *likeService) readCount(ctx context.Context, repos *repository.Repositories, blogID int64, commentID *int64) (int, error) {
	if commentID != nil {
		comment, err := repos.Comment.GetByID(ctx, *commentID)
		if err != nil {
			return 0, storeError("failed to read like count", err)
		}
		if comment == nil {
			// Deleted concurrently; its likes went with it
			return 0, nil
		}
		return comment.LikesCount, nil
	}

	blog, err := repos.Blog.GetByID(ctx, blogID)
	if err != nil {
		return 0, storeError("failed to read like count", err)
	}
	if blog == nil {
		return 0, nil
	}
	return blog.LikesCount, nil
}

// checkTarget verifies the blog exists and the comment, if any, belongs to it
func (s *likeService) checkTarget(ctx context.Context, blogID int64, commentID *int64) error {
	exists, err := s.repos.Blog.Exists(ctx, blogID)
	if err != nil {
		return storeError("failed to check blog", err)
	}
	if !exists {
		return notFoundError("Blog not found")
	}
	if commentID == nil {
		return nil
	}

	comment, err := s.repos.Comment.GetByID(ctx, *commentID)
	if err != nil {
		return storeError("failed to check comment", err)
	}
	if comment == nil || comment.BlogID != blogID {
		return notFoundError("Comment not found")
	}
	return nil
}

// ToggleComment toggles a like on a comment addressed only by its id
func (s *likeService) ToggleComment(ctx context.Context, commentID int64, actor identity.Actor) (*models.ToggleResult, error) {
	comment, err := s.comment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	return s.Toggle(ctx, comment.BlogID, &commentID, actor)
}

// Status reports whether the actor currently likes the target
func (s *likeService) Status(ctx context.Context, blogID int64, commentID *int64, actor identity.Actor) (bool, error) {
	if blogID <= 0 {
		return false, validationError("blog_id is required")
	}
	like, err := s.repos.Like.Find(ctx, blogID, commentID, actor)
	if err != nil {
		return false, storeError("failed to check like status", err)
	}
	return like != nil, nil
}

// CommentStatus reports whether the actor currently likes a comment
func (s *likeService) CommentStatus(ctx context.Context, commentID int64, actor identity.Actor) (bool, error) {
	comment, err := s.comment(ctx, commentID)
	if err != nil {
		return false, err
	}
	return s.Status(ctx, comment.BlogID, &commentID, actor)
}

// Mine lists everything the actor currently likes
func (s *likeService) Mine(ctx context.Context, actor identity.Actor) (*models.MyLikes, error) {
	likes, err := s.repos.Like.ListByActor(ctx, actor)
	if err != nil {
		return nil, storeError("failed to list likes", err)
	}
	return likes, nil
}

// CommentLikes returns a page of like records on a comment
func (s *likeService) CommentLikes(ctx context.Context, commentID int64, page, limit int) (*models.LikePage, error) {
	if _, err := s.comment(ctx, commentID); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > models.MaxPageSize {
		limit = models.MaxPageSize
	}

	likes, total, err := s.repos.Like.ListByComment(ctx, commentID, page, limit)
	if err != nil {
		return nil, storeError("failed to list comment likes", err)
	}
	return &models.LikePage{Likes: likes, Pagination: models.NewPagination(page, limit, total)}, nil
}

// Counters returns the blog's authoritative like and comment counters
func (s *likeService) Counters(ctx context.Context, blogID int64) (*models.Blog, error) {
	if blogID <= 0 {
		return nil, validationError("blog_id is required")
	}
	blog, err := s.repos.Blog.GetByID(ctx, blogID)
	if err != nil {
		return nil, storeError("failed to read blog", err)
	}
	if blog == nil {
		return nil, notFoundError("Blog not found")
	}
	return blog, nil
}

func (s *likeService) comment(ctx context.Context, commentID int64) (*models.Comment, error) {
	if commentID <= 0 {
		return nil, validationError("comment_id is required")
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
