package api

import (
	"net/http"
	"strings"

	"github.com/blog-realtime-api/internal/models"
	"github.com/blog-realtime-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CommentHandler handles comment endpoints
type CommentHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(services *service.Services, log zerolog.Logger) *CommentHandler {
	return &CommentHandler{
		services: services,
		log:      log.With().Str("handler", "comment").Logger(),
	}
}

type createCommentRequest struct {
	Content string `json:"content"`
	Name    string `json:"name"`
}

type updateCommentRequest struct {
	Content string `json:"content"`
}

// List handles GET /api/comments
func (h *CommentHandler) List(c *gin.Context) {
	filter, ok := commentFilter(c)
	if !ok {
		return
	}

	page, err := h.services.Comment.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListByBlog handles GET /api/comments/blog/:blogId
func (h *CommentHandler) ListByBlog(c *gin.Context) {
	blogID, ok := pathID(c, "blogId")
	if !ok {
		return
	}
	filter, ok := commentFilter(c)
	if !ok {
		return
	}

	page, err := h.services.Comment.ListByBlog(c.Request.Context(), blogID, filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get handles GET /api/comments/:commentId
func (h *CommentHandler) Get(c *gin.Context) {
	commentID, ok := pathID(c, "commentId")
	if !ok {
		return
	}

	comment, err := h.services.Comment.Get(c.Request.Context(), commentID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// Stats handles GET /api/comments/:commentId/stats
func (h *CommentHandler) Stats(c *gin.Context) {
	commentID, ok := pathID(c, "commentId")
	if !ok {
		return
	}

	stats, err := h.services.Comment.Stats(c.Request.Context(), commentID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Create handles POST /api/comments/blog/:blogId
func (h *CommentHandler) Create(c *gin.Context) {
	blogID, ok := pathID(c, "blogId")
	if !ok {
		return
	}

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	comment, err := h.services.Comment.Create(c.Request.Context(), blogID, actorFrom(c), req.Name, req.Content)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// Update handles PUT /api/comments/:commentId
func (h *CommentHandler) Update(c *gin.Context) {
	commentID, ok := pathID(c, "commentId")
	if !ok {
		return
	}

	var req updateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	comment, err := h.services.Comment.Update(c.Request.Context(), commentID, actorFrom(c), req.Content)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// Delete handles DELETE /api/comments/:commentId
func (h *CommentHandler) Delete(c *gin.Context) {
	commentID, ok := pathID(c, "commentId")
	if !ok {
		return
	}

	if err := h.services.Comment.Delete(c.Request.Context(), commentID, actorFrom(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}

// commentFilter reads listing parameters; unknown sort columns and
// orders fall back to their defaults
func commentFilter(c *gin.Context) (models.CommentFilter, bool) {
	filter := models.CommentFilter{
		Sort:  c.Query("sort"),
		Order: strings.ToUpper(c.Query("order")),
		Page:  queryInt(c, "page"),
		Limit: queryInt(c, "limit"),
	}

	blogID, _, ok := queryID(c, "blog_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid blog_id"})
		return filter, false
	}
	userID, _, ok := queryID(c, "user_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return filter, false
	}
	filter.BlogID = blogID
	filter.UserID = userID

	return filter, true
}
