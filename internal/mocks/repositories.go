package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/blog-realtime-api/internal/identity"
	"github.com/blog-realtime-api/internal/models"
	"github.com/blog-realtime-api/internal/repository"
)

// Verify interface compliance
var (
	_ repository.BlogRepository    = (*MockBlogRepository)(nil)
	_ repository.UserRepository    = (*MockUserRepository)(nil)
	_ repository.CommentRepository = (*MockCommentRepository)(nil)
	_ repository.LikeRepository    = (*MockLikeRepository)(nil)
	_ repository.TxRunner          = (*MockTxRunner)(nil)
)

// Store is the shared in-memory state behind the mock repositories, so
// cascades and cross-table stats behave like the SQL schema.
type Store struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	Blogs    map[int64]*models.Blog
	Users    map[int64]*models.User
	Comments map[int64]*models.Comment
	Likes    map[int64]*models.Like
	likeKeys map[likeKey]int64
	nextID   int64
}

type likeKey struct {
	blogID    int64
	commentID int64
	actor     string
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		Blogs:    make(map[int64]*models.Blog),
		Users:    make(map[int64]*models.User),
		Comments: make(map[int64]*models.Comment),
		Likes:    make(map[int64]*models.Like),
		likeKeys: make(map[likeKey]int64),
	}
}

// AddBlog seeds a blog with zero counters
func (s *Store) AddBlog(id int64) *models.Blog {
	s.mu.Lock()
	defer s.mu.Unlock()
	blog := &models.Blog{ID: id, Title: "Blog", Slug: "blog"}
	s.Blogs[id] = blog
	return blog
}

// AddUser seeds a registered account
func (s *Store) AddUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Users[user.ID] = user
}

// Blog returns a copy of a blog's current state
func (s *Store) Blog(id int64) models.Blog {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.Blogs[id]; ok {
		return *b
	}
	return models.Blog{}
}

// Comment returns a copy of a comment's current state
func (s *Store) Comment(id int64) (models.Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.Comments[id]; ok {
		return *c, true
	}
	return models.Comment{}, false
}

// LikeCount returns the number of like rows
func (s *Store) LikeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Likes)
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func floor(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// CommentCount returns the number of comment rows
func (s *Store) CommentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Comments)
}

// Repositories wires all mocks over one store. Swapping a field on the
// returned value also affects transactions started through it.
func (s *Store) Repositories() *repository.Repositories {
	repos := &repository.Repositories{
		Blog:    &MockBlogRepository{store: s},
		User:    &MockUserRepository{store: s},
		Comment: &MockCommentRepository{store: s},
		Like:    &MockLikeRepository{store: s},
	}
	repos.Tx = &MockTxRunner{store: s, repos: repos}
	return repos
}

// snapshot is a copy of the mutable tables, used to roll back
type snapshot struct {
	blogs    map[int64]models.Blog
	comments map[int64]models.Comment
	likes    map[int64]models.Like
	likeKeys map[likeKey]int64
	nextID   int64
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		blogs:    make(map[int64]models.Blog, len(s.Blogs)),
		comments: make(map[int64]models.Comment, len(s.Comments)),
		likes:    make(map[int64]models.Like, len(s.Likes)),
		likeKeys: make(map[likeKey]int64, len(s.likeKeys)),
		nextID:   s.nextID,
	}
	for id, b := range s.Blogs {
		snap.blogs[id] = *b
	}
	for id, c := range s.Comments {
		snap.comments[id] = *c
	}
	for id, l := range s.Likes {
		snap.likes[id] = *l
	}
	for k, v := range s.likeKeys {
		snap.likeKeys[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Blogs = make(map[int64]*models.Blog, len(snap.blogs))
	for id, b := range snap.blogs {
		b := b
		s.Blogs[id] = &b
	}
	s.Comments = make(map[int64]*models.Comment, len(snap.comments))
	for id, c := range snap.comments {
		c := c
		s.Comments[id] = &c
	}
	s.Likes = make(map[int64]*models.Like, len(snap.likes))
	for id, l := range snap.likes {
		l := l
		s.Likes[id] = &l
	}
	s.likeKeys = snap.likeKeys
	s.nextID = snap.nextID
}

// MockTxRunner runs transactions one at a time and restores the store
// when fn fails, like a rolled back serializable transaction.
type MockTxRunner struct {
	store     *Store
	repos     *repository.Repositories
	Rollbacks int
}

func (m *MockTxRunner) RunInTx(ctx context.Context, fn func(tx *repository.Repositories) error) error {
	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()

	snap := m.store.snapshot()
	inner := *m.repos
	inner.Tx = nil

	if err := fn(&inner); err != nil {
		m.store.restore(snap)
		m.Rollbacks++
		return err
	}
	return nil
}

// MockBlogRepository is a mock implementation of BlogRepository
type MockBlogRepository struct {
	store       *Store
	AdjustError error
}

// NewMockBlogRepository creates a blog mock over store
func NewMockBlogRepository(store *Store) *MockBlogRepository {
	return &MockBlogRepository{store: store}
}

func (m *MockBlogRepository) GetByID(ctx context.Context, id int64) (*models.Blog, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if b, ok := m.store.Blogs[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, nil
}

func (m *MockBlogRepository) Exists(ctx context.Context, id int64) (bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	_, exists := m.store.Blogs[id]
	return exists, nil
}

func (m *MockBlogRepository) AdjustLikes(ctx context.Context, id int64, delta int) error {
	if m.AdjustError != nil {
		return m.AdjustError
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if b, ok := m.store.Blogs[id]; ok {
		b.LikesCount = floor(b.LikesCount + delta)
	}
	return nil
}

func (m *MockBlogRepository) AdjustComments(ctx context.Context, id int64, delta int) error {
	if m.AdjustError != nil {
		return m.AdjustError
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if b, ok := m.store.Blogs[id]; ok {
		b.CommentsCount = floor(b.CommentsCount + delta)
	}
	return nil
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	store *Store
}

// NewMockUserRepository creates a user mock over store
func NewMockUserRepository(store *Store) *MockUserRepository {
	return &MockUserRepository{store: store}
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if u, ok := m.store.Users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

// MockCommentRepository is a mock implementation of CommentRepository
type MockCommentRepository struct {
	store       *Store
	InsertError error
	DeleteError error
}

// NewMockCommentRepository creates a comment mock over store
func NewMockCommentRepository(store *Store) *MockCommentRepository {
	return &MockCommentRepository{store: store}
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	now := time.Now()
	comment.ID = m.store.id()
	comment.LikesCount = 0
	comment.CreatedAt = now
	comment.UpdatedAt = now
	comment.IsAnonymous = comment.UserID == nil
	copied := *comment
	m.store.Comments[comment.ID] = &copied
	return nil
}

func (m *MockCommentRepository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	c, ok := m.store.Comments[id]
	if !ok {
		return nil, nil
	}
	return m.store.hydrate(c), nil
}

func (m *MockCommentRepository) UpdateContent(ctx context.Context, id int64, content string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if c, ok := m.store.Comments[id]; ok {
		c.Content = content
		c.UpdatedAt = time.Now()
	}
	return nil
}

func (m *MockCommentRepository) Delete(ctx context.Context, id int64) (bool, error) {
	if m.DeleteError != nil {
		return false, m.DeleteError
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if _, ok := m.store.Comments[id]; !ok {
		return false, nil
	}
	delete(m.store.Comments, id)
	for likeID, like := range m.store.Likes {
		if like.CommentID != nil && *like.CommentID == id {
			m.store.removeLike(likeID)
		}
	}
	return true, nil
}

func (m *MockCommentRepository) AdjustLikes(ctx context.Context, id int64, delta int) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if c, ok := m.store.Comments[id]; ok {
		c.LikesCount = floor(c.LikesCount + delta)
	}
	return nil
}

func (m *MockCommentRepository) List(ctx context.Context, filter models.CommentFilter) ([]*models.Comment, int, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	var matched []*models.Comment
	for _, c := range m.store.Comments {
		if filter.BlogID > 0 && c.BlogID != filter.BlogID {
			continue
		}
		if filter.UserID > 0 && (c.UserID == nil || *c.UserID != filter.UserID) {
			continue
		}
		matched = append(matched, m.store.hydrate(c))
	}

	// The mock only honours id/creation ordering
	sort.Slice(matched, func(i, j int) bool {
		if filter.Order == "ASC" {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := filter.Offset()
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *MockCommentRepository) Stats(ctx context.Context, id int64) (*models.CommentStats, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	c, ok := m.store.Comments[id]
	if !ok {
		return nil, nil
	}

	stats := &models.CommentStats{
		CommentID:  c.ID,
		LikesCount: c.LikesCount,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
	for _, like := range m.store.Likes {
		if like.CommentID != nil && *like.CommentID == id {
			stats.TotalLikes++
		}
	}
	for _, other := range m.store.Comments {
		if other.BlogID == c.BlogID {
			stats.TotalCommentsInBlog++
		}
	}
	return stats, nil
}

func (s *Store) hydrate(c *models.Comment) *models.Comment {
	copied := *c
	copied.IsAnonymous = c.UserID == nil
	if c.UserID != nil {
		if u, ok := s.Users[*c.UserID]; ok {
			copied.UserInfo = &models.CommentUser{Username: u.Name, Email: u.Email}
		}
	}
	return &copied
}

func (s *Store) removeLike(id int64) {
	like, ok := s.Likes[id]
	if !ok {
		return
	}
	delete(s.Likes, id)
	for k, v := range s.likeKeys {
		if v == like.ID {
			delete(s.likeKeys, k)
		}
	}
}

// MockLikeRepository is a mock implementation of LikeRepository.
// FindFunc and BeforeCreate let tests open the check-then-insert window.
type MockLikeRepository struct {
	store        *Store
	FindFunc     func(ctx context.Context, blogID int64, commentID *int64, actor identity.Actor) (*models.Like, error)
	BeforeCreate func()
	InsertError  error
	CreateCalls  int
}

// NewMockLikeRepository creates a like mock over store
func NewMockLikeRepository(store *Store) *MockLikeRepository {
	return &MockLikeRepository{store: store}
}

func keyFor(blogID int64, commentID *int64, actor identity.Actor) likeKey {
	k := likeKey{blogID: blogID, actor: actor.Key()}
	if commentID != nil {
		k.commentID = *commentID
	}
	return k
}

func (m *MockLikeRepository) Find(ctx context.Context, blogID int64, commentID *int64, actor identity.Actor) (*models.Like, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, blogID, commentID, actor)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	id, ok := m.store.likeKeys[keyFor(blogID, commentID, actor)]
	if !ok {
		return nil, nil
	}
	copied := *m.store.Likes[id]
	return &copied, nil
}

func (m *MockLikeRepository) Create(ctx context.Context, like *models.Like, actor identity.Actor) error {
	if m.BeforeCreate != nil {
		m.BeforeCreate()
	}
	if m.InsertError != nil {
		return m.InsertError
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.CreateCalls++

	key := keyFor(like.BlogID, like.CommentID, actor)
	if _, exists := m.store.likeKeys[key]; exists {
		return repository.ErrDuplicate
	}

	if id, ok := actor.UserID(); ok {
		like.UserID = &id
	}
	if id, ok := actor.AnonymousID(); ok {
		like.AnonymousID = &id
	}
	like.IPAddress = actor.Address()
	like.ID = m.store.id()
	like.CreatedAt = time.Now()

	copied := *like
	m.store.Likes[like.ID] = &copied
	m.store.likeKeys[key] = like.ID
	return nil
}

func (m *MockLikeRepository) Delete(ctx context.Context, id int64) (bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if _, ok := m.store.Likes[id]; !ok {
		return false, nil
	}
	m.store.removeLike(id)
	return true, nil
}

func (m *MockLikeRepository) ListByComment(ctx context.Context, commentID int64, page, limit int) ([]*models.Like, int, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	var likes []*models.Like
	for _, like := range m.store.Likes {
		if like.CommentID != nil && *like.CommentID == commentID {
			copied := *like
			if like.UserID != nil {
				if u, ok := m.store.Users[*like.UserID]; ok {
					copied.UserInfo = &models.LikeUser{Name: u.Name, Email: u.Email}
				}
			}
			likes = append(likes, &copied)
		}
	}
	sort.Slice(likes, func(i, j int) bool { return likes[i].ID > likes[j].ID })

	total := len(likes)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return likes[start:end], total, nil
}

func (m *MockLikeRepository) ListByActor(ctx context.Context, actor identity.Actor) (*models.MyLikes, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	result := &models.MyLikes{LikedBlogs: []int64{}, LikedComments: []models.LikedComment{}}
	for key, id := range m.store.likeKeys {
		if key.actor != actor.Key() {
			continue
		}
		like := m.store.Likes[id]
		if like.CommentID == nil {
			result.LikedBlogs = append(result.LikedBlogs, like.BlogID)
		} else {
			result.LikedComments = append(result.LikedComments, models.LikedComment{BlogID: like.BlogID, CommentID: *like.CommentID})
		}
	}
	sort.Slice(result.LikedBlogs, func(i, j int) bool { return result.LikedBlogs[i] < result.LikedBlogs[j] })
	sort.Slice(result.LikedComments, func(i, j int) bool {
		return result.LikedComments[i].CommentID < result.LikedComments[j].CommentID
	})
	return result, nil
}
