package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/blog-realtime-api/internal/api"
	"github.com/blog-realtime-api/internal/config"
	"github.com/blog-realtime-api/internal/identity"
	"github.com/blog-realtime-api/internal/mocks"
	"github.com/blog-realtime-api/internal/models"
	"github.com/blog-realtime-api/internal/realtime"
	"github.com/blog-realtime-api/internal/repository"
	"github.com/blog-realtime-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var testSecret = []byte("test-secret")

type fakeDB struct {
	err error
}

func (f *fakeDB) HealthCheck(ctx context.Context) error { return f.err }
func (f *fakeDB) Stats() sql.DBStats                    { return sql.DBStats{OpenConnections: 3, InUse: 1, Idle: 2} }

type testEnv struct {
	router   *gin.Engine
	store    *mocks.Store
	events   *mocks.MockBroadcaster
	verifier *identity.JWTVerifier
	db       *fakeDB
}

func setupTestRouter() *testEnv {
	gin.SetMode(gin.TestMode)

	store := mocks.NewStore()
	store.AddBlog(10)
	store.AddUser(&models.User{ID: 7, Name: "Ann", Email: "ann@example.com"})
	store.AddUser(&models.User{ID: 1, Name: "Root", Email: "root@example.com", IsAdmin: true})

	env := &testEnv{
		store:    store,
		events:   mocks.NewMockBroadcaster(),
		verifier: identity.NewJWTVerifier(testSecret, ""),
		db:       &fakeDB{},
	}
	env.build(nil)
	return env
}

// build wires the router, optionally swapping in a blog repository
func (e *testEnv) build(blogs repository.BlogRepository) {
	repos := e.store.Repositories()
	if blogs != nil {
		repos.Blog = blogs
	}

	cfg := &config.Config{
		Server:   config.ServerConfig{Port: "8080"},
		Realtime: config.RealtimeConfig{AllowedOrigins: []string{"*"}},
	}
	e.router = api.NewRouter(api.Deps{
		Services: service.NewServices(repos, e.events, zerolog.Nop()),
		Resolver: identity.NewResolver(e.verifier, true),
		DB:       e.db,
	}, cfg, zerolog.Nop())
}

// visitor identifies an anonymous browser by address and user agent
type visitor struct {
	ip    string
	ua    string
	token string
}

var (
	visitorA = visitor{ip: "1.2.3.4", ua: "X"}
	visitorB = visitor{ip: "5.6.7.8", ua: "Y"}
)

func (e *testEnv) do(method, path string, body interface{}, v visitor) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", v.ip)
	req.Header.Set("User-Agent", v.ua)
	if v.token != "" {
		req.Header.Set("Authorization", "Bearer "+v.token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Invalid JSON response %q: %v", w.Body.String(), err)
	}
	return response
}

func (e *testEnv) createComment(t *testing.T, v visitor, name, content string) int64 {
	t.Helper()
	w := e.do("POST", "/api/comments/blog/10", gin.H{"name": name, "content": content}, v)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	return int64(decode(t, w)["id"].(float64))
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestRouter()

	w := env.do("GET", "/health", nil, visitorA)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	response := decode(t, w)
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "blog-realtime-api" {
		t.Errorf("Expected service name, got %v", response["service"])
	}

	env.db.err = errors.New("connection refused")
	w = env.do("GET", "/health", nil, visitorA)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestRouter()

	w := env.do("GET", "/metrics", nil, visitorA)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	db := decode(t, w)["database"].(map[string]interface{})
	if db["open_connections"].(float64) != 3 {
		t.Errorf("Expected 3 open connections, got %v", db["open_connections"])
	}
}

func TestToggleBlogLike(t *testing.T) {
	env := setupTestRouter()

	w := env.do("POST", "/api/likes", gin.H{"blog_id": 10}, visitorA)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	response := decode(t, w)
	if response["liked"] != true || response["likes_count"].(float64) != 1 || response["message"] != "Liked" {
		t.Errorf("Unexpected response %v", response)
	}

	last, _ := env.events.Last()
	payload := last.Payload.(models.BlogLikesEvent)
	if last.Room != "blog:10" || payload.Delta != 1 || payload.LikesCount != 1 {
		t.Errorf("Unexpected broadcast %+v", last)
	}

	w = env.do("POST", "/api/likes", gin.H{"blog_id": 10}, visitorA)
	response = decode(t, w)
	if response["liked"] != false || response["likes_count"].(float64) != 0 || response["message"] != "Unliked" {
		t.Errorf("Unexpected response %v", response)
	}
	last, _ = env.events.Last()
	if payload := last.Payload.(models.BlogLikesEvent); payload.Delta != -1 || payload.LikesCount != 0 {
		t.Errorf("Unexpected broadcast %+v", payload)
	}
}

func TestToggleLike_Errors(t *testing.T) {
	env := setupTestRouter()

	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
	}{
		{"missing blog", gin.H{}, http.StatusBadRequest},
		{"malformed body", "not an object", http.StatusBadRequest},
		{"unknown blog", gin.H{"blog_id": 404}, http.StatusNotFound},
		{"unknown comment", gin.H{"blog_id": 10, "comment_id": 999}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do("POST", "/api/likes", tt.body, visitorA)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if _, ok := decode(t, w)["error"]; !ok {
				t.Error("Error response should carry an error field")
			}
		})
	}
}

func TestToggleLike_StoreError(t *testing.T) {
	env := setupTestRouter()
	blogs := mocks.NewMockBlogRepository(env.store)
	blogs.AdjustError = errors.New("pq: deadlock detected")
	env.build(blogs)

	w := env.do("POST", "/api/likes", gin.H{"blog_id": 10}, visitorA)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}
	if msg := decode(t, w)["error"]; msg != "internal server error" {
		t.Errorf("Store details leaked to the caller: %v", msg)
	}
}

func TestCreateComment(t *testing.T) {
	env := setupTestRouter()

	w := env.do("POST", "/api/comments/blog/10", gin.H{"name": "Al", "content": "hi"}, visitorA)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	response := decode(t, w)
	if response["is_anonymous"] != true {
		t.Errorf("Expected is_anonymous true, got %v", response["is_anonymous"])
	}
	if response["anonymous_id"] != identity.PseudoID("1.2.3.4", "X") {
		t.Errorf("Unexpected anonymous id %v", response["anonymous_id"])
	}
	if got := env.store.Blog(10).CommentsCount; got != 1 {
		t.Errorf("Expected comment counter 1, got %d", got)
	}

	last, _ := env.events.Last()
	if last.Event != models.EventCommentCreated {
		t.Errorf("Expected comment:created, got %s", last.Event)
	}
}

func TestCreateComment_Validation(t *testing.T) {
	env := setupTestRouter()

	tests := []struct {
		name           string
		path           string
		body           interface{}
		expectedStatus int
		expectedError  string
	}{
		{"invalid blog id", "/api/comments/blog/abc", gin.H{"name": "Al", "content": "hi"}, http.StatusBadRequest, "invalid blogId"},
		{"missing content", "/api/comments/blog/10", gin.H{"name": "Al"}, http.StatusBadRequest, "Content is required"},
		{"missing name", "/api/comments/blog/10", gin.H{"content": "hi"}, http.StatusBadRequest, "Name is required"},
		{"unknown blog", "/api/comments/blog/404", gin.H{"name": "Al", "content": "hi"}, http.StatusNotFound, "Blog not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do("POST", tt.path, tt.body, visitorA)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			msg, _ := decode(t, w)["error"].(string)
			if !strings.Contains(msg, tt.expectedError) {
				t.Errorf("Expected error containing %q, got %q", tt.expectedError, msg)
			}
		})
	}
}

func TestCreateComment_RegisteredUser(t *testing.T) {
	env := setupTestRouter()
	token, err := env.verifier.Issue(identity.Session{UserID: 7, Name: "Ann"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	w := env.do("POST", "/api/comments/blog/10", gin.H{"content": "signed in"}, visitor{ip: "1.2.3.4", ua: "X", token: token})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	response := decode(t, w)
	if response["user_id"].(float64) != 7 || response["is_anonymous"] != false {
		t.Errorf("Unexpected author fields %v", response)
	}
	info := response["user_info"].(map[string]interface{})
	if info["email"] != "ann@example.com" {
		t.Errorf("Unexpected user info %v", info)
	}
}

func TestDeleteComment_Forbidden(t *testing.T) {
	env := setupTestRouter()
	id := env.createComment(t, visitorA, "Al", "hi")

	w := env.do("DELETE", "/api/comments/"+itoa(id), nil, visitorB)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
	if _, ok := env.store.Comment(id); !ok {
		t.Error("Comment should still exist")
	}
	if got := env.store.Blog(10).CommentsCount; got != 1 {
		t.Errorf("Counter should be unchanged, got %d", got)
	}
}

func TestDeleteComment_ByAuthor(t *testing.T) {
	env := setupTestRouter()
	id := env.createComment(t, visitorA, "Al", "hi")

	w := env.do("DELETE", "/api/comments/"+itoa(id), nil, visitorA)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := env.store.Blog(10).CommentsCount; got != 0 {
		t.Errorf("Expected comment counter 0, got %d", got)
	}
	last, _ := env.events.Last()
	want := models.CommentDeletedEvent{BlogID: 10, CommentID: id}
	if last.Payload != want {
		t.Errorf("Expected %+v, got %+v", want, last.Payload)
	}

	w = env.do("GET", "/api/comments/"+itoa(id), nil, visitorA)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", w.Code)
	}
}

func TestDeleteComment_Admin(t *testing.T) {
	env := setupTestRouter()
	id := env.createComment(t, visitorA, "Al", "hi")
	token, _ := env.verifier.Issue(identity.Session{UserID: 1, IsAdmin: true}, time.Hour)

	w := env.do("DELETE", "/api/comments/"+itoa(id), nil, visitor{ip: "9.9.9.9", ua: "Z", token: token})
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestUpdateComment(t *testing.T) {
	env := setupTestRouter()
	id := env.createComment(t, visitorA, "Al", "hi")

	w := env.do("PUT", "/api/comments/"+itoa(id), gin.H{"content": ""}, visitorA)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	w = env.do("PUT", "/api/comments/"+itoa(id), gin.H{"content": "edited"}, visitorB)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}

	w = env.do("PUT", "/api/comments/"+itoa(id), gin.H{"content": "edited"}, visitorA)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if decode(t, w)["content"] != "edited" {
		t.Error("Expected updated content")
	}

	w = env.do("PUT", "/api/comments/999", gin.H{"content": "edited"}, visitorA)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestCommentLikeEndpoints(t *testing.T) {
	env := setupTestRouter()
	id := env.createComment(t, visitorA, "Al", "hi")
	path := "/api/comments/" + itoa(id)

	w := env.do("POST", path+"/like", nil, visitorB)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if response := decode(t, w); response["liked"] != true || response["likes_count"].(float64) != 1 {
		t.Errorf("Unexpected response %v", response)
	}
	last, _ := env.events.Last()
	want := models.CommentLikesEvent{BlogID: 10, CommentID: id, Delta: 1, LikesCount: 1}
	if last.Event != models.EventCommentLikes || last.Payload != want {
		t.Errorf("Expected %+v, got %s %+v", want, last.Event, last.Payload)
	}

	response := decode(t, env.do("GET", path+"/like/status", nil, visitorB))
	if response["liked"] != true || response["is_anonymous"] != true || response["user_id"] != nil {
		t.Errorf("Unexpected status %v", response)
	}
	if response["anonymous_id"] != identity.PseudoID("5.6.7.8", "Y") {
		t.Errorf("Unexpected anonymous id %v", response["anonymous_id"])
	}

	response = decode(t, env.do("GET", "/api/likes/status?blog_id=10&comment_id="+itoa(id), nil, visitorA))
	if response["liked"] != false {
		t.Error("Visitor A never liked the comment")
	}

	response = decode(t, env.do("GET", path+"/likes", nil, visitorA))
	if likes := response["likes"].([]interface{}); len(likes) != 1 {
		t.Errorf("Expected 1 like record, got %d", len(likes))
	}

	response = decode(t, env.do("GET", path+"/stats", nil, visitorA))
	if response["likes_count"].(float64) != 1 || response["total_comments_in_blog"].(float64) != 1 {
		t.Errorf("Unexpected stats %v", response)
	}

	response = decode(t, env.do("GET", "/api/likes/mine", nil, visitorB))
	if liked := response["likedComments"].([]interface{}); len(liked) != 1 {
		t.Errorf("Expected 1 liked comment, got %v", liked)
	}
}

func TestLikeStatus_RequiresBlog(t *testing.T) {
	env := setupTestRouter()

	w := env.do("GET", "/api/likes/status", nil, visitorA)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestListComments(t *testing.T) {
	env := setupTestRouter()
	for i := 0; i < 3; i++ {
		env.createComment(t, visitorA, "Al", "hi")
	}

	w := env.do("GET", "/api/comments/blog/10?page=1&limit=2&sort=bogus&order=asc", nil, visitorA)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	response := decode(t, w)
	if comments := response["comments"].([]interface{}); len(comments) != 2 {
		t.Errorf("Expected 2 comments, got %d", len(comments))
	}
	pagination := response["pagination"].(map[string]interface{})
	if pagination["total"].(float64) != 3 || pagination["hasNext"] != true {
		t.Errorf("Unexpected pagination %v", pagination)
	}

	w = env.do("GET", "/api/comments?blog_id=abc", nil, visitorA)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestBlogCounters(t *testing.T) {
	env := setupTestRouter()
	env.createComment(t, visitorA, "Al", "hi")
	env.do("POST", "/api/likes", gin.H{"blog_id": 10}, visitorB)

	response := decode(t, env.do("GET", "/api/blogs/10/counters", nil, visitorA))
	if response["likes_count"].(float64) != 1 || response["comments_count"].(float64) != 1 {
		t.Errorf("Unexpected counters %v", response)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestRouter()

	w := env.do("OPTIONS", "/api/comments/1", nil, visitorA)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "DELETE") {
		t.Error("DELETE should be allowed")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected a request id header")
	}
}

func TestWebsocketReceivesCommentEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := mocks.NewStore()
	store.AddBlog(10)
	store.AddBlog(11)
	hub := realtime.NewHub(realtime.DefaultOptions(), zerolog.Nop())
	defer hub.Close()

	cfg := &config.Config{Realtime: config.RealtimeConfig{AllowedOrigins: []string{"*"}}}
	router := api.NewRouter(api.Deps{
		Services: service.NewServices(store.Repositories(), hub, zerolog.Nop()),
		Resolver: identity.NewResolver(nil, true),
		Hub:      hub,
	}, cfg, zerolog.Nop())

	server := httptest.NewServer(router)
	defer server.Close()

	dial := func(blogID int) *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
		if err != nil {
			t.Fatalf("Dial failed: %v", err)
		}
		conn.WriteJSON(gin.H{"event": "joinBlog", "data": blogID})
		return conn
	}
	viewer := dial(10)
	defer viewer.Close()
	other := dial(11)
	defer other.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.RoomSize("blog:10") == 0 || hub.RoomSize("blog:11") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Viewers never joined their rooms")
		}
		time.Sleep(10 * time.Millisecond)
	}

	body := strings.NewReader(`{"name":"Al","content":"hi"}`)
	resp, err := http.Post(server.URL+"/api/comments/blog/10", "application/json", body)
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}

	viewer.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame struct {
		Event string `json:"event"`
		Data  struct {
			Comment models.Comment `json:"comment"`
			Delta   int            `json:"delta"`
		} `json:"data"`
	}
	if err := viewer.ReadJSON(&frame); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if frame.Event != "comment:created" || frame.Data.Delta != 1 || frame.Data.Comment.Content != "hi" {
		t.Errorf("Unexpected frame %+v", frame)
	}

	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Error("Viewer of another blog received the event")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
