package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rgoncalves/marketdash/internal/domain/user"
	"github.com/rgoncalves/marketdash/internal/http/handlers"
	"github.com/rgoncalves/marketdash/internal/http/middlewares"
)

type fakeUsersDirectory struct {
	users      []user.User
	lastPatch  user.UpdateUserRequest
	lastID     int64
	updateErr  error
	deleteErr  error
	deletedIDs []int64
}

func (f *fakeUsersDirectory) List(ctx context.Context) ([]user.User, error) {
	return f.users, nil
}

func (f *fakeUsersDirectory) Update(ctx context.Context, id int64, req user.UpdateUserRequest) (user.User, error) {
	f.lastID = id
	f.lastPatch = req

	if f.updateErr != nil {
		return user.User{}, f.updateErr
	}

	return user.User{ID: id, Username: "sam", Email: "sam@example.com", Role: "user"}, nil
}

func (f *fakeUsersDirectory) Delete(ctx context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}

	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

// identityAs stands in for the auth middleware, stashing a fixed caller
// identity on the context.
func identityAs(id int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.CtxUserID, id)
		c.Set(middlewares.CtxUsername, "sam")
		c.Set(middlewares.CtxRole, "user")
		c.Next()
	}
}

func newUsersRouter(repo *fakeUsersDirectory, callerID int64) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := handlers.NewUsersHandler(repo, nil)

	r := gin.New()
	r.Use(identityAs(callerID))
	r.GET("/api/users", h.ListUsers)
	r.PUT("/api/users/:id", h.UpdateUser)
	r.DELETE("/api/users/:id", h.DeleteUser)

	return r
}

func TestListUsers_ReturnsAllWithETag(t *testing.T) {
	repo := &fakeUsersDirectory{
		users: []user.User{
			{ID: 1, Username: "sam", Email: "sam@example.com", Role: "user", CreatedAt: time.Now().UTC()},
			{ID: 2, Username: "ana", Email: "ana@example.com", Role: "admin", CreatedAt: time.Now().UTC()},
		},
	}
	r := newUsersRouter(repo, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var users []map[string]any

	if err := json.Unmarshal(w.Body.Bytes(), &users); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}

	for _, u := range users {
		if _, ok := u["password_hash"]; ok {
			t.Fatalf("list must not expose password hashes: %v", u)
		}
	}

	etag := w.Header().Get("ETag")

	if etag == "" {
		t.Fatalf("expected an ETag header")
	}

	// a conditional re-read with the same ETag short-circuits
	req = httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Fatalf("got status %d, want 304", w.Code)
	}
}

func TestUpdateUser_SelfOnly(t *testing.T) {
	repo := &fakeUsersDirectory{}
	r := newUsersRouter(repo, 5)

	body := `{"username":"renamed"}`
	req := httptest.NewRequest(http.MethodPut, "/api/users/7", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("got status %d, want 403, body=%s", w.Code, w.Body.String())
	}

	if repo.lastID != 0 {
		t.Fatalf("update must not reach storage when identities differ")
	}
}

func TestUpdateUser_CoalescePatch(t *testing.T) {
	repo := &fakeUsersDirectory{}
	r := newUsersRouter(repo, 7)

	body := `{"email":"new@example.com"}`
	req := httptest.NewRequest(http.MethodPut, "/api/users/7", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	if repo.lastPatch.Email == nil || *repo.lastPatch.Email != "new@example.com" {
		t.Fatalf("email should be set in the patch, got %+v", repo.lastPatch)
	}

	if repo.lastPatch.Username != nil || repo.lastPatch.Role != nil {
		t.Fatalf("absent fields must stay nil so the store keeps current values, got %+v", repo.lastPatch)
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	repo := &fakeUsersDirectory{updateErr: user.ErrNotFound}
	r := newUsersRouter(repo, 7)

	body := `{"email":"new@example.com"}`
	req := httptest.NewRequest(http.MethodPut, "/api/users/7", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404, body=%s", w.Code, w.Body.String())
	}
}

func TestDeleteUser(t *testing.T) {
	repo := &fakeUsersDirectory{}
	r := newUsersRouter(repo, 1)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/9", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Message       string `json:"message"`
		DeletedUserID int64  `json:"deleted_user_id"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	if resp.DeletedUserID != 9 {
		t.Fatalf("got deleted_user_id %d, want 9", resp.DeletedUserID)
	}

	if len(repo.deletedIDs) != 1 || repo.deletedIDs[0] != 9 {
		t.Fatalf("expected one delete of id 9, got %v", repo.deletedIDs)
	}
}

func TestDeleteUser_NotFound(t *testing.T) {
	repo := &fakeUsersDirectory{deleteErr: user.ErrNotFound}
	r := newUsersRouter(repo, 1)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/9", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404, body=%s", w.Code, w.Body.String())
	}
}
