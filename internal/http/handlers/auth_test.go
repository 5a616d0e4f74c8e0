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
	"github.com/rgoncalves/marketdash/internal/security"
)

type fakeUsersStore struct {
	createCalls int
	lastCreate  struct {
		username, email, hash, role string
	}
	byEmail map[string]user.User
}

func (f *fakeUsersStore) Create(ctx context.Context, username, email, passwordHash, role string) (user.User, error) {
	f.createCalls++
	f.lastCreate.username = username
	f.lastCreate.email = email
	f.lastCreate.hash = passwordHash
	f.lastCreate.role = role

	return user.User{
		ID:        1,
		Username:  username,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeUsersStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	u, ok := f.byEmail[email]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

type fakeTokenIssuer struct{}

func (fakeTokenIssuer) GenerateToken(userID int64, username, role string) (string, error) {
	return "issued-token", nil
}

func newAuthRouter(store *fakeUsersStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := handlers.NewAuthHandler(store, store, fakeTokenIssuer{}, nil)

	r := gin.New()
	r.POST("/api/users", h.Register)
	r.POST("/api/login", h.Login)

	return r
}

func postJSON(t *testing.T, r http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestRegister_NeverReturnsPassword(t *testing.T) {
	store := &fakeUsersStore{}
	r := newAuthRouter(store)

	w := postJSON(t, r, "/api/users", `{"username":"sam","email":"sam@example.com","password":"password123"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}

	var body map[string]any

	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	for _, key := range []string{"password", "password_hash", "PasswordHash"} {
		if _, ok := body[key]; ok {
			t.Fatalf("response must not contain %q: %s", key, w.Body.String())
		}
	}

	id, ok := body["id"].(float64)

	if !ok || id <= 0 {
		t.Fatalf("expected a positive integer id, got %v", body["id"])
	}

	if body["role"] != "user" {
		t.Fatalf("expected default role user, got %v", body["role"])
	}

	if store.lastCreate.hash == "password123" {
		t.Fatalf("password must be hashed before storage")
	}
}

func TestRegister_MissingFieldsMakesNoStorageCall(t *testing.T) {
	cases := []string{
		`{"email":"sam@example.com","password":"password123"}`,
		`{"username":"sam","password":"password123"}`,
		`{"username":"sam","email":"sam@example.com"}`,
	}

	for _, body := range cases {
		store := &fakeUsersStore{}
		r := newAuthRouter(store)

		w := postJSON(t, r, "/api/users", body)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: got status %d, want %d", body, w.Code, http.StatusBadRequest)
		}

		if store.createCalls != 0 {
			t.Fatalf("body %s: expected zero storage mutations, got %d", body, store.createCalls)
		}
	}
}

func TestLogin_SameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	hash, err := security.HashPassword("correct-password")

	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	store := &fakeUsersStore{
		byEmail: map[string]user.User{
			"sam@example.com": {ID: 1, Username: "sam", Email: "sam@example.com", PasswordHash: hash, Role: "user"},
		},
	}
	r := newAuthRouter(store)

	wrongPassword := postJSON(t, r, "/api/login", `{"email":"sam@example.com","password":"wrong"}`)
	unknownEmail := postJSON(t, r, "/api/login", `{"email":"nobody@example.com","password":"whatever"}`)

	if wrongPassword.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: got status %d, want 401", wrongPassword.Code)
	}

	if unknownEmail.Code != http.StatusUnauthorized {
		t.Fatalf("unknown email: got status %d, want 401", unknownEmail.Code)
	}

	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Fatalf("the two failure modes must be indistinguishable:\n%s\n%s",
			wrongPassword.Body.String(), unknownEmail.Body.String())
	}
}

func TestLogin_Success(t *testing.T) {
	hash, err := security.HashPassword("correct-password")

	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	store := &fakeUsersStore{
		byEmail: map[string]user.User{
			"sam@example.com": {ID: 1, Username: "sam", Email: "sam@example.com", PasswordHash: hash, Role: "user"},
		},
	}
	r := newAuthRouter(store)

	w := postJSON(t, r, "/api/login", `{"email":"sam@example.com","password":"correct-password"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	if resp.Token != "issued-token" {
		t.Fatalf("got token %q, want issued-token", resp.Token)
	}
}
