// Package client is the Go counterpart of the dashboard frontend's API
// module: one place that knows the base URL, speaks JSON, and attaches
// the stored bearer token to every request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Nil fields are omitted so the server keeps the stored value.
type UpdateUserRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *string `json:"role,omitempty"`
}

type DeleteResult struct {
	Message       string `json:"message"`
	DeletedUserID int64  `json:"deleted_user_id"`
}

// Row aliases the untyped wire shape so callers can hand client results
// straight to the tableview model.
type Row = map[string]any

// APIError is the server's error envelope surfaced as a Go error.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  TokenStore
}

func New(baseURL string, tokens TokenStore) *Client {
	if tokens == nil {
		tokens = NewMemTokenStore()
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
	}
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (User, error) {
	var u User

	err := c.do(ctx, http.MethodPost, "/api/users", nil, req, &u)

	return u, err
}

// Login authenticates and persists the returned token so later
// requests carry it automatically.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}

	var resp struct {
		Token string `json:"token"`
	}

	err := c.do(ctx, http.MethodPost, "/api/login", nil, body, &resp)

	if err != nil {
		return "", err
	}

	err = c.tokens.Save(resp.Token)

	if err != nil {
		return "", err
	}

	return resp.Token, nil
}

func (c *Client) Logout() error {
	return c.tokens.Clear()
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User

	err := c.do(ctx, http.MethodGet, "/api/users", nil, nil, &users)

	return users, err
}

func (c *Client) UpdateUser(ctx context.Context, id int64, patch UpdateUserRequest) (User, error) {
	var u User

	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/users/%d", id), nil, patch, &u)

	return u, err
}

func (c *Client) DeleteUser(ctx context.Context, id int64) (DeleteResult, error) {
	var res DeleteResult

	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/users/%d", id), nil, nil, &res)

	return res, err
}

func (c *Client) FetchTable(ctx context.Context, tableName string) ([]Row, error) {
	query := url.Values{"tableName": {tableName}}

	var resp struct {
		Rows []Row `json:"rows"`
	}

	err := c.do(ctx, http.MethodGet, "/api/fetch_table", query, nil, &resp)

	if err != nil {
		return nil, err
	}

	return resp.Rows, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path

	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader

	if body != nil {
		b, err := json.Marshal(body)

		if err != nil {
			return err
		}

		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)

	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Load()

	if err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)

	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Code: "unknown"}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
		if envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
		}
		apiErr.Message = envelope.Error.Message
	}

	return apiErr
}
