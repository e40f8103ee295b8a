package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUserNotFound is returned by FindUser when no account has the email.
var ErrUserNotFound = errors.New("user not found")

// AdminClient calls the Supabase Auth admin API with the service role key.
// It is used by the seed command, never on the request path.
type AdminClient struct {
	supabaseURL string
	serviceKey  string
	httpClient  *http.Client
}

// NewAdminClient creates a new Supabase Admin API client.
func NewAdminClient(supabaseURL, serviceKey string) *AdminClient {
	return &AdminClient{
		supabaseURL: strings.TrimRight(supabaseURL, "/"),
		serviceKey:  serviceKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateUserRequest is the payload for creating a new user
type CreateUserRequest struct {
	Email        string                 `json:"email"`
	Password     string                 `json:"password"`
	EmailConfirm bool                   `json:"email_confirm"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

// AdminUser is the subset of a Supabase user record the seed command needs
type AdminUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type listUsersResponse struct {
	Users []AdminUser `json:"users"`
}

// EnsureUser returns the account for email, creating a confirmed one with
// password when none exists.
func (c *AdminClient) EnsureUser(ctx context.Context, email, password, displayName string) (*AdminUser, error) {
	user, err := c.FindUser(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	req := CreateUserRequest{
		Email:        email,
		Password:     password,
		EmailConfirm: true,
	}
	if displayName != "" {
		req.UserMetadata = map[string]interface{}{"display_name": displayName}
	}

	var created AdminUser
	if err := c.do(ctx, http.MethodPost, "/auth/v1/admin/users", req, &created); err != nil {
		return nil, fmt.Errorf("create user %s: %w", email, err)
	}
	return &created, nil
}

// FindUser looks an account up by email (case-insensitive).
func (c *AdminClient) FindUser(ctx context.Context, email string) (*AdminUser, error) {
	var list listUsersResponse
	if err := c.do(ctx, http.MethodGet, "/auth/v1/admin/users", nil, &list); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for _, user := range list.Users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", email, ErrUserNotFound)
}

// DeleteUserByEmail deletes the account for email. Deleting an account that
// does not exist succeeds.
func (c *AdminClient) DeleteUserByEmail(ctx context.Context, email string) error {
	user, err := c.FindUser(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+user.ID, nil, nil); err != nil {
		return fmt.Errorf("delete user %s: %w", email, err)
	}
	return nil
}

func (c *AdminClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.supabaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
