package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAdminClient_EnsureUser(t *testing.T) {
	var created bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "service-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.Method {
		case http.MethodGet:
			users := []AdminUser{{ID: "existing", Email: "Owner@example.com"}}
			_ = json.NewEncoder(w).Encode(listUsersResponse{Users: users})
		case http.MethodPost:
			var req CreateUserRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if !req.EmailConfirm {
				t.Error("seeded users should be confirmed")
			}
			created = true
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(AdminUser{ID: "new-id", Email: req.Email})
		}
	}))
	defer srv.Close()

	client := NewAdminClient(srv.URL+"/", "service-key")
	ctx := context.Background()

	user, err := client.EnsureUser(ctx, "owner@example.com", "pw", "")
	if err != nil {
		t.Fatalf("EnsureUser(existing) error = %v", err)
	}
	if user.ID != "existing" || created {
		t.Errorf("existing user should be reused, got %+v created=%v", user, created)
	}

	user, err = client.EnsureUser(ctx, "reviewer@example.com", "pw", "Reviewer")
	if err != nil {
		t.Fatalf("EnsureUser(new) error = %v", err)
	}
	if user.ID != "new-id" || !created {
		t.Errorf("new user = %+v created=%v", user, created)
	}

	if _, err := client.FindUser(ctx, "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("FindUser(unknown) error = %v, want ErrUserNotFound", err)
	}
}
