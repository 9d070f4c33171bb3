package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"workforce/internal/domain/auth"
)

func TestAuthMiddlewareParsesToken(t *testing.T) {
	secret := "test-secret"
	token, err := auth.GenerateToken(secret, auth.Claims{
		UserID:     "u1",
		TenantID:   "t1",
		EmployeeID: "emp-1",
		Role:       auth.RoleHR,
	}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	var got auth.UserContext
	var ok bool
	handler := Auth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = GetUser(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !ok {
		t.Fatal("user missing from context")
	}
	if got.UserID != "u1" || got.Role != auth.RoleHR || got.EmployeeID != "emp-1" {
		t.Fatalf("unexpected user context: %+v", got)
	}
}

func TestAuthMiddlewareAnonymousPassThrough(t *testing.T) {
	handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); ok {
			t.Error("anonymous request must not carry a user")
		}
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRequirePermission(t *testing.T) {
	protected := RequirePermission(auth.PermLeaveApprove, auth.StaticPerms{})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

	// No user at all.
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: status %d, want 401", rec.Code)
	}

	secret := "s"
	for role, want := range map[string]int{
		auth.RoleEmployee: http.StatusForbidden,
		auth.RoleManager:  http.StatusNoContent,
	} {
		token, err := auth.GenerateToken(secret, auth.Claims{UserID: "u1", Role: role}, time.Hour)
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		Auth(secret)(protected).ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("role %s: status %d, want %d", role, rec.Code, want)
		}
	}
}
