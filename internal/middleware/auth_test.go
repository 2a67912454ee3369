package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmeshcher/automarket-system/internal/model"
)

func TestAuthMiddleware_ValidToken(t *testing.T) {
	auth := NewAuthMiddleware("test-secret")

	token, err := auth.IssueToken(42, model.RoleSeller)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	var gotPrincipal model.Principal
	var called bool

	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := GetPrincipalFromContext(r.Context())
		if !ok {
			t.Fatalf("principal not found in context")
		}
		gotPrincipal = p
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("handler was not called")
	}
	if gotPrincipal.UserID != 42 {
		t.Fatalf("UserID = %d, want 42", gotPrincipal.UserID)
	}
	if gotPrincipal.Role != model.RoleSeller {
		t.Fatalf("Role = %s, want seller", gotPrincipal.Role)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	auth := NewAuthMiddleware("test-secret")

	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	issuer := NewAuthMiddleware("other-secret")
	auth := NewAuthMiddleware("test-secret")

	token, err := issuer.IssueToken(42, model.RoleBuyer)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_UnknownRole(t *testing.T) {
	auth := NewAuthMiddleware("test-secret")

	token, err := auth.IssueToken(1, model.Role("superuser"))
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
