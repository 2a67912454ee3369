package userdir

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetUser(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/42" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":42,"name":"Ivan Petrov","email":"ivan@example.com","role":"buyer"}`)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	info, err := client.GetUser(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetUser error: %v", err)
	}
	if info == nil {
		t.Fatal("expected user info, got nil")
	}
	if info.ID != 42 || info.Email != "ivan@example.com" {
		t.Fatalf("unexpected user info: %+v", info)
	}
}

func TestGetUserNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	info, err := client.GetUser(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetUser error: %v", err)
	}
	if info != nil {
		t.Fatalf("expected nil for unknown user, got %+v", info)
	}

	exists, err := client.UserExists(context.Background(), 42)
	if err != nil {
		t.Fatalf("UserExists error: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for unknown user")
	}
}

func TestGetUserRetriesServerErrors(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":42,"name":"Ivan Petrov","email":"ivan@example.com","role":"buyer"}`)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	exists, err := client.UserExists(context.Background(), 42)
	if err != nil {
		t.Fatalf("UserExists error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true after retries")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestGetUserNotConfigured(t *testing.T) {
	client := &Client{}

	if _, err := client.GetUser(context.Background(), 42); err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}
