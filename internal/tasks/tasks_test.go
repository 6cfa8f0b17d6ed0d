package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", Echo(slog.New(slog.NewTextHandler(io.Discard, nil)), 0, ""))
	r.Register("webhook", NewWebhook("http://localhost").Deliver)

	if _, err := r.Get("echo"); err != nil {
		t.Fatalf("get echo: %v", err)
	}
	if _, err := r.Get("missing"); !errors.Is(err, ErrUnknownHandler) {
		t.Fatalf("expected ErrUnknownHandler, got %v", err)
	}
	if got := r.Names(); !reflect.DeepEqual(got, []string{"echo", "webhook"}) {
		t.Fatalf("unexpected names %v", got)
	}
}

func TestEcho(t *testing.T) {
	fn := Echo(slog.New(slog.NewTextHandler(io.Discard, nil)), 0, "fail:")

	if err := fn(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fn(context.Background(), "fail:1"); err == nil {
		t.Fatal("expected marked item to fail")
	}
}

func TestEchoHonoursContext(t *testing.T) {
	fn := Echo(slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour, "")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := fn(ctx, "a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestWebhookDeliver(t *testing.T) {
	var got string
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		got = string(body)
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	wh := NewWebhook(server.URL)
	wh.Header = http.Header{"Authorization": []string{"Bearer t"}}
	if err := wh.Deliver(context.Background(), "item-1"); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if got != "item-1" {
		t.Errorf("expected body item-1, got %q", got)
	}
	if auth != "Bearer t" {
		t.Errorf("expected auth header, got %q", auth)
	}
}

func TestWebhookErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	err := NewWebhook(server.URL).Deliver(context.Background(), "x")
	if !errors.Is(err, ErrWebhook) {
		t.Fatalf("expected ErrWebhook, got %v", err)
	}
}
