package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestGenericSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if payload["title"] == "" || payload["message"] == "" || payload["agent"] != "Deskhand" {
			t.Fatalf("unexpected payload: %v", payload)
		}
		w.WriteHeader(200)
	}))
	defer server.Close()

	g := &Generic{WebhookURL: server.URL}
	if err := g.Send(context.Background(), "T", "M"); err != nil {
		t.Fatalf("generic send failed: %v", err)
	}
}

func TestGotifySend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/message" {
			t.Fatalf("expected /message, got %s", r.URL.Path)
		}
		if r.Header.Get("X-Gotify-Key") != "tok" {
			t.Fatal("missing token header")
		}
		w.WriteHeader(200)
	}))
	defer server.Close()

	g := &Gotify{ServerURL: server.URL, Token: "tok"}
	if err := g.Send(context.Background(), "T", "M"); err != nil {
		t.Fatalf("gotify send failed: %v", err)
	}
}

type countingService struct {
	sends    int32
	failures int32
}

func (c *countingService) Name() string { return "counting" }
func (c *countingService) Send(_ context.Context, _, _ string) error {
	n := atomic.AddInt32(&c.sends, 1)
	if n <= atomic.LoadInt32(&c.failures) {
		return fmt.Errorf("simulated failure %d", n)
	}
	return nil
}

func TestMultiNotifierRetriesUntilSuccess(t *testing.T) {
	oldSleep := sleepHook
	sleepHook = func(time.Duration) {}
	defer func() { sleepHook = oldSleep }()

	svc := &countingService{failures: 2}
	m := NewMultiNotifier()
	m.Add(svc)
	m.Send(context.Background(), "T", "M")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.Wait(ctx); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if got := atomic.LoadInt32(&svc.sends); got != 3 {
		t.Fatalf("expected 3 attempts (2 failures + 1 success), got %d", got)
	}
}

func TestMultiNotifierCooldownSuppressesRapidSends(t *testing.T) {
	svc := &countingService{}
	m := NewMultiNotifier()
	m.SetCooldown(time.Hour)
	m.Add(svc)

	m.Send(context.Background(), "first", "m")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = m.Wait(ctx)

	m.Send(context.Background(), "second", "m")
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	_ = m.Wait(ctx2)

	if got := atomic.LoadInt32(&svc.sends); got != 1 {
		t.Fatalf("expected second send suppressed by cooldown, got %d sends", got)
	}
}

func TestMultiNotifierLen(t *testing.T) {
	m := NewMultiNotifier()
	if m.Len() != 0 {
		t.Fatal("expected empty notifier")
	}
	m.Add(&Generic{WebhookURL: "http://x"})
	m.Add(nil)
	if m.Len() != 1 {
		t.Fatalf("nil services must be ignored, got %d", m.Len())
	}
}
