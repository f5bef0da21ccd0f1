// Package notify delivers operational notifications (pass failures,
// recovery events) to configured sinks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/deskhand/deskhand/internal/logging"
)

// DefaultNotifierCooldown is the default cooldown between notifications to
// the same service, small enough not to suppress distinct events.
var DefaultNotifierCooldown = 100 * time.Millisecond

// Retry settings (tunable in tests)
var notifierMaxRetries = 3
var notifierBaseBackoff = 100 * time.Millisecond

// sleepHook is used in tests to avoid sleeping for real
var sleepHook = time.Sleep

// Service is the interface all notifiers must implement
type Service interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// MultiNotifier bundles all active services
type MultiNotifier struct {
	services []Service
	// lastSent tracks last successful send per service name
	lastSent map[string]time.Time
	cooldown time.Duration
	mu       sync.Mutex
	wg       sync.WaitGroup
}

func NewMultiNotifier() *MultiNotifier {
	return &MultiNotifier{services: make([]Service, 0), lastSent: make(map[string]time.Time), cooldown: DefaultNotifierCooldown}
}

func (m *MultiNotifier) Add(s Service) {
	if s != nil {
		m.services = append(m.services, s)
	}
}

func (m *MultiNotifier) Len() int {
	return len(m.services)
}

// SetCooldown allows tests or callers to adjust the cooldown
func (m *MultiNotifier) SetCooldown(d time.Duration) {
	m.cooldown = d
}

// Wait waits for pending notification sends to complete or until the
// provided context is cancelled.
func (m *MultiNotifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send sends notifications to all services with per-service retries and a
// cooldown to avoid spamming.
func (m *MultiNotifier) Send(ctx context.Context, title, message string) {
	now := time.Now()
	for _, s := range m.services {
		m.wg.Add(1)
		go func(svc Service, svcName string) {
			defer m.wg.Done()
			if m.shouldSkipDueToCooldown(svcName, now) {
				logging.Get().Warn().Str("service", svcName).Msg("skipping notification due to cooldown")
				return
			}
			if err := m.sendWithRetries(ctx, svc, title, message, svcName); err != nil {
				logging.Get().Error().Err(err).Str("service", svcName).Msg("all notification retries failed")
			}
		}(s, s.Name())
	}
}

func (m *MultiNotifier) shouldSkipDueToCooldown(name string, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if last, ok := m.lastSent[name]; ok {
		if now.Sub(last) < m.cooldown {
			return true
		}
	}
	return false
}

// sendWithRetries attempts a send with exponential backoff between attempts.
func (m *MultiNotifier) sendWithRetries(ctx context.Context, s Service, title, message, name string) error {
	var lastErr error
	for attempt := 1; attempt <= notifierMaxRetries; attempt++ {
		if err := s.Send(ctx, title, message); err != nil {
			lastErr = err
			logging.Get().Warn().Err(err).Str("service", name).Int("attempt", attempt).Msg("notification attempt failed")
			if attempt < notifierMaxRetries {
				d := notifierBaseBackoff * time.Duration(1<<uint(attempt-1))
				slept := make(chan struct{})
				go func() {
					sleepHook(d)
					close(slept)
				}()
				select {
				case <-slept:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			continue
		}
		m.mu.Lock()
		m.lastSent[name] = time.Now()
		m.mu.Unlock()
		logging.Get().Debug().Str("service", name).Msg("notification sent")
		return nil
	}
	return lastErr
}

// postJSON is a shared helper used by providers
func postJSON(ctx context.Context, url string, data interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("api returned status %d", resp.StatusCode)
	}
	return nil
}
