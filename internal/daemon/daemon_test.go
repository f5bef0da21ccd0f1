package daemon

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deskhand/deskhand/internal/config"
	"github.com/deskhand/deskhand/internal/notify"
	"github.com/deskhand/deskhand/internal/runtime"
	"github.com/deskhand/deskhand/internal/state"
)

type fakeSync struct {
	mu        sync.Mutex
	synced    []string
	retracted []string
	failFor   map[string]error
}

func (f *fakeSync) Sync(_ context.Context, name string, _ runtime.Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, name)
	return f.failFor[name]
}

func (f *fakeSync) Retract(_ context.Context, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retracted = append(f.retracted, owner)
	return nil
}

func (f *fakeSync) syncedNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.synced...)
}

func testConfig(names ...string) *config.Config {
	cfg := config.DefaultConfig()
	for _, n := range names {
		cfg.Containers = append(cfg.Containers, config.ContainerRef{Name: n, Runtime: "toolbox"})
	}
	return cfg
}

func TestRunOnceSyncsInListingOrder(t *testing.T) {
	t.Setenv("DESKHAND_STATE_DIR", t.TempDir())
	fs := &fakeSync{failFor: map[string]error{"beta": errors.New("boom")}}
	d := New(testConfig("alpha", "beta", "gamma"), fs, notify.NewMultiNotifier())

	err := d.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "beta") {
		t.Fatalf("expected beta failure surfaced, got %v", err)
	}

	got := fs.syncedNames()
	want := []string{"alpha", "beta", "gamma"}
	if len(got) != len(want) {
		t.Fatalf("synced %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("synced %v, want %v", got, want)
		}
	}
}

func TestRunOnceRetractsStaleOwners(t *testing.T) {
	t.Setenv("DESKHAND_STATE_DIR", t.TempDir())
	for _, owner := range []string{"alpha", "departed"} {
		if err := state.AddPublishRecord(state.PublishRecord{Owner: owner, Timestamp: time.Now()}); err != nil {
			t.Fatalf("seed state: %v", err)
		}
	}
	fs := &fakeSync{}
	d := New(testConfig("alpha"), fs, notify.NewMultiNotifier())

	if err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once failed: %v", err)
	}
	if len(fs.retracted) != 1 || fs.retracted[0] != "departed" {
		t.Fatalf("expected only the departed owner retracted, got %v", fs.retracted)
	}
}

func TestStartWithoutResyncSweepsOnce(t *testing.T) {
	t.Setenv("DESKHAND_STATE_DIR", t.TempDir())
	fs := &fakeSync{}
	d := New(testConfig("alpha"), fs, notify.NewMultiNotifier())

	d.Start()
	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if got := len(fs.syncedNames()); got != 1 {
		t.Fatalf("expected exactly one sweep without a resync interval, got %d syncs", got)
	}
}

func TestResyncIntervalTriggersRepeatedSweeps(t *testing.T) {
	t.Setenv("DESKHAND_STATE_DIR", t.TempDir())
	fs := &fakeSync{}
	cfg := testConfig("alpha")
	cfg.ResyncInterval = 15 * time.Millisecond
	d := New(cfg, fs, notify.NewMultiNotifier())

	d.Start()
	time.Sleep(100 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if got := len(fs.syncedNames()); got < 2 {
		t.Fatalf("expected periodic re-sync, got %d syncs", got)
	}
}

type recordingService struct{ sends int32 }

func (r *recordingService) Name() string { return "recording" }
func (r *recordingService) Send(_ context.Context, _, _ string) error {
	atomic.AddInt32(&r.sends, 1)
	return nil
}

func TestNotifyOnFailureLevel(t *testing.T) {
	t.Setenv("DESKHAND_STATE_DIR", t.TempDir())
	svc := &recordingService{}
	notifier := notify.NewMultiNotifier()
	notifier.SetCooldown(0)
	notifier.Add(svc)

	cfg := testConfig("alpha")
	cfg.NotificationLevel = "failure"
	fs := &fakeSync{}
	d := New(cfg, fs, notifier)

	_ = d.RunOnce(context.Background())
	waitCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = notifier.Wait(waitCtx)
	if atomic.LoadInt32(&svc.sends) != 0 {
		t.Fatal("successful sweep must not notify at failure level")
	}

	fs.failFor = map[string]error{"alpha": errors.New("boom")}
	_ = d.RunOnce(context.Background())
	waitCtx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	_ = notifier.Wait(waitCtx2)
	if atomic.LoadInt32(&svc.sends) != 1 {
		t.Fatalf("expected one failure notification, got %d", atomic.LoadInt32(&svc.sends))
	}
}

func TestNotifyLevelNoneSuppressesAll(t *testing.T) {
	t.Setenv("DESKHAND_STATE_DIR", t.TempDir())
	svc := &recordingService{}
	notifier := notify.NewMultiNotifier()
	notifier.SetCooldown(0)
	notifier.Add(svc)

	cfg := testConfig("alpha")
	cfg.NotificationLevel = "none"
	fs := &fakeSync{failFor: map[string]error{"alpha": errors.New("boom")}}
	d := New(cfg, fs, notifier)

	_ = d.RunOnce(context.Background())
	waitCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = notifier.Wait(waitCtx)
	if atomic.LoadInt32(&svc.sends) != 0 {
		t.Fatal("level none must suppress notifications")
	}
}
