package prompt

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "templates.yaml")
	if err := os.WriteFile(path, []byte("templates: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	w, err := NewWatcher(path, r, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	reloaded := make(chan error, 4)
	w.onReload = func(err error) { reloaded <- err }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = w.Watch(ctx) }()
	defer w.Stop()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte(customTemplates), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-reloaded:
		if err != nil {
			t.Fatalf("reload failed: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after file change")
	}

	if _, ok := r.Lookup("mistral-instruct"); !ok {
		t.Error("reloaded template not registered")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "templates.yaml")
	if err := os.WriteFile(path, []byte("templates: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, NewRegistry(), 10*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}

	var reloads atomic.Int32
	w.onReload = func(error) { reloads.Add(1) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Watch(ctx) }()
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)

	if n := reloads.Load(); n != 0 {
		t.Errorf("unrelated file triggered %d reloads", n)
	}
}

func TestDebouncer_CollapsesBursts(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	if n := calls.Load(); n != 1 {
		t.Errorf("callback ran %d times, want 1", n)
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })

	time.Sleep(60 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("callback ran %d times after Stop", n)
	}
}
