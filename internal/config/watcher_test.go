package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/lectio/internal/config"
)

const watcherValidYAML = `
server:
  log_level: info
assessment:
  language: en-US
`

const watcherUpdatedYAML = `
server:
  log_level: debug
assessment:
  language: en-GB
`

const watcherInvalidYAML = `
server:
  log_level: bananas
`

// writeFile writes content and pushes the mtime forward so coarse
// filesystem clocks still register a change.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
	later := time.Now().Add(time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("chtimes %q: %v", path, err)
	}
}

func newConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lectio.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
	return path
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()

	w, err := config.NewWatcher(newConfigFile(t, watcherValidYAML), nil, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	cfg := w.Current()
	if cfg == nil {
		t.Fatal("Current returned nil after initial load")
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("LogLevel=%q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
	// Defaults apply to watched files too.
	if cfg.Server.ListenAddr != config.DefaultListenAddr {
		t.Errorf("ListenAddr=%q, want %q", cfg.Server.ListenAddr, config.DefaultListenAddr)
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()

	path := newConfigFile(t, watcherValidYAML)

	var (
		mu       sync.Mutex
		gotOld   *config.Config
		gotNew   *config.Config
		gotDiff  config.ConfigDiff
		notified = make(chan struct{}, 1)
	)
	w, err := config.NewWatcher(path, func(old, new *config.Config, d config.ConfigDiff) {
		mu.Lock()
		gotOld, gotNew, gotDiff = old, new, d
		mu.Unlock()
		select {
		case notified <- struct{}{}:
		default:
		}
	}, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	writeFile(t, path, watcherUpdatedYAML)

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not invoked within timeout")
	}

	mu.Lock()
	defer mu.Unlock()
	if gotOld == nil || gotNew == nil {
		t.Fatal("callback received nil configs")
	}
	if gotOld.Server.LogLevel != config.LogInfo {
		t.Errorf("old LogLevel=%q, want info", gotOld.Server.LogLevel)
	}
	if gotNew.Server.LogLevel != config.LogDebug {
		t.Errorf("new LogLevel=%q, want debug", gotNew.Server.LogLevel)
	}
	if !gotDiff.LogLevelChanged || !gotDiff.AssessmentChanged {
		t.Errorf("diff=%+v, want log level and assessment changes", gotDiff)
	}
	if cur := w.Current(); cur.Assessment.Language != "en-GB" {
		t.Errorf("Current Language=%q, want en-GB", cur.Assessment.Language)
	}
}

func TestWatcher_InvalidFileKeepsOldConfig(t *testing.T) {
	t.Parallel()

	path := newConfigFile(t, watcherValidYAML)

	var mu sync.Mutex
	calls := 0
	w, err := config.NewWatcher(path, func(_, _ *config.Config, _ config.ConfigDiff) {
		mu.Lock()
		calls++
		mu.Unlock()
	}, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	writeFile(t, path, watcherInvalidYAML)
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	n := calls
	mu.Unlock()
	if n != 0 {
		t.Errorf("callback calls=%d, want 0 for invalid config", n)
	}
	if cur := w.Current(); cur.Server.LogLevel != config.LogInfo {
		t.Errorf("Current LogLevel=%q, want old config kept", cur.Server.LogLevel)
	}
}

func TestWatcher_InitialLoadFails(t *testing.T) {
	t.Parallel()

	if _, err := config.NewWatcher("/nonexistent/path.yaml", nil); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	w, err := config.NewWatcher(newConfigFile(t, watcherValidYAML), nil, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Stop()
	w.Stop()
}

func TestWatcher_TouchWithoutContentChange(t *testing.T) {
	t.Parallel()

	path := newConfigFile(t, watcherValidYAML)

	var mu sync.Mutex
	calls := 0
	w, err := config.NewWatcher(path, func(_, _ *config.Config, _ config.ConfigDiff) {
		mu.Lock()
		calls++
		mu.Unlock()
	}, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	later := time.Now().Add(time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	n := calls
	mu.Unlock()
	if n != 0 {
		t.Errorf("callback calls=%d, want 0 for touch-only", n)
	}
}
