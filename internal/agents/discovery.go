package agents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Watcher hot-reloads Manifest files from a directory into a Registry.
type Watcher struct {
	dir      string
	registry *Registry
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatcher builds a Watcher for dir. Call Start to begin watching.
func NewWatcher(dir string, registry *Registry) *Watcher {
	return &Watcher{dir: dir, registry: registry, debounce: 250 * time.Millisecond}
}

// LoadOnce discovers every *.yaml/*.yml manifest file in dir and registers
// it, without starting a watch. Used at startup before Start is called.
func (w *Watcher) LoadOnce() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("agents: read plugin dir %s: %w", w.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !isManifestFilename(e.Name()) {
			continue
		}
		if err := w.loadFile(filepath.Join(w.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("agents: read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("agents: parse manifest %s: %w", path, err)
	}
	return w.registry.Register(m)
}

func isManifestFilename(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// Start begins watching the plugin directory for create/write/remove events,
// reloading the changed manifest after a debounce window. It is a no-op if
// the directory does not exist.
func (w *Watcher) Start(ctx context.Context) error {
	if _, err := os.Stat(w.dir); os.IsNotExist(err) {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("agents: create fsnotify watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return fmt.Errorf("agents: watch %s: %w", w.dir, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.watcher = fw
	w.cancel = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go w.loop(watchCtx, fw)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	defer w.wg.Done()

	timers := map[string]*time.Timer{}
	var mu sync.Mutex

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !isManifestFilename(event.Name) {
				continue
			}
			path := event.Name
			mu.Lock()
			if t, exists := timers[path]; exists {
				t.Stop()
			}
			timers[path] = time.AfterFunc(w.debounce, func() {
				_ = w.loadFile(path)
			})
			mu.Unlock()
		case _, ok := <-fw.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the watch loop.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	fw := w.watcher
	w.watcher = nil
	w.mu.Unlock()

	if fw != nil {
		_ = fw.Close()
	}
	w.wg.Wait()
	return nil
}
