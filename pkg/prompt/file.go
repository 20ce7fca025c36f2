package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// fileDocument is the on-disk registry layout.
type fileDocument struct {
	Prompts map[string]fileEntry `yaml:"prompts"`
}

type fileEntry struct {
	Text     string                 `yaml:"text"`
	ModelID  string                 `yaml:"model_id"`
	Versions map[string]fileVersion `yaml:"versions,omitempty"`
}

type fileVersion struct {
	Text    string `yaml:"text"`
	ModelID string `yaml:"model_id"`
}

// FileRegistry serves templates from a YAML file. The file is re-read when
// it changes on disk, so prompt edits take effect without a restart.
type FileRegistry struct {
	path     string
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.RWMutex
	prompts map[string]fileEntry

	timerMu sync.Mutex
	timer   *time.Timer
}

// NewFileRegistry loads the registry file and returns a registry serving it.
// Call Watch to pick up later edits.
func NewFileRegistry(path string) (*FileRegistry, error) {
	r := &FileRegistry{
		path:     path,
		logger:   slog.Default().With("component", "prompt.registry"),
		debounce: 100 * time.Millisecond,
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the registry file and swaps in its contents.
func (r *FileRegistry) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("prompt: read registry %q: %w", r.path, err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("prompt: parse registry %q: %w", r.path, err)
	}

	r.mu.Lock()
	r.prompts = doc.Prompts
	r.mu.Unlock()

	r.logger.Info("prompt registry loaded", "path", r.path, "prompts", len(doc.Prompts))
	return nil
}

// GetPrompt implements Registry.
func (r *FileRegistry) GetPrompt(_ context.Context, id, version string) (*Template, error) {
	r.mu.RLock()
	entry, ok := r.prompts[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, id)
	}

	if version == "" {
		return &Template{Text: entry.Text, ModelID: entry.ModelID}, nil
	}

	pinned, ok := entry.Versions[version]
	if !ok {
		return nil, fmt.Errorf("%w: %q version %q", ErrTemplateNotFound, id, version)
	}
	return &Template{Text: pinned.Text, ModelID: pinned.ModelID}, nil
}

// Watch starts reloading the registry when the file changes, debounced so
// editor write bursts trigger a single reload. Setup failures are returned;
// the watch loop itself runs in the background until ctx is cancelled.
func (r *FileRegistry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("prompt: create watcher: %w", err)
	}

	if err := watcher.Add(r.path); err != nil {
		watcher.Close()
		return fmt.Errorf("prompt: watch %q: %w", r.path, err)
	}
	r.watcher = watcher

	r.logger.Info("prompt registry watcher started", "path", r.path)

	go r.watchLoop(ctx, watcher)
	return nil
}

func (r *FileRegistry) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			r.scheduleReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error("prompt registry watcher error", "error", err)
		}
	}
}

func (r *FileRegistry) scheduleReload() {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, func() {
		if err := r.Reload(); err != nil {
			r.logger.Error("prompt registry reload failed", "error", err)
		}
	})
}
