package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"astraguard/aegis/pkg/policy"
	"astraguard/aegis/pkg/policy/engine"
)

// defaultDebounceInterval is the quiet period after a file event before a
// reload event is emitted. Editors that write-then-rename produce bursts of
// events; debouncing collapses each burst into a single reload.
const defaultDebounceInterval = 100 * time.Millisecond

// watchedExtensions lists the file extensions that trigger reload events
// when the source watches a directory.
var watchedExtensions = []string{".yaml", ".yml", ".json"}

// FileSource loads a phase policy document from a YAML or JSON file on disk.
//
// The format is chosen by extension (.json decodes as JSON, .yaml and .yml as
// YAML); for any other extension the content is sniffed, so a policy document
// without a recognized extension still loads. Watch emits a reload event
// whenever the file changes on disk.
type FileSource struct {
	path     string
	logger   *slog.Logger
	debounce time.Duration
}

// FileOption adjusts the behavior of a FileSource.
type FileOption func(*FileSource)

// WithDebounceInterval overrides the debounce quiet period used by Watch.
func WithDebounceInterval(d time.Duration) FileOption {
	return func(s *FileSource) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// NewFileSource creates a policy source backed by the file at path.
func NewFileSource(path string, logger *slog.Logger, opts ...FileOption) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileSource{
		path:     path,
		logger:   logger.With("component", "policy.source"),
		debounce: defaultDebounceInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the file path the source reads from.
func (s *FileSource) Path() string {
	return s.path
}

// Load reads and decodes the policy document.
func (s *FileSource) Load(ctx context.Context) (policy.Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return policy.Document{}, fmt.Errorf("failed to read policy file %q: %w", s.path, err)
	}

	doc, err := decodeDocument(s.path, data)
	if err != nil {
		return policy.Document{}, err
	}

	s.logger.Debug("policy document loaded",
		"path", s.path,
		"phases", len(doc.Phases),
	)
	return doc, nil
}

// decodeDocument decodes data as JSON or YAML based on the file extension,
// falling back to content sniffing when the extension is unrecognized.
func decodeDocument(path string, data []byte) (policy.Document, error) {
	var doc policy.Document

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return policy.Document{}, fmt.Errorf("failed to parse policy file %q as JSON: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return policy.Document{}, fmt.Errorf("failed to parse policy file %q as YAML: %w", path, err)
		}
	default:
		if looksLikeJSON(data) {
			if err := json.Unmarshal(data, &doc); err != nil {
				return policy.Document{}, fmt.Errorf("failed to parse policy file %q as JSON: %w", path, err)
			}
			break
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return policy.Document{}, fmt.Errorf("failed to parse policy file %q as YAML: %w", path, err)
		}
	}

	return doc, nil
}

// looksLikeJSON reports whether the first non-whitespace byte opens a JSON
// object or array.
func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// Watch emits a reload event whenever the policy file changes. Events are
// debounced so editor write-and-rename sequences trigger a single reload.
// The returned channel is closed when the context is cancelled.
func (s *FileSource) Watch(ctx context.Context) (<-chan engine.SourceEvent, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	watchDir, singleFile, err := s.addPaths(watcher)
	if err != nil {
		watcher.Close()
		return nil, err
	}

	events := make(chan engine.SourceEvent)
	debounce := newDebouncer(s.debounce)

	go func() {
		defer close(events)
		defer watcher.Close()
		defer debounce.stop()

		s.logger.Info("policy file watcher started",
			"path", s.path,
			"watch_dir", watchDir,
			"debounce_ms", s.debounce.Milliseconds(),
		)

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("policy file watcher stopped")
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !s.shouldProcess(event, singleFile) {
					continue
				}
				s.logger.Debug("policy file event",
					"path", event.Name,
					"op", event.Op.String(),
				)
				changed := event.Name
				debounce.trigger(func() {
					select {
					case events <- engine.SourceEvent{Path: changed}:
					case <-ctx.Done():
					}
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				select {
				case events <- engine.SourceEvent{Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

// addPaths registers the source path with the watcher. A single file is
// watched through its parent directory so that atomic rename-replace writes
// are still observed; a directory is watched recursively.
func (s *FileSource) addPaths(watcher *fsnotify.Watcher) (watchDir string, singleFile bool, err error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return "", false, fmt.Errorf("failed to stat policy path %q: %w", s.path, err)
	}

	if !info.IsDir() {
		dir := filepath.Dir(s.path)
		if err := watcher.Add(dir); err != nil {
			return "", false, fmt.Errorf("failed to watch directory %q: %w", dir, err)
		}
		return dir, true, nil
	}

	err = filepath.Walk(s.path, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !info.IsDir() {
			return nil
		}
		if strings.HasPrefix(filepath.Base(path), ".") && path != s.path {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return s.path, false, nil
}

// shouldProcess filters file system events down to ones that can change the
// policy document.
func (s *FileSource) shouldProcess(event fsnotify.Event, singleFile bool) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}

	if singleFile {
		return filepath.Base(event.Name) == filepath.Base(s.path)
	}

	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	for _, watched := range watchedExtensions {
		if ext == watched {
			return true
		}
	}
	return false
}

// debouncer collapses bursts of events into a single callback after a quiet
// period.
type debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopped  chan struct{}
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{
		interval: interval,
		stopped:  make(chan struct{}),
	}
}

// trigger schedules callback after the quiet period, replacing any pending
// callback.
func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case <-d.stopped:
			return
		default:
		}

		d.mu.Lock()
		cb := d.callback
		d.mu.Unlock()
		if cb != nil {
			cb()
		}
	})
}

// stop cancels any pending callback.
func (d *debouncer) stop() {
	close(d.stopped)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
