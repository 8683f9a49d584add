package xmlquery

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/guillermoBallester/telemetry-receiver/internal/core/port"
)

var _ port.QueryProvider = (*Reloader)(nil)

// DefaultDebounce is the quiet period after the last file event before reloading.
const DefaultDebounce = 500 * time.Millisecond

// Reloader serves lookups from the current Registry and replaces it when the
// queries file changes. A reload that fails leaves the previous registry in place.
type Reloader struct {
	path     string
	diag     port.QueryDiagnostics
	debounce time.Duration

	current   atomic.Pointer[Registry]
	fsWatcher *fsnotify.Watcher
	started   atomic.Bool
	done      chan struct{}
	stopped   chan struct{}
}

// NewReloader wraps an already loaded registry.
func NewReloader(initial *Registry, diag port.QueryDiagnostics, debounce time.Duration) (*Reloader, error) {
	if initial == nil {
		return nil, fmt.Errorf("reloader requires an initial registry")
	}
	if diag == nil {
		diag = port.NoopDiagnostics{}
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	r := &Reloader{
		path:      initial.Source(),
		diag:      diag,
		debounce:  debounce,
		fsWatcher: fsw,
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	r.current.Store(initial)
	return r, nil
}

// Current returns the registry serving lookups right now.
func (r *Reloader) Current() *Registry {
	return r.current.Load()
}

func (r *Reloader) GetQuery(ctx context.Context, name string) (string, bool) {
	return r.Current().GetQuery(ctx, name)
}

// Reload loads the queries file again and swaps it in on success.
func (r *Reloader) Reload(ctx context.Context) error {
	reg, err := Load(ctx, r.path, r.diag)
	if err != nil {
		r.diag.QueriesReloadFailed(ctx, r.path, err)
		return err
	}
	r.current.Store(reg)
	r.diag.QueriesReloaded(ctx, r.path, reg.Len())
	return nil
}

// Start watches the directory holding the queries file. Editors often
// replace files by rename, so the directory is watched rather than the file.
func (r *Reloader) Start(ctx context.Context) error {
	dir := filepath.Dir(r.path)
	if err := r.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("watching directory %s: %w", dir, err)
	}
	r.started.Store(true)
	go r.loop(ctx)
	return nil
}

// Stop terminates the watcher and waits for the loop to exit.
func (r *Reloader) Stop() error {
	select {
	case <-r.done:
		return nil
	default:
	}
	close(r.done)
	err := r.fsWatcher.Close()
	if r.started.Load() {
		<-r.stopped
	}
	return err
}

func (r *Reloader) loop(ctx context.Context) {
	defer close(r.stopped)

	timer := time.NewTimer(r.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-r.fsWatcher.Events:
			if !ok {
				return
			}
			if !r.isRelevant(event) {
				continue
			}
			timer.Reset(r.debounce)

		case <-timer.C:
			_ = r.Reload(ctx)

		case err, ok := <-r.fsWatcher.Errors:
			if !ok {
				return
			}
			r.diag.QueriesReloadFailed(ctx, r.path, err)

		case <-ctx.Done():
			return

		case <-r.done:
			return
		}
	}
}

func (r *Reloader) isRelevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	return filepath.Clean(event.Name) == filepath.Clean(r.path)
}
