package data

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/TomasB/sxgeo/internal/sxgeo"
)

const defaultDebounce = 500 * time.Millisecond

// OpenFunc opens the database at path.
type OpenFunc func(path string) (LocationLookup, error)

// Reloader serves lookups from the most recently loaded database and swaps
// in a fresh copy when the file on disk is replaced. A failed reload keeps the
// previous database.
type Reloader struct {
	path     string
	open     OpenFunc
	debounce time.Duration

	mu  sync.RWMutex
	cur LocationLookup

	hooksMu sync.Mutex
	hooks   []func(Info, error)
}

// ReloaderOption configures a Reloader.
type ReloaderOption func(*Reloader)

// WithDebounce sets how long the watcher waits for writes to settle before
// reloading.
func WithDebounce(d time.Duration) ReloaderOption {
	return func(r *Reloader) { r.debounce = d }
}

// NewReloader opens path and returns a reloader serving it.
func NewReloader(path string, open OpenFunc, opts ...ReloaderOption) (*Reloader, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	r := &Reloader{path: abs, open: open, debounce: defaultDebounce}
	for _, opt := range opts {
		opt(r)
	}
	cur, err := open(abs)
	if err != nil {
		return nil, err
	}
	r.cur = cur
	return r, nil
}

// OnReload registers fn to run after every reload attempt.
func (r *Reloader) OnReload(fn func(Info, error)) {
	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()
	r.hooks = append(r.hooks, fn)
}

// Reload opens the file again and swaps it in. In-flight lookups finish on
// the old database before it is closed.
func (r *Reloader) Reload() error {
	next, err := r.open(r.path)
	if err != nil {
		r.notify(Info{}, err)
		return err
	}

	r.mu.Lock()
	prev := r.cur
	r.cur = next
	r.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			slog.Warn("failed to close previous database", "path", r.path, "error", err)
		}
	}
	r.notify(next.Info(), nil)
	return nil
}

func (r *Reloader) notify(info Info, err error) {
	r.hooksMu.Lock()
	hooks := slices.Clone(r.hooks)
	r.hooksMu.Unlock()
	for _, fn := range hooks {
		fn(info, err)
	}
}

// Watch starts watching the database's directory and reloads when the file
// is written, created or renamed into place. It returns once the watcher is
// registered; watching stops when ctx is done.
func (r *Reloader) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(r.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(r.path), err)
	}

	go func() {
		defer w.Close()
		r.watch(ctx, w)
	}()
	return nil
}

func (r *Reloader) watch(ctx context.Context, w *fsnotify.Watcher) {
	timer := time.NewTimer(r.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != r.path || (!ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create)) {
				continue
			}
			slog.Debug("database file changed", "path", r.path, "op", ev.Op.String())
			timer.Reset(r.debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Warn("database watcher error", "path", r.path, "error", err)
		case <-timer.C:
			if err := r.Reload(); err != nil {
				slog.Error("database reload failed", "path", r.path, "error", err)
				continue
			}
			slog.Info("database reloaded", "path", r.path)
		}
	}
}

func (r *Reloader) current() (LocationLookup, func(), error) {
	r.mu.RLock()
	if r.cur == nil {
		r.mu.RUnlock()
		return nil, nil, ErrNotLoaded
	}
	return r.cur, r.mu.RUnlock, nil
}

func (r *Reloader) LookupCountry(ip net.IP) (string, error) {
	cur, done, err := r.current()
	if err != nil {
		return "", err
	}
	defer done()
	return cur.LookupCountry(ip)
}

func (r *Reloader) LookupCountryID(ip net.IP) (int, error) {
	cur, done, err := r.current()
	if err != nil {
		return 0, err
	}
	defer done()
	return cur.LookupCountryID(ip)
}

func (r *Reloader) LookupCity(ip net.IP) (*sxgeo.CityLocation, error) {
	cur, done, err := r.current()
	if err != nil {
		return nil, err
	}
	defer done()
	return cur.LookupCity(ip)
}

func (r *Reloader) LookupCityFull(ip net.IP) (*sxgeo.FullLocation, error) {
	cur, done, err := r.current()
	if err != nil {
		return nil, err
	}
	defer done()
	return cur.LookupCityFull(ip)
}

// Info describes the database currently served.
func (r *Reloader) Info() Info {
	cur, done, err := r.current()
	if err != nil {
		return Info{Path: r.path}
	}
	defer done()
	return cur.Info()
}

// Ready reports whether a database is loaded.
func (r *Reloader) Ready() error {
	_, done, err := r.current()
	if err != nil {
		return err
	}
	done()
	return nil
}

// Close closes the current database. Later lookups return ErrNotLoaded.
func (r *Reloader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur == nil {
		return nil
	}
	err := r.cur.Close()
	r.cur = nil
	return err
}
