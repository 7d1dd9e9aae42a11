package constitution

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/central73/intentgate/internal/port/cache"
)

// Store provides the current RuleSet for engine evaluations.
//
// The uncached store re-reads the constitution file on every call, trading
// latency for guaranteed-fresh policy. With a cache attached, parsed bytes
// are served from the cache and invalidated by a file watcher, so a write
// to the constitution is visible on the next evaluation.
type Store struct {
	path    string
	cache   cache.Cache
	ttl     time.Duration
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStore creates a Store that reads the constitution file fresh on every
// Load call.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// NewCachedStore creates a Store backed by the given cache. A file watcher
// drops the cached entry whenever the constitution file changes.
//
// The watch is registered on the parent directory, not the file itself:
// editors and config tooling replace files by atomic rename, which would
// sever a file-level watch and leave the cache serving stale policy.
// Events for other entries in the directory are filtered out.
func NewCachedStore(path string, c cache.Cache, ttl time.Duration) (*Store, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("constitution watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("constitution watch %s: %w", filepath.Dir(path), err)
	}

	s := &Store{
		path:    path,
		cache:   c,
		ttl:     ttl,
		watcher: w,
		done:    make(chan struct{}),
	}
	go s.watch()
	return s, nil
}

// Load returns the current RuleSet. Malformed or unreadable documents
// return a *LoadError.
func (s *Store) Load(ctx context.Context) (RuleSet, error) {
	if s.cache == nil {
		return LoadFromFile(s.path)
	}

	if data, ok, err := s.cache.Get(ctx, s.cacheKey()); err == nil && ok {
		rs, perr := Parse(data)
		if perr == nil {
			return rs, nil
		}
		// Stale or corrupt cache entry; fall through to disk.
		_ = s.cache.Delete(ctx, s.cacheKey())
	}

	data, err := os.ReadFile(s.path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		return nil, &LoadError{Path: s.path, Err: err}
	}
	rs, err := Parse(data)
	if err != nil {
		return nil, &LoadError{Path: s.path, Err: err}
	}
	if err := s.cache.Set(ctx, s.cacheKey(), data, s.ttl); err != nil {
		slog.Warn("constitution cache set failed", "path", s.path, "error", err)
	}
	return rs, nil
}

// Invalidate drops the cached constitution, forcing the next Load to hit
// the file.
func (s *Store) Invalidate(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, s.cacheKey())
	}
}

// Close stops the file watcher, if any.
func (s *Store) Close() error {
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	return s.watcher.Close()
}

func (s *Store) cacheKey() string {
	return "constitution:" + s.path
}

// sameFile compares an event path against the watched file, tolerating the
// unclean forms fsnotify reports on some platforms.
func sameFile(eventPath, watched string) bool {
	return filepath.Clean(eventPath) == filepath.Clean(watched)
}

func (s *Store) watch() {
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !sameFile(ev.Name, s.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				slog.Debug("constitution changed; invalidating cache", "path", s.path, "op", ev.Op.String())
				s.Invalidate(context.Background())
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("constitution watcher error", "path", s.path, "error", err)
		case <-s.done:
			return
		}
	}
}
