package skills

import (
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// CachedCatalog re-discovers the skill set from dir only after fsnotify
// reports a change to an entry directly in dir (subdirectories are not
// watched, so an edit to an existing skill's SKILL.md does not invalidate
// the cache), instead of walking the directory tree on
// every orchestrator turn (spec.md §4.5 step 3 composes the catalog
// every turn — this keeps that cheap once the skills directory is
// otherwise quiet).
type CachedCatalog struct {
	dir     string
	mu      sync.Mutex
	loaded  []Skill
	primed  bool
	watcher *fsnotify.Watcher
}

// NewCachedCatalog starts watching dir (best-effort: a watch failure
// just means every Load re-walks the directory, which is still correct).
func NewCachedCatalog(dir string) *CachedCatalog {
	c := &CachedCatalog{dir: dir}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Debug("skills: fsnotify watcher unavailable, falling back to per-call discovery", "error", err)
		return c
	}
	if err := w.Add(dir); err != nil {
		slog.Debug("skills: watch skills dir failed", "dir", dir, "error", err)
		w.Close()
		return c
	}
	c.watcher = w
	go c.watch()
	return c
}

func (c *CachedCatalog) watch() {
	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if event.Op != 0 {
				c.invalidate()
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			slog.Debug("skills: watcher error", "error", err)
		}
	}
}

func (c *CachedCatalog) invalidate() {
	c.mu.Lock()
	c.primed = false
	c.mu.Unlock()
}

// Load returns the cached skill set, re-discovering it on first use or
// after an invalidating filesystem event.
func (c *CachedCatalog) Load() []Skill {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.primed {
		return c.loaded
	}
	loaded, err := Discover(c.dir)
	if err != nil {
		return c.loaded
	}
	c.loaded = loaded
	c.primed = true
	return c.loaded
}

// Close stops the underlying watcher, if one was started.
func (c *CachedCatalog) Close() error {
	if c.watcher == nil {
		return nil
	}
	return c.watcher.Close()
}
