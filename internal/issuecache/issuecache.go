// Package issuecache stores issue listings in <config-root>/cache, one
// JSON file per query shape, for a short TTL.
//
// Caching is an optimization only: every read or write failure is logged
// at debug level and reported as a miss. There is no locking; concurrent
// writers race and the last one wins.
package issuecache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/raphi011/loom/internal/errs"
	"github.com/raphi011/loom/internal/log"
	"github.com/raphi011/loom/internal/storage"
	"github.com/raphi011/loom/internal/tracker"
)

// TTL is how long a listing stays fresh.
const TTL = 2 * time.Minute

// Entry is the on-disk shape of one cached listing.
// Timestamp is Unix milliseconds.
type Entry struct {
	Timestamp   int64              `json:"timestamp"`
	ProjectPath string             `json:"projectPath"`
	Provider    string             `json:"provider"`
	Data        []tracker.ListItem `json:"data"`
}

// Query is the shape of a listing request. Every field is part of the key.
type Query struct {
	ProjectPath string
	Provider    string
	Limit       int
	Sprint      string
	Mine        bool
}

// Key returns the first 12 hex characters of the MD5 of the colon-joined
// query fields.
func (q Query) Key() string {
	mine := ""
	if q.Mine {
		mine = "mine"
	}
	raw := strings.Join([]string{q.ProjectPath, q.Provider, strconv.Itoa(q.Limit), q.Sprint, mine}, ":")
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])[:12]
}

// Cache reads and writes listing files under Dir.
type Cache struct {
	Dir string
	TTL time.Duration
	// Now is the clock; tests replace it to simulate expiry.
	Now func() time.Time
}

// New returns a cache rooted at <configRoot>/cache.
func New(configRoot string) *Cache {
	return &Cache{
		Dir: filepath.Join(configRoot, "cache"),
		TTL: TTL,
		Now: time.Now,
	}
}

// Default returns a cache under the loom config root.
func Default() (*Cache, error) {
	root, err := storage.ConfigDir()
	if err != nil {
		return nil, err
	}
	return New(root), nil
}

// Path returns the file backing q.
func (c *Cache) Path(q Query) string {
	return filepath.Join(c.Dir, "issues-"+q.Key()+".json")
}

// Get returns the cached listing for q. Missing, unreadable, corrupted
// or expired entries are misses. Items written before the type field
// existed come back as issues.
func (c *Cache) Get(ctx context.Context, q Query) ([]tracker.ListItem, bool) {
	path := c.Path(q)

	var entry Entry
	if err := storage.LoadJSON(path, &entry); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.FromContext(ctx).Debug("issue cache read failed", "error", &errs.CacheError{Op: "read", Path: path, Err: err})
		}
		return nil, false
	}

	age := c.now().Sub(time.UnixMilli(entry.Timestamp))
	if age >= c.ttl() {
		log.FromContext(ctx).Debug("issue cache expired", "path", path, "age", age.Round(time.Second))
		return nil, false
	}

	items := entry.Data
	if items == nil {
		items = []tracker.ListItem{}
	}
	for i := range items {
		if items[i].Type == "" {
			items[i].Type = tracker.TypeIssue
		}
	}
	log.FromContext(ctx).Debug("issue cache hit", "path", path, "items", len(items))
	return items, true
}

// Put stores items for q. Failures are logged and otherwise ignored.
func (c *Cache) Put(ctx context.Context, q Query, items []tracker.ListItem) {
	path := c.Path(q)
	entry := Entry{
		Timestamp:   c.now().UnixMilli(),
		ProjectPath: q.ProjectPath,
		Provider:    q.Provider,
		Data:        items,
	}
	if entry.Data == nil {
		entry.Data = []tracker.ListItem{}
	}
	if err := storage.SaveJSON(path, entry); err != nil {
		log.FromContext(ctx).Debug("issue cache write failed", "error", &errs.CacheError{Op: "write", Path: path, Err: err})
	}
}

func (c *Cache) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Cache) ttl() time.Duration {
	if c.TTL <= 0 {
		return TTL
	}
	return c.TTL
}
