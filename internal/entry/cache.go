package entry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/naudhr/tup/internal/ir"
	"github.com/naudhr/tup/internal/store"
)

// ErrNotFound is returned by GetOrLoad when the requested id does not
// exist in either the cache or the backing store.
var ErrNotFound = fmt.Errorf("entry: not found")

// nameKey is the (parent, name) composite key for the overflow index.
type nameKey struct {
	parent ir.Tupid
	name   string
}

// childIndexThreshold is the number of children a directory's full name
// index (children) is allowed to hold before further names for that
// directory are tracked only in the bounded overflow LRU instead. This
// keeps per-directory memory genuinely bounded for very large
// directories: children stops growing at the threshold, and the
// remainder is served by overflow, which evicts least-recently-used
// (parent, name) pairs and falls back to a store lookup (reloading into
// overflow) on a miss. byID, the id -> node map, is never bounded - it
// mirrors exactly the set of nodes this process has touched, not a
// single directory's fan-out.
const childIndexThreshold = 512

// Cache is the canonical node-id -> entry mapping plus per-directory name
// index backing every other component's "give me the node for this id or
// path" queries.
type Cache struct {
	store  *store.Store
	logger *slog.Logger

	mu       sync.RWMutex
	byID     map[ir.Tupid]ir.Node
	children map[ir.Tupid]map[string]ir.Tupid

	// overflow is the bounded LRU home for names in directories that have
	// grown past childIndexThreshold entries in children. Eviction here is
	// real: an evicted (parent, name) pair is gone from the cache entirely
	// and the next Lookup for it reloads from the store.
	overflow *lru.Cache[nameKey, ir.Tupid]

	snapshot *snapshot
}

type snapshot struct {
	byID     map[ir.Tupid]ir.Node
	children map[ir.Tupid]map[string]ir.Tupid
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New builds an empty Cache over s. Entries are loaded lazily via
// GetOrLoad/Lookup.
func New(s *store.Store, opts ...Option) (*Cache, error) {
	overflow, err := lru.New[nameKey, ir.Tupid](4096)
	if err != nil {
		return nil, fmt.Errorf("entry: build overflow index: %w", err)
	}
	c := &Cache{
		store:    s,
		byID:     make(map[ir.Tupid]ir.Node),
		children: make(map[ir.Tupid]map[string]ir.Tupid),
		overflow: overflow,
	}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Begin snapshots the current cache contents so a later Rollback can
// restore them. Call this alongside store.Store.Begin.
func (c *Cache) Begin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = &snapshot{
		byID:     cloneNodes(c.byID),
		children: cloneChildren(c.children),
	}
}

// Commit discards the rollback snapshot, keeping the live maps.
func (c *Cache) Commit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
}

// Rollback restores the cache to its state at the last Begin. Entries
// created only in memory since then are dropped; mutated fields revert.
func (c *Cache) Rollback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil {
		return
	}
	c.byID = c.snapshot.byID
	c.children = c.snapshot.children
	c.snapshot = nil
	c.overflow.Purge()
}

func cloneNodes(m map[ir.Tupid]ir.Node) map[ir.Tupid]ir.Node {
	out := make(map[ir.Tupid]ir.Node, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneChildren(m map[ir.Tupid]map[string]ir.Tupid) map[ir.Tupid]map[string]ir.Tupid {
	out := make(map[ir.Tupid]map[string]ir.Tupid, len(m))
	for k, v := range m {
		inner := make(map[string]ir.Tupid, len(v))
		for name, id := range v {
			inner[name] = id
		}
		out[k] = inner
	}
	return out
}

func (c *Cache) put(n ir.Node) {
	c.byID[n.ID] = n
	inner, ok := c.children[n.ParentID]
	if !ok {
		inner = make(map[string]ir.Tupid)
		c.children[n.ParentID] = inner
	}
	key := nameKey{n.ParentID, n.Name}
	if _, already := inner[n.Name]; already || len(inner) < childIndexThreshold {
		inner[n.Name] = n.ID
		c.overflow.Remove(key)
		return
	}
	c.overflow.Add(key, n.ID)
}

func (c *Cache) forget(n ir.Node) {
	delete(c.byID, n.ID)
	if inner, ok := c.children[n.ParentID]; ok {
		delete(inner, n.Name)
	}
	c.overflow.Remove(nameKey{n.ParentID, n.Name})
}

// GetOrLoad returns the cached entry for id, loading it from the store on
// a cache miss. Returns ErrNotFound if the id does not exist at all.
func (c *Cache) GetOrLoad(ctx context.Context, id ir.Tupid) (ir.Node, error) {
	c.mu.RLock()
	n, ok := c.byID[id]
	c.mu.RUnlock()
	if ok {
		return n, nil
	}

	n, ok, err := c.store.GetNode(ctx, id)
	if err != nil {
		return ir.Node{}, fmt.Errorf("entry: get-or-load %d: %w", id, err)
	}
	if !ok {
		return ir.Node{}, fmt.Errorf("entry: get-or-load %d: %w", id, ErrNotFound)
	}

	c.mu.Lock()
	c.put(n)
	c.mu.Unlock()
	return n, nil
}

// Lookup finds the child named name under parent. Returns (zero, false,
// nil) if absent, without treating that as an error - callers distinguish
// "no such child" from a genuine fault.
func (c *Cache) Lookup(ctx context.Context, parent ir.Tupid, name string) (ir.Node, bool, error) {
	c.mu.RLock()
	if id, ok := c.overflow.Get(nameKey{parent, name}); ok {
		if n, ok := c.byID[id]; ok {
			c.mu.RUnlock()
			return n, true, nil
		}
	}
	if inner, ok := c.children[parent]; ok {
		if id, ok := inner[name]; ok {
			n := c.byID[id]
			c.mu.RUnlock()
			return n, true, nil
		}
	}
	c.mu.RUnlock()

	n, ok, err := c.store.LookupNode(ctx, parent, name)
	if err != nil {
		return ir.Node{}, false, fmt.Errorf("entry: lookup %s under %d: %w", name, parent, err)
	}
	if !ok {
		return ir.Node{}, false, nil
	}
	c.mu.Lock()
	c.put(n)
	c.mu.Unlock()
	return n, true, nil
}

// Insert allocates a new id and inserts it into both store and cache in
// one step. Returns store.ErrNameTaken if (parent, name) already exists.
func (c *Cache) Insert(ctx context.Context, parent ir.Tupid, name string, typ ir.NodeType, mtime ir.Mtime, srcid ir.Tupid) (ir.Node, error) {
	n, err := c.store.InsertNode(ctx, parent, name, typ, mtime, srcid)
	if err != nil {
		return ir.Node{}, err
	}
	c.mu.Lock()
	c.put(n)
	c.mu.Unlock()
	return n, nil
}

// Rename moves an entry to a new parent/name, updating both store and
// cache indices.
func (c *Cache) Rename(ctx context.Context, id, newParent ir.Tupid, newName string) error {
	old, err := c.GetOrLoad(ctx, id)
	if err != nil {
		return err
	}
	if err := c.store.RenameNode(ctx, id, newParent, newName); err != nil {
		return err
	}
	c.mu.Lock()
	c.forget(old)
	old.ParentID, old.Name = newParent, newName
	c.put(old)
	c.mu.Unlock()
	return nil
}

// Retype changes an entry's type in both store and cache.
func (c *Cache) Retype(ctx context.Context, id ir.Tupid, newType ir.NodeType) error {
	if err := c.store.RetypeNode(ctx, id, newType); err != nil {
		return err
	}
	c.mu.Lock()
	if n, ok := c.byID[id]; ok {
		n.Type = newType
		c.byID[id] = n
	}
	c.mu.Unlock()
	return nil
}

// SetMtime updates an entry's recorded modification time.
func (c *Cache) SetMtime(ctx context.Context, id ir.Tupid, mtime ir.Mtime) error {
	if err := c.store.SetMtime(ctx, id, mtime); err != nil {
		return err
	}
	c.mu.Lock()
	if n, ok := c.byID[id]; ok {
		n.Mtime = mtime
		c.byID[id] = n
	}
	c.mu.Unlock()
	return nil
}

// SetDisplay updates a command entry's display label.
func (c *Cache) SetDisplay(ctx context.Context, id ir.Tupid, display string) error {
	if err := c.store.SetDisplay(ctx, id, display); err != nil {
		return err
	}
	c.mu.Lock()
	if n, ok := c.byID[id]; ok {
		n.Display = display
		c.byID[id] = n
	}
	c.mu.Unlock()
	return nil
}

// SetFlags updates a command entry's decorator flag string.
func (c *Cache) SetFlags(ctx context.Context, id ir.Tupid, flags string) error {
	if err := c.store.SetNodeFlags(ctx, id, flags); err != nil {
		return err
	}
	c.mu.Lock()
	if n, ok := c.byID[id]; ok {
		n.Flags = flags
		c.byID[id] = n
	}
	c.mu.Unlock()
	return nil
}

// SetSrcID updates an entry's source-node reference.
func (c *Cache) SetSrcID(ctx context.Context, id, srcid ir.Tupid) error {
	if err := c.store.SetSrcID(ctx, id, srcid); err != nil {
		return err
	}
	c.mu.Lock()
	if n, ok := c.byID[id]; ok {
		n.SrcID = srcid
		c.byID[id] = n
	}
	c.mu.Unlock()
	return nil
}

// Remove deletes an entry from both cache and store. force controls
// whether a non-empty directory is removed recursively or refused; see
// store.Store.RemoveNode.
func (c *Cache) Remove(ctx context.Context, id ir.Tupid, force bool) error {
	n, err := c.GetOrLoad(ctx, id)
	if err != nil {
		return err
	}
	children, err := c.store.ChildrenOf(ctx, id)
	if err != nil {
		return err
	}
	if err := c.store.RemoveNode(ctx, id, force); err != nil {
		return err
	}
	c.mu.Lock()
	c.forget(n)
	if force {
		for _, ch := range children {
			c.forget(ch)
		}
	}
	c.mu.Unlock()
	return nil
}

// Children returns the immediate children of parent, preferring the
// cached name index but always confirming against the store so that a
// concurrent scan's inserts are visible (component F relies on this
// staying current during a single pass).
func (c *Cache) Children(ctx context.Context, parent ir.Tupid) ([]ir.Node, error) {
	nodes, err := c.store.ChildrenOf(ctx, parent)
	if err != nil {
		return nil, fmt.Errorf("entry: children of %d: %w", parent, err)
	}
	c.mu.Lock()
	for _, n := range nodes {
		c.put(n)
	}
	c.mu.Unlock()
	return nodes, nil
}

// IsVirtual reports whether id names a bookkeeping node (environment
// variable, exclusion, group) that must never be treated as a candidate
// ghost or as a candidate normal-input/output node during reconciliation.
// Mirrors the original tup db's is_virtual_tent (SPEC_FULL.md 6.6).
func (c *Cache) IsVirtual(ctx context.Context, id ir.Tupid) (bool, error) {
	n, err := c.GetOrLoad(ctx, id)
	if err != nil {
		return false, err
	}
	return n.IsVirtual(), nil
}
