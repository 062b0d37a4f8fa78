// vfs.go -- the VirtualFS facade: a handle bound to a root directory
//
// (c) 2024- Sudhi Herle <sudhi@herle.net>
//
// Licensing Terms: GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

// Package vfs implements an in-memory view over a directory tree: sync
// style read/write/mkdir/rmdir/unlink/symlink/readdir/stat/exists/chdir
// operations, a sorted entry store, an ordered dedup'd change log, a
// STARTED/STOPPED write gate, content-hash write idempotence, lazy entry
// population from disk, and lightweight projections (cwd scoping,
// glob-based include/exclude, explicit file lists, symlinked mounts of
// other trees) that share backing state with their parent instead of
// copying it.
package vfs

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path"
	"strings"
	"time"

	"github.com/opencoff/go-logger"

	"github.com/opencoff/fstree"
	"github.com/opencoff/fstree/patch"
	"github.com/opencoff/fstree/walk"
)

// State is the STARTED/STOPPED write gate spec.md 3 puts on every
// VirtualFS.
type State int

const (
	Stopped State = iota
	Started
)

// Hasher computes the content hash used for write idempotence.
type Hasher func([]byte) string

func defaultHasher(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

type options struct {
	walkOpts    walk.Options
	hasher      Hasher
	log         logger.Logger
	lazyEntries *bool
	srcTree     *bool
}

// Option configures a VirtualFS at construction time.
type Option func(*options)

// WithWalkOptions overrides the walk.Options used to lazily populate a
// source tree's entries.
func WithWalkOptions(o walk.Options) Option {
	return func(opt *options) { opt.walkOpts = o }
}

// WithHasher overrides the content-hash function writeFileSync uses for
// idempotence checks. Default is sha256, hex encoded.
func WithHasher(h Hasher) Option {
	return func(opt *options) { opt.hasher = h }
}

// WithLogger attaches log to the tree: every mutating op and every
// Start/Stop/Reread records a LOG_DEBUG line through it. A nil logger
// (the default) leaves the tree silent.
func WithLogger(log logger.Logger) Option {
	return func(opt *options) { opt.log = log }
}

// WithLazyEntries overrides whether a source tree's entries are walked
// at construction (false) or deferred to first access (true, the
// default for New). Meaningless for NewFromEntries/NewFromPaths, whose
// entries are always supplied up front.
func WithLazyEntries(lazy bool) Option {
	return func(opt *options) { opt.lazyEntries = &lazy }
}

// WithSourceTree overrides the srcTree flag a constructor would
// otherwise hardcode (true for New, false for NewFromEntries/
// NewFromPaths), letting an in-memory tree be treated as read-only-
// authoritative or a disk-backed tree be treated as a plain overlay.
func WithSourceTree(srcTree bool) Option {
	return func(opt *options) { opt.srcTree = &srcTree }
}

func newOptions(opts ...Option) *options {
	o := &options{
		walkOpts: walk.Options{Type: walk.ALL},
		hasher:   defaultHasher,
	}
	for _, fn := range opts {
		fn(o)
	}
	return o
}

// sharedState is the inner object a root VirtualFS and every Projection
// descended from it hold a pointer to. Mutations through any node are
// visible from every other node immediately, satisfying spec.md 8's
// property 7.
type sharedState struct {
	root       string // absolute, trailing separator
	srcTree    bool
	state      State
	hasEntries bool
	entries    *fstree.EntryStore
	changeLog  *fstree.ChangeLog
	prevEntries *fstree.EntryStore

	walkOpts walk.Options
	hasher   Hasher
	log      logger.Logger
}

// debugf is a no-op when no logger was attached via WithLogger.
func (s *sharedState) debugf(format string, args ...interface{}) {
	if s.log != nil {
		s.log.Debug(format, args...)
	}
}

// filterState is the per-node overlay spec.md 9's redesign note asks
// for: cwd/include/exclude/files live here instead of being written
// through the parent chain. An empty/nil field means "inherit from the
// nearest ancestor that set one".
type filterState struct {
	cwd     string
	include []string
	exclude []string
	files   []string
}

// VirtualFS is a handle into a shared tree: either the root view over a
// real directory (srcTree), or a Projection narrowing a parent's view.
type VirtualFS struct {
	shared  *sharedState
	filters *filterState
	parent  *VirtualFS
}

var _ fstree.ProjectionTree = (*VirtualFS)(nil)

// New returns a source-tree VirtualFS rooted at an absolute directory
// path. It starts STOPPED: source trees are read-only through this
// facade until start() is called, and entries are populated lazily on
// first access.
func New(root string, opts ...Option) (*VirtualFS, error) {
	if !path.IsAbs(root) {
		return nil, &Error{"new", root, ErrNonAbsoluteRoot}
	}
	o := newOptions(opts...)

	srcTree := true
	if o.srcTree != nil {
		srcTree = *o.srcTree
	}

	v := &VirtualFS{
		shared: &sharedState{
			root:      normalizeRoot(root),
			srcTree:   srcTree,
			state:     Stopped,
			entries:   fstree.NewEntryStore(),
			changeLog: fstree.NewChangeLog(),
			walkOpts:  o.walkOpts,
			hasher:    o.hasher,
			log:       o.log,
		},
		filters: &filterState{},
	}

	if o.lazyEntries != nil && !*o.lazyEntries {
		if err := v.ensureEntriesPopulated(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// NewFromEntries returns a non-source, in-memory VirtualFS populated
// from entries. It starts STARTED. root need not exist on disk; it only
// roots any delegate/disk operations a caller layers on top.
func NewFromEntries(root string, entries []*fstree.Entry, expand bool, opts ...Option) (*VirtualFS, error) {
	store := fstree.NewEntryStore()
	if entries != nil {
		built, err := fstree.NewEntryStoreFromEntries(entries, expand)
		if err != nil {
			return nil, &Error{"new-from-entries", "", err}
		}
		store = built
	}
	o := newOptions(opts...)

	srcTree := false
	if o.srcTree != nil {
		srcTree = *o.srcTree
	}

	return &VirtualFS{
		shared: &sharedState{
			root:       normalizeRoot(root),
			srcTree:    srcTree,
			state:      Started,
			hasEntries: true,
			entries:    store,
			changeLog:  fstree.NewChangeLog(),
			walkOpts:   o.walkOpts,
			hasher:     o.hasher,
			log:        o.log,
		},
		filters: &filterState{},
	}, nil
}

// NewFromPaths is NewFromEntries over fstree.FromPath-constructed
// entries, always sort-and-expanded.
func NewFromPaths(root string, paths []string, opts ...Option) (*VirtualFS, error) {
	entries := make([]*fstree.Entry, len(paths))
	for i, p := range paths {
		entries[i] = fstree.FromPath(p)
	}
	return NewFromEntries(root, entries, true, opts...)
}

func normalizeRoot(root string) string {
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return root
}

// IsSourceTree reports whether this node's root contents are
// authoritative on disk (and therefore read-only through this facade).
func (v *VirtualFS) IsSourceTree() bool {
	return v.shared.srcTree
}

// State returns the current STARTED/STOPPED write gate.
func (v *VirtualFS) State() State {
	return v.shared.state
}

// Root returns the absolute root directory, trailing-separator
// normalized.
func (v *VirtualFS) Root() string {
	return v.shared.root
}

// Start clears the change log and opens the write gate.
func (v *VirtualFS) Start() {
	v.shared.changeLog.Clear()
	v.shared.state = Started
	v.shared.debugf("%s: started", v.shared.root)
}

// Stop closes the write gate; reads still work.
func (v *VirtualFS) Stop() {
	v.shared.state = Stopped
	v.shared.debugf("%s: stopped", v.shared.root)
}

// Close releases resources held by this tree, including its attached
// logger. Safe to call on a tree with no logger attached.
func (v *VirtualFS) Close() error {
	if v.shared.log == nil {
		return nil
	}
	return v.shared.log.Close()
}

func (v *VirtualFS) requireStarted(op string) error {
	if v.shared.state != Started {
		return &Error{op, "", ErrWriteOnStopped}
	}
	return nil
}

// ensureEntriesPopulated performs the (once) lazy disk walk for source
// trees. Non-source trees are always populated at construction.
func (v *VirtualFS) ensureEntriesPopulated() error {
	s := v.shared
	if s.hasEntries || !s.srcTree {
		return nil
	}

	rootDir := strings.TrimSuffix(s.root, "/")
	store, err := walk.WalkSorted([]string{rootDir}, s.walkOpts)
	if err != nil {
		return &Error{"walk", s.root, err}
	}

	rel, err := relativizeStore(rootDir, store)
	if err != nil {
		return &Error{"walk", s.root, err}
	}

	s.entries = rel
	s.hasEntries = true
	return nil
}

// relativizeStore strips rootDir from every entry walk.WalkSorted returned
// (walk reports the absolute path it was handed) and drops the root entry
// itself, so the store holds paths relative to rootDir the way every other
// VirtualFS entry does. Stripping a shared prefix preserves the store's
// sort order, so the result needs no re-sort.
func relativizeStore(rootDir string, store *fstree.EntryStore) (*fstree.EntryStore, error) {
	prefix := rootDir + "/"
	entries := store.Entries()
	out := make([]*fstree.Entry, 0, len(entries))
	for _, e := range entries {
		if e.RelativePath == rootDir {
			continue
		}
		rel := e.Clone()
		rel.RelativePath = strings.TrimPrefix(e.RelativePath, prefix)
		out = append(out, rel)
	}
	return fstree.NewEntryStoreFromEntries(out, false)
}

// Reread invalidates the cached entries of a source tree so the next
// access re-walks disk. For a non-source tree it is a no-op unless
// newRoot is given, which is an error (only source trees may change
// root).
func (v *VirtualFS) Reread(newRoot string) error {
	if newRoot != "" {
		if !v.shared.srcTree {
			return &Error{"reread", newRoot, ErrNonSourceRootChange}
		}
		if !path.IsAbs(newRoot) {
			return &Error{"reread", newRoot, ErrNonAbsoluteRoot}
		}
		v.shared.root = normalizeRoot(newRoot)
	}
	if !v.shared.srcTree {
		return nil
	}
	v.shared.hasEntries = false
	v.shared.debugf("%s: reread", v.shared.root)
	return nil
}

// --- path resolution -------------------------------------------------

func (v *VirtualFS) effectiveCwd() string {
	for n := v; n != nil; n = n.parent {
		if n.filters.cwd != "" {
			return n.filters.cwd
		}
	}
	return ""
}

func (v *VirtualFS) effectiveInclude() []string {
	for n := v; n != nil; n = n.parent {
		if n.filters.include != nil {
			return n.filters.include
		}
	}
	return nil
}

func (v *VirtualFS) effectiveExclude() []string {
	for n := v; n != nil; n = n.parent {
		if n.filters.exclude != nil {
			return n.filters.exclude
		}
	}
	return nil
}

func (v *VirtualFS) effectiveFiles() []string {
	for n := v; n != nil; n = n.parent {
		if n.filters.files != nil {
			return n.filters.files
		}
	}
	return nil
}

// normalizeRelPath joins cwd and p, collapses "./"/".."/duplicate
// slashes, and fails PathEscape if the result would climb above root.
// Deliberately does not anchor the join at a synthetic "/": doing so
// would let path.Clean silently absorb a ".." that climbs past root
// instead of surfacing it as an error.
func (v *VirtualFS) normalizeRelPath(p string) (string, error) {
	cwd := v.effectiveCwd()
	joined := path.Join(cwd, p)
	clean := path.Clean(joined)

	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", &Error{"resolve", p, ErrPathEscape}
	}
	if clean == "." {
		clean = ""
	}
	return clean, nil
}

// absPath returns the real on-disk path for a normalized relative path.
func (v *VirtualFS) absPath(rel string) string {
	return path.Join(strings.TrimSuffix(v.shared.root, "/"), rel)
}

// --- entry resolution (Projection following) --------------------------

// FindByRelativePath satisfies fstree.ProjectionTree and is also the
// entry-resolution primitive every Sync method below uses. path is
// relative to this node's cwd; walkSymlinks controls whether a
// symlinked-mount directory entry is followed into its source tree.
func (v *VirtualFS) FindByRelativePath(p string, walkSymlinks bool) (*fstree.Entry, error) {
	rel, err := v.normalizeRelPath(p)
	if err != nil {
		return nil, err
	}
	if err := v.ensureEntriesPopulated(); err != nil {
		return nil, err
	}

	r := v.shared.entries.FindByRelativePath(rel)
	if r.Found() {
		e := r.Entry
		if e.Proj != nil && walkSymlinks {
			return v.followProjection(e.Proj, "")
		}
		return e, nil
	}

	// rel did not match exactly: see if it falls inside a projected
	// (symlinked mount) directory already recorded in the store.
	if walkSymlinks {
		if e, rest, ok := v.findEnclosingProjection(rel); ok {
			return v.followProjection(e.Proj, rest)
		}
	}

	return nil, nil
}

// findEnclosingProjection walks rel's ancestor chain from deepest to
// shallowest looking for a stored directory entry carrying a
// Projection; rest is what remains of rel below that mount point.
func (v *VirtualFS) findEnclosingProjection(rel string) (*fstree.Entry, string, bool) {
	dir := rel
	for dir != "" {
		idx := strings.LastIndexByte(dir, '/')
		if idx < 0 {
			dir = ""
		} else {
			dir = dir[:idx]
		}
		if dir == "" {
			break
		}

		r := v.shared.entries.FindByRelativePath(dir)
		if r.Found() && r.Entry.Proj != nil {
			rest := strings.TrimPrefix(rel, dir+"/")
			return r.Entry, rest, true
		}
	}
	return nil, "", false
}

func (v *VirtualFS) followProjection(p *fstree.Projection, rest string) (*fstree.Entry, error) {
	target := rest
	if p.Entry != fstree.ROOT {
		target = path.Join(p.Entry, rest)
	}
	return p.Tree.FindByRelativePath(target, true)
}

// --- read operations ---------------------------------------------------

// StatSync returns the entry at path, or nil if no such entry exists.
func (v *VirtualFS) StatSync(p string) (*fstree.Entry, error) {
	return v.FindByRelativePath(p, true)
}

// ExistsSync reports whether path exists, following symlinked mounts.
func (v *VirtualFS) ExistsSync(p string) bool {
	e, err := v.FindByRelativePath(p, true)
	return err == nil && e != nil
}

// ReadFileSync returns the content of path. Content is read straight
// from disk through the resolved real path; entries carry metadata
// only, never a content cache.
func (v *VirtualFS) ReadFileSync(p string) ([]byte, error) {
	e, err := v.FindByRelativePath(p, true)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, &Error{"read", p, ErrNotFound}
	}

	rel, err := v.normalizeRelPath(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(v.absPath(rel))
	if err != nil {
		return nil, &Error{"read", p, err}
	}
	return data, nil
}

// ReaddirSync returns the immediate children of path, without trailing
// separators. If the resolved entry is a whole-tree projection mount
// (projection.Entry == ROOT), it recurses into the projected tree's top
// level instead of the local (empty) directory.
func (v *VirtualFS) ReaddirSync(p string) ([]string, error) {
	rel, err := v.normalizeRelPath(p)
	if err != nil {
		return nil, err
	}
	if err := v.ensureEntriesPopulated(); err != nil {
		return nil, err
	}

	if rel != "" {
		r := v.shared.entries.FindByRelativePath(rel)
		if !r.Found() {
			return nil, &Error{"readdir", p, ErrNotFound}
		}
		if !r.Entry.IsDir() {
			return nil, &Error{"readdir", p, ErrNotDirectory}
		}
		if r.Entry.Proj != nil && r.Entry.Proj.Entry == fstree.ROOT {
			root := projectionRoot(r.Entry.Proj)
			if root == nil {
				return nil, &Error{"readdir", p, ErrNotFound}
			}
			return root.ReaddirSync("")
		}
	}

	prefix := ""
	if rel != "" {
		prefix = rel + "/"
	}

	var names []string
	for _, e := range v.shared.entries.Entries() {
		if !strings.HasPrefix(e.RelativePath, prefix) {
			continue
		}
		remainder := strings.TrimPrefix(e.RelativePath, prefix)
		if remainder == "" || strings.Contains(remainder, "/") {
			continue
		}
		names = append(names, remainder)
	}
	return names, nil
}

// --- mutating operations ------------------------------------------------

// WriteFileSync writes content at path. If an entry already exists with
// a matching content checksum, this is a silent no-op (spec.md 8's
// property 5): no disk write, no change-log entry.
func (v *VirtualFS) WriteFileSync(p string, content []byte) error {
	if err := v.requireStarted("write"); err != nil {
		return err
	}
	rel, err := v.normalizeRelPath(p)
	if err != nil {
		return err
	}

	sum := v.shared.hasher(content)
	existing := v.shared.entries.FindByRelativePath(rel)
	if existing.Found() && existing.Entry.Checksum == sum {
		v.shared.debugf("write %s: no-op (content unchanged)", rel)
		return nil
	}

	if parent := fstree.ParentDir(rel); parent != "" {
		if err := os.MkdirAll(v.absPath(parent), 0755); err != nil {
			return &Error{"write", p, err}
		}
	}
	if err := os.WriteFile(v.absPath(rel), content, 0644); err != nil {
		return &Error{"write", p, err}
	}

	e := &fstree.Entry{
		RelativePath: rel,
		Size:         uint64(len(content)),
		Mtime:        time.Now().UnixMilli(),
		Checksum:     sum,
	}
	v.shared.entries.Upsert(e)

	op := fstree.OpCreate
	if existing.Found() {
		op = fstree.OpChange
	}
	v.shared.changeLog.Record(op, rel, e)
	v.shared.debugf("write %s: %d bytes (%s)", rel, len(content), op)
	return nil
}

// UnlinkSync removes a file. Missing entries are tolerated silently; it
// never follows a symlinked-mount entry (it must remove the mount point
// itself, not the target).
func (v *VirtualFS) UnlinkSync(p string) error {
	if err := v.requireStarted("unlink"); err != nil {
		return err
	}
	rel, err := v.normalizeRelPath(p)
	if err != nil {
		return err
	}

	r := v.shared.entries.FindByRelativePath(rel)
	if !r.Found() {
		v.shared.debugf("unlink %s: no-op (not found)", rel)
		return nil
	}

	if err := os.Remove(v.absPath(rel)); err != nil && !os.IsNotExist(err) {
		return &Error{"unlink", p, err}
	}

	v.shared.entries.RemoveAt(r)
	v.shared.changeLog.Record(fstree.OpUnlink, rel, r.Entry)
	v.shared.debugf("unlink %s", rel)
	return nil
}

// RmdirSync removes a directory. Missing entries are tolerated silently.
func (v *VirtualFS) RmdirSync(p string) error {
	if err := v.requireStarted("rmdir"); err != nil {
		return err
	}
	rel, err := v.normalizeRelPath(p)
	if err != nil {
		return err
	}

	r := v.shared.entries.FindByRelativePath(rel)
	if !r.Found() {
		v.shared.debugf("rmdir %s: no-op (not found)", rel)
		return nil
	}

	if err := os.Remove(v.absPath(rel)); err != nil && !os.IsNotExist(err) {
		return &Error{"rmdir", p, err}
	}

	v.shared.entries.RemoveAt(r)
	v.shared.changeLog.Record(fstree.OpRmdir, rel, r.Entry)
	v.shared.debugf("rmdir %s", rel)
	return nil
}

// MkdirSync creates a directory. If it already exists, this is a no-op:
// nothing is recorded in the change log, only a LOG_DEBUG line.
func (v *VirtualFS) MkdirSync(p string) error {
	if err := v.requireStarted("mkdir"); err != nil {
		return err
	}
	return v.mkdir(p, false)
}

func (v *VirtualFS) mkdir(p string, expectAlready bool) error {
	rel, err := v.normalizeRelPath(p)
	if err != nil {
		return err
	}

	existing := v.shared.entries.FindByRelativePath(rel)
	if existing.Found() && existing.Entry.IsDir() {
		if !expectAlready {
			v.shared.debugf("mkdir %s: no-op (exists)", rel)
		}
		return nil
	}

	if err := os.MkdirAll(v.absPath(rel), 0755); err != nil {
		return &Error{"mkdir", p, err}
	}

	e := &fstree.Entry{RelativePath: rel, Mode: fstree.ModeDir, Mtime: time.Now().UnixMilli()}
	v.shared.entries.Upsert(e)
	v.shared.changeLog.Record(fstree.OpMkdir, rel, e)
	v.shared.debugf("mkdir %s", rel)
	return nil
}

// MkdirpSync creates every missing ancestor of path, then path itself.
func (v *VirtualFS) MkdirpSync(p string) error {
	if err := v.requireStarted("mkdirp"); err != nil {
		return err
	}

	rel, err := v.normalizeRelPath(p)
	if err != nil {
		return err
	}

	parts := strings.Split(rel, "/")
	acc := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		if acc == "" {
			acc = part
		} else {
			acc = acc + "/" + part
		}
		if err := v.mkdir(acc, true); err != nil {
			return err
		}
	}
	v.shared.debugf("mkdirp %s", rel)
	return nil
}

// SymlinkSync creates a symlink at path pointing at target. If the
// symlink cannot be created, the error is returned; target's content is
// never copied in its place. If an entry already exists at path, this is
// a no-op.
func (v *VirtualFS) SymlinkSync(target, p string) error {
	if err := v.requireStarted("symlink"); err != nil {
		return err
	}
	rel, err := v.normalizeRelPath(p)
	if err != nil {
		return err
	}

	existing := v.shared.entries.FindByRelativePath(rel)
	if existing.Found() {
		v.shared.debugf("symlink %s: no-op (exists)", rel)
		return nil
	}

	if parent := fstree.ParentDir(rel); parent != "" {
		if err := os.MkdirAll(v.absPath(parent), 0755); err != nil {
			return &Error{"symlink", p, err}
		}
	}

	if err := os.Symlink(target, v.absPath(rel)); err != nil {
		if !os.IsExist(err) {
			return &Error{"symlink", p, err}
		}
	}

	e := &fstree.Entry{
		RelativePath: rel,
		Mode:         fstree.ModeSymlink,
		Target:       target,
		Mtime:        time.Now().UnixMilli(),
	}
	v.shared.entries.Upsert(e)
	v.shared.changeLog.Record(fstree.OpCreate, rel, e)
	v.shared.debugf("symlink %s -> %s", rel, target)
	return nil
}

// SymlinkSyncFromEntry attaches a projection to destPath: the directory
// at destPath is recorded as a symlinked mount of srcTree's subtree at
// srcPath (or srcTree's whole root, when srcPath is fstree.ROOT).
func (v *VirtualFS) SymlinkSyncFromEntry(srcTree *VirtualFS, srcPath, destPath string) error {
	if err := v.requireStarted("symlink-from-entry"); err != nil {
		return err
	}
	rel, err := v.normalizeRelPath(destPath)
	if err != nil {
		return err
	}

	// srcTree is already chdir'd to srcPath, so the projection's own
	// entry reference is ROOT: "the whole of this (already narrowed)
	// view".
	child, err := srcTree.Chdir(srcPath, true)
	if err != nil {
		return &Error{"symlink-from-entry", destPath, err}
	}

	e := &fstree.Entry{
		RelativePath: rel,
		Mode:         fstree.ModeDir,
		Mtime:        time.Now().UnixMilli(),
		Proj:         &fstree.Projection{Tree: child, Entry: fstree.ROOT},
	}

	// create destPath and any missing parents as real directories on
	// disk so readers that bypass this facade still find a sensible tree
	// shape; the plain directory entry is then replaced by the mount.
	if err := v.MkdirpSync(destPath); err != nil {
		return &Error{"symlink-from-entry", destPath, err}
	}

	v.shared.entries.Upsert(e)
	v.shared.changeLog.Record(fstree.OpMkdir, rel, e)
	return nil
}

// --- filters / projections ------------------------------------------------

// FilterOptions narrows a child VirtualFS's view of its parent's tree.
type FilterOptions struct {
	Cwd     string
	Include []string
	Exclude []string
	Files   []string
}

// Filtered returns a child VirtualFS overlaying opts atop this node;
// unset fields inherit from the parent chain.
func (v *VirtualFS) Filtered(opts FilterOptions) *VirtualFS {
	return &VirtualFS{
		shared: v.shared,
		parent: v,
		filters: &filterState{
			cwd:     opts.Cwd,
			include: opts.Include,
			exclude: opts.Exclude,
			files:   opts.Files,
		},
	}
}

// Chdir returns a child VirtualFS with cwd set to path (resolved against
// this node's current cwd). allowEmpty permits chdir into a path that
// does not yet exist as a directory entry.
func (v *VirtualFS) Chdir(p string, allowEmpty bool) (*VirtualFS, error) {
	rel, err := v.normalizeRelPath(p)
	if err != nil {
		return nil, err
	}

	if rel != "" && !allowEmpty {
		if err := v.ensureEntriesPopulated(); err != nil {
			return nil, err
		}
		r := v.shared.entries.FindByRelativePath(rel)
		if !r.Found() {
			return nil, &Error{"chdir", p, ErrNotFound}
		}
		if !r.Entry.IsDir() {
			return nil, &Error{"chdir", p, ErrNotDirectory}
		}
	}

	return &VirtualFS{
		shared:  v.shared,
		parent:  v,
		filters: &filterState{cwd: rel},
	}, nil
}

// AddEntries merges entries into the store; sortAndExpand controls
// whether the caller-supplied slice is validated as already sorted or
// sorted+ancestor-expanded in place.
func (v *VirtualFS) AddEntries(entries []*fstree.Entry, sortAndExpand bool) error {
	if err := v.shared.entries.Add(entries, sortAndExpand); err != nil {
		return &Error{"add-entries", "", err}
	}
	v.shared.hasEntries = true
	return nil
}

// --- change tracking ------------------------------------------------------

// ChangesOptions configures Changes. IsEqual is the comparator used when
// diffing a source tree against its previous snapshot (nil selects
// patch.DefaultEqual); a non-source tree's change log ignores it.
type ChangesOptions struct {
	IsEqual patch.EqualFunc
}

// Changes returns a patch describing mutations since the previous call
// (srcTree) or since start() (non-srcTree), filtered by this node's
// active cwd/include/exclude/files.
func (v *VirtualFS) Changes(opts ChangesOptions) (patch.Patch, error) {
	if v.shared.srcTree {
		return v.sourceTreeChanges(opts)
	}
	return v.changeLogChanges(), nil
}

func (v *VirtualFS) sourceTreeChanges(opts ChangesOptions) (patch.Patch, error) {
	if err := v.ensureEntriesPopulated(); err != nil {
		return nil, err
	}

	current := v.filteredEntries()
	prev := v.shared.prevEntries
	if prev == nil {
		prev = fstree.NewEntryStore()
	}

	p := patch.CalculatePatch(prev, current, opts.IsEqual)
	v.shared.prevEntries = current
	return p, nil
}

func (v *VirtualFS) changeLogChanges() patch.Patch {
	changes := v.shared.changeLog.Changes()
	out := make(patch.Patch, 0, len(changes))

	cwd := v.effectiveCwd()
	prefix := ""
	if cwd != "" {
		prefix = cwd + "/"
	}

	for _, c := range changes {
		if prefix != "" && !strings.HasPrefix(c.Path, prefix) {
			continue
		}
		rel := strings.TrimPrefix(c.Path, prefix)
		if !v.passesFilters(rel) {
			continue
		}

		op := c.Op
		if op == fstree.OpMkdir && c.Entry != nil && c.Entry.Proj != nil {
			op = fstree.OpMkdirp
		}

		out = append(out, patch.Operation{Kind: op, Path: displayPath(rel, c.Entry), Entry: c.Entry})
	}
	return out
}

func displayPath(rel string, e *fstree.Entry) string {
	if e != nil && e.IsDir() {
		return rel + "/"
	}
	return rel
}

// filteredEntries builds an EntryStore of every entry under this node's
// cwd that passes include/exclude/files, with paths rewritten relative
// to cwd.
func (v *VirtualFS) filteredEntries() *fstree.EntryStore {
	cwd := v.effectiveCwd()
	prefix := ""
	if cwd != "" {
		prefix = cwd + "/"
	}

	var kept []*fstree.Entry
	for _, e := range v.shared.entries.Entries() {
		if prefix != "" && !strings.HasPrefix(e.RelativePath, prefix) && e.RelativePath != cwd {
			continue
		}
		rel := strings.TrimPrefix(e.RelativePath, prefix)
		if rel == "" {
			continue
		}
		if !v.passesFilters(rel) {
			continue
		}
		c := e.Clone()
		c.RelativePath = rel
		kept = append(kept, c)
	}

	store, _ := fstree.NewEntryStoreFromEntries(kept, false)
	return store
}

func (v *VirtualFS) passesFilters(rel string) bool {
	if files := v.effectiveFiles(); files != nil {
		found := false
		for _, f := range files {
			if f == rel {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	base := path.Base(rel)
	if exclude := v.effectiveExclude(); len(exclude) > 0 && fstree.MatchAnyGlob(exclude, base) {
		return false
	}
	if include := v.effectiveInclude(); len(include) > 0 && !fstree.MatchAnyGlob(include, base) {
		return false
	}
	return true
}
