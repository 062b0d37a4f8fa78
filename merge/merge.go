// merge.go -- N-way recursive merge of virtual trees
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

// Package merge composes N VirtualFS trees into one synthetic view,
// detecting case-insensitive name collisions and file/directory type
// conflicts, applying an overwrite policy for duplicated files, and
// optimizing directories that exist in exactly one input tree into a
// symlinked mount rather than a deep copy.
package merge

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/opencoff/go-logger"

	"github.com/opencoff/fstree"
	"github.com/opencoff/fstree/patch"
	"github.com/opencoff/fstree/vfs"
)

// Engine merges Trees, in order, into one view. Overwrite controls
// whether a file name appearing in more than one tree is allowed
// (later tree wins) or rejected with OverwriteRefused.
type Engine struct {
	Trees      []*vfs.VirtualFS
	Roots      []string // parallel to Trees, used only in error messages
	Overwrite  bool
	CanSymlink bool

	log logger.Logger

	prevMerged *fstree.EntryStore
	mounted    int
	recursed   int
	files      int
	overwrote  int
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger attaches log to the engine, mirroring vfs.WithLogger: every
// capitalization/type conflict and overwrite refusal logs at LOG_WARN
// before the error is returned, and a completed Merge logs one LOG_INFO
// summary line. A nil logger (the default) leaves the engine silent.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New returns an Engine over trees. CanSymlink defaults to true: every
// platform this module targets (linux/darwin/freebsd, per walk's build
// tags) supports directory symlinks.
func New(trees []*vfs.VirtualFS, roots []string, overwrite bool, opts ...Option) *Engine {
	e := &Engine{Trees: trees, Roots: roots, Overwrite: overwrite, CanSymlink: true}
	for _, fn := range opts {
		fn(e)
	}
	return e
}

func (m *Engine) warnf(format string, args ...interface{}) {
	if m.log != nil {
		m.log.Warn(format, args...)
	}
}

func (m *Engine) infof(format string, args ...interface{}) {
	if m.log != nil {
		m.log.Info(format, args...)
	}
}

// Result is the outcome of a single Merge call: the merged entry set plus
// a summary of how each name was resolved, the way cmp.Difference.String()
// dumps a structured breakdown of a two-tree comparison.
type Result struct {
	Store *fstree.EntryStore

	Mounted   int // directories symlink-mounted from a single contributor
	Recursed  int // directories merged in place from >1 contributor
	Files     int // files contributed to the merged tree
	Overwrote int // files present in >1 tree, resolved by overwrite policy
}

func (r *Result) String() string {
	return fmt.Sprintf("merge: %d entries (%d mounted dirs, %d recursed dirs, %d files, %d overwritten)",
		r.Store.Len(), r.Mounted, r.Recursed, r.Files, r.Overwrote)
}

type nameInfo struct {
	name      string
	isDir     bool
	indices   []int
	entries   map[int]*fstree.Entry
	rootNames []string
}

// Merge produces the merged entry set rooted at baseDir (relative to
// each input tree's own cwd), sorted by relative path.
func (m *Engine) Merge(baseDir string) (*Result, error) {
	m.mounted, m.recursed, m.files, m.overwrote = 0, 0, 0, 0

	entries, err := m.mergeDir(baseDir, allIndices(len(m.Trees)))
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RelativePath < entries[j].RelativePath
	})
	store, err := fstree.NewEntryStoreFromEntries(entries, false)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Store:     store,
		Mounted:   m.mounted,
		Recursed:  m.recursed,
		Files:     m.files,
		Overwrote: m.overwrote,
	}
	m.infof("%s", result)
	return result, nil
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func (m *Engine) mergeDir(dir string, indices []int) ([]*fstree.Entry, error) {
	names := xsync.NewMapOf[string, *nameInfo]()

	for _, idx := range indices {
		tree := m.Trees[idx]
		children, err := tree.ReaddirSync(dir)
		if err != nil {
			return nil, err
		}
		sort.Strings(children)

		for _, name := range children {
			childPath := name
			if dir != "" {
				childPath = path.Join(dir, name)
			}

			e, err := tree.StatSync(childPath)
			if err != nil {
				return nil, err
			}
			if e == nil {
				continue
			}

			key := strings.ToLower(name)
			info, ok := names.Load(key)
			if !ok {
				info = &nameInfo{name: name, isDir: e.IsDir(), entries: map[int]*fstree.Entry{}}
			}

			if info.name != name {
				conflict := &CapitalizationConflict{
					Dir: dir, NameA: info.name, NameB: name,
					RootA: m.rootName(info.indices[0]), RootB: m.rootName(idx),
				}
				m.warnf("%s", conflict)
				return nil, conflict
			}
			if info.isDir != e.IsDir() {
				conflict := &FileTypeConflict{Path: childPath, Roots: []string{m.rootName(info.indices[0]), m.rootName(idx)}}
				m.warnf("%s", conflict)
				return nil, conflict
			}

			info.indices = append(info.indices, idx)
			info.entries[idx] = e
			info.rootNames = append(info.rootNames, m.rootName(idx))
			names.Store(key, info)
		}
	}

	keys := make([]string, 0)
	names.Range(func(k string, _ *nameInfo) bool {
		keys = append(keys, k)
		return true
	})
	sort.Strings(keys)

	var out []*fstree.Entry
	for _, k := range keys {
		info, _ := names.Load(k)
		childPath := info.name
		if dir != "" {
			childPath = path.Join(dir, info.name)
		}

		if info.isDir {
			if len(info.indices) == 1 && m.CanSymlink {
				src := info.indices[0]
				e := &fstree.Entry{
					RelativePath: childPath,
					Mode:         fstree.ModeDir,
					Mtime:        info.entries[src].Mtime,
					Meta:         map[string]string{"linkDir": "true"},
					Proj:         &fstree.Projection{Tree: m.Trees[src], Entry: childPath},
				}
				out = append(out, e)
				m.mounted++
				continue
			}

			// either several contributors for this directory, or one
			// contributor on a platform without symlink support -
			// either way recurse and merge in place rather than mount.
			dirEntry := &fstree.Entry{RelativePath: childPath, Mode: fstree.ModeDir}
			out = append(out, dirEntry)
			m.recursed++

			sub, err := m.mergeDir(childPath, info.indices)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}

		// file
		if len(info.indices) > 1 {
			if !m.Overwrite {
				conflict := &OverwriteRefused{Path: childPath, Roots: info.rootNames}
				m.warnf("%s", conflict)
				return nil, conflict
			}
			m.overwrote++
		}

		winner := info.indices[len(info.indices)-1]
		e := info.entries[winner].Clone()
		e.RelativePath = childPath
		out = append(out, e)
		m.files++
	}

	return out, nil
}

func (m *Engine) rootName(idx int) string {
	if idx < len(m.Roots) {
		return m.Roots[idx]
	}
	return ""
}

// mergeIsEqual extends patch.DefaultEqual with the linkDir flag: two
// directories are equal only if their symlinked-mount status matches,
// per spec.md 4.7's changes() requirement.
func mergeIsEqual(a, b *fstree.Entry) bool {
	if a.IsDir() && b.IsDir() {
		return a.Meta["linkDir"] == b.Meta["linkDir"]
	}
	return patch.DefaultEqual(a, b)
}

// Changes diffs the current merge result against the result of the
// previous call to Changes, the way VirtualFS.Changes diffs a source
// tree's entries against its previous snapshot.
func (m *Engine) Changes(baseDir string) (patch.Patch, error) {
	result, err := m.Merge(baseDir)
	if err != nil {
		return nil, err
	}

	prev := m.prevMerged
	if prev == nil {
		prev = fstree.NewEntryStore()
	}

	p := patch.CalculatePatch(prev, result.Store, mergeIsEqual)
	if err := validateChangePatch(prev, result.Store, p); err != nil {
		return nil, err
	}
	m.prevMerged = result.Store
	return p, nil
}

// validateChangePatch enforces spec.md 7's MismatchInFiles invariant: every
// `change` operation calculatePatch's equal-path branch emits names a path
// that exists on both sides of the diff it came from - the "intersection"
// spec.md 7 describes. A `change` at a path missing from either side would
// mean the diff engine paired up two entries that don't actually share a
// path, which should never happen given two sorted EntryStores.
func validateChangePatch(prev, cur *fstree.EntryStore, p patch.Patch) error {
	for _, op := range p {
		if op.Kind != fstree.OpChange {
			continue
		}
		rel := strings.TrimSuffix(op.Path, "/")
		if !prev.FindByRelativePath(rel).Found() || !cur.FindByRelativePath(rel).Found() {
			return &MismatchInFiles{Path: rel}
		}
	}
	return nil
}
