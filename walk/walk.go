// walk.go - concurrent fs-walker
//
// (c) 2022- Sudhi Herle <sudhi@herle.net>
//
// Licensing Terms: GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

// Package walk does a concurrent file system traversal and returns each
// entry as a *fstree.Entry. Callers can filter the returned entries via
// Options or a caller provided Filter function. This library uses all the
// available CPUs (as returned by runtime.NumCPU()) to maximize
// concurrency of the file tree traversal.
//
// It is the sole disk-population primitive used by vfs.VirtualFS: a
// source tree's initial entry population and every reread() walk this
// package.
package walk

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/opencoff/fstree"
)

// Type is an output filter that can be bitwise OR'd. It denotes the types
// of file system entries that will be *returned* to the caller.
type Type uint

const (
	FILE    Type = 1 << iota // regular file
	DIR                      // directory
	SYMLINK                  // symbolic link

	// ALL is a shortcut for "give me all entries"
	ALL = FILE | DIR | SYMLINK
)

// Options control the behavior of the filesystem walk.
type Options struct {
	// Concurrency is the number of go-routines to use; 0 means use all
	// available CPUs.
	Concurrency int

	// FollowSymlinks follows symlinks if set.
	FollowSymlinks bool

	// OneFS keeps the walk within the starting file system.
	OneFS bool

	// IgnoreDuplicateInode suppresses entries whose (dev, inode) we've
	// already visited - guards against symlink loops and bind-mount
	// duplication.
	IgnoreDuplicateInode bool

	// Type lists the kinds of entries to return.
	Type Type

	// Excludes is a list of shell-glob patterns (matched with
	// path.Match against the basename component) that prune the
	// traversal: excluded directories are not descended.
	Excludes []string

	// Filter is an optional caller provided callback to exclude
	// entries from further traversal. It must return true if the
	// entry (and, for a directory, its subtree) should be skipped.
	Filter func(e *fstree.Entry) (bool, error)
}

type walkState struct {
	Options
	ch    chan string
	errch chan error

	typ os.FileMode

	dirWg sync.WaitGroup
	wg    sync.WaitGroup

	filterName func(nm string) bool
	singlefs   func(dev, rdev uint64) bool

	apply func(e *fstree.Entry)

	fs  sync.Map
	ino sync.Map
}

var typMap = map[Type]os.FileMode{
	FILE:    0,
	DIR:     os.ModeDir,
	SYMLINK: os.ModeSymlink,
}

// Walk traverses the entries in names concurrently and returns results on
// a channel of *fstree.Entry. The caller must drain the channel. Walk
// errors are reported on the returned error channel.
func Walk(names []string, opt Options) (chan *fstree.Entry, chan error) {
	if opt.Concurrency <= 0 {
		opt.Concurrency = runtime.NumCPU()
	}

	out := make(chan *fstree.Entry, opt.Concurrency)
	d := newWalkState(opt)

	d.apply = func(e *fstree.Entry) {
		out <- e
	}

	d.doWalk(names)

	go func() {
		d.dirWg.Wait()
		close(d.ch)
		close(out)
		close(d.errch)
		d.wg.Wait()
	}()

	return out, d.errch
}

// WalkFunc traverses the entries in names concurrently and calls apply
// for each entry that matches Options. apply must be concurrency-safe: it
// is called from multiple goroutines. Errors returned by apply (and
// errors encountered during the walk) are joined and returned.
func WalkFunc(names []string, opt Options, apply func(e *fstree.Entry) error) error {
	if opt.Concurrency <= 0 {
		opt.Concurrency = runtime.NumCPU()
	}

	d := newWalkState(opt)
	d.apply = func(e *fstree.Entry) {
		if err := apply(e); err != nil {
			d.errch <- err
		}
	}

	d.doWalk(names)

	var errWg sync.WaitGroup
	var errs []error

	errWg.Add(1)
	go func(in chan error) {
		for e := range in {
			errs = append(errs, e)
		}
		errWg.Done()
	}(d.errch)

	d.dirWg.Wait()
	close(d.ch)
	close(d.errch)
	errWg.Wait()
	d.wg.Wait()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// WalkSorted walks names and returns a sorted EntryStore - the shape
// vfs.VirtualFS needs for its initial population and reread().
func WalkSorted(names []string, opt Options) (*fstree.EntryStore, error) {
	var mu sync.Mutex
	var collected []*fstree.Entry

	err := WalkFunc(names, opt, func(e *fstree.Entry) error {
		mu.Lock()
		collected = append(collected, e)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	// the walk already reports every directory below names; sort and
	// de-duplicate without injecting the ancestors above each walk root.
	sort.Slice(collected, func(i, j int) bool {
		return collected[i].RelativePath < collected[j].RelativePath
	})
	store := fstree.NewEntryStore()
	for _, e := range collected {
		store.Upsert(e)
	}
	return store, nil
}

func newWalkState(opt Options) *walkState {
	d := &walkState{
		Options: opt,
		ch:      make(chan string, opt.Concurrency),
		errch:   make(chan error, opt.Concurrency),

		filterName: func(_ string) bool { return false },
		singlefs:   func(_, _ uint64) bool { return true },
	}

	if len(d.Excludes) > 0 {
		d.filterName = d.exclude
	}
	if d.OneFS {
		d.singlefs = d.isSingleFS
	}
	if d.Filter == nil {
		d.Filter = func(_ *fstree.Entry) (bool, error) { return false, nil }
	}

	t := d.Type
	for k, v := range typMap {
		if (t & k) > 0 {
			d.typ |= v
		}
	}

	d.wg.Add(d.Concurrency)
	for i := 0; i < d.Concurrency; i++ {
		go d.worker()
	}
	return d
}

func (d *walkState) doWalk(names []string) {
	dirs := make([]string, 0, len(names))
	for i := range names {
		nm := strings.TrimSuffix(names[i], "/")
		if len(nm) == 0 {
			nm = "/"
		}

		if d.filterName(nm) {
			continue
		}

		e, dev, rdev, ino, err := lstatEntry(nm)
		if err != nil {
			d.error(&Error{"lstat", nm, err})
			continue
		}

		if d.isEntrySeen(dev, rdev, ino) {
			continue
		}

		skip, err := d.Filter(e)
		if err != nil {
			d.error(&Error{"filter", nm, err})
			continue
		}
		if skip {
			continue
		}

		switch {
		case e.IsDir():
			if d.OneFS {
				d.trackFS(dev, rdev)
			}
			dirs = append(dirs, nm)

		case e.IsSymlink():
			dirs = d.doSymlink(nm, e, dirs)

		default:
			d.output(e)
		}
	}

	d.enq(dirs)
}

func (d *walkState) worker() {
	for nm := range d.ch {
		e, dev, rdev, _, err := lstatEntry(nm)
		if err != nil {
			d.error(&Error{"lstat-wrk", nm, err})
			d.dirWg.Done()
			continue
		}

		// we are _sure_ this is a dir (only dirs are ever enqueued)
		d.output(e)

		d.walkPath(nm, dev, rdev)

		d.dirWg.Done()
	}
	d.wg.Done()
}

func (d *walkState) output(e *fstree.Entry) {
	m := e.Mode
	switch {
	case e.IsDir():
		if (d.typ & os.ModeDir) > 0 {
			d.apply(e)
		}
	case e.IsSymlink():
		if (d.typ & os.ModeSymlink) > 0 {
			d.apply(e)
		}
	default:
		_ = m
		if (d.Type & FILE) > 0 {
			d.apply(e)
		}
	}
}

func (d *walkState) exclude(nm string) bool {
	bn := path.Base(nm)
	return fstree.MatchAnyGlob(d.Excludes, bn)
}

func (d *walkState) enq(dirs []string) {
	if len(dirs) > 0 {
		d.dirWg.Add(len(dirs))
		go func(dirs []string) {
			for _, nm := range dirs {
				d.ch <- nm
			}
		}(dirs)
	}
}

func readDirNames(nm string) ([]string, error) {
	fd, err := os.Open(nm)
	if err != nil {
		return nil, &Error{"readdir", nm, err}
	}
	defer fd.Close()

	names, err := fd.Readdirnames(-1)
	if err != nil {
		return nil, &Error{"readdirnames", nm, err}
	}
	return names, nil
}

func (d *walkState) walkPath(nm string, pdev, prdev uint64) {
	names, err := readDirNames(nm)
	if err != nil {
		d.error(err)
		return
	}

	if nm == "/" {
		nm = ""
	}

	dirs := make([]string, 0, len(names)/2)
	for i := range names {
		entry := names[i]
		fp := fmt.Sprintf("%s/%s", nm, entry)

		if d.filterName(fp) {
			continue
		}

		e, dev, rdev, ino, err := lstatEntry(fp)
		if err != nil {
			d.error(&Error{"lstat", fp, err})
			continue
		}

		if d.isEntrySeen(dev, rdev, ino) {
			continue
		}

		skip, err := d.Filter(e)
		if err != nil {
			d.error(&Error{"filter", fp, err})
			continue
		}
		if skip {
			continue
		}

		switch {
		case e.IsDir():
			if d.singlefs(dev, rdev) {
				dirs = append(dirs, fp)
			}
		case e.IsSymlink():
			dirs = d.doSymlink(fp, e, dirs)
		default:
			d.output(e)
		}
	}

	d.enq(dirs)
}

// doSymlink either outputs the symlink entry itself (default) or, when
// FollowSymlinks is set, resolves it and processes the resolved entry -
// possibly queuing it as a directory to descend into.
func (d *walkState) doSymlink(nm string, e *fstree.Entry, dirs []string) []string {
	if !d.FollowSymlinks {
		d.output(e)
		return dirs
	}

	newnm, err := filepath.EvalSymlinks(nm)
	if err != nil {
		d.error(&Error{"symlink", nm, err})
		return dirs
	}

	re, dev, rdev, ino, err := statEntry(newnm)
	if err != nil {
		d.error(&Error{"symlink-stat", nm, err})
		return dirs
	}

	if d.isEntrySeen(dev, rdev, ino) {
		return dirs
	}

	switch {
	case re.IsDir():
		if d.singlefs(dev, rdev) {
			dirs = append(dirs, newnm)
		}
	default:
		d.output(re)
	}
	return dirs
}

func (d *walkState) isEntrySeen(dev, rdev, ino uint64) bool {
	if !d.IgnoreDuplicateInode {
		return false
	}

	key := fmt.Sprintf("%d:%d:%d", dev, rdev, ino)
	_, loaded := d.ino.LoadOrStore(key, true)
	return loaded
}

func (d *walkState) trackFS(dev, rdev uint64) {
	key := fmt.Sprintf("%d:%d", dev, rdev)
	d.fs.Store(key, true)
}

func (d *walkState) isSingleFS(dev, rdev uint64) bool {
	key := fmt.Sprintf("%d:%d", dev, rdev)
	_, ok := d.fs.Load(key)
	return ok
}

func (d *walkState) error(e error) {
	d.errch <- e
}

// lstatEntry lstat(2)s nm and returns a *fstree.Entry plus the raw
// (dev, rdev, ino) triple walkState needs for OneFS/loop bookkeeping -
// deliberately kept out of fstree.Entry itself (spec.md's Entry carries
// no device/inode fields).
func lstatEntry(nm string) (e *fstree.Entry, dev, rdev, ino uint64, err error) {
	var st syscall.Stat_t
	if err = syscall.Lstat(nm, &st); err != nil {
		return nil, 0, 0, 0, err
	}
	return makeEntry(nm, &st), uint64(st.Dev), uint64(st.Rdev), st.Ino, nil
}

// statEntry is like lstatEntry but follows symlinks.
func statEntry(nm string) (e *fstree.Entry, dev, rdev, ino uint64, err error) {
	var st syscall.Stat_t
	if err = syscall.Stat(nm, &st); err != nil {
		return nil, 0, 0, 0, err
	}
	return makeEntry(nm, &st), uint64(st.Dev), uint64(st.Rdev), st.Ino, nil
}

func makeEntry(nm string, st *syscall.Stat_t) *fstree.Entry {
	mode := modeFromStat(st.Mode)
	return fstree.FromStat(nm, fstree.StatInfo{
		Size:  st.Size,
		Mtime: statMtime(st),
		Mode:  mode,
	})
}
