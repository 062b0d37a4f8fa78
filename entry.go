// entry.go - a single filesystem record inside a tree model
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

// Package fstree computes and applies the minimum set of filesystem
// mutation operations that transform one tree snapshot into another, and
// exposes a virtual file-system facade that records such operations as
// they occur.
package fstree

import (
	"fmt"
	"strings"
	"time"
)

// Mode bit patterns recognized on Entry.Mode, mirroring the high bits of
// io/fs.FileMode but kept independent of it so an Entry can be built,
// compared and marshaled without ever touching a real filesystem.
const (
	ModeDir     uint32 = 0x4000
	ModeSymlink uint32 = 0xA000
	modeTypeMask uint32 = 0xF000
)

// ROOT is the sentinel Entry path used by a Projection to indicate that
// the whole of the mounted tree is attached at a directory, rather than a
// specific entry inside it.
const ROOT = ""

// Projection marks an Entry as a symlinked mount point: its contents are
// served from another tree instead of the tree it is physically recorded
// in. Entry is the relative path of the mounted subtree's root inside
// Tree, or ROOT to mean "the whole tree".
type Projection struct {
	Tree  ProjectionTree
	Entry string
}

// ProjectionTree is the minimal surface a Projection needs from whatever
// implements "another tree" - satisfied by *vfs.VirtualFS without this
// package importing it.
type ProjectionTree interface {
	FindByRelativePath(path string, walkSymlinks bool) (*Entry, error)
}

// Entry is a value type describing one filesystem record: a file, a
// directory, or a symlink.
type Entry struct {
	// RelativePath uses POSIX-style separators. A trailing "/" is
	// stripped iff the entry is a directory - IsDir() reflects the type,
	// not the spelling of the path.
	RelativePath string

	// Size is 0 for directories by convention.
	Size uint64

	// Mtime is milliseconds since the Unix epoch.
	Mtime int64

	// Mode's type bits (Mode & 0xF000) identify directories (0x4000)
	// and symlinks (0xA000); anything else is a regular file.
	Mode uint32

	// Checksum is an optional content hash, populated lazily on read or
	// eagerly on write.
	Checksum string

	// Target is the symlink target, set only when Mode is ModeSymlink.
	Target string

	// Proj is set when this entry is a symlinked mount point.
	Proj *Projection

	// Meta is an optional opaque bag of caller-supplied extra equality
	// keys; fstree never inspects its contents itself.
	Meta map[string]string
}

// StatInfo is the minimal stat-like record external collaborators (a real
// disk walker, a test harness) hand to FromStat.
type StatInfo struct {
	Size  int64
	Mtime time.Time
	Mode  uint32
}

// FromStat constructs an Entry from a stat-like record, the way
// fio.Stat/fio.Lstat construct a *fio.Info from a syscall.Stat_t.
func FromStat(path string, st StatInfo) *Entry {
	e := &Entry{
		RelativePath: normalizeDirSuffix(path, st.Mode),
		Size:         uint64(st.Size),
		Mtime:        st.Mtime.UnixMilli(),
		Mode:         st.Mode,
	}
	if e.IsDir() {
		e.Size = 0
	}
	return e
}

// FromPath is a convenience constructor: 0 size, current time, and a mode
// inferred from a trailing "/" on path.
func FromPath(path string) *Entry {
	mode := uint32(0)
	if strings.HasSuffix(path, "/") {
		mode = ModeDir
	}
	return &Entry{
		RelativePath: normalizeDirSuffix(path, mode),
		Mtime:        time.Now().UnixMilli(),
		Mode:         mode,
	}
}

// normalizeDirSuffix strips (for directories) or leaves (for everything
// else) a trailing separator on p, per spec.md 3's Entry.relativePath rule.
func normalizeDirSuffix(p string, mode uint32) string {
	if mode&modeTypeMask == ModeDir {
		return strings.TrimSuffix(p, "/")
	}
	return p
}

// IsDir returns true if this Entry represents a directory.
func (e *Entry) IsDir() bool {
	return e.Mode&modeTypeMask == ModeDir
}

// IsSymlink returns true if this Entry represents a symlink.
func (e *Entry) IsSymlink() bool {
	return e.Mode&modeTypeMask == ModeSymlink
}

// IsRegular returns true if this Entry is neither a directory nor a
// symlink.
func (e *Entry) IsRegular() bool {
	return !e.IsDir() && !e.IsSymlink()
}

// Path returns the entry's normalized relative path.
func (e *Entry) Path() string {
	return e.RelativePath
}

// WithTrailingSlash returns the path spec.md 6 requires for patch
// operations: directories always carry a trailing "/".
func (e *Entry) WithTrailingSlash() string {
	if e.IsDir() && !strings.HasSuffix(e.RelativePath, "/") {
		return e.RelativePath + "/"
	}
	return e.RelativePath
}

// Clone makes a deep copy of e.
func (e *Entry) Clone() *Entry {
	n := *e
	if e.Meta != nil {
		n.Meta = make(map[string]string, len(e.Meta))
		for k, v := range e.Meta {
			n.Meta[k] = v
		}
	}
	return &n
}

// String is a human readable representation of an Entry, in the style of
// fio.Info.String().
func (e *Entry) String() string {
	kind := "file"
	switch {
	case e.IsDir():
		kind = "dir"
	case e.IsSymlink():
		kind = "symlink"
	}
	return fmt.Sprintf("%s: %s %d %d %s", e.RelativePath, kind, e.Size, e.Mtime, e.Checksum)
}
