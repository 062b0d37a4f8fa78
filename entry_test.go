// entry_test.go - tests for Entry
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

package fstree

import (
	"testing"
	"time"
)

func TestFromStatFile(t *testing.T) {
	assert := newAsserter(t)

	e := FromStat("a/b.txt", StatInfo{Size: 42, Mtime: time.Unix(100, 0), Mode: 0})
	assert(e.RelativePath == "a/b.txt", "path: %s", e.RelativePath)
	assert(e.Size == 42, "size: %d", e.Size)
	assert(e.IsRegular(), "expected regular file")
	assert(!e.IsDir(), "unexpected dir")
}

func TestFromStatDirTrimsSlash(t *testing.T) {
	assert := newAsserter(t)

	e := FromStat("a/b/", StatInfo{Mode: ModeDir})
	assert(e.RelativePath == "a/b", "path not trimmed: %q", e.RelativePath)
	assert(e.IsDir(), "expected dir")
	assert(e.Size == 0, "dir size should be 0, got %d", e.Size)
	assert(e.WithTrailingSlash() == "a/b/", "WithTrailingSlash: %q", e.WithTrailingSlash())
}

func TestFromPathInfersDir(t *testing.T) {
	assert := newAsserter(t)

	f := FromPath("x.js")
	assert(f.IsRegular(), "x.js should be a file")

	d := FromPath("dir/")
	assert(d.IsDir(), "dir/ should be a dir")
	assert(d.RelativePath == "dir", "path: %q", d.RelativePath)
}

func TestEntryClone(t *testing.T) {
	assert := newAsserter(t)

	e := FromPath("a.txt")
	e.Meta = map[string]string{"k": "v"}

	c := e.Clone()
	c.Meta["k"] = "changed"

	assert(e.Meta["k"] == "v", "clone mutated original meta")
	assert(c.RelativePath == e.RelativePath, "path mismatch after clone")
}

func TestSymlinkMode(t *testing.T) {
	assert := newAsserter(t)

	e := FromStat("link", StatInfo{Mode: ModeSymlink})
	assert(e.IsSymlink(), "expected symlink")
	assert(!e.IsDir(), "symlink should not be a dir")
	assert(!e.IsRegular(), "symlink should not be regular")
}
