// engine_test.go -- tests for CalculatePatch
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

package patch

import (
	"testing"

	"github.com/opencoff/fstree"
)

func store(t *testing.T, paths ...string) *fstree.EntryStore {
	t.Helper()
	s, err := fstree.NewEntryStoreFromEntries(entriesFromPaths(paths), true)
	if err != nil {
		t.Fatalf("build store: %s", err)
	}
	return s
}

func entriesFromPaths(paths []string) []*fstree.Entry {
	out := make([]*fstree.Entry, len(paths))
	for i, p := range paths {
		out[i] = fstree.FromPath(p)
	}
	return out
}

func kinds(p Patch) []Op {
	out := make([]Op, len(p))
	for i, op := range p {
		out[i] = op.Kind
	}
	return out
}

func paths(p Patch) []string {
	out := make([]string, len(p))
	for i, op := range p {
		out[i] = op.Path
	}
	return out
}

func TestCalculatePatchAddRemove(t *testing.T) {
	assert := newAsserter(t)

	ours := store(t, "a.js", "b.js")
	theirs := store(t, "b.js", "c.js")

	p := CalculatePatch(ours, theirs, nil)
	ks := kinds(p)
	assert(len(ks) == 2, "expected 2 ops, got %d: %v", len(ks), ks)
	assert(ks[0] == OpUnlink, "expected unlink first, got %s", ks[0])
	assert(ks[1] == OpCreate, "expected create second, got %s", ks[1])
}

func TestCalculatePatchNestedDirRemovalOrder(t *testing.T) {
	assert := newAsserter(t)

	ours := store(t, "b/c/d.js")
	theirs := store(t)

	p := CalculatePatch(ours, theirs, nil)
	ks := kinds(p)
	want := []Op{OpUnlink, OpRmdir, OpRmdir}
	assert(len(ks) == len(want), "len: got %v want %v", ks, want)
	for i := range want {
		assert(ks[i] == want[i], "index %d: got %s want %s (%v)", i, ks[i], want[i], ks)
	}
	// the file removal must precede both rmdirs, and the deepest
	// directory (b/c/) must be removed before its parent (b/).
	ps := paths(p)
	assert(ps[0] == "b/c/d.js", "first op path: %s", ps[0])
	assert(ps[1] == "b/c/", "second op path: %s", ps[1])
	assert(ps[2] == "b/", "third op path: %s", ps[2])
}

func TestCalculatePatchMkdirBeforeCreate(t *testing.T) {
	assert := newAsserter(t)

	ours := store(t)
	theirs := store(t, "b/c/d.js")

	p := CalculatePatch(ours, theirs, nil)
	ks := kinds(p)
	want := []Op{OpMkdir, OpMkdir, OpCreate}
	assert(len(ks) == len(want), "len: got %v want %v", ks, want)
	ps := paths(p)
	assert(ps[0] == "b/", "first op: %s", ps[0])
	assert(ps[1] == "b/c/", "second op: %s", ps[1])
	assert(ps[2] == "b/c/d.js", "third op: %s", ps[2])
}

func TestCalculatePatchNoopWhenEqual(t *testing.T) {
	assert := newAsserter(t)

	ours := store(t, "a.js")
	theirs := store(t, "a.js")

	p := CalculatePatch(ours, theirs, nil)
	assert(len(p) == 0, "expected empty patch, got %v", p)
}

func TestCalculatePatchTypeConflict(t *testing.T) {
	assert := newAsserter(t)

	ours, err := fstree.NewEntryStoreFromEntries([]*fstree.Entry{fstree.FromPath("a")}, false)
	assert(err == nil, "ours: %s", err)

	theirs, err := fstree.NewEntryStoreFromEntries([]*fstree.Entry{fstree.FromPath("a/")}, false)
	assert(err == nil, "theirs: %s", err)

	p := CalculatePatch(ours, theirs, nil)
	ks := kinds(p)
	want := []Op{OpUnlink, OpMkdir}
	assert(len(ks) == len(want), "len: got %v want %v", ks, want)
	for i := range want {
		assert(ks[i] == want[i], "index %d: got %s want %s", i, ks[i], want[i])
	}
}
