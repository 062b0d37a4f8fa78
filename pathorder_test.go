// pathorder_test.go - tests for path ordering utilities
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

import "testing"

func TestValidateSortedUniqueOK(t *testing.T) {
	assert := newAsserter(t)

	entries := []*Entry{FromPath("a.js"), FromPath("b/"), FromPath("b/f.js")}
	err := validateSortedUnique(entries)
	assert(err == nil, "unexpected error: %s", err)
}

func TestValidateSortedUniqueDuplicate(t *testing.T) {
	assert := newAsserter(t)

	entries := []*Entry{FromPath("a.js"), FromPath("a.js")}
	err := validateSortedUnique(entries)
	assert(err != nil, "expected an order error")

	var oe *OrderError
	assert(asOrderError(err, &oe), "expected *OrderError, got %T", err)
}

func TestValidateSortedUniqueOutOfOrder(t *testing.T) {
	assert := newAsserter(t)

	entries := []*Entry{FromPath("b.js"), FromPath("a.js")}
	err := validateSortedUnique(entries)
	assert(err != nil, "expected an order error")
}

func asOrderError(err error, target **OrderError) bool {
	o, ok := err.(*OrderError)
	if ok {
		*target = o
	}
	return ok
}

func TestSortAndExpandInjectsAncestors(t *testing.T) {
	assert := newAsserter(t)

	entries := []*Entry{
		FromPath("b/c/d.js"),
		FromPath("b/e.js"),
		FromPath("b.js"),
	}

	out := sortAndExpand(entries)

	paths := make([]string, len(out))
	for i, e := range out {
		paths[i] = e.WithTrailingSlash()
	}

	// directories sort without their trailing "/", so "b" precedes "b.js".
	want := []string{"b/", "b.js", "b/c/", "b/c/d.js", "b/e.js"}
	assert(len(paths) == len(want), "len mismatch: got %v want %v", paths, want)
	for i := range want {
		assert(paths[i] == want[i], "index %d: got %q want %q (%v)", i, paths[i], want[i], paths)
	}
}

func TestSortAndExpandNoDuplicateDirs(t *testing.T) {
	assert := newAsserter(t)

	entries := []*Entry{
		FromPath("b/"),
		FromPath("b/f.js"),
	}

	out := sortAndExpand(entries)
	assert(len(out) == 2, "expected no injected duplicate of b/: got %d entries", len(out))
}

func TestCommonPrefix(t *testing.T) {
	assert := newAsserter(t)

	p := commonPrefix("a/b/c.js", "a/b/d.js", '/')
	assert(p == "a/b/", "commonPrefix: got %q", p)

	p2 := commonPrefix("a/b.js", "c/d.js", '/')
	assert(p2 == "", "commonPrefix: expected empty, got %q", p2)
}

func TestBasename(t *testing.T) {
	assert := newAsserter(t)

	e := FromPath("a/b/c.js")
	assert(basename(e) == "a/b/", "basename: got %q", basename(e))

	top := FromPath("c.js")
	assert(basename(top) == "", "basename of top-level: got %q", basename(top))
}
