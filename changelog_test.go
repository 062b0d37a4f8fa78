// changelog_test.go - tests for ChangeLog
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

func TestChangeLogDedupInPlace(t *testing.T) {
	assert := newAsserter(t)

	c := NewChangeLog()
	c.Record(OpCreate, "a.txt", FromPath("a.txt"))
	c.Record(OpCreate, "b.txt", FromPath("b.txt"))
	c.Record(OpChange, "a.txt", FromPath("a.txt"))

	changes := c.Changes()
	assert(len(changes) == 2, "expected dedup to 2 entries, got %d", len(changes))
	assert(changes[0].Path == "a.txt", "position not preserved: %s", changes[0].Path)
	assert(changes[0].Op == OpChange, "expected last op to win: %s", changes[0].Op)
	assert(changes[1].Path == "b.txt", "second slot: %s", changes[1].Path)
}

func TestChangeLogClear(t *testing.T) {
	assert := newAsserter(t)

	c := NewChangeLog()
	c.Record(OpCreate, "a.txt", nil)
	c.Clear()

	assert(c.Len() == 0, "expected empty log after Clear, got %d", c.Len())
	_, ok := c.Get("a.txt")
	assert(!ok, "expected a.txt to be gone after Clear")
}

func TestChangeLogGet(t *testing.T) {
	assert := newAsserter(t)

	c := NewChangeLog()
	c.Record(OpUnlink, "x", nil)

	ch, ok := c.Get("x")
	assert(ok, "expected to find x")
	assert(ch.Op == OpUnlink, "op: %s", ch.Op)
}
