// changelog.go - ordered, dedup'd record of mutations
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

// ChangeOp names the kind of mutation recorded in a ChangeLog entry.
type ChangeOp string

// The operation kinds a ChangeLog (and, downstream, a Patch) can carry.
const (
	OpCreate ChangeOp = "create"
	OpMkdir  ChangeOp = "mkdir"
	OpMkdirp ChangeOp = "mkdirp"
	OpUnlink ChangeOp = "unlink"
	OpRmdir  ChangeOp = "rmdir"
	OpChange ChangeOp = "change"
)

// Change is one recorded mutation: an operation, the path it applies to,
// and (where known) the resulting Entry.
type Change struct {
	Op    ChangeOp
	Path  string
	Entry *Entry
}

// ChangeLog is an ordered sequence of Change records with a path -> index
// dedup map: at most one record per path survives at any time. Recording
// a new op for an already-recorded path replaces the earlier record *in
// place*, preserving its chronological position - spec.md 4.6's
// "current net effect at each path, in insertion order".
type ChangeLog struct {
	log   []Change
	index map[string]int
}

// NewChangeLog returns an empty ChangeLog.
func NewChangeLog() *ChangeLog {
	return &ChangeLog{index: make(map[string]int)}
}

// Record appends (or in-place replaces) the change for path.
func (c *ChangeLog) Record(op ChangeOp, path string, entry *Entry) {
	if i, ok := c.index[path]; ok {
		c.log[i] = Change{Op: op, Path: path, Entry: entry}
		return
	}

	c.index[path] = len(c.log)
	c.log = append(c.log, Change{Op: op, Path: path, Entry: entry})
}

// Changes returns the live, ordered list of changes.
func (c *ChangeLog) Changes() []Change {
	return c.log
}

// Len returns the number of distinct paths currently recorded.
func (c *ChangeLog) Len() int {
	return len(c.log)
}

// Get returns the recorded change for path, if any.
func (c *ChangeLog) Get(path string) (Change, bool) {
	i, ok := c.index[path]
	if !ok {
		return Change{}, false
	}
	return c.log[i], true
}

// Clear truncates the log, as done by VirtualFS.start().
func (c *ChangeLog) Clear() {
	c.log = c.log[:0]
	c.index = make(map[string]int)
}
