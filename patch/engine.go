// engine.go -- diff two sorted entry stores into an ordered Patch
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

// Package patch computes and applies ordered patches between two sorted
// fstree.EntryStore snapshots. A Patch is the wire format VirtualFS's
// changes() and MergeEngine's changes() both produce and consume.
package patch

import (
	"strings"

	"github.com/opencoff/fstree"
)

// Op names a single patch operation kind - the same vocabulary
// fstree.ChangeLog uses, so a VirtualFS's change log and a calculated
// Patch speak the same ops.
type Op = fstree.ChangeOp

const (
	OpCreate = fstree.OpCreate
	OpMkdir  = fstree.OpMkdir
	OpMkdirp = fstree.OpMkdirp
	OpUnlink = fstree.OpUnlink
	OpRmdir  = fstree.OpRmdir
	OpChange = fstree.OpChange
)

// Operation is one element of a Patch.
type Operation struct {
	Kind  Op
	Path  string // POSIX path; directories carry a trailing '/'
	Entry *fstree.Entry
}

// Patch is an ordered sequence of operations. Replaying it in order
// against an output tree reproduces the "theirs" tree given an "ours"
// starting point.
type Patch []Operation

// EqualFunc decides whether two entries at the same path are equivalent
// and therefore need no patch operation.
type EqualFunc func(ours, theirs *fstree.Entry) bool

// DefaultEqual treats two directories as always equal (directory
// metadata is ignored) and two files as equal iff size, mtime and mode
// all match.
func DefaultEqual(ours, theirs *fstree.Entry) bool {
	if ours.IsDir() && theirs.IsDir() {
		return true
	}
	if ours.IsDir() != theirs.IsDir() {
		return false
	}
	return ours.Size == theirs.Size &&
		ours.Mtime == theirs.Mtime &&
		ours.Mode == theirs.Mode
}

func opPath(e *fstree.Entry) string {
	if e.IsDir() {
		return e.WithTrailingSlash()
	}
	return e.RelativePath
}

// CalculatePatch performs a linear two-pointer merge of two sorted entry
// slices and returns an ordered Patch. When isEqual is nil, DefaultEqual
// is used.
func CalculatePatch(ours, theirs *fstree.EntryStore, isEqual EqualFunc) Patch {
	if isEqual == nil {
		isEqual = DefaultEqual
	}

	a := ours.Entries()
	b := theirs.Entries()

	var removals []Operation
	var additions []Operation

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		x, y := a[i], b[j]
		c := strings.Compare(x.RelativePath, y.RelativePath)

		switch {
		case c < 0:
			removals = append(removals, removeOp(x))
			i++

		case c > 0:
			additions = append(additions, addOp(y))
			j++

		default:
			if !isEqual(x, y) {
				if x.IsDir() != y.IsDir() {
					removals = append(removals, removeOp(x))
					additions = append(additions, addOp(y))
				} else if y.IsDir() {
					removals = append(removals, Operation{OpChange, opPath(y), y})
				} else {
					additions = append(additions, Operation{OpChange, opPath(y), y})
				}
			}
			i++
			j++
		}
	}

	for ; i < len(a); i++ {
		removals = append(removals, removeOp(a[i]))
	}
	for ; j < len(b); j++ {
		additions = append(additions, addOp(b[j]))
	}

	out := make(Patch, 0, len(removals)+len(additions))
	for k := len(removals) - 1; k >= 0; k-- {
		out = append(out, removals[k])
	}
	out = append(out, additions...)
	return out
}

func removeOp(e *fstree.Entry) Operation {
	if e.IsDir() {
		return Operation{OpRmdir, opPath(e), e}
	}
	return Operation{OpUnlink, opPath(e), e}
}

func addOp(e *fstree.Entry) Operation {
	if e.IsDir() {
		return Operation{OpMkdir, opPath(e), e}
	}
	return Operation{OpCreate, opPath(e), e}
}
