// errors.go - descriptive errors for fstree
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
	"errors"
	"fmt"
)

// Sentinel errors for the taxonomy in spec.md 7. Callers match against
// these with errors.Is() through the wrapping *Error below.
var (
	// ErrInvalidOrder is returned when entries handed to the store are
	// not sorted, or contain a duplicate path.
	ErrInvalidOrder = errors.New("fstree: entries not sorted/unique")

	// ErrNotArray is returned when AddEntries is given something that
	// isn't a sequence of entries.
	ErrNotArray = errors.New("fstree: not a sequence of entries")

	// ErrNonAbsoluteRoot is returned when a VirtualFS root (or a reread
	// target) isn't an absolute path.
	ErrNonAbsoluteRoot = errors.New("fstree: root must be an absolute path")

	// ErrNonSourceRootChange is returned when reread(newRoot) is called
	// on a tree that isn't a source tree.
	ErrNonSourceRootChange = errors.New("fstree: root change on non-source tree")

	// ErrPathEscape is returned when a resolved path would leave the
	// tree's root.
	ErrPathEscape = errors.New("fstree: path escapes root")

	// ErrNotFound is returned when an operation targets a path that
	// doesn't exist.
	ErrNotFound = errors.New("fstree: not found")

	// ErrNotDirectory is returned when an operation that requires a
	// directory targets a file.
	ErrNotDirectory = errors.New("fstree: not a directory")
)

// Error wraps any of the sentinels above (or a caller's own error) with
// the operation name and path that triggered it, in the same shape as
// go-fio's CopyError/clone.Error: Op, Path, Err plus Error()/Unwrap().
type Error struct {
	Op   string
	Path string
	Err  error
}

// Error returns a string representation of Error.
func (e *Error) Error() string {
	return fmt.Sprintf("fstree: %s '%s': %s", e.Op, e.Path, e.Err.Error())
}

// Unwrap returns the underlying wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

var _ error = &Error{}

// OrderError names the offending neighbors when validateSortedUnique
// fails, per spec.md 4.1.
type OrderError struct {
	I, J       int
	PathI, PathJ string
	Err        error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("fstree: invalid order: entries[%d]=%q, entries[%d]=%q: %s",
		e.I, e.PathI, e.J, e.PathJ, e.Err.Error())
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

var _ error = &OrderError{}
