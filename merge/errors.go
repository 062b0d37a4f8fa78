// errors.go -- error types for merge package
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

package merge

import "fmt"

// CapitalizationConflict is returned when two distinct input trees
// contribute names that collide once lowercased.
type CapitalizationConflict struct {
	Dir     string
	NameA   string
	NameB   string
	RootA   string
	RootB   string
}

func (e *CapitalizationConflict) Error() string {
	return fmt.Sprintf("merge: capitalization conflict in %q: %q (from %s) vs %q (from %s)",
		e.Dir, e.NameA, e.RootA, e.NameB, e.RootB)
}

// FileTypeConflict is returned when a name is a directory in one input
// tree and a file in another.
type FileTypeConflict struct {
	Path  string
	Roots []string
}

func (e *FileTypeConflict) Error() string {
	return fmt.Sprintf("merge: %q is a directory in one input and a file in another (roots: %v)", e.Path, e.Roots)
}

// OverwriteRefused is returned when a file name appears in more than one
// input tree and the merge was not given overwrite permission.
type OverwriteRefused struct {
	Path  string
	Roots []string
}

func (e *OverwriteRefused) Error() string {
	return fmt.Sprintf("merge: %q present in multiple inputs (%v) and overwrite is false", e.Path, e.Roots)
}

// MismatchInFiles is an internal invariant violation: the diff used to
// build changes() found a path in one side of the comparison that does
// not exist on the other after the two were supposed to intersect.
type MismatchInFiles struct {
	Path string
}

func (e *MismatchInFiles) Error() string {
	return fmt.Sprintf("merge: invariant violation: %q missing from one side of changes() comparison", e.Path)
}
