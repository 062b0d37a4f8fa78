// pathorder.go - path ordering utilities
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
	"sort"
	"strings"
)

// compareByRelativePath does a byte-wise comparison of two normalized
// paths (no trailing "/" on directories), returning <0, 0, >0 like
// strings.Compare.
func compareByRelativePath(a, b *Entry) int {
	return strings.Compare(a.RelativePath, b.RelativePath)
}

// validateSortedUnique fails with an *OrderError naming the offending
// neighbors when entries aren't strictly sorted and unique by
// RelativePath.
func validateSortedUnique(entries []*Entry) error {
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		c := compareByRelativePath(prev, cur)
		switch {
		case c == 0:
			return &OrderError{i - 1, i, prev.RelativePath, cur.RelativePath, ErrInvalidOrder}
		case c > 0:
			return &OrderError{i - 1, i, prev.RelativePath, cur.RelativePath, ErrInvalidOrder}
		}
	}
	return nil
}

// commonPrefix returns the longest common prefix of a and b, truncated
// after the last occurrence of terminator within that prefix.
func commonPrefix(a, b string, terminator byte) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	i := 0
	for i < n && a[i] == b[i] {
		i++
	}

	cut := strings.LastIndexByte(a[:i], terminator)
	if cut < 0 {
		return ""
	}
	return a[:cut+1]
}

// ParentDir returns the parent directory of a normalized relative path
// (including the trailing separator), or "" if the path is top-level.
// VirtualFS uses this to resolve the ancestor directory a write or
// symlink must create before it can land, rather than round-tripping
// through an absolute path and path.Dir.
func ParentDir(relPath string) string {
	idx := strings.LastIndexByte(relPath, '/')
	if idx < 0 {
		return ""
	}
	return relPath[:idx+1]
}

// basename returns the parent directory path of e (including the
// trailing separator), or "" for a top-level entry.
func basename(e *Entry) string {
	return ParentDir(e.RelativePath)
}

// sortAndExpand stably sorts entries by path and injects any missing
// intermediate directory entries so that, for every entry at depth D,
// every prefix directory at depths 1..D-1 exists in the result. It
// mutates and returns the same backing slice's logical contents (a new
// slice header is returned because the expansion may grow the length).
func sortAndExpand(entries []*Entry) []*Entry {
	sort.SliceStable(entries, func(i, j int) bool {
		return compareByRelativePath(entries[i], entries[j]) < 0
	})

	seen := make(map[string]bool, len(entries)*2)
	out := make([]*Entry, 0, len(entries))

	// watermark: the most recently emitted path. Since entries arrive
	// sorted, any ancestor directory shared with the watermark's own
	// ancestry has necessarily already been emitted; we only need to
	// walk the suffix of the current path beyond that shared prefix.
	watermark := ""

	emitAncestors := func(path string) {
		start := len(commonPrefix(path, watermark, '/'))

		for {
			idx := strings.IndexByte(path[start:], '/')
			if idx < 0 {
				break
			}
			dir := path[:start+idx]
			start = start + idx + 1

			if dir == "" || seen[dir] {
				continue
			}
			seen[dir] = true
			out = append(out, &Entry{
				RelativePath: dir,
				Mode:         ModeDir,
			})
		}
	}

	for _, e := range entries {
		emitAncestors(e.RelativePath)

		if e.IsDir() && seen[e.RelativePath] {
			watermark = e.RelativePath
			continue
		}
		if e.IsDir() {
			seen[e.RelativePath] = true
		}

		out = append(out, e)
		watermark = e.RelativePath
	}

	sort.SliceStable(out, func(i, j int) bool {
		return compareByRelativePath(out[i], out[j]) < 0
	})
	return out
}
