// entrystore.go - a maintained sorted vector of entries
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

// EntryStore maintains a sorted, duplicate-free vector of *Entry, keyed by
// RelativePath. It is the canonical in-memory representation of a tree
// snapshot: spec.md 3's invariants (sorted, unique, optionally
// ancestor-complete) hold for every EntryStore a caller can observe.
type EntryStore struct {
	entries []*Entry
}

// NewEntryStore returns an empty EntryStore.
func NewEntryStore() *EntryStore {
	return &EntryStore{}
}

// NewEntryStoreFromEntries builds an EntryStore from entries, which must
// already be sorted and unique unless sortAndExpand is true.
func NewEntryStoreFromEntries(entries []*Entry, expand bool) (*EntryStore, error) {
	s := NewEntryStore()
	if err := s.Add(entries, expand); err != nil {
		return nil, err
	}
	return s, nil
}

// Len returns the number of entries in the store.
func (s *EntryStore) Len() int {
	return len(s.entries)
}

// Entries returns the live, sorted backing slice. Callers must not mutate
// it; use Add/RemoveAt to change membership.
func (s *EntryStore) Entries() []*Entry {
	return s.entries
}

// Clone returns a deep copy of s.
func (s *EntryStore) Clone() *EntryStore {
	c := &EntryStore{entries: make([]*Entry, len(s.entries))}
	for i, e := range s.entries {
		c.entries[i] = e.Clone()
	}
	return c
}

// FindResult is the outcome of FindByRelativePath: Index >= 0 means an
// exact match was found at that position; Index < 0 means no entry exists
// at path, and InsertAt is where one would have to be inserted to keep
// the store sorted.
type FindResult struct {
	Entry   *Entry
	Index   int
	InsertAt int
}

// Found reports whether the lookup found an exact match.
func (r FindResult) Found() bool {
	return r.Index >= 0
}

// normalizeLookup strips "./" and a trailing "/" the way spec.md 4.4
// describes for findByRelativePath's path normalization (collapsing
// "./", ignoring a trailing slash for lookup purposes).
func normalizeLookup(path string) string {
	path = strings.TrimPrefix(path, "./")
	return strings.TrimSuffix(path, "/")
}

// FindByRelativePath returns the entry at path (normalized), its index,
// and the position at which one would be inserted if absent. The store
// is sorted, so a binary search suffices.
func (s *EntryStore) FindByRelativePath(path string) FindResult {
	path = normalizeLookup(path)

	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].RelativePath >= path
	})

	if i < len(s.entries) && s.entries[i].RelativePath == path {
		return FindResult{Entry: s.entries[i], Index: i, InsertAt: i}
	}
	return FindResult{Entry: nil, Index: -1, InsertAt: i}
}

// InsertAt inserts entry at the position given by a prior FindResult: if
// the result located an exact match, the existing entry is overwritten in
// place; otherwise entry is spliced in at InsertAt to keep the store
// sorted.
func (s *EntryStore) InsertAt(r FindResult, entry *Entry) {
	if r.Found() {
		s.entries[r.Index] = entry
		return
	}

	s.entries = append(s.entries, nil)
	copy(s.entries[r.InsertAt+1:], s.entries[r.InsertAt:])
	s.entries[r.InsertAt] = entry
}

// RemoveAt splices out the entry located by a prior FindResult; it is a
// no-op if the result did not locate an exact match.
func (s *EntryStore) RemoveAt(r FindResult) {
	if !r.Found() {
		return
	}
	s.entries = append(s.entries[:r.Index], s.entries[r.Index+1:]...)
}

// Upsert finds path, then inserts or replaces entry there in a single
// call - the common case for a single mutating VirtualFS operation.
func (s *EntryStore) Upsert(entry *Entry) {
	r := s.FindByRelativePath(entry.RelativePath)
	s.InsertAt(r, entry)
}

// Remove removes the entry at path, if any.
func (s *EntryStore) Remove(path string) {
	r := s.FindByRelativePath(path)
	s.RemoveAt(r)
}

// Add validates (or sorts+expands) entries and merges them into the
// store, replacing any existing entry that shares a path. This mirrors
// go-fio's "load-or-store, else insert" cache shape, generalized to a
// batch of entries instead of one path at a time.
func (s *EntryStore) Add(entries []*Entry, expand bool) error {
	if entries == nil {
		return &Error{"add", "", ErrNotArray}
	}

	work := entries
	if expand {
		work = sortAndExpand(append([]*Entry(nil), entries...))
	} else if err := validateSortedUnique(entries); err != nil {
		return &Error{"add", "", err}
	}

	for _, e := range work {
		s.Upsert(e)
	}
	return nil
}

// AddPaths converts paths to entries (a directory iff the path carries a
// trailing separator) and delegates to Add.
func (s *EntryStore) AddPaths(paths []string, expand bool) error {
	entries := make([]*Entry, len(paths))
	for i, p := range paths {
		entries[i] = FromPath(p)
	}
	return s.Add(entries, expand)
}
