// glob.go - shell-glob matching shared by walk excludes and vfs filters
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

import "path"

// MatchGlob reports whether name matches pattern, using shell-glob
// syntax. A malformed pattern never matches rather than panicking.
func MatchGlob(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	if err != nil {
		return false
	}
	return ok
}

// MatchAnyGlob reports whether name matches any pattern in patterns.
func MatchAnyGlob(patterns []string, name string) bool {
	for _, p := range patterns {
		if MatchGlob(p, name) {
			return true
		}
	}
	return false
}
