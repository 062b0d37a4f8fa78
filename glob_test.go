// glob_test.go - tests for MatchGlob
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

func TestMatchGlob(t *testing.T) {
	assert := newAsserter(t)

	assert(MatchGlob("*.js", "a.js"), "expected *.js to match a.js")
	assert(!MatchGlob("*.js", "a.go"), "expected *.js to not match a.go")
	assert(!MatchGlob("[", "a.js"), "malformed pattern must not match")
}

func TestMatchAnyGlob(t *testing.T) {
	assert := newAsserter(t)

	pats := []string{"*.go", "*.js"}
	assert(MatchAnyGlob(pats, "x.js"), "expected match against second pattern")
	assert(!MatchAnyGlob(pats, "x.txt"), "expected no match")
}
