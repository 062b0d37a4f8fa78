// apply_test.go -- tests for ApplyPatch
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

package patch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyPatchCreateAndUnlink(t *testing.T) {
	assert := newAsserter(t)

	input := t.TempDir()
	output := t.TempDir()

	assert(os.WriteFile(filepath.Join(input, "a.txt"), []byte("hi"), 0600) == nil, "write input file")

	p := Patch{
		{Kind: OpCreate, Path: "a.txt"},
	}

	d := &DefaultDelegate{}
	err := ApplyPatch(input, output, p, d)
	assert(err == nil, "apply create: %s", err)

	got, err := os.ReadFile(filepath.Join(output, "a.txt"))
	assert(err == nil, "read output: %s", err)
	assert(string(got) == "hi", "content mismatch: %q", got)

	p2 := Patch{
		{Kind: OpUnlink, Path: "a.txt"},
	}
	err = ApplyPatch(input, output, p2, d)
	assert(err == nil, "apply unlink: %s", err)

	_, err = os.Stat(filepath.Join(output, "a.txt"))
	assert(os.IsNotExist(err), "expected file gone after unlink")
}

func TestApplyPatchMkdirRmdir(t *testing.T) {
	assert := newAsserter(t)

	input := t.TempDir()
	output := t.TempDir()

	p := Patch{
		{Kind: OpMkdir, Path: "sub/"},
	}
	d := &DefaultDelegate{}
	assert(ApplyPatch(input, output, p, d) == nil, "mkdir failed")

	fi, err := os.Stat(filepath.Join(output, "sub"))
	assert(err == nil && fi.IsDir(), "expected sub/ to exist as a dir")

	p2 := Patch{
		{Kind: OpRmdir, Path: "sub/"},
	}
	assert(ApplyPatch(input, output, p2, d) == nil, "rmdir failed")

	_, err = os.Stat(filepath.Join(output, "sub"))
	assert(os.IsNotExist(err), "expected sub/ gone after rmdir")
}

func TestApplyPatchUnknownOperation(t *testing.T) {
	assert := newAsserter(t)

	input := t.TempDir()
	output := t.TempDir()

	p := Patch{
		{Kind: Op("bogus"), Path: "x"},
	}
	err := ApplyPatch(input, output, p, &DefaultDelegate{})
	assert(err != nil, "expected UnknownOperation error")

	var uo *UnknownOperation
	_, ok := err.(*UnknownOperation)
	_ = uo
	assert(ok, "expected *UnknownOperation, got %T", err)
}

type recordingDelegate struct {
	calls []string
}

func (r *recordingDelegate) Unlink(_, _, rel string) error { r.calls = append(r.calls, "unlink:"+rel); return nil }
func (r *recordingDelegate) Rmdir(_, _, rel string) error  { r.calls = append(r.calls, "rmdir:"+rel); return nil }
func (r *recordingDelegate) Mkdir(_, _, rel string) error  { r.calls = append(r.calls, "mkdir:"+rel); return nil }
func (r *recordingDelegate) Mkdirp(_, _, rel string) error { r.calls = append(r.calls, "mkdirp:"+rel); return nil }
func (r *recordingDelegate) Create(_, _, rel string) error { r.calls = append(r.calls, "create:"+rel); return nil }
func (r *recordingDelegate) Change(_, _, rel string) error { r.calls = append(r.calls, "change:"+rel); return nil }

func TestApplyPatchDispatchOrder(t *testing.T) {
	assert := newAsserter(t)

	p := Patch{
		{Kind: OpRmdir, Path: "b/c/"},
		{Kind: OpRmdir, Path: "b/"},
		{Kind: OpMkdir, Path: "d/"},
		{Kind: OpCreate, Path: "d/e.js"},
	}

	rd := &recordingDelegate{}
	err := ApplyPatch(t.TempDir(), t.TempDir(), p, rd)
	assert(err == nil, "apply: %s", err)

	want := []string{"rmdir:b/c/", "rmdir:b/", "mkdir:d/", "create:d/e.js"}
	assert(len(rd.calls) == len(want), "calls: %v", rd.calls)
	for i := range want {
		assert(rd.calls[i] == want[i], "index %d: got %s want %s", i, rd.calls[i], want[i])
	}
}
