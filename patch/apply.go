// apply.go -- replay a Patch against real directory trees
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
	"path/filepath"

	"github.com/opencoff/fstree"
)

// ApplyPatch walks p in order and dispatches each operation to delegate,
// joining input/output with the operation's relative path. An operation
// kind the delegate doesn't implement is an UnknownOperation error.
func ApplyPatch(input, output string, p Patch, delegate Delegate) error {
	for _, op := range p {
		rel := filepath.FromSlash(op.Path)
		in := filepath.Join(input, rel)
		out := filepath.Join(output, rel)

		var err error
		switch op.Kind {
		case OpUnlink:
			err = delegate.Unlink(in, out, op.Path)
		case OpRmdir:
			err = delegate.Rmdir(in, out, op.Path)
		case OpMkdir:
			err = delegate.Mkdir(in, out, op.Path)
		case OpMkdirp:
			err = delegate.Mkdirp(in, out, op.Path)
		case OpCreate:
			err = delegate.Create(in, out, op.Path)
		case OpChange:
			err = delegate.Change(in, out, op.Path)
		default:
			return &UnknownOperation{op.Kind, op.Path}
		}

		if err != nil {
			return &ApplyError{op.Kind, op.Path, err}
		}
	}
	return nil
}

// CalculateAndApplyPatch is CalculatePatch followed by ApplyPatch.
func CalculateAndApplyPatch(ours, theirs *fstree.EntryStore, isEqual EqualFunc, input, output string, delegate Delegate) (Patch, error) {
	p := CalculatePatch(ours, theirs, isEqual)
	if err := ApplyPatch(input, output, p, delegate); err != nil {
		return p, err
	}
	return p, nil
}
