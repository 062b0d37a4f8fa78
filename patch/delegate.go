// delegate.go -- default patch-apply delegate
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
)

// Delegate is consumed by ApplyPatch; each method is invoked with the
// absolute input path, absolute output path and the patch-relative path
// for a single operation.
type Delegate interface {
	Unlink(in, out, rel string) error
	Rmdir(in, out, rel string) error
	Mkdir(in, out, rel string) error
	Mkdirp(in, out, rel string) error
	Create(in, out, rel string) error
	Change(in, out, rel string) error
}

// DefaultDelegate replays a patch against real directory trees: mkdir
// and rmdir are direct syscalls, create symlinks (UseSymlinks) or copies
// from the input tree, and change is a no-op under UseSymlinks, since
// create already linked the new content; without it, change replaces
// the output file with a fresh copy.
type DefaultDelegate struct {
	// UseSymlinks, when true, makes Create emit a symlink into the
	// input tree rather than copying file content.
	UseSymlinks bool
}

func (d *DefaultDelegate) Unlink(_, out, _ string) error {
	err := os.Remove(out)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (d *DefaultDelegate) Rmdir(_, out, _ string) error {
	err := os.Remove(out)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (d *DefaultDelegate) Mkdir(_, out, _ string) error {
	err := os.Mkdir(out, 0755)
	if os.IsExist(err) {
		return nil
	}
	return err
}

func (d *DefaultDelegate) Mkdirp(_, out, _ string) error {
	return os.MkdirAll(out, 0755)
}

func (d *DefaultDelegate) Create(in, out, _ string) error {
	if d.UseSymlinks {
		if err := os.Symlink(in, out); err != nil {
			if os.IsExist(err) {
				return nil
			}
			return err
		}
		return nil
	}
	return copyFile(in, out)
}

func (d *DefaultDelegate) Change(in, out, rel string) error {
	if d.UseSymlinks {
		return nil
	}

	fi, err := os.Lstat(out)
	if err == nil && fi.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(out); err != nil {
			return err
		}
		return d.Create(in, out, rel)
	}
	if os.IsNotExist(err) {
		return d.Create(in, out, rel)
	}
	if err != nil {
		return err
	}

	if err := os.Remove(out); err != nil {
		return err
	}
	return copyFile(in, out)
}

func ensureParent(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
