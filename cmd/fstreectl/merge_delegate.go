// merge_delegate.go -- patch.Delegate that resolves content across N
// merge input trees instead of a single input root.

package main

import (
	"fmt"
	"os"
	"path"

	"github.com/opencoff/fstree"
	"github.com/opencoff/fstree/patch"
	"github.com/opencoff/fstree/vfs"
)

// mergeDelegate embeds the ordinary disk delegate for directory
// bookkeeping (rmdir/unlink) but resolves file content, and symlinked
// mount directories, against whichever input tree actually contributed
// that merged path.
type mergeDelegate struct {
	*patch.DefaultDelegate
	merged *fstree.EntryStore
	trees  []*vfs.VirtualFS
	roots  []string
}

// contributor returns the absolute source path to use for rel, searching
// the input trees in reverse order so the last tree to contribute a name
// wins ties - the same rule merge.Engine applies when Overwrite is set.
func (d *mergeDelegate) contributor(rel string) string {
	for i := len(d.trees) - 1; i >= 0; i-- {
		if e, _ := d.trees[i].StatSync(rel); e != nil {
			return path.Join(d.roots[i], rel)
		}
	}
	return ""
}

func (d *mergeDelegate) Mkdir(in, out, rel string) error {
	r := d.merged.FindByRelativePath(rel)
	if r.Found() && r.Entry.Proj != nil {
		proj := r.Entry.Proj
		srcTree, ok := proj.Tree.(*vfs.VirtualFS)
		if !ok {
			return fmt.Errorf("merge: %q: unexpected projection tree type %T", rel, proj.Tree)
		}
		srcDir := path.Join(srcTree.Root(), proj.Entry)
		if err := os.Symlink(srcDir, out); err != nil && !os.IsExist(err) {
			return fmt.Errorf("mount %s: %w", rel, err)
		}
		return nil
	}
	return d.DefaultDelegate.Mkdir(in, out, rel)
}

func (d *mergeDelegate) Create(_, out, rel string) error {
	src := d.contributor(rel)
	if src == "" {
		return fmt.Errorf("merge: %q: no contributing tree found", rel)
	}
	return d.DefaultDelegate.Create(src, out, rel)
}

func (d *mergeDelegate) Change(_, out, rel string) error {
	src := d.contributor(rel)
	if src == "" {
		return fmt.Errorf("merge: %q: no contributing tree found", rel)
	}
	return d.DefaultDelegate.Change(src, out, rel)
}
