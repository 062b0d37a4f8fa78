// projection.go -- symlinked-mount helpers for Projection children
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

package vfs

import "github.com/opencoff/fstree"

// IsProjection reports whether v is a child node (created via Filtered
// or Chdir) rather than the root of its shared state.
func (v *VirtualFS) IsProjection() bool {
	return v.parent != nil
}

// Cwd returns this node's effective cwd, resolved through the parent
// chain per spec.md 9's per-node filter overlay.
func (v *VirtualFS) Cwd() string {
	return v.effectiveCwd()
}

// MountSymlinkedDir is MergeEngine's "directory present in exactly one
// input tree" optimization: instead of recursively copying srcTree's
// subtree at srcPath into dest's store, dest gets a single directory
// entry whose Proj points back at srcTree. readdirSync, statSync and
// changes() on dest transparently follow it.
func MountSymlinkedDir(dest *VirtualFS, srcTree *VirtualFS, srcPath, destPath string) error {
	return dest.SymlinkSyncFromEntry(srcTree, srcPath, destPath)
}

// projectionRoot returns the VirtualFS p is mounted from, or nil if p's
// Tree is not a *VirtualFS. ReaddirSync's ROOT-mount case recurses into
// it, which is how a mount-of-a-mount resolves one level per call.
func projectionRoot(p *fstree.Projection) *VirtualFS {
	tree, ok := p.Tree.(*VirtualFS)
	if !ok {
		return nil
	}
	return tree
}
