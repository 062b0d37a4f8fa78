// cmd_merge.go -- `fstreectl merge` subcommand

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/opencoff/fstree"
	"github.com/opencoff/fstree/merge"
	"github.com/opencoff/fstree/patch"
	"github.com/opencoff/fstree/vfs"
	"github.com/opencoff/fstree/walk"
)

func runMerge(cfg *globalConfig, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("Usage: %s merge OUT ROOT [ROOT...]", Z)
	}
	out := args[0]
	roots := args[1:]

	log := newLogger(cfg, "merge")
	defer log.Close()

	wo := walk.Options{Concurrency: cfg.ncpu, Type: walk.ALL}

	trees := make([]*vfs.VirtualFS, len(roots))
	for i, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return fmt.Errorf("%s: %w", r, err)
		}
		roots[i] = abs

		t, err := vfs.New(abs, vfs.WithWalkOptions(wo))
		if err != nil {
			return fmt.Errorf("%s: %w", abs, err)
		}
		trees[i] = t
		log.Debug("mounted %s as input %d", abs, i)
	}

	eng := merge.New(trees, roots, false, merge.WithLogger(log))
	result, err := eng.Merge("")
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	merged := result.Store

	if err := os.MkdirAll(out, 0755); err != nil {
		return fmt.Errorf("%s: %w", out, err)
	}

	p := patch.CalculatePatch(fstree.NewEntryStore(), merged, nil)

	// merge's entries don't live under a single "input" root, so every
	// Create/Change/Mkdir op must resolve its source against whichever
	// tree actually contributed that path rather than a plain join.
	md := &mergeDelegate{
		DefaultDelegate: &patch.DefaultDelegate{UseSymlinks: true},
		merged:          merged,
		trees:           trees,
		roots:           roots,
	}

	if err := patch.ApplyPatch("", out, p, md); err != nil {
		return fmt.Errorf("apply: %w", err)
	}

	log.Info("done: wrote %s", out)
	return nil
}
