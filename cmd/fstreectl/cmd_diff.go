// cmd_diff.go -- `fstreectl diff` subcommand

package main

import (
	"fmt"
	"os"

	"github.com/opencoff/fstree/patch"
	"github.com/opencoff/fstree/walk"
)

func runDiff(cfg *globalConfig, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("Usage: %s diff OLD NEW", Z)
	}
	old, new_ := args[0], args[1]

	log := newLogger(cfg, "diff")
	defer log.Close()

	wo := walk.Options{Concurrency: cfg.ncpu, Type: walk.ALL}

	log.Debug("walking %s ..", old)
	a, err := walk.WalkSorted([]string{old}, wo)
	if err != nil {
		return fmt.Errorf("%s: %w", old, err)
	}

	log.Debug("walking %s ..", new_)
	b, err := walk.WalkSorted([]string{new_}, wo)
	if err != nil {
		return fmt.Errorf("%s: %w", new_, err)
	}

	p := patch.CalculatePatch(a, b, nil)
	log.Info("%s -> %s: %d operations", old, new_, len(p))

	out, err := patch.Encode(p)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	_, err = os.Stdout.Write(out)
	return err
}
