// cmd_apply.go -- `fstreectl apply` subcommand

package main

import (
	"fmt"
	"os"

	"github.com/opencoff/fstree/patch"
)

func runApply(cfg *globalConfig, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("Usage: %s apply OLD NEW PATCHFILE", Z)
	}
	input, output, patchfile := args[0], args[1], args[2]

	log := newLogger(cfg, "apply")
	defer log.Close()

	raw, err := os.ReadFile(patchfile)
	if err != nil {
		return fmt.Errorf("%s: %w", patchfile, err)
	}

	p, err := patch.Decode(raw)
	if err != nil {
		return fmt.Errorf("%s: decode: %w", patchfile, err)
	}

	log.Info("applying %d operations: %s -> %s", len(p), input, output)

	delegate := &patch.DefaultDelegate{UseSymlinks: true}
	if err := patch.ApplyPatch(input, output, p, delegate); err != nil {
		return fmt.Errorf("apply: %w", err)
	}

	log.Info("done")
	return nil
}
