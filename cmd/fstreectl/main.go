// main.go -- fstreectl command line entry point

package main

import (
	"fmt"
	"os"
	"path"
	"runtime"

	flag "github.com/opencoff/pflag"
	"github.com/opencoff/go-logger"
)

var Z = path.Base(os.Args[0])

// globalConfig holds flags shared by every subcommand.
type globalConfig struct {
	logfile string
	verbose bool
	ncpu    int
}

type subcommand struct {
	name  string
	usage string
	run   func(*globalConfig, []string) error
}

var subcommands = []subcommand{
	{"diff", "diff OLD NEW", runDiff},
	{"apply", "apply OLD NEW PATCHFILE", runApply},
	{"merge", "merge OUT ROOT [ROOT...]", runMerge},
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	name := os.Args[1]
	for _, sc := range subcommands {
		if sc.name != name {
			continue
		}

		fs := flag.NewFlagSet(Z+" "+name, flag.ExitOnError)

		var cfg globalConfig
		fs.StringVarP(&cfg.logfile, "log", "l", "STDERR", "Write log output to `FILE`")
		fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "Show verbose/debug log output")
		fs.IntVarP(&cfg.ncpu, "concurrency", "c", runtime.NumCPU(), "Use upto `N` goroutines for tree walks")
		fs.SetOutput(os.Stdout)

		if err := fs.Parse(os.Args[2:]); err != nil {
			Die("%s", err)
		}

		if err := sc.run(&cfg, fs.Args()); err != nil {
			Die("%s: %s", name, err)
		}
		return
	}

	usage()
}

func newLogger(cfg *globalConfig, prefix string) logger.Logger {
	lvl := logger.LOG_INFO
	if cfg.verbose {
		lvl = logger.LOG_DEBUG
	}

	log, err := logger.NewLogger(cfg.logfile, lvl, prefix, logger.Ldate|logger.Ltime|logger.Lfileloc)
	if err != nil {
		Die("logger: %s", err)
	}
	return log
}

func usage() {
	fmt.Printf("%s - manage and replay directory-tree changesets\n\n", Z)
	fmt.Printf("Usage: %s command [options] args...\n\n", Z)
	fmt.Printf("Commands:\n")
	for _, sc := range subcommands {
		fmt.Printf("  %-8s %s\n", sc.name, sc.usage)
	}
	os.Exit(1)
}

// Die prints a formatted error message to stderr and exits with status 1,
// matching the convention used throughout this tree's test tooling.
func Die(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", Z, fmt.Sprintf(format, args...))
	os.Exit(1)
}
