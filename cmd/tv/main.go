// Command tv is the CLI entry point for the translation-validation
// engine (§1.3): it reads one or more Name:/Pre:/src/=>/tgt records
// from a file, verifies each pair, and reports refinement diagnostics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/borzacchiello/alivetv/internal/tvlog"
	"github.com/borzacchiello/alivetv/parser"
	"github.com/borzacchiello/alivetv/smt"
	"github.com/borzacchiello/alivetv/tv"
)

type cliOptions struct {
	fatalErrors bool
	printHeader bool
	eachVar     bool
	watch       bool
}

func main() {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "tv FILE",
		Short: "verify that each Name:/src/=>/tgt transform in FILE refines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], opts)
		},
	}
	root.Flags().BoolVar(&opts.fatalErrors, "fatal-errors", false, "exit non-zero on the first refinement failure")
	root.Flags().BoolVar(&opts.printHeader, "print-header", false, "print each transform's header before its result")
	root.Flags().BoolVar(&opts.eachVar, "each-var", false, "additionally run the per-value refinement check")
	root.Flags().BoolVar(&opts.watch, "watch", false, "re-verify whenever FILE changes")

	if err := root.Execute(); err != nil {
		tvlog.Error.Print(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path string, opts *cliOptions) error {
	if !opts.watch {
		failed, err := verifyOnce(ctx, path, opts)
		if err != nil {
			return err
		}
		if failed && opts.fatalErrors {
			os.Exit(1)
		}
		return nil
	}
	return watchAndVerify(ctx, path, opts)
}

// verifyOnce parses path and verifies every transform in it, returning
// whether any transform failed refinement.
func verifyOnce(ctx context.Context, path string, opts *cliOptions) (bool, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return false, errors.Wrapf(err, "tv: reading %s", path)
	}

	b := smt.NewBuilder()
	transforms, err := parser.Parse(string(src), b)
	if err != nil {
		return false, errors.Wrap(err, "tv: parsing")
	}

	anyFailed := false

	// Transforms in one file share b, so they are verified one at a
	// time: b's hash-cons caches are not safe for concurrent use, and
	// driving them in parallel would need a separate Builder per
	// transform.
	for _, t := range transforms {
		solver := smt.NewSolver(b)
		errs, err := tv.Verify(ctx, b, solver, t, tv.Options{CheckEachVar: opts.eachVar})
		solver.Close()
		if err != nil {
			return anyFailed, errors.Wrapf(err, "tv: verifying %s", t.Header())
		}

		if opts.printHeader {
			fmt.Println(t.Header())
		}
		if !errs.IsEmpty() {
			fmt.Println(errs.String())
		}
		if errs.HasFailures() {
			anyFailed = true
			if opts.fatalErrors {
				return anyFailed, nil
			}
		}
	}
	return anyFailed, nil
}

// watchAndVerify re-runs verifyOnce every time the watcher on path
// reports a write or create event, until ctx is cancelled or the
// process receives an interrupt.
func watchAndVerify(ctx context.Context, path string, opts *cliOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "tv: starting watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return errors.Wrapf(err, "tv: watching %s", path)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if _, err := verifyOnce(ctx, path, opts); err != nil {
		tvlog.Error.Print(err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			tvlog.Info.Printf("%s changed, re-verifying", path)
			if _, err := verifyOnce(ctx, path, opts); err != nil {
				tvlog.Error.Print(err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			tvlog.Error.Print(err)
		}
	}
}
