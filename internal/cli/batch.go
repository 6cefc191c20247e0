package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
	"github.com/nyashahama/vitality-blueprint-backend/internal/ruleset"
	"github.com/nyashahama/vitality-blueprint-backend/internal/runlog"
)

const defaultArchive = "blueprint-runs.db"

// batchResult is one scored file.
type batchResult struct {
	name   string
	digest string
	err    error
}

func batchCmd(opts *options) *cobra.Command {
	var (
		concurrency int
		archive     string
	)
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Score every *.json submission in a directory and archive the runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := opts.loadRules()
			if err != nil {
				return err
			}
			files, err := filepath.Glob(filepath.Join(args[0], "*.json"))
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no *.json files in %s", args[0])
			}
			sort.Strings(files)

			store, err := runlog.Open(archive)
			if err != nil {
				return err
			}
			defer store.Close()

			results, err := scoreFiles(cmd.Context(), rs, store, files, concurrency)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, r := range results {
				if r.err != nil {
					failed++
					fmt.Fprintf(out, "FAIL\t%s\t%v\n", r.name, r.err)
					continue
				}
				fmt.Fprintf(out, "ok\t%s\t%s\n", r.name, r.digest)
			}
			fmt.Fprintf(out, "%d scored, %d failed, archived to %s\n", len(results)-failed, failed, archive)
			if failed > 0 {
				return fmt.Errorf("%d submissions failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "files scored in parallel")
	cmd.Flags().StringVar(&archive, "archive", defaultArchive, "SQLite run archive")
	return cmd
}

// scoreFiles scores files concurrently and archives each success. Per-file
// problems land in the result; only archive failures abort the batch.
func scoreFiles(ctx context.Context, rs *ruleset.Ruleset, store *runlog.Store, files []string, concurrency int) ([]batchResult, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]batchResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, path := range files {
		g.Go(func() error {
			name := filepath.Base(path)
			results[i].name = name

			raw, err := os.ReadFile(path)
			if err != nil {
				results[i].err = err
				return nil
			}
			in, err := assessment.ParseInput(raw)
			if err == nil {
				err = in.Validate()
			}
			if err != nil {
				results[i].err = err
				return nil
			}
			res, err := assessment.Run(rs, in)
			if err != nil {
				results[i].err = err
				return nil
			}

			run, err := runlog.NewRun(name, raw, res, rs)
			if err != nil {
				return err
			}
			if _, err := store.Record(gctx, run); err != nil {
				return err
			}
			results[i].digest = run.Digest
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
