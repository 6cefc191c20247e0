package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nyashahama/vitality-blueprint-backend/internal/runlog"
)

// ErrDrift is returned by regress --fail-on-drift when any run changed.
var ErrDrift = errors.New("archived runs drifted under the current rules")

func regressCmd(opts *options) *cobra.Command {
	var (
		archive     string
		failOnDrift bool
	)
	cmd := &cobra.Command{
		Use:   "regress",
		Short: "Re-score archived runs with the current rules and report drift",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := opts.loadRules()
			if err != nil {
				return err
			}
			store, err := runlog.Open(archive)
			if err != nil {
				return err
			}
			defer store.Close()

			drifts, total, err := runlog.Regress(cmd.Context(), store, rs)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, d := range drifts {
				if d.Err != nil {
					fmt.Fprintf(out, "ERROR\t%s\t%s\t%v\n", d.Run.ID, d.Run.Name, d.Err)
					continue
				}
				fmt.Fprintf(out, "DRIFT\t%s\t%s\t%s\n", d.Run.ID, d.Run.Name, describeDrift(d))
			}
			fmt.Fprintf(out, "%d runs, %d drifted (rules %s, %s)\n", total, len(drifts), rs.Version, rs.Fingerprint())

			if failOnDrift && len(drifts) > 0 {
				return ErrDrift
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&archive, "archive", defaultArchive, "SQLite run archive")
	cmd.Flags().BoolVar(&failOnDrift, "fail-on-drift", false, "exit non-zero when any run drifted")
	return cmd
}

func describeDrift(d runlog.Drift) string {
	names := make([]string, 0, len(d.Scores))
	for name := range d.Scores {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+len(d.Flags))
	for _, name := range names {
		v := d.Scores[name]
		parts = append(parts, fmt.Sprintf("%s %d->%d", name, v[0], v[1]))
	}
	for _, f := range d.Flags {
		parts = append(parts, "flag "+f)
	}
	if len(parts) == 0 {
		return "personalization changed"
	}
	return strings.Join(parts, ", ")
}
