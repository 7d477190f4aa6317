package cli

import (
	"github.com/spf13/cobra"

	"github.com/naudhr/tup/internal/entry"
	"github.com/naudhr/tup/internal/flags"
	"github.com/naudhr/tup/internal/ir"
	"github.com/naudhr/tup/internal/store"
	"github.com/naudhr/tup/internal/watch"
)

// NewScanCommand creates "tupdb scan <path>": a one-shot walk of path,
// reconciling it against the root directory node per spec.md 6.5.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "scan <path>",
		Short:         "scan a directory subtree into the store",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runScan(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	s, err := store.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitFailure, "open store", err)
	}
	defer s.Close()

	cache, err := entry.New(s)
	if err != nil {
		return WrapExitError(ExitFailure, "init entry cache", err)
	}
	sc := watch.New(s, cache, flags.New(s))

	if err := sc.Scan(cmd.Context(), ir.RootDT, path); err != nil {
		return WrapExitError(ExitFailure, "scan", err)
	}
	return formatter.Success(map[string]string{"scanned": path})
}
