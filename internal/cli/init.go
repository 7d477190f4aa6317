package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/naudhr/tup/internal/store"
)

// NewInitCommand creates the "tupdb init" command: creates .tup/ and
// opens the store, running any pending schema migration, so a project
// has a usable store before the first scan.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "init",
		Short:         "initialize the .tup store",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, cmd)
		},
	}
	return cmd
}

func runInit(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	if err := os.MkdirAll(filepath.Dir(opts.DB), 0o755); err != nil {
		return WrapExitError(ExitFailure, "create store directory", err)
	}
	s, err := store.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitFailure, "open store", err)
	}
	defer s.Close()

	return formatter.Success(map[string]string{"db": opts.DB})
}
