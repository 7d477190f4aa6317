package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/naudhr/tup/internal/flags"
	"github.com/naudhr/tup/internal/ir"
	"github.com/naudhr/tup/internal/store"
)

func parseFlagKind(name string) (ir.FlagKind, error) {
	for _, k := range ir.AllFlagKinds {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown flag kind %q", name)
}

// NewFlagsCommand creates "tupdb flags <kind> <id>": reports whether a
// node is a member of one of the five flag sets (component C).
func NewFlagsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "flags <kind> <id>",
		Short:         "check flag-set membership for a node",
		Long:          "kind is one of create, modify, config, variant, transient.",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlags(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runFlags(opts *RootOptions, kindArg, idArg string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	kind, err := parseFlagKind(kindArg)
	if err != nil {
		return WrapExitError(ExitCommandError, "parse flag kind", err)
	}
	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "parse node id", err)
	}

	s, err := store.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitFailure, "open store", err)
	}
	defer s.Close()

	fl := flags.New(s)
	in, err := fl.Contains(cmd.Context(), kind, ir.Tupid(id))
	if err != nil {
		return WrapExitError(ExitFailure, "check flag membership", err)
	}
	return formatter.Success(map[string]any{"id": id, "kind": kind.String(), "flagged": in})
}
