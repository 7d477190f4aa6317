package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/naudhr/tup/internal/export"
	"github.com/naudhr/tup/internal/ir"
	"github.com/naudhr/tup/internal/store"
)

// NewExportCommand creates the "tupdb export" command group: compiledb
// and dot, the two named exports of spec.md 6.6.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "export the graph as compile_commands.json or Graphviz dot",
	}
	cmd.AddCommand(newExportCompileDBCommand(rootOpts))
	cmd.AddCommand(newExportDotCommand(rootOpts))
	return cmd
}

func newExportCompileDBCommand(rootOpts *RootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:           "compiledb",
		Short:         "emit compile_commands.json for every command node",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExportCompileDB(rootOpts, out, cmd)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file path (default stdout)")
	return cmd
}

func runExportCompileDB(opts *RootOptions, out string, cmd *cobra.Command) error {
	s, err := store.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitFailure, "open store", err)
	}
	defer s.Close()

	commands, err := s.NodesByType(cmd.Context(), ir.TypeCommand)
	if err != nil {
		return WrapExitError(ExitFailure, "enumerate commands", err)
	}
	cmdIDs := make([]ir.Tupid, len(commands))
	for i, n := range commands {
		cmdIDs[i] = n.ID
	}

	records, err := export.CompileDB(cmd.Context(), s, cmdIDs)
	if err != nil {
		return WrapExitError(ExitFailure, "build compiledb", err)
	}

	w := cmd.OutOrStdout()
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return WrapExitError(ExitFailure, "open output file", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return WrapExitError(ExitFailure, "encode compiledb", err)
	}
	return nil
}

func newExportDotCommand(rootOpts *RootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:           "dot",
		Short:         "emit a Graphviz digraph of the node/link graph",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExportDot(rootOpts, out, cmd)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file path (default stdout)")
	return cmd
}

func runExportDot(opts *RootOptions, out string, cmd *cobra.Command) error {
	s, err := store.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitFailure, "open store", err)
	}
	defer s.Close()

	w := cmd.OutOrStdout()
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return WrapExitError(ExitFailure, "open output file", err)
		}
		defer f.Close()
		w = f
	}

	if err := export.DotFromStore(cmd.Context(), w, s, []ir.Tupid{ir.RootDT}); err != nil {
		return WrapExitError(ExitFailure, "export dot", err)
	}
	return nil
}
