package export

import (
	"context"
	"fmt"
	"path"

	"github.com/naudhr/tup/internal/ir"
	"github.com/naudhr/tup/internal/store"
)

// CommandRecord is one entry of the compile-commands JSON array (spec.md
// 6.6), shaped to match the well-known clang compile_commands.json
// schema: directory, command, file.
type CommandRecord struct {
	Directory string `json:"directory"`
	Command   string `json:"command"`
	File      string `json:"file"`
}

// directoryPath joins the names from root down to id itself. CompileDB
// passes a command's parent directory, giving the working directory that
// command would run in.
func directoryPath(ctx context.Context, s *store.Store, id ir.Tupid) (string, error) {
	var parts []string
	cur := id
	for cur != ir.RootDT && cur != 0 {
		n, ok, err := s.GetNode(ctx, cur)
		if err != nil {
			return "", fmt.Errorf("directory path of %d: %w", id, err)
		}
		if !ok {
			break
		}
		parts = append([]string{n.Name}, parts...)
		cur = n.ParentID
	}
	return path.Join(parts...), nil
}

// CompileDB builds one CommandRecord per command id in cmds, using the
// store to resolve each command's working directory, display text, and
// primary input (the lowest-id sticky input, matching spec.md's
// deterministic ascending-id ordering).
func CompileDB(ctx context.Context, s *store.Store, cmds []ir.Tupid) ([]CommandRecord, error) {
	records := make([]CommandRecord, 0, len(cmds))
	for _, id := range cmds {
		n, ok, err := s.GetNode(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("compiledb entry %d: %w", id, err)
		}
		if !ok || n.Type != ir.TypeCommand {
			continue
		}

		dir, err := directoryPath(ctx, s, n.ParentID)
		if err != nil {
			return nil, err
		}

		var file string
		inputs, err := s.StickyInputsOf(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("compiledb entry %d: %w", id, err)
		}
		if len(inputs) > 0 {
			in, ok, err := s.GetNode(ctx, inputs[0])
			if err != nil {
				return nil, fmt.Errorf("compiledb entry %d: %w", id, err)
			}
			if ok {
				file = in.Name
			}
		}

		records = append(records, CommandRecord{
			Directory: dir,
			Command:   n.Display,
			File:      file,
		})
	}
	return records, nil
}
