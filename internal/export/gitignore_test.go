package export

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/naudhr/tup/internal/ir"
)

func TestGitignore_ListsGeneratedFilesAndDirectories(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	root, _ := s.InsertNode(ctx, ir.RootDT, "build", ir.TypeDirectory, ir.UnknownMtime(), 0)
	if _, err := s.InsertNode(ctx, root.ID, "a.o", ir.TypeGeneratedFile, ir.UnknownMtime(), 0); err != nil {
		t.Fatalf("InsertNode a.o: %v", err)
	}
	if _, err := s.InsertNode(ctx, root.ID, "obj", ir.TypeGeneratedDirectory, ir.UnknownMtime(), 0); err != nil {
		t.Fatalf("InsertNode obj: %v", err)
	}
	if _, err := s.InsertNode(ctx, root.ID, "a.c", ir.TypeFile, ir.UnknownMtime(), 0); err != nil {
		t.Fatalf("InsertNode a.c: %v", err)
	}

	var buf bytes.Buffer
	if err := Gitignore(ctx, &buf, s, root.ID, true); err != nil {
		t.Fatalf("Gitignore: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "a.o\n") {
		t.Errorf("output %q missing generated file a.o", out)
	}
	if !strings.Contains(out, "obj/\n") {
		t.Errorf("output %q missing generated directory obj/", out)
	}
	if strings.Contains(out, "a.c") {
		t.Errorf("output %q should not list plain file a.c", out)
	}
}

func TestGitignore_RecursesIntoPlainSubdirectories(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	root, _ := s.InsertNode(ctx, ir.RootDT, "build", ir.TypeDirectory, ir.UnknownMtime(), 0)
	sub, _ := s.InsertNode(ctx, root.ID, "sub", ir.TypeDirectory, ir.UnknownMtime(), 0)
	if _, err := s.InsertNode(ctx, sub.ID, "nested.o", ir.TypeGeneratedFile, ir.UnknownMtime(), 0); err != nil {
		t.Fatalf("InsertNode nested.o: %v", err)
	}

	var buf bytes.Buffer
	if err := Gitignore(ctx, &buf, s, root.ID, true); err != nil {
		t.Fatalf("Gitignore: %v", err)
	}
	if !strings.Contains(buf.String(), "nested.o\n") {
		t.Errorf("output %q missing nested generated file", buf.String())
	}
}
