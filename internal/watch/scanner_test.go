package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/naudhr/tup/internal/entry"
	"github.com/naudhr/tup/internal/flags"
	"github.com/naudhr/tup/internal/ir"
	"github.com/naudhr/tup/internal/store"
)

func newTestScanner(t *testing.T) (*store.Store, *Scanner) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "tup.db"), store.WithSyncOff())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	c, err := entry.New(s)
	if err != nil {
		t.Fatalf("entry.New: %v", err)
	}
	return s, New(s, c, flags.New(s))
}

func TestScan_InsertsNewFiles(t *testing.T) {
	ctx := context.Background()
	s, sc := newTestScanner(t)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.c"), []byte("int main(){}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := sc.Scan(ctx, ir.RootDT, dir); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	n, ok, err := s.LookupNode(ctx, ir.RootDT, "a.c")
	if err != nil {
		t.Fatalf("ChildByName: %v", err)
	}
	if !ok {
		t.Fatal("expected a.c to be inserted")
	}
	if n.Type != ir.TypeFile {
		t.Errorf("type = %v, want file", n.Type)
	}
}

func TestScan_RemovesDeletedFiles(t *testing.T) {
	ctx := context.Background()
	s, sc := newTestScanner(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "gone.c")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := sc.Scan(ctx, ir.RootDT, dir); err != nil {
		t.Fatalf("first Scan: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := sc.Scan(ctx, ir.RootDT, dir); err != nil {
		t.Fatalf("second Scan: %v", err)
	}

	_, ok, err := s.LookupNode(ctx, ir.RootDT, "gone.c")
	if err != nil {
		t.Fatalf("ChildByName: %v", err)
	}
	if ok {
		t.Fatal("expected gone.c to be removed after rescan")
	}
}

func TestScan_FlagsModifyOnMtimeChange(t *testing.T) {
	ctx := context.Background()
	s, sc := newTestScanner(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "a.c")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := sc.Scan(ctx, ir.RootDT, dir); err != nil {
		t.Fatalf("first Scan: %v", err)
	}
	n, _, err := s.LookupNode(ctx, ir.RootDT, "a.c")
	if err != nil {
		t.Fatalf("ChildByName: %v", err)
	}

	cmd, err := s.InsertNode(ctx, ir.RootDT, ":cc", ir.TypeCommand, ir.UnknownMtime(), 0)
	if err != nil {
		t.Fatalf("InsertNode: %v", err)
	}
	if _, err := s.CreateLink(ctx, n.ID, cmd.ID, ir.LinkSticky); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	if err := sc.Scan(ctx, ir.RootDT, dir); err != nil {
		t.Fatalf("second Scan: %v", err)
	}

	fl := flags.New(s)
	in, err := fl.Contains(ctx, ir.FlagModify, cmd.ID)
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if !in {
		t.Error("expected consumer command to be flagged modify after mtime change")
	}
}
