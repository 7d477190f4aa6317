package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/naudhr/tup/internal/ir"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tup.db")
	s, err := Open(path, WithSyncOff())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tup.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tup.db")
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	root, ok, err := s.GetNode(ctx, ir.RootDT)
	if err != nil || !ok {
		t.Fatalf("expected root sentinel to survive reopen, got ok=%v err=%v", ok, err)
	}
	if root.Type != ir.TypeDirectory {
		t.Errorf("root type = %v, want directory", root.Type)
	}
}

func TestEnsureSentinels(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	for _, want := range []struct {
		id   ir.Tupid
		name string
	}{
		{ir.RootDT, ""},
		{ir.EnvDT, "@env"},
		{ir.ExclusionDT, "@exclusion"},
	} {
		n, ok, err := s.GetNode(ctx, want.id)
		if err != nil || !ok {
			t.Fatalf("sentinel %d missing: ok=%v err=%v", want.id, ok, err)
		}
		if n.Name != want.name {
			t.Errorf("sentinel %d name = %q, want %q", want.id, n.Name, want.name)
		}
	}
}

func TestBeginCommitRollback(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if err := s.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := s.Begin(ctx); err != ErrTxAlreadyOpen {
		t.Fatalf("second Begin: got %v, want ErrTxAlreadyOpen", err)
	}
	if _, err := s.InsertNode(ctx, ir.RootDT, "a.c", ir.TypeFile, ir.UnknownMtime(), 0); err != nil {
		t.Fatalf("InsertNode: %v", err)
	}
	if err := s.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if _, ok, err := s.LookupNode(ctx, ir.RootDT, "a.c"); err != nil || ok {
		t.Fatalf("expected rollback to discard insert, ok=%v err=%v", ok, err)
	}

	if err := s.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := s.InsertNode(ctx, ir.RootDT, "b.c", ir.TypeFile, ir.UnknownMtime(), 0); err != nil {
		t.Fatalf("InsertNode: %v", err)
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, ok, err := s.LookupNode(ctx, ir.RootDT, "b.c"); err != nil || !ok {
		t.Fatalf("expected commit to persist insert, ok=%v err=%v", ok, err)
	}
}

func TestConfigGetSetInt(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if _, ok, err := s.ConfigGetInt(ctx, "jobs"); err != nil || ok {
		t.Fatalf("expected absent key, ok=%v err=%v", ok, err)
	}
	if err := s.ConfigSetInt(ctx, "jobs", 8); err != nil {
		t.Fatalf("ConfigSetInt: %v", err)
	}
	n, ok, err := s.ConfigGetInt(ctx, "jobs")
	if err != nil || !ok || n != 8 {
		t.Fatalf("ConfigGetInt = (%d, %v, %v), want (8, true, nil)", n, ok, err)
	}
}
