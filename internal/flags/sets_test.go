package flags

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/naudhr/tup/internal/ir"
	"github.com/naudhr/tup/internal/store"
)

func newTestSets(t *testing.T) (*store.Store, *Sets) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tup.db")
	s, err := store.Open(path, store.WithSyncOff())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, New(s)
}

func TestMaybeAdd_RefusesGhostIntoModify(t *testing.T) {
	ctx := context.Background()
	s, fl := newTestSets(t)

	ghost, err := s.InsertNode(ctx, ir.EnvDT, "CFLAGS", ir.TypeGhost, ir.UnknownMtime(), 0)
	if err != nil {
		t.Fatalf("InsertNode: %v", err)
	}
	if err := fl.MaybeAdd(ctx, ir.FlagModify, ghost.ID, ir.TypeGhost); err != nil {
		t.Fatalf("MaybeAdd: %v", err)
	}
	if in, err := fl.Contains(ctx, ir.FlagModify, ghost.ID); err != nil || in {
		t.Fatalf("ghost should not enter modify, in=%v err=%v", in, err)
	}
}

func TestMaybeAdd_AllowsFileIntoModify(t *testing.T) {
	ctx := context.Background()
	s, fl := newTestSets(t)

	n, err := s.InsertNode(ctx, ir.RootDT, "a.c", ir.TypeFile, ir.UnknownMtime(), 0)
	if err != nil {
		t.Fatalf("InsertNode: %v", err)
	}
	if err := fl.MaybeAdd(ctx, ir.FlagModify, n.ID, ir.TypeFile); err != nil {
		t.Fatalf("MaybeAdd: %v", err)
	}
	if in, err := fl.Contains(ctx, ir.FlagModify, n.ID); err != nil || !in {
		t.Fatalf("file should enter modify, in=%v err=%v", in, err)
	}
}

func TestFlagModifyConsumersOf(t *testing.T) {
	ctx := context.Background()
	s, fl := newTestSets(t)

	input, _ := s.InsertNode(ctx, ir.RootDT, "a.h", ir.TypeFile, ir.UnknownMtime(), 0)
	cmd, _ := s.InsertNode(ctx, ir.RootDT, ":compile", ir.TypeCommand, ir.UnknownMtime(), 0)
	if _, err := s.CreateLink(ctx, input.ID, cmd.ID, ir.LinkSticky); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	if err := fl.FlagModifyConsumersOf(ctx, input.ID); err != nil {
		t.Fatalf("FlagModifyConsumersOf: %v", err)
	}
	if in, err := fl.Contains(ctx, ir.FlagModify, cmd.ID); err != nil || !in {
		t.Fatalf("consumer command should be in modify, in=%v err=%v", in, err)
	}
}

func TestFlagModifyProducersOf(t *testing.T) {
	ctx := context.Background()
	s, fl := newTestSets(t)

	cmd, _ := s.InsertNode(ctx, ir.RootDT, ":compile", ir.TypeCommand, ir.UnknownMtime(), 0)
	out, _ := s.InsertNode(ctx, ir.RootDT, "a.o", ir.TypeGeneratedFile, ir.UnknownMtime(), 0)
	if _, err := s.CreateLink(ctx, cmd.ID, out.ID, ir.LinkNormal); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	if err := fl.FlagModifyProducersOf(ctx, out.ID); err != nil {
		t.Fatalf("FlagModifyProducersOf: %v", err)
	}
	if in, err := fl.Contains(ctx, ir.FlagModify, cmd.ID); err != nil || !in {
		t.Fatalf("producer command should be in modify, in=%v err=%v", in, err)
	}
}

func TestPropagateCreateToDescendants(t *testing.T) {
	ctx := context.Background()
	s, fl := newTestSets(t)

	top, _ := s.InsertNode(ctx, ir.RootDT, "src", ir.TypeDirectory, ir.UnknownMtime(), 0)
	mid, _ := s.InsertNode(ctx, top.ID, "lib", ir.TypeDirectory, ir.UnknownMtime(), 0)
	leaf, _ := s.InsertNode(ctx, mid.ID, "inner", ir.TypeGeneratedDirectory, ir.UnknownMtime(), 0)

	if err := fl.PropagateCreateToDescendants(ctx, top.ID); err != nil {
		t.Fatalf("PropagateCreateToDescendants: %v", err)
	}
	for _, id := range []ir.Tupid{mid.ID, leaf.ID} {
		if in, err := fl.Contains(ctx, ir.FlagCreate, id); err != nil || !in {
			t.Errorf("descendant %d should be in create, in=%v err=%v", id, in, err)
		}
	}
}

type fakeSink struct {
	marked []ir.Tupid
}

func (f *fakeSink) MarkCandidate(id ir.Tupid) { f.marked = append(f.marked, id) }

func TestRemove_NotifiesCandidateSink(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tup.db")
	s, err := store.Open(path, store.WithSyncOff())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	sink := &fakeSink{}
	fl := New(s, WithCandidateSink(sink))

	n, _ := s.InsertNode(ctx, ir.EnvDT, "CFLAGS", ir.TypeGhost, ir.UnknownMtime(), 0)
	if err := s.FlagAdd(ctx, ir.FlagTransient, n.ID); err != nil {
		t.Fatalf("FlagAdd: %v", err)
	}
	if err := fl.Remove(ctx, ir.FlagTransient, n.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(sink.marked) != 1 || sink.marked[0] != n.ID {
		t.Fatalf("marked = %v, want [%d]", sink.marked, n.ID)
	}
}

func TestCheckFlags(t *testing.T) {
	ctx := context.Background()
	s, fl := newTestSets(t)

	n, _ := s.InsertNode(ctx, ir.RootDT, "a.c", ir.TypeFile, ir.UnknownMtime(), 0)
	if err := fl.Add(ctx, ir.FlagCreate, n.ID); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := fl.CheckFlags(ctx, n.ID)
	if err != nil {
		t.Fatalf("CheckFlags: %v", err)
	}
	if !got[ir.FlagCreate] {
		t.Error("expected FlagCreate true")
	}
	if got[ir.FlagModify] {
		t.Error("expected FlagModify false")
	}
}

func TestSeeds_UnionsCreateAndModifyWithoutDuplicates(t *testing.T) {
	ctx := context.Background()
	s, fl := newTestSets(t)

	a, _ := s.InsertNode(ctx, ir.RootDT, "a.c", ir.TypeFile, ir.UnknownMtime(), 0)
	b, _ := s.InsertNode(ctx, ir.RootDT, "b.c", ir.TypeFile, ir.UnknownMtime(), 0)
	c, _ := s.InsertNode(ctx, ir.RootDT, "c.c", ir.TypeFile, ir.UnknownMtime(), 0)

	if err := fl.Add(ctx, ir.FlagCreate, a.ID); err != nil {
		t.Fatalf("Add create: %v", err)
	}
	if err := fl.Add(ctx, ir.FlagModify, b.ID); err != nil {
		t.Fatalf("Add modify: %v", err)
	}
	// c is in both sets; Seeds must not report it twice.
	if err := fl.Add(ctx, ir.FlagCreate, c.ID); err != nil {
		t.Fatalf("Add create c: %v", err)
	}
	if err := fl.Add(ctx, ir.FlagModify, c.ID); err != nil {
		t.Fatalf("Add modify c: %v", err)
	}

	seeds, err := fl.Seeds(ctx)
	if err != nil {
		t.Fatalf("Seeds: %v", err)
	}
	want := []ir.Tupid{a.ID, b.ID, c.ID}
	sortTupids(want)
	if len(seeds) != len(want) {
		t.Fatalf("Seeds = %v, want %v", seeds, want)
	}
	for i := range want {
		if seeds[i] != want[i] {
			t.Fatalf("Seeds = %v, want %v", seeds, want)
		}
	}
}

func sortTupids(ids []ir.Tupid) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}
