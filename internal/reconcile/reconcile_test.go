package reconcile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/naudhr/tup/internal/ir"
	"github.com/naudhr/tup/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tup.db")
	s, err := store.Open(path, store.WithSyncOff())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestReconcile_SingleCommandLifecycle is spec.md scenario S1.
func TestReconcile_SingleCommandLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, err := s.InsertNode(ctx, ir.RootDT, "a.c", ir.TypeFile, ir.KnownMtime(100, 0), 0)
	if err != nil {
		t.Fatalf("insert a.c: %v", err)
	}
	cc, err := s.InsertNode(ctx, ir.RootDT, ":cc", ir.TypeCommand, ir.UnknownMtime(), 0)
	if err != nil {
		t.Fatalf("insert cc: %v", err)
	}
	out, err := s.InsertNode(ctx, ir.RootDT, "a.o", ir.TypeGeneratedFile, ir.UnknownMtime(), 0)
	if err != nil {
		t.Fatalf("insert a.o: %v", err)
	}
	if _, err := s.CreateLink(ctx, a.ID, cc.ID, ir.LinkSticky); err != nil {
		t.Fatalf("sticky input edge: %v", err)
	}
	if _, err := s.CreateLink(ctx, cc.ID, out.ID, ir.LinkSticky); err != nil {
		t.Fatalf("sticky output edge: %v", err)
	}

	r := New(s)
	res, err := r.Reconcile(ctx, cc.ID, Report{
		WriteSet:          []ir.Tupid{out.ID},
		ReadSet:           []ir.Tupid{a.ID},
		DeclaredOutputSet: []ir.Tupid{out.ID},
		DeclaredInputSet:  []ir.Tupid{a.ID},
	}, Options{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if !res.OK() {
		t.Fatalf("expected no borks, got %+v", res.Borks)
	}
	if res.Changes() == 0 {
		t.Error("expected Changes() > 0")
	}
	if len(res.NormalEdgesAdded) != 1 || res.NormalEdgesAdded[0] != a.ID {
		t.Errorf("expected normal edge a.c->cc added, got %v", res.NormalEdgesAdded)
	}
	ok, err := s.LinkExists(ctx, a.ID, cc.ID, ir.LinkNormal)
	if err != nil {
		t.Fatalf("LinkExists: %v", err)
	}
	if !ok {
		t.Error("expected normal edge a.c->cc to exist in store")
	}
	if len(res.StickyViolations) != 0 {
		t.Errorf("expected no sticky violations, got %v", res.StickyViolations)
	}
}

// TestReconcile_UndeclaredWrite is spec.md scenario S2.
func TestReconcile_UndeclaredWrite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, _ := s.InsertNode(ctx, ir.RootDT, "a.c", ir.TypeFile, ir.KnownMtime(100, 0), 0)
	cc, _ := s.InsertNode(ctx, ir.RootDT, ":cc", ir.TypeCommand, ir.UnknownMtime(), 0)
	out, _ := s.InsertNode(ctx, ir.RootDT, "a.o", ir.TypeGeneratedFile, ir.UnknownMtime(), 0)
	strayID := out.ID + 1000 // an id the sandbox reported that was never inserted as a node

	if err := s.FlagAdd(ctx, ir.FlagModify, cc.ID); err != nil {
		t.Fatalf("flag modify: %v", err)
	}

	r := New(s)
	res, err := r.Reconcile(ctx, cc.ID, Report{
		WriteSet:          []ir.Tupid{out.ID, strayID},
		ReadSet:           []ir.Tupid{a.ID},
		DeclaredOutputSet: []ir.Tupid{out.ID},
		DeclaredInputSet:  []ir.Tupid{a.ID},
	}, Options{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if res.OK() {
		t.Fatal("expected a bork for the undeclared write")
	}
	found := false
	for _, b := range res.Borks {
		if b.Kind == BorkUndeclaredOutput && b.NodeID == strayID {
			found = true
		}
	}
	if !found {
		t.Errorf("expected undeclared-output bork for %d, got %+v", strayID, res.Borks)
	}

	if _, ok, err := s.GetNode(ctx, strayID); err != nil {
		t.Fatalf("GetNode: %v", err)
	} else if ok {
		t.Error("reconciler must not have inserted a node for the undeclared write")
	}

	still, err := s.FlagContains(ctx, ir.FlagModify, cc.ID)
	if err != nil {
		t.Fatalf("FlagContains: %v", err)
	}
	if !still {
		t.Error("expected cc to remain flagged modify (failed) after a bork")
	}
}

func TestReconcile_MissingOutputFlagsTransientWithoutComplain(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cc, _ := s.InsertNode(ctx, ir.RootDT, ":cc", ir.TypeCommand, ir.UnknownMtime(), 0)
	out, _ := s.InsertNode(ctx, ir.RootDT, "a.o", ir.TypeGeneratedFile, ir.UnknownMtime(), 0)

	r := New(s)
	res, err := r.Reconcile(ctx, cc.ID, Report{
		DeclaredOutputSet: []ir.Tupid{out.ID},
	}, Options{ComplainMissing: false})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !res.OK() {
		t.Fatalf("expected no borks without ComplainMissing, got %+v", res.Borks)
	}
	has, err := s.FlagContains(ctx, ir.FlagTransient, out.ID)
	if err != nil {
		t.Fatalf("FlagContains: %v", err)
	}
	if !has {
		t.Error("expected missing output to be flagged transient")
	}
}

func TestReconcile_MissingOutputBorksWithComplain(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cc, _ := s.InsertNode(ctx, ir.RootDT, ":cc", ir.TypeCommand, ir.UnknownMtime(), 0)
	out, _ := s.InsertNode(ctx, ir.RootDT, "a.o", ir.TypeGeneratedFile, ir.UnknownMtime(), 0)

	r := New(s)
	res, err := r.Reconcile(ctx, cc.ID, Report{
		DeclaredOutputSet: []ir.Tupid{out.ID},
	}, Options{ComplainMissing: true})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.OK() {
		t.Fatal("expected a missing-output bork with ComplainMissing")
	}
}

func TestReconcile_ImportantLinkRemoval(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	producer, _ := s.InsertNode(ctx, ir.RootDT, ":gen", ir.TypeCommand, ir.UnknownMtime(), 0)
	shared, _ := s.InsertNode(ctx, ir.RootDT, "shared.h", ir.TypeGeneratedFile, ir.UnknownMtime(), 0)
	if _, err := s.CreateLink(ctx, producer.ID, shared.ID, ir.LinkNormal); err != nil {
		t.Fatalf("producer link: %v", err)
	}

	cc, _ := s.InsertNode(ctx, ir.RootDT, ":cc", ir.TypeCommand, ir.UnknownMtime(), 0)
	if _, err := s.CreateLink(ctx, shared.ID, cc.ID, ir.LinkNormal); err != nil {
		t.Fatalf("consumer link: %v", err)
	}

	r := New(s)
	res, err := r.Reconcile(ctx, cc.ID, Report{
		ReadSet: nil, // shared.h no longer read
	}, Options{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !res.ImportantLinkRemoved {
		t.Error("expected ImportantLinkRemoved when a generated-file input produced by another command drops out")
	}
}

func TestReconcile_GroupMembershipReplaced(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cc, _ := s.InsertNode(ctx, ir.RootDT, ":cc", ir.TypeCommand, ir.UnknownMtime(), 0)
	out, _ := s.InsertNode(ctx, ir.RootDT, "a.o", ir.TypeGeneratedFile, ir.UnknownMtime(), 0)
	group, _ := s.InsertNode(ctx, ir.RootDT, "<all>", ir.TypeGroup, ir.UnknownMtime(), 0)

	r := New(s)
	_, err := r.Reconcile(ctx, cc.ID, Report{
		WriteSet:          []ir.Tupid{out.ID},
		DeclaredOutputSet: []ir.Tupid{out.ID},
		GroupMembership:   map[ir.Tupid][]ir.Tupid{out.ID: {group.ID}},
	}, Options{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	ok, err := s.LinkExists(ctx, cc.ID, group.ID, ir.LinkGroup)
	if err != nil {
		t.Fatalf("LinkExists: %v", err)
	}
	if !ok {
		t.Error("expected cc->group edge after reconciliation")
	}
}
