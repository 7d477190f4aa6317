package store

import (
	"context"
	"testing"

	"github.com/naudhr/tup/internal/ir"
)

func TestCreateLink_IdempotentInsert(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	a, _ := s.InsertNode(ctx, ir.RootDT, "a.c", ir.TypeFile, ir.UnknownMtime(), 0)
	b, _ := s.InsertNode(ctx, ir.RootDT, "b.o", ir.TypeGeneratedFile, ir.UnknownMtime(), 0)

	inserted, err := s.CreateLink(ctx, a.ID, b.ID, ir.LinkNormal)
	if err != nil || !inserted {
		t.Fatalf("first CreateLink: inserted=%v err=%v", inserted, err)
	}
	inserted, err = s.CreateLink(ctx, a.ID, b.ID, ir.LinkNormal)
	if err != nil || inserted {
		t.Fatalf("second CreateLink: inserted=%v err=%v, want false", inserted, err)
	}
}

func TestIncoming_SinglesOutOneProducer(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	cmd, _ := s.InsertNode(ctx, ir.RootDT, ":compile", ir.TypeCommand, ir.UnknownMtime(), 0)
	out, _ := s.InsertNode(ctx, ir.RootDT, "out.o", ir.TypeGeneratedFile, ir.UnknownMtime(), 0)

	if _, ok, err := s.Incoming(ctx, out.ID); err != nil || ok {
		t.Fatalf("expected no producer yet, ok=%v err=%v", ok, err)
	}
	if _, err := s.CreateLink(ctx, cmd.ID, out.ID, ir.LinkNormal); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	producer, ok, err := s.Incoming(ctx, out.ID)
	if err != nil || !ok || producer != cmd.ID {
		t.Fatalf("Incoming = (%d, %v, %v), want (%d, true, nil)", producer, ok, err, cmd.ID)
	}
}

func TestByGroup_ListsAllProducers(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	group, _ := s.InsertNode(ctx, ir.RootDT, "<all>", ir.TypeGroup, ir.UnknownMtime(), 0)
	c1, _ := s.InsertNode(ctx, ir.RootDT, ":c1", ir.TypeCommand, ir.UnknownMtime(), 0)
	c2, _ := s.InsertNode(ctx, ir.RootDT, ":c2", ir.TypeCommand, ir.UnknownMtime(), 0)

	if _, err := s.CreateLink(ctx, c1.ID, group.ID, ir.LinkGroup); err != nil {
		t.Fatalf("link c1->group: %v", err)
	}
	if _, err := s.CreateLink(ctx, c2.ID, group.ID, ir.LinkGroup); err != nil {
		t.Fatalf("link c2->group: %v", err)
	}

	var producers []ir.Tupid
	err := s.ByGroup(ctx, group.ID, func(id ir.Tupid) error {
		producers = append(producers, id)
		return nil
	})
	if err != nil {
		t.Fatalf("ByGroup: %v", err)
	}
	if len(producers) != 2 || producers[0] != c1.ID || producers[1] != c2.ID {
		t.Fatalf("ByGroup producers = %v, want [%d %d]", producers, c1.ID, c2.ID)
	}
}

func TestDeleteAllIncident(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	a, _ := s.InsertNode(ctx, ir.RootDT, "a.c", ir.TypeFile, ir.UnknownMtime(), 0)
	b, _ := s.InsertNode(ctx, ir.RootDT, "b.c", ir.TypeFile, ir.UnknownMtime(), 0)
	c, _ := s.InsertNode(ctx, ir.RootDT, "c.c", ir.TypeFile, ir.UnknownMtime(), 0)

	if _, err := s.CreateLink(ctx, a.ID, b.ID, ir.LinkNormal); err != nil {
		t.Fatalf("link a->b: %v", err)
	}
	if _, err := s.CreateLink(ctx, c.ID, a.ID, ir.LinkSticky); err != nil {
		t.Fatalf("link c->a: %v", err)
	}

	if err := s.DeleteAllIncident(ctx, a.ID); err != nil {
		t.Fatalf("DeleteAllIncident: %v", err)
	}
	if exists, _ := s.LinkExists(ctx, a.ID, b.ID, ir.LinkNormal); exists {
		t.Error("outgoing edge from a should be gone")
	}
	if exists, _ := s.LinkExists(ctx, c.ID, a.ID, ir.LinkSticky); exists {
		t.Error("incoming edge to a should be gone")
	}
}
