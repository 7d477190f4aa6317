package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/naudhr/tup/internal/ir"
)

func TestDot_ShapesAndStylesByKind(t *testing.T) {
	nodes := []ir.Node{
		{ID: 10, Name: "a.c", Type: ir.TypeFile},
		{ID: 11, Name: ":cc", Type: ir.TypeCommand},
		{ID: 12, Name: "a.o", Type: ir.TypeGeneratedFile},
		{ID: 13, Name: "CFLAGS", Type: ir.TypeGhost},
	}
	edges := []ir.Link{
		{From: 10, To: 11, Style: ir.LinkSticky},
		{From: 11, To: 12, Style: ir.LinkNormal},
		{From: 13, To: 11, Style: ir.LinkSticky},
	}

	var buf bytes.Buffer
	if err := Dot(&buf, nodes, edges); err != nil {
		t.Fatalf("Dot: %v", err)
	}

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"))
	g.Assert(t, "simple_graph", buf.Bytes())
}

func TestDotFromStore_DeterministicOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, _ := s.InsertNode(ctx, ir.RootDT, "a.c", ir.TypeFile, ir.UnknownMtime(), 0)
	cmd, _ := s.InsertNode(ctx, ir.RootDT, ":cc", ir.TypeCommand, ir.UnknownMtime(), 0)
	if _, err := s.CreateLink(ctx, a.ID, cmd.ID, ir.LinkSticky); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	var buf1, buf2 bytes.Buffer
	if err := DotFromStore(ctx, &buf1, s, []ir.Tupid{ir.RootDT}); err != nil {
		t.Fatalf("DotFromStore (1): %v", err)
	}
	if err := DotFromStore(ctx, &buf2, s, []ir.Tupid{ir.RootDT}); err != nil {
		t.Fatalf("DotFromStore (2): %v", err)
	}
	if buf1.String() != buf2.String() {
		t.Fatalf("DotFromStore output is not deterministic across repeated calls")
	}
}
