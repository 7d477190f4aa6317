package vardb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/naudhr/tup/internal/ir"
	"github.com/naudhr/tup/internal/store"
)

func newTestDB(t *testing.T) (*store.Store, *DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tup.db")
	s, err := store.Open(path, store.WithSyncOff())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, New(s)
}

// TestGhostOnMissThenPromote exercises spec.md scenario S3.
func TestGhostOnMissThenPromote(t *testing.T) {
	ctx := context.Background()
	s, db := newTestDB(t)

	cmd, err := s.InsertNode(ctx, ir.RootDT, ":cc", ir.TypeCommand, ir.UnknownMtime(), 0)
	if err != nil {
		t.Fatalf("insert cmd: %v", err)
	}

	res, err := db.Lookup(ctx, GlobalScope, "CFLAGS", cmd.ID)
	if err != nil {
		t.Fatalf("Lookup miss: %v", err)
	}
	if !res.IsGhost {
		t.Fatalf("expected ghost result, got %+v", res)
	}
	ghostID := res.NodeID

	n, ok, err := s.GetNode(ctx, ghostID)
	if err != nil || !ok || n.Type != ir.TypeGhost {
		t.Fatalf("backing node = %+v, ok=%v err=%v, want type ghost", n, ok, err)
	}
	if exists, _ := s.LinkExists(ctx, ghostID, cmd.ID, ir.LinkSticky); !exists {
		t.Fatal("expected sticky dependency edge from ghost to requester")
	}

	promoted, err := db.Set(ctx, GlobalScope, "CFLAGS", "-O2")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if promoted != ghostID {
		t.Fatalf("Set promoted id = %d, want same id %d", promoted, ghostID)
	}

	n, ok, err = s.GetNode(ctx, ghostID)
	if err != nil || !ok || n.Type != ir.TypeVariable {
		t.Fatalf("promoted node = %+v, ok=%v err=%v, want type variable", n, ok, err)
	}
	if in, err := s.FlagContains(ctx, ir.FlagModify, cmd.ID); err != nil || !in {
		t.Fatalf("cmd should be flagged modify after promotion, in=%v err=%v", in, err)
	}
}

func TestLookup_VariantThenGlobalFallback(t *testing.T) {
	ctx := context.Background()
	_, db := newTestDB(t)

	if _, err := db.Set(ctx, GlobalScope, "CC", "gcc"); err != nil {
		t.Fatalf("Set global: %v", err)
	}

	res, err := db.Lookup(ctx, "release", "CC", 0)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if res.IsGhost || res.Value != "gcc" {
		t.Fatalf("Lookup fallback = %+v, want global gcc value", res)
	}

	if _, err := db.Set(ctx, "release", "CC", "clang"); err != nil {
		t.Fatalf("Set variant: %v", err)
	}
	res, err = db.Lookup(ctx, "release", "CC", 0)
	if err != nil {
		t.Fatalf("Lookup after variant set: %v", err)
	}
	if res.Value != "clang" {
		t.Fatalf("Lookup = %+v, want variant-scoped clang", res)
	}

	// Global scope is untouched by the variant-scoped Set.
	global, err := db.Lookup(ctx, GlobalScope, "CC", 0)
	if err != nil || global.Value != "gcc" {
		t.Fatalf("global Lookup = %+v, %v, want gcc", global, err)
	}
}

func TestSameNameDifferentScopesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	_, db := newTestDB(t)

	if _, err := db.Set(ctx, "debug", "OPT", "-O0"); err != nil {
		t.Fatalf("Set debug: %v", err)
	}
	if _, err := db.Set(ctx, "release", "OPT", "-O3"); err != nil {
		t.Fatalf("Set release: %v", err)
	}

	d, err := db.Lookup(ctx, "debug", "OPT", 0)
	if err != nil || d.Value != "-O0" {
		t.Fatalf("debug Lookup = %+v, %v", d, err)
	}
	r, err := db.Lookup(ctx, "release", "OPT", 0)
	if err != nil || r.Value != "-O3" {
		t.Fatalf("release Lookup = %+v, %v", r, err)
	}
}
