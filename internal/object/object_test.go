package object

import (
	"testing"

	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/strtable"
	"github.com/gopika/gopika/internal/value"
)

func newTestCollector() *gc.Collector {
	c := gc.New(gc.Config{NumAllocs: 1 << 30, WorkPerStep: 1000})
	c.SetRoots(func() []gc.Object { return nil })
	return c
}

func TestSlotLookupFallsThroughToMethodTable(t *testing.T) {
	gcr := newTestCollector()
	interner := strtable.NewInterner(gcr)

	base := NewType(gcr, nil, "Base", nil)
	key := interner.GetString("greet").Value()
	base.Methods().Set(key, value.IntValue(1), strtable.ReadOnly)

	derived := NewType(gcr, nil, "Derived", nil)
	if err := derived.SetBase(base); err != nil {
		t.Fatalf("SetBase failed: %v", err)
	}

	inst := NewObject(gcr, derived)
	got, _, ok := inst.Get(key)
	if !ok || got.Int() != 1 {
		t.Fatalf("expected method lookup to fall through base chain, got %+v ok=%v", got, ok)
	}
}

func TestInstanceSlotShadowsMethodTable(t *testing.T) {
	gcr := newTestCollector()
	interner := strtable.NewInterner(gcr)

	typ := NewType(gcr, nil, "Widget", nil)
	key := interner.GetString("x").Value()
	typ.Methods().Set(key, value.IntValue(1), 0)

	inst := NewObject(gcr, typ)
	if err := inst.Set(key, value.IntValue(2), 0, nil); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, _, _ := inst.Get(key)
	if got.Int() != 2 {
		t.Fatalf("expected instance slot to shadow method table, got %d", got.Int())
	}
}

func TestFinalTypeRejectsSubtyping(t *testing.T) {
	gcr := newTestCollector()
	base := NewType(gcr, nil, "Sealed", nil)
	base.SetFinal(true)

	derived := NewType(gcr, nil, "Derived", nil)
	if err := derived.SetBase(base); err == nil {
		t.Fatalf("expected SetBase to reject a final base type")
	}
}

func TestPackageTreeEnumeratesChildren(t *testing.T) {
	gcr := newTestCollector()
	world := NewPackage(gcr, nil, "world", nil)
	io := NewPackage(gcr, nil, "io", world)
	NewPackage(gcr, nil, "file", io)

	if len(world.Children()) != 1 || world.Children()[0] != io {
		t.Fatalf("expected world to have io as its only child")
	}
	if io.Path() != "io" {
		t.Fatalf("expected io's path to be 'io', got %q", io.Path())
	}
	if got := io.Children()[0].Path(); got != "io.file" {
		t.Fatalf("expected dotted path 'io.file', got %q", got)
	}
}

func TestReadOnlySlotRejectsWrite(t *testing.T) {
	gcr := newTestCollector()
	interner := strtable.NewInterner(gcr)
	typ := NewType(gcr, nil, "Const", nil)
	inst := NewObject(gcr, typ)

	key := interner.GetString("PI").Value()
	if err := inst.Set(key, value.RealValue(3.14), strtable.ReadOnly, nil); err != nil {
		t.Fatalf("initial set failed: %v", err)
	}
	if err := inst.Set(key, value.RealValue(0), 0, nil); err == nil {
		t.Fatalf("expected write to read-only slot to fail")
	}
}
