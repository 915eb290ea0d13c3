package strtable

import (
	"fmt"
	"hash/fnv"
	"math"

	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/value"
)

// Attr is a bitset of per-slot attribute flags (spec.md §3.3).
type Attr uint8

const (
	// Protected slots reject writes from outside the containing
	// scope (spec.md §4.3).
	Protected Attr = 1 << iota
	// ReadOnly slots reject every write.
	ReadOnly
	// ForceWrite bypasses both ReadOnly and Protected checks.
	ForceWrite
)

type slot struct {
	used  bool
	key   value.Value
	val   value.Value
	attr  Attr
	khash uint64
}

// Table is the generic Value→Value attribute map used both as an
// Object's instance slots and as a general-purpose Dictionary backing
// store (spec.md §3.2). It is a GC-managed heap object: its MarkRefs
// walks every slot's key and value that happen to be heap references.
type Table struct {
	gc.Header
	slots []slot
	count int
	gcr   *gc.Collector
}

// NewTable creates an empty Table. gcr may be nil for tables that are
// never registered with a collector (rare; tests mostly).
func NewTable(gcr *gc.Collector) *Table {
	t := &Table{slots: make([]slot, 8), gcr: gcr}
	if gcr != nil {
		gcr.Add(t)
	}
	return t
}

// GCHeader satisfies gc.Object.
func (t *Table) GCHeader() *gc.Header { return &t.Header }

// MarkRefs satisfies gc.Object: marks every heap-referencing key/value.
func (t *Table) MarkRefs(c *gc.Collector) {
	for _, s := range t.slots {
		if !s.used {
			continue
		}
		markIfObject(c, s.key)
		markIfObject(c, s.val)
	}
}

// Finalize satisfies gc.Object: a Table has no external resources.
func (t *Table) Finalize() bool { return true }

func markIfObject(c *gc.Collector, v value.Value) {
	if ref, ok := v.Ref().(gc.Object); ok {
		c.Mark(ref)
	}
}

// Len returns the number of occupied slots.
func (t *Table) Len() int { return t.count }

func hashValue(v value.Value) uint64 {
	switch v.Kind() {
	case value.Null:
		return 0
	case value.Bool:
		if v.Bool() {
			return 1
		}
		return 2
	case value.Integer:
		return uint64(v.Int()) * 2654435761
	case value.Real:
		return math.Float64bits(v.Real())
	case value.String:
		if s, ok := AsString(v); ok {
			return s.hash
		}
		return 0
	default:
		// identity hash for object/property/userdata references
		return fnvPointer(v.Ref())
	}
}

func fnvPointer(p any) uint64 {
	// A stable-enough hash for a pointer-identity key: use the
	// pointer's integer representation via %p formatting avoided for
	// speed; instead hash the interface's type+pointer through a
	// simple mixing function on the Go runtime pointer value obtained
	// via unsafe would be ideal, but we avoid unsafe entirely here and
	// accept the minor cost of fmt-based hashing for non-scalar keys,
	// which are uncommon (object identity as a Dictionary key).
	return fnv64String(sprintPointer(p))
}

func sprintPointer(p any) string { return fmt.Sprintf("%p", p) }

func fnv64String(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// Get looks up key, returning the stored value, its attributes, and
// whether it was found.
func (t *Table) Get(key value.Value) (value.Value, Attr, bool) {
	idx, found := t.find(key)
	if !found {
		return value.NilValue, 0, false
	}
	s := t.slots[idx]
	return s.val, s.attr, true
}

// Set installs key=val with the given attributes, honoring an existing
// ReadOnly flag unless attr includes ForceWrite (spec.md §4.3). The
// Protected flag is not checked here, since a Table has no notion of
// the caller's scope; object.Object.Set enforces it. It returns an
// error-like bool: false means the write was rejected because the slot
// is read-only and the caller did not force it.
func (t *Table) Set(key, val value.Value, attr Attr) bool {
	idx, found := t.find(key)
	if found {
		existing := t.slots[idx].attr
		if attr&ForceWrite == 0 {
			if existing&ReadOnly != 0 {
				return false
			}
		}
		if t.gcr != nil {
			t.gcr.WriteBarrier(t, refOf(val))
		}
		t.slots[idx].val = val
		if attr != 0 {
			t.slots[idx].attr = attr
		}
		return true
	}
	t.insert(key, val, attr)
	return true
}

// Delete removes key if present, returning whether it was found.
func (t *Table) Delete(key value.Value) bool {
	idx, found := t.find(key)
	if !found {
		return false
	}
	t.slots[idx] = slot{}
	t.count--
	// Re-insert the rest of the probe run so keys that collided past
	// the freed slot stay reachable by find.
	n := len(t.slots)
	for i := (idx + 1) % n; t.slots[i].used; i = (i + 1) % n {
		s := t.slots[i]
		t.slots[i] = slot{}
		t.count--
		t.insert(s.key, s.val, s.attr)
	}
	return true
}

// Keys returns every occupied key, in table (bucket) order — spec.md
// §9 explicitly leaves Dictionary iteration order undocumented, so
// callers must not depend on it.
func (t *Table) Keys() []value.Value {
	keys := make([]value.Value, 0, t.count)
	for _, s := range t.slots {
		if s.used {
			keys = append(keys, s.key)
		}
	}
	return keys
}

func refOf(v value.Value) gc.Object {
	if ref, ok := v.Ref().(gc.Object); ok {
		return ref
	}
	return nil
}

func (t *Table) find(key value.Value) (int, bool) {
	if len(t.slots) == 0 {
		return 0, false
	}
	h := hashValue(key)
	n := len(t.slots)
	start := int(h % uint64(n))
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		s := t.slots[idx]
		if !s.used {
			return idx, false
		}
		if s.khash == h && value.Equal(s.key, key) {
			return idx, true
		}
	}
	return 0, false
}

func (t *Table) insert(key, val value.Value, attr Attr) {
	if float64(t.count+1) > float64(len(t.slots))*0.7 {
		t.grow()
	}
	h := hashValue(key)
	n := len(t.slots)
	start := int(h % uint64(n))
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if !t.slots[idx].used {
			t.slots[idx] = slot{used: true, key: key, val: val, attr: attr, khash: h}
			t.count++
			if t.gcr != nil {
				t.gcr.WriteBarrier(t, refOf(key))
				t.gcr.WriteBarrier(t, refOf(val))
			}
			return
		}
	}
}

func (t *Table) grow() {
	old := t.slots
	t.slots = make([]slot, len(old)*2)
	t.count = 0
	for _, s := range old {
		if s.used {
			t.insert(s.key, s.val, s.attr)
		}
	}
}
