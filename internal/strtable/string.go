// Package strtable implements the interned String type and the generic
// Table (attribute map) used for both string interning and object slot
// storage (spec.md §3.2, §4.2, §4.3).
package strtable

import (
	"bytes"
	"hash/fnv"

	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/value"
)

// String is an immutable, interned piece of text (spec.md §3.2). Two
// Strings built from byte-equal content are always the same instance
// (spec.md §8 "string interning" invariant); callers never construct a
// String directly, they go through (*Interner).Get.
type String struct {
	gc.Header
	bytes    []byte
	hash     uint64
	hasNulls bool
	owner    *Interner
}

// Bytes returns the string's immutable backing bytes. Callers must not
// mutate the returned slice.
func (s *String) Bytes() []byte { return s.bytes }

// Len returns the length in bytes.
func (s *String) Len() int { return len(s.bytes) }

// HasNulls reports whether the content contains a NUL byte, letting
// consumers reject strings that cannot be treated as C-style
// (spec.md §4.2).
func (s *String) HasNulls() bool { return s.hasNulls }

// String implements fmt.Stringer for debug printing.
func (s *String) String() string { return string(s.bytes) }

// GCHeader satisfies gc.Object.
func (s *String) GCHeader() *gc.Header { return &s.Header }

// MarkRefs satisfies gc.Object: Strings hold no outgoing references.
func (s *String) MarkRefs(*gc.Collector) {}

// Finalize satisfies gc.Object: an unreferenced interned string removes
// itself from its Interner's hash table (spec.md §4.2 "On sweep,
// entries whose target string is unreferenced ... are removed").
func (s *String) Finalize() bool {
	if s.owner != nil {
		s.owner.remove(s)
	}
	return true
}

// Value wraps s as a runtime Value with Kind() == value.String.
func (s *String) Value() value.Value { return value.NewRef(value.String, s) }

// AsString type-asserts a Value back to its *String payload. ok is
// false if v does not hold a String.
func AsString(v value.Value) (s *String, ok bool) {
	if !v.IsString() {
		return nil, false
	}
	s, ok = v.Ref().(*String)
	return s, ok
}

// Interner is the Engine's string table (spec.md §4.2): a hash table
// keyed by (hash, length, bytes) that guarantees pointer-identical
// results for byte-equal inputs. Entries are bucketed by hash modulo
// table size with chaining, since the population is generally small
// relative to an application's whole heap and chain lengths stay short.
type Interner struct {
	buckets [][]*String
	count   int
	gcr     *gc.Collector
	empty   *String
}

// NewInterner creates an empty string table. gcr may be nil in tests
// that don't need collector integration (e.g. unit tests of hashing).
func NewInterner(gcr *gc.Collector) *Interner {
	it := &Interner{
		buckets: make([][]*String, 64),
		gcr:     gcr,
	}
	it.empty = it.intern(nil)
	it.empty.SetPersistent(true)
	return it
}

// Empty returns the canonical empty-string instance (spec.md §8
// "Empty string interning returns the canonical emptyString").
func (it *Interner) Empty() *String { return it.empty }

// Get returns the interned String for b, creating it if no equal
// string exists yet (spec.md §4.2 contract).
func (it *Interner) Get(b []byte) *String {
	if len(b) == 0 {
		return it.empty
	}
	h := hashBytes(b)
	idx := int(h % uint64(len(it.buckets)))
	for _, s := range it.buckets[idx] {
		if s.hash == h && bytes.Equal(s.bytes, b) {
			return s
		}
	}
	return it.intern(b)
}

// GetString is a convenience wrapper over Get for Go string inputs.
func (it *Interner) GetString(s string) *String {
	return it.Get([]byte(s))
}

func (it *Interner) intern(b []byte) *String {
	h := hashBytes(b)
	cp := make([]byte, len(b))
	copy(cp, b)
	s := &String{
		bytes:    cp,
		hash:     h,
		hasNulls: bytes.IndexByte(cp, 0) >= 0,
		owner:    it,
	}
	idx := int(h % uint64(len(it.buckets)))
	it.buckets[idx] = append(it.buckets[idx], s)
	it.count++
	if it.gcr != nil {
		it.gcr.Add(s)
	}
	if float64(it.count) > float64(len(it.buckets))*1.5 {
		it.grow()
	}
	return s
}

func (it *Interner) remove(s *String) {
	idx := int(s.hash % uint64(len(it.buckets)))
	bucket := it.buckets[idx]
	for i, cand := range bucket {
		if cand == s {
			it.buckets[idx] = append(bucket[:i], bucket[i+1:]...)
			it.count--
			return
		}
	}
}

func (it *Interner) grow() {
	newBuckets := make([][]*String, len(it.buckets)*2)
	for _, bucket := range it.buckets {
		for _, s := range bucket {
			idx := int(s.hash % uint64(len(newBuckets)))
			newBuckets[idx] = append(newBuckets[idx], s)
		}
	}
	it.buckets = newBuckets
}

// Len returns the number of currently interned strings.
func (it *Interner) Len() int { return it.count }

func hashBytes(b []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
