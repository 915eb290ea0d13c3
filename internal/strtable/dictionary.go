package strtable

import (
	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/value"
)

// Dictionary is a Value→Value map backed directly by a Table
// (spec.md §3.2: "Dictionary — Value→Value map — Table"). It exists as
// its own heap object (rather than Table being used bare) so the VM
// can distinguish "this is a user-visible Dictionary" from "this is an
// Object's internal slot storage" when resolving a Type for method
// dispatch.
type Dictionary struct {
	gc.Header
	table *Table
}

// NewDictionary allocates an empty Dictionary.
func NewDictionary(gcr *gc.Collector) *Dictionary {
	d := &Dictionary{table: NewTable(gcr)}
	if gcr != nil {
		gcr.Add(d)
	}
	return d
}

// Table exposes the backing Table for direct key/value access.
func (d *Dictionary) Table() *Table { return d.table }

// GCHeader satisfies gc.Object.
func (d *Dictionary) GCHeader() *gc.Header { return &d.Header }

// MarkRefs satisfies gc.Object.
func (d *Dictionary) MarkRefs(c *gc.Collector) {
	if d.table != nil {
		c.Mark(d.table)
	}
}

// Finalize satisfies gc.Object.
func (d *Dictionary) Finalize() bool { return true }

// Value wraps d as a runtime Value with Kind() == value.Object. A
// Dictionary carries no Type (this package has no notion of
// object.Type), so vm.GetMember does not resolve the built-in
// "Dictionary" Type's methods on it.
func (d *Dictionary) Value() value.Value { return value.NewRef(value.Object, d) }

// DictionaryFromValue extracts the *Dictionary a Value wraps, if any.
func DictionaryFromValue(v value.Value) (*Dictionary, bool) {
	d, ok := v.Ref().(*Dictionary)
	return d, ok
}
