package vm

import (
	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/perror"
	"github.com/gopika/gopika/internal/value"
)

// Property is installed as a slot Value (spec.md §3.1 lists Property
// among the Value discriminants) whose read/write go through a getter
// and optional setter Function rather than a stored value. Resolving a
// Property read into a call requires a live Context, which is why this
// type lives in internal/vm rather than internal/object.
type Property struct {
	gc.Header
	getter *Function
	setter *Function
}

// NewProperty allocates a Property. setter may be nil for a read-only
// property (spec.md §4.7's "Property(name, getter, setter)").
func NewProperty(gcr *gc.Collector, getter, setter *Function) *Property {
	p := &Property{getter: getter, setter: setter}
	if gcr != nil {
		gcr.Add(p)
	}
	return p
}

// ReadOnly reports whether the property has no setter.
func (p *Property) ReadOnly() bool { return p.setter == nil }

// Get invokes the getter on ctx with self bound, returning its single
// declared result.
func (p *Property) Get(ctx *Context, self value.Value) (value.Value, error) {
	if p.getter == nil {
		return value.NilValue, perror.New(perror.KindType, "property has no getter")
	}
	bound := p.getter.Bind(ctx.Collector(), self)
	results, err := ctx.Call(bound, nil, 1)
	if err != nil {
		return value.NilValue, err
	}
	if len(results) == 0 {
		return value.NilValue, nil
	}
	return results[0], nil
}

// Set invokes the setter on ctx with self bound and val as its sole
// argument.
func (p *Property) Set(ctx *Context, self, val value.Value) error {
	if p.setter == nil {
		return perror.New(perror.KindType, "property is read-only")
	}
	bound := p.setter.Bind(ctx.Collector(), self)
	_, err := ctx.Call(bound, []value.Value{val}, 0)
	return err
}

// Value wraps p as a runtime Value with Kind() == value.Property.
func (p *Property) Value() value.Value { return value.NewRef(value.Property, p) }

// PropertyFromValue extracts the *Property a Value wraps, if any.
func PropertyFromValue(v value.Value) (*Property, bool) {
	p, ok := v.Ref().(*Property)
	return p, ok
}

// GCHeader satisfies gc.Object.
func (p *Property) GCHeader() *gc.Header { return &p.Header }

// MarkRefs satisfies gc.Object.
func (p *Property) MarkRefs(c *gc.Collector) {
	if p.getter != nil {
		c.Mark(p.getter)
	}
	if p.setter != nil {
		c.Mark(p.setter)
	}
}

// Finalize satisfies gc.Object.
func (p *Property) Finalize() bool { return true }
