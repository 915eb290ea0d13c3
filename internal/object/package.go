package object

import (
	"strings"

	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/strtable"
	"github.com/gopika/gopika/internal/value"
)

// Package is an Object whose slots constitute a named scope (spec.md
// §3.2, §4.3). Packages form a tree rooted at the engine's global
// "world" package.
type Package struct {
	Object
	name     string
	parent   *Package
	children []*Package
}

// NewPackage allocates a Package named name under parent (nil for the
// world package itself) and registers it as a child.
func NewPackage(gcr *gc.Collector, t *Type, name string, parent *Package) *Package {
	p := &Package{
		Object: Object{slots: strtable.NewTable(gcr)},
		name:   name,
		parent: parent,
	}
	p.kind = KindPackage
	p.typ = t
	if gcr != nil {
		gcr.Add(p)
	}
	if parent != nil {
		parent.children = append(parent.children, p)
		if gcr != nil {
			gcr.WriteBarrier(parent, p)
		}
	}
	return p
}

// Name returns the package's local (undotted) name.
func (p *Package) Name() string { return p.name }

// Parent returns the enclosing package, or nil for the world package.
func (p *Package) Parent() *Package { return p.parent }

// Children returns the package's direct sub-packages (spec.md §4.3
// "can enumerate its children").
func (p *Package) Children() []*Package { return p.children }

// Value wraps p as a runtime Value with Kind() == value.Object. Shadows
// the promoted Object.Value, which would otherwise box the embedded
// Object field instead of p itself.
func (p *Package) Value() value.Value { return value.NewRef(value.Object, p) }

// NewPackageEmbed builds a Package's fields for embedding by value
// inside a Package-derived heap type defined outside this package (e.g.
// internal/module's Script, which the original implementation derives
// from Package). Unlike NewPackage, it neither registers with gcr nor
// links into parent.children — the embedding type does both itself,
// under its own identity, the same way Type does for its own embedded
// Package field.
func NewPackageEmbed(gcr *gc.Collector, t *Type, name string, parent *Package) Package {
	p := Package{
		Object: Object{slots: strtable.NewTable(gcr)},
		name:   name,
		parent: parent,
	}
	p.kind = KindPackage
	p.typ = t
	return p
}

// LinkChild appends child to parent's children list and runs the
// collector write barrier, for composite Package-derived types built
// via NewPackageEmbed.
func LinkChild(gcr *gc.Collector, parent, child *Package) {
	if parent == nil {
		return
	}
	parent.children = append(parent.children, child)
	if gcr != nil {
		gcr.WriteBarrier(parent, child)
	}
}

// Path returns the dotted name from below the world package down to p,
// e.g. "io.file". The world package itself has an empty Path.
func (p *Package) Path() string {
	var parts []string
	for cur := p; cur != nil && cur.parent != nil; cur = cur.parent {
		parts = append([]string{cur.name}, parts...)
	}
	return strings.Join(parts, ".")
}

// MarkRefs satisfies gc.Object, extending Object.MarkRefs with the
// package tree's parent/children edges.
func (p *Package) MarkRefs(c *gc.Collector) {
	p.Object.MarkRefs(c)
	if p.parent != nil {
		c.Mark(p.parent)
	}
	for _, ch := range p.children {
		c.Mark(ch)
	}
}

// Finalize satisfies gc.Object.
func (p *Package) Finalize() bool { return true }
