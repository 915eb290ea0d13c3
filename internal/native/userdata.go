package native

import (
	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/object"
	"github.com/gopika/gopika/internal/value"
)

// Hooks are the optional per-instance callbacks a UserData box can
// carry (spec.md §4.7): mark lets a boxed pointer keep other heap
// objects alive, finalize runs when the box is swept, get/set let a
// native module expose the boxed data through ordinary slot access.
type Hooks struct {
	Mark     func(c *gc.Collector, ptr any)
	Finalize func(ptr any) bool
	Get      func(ptr any, key value.Value) (value.Value, bool)
	Set      func(ptr any, key, val value.Value) bool
}

// UserData boxes an opaque native pointer (spec.md §4.7). Two flavors:
// external-pointer, where Ptr's memory is owned by the caller and
// UserData only observes it, and managed, where Owned is true and
// Ptr's lifetime is tied to the box (Finalize is expected to release
// it, e.g. by calling a Close method via the hook).
type UserData struct {
	object.Basic
	Ptr   any
	Owned bool
	hooks Hooks
}

// NewExternalUserData boxes ptr without taking ownership of it.
func NewExternalUserData(gcr *gc.Collector, t *object.Type, ptr any, hooks Hooks) *UserData {
	return newUserData(gcr, t, ptr, false, hooks)
}

// NewManagedUserData boxes ptr, marking the box as owning it; hooks.Finalize
// is responsible for releasing it when the collector sweeps the box.
func NewManagedUserData(gcr *gc.Collector, t *object.Type, ptr any, hooks Hooks) *UserData {
	return newUserData(gcr, t, ptr, true, hooks)
}

func newUserData(gcr *gc.Collector, t *object.Type, ptr any, owned bool, hooks Hooks) *UserData {
	u := &UserData{Ptr: ptr, Owned: owned, hooks: hooks}
	u.SetType(t)
	if gcr != nil {
		gcr.Add(u)
	}
	return u
}

// Get delegates to the hooks.Get callback, if any.
func (u *UserData) Get(key value.Value) (value.Value, bool) {
	if u.hooks.Get == nil {
		return value.NilValue, false
	}
	return u.hooks.Get(u.Ptr, key)
}

// Set delegates to the hooks.Set callback, if any.
func (u *UserData) Set(key, val value.Value) bool {
	if u.hooks.Set == nil {
		return false
	}
	return u.hooks.Set(u.Ptr, key, val)
}

// Value wraps u as a runtime Value with Kind() == value.UserData.
func (u *UserData) Value() value.Value { return value.NewRef(value.UserData, u) }

// MarkRefs satisfies gc.Object: defers to the hooks.Mark callback for
// whatever the boxed pointer itself keeps alive, plus the Basic type tag.
func (u *UserData) MarkRefs(c *gc.Collector) {
	if u.Type() != nil {
		c.Mark(u.Type())
	}
	if u.hooks.Mark != nil {
		u.hooks.Mark(c, u.Ptr)
	}
}

// Finalize satisfies gc.Object: for a managed box, runs hooks.Finalize
// so the caller can release the boxed pointer; for an external box,
// there is nothing for the collector to release.
func (u *UserData) Finalize() bool {
	if u.Owned && u.hooks.Finalize != nil {
		u.hooks.Finalize(u.Ptr)
	}
	return true
}

// UserDataFromValue extracts the *UserData a Value wraps, if any.
func UserDataFromValue(v value.Value) (*UserData, bool) {
	u, ok := v.Ref().(*UserData)
	return u, ok
}
