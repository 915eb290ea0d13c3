// Package debughook implements the Engine's extensible hook surface
// (spec.md §4.8): a per-event chain of handlers, dispatched in
// registration order, where the first handler to report "handled"
// short-circuits the rest.
package debughook

// Event identifies a hook point in the runtime.
type Event string

const (
	Call        Event = "CALL"
	Return      Event = "RETURN"
	Yield       Event = "YIELD"
	NativeCall  Event = "NATIVECALL"
	Instruction Event = "INSTRUCTION"
	Except      Event = "EXCEPT"
	Import      Event = "IMPORT"
)

// Handler reacts to an Event. args carries event-specific payload
// (e.g. for IMPORT, the module name and a result pointer the handler
// populates); handled=true stops the chain. Handlers that allocate
// resources (a debugger front-end's socket, a trace file) implement
// io.Closer-like cleanup via Remove below.
type Handler interface {
	Handle(ev Event, args any) (handled bool, err error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ev Event, args any) (bool, error)

func (f HandlerFunc) Handle(ev Event, args any) (bool, error) { return f(ev, args) }

// Releaser is implemented by handlers that hold resources needing
// explicit cleanup when removed (spec.md §4.8 "Hooks release their
// own resources on removal").
type Releaser interface {
	Release()
}

// Chain is an ordered, per-event list of handlers.
type Chain struct {
	handlers map[Event][]Handler
}

// NewChain creates an empty hook chain.
func NewChain() *Chain {
	return &Chain{handlers: make(map[Event][]Handler)}
}

// Add registers h for ev, appended after any existing handlers.
func (c *Chain) Add(ev Event, h Handler) {
	c.handlers[ev] = append(c.handlers[ev], h)
}

// Remove unregisters h for ev, releasing it if it implements Releaser.
func (c *Chain) Remove(ev Event, h Handler) {
	list := c.handlers[ev]
	for i, cand := range list {
		if cand == h {
			c.handlers[ev] = append(list[:i], list[i+1:]...)
			if r, ok := h.(Releaser); ok {
				r.Release()
			}
			return
		}
	}
}

// Dispatch runs ev's handler chain in registration order, stopping at
// the first handler that reports handled=true or returns an error
// (spec.md §4.6 "The first hook to claim the event wins; no fallback
// after a claimed-but-failed attempt").
func (c *Chain) Dispatch(ev Event, args any) (handled bool, err error) {
	for _, h := range c.handlers[ev] {
		handled, err = h.Handle(ev, args)
		if handled || err != nil {
			return handled, err
		}
	}
	return false, nil
}

// HasHandlers reports whether any handler is registered for ev.
func (c *Chain) HasHandlers(ev Event) bool {
	return len(c.handlers[ev]) > 0
}
