package debughook

import "testing"

func TestDispatchStopsAtFirstHandled(t *testing.T) {
	c := NewChain()
	var calledSecond bool
	c.Add(Call, HandlerFunc(func(Event, any) (bool, error) { return true, nil }))
	c.Add(Call, HandlerFunc(func(Event, any) (bool, error) { calledSecond = true; return false, nil }))

	handled, err := c.Dispatch(Call, nil)
	if err != nil || !handled {
		t.Fatalf("expected first handler to claim the event")
	}
	if calledSecond {
		t.Fatalf("second handler should not run once the event is claimed")
	}
}

func TestRemoveReleasesHandler(t *testing.T) {
	c := NewChain()
	released := false
	h := &releasingHandler{onRelease: func() { released = true }}
	c.Add(Except, h)
	c.Remove(Except, h)
	if !released {
		t.Fatalf("expected Remove to call Release")
	}
	if c.HasHandlers(Except) {
		t.Fatalf("expected no handlers left for Except")
	}
}

type releasingHandler struct{ onRelease func() }

func (h *releasingHandler) Handle(Event, any) (bool, error) { return false, nil }
func (h *releasingHandler) Release()                        { h.onRelease() }

func TestLineTrackerCoalescesSameLine(t *testing.T) {
	var calls int
	lt := NewLineTracker(func(fn any, line int) { calls++ })

	fn := "myFunc"
	_, _ = lt.Handle(Instruction, InstructionArgs{Func: fn, Line: 1})
	_, _ = lt.Handle(Instruction, InstructionArgs{Func: fn, Line: 1})
	_, _ = lt.Handle(Instruction, InstructionArgs{Func: fn, Line: 2})

	if calls != 2 {
		t.Fatalf("expected 2 callback invocations (one per distinct line), got %d", calls)
	}
}
