package debughook

// InstructionArgs is the payload the VM passes on every INSTRUCTION
// event: the currently executing function identity (opaque to this
// package — internal/vm passes its *vm.Function) and the source line
// the line map resolved the current program counter to.
type InstructionArgs struct {
	Func any
	Line int
}

// LineCallback is invoked whenever an INSTRUCTION event's (Func, Line)
// pair differs from the previous event's.
type LineCallback func(fn any, line int)

// LineTracker is an INSTRUCTION Handler that only forwards to its
// callback when the current line changes (spec.md §4.8: "on each
// INSTRUCTION event it checks whether the current line ... changed
// since the last notification, and if so invokes a user-supplied
// callback"), grounded on the original PDebugger.cpp's line-change
// coalescing. Without this, a debugger front end would be invoked on
// every single bytecode instruction instead of once per source line.
type LineTracker struct {
	callback    LineCallback
	lastFunc    any
	lastLine    int
	initialized bool
}

// NewLineTracker creates a tracker that invokes cb on each line change.
func NewLineTracker(cb LineCallback) *LineTracker {
	return &LineTracker{callback: cb}
}

// Handle implements Handler for the INSTRUCTION event.
func (lt *LineTracker) Handle(ev Event, args any) (bool, error) {
	if ev != Instruction {
		return false, nil
	}
	ia, ok := args.(InstructionArgs)
	if !ok {
		return false, nil
	}
	if lt.initialized && lt.lastFunc == ia.Func && lt.lastLine == ia.Line {
		return false, nil
	}
	lt.initialized = true
	lt.lastFunc = ia.Func
	lt.lastLine = ia.Line
	if lt.callback != nil {
		lt.callback(ia.Func, ia.Line)
	}
	return false, nil
}
