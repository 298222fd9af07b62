// Package callstack maintains an interned, per-thread function call stack,
// mirroring byfl's CallStack.{h,cpp}.
package callstack

import (
	"strings"

	"github.com/lanl/byflgo/internal/symtab"
)

// EmptySentinel is returned by Top when the stack holds no frames.
const EmptySentinel = "[EMPTY]"

// Frame is one entry on the call stack: the function's own name and its key,
// plus the interned "fN fN-1 ... f1" combined name computed when the frame
// was pushed.
type Frame struct {
	FuncName string
	Key      uint64
	Combined *string // interned "func ancestor1 ancestor2 ..." name
}

// Stack is an ordered sequence of call frames, stored outermost-first (the
// last frame is the innermost call).
type Stack struct {
	frames   []Frame
	maxDepth int
	interner *symtab.Table
}

// New creates an empty call stack that interns combined names into tab.
func New(tab *symtab.Table) *Stack {
	if tab == nil {
		tab = symtab.Global()
	}
	return &Stack{interner: tab}
}

// Push records a call into funcName (keyed by key) and returns the interned
// combined name "funcName <previous combined name>". The empty stack's
// combined name is simply funcName itself.
func (s *Stack) Push(funcName string, key uint64) *string {
	var combined string
	if len(s.frames) == 0 {
		combined = funcName
	} else {
		combined = funcName + " " + derefOrEmpty(s.frames[len(s.frames)-1].Combined)
	}
	interned := s.interner.Intern(combined)
	s.frames = append(s.frames, Frame{FuncName: funcName, Key: key, Combined: interned})
	if len(s.frames) > s.maxDepth {
		s.maxDepth = len(s.frames)
	}
	return interned
}

// derefOrEmpty lets Push treat a nil *string (there is none once New() is
// used correctly, but keeps the helper defensive) as "".
func derefOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Pop removes the innermost frame and returns the new top-of-stack combined
// name, or the EmptySentinel if the stack is now empty.
func (s *Stack) Pop() *string {
	if len(s.frames) == 0 {
		empty := EmptySentinel
		return &empty
	}
	s.frames = s.frames[:len(s.frames)-1]
	return s.Top()
}

// Top returns the combined name at the top of the stack (or the sentinel).
func (s *Stack) Top() *string {
	if len(s.frames) == 0 {
		empty := EmptySentinel
		return &empty
	}
	return s.frames[len(s.frames)-1].Combined
}

// MaxDepth returns the deepest the stack has ever grown.
func (s *Stack) MaxDepth() int { return s.maxDepth }

// Depth returns the current number of frames.
func (s *Stack) Depth() int { return len(s.frames) }

// Names returns the current stack's function names, innermost first, for
// diagnostics (e.g. partition tags that want "foo called from bar").
func (s *Stack) Names() []string {
	names := make([]string, len(s.frames))
	for i, f := range s.frames {
		names[len(s.frames)-1-i] = f.FuncName
	}
	return names
}

// String renders the stack as "innermost < ... < outermost" for logging.
func (s *Stack) String() string {
	return strings.Join(s.Names(), " < ")
}
