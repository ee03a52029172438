// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolve

// A FrameKind identifies the kind of binding region that owns a frame.
type FrameKind uint8

const (
	ModuleFrame FrameKind = iota
	FunctionFrame
	ClassFrame
	ComprehensionFrame
)

var frameKindNames = [...]string{
	ModuleFrame:        "module",
	FunctionFrame:      "function",
	ClassFrame:         "class",
	ComprehensionFrame: "comprehension",
}

func (k FrameKind) String() string { return frameKindNames[k] }

// A frame is the set of names bound by one binding region.
// A frame becomes read-only once its region has been popped;
// it may later be pushed again, so that the bodies of functions
// defined within the region see its names.
type frame struct {
	kind     FrameKind
	names    map[string]bool
	readonly bool
}

// An internalError is the panic value used when the walker violates
// a structural invariant of the stack.
type internalError struct{ msg string }

// A stack is the chain of frames enclosing the node being resolved,
// innermost last. frames[0] is the module frame.
type stack struct {
	frames []*frame
}

func (s *stack) push(kind FrameKind) *frame {
	fr := &frame{kind: kind, names: make(map[string]bool)}
	s.frames = append(s.frames, fr)
	return fr
}

// repush pushes a frame that was popped earlier.
func (s *stack) repush(fr *frame) {
	s.frames = append(s.frames, fr)
}

func (s *stack) pop() {
	n := len(s.frames)
	if n <= 1 {
		panic(internalError{"pop of module frame"})
	}
	s.frames[n-1].readonly = true
	s.frames[n-1] = nil
	s.frames = s.frames[:n-1]
}

func (s *stack) innermost() *frame { return s.frames[len(s.frames)-1] }

// bind records a binding of name in the innermost frame.
func (s *stack) bind(name string) { s.bindIn(s.innermost(), name) }

func (s *stack) bindIn(fr *frame, name string) {
	if fr.readonly {
		panic(internalError{"binding of " + name + " in finished " + fr.kind.String() + " frame"})
	}
	fr.names[name] = true
}

// lookup reports whether name is bound in some enclosing frame.
// A class frame is consulted only when it is the innermost frame:
// the names of a class body are not visible to the functions
// and comprehensions nested within it.
func (s *stack) lookup(name string) bool {
	top := len(s.frames) - 1
	for i := top; i >= 0; i-- {
		fr := s.frames[i]
		if fr.kind == ClassFrame && i != top {
			continue
		}
		if fr.names[name] {
			return true
		}
	}
	return false
}

// visible calls fn for each name visible from the innermost frame.
func (s *stack) visible(fn func(name string)) {
	top := len(s.frames) - 1
	for i := top; i >= 0; i-- {
		fr := s.frames[i]
		if fr.kind == ClassFrame && i != top {
			continue
		}
		for name := range fr.names {
			fn(name)
		}
	}
}

// nearest returns the innermost frame that is not a comprehension.
func (s *stack) nearest() *frame {
	for i := len(s.frames) - 1; i > 0; i-- {
		if s.frames[i].kind != ComprehensionFrame {
			return s.frames[i]
		}
	}
	return s.frames[0]
}

// enclosingFunctionBinds reports whether name is bound by a function
// frame enclosing the innermost frame.
func (s *stack) enclosingFunctionBinds(name string) bool {
	for i := len(s.frames) - 2; i > 0; i-- {
		if fr := s.frames[i]; fr.kind == FunctionFrame && fr.names[name] {
			return true
		}
	}
	return false
}
