package compiler

// Frame is the compile-time scope chain. It maps template names to the
// binding ids of generated locals and never holds runtime values.
//
// Scopes live in an arena and link to their parent by index, so pushing
// and popping only moves a cursor.
type Frame struct {
	arena *arena
	index int
}

type scope struct {
	parent int
	vars   map[string]string
}

type arena struct {
	scopes []scope
}

const noParent = -1

// testHookBind, when set, sees every name bound through Set
var testHookBind func(name, id string)

// NewFrame creates a frame with a single empty scope
func NewFrame() *Frame {
	a := &arena{scopes: []scope{{parent: noParent, vars: map[string]string{}}}}
	return &Frame{arena: a}
}

// Push opens a child scope
func (f *Frame) Push() *Frame {
	f.arena.scopes = append(f.arena.scopes, scope{parent: f.index, vars: map[string]string{}})
	return &Frame{arena: f.arena, index: len(f.arena.scopes) - 1}
}

// Pop returns the parent scope, or nil at the outermost scope
func (f *Frame) Pop() *Frame {
	parent := f.arena.scopes[f.index].parent
	if parent == noParent {
		return nil
	}
	return &Frame{arena: f.arena, index: parent}
}

// Set binds name to id in the current scope
func (f *Frame) Set(name, id string) {
	if testHookBind != nil {
		testHookBind(name, id)
	}
	f.arena.scopes[f.index].vars[name] = id
}

// Lookup searches the chain from the innermost scope outwards
func (f *Frame) Lookup(name string) (string, bool) {
	for i := f.index; i != noParent; i = f.arena.scopes[i].parent {
		if id, ok := f.arena.scopes[i].vars[name]; ok {
			return id, true
		}
	}
	return "", false
}

// Depth returns the number of scopes between f and the outermost scope
func (f *Frame) Depth() int {
	depth := 0
	for i := f.arena.scopes[f.index].parent; i != noParent; i = f.arena.scopes[i].parent {
		depth++
	}
	return depth
}
