package runtime

import "github.com/deicod/nunjucks/compiler"

// Frame is a runtime scope. Lookups walk the parent chain.
type Frame struct {
	vars     map[string]interface{}
	parent   *Frame
	depth    int
	includes int
}

var _ compiler.RuntimeFrame = (*Frame)(nil)

// NewFrame creates a top-level frame
func NewFrame() *Frame {
	return &Frame{vars: map[string]interface{}{}}
}

// Lookup resolves name in this frame or an ancestor
func (f *Frame) Lookup(name string) (interface{}, bool) {
	for cur := f; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Set binds name in this frame
func (f *Frame) Set(name string, value interface{}) {
	f.vars[name] = value
}

// Push returns a child frame
func (f *Frame) Push() compiler.RuntimeFrame {
	return &Frame{vars: map[string]interface{}{}, parent: f, depth: f.depth + 1, includes: f.includes}
}

// include returns the child frame an included template renders in
func (f *Frame) include() *Frame {
	child := f.Push().(*Frame)
	child.includes++
	return child
}

// Pop returns the parent frame. The top-level frame pops to itself.
func (f *Frame) Pop() compiler.RuntimeFrame {
	if f.parent == nil {
		return f
	}
	return f.parent
}

// Depth is the number of pushes from the top-level frame
func (f *Frame) Depth() int {
	return f.depth
}

// Includes is the number of includes between this frame and the
// top-level render
func (f *Frame) Includes() int {
	return f.includes
}
