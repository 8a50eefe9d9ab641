package compiler

import (
	"strings"

	"github.com/deicod/nunjucks/nodes"
)

// superName is the local a block body calls to render the override it
// replaces
const superName = "super"

func (c *Compiler) compileRoot(node *nodes.Root, frame *Frame) (*Unit, error) {
	if frame != nil {
		return nil, compileError(node, "root node can't have frame")
	}

	frame = NewFrame()
	var buf buffer
	for _, child := range node.Children {
		if err := c.compile(child, frame, &buf); err != nil {
			return nil, err
		}
	}
	body := buf.flatten()
	child := c.isChild

	unit := &Unit{Blocks: map[string]*Entry{}}
	unit.Root = &Entry{
		Name: RootEntry,
		run: func(s *state, out *strings.Builder) error {
			if err := body(s, out); err != nil {
				return err
			}
			// an extends that did not run leaves the child's own output
			if !child || s.inv.parent == nil {
				return nil
			}
			parent, err := s.inv.parent.Unit()
			if err != nil {
				return err
			}
			text, err := parent.Root.render(s.env, s.ctx, s.frame, s.rt, s.inv.chain+1)
			if err != nil {
				return err
			}
			out.Reset()
			out.WriteString(text)
			return nil
		},
	}

	for _, block := range nodes.FindAll[*nodes.Block](node) {
		entry, err := c.compileBlockEntry(block)
		if err != nil {
			return nil, err
		}
		unit.Blocks[block.Name.Value] = entry
	}

	return unit, nil
}

// compileBlockEntry compiles a block body as its own entry. The body runs
// in a fresh scope where "super" is bound to the next override of the
// same block.
func (c *Compiler) compileBlockEntry(block *nodes.Block) (*Entry, error) {
	frame := NewFrame().Push()
	superID := c.tmpid()
	frame.Set(superName, superID)

	body, err := c.compileBody(block.Body, frame)
	if err != nil {
		return nil, err
	}

	name := block.Name.Value
	entry := &Entry{Name: BlockPrefix + name}
	entry.run = func(s *state, out *strings.Builder) error {
		next, err := s.ctx.GetSuper(s.env, name, entry, s.rt)
		if err != nil {
			return WrapError(err, block)
		}
		s.locals.set(superID, &superBlock{name: name, entry: next, s: s})
		return body(s, out)
	}
	return entry, nil
}
