package compiler

import (
	"errors"
	"sort"
	"strings"
)

// RootEntry is the entry point name of a template's top-level output
const RootEntry = "root"

// BlockPrefix prefixes the entry point name of every block
const BlockPrefix = "block_"

// Entry is one callable entry point of a compiled unit. Entries are
// compared by identity when walking a block override chain.
type Entry struct {
	Name string
	run  func(s *state, out *strings.Builder) error
}

// maxInheritanceDepth bounds the length of an extends chain
const maxInheritanceDepth = 64

// Render runs the entry with a fresh activation
func (e *Entry) Render(env Environment, ctx Context, frame RuntimeFrame, rt Runtime) (string, error) {
	if frame == nil {
		return "", errors.New("nunjucks: render requires a runtime frame")
	}
	return e.render(env, ctx, frame, rt, 0)
}

func (e *Entry) render(env Environment, ctx Context, frame RuntimeFrame, rt Runtime, chain int) (string, error) {
	s := &state{
		env:    env,
		ctx:    ctx,
		frame:  frame,
		rt:     rt,
		locals: newLocals(nil),
		inv:    &invocation{chain: chain},
	}

	var out strings.Builder
	if err := e.run(s, &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

// Unit is the result of compiling one template
type Unit struct {
	Root   *Entry
	Blocks map[string]*Entry
}

// Entries maps entry point names to entries: "root" plus "block_<name>"
// for every block
func (u *Unit) Entries() map[string]*Entry {
	entries := make(map[string]*Entry, len(u.Blocks)+1)
	entries[RootEntry] = u.Root
	for name, block := range u.Blocks {
		entries[BlockPrefix+name] = block
	}
	return entries
}

// BlockNames returns the block names in sorted order
func (u *Unit) BlockNames() []string {
	names := make([]string, 0, len(u.Blocks))
	for name := range u.Blocks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// state is the activation record of one entry invocation or macro call
type state struct {
	env    Environment
	ctx    Context
	frame  RuntimeFrame
	rt     Runtime
	locals *locals
	inv    *invocation
}

// invocation holds what a root render learns at runtime. Macro calls
// share the invocation of the activation that defined them.
type invocation struct {
	parent Template
	depth  int
	chain  int
}

// locals stores values of generated bindings by id. Macro calls chain to
// the activation that defined the macro.
type locals struct {
	vars   map[string]interface{}
	parent *locals
}

func newLocals(parent *locals) *locals {
	return &locals{vars: map[string]interface{}{}, parent: parent}
}

func (l *locals) get(id string) interface{} {
	for cur := l; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[id]; ok {
			return v
		}
	}
	return nil
}

func (l *locals) set(id string, value interface{}) {
	l.vars[id] = value
}
