package compiler

// Environment resolves templates and filters for compiled code
type Environment interface {
	// GetTemplate resolves name. eager asks for the template's own block
	// table, as extends needs, rather than a rendering.
	GetTemplate(name string, eager bool) (Template, error)
	GetFilter(name string) (FilterFunc, error)
}

// Template is a resolved template as seen by compiled code
type Template interface {
	Unit() (*Unit, error)
	Render(vars map[string]interface{}, frame RuntimeFrame) (string, error)
	Module() (map[string]interface{}, error)
}

// Context is the render context shared by a root render, the parents it
// extends and the blocks it renders
type Context interface {
	Lookup(name string) (interface{}, bool)
	SetVariable(name string, value interface{})
	AddExport(name string)
	GetVariables() map[string]interface{}
	GetBlock(name string) (*Entry, error)
	AddBlock(name string, entry *Entry)
	// GetSuper returns the override that follows current in the block
	// chain for name, or nil when current is the last one.
	GetSuper(env Environment, name string, current *Entry, rt Runtime) (*Entry, error)
}

// RuntimeFrame holds values of the current render scope
type RuntimeFrame interface {
	Lookup(name string) (interface{}, bool)
	Push() RuntimeFrame
	Pop() RuntimeFrame
	Set(name string, value interface{})
}

// Runtime is the helper table compiled code calls into
type Runtime interface {
	MemberLookup(obj, key interface{}) (interface{}, error)
	Call(fn interface{}, args []interface{}) (interface{}, error)
	// Stringify converts an output value to text, escaping it when the
	// environment autoescapes.
	Stringify(value interface{}) string
	Truthy(value interface{}) bool
}

// FilterFunc is a registered filter. value is the filtered expression.
type FilterFunc func(ctx Context, value interface{}, args ...interface{}) (interface{}, error)

// MacroCaller marks values invoked with the macro calling convention
type MacroCaller interface {
	IsMacro() bool
	CallMacro(args []interface{}, kwargs map[string]interface{}) (interface{}, error)
}

// Caller is a value compiled code invokes itself instead of handing it to
// Runtime.Call
type Caller interface {
	Call(args []interface{}) (interface{}, error)
}
