package hook

import "fmt"

// Args maps argument names to values for one hook call.
type Args map[string]any

// Func is a plain hook implementation. It receives the values of its declared
// arguments in declaration order.
type Func func(args []any) (any, error)

// WrapperFunc is the before phase of a wrapper implementation. The returned
// Teardown is run after the inner part of the chain finished.
type WrapperFunc func(args []any) (Teardown, error)

// Teardown is the after phase of a wrapper. It receives the outcome of the
// inner chain and returns the outcome handed to the next outer wrapper.
// Returning (result, err) unchanged passes the outcome through.
type Teardown func(result any, err error) (any, error)

// Impl is one implementation registered for a hook.
type Impl struct {
	// Plugin is the name of the owning plugin.
	Plugin string
	// PluginObj is the registered plugin value, if any.
	PluginObj any
	// HookName is the hook this implementation answers.
	HookName string
	// ArgNames are the argument names the implementation consumes.
	ArgNames []string

	Function Func
	Wrapper  WrapperFunc

	TryFirst bool
	TryLast  bool
}

// NewImpl creates a plain implementation record.
func NewImpl(plugin, hookName string, argNames []string, fn Func) *Impl {
	return &Impl{
		Plugin:   plugin,
		HookName: hookName,
		ArgNames: argNames,
		Function: fn,
	}
}

// NewWrapperImpl creates a wrapper implementation record.
func NewWrapperImpl(plugin, hookName string, argNames []string, fn WrapperFunc) *Impl {
	return &Impl{
		Plugin:   plugin,
		HookName: hookName,
		ArgNames: argNames,
		Wrapper:  fn,
	}
}

// IsWrapper reports whether the implementation brackets the chain.
func (i *Impl) IsWrapper() bool {
	return i.Wrapper != nil
}

// Validate checks the record is usable by the engine.
func (i *Impl) Validate() error {
	switch {
	case i.Function == nil && i.Wrapper == nil:
		return fmt.Errorf("hook impl %s.%s has no function", i.Plugin, i.HookName)
	case i.Function != nil && i.Wrapper != nil:
		return fmt.Errorf("hook impl %s.%s is both plain and wrapper", i.Plugin, i.HookName)
	case i.TryFirst && i.TryLast:
		return fmt.Errorf("hook impl %s.%s cannot be both tryfirst and trylast", i.Plugin, i.HookName)
	}
	return nil
}

// String returns a short description of the implementation.
func (i *Impl) String() string {
	kind := "impl"
	if i.IsWrapper() {
		kind = "wrapper"
	}
	return fmt.Sprintf("<HookImpl %s plugin=%q hook=%q>", kind, i.Plugin, i.HookName)
}

// Bind returns the positional values for the implementation's arguments.
func (i *Impl) Bind(hookName string, args Args) ([]any, error) {
	values := make([]any, len(i.ArgNames))
	for n, name := range i.ArgNames {
		v, ok := args[name]
		if !ok {
			return nil, NewArgumentError(hookName, i.Plugin, name)
		}
		values[n] = v
	}
	return values, nil
}
