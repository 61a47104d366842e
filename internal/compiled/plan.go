// Package compiled builds frozen call plans for a fixed set of hook
// implementations.
//
// A Plan resolves, once, everything the generic multicall engine works out on
// every call: execution order, which records are wrappers, and where each
// implementation's arguments live. Running a plan is a loop over prepared
// steps. A plan never observes registry changes; it keeps dispatching to the
// set it was built from.
//
// Differences from hook.Multicall:
//   - panics raised by implementations are not recovered and wrappers do not
//     see them
//   - unknown argument names are not reported
//   - an implementation whose arguments match the plan's argument list exactly
//     receives the plan's shared value slice and must not retain or modify it
package compiled

import (
	"fmt"
	"strings"

	"yqhp/hookcall/internal/hook"
)

// step is one prepared call in execution order.
type step struct {
	symbol   string
	impl     *hook.Impl
	slots    []int
	identity bool
}

// Plan is a frozen call sequence for one hook.
type Plan struct {
	hookName    string
	firstResult bool
	argNames    []string
	required    []bool
	steps       []step
	symbols     map[string]*hook.Impl
	impls       []*hook.Impl
	plainCount  int
	wrapCount   int
}

// Compile builds a plan for impls, given in registration order. spec.ArgNames
// fixes the argument list; when empty, the union of the impls' argument names
// in first-seen execution order is used.
func Compile(spec hook.Spec, impls []*hook.Impl) (*Plan, error) {
	p := &Plan{
		hookName:    spec.Name,
		firstResult: spec.FirstResult,
		symbols:     make(map[string]*hook.Impl, len(impls)),
		impls:       append([]*hook.Impl(nil), impls...),
	}

	if len(spec.ArgNames) > 0 {
		p.argNames = append([]string(nil), spec.ArgNames...)
	} else {
		p.argNames = unionArgNames(impls)
	}
	index := make(map[string]int, len(p.argNames))
	for i, name := range p.argNames {
		index[name] = i
	}
	p.required = make([]bool, len(p.argNames))

	for i := len(impls) - 1; i >= 0; i-- {
		impl := impls[i]
		if err := impl.Validate(); err != nil {
			return nil, hook.NewInvalidImplError(spec.Name, impl.Plugin, err)
		}

		s := step{impl: impl, slots: make([]int, len(impl.ArgNames))}
		for n, name := range impl.ArgNames {
			slot, ok := index[name]
			if !ok {
				return nil, hook.NewInvalidImplError(spec.Name, impl.Plugin,
					fmt.Errorf("argument %q is not part of the plan arguments %v", name, p.argNames))
			}
			s.slots[n] = slot
			p.required[slot] = true
		}
		s.identity = isIdentity(s.slots, len(p.argNames))

		if impl.IsWrapper() {
			s.symbol = fmt.Sprintf("wrapper_%d", p.wrapCount)
			p.wrapCount++
		} else {
			s.symbol = fmt.Sprintf("impl_%d", p.plainCount)
			p.plainCount++
		}
		p.symbols[s.symbol] = impl
		p.steps = append(p.steps, s)
	}

	return p, nil
}

func unionArgNames(impls []*hook.Impl) []string {
	seen := make(map[string]bool)
	var names []string
	for i := len(impls) - 1; i >= 0; i-- {
		for _, name := range impls[i].ArgNames {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

func isIdentity(slots []int, n int) bool {
	if len(slots) != n {
		return false
	}
	for i, s := range slots {
		if s != i {
			return false
		}
	}
	return true
}

// HookName returns the hook the plan was built for.
func (p *Plan) HookName() string {
	return p.hookName
}

// ArgNames returns the plan's argument list, the order RunValues expects.
func (p *Plan) ArgNames() []string {
	return append([]string(nil), p.argNames...)
}

// FirstResult reports the aggregation policy the plan was built with.
func (p *Plan) FirstResult() bool {
	return p.firstResult
}

// Len returns the number of steps in the plan.
func (p *Plan) Len() int {
	return len(p.steps)
}

// Symbols returns the symbol table binding step names to implementations.
func (p *Plan) Symbols() map[string]*hook.Impl {
	out := make(map[string]*hook.Impl, len(p.symbols))
	for k, v := range p.symbols {
		out[k] = v
	}
	return out
}

// Matches reports whether impls is exactly the set the plan was built from.
// Plans never call it themselves; it is an advisory check for owners.
func (p *Plan) Matches(impls []*hook.Impl) bool {
	if len(impls) != len(p.impls) {
		return false
	}
	for i := range impls {
		if impls[i] != p.impls[i] {
			return false
		}
	}
	return true
}

// String renders the plan as a readable call listing.
func (p *Plan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "plan %s(%s) firstresult=%t\n", p.hookName, strings.Join(p.argNames, ", "), p.firstResult)
	for _, s := range p.steps {
		names := make([]string, len(s.slots))
		for i, slot := range s.slots {
			names[i] = p.argNames[slot]
		}
		verb := "call "
		if s.impl.IsWrapper() {
			verb = "enter"
		}
		fmt.Fprintf(&b, "  %s %s(%s)  # %s\n", verb, s.symbol, strings.Join(names, ", "), s.impl.Plugin)
	}
	for i := len(p.steps) - 1; i >= 0; i-- {
		if s := p.steps[i]; s.impl.IsWrapper() {
			fmt.Fprintf(&b, "  exit  %s  # %s\n", s.symbol, s.impl.Plugin)
		}
	}
	return b.String()
}
