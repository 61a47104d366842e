package compiled

import "yqhp/hookcall/internal/hook"

// Run executes the plan with keyword arguments.
func (p *Plan) Run(args hook.Args) (any, error) {
	values := make([]any, len(p.argNames))
	for i, name := range p.argNames {
		v, ok := args[name]
		if !ok {
			if p.required[i] {
				return nil, hook.NewArgumentError(p.hookName, "", name)
			}
			continue
		}
		values[i] = v
	}
	return p.RunValues(values)
}

// RunValues executes the plan with values in ArgNames order.
func (p *Plan) RunValues(values []any) (any, error) {
	var (
		results   []any
		first     any
		teardowns []hook.Teardown
		err       error
	)
	if !p.firstResult {
		results = make([]any, 0, p.plainCount)
	}
	if p.wrapCount > 0 {
		teardowns = make([]hook.Teardown, 0, p.wrapCount)
	}

	for i := range p.steps {
		s := &p.steps[i]
		args := values
		if !s.identity {
			args = make([]any, len(s.slots))
			for n, slot := range s.slots {
				args[n] = values[slot]
			}
		}

		if s.impl.Wrapper != nil {
			td, enterErr := s.impl.Wrapper(args)
			if enterErr != nil {
				err = enterErr
				break
			}
			teardowns = append(teardowns, td)
			continue
		}

		res, callErr := s.impl.Function(args)
		if callErr != nil {
			err = callErr
			break
		}
		if p.firstResult {
			if res != nil {
				first = res
				break
			}
			continue
		}
		results = append(results, res)
	}

	var outcome any
	if err == nil {
		if p.firstResult {
			outcome = first
		} else {
			outcome = results
		}
	}

	for i := len(teardowns) - 1; i >= 0; i-- {
		if teardowns[i] == nil {
			continue
		}
		outcome, err = teardowns[i](outcome, err)
		if err != nil {
			outcome = nil
		}
	}
	return outcome, err
}
