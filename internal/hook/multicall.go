package hook

// Multicall executes impls for one hook call and returns the aggregate result.
//
// impls are in registration order and are executed from the last to the first.
// With firstResult the result is the first non-nil plain result (or nil);
// otherwise it is a []any holding every plain result in execution order.
func Multicall(hookName string, impls []*Impl, args Args, firstResult bool) (any, error) {
	var (
		results   []any
		first     any
		teardowns []*teardownFrame
		err       error
	)

	for i := len(impls) - 1; i >= 0; i-- {
		impl := impls[i]

		values, bindErr := impl.Bind(hookName, args)
		if bindErr != nil {
			err = bindErr
			break
		}

		if impl.IsWrapper() {
			td, enterErr := enterWrapper(hookName, impl, values)
			if enterErr != nil {
				err = enterErr
				break
			}
			teardowns = append(teardowns, &teardownFrame{impl: impl, fn: td})
			continue
		}

		if impl.Function == nil {
			err = NewInvalidImplError(hookName, impl.Plugin, impl.Validate())
			break
		}

		res, callErr := callPlain(hookName, impl, values)
		if callErr != nil {
			err = callErr
			break
		}

		if firstResult {
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
		if firstResult {
			outcome = first
		} else {
			if results == nil {
				results = []any{}
			}
			outcome = results
		}
	}

	return unwind(hookName, teardowns, outcome, err)
}

// teardownFrame is one entered wrapper waiting for the inner outcome.
type teardownFrame struct {
	impl *Impl
	fn   Teardown
}

// unwind runs teardowns innermost to outermost. Each frame receives the outcome
// its inner neighbour produced.
func unwind(hookName string, frames []*teardownFrame, result any, err error) (any, error) {
	for i := len(frames) - 1; i >= 0; i-- {
		frame := frames[i]
		if frame.fn == nil {
			continue
		}
		result, err = runTeardown(hookName, frame, result, err)
		if err != nil {
			result = nil
		}
	}
	return result, err
}

func callPlain(hookName string, impl *Impl, values []any) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, &PanicError{HookName: hookName, Plugin: impl.Plugin, Value: r}
		}
	}()
	return impl.Function(values)
}

func enterWrapper(hookName string, impl *Impl, values []any) (td Teardown, err error) {
	defer func() {
		if r := recover(); r != nil {
			td, err = nil, &PanicError{HookName: hookName, Plugin: impl.Plugin, Value: r}
		}
	}()
	return impl.Wrapper(values)
}

func runTeardown(hookName string, frame *teardownFrame, result any, inErr error) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, &PanicError{HookName: hookName, Plugin: frame.impl.Plugin, Value: r}
		}
	}()
	return frame.fn(result, inErr)
}

// AsList converts a non-firstresult aggregate to a slice. It returns nil for
// any other value.
func AsList(result any) []any {
	if list, ok := result.([]any); ok {
		return list
	}
	return nil
}
