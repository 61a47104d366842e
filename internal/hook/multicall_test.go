package hook

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// returning creates a plain impl that ignores its arguments.
func returning(plugin string, v any) *Impl {
	return NewImpl(plugin, "fun", nil, func([]any) (any, error) {
		return v, nil
	})
}

// failing creates a plain impl returning err.
func failing(plugin string, err error) *Impl {
	return NewImpl(plugin, "fun", nil, func([]any) (any, error) {
		return nil, err
	})
}

// passthrough creates a wrapper that records its phases into events.
func passthrough(plugin string, events *[]string) *Impl {
	return NewWrapperImpl(plugin, "fun", nil, func([]any) (Teardown, error) {
		*events = append(*events, "enter "+plugin)
		return func(result any, err error) (any, error) {
			*events = append(*events, "exit "+plugin)
			return result, err
		}, nil
	})
}

func TestMulticall_CollectsInExecutionOrder(t *testing.T) {
	// The list is in registration order; execution runs from the end.
	impls := []*Impl{returning("p3", 3), returning("p2", 2), returning("p1", 1)}

	res, err := Multicall("fun", impls, Args{}, false)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, res)
}

func TestMulticall_LastRegisteredRunsFirst(t *testing.T) {
	impls := []*Impl{returning("p1", 1), returning("p2", 2), returning("p3", 3)}

	res, err := Multicall("fun", impls, Args{}, false)
	require.NoError(t, err)
	assert.Equal(t, []any{3, 2, 1}, res)
}

func TestMulticall_CollectKeepsNilResults(t *testing.T) {
	impls := []*Impl{returning("a", nil), returning("b", "x"), returning("c", nil)}

	res, err := Multicall("fun", impls, Args{}, false)
	require.NoError(t, err)
	assert.Equal(t, []any{nil, "x", nil}, res)
}

func TestMulticall_FirstResult(t *testing.T) {
	t.Run("single impl", func(t *testing.T) {
		res, err := Multicall("fun", []*Impl{returning("p", 42)}, Args{}, true)
		require.NoError(t, err)
		assert.Equal(t, 42, res)
	})

	t.Run("skips nil and stops at first value", func(t *testing.T) {
		called := false
		late := NewImpl("late", "fun", nil, func([]any) (any, error) {
			called = true
			return "late", nil
		})
		impls := []*Impl{late, returning("second", "hit"), returning("first", nil)}

		res, err := Multicall("fun", impls, Args{}, true)
		require.NoError(t, err)
		assert.Equal(t, "hit", res)
		assert.False(t, called)
	})

	t.Run("all nil", func(t *testing.T) {
		res, err := Multicall("fun", []*Impl{returning("a", nil), returning("b", nil)}, Args{}, true)
		require.NoError(t, err)
		assert.Nil(t, res)
	})
}

func TestMulticall_NoPlainImpls(t *testing.T) {
	var events []string

	res, err := Multicall("fun", nil, Args{}, false)
	require.NoError(t, err)
	assert.Equal(t, []any{}, res)

	res, err = Multicall("fun", []*Impl{passthrough("w", &events)}, Args{}, true)
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, []string{"enter w", "exit w"}, events)
}

func TestMulticall_BindsDeclaredArguments(t *testing.T) {
	impl := NewImpl("p", "fun", []string{"arg3", "arg1"}, func(args []any) (any, error) {
		return args[0].(int)*10 + args[1].(int), nil
	})

	res, err := Multicall("fun", []*Impl{impl}, Args{"arg1": 1, "arg2": 2, "arg3": 3}, true)
	require.NoError(t, err)
	assert.Equal(t, 31, res)
}

func TestMulticall_MissingArgument(t *testing.T) {
	var events []string
	impl := NewImpl("p", "fun", []string{"arg1"}, func([]any) (any, error) {
		return 1, nil
	})
	impls := []*Impl{impl, passthrough("w", &events)}

	_, err := Multicall("fun", impls, Args{}, false)
	require.Error(t, err)
	assert.True(t, IsArgumentError(err))
	assert.Contains(t, err.Error(), `"arg1"`)
	// The wrapper entered before the bad binding is still unwound.
	assert.Equal(t, []string{"enter w", "exit w"}, events)
}

func TestMulticall_WrapperDoublesAggregate(t *testing.T) {
	doubler := NewWrapperImpl("double", "fun", nil, func([]any) (Teardown, error) {
		return func(result any, err error) (any, error) {
			if err != nil {
				return nil, err
			}
			return result.(int) * 2, nil
		}, nil
	})

	res, err := Multicall("fun", []*Impl{returning("p", 5), doubler}, Args{}, true)
	require.NoError(t, err)
	assert.Equal(t, 10, res)
}

func TestMulticall_WrapperOrdering(t *testing.T) {
	var events []string
	plain := NewImpl("plain", "fun", nil, func([]any) (any, error) {
		events = append(events, "call plain")
		return nil, nil
	})
	impls := []*Impl{plain, passthrough("w1", &events), passthrough("w2", &events)}

	_, err := Multicall("fun", impls, Args{}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"enter w2", "enter w1", "call plain", "exit w1", "exit w2",
	}, events)
}

func TestMulticall_WrapperSeesInnerOutcome(t *testing.T) {
	var seen []any
	observe := func(name string, add int) *Impl {
		return NewWrapperImpl(name, "fun", nil, func([]any) (Teardown, error) {
			return func(result any, err error) (any, error) {
				seen = append(seen, result)
				return result.(int) + add, err
			}, nil
		})
	}
	impls := []*Impl{returning("p", 1), observe("inner", 10), observe("outer", 100)}

	res, err := Multicall("fun", impls, Args{}, true)
	require.NoError(t, err)
	assert.Equal(t, 111, res)
	assert.Equal(t, []any{1, 11}, seen)
}

func TestMulticall_ErrorPropagation(t *testing.T) {
	errValue := errors.New("value error")

	t.Run("unchanged without wrappers", func(t *testing.T) {
		_, err := Multicall("fun", []*Impl{failing("p", errValue)}, Args{}, false)
		assert.Same(t, errValue, err)
	})

	t.Run("aborts remaining plain impls", func(t *testing.T) {
		called := false
		after := NewImpl("after", "fun", nil, func([]any) (any, error) {
			called = true
			return nil, nil
		})
		_, err := Multicall("fun", []*Impl{after, failing("p", errValue)}, Args{}, false)
		assert.ErrorIs(t, err, errValue)
		assert.False(t, called)
	})

	t.Run("wrapper substitutes a value", func(t *testing.T) {
		rescue := NewWrapperImpl("rescue", "fun", nil, func([]any) (Teardown, error) {
			return func(result any, err error) (any, error) {
				if errors.Is(err, errValue) {
					return "substitute", nil
				}
				return result, err
			}, nil
		})
		res, err := Multicall("fun", []*Impl{failing("p", errValue), rescue}, Args{}, true)
		require.NoError(t, err)
		assert.Equal(t, "substitute", res)
	})

	t.Run("wrapper translates the error for outer wrappers", func(t *testing.T) {
		translated := errors.New("translated")
		var outerSaw error
		translate := NewWrapperImpl("translate", "fun", nil, func([]any) (Teardown, error) {
			return func(result any, err error) (any, error) {
				return nil, translated
			}, nil
		})
		outer := NewWrapperImpl("outer", "fun", nil, func([]any) (Teardown, error) {
			return func(result any, err error) (any, error) {
				outerSaw = err
				return result, err
			}, nil
		})
		_, err := Multicall("fun", []*Impl{failing("p", errValue), translate, outer}, Args{}, false)
		assert.Same(t, translated, err)
		assert.Same(t, translated, outerSaw)
	})

	t.Run("failing wrapper before phase", func(t *testing.T) {
		var events []string
		broken := NewWrapperImpl("broken", "fun", nil, func([]any) (Teardown, error) {
			return nil, errValue
		})
		called := false
		plain := NewImpl("p", "fun", nil, func([]any) (any, error) {
			called = true
			return 1, nil
		})
		_, err := Multicall("fun", []*Impl{plain, broken, passthrough("outer", &events)}, Args{}, false)
		assert.ErrorIs(t, err, errValue)
		assert.False(t, called)
		assert.Equal(t, []string{"enter outer", "exit outer"}, events)
	})
}

func TestMulticall_RecoversPanics(t *testing.T) {
	var seen error
	watcher := NewWrapperImpl("watch", "fun", nil, func([]any) (Teardown, error) {
		return func(result any, err error) (any, error) {
			seen = err
			return result, err
		}, nil
	})
	boom := NewImpl("boom", "fun", nil, func([]any) (any, error) {
		panic("boom")
	})

	_, err := Multicall("fun", []*Impl{boom, watcher}, Args{}, false)
	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "boom", panicErr.Plugin)
	assert.Equal(t, "boom", panicErr.Value)
	assert.Same(t, err, seen)
}

func TestMulticall_InvalidImpl(t *testing.T) {
	_, err := Multicall("fun", []*Impl{{Plugin: "empty", HookName: "fun"}}, Args{}, false)
	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, ErrCodeInvalidImpl, callErr.Code)
}

func TestAsList(t *testing.T) {
	assert.Equal(t, []any{1}, AsList([]any{1}))
	assert.Nil(t, AsList(42))
	assert.Nil(t, AsList(nil))
}
