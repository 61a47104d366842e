package compiled

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/hookcall/internal/hook"
)

func constant(plugin string, v any) *hook.Impl {
	return hook.NewImpl(plugin, "fun", nil, func([]any) (any, error) { return v, nil })
}

func TestCompile_CollectOrder(t *testing.T) {
	impls := []*hook.Impl{constant("p3", 3), constant("p2", 2), constant("p1", 1)}

	plan, err := Compile(hook.Spec{Name: "fun"}, impls)
	require.NoError(t, err)
	assert.Equal(t, 3, plan.Len())

	res, err := plan.Run(hook.Args{})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, res)
}

func TestCompile_FirstResultAndWrapper(t *testing.T) {
	doubler := hook.NewWrapperImpl("double", "fun", nil, func([]any) (hook.Teardown, error) {
		return func(result any, err error) (any, error) {
			if err != nil {
				return nil, err
			}
			return result.(int) * 2, nil
		}, nil
	})

	plan, err := Compile(hook.Spec{Name: "fun", FirstResult: true}, []*hook.Impl{constant("p", 5), doubler})
	require.NoError(t, err)
	assert.True(t, plan.FirstResult())

	res, err := plan.Run(hook.Args{})
	require.NoError(t, err)
	assert.Equal(t, 10, res)
}

func TestCompile_ArgumentSlots(t *testing.T) {
	spec := hook.Spec{Name: "fun", ArgNames: []string{"arg1", "arg2", "arg3"}}
	all := hook.NewImpl("all", "fun", []string{"arg1", "arg2", "arg3"}, func(args []any) (any, error) {
		return args, nil
	})
	some := hook.NewImpl("some", "fun", []string{"arg3", "arg1"}, func(args []any) (any, error) {
		return args, nil
	})

	plan, err := Compile(spec, []*hook.Impl{some, all})
	require.NoError(t, err)
	assert.Equal(t, []string{"arg1", "arg2", "arg3"}, plan.ArgNames())

	res, err := plan.Run(hook.Args{"arg1": 1, "arg2": 2, "arg3": 3})
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{1, 2, 3}, []any{3, 1}}, res)

	_, err = plan.Run(hook.Args{"arg1": 1, "arg2": 2})
	assert.True(t, hook.IsArgumentError(err))
}

func TestCompile_UnionArgNames(t *testing.T) {
	a := hook.NewImpl("a", "fun", []string{"x", "y"}, func([]any) (any, error) { return nil, nil })
	b := hook.NewImpl("b", "fun", []string{"z", "x"}, func([]any) (any, error) { return nil, nil })

	plan, err := Compile(hook.Spec{Name: "fun"}, []*hook.Impl{a, b})
	require.NoError(t, err)
	// b executes first, so its names come first.
	assert.Equal(t, []string{"z", "x", "y"}, plan.ArgNames())
}

func TestCompile_Rejects(t *testing.T) {
	t.Run("argument not declared by hook spec", func(t *testing.T) {
		impl := hook.NewImpl("p", "fun", []string{"other"}, func([]any) (any, error) { return nil, nil })
		_, err := Compile(hook.Spec{Name: "fun", ArgNames: []string{"arg1"}}, []*hook.Impl{impl})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"other"`)
	})

	t.Run("invalid record", func(t *testing.T) {
		_, err := Compile(hook.Spec{Name: "fun"}, []*hook.Impl{{Plugin: "empty"}})
		var callErr *hook.CallError
		require.ErrorAs(t, err, &callErr)
		assert.Equal(t, hook.ErrCodeInvalidImpl, callErr.Code)
	})
}

func TestPlan_WrapperErrorTranslation(t *testing.T) {
	errValue := errors.New("value error")
	failing := hook.NewImpl("p", "fun", nil, func([]any) (any, error) { return nil, errValue })
	rescue := hook.NewWrapperImpl("rescue", "fun", nil, func([]any) (hook.Teardown, error) {
		return func(result any, err error) (any, error) {
			if errors.Is(err, errValue) {
				return "substitute", nil
			}
			return result, err
		}, nil
	})

	plan, err := Compile(hook.Spec{Name: "fun", FirstResult: true}, []*hook.Impl{failing, rescue})
	require.NoError(t, err)
	res, err := plan.Run(hook.Args{})
	require.NoError(t, err)
	assert.Equal(t, "substitute", res)

	bare, err := Compile(hook.Spec{Name: "fun"}, []*hook.Impl{failing})
	require.NoError(t, err)
	_, err = bare.Run(hook.Args{})
	assert.Same(t, errValue, err)
}

func TestPlan_DoesNotRecoverPanics(t *testing.T) {
	boom := hook.NewImpl("boom", "fun", nil, func([]any) (any, error) { panic("boom") })
	plan, err := Compile(hook.Spec{Name: "fun"}, []*hook.Impl{boom})
	require.NoError(t, err)

	assert.Panics(t, func() { _, _ = plan.Run(hook.Args{}) })
}

func TestPlan_SymbolsAndMatches(t *testing.T) {
	p1 := constant("p1", 1)
	w := hook.NewWrapperImpl("w", "fun", nil, func([]any) (hook.Teardown, error) { return nil, nil })
	impls := []*hook.Impl{p1, w}

	plan, err := Compile(hook.Spec{Name: "fun"}, impls)
	require.NoError(t, err)

	symbols := plan.Symbols()
	assert.Same(t, w, symbols["wrapper_0"])
	assert.Same(t, p1, symbols["impl_0"])

	assert.True(t, plan.Matches(impls))
	assert.False(t, plan.Matches(impls[:1]))
	assert.False(t, plan.Matches([]*hook.Impl{p1, constant("other", 2)}))

	// The plan keeps dispatching to the set it was built from.
	impls[0] = constant("swapped", 99)
	res, err := plan.Run(hook.Args{})
	require.NoError(t, err)
	assert.Equal(t, []any{1}, res)
}

func TestPlan_String(t *testing.T) {
	w := hook.NewWrapperImpl("wrap_plug_0", "fun", nil, func([]any) (hook.Teardown, error) { return nil, nil })
	p := hook.NewImpl("plug_0", "fun", []string{"hooks", "nesting"}, func([]any) (any, error) { return nil, nil })

	plan, err := Compile(hook.Spec{Name: "fun", ArgNames: []string{"hooks", "nesting"}}, []*hook.Impl{p, w})
	require.NoError(t, err)

	out := plan.String()
	assert.Contains(t, out, "plan fun(hooks, nesting) firstresult=false")
	assert.Contains(t, out, "enter wrapper_0()  # wrap_plug_0")
	assert.Contains(t, out, "call  impl_0(hooks, nesting)  # plug_0")
	assert.Contains(t, out, "exit  wrapper_0  # wrap_plug_0")
	assert.Equal(t, "fun", plan.HookName())
}
