// Property-based tests for the multicall engine.
// Property 1: without firstresult the aggregate has one entry per plain
// implementation, in execution order.
// Property 2: with firstresult the aggregate is the first non-nil plain result
// in execution order.
// Property 3: wrappers exit in the reverse order they entered.
package hook

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// buildChain creates impls from a layout where true marks a wrapper. Plain impl
// number i returns i; wrappers record enter/exit order into events.
func buildChain(layout []bool, events *[]int) []*Impl {
	impls := make([]*Impl, 0, len(layout))
	for i, isWrapper := range layout {
		idx := i
		if isWrapper {
			impls = append(impls, NewWrapperImpl("wrap", "fun", nil, func([]any) (Teardown, error) {
				*events = append(*events, idx)
				return func(result any, err error) (any, error) {
					*events = append(*events, -idx-1)
					return result, err
				}, nil
			}))
			continue
		}
		impls = append(impls, NewImpl("plain", "fun", nil, func([]any) (any, error) {
			return idx, nil
		}))
	}
	return impls
}

func TestMulticallCollectProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("one result per plain impl in execution order", prop.ForAll(
		func(layout []bool) bool {
			var events []int
			res, err := Multicall("fun", buildChain(layout, &events), Args{}, false)
			if err != nil {
				return false
			}

			var expected []any
			for i := len(layout) - 1; i >= 0; i-- {
				if !layout[i] {
					expected = append(expected, i)
				}
			}

			list := AsList(res)
			if len(list) != len(expected) {
				return false
			}
			for i := range list {
				if list[i] != expected[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.Property("wrappers exit in reverse entry order", prop.ForAll(
		func(layout []bool) bool {
			var events []int
			if _, err := Multicall("fun", buildChain(layout, &events), Args{}, false); err != nil {
				return false
			}

			var entered, exited []int
			for _, e := range events {
				if e >= 0 {
					entered = append(entered, e)
				} else {
					exited = append(exited, -e-1)
				}
			}
			if len(entered) != len(exited) {
				return false
			}
			for i := range entered {
				if entered[i] != exited[len(exited)-1-i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}

func TestMulticallFirstResultProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// values[i] < 0 means the impl returns nil.
	properties.Property("first non-nil result in execution order wins", prop.ForAll(
		func(values []int) bool {
			impls := make([]*Impl, len(values))
			for i, v := range values {
				v := v
				impls[i] = NewImpl("plain", "fun", nil, func([]any) (any, error) {
					if v < 0 {
						return nil, nil
					}
					return v, nil
				})
			}

			res, err := Multicall("fun", impls, Args{}, true)
			if err != nil {
				return false
			}

			var expected any
			for i := len(values) - 1; i >= 0; i-- {
				if values[i] >= 0 {
					expected = values[i]
					break
				}
			}
			return res == expected
		},
		gen.SliceOf(gen.IntRange(-3, 10)),
	))

	properties.TestingRun(t)
}
