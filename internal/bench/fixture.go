package bench

import (
	"fmt"

	"yqhp/hookcall/internal/compiled"
	"yqhp/hookcall/internal/hook"
	"yqhp/hookcall/internal/registry"
)

// HookName 用例表使用的 hook 名称
const HookName = "fun"

// FunSpec 是 fun(hooks, nesting) 的规格
var FunSpec = hook.Spec{Name: HookName, ArgNames: []string{"hooks", "nesting"}}

// Invoker 可以用关键字参数调用的 hook
type Invoker interface {
	Call(args hook.Args) (any, error)
}

// Target 是被测量的一次调用
type Target interface {
	Call() (any, error)
}

// Fixture 按用例注册插件后的管理器和调用入口
type Fixture struct {
	Case     Case
	Strategy Strategy
	Manager  *registry.Manager
	Caller   *registry.Caller
}

// NewFixture 创建用例夹具：plug_i 插件的 fun 通过调用者递归 nesting 次，
// wrap_plug_i 插件是透传 wrapper。Compiled 策略在注册完成后编译。
func NewFixture(c Case, s Strategy, opts ...registry.Option) (*Fixture, error) {
	m := registry.New("example", opts...)
	if err := m.AddHookSpecs(FunSpec); err != nil {
		return nil, err
	}

	for i := 0; i < c.Plugins; i++ {
		if err := m.Register(fmt.Sprintf("plug_%d", i), &nestingPlugin{num: i}); err != nil {
			return nil, err
		}
	}
	for i := 0; i < c.Wrappers; i++ {
		if err := m.Register(fmt.Sprintf("wrap_plug_%d", i), &passWrapperPlugin{num: i}); err != nil {
			return nil, err
		}
	}

	switch s {
	case Generic:
	case Compiled:
		if err := m.Compile(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("未知的调用策略: %q", s)
	}

	return &Fixture{Case: c, Strategy: s, Manager: m, Caller: m.Hook(HookName)}, nil
}

// Call 以 fun(hooks=caller, nesting=case.Nesting) 调用 hook
func (f *Fixture) Call() (any, error) {
	return f.Caller.Call(hook.Args{"hooks": f.Caller, "nesting": f.Case.Nesting})
}

// nestingPlugin 的 fun 在 nesting > 0 时递归调用 hooks
type nestingPlugin struct {
	num int
}

func (p *nestingPlugin) String() string {
	return fmt.Sprintf("<Plugin %d>", p.num)
}

func (p *nestingPlugin) HookImpls() []registry.ImplSpec {
	return []registry.ImplSpec{{
		Hook:     HookName,
		ArgNames: []string{"hooks", "nesting"},
		Func: func(args []any) (any, error) {
			hooks, ok := args[0].(Invoker)
			if !ok {
				return nil, fmt.Errorf("hooks argument is %T, not a hook caller", args[0])
			}
			nesting, ok := args[1].(int)
			if !ok {
				return nil, fmt.Errorf("nesting argument is %T, not an int", args[1])
			}
			if nesting > 0 {
				if _, err := hooks.Call(hook.Args{"hooks": hooks, "nesting": nesting - 1}); err != nil {
					return nil, err
				}
			}
			return nil, nil
		},
	}}
}

// passWrapperPlugin 是不接收参数的透传 wrapper
type passWrapperPlugin struct {
	num int
}

func (p *passWrapperPlugin) String() string {
	return fmt.Sprintf("<PluginWrap %d>", p.num)
}

func (p *passWrapperPlugin) HookImpls() []registry.ImplSpec {
	return []registry.ImplSpec{{Hook: HookName, Wrapper: passThrough}}
}

func passThrough([]any) (hook.Teardown, error) {
	return passTeardown, nil
}

func passTeardown(result any, err error) (any, error) {
	return result, err
}

// MulticallArgs multicall 微基准的调用参数
var MulticallArgs = hook.Args{"arg1": 1, "arg2": 2, "arg3": 3}

// MulticallFixture 直接驱动 multicall 引擎的夹具
type MulticallFixture struct {
	Hooks    int
	Wrappers int
	Strategy Strategy
	Impls    []*hook.Impl
	Plan     *compiled.Plan
}

// NewMulticallFixture 构建 hooks 个 (arg1, arg2, arg3) 实现和 wrappers 个透传 wrapper
func NewMulticallFixture(hooks, wrappers int, s Strategy) (*MulticallFixture, error) {
	argNames := []string{"arg1", "arg2", "arg3"}
	impls := make([]*hook.Impl, 0, hooks+wrappers)
	for i := 0; i < hooks; i++ {
		impls = append(impls, hook.NewImpl("<temp>", "foo", argNames, echoArgs))
	}
	for i := 0; i < wrappers; i++ {
		impls = append(impls, hook.NewWrapperImpl("<temp>", "foo", argNames, passThrough))
	}

	f := &MulticallFixture{Hooks: hooks, Wrappers: wrappers, Strategy: s, Impls: impls}
	switch s {
	case Generic:
	case Compiled:
		plan, err := compiled.Compile(hook.Spec{Name: "foo", ArgNames: argNames}, impls)
		if err != nil {
			return nil, err
		}
		f.Plan = plan
	default:
		return nil, fmt.Errorf("未知的调用策略: %q", s)
	}
	return f, nil
}

// Call 执行一次 multicall
func (f *MulticallFixture) Call() (any, error) {
	if f.Plan != nil {
		return f.Plan.Run(MulticallArgs)
	}
	return hook.Multicall("foo", f.Impls, MulticallArgs, false)
}

func echoArgs(args []any) (any, error) {
	return [3]any{args[0], args[1], args[2]}, nil
}
