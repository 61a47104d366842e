package script

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"yqhp/hookcall/internal/hook"
	"yqhp/hookcall/internal/registry"
)

// loadTimeout 脚本加载的最长执行时间
const loadTimeout = 5 * time.Second

// jsPlugin JavaScript 插件运行时
type jsPlugin struct {
	name  string
	vm    *goja.Runtime
	mu    sync.Mutex
	log   *zap.Logger
	impls []registry.ImplSpec
}

// NewJSPlugin 执行 JavaScript 源码并收集其中声明的 hook 实现
func NewJSPlugin(name, source string) (*Plugin, error) {
	p := &jsPlugin{
		name: name,
		vm:   goja.New(),
		log:  scriptLogger(name, JavaScript),
	}
	p.setupConsole()
	if err := p.vm.Set("hookimpl", p.hookimpl); err != nil {
		return nil, err
	}
	if err := p.vm.Set("hookwrapper", p.hookwrapper); err != nil {
		return nil, err
	}

	// 设置中断处理
	timer := time.AfterFunc(loadTimeout, func() {
		p.vm.Interrupt("脚本加载超时")
	})
	_, err := p.vm.RunString(source)
	timer.Stop()
	p.vm.ClearInterrupt()
	if err != nil {
		return nil, fmt.Errorf("加载 JS 插件 %s 失败: %w", name, err)
	}

	p.log.Debug("JS 插件已加载", zap.Int("impls", len(p.impls)))
	return &Plugin{name: name, lang: JavaScript, impls: p.impls}, nil
}

// setupConsole 设置 console 对象，输出写入调试日志
func (p *jsPlugin) setupConsole() {
	console := p.vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error"} {
		_ = console.Set(level, func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = arg.String()
			}
			p.log.Debug(strings.Join(parts, " "), zap.String("console", level))
			return goja.Undefined()
		})
	}
	_ = p.vm.Set("console", console)
}

// hookimpl(hook, argNames, fn, opts?)
func (p *jsPlugin) hookimpl(call goja.FunctionCall) goja.Value {
	hookName, argNames := p.declaration("hookimpl", call)
	fn, ok := goja.AssertFunction(call.Argument(2))
	if !ok {
		panic(p.vm.NewTypeError("hookimpl: implementation of %q must be a function", hookName))
	}

	spec := registry.ImplSpec{Hook: hookName, ArgNames: argNames, Func: p.plain(hookName, fn)}
	p.applyOptions(&spec, call.Argument(3))
	p.impls = append(p.impls, spec)
	return goja.Undefined()
}

// hookwrapper(hook, argNames, {before, after}, opts?)
func (p *jsPlugin) hookwrapper(call goja.FunctionCall) goja.Value {
	hookName, argNames := p.declaration("hookwrapper", call)
	phases := call.Argument(2)
	if isNullish(phases) {
		panic(p.vm.NewTypeError("hookwrapper: %q needs an object with before and/or after", hookName))
	}
	obj := phases.ToObject(p.vm)
	before, _ := goja.AssertFunction(obj.Get("before"))
	after, _ := goja.AssertFunction(obj.Get("after"))
	if before == nil && after == nil {
		panic(p.vm.NewTypeError("hookwrapper: %q needs before and/or after functions", hookName))
	}

	spec := registry.ImplSpec{Hook: hookName, ArgNames: argNames, Wrapper: p.wrapper(hookName, before, after)}
	p.applyOptions(&spec, call.Argument(3))
	p.impls = append(p.impls, spec)
	return goja.Undefined()
}

func (p *jsPlugin) declaration(fnName string, call goja.FunctionCall) (string, []string) {
	first := call.Argument(0)
	if isNullish(first) || first.String() == "" {
		panic(p.vm.NewTypeError("%s: hook name is required", fnName))
	}
	hookName := first.String()

	var argNames []string
	if v := call.Argument(1); !isNullish(v) {
		if err := p.vm.ExportTo(v, &argNames); err != nil {
			panic(p.vm.NewTypeError("%s: argument names of %q must be an array of strings", fnName, hookName))
		}
	}
	return hookName, argNames
}

func (p *jsPlugin) applyOptions(spec *registry.ImplSpec, v goja.Value) {
	if isNullish(v) {
		return
	}
	obj := v.ToObject(p.vm)
	spec.TryFirst = truthy(obj.Get("tryfirst"))
	spec.TryLast = truthy(obj.Get("trylast"))
}

func (p *jsPlugin) plain(hookName string, fn goja.Callable) hook.Func {
	return func(args []any) (any, error) {
		p.mu.Lock()
		defer p.mu.Unlock()

		res, err := fn(goja.Undefined(), p.values(args)...)
		if err != nil {
			return nil, &Error{Plugin: p.name, Hook: hookName, Phase: "call", Cause: err}
		}
		return exportJS(res), nil
	}
}

func (p *jsPlugin) wrapper(hookName string, before, after goja.Callable) hook.WrapperFunc {
	return func(args []any) (hook.Teardown, error) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if before != nil {
			if _, err := before(goja.Undefined(), p.values(args)...); err != nil {
				return nil, &Error{Plugin: p.name, Hook: hookName, Phase: "before", Cause: err}
			}
		}
		if after == nil {
			return nil, nil
		}

		return func(result any, err error) (any, error) {
			p.mu.Lock()
			defer p.mu.Unlock()

			var errVal goja.Value = goja.Null()
			if err != nil {
				errVal = p.vm.NewGoError(err)
			}
			ret, callErr := after(goja.Undefined(), p.vm.ToValue(result), errVal)
			if callErr != nil {
				return nil, &Error{Plugin: p.name, Hook: hookName, Phase: "after", Cause: callErr}
			}
			if ret == nil || goja.IsUndefined(ret) {
				return result, err
			}
			return exportJS(ret), nil
		}, nil
	}
}

func (p *jsPlugin) values(args []any) []goja.Value {
	vals := make([]goja.Value, len(args))
	for i, a := range args {
		vals[i] = p.vm.ToValue(a)
	}
	return vals
}

func exportJS(v goja.Value) any {
	if isNullish(v) {
		return nil
	}
	return v.Export()
}

func isNullish(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

func truthy(v goja.Value) bool {
	return v != nil && v.ToBoolean()
}
