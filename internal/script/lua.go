package script

import (
	"context"
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"yqhp/hookcall/internal/hook"
	"yqhp/hookcall/internal/registry"
)

// luaPlugin Lua 插件运行时
type luaPlugin struct {
	name   string
	L      *lua.LState
	mu     sync.Mutex
	log    *zap.Logger
	impls  []registry.ImplSpec
	closed bool
}

// NewLuaPlugin 执行 Lua 源码并收集其中声明的 hook 实现
func NewLuaPlugin(name, source string) (*Plugin, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)

	p := &luaPlugin{
		name: name,
		L:    L,
		log:  scriptLogger(name, Lua),
	}
	L.SetGlobal("hookimpl", L.NewFunction(p.hookimpl))
	L.SetGlobal("hookwrapper", L.NewFunction(p.hookwrapper))
	L.SetGlobal("print", L.NewFunction(p.print))

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	L.SetContext(ctx)
	err := L.DoString(source)
	cancel()
	L.RemoveContext()
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("加载 Lua 插件 %s 失败: %w", name, err)
	}

	p.log.Debug("Lua 插件已加载", zap.Int("impls", len(p.impls)))
	return &Plugin{name: name, lang: Lua, impls: p.impls, close: p.close}, nil
}

// openSafeLibraries 只打开不访问文件系统和进程的标准库
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

func (p *luaPlugin) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		p.L.Close()
	}
}

func (p *luaPlugin) print(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, n)
	for i := 1; i <= n; i++ {
		parts[i-1] = L.ToStringMeta(L.Get(i)).String()
	}
	p.log.Debug(strings.Join(parts, " "), zap.String("console", "print"))
	return 0
}

// hookimpl(hook, {args}, fn, opts?)
func (p *luaPlugin) hookimpl(L *lua.LState) int {
	hookName := L.CheckString(1)
	argNames := p.argNames(L, 2)
	fn := L.CheckFunction(3)

	spec := registry.ImplSpec{Hook: hookName, ArgNames: argNames, Func: p.plain(hookName, fn)}
	p.applyOptions(L, &spec, 4)
	p.impls = append(p.impls, spec)
	return 0
}

// hookwrapper(hook, {args}, before, after, opts?)
func (p *luaPlugin) hookwrapper(L *lua.LState) int {
	hookName := L.CheckString(1)
	argNames := p.argNames(L, 2)
	before := L.OptFunction(3, nil)
	after := L.OptFunction(4, nil)
	if before == nil && after == nil {
		L.ArgError(3, "wrapper needs a before and/or after function")
		return 0
	}

	spec := registry.ImplSpec{Hook: hookName, ArgNames: argNames, Wrapper: p.wrapper(hookName, before, after)}
	p.applyOptions(L, &spec, 5)
	p.impls = append(p.impls, spec)
	return 0
}

func (p *luaPlugin) argNames(L *lua.LState, n int) []string {
	tbl := L.OptTable(n, nil)
	if tbl == nil {
		return nil
	}
	names := make([]string, 0, tbl.Len())
	for i := 1; i <= tbl.Len(); i++ {
		s, ok := tbl.RawGetInt(i).(lua.LString)
		if !ok {
			L.ArgError(n, "argument names must be strings")
			return nil
		}
		names = append(names, string(s))
	}
	return names
}

func (p *luaPlugin) applyOptions(L *lua.LState, spec *registry.ImplSpec, n int) {
	opts := L.OptTable(n, nil)
	if opts == nil {
		return
	}
	spec.TryFirst = lua.LVAsBool(opts.RawGetString("tryfirst"))
	spec.TryLast = lua.LVAsBool(opts.RawGetString("trylast"))
}

func (p *luaPlugin) plain(hookName string, fn *lua.LFunction) hook.Func {
	return func(args []any) (any, error) {
		p.mu.Lock()
		defer p.mu.Unlock()

		ret, err := p.call(fn, p.values(args)...)
		if err != nil {
			return nil, &Error{Plugin: p.name, Hook: hookName, Phase: "call", Cause: err}
		}
		return fromLua(ret), nil
	}
}

func (p *luaPlugin) wrapper(hookName string, before, after *lua.LFunction) hook.WrapperFunc {
	return func(args []any) (hook.Teardown, error) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if before != nil {
			if _, err := p.call(before, p.values(args)...); err != nil {
				return nil, &Error{Plugin: p.name, Hook: hookName, Phase: "before", Cause: err}
			}
		}
		if after == nil {
			return nil, nil
		}

		return func(result any, err error) (any, error) {
			p.mu.Lock()
			defer p.mu.Unlock()

			var errVal lua.LValue = lua.LNil
			if err != nil {
				errVal = lua.LString(err.Error())
			}
			ret, callErr := p.call(after, toLua(p.L, result), errVal)
			if callErr != nil {
				return nil, &Error{Plugin: p.name, Hook: hookName, Phase: "after", Cause: callErr}
			}
			if ret == lua.LNil {
				return result, err
			}
			return fromLua(ret), nil
		}, nil
	}
}

// call 调用 Lua 函数并取第一个返回值，调用方需持有锁
func (p *luaPlugin) call(fn *lua.LFunction, args ...lua.LValue) (lua.LValue, error) {
	if p.closed {
		return lua.LNil, fmt.Errorf("lua state closed")
	}
	if err := p.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		return lua.LNil, err
	}
	ret := p.L.Get(-1)
	p.L.Pop(1)
	return ret, nil
}

func (p *luaPlugin) values(args []any) []lua.LValue {
	vals := make([]lua.LValue, len(args))
	for i, a := range args {
		vals[i] = toLua(p.L, a)
	}
	return vals
}
