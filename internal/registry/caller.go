package registry

import (
	"sync/atomic"

	"github.com/duke-git/lancet/v2/slice"

	"yqhp/hookcall/internal/compiled"
	"yqhp/hookcall/internal/hook"
)

// Caller 负责调用某个 hook 的全部实现。
// Caller 持有一份不可变的状态快照，注册变更时整体替换。
type Caller struct {
	name  string
	state atomic.Pointer[callerState]
}

// callerState 是 Caller 某一时刻的不可变快照
type callerState struct {
	spec     *hook.Spec
	impls    []*hook.Impl
	declared []string
	required []string
	plan     *compiled.Plan
	monitors []*monitor
}

func newCaller(name string) *Caller {
	c := &Caller{name: name}
	c.state.Store(&callerState{})
	return c
}

// update 基于当前快照构建新快照并替换
func (c *Caller) update(fn func(st *callerState)) {
	old := c.state.Load()
	st := &callerState{
		spec:     old.spec,
		impls:    old.impls,
		plan:     old.plan,
		monitors: old.monitors,
	}
	fn(st)

	var union []string
	for _, impl := range st.impls {
		union = append(union, impl.ArgNames...)
	}
	st.required = slice.Unique(union)
	if st.spec != nil {
		st.declared = st.spec.ArgNames
		if st.declared == nil {
			st.declared = []string{}
		}
	} else {
		st.declared = st.required
		if st.declared == nil {
			st.declared = []string{}
		}
	}
	c.state.Store(st)
}

// Name 返回 hook 名称
func (c *Caller) Name() string {
	return c.name
}

// Spec 返回 hook 规格，未添加规格时返回 nil
func (c *Caller) Spec() *hook.Spec {
	return c.state.Load().spec
}

// Impls 返回按注册顺序排列的实现列表副本
func (c *Caller) Impls() []*hook.Impl {
	impls := c.state.Load().impls
	out := make([]*hook.Impl, len(impls))
	copy(out, impls)
	return out
}

// Plan 返回编译后的调用计划，未编译时返回 nil
func (c *Caller) Plan() *compiled.Plan {
	return c.state.Load().plan
}

// IsCompiled 检查该 Caller 是否使用编译计划分发
func (c *Caller) IsCompiled() bool {
	return c.state.Load().plan != nil
}

// Stale 检查编译计划是否已经落后于当前注册的实现
func (c *Caller) Stale() bool {
	st := c.state.Load()
	return st.plan != nil && !st.plan.Matches(st.impls)
}

// FirstResult 返回 hook 的聚合策略
func (c *Caller) FirstResult() bool {
	st := c.state.Load()
	return st.spec != nil && st.spec.FirstResult
}

// Call 使用关键字参数调用 hook。
// 缺失或未声明的参数在任何实现运行之前返回 hook.CallError。
func (c *Caller) Call(args hook.Args) (any, error) {
	st := c.state.Load()
	if err := hook.CheckArgs(c.name, st.declared, st.required, args); err != nil {
		return nil, err
	}

	if len(st.monitors) == 0 {
		return st.dispatch(c.name, args)
	}

	for _, m := range st.monitors {
		if m.before != nil {
			m.before(c.name, st.impls, args)
		}
	}
	res, err := st.dispatch(c.name, args)
	for _, m := range st.monitors {
		if m.after != nil {
			m.after(res, err, c.name, st.impls, args)
		}
	}
	return res, err
}

func (st *callerState) dispatch(name string, args hook.Args) (any, error) {
	if st.plan != nil {
		return st.plan.Run(args)
	}
	return hook.Multicall(name, st.impls, args, st.spec != nil && st.spec.FirstResult)
}

// insertImpl 按调用顺序规则插入实现并返回新切片：
// 普通实现在前、wrapper 在后；每段内 trylast 在最前，tryfirst 在最后，
// 其余实现插在 tryfirst 之前。执行时从尾部向头部遍历。
func insertImpl(impls []*hook.Impl, impl *hook.Impl) []*hook.Impl {
	split := len(impls)
	for i, existing := range impls {
		if existing.IsWrapper() {
			split = i
			break
		}
	}

	start, end := 0, split
	if impl.IsWrapper() {
		start, end = split, len(impls)
	}

	var at int
	switch {
	case impl.TryLast:
		at = start
	case impl.TryFirst:
		at = end
	default:
		at = end - 1
		for at >= start && impls[at].TryFirst {
			at--
		}
		at++
	}

	out := make([]*hook.Impl, 0, len(impls)+1)
	out = append(out, impls[:at]...)
	out = append(out, impl)
	out = append(out, impls[at:]...)
	return out
}

// removePlugin 返回去除指定插件实现后的新切片
func removePlugin(impls []*hook.Impl, plugin string) []*hook.Impl {
	return slice.Filter(impls, func(_ int, impl *hook.Impl) bool {
		return impl.Plugin != plugin
	})
}
