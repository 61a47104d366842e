// Package registry 管理插件注册、hook 规格和 hook 调用入口。
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/duke-git/lancet/v2/maputil"
	"github.com/duke-git/lancet/v2/slice"
	"go.uber.org/zap"

	"yqhp/hookcall/internal/compiled"
	"yqhp/hookcall/internal/hook"
	"yqhp/hookcall/pkg/logger"
)

// ImplSpec 描述插件提供的一个 hook 实现。
// Func 与 Wrapper 必须且只能设置一个。
type ImplSpec struct {
	Hook     string
	ArgNames []string
	Func     hook.Func
	Wrapper  hook.WrapperFunc
	TryFirst bool
	TryLast  bool
}

// Plugin 是可注册到 Manager 的插件。
type Plugin interface {
	HookImpls() []ImplSpec
}

// PluginFunc 将函数适配为 Plugin。
type PluginFunc func() []ImplSpec

// HookImpls 实现 Plugin 接口。
func (f PluginFunc) HookImpls() []ImplSpec {
	return f()
}

// BeforeFunc 在 hook 调用前执行。
type BeforeFunc func(hookName string, impls []*hook.Impl, args hook.Args)

// AfterFunc 在 hook 调用后执行，接收调用结果。
type AfterFunc func(result any, err error, hookName string, impls []*hook.Impl, args hook.Args)

type monitor struct {
	before BeforeFunc
	after  AfterFunc
}

// Option 配置 Manager。
type Option func(*Manager)

// WithLogger 设置 Manager 使用的日志实例。
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// Manager 管理插件和 hook 调用者。
// 注册操作串行执行；调用通过 Caller 读取不可变快照，不加锁。
type Manager struct {
	project string
	log     *zap.Logger

	mu       sync.Mutex
	specs    map[string]*hook.Spec
	callers  map[string]*Caller
	plugins  map[string]Plugin
	order    []string
	monitors []*monitor
	compiled bool
}

// New 创建一个新的插件管理器。
func New(project string, opts ...Option) *Manager {
	m := &Manager{
		project: project,
		specs:   make(map[string]*hook.Spec),
		callers: make(map[string]*Caller),
		plugins: make(map[string]Plugin),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.L().Named("registry")
	}
	m.log = m.log.With(zap.String("project", project))
	return m
}

// Project 返回项目名称。
func (m *Manager) Project() string {
	return m.project
}

// AddHookSpecs 添加 hook 规格。
// 已注册的实现会按新规格校验，校验失败时不做任何修改。
func (m *Manager) AddHookSpecs(specs ...hook.Spec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			return newValidationError("", "", "hook spec name must not be empty", nil)
		}
		if _, exists := m.specs[spec.Name]; exists || seen[spec.Name] {
			return newDuplicateSpecError(spec.Name)
		}
		seen[spec.Name] = true

		if c, ok := m.callers[spec.Name]; ok {
			for _, impl := range c.state.Load().impls {
				if err := verifyArgNames(&spec, impl); err != nil {
					return err
				}
			}
		}
	}

	for i := range specs {
		spec := specs[i]
		spec.ArgNames = append([]string(nil), spec.ArgNames...)
		m.specs[spec.Name] = &spec
		c := m.callerLocked(spec.Name)
		c.update(func(st *callerState) {
			st.spec = &spec
		})
		m.refreshPlanLocked(c)
	}
	return nil
}

// Register 注册插件。
// 插件名重复或任一实现校验失败时返回错误，且不注册任何实现。
func (m *Manager) Register(name string, plugin Plugin) error {
	if plugin == nil {
		return newValidationError(name, "", "cannot register nil plugin", nil)
	}
	if name == "" {
		return newValidationError("", "", "plugin name must not be empty", nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.plugins[name]; exists {
		return newDuplicatePluginError(name)
	}

	specs := plugin.HookImpls()
	impls := make([]*hook.Impl, 0, len(specs))
	for _, s := range specs {
		impl := &hook.Impl{
			Plugin:    name,
			PluginObj: plugin,
			HookName:  s.Hook,
			ArgNames:  append([]string(nil), s.ArgNames...),
			Function:  s.Func,
			Wrapper:   s.Wrapper,
			TryFirst:  s.TryFirst,
			TryLast:   s.TryLast,
		}
		if s.Hook == "" {
			return newValidationError(name, "", "hook name must not be empty", nil)
		}
		if err := impl.Validate(); err != nil {
			return newValidationError(name, s.Hook, "invalid hook implementation", err)
		}
		if spec, ok := m.specs[s.Hook]; ok {
			if err := verifyArgNames(spec, impl); err != nil {
				return err
			}
		}
		impls = append(impls, impl)
	}

	m.plugins[name] = plugin
	m.order = append(m.order, name)

	touched := make(map[string]*Caller)
	for _, impl := range impls {
		c := m.callerLocked(impl.HookName)
		c.update(func(st *callerState) {
			st.impls = insertImpl(st.impls, impl)
		})
		touched[impl.HookName] = c
	}
	for _, c := range touched {
		m.refreshPlanLocked(c)
	}

	m.log.Debug("插件已注册", zap.String("plugin", name), zap.Int("impls", len(impls)))
	return nil
}

// MustRegister 注册插件，如果出错则 panic。
func (m *Manager) MustRegister(name string, plugin Plugin) {
	if err := m.Register(name, plugin); err != nil {
		panic(err)
	}
}

// Unregister 移除插件及其全部实现，返回被移除的插件。
func (m *Manager) Unregister(name string) (Plugin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	plugin, ok := m.plugins[name]
	if !ok {
		return nil, newPluginNotFoundError(name)
	}
	delete(m.plugins, name)
	m.order = slice.Filter(m.order, func(_ int, n string) bool { return n != name })

	for _, c := range m.callers {
		before := c.state.Load().impls
		after := removePlugin(before, name)
		if len(after) == len(before) {
			continue
		}
		c.update(func(st *callerState) {
			st.impls = after
		})
		m.refreshPlanLocked(c)
	}

	m.log.Debug("插件已移除", zap.String("plugin", name))
	return plugin, nil
}

// Plugins 按注册顺序返回插件名称。
func (m *Manager) Plugins() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

// Plugin 按名称获取插件，不存在时返回 nil。
func (m *Manager) Plugin(name string) Plugin {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plugins[name]
}

// HasPlugin 检查插件是否已注册。
func (m *Manager) HasPlugin(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.plugins[name]
	return ok
}

// Hook 按名称获取 hook 调用者。
// 既没有规格也没有实现的 hook 返回 nil。
func (m *Manager) Hook(name string) *Caller {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callers[name]
}

// Hooks 返回所有已知 hook 的名称（已排序）。
func (m *Manager) Hooks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := maputil.Keys(m.callers)
	sort.Strings(names)
	return names
}

// Compile 为所有 hook 构建编译调用计划，之后的调用走快速路径。
// 之后的注册变更不会刷新已有计划，只记录过期警告。
func (m *Manager) Compile() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	plans := make(map[*Caller]*compiled.Plan, len(m.callers))
	for name, c := range m.callers {
		plan, err := compileCaller(name, c.state.Load())
		if err != nil {
			return err
		}
		plans[c] = plan
	}
	for c, plan := range plans {
		c.update(func(st *callerState) {
			st.plan = plan
		})
	}
	m.compiled = true
	m.log.Info("hook 调用计划已编译", zap.Int("hooks", len(plans)))
	return nil
}

// Compiled 检查管理器是否处于编译模式。
func (m *Manager) Compiled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.compiled
}

// AddHookCallMonitoring 为所有 hook 调用添加前后回调，返回撤销函数。
func (m *Manager) AddHookCallMonitoring(before BeforeFunc, after AfterFunc) func() {
	mon := &monitor{before: before, after: after}

	m.mu.Lock()
	m.monitors = append(m.monitors, mon)
	m.syncMonitorsLocked()
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.monitors = slice.Filter(m.monitors, func(_ int, x *monitor) bool { return x != mon })
			m.syncMonitorsLocked()
		})
	}
}

// EnableTracing 以调试日志记录每次 hook 调用，返回撤销函数。
func (m *Manager) EnableTracing() func() {
	tracer := m.log.Named("trace")
	before := func(hookName string, impls []*hook.Impl, args hook.Args) {
		tracer.Debug("hook 调用",
			zap.String("hook", hookName),
			zap.Int("impls", len(impls)),
			zap.Strings("args", sortedKeys(args)),
		)
	}
	after := func(result any, err error, hookName string, _ []*hook.Impl, _ hook.Args) {
		if err != nil {
			tracer.Debug("hook 调用失败", zap.String("hook", hookName), zap.Error(err))
			return
		}
		tracer.Debug("hook 调用完成", zap.String("hook", hookName), zap.Any("result", result))
	}
	return m.AddHookCallMonitoring(before, after)
}

// callerLocked 获取或创建 hook 调用者，调用方需持有锁
func (m *Manager) callerLocked(name string) *Caller {
	c, ok := m.callers[name]
	if !ok {
		c = newCaller(name)
		c.update(func(st *callerState) {
			st.spec = m.specs[name]
			st.monitors = m.monitors
		})
		m.callers[name] = c
	}
	return c
}

// refreshPlanLocked 在编译模式下记录编译计划过期警告。
// 已编译的计划继续分发到编译时的实现集合，需要再次调用 Compile 刷新。
func (m *Manager) refreshPlanLocked(c *Caller) {
	if !m.compiled {
		return
	}
	st := c.state.Load()
	if st.plan == nil {
		// 编译后新出现的 hook 没有计划，走通用调用路径
		return
	}
	if c.Stale() {
		m.log.Warn("注册变更后编译计划已过期，请重新编译",
			zap.String("hook", c.name),
			zap.Int("planned", st.plan.Len()),
			zap.Int("registered", len(st.impls)),
		)
	}
}

func (m *Manager) syncMonitorsLocked() {
	monitors := append([]*monitor(nil), m.monitors...)
	for _, c := range m.callers {
		c.update(func(st *callerState) {
			st.monitors = monitors
		})
	}
}

func compileCaller(name string, st *callerState) (*compiled.Plan, error) {
	spec := hook.Spec{Name: name}
	if st.spec != nil {
		spec = *st.spec
	}
	plan, err := compiled.Compile(spec, st.impls)
	if err != nil {
		return nil, newCompileError(name, err)
	}
	return plan, nil
}

// verifyArgNames 校验实现参数是规格参数的子集
func verifyArgNames(spec *hook.Spec, impl *hook.Impl) error {
	extra := slice.Difference(impl.ArgNames, spec.ArgNames)
	if len(extra) == 0 {
		return nil
	}
	return newValidationError(impl.Plugin, spec.Name,
		fmt.Sprintf("argument(s) %v are declared in the implementation but not in the hook spec %v", extra, spec.ArgNames), nil)
}

func sortedKeys(args hook.Args) []string {
	keys := maputil.Keys(args)
	sort.Strings(keys)
	return keys
}
