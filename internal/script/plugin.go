// Package script 提供以 JavaScript 或 Lua 编写的 hook 插件。
//
// 脚本在加载时通过全局函数声明实现：
//
//	hookimpl(hook, argNames, fn, opts?)
//	hookwrapper(hook, argNames, {before, after}, opts?)   // JavaScript
//	hookwrapper(hook, argNames, before, after, opts?)     // Lua
//
// wrapper 的 after(result, err) 返回 undefined/nil 时保持原结果；
// 返回其他值时替换结果并清除错误；抛出异常时产生新的错误。
//
// 每个脚本插件持有独立的运行时，调用通过互斥锁串行执行。
// 脚本实现不能在调用过程中重入同一个插件。
package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"yqhp/hookcall/internal/registry"
	"yqhp/hookcall/pkg/logger"
)

// Language 脚本语言
type Language string

const (
	// JavaScript 使用 goja 执行
	JavaScript Language = "javascript"
	// Lua 使用 gopher-lua 执行
	Lua Language = "lua"
)

// Plugin 脚本插件，实现 registry.Plugin
type Plugin struct {
	name  string
	lang  Language
	impls []registry.ImplSpec
	close func()
}

// Name 返回插件名称
func (p *Plugin) Name() string {
	return p.name
}

// Language 返回脚本语言
func (p *Plugin) Language() Language {
	return p.lang
}

// HookImpls 返回脚本声明的 hook 实现
func (p *Plugin) HookImpls() []registry.ImplSpec {
	out := make([]registry.ImplSpec, len(p.impls))
	copy(out, p.impls)
	return out
}

// Close 释放脚本运行时
func (p *Plugin) Close() {
	if p.close != nil {
		p.close()
	}
}

// LoadFile 根据扩展名加载脚本插件，插件名为去掉扩展名的文件名
func LoadFile(path string) (*Plugin, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取脚本失败: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch ext {
	case ".js":
		return NewJSPlugin(name, string(source))
	case ".lua":
		return NewLuaPlugin(name, string(source))
	default:
		return nil, fmt.Errorf("不支持的脚本类型: %s", ext)
	}
}

// Error 脚本执行错误
type Error struct {
	Plugin string
	Hook   string
	Phase  string
	Cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("script plugin %q hook %q %s: %v", e.Plugin, e.Hook, e.Phase, e.Cause)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

func scriptLogger(name string, lang Language) *zap.Logger {
	return logger.L().Named("script").With(zap.String("plugin", name), zap.String("lang", string(lang)))
}
