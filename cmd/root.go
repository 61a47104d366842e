// Package cmd 提供 hookbench CLI 的命令实现
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yqhp/hookcall/internal/config"
	"yqhp/hookcall/internal/registry"
	"yqhp/hookcall/internal/script"
	"yqhp/hookcall/pkg/logger"

	// 导入所有输出插件
	_ "yqhp/hookcall/pkg/output/all"
)

const (
	// Version 是当前版本号
	Version = "0.1.0"
	// Banner 是启动时显示的 ASCII 艺术
	Banner = `
    __                __   __                      __
   / /_  ____  ____  / /__/ /_  ___  ____  _____  / /_
  / __ \/ __ \/ __ \/ //_/ __ \/ _ \/ __ \/ ___/ / __ \
 / / / / /_/ / /_/ / ,< / /_/ /  __/ / / / /__  / / / /
/_/ /_/\____/\____/_/|_/_.___/\___/_/ /_/\___/ /_/ /_/  %s
`
)

var (
	// 全局配置
	cfgFile   string
	debug     bool
	quiet     bool
	overrides []string
)

// rootCmd 是根命令
var rootCmd = &cobra.Command{
	Use:   "hookbench",
	Short: "插件 hook 调用基准测试工具",
	Long: `hookbench 测量插件 hook 调用的开销，对比通用 multicall 路径与编译调用计划，
并可以加载 JavaScript / Lua 脚本插件直接调用 hook。`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute 执行根命令
func Execute() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// 全局 flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "启用调试日志")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "静默模式")
	rootCmd.PersistentFlags().StringArrayVar(&overrides, "set", nil, "覆盖配置项 (可多次指定)，格式: key=value")

	// 禁用默认的 completion 命令
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// 自定义版本模板
	rootCmd.SetVersionTemplate(fmt.Sprintf(Banner, Version) + "\n")
}

// GetRootCmd 返回根命令（用于测试）
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// loadConfig 按 默认值 < 配置文件 < 环境变量 < --set 的顺序加载配置，并初始化日志
func loadConfig() (*config.Config, error) {
	args, err := config.ParseOverrides(overrides)
	if err != nil {
		return nil, err
	}
	cfg, err := config.NewLoader().
		WithConfigPath(cfgFile).
		WithCmdArgs(args).
		LoadAndValidate()
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	logCfg := &logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	}
	logger.Init(logCfg)
	logger.SetLevelFromString(cfg.Logging.Level)
	switch {
	case debug:
		logger.EnableDebug()
	case quiet:
		logger.SetLevelFromString("error")
	}
	return cfg, nil
}

// scriptSession 加载了脚本插件的管理器
type scriptSession struct {
	manager *registry.Manager
	plugins []*script.Plugin
	untrace func()
}

// openScripts 注册配置中的 hook 规格并加载脚本插件
func openScripts(cfg *config.Config, paths []string, compile bool) (*scriptSession, error) {
	m := registry.New("hookbench", registry.WithLogger(logger.L().Named("registry")))
	if err := m.AddHookSpecs(cfg.Plugins.Hooks...); err != nil {
		return nil, err
	}

	s := &scriptSession{manager: m}
	if cfg.Plugins.Trace {
		s.untrace = m.EnableTracing()
	}
	for _, path := range append(append([]string{}, cfg.Plugins.Scripts...), paths...) {
		p, err := script.LoadFile(path)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("加载脚本 %s 失败: %w", path, err)
		}
		s.plugins = append(s.plugins, p)
		if err := m.Register(p.Name(), p); err != nil {
			s.Close()
			return nil, err
		}
		logger.Debug("脚本插件已加载",
			zap.String("plugin", p.Name()),
			zap.String("language", string(p.Language())),
		)
	}

	if compile || cfg.Plugins.Compile {
		if err := m.Compile(); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close 释放所有脚本运行时
func (s *scriptSession) Close() {
	if s.untrace != nil {
		s.untrace()
	}
	for _, p := range s.plugins {
		p.Close()
	}
}

// lookupHook 返回已注册的 hook 调用者
func (s *scriptSession) lookupHook(name string) (*registry.Caller, error) {
	c := s.manager.Hook(name)
	if c == nil {
		return nil, fmt.Errorf("未知的 hook %q，可用: %s", name, strings.Join(s.manager.Hooks(), ", "))
	}
	return c, nil
}
