package cmd

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"yqhp/hookcall/internal/hook"
)

var (
	// call 命令的 flags
	callScripts []string
	callCompile bool
)

// callCmd 是 call 子命令
var callCmd = &cobra.Command{
	Use:   "call <hook> [json-args]",
	Short: "加载脚本插件并调用 hook",
	Long: `加载 JavaScript / Lua 脚本插件，以 JSON 对象作为关键字参数调用 hook，
结果以 JSON 输出。hook 规格来自配置文件的 plugins.hooks。`,
	Example: `  # 调用 greet(name)
  hookbench call greet '{"name": "world"}' --script plugins/greet.js

  # 使用编译计划调用
  hookbench call --compile sum '{"a": 1, "b": 2}' --script plugins/sum.lua`,
	Args: cobra.RangeArgs(1, 2),
	RunE: callHook,
}

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().StringArrayVar(&callScripts, "script", nil, "脚本插件路径 (可多次指定)")
	callCmd.Flags().BoolVar(&callCompile, "compile", false, "编译调用计划后再调用")
}

func callHook(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	kwargs := hook.Args{}
	if len(args) > 1 {
		if err := sonic.UnmarshalString(args[1], &kwargs); err != nil {
			return fmt.Errorf("解析参数失败: %w", err)
		}
	}

	session, err := openScripts(cfg, callScripts, callCompile)
	if err != nil {
		return err
	}
	defer session.Close()

	caller, err := session.lookupHook(args[0])
	if err != nil {
		return err
	}

	result, err := caller.Call(kwargs)
	if err != nil {
		return fmt.Errorf("调用 hook %s 失败: %w", args[0], err)
	}

	data, err := sonic.ConfigStd.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化结果失败: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
