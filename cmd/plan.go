package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"yqhp/hookcall/internal/bench"
	"yqhp/hookcall/internal/compiled"
	"yqhp/hookcall/internal/registry"
	"yqhp/hookcall/pkg/logger"
)

var (
	// plan 命令的 flags
	planPlugins  int
	planWrappers int
	planNesting  int
	planHook     string
	planScripts  []string
)

// planCmd 是 plan 子命令
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "显示编译后的调用计划",
	Long: `编译 hook 调用计划并打印执行顺序和符号表。

默认使用基准用例的 fun(hooks, nesting) hook；指定 --hook 时改为加载脚本插件，
显示该 hook 的计划。`,
	Example: `  # 用例 (5 个插件, 2 个 wrapper) 的计划
  hookbench plan --plugins 5 --wrappers 2

  # 脚本插件的计划
  hookbench plan --hook greet --script plugins/a.js --script plugins/b.lua`,
	Args: cobra.NoArgs,
	RunE: showPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().IntVar(&planPlugins, "plugins", 1, "插件数")
	planCmd.Flags().IntVar(&planWrappers, "wrappers", 0, "wrapper 数")
	planCmd.Flags().IntVar(&planNesting, "nesting", 0, "递归深度")
	planCmd.Flags().StringVar(&planHook, "hook", "", "脚本插件的 hook 名称")
	planCmd.Flags().StringArrayVar(&planScripts, "script", nil, "脚本插件路径 (可多次指定)")
}

func showPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var caller *registry.Caller
	if planHook != "" {
		session, err := openScripts(cfg, planScripts, true)
		if err != nil {
			return err
		}
		defer session.Close()
		if caller, err = session.lookupHook(planHook); err != nil {
			return err
		}
	} else {
		c := bench.Case{Plugins: planPlugins, Wrappers: planWrappers, Nesting: planNesting}
		f, err := bench.NewFixture(c, bench.Compiled, registry.WithLogger(logger.L().Named("registry")))
		if err != nil {
			return fmt.Errorf("创建用例 %s 失败: %w", c.ID(), err)
		}
		caller = f.Caller
	}

	plan := caller.Plan()
	if plan == nil {
		return fmt.Errorf("hook %q 没有调用计划", caller.Name())
	}
	return writePlan(cmd.OutOrStdout(), plan)
}

// writePlan 输出计划列表和按名称排序的符号表
func writePlan(w io.Writer, plan *compiled.Plan) error {
	if _, err := io.WriteString(w, plan.String()); err != nil {
		return err
	}

	symbols := plan.Symbols()
	names := make([]string, 0, len(symbols))
	for name := range symbols {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "\nsymbols (%d):\n", len(names))
	for _, name := range names {
		impl := symbols[name]
		kind := "impl"
		if impl.IsWrapper() {
			kind = "wrapper"
		}
		fmt.Fprintf(w, "  %-8s %-8s %s\n", name, kind, impl)
	}
	return nil
}
