package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"yqhp/hookcall/internal/bench"
	"yqhp/hookcall/internal/config"
	"yqhp/hookcall/pkg/logger"
	"yqhp/hookcall/pkg/output"
)

var (
	// run 命令的 flags
	runIterations  int
	runWarmup      int
	runMaxDuration time.Duration
	runStrategies  []string
	runMulticall   bool
	runFormat      string
	runJSONOutput  string
	runOutputs     []string
)

// runCmd 是 run 子命令
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "执行 hook 调用基准测试",
	Long: `按用例表测量 hook 调用延迟。

每个用例是 (插件数, wrapper 数, 递归深度) 的组合，分别在两种策略下执行：
  - generic: 通过注册表调用者走通用 multicall 路径
  - compiled: 注册完成后编译调用计划`,
	Example: `  # 默认用例表
  hookbench run

  # 指定迭代次数和策略
  hookbench run -i 50000 --strategy compiled

  # 同时测量 multicall 并输出 JSON 报告
  hookbench run --multicall --format both --out-json report.json

  # 多个输出目标
  hookbench run --out console --out json=report.json`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// run 命令的 flags
	runCmd.Flags().IntVarP(&runIterations, "iterations", "i", 0, "每个用例的调用次数 (覆盖配置)")
	runCmd.Flags().IntVar(&runWarmup, "warmup", -1, "预热调用次数 (覆盖配置)")
	runCmd.Flags().DurationVarP(&runMaxDuration, "max-duration", "d", 0, "每个用例的最长测量时间 (覆盖配置)")
	runCmd.Flags().StringSliceVarP(&runStrategies, "strategy", "s", nil, "调用策略 (generic, compiled)，可多次指定")
	runCmd.Flags().BoolVar(&runMulticall, "multicall", false, "同时测量 multicall 引擎")
	runCmd.Flags().StringVar(&runFormat, "format", "", "报告格式 (table, json, both)")
	runCmd.Flags().StringVar(&runJSONOutput, "out-json", "", "JSON 报告输出路径")
	runCmd.Flags().StringArrayVarP(&runOutputs, "out", "o", nil, "报告输出目标 (可多次指定)，格式: type=config")
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts, err := benchOptions(&cfg.Bench)
	if err != nil {
		return err
	}

	// 创建可取消的上下文
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 处理关闭信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\n正在中止测试...")
			cancel()
		case <-ctx.Done():
		}
	}()

	outputs, err := output.FromSpecs(reportOutputs(&cfg.Report, runOutputs), output.Params{
		Writer: cmd.OutOrStdout(),
		Logger: logger.L().Named("output"),
	})
	if err != nil {
		return err
	}

	if !quiet {
		printRunInfo(cmd, opts)
	}

	startedAt := time.Now()
	results, runErr := bench.NewRunner(logger.L().Named("bench")).Run(ctx, opts)
	if len(results) == 0 && runErr != nil {
		return fmt.Errorf("执行失败: %w", runErr)
	}

	rep := bench.NewReport(startedAt, results)
	if err := outputs.WriteReport(rep); err != nil {
		return fmt.Errorf("写入报告失败: %w", err)
	}

	if runErr != nil {
		return fmt.Errorf("测量中止: %w", runErr)
	}
	return nil
}

// applyRunFlags 将显式指定的命令行参数写入配置
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("iterations") {
		cfg.Bench.Iterations = runIterations
	}
	if flags.Changed("warmup") {
		cfg.Bench.Warmup = runWarmup
	}
	if flags.Changed("max-duration") {
		cfg.Bench.MaxDuration = runMaxDuration
	}
	if flags.Changed("strategy") {
		cfg.Bench.Strategies = runStrategies
	}
	if flags.Changed("multicall") {
		cfg.Bench.Multicall = runMulticall
	}
	if flags.Changed("format") {
		cfg.Report.Format = runFormat
	}
	if flags.Changed("out-json") {
		cfg.Report.Path = runJSONOutput
	}
}

// reportOutputs 根据报告格式和 --out 参数生成输出列表
func reportOutputs(cfg *config.ReportConfig, extra []string) []string {
	var specs []string
	switch strings.ToLower(cfg.Format) {
	case "table":
		specs = append(specs, "console")
	case "json":
		specs = append(specs, "json="+cfg.Path)
	case "both":
		specs = append(specs, "console", "json="+cfg.Path)
	}
	return append(specs, extra...)
}

// benchOptions 将配置转换为运行参数
func benchOptions(cfg *config.BenchConfig) (bench.Options, error) {
	strategies, err := bench.ParseStrategies(cfg.Strategies)
	if err != nil {
		return bench.Options{}, err
	}

	var cases []bench.Case
	for _, c := range cfg.Cases {
		cases = append(cases, bench.Case{Plugins: c.Plugins, Wrappers: c.Wrappers, Nesting: c.Nesting})
	}

	return bench.Options{
		Cases:       cases,
		Strategies:  strategies,
		Iterations:  cfg.Iterations,
		Warmup:      cfg.Warmup,
		MaxDuration: cfg.MaxDuration,
		Multicall:   cfg.Multicall,
	}, nil
}

func printRunInfo(cmd *cobra.Command, opts bench.Options) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, Banner, Version)
	fmt.Fprintln(out)

	cases := len(opts.Cases)
	if cases == 0 {
		cases = len(bench.DefaultCases())
	}
	fmt.Fprintf(out, "  用例数: %d\n", cases)
	fmt.Fprintf(out, "  调用策略: %v\n", opts.Strategies)
	fmt.Fprintf(out, "  迭代次数: %d (预热 %d)\n", opts.Iterations, opts.Warmup)
	if opts.MaxDuration > 0 {
		fmt.Fprintf(out, "  最长时间: %s\n", opts.MaxDuration)
	}
	if opts.Multicall {
		fmt.Fprintln(out, "  multicall: 启用")
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "执行中...")
	fmt.Fprintln(out)
}
