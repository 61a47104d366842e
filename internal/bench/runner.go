package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"yqhp/hookcall/internal/registry"
	"yqhp/hookcall/pkg/metrics"
)

const (
	// KindCallHook 通过注册表调用 fun(hooks, nesting)
	KindCallHook = "call_hook"
	// KindMulticall 直接调用 multicall 引擎
	KindMulticall = "multicall"

	// checkEvery 每隔多少次调用检查一次取消和时长上限
	checkEvery = 64
)

// Options 测量参数
type Options struct {
	Cases       []Case
	Strategies  []Strategy
	Iterations  int
	Warmup      int
	MaxDuration time.Duration
	Multicall   bool
}

// Result 单个用例在单个策略下的测量结果，时间单位为纳秒
type Result struct {
	RunID      string        `json:"run_id"`
	Name       string        `json:"name"`
	Kind       string        `json:"kind"`
	Strategy   Strategy      `json:"strategy"`
	Case       *Case         `json:"case,omitempty"`
	Hooks      int           `json:"hooks,omitempty"`
	Wrappers   int           `json:"wrappers,omitempty"`
	Iterations int64         `json:"iterations"`
	Errors     int64         `json:"errors"`
	Truncated  bool          `json:"truncated"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	Mean       float64       `json:"mean_ns"`
	StdDev     float64       `json:"stddev_ns"`
	Min        float64       `json:"min_ns"`
	P50        float64       `json:"p50_ns"`
	P95        float64       `json:"p95_ns"`
	P99        float64       `json:"p99_ns"`
	Max        float64       `json:"max_ns"`
	OpsPerSec  float64       `json:"ops_per_sec"`
	LastError  string        `json:"last_error,omitempty"`
}

// Runner 依次执行用例并计时
type Runner struct {
	log *zap.Logger
}

// NewRunner 创建运行器
func NewRunner(log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{log: log}
}

// Run 对每个策略和用例执行测量。ctx 取消时返回已完成的结果和 ctx 的错误。
func (r *Runner) Run(ctx context.Context, opts Options) ([]*Result, error) {
	if opts.Iterations <= 0 {
		return nil, fmt.Errorf("iterations must be positive, got %d", opts.Iterations)
	}
	strategies := opts.Strategies
	if len(strategies) == 0 {
		strategies = Strategies()
	}
	cases := opts.Cases
	if len(cases) == 0 {
		cases = DefaultCases()
	}

	runID := uuid.NewString()
	log := r.log.With(zap.String("run_id", runID))
	log.Info("开始测量",
		zap.Int("cases", len(cases)),
		zap.Int("strategies", len(strategies)),
		zap.Int("iterations", opts.Iterations),
	)

	var results []*Result
	for _, s := range strategies {
		for _, c := range cases {
			fixture, err := NewFixture(c, s, registry.WithLogger(log))
			if err != nil {
				return results, fmt.Errorf("创建用例 %s 夹具失败: %w", c.ID(), err)
			}
			res := &Result{
				RunID:    runID,
				Name:     fmt.Sprintf("%s[%s-%s]", KindCallHook, s, c.ID()),
				Kind:     KindCallHook,
				Strategy: s,
				Case:     &c,
			}
			if err := r.measure(ctx, fixture, opts, res); err != nil {
				return results, err
			}
			results = append(results, res)
			r.logResult(log, res)
		}

		if !opts.Multicall {
			continue
		}
		for _, size := range MulticallSizes() {
			fixture, err := NewMulticallFixture(size[0], size[1], s)
			if err != nil {
				return results, fmt.Errorf("创建 multicall 夹具失败: %w", err)
			}
			res := &Result{
				RunID:    runID,
				Name:     fmt.Sprintf("%s[%s-hooks=%d-wrappers=%d]", KindMulticall, s, size[0], size[1]),
				Kind:     KindMulticall,
				Strategy: s,
				Hooks:    size[0],
				Wrappers: size[1],
			}
			if err := r.measure(ctx, fixture, opts, res); err != nil {
				return results, err
			}
			results = append(results, res)
			r.logResult(log, res)
		}
	}

	log.Info("测量完成", zap.Int("results", len(results)))
	return results, nil
}

// measure 预热后对 target 计时，统计写入 res
func (r *Runner) measure(ctx context.Context, target Target, opts Options, res *Result) error {
	for i := 0; i < opts.Warmup; i++ {
		if i%checkEvery == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		_, _ = target.Call()
	}

	reg := metrics.NewRegistry()
	calls := reg.NewMetric("hook_calls", metrics.Counter, metrics.Default)
	success := reg.NewMetric("hook_call_success", metrics.Rate, metrics.Default)
	duration := reg.NewMetric("hook_call_duration", metrics.Trend, metrics.Time)

	start := time.Now()
	for i := 0; i < opts.Iterations; i++ {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			if opts.MaxDuration > 0 && i > 0 && time.Since(start) > opts.MaxDuration {
				res.Truncated = true
				break
			}
		}

		t0 := time.Now()
		_, err := target.Call()
		duration.AddDuration(time.Since(t0))
		calls.Add(1)
		if err != nil {
			success.Add(0)
			res.LastError = err.Error()
			continue
		}
		success.Add(1)
	}
	res.Elapsed = time.Since(start)

	snap := reg.Snapshot(res.Elapsed)
	res.Iterations = int64(snap["hook_calls"]["count"])
	res.Errors = int64(snap["hook_call_success"]["fails"])
	trend := snap["hook_call_duration"]
	res.Mean = trend["avg"]
	res.StdDev = trend["stddev"]
	res.Min = trend["min"]
	res.P50 = trend["med"]
	res.P95 = trend["p(95)"]
	res.P99 = trend["p(99)"]
	res.Max = trend["max"]
	if res.Elapsed > 0 {
		res.OpsPerSec = float64(res.Iterations) / res.Elapsed.Seconds()
	}
	return nil
}

func (r *Runner) logResult(log *zap.Logger, res *Result) {
	fields := []zap.Field{
		zap.String("name", res.Name),
		zap.Int64("iterations", res.Iterations),
		zap.Duration("mean", time.Duration(res.Mean)),
		zap.Duration("p99", time.Duration(res.P99)),
	}
	if res.Errors > 0 {
		log.Warn("用例调用出现错误", append(fields, zap.Int64("errors", res.Errors), zap.String("last_error", res.LastError))...)
		return
	}
	log.Debug("用例完成", fields...)
}
