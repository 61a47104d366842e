package bench

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/bytedance/sonic"
)

// Report 一次测量运行的完整报告
type Report struct {
	RunID     string     `json:"run_id"`
	StartedAt time.Time  `json:"started_at"`
	GoVersion string     `json:"go_version"`
	Results   []*Result  `json:"results"`
	Speedups  []*Speedup `json:"speedups,omitempty"`
}

// Speedup 同一用例下编译策略相对通用策略的加速比
type Speedup struct {
	Name    string  `json:"name"`
	Generic float64 `json:"generic_mean_ns"`
	Compile float64 `json:"compiled_mean_ns"`
	Ratio   float64 `json:"ratio"`
}

// NewReport 汇总结果并计算加速比
func NewReport(startedAt time.Time, results []*Result) *Report {
	rep := &Report{
		StartedAt: startedAt,
		GoVersion: runtime.Version(),
		Results:   results,
		Speedups:  Speedups(results),
	}
	if len(results) > 0 {
		rep.RunID = results[0].RunID
	}
	return rep
}

// Speedups 按用例配对 generic 与 compiled 结果，按名称排序
func Speedups(results []*Result) []*Speedup {
	type pair struct{ generic, compiled *Result }
	pairs := make(map[string]*pair)
	for _, r := range results {
		key := r.Kind + "/" + r.caseKey()
		p, ok := pairs[key]
		if !ok {
			p = &pair{}
			pairs[key] = p
		}
		switch r.Strategy {
		case Generic:
			p.generic = r
		case Compiled:
			p.compiled = r
		}
	}

	var out []*Speedup
	for key, p := range pairs {
		if p.generic == nil || p.compiled == nil || p.compiled.Mean == 0 {
			continue
		}
		out = append(out, &Speedup{
			Name:    key,
			Generic: p.generic.Mean,
			Compile: p.compiled.Mean,
			Ratio:   p.generic.Mean / p.compiled.Mean,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Result) caseKey() string {
	if r.Case != nil {
		return r.Case.ID()
	}
	return fmt.Sprintf("hooks=%d-wrappers=%d", r.Hooks, r.Wrappers)
}

// WriteTable 以对齐表格输出报告
func WriteTable(w io.Writer, rep *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "name\tcalls\tmean\tstddev\tmin\tp50\tp95\tp99\tmax\tops/s\terrors\t")
	for _, r := range rep.Results {
		name := r.Name
		if r.Truncated {
			name += "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%.0f\t%d\t\n",
			name, r.Iterations,
			ns(r.Mean), ns(r.StdDev), ns(r.Min), ns(r.P50), ns(r.P95), ns(r.P99), ns(r.Max),
			r.OpsPerSec, r.Errors)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(rep.Speedups) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "case\tgeneric\tcompiled\tspeedup\t")
	for _, s := range rep.Speedups {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2fx\t\n", s.Name, ns(s.Generic), ns(s.Compile), s.Ratio)
	}
	return tw.Flush()
}

// WriteJSON 以 JSON 输出报告
func WriteJSON(w io.Writer, rep *Report) error {
	enc := sonic.ConfigStd.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// SaveJSON 将报告写入文件
func SaveJSON(path string, rep *Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建报告文件失败: %w", err)
	}
	if err := WriteJSON(f, rep); err != nil {
		_ = f.Close()
		return fmt.Errorf("写入报告失败: %w", err)
	}
	return f.Close()
}

// LoadJSON 读取 JSON 报告
func LoadJSON(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取报告文件失败: %w", err)
	}
	rep := &Report{}
	if err := sonic.Unmarshal(data, rep); err != nil {
		return nil, fmt.Errorf("解析报告失败: %w", err)
	}
	return rep, nil
}

// ns 将纳秒数格式化为可读时长
func ns(v float64) string {
	d := time.Duration(v)
	switch {
	case d >= time.Millisecond:
		return d.Round(time.Microsecond).String()
	case d >= time.Microsecond:
		return d.Round(10 * time.Nanosecond).String()
	default:
		return d.String()
	}
}
