package metrics

import (
	"math"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Sink 定义指标聚合器接口
type Sink interface {
	// Add 添加一个样本值
	Add(sample Sample)
	// Format 返回格式化的统计结果
	Format(duration float64) map[string]float64
	// IsEmpty 检查是否为空
	IsEmpty() bool
}

// NewSink 根据指标类型创建对应的 Sink
func NewSink(metricType MetricType) Sink {
	switch metricType {
	case Rate:
		return &RateSink{}
	case Trend:
		return NewTrendSink()
	default:
		return &CounterSink{}
	}
}

// CounterSink 计数器聚合器
type CounterSink struct {
	Value float64
	First time.Time
	mu    sync.Mutex
}

// Add 添加样本
func (c *CounterSink) Add(sample Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Value += sample.Value
	if c.First.IsZero() {
		c.First = sample.Time
	}
}

// Format 返回统计结果
func (c *CounterSink) Format(duration float64) map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := map[string]float64{
		"count": c.Value,
	}
	if duration > 0 {
		result["rate"] = c.Value / duration
	}
	return result
}

// IsEmpty 检查是否为空
func (c *CounterSink) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Value == 0
}

// RateSink 比率聚合器
type RateSink struct {
	Trues int64
	Total int64
	mu    sync.Mutex
}

// Add 添加样本（value != 0 表示 true/成功）
func (r *RateSink) Add(sample Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Total++
	if sample.Value != 0 {
		r.Trues++
	}
}

// Format 返回统计结果
func (r *RateSink) Format(float64) map[string]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := map[string]float64{
		"passes": float64(r.Trues),
		"fails":  float64(r.Total - r.Trues),
		"rate":   0,
	}
	if r.Total > 0 {
		result["rate"] = float64(r.Trues) / float64(r.Total)
	}
	return result
}

// IsEmpty 检查是否为空
func (r *RateSink) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Total == 0
}

const (
	// trendMinValue 直方图可记录的最小值（纳秒）
	trendMinValue = 1
	// trendMaxValue 直方图可记录的最大值（纳秒，一小时）
	trendMaxValue = int64(time.Hour)
	// trendSigFigs 直方图有效数字位数
	trendSigFigs = 3
)

// TrendSink 趋势聚合器，样本记录到 HDR 直方图中。
// 超出范围的样本会被截断到边界值，并计入 Clamped。
type TrendSink struct {
	hist    *hdrhistogram.Histogram
	Clamped int64
	mu      sync.Mutex
}

// NewTrendSink 创建趋势聚合器
func NewTrendSink() *TrendSink {
	return &TrendSink{
		hist: hdrhistogram.New(trendMinValue, trendMaxValue, trendSigFigs),
	}
}

// Add 添加样本
func (t *TrendSink) Add(sample Sample) {
	v := int64(math.Round(sample.Value))
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case v < trendMinValue:
		v = trendMinValue
		t.Clamped++
	case v > trendMaxValue:
		v = trendMaxValue
		t.Clamped++
	}
	_ = t.hist.RecordValue(v)
}

// Format 返回统计结果
func (t *TrendSink) Format(float64) map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := t.hist.TotalCount()
	result := map[string]float64{
		"count": float64(count),
	}
	if count == 0 {
		return result
	}
	result["min"] = float64(t.hist.Min())
	result["max"] = float64(t.hist.Max())
	result["avg"] = t.hist.Mean()
	result["stddev"] = t.hist.StdDev()
	result["med"] = float64(t.hist.ValueAtQuantile(50))
	result["p(90)"] = float64(t.hist.ValueAtQuantile(90))
	result["p(95)"] = float64(t.hist.ValueAtQuantile(95))
	result["p(99)"] = float64(t.hist.ValueAtQuantile(99))
	return result
}

// IsEmpty 检查是否为空
func (t *TrendSink) IsEmpty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hist.TotalCount() == 0
}

// Percentile 计算指定百分位数
func (t *TrendSink) Percentile(p float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return float64(t.hist.ValueAtQuantile(p))
}

// Count 返回样本数量
func (t *TrendSink) Count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hist.TotalCount()
}

// Merge 合并另一个趋势聚合器的样本
func (t *TrendSink) Merge(other *TrendSink) {
	other.mu.Lock()
	snapshot := hdrhistogram.Import(other.hist.Export())
	clamped := other.Clamped
	other.mu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.hist.Merge(snapshot)
	t.Clamped += clamped
}
