// Package metrics 提供 hook 调用测量使用的指标注册表和聚合器
package metrics

import (
	"sort"
	"sync"
	"time"
)

// MetricType 定义指标类型
type MetricType string

const (
	// Counter 计数器类型，只增不减
	Counter MetricType = "counter"
	// Rate 比率类型，计算成功/失败比率
	Rate MetricType = "rate"
	// Trend 趋势类型，基于直方图计算百分位数
	Trend MetricType = "trend"
)

// ValueType 定义值的类型
type ValueType string

const (
	// Default 默认值类型
	Default ValueType = "default"
	// Time 时间类型（纳秒）
	Time ValueType = "time"
)

// Metric 定义一个指标
type Metric struct {
	Name     string            `json:"name"`
	Type     MetricType        `json:"type"`
	Contains ValueType         `json:"contains,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
	Sink     Sink              `json:"-"`
}

// Sample 表示单个指标样本
type Sample struct {
	Metric *Metric   `json:"metric"`
	Time   time.Time `json:"time"`
	Value  float64   `json:"value"`
}

// Add 向指标写入一个样本
func (m *Metric) Add(value float64) {
	m.Sink.Add(Sample{Metric: m, Time: time.Now(), Value: value})
}

// AddDuration 向时间类指标写入一个耗时样本
func (m *Metric) AddDuration(d time.Duration) {
	m.Add(float64(d.Nanoseconds()))
}

// Registry 管理所有已注册的指标
type Registry struct {
	metrics map[string]*Metric
	mu      sync.RWMutex
}

// NewRegistry 创建新的指标注册表
func NewRegistry() *Registry {
	return &Registry{
		metrics: make(map[string]*Metric),
	}
}

// NewMetric 创建并注册新指标，同名指标已存在时直接返回
func (r *Registry) NewMetric(name string, metricType MetricType, contains ValueType) *Metric {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.metrics[name]; ok {
		return m
	}

	m := &Metric{
		Name:     name,
		Type:     metricType,
		Contains: contains,
		Tags:     make(map[string]string),
		Sink:     NewSink(metricType),
	}
	r.metrics[name] = m
	return m
}

// Get 获取已注册的指标
func (r *Registry) Get(name string) *Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics[name]
}

// Names 返回已注册指标名称（已排序）
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot 返回所有非空指标的统计结果
func (r *Registry) Snapshot(duration time.Duration) map[string]map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]map[string]float64, len(r.metrics))
	for name, m := range r.metrics {
		if m.Sink.IsEmpty() {
			continue
		}
		out[name] = m.Sink.Format(duration.Seconds())
	}
	return out
}
