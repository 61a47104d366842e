// Package output 提供基准报告的输出插件
package output

import (
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"yqhp/hookcall/internal/bench"
)

// Output 定义输出插件接口
type Output interface {
	// Description 返回输出插件的描述
	Description() string

	// WriteReport 输出一次运行的报告
	WriteReport(rep *bench.Report) error
}

// Params 是创建 Output 时的参数
type Params struct {
	// OutputType 输出类型
	OutputType string

	// ConfigArgument 配置参数（如文件路径）
	ConfigArgument string

	// Writer 控制台类输出的目标
	Writer io.Writer

	// Logger 日志记录器
	Logger *zap.Logger
}

// Factory 是创建 Output 的工厂函数类型
type Factory func(params Params) (Output, error)

// registry 存储已注册的输出工厂
var registry = make(map[string]Factory)

// Register 注册输出工厂
func Register(name string, factory Factory) {
	registry[name] = factory
}

// Get 获取输出工厂
func Get(name string) (Factory, bool) {
	f, ok := registry[name]
	return f, ok
}

// List 列出所有已注册的输出类型
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create 创建输出实例
func Create(outputType string, params Params) (Output, error) {
	factory, ok := Get(outputType)
	if !ok {
		return nil, &UnknownOutputError{Type: outputType}
	}
	params.OutputType = outputType
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return factory(params)
}

// ParseSpec 解析 "type=config" 形式的输出描述
func ParseSpec(spec string) (outputType, arg string) {
	outputType, arg, _ = strings.Cut(spec, "=")
	return strings.TrimSpace(outputType), strings.TrimSpace(arg)
}

// UnknownOutputError 未知输出类型错误
type UnknownOutputError struct {
	Type string
}

func (e *UnknownOutputError) Error() string {
	return "未知的输出类型: " + e.Type + "，可用: " + strings.Join(List(), ", ")
}
