// Package bench 提供 hook 调用的测量工具：用例表、夹具、计时运行器和报告。
package bench

import (
	"fmt"
	"strings"
)

// Strategy 调用策略
type Strategy string

const (
	// Generic 通过注册表调用者走通用 multicall 路径
	Generic Strategy = "generic"
	// Compiled 在注册完成后编译调用计划
	Compiled Strategy = "compiled"
)

// Strategies 返回全部调用策略
func Strategies() []Strategy {
	return []Strategy{Generic, Compiled}
}

// ParseStrategy 解析调用策略名称
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case Generic:
		return Generic, nil
	case Compiled:
		return Compiled, nil
	default:
		return "", fmt.Errorf("未知的调用策略: %q", s)
	}
}

// ParseStrategies 解析多个调用策略名称
func ParseStrategies(names []string) ([]Strategy, error) {
	out := make([]Strategy, 0, len(names))
	for _, n := range names {
		s, err := ParseStrategy(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Case 是用例表中的一行：插件数、wrapper 数和递归深度
type Case struct {
	Plugins  int `json:"plugins"`
	Wrappers int `json:"wrappers"`
	Nesting  int `json:"nesting"`
}

// ID 返回用例标识，每个数字补齐到三位
func (c Case) ID() string {
	return fmt.Sprintf("%03d-%03d-%03d", c.Plugins, c.Wrappers, c.Nesting)
}

// DefaultCases 返回默认用例表
func DefaultCases() []Case {
	return []Case{
		{1, 0, 0},
		{1, 1, 0},
		{1, 1, 1},
		{1, 1, 5},
		{1, 5, 1},
		{1, 5, 5},
		{5, 1, 1},
		{5, 1, 5},
		{5, 5, 1},
		{5, 5, 5},
		{20, 0, 0},
		{20, 0, 2},
		{20, 20, 0},
		{50, 50, 0},
		{100, 0, 0},
		{200, 0, 0},
	}
}

// MulticallSizes 返回 multicall 微基准的实现数量组合
func MulticallSizes() [][2]int {
	return [][2]int{{10, 10}, {10, 100}, {100, 10}, {100, 100}}
}
