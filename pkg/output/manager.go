package output

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"yqhp/hookcall/internal/bench"
)

// Manager 管理多个输出插件
type Manager struct {
	outputs []Output
	logger  *zap.Logger
	mu      sync.RWMutex
}

// NewManager 创建新的输出管理器
func NewManager(outputs []Output, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		outputs: outputs,
		logger:  logger,
	}
}

// FromSpecs 按 "type=config" 列表创建输出
func FromSpecs(specs []string, params Params) (*Manager, error) {
	m := NewManager(nil, params.Logger)
	for _, spec := range specs {
		typ, arg := ParseSpec(spec)
		p := params
		p.ConfigArgument = arg
		out, err := Create(typ, p)
		if err != nil {
			return nil, err
		}
		m.AddOutput(out)
	}
	return m, nil
}

// WriteReport 依次写入所有输出，一个失败不影响其余输出
func (m *Manager) WriteReport(rep *bench.Report) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	for _, out := range m.outputs {
		if err := out.WriteReport(rep); err != nil {
			m.logger.Error("写入输出失败", zap.String("output", out.Description()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", out.Description(), err))
			continue
		}
		m.logger.Debug("输出已写入", zap.String("output", out.Description()))
	}
	return errors.Join(errs...)
}

// AddOutput 添加输出
func (m *Manager) AddOutput(out Output) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs = append(m.outputs, out)
}

// GetOutputs 获取所有输出
func (m *Manager) GetOutputs() []Output {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]Output, len(m.outputs))
	copy(result, m.outputs)
	return result
}
