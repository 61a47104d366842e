package console

import (
	"os"

	"yqhp/hookcall/internal/bench"
	"yqhp/hookcall/pkg/output"
)

func init() {
	output.Register("console", New)
}

// Output 控制台表格输出
type Output struct {
	params output.Params
}

// New 创建控制台输出
func New(params output.Params) (output.Output, error) {
	if params.Writer == nil {
		params.Writer = os.Stdout
	}
	return &Output{params: params}, nil
}

// Description 返回描述
func (o *Output) Description() string {
	return "console"
}

// WriteReport 以表格输出结果和加速比
func (o *Output) WriteReport(rep *bench.Report) error {
	return bench.WriteTable(o.params.Writer, rep)
}
