package json

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"yqhp/hookcall/internal/bench"
	"yqhp/hookcall/pkg/output"
)

func init() {
	output.Register("json", New)
}

// Output JSON 文件输出，文件名为 "-" 时写到控制台
type Output struct {
	params output.Params
}

// New 创建 JSON 输出
func New(params output.Params) (output.Output, error) {
	if params.ConfigArgument == "" {
		params.ConfigArgument = fmt.Sprintf("report_%s.json", time.Now().Format("20060102_150405"))
	}
	return &Output{params: params}, nil
}

// Description 返回描述
func (o *Output) Description() string {
	return fmt.Sprintf("json (%s)", o.params.ConfigArgument)
}

// WriteReport 写入 JSON 报告
func (o *Output) WriteReport(rep *bench.Report) error {
	name := o.params.ConfigArgument
	if name == "-" {
		w := o.params.Writer
		if w == nil {
			w = os.Stdout
		}
		return bench.WriteJSON(w, rep)
	}
	if err := bench.SaveJSON(name, rep); err != nil {
		return err
	}
	o.params.Logger.Info("报告已写入", zap.String("path", name), zap.Int("results", len(rep.Results)))
	return nil
}
