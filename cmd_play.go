package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// sceneFlags 是 play 与 watch 共用的参数。
type sceneFlags struct {
	output   string
	debug    string
	dataJSON string
	trace    bool
}

func (f *sceneFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.output, "output", "o", "", "PDF 输出路径（默认 output/<场景文件名>.pdf）")
	fs.StringVar(&f.debug, "debug-json", "", "回放结果调试 JSON 输出路径")
	fs.StringVar(&f.dataJSON, "data", "", "绑定到 ${...} 占位符的 JSON 数据")
	fs.BoolVar(&f.trace, "trace", false, "在调试 JSON 中保留每个候选宽度的测量值")
}

func (f *sceneFlags) options(a *app, input, component string) (playOptions, error) {
	var data any
	if f.dataJSON != "" {
		if err := json.Unmarshal([]byte(f.dataJSON), &data); err != nil {
			return playOptions{}, fmt.Errorf("解析 data JSON 失败: %w", err)
		}
	}
	out := f.output
	if out == "" {
		out = defaultOutput(input)
	}
	return playOptions{
		Input:    input,
		Output:   out,
		Debug:    f.debug,
		Trace:    f.trace,
		Data:     data,
		Defaults: a.defaults(),
		Logger:   a.logger(component),
	}, nil
}

func newPlayCommand(a *app) *cobra.Command {
	var flags sceneFlags

	cmd := &cobra.Command{
		Use:   "play <scene>",
		Short: "回放场景文件的时间线，每个事件输出一页 PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(a, args[0], "play")
			if err != nil {
				return err
			}
			r, ts := a.backend(filepath.Dir(args[0]))
			if err := run(opts, r, ts); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "已生成 PDF：%s\n", opts.Output)
			return err
		},
	}
	flags.register(cmd.Flags())
	return cmd
}
