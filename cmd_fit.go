package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ByLCY/embiggen/fit"
	"github.com/ByLCY/embiggen/layout"
)

// fitReport 是 fit 子命令的 JSON 输出。
type fitReport struct {
	Viewport fit.Size            `json:"viewport"` // mm
	Fit      fit.Result          `json:"fit"`
	Lines    []layout.TextLine   `json:"lines"`
	Placed   []layout.ScaledLine `json:"placed"`
}

func newFitCommand(a *app) *cobra.Command {
	var width, height string
	var trace bool

	cmd := &cobra.Command{
		Use:   "fit [text...]",
		Short: "计算文本在容器内的换行宽度与缩放系数，输出 JSON",
		Long: `fit 在 --width × --height 的容器内搜索最佳换行宽度并输出结果。
文本取自参数；参数为 "-" 时读取标准输入；没有参数时使用配置中的 general.content。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(args, cmd.InOrStdin(), a.cfg.General.Content)
			if err != nil {
				return err
			}
			viewport, err := parseViewport(width, height)
			if err != nil {
				return err
			}
			_, ts := a.backend("")
			frame, err := layout.FitText(text, viewport, layout.BuildOptions{
				Typesetter: ts,
				Debug:      layout.DebugOptions{Trace: trace},
				Logger:     a.logger("fit"),
				Defaults:   a.defaults(),
			})
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(fitReport{
				Viewport: frame.Viewport,
				Fit:      frame.Fit,
				Lines:    frame.Lines,
				Placed:   frame.Placed(),
			}, "", "  ")
			if err != nil {
				return fmt.Errorf("编码结果失败: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	cmd.Flags().StringVar(&width, "width", "800px", "容器宽度（px/mm/pt/cm/in）")
	cmd.Flags().StringVar(&height, "height", "600px", "容器高度（px/mm/pt/cm/in）")
	cmd.Flags().BoolVar(&trace, "trace", false, "输出每个候选宽度的测量值")
	return cmd
}
