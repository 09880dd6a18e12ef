package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ByLCY/embiggen/layout"
	"github.com/ByLCY/embiggen/renderer"
)

func newRenderCommand(a *app) *cobra.Command {
	var width, height, output, format string

	cmd := &cobra.Command{
		Use:   "render [text...]",
		Short: "把文本适配到容器并输出一帧（pdf/svg/png）",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(args, cmd.InOrStdin(), a.cfg.General.Content)
			if err != nil {
				return err
			}
			viewport, err := parseViewport(width, height)
			if err != nil {
				return err
			}

			fallback, err := renderer.ParseFormat(a.cfg.Render.Format)
			if err != nil {
				return err
			}
			f := renderer.FormatFromPath(output, fallback)
			if format != "" {
				if f, err = renderer.ParseFormat(format); err != nil {
					return err
				}
			}

			logger := a.logger("render")
			r, ts := a.backend("")
			frame, err := layout.FitText(text, viewport, layout.BuildOptions{
				Typesetter: ts,
				Logger:     logger,
				Defaults:   a.defaults(),
			})
			if err != nil {
				return err
			}
			data, err := r.RenderFrame(frame, f)
			if err != nil {
				return fmt.Errorf("渲染失败: %w", err)
			}
			if err := writeOutput(output, data); err != nil {
				return err
			}
			logger.Info("已输出",
				slog.String("out", output),
				slog.String("format", string(f)),
				slog.Float64("scale", frame.Fit.Scale),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&width, "width", "800px", "容器宽度（px/mm/pt/cm/in）")
	cmd.Flags().StringVar(&height, "height", "600px", "容器高度（px/mm/pt/cm/in）")
	cmd.Flags().StringVarP(&output, "output", "o", "output/embiggen.pdf", "输出路径")
	cmd.Flags().StringVar(&format, "format", "", "输出格式 pdf|svg|png，默认由扩展名推断")
	return cmd
}
