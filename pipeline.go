package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ByLCY/embiggen/dsl"
	"github.com/ByLCY/embiggen/fit"
	"github.com/ByLCY/embiggen/layout"
	"github.com/ByLCY/embiggen/renderer"
)

// playOptions 是回放一次场景文件所需的参数。
type playOptions struct {
	Input    string
	Output   string
	Debug    string // 调试 JSON 输出路径，为空时不输出
	Trace    bool
	Data     any
	Defaults layout.StyleDefaults
	Logger   *slog.Logger
}

// run 串联解析、回放与渲染。
func run(opts playOptions, r renderer.Renderer, ts layout.Typesetter) error {
	if r == nil {
		return fmt.Errorf("renderer 不能为空")
	}
	if ts == nil {
		return fmt.Errorf("缺少排版后端")
	}
	scene, err := dsl.ParseFile(opts.Input)
	if err != nil {
		return fmt.Errorf("解析场景失败: %w", err)
	}

	result, err := layout.Build(scene, opts.Data, layout.BuildOptions{
		Typesetter: ts,
		Debug:      layout.DebugOptions{Trace: opts.Trace},
		Logger:     opts.Logger,
		Defaults:   opts.Defaults,
	})
	if err != nil {
		return fmt.Errorf("回放失败: %w", err)
	}

	if opts.Debug != "" {
		if err := writeDebug(result, opts.Debug); err != nil {
			return err
		}
	}

	pdfBytes, err := r.Render(result)
	if err != nil {
		return fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	if err := writeOutput(opts.Output, pdfBytes); err != nil {
		return err
	}
	if opts.Logger != nil {
		opts.Logger.Info("已生成 PDF",
			slog.String("scene", result.Scene),
			slog.Int("frames", len(result.Frames)),
			slog.String("out", opts.Output),
		)
	}
	return nil
}

func writeDebug(result *layout.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return nil
}

// defaultOutput 由场景文件名推出 output/<name>.pdf。
func defaultOutput(input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join("output", base+".pdf")
}

// readText 取命令行参数作为文本；"-" 表示从 stdin 读取，没有参数时用 fallback。
func readText(args []string, stdin io.Reader, fallback string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("读取标准输入失败: %w", err)
		}
		return strings.TrimRight(string(b), "\n"), nil
	}
	if len(args) == 0 {
		return fallback, nil
	}
	return strings.Join(args, " "), nil
}

// parseViewport 解析 --width/--height，未写单位时按 CSS 像素处理。
func parseViewport(width, height string) (fit.Size, error) {
	w, okW := layout.ParseLength(width, layout.UnitPX)
	h, okH := layout.ParseLength(height, layout.UnitPX)
	if !okW || !okH {
		return fit.Size{}, fmt.Errorf("无法解析容器尺寸 %s×%s", width, height)
	}
	return fit.Size{Width: w.ToMM(), Height: h.ToMM()}, nil
}
