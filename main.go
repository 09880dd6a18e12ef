package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ByLCY/embiggen/config"
	"github.com/ByLCY/embiggen/layout"
	"github.com/ByLCY/embiggen/logging"
	canvasrenderer "github.com/ByLCY/embiggen/renderer/canvas"
	"github.com/ByLCY/embiggen/version"
)

// app 保存全局参数与启动时加载的配置。
type app struct {
	configPath string
	logLevel   string
	mono       bool

	cfg config.AppConfig
	log *slog.Logger
}

func main() {
	if err := newRootCommand(&app{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "embiggen",
		Short: "把一段文字放大到刚好填满屏幕",
		Long: `embiggen 在给定的容器内寻找最合适的换行宽度，再把文字等比放大到最大。
可以直接计算（fit）、输出单帧（render）、回放场景文件（play / watch），
或启动浏览器实时显示（serve）。`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "配置文件路径（默认 $XDG_CONFIG_HOME/embiggen/config.yaml）")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "日志级别 debug|info|warn|error，覆盖配置")
	root.PersistentFlags().BoolVar(&a.mono, "mono", false, "使用等宽网格排版代替字体度量")

	root.AddCommand(newFitCommand(a))
	root.AddCommand(newRenderCommand(a))
	root.AddCommand(newPlayCommand(a))
	root.AddCommand(newWatchCommand(a))
	root.AddCommand(newServeCommand(a))
	return root
}

// init 加载配置并初始化日志。
func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg
	a.log = logging.Init(logging.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	a.log.Debug("配置已加载", slog.String("theme", cfg.General.Theme), slog.String("font", cfg.Display.Font))
	return nil
}

// defaults 把配置转换为默认样式；theme 为 system 时在这里按终端环境解析一次。
func (a *app) defaults() layout.StyleDefaults {
	d := a.cfg.Display
	if a.mono {
		d.Font = monoFont.Src
	}
	return layout.StyleDefaults{
		Font:       d.Font,
		FontSize:   d.Size,
		LineHeight: d.LineHeight,
		Theme:      config.ResolveTheme(a.cfg.General.Theme, os.Getenv),
		Wrap:       d.Wrap,
		Settle:     d.Settle(),
	}
}

// monoFont 是 --mono 模式下绘制用的字体，等宽网格的单元格宽度取自它的字宽。
var monoFont = layout.FontResource{Name: "go-mono", Src: "embed:go-mono"}

// backend 返回渲染器与排版后端。--mono 时排版改用等宽网格，绘制固定使用 go-mono，
// 两者的字宽一致，画出来的行不会比测量结果更宽。
func (a *app) backend(baseDir string) (*canvasrenderer.Renderer, layout.Typesetter) {
	opts := canvasrenderer.Options{BaseDir: baseDir, DPI: a.cfg.Render.DPI}
	if !a.mono {
		r := canvasrenderer.NewRendererWithOptions(opts)
		return r, r
	}
	opts.Font = monoFont
	r := canvasrenderer.NewRendererWithOptions(opts)
	ratio, err := r.CellRatio(monoFont)
	if err != nil {
		a.logger("cli").Warn("读取等宽字宽失败，使用默认值", slog.Any("err", err))
		ratio = layout.DefaultCellRatio
	}
	return r, layout.MonoTypesetter{CellRatio: ratio}
}

func (a *app) logger(component string) *slog.Logger {
	if a.log == nil {
		return logging.WithComponent(component)
	}
	return a.log.With(slog.String("component", component))
}
