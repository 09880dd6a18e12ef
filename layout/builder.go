package layout

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ByLCY/embiggen/binding"
	"github.com/ByLCY/embiggen/dsl"
	"github.com/ByLCY/embiggen/fit"
	"github.com/ByLCY/embiggen/trigger"
)

// Build 按时间线回放场景：每条命令改变容器、内容或主题，经 trigger 重新适配，并记录一帧。
//
// 回放使用 trigger.Immediate，过渡事件的补充适配在同一条命令内完成，结果可复现。
func Build(scene *dsl.Scene, data any, opts BuildOptions) (*Result, error) {
	if scene == nil {
		return nil, fmt.Errorf("场景为空")
	}
	if opts.Typesetter == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	st, err := resolveStyle(scene, opts.Defaults)
	if err != nil {
		return nil, err
	}
	timeline := firstTimeline(scene)
	if timeline == nil || timeline.Block == nil {
		return nil, fmt.Errorf("场景 %s 中缺少 timeline 段落", scene.Name)
	}

	stg := NewStage(opts.Typesetter, st.text, st.theme)
	tr := trigger.New(stg, trigger.Options{
		Settle:    st.settle,
		Scheduler: trigger.Immediate{},
		Fitter:    &fit.Fitter{Trace: opts.Debug.Trace, Logger: logger},
		Logger:    logger,
	})
	defer tr.Close()

	res := &Result{
		Scene:  scene.Name,
		Meta:   collectMeta(scene),
		Settle: st.settle,
	}
	for _, stmt := range timeline.Block.Statements {
		if stmt.Command == nil {
			continue
		}
		cmd := stmt.Command
		before := tr.Runs()
		if err := playCommand(cmd, stg, tr, data, logger); err != nil {
			return nil, fmt.Errorf("%s: %w", cmd.Pos, err)
		}
		if b := stg.Block(); b != nil && b.Err() != nil {
			return nil, fmt.Errorf("%s: 排版失败: %w", cmd.Pos, b.Err())
		}
		frame := stg.Snapshot(len(res.Frames), cmd.Name)
		frame.Fits = tr.Runs() - before
		logger.Debug("回放命令",
			slog.String("command", cmd.Name),
			slog.Int("fits", frame.Fits),
			slog.Float64("scale", frame.Fit.Scale),
		)
		res.Frames = append(res.Frames, frame)
	}
	return res, nil
}

// FitText 在 viewport（mm）内适配一段文本并返回对应的一帧，不需要场景文件。
func FitText(text string, viewport fit.Size, opts BuildOptions) (Frame, error) {
	if opts.Typesetter == nil {
		return Frame{}, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	style, theme, settle, err := ResolveStyle(opts.Defaults)
	if err != nil {
		return Frame{}, err
	}

	stg := NewStage(opts.Typesetter, style, theme)
	tr := trigger.New(stg, trigger.Options{
		Settle:    settle,
		Scheduler: trigger.Immediate{},
		Fitter:    &fit.Fitter{Trace: opts.Debug.Trace, Logger: logger},
		Logger:    logger,
	})
	defer tr.Close()

	stg.Resize(viewport)
	b := stg.SetContent(text)
	tr.Notify(trigger.ContentChanged)
	if b.Err() != nil {
		return Frame{}, fmt.Errorf("排版失败: %w", b.Err())
	}
	frame := stg.Snapshot(0, "content")
	frame.Fits = tr.Runs()
	return frame, nil
}

func playCommand(cmd *dsl.Command, s *Stage, tr *trigger.Trigger, data any, logger *slog.Logger) error {
	switch strings.ToLower(cmd.Name) {
	case "content":
		text := binding.Interpolate(cmd.Text(), data)
		// 插值后仍留在文本里的占位符就是没有数据也没有默认值的路径
		if unbound := binding.Placeholders(text); len(unbound) > 0 {
			logger.Debug("占位符未绑定",
				slog.String("pos", cmd.Pos.String()),
				slog.Any("paths", unbound),
			)
		}
		s.SetContent(text)
		tr.Notify(trigger.ContentChanged)
	case "clear":
		s.Clear()
		tr.Notify(trigger.ContentChanged)
	case "resize":
		size, err := parseViewport(cmd.Args)
		if err != nil {
			return err
		}
		s.Resize(size)
		tr.Notify(trigger.Resized)
	case "fullscreen", "exit-fullscreen":
		size, err := parseViewport(cmd.Args)
		if err != nil {
			return err
		}
		s.Resize(size)
		tr.Notify(trigger.Transition)
	case "rotate":
		if len(cmd.Args) > 0 {
			size, err := parseViewport(cmd.Args)
			if err != nil {
				return err
			}
			s.Resize(size)
		} else {
			s.Rotate()
		}
		tr.Notify(trigger.Transition)
	case "unmount":
		s.Unmount()
		tr.Notify(trigger.Resized)
	case "theme":
		if len(cmd.Args) == 0 {
			return fmt.Errorf("theme 需要 light 或 dark")
		}
		s.SetTheme(ThemeByName(strings.ToLower(cmd.Args[0].Value)))
	default:
		return fmt.Errorf("未知的时间线命令 %s", cmd.Name)
	}
	return nil
}

// parseViewport 解析 "<宽> <高>"，未写单位时按 CSS 像素处理，返回 mm。
func parseViewport(args []*dsl.Lexeme) (fit.Size, error) {
	if len(args) < 2 {
		return fit.Size{}, fmt.Errorf("需要宽和高两个参数")
	}
	w, okW := ParseLength(args[0].Value, UnitPX)
	h, okH := ParseLength(args[1].Value, UnitPX)
	if !okW || !okH {
		return fit.Size{}, fmt.Errorf("无法解析尺寸 %s×%s", args[0].Raw, args[1].Raw)
	}
	return fit.Size{Width: w.ToMM(), Height: h.ToMM()}, nil
}

type playbackStyle struct {
	text   TextStyle
	theme  Theme
	settle time.Duration
}

// ResolveStyle 只根据默认值解析文本样式、主题与过渡延迟，供没有场景文件的宿主使用。
func ResolveStyle(defaults StyleDefaults) (TextStyle, Theme, time.Duration, error) {
	st, err := resolveStyle(&dsl.Scene{}, defaults)
	if err != nil {
		return TextStyle{}, Theme{}, 0, err
	}
	return st.text, st.theme, st.settle, nil
}

func resolveStyle(scene *dsl.Scene, defaults StyleDefaults) (playbackStyle, error) {
	base := DefaultStyle()
	values := map[string]string{
		"font":        firstNonEmpty(defaults.Font, base.Font),
		"size":        firstNonEmpty(defaults.FontSize, base.FontSize),
		"line-height": firstNonEmpty(defaults.LineHeight, base.LineHeight),
		"theme":       firstNonEmpty(defaults.Theme, base.Theme),
		"wrap":        firstNonEmpty(defaults.Wrap, base.Wrap),
	}
	settle := defaults.Settle
	if settle <= 0 {
		settle = base.Settle
	}
	for _, section := range scene.Sections {
		if section.Style == nil || section.Style.Block == nil {
			continue
		}
		for _, stmt := range section.Style.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			values[strings.ToLower(stmt.Assignment.Key)] = stmt.Assignment.Value.Raw()
		}
	}

	size, ok := ParseLength(values["size"], UnitPX)
	if !ok || size.Value <= 0 {
		return playbackStyle{}, fmt.Errorf("无法解析字号 %q", values["size"])
	}
	lh, ok := ParseLineHeight(values["line-height"])
	if !ok {
		return playbackStyle{}, fmt.Errorf("无法解析行高 %q", values["line-height"])
	}
	if raw, ok := values["settle"]; ok {
		d, err := parseDuration(raw)
		if err != nil {
			return playbackStyle{}, err
		}
		settle = d
	}

	theme := ThemeByName(strings.ToLower(values["theme"]))
	if v := values["background"]; v != "" {
		c, err := parseColor(v)
		if err != nil {
			return playbackStyle{}, err
		}
		theme.Background = c
	}
	if v := values["color"]; v != "" {
		c, err := parseColor(v)
		if err != nil {
			return playbackStyle{}, err
		}
		theme.Foreground = c
	}

	return playbackStyle{
		text: TextStyle{
			Font:       ParseFontResource(values["font"], values["font-style"]),
			FontSize:   size.ToMM(),
			LineHeight: lh.Resolve(size, UnitMM),
			Wrap:       NormalizeWrap(values["wrap"]),
		},
		theme:  theme,
		settle: settle,
	}, nil
}

// ParseFontResource 将 style 中的 font 写法转为字体资源：
// "go-regular" 与 "embed:go-regular" 指向内置字体，其余视为文件路径。
func ParseFontResource(value, style string) FontResource {
	v := strings.TrimSpace(value)
	switch {
	case v == "":
		v = DefaultStyle().Font
	case strings.HasPrefix(v, "embed:"):
	case !strings.ContainsAny(v, `/\.`):
		v = "embed:" + v
	}
	name := strings.TrimPrefix(v, "embed:")
	return FontResource{Name: name, Src: v, Style: style}
}

func parseDuration(raw string) (time.Duration, error) {
	v := strings.TrimSpace(raw)
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(n * float64(time.Millisecond)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("无法解析延迟 %q: %w", raw, err)
	}
	return d, nil
}

func firstTimeline(scene *dsl.Scene) *dsl.TimelineSection {
	for _, section := range scene.Sections {
		if section.Timeline != nil {
			return section.Timeline
		}
	}
	return nil
}

func collectMeta(scene *dsl.Scene) DocumentMeta {
	meta := DocumentMeta{
		Title:   scene.Name,
		Creator: "Embiggen",
	}
	for _, section := range scene.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			val := stmt.Assignment.Value.Raw()
			switch strings.ToLower(stmt.Assignment.Key) {
			case "title":
				meta.Title = val
			case "author":
				meta.Author = val
			case "subject":
				meta.Subject = val
			case "creator":
				meta.Creator = val
			case "keywords":
				for _, kw := range strings.Split(val, ",") {
					if kw = strings.TrimSpace(kw); kw != "" {
						meta.Keywords = append(meta.Keywords, kw)
					}
				}
			}
		}
	}
	return meta
}

// parseColor 解析 #rgb、#rrggbb 与 #rrggbbaa（忽略透明度）。
func parseColor(value string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	var parts [3]string
	switch len(hex) {
	case 3:
		for i := range parts {
			parts[i] = strings.Repeat(hex[i:i+1], 2)
		}
	case 6, 8:
		if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
			return Color{}, fmt.Errorf("颜色值 %s 无法解析: %w", value, err)
		}
		for i := range parts {
			parts[i] = hex[2*i : 2*i+2]
		}
	default:
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	var rgb [3]int
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("颜色值 %s 无法解析: %w", value, err)
		}
		rgb[i] = int(v)
	}
	return Color{R: rgb[0], G: rgb[1], B: rgb[2]}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
