// Package fit 计算一段可重排文本在固定宽高比容器内的最佳换行宽度与统一缩放系数。
package fit

import (
	"context"
	"log/slog"
)

// Fitter 执行最佳适配搜索。零值可直接使用。
type Fitter struct {
	// Trace 为 true 时在结果中保留每个候选的测量值。
	Trace  bool
	Logger *slog.Logger
}

// Fit 为 container 计算 m 的适配结果。
//
// 容器尺寸无效或 m 为 nil 时不做任何测量，直接返回 Identity。
// 每次调用都会先 Reset，结果与之前的调用无关。
func (f *Fitter) Fit(container Size, m Measurer) Result {
	if m == nil || !container.Valid() {
		f.debug("跳过适配", slog.Float64("containerWidth", container.Width), slog.Float64("containerHeight", container.Height))
		return Identity()
	}

	m.Reset()
	natural := m.NaturalWidth()
	target := container.Width / container.Height

	var (
		res   Result
		found SearchResult
	)
	if positive(natural) {
		var trace func(Candidate)
		if f.Trace {
			trace = func(c Candidate) { res.Trace = append(res.Trace, c) }
		}
		found = Search(target, natural, m.MeasureAt, trace)
	}
	res.Examined = found.Examined

	if found.Found {
		res.Factor = found.Factor
		res.Constrained = true
		res.WrapWidth = natural * found.Factor
	}
	m.Constrain(res.Wrap())

	res.Tight = m.TightBox()
	res.Scale = ScaleToFit(container, res.Tight)

	f.debug("适配完成",
		slog.Float64("target", target),
		slog.Float64("natural", natural),
		slog.Float64("factor", res.Factor),
		slog.Bool("constrained", res.Constrained),
		slog.Float64("scale", res.Scale),
	)
	return res
}

func (f *Fitter) debug(msg string, attrs ...slog.Attr) {
	if f == nil || f.Logger == nil {
		return
	}
	f.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
}
