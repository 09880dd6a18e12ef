package layout

import (
	"github.com/mattn/go-runewidth"
)

// DefaultCellRatio 是等宽字体单元格宽度与字号之比，接近常见等宽字体的 advance。
const DefaultCellRatio = 0.6

// MonoTypesetter 按等宽网格排版：每个单元格宽 CellRatio×字号，
// 东亚宽字符占两个单元格。结果与字体文件无关，可用于测试与 --mono 模式。
type MonoTypesetter struct {
	CellRatio float64
}

var _ Typesetter = MonoTypesetter{}

// LayoutLines 实现 Typesetter。行高取 lineHeight（不小于字号），行间不额外留白。
func (m MonoTypesetter) LayoutLines(content string, width float64, _ FontResource, fontSize float64, lineHeight float64, wrap string) ([]TextLine, error) {
	cell := m.cell(fontSize)
	measure := func(s string) float64 {
		return float64(runewidth.StringWidth(s)) * cell
	}
	height := lineHeight
	if height <= 0 {
		height = fontSize
	}
	lines := GreedyWrap(content, width, wrap, measure)
	for i := range lines {
		lines[i].Height = height
	}
	return lines, nil
}

func (m MonoTypesetter) cell(fontSize float64) float64 {
	ratio := m.CellRatio
	if ratio <= 0 {
		ratio = DefaultCellRatio
	}
	return fontSize * ratio
}
