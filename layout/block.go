package layout

import (
	"fmt"
	"math"

	"github.com/ByLCY/embiggen/fit"
)

// Block 是一段可重排的文本，按 fit.Measurer 的方式向适配器暴露测量能力。
//
// 换行盒宽度等于当前约束，高度为重排后的行高之和；紧包围盒宽度取最宽的一行。
// 排版失败不会在搜索过程中中断，错误保存在 Err 中，该次测量视为退化（0×0）。
type Block struct {
	ts      Typesetter
	content string
	style   TextStyle

	wrap  fit.Wrap
	lines []TextLine
	err   error
}

var _ fit.Measurer = (*Block)(nil)

// NewBlock 创建不带宽度约束的文本块。
func NewBlock(ts Typesetter, content string, style TextStyle) *Block {
	b := &Block{ts: ts, content: content, style: style}
	b.lines = b.layout(0)
	return b
}

// Content 返回块内文本。
func (b *Block) Content() string { return b.content }

// Style 返回块使用的样式。
func (b *Block) Style() TextStyle { return b.style }

// Err 返回最近一次排版失败的错误。
func (b *Block) Err() error { return b.err }

// Wrap 返回当前的宽度约束。
func (b *Block) Wrap() fit.Wrap { return b.wrap }

// Lines 返回当前约束下的行（缩放前）。
func (b *Block) Lines() []TextLine {
	out := make([]TextLine, len(b.lines))
	copy(out, b.lines)
	return out
}

// Reset 移除宽度约束。
func (b *Block) Reset() {
	b.err = nil
	b.Constrain(fit.Unconstrained)
}

// NaturalWidth 是不约束宽度时最宽一行的宽度。
func (b *Block) NaturalWidth() float64 {
	return widest(b.layout(0))
}

// MeasureAt 在 width 处重排，返回换行盒尺寸。
func (b *Block) MeasureAt(width float64) fit.Size {
	lines := b.layout(width)
	if lines == nil {
		return fit.Size{}
	}
	return fit.Size{Width: width, Height: totalHeight(lines)}
}

// Constrain 提交最终的宽度约束。
func (b *Block) Constrain(w fit.Wrap) {
	b.wrap = w
	width := 0.0
	if w.Constrained {
		width = w.Width
	}
	b.lines = b.layout(width)
}

// TightBox 是当前约束下文本的紧包围盒。
func (b *Block) TightBox() fit.Size {
	return fit.Size{Width: widest(b.lines), Height: totalHeight(b.lines)}
}

func (b *Block) layout(width float64) []TextLine {
	lines, err := layoutLines(b.content, width, b.style, b.ts)
	if err != nil {
		b.err = err
		return nil
	}
	return lines
}

func layoutLines(content string, width float64, style TextStyle, ts Typesetter) ([]TextLine, error) {
	if ts == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	lines, err := ts.LayoutLines(content, width, style.Font, style.FontSize, style.LineHeight, style.Wrap)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		height := style.LineHeight
		if height <= 0 {
			height = style.FontSize
		}
		lines = []TextLine{{Content: "", Width: 0, Height: height}}
	}
	lines[0].GapBefore = 0
	return lines, nil
}

func widest(lines []TextLine) float64 {
	w := 0.0
	for _, ln := range lines {
		w = math.Max(w, ln.Width)
	}
	return w
}

func totalHeight(lines []TextLine) float64 {
	h := 0.0
	for _, ln := range lines {
		h += ln.GapBefore + ln.Height
	}
	return h
}
