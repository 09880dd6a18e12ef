package layout

import (
	"time"

	"github.com/ByLCY/embiggen/fit"
)

// 该文件定义场景回放结果，供渲染、调试 JSON 与服务端推送共用。长度单位均为 mm。

// Result 保存回放得到的所有帧。
type Result struct {
	Scene  string        `json:"scene"`
	Frames []Frame       `json:"frames"`
	Meta   DocumentMeta  `json:"meta"`
	Settle time.Duration `json:"settle"`
}

// Frame 是时间线上一个事件之后的显示状态。
type Frame struct {
	Index    int        `json:"index"`
	Event    string     `json:"event"`    // 触发该帧的时间线命令
	Fits     int        `json:"fits"`     // 该命令引发的适配次数（含过渡后的补充适配）
	Viewport fit.Size   `json:"viewport"` // 容器尺寸（mm）
	Content  string     `json:"content"`
	Style    TextStyle  `json:"style"`
	Theme    Theme      `json:"theme"`
	Fit      fit.Result `json:"fit"`
	Lines    []TextLine `json:"lines"` // 在换行约束下、缩放前的行
}

// TextStyle 是字体相关的设置，字号与行高均为 mm。
type TextStyle struct {
	Font       FontResource `json:"font"`
	FontSize   float64      `json:"fontSize"`
	LineHeight float64      `json:"lineHeight"`
	Wrap       string       `json:"wrap,omitempty"` // normal(默认)/anywhere/break-word/nowrap
}

// FontResource 描述字体资源，src 可以是文件路径或 embed:<name>。
type FontResource struct {
	Name  string `json:"name"`
	Src   string `json:"src"`
	Style string `json:"style,omitempty"`
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Theme 是一帧的前景色与背景色。
type Theme struct {
	Name       string `json:"name"`
	Foreground Color  `json:"foreground"`
	Background Color  `json:"background"`
}

var (
	LightTheme = Theme{Name: "light", Foreground: Color{R: 30, G: 30, B: 30}, Background: Color{R: 255, G: 255, B: 255}}
	DarkTheme  = Theme{Name: "dark", Foreground: Color{R: 240, G: 240, B: 240}, Background: Color{R: 18, G: 18, B: 18}}
)

// ThemeByName returns the named theme; unknown names fall back to light.
func ThemeByName(name string) Theme {
	if name == "dark" {
		return DarkTheme
	}
	return LightTheme
}

// TextLine 表示排版后的一行文本内容及其宽高。
type TextLine struct {
	Content   string  `json:"content"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	GapBefore float64 `json:"gapBefore,omitempty"`
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}

// ScaledLine 是按帧缩放系数换算后的行位置，渲染器直接使用。
type ScaledLine struct {
	Content  string
	Top      float64
	Height   float64
	FontSize float64
}

// Placed 返回按缩放系数摆放后的行，原点为容器左上角。
func (f Frame) Placed() []ScaledLine {
	scale := f.Fit.Scale
	if scale <= 0 {
		scale = 1
	}
	out := make([]ScaledLine, 0, len(f.Lines))
	cursor := 0.0
	for _, ln := range f.Lines {
		cursor += ln.GapBefore * scale
		out = append(out, ScaledLine{
			Content:  ln.Content,
			Top:      cursor,
			Height:   ln.Height * scale,
			FontSize: f.Style.FontSize * scale,
		})
		cursor += ln.Height * scale
	}
	return out
}
