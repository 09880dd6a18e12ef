package layout

import (
	"github.com/ByLCY/embiggen/fit"
	"github.com/ByLCY/embiggen/trigger"
)

// Stage 是一个宿主：一个容器加一段可选的文本内容，实现 trigger.Surface。
//
// Stage 不加锁，调用方需保证所有操作（包括 trigger 的适配）在同一个 goroutine 中执行。
type Stage struct {
	container fit.Size
	mounted   bool
	block     *Block
	style     TextStyle
	theme     Theme
	ts        Typesetter
	applied   fit.Result
}

var _ trigger.Surface = (*Stage)(nil)

// NewStage 创建一个尚未挂载容器、没有内容的 Stage。
func NewStage(ts Typesetter, style TextStyle, theme Theme) *Stage {
	return &Stage{ts: ts, style: style, theme: theme, applied: fit.Identity()}
}

// Resize 挂载容器并设置尺寸（mm）。
func (s *Stage) Resize(size fit.Size) {
	s.container, s.mounted = size, true
}

// Rotate 交换容器宽高。
func (s *Stage) Rotate() {
	s.container = fit.Size{Width: s.container.Height, Height: s.container.Width}
}

// Unmount 卸载容器，下一次适配得到 Identity。
func (s *Stage) Unmount() { s.mounted = false }

// SetContent 用新文本替换内容。
func (s *Stage) SetContent(text string) *Block {
	s.block = NewBlock(s.ts, text, s.style)
	return s.block
}

// Clear 移除内容。
func (s *Stage) Clear() { s.block = nil }

// SetTheme 只影响颜色，不需要重新适配。
func (s *Stage) SetTheme(t Theme) { s.theme = t }

func (s *Stage) Theme() Theme { return s.theme }

// Block 返回当前内容，没有内容时为 nil。
func (s *Stage) Block() *Block { return s.block }

// Applied 返回最近一次写入的适配结果。
func (s *Stage) Applied() fit.Result { return s.applied }

func (s *Stage) Container() (fit.Size, bool) {
	return s.container, s.mounted
}

func (s *Stage) Content() (fit.Measurer, bool) {
	if s.block == nil {
		return nil, false
	}
	return s.block, true
}

func (s *Stage) Apply(res fit.Result) {
	s.applied = res
	if s.block != nil && !res.Constrained {
		// 适配被跳过时（容器未挂载）同样要去掉旧的宽度约束
		s.block.Constrain(res.Wrap())
	}
}

// Snapshot 记录当前显示状态。
func (s *Stage) Snapshot(index int, event string) Frame {
	f := Frame{
		Index:    index,
		Event:    event,
		Viewport: s.container,
		Style:    s.style,
		Theme:    s.theme,
		Fit:      s.applied,
	}
	if s.block != nil {
		f.Content = s.block.Content()
		f.Lines = s.block.Lines()
	}
	return f
}
