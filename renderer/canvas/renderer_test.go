package canvasrenderer

import (
	"bytes"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/ByLCY/embiggen/fit"
	"github.com/ByLCY/embiggen/layout"
	"github.com/ByLCY/embiggen/renderer"
)

func TestLayoutLinesGreedyWrapsText(t *testing.T) {
	r := NewRenderer(".")
	font := layout.FontResource{
		Name: "go-regular",
		Src:  "embed:go-regular",
	}

	// 这里的宽度/字号/行高均为 mm
	fontSizeMM := 12 * layout.PtToMm
	lineHeightMM := fontSizeMM * 1.2

	lines, err := r.LayoutLines("hello world again", 10, font, fontSizeMM, lineHeightMM, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) < 2 {
		t.Fatalf("expected wrapping into multiple lines, got %d", len(lines))
	}
}

func TestGreedyWrapHonorsNewlines(t *testing.T) {
	r := NewRenderer(".")
	font := layout.FontResource{
		Name: "go-regular",
		Src:  "embed:go-regular",
	}

	fontSizeMM := 12 * layout.PtToMm
	lineHeightMM := fontSizeMM * 1.2

	lines, err := r.LayoutLines("foo\n\nbar", 100, font, fontSizeMM, lineHeightMM, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines including blank, got %d", len(lines))
	}
	if lines[1].Content != "" {
		t.Fatalf("expected middle line to be blank, got %q", lines[1].Content)
	}
}

// TestLineHeightsInvariant 验证：
// 1) 首行 GapBefore == 0；
// 2) 其余行 GapBefore ≈ max(lineHeight - textHeight, 0)；
// 3) 各行的 Height 与 textHeight 一致（渲染器会用字体度量回填）。
func TestLineHeightsInvariant(t *testing.T) {
	r := NewRenderer(".")
	font := layout.FontResource{
		Name: "go-regular",
		Src:  "embed:go-regular",
	}
	fontSizeMM := 12 * layout.PtToMm
	lineHeightMM := fontSizeMM * 1.3

	content := "longlonglong longlonglong longlonglong longlonglong longlonglong"
	lines, err := r.LayoutLines(content, 40, font, fontSizeMM, lineHeightMM, "")
	if err != nil {
		t.Fatalf("LayoutLines error: %v", err)
	}
	if len(lines) < 2 {
		t.Fatalf("expected multiple lines for invariant test, got %d", len(lines))
	}

	// textHeight 以第一行 Height 为准
	textHeight := lines[0].Height
	if textHeight <= 0 {
		t.Fatalf("invalid text height: %g", textHeight)
	}
	wantLeading := math.Max(lineHeightMM-textHeight, 0)

	if lines[0].GapBefore != 0 {
		t.Fatalf("first line GapBefore must be 0, got %g", lines[0].GapBefore)
	}
	const eps = 1e-6
	for i := 1; i < len(lines); i++ {
		if diff := math.Abs(lines[i].GapBefore - wantLeading); diff > eps {
			t.Fatalf("line %d GapBefore mismatch: got=%g want=%g diff=%g", i, lines[i].GapBefore, wantLeading, diff)
		}
		if diff := math.Abs(lines[i].Height - textHeight); diff > eps {
			t.Fatalf("line %d Height mismatch: got=%g want=%g diff=%g", i, lines[i].Height, textHeight, diff)
		}
	}
}

// TestGreedyWrapWidthLimit 验证 break-word 模式下每行宽度不超过限制（mm）。
func TestGreedyWrapWidthLimit(t *testing.T) {
	r := NewRenderer(".")
	font := layout.FontResource{Src: "embed:go-regular"}
	fontSizeMM := 12 * layout.PtToMm
	lineHeightMM := fontSizeMM * 1.2

	limit := 30.0 // mm
	content := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	lines, err := r.LayoutLines(content, limit, font, fontSizeMM, lineHeightMM, layout.WrapBreakWord)
	if err != nil {
		t.Fatalf("LayoutLines error: %v", err)
	}
	if len(lines) == 0 {
		t.Fatalf("expected at least one line")
	}
	for i, ln := range lines {
		if ln.Width-limit > 1e-6 { // 允许极小的数值误差
			t.Fatalf("line %d width exceeds limit: width=%g limit=%g", i, ln.Width, limit)
		}
	}
}

// 默认（normal）模式下超长单词不拆分，整体溢出。
func TestNormalWrapKeepsLongWord(t *testing.T) {
	r := NewRenderer(".")
	font := layout.FontResource{Src: "embed:go-regular"}
	fontSizeMM := 12 * layout.PtToMm

	word := "Supercalifragilistic"
	lines, err := r.LayoutLines(word+" yes", 10, font, fontSizeMM, fontSizeMM, "")
	if err != nil {
		t.Fatalf("LayoutLines error: %v", err)
	}
	if len(lines) != 2 || lines[0].Content != word || lines[0].Width <= 10 {
		t.Fatalf("expected the long word to overflow on its own line, got %+v", lines)
	}
}

func TestUnknownFontFallsBack(t *testing.T) {
	r := NewRenderer("")
	font := layout.FontResource{Name: "nope", Src: "embed:nope"}
	lines, err := r.LayoutLines("fallback", 0, font, 4, 4, "")
	if err != nil {
		t.Fatalf("expected fallback font, got %v", err)
	}
	if len(lines) != 1 || lines[0].Width <= 0 {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}

// fittedFrame 用渲染器自身作为排版后端，生成一帧真实的适配结果。
func fittedFrame(t *testing.T, r *Renderer, content string, viewport fit.Size) layout.Frame {
	t.Helper()
	style := layout.TextStyle{
		Font:       layout.FontResource{Name: "go-regular", Src: "embed:go-regular"},
		FontSize:   16 * layout.PxToMm,
		LineHeight: 16 * layout.PxToMm,
	}
	block := layout.NewBlock(r, content, style)
	res := (&fit.Fitter{}).Fit(viewport, block)
	if block.Err() != nil {
		t.Fatalf("layout error: %v", block.Err())
	}
	return layout.Frame{
		Event:    "content",
		Viewport: viewport,
		Content:  content,
		Style:    style,
		Theme:    layout.DarkTheme,
		Fit:      res,
		Lines:    block.Lines(),
	}
}

func TestFitWithCanvasTypesetterDoesNotClip(t *testing.T) {
	r := NewRenderer("")
	viewport := fit.Size{Width: 800 * layout.PxToMm, Height: 600 * layout.PxToMm}
	frame := fittedFrame(t, r, "Welcome to the lobby, please take a seat", viewport)
	scaled := frame.Fit.Scaled()
	if scaled.Width > viewport.Width+1e-6 || scaled.Height > viewport.Height+1e-6 {
		t.Fatalf("scaled content clips: %+v in %+v", scaled, viewport)
	}
	if frame.Fit.Scale <= 1 {
		t.Fatalf("short text should be enlarged, got scale %g", frame.Fit.Scale)
	}
	if len(frame.Lines) < 2 {
		t.Fatalf("expected the text to be rewrapped for a 4:3 box, got %d lines", len(frame.Lines))
	}
}

func TestRenderFrameFormats(t *testing.T) {
	r := NewRendererWithOptions(Options{DPI: 48})
	viewport := fit.Size{Width: 200 * layout.PxToMm, Height: 100 * layout.PxToMm}
	frame := fittedFrame(t, r, "Edit me", viewport)

	pdfData, err := r.RenderFrame(frame, renderer.FormatPDF)
	if err != nil || !bytes.HasPrefix(pdfData, []byte("%PDF")) {
		t.Fatalf("pdf output invalid: err=%v prefix=%q", err, head(pdfData))
	}

	svgData, err := r.RenderFrame(frame, renderer.FormatSVG)
	if err != nil || !strings.Contains(string(svgData), "<svg") {
		t.Fatalf("svg output invalid: err=%v prefix=%q", err, head(svgData))
	}

	pngData, err := r.RenderFrame(frame, renderer.FormatPNG)
	if err != nil {
		t.Fatalf("png render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(pngData))
	if err != nil {
		t.Fatalf("png decode: %v", err)
	}
	// 200px 宽的容器在 48 DPI 下约为 100 像素
	if w := img.Bounds().Dx(); w < 98 || w > 102 {
		t.Fatalf("unexpected png width %d", w)
	}

	if _, err := r.RenderFrame(layout.Frame{}, renderer.FormatPNG); err == nil {
		t.Fatalf("expected error for frame without viewport")
	}
	if _, err := r.RenderFrame(frame, renderer.Format("gif")); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestRenderSkipsFramesWithoutViewport(t *testing.T) {
	r := NewRenderer("")
	viewport := fit.Size{Width: 100, Height: 50}
	frame := fittedFrame(t, r, "Page", viewport)
	res := &layout.Result{
		Frames: []layout.Frame{{Event: "content"}, frame, frame},
		Meta:   layout.DocumentMeta{Title: "Lobby", Creator: "Embiggen"},
	}
	data, err := r.Render(res)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected a PDF, got %q", head(data))
	}

	if _, err := r.Render(&layout.Result{Frames: []layout.Frame{{Event: "content"}}}); err == nil {
		t.Fatalf("expected error when no frame has a viewport")
	}
	if _, err := r.Render(nil); err == nil {
		t.Fatalf("expected error for nil result")
	}
}

func head(b []byte) []byte {
	if len(b) > 16 {
		return b[:16]
	}
	return b
}

func TestCellRatioMatchesMonospaceAdvance(t *testing.T) {
	r := NewRenderer("")
	mono := layout.FontResource{Name: "go-mono", Src: "embed:go-mono"}
	ratio, err := r.CellRatio(mono)
	if err != nil {
		t.Fatalf("CellRatio error: %v", err)
	}
	if ratio < 0.55 || ratio > 0.65 {
		t.Fatalf("go-mono cell ratio = %g", ratio)
	}
	size := 10.0
	lines, err := r.LayoutLines("WWWWMMMM", 0, mono, size, size, layout.WrapNone)
	if err != nil || len(lines) != 1 {
		t.Fatalf("LayoutLines = %+v, %v", lines, err)
	}
	if want := 8 * ratio * size; math.Abs(lines[0].Width-want) > 1e-6 {
		t.Fatalf("drawn width %g, cell grid %g", lines[0].Width, want)
	}
}

func TestFontOptionOverridesFrameStyle(t *testing.T) {
	mono := layout.FontResource{Name: "go-mono", Src: "embed:go-mono"}
	viewport := fit.Size{Width: 120, Height: 60}
	frame := fittedFrame(t, NewRenderer(""), "Override", viewport)

	forced, err := NewRendererWithOptions(Options{Font: mono}).RenderFrame(frame, renderer.FormatSVG)
	if err != nil {
		t.Fatalf("render with override: %v", err)
	}
	frame.Style.Font = mono
	plain, err := NewRenderer("").RenderFrame(frame, renderer.FormatSVG)
	if err != nil {
		t.Fatalf("render mono style: %v", err)
	}
	if !bytes.Equal(forced, plain) {
		t.Fatalf("Options.Font should replace the frame font")
	}
}
