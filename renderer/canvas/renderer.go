package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/ByLCY/embiggen/fonts"
	"github.com/ByLCY/embiggen/layout"
	"github.com/ByLCY/embiggen/renderer"
)

// DefaultDPI 与浏览器的 CSS 像素一致。
const DefaultDPI = 96

// Renderer draws playback frames via github.com/tdewolff/canvas and doubles as the
// font-backed typesetter used while fitting.
type Renderer struct {
	baseDir string
	dpi     float64
	font    layout.FontResource // 覆盖帧样式中的字体

	// injected resources
	fontBlobs map[string][]byte // by unique name

	fontMu         sync.Mutex
	fontFamilies   map[string]*fontFamilyEntry
	fallbackFamily *canvas.FontFamily
}

var (
	_ renderer.Renderer      = (*Renderer)(nil)
	_ renderer.FrameRenderer = (*Renderer)(nil)
	_ layout.Typesetter      = (*Renderer)(nil)
)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	DPI     float64             // PNG 输出分辨率，<=0 时使用 DefaultDPI
	Fonts   map[string]Resource // fonts accessible via built-in:<name>
	// Font 非空时绘制一律使用该字体，忽略帧样式中的字体（--mono 用它对齐等宽网格）。
	Font layout.FontResource
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving font paths.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with injected fonts and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	dpi := opts.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	r := &Renderer{
		baseDir:      opts.BaseDir,
		dpi:          dpi,
		fontBlobs:    map[string][]byte{},
		fontFamilies: map[string]*fontFamilyEntry{},
		font:         opts.Font,
	}
	for name, res := range opts.Fonts {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			r.fontBlobs[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			data, _ := os.ReadFile(res.Path) // 读取失败时在使用该字体时报错
			if len(data) > 0 {
				r.fontBlobs[name] = data
			}
		}
	}
	return r
}

// Render renders every frame with a usable viewport as one PDF page.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	var frames []layout.Frame
	for _, f := range result.Frames {
		if f.Viewport.Valid() {
			frames = append(frames, f)
		}
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("缺少可渲染的帧（没有任何帧带有有效的容器尺寸）")
	}

	var buf bytes.Buffer
	writer := pdf.New(&buf, frames[0].Viewport.Width, frames[0].Viewport.Height, nil)
	applyMeta(writer, result.Meta)
	for i, frame := range frames {
		if i > 0 {
			writer.NewPage(frame.Viewport.Width, frame.Viewport.Height)
		}
		c, err := r.drawFrame(frame)
		if err != nil {
			return nil, fmt.Errorf("第 %d 帧: %w", frame.Index, err)
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderFrame renders a single frame as PDF, SVG or PNG.
func (r *Renderer) RenderFrame(frame layout.Frame, format renderer.Format) ([]byte, error) {
	if !frame.Viewport.Valid() {
		return nil, fmt.Errorf("帧 %d 的容器尺寸无效: %gx%g", frame.Index, frame.Viewport.Width, frame.Viewport.Height)
	}
	c, err := r.drawFrame(frame)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch format {
	case renderer.FormatPDF, "":
		writer := pdf.New(&buf, frame.Viewport.Width, frame.Viewport.Height, nil)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("写入 PDF 失败: %w", err)
		}
	case renderer.FormatSVG:
		writer := svg.New(&buf, frame.Viewport.Width, frame.Viewport.Height, nil)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("写入 SVG 失败: %w", err)
		}
	case renderer.FormatPNG:
		img := rasterizer.Draw(c, canvas.DPI(r.dpi), canvas.DefaultColorSpace)
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("写入 PNG 失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的输出格式 %q", format)
	}
	return buf.Bytes(), nil
}

func applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// LayoutLines 实现 layout.Typesetter 接口，使用贪心换行算法。
// 约定：fontSize/lineHeight 入参均为毫米（mm）。渲染器内部与字体系统交互使用 pt，并在边界做 mm↔pt 换算。
func (r *Renderer) LayoutLines(content string, width float64, font layout.FontResource, fontSize, lineHeight float64, wrap string) ([]layout.TextLine, error) {
	face, err := r.fontFace(font, toPt(fontSize), layout.Color{})
	if err != nil {
		return nil, err
	}

	// canvas 的 TextWidth 与字体度量以 mm 返回
	lines := layout.GreedyWrap(content, width, wrap, face.TextWidth)
	textHeight := face.Metrics().LineHeight
	if textHeight <= 0 {
		textHeight = lineHeight
	}
	leading := math.Max(lineHeight-textHeight, 0)
	if len(lines) == 0 {
		lines = []layout.TextLine{{Content: "", Width: 0, Height: textHeight}}
	}
	for i := range lines {
		if lines[i].Height <= 0 {
			lines[i].Height = textHeight
		}
		if i == 0 {
			lines[i].GapBefore = 0
		} else {
			lines[i].GapBefore = leading
		}
	}
	return lines, nil
}

// drawFrame 以容器左上角为原点，按 fontSize×scale 绘制文本。
func (r *Renderer) drawFrame(frame layout.Frame) (*canvas.Canvas, error) {
	w, h := frame.Viewport.Width, frame.Viewport.Height
	c := canvas.New(w, h)
	ctx := canvas.NewContext(c)

	// 背景在默认坐标系下铺满整页
	ctx.SetFillColor(colorFromLayout(frame.Theme.Background))
	ctx.DrawPath(0, 0, canvas.Rectangle(w, h))

	placed := frame.Placed()
	if len(placed) == 0 {
		return c, nil
	}
	face, err := r.fontFace(r.drawFont(frame.Style.Font), toPt(placed[0].FontSize), frame.Theme.Foreground)
	if err != nil {
		return nil, err
	}
	ascent := face.Metrics().Ascent

	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点
	for _, line := range placed {
		if line.Content == "" {
			continue
		}
		ctx.DrawText(0, line.Top+ascent, canvas.NewTextLine(face, line.Content, canvas.Left))
	}
	return c, nil
}

func (r *Renderer) drawFont(style layout.FontResource) layout.FontResource {
	if r.font.Src != "" || r.font.Name != "" {
		return r.font
	}
	return style
}

// CellRatio 返回字体中 "0" 的 advance 与字号之比。对等宽字体而言就是单元格宽度。
func (r *Renderer) CellRatio(font layout.FontResource) (float64, error) {
	face, err := r.fontFace(font, toPt(1), layout.Color{})
	if err != nil {
		return 0, err
	}
	w := face.TextWidth("0")
	if w <= 0 {
		return 0, fmt.Errorf("字体 %s 的字宽无效", fontCacheKey(font))
	}
	return w, nil
}

func (r *Renderer) fontFace(font layout.FontResource, size float64, col layout.Color) (*canvas.FontFace, error) {
	family, style, err := r.ensureFontFamily(font)
	if err != nil {
		return nil, err
	}
	return family.Face(size, colorFromLayout(col), style, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(font layout.FontResource) (*canvas.FontFamily, canvas.FontStyle, error) {
	key := fontCacheKey(font)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[key]; ok {
		return entry.family, entry.style, nil
	}

	style := parseFontStyle(font.Style)
	familyName := font.Name
	if familyName == "" {
		familyName = fonts.Default
	}
	family := canvas.NewFontFamily(familyName)

	if err := r.loadFontIntoFamily(family, font, style); err != nil {
		fallback, fbStyle, fbErr := r.fallback()
		if fbErr != nil {
			return nil, canvas.FontRegular, err
		}
		r.fontFamilies[key] = &fontFamilyEntry{family: fallback, style: fbStyle}
		return fallback, fbStyle, nil
	}

	entry := &fontFamilyEntry{family: family, style: style}
	r.fontFamilies[key] = entry
	return family, style, nil
}

func (r *Renderer) loadFontIntoFamily(family *canvas.FontFamily, font layout.FontResource, style canvas.FontStyle) error {
	data, err := r.loadFontBytes(font)
	if err != nil {
		return err
	}
	return family.LoadFont(data, 0, style)
}

func (r *Renderer) loadFontBytes(font layout.FontResource) ([]byte, error) {
	src := font.Src
	if src == "" {
		src = "embed:" + fonts.Default
	}
	if strings.HasPrefix(src, "built-in:") || strings.HasPrefix(src, "builtin:") {
		name := strings.TrimPrefix(strings.TrimPrefix(src, "built-in:"), "builtin:")
		if blob, ok := r.fontBlobs[name]; ok {
			return blob, nil
		}
		return nil, fmt.Errorf("找不到内置字体资源 built-in:%s", name)
	}
	if strings.HasPrefix(src, "embed:") {
		return fonts.Load(src)
	}
	path := src
	if r.baseDir == "" && !filepath.IsAbs(path) {
		return nil, fmt.Errorf("未指定资源目录时不允许直接使用字体路径：%s（请改用 built-in: 或 embed:）", src)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.baseDir, path)
	}
	return os.ReadFile(path)
}

func (r *Renderer) fallback() (*canvas.FontFamily, canvas.FontStyle, error) {
	if r.fallbackFamily != nil {
		return r.fallbackFamily, canvas.FontRegular, nil
	}
	data, err := fonts.Load(fonts.Default)
	if err != nil {
		return nil, canvas.FontRegular, err
	}
	family := canvas.NewFontFamily("embiggen-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, canvas.FontRegular, err
	}
	r.fallbackFamily = family
	return family, canvas.FontRegular, nil
}

func parseFontStyle(style string) canvas.FontStyle {
	if style == "" {
		return canvas.FontRegular
	}
	s := strings.ToLower(style)
	var result canvas.FontStyle
	switch {
	case strings.Contains(s, "black"):
		result = canvas.FontBlack
	case strings.Contains(s, "extrabold"):
		result = canvas.FontExtraBold
	case strings.Contains(s, "semibold"), strings.Contains(s, "demibold"):
		result = canvas.FontSemiBold
	case strings.Contains(s, "bold"):
		result = canvas.FontBold
	case strings.Contains(s, "medium"):
		result = canvas.FontMedium
	case strings.Contains(s, "light"):
		result = canvas.FontLight
	default:
		result = canvas.FontRegular
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

func fontCacheKey(font layout.FontResource) string {
	return fmt.Sprintf("%s|%s|%s", font.Name, font.Src, font.Style)
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }
