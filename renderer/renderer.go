package renderer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ByLCY/embiggen/layout"
)

// Renderer 将整段回放结果输出为最终文件，每一帧一页（PDF）。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}

// FrameRenderer 将单独一帧输出为指定格式。
type FrameRenderer interface {
	RenderFrame(frame layout.Frame, format Format) ([]byte, error)
}

// Format 是输出文件格式。
type Format string

const (
	FormatPDF Format = "pdf"
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ParseFormat 解析格式名，大小写不敏感，允许带点号。
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")); f {
	case FormatPDF, FormatSVG, FormatPNG:
		return f, nil
	default:
		return "", fmt.Errorf("不支持的输出格式 %q（可选 pdf/svg/png）", s)
	}
}

// FormatFromPath 根据文件扩展名推断格式，无法识别时返回 fallback。
func FormatFromPath(path string, fallback Format) Format {
	if f, err := ParseFormat(filepath.Ext(path)); err == nil {
		return f
	}
	return fallback
}

// ContentType 返回格式对应的 MIME 类型。
func (f Format) ContentType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	default:
		return "application/pdf"
	}
}
