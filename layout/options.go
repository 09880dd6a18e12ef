package layout

import (
	"log/slog"
	"time"

	"github.com/ByLCY/embiggen/trigger"
)

// BuildOptions 配置回放阶段所需的依赖，例如排版后端。
type BuildOptions struct {
	Typesetter Typesetter
	Debug      DebugOptions
	Logger     *slog.Logger
	Defaults   StyleDefaults
}

// DebugOptions 控制调试相关输出。
type DebugOptions struct {
	Trace bool // 在结果中保留每个候选宽度的测量值
}

// StyleDefaults 是场景未声明样式时使用的值，通常来自用户配置。
type StyleDefaults struct {
	Font       string
	FontSize   string
	LineHeight string
	Theme      string
	Wrap       string
	Settle     time.Duration
}

// DefaultStyle 与浏览器版本保持一致：行高 1，正常换行，浅色主题。
func DefaultStyle() StyleDefaults {
	return StyleDefaults{
		Font:       "embed:go-regular",
		FontSize:   "16px",
		LineHeight: "1x",
		Theme:      "light",
		Wrap:       "normal",
		Settle:     trigger.DefaultSettle,
	}
}

// Typesetter 负责根据字体与宽度约束将文本拆成可绘制的行。
// width <= 0 表示不限制宽度；fontSize/lineHeight 均为 mm。
type Typesetter interface {
	LayoutLines(content string, width float64, font FontResource, fontSize float64, lineHeight float64, wrap string) ([]TextLine, error)
}
