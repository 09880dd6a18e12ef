package layout

import (
	"math"
	"strings"
	"unicode"
)

// 换行模式，对应 CSS 的 white-space / overflow-wrap 组合。
const (
	WrapNormal    = "normal"     // 只在空白处折行，超长单词溢出
	WrapBreakWord = "break-word" // 优先空白处折行，超长单词在词内拆分
	WrapAnywhere  = "anywhere"   // 任意字符处折行
	WrapNone      = "nowrap"     // 只按显式换行
)

// NormalizeWrap 将未知取值归为 normal。
func NormalizeWrap(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case WrapBreakWord, "break-words":
		return WrapBreakWord
	case WrapAnywhere, "break-all":
		return WrapAnywhere
	case WrapNone, "no-wrap", "pre":
		return WrapNone
	default:
		return WrapNormal
	}
}

// GreedyWrap 用贪心算法将 content 折成不超过 width 的行。width <= 0 表示不限制。
// measure 返回一段文本的宽度，单位与 width 一致。返回的行只填充 Content 与 Width。
func GreedyWrap(content string, width float64, mode string, measure func(string) float64) []TextLine {
	limit := width
	if limit <= 0 {
		limit = math.MaxFloat64
	}
	mode = NormalizeWrap(mode)

	if mode == WrapNone {
		parts := strings.Split(strings.ReplaceAll(content, "\r", ""), "\n")
		lines := make([]TextLine, 0, len(parts))
		for _, p := range parts {
			lines = append(lines, TextLine{Content: p, Width: measure(p)})
		}
		return lines
	}

	var (
		lines   []TextLine
		builder strings.Builder
		current float64
	)
	emit := func(force bool) {
		str := strings.TrimRightFunc(builder.String(), unicode.IsSpace)
		builder.Reset()
		current = 0
		if str == "" {
			if force {
				lines = append(lines, TextLine{})
			}
			return
		}
		lines = append(lines, TextLine{Content: str, Width: measure(str)})
	}

	wrapped := false // 当前行由宽度折行产生，行首空白需要丢弃

	if mode == WrapAnywhere {
		for _, r := range content {
			if r == '\r' {
				continue
			}
			if r == '\n' {
				emit(true)
				wrapped = false
				continue
			}
			space := unicode.IsSpace(r)
			if space && wrapped && builder.Len() == 0 {
				continue
			}
			s := string(r)
			cw := measure(s)
			if current > 0 && current+cw > limit {
				emit(false)
				wrapped = true
				if space {
					continue
				}
			}
			builder.WriteString(s)
			current += cw
		}
		emit(true)
		return lines
	}

	// normal / break-word：在空白处分割
	for _, token := range tokenize(content) {
		if token == "\n" {
			emit(true)
			wrapped = false
			continue
		}
		blank := strings.TrimSpace(token) == ""
		if blank && wrapped && current == 0 {
			continue
		}

		tokenWidth := measure(token)
		if current > 0 && current+tokenWidth > limit {
			emit(false)
			wrapped = true
			if blank {
				continue
			}
		}
		if tokenWidth <= limit || mode == WrapNormal {
			builder.WriteString(token)
			current += tokenWidth
			continue
		}

		for _, chunk := range splitByWidth(token, limit, measure) {
			chunkWidth := measure(chunk)
			if current > 0 && current+chunkWidth > limit {
				emit(false)
				wrapped = true
			}
			builder.WriteString(chunk)
			current += chunkWidth
		}
	}
	emit(true)
	return lines
}

// tokenize 将文本切分为空白段、非空白段与显式换行。
func tokenize(s string) []string {
	var tokens []string
	var builder strings.Builder
	lastWasSpace := false
	flush := func() {
		if builder.Len() == 0 {
			return
		}
		tokens = append(tokens, builder.String())
		builder.Reset()
	}

	for _, r := range s {
		if r == '\r' {
			continue
		}
		if r == '\n' {
			flush()
			tokens = append(tokens, "\n")
			lastWasSpace = false
			continue
		}
		isSpace := unicode.IsSpace(r)
		if builder.Len() == 0 {
			lastWasSpace = isSpace
		} else if lastWasSpace != isSpace {
			flush()
			lastWasSpace = isSpace
		}
		builder.WriteRune(r)
	}
	flush()
	return tokens
}

func splitByWidth(token string, limit float64, measure func(string) float64) []string {
	if limit <= 0 || limit == math.MaxFloat64 {
		return []string{token}
	}
	var parts []string
	var runes []rune
	for _, r := range token {
		runes = append(runes, r)
		if len(runes) > 1 && measure(string(runes)) > limit {
			parts = append(parts, string(runes[:len(runes)-1]))
			runes = []rune{r}
		}
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
