// Package binding 将内容中的占位符替换为 JSON 数据中的值。
package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate 将文本中的 ${path.to.value} 替换为 data 中的值。
// 写成 ${path|默认值} 时，路径不存在（或 data 为空）使用默认值；
// 没有默认值且路径不存在时保留原占位符。
func Interpolate(text string, data any) string {
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		path, fallback, hasFallback := strings.Cut(groups[1], "|")
		path = strings.TrimSpace(path)
		if path != "" && data != nil {
			if val, ok := resolvePath(data, path); ok && val != nil {
				return format(val)
			}
		}
		if hasFallback {
			return fallback
		}
		return match
	})
}

// Placeholders 返回文本中引用的全部路径，按出现顺序。
func Placeholders(text string) []string {
	var out []string
	for _, groups := range exprPattern.FindAllStringSubmatch(text, -1) {
		path, _, _ := strings.Cut(groups[1], "|")
		if path = strings.TrimSpace(path); path != "" {
			out = append(out, path)
		}
	}
	return out
}

// format 让 JSON 解码出的整数不带小数点。
func format(val any) string {
	if f, ok := val.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(val)
}

// step 是路径中的一段：对象字段或数组下标。
type step struct {
	key   string
	index int
	isIdx bool
}

// parsePath 把 "user.tags[1]" 拆成 user、tags、[1] 三段。
func parsePath(path string) ([]step, bool) {
	var steps []step
	for _, part := range strings.Split(path, ".") {
		name, rest, hasIdx := strings.Cut(part, "[")
		if name != "" {
			steps = append(steps, step{key: name})
		}
		for hasIdx {
			raw, after, closed := strings.Cut(rest, "]")
			n, err := strconv.Atoi(raw)
			if !closed || err != nil {
				return nil, false
			}
			steps = append(steps, step{index: n, isIdx: true})
			if after == "" {
				break
			}
			if after[0] != '[' {
				return nil, false
			}
			rest = after[1:]
		}
	}
	return steps, len(steps) > 0
}

func resolvePath(data any, path string) (any, bool) {
	steps, ok := parsePath(path)
	if !ok {
		return nil, false
	}
	cur := data
	for _, st := range steps {
		switch c := cur.(type) {
		case map[string]any:
			if st.isIdx {
				return nil, false
			}
			v, found := c[st.key]
			if !found {
				return nil, false
			}
			cur = v
		case []any:
			if !st.isIdx || st.index < 0 || st.index >= len(c) {
				return nil, false
			}
			cur = c[st.index]
		default:
			return nil, false
		}
	}
	return cur, true
}
