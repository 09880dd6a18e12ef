// Package fonts 提供可通过 embed:<name> 引用的内置字体。
package fonts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-fonts/latin-modern/lmmono10regular"
	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/go-fonts/latin-modern/lmsans10regular"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Default 是未指定字体时使用的内置字体。
const Default = "go-regular"

var builtin = map[string][]byte{
	"go-regular": goregular.TTF,
	"go-bold":    gobold.TTF,
	"go-mono":    gomono.TTF,
	"lm-roman":   lmroman10regular.TTF,
	"lm-bold":    lmroman10bold.TTF,
	"lm-sans":    lmsans10regular.TTF,
	"lm-mono":    lmmono10regular.TTF,
}

// aliases 兼容常见写法。
var aliases = map[string]string{
	"go":           "go-regular",
	"mono":         "go-mono",
	"serif":        "lm-roman",
	"sans":         "lm-sans",
	"sans-serif":   "lm-sans",
	"monospace":    "go-mono",
	"latin-modern": "lm-roman",
}

// Load 返回内置字体的字节数据，name 可写为 "embed:go-regular" 或直接 "go-regular"。
func Load(name string) ([]byte, error) {
	key := Canonical(name)
	data, ok := builtin[key]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 未知字体（可用: %s）", name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Canonical 去掉 embed: 前缀并展开别名。
func Canonical(name string) string {
	key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "embed:")))
	if key == "" {
		return Default
	}
	if alias, ok := aliases[key]; ok {
		return alias
	}
	return key
}

// Has 报告 name 是否为内置字体。
func Has(name string) bool {
	_, ok := builtin[Canonical(name)]
	return ok
}

// Names 按字母序返回所有内置字体名。
func Names() []string {
	out := make([]string, 0, len(builtin))
	for name := range builtin {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
