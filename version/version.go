// Package version 保存构建时注入的版本信息。
package version

import "fmt"

// 通过 -ldflags "-X github.com/ByLCY/embiggen/version.Version=..." 覆盖。
var (
	Version = "dev"
	Commit  = ""
)

// String 返回可读的版本字符串。
func String() string {
	if Commit == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
