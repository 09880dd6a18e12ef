// Package config 读取用户配置（YAML）并叠加环境变量覆盖。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig 是保存在用户目录下的 YAML 配置。环境变量只在运行时覆盖，不会写回文件。
//
// config_version 在结构发生不兼容变化时递增。
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Display       DisplayConfig `yaml:"display"`
	Render        RenderConfig  `yaml:"render"`
	Server        ServerConfig  `yaml:"server"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	Theme   string `yaml:"theme"`   // "system" | "light" | "dark"
	Content string `yaml:"content"` // 未提供内容时显示的文字
}

// DisplayConfig 是场景未声明样式时使用的默认值。
type DisplayConfig struct {
	Font       string `yaml:"font"`
	Size       string `yaml:"size"`
	LineHeight string `yaml:"line_height"`
	Wrap       string `yaml:"wrap"`
	SettleMs   int    `yaml:"settle_ms"`
}

type RenderConfig struct {
	Format string  `yaml:"format"` // pdf | svg | png
	DPI    float64 `yaml:"dpi"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system", Content: "Edit me"},
		Display:       DisplayConfig{Font: "go-regular", Size: "16px", LineHeight: "1x", Wrap: "normal", SettleMs: 100},
		Render:        RenderConfig{Format: "pdf", DPI: 96},
		Server:        ServerConfig{Addr: "127.0.0.1:8080"},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// 环境变量覆盖。
const (
	EnvConfig    = "EMBIGGEN_CONFIG"
	EnvTheme     = "EMBIGGEN_THEME"
	EnvFont      = "EMBIGGEN_FONT"
	EnvSize      = "EMBIGGEN_SIZE"
	EnvWrap      = "EMBIGGEN_WRAP"
	EnvSettleMs  = "EMBIGGEN_SETTLE_MS"
	EnvAddr      = "EMBIGGEN_ADDR"
	EnvDPI       = "EMBIGGEN_DPI"
	EnvLogLevel  = "EMBIGGEN_LOG_LEVEL"
	EnvLogFormat = "EMBIGGEN_LOG_FORMAT"
	EnvLogSource = "EMBIGGEN_LOG_SOURCE"
	EnvLogFile   = "EMBIGGEN_LOG_FILE"
)

// ConfigPath returns the per-user config file path; EMBIGGEN_CONFIG takes precedence.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfig)); p != "" {
		return p, nil
	}
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "embiggen", "config.yaml"), nil
}

// Load 读取配置文件（不存在时使用默认值），再叠加环境变量。path 为空时使用 ConfigPath。
// 显式指定的文件不存在或无法解析时返回错误；默认位置的文件缺失不算错误。
func Load(path string) (AppConfig, error) {
	cfg := Defaults()
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			applyEnvOverrides(&cfg)
			return cfg, cfg.Validate()
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case explicit || !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, cfg.Validate()
}

// Save 将配置写为 YAML。
func Save(cfg AppConfig, path string) error {
	if strings.TrimSpace(path) == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate 检查取值范围。
func (c AppConfig) Validate() error {
	switch c.General.Theme {
	case "system", "light", "dark":
	default:
		return fmt.Errorf("general.theme 取值无效: %q（可选 system/light/dark）", c.General.Theme)
	}
	if c.Display.SettleMs < 0 {
		return fmt.Errorf("display.settle_ms 不能为负数: %d", c.Display.SettleMs)
	}
	if c.Render.DPI < 0 {
		return fmt.Errorf("render.dpi 不能为负数: %g", c.Render.DPI)
	}
	return nil
}

// Settle 返回过渡后补充适配的延迟。
func (d DisplayConfig) Settle() time.Duration {
	return time.Duration(d.SettleMs) * time.Millisecond
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	setString(&dst.General.Theme, strings.ToLower(src.General.Theme))
	setString(&dst.General.Content, src.General.Content)

	setString(&dst.Display.Font, src.Display.Font)
	setString(&dst.Display.Size, src.Display.Size)
	setString(&dst.Display.LineHeight, src.Display.LineHeight)
	setString(&dst.Display.Wrap, strings.ToLower(src.Display.Wrap))
	if src.Display.SettleMs != 0 {
		dst.Display.SettleMs = src.Display.SettleMs
	}

	setString(&dst.Render.Format, strings.ToLower(src.Render.Format))
	if src.Render.DPI != 0 {
		dst.Render.DPI = src.Render.DPI
	}
	setString(&dst.Server.Addr, src.Server.Addr)

	setString(&dst.Logging.Level, strings.ToLower(src.Logging.Level))
	setString(&dst.Logging.Format, strings.ToLower(src.Logging.Format))
	// booleans: copy directly from src (file) so user preferences persist
	dst.Logging.Source = src.Logging.Source
	setString(&dst.Logging.File, src.Logging.File)
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := env(EnvTheme); v != "" {
		cfg.General.Theme = strings.ToLower(v)
	}
	if v := env(EnvFont); v != "" {
		cfg.Display.Font = v
	}
	if v := env(EnvSize); v != "" {
		cfg.Display.Size = v
	}
	if v := env(EnvWrap); v != "" {
		cfg.Display.Wrap = strings.ToLower(v)
	}
	if v := env(EnvSettleMs); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Display.SettleMs = n
		}
	}
	if v := env(EnvAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := env(EnvDPI); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Render.DPI = f
		}
	}
	if v := env(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := env(EnvLogFormat); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := env(EnvLogSource); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := env(EnvLogFile); v != "" {
		cfg.Logging.File = v
	}
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }

// ResolveTheme 在启动时解析一次主题：system 根据终端背景（COLORFGBG）推断，推断不出时用 light。
func ResolveTheme(theme string, getenv func(string) string) string {
	switch strings.ToLower(strings.TrimSpace(theme)) {
	case "dark":
		return "dark"
	case "light":
		return "light"
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	// COLORFGBG 形如 "15;0"，最后一段是背景色号
	parts := strings.Split(getenv("COLORFGBG"), ";")
	if bg, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
		if bg < 7 || bg == 8 {
			return "dark"
		}
	}
	return "light"
}
