package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestInitWritesRotatingJSONFile 验证文件日志为 JSON，且带有静态与上下文属性。
func TestInitWritesRotatingJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embiggen.log")
	var console bytes.Buffer
	Init(Options{Level: "debug", Format: "console", File: path, Output: &console})

	l := WithOperation(WithComponent("fit"), "search")
	l.Info("fit done", slog.Float64("scale", 2.5))

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var last string
	scanner := bufio.NewScanner(bytes.NewReader(b))
	for scanner.Scan() {
		if s := strings.TrimSpace(scanner.Text()); s != "" {
			last = s
		}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log %q: %v", last, err)
	}
	if m["app"] != "embiggen" || m["component"] != "fit" || m["op"] != "search" || m["msg"] != "fit done" {
		t.Fatalf("unexpected record: %v", m)
	}
	if m["scale"] != 2.5 {
		t.Fatalf("scale attr mismatch: %v", m["scale"])
	}
	if !strings.Contains(console.String(), "INF fit done") || !strings.Contains(console.String(), "component=fit") {
		t.Fatalf("console output missing record: %q", console.String())
	}
}

func TestInitJSONConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := Init(Options{Level: "warn", Format: "JSON", Output: &buf})
	logger.Info("dropped")
	logger.Warn("kept", slog.Int("n", 1))
	out := strings.TrimSpace(buf.String())
	if strings.Contains(out, "dropped") {
		t.Fatalf("info should be filtered at warn level: %q", out)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("expected one json line, got %q: %v", out, err)
	}
	if m["msg"] != "kept" || m["level"] != "WARN" {
		t.Fatalf("unexpected record: %v", m)
	}
	if slog.Default() != logger || L() != logger {
		t.Fatalf("Init should replace the default logger")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvLevel, "warn")
	t.Setenv(EnvFormat, "json")
	t.Setenv(EnvSource, "yes")
	t.Setenv(EnvFile, "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
	if v := getenv("EMBIGGEN_SURELY_UNSET", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback failed: %q", v)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, " WARNING ": slog.LevelWarn, "error": slog.LevelError, "loud": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v want %v", in, got, want)
		}
	}
}

func TestPrettyTextHandler(t *testing.T) {
	var buf bytes.Buffer
	h := newPrettyHandler(&buf, slog.LevelWarn, false)

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should not be enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}

	h2 := h.WithAttrs([]slog.Attr{slog.String("k", "v")}).WithGroup("grp")
	r := slog.NewRecord(time.Now(), slog.LevelError, "boom", 0)
	r.AddAttrs(slog.Int("n", 42), slog.Float64("pi", 3.14), slog.Bool("ok", true), slog.String("text", "two words"))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("handle error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"ERR boom", " k=v", "grp.n=42", "grp.pi=3.14", "grp.ok=true", `grp.text="two words"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q: %q", want, out)
		}
	}
}
