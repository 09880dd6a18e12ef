package layout

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/embiggen/dsl"
	"github.com/ByLCY/embiggen/fit"
)

const eps = 1e-6

func mustScene(t *testing.T, src string) *dsl.Scene {
	t.Helper()
	scene, err := dsl.ParseString(src)
	if err != nil {
		t.Fatalf("parse scene: %v", err)
	}
	return scene
}

func sameFit(a, b fit.Result) bool {
	return a.Factor == b.Factor && a.Constrained == b.Constrained && a.Scale == b.Scale && a.Tight == b.Tight
}

func monoOptions() BuildOptions {
	return BuildOptions{Typesetter: MonoTypesetter{}}
}

func TestBlockMeasurer(t *testing.T) {
	b := NewBlock(MonoTypesetter{CellRatio: 1}, "aaaa bbbb", TextStyle{FontSize: 1, LineHeight: 2})
	if got := b.NaturalWidth(); got != 9 {
		t.Fatalf("natural width: got=%g want=9", got)
	}
	if got := b.MeasureAt(5); got != (fit.Size{Width: 5, Height: 4}) {
		t.Fatalf("MeasureAt(5): got=%+v", got)
	}
	// MeasureAt 不改变已提交的约束
	if got := b.TightBox(); got != (fit.Size{Width: 9, Height: 2}) {
		t.Fatalf("tight box before constrain: got=%+v", got)
	}
	b.Constrain(fit.Wrap{Width: 5, Constrained: true})
	if got := b.TightBox(); got != (fit.Size{Width: 4, Height: 4}) {
		t.Fatalf("tight box after constrain: got=%+v", got)
	}
	b.Reset()
	if b.Wrap().Constrained || len(b.Lines()) != 1 {
		t.Fatalf("reset should drop the constraint, got wrap=%+v lines=%d", b.Wrap(), len(b.Lines()))
	}
}

func TestBlockEmptyContent(t *testing.T) {
	b := NewBlock(MonoTypesetter{}, "", TextStyle{FontSize: 4, LineHeight: 5})
	if got := b.NaturalWidth(); got != 0 {
		t.Fatalf("natural width of empty block: %g", got)
	}
	if got := b.TightBox(); got.Height != 5 {
		t.Fatalf("empty block should keep one line of height, got %+v", got)
	}
	res := (&fit.Fitter{}).Fit(fit.Size{Width: 100, Height: 50}, b)
	if res.Examined != 0 || res.Constrained || res.Scale != 10 {
		t.Fatalf("unexpected fit of empty block: %+v", res)
	}
}

func TestBuildSingleWordOverflowsWrapBox(t *testing.T) {
	scene := mustScene(t, `
scene Word {
  style { size: 10px line-height: 1x }
  timeline {
    resize 800px 600px
    content "Hello"
  }
}`)
	res, err := Build(scene, nil, monoOptions())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(res.Frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(res.Frames))
	}
	f := res.Frames[1]
	fs := 10 * PxToMm
	// 单词无法折行，换行盒宽高比为 3f，最接近 4:3 的是 0.44
	if !f.Fit.Constrained || math.Abs(f.Fit.Factor-0.44) > eps {
		t.Fatalf("factor: got=%g constrained=%v", f.Fit.Factor, f.Fit.Constrained)
	}
	if math.Abs(f.Fit.Tight.Width-3*fs) > eps || math.Abs(f.Fit.Tight.Height-fs) > eps {
		t.Fatalf("tight box should be the overflowing word, got %+v", f.Fit.Tight)
	}
	wantScale := math.Min(800*PxToMm/(3*fs), 600*PxToMm/fs)
	if math.Abs(f.Fit.Scale-wantScale) > eps {
		t.Fatalf("scale: got=%g want=%g", f.Fit.Scale, wantScale)
	}
	if len(f.Lines) != 1 || f.Lines[0].Content != "Hello" {
		t.Fatalf("unexpected lines: %+v", f.Lines)
	}
}

func TestBuildTimelinePlayback(t *testing.T) {
	scene := mustScene(t, `
scene Lobby v1 {
  meta { title: "Lobby" keywords: "sign, lobby" }
  style {
    size: 12px
    line-height: 1.2x
    theme: dark
    settle: 150ms
  }
  timeline {
    content "Edit me"
    resize 800px 600px
    content {
      "Welcome,"
      "${user.name|guest}!"
    }
    fullscreen 1920px 1080px
    rotate
    theme light
    exit-fullscreen 800px 600px
    clear
  }
}`)
	data := map[string]any{"user": map[string]any{"name": "Ada"}}
	res, err := Build(scene, data, monoOptions())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res.Meta.Title != "Lobby" || len(res.Meta.Keywords) != 2 || res.Settle.Milliseconds() != 150 {
		t.Fatalf("unexpected meta/settle: %+v settle=%s", res.Meta, res.Settle)
	}

	events := make([]string, 0, len(res.Frames))
	for _, f := range res.Frames {
		events = append(events, f.Event)
	}
	if got := strings.Join(events, " "); got != "content resize content fullscreen rotate theme exit-fullscreen clear" {
		t.Fatalf("unexpected events: %s", got)
	}

	first := res.Frames[0]
	if first.Fits != 1 || first.Fit.Scale != 1 || first.Fit.Examined != 0 {
		t.Fatalf("content before mount should give identity, got fits=%d fit=%+v", first.Fits, first.Fit)
	}
	if first.Theme.Name != "dark" {
		t.Fatalf("style theme not applied: %+v", first.Theme)
	}

	welcome := res.Frames[2]
	if welcome.Content != "Welcome,\nAda!" {
		t.Fatalf("binding not applied: %q", welcome.Content)
	}

	full := res.Frames[3]
	if full.Fits != 2 {
		t.Fatalf("transition should fit immediately and after settle, got %d", full.Fits)
	}
	rotated := res.Frames[4]
	if math.Abs(rotated.Viewport.Width-full.Viewport.Height) > eps || math.Abs(rotated.Viewport.Height-full.Viewport.Width) > eps {
		t.Fatalf("rotate should swap the viewport: %+v -> %+v", full.Viewport, rotated.Viewport)
	}
	themed := res.Frames[5]
	if themed.Fits != 0 || themed.Theme.Name != "light" || !sameFit(themed.Fit, rotated.Fit) {
		t.Fatalf("theme change should not refit: fits=%d theme=%s", themed.Fits, themed.Theme.Name)
	}

	for _, f := range res.Frames[1:7] {
		scaled := f.Fit.Scaled()
		if scaled.Width > f.Viewport.Width+eps || scaled.Height > f.Viewport.Height+eps {
			t.Fatalf("frame %d clips: scaled=%+v viewport=%+v", f.Index, scaled, f.Viewport)
		}
		flushW := math.Abs(scaled.Width-f.Viewport.Width) < 1e-6*f.Viewport.Width
		flushH := math.Abs(scaled.Height-f.Viewport.Height) < 1e-6*f.Viewport.Height
		if !flushW && !flushH {
			t.Fatalf("frame %d is not flush on any axis: scaled=%+v viewport=%+v", f.Index, scaled, f.Viewport)
		}
	}

	last := res.Frames[7]
	if last.Content != "" || last.Lines != nil || last.Fit.Scale != 1 {
		t.Fatalf("clear should reset to identity: %+v", last)
	}
}

func TestBuildUnmountResetsScale(t *testing.T) {
	scene := mustScene(t, `scene S { timeline {
  resize 400px 300px
  content "Some longer line of text"
  unmount
} }`)
	res, err := Build(scene, nil, monoOptions())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	f := res.Frames[2]
	if !sameFit(f.Fit, fit.Identity()) || len(f.Lines) != 1 {
		t.Fatalf("unmounted container should give identity and unwrapped lines, got %+v lines=%d", f.Fit, len(f.Lines))
	}
}

func TestBuildTrace(t *testing.T) {
	scene := mustScene(t, `scene S { timeline {
  resize 400px 300px
  content "trace me please"
} }`)
	opts := monoOptions()
	opts.Debug.Trace = true
	res, err := Build(scene, nil, opts)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := len(res.Frames[1].Fit.Trace); got != fit.Steps {
		t.Fatalf("expected %d traced candidates, got %d", fit.Steps, got)
	}

	path := filepath.Join(t.TempDir(), "debug.json")
	if err := WriteDebugJSON(res, path); err != nil {
		t.Fatalf("write debug: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read debug: %v", err)
	}
	var decoded Result
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode debug json: %v", err)
	}
	if len(decoded.Frames) != 2 || decoded.Frames[1].Fit.Examined != fit.Steps {
		t.Fatalf("debug json lost frames: %+v", decoded.Frames)
	}
}

func TestBuildErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"unknown command", `scene S { timeline { dance } }`, "dance"},
		{"bad viewport", `scene S { timeline { resize wide tall } }`, "wide"},
		{"missing viewport", `scene S { timeline { fullscreen } }`, "宽和高"},
		{"bad size", `scene S { style { size: huge } timeline { resize 1 1 } }`, "huge"},
		{"bad color", `scene S { style { background: "#12" } timeline { resize 1 1 } }`, "#12"},
		{"bad hex digits", `scene S { style { background: "zzz" } timeline { resize 1 1 } }`, "zzz"},
		{"bad long hex", `scene S { style { color: "#12345g" } timeline { resize 1 1 } }`, "#12345g"},
		{"no timeline", `scene S { style { size: 12px } }`, "timeline"},
	}
	for _, tc := range cases {
		_, err := Build(mustScene(t, tc.src), nil, monoOptions())
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error mentioning %q, got %v", tc.name, tc.want, err)
		}
	}

	if _, err := Build(mustScene(t, `scene S { timeline { clear } }`), nil, BuildOptions{}); err == nil {
		t.Fatalf("expected error without typesetter")
	}
}

func TestParseColor(t *testing.T) {
	cases := map[string]Color{
		"#fff":      {R: 255, G: 255, B: 255},
		"0a0":       {R: 0, G: 170, B: 0},
		"#1e90ff":   {R: 30, G: 144, B: 255},
		"#1E90FF80": {R: 30, G: 144, B: 255},
	}
	for in, want := range cases {
		got, err := parseColor(in)
		if err != nil || got != want {
			t.Fatalf("parseColor(%q) = %+v, %v want %+v", in, got, err, want)
		}
	}
	for _, in := range []string{"zzz", "#12", "#-12345", "#12345g", "#1234567z", "#+fffff"} {
		if _, err := parseColor(in); err == nil {
			t.Fatalf("parseColor(%q) should fail", in)
		}
	}
}

func TestBuildLogsUnboundPlaceholders(t *testing.T) {
	var buf bytes.Buffer
	opts := monoOptions()
	opts.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	src := `
scene S {
  timeline {
    resize 400px 300px
    content "${user.name} ${user.role|guest} ${team}"
  }
}
`
	res, err := Build(mustScene(t, src), map[string]any{"team": "blue"}, opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := res.Frames[1].Content; got != "${user.name} guest blue" {
		t.Fatalf("interpolated content = %q", got)
	}
	out := buf.String()
	if !strings.Contains(out, "占位符未绑定") || !strings.Contains(out, "user.name") {
		t.Fatalf("expected unbound path in debug log, got %q", out)
	}
	if strings.Contains(out, "user.role") || strings.Contains(out, "paths=[team]") {
		t.Fatalf("bound or defaulted paths must not be reported: %q", out)
	}
}

func TestParseFontResource(t *testing.T) {
	cases := []struct {
		in   string
		want FontResource
	}{
		{"", FontResource{Name: "go-regular", Src: "embed:go-regular"}},
		{"lm-roman", FontResource{Name: "lm-roman", Src: "embed:lm-roman"}},
		{"embed:go-mono", FontResource{Name: "go-mono", Src: "embed:go-mono"}},
		{"fonts/Custom.ttf", FontResource{Name: "fonts/Custom.ttf", Src: "fonts/Custom.ttf"}},
	}
	for _, tc := range cases {
		if got := ParseFontResource(tc.in, ""); got != tc.want {
			t.Fatalf("ParseFontResource(%q) = %+v want %+v", tc.in, got, tc.want)
		}
	}
}

func TestFitTextMatchesPlayback(t *testing.T) {
	scene := mustScene(t, `
scene Same {
  timeline {
    resize 640px 480px
    content "Edit me"
  }
}`)
	res, err := Build(scene, nil, monoOptions())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	viewport := fit.Size{Width: 640 * PxToMm, Height: 480 * PxToMm}
	frame, err := FitText("Edit me", viewport, monoOptions())
	if err != nil {
		t.Fatalf("FitText: %v", err)
	}
	if frame.Fits != 1 || !sameFit(frame.Fit, res.Frames[1].Fit) {
		t.Fatalf("FitText = %+v, playback = %+v", frame.Fit, res.Frames[1].Fit)
	}
	if frame.Theme.Name != "light" || frame.Content != "Edit me" {
		t.Fatalf("unexpected frame: %+v", frame)
	}

	if _, err := FitText("x", viewport, BuildOptions{}); err == nil {
		t.Fatalf("expected error without typesetter")
	}
	if _, err := FitText("x", viewport, BuildOptions{Typesetter: MonoTypesetter{}, Defaults: StyleDefaults{FontSize: "big"}}); err == nil {
		t.Fatalf("expected error for bad size")
	}
}

func TestStageRotateAndUnmount(t *testing.T) {
	s := NewStage(MonoTypesetter{}, TextStyle{FontSize: 4, LineHeight: 4}, DarkTheme)
	if _, ok := s.Container(); ok {
		t.Fatalf("new stage should be unmounted")
	}
	if _, ok := s.Content(); ok {
		t.Fatalf("new stage should have no content")
	}
	s.Resize(fit.Size{Width: 30, Height: 10})
	s.Rotate()
	if got, ok := s.Container(); !ok || got != (fit.Size{Width: 10, Height: 30}) {
		t.Fatalf("rotate: got %+v mounted=%v", got, ok)
	}
	s.SetContent("abc")
	s.Apply(fit.Result{Factor: 0.5, Constrained: true, WrapWidth: 5, Scale: 2})
	s.Unmount()
	s.Apply(fit.Identity())
	if s.Block().Wrap().Constrained {
		t.Fatalf("identity should drop the wrap constraint")
	}
	f := s.Snapshot(3, "unmount")
	if f.Index != 3 || f.Theme.Name != "dark" || f.Fit.Scale != 1 || f.Content != "abc" {
		t.Fatalf("unexpected snapshot: %+v", f)
	}
	s.Clear()
	if s.Block() != nil {
		t.Fatalf("clear should drop the block")
	}
}
