package renderer

import "testing"

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"pdf": FormatPDF, ".SVG": FormatSVG, " png ": FormatPNG}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q,%v want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("gif"); err == nil {
		t.Fatalf("expected error for gif")
	}
}

func TestFormatFromPath(t *testing.T) {
	if got := FormatFromPath("out/frame.png", FormatPDF); got != FormatPNG {
		t.Fatalf("got %q", got)
	}
	if got := FormatFromPath("out/frame", FormatSVG); got != FormatSVG {
		t.Fatalf("fallback not used: %q", got)
	}
	if FormatSVG.ContentType() != "image/svg+xml" || Format("x").ContentType() != "application/pdf" {
		t.Fatalf("unexpected content types")
	}
}
