package fit

import "math"

// Size 描述一个矩形的宽高。容器、换行盒与文本紧包围盒都用它表示，单位由调用方决定。
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid 要求宽高都是大于 0 的有限值。
func (s Size) Valid() bool {
	return positive(s.Width) && positive(s.Height)
}

// Ratio 返回宽高比；高度不可用时 ok 为 false。
func (s Size) Ratio() (float64, bool) {
	if !s.Valid() {
		return 0, false
	}
	return s.Width / s.Height, true
}

// Scaled 返回按 s 等比缩放后的尺寸。
func (s Size) Scaled(scale float64) Size {
	return Size{Width: s.Width * scale, Height: s.Height * scale}
}

// Wrap 是施加在换行盒上的宽度约束。Constrained 为 false 表示不约束（自然宽度）。
type Wrap struct {
	Width       float64 `json:"width"`
	Constrained bool    `json:"constrained"`
}

// Unconstrained 移除宽度约束。
var Unconstrained = Wrap{}

// Result 是一次适配的结果：换行宽度比例与统一缩放系数。
type Result struct {
	Factor      float64     `json:"factor"` // 0 表示未施加宽度约束
	Constrained bool        `json:"constrained"`
	WrapWidth   float64     `json:"wrapWidth"`
	Scale       float64     `json:"scale"`
	Tight       Size        `json:"tight"`    // 缩放前的紧包围盒
	Examined    int         `json:"examined"` // 搜索测量过的候选数
	Trace       []Candidate `json:"trace,omitempty"`
}

// Identity 不改变内容的结果：不约束宽度，缩放为 1。
func Identity() Result {
	return Result{Scale: 1}
}

// Wrap 返回结果对应的宽度约束。
func (r Result) Wrap() Wrap {
	if !r.Constrained {
		return Unconstrained
	}
	return Wrap{Width: r.WrapWidth, Constrained: true}
}

// Scaled 返回缩放后的内容尺寸。
func (r Result) Scaled() Size {
	return r.Tight.Scaled(r.Scale)
}

// Measurer is the host layout engine as seen by the fitter. Every call may force a
// synchronous reflow; implementations must tolerate being called many times in a row.
type Measurer interface {
	// Reset removes any width constraint and scale left by a previous fit.
	Reset()
	// NaturalWidth is the wrap box width with no constraint applied.
	NaturalWidth() float64
	// MeasureAt constrains the wrap box to width, reflows and reports the wrap box.
	MeasureAt(width float64) Size
	// Constrain commits the final width constraint.
	Constrain(w Wrap)
	// TightBox is the bounding box of the innermost content at scale 1.
	TightBox() Size
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
