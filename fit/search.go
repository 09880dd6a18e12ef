package fit

import (
	"encoding/json"
	"math"
)

// Steps 是宽度比例的离散候选数：1.00, 0.99, …, 0.01。
const Steps = 100

// Candidate 记录一次候选宽度的测量，调试输出用。
type Candidate struct {
	Factor   float64 `json:"factor"`
	Box      Size    `json:"box"`
	Distance float64 `json:"distance"` // 不可用的测量记为 +Inf
}

// MarshalJSON 将不可用测量的 +Inf 距离写为 null，JSON 不支持无穷大。
func (c Candidate) MarshalJSON() ([]byte, error) {
	type plain Candidate
	out := struct {
		plain
		Distance *float64 `json:"distance"`
	}{plain: plain(c)}
	if !math.IsInf(c.Distance, 0) && !math.IsNaN(c.Distance) {
		out.Distance = &c.Distance
	}
	return json.Marshal(out)
}

// SearchResult 是 Search 的输出。
type SearchResult struct {
	Factor   float64 // Found 为 false 时为 0
	Found    bool
	Distance float64
	Examined int
}

// MeasureFunc 在给定宽度下重排并返回换行盒尺寸。
type MeasureFunc func(width float64) Size

// Search 在 100 个离散宽度比例中寻找换行后宽高比最接近 target 的一个。
//
// 比例从 1.00 递减到 0.01。第一个候选（1.00）只用来初始化最佳距离，不会被记为结果；
// 之后的候选只有距离严格更小时才替换当前最佳，距离相同时先出现的保留。
// 因此 1.00 即使最优也会返回 Found=false，调用方按不约束宽度处理。
func Search(target, natural float64, measure MeasureFunc, trace func(Candidate)) SearchResult {
	var (
		res         SearchResult
		best        float64
		initialized bool
	)
	for i := Steps; i >= 1; i-- {
		factor := float64(i) / Steps
		box := measure(natural * factor)
		distance := ratioDistance(target, box)
		res.Examined++
		if trace != nil {
			trace(Candidate{Factor: factor, Box: box, Distance: distance})
		}

		if !initialized {
			best = distance
			initialized = true
			continue
		}
		if distance < best {
			best = distance
			res.Factor = factor
			res.Found = true
		}
	}
	res.Distance = best
	return res
}

func ratioDistance(target float64, box Size) float64 {
	ratio, ok := box.Ratio()
	if !ok || !positive(target) {
		return math.Inf(1)
	}
	return math.Abs(target - ratio)
}

// ScaleToFit 计算让 box 完整放入 container 的最大统一缩放系数。
// 容器无效时返回 1；box 中为 0 或非有限值的轴被跳过，两个轴都不可用时同样返回 1。
func ScaleToFit(container, box Size) float64 {
	if !container.Valid() {
		return 1
	}
	scale := math.Inf(1)
	if positive(box.Width) {
		scale = container.Width / box.Width
	}
	if positive(box.Height) {
		scale = math.Min(scale, container.Height/box.Height)
	}
	if !positive(scale) {
		return 1
	}
	return scale
}
