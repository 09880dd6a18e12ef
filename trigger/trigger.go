// Package trigger 在容器尺寸、内容或布局过渡发生变化时重新执行适配。
package trigger

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ByLCY/embiggen/fit"
)

// DefaultSettle 是布局过渡（全屏、旋转）之后补充适配的延迟。
const DefaultSettle = 100 * time.Millisecond

// Event 表示触发一次适配的原因。
type Event int

const (
	Resized        Event = iota // 容器尺寸变化
	ContentChanged              // 提交了新内容
	Transition                  // 全屏进入/退出、屏幕旋转
)

func (e Event) String() string {
	switch e {
	case Resized:
		return "resized"
	case ContentChanged:
		return "content-changed"
	case Transition:
		return "transition"
	default:
		return "unknown"
	}
}

// Surface 是宿主一侧：提供容器尺寸与可测量内容，并接收适配结果。
type Surface interface {
	// Container 返回容器尺寸；容器未挂载时 ok 为 false。
	Container() (fit.Size, bool)
	// Content 返回可测量的内容；内容未挂载时 ok 为 false。
	Content() (fit.Measurer, bool)
	// Apply 写入宽度约束与缩放。
	Apply(res fit.Result)
}

// Options 配置 Trigger。
type Options struct {
	Settle    time.Duration // <=0 时使用 DefaultSettle
	Scheduler Scheduler     // 为空时使用 WallClock
	Fitter    *fit.Fitter
	Logger    *slog.Logger
}

// Trigger 把事件转换为适配调用。
//
// 所有适配串行执行。延迟补充适配不会被之后的事件取消，最后执行的那次结果生效。
type Trigger struct {
	surface   Surface
	fitter    *fit.Fitter
	scheduler Scheduler
	settle    time.Duration
	log       *slog.Logger

	runMu sync.Mutex // 串行化适配，相当于宿主的单一 UI 线程

	mu      sync.Mutex
	pending map[*pendingRun]struct{}
	closed  bool
	runs    int
}

type pendingRun struct {
	stop Stopper
}

// New 创建绑定到 surface 的 Trigger。
func New(surface Surface, opts Options) *Trigger {
	settle := opts.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = WallClock{}
	}
	fitter := opts.Fitter
	if fitter == nil {
		fitter = &fit.Fitter{Logger: opts.Logger}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Trigger{
		surface:   surface,
		fitter:    fitter,
		scheduler: scheduler,
		settle:    settle,
		log:       logger,
		pending:   map[*pendingRun]struct{}{},
	}
}

// Notify 立即执行一次适配；对 Transition 事件再安排一次延迟适配，
// 以吸收宿主在过渡之后异步完成的布局变化。
func (t *Trigger) Notify(ev Event) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}

	t.log.Debug("收到事件", slog.String("event", ev.String()))
	t.run(ev)
	if ev == Transition {
		t.scheduleSettle(ev)
	}
}

// Runs 返回已执行的适配次数。
func (t *Trigger) Runs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runs
}

// Close 停止所有待执行的延迟适配，之后的 Notify 不再生效。
func (t *Trigger) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for p := range t.pending {
		if p.stop != nil {
			p.stop.Stop()
		}
	}
	t.pending = nil
}

func (t *Trigger) scheduleSettle(ev Event) {
	p := &pendingRun{}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.pending[p] = struct{}{}
	t.mu.Unlock()

	stop := t.scheduler.AfterFunc(t.settle, func() {
		t.mu.Lock()
		_, live := t.pending[p]
		delete(t.pending, p)
		t.mu.Unlock()
		if !live {
			return
		}
		t.log.Debug("延迟适配", slog.String("event", ev.String()), slog.Duration("settle", t.settle))
		t.run(ev)
	})

	t.mu.Lock()
	if _, live := t.pending[p]; live {
		p.stop = stop
	}
	t.mu.Unlock()
}

func (t *Trigger) run(ev Event) {
	t.runMu.Lock()
	defer t.runMu.Unlock()

	res := fit.Identity()
	container, okContainer := t.surface.Container()
	content, okContent := t.surface.Content()
	if okContainer && okContent {
		res = t.fitter.Fit(container, content)
	} else {
		t.log.Debug("容器或内容未挂载，重置缩放", slog.String("event", ev.String()))
	}
	t.surface.Apply(res)

	t.mu.Lock()
	t.runs++
	t.mu.Unlock()
}
