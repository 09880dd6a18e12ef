package trigger

import "time"

// Stopper 取消一个尚未执行的定时任务。
type Stopper interface {
	Stop() bool
}

// Scheduler 在延迟之后执行 f。
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

// WallClock 使用 time.AfterFunc。
type WallClock struct{}

func (WallClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// Immediate 忽略延迟，在调用方的 goroutine 中立即执行，用于离线回放。
type Immediate struct{}

func (Immediate) AfterFunc(_ time.Duration, f func()) Stopper {
	f()
	return doneStopper{}
}

type doneStopper struct{}

func (doneStopper) Stop() bool { return false }
