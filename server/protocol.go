package server

import (
	"github.com/ByLCY/embiggen/fit"
)

// 客户端发来的消息类型。
const (
	MsgResize     = "resize"     // 容器尺寸变化，width/height 为 CSS 像素
	MsgContent    = "content"    // 提交新文本
	MsgTransition = "transition" // 进入/退出全屏、旋转；带新的容器尺寸
	MsgTheme      = "theme"      // light | dark
	MsgUnmount    = "unmount"    // 显示区域被隐藏
)

// 服务端推送的消息类型。
const (
	MsgHello = "hello"
	MsgFrame = "frame"
	MsgError = "error"
)

// ClientMessage 是 /ws 上客户端发送的 JSON 文本消息。
type ClientMessage struct {
	Type   string  `json:"type"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Text   string  `json:"text,omitempty"`
	Theme  string  `json:"theme,omitempty"`
	Kind   string  `json:"kind,omitempty"` // transition: fullscreen | exit-fullscreen | rotate
}

// Hello 是连接建立后的第一条消息。Theme 为 system 时由浏览器自行判断。
type Hello struct {
	Type     string `json:"type"`
	Session  string `json:"session"`
	Theme    string `json:"theme"`
	Content  string `json:"content"`
	SettleMs int64  `json:"settleMs"`
}

// FrameMessage 携带一次适配结果与渲染好的 SVG。
type FrameMessage struct {
	Type     string     `json:"type"`
	Seq      uint64     `json:"seq"`
	Event    string     `json:"event"`
	Viewport fit.Size   `json:"viewport"` // mm
	Theme    string     `json:"theme"`
	Fit      fit.Result `json:"fit"`
	SVG      string     `json:"svg,omitempty"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
