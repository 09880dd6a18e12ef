package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ByLCY/embiggen/fit"
	"github.com/ByLCY/embiggen/layout"
	"github.com/ByLCY/embiggen/renderer"
	"github.com/ByLCY/embiggen/trigger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 << 10
	sendBuffer     = 64
)

// Session 是一个浏览器连接。
//
// 消息处理与延迟适配都在 loop 中执行，stage 与 trigger 的适配因此不会并发。
type Session struct {
	ID string

	srv     *Server
	conn    *websocket.Conn
	stage   *layout.Stage
	trigger *trigger.Trigger
	log     *slog.Logger

	inbound chan ClientMessage
	tasks   chan func()
	send    chan []byte
	done    chan struct{}
	once    sync.Once

	// 仅在 loop 中访问
	seq   uint64
	event string
}

func newSession(srv *Server, conn *websocket.Conn) (*Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成会话 ID 失败: %w", err)
	}
	s := &Session{
		ID:      id.String(),
		srv:     srv,
		conn:    conn,
		stage:   layout.NewStage(srv.opts.Typesetter, srv.style, srv.theme),
		log:     srv.log.With(slog.String("session", id.String())),
		inbound: make(chan ClientMessage, 16),
		tasks:   make(chan func(), 16),
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
	}
	if srv.opts.Content != "" {
		s.stage.SetContent(srv.opts.Content)
	}
	s.trigger = trigger.New(pushSurface{Stage: s.stage, session: s}, trigger.Options{
		Settle:    srv.settle,
		Scheduler: loopScheduler{s: s},
		Fitter:    &fit.Fitter{Logger: s.log},
		Logger:    s.log,
	})
	return s, nil
}

// Close 结束会话并取消尚未执行的延迟适配，可重复调用。
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
		s.trigger.Close()
		_ = s.conn.Close()
		s.log.Debug("会话已关闭", slog.Int("fits", s.trigger.Runs()))
	})
}

// serve 阻塞直到连接断开。
func (s *Session) serve() {
	defer s.Close()
	s.log.Info("会话建立", slog.String("remote", s.conn.RemoteAddr().String()))

	go s.writer()
	go s.loop()

	s.sendJSON(Hello{
		Type:     MsgHello,
		Session:  s.ID,
		Theme:    s.srv.opts.Theme,
		Content:  s.srv.opts.Content,
		SettleMs: s.srv.settle.Milliseconds(),
	})
	s.reader()
}

func (s *Session) reader() {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("连接异常断开", slog.Any("err", err))
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(fmt.Sprintf("无法解析消息: %v", err))
			continue
		}
		select {
		case s.inbound <- msg:
		case <-s.done:
			return
		}
	}
}

func (s *Session) writer() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.log.Debug("写入失败", slog.Any("err", err))
				s.Close()
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) loop() {
	for {
		select {
		case msg := <-s.inbound:
			s.handle(msg)
		case f := <-s.tasks:
			s.event = "settle"
			f()
		case <-s.done:
			return
		}
	}
}

func (s *Session) handle(msg ClientMessage) {
	typ := strings.ToLower(strings.TrimSpace(msg.Type))
	s.event = typ
	switch typ {
	case MsgResize:
		size, err := viewportFromPx(msg.Width, msg.Height)
		if err != nil {
			s.sendError(err.Error())
			return
		}
		s.stage.Resize(size)
		s.trigger.Notify(trigger.Resized)
	case MsgTransition:
		if strings.EqualFold(msg.Kind, "rotate") && msg.Width == 0 && msg.Height == 0 {
			s.stage.Rotate()
		} else {
			size, err := viewportFromPx(msg.Width, msg.Height)
			if err != nil {
				s.sendError(err.Error())
				return
			}
			s.stage.Resize(size)
		}
		s.trigger.Notify(trigger.Transition)
	case MsgContent:
		b := s.stage.SetContent(msg.Text)
		s.trigger.Notify(trigger.ContentChanged)
		if b.Err() != nil {
			s.sendError(fmt.Sprintf("排版失败: %v", b.Err()))
		}
	case MsgTheme:
		switch name := strings.ToLower(strings.TrimSpace(msg.Theme)); name {
		case "light", "dark":
			s.stage.SetTheme(layout.ThemeByName(name))
			// 主题只改颜色，不重新适配
			s.pushFrame()
		default:
			s.sendError(fmt.Sprintf("未知主题 %q", msg.Theme))
		}
	case MsgUnmount:
		s.stage.Unmount()
		s.trigger.Notify(trigger.Resized)
	default:
		s.sendError(fmt.Sprintf("未知消息类型 %q", msg.Type))
	}
}

func (s *Session) pushFrame() {
	s.seq++
	frame := s.stage.Snapshot(int(s.seq), s.event)
	msg := FrameMessage{
		Type:     MsgFrame,
		Seq:      s.seq,
		Event:    s.event,
		Viewport: frame.Viewport,
		Theme:    frame.Theme.Name,
		Fit:      frame.Fit,
	}
	if r := s.srv.opts.Renderer; r != nil && frame.Viewport.Valid() {
		svg, err := r.RenderFrame(frame, renderer.FormatSVG)
		if err != nil {
			s.log.Warn("渲染帧失败", slog.Uint64("seq", s.seq), slog.Any("err", err))
		} else {
			msg.SVG = string(svg)
		}
	}
	s.log.Debug("推送帧",
		slog.Uint64("seq", s.seq),
		slog.String("event", s.event),
		slog.Float64("scale", frame.Fit.Scale),
	)
	s.sendJSON(msg)
}

func (s *Session) sendError(text string) {
	s.log.Warn("客户端请求无效", slog.String("reason", text))
	s.sendJSON(ErrorMessage{Type: MsgError, Message: text})
}

func (s *Session) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error("编码消息失败", slog.Any("err", err))
		return
	}
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.send <- data:
	default:
		s.log.Warn("发送队列已满，丢弃消息", slog.Int("bytes", len(data)))
	}
}

// viewportFromPx 把 CSS 像素换算为 mm。0 是允许的：退化的容器由适配算法处理。
func viewportFromPx(w, h float64) (fit.Size, error) {
	if w < 0 || h < 0 {
		return fit.Size{}, fmt.Errorf("容器尺寸不能为负数: %gx%g", w, h)
	}
	return fit.Size{
		Width:  layout.Length{Value: w, Unit: layout.UnitPX}.ToMM(),
		Height: layout.Length{Value: h, Unit: layout.UnitPX}.ToMM(),
	}, nil
}

// pushSurface 在写入适配结果后推送一帧。
type pushSurface struct {
	*layout.Stage
	session *Session
}

func (p pushSurface) Apply(res fit.Result) {
	p.Stage.Apply(res)
	p.session.pushFrame()
}

// loopScheduler 把延迟适配投递回会话的 loop 执行。
type loopScheduler struct{ s *Session }

func (l loopScheduler) AfterFunc(d time.Duration, f func()) trigger.Stopper {
	return time.AfterFunc(d, func() {
		select {
		case l.s.tasks <- f:
		case <-l.s.done:
		}
	})
}
