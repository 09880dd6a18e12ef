// Package server 在浏览器中实时显示放大后的文字：页面上报容器尺寸与内容，
// 服务端为每个连接维护一个 trigger，并推送适配结果与 SVG。
package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ByLCY/embiggen/layout"
	"github.com/ByLCY/embiggen/renderer"
)

//go:embed index.html
var indexHTML []byte

// Options 配置 Server。
type Options struct {
	Typesetter layout.Typesetter
	Renderer   renderer.FrameRenderer // 为空时帧消息不带 SVG
	Defaults   layout.StyleDefaults
	Theme      string // system | light | dark；system 交给浏览器判断
	Content    string // 新会话的初始文本
	Logger     *slog.Logger
}

// Server 处理页面请求与 /ws 会话。
type Server struct {
	opts     Options
	style    layout.TextStyle
	theme    layout.Theme
	settle   time.Duration
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// New 解析默认样式并创建 Server。
func New(opts Options) (*Server, error) {
	if opts.Typesetter == nil {
		return nil, errors.New("server: 缺少排版后端 Typesetter")
	}
	style, theme, settle, err := layout.ResolveStyle(opts.Defaults)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	opts.Theme = strings.ToLower(strings.TrimSpace(opts.Theme))
	if opts.Theme == "" {
		opts.Theme = "system"
	}
	if opts.Theme != "system" {
		theme = layout.ThemeByName(opts.Theme)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		opts:   opts,
		style:  style,
		theme:  theme,
		settle: settle,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CheckOrigin 为空时只接受同源请求
		},
		log:      logger,
		sessions: make(map[string]*Session),
	}, nil
}

// Handler 返回路由：/ 为页面，/ws 为会话。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/", s.handleIndex)
	return mux
}

// ListenAndServe 监听 addr，ctx 结束时关闭所有会话并优雅退出。
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("服务已启动", slog.String("addr", addr))

	select {
	case <-ctx.Done():
		s.log.Info("正在关闭服务")
		// Shutdown 不会关闭已被接管的 websocket 连接
		s.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// SessionCount 返回当前连接的会话数。
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade 已经写回了错误响应
		s.log.Warn("websocket 升级失败", slog.Any("err", err))
		return
	}
	sess, err := newSession(s, conn)
	if err != nil {
		s.log.Error("创建会话失败", slog.Any("err", err))
		_ = conn.Close()
		return
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.ID)
		s.mu.Unlock()
	}()

	sess.serve()
}

func (s *Server) closeAll() {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()
	for _, sess := range sessions {
		sess.Close()
	}
}
