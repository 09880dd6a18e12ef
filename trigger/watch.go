package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchDebounce 合并编辑器保存时产生的连续写事件。
const WatchDebounce = 100 * time.Millisecond

// Watch 监听 path 的内容变化，变化平息后调用 onChange。
//
// 监听的是文件所在目录，这样编辑器以“写临时文件再改名”的方式保存时也能收到事件。
// ctx 结束时停止监听并返回 nil。
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func()) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("解析监听路径 %s 失败: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听失败: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("监听目录 %s 失败: %w", filepath.Dir(abs), err)
	}

	debounce := time.NewTimer(WatchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("文件变化", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			pending = true
			debounce.Reset(WatchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("文件监听错误", slog.Any("err", err))

		case <-debounce.C:
			if pending {
				pending = false
				onChange()
			}
		}
	}
}
