package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ByLCY/embiggen/trigger"
)

func newWatchCommand(a *app) *cobra.Command {
	var flags sceneFlags

	cmd := &cobra.Command{
		Use:   "watch <scene>",
		Short: "场景文件变化时重新回放并输出 PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(a, args[0], "watch")
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchScene(ctx, a, opts)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

// watchScene 先回放一次，之后每次文件变化再回放；出错只记录日志，继续监听。
func watchScene(ctx context.Context, a *app, opts playOptions) error {
	r, ts := a.backend(filepath.Dir(opts.Input))
	rebuild := func() {
		if err := run(opts, r, ts); err != nil {
			opts.Logger.Error("回放失败", slog.Any("err", err))
		}
	}
	rebuild()
	opts.Logger.Info("开始监听", slog.String("scene", opts.Input))
	return trigger.Watch(ctx, opts.Input, opts.Logger, rebuild)
}
