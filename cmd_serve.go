package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ByLCY/embiggen/server"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动浏览器实时显示",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			r, ts := a.backend("")
			srv, err := server.New(server.Options{
				Typesetter: ts,
				Renderer:   r,
				Defaults:   a.defaults(),
				Theme:      a.cfg.General.Theme, // system 交给浏览器判断
				Content:    a.cfg.General.Content,
				Logger:     a.logger("server"),
			})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "监听地址（默认取配置 server.addr）")
	return cmd
}
