package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"breachwatch/internal/server"
	"breachwatch/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP, gRPC and metrics listeners",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(os.Stdout)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := service.Build(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := rt.Close(); err != nil {
				log.Error("shutdown", "err", err)
			}
		}()

		srv := server.New(rt.Service, cfg.Server, log)
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
