package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"IrrigationSentinel/internal/server"
)

func serveCmd(cfgPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the evaluation HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *cfgPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			p, err := cfg.Parameters()
			if err != nil {
				return err
			}

			rec := openRecorder(cfg)
			defer rec.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if _, ok := os.LookupEnv(gin.EnvGinMode); !ok {
				gin.SetMode(gin.ReleaseMode)
			}
			return server.New(p, cfg.Evaluation.Workers, rec).Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	addParameterFlags(cmd)
	return cmd
}
