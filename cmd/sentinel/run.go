package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"IrrigationSentinel/internal/collector"
	"IrrigationSentinel/internal/notifier"
	"IrrigationSentinel/internal/scheduler"
)

func runCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduled evaluation daemon with Telegram alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd, *cfgPath)
		},
	}
	addParameterFlags(cmd)
	return cmd
}

func runDaemon(cmd *cobra.Command, cfgPath string) error {
	log.Println("[INFO] IrrigationSentinel starting...")

	cfg, err := loadConfig(cmd, cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateDaemon(); err != nil {
		return err
	}
	p, err := cfg.Parameters()
	if err != nil {
		return err
	}

	src, err := collector.NewSource(cfg)
	if err != nil {
		return err
	}
	log.Printf("[INFO] data source: %s", src.Name())
	col := collector.NewCollector(src)

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)

	rec := openRecorder(cfg)
	defer rec.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, col, tn, rec, p, cfg.Source.Plot, cfg.Evaluation.Workers)
	if err := sched.RegisterAll(cfg.Schedule.EvaluateCron, cfg.Schedule.ReportCron); err != nil {
		return err
	}
	sched.Restore()
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Println("[INFO] Telegram polling started")

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, evaluating now")
		sched.RunAsync()
	}

	log.Println("[INFO] IrrigationSentinel is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] IrrigationSentinel stopped")
	return nil
}
