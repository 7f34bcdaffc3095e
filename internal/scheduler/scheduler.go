package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"IrrigationSentinel/internal/collector"
	"IrrigationSentinel/internal/model"
	"IrrigationSentinel/internal/notifier"
	"IrrigationSentinel/internal/pipeline"
	"IrrigationSentinel/internal/recorder"
)

// Sender delivers a formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs periodic evaluations and reports.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Notifier  Sender
	Recorder  recorder.Recorder
	Params    model.Parameters
	Plot      string
	Workers   int
	Ctx       context.Context

	mu      sync.Mutex
	last    *recorder.RunSnapshot
	pending sync.WaitGroup
}

// NewScheduler creates a new Scheduler. Params is fixed for the scheduler's lifetime.
func NewScheduler(ctx context.Context, col *collector.Collector, n Sender, rec recorder.Recorder, p model.Parameters, plot string, workers int) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Notifier:  n,
		Recorder:  rec,
		Params:    p,
		Plot:      plot,
		Workers:   workers,
		Ctx:       ctx,
	}
}

// RegisterAll registers the evaluation and report tasks.
func (s *Scheduler) RegisterAll(evaluateCron, reportCron string) error {
	if _, err := s.Cron.AddFunc(evaluateCron, s.evaluateTask); err != nil {
		return fmt.Errorf("register evaluate task: %w", err)
	}
	if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running tasks, including
// evaluations started with RunAsync.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.pending.Wait()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes the evaluation task immediately (manual trigger).
func (s *Scheduler) RunNow() {
	s.evaluateTask()
}

// RunAsync starts an evaluation in the background (RUN_ON_START).
// Stop waits for it to finish.
func (s *Scheduler) RunAsync() {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.evaluateTask()
	}()
}

// Restore seeds Last from the recorder's history, when it keeps one,
// so /last answers after a restart.
func (s *Scheduler) Restore() {
	hr, ok := s.Recorder.(interface {
		LatestRun() (*recorder.RunSnapshot, error)
	})
	if !ok {
		return
	}
	snap, err := hr.LatestRun()
	if err != nil {
		if !errors.Is(err, recorder.ErrNoRuns) {
			log.Printf("[WARN] restore last run: %v", err)
		}
		return
	}
	s.mu.Lock()
	s.last = snap
	s.mu.Unlock()
	log.Printf("[INFO] restored run %s from history", snap.RunID)
}

// Last returns the most recent run, or nil before the first evaluation.
func (s *Scheduler) Last() *recorder.RunSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) evaluateTask() {
	log.Println("[INFO] running evaluation task")
	obs, err := s.Collector.Collect(s.Ctx)
	if err != nil {
		log.Printf("[ERROR] evaluation collect: %v", err)
		s.trySend(fmt.Sprintf("❌ Observation collection failed: %v", err))
		return
	}
	if len(obs) == 0 {
		log.Println("[WARN] no observations, skipping evaluation")
		return
	}

	snap := pipeline.Run(s.Collector.Source.Name(), obs, s.Params, s.Workers)
	log.Printf("[INFO] run %s: %d observations, %d irrigation events, %.2f mm",
		snap.RunID, snap.Summary.Records, snap.Summary.IrrigationEvents, snap.Summary.TotalIrrigationMM)

	s.mu.Lock()
	s.last = snap
	s.mu.Unlock()

	if err := s.Recorder.RecordRun(snap); err != nil {
		log.Printf("[ERROR] record run: %v", err)
	}

	// Alert only on the newest observation; older rows were reported by earlier runs.
	if n := len(snap.Decisions); n > 0 && snap.Decisions[n-1].Irrigate {
		s.trySend(notifier.FormatIrrigationAlert(snap.Decisions[n-1], s.Params))
	}
}

func (s *Scheduler) reportTask() {
	log.Println("[INFO] running report task")
	s.trySend(s.report())
}

func (s *Scheduler) report() string {
	snap := s.Last()
	if snap == nil {
		return notifier.FormatScheduleReport(s.Plot, model.ScheduleSummary{}, nil, s.Params)
	}
	return notifier.FormatScheduleReport(s.Plot, snap.Summary, snap.Decisions, s.Params)
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/schedule", "/run":
		s.evaluateTask()
		return s.report()
	case "/last", "/report":
		return s.report()
	case "/params":
		return notifier.FormatParameters(s.Params)
	default:
		return "Available commands:\n• /schedule - evaluate now\n• /last - latest schedule\n• /params - active parameters"
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
