package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"IrrigationSentinel/internal/collector"
	"IrrigationSentinel/internal/model"
	"IrrigationSentinel/internal/recorder"
)

type captureSender struct {
	mu   sync.Mutex
	msgs []string
}

func (c *captureSender) SendWithRetry(_ context.Context, text string, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, text)
	return nil
}

type captureRecorder struct {
	runs []*recorder.RunSnapshot
}

func (c *captureRecorder) RecordRun(snap *recorder.RunSnapshot) error {
	c.runs = append(c.runs, snap)
	return nil
}

func (c *captureRecorder) Close() error { return nil }

func testParams() model.Parameters {
	return model.Parameters{NDVIThreshold: 0.65, FieldCapacity: 38, SoilMoistureFraction: 0.7, ET0Threshold: 3.5, RainThreshold: 2, CropCoefficient: 1.15}
}

func newTestScheduler(src collector.Source) (*Scheduler, *captureSender, *captureRecorder) {
	send := &captureSender{}
	rec := &captureRecorder{}
	s := NewScheduler(context.Background(), collector.NewCollector(src), send, rec, testParams(), "T4", 2)
	return s, send, rec
}

func TestEvaluateTask_AlertsOnLatestIrrigation(t *testing.T) {
	src := &collector.MockSource{Observations: []model.Observation{
		{Timestamp: time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC), NDVI: 0.68, SoilMoisture: 28, ET0: 3.9, ForecastRain: 3.0},
		{Timestamp: time.Date(2025, 6, 3, 6, 0, 0, 0, time.UTC), NDVI: 0.60, SoilMoisture: 24, ET0: 4.0, ForecastRain: 1.5},
	}}
	s, send, rec := newTestScheduler(src)
	s.RunNow()

	if len(rec.runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(rec.runs))
	}
	if s.Last() != rec.runs[0] {
		t.Error("expected Last to return the recorded run")
	}
	if len(send.msgs) != 1 || !strings.Contains(send.msgs[0], "3.10 mm") {
		t.Errorf("expected one irrigation alert, got %v", send.msgs)
	}
}

func TestEvaluateTask_NoAlertWhenLatestIsDry(t *testing.T) {
	src := &collector.MockSource{Observations: []model.Observation{
		{Timestamp: time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC), NDVI: 0.68, SoilMoisture: 28, ET0: 3.9, ForecastRain: 3.0},
	}}
	s, send, rec := newTestScheduler(src)
	s.RunNow()
	if len(rec.runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(rec.runs))
	}
	if len(send.msgs) != 0 {
		t.Errorf("expected no messages, got %v", send.msgs)
	}
}

func TestEvaluateTask_CollectFailure(t *testing.T) {
	src := &collector.MockSource{Err: errors.New("sensor gateway offline")}
	s, send, rec := newTestScheduler(src)
	s.RunNow()
	if len(rec.runs) != 0 {
		t.Errorf("expected nothing recorded, got %d runs", len(rec.runs))
	}
	if s.Last() != nil {
		t.Error("expected no last run after failure")
	}
	if len(send.msgs) != 1 || !strings.Contains(send.msgs[0], "sensor gateway offline") {
		t.Errorf("expected failure notice, got %v", send.msgs)
	}
}

func TestHandleCommand(t *testing.T) {
	s, _, _ := newTestScheduler(&collector.MockSource{})
	if out := s.HandleCommand("/last"); !strings.Contains(out, "nothing computed") {
		t.Errorf("expected neutral report before first run, got %q", out)
	}
	if out := s.HandleCommand("/params"); !strings.Contains(out, "Crop coefficient") {
		t.Errorf("unexpected params reply %q", out)
	}
	if out := s.HandleCommand("hello"); !strings.Contains(out, "Available commands") {
		t.Errorf("unexpected help reply %q", out)
	}
}

func TestRegisterAll_RejectsBadSpec(t *testing.T) {
	s, _, _ := newTestScheduler(&collector.MockSource{})
	if err := s.RegisterAll("not a cron", "0 0 18 * * 0"); err == nil {
		t.Error("expected error for invalid cron spec")
	}
	if err := s.RegisterAll("0 0 6 * * *", "0 0 18 * * 0"); err != nil {
		t.Errorf("RegisterAll: %v", err)
	}
}

func TestEvaluateTask_EmptyPullIsSkipped(t *testing.T) {
	s, send, rec := newTestScheduler(&collector.MockSource{})
	s.RunNow()
	if len(rec.runs) != 0 || s.Last() != nil {
		t.Errorf("expected no run for an empty pull, got %d", len(rec.runs))
	}
	if len(send.msgs) != 0 {
		t.Errorf("expected no messages, got %v", send.msgs)
	}
}

func TestRestore_SeedsLastFromHistory(t *testing.T) {
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	defer rec.Close()

	src := &collector.MockSource{Observations: []model.Observation{
		{Timestamp: time.Date(2025, 6, 3, 6, 0, 0, 0, time.UTC), NDVI: 0.60, SoilMoisture: 24, ET0: 4.0, ForecastRain: 1.5},
	}}
	first := NewScheduler(context.Background(), collector.NewCollector(src), &captureSender{}, rec, testParams(), "T4", 1)
	first.RunNow()

	restarted := NewScheduler(context.Background(), collector.NewCollector(src), &captureSender{}, rec, testParams(), "T4", 1)
	restarted.Restore()
	if restarted.Last() == nil || restarted.Last().RunID != first.Last().RunID {
		t.Fatalf("expected restored run %v, got %v", first.Last().RunID, restarted.Last())
	}
	if got, want := restarted.Last().Summary, first.Last().Summary; got != want {
		t.Errorf("restored summary differs:\n got %+v\nwant %+v", got, want)
	}
}

type slowSource struct {
	collector.MockSource
	delay time.Duration
}

func (s *slowSource) Fetch(ctx context.Context) ([]model.Observation, error) {
	time.Sleep(s.delay)
	return s.MockSource.Fetch(ctx)
}

func TestStop_WaitsForAsyncRun(t *testing.T) {
	src := &slowSource{delay: 50 * time.Millisecond, MockSource: collector.MockSource{Observations: []model.Observation{
		{Timestamp: time.Date(2025, 6, 3, 6, 0, 0, 0, time.UTC), NDVI: 0.60, SoilMoisture: 24, ET0: 4.0, ForecastRain: 1.5},
	}}}
	s, _, rec := newTestScheduler(src)
	s.Start()
	s.RunAsync()
	s.Stop()
	if len(rec.runs) != 1 {
		t.Errorf("expected the background run recorded before Stop returned, got %d runs", len(rec.runs))
	}
}
