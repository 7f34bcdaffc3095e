package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"IrrigationSentinel/internal/collector"
	"IrrigationSentinel/internal/config"
	"IrrigationSentinel/internal/export"
	"IrrigationSentinel/internal/model"
	"IrrigationSentinel/internal/pipeline"
	"IrrigationSentinel/internal/recorder"
)

// Evaluation statuses.
const (
	StatusOK     = "ok"
	StatusNoData = "no_data"
)

type parametersView struct {
	model.Parameters
	SoilMoistureThreshold float64 `json:"soil_moisture_threshold"`
}

func viewOf(p model.Parameters) parametersView {
	return parametersView{Parameters: p, SoilMoistureThreshold: p.SoilMoistureThreshold()}
}

// EvaluateRequest is the body of POST /api/evaluate.
type EvaluateRequest struct {
	Parameters   *config.ParameterConfig     `json:"parameters"`
	Observations *[]collector.RawObservation `json:"observations"`
}

// EvaluateResult is returned for every evaluation, empty or not.
type EvaluateResult struct {
	Status     string                 `json:"status"`
	RunID      string                 `json:"run_id,omitempty"`
	Parameters parametersView         `json:"parameters"`
	Decisions  []model.Decision       `json:"decisions"`
	Summary    *model.ScheduleSummary `json:"summary,omitempty"`
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) parameters(c *gin.Context) {
	success(c, viewOf(s.Params))
}

func (s *Server) evaluateJSON(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Sprintf("decode request: %v", err))
		return
	}
	if req.Observations == nil {
		badRequest(c, "observations is required")
		return
	}

	p := s.Params
	if req.Parameters != nil {
		var err error
		if p, err = req.Parameters.Apply(p); err != nil {
			s.fail(c, err)
			return
		}
	}

	obs, err := collector.ConvertRaw(*req.Observations)
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, s.evaluate(c, "api:json", obs, p))
}

func (s *Server) evaluateCSV(c *gin.Context) {
	p, err := s.queryParameters(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	data, err := readUpload(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	tbl := &collector.Table{}
	if len(bytes.TrimSpace(data)) > 0 {
		if tbl, err = collector.ReadCSVTable(bytes.NewReader(data)); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	res := s.evaluate(c, "api:csv", tbl.Observations, p)
	if c.Query("format") != "csv" || res.Status == StatusNoData {
		success(c, res)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSVWithExtra(&buf, res.Decisions, tbl.ExtraHeader, tbl.Extra); err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.DefaultFileName))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// historyReader is implemented by recorders that can read back runs.
type historyReader interface {
	LatestRun() (*recorder.RunSnapshot, error)
}

func (s *Server) latestRun(c *gin.Context) {
	hr, ok := s.Recorder.(historyReader)
	if !ok {
		notFound(c, "run history is not enabled")
		return
	}
	snap, err := hr.LatestRun()
	if errors.Is(err, recorder.ErrNoRuns) {
		notFound(c, err.Error())
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, snap)
}

// evaluate runs and records a series. An empty series yields the no-data state.
func (s *Server) evaluate(c *gin.Context, source string, obs []model.Observation, p model.Parameters) EvaluateResult {
	if len(obs) == 0 {
		return EvaluateResult{Status: StatusNoData, Parameters: viewOf(p), Decisions: []model.Decision{}}
	}

	snap := pipeline.Run(source, obs, p, s.Workers)
	if err := s.Recorder.RecordRun(snap); err != nil {
		log.Printf("[WARN] record run %s (request %s): %v", snap.RunID, c.GetString("requestID"), err)
	}
	log.Printf("[INFO] Run %s: %d records, %d irrigation events, %.2f mm",
		snap.RunID, snap.Summary.Records, snap.Summary.IrrigationEvents, snap.Summary.TotalIrrigationMM)

	summary := snap.Summary
	return EvaluateResult{
		Status:     StatusOK,
		RunID:      snap.RunID,
		Parameters: viewOf(p),
		Decisions:  snap.Decisions,
		Summary:    &summary,
	}
}

// queryParameters overlays query string overrides such as ?ndvi_threshold=0.6.
func (s *Server) queryParameters(c *gin.Context) (model.Parameters, error) {
	var pc config.ParameterConfig
	for _, name := range config.ParameterNames() {
		raw, ok := c.GetQuery(name)
		if !ok {
			continue
		}
		v, err := config.ParseParameter(name, raw)
		if err != nil {
			return model.Parameters{}, err
		}
		if err := pc.Set(name, v); err != nil {
			return model.Parameters{}, err
		}
	}
	return pc.Apply(s.Params)
}

// readUpload returns the CSV from a multipart "file" field or the raw body.
func readUpload(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload: %w", err)
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

// fail maps input errors to 400 and everything else to 500.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, collector.ErrMissingField),
		errors.Is(err, collector.ErrInvalidField),
		errors.Is(err, config.ErrInvalidParameter):
		badRequest(c, err.Error())
	default:
		log.Printf("[ERROR] request %s: %v", c.GetString("requestID"), err)
		internalError(c, "internal error")
	}
}
