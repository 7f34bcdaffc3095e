package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"IrrigationSentinel/internal/model"
	"IrrigationSentinel/internal/recorder"
)

// maxUploadBytes caps request bodies carrying observations.
const maxUploadBytes = 16 << 20

// Server exposes the evaluation pipeline over HTTP.
type Server struct {
	Params   model.Parameters
	Workers  int
	Recorder recorder.Recorder

	engine *gin.Engine
}

// New builds a server evaluating with p unless a request overrides it.
// A nil recorder is replaced by a no-op one.
func New(p model.Parameters, workers int, rec recorder.Recorder) *Server {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	s := &Server{Params: p, Workers: workers, Recorder: rec}
	s.engine = s.setupRouter()
	return s
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), RequestID())

	r.GET("/healthz", s.healthz)

	api := r.Group("/api")
	{
		api.GET("/parameters", s.parameters)
		api.POST("/evaluate", s.evaluateJSON)
		api.POST("/evaluate/csv", s.evaluateCSV)
		api.GET("/runs/latest", s.latestRun)
	}
	return r
}

// Handler returns the routed gin engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] HTTP API listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Println("[INFO] HTTP API stopped")
	return nil
}
