// Package server exposes the export pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ivlev/carousel/internal/engine"
	"github.com/ivlev/carousel/internal/model"
)

// Exporter is the part of engine.Exporter the server needs.
type Exporter interface {
	Export(ctx context.Context, req engine.Request) (*engine.Result, error)
}

type Options struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	AllowOrigin  string
	Logger       *zap.Logger
}

type Server struct {
	exporter Exporter
	opts     Options
	logger   *zap.Logger
}

func New(exp Exporter, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 8 << 20
	}
	if opts.AllowOrigin == "" {
		opts.AllowOrigin = "*"
	}
	return &Server{exporter: exp, opts: opts, logger: opts.Logger}
}

// Handler returns the routed handler with CORS, panic recovery and access
// logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/export", s.handleExport)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return chain(mux, AccessLog(s.logger), Recover(s.logger), CORS(s.opts.AllowOrigin))
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.opts.Timeout + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// exportRequest is the wire body of POST /api/export.
type exportRequest struct {
	model.Project
	Format string `json:"format,omitempty"`
	Title  string `json:"title,omitempty"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, s.logger, http.StatusRequestEntityTooLarge, errorBody{
				Error: "request body exceeds " + strconv.FormatInt(tooLarge.Limit, 10) + " bytes",
				Kind:  engine.KindValidation.String(),
			})
			return
		}
		writeError(w, s.logger, http.StatusBadRequest, errorBody{
			Error: "malformed request body: " + err.Error(),
			Kind:  engine.KindValidation.String(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.Timeout)
	defer cancel()

	res, err := s.exporter.Export(ctx, engine.Request{Project: &req.Project, Format: req.Format, Title: req.Title})
	if err != nil {
		kind := engine.Classify(err)
		body := errorBody{Error: err.Error(), Kind: kind.String()}
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			body.Details = verr.Problems
		}
		writeError(w, s.logger, StatusFor(kind), body)
		return
	}

	w.Header().Set("X-Job-Id", res.JobID)
	if len(res.Warnings) > 0 {
		w.Header().Set("X-Export-Warnings", strconv.Itoa(len(res.Warnings)))
	}
	writeDocument(w, s.logger, res.ContentType, res.Filename, res.Body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// statusClientClosed is the de facto status for requests the client
// abandoned.
const statusClientClosed = 499

// StatusFor maps an export failure kind to its HTTP status.
func StatusFor(k engine.Kind) int {
	switch k {
	case engine.KindValidation:
		return http.StatusBadRequest
	case engine.KindUnsupported:
		return http.StatusUnprocessableEntity
	case engine.KindFont:
		return http.StatusBadGateway
	case engine.KindTimeout:
		return http.StatusGatewayTimeout
	case engine.KindCanceled:
		return statusClientClosed
	default:
		return http.StatusInternalServerError
	}
}
