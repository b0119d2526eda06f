package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	blogflow "github.com/npavkovic/blogflow"
)

// Runner runs one pipeline stage. *blogflow.Machine satisfies it.
type Runner interface {
	Run(ctx context.Context, stage blogflow.Stage, opts blogflow.Options) (*blogflow.RunReport, error)
}

// ServerConfig configures the dispatch server.
type ServerConfig struct {
	Runner Runner
	Auth   AuthConfig

	// Addr is the listen address. Defaults to ":8080".
	Addr string

	// RunTimeout bounds a single dispatched run. Defaults to 30 minutes.
	RunTimeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server accepts dispatch requests and runs the pipeline.
type Server struct {
	runner     Runner
	auth       AuthConfig
	addr       string
	runTimeout time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	running bool
}

// ErrRunnerRequired is returned by NewServer when no runner is wired.
var ErrRunnerRequired = errors.New("runner is required")

// NewServer validates cfg and builds a Server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Runner == nil {
		return nil, ErrRunnerRequired
	}
	if len(cfg.Auth.Secret) < 32 && cfg.Auth.APIKeyHash == "" {
		return nil, ErrSecretTooShort
	}

	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	runTimeout := cfg.RunTimeout
	if runTimeout == 0 {
		runTimeout = 30 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		runner:     cfg.Runner,
		auth:       cfg.Auth,
		addr:       addr,
		runTimeout: runTimeout,
		logger:     logger,
	}, nil
}

// dispatchRequest is the POST /dispatch body.
type dispatchRequest struct {
	Stage      string `json:"stage"`
	SingleItem bool   `json:"singleItem"`
	DryRun     bool   `json:"dryRun"`
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

// Handler returns the HTTP handler for the dispatch API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /dispatch", s.handleDispatch)
	return mux
}

// ListenAndServe runs the server until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dispatch server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	caller, err := s.authorize(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	stage := blogflow.Stage(req.Stage)
	if !stage.Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown stage: " + req.Stage})
		return
	}

	if !s.tryAcquire() {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "a run is already in progress"})
		return
	}
	defer s.release()

	s.logger.Info("dispatch accepted",
		"caller", caller,
		"stage", stage,
		"singleItem", req.SingleItem,
		"dryRun", req.DryRun,
	)

	ctx, cancel := context.WithTimeout(r.Context(), s.runTimeout)
	defer cancel()

	report, err := s.runner.Run(ctx, stage, blogflow.Options{
		SingleItem: req.SingleItem,
		DryRun:     req.DryRun,
	})
	if err != nil {
		s.logger.Error("dispatched run failed", "stage", stage, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// authorize extracts and checks the bearer credential.
func (s *Server) authorize(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	credential, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || credential == "" {
		return "", errors.New("missing bearer credential")
	}
	return s.auth.authenticate(credential)
}

// tryAcquire reserves the single run slot.
func (s *Server) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Server) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
