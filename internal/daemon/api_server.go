package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"clipforge/internal/api"
	"clipforge/internal/config"
	"clipforge/internal/jobs"
	"clipforge/internal/logging"
	"clipforge/internal/services"
	"clipforge/internal/workflow"
)

const (
	userHeader    = "X-User-ID"
	anonymousUser = "anonymous"
	maxBodyBytes  = 1 << 20

	defaultWriteTimeout = 30 * time.Second
)

type apiServer struct {
	bind       string
	token      string
	origins    []string
	intakeWait time.Duration
	// writeTimeout bounds ordinary responses; synchronous intake extends it
	// past intakeWait.
	writeTimeout time.Duration
	logger       *slog.Logger
	daemon       *Daemon
	jobs         *api.JobService
	handler      http.Handler
	server       *http.Server
	listenerMu   sync.Mutex
	listener     net.Listener
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:         strings.TrimSpace(cfg.API.Bind),
		token:        strings.TrimSpace(cfg.API.Token),
		origins:      cfg.API.CORSOrigins,
		intakeWait:   time.Duration(cfg.Workflow.IntakeWaitTimeout) * time.Second,
		writeTimeout: defaultWriteTimeout,
		logger:       logging.NewComponentLogger(logger, "api-server"),
		daemon:       d,
		jobs:         api.NewJobService(d.store),
	}
	srv.handler = srv.routes()
	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      srv.writeTimeout,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(srv.logger.Handler(), slog.LevelWarn),
	}
	return srv
}

// routes builds the router. CORS wraps everything so preflight requests never
// reach the auth middleware.
func (s *apiServer) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestContext)
	r.Use(s.authMiddleware)

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/entitlement", s.handleEntitlement).Methods(http.MethodGet)

	r.HandleFunc("/api/jobs", s.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/api/analyze", s.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/api/jobs", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{id}", s.handleJob).Methods(http.MethodGet)
	r.HandleFunc("/api/job-status", s.handleJob).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{id}/render", s.handleRender).Methods(http.MethodPost)
	r.HandleFunc("/api/generate", s.handleRender).Methods(http.MethodPost)
	r.HandleFunc("/api/jobs/{id}/cancel", s.handleCancel).Methods(http.MethodPost)
	r.HandleFunc("/api/jobs/{id}/events", s.handleEvents).Methods(http.MethodGet)
	r.HandleFunc("/api/notifications/test", s.handleTestNotification).Methods(http.MethodPost)

	r.HandleFunc("/files/{jobID}/{name}", s.handleFile).Methods(http.MethodGet, http.MethodHead)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, api.ErrorResponse{Error: "route not found", Kind: string(services.KindNotFound)})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, api.ErrorResponse{Error: "method not allowed"})
	})

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError)),
		handlers.PrintRecoveryStack(false),
	)
	cors := handlers.CORS(
		handlers.AllowedOrigins(s.origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", userHeader, "Last-Event-ID"}),
	)
	return cors(recovery(r))
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "api_server_error"),
				logging.String(logging.FieldErrorHint, "check api.bind"),
			)
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	s.listenerMu.Lock()
	s.listener = nil
	s.listenerMu.Unlock()
}

func (s *apiServer) address() string {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		Workflow:     api.FromStatusSummary(status.Workflow),
		Dependencies: api.FromDependencies(status.Dependencies),
	})
}

func (s *apiServer) handleEntitlement(w http.ResponseWriter, r *http.Request) {
	if s.daemon.ledger == nil {
		s.writeError(w, http.StatusServiceUnavailable, api.ErrorResponse{Error: "entitlement ledger unavailable"})
		return
	}
	decision, err := s.daemon.ledger.MayRender(r.Context(), userID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, decision)
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	job, err := s.daemon.workflow.Submit(r.Context(), workflow.IntakeRequest{
		UserID:      userID(r),
		SourceKey:   req.SourceKey,
		ClipLengths: req.ClipLengths,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !req.Wait {
		s.writeJSON(w, http.StatusCreated, api.SubmitResponse{JobID: job.ID, Status: string(job.Status)})
		return
	}

	if err := http.NewResponseController(w).SetWriteDeadline(time.Now().Add(s.intakeWait + s.writeTimeout)); err != nil {
		s.logger.Debug("extend write deadline failed", logging.Error(err))
	}
	waitCtx, cancel := context.WithTimeout(r.Context(), s.intakeWait)
	defer cancel()
	settled, err := s.daemon.workflow.WaitForAnalysis(waitCtx, job.ID)
	if err != nil {
		if errors.Is(err, services.ErrTimeout) {
			// Analysis keeps running; the client polls from here.
			s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{JobID: job.ID, Status: string(settled.Status)})
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	dto := api.FromJob(settled)
	s.writeJSON(w, http.StatusCreated, api.SubmitResponse{
		JobID:      job.ID,
		Status:     dto.Status,
		Candidates: dto.Candidates,
		Details:    dto.Details,
		Error:      dto.Error,
	})
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	var statuses []jobs.Status
	for _, value := range r.URL.Query()["status"] {
		for _, part := range strings.Split(value, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			status, ok := jobs.ParseStatus(trimmed)
			if !ok {
				s.writeError(w, http.StatusBadRequest, api.ErrorResponse{
					Error: fmt.Sprintf("unknown status %q", trimmed),
					Kind:  string(services.KindValidation),
				})
				return
			}
			statuses = append(statuses, status)
		}
	}
	s.writeJSON(w, http.StatusOK, s.jobs.List(r.Context(), userID(r), statuses...))
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	id := jobID(r)
	if id == "" {
		s.writeError(w, http.StatusBadRequest, api.ErrorResponse{Error: "job id is required", Kind: string(services.KindValidation)})
		return
	}
	job, err := s.jobs.Describe(r.Context(), id, userID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *apiServer) handleRender(w http.ResponseWriter, r *http.Request) {
	var req api.RenderRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	id := mux.Vars(r)["id"]
	if id == "" {
		id = strings.TrimSpace(req.JobID)
	}
	if id == "" {
		s.writeError(w, http.StatusBadRequest, api.ErrorResponse{Error: "jobId is required", Kind: string(services.KindValidation)})
		return
	}
	if err := s.daemon.workflow.TriggerRender(r.Context(), id, userID(r), req.SoundEnhance); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.ActionResponse{JobID: id, Status: "render_queued", Message: "Render queued"})
}

func (s *apiServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.ownedJob(r, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.daemon.workflow.Cancel(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.ActionResponse{JobID: id, Status: "cancel_requested"})
}

func (s *apiServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	sent, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, api.ErrorResponse{Error: message + ": " + err.Error(), Kind: string(services.KindOf(err))})
		return
	}
	s.writeJSON(w, http.StatusOK, api.NotificationResult{Sent: sent, Message: message})
}

// ownedJob loads a job for the caller. Jobs of other users read as missing.
func (s *apiServer) ownedJob(r *http.Request, id string) (jobs.Job, error) {
	job, err := s.daemon.store.Get(r.Context(), id)
	if err != nil {
		return jobs.Job{}, err
	}
	if job.UserID != userID(r) {
		return jobs.Job{}, &jobs.ErrNotFound{ID: id}
	}
	return job, nil
}

func jobID(r *http.Request) string {
	if id := mux.Vars(r)["id"]; id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("id"))
}

func userID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(userHeader)); id != "" {
		return id
	}
	return anonymousUser
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(body)
	if err := decoder.Decode(dst); err != nil {
		return services.Wrap(services.ErrValidation, "", "decode request", err.Error(), nil)
	}
	return nil
}

// writeServiceError maps error markers to HTTP status codes.
func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := services.KindOf(err)
	resp := api.ErrorResponse{Error: err.Error(), Kind: string(kind)}
	var denied *workflow.RenderDeniedError
	var status int
	switch {
	case errors.As(err, &denied):
		decision := denied.Decision
		resp.Decision = &decision
		resp.Kind = "render_denied"
		status = http.StatusPaymentRequired
	case errors.Is(err, workflow.ErrNotAwaitingRender), errors.Is(err, workflow.ErrJobFinished):
		resp.Kind = "conflict"
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrNotRunning):
		status = http.StatusServiceUnavailable
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrTimeout):
		status = http.StatusGatewayTimeout
	default:
		status = http.StatusInternalServerError
		resp.Hint = services.Hint(kind)
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_request_failed",
			logging.Error(err),
			logging.String("path", r.URL.Path),
			logging.String(logging.FieldErrorHint, resp.Hint),
		)
	}
	s.writeError(w, status, resp)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, resp api.ErrorResponse) {
	s.writeJSON(w, status, resp)
}
