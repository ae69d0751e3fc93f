package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"kiosk/internal/api"
	"kiosk/internal/configstore"
	"kiosk/internal/logging"
)

// maxBodyBytes bounds request bodies accepted by write endpoints.
const maxBodyBytes = 1 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(d *Daemon, logger *slog.Logger) *apiServer {
	if d == nil {
		return nil
	}
	bind := strings.TrimSpace(d.cfg.API.Bind)
	if bind == "" {
		return nil
	}
	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	token := s.daemon.cfg.API.Token
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authMiddleware(token, h))
	}

	handle("GET /api/config", s.handleGetConfig)
	handle("PUT /api/config", s.handleReplaceConfig)
	handle("PATCH /api/config", s.handlePatchConfig)
	handle("GET /api/config/checksum", s.handleChecksum)
	handle("GET /api/config/events", s.handleEvents)
	handle("GET /api/config/ws", s.handleWebSocket)
	handle("GET /api/config/{group}", s.handleGetGroup)
	handle("PATCH /api/config/{group}", s.handlePatchGroup)
	handle("GET /api/secrets", s.handleListSecrets)
	handle("GET /api/secrets/{name}", s.handleGetSecret)
	handle("PUT /api/secrets/{name}", s.handleSetSecret)
	handle("DELETE /api/secrets/{name}", s.handleClearSecret)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	if s.daemon.metrics != nil {
		mux.Handle("GET /metrics", s.daemon.metrics.Handler())
	}
	return requestIDMiddleware(mux)
}

// start binds the listener synchronously so address errors surface to the
// caller, then serves until ctx ends.
func (s *apiServer) start() error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) serve(ctx context.Context) error {
	if s == nil || s.listener == nil {
		return nil
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api serve: %w", err)
	}
	return nil
}

func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status()
	s.writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:        "ok",
		PID:           status.PID,
		Checksum:      status.Checksum,
		Subscribers:   status.Subscribers,
		DocumentPath:  status.DocumentPath,
		LockFilePath:  status.LockFilePath,
		UptimeSeconds: int64(status.Uptime / time.Second),
		Watching:      status.Watching,
		Relaying:      status.Relaying,
	})
}

// decodeObject reads a JSON object body. Numbers decode as float64 so the
// payload matches the document tree.
func decodeObject(r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, errors.New("request body too large")
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("body must be a JSON object: %w", err)
	}
	if payload == nil {
		return nil, errors.New("body must be a JSON object")
	}
	return payload, nil
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

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

// writeStoreError maps configstore error kinds onto HTTP statuses.
func (s *apiServer) writeStoreError(w http.ResponseWriter, err error) {
	var writeErr *configstore.WriteError
	if !errors.As(err, &writeErr) {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, configstore.ErrMalformedInput):
		status = http.StatusBadRequest
	case errors.Is(err, configstore.ErrMissingCredentials):
		status = http.StatusUnprocessableEntity
	}
	message := writeErr.Message
	if status == http.StatusInternalServerError {
		message = "configuration storage failed"
	}
	s.writeJSON(w, status, api.ErrorResponse{
		Error:   message,
		Kind:    writeErr.ErrorKind(),
		Missing: writeErr.Missing,
	})
}

func configResponse(snap configstore.Snapshot) api.ConfigResponse {
	return api.ConfigResponse{Document: snap.Document, Checksum: snap.Checksum}
}
