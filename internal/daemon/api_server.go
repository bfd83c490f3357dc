package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"encore/internal/api"
	"encore/internal/config"
	"encore/internal/fileutil"
	"encore/internal/locate"
	"encore/internal/logging"
	"encore/internal/services"
	"encore/internal/store"
)

// multipartOverhead is the allowance for boundaries and plain fields on top
// of the upload limit.
const multipartOverhead = 1 << 20

// servedDirs are the storage subdirectories reachable through /api/media.
var servedDirs = map[string]struct{}{
	config.InstrumentalDir: {},
	config.RecordingsDir:   {},
}

type apiServer struct {
	bind        string
	storageRoot string
	maxUpload   int64
	logger      *slog.Logger
	daemon      *Daemon
	handler     http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:        strings.TrimSpace(cfg.Paths.APIBind),
		storageRoot: cfg.Paths.StorageRoot,
		maxUpload:   cfg.MaxUploadBytes(),
		logger:      logging.NewComponentLogger(logger, "api-server"),
		daemon:      d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", srv.handleStatus)
	mux.HandleFunc("POST /api/jobs", srv.handleSubmitJob)
	mux.HandleFunc("GET /api/jobs", srv.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", srv.handleGetJob)
	mux.HandleFunc("DELETE /api/jobs/{id}", srv.handleDeleteJob)
	mux.HandleFunc("GET /api/jobs/{id}/instrumental", srv.handleInstrumental)
	mux.HandleFunc("POST /api/recordings", srv.handleSubmitRecording)
	mux.HandleFunc("GET /api/recordings", srv.handleListRecordings)
	mux.HandleFunc("DELETE /api/recordings/{id}", srv.handleDeleteRecording)
	mux.HandleFunc("GET "+api.MediaPrefix+"{ref...}", srv.handleMedia)

	srv.handler = requestIDMiddleware(authMiddleware(cfg.Paths.APIToken, mux))
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		// Uploads stream for as long as the client needs; no Read/WriteTimeout.
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	counts := make(map[string]int, len(status.Jobs))
	for k, v := range status.Jobs {
		counts[string(k)] = v
	}
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		StorageRoot:  status.StorageRoot,
		Jobs:         counts,
		Dependencies: api.FromDependencies(status.Dependencies),
		Checks:       api.FromPreflight(status.Checks),
	})
}

func (s *apiServer) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var id string
	err := s.readUpload(w, r, api.FieldFile, func(_ map[string]string, part *multipart.Part) error {
		var err error
		id, err = s.daemon.jobs.Submit(r.Context(), user, part.FileName(), part)
		return err
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{ID: id, Status: string(store.StatusProcessing)})
}

func (s *apiServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	views, err := s.daemon.jobs.Jobs(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.FromJobViews(views)})
}

func (s *apiServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	view, err := s.daemon.jobs.Job(r.Context(), user, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromJobView(view))
}

func (s *apiServer) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if err := s.daemon.jobs.DeleteJob(r.Context(), user, r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleInstrumental(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	file, err := s.daemon.jobs.InstrumentalFile(r.Context(), user, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	http.ServeFile(w, r, file)
}

func (s *apiServer) handleSubmitRecording(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var id string
	err := s.readUpload(w, r, api.FieldAudio, func(fields map[string]string, part *multipart.Part) error {
		var err error
		id, err = s.daemon.recordings.Submit(r.Context(), user, fields[api.FieldJobID], part)
		return err
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{ID: id, Status: "accepted"})
}

func (s *apiServer) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	views, err := s.daemon.recordings.Recordings(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.RecordingListResponse{Recordings: api.FromRecordingViews(views)})
}

func (s *apiServer) handleDeleteRecording(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if err := s.daemon.recordings.DeleteRecording(r.Context(), user, r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleMedia(w http.ResponseWriter, r *http.Request) {
	ref := path.Clean(r.PathValue("ref"))
	top, _, _ := strings.Cut(ref, "/")
	if _, ok := servedDirs[top]; !ok {
		s.writeError(w, http.StatusNotFound, "media not found", "not_found")
		return
	}
	full, err := locate.Resolve(s.storageRoot, ref)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !fileutil.Exists(full) {
		s.writeError(w, http.StatusNotFound, "media not found", "not_found")
		return
	}
	http.ServeFile(w, r, full)
}

// readUpload walks a multipart body, collecting plain fields until the file
// part named fileField, which is handed to submit unbuffered.
func (s *apiServer) readUpload(w http.ResponseWriter, r *http.Request, fileField string, submit func(map[string]string, *multipart.Part) error) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		return services.Wrap(services.ErrValidation, "api", "upload", "multipart body required", err)
	}
	fields := map[string]string{}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return services.Wrap(services.ErrValidation, "api", "upload", "missing "+fileField+" part", nil)
		}
		if err != nil {
			return services.Wrap(services.ErrValidation, "api", "upload", "malformed multipart body", err)
		}
		name := part.FormName()
		if name == fileField && part.FileName() != "" {
			return submit(fields, part)
		}
		value, err := io.ReadAll(io.LimitReader(part, 4096))
		if err != nil {
			return services.Wrap(services.ErrValidation, "api", "upload", "read field "+name, err)
		}
		fields[name] = strings.TrimSpace(string(value))
	}
}

func (s *apiServer) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, ok := callerIdentity(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, api.UserHeader+" header is required", "validation")
		return "", false
	}
	return user, true
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	details := services.Details(err)
	status := http.StatusInternalServerError
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, fileutil.ErrTooLarge) || errors.As(err, &maxErr):
		status = http.StatusRequestEntityTooLarge
	case details.Kind == "validation":
		status = http.StatusBadRequest
	case details.Kind == "not_found":
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_error",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	s.writeError(w, status, details.Message, details.Kind)
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

func (s *apiServer) writeError(w http.ResponseWriter, status int, message, kind string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, Kind: kind})
}
