package apiserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/vibecode-tools/antigravity-bridge-go/pkg/errors"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/languageserver"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/logging"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/quota"
)

// Version is reported by the health endpoint.
const Version = "0.4.0"

// Bridge is the detection/fetch capability the façade republishes.
type Bridge interface {
	Detect(ctx context.Context) (languageserver.ServerEndpoint, error)
	FetchQuota(ctx context.Context, endpoint languageserver.ServerEndpoint) (*quota.Snapshot, error)
}

// SnapshotRecorder receives every successfully synced snapshot.
// Optional: a nil recorder disables history.
type SnapshotRecorder interface {
	Record(snapshot *quota.Snapshot) error
}

// Options configures the façade.
type Options struct {
	Port          int
	DetectOptions languageserver.DetectOptions
}

// Server is the localhost REST façade consumed by the editor extension.
// It owns the only snapshot cache in the system; the core below it never
// caches. Endpoints must be rediscovered when a sync fails, since the
// language server may have restarted on another port.
type Server struct {
	options  Options
	bridge   Bridge
	recorder SnapshotRecorder
	logger   logging.Logger

	mu             sync.RWMutex
	cachedEndpoint *languageserver.ServerEndpoint
	cachedSnapshot *quota.Snapshot
}

// NewServer builds a façade around the given bridge. recorder may be nil.
func NewServer(options Options, bridge Bridge, recorder SnapshotRecorder, logger logging.Logger) *Server {
	return &Server{
		options:  options,
		bridge:   bridge,
		recorder: recorder,
		logger:   logger,
	}
}

// NewLiveBridge returns a Bridge backed by a fresh detector per call
// (each detection owns its diagnostics) and a shared quota fetcher.
func NewLiveBridge(detectOptions languageserver.DetectOptions, logger logging.Logger) Bridge {
	return &liveBridge{
		detectOptions: detectOptions,
		fetcher:       quota.NewFetcher(logger),
		logger:        logger,
	}
}

type liveBridge struct {
	detectOptions languageserver.DetectOptions
	fetcher       *quota.Fetcher
	logger        logging.Logger
}

func (b *liveBridge) Detect(ctx context.Context) (languageserver.ServerEndpoint, error) {
	detector, err := languageserver.NewDetector(b.logger)
	if err != nil {
		return languageserver.ServerEndpoint{}, err
	}
	return detector.Detect(ctx, b.detectOptions)
}

func (b *liveBridge) FetchQuota(ctx context.Context, endpoint languageserver.ServerEndpoint) (*quota.Snapshot, error) {
	return b.fetcher.Fetch(ctx, endpoint)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", s.options.Port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return errors.NewIOError("failed to bind API port", err).WithContext("addr", server.Addr)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(listener)
	}()
	s.logger.Infof("API server listening on %s", server.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Handler exposes the route table; split out so tests can drive it with
// httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/quota", s.handleQuota)
	mux.HandleFunc("/api/quota/sync", s.handleSync)
	return mux
}

type healthResponse struct {
	Status              string `json:"status"`
	Version             string `json:"version"`
	Port                int    `json:"port"`
	AntigravityDetected bool   `json:"antigravity_detected"`
}

type syncResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Quota   *quota.Snapshot `json:"quota,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.mu.RLock()
	detected := s.cachedEndpoint != nil
	s.mu.RUnlock()

	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:              "ok",
		Version:             Version,
		Port:                s.options.Port,
		AntigravityDetected: detected,
	})
}

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.mu.RLock()
	snapshot := s.cachedSnapshot
	s.mu.RUnlock()

	if snapshot == nil {
		s.writeError(w, http.StatusNotFound, "no quota snapshot yet, run a sync first")
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snapshot, err := s.sync(r.Context())
	if err != nil {
		s.logger.Warnf("Quota sync failed: %v", err)
		s.writeJSON(w, statusForError(err), syncResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, syncResponse{
		Success: true,
		Message: "quota synced",
		Quota:   snapshot,
	})
}

// sync fetches a fresh snapshot, detecting the server first when no
// cached endpoint exists. A fetch failure against a cached endpoint
// drops the cache: the server may have restarted on another port.
func (s *Server) sync(ctx context.Context) (*quota.Snapshot, error) {
	s.mu.RLock()
	endpoint := s.cachedEndpoint
	s.mu.RUnlock()

	if endpoint == nil {
		detected, err := s.bridge.Detect(ctx)
		if err != nil {
			return nil, err
		}
		endpoint = &detected
		s.mu.Lock()
		s.cachedEndpoint = endpoint
		s.mu.Unlock()
	}

	snapshot, err := s.bridge.FetchQuota(ctx, *endpoint)
	if err != nil {
		s.mu.Lock()
		s.cachedEndpoint = nil
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	s.cachedSnapshot = snapshot
	s.mu.Unlock()

	if s.recorder != nil {
		if err := s.recorder.Record(snapshot); err != nil {
			s.logger.Warnf("Failed to record snapshot in history: %v", err)
		}
	}
	return snapshot, nil
}

func statusForError(err error) int {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeAuth:
		return http.StatusUnauthorized
	case errors.ErrorTypeDiscovery, errors.ErrorTypeNetwork:
		return http.StatusServiceUnavailable
	case errors.ErrorTypeAmbiguous:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Errorf("Failed to encode API response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}
