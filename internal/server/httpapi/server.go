// Package httpapi exposes the backend over HTTP/JSON: operator login,
// upload-slot allocation, evidence registration and record sync.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fieldvault/internal/logging"
	"fieldvault/internal/server/models"
)

// AuthService is the authentication surface the API needs.
type AuthService interface {
	Register(ctx context.Context, login, password string) (*models.Operator, error)
	Login(ctx context.Context, login, password string) (string, time.Time, error)
	VerifyToken(tokenString string) (string, error)
}

// EvidenceService is the evidence surface the API needs.
type EvidenceService interface {
	NewUploadSlot(ctx context.Context) (string, string, error)
	Register(ctx context.Context, operatorID string, e *models.Evidence) (bool, error)
	ListByTask(ctx context.Context, taskID string) ([]*models.Evidence, error)
	VerifyHash(ctx context.Context, id, photoHash string) (bool, error)
	ApplyMutation(ctx context.Context, operatorID string, rec *models.Record) error
}

// Server serves the public API.
type Server struct {
	address  string
	auth     AuthService
	evidence EvidenceService
	logger   logging.Logger
}

// NewServer wires the API server; Run starts it.
func NewServer(address string, l logging.Logger, auth AuthService, evidence EvidenceService) *Server {
	return &Server{
		address:  address,
		auth:     auth,
		evidence: evidence,
		logger:   l.With("module", "http_server"),
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/healthz", s.handleHealthz)
	mux.HandleFunc("POST /v1/auth/register", s.handleRegister)
	mux.HandleFunc("POST /v1/auth/login", s.handleLogin)

	mux.Handle("POST /v1/uploads", s.requireAuth(s.handleNewUpload))
	mux.Handle("POST /v1/evidence", s.requireAuth(s.handleRegisterEvidence))
	mux.Handle("POST /v1/evidence/{id}/verify", s.requireAuth(s.handleVerifyEvidence))
	mux.Handle("GET /v1/tasks/{taskID}/evidence", s.requireAuth(s.handleListTaskEvidence))
	mux.Handle("POST /v1/sync/records", s.requireAuth(s.handleSyncRecord))

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.routes(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
