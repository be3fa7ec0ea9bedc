package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fieldvault/internal/common"
	"fieldvault/internal/server/models"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type uploadSlotResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// registrationRequest is the metadata the agent submits after transferring
// the photo bytes. Nullable fields stay pointers so absent geo and stage
// survive the round trip as NULLs.
type registrationRequest struct {
	ID           string   `json:"id"`
	TaskID       string   `json:"task_id"`
	JobID        string   `json:"job_id"`
	EvidenceType string   `json:"evidence_type"`
	PhotoStage   *string  `json:"photo_stage"`
	PhotoURL     string   `json:"photo_url"`
	PhotoHash    string   `json:"photo_hash"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	GPSAccuracy  *float64 `json:"gps_accuracy"`
	CapturedAt   string   `json:"captured_at"`
}

type mutationRequest struct {
	Type    string          `json:"type"`
	Action  string          `json:"action"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type registerResponse struct {
	ID    string `json:"id"`
	Login string `json:"login"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	op, err := s.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		s.logger.Error(r.Context(), "registration failed", "login", req.Username, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, registerResponse{ID: op.ID, Login: op.Login})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	token, expiresAt, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		s.logger.Error(r.Context(), "login failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, loginResponse{AccessToken: token, ExpiresAt: expiresAt})
}

func (s *Server) handleNewUpload(w http.ResponseWriter, r *http.Request) {
	key, url, err := s.evidence.NewUploadSlot(r.Context())
	if err != nil {
		s.logger.Error(r.Context(), "failed to presign upload", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, uploadSlotResponse{Key: key, URL: url})
}

func (s *Server) handleRegisterEvidence(w http.ResponseWriter, r *http.Request) {
	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" || req.TaskID == "" || req.PhotoURL == "" || req.PhotoHash == "" {
		http.Error(w, "id, task_id, photo_url and photo_hash are required", http.StatusBadRequest)
		return
	}
	capturedAt, err := time.Parse(time.RFC3339Nano, req.CapturedAt)
	if err != nil {
		http.Error(w, "invalid captured_at", http.StatusBadRequest)
		return
	}

	inserted, err := s.evidence.Register(r.Context(), operatorFromContext(r.Context()), &models.Evidence{
		ID:           req.ID,
		TaskID:       req.TaskID,
		JobID:        req.JobID,
		EvidenceType: req.EvidenceType,
		PhotoStage:   req.PhotoStage,
		PhotoURL:     req.PhotoURL,
		PhotoHash:    req.PhotoHash,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		GPSAccuracy:  req.GPSAccuracy,
		CapturedAt:   capturedAt,
	})
	if err != nil {
		s.logger.Error(r.Context(), "failed to register evidence", "id", req.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !inserted {
		s.logger.Info(r.Context(), "duplicate registration ignored", "id", req.ID)
	}

	writeJSON(w, map[string]bool{"inserted": inserted})
}

type evidenceResponse struct {
	ID           string    `json:"id"`
	TaskID       string    `json:"task_id"`
	JobID        string    `json:"job_id"`
	EvidenceType string    `json:"evidence_type"`
	PhotoStage   *string   `json:"photo_stage"`
	PhotoURL     string    `json:"photo_url"`
	PhotoHash    string    `json:"photo_hash"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	GPSAccuracy  *float64  `json:"gps_accuracy"`
	CapturedAt   time.Time `json:"captured_at"`
	ReceivedAt   time.Time `json:"received_at"`
}

func (s *Server) handleListTaskEvidence(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("taskID")

	items, err := s.evidence.ListByTask(r.Context(), taskID)
	if err != nil {
		s.logger.Error(r.Context(), "failed to list evidence", "task", taskID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := make([]evidenceResponse, 0, len(items))
	for _, e := range items {
		resp = append(resp, evidenceResponse{
			ID:           e.ID,
			TaskID:       e.TaskID,
			JobID:        e.JobID,
			EvidenceType: e.EvidenceType,
			PhotoStage:   e.PhotoStage,
			PhotoURL:     e.PhotoURL,
			PhotoHash:    e.PhotoHash,
			Latitude:     e.Latitude,
			Longitude:    e.Longitude,
			GPSAccuracy:  e.GPSAccuracy,
			CapturedAt:   e.CapturedAt,
			ReceivedAt:   e.ReceivedAt,
		})
	}

	writeJSON(w, resp)
}

type verifyRequest struct {
	PhotoHash string `json:"photo_hash"`
}

func (s *Server) handleVerifyEvidence(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PhotoHash == "" {
		http.Error(w, "photo_hash is required", http.StatusBadRequest)
		return
	}

	match, err := s.evidence.VerifyHash(r.Context(), r.PathValue("id"), req.PhotoHash)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			http.Error(w, "evidence not found", http.StatusNotFound)
			return
		}
		s.logger.Error(r.Context(), "failed to verify evidence", "id", r.PathValue("id"), "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]bool{"match": match})
}

func (s *Server) handleSyncRecord(w http.ResponseWriter, r *http.Request) {
	var req mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Type == "" || req.Action == "" || req.ID == "" {
		http.Error(w, "type, action and id are required", http.StatusBadRequest)
		return
	}
	switch req.Action {
	case "create", "update", "delete":
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}

	err := s.evidence.ApplyMutation(r.Context(), operatorFromContext(r.Context()), &models.Record{
		Type:    req.Type,
		ID:      req.ID,
		Action:  req.Action,
		Payload: req.Payload,
	})
	if err != nil {
		s.logger.Error(r.Context(), "failed to apply mutation",
			"type", req.Type, "id", req.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
