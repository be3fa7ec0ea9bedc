package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"fieldvault/internal/agent/models"
	"fieldvault/internal/common"
)

// HTTPClient talks JSON to the backend API and raw bytes to the presigned
// storage location. Every network call carries an explicit timeout so a hung
// request cannot wedge the sync engine's single-cycle lock.
type HTTPClient struct {
	baseURL     string
	hc          *http.Client
	callTimeout time.Duration
}

// NewHTTPClient builds a client for the backend at baseURL (no trailing
// slash). callTimeout bounds each individual network call.
func NewHTTPClient(baseURL string, callTimeout time.Duration) *HTTPClient {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:     baseURL,
		hc:          &http.Client{},
		callTimeout: callTimeout,
	}
}

type uploadSlot struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// UploadEvidence runs acquire → transfer → register for one record.
func (c *HTTPClient) UploadEvidence(ctx context.Context, token string, rec *models.EvidenceRecord) (string, error) {
	slot, err := c.acquireUploadSlot(ctx, token)
	if err != nil {
		return "", fmt.Errorf("acquire upload slot: %w", err)
	}

	if err := c.putBytes(ctx, slot.URL, rec.PhotoBytes); err != nil {
		return "", fmt.Errorf("transfer photo bytes: %w", err)
	}

	if err := c.registerEvidence(ctx, token, rec, slot.Key); err != nil {
		return "", fmt.Errorf("register evidence: %w", err)
	}

	return slot.Key, nil
}

func (c *HTTPClient) acquireUploadSlot(ctx context.Context, token string) (*uploadSlot, error) {
	var slot uploadSlot
	if err := c.doJSON(ctx, http.MethodPost, "/v1/uploads", token, nil, &slot); err != nil {
		return nil, err
	}
	if slot.URL == "" {
		return nil, fmt.Errorf("backend returned empty upload url")
	}
	return &slot, nil
}

// putBytes transfers the photo to the presigned write location.
func (c *HTTPClient) putBytes(ctx context.Context, url string, photo []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(photo))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}

func (c *HTTPClient) registerEvidence(ctx context.Context, token string, rec *models.EvidenceRecord, storageKey string) error {
	payload := RegistrationPayload{
		ID:           rec.ID,
		TaskID:       rec.TaskID,
		JobID:        rec.JobID,
		EvidenceType: rec.EvidenceType,
		PhotoURL:     storageKey,
		PhotoHash:    rec.IntegrityHash,
		CapturedAt:   rec.CapturedAt.UTC().Format(time.RFC3339Nano),
	}
	if rec.PhotoStage != models.PhotoStageNone {
		stage := string(rec.PhotoStage)
		payload.PhotoStage = &stage
	}
	if rec.Geo != nil {
		payload.Latitude = &rec.Geo.Latitude
		payload.Longitude = &rec.Geo.Longitude
		payload.GPSAccuracy = &rec.Geo.Accuracy
	}

	return c.doJSON(ctx, http.MethodPost, "/v1/evidence", token, payload, nil)
}

type mutationPayload struct {
	Type    string          `json:"type"`
	Action  string          `json:"action"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// SubmitMutation delivers one queued create/update/delete.
func (c *HTTPClient) SubmitMutation(ctx context.Context, token string, item *models.SyncQueueItem) error {
	body := mutationPayload{
		Type:    string(item.Type),
		Action:  string(item.Action),
		ID:      item.EntityID,
		Payload: item.Payload,
	}
	return c.doJSON(ctx, http.MethodPost, "/v1/sync/records", token, body, nil)
}

// Ping probes backend reachability. Used by the online-status watcher.
func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/v1/healthz", "", nil, nil)
}

// doJSON performs one API call with the per-call timeout, optional bearer
// token, optional JSON request body, and optional JSON response target.
func (c *HTTPClient) doJSON(ctx context.Context, method, path, token string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return common.ErrorUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: %s; body: %s", method, path, resp.Status, string(b))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
