package offline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSubmitter posts a buffered batch to the validation service's sync
// endpoint, authenticating with the device's API token.
type HTTPSubmitter struct {
	baseURL     string
	deviceToken string
	client      *http.Client
}

func NewHTTPSubmitter(baseURL, deviceToken string) *HTTPSubmitter {
	return &HTTPSubmitter{
		baseURL:     baseURL,
		deviceToken: deviceToken,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

type batchSyncRequest struct {
	Validations []Entry `json:"validations"`
}

func (s *HTTPSubmitter) Submit(ctx context.Context, entries []Entry) error {
	payload, err := json.Marshal(batchSyncRequest{Validations: entries})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v1/scans/sync", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Device-Token", s.deviceToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sync rejected: status %d: %s", resp.StatusCode, body)
	}
	return nil
}

var _ Submitter = (*HTTPSubmitter)(nil)
