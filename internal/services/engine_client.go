package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// HTTPEngineClient is an HTTP implementation of the EngineClient interface.
type HTTPEngineClient struct {
	url string
}

// NewHTTPEngineClient creates a new HTTPEngineClient.
func NewHTTPEngineClient(url string) *HTTPEngineClient {
	return &HTTPEngineClient{url: url}
}

// Generate dispatches a generation request to the workflow engine.
func (c *HTTPEngineClient) Generate(ctx context.Context, chatflowID, description string) error {
	requestBody, err := json.Marshal(map[string]string{
		"chatflow_id": chatflowID,
		"description": description,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/generate", bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("failed to dispatch generation: status code %d", resp.StatusCode)
	}

	return nil
}
