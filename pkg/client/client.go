package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/tendant/stopmotion-pipeline/pkg/pipeline"
)

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
}

// Client is an HTTP client for a local stop-motion session
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new pipeline client
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewWithHTTPClient creates a new pipeline client with a custom HTTP client
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, want int, out any) error {
	url := fmt.Sprintf("%s%s", c.baseURL, path)
	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		bodyBytes, _ := io.ReadAll(resp.Body)
		var apiErr pipeline.ErrorResponse
		if json.Unmarshal(bodyBytes, &apiErr) == nil && apiErr.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(bodyBytes)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, body, want, out)
}

// Process starts an encode of the current sequence
func (c *Client) Process(ctx context.Context, req pipeline.ProcessRequest) (*pipeline.ProcessResponse, error) {
	var resp pipeline.ProcessResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/process", req, http.StatusAccepted, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Upload sends images as one batch
func (c *Client) Upload(ctx context.Context, images []pipeline.Image) ([]pipeline.Entry, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, img := range images {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
			"name":     "files",
			"filename": img.Filename,
		}))
		header.Set("Content-Type", img.MimeType)
		part, err := mw.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create part: %w", err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, fmt.Errorf("failed to write part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish upload body: %w", err)
	}

	var entries []pipeline.Entry
	if err := c.do(ctx, http.MethodPost, "/v1/images", mw.FormDataContentType(), &buf, http.StatusCreated, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Session returns the full session state
func (c *Client) Session(ctx context.Context) (*pipeline.SessionState, error) {
	var state pipeline.SessionState
	if err := c.doJSON(ctx, http.MethodGet, "/v1/session", nil, http.StatusOK, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Remove deletes an entry
func (c *Client) Remove(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/images/"+id, nil, http.StatusNoContent, nil)
}

// Reorder submits a permutation of the current identities
func (c *Client) Reorder(ctx context.Context, ids []string) (*pipeline.SessionState, error) {
	var state pipeline.SessionState
	req := pipeline.ReorderRequest{Identities: ids}
	if err := c.doJSON(ctx, http.MethodPut, "/v1/order", req, http.StatusOK, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Next advances to the next step
func (c *Client) Next(ctx context.Context) (string, error) {
	var resp pipeline.StepResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/steps/next", nil, http.StatusOK, &resp); err != nil {
		return "", err
	}
	return resp.Step, nil
}

// Back returns to the previous step
func (c *Client) Back(ctx context.Context) (string, error) {
	var resp pipeline.StepResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/steps/back", nil, http.StatusOK, &resp); err != nil {
		return "", err
	}
	return resp.Step, nil
}

// SetFrameRate submits frame-rate text
func (c *Client) SetFrameRate(ctx context.Context, text string) (*pipeline.FrameRate, error) {
	var rate pipeline.FrameRate
	req := pipeline.FrameRateRequest{Text: text}
	if err := c.doJSON(ctx, http.MethodPut, "/v1/frame-rate", req, http.StatusOK, &rate); err != nil {
		return nil, err
	}
	return &rate, nil
}

// TogglePreview starts or stops the live preview
func (c *Client) TogglePreview(ctx context.Context) (*pipeline.PreviewState, error) {
	var state pipeline.PreviewState
	if err := c.doJSON(ctx, http.MethodPost, "/v1/preview/toggle", nil, http.StatusOK, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// LoadEncoder asks the session to bootstrap its encoder
func (c *Client) LoadEncoder(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/encoder/load", nil, http.StatusOK, nil)
}

// RunStatus returns the status of a run
func (c *Client) RunStatus(ctx context.Context, runID string) (*pipeline.RunStatus, error) {
	var status pipeline.RunStatus
	if err := c.doJSON(ctx, http.MethodGet, "/v1/runs/"+runID, nil, http.StatusOK, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// WaitForRun polls a run until it leaves the running state
func (c *Client) WaitForRun(ctx context.Context, runID string, interval time.Duration) (*pipeline.RunStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		status, err := c.RunStatus(ctx, runID)
		if err != nil {
			return nil, err
		}
		if status.State != "running" {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// DownloadArtifact fetches the latest output and its file name
func (c *Client) DownloadArtifact(ctx context.Context) ([]byte, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/artifact", nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, "", &APIError{StatusCode: resp.StatusCode, Message: string(bodyBytes)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read artifact: %w", err)
	}
	filename := ""
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		filename = params["filename"]
	}
	return data, filename, nil
}
