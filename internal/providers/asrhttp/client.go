// Package asrhttp talks to a batch speech-recognition endpoint that accepts
// one multipart upload per utterance and answers with a JSON transcript, as
// served by OpenAI-compatible /v1/audio/transcriptions implementations.
package asrhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"murmur/internal/domain"
)

const (
	DefaultEndpoint = "http://127.0.0.1:30766/v1/audio/transcriptions"
	DefaultLanguage = "zh"
	DefaultTimeout  = 30 * time.Second

	maxErrorBody = 512
)

// Config controls the upload.
type Config struct {
	Endpoint string
	Language string
	// APIKey and Model are optional; when empty they are not sent.
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client implements ports.Transcriber over HTTP.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	return NewClientWithHTTP(cfg, nil)
}

// NewClientWithHTTP lets tests inject a transport.
func NewClientWithHTTP(cfg Config, httpClient *http.Client) *Client {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// Transcribe uploads wav and returns the recognized text. A response without
// a "text" field yields an empty transcript and no error. Every failure is
// wrapped in domain.ErrTransport.
func (c *Client) Transcribe(ctx context.Context, wav []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, contentType, err := c.buildForm(wav)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", domain.ErrTransport, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: send request: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", domain.ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d: %s", domain.ErrTransport, resp.StatusCode, clip(payload))
	}

	return parseTranscript(payload)
}

func (c *Client) buildForm(wav []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	// CreateFormFile would label the part application/octet-stream.
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="audio.wav"`)
	header.Set("Content-Type", "audio/wav")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return nil, "", fmt.Errorf("write audio: %w", err)
	}

	if err := writer.WriteField("language", c.cfg.Language); err != nil {
		return nil, "", fmt.Errorf("write language field: %w", err)
	}
	if c.cfg.Model != "" {
		if err := writer.WriteField("model", c.cfg.Model); err != nil {
			return nil, "", fmt.Errorf("write model field: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

type transcriptionResponse struct {
	Text *string `json:"text"`
}

func parseTranscript(payload []byte) (string, error) {
	var resp transcriptionResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", fmt.Errorf("%w: parse response: %v", domain.ErrTransport, err)
	}
	if resp.Text == nil {
		return "", nil
	}
	return *resp.Text, nil
}

func clip(payload []byte) string {
	text := strings.TrimSpace(string(payload))
	if len(text) > maxErrorBody {
		return text[:maxErrorBody] + "..."
	}
	return text
}
