package asrhttp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"murmur/internal/domain"
)

type capturedRequest struct {
	contentType string
	auth        string
	fileType    string
	fileName    string
	file        []byte
	fields      map[string]string
	partNames   []string
}

func newCapturingServer(t *testing.T, status int, body string) (*httptest.Server, <-chan capturedRequest) {
	t.Helper()
	requests := make(chan capturedRequest, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured := capturedRequest{
			contentType: r.Header.Get("Content-Type"),
			auth:        r.Header.Get("Authorization"),
			fields:      map[string]string{},
		}
		reader, err := r.MultipartReader()
		if err != nil {
			t.Errorf("expected multipart request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Errorf("read part: %v", err)
				return
			}
			data, _ := io.ReadAll(part)
			captured.partNames = append(captured.partNames, part.FormName())
			if part.FormName() == "file" {
				captured.file = data
				captured.fileName = part.FileName()
				captured.fileType = part.Header.Get("Content-Type")
				continue
			}
			captured.fields[part.FormName()] = string(data)
		}
		requests <- captured

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server, requests
}

func TestTranscribeSendsTwoPartForm(t *testing.T) {
	t.Parallel()

	server, requests := newCapturingServer(t, http.StatusOK, `{"text":"hello world"}`)
	client := NewClient(Config{Endpoint: server.URL, Language: "zh"})

	text, err := client.Transcribe(context.Background(), []byte("RIFFfake"))
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("unexpected text: %q", text)
	}

	req := <-requests
	if !strings.HasPrefix(req.contentType, "multipart/form-data") {
		t.Fatalf("unexpected content type: %q", req.contentType)
	}
	if len(req.partNames) != 2 || req.partNames[0] != "file" || req.partNames[1] != "language" {
		t.Fatalf("unexpected parts: %v", req.partNames)
	}
	if req.fileType != "audio/wav" || req.fileName != "audio.wav" {
		t.Fatalf("unexpected file part: type=%q name=%q", req.fileType, req.fileName)
	}
	if string(req.file) != "RIFFfake" {
		t.Fatalf("unexpected file payload: %q", req.file)
	}
	if req.fields["language"] != "zh" {
		t.Fatalf("unexpected language: %q", req.fields["language"])
	}
	if req.auth != "" {
		t.Fatalf("expected no authorization header, got %q", req.auth)
	}
}

func TestTranscribeOptionalModelAndKey(t *testing.T) {
	t.Parallel()

	server, requests := newCapturingServer(t, http.StatusOK, `{"text":"ok"}`)
	client := NewClient(Config{Endpoint: server.URL, Language: "en", APIKey: "secret", Model: "sensevoice"})

	if _, err := client.Transcribe(context.Background(), []byte("x")); err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}

	req := <-requests
	if req.auth != "Bearer secret" {
		t.Fatalf("unexpected auth header: %q", req.auth)
	}
	if req.fields["model"] != "sensevoice" {
		t.Fatalf("expected model field, got %v", req.fields)
	}
}

func TestTranscribeMissingTextIsEmptyResult(t *testing.T) {
	t.Parallel()

	server, _ := newCapturingServer(t, http.StatusOK, `{"language":"zh"}`)
	client := NewClient(Config{Endpoint: server.URL})

	text, err := client.Transcribe(context.Background(), []byte("x"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
}

func TestTranscribeMalformedJSONIsTransportError(t *testing.T) {
	t.Parallel()

	server, _ := newCapturingServer(t, http.StatusOK, `not json`)
	client := NewClient(Config{Endpoint: server.URL})

	_, err := client.Transcribe(context.Background(), []byte("x"))
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestTranscribeHTTPErrorIsTransportError(t *testing.T) {
	t.Parallel()

	server, _ := newCapturingServer(t, http.StatusBadGateway, `upstream down`)
	client := NewClient(Config{Endpoint: server.URL})

	_, err := client.Transcribe(context.Background(), []byte("x"))
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("expected status detail, got %v", err)
	}
}

func TestTranscribeTimeoutIsTransportError(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	client := NewClient(Config{Endpoint: server.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := client.Transcribe(context.Background(), []byte("x"))
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout was not enforced")
	}
}

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()

	client := NewClient(Config{})
	if client.cfg.Endpoint != DefaultEndpoint || client.cfg.Language != DefaultLanguage || client.cfg.Timeout != DefaultTimeout {
		t.Fatalf("unexpected defaults: %+v", client.cfg)
	}
}
