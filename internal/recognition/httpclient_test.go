package recognition

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewHTTPClientValidation(t *testing.T) {
	if _, err := NewHTTPClient(HTTPClientConfig{SampleRate: 16000}); err == nil {
		t.Error("Expected error for empty endpoint")
	}

	if _, err := NewHTTPClient(HTTPClientConfig{Endpoint: "http://x", SampleRate: 0}); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}

func TestNewHTTPClientDefaults(t *testing.T) {
	client, err := NewHTTPClient(HTTPClientConfig{Endpoint: "http://x", SampleRate: 16000})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if client.config.Timeout != 30*time.Second {
		t.Errorf("Expected default timeout 30s, got %v", client.config.Timeout)
	}
	if client.config.MaxConcurrent != 10 {
		t.Errorf("Expected default max concurrent 10, got %d", client.config.MaxConcurrent)
	}
}

func TestHTTPClientRecognize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("Expected multipart form: %v", err)
		}
		if got := r.FormValue("sample_rate"); got != "16000" {
			t.Errorf("Expected sample_rate 16000, got %s", got)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("Expected language 'en', got %s", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("Expected audio file in form: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"text": "hello world",
			"language": "en",
			"confidence": 0.92,
			"words": [
				{"word": "hello", "start": 0.0, "end": 0.4, "confidence": 0.95},
				{"word": "world", "start": 0.5, "end": 0.9, "confidence": 0.9}
			]
		}`)
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPClientConfig{
		Endpoint:   server.URL,
		SampleRate: 16000,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	result, err := client.Recognize(context.Background(), make([]float32, 16000), "en")
	if err != nil {
		t.Fatalf("Failed to recognize: %v", err)
	}

	if result.Text != "hello world" {
		t.Errorf("Expected text 'hello world', got %q", result.Text)
	}
	if result.Confidence != 0.92 {
		t.Errorf("Expected confidence 0.92, got %f", result.Confidence)
	}
	if len(result.Words) != 2 {
		t.Fatalf("Expected 2 words, got %d", len(result.Words))
	}
	if result.Words[0].StartMs != 0 || result.Words[0].EndMs != 400 {
		t.Errorf("Expected first word at [0, 400) ms, got [%d, %d)",
			result.Words[0].StartMs, result.Words[0].EndMs)
	}
	if result.Words[1].StartMs != 500 || result.Words[1].EndMs != 900 {
		t.Errorf("Expected second word at [500, 900) ms, got [%d, %d)",
			result.Words[1].StartMs, result.Words[1].EndMs)
	}

	stats := client.GetStats()
	if stats.TotalRequests != 1 || stats.SuccessRequests != 1 {
		t.Errorf("Expected 1/1 requests, got %d/%d", stats.TotalRequests, stats.SuccessRequests)
	}
}

func TestHTTPClientRetriesServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text": "ok", "confidence": 1.0}`)
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPClientConfig{
		Endpoint:   server.URL,
		SampleRate: 16000,
		MaxRetries: 2,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	result, err := client.Recognize(context.Background(), make([]float32, 16000), "")
	if err != nil {
		t.Fatalf("Expected retry to succeed, got: %v", err)
	}
	if result.Text != "ok" {
		t.Errorf("Expected text 'ok', got %q", result.Text)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}

	stats := client.GetStats()
	if stats.TotalRetries != 1 {
		t.Errorf("Expected 1 retry, got %d", stats.TotalRetries)
	}
}

func TestHTTPClientNoRetryOnClientError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPClientConfig{
		Endpoint:   server.URL,
		SampleRate: 16000,
		MaxRetries: 3,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if _, err := client.Recognize(context.Background(), make([]float32, 16000), ""); err == nil {
		t.Fatal("Expected error for 400 response")
	}
	if attempts != 1 {
		t.Errorf("Expected no retries on client error, got %d attempts", attempts)
	}
}

func TestHTTPClientContextCancellation(t *testing.T) {
	client, err := NewHTTPClient(HTTPClientConfig{
		Endpoint:   "http://localhost:1",
		SampleRate: 16000,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Recognize(ctx, make([]float32, 16000), ""); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "deadline exceeded", err: context.DeadlineExceeded, retryable: true},
		{name: "server error", err: errors.New("HTTP error 500: oops"), retryable: true},
		{name: "rate limited", err: errors.New("HTTP error 429: slow down"), retryable: true},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), retryable: true},
		{name: "timeout", err: errors.New("request timeout"), retryable: true},
		{name: "bad request", err: errors.New("HTTP error 400: bad input"), retryable: false},
		{name: "parse error", err: errors.New("failed to parse response JSON"), retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.retryable {
				t.Errorf("Expected retryable=%v, got %v", tt.retryable, got)
			}
		})
	}
}
