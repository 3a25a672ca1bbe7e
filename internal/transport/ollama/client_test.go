package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/querygen/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(&Config{BaseURL: srv.URL + "/", Timeout: 2 * time.Second, Logger: zap.NewNop()})
}

func TestGenerate_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["model"] != "deepseek-r1:1.5b" || req["prompt"] != "hello" || req["stream"] != false {
			t.Errorf("unexpected request body: %v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"deepseek-r1:1.5b","response":"{\"queries\":[]}","done":true}`))
	})

	out, err := c.Generate(context.Background(), "hello", "deepseek-r1:1.5b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"queries":[]}` {
		t.Errorf("unexpected response: %q", out)
	}
}

func TestGenerate_MissingResponseField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"done":true}`))
	})

	out, err := c.Generate(context.Background(), "p", "m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Errorf("expected empty response, got %q", out)
	}
}

func TestGenerate_Non2xx(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	})

	_, err := c.Generate(context.Background(), "p", "m")
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	var te *domain.TransportError
	if !errors.As(err, &te) || te.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 in error, got %v", err)
	}
}

func TestGenerate_MalformedEnvelope(t *testing.T) {
	for _, body := range []string{"not json", `["a"]`, `{"response": 42}`, `null`, `"text"`, `42`, `true`} {
		t.Run(body, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			_, err := c.Generate(context.Background(), "p", "m")
			if !errors.Is(err, domain.ErrTransport) {
				t.Fatalf("expected ErrTransport, got %v", err)
			}
		})
	}
}

func TestGenerate_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(&Config{BaseURL: url})
	_, err := c.Generate(context.Background(), "p", "m")
	var te *domain.TransportError
	if !errors.As(err, &te) || te.StatusCode != 0 {
		t.Fatalf("expected TransportError without status, got %v", err)
	}
}

func TestGenerate_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := NewClient(&Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.Generate(context.Background(), "p", "m")
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected ErrTransport on timeout, got %v", err)
	}
}

func TestGenerate_ContextCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":"x"}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Generate(ctx, "p", "m")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !errors.Is(err, domain.ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(&Config{})
	if c.baseURL != DefaultBaseURL {
		t.Errorf("expected default base URL, got %s", c.baseURL)
	}
	if c.http.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", c.http.Timeout)
	}
}

func TestHealthCheck(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/tags" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	})
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHealthCheck_Unhealthy(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	if err := c.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
