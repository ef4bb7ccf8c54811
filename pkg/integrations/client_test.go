package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient(t *testing.T) {
	headers := map[string]string{"Authorization": "Bearer token"}
	client := NewClient(headers)

	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.http == nil {
		t.Error("NewClient() http client is nil")
	}
	if client.headers["Authorization"] != "Bearer token" {
		t.Error("NewClient() headers not set correctly")
	}
}

func TestNewClientNilHeaders(t *testing.T) {
	client := NewClient(nil)
	if client.headers != nil {
		t.Error("NewClient() should allow nil headers")
	}
}

func TestClientGet(t *testing.T) {
	type response struct {
		Message string `json:"message"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(response{Message: "hello"})
	}))
	defer server.Close()

	client := NewClient(nil).WithHTTPClient(server.Client())

	var resp response
	if err := client.Get(context.Background(), server.URL, &resp); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if resp.Message != "hello" {
		t.Errorf("Get() message = %q, want %q", resp.Message, "hello")
	}
}

func TestClientGetWithHeadersOverridesDefaults(t *testing.T) {
	var defaultHeader, overridden string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defaultHeader = r.Header.Get("X-Default")
		overridden = r.Header.Get("X-Override")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	client := NewClient(map[string]string{"X-Default": "default", "X-Override": "default"}).
		WithHTTPClient(server.Client())

	var resp map[string]string
	err := client.GetWithHeaders(context.Background(), server.URL, map[string]string{"X-Override": "overridden"}, &resp)
	if err != nil {
		t.Fatalf("GetWithHeaders() error: %v", err)
	}
	if defaultHeader != "default" {
		t.Errorf("default header = %q, want %q", defaultHeader, "default")
	}
	if overridden != "overridden" {
		t.Errorf("override header = %q, want %q", overridden, "overridden")
	}
}

func TestClientGetText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text response"))
	}))
	defer server.Close()

	client := NewClient(nil).WithHTTPClient(server.Client())

	text, err := client.GetText(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetText() error: %v", err)
	}
	if text != "plain text response" {
		t.Errorf("GetText() = %q, want %q", text, "plain text response")
	}
}

func TestClientGetStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		wantType error
	}{
		{"404 Not Found", http.StatusNotFound, ErrNotFound},
		{"403 Forbidden", http.StatusForbidden, ErrNetwork},
		{"429 Too Many Requests", http.StatusTooManyRequests, ErrNetwork},
		{"500 Internal Server Error", http.StatusInternalServerError, ErrNetwork},
		{"204 No Content", http.StatusNoContent, ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))
			defer server.Close()

			client := NewClient(nil).WithHTTPClient(server.Client())

			var resp map[string]string
			err := client.Get(context.Background(), server.URL, &resp)
			if !errors.Is(err, tt.wantType) {
				t.Errorf("Get() error = %v, want %v", err, tt.wantType)
			}
			var se *StatusError
			if !errors.As(err, &se) || se.Code != tt.code {
				t.Errorf("Get() error should be StatusError with code %d, got %v", tt.code, err)
			}
		})
	}
}

func TestClientGetLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/latest":
			http.Redirect(w, r, "/pkg/embulk/0.8.18/", http.StatusFound)
		case "/pkg/embulk/0.8.18/":
			t.Error("redirect should not be followed")
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	client := NewClient(nil).WithHTTPClient(server.Client())

	loc, err := client.GetLocation(context.Background(), server.URL+"/latest")
	if err != nil {
		t.Fatalf("GetLocation() error: %v", err)
	}
	if loc != "/pkg/embulk/0.8.18/" {
		t.Errorf("GetLocation() = %q", loc)
	}

	if _, err := client.GetLocation(context.Background(), server.URL+"/plain"); err == nil {
		t.Error("GetLocation() without Location header should fail")
	}
}

func TestClientNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(nil)
	var v any
	if err := client.Get(context.Background(), url, &v); !errors.Is(err, ErrNetwork) {
		t.Errorf("Get() on closed server error = %v, want ErrNetwork", err)
	}
}

func TestClientCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(nil).WithHTTPClient(server.Client())
	var v any
	if err := client.Get(ctx, server.URL, &v); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
}

func TestURLEncode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", "hello"},
		{"space", "hello world", "hello+world"},
		{"special chars", "a=1&b=2", "a%3D1%26b%3D2"},
		{"plugin prefix", "embulk-", "embulk-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := URLEncode(tt.input); got != tt.want {
				t.Errorf("URLEncode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewHTTPClientOwnsTransport(t *testing.T) {
	a, b := NewHTTPClient(), NewHTTPClient()
	if a.Transport == b.Transport {
		t.Error("each client should own its transport")
	}
	if a.Timeout != 0 {
		t.Errorf("Timeout = %v, want transport defaults only", a.Timeout)
	}
}
