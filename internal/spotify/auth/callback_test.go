package auth

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func startCallbackServer(t *testing.T) *CallbackServer {
	t.Helper()
	server, err := NewCallbackServer("http://127.0.0.1:0/callback")
	if err != nil {
		t.Fatalf("NewCallbackServer() error = %v", err)
	}
	server.Start()
	t.Cleanup(func() { _ = server.Shutdown(context.Background()) })
	return server
}

func hitCallback(t *testing.T, port int, query string) {
	t.Helper()
	go func() {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/callback?%s", port, query))
		if err != nil {
			t.Errorf("callback request failed: %v", err)
			return
		}
		_ = resp.Body.Close()
	}()
}

func TestCallbackServer(t *testing.T) {
	server := startCallbackServer(t)
	if server.Port() == 0 {
		t.Fatal("Port() = 0 after listen")
	}

	hitCallback(t, server.Port(), "code=test_code&state=test_state")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := server.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if result.Code != "test_code" || result.State != "test_state" || result.Error != "" {
		t.Errorf("result = %+v", result)
	}
	if err := result.Validate("test_state"); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := result.Validate("other"); err == nil {
		t.Error("Validate() with wrong state should fail")
	}
}

func TestCallbackServerError(t *testing.T) {
	server := startCallbackServer(t)
	hitCallback(t, server.Port(), "error=access_denied&state=test_state")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := server.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if result.Error != "access_denied" {
		t.Errorf("Error = %q, want %q", result.Error, "access_denied")
	}
	if err := result.Validate("test_state"); err == nil {
		t.Error("Validate() should surface the error")
	}
}

func TestCallbackServerTimeout(t *testing.T) {
	server := startCallbackServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := server.Wait(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("Wait() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestNewCallbackServerInvalidURI(t *testing.T) {
	if _, err := NewCallbackServer("://bad"); err == nil {
		t.Error("NewCallbackServer() should reject an unparseable URI")
	}
}
