package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestAppError_Error(t *testing.T) {
	e := New("RATE_LIMITED", "slow down", http.StatusTooManyRequests)
	if got := e.Error(); got != "RATE_LIMITED: slow down" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := Wrap(errors.New("disk full"), "STORE_UNAVAILABLE", "storage failed", http.StatusServiceUnavailable)
	if got := wrapped.Error(); got != "STORE_UNAVAILABLE: storage failed: disk full" {
		t.Errorf("Error() = %q", got)
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	e := Wrap(fmt.Errorf("ping: %w", cause), CodeStoreUnavailable, "x", http.StatusServiceUnavailable)
	if !errors.Is(e, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
}

func TestIsAppError(t *testing.T) {
	e := ErrMissingField()
	wrapped := fmt.Errorf("handler: %w", e)

	appErr, ok := IsAppError(wrapped)
	if !ok {
		t.Fatal("IsAppError() = false, want true")
	}
	if appErr.Code != CodeMissingField {
		t.Errorf("Code = %q, want %q", appErr.Code, CodeMissingField)
	}
	if appErr.HTTPStatus != http.StatusBadRequest {
		t.Errorf("HTTPStatus = %d, want %d", appErr.HTTPStatus, http.StatusBadRequest)
	}

	if _, ok := IsAppError(errors.New("plain")); ok {
		t.Error("IsAppError() = true for a plain error")
	}
}

func TestErrRateLimited_RetryAfterParam(t *testing.T) {
	e := ErrRateLimited(42500 * time.Millisecond)
	if e.HTTPStatus != http.StatusTooManyRequests {
		t.Errorf("HTTPStatus = %d, want 429", e.HTTPStatus)
	}
	if got := e.Params["retry_after"]; got != 43 {
		t.Errorf("retry_after = %v, want 43", got)
	}
}

func TestErrStoreUnavailable_HidesCause(t *testing.T) {
	e := ErrStoreUnavailable(errors.New("pq: password authentication failed"))
	if e.Message != "Ошибка при сохранении" {
		t.Errorf("Message = %q leaks backing-medium detail", e.Message)
	}
	if e.Err == nil {
		t.Error("cause should be preserved for server-side logging")
	}
}
