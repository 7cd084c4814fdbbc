package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", New(ErrInternal, http.StatusTeapot, "brew"), http.StatusTeapot},
		{"unknown document", fmt.Errorf("feedback: %w", ErrUnknownDocument), http.StatusNotFound},
		{"empty feedback", ErrEmptyFeedbackSet, http.StatusUnprocessableEntity},
		{"degenerate query", fmt.Errorf("rank: %w", ErrDegenerateVector), http.StatusUnprocessableEntity},
		{"no snapshot", ErrSnapshotNotFound, http.StatusServiceUnavailable},
		{"timeout", ErrTimeout, http.StatusGatewayTimeout},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := New(ErrInvalidInput, http.StatusBadRequest, "limit -1")
	if err.Error() != "invalid input: limit -1" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Unwrap() != ErrInvalidInput {
		t.Error("Unwrap should return the sentinel")
	}
}
