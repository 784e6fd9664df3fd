package match

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "field and message",
			err:  malformed("range_label", "is required"),
			want: "range_label: is required",
		},
		{
			name: "message only",
			err:  &Error{Code: CodeCatalogNotReady, Message: "catalog index is not built yet"},
			want: "catalog index is not built yet",
		},
		{
			name: "with cause",
			err:  degraded(StrategySemantic, errors.New("timeout")),
			want: "semantic matching skipped: timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("outer: %w", degraded(StrategySemantic, cause))

	if !errors.Is(err, ErrDegradedStrategy) {
		t.Error("errors.Is(err, ErrDegradedStrategy) = false, want true")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if errors.Is(err, ErrMalformedQuery) {
		t.Error("errors.Is(err, ErrMalformedQuery) = true, want false")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "typed", err: malformed("max_results", "must not be negative"), want: CodeMalformedQuery},
		{name: "wrapped typed", err: fmt.Errorf("handler: %w", &Error{Code: CodeCatalogNotReady}), want: CodeCatalogNotReady},
		{name: "bare sentinel", err: fmt.Errorf("boot: %w", ErrConfiguration), want: CodeConfiguration},
		{name: "untyped", err: errors.New("boom"), want: CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}
