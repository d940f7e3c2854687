package storeerr

import (
	"context"
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
			name: "with cause",
			err:  New("redis get", KindUnavailable, errors.New("connection refused")),
			want: "redis get: unavailable: connection refused",
		},
		{
			name: "without cause",
			err:  New("download", KindNotFound, nil),
			want: "download: not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("outer: %w", New("upload", KindUnavailable, cause))

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}

	var se *Error
	if !errors.As(err, &se) {
		t.Fatal("errors.As should find *Error")
	}
	if se.Op != "upload" {
		t.Errorf("Op = %q, want upload", se.Op)
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"deadline", fmt.Errorf("dial: %w", context.DeadlineExceeded), KindTimeout},
		{"generic", errors.New("refused"), KindUnavailable},
		{"already typed", New("get", KindCorrupt, nil), KindCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(Wrap("op", tt.err)); got != tt.want {
				t.Errorf("KindOf(Wrap()) = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindTimeout, true},
		{KindUnavailable, true},
		{KindNotFound, false},
		{KindExists, false},
		{KindCorrupt, false},
		{KindInvalid, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := IsTransient(New("op", tt.kind, nil)); got != tt.want {
				t.Errorf("IsTransient(%s) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}

	if IsTransient(errors.New("plain")) {
		t.Error("plain errors should not be transient")
	}
	if !IsNotFound(New("get", KindNotFound, nil)) {
		t.Error("IsNotFound should match KindNotFound")
	}
}
