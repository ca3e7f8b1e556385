package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidMesh, "edge %d-%d: %s", 1, 2, "three triangles")

	if err.Code != ErrCodeInvalidMesh {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidMesh)
	}

	if err.Message != "edge 1-2: three triangles" {
		t.Errorf("Message = %v, want %v", err.Message, "edge 1-2: three triangles")
	}

	expected := "INVALID_MESH: edge 1-2: three triangles"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("iteration limit reached")
	err := Wrap(ErrCodeNotConverged, cause, "could not find optimal solution")

	if err.Code != ErrCodeNotConverged {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeNotConverged)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}

	expected := "NOT_CONVERGED: could not find optimal solution: iteration limit reached"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

type codedError struct{}

func (codedError) Error() string   { return "coded" }
func (codedError) ErrorCode() Code { return ErrCodeTriangleInequality }

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeInvalidInput,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeMisuse,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeNotConverged, New(ErrCodeInvalidInput, "inner"), "outer"),
			code:     ErrCodeNotConverged,
			expected: true,
		},
		{
			name:     "coded error type",
			err:      codedError{},
			code:     ErrCodeTriangleInequality,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"Error type", New(ErrCodeNoSuchVertex, "test"), ErrCodeNoSuchVertex},
		{"coded type", codedError{}, ErrCodeTriangleInequality},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Error type", New(ErrCodeInvalidInput, "friendly message"), "friendly message"},
		{"wrapped", Wrap(ErrCodeParse, errors.New("bad index"), "line 3"), "line 3: bad index"},
		{"plain error", errors.New("plain error"), "plain error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}
