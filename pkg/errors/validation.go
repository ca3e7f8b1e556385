package errors

import (
	"math"
	"strings"
	"unicode"
)

// ValidatePath validates a user supplied file path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// ValidateFileName validates a bare output file name, as used for
// artifacts named after the input mesh.
func ValidateFileName(name string) error {
	if err := ValidatePath(name); err != nil {
		return err
	}
	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidPath, "file name cannot contain path separators")
	}
	if name == "." || name == ".." {
		return New(ErrCodeInvalidPath, "file name cannot be %q", name)
	}
	return nil
}

// ValidateEpsilon checks that a tolerance is a finite, non-negative number.
func ValidateEpsilon(name string, eps float64) error {
	if math.IsNaN(eps) || math.IsInf(eps, 0) {
		return New(ErrCodeInvalidConfig, "%s must be finite, got %v", name, eps)
	}
	if eps < 0 {
		return New(ErrCodeInvalidConfig, "%s must not be negative, got %v", name, eps)
	}
	return nil
}

// ValidateAngle checks that a target angle sum, in radians, is usable.
// Angle sums must be positive and finite; values above 2π are allowed
// since cone points may carry more than a full turn.
func ValidateAngle(angle float64) error {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return New(ErrCodeInvalidInput, "angle must be finite, got %v", angle)
	}
	if angle <= 0 {
		return New(ErrCodeInvalidInput, "angle must be positive, got %v", angle)
	}
	return nil
}
