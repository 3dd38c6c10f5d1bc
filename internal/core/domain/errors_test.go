package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrNotImplemented", ErrNotImplemented},
		{"ErrValidation", ErrValidation},
		{"ErrDuplicateDocument", ErrDuplicateDocument},
		{"ErrStorage", ErrStorage},
		{"ErrOCRTimeout", ErrOCRTimeout},
		{"ErrOCRFailure", ErrOCRFailure},
		{"ErrImageTooLarge", ErrImageTooLarge},
		{"ErrCacheMiss", ErrCacheMiss},
		{"ErrCache", ErrCache},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrNotFound(t *testing.T) {
	assert.Equal(t, "not found", ErrNotFound.Error())
	assert.True(t, errors.Is(ErrNotFound, ErrNotFound))
	assert.False(t, errors.Is(ErrNotFound, ErrDuplicateDocument))
}

func TestValidationError_Is(t *testing.T) {
	err := NewValidationError("/tmp/a.pdf", "not a PDF")

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrStorage))
	assert.Contains(t, err.Error(), "/tmp/a.pdf")
	assert.Contains(t, err.Error(), "not a PDF")
}

func TestValidationError_Wrapped(t *testing.T) {
	err := fmt.Errorf("ingesting: %w", NewValidationError("x.pdf", "missing"))

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "x.pdf", ve.Path)
	assert.True(t, errors.Is(err, ErrValidation))
}
