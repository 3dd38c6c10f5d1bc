//go:build !cgo || !tesseract

package tesseract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
)

func TestStub_Unavailable(t *testing.T) {
	assert.False(t, Available())

	e := New([]string{"eng"}, 0, 0)
	assert.Equal(t, "", e.ExtractText(context.Background(), domain.OCRInput{Data: []byte{0x89, 'P', 'N', 'G'}}))
	assert.Contains(t, e.Name(), "unavailable")
}
