package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchQuery_Offset(t *testing.T) {
	tests := []struct {
		name string
		q    SearchQuery
		want int
	}{
		{"first page", SearchQuery{Page: 1, PageSize: 10}, 0},
		{"third page", SearchQuery{Page: 3, PageSize: 10}, 20},
		{"zero page", SearchQuery{Page: 0, PageSize: 10}, 0},
		{"negative page", SearchQuery{Page: -2, PageSize: 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.Offset())
		})
	}
}

func TestSearchPage_TotalPages(t *testing.T) {
	assert.Equal(t, 0, SearchPage{Total: 0, PageSize: 10}.TotalPages())
	assert.Equal(t, 1, SearchPage{Total: 10, PageSize: 10}.TotalPages())
	assert.Equal(t, 2, SearchPage{Total: 11, PageSize: 10}.TotalPages())
	assert.Equal(t, 0, SearchPage{Total: 5, PageSize: 0}.TotalPages())
}

func TestTextSource_Values(t *testing.T) {
	assert.Equal(t, "PDF Text", string(SourcePDFText))
	assert.Equal(t, "OCR Text", string(SourceOCRText))
}
