package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSize(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{100 << 20, "100.00 MB"},
		{1105197056, "1.03 GB"},
		{1 << 40, "1.00 TB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Size(tt.bytes), "Size(%d)", tt.bytes)
	}
}
