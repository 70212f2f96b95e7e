package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", FormatBytes(0))
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KiB", FormatBytes(1024))
	assert.Equal(t, "1.5 KiB", FormatBytes(1536))
	assert.Equal(t, "1.0 MiB", FormatBytes(1024*1024))
}

func TestGenerateNodeNameHasNoSpacesOrDots(t *testing.T) {
	name := GenerateNodeName()
	assert.NotContains(t, name, " ")
	assert.NotContains(t, name, ".")
	assert.NotEmpty(t, name)
}
