package redblack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	assert.Equal(t, BinaryVersion, 1)
	assert.NotEmpty(t, BinaryGitHash)
}
