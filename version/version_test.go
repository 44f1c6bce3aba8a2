package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRelease(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "development"
	assert.False(t, IsRelease())

	version = "1.2.3"
	assert.True(t, IsRelease())
	assert.Equal(t, "1.2.3", TrustchainVersion())
}
