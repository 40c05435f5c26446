package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videobuds/backend/internal/config"
)

func TestInitDisabledWithoutEndpoint(t *testing.T) {
	tp, err := Init(&config.Config{Environment: "test"}, 1.0)
	require.NoError(t, err)
	assert.Nil(t, tp)
}
