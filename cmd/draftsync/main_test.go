package main

import (
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumebuilder/internal/config"
)

func TestDefaultAPIURL_PointsAtServer(t *testing.T) {
	u, err := url.Parse(defaultAPIURL)
	require.NoError(t, err)
	assert.Equal(t, "localhost", u.Hostname())
	assert.Equal(t, strconv.Itoa(config.DefaultAPIPort), u.Port())
	assert.Empty(t, u.Path, "API routes are mounted at the root")
}

func TestEnvOr(t *testing.T) {
	t.Setenv("DRAFTSYNC_API_URL", "")
	assert.Equal(t, defaultAPIURL, envOr("DRAFTSYNC_API_URL", defaultAPIURL))

	t.Setenv("DRAFTSYNC_API_URL", "http://api.internal:9000")
	assert.Equal(t, "http://api.internal:9000", envOr("DRAFTSYNC_API_URL", defaultAPIURL))
}
