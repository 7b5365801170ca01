package main

import (
	"testing"

	"tastyfruit-backend/internal/auth"
	"tastyfruit-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRevokerWithoutRedis(t *testing.T) {
	cfg := &config.Config{}
	assert.Contains(t, cfg.Warnings(), "REDIS_ADDR is empty, logout will not revoke tokens")

	revoker, closeFn, err := newRevoker(cfg)
	require.NoError(t, err)
	assert.IsType(t, auth.NoopRevoker{}, revoker)
	closeFn()
}
