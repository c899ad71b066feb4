package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandlerReady(t *testing.T) {
	up := PingFunc(func(ctx context.Context) error { return nil })
	handler := NewHealthHandler(map[string]Pinger{"postgres": up, "redis": nil}, nil)

	c, w := newTestContext(http.MethodGet, "/ready", nil, nil)
	handler.Ready(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{"postgres":"up"}}`, w.Body.String())
}

func TestHealthHandlerNotReady(t *testing.T) {
	up := PingFunc(func(ctx context.Context) error { return nil })
	down := PingFunc(func(ctx context.Context) error { return errors.New("connection refused") })
	handler := NewHealthHandler(map[string]Pinger{"postgres": up, "redis": down}, nil)

	c, w := newTestContext(http.MethodGet, "/ready", nil, nil)
	handler.Ready(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"not_ready","checks":{"postgres":"up","redis":"down"}}`, w.Body.String())
}

func TestHealthHandlerHealth(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/health", nil, nil)
	NewHealthHandler(nil, nil).Health(c)
	assert.Equal(t, http.StatusOK, w.Code)
}
