package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/prospector/internal/apperr"
	"github.com/octobees/prospector/internal/config"
)

func TestNew_MemoryStore(t *testing.T) {
	cfg := &config.Config{}
	cfg.Store.Driver = "memory"

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, a.Prospects)
	a.Close()
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := &config.Config{}
	cfg.Store.Driver = "cassandra"

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)
}

func TestApp_CloseNil(t *testing.T) {
	var a *App
	assert.NotPanics(t, a.Close)
}
