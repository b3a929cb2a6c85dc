package app

import (
	"context"
	"testing"

	"github.com/ArowuTest/insurance-policy-backend/internal/config"
	"github.com/ArowuTest/insurance-policy-backend/internal/locks"
	"github.com/ArowuTest/insurance-policy-backend/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemoryStorage(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Driver: "memory"}}
	storage, err := OpenStorage(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	assert.NotNil(t, storage.Repos.Tx)
	assert.NotNil(t, storage.Repos.Accounts)
	assert.NotNil(t, storage.Repos.AuditLogs)
	assert.NoError(t, storage.Close(context.Background()))
}

func TestOpenStorageRejectsUnknownDriver(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Driver: "sqlite"}}
	_, err := OpenStorage(context.Background(), cfg, logger.Nop())
	assert.Error(t, err)
}

func TestNewLocalLocker(t *testing.T) {
	cfg := &config.Config{Locks: config.LocksConfig{Driver: "local"}}
	locker, closeFn, err := NewLocker(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &locks.LocalLocker{}, locker)
	assert.NoError(t, closeFn())
}
