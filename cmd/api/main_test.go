package main

import (
	"context"
	"strconv"
	"testing"

	"banking-ledger/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableRedis(t *testing.T) config.RedisConfig {
	t.Helper()
	s := miniredis.RunT(t)
	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)
	cfg := config.RedisConfig{Host: s.Host(), Port: port}
	s.Close()
	return cfg
}

func TestOpenRedis_MemoryStoreRunsWithout(t *testing.T) {
	rds, err := openRedis(context.Background(), unreachableRedis(t), config.StoreMemory, zerolog.Nop())
	require.NoError(t, err)
	defer rds.close()

	assert.Nil(t, rds.idempotency)
	assert.Nil(t, rds.rateLimit)
	assert.Nil(t, rds.health)
}

func TestOpenRedis_PostgresStoreRequiresRedis(t *testing.T) {
	_, err := openRedis(context.Background(), unreachableRedis(t), config.StorePostgres, zerolog.Nop())
	assert.Error(t, err)
}

func TestOpenRedis_Connected(t *testing.T) {
	s := miniredis.RunT(t)
	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)

	rds, err := openRedis(context.Background(), config.RedisConfig{Host: s.Host(), Port: port}, config.StoreMemory, zerolog.Nop())
	require.NoError(t, err)
	defer rds.close()

	assert.NotNil(t, rds.idempotency)
	assert.NotNil(t, rds.rateLimit)
	require.NotNil(t, rds.health)
	assert.NoError(t, rds.health.Ping(context.Background()))
}
