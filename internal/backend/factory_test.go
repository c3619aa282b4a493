package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{
		DataBackend:       "sqlite",
		SQLiteDBPath:      "/tmp/x.db",
		SeedDir:           "seed",
		AMQPURL:           "amqp://localhost/",
		AMQPExchange:      "expenses",
		AMQPQueue:         "expense_exports",
		SnapshotCacheSize: 4,
		SnapshotCacheTTL:  time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "seed", cfg.DataDirectory)
	assert.Empty(t, cfg.AMQPQueue)
	assert.Equal(t, 4, cfg.CacheSize)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)
	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown type", Config{Type: "mongo"}, true},
		{"amqp without exchange", Config{Type: MemoryBackend, AMQPURL: "amqp://x/"}, true},
		{"cache without ttl", Config{Type: MemoryBackend, CacheSize: 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	assert.Equal(t, []string{"sqlite", "memory"}, GetBackendTypeStrings())
}

func TestCreateMemoryBackendServesSeed(t *testing.T) {
	dir := t.TempDir()
	seed := "demo;Coffee;1/6/2025;3.5;Food\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed_expenses.txt"), []byte(seed), 0o644))

	res, err := NewFactory(log.Discard()).CreateBackend(context.Background(), Config{
		Type:          MemoryBackend,
		DataDirectory: dir,
		CacheSize:     8,
		CacheTTL:      time.Minute,
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, res.Cleanup()) }()

	assert.Nil(t, res.AMQP)
	recs, err := res.Gateway.LoadOnce(context.Background(), "demo")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Coffee", recs[0].Name)

	owners, err := res.Store.Owners(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"demo"}, owners)
}

func TestCreateSQLiteBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(log.Discard()).CreateBackend(ctx, Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "db", "expenses.db"),
	})
	require.NoError(t, err)
	defer res.Cleanup()

	id, err := res.Gateway.Create(ctx, "u1", core.NewExpense{Name: "Bus", Date: "2/6/2025", Amount: 2, Category: "Transport"})
	require.NoError(t, err)

	recs, err := res.Gateway.LoadOnce(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, id, recs[0].ID)
}
