package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/rechain/shardchain/internal/store"
	"github.com/rechain/shardchain/pkg/config"
)

// TestEnvironment manages the test environment for integration tests:
// a temporary data directory, a default config rooted there, and a
// ready-to-use badger-backed KV store.
type TestEnvironment struct {
	T       *testing.T
	TempDir string
	Config  *config.Config
	Store   store.KV
}

// NewTestEnvironment creates a new test environment.
func NewTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "shardchain-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Node.DataDir = tempDir

	kv, err := store.NewBadgerStore(tempDir)
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("failed to create badger store: %v", err)
	}

	return &TestEnvironment{
		T:       t,
		TempDir: tempDir,
		Config:  cfg,
		Store:   kv,
	}
}

// Close cleans up the test environment.
func (env *TestEnvironment) Close() {
	env.T.Helper()

	if env.Store != nil {
		if err := env.Store.Close(); err != nil {
			env.T.Logf("error closing store: %v", err)
		}
	}

	if env.TempDir != "" {
		if err := os.RemoveAll(env.TempDir); err != nil {
			env.T.Logf("error removing temp dir: %v", err)
		}
	}
}

// MustSet sets a key-value pair in the store, failing the test on error.
func (env *TestEnvironment) MustSet(ctx context.Context, key, value []byte) {
	env.T.Helper()

	if err := env.Store.Set(ctx, key, value); err != nil {
		env.T.Fatalf("failed to set key %q: %v", key, err)
	}
}

// MustGet gets a value from the store, failing the test on error.
func (env *TestEnvironment) MustGet(ctx context.Context, key []byte) []byte {
	env.T.Helper()

	value, err := env.Store.Get(ctx, key)
	if err != nil {
		env.T.Fatalf("failed to get key %q: %v", key, err)
	}

	return value
}

// MustNotExist verifies that a key does not exist in the store.
func (env *TestEnvironment) MustNotExist(ctx context.Context, key []byte) {
	env.T.Helper()

	value := env.MustGet(ctx, key)
	if value != nil {
		env.T.Fatalf("key %q exists but should not", key)
	}
}

// NewShardStore builds a ShardStore over the environment's KV store.
func (env *TestEnvironment) NewShardStore() *store.ShardStore {
	env.T.Helper()
	return store.NewShardStore(env.Store)
}

// NewBlockStore builds a BlockStore over the environment's KV store.
func (env *TestEnvironment) NewBlockStore() *store.BlockStore {
	env.T.Helper()
	return store.NewBlockStore(env.Store)
}
