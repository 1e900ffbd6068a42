package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePath(t *testing.T) {
	assert.Equal(t, "./highlights-tasks.db", QueuePath("./highlights.db"))
	assert.Equal(t, "/var/lib/kh/store-tasks.sqlite", QueuePath("/var/lib/kh/store.sqlite"))
	assert.Equal(t, "data-tasks", QueuePath("data"))
}

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "highlights.db")

	client, err := NewClient(dbPath, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, client)

	_, err = os.Stat(filepath.Join(tmpDir, "highlights-tasks.db"))
	assert.NoError(t, err, "tasks database should be created")

	assert.NoError(t, client.Close())
}

func TestClientStartStop(t *testing.T) {
	client, err := NewClient(filepath.Join(t.TempDir(), "highlights.db"), DefaultConfig())
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	assert.True(t, client.Stop(stopCtx), "stop should succeed gracefully")
}

func TestClientStopBeforeStart(t *testing.T) {
	client, err := NewClient(filepath.Join(t.TempDir(), "highlights.db"), DefaultConfig())
	require.NoError(t, err)
	defer client.Close()

	assert.True(t, client.Stop(context.Background()))
}

// echoTask is a simple task for testing
type echoTask struct {
	Value string `json:"value"`
}

func (t echoTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "echo",
		MaxAttempts: 1,
		Backoff:     time.Second,
		Timeout:     5 * time.Second,
	}
}

func TestEnqueue(t *testing.T) {
	client, err := NewClient(filepath.Join(t.TempDir(), "highlights.db"), DefaultConfig())
	require.NoError(t, err)
	defer client.Close()

	executed := make(chan string, 1)
	client.Register(backlite.NewQueue(func(ctx context.Context, task echoTask) error {
		executed <- task.Value
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	id, err := client.Enqueue(echoTask{Value: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case val := <-executed:
		assert.Equal(t, "hello", val)
	case <-time.After(5 * time.Second):
		t.Fatal("task was not executed within timeout")
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "pending", statusString(backlite.TaskStatusPending))
	assert.Equal(t, "success", statusString(backlite.TaskStatusSuccess))
	assert.Equal(t, "not_found", statusString(backlite.TaskStatusNotFound))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 30*time.Minute, cfg.TaskTimeout)
	assert.Equal(t, time.Hour, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{Workers: 3}.withDefaults()

	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 30*time.Minute, cfg.TaskTimeout)
	assert.Equal(t, time.Hour, cfg.ReleaseAfter)
}
