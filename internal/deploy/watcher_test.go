package deploy

import (
	"os"
	"path/filepath"
	"publishd/internal/structures"
	"publishd/internal/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueWatcher_TriggersOnQueueWrite(t *testing.T) {
	queueFile := filepath.Join(t.TempDir(), "queue", ".queue")
	triggered := make(chan struct{}, 16)
	w := newQueueWatcher(queueFile, func() { triggered <- struct{}{} }, &testutil.MockLogger{})
	require.NoError(t, w.Start())
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(queueFile), "unrelated"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(queueFile, []byte("{}\n"), 0644))

	select {
	case <-triggered:
	case <-time.After(5 * time.Second):
		t.Fatal("queue write did not trigger a deploy")
	}
}

func TestQueueWatcher_CloseStopsLoop(t *testing.T) {
	w := newQueueWatcher(filepath.Join(t.TempDir(), ".queue"), func() {}, &testutil.MockLogger{})
	require.NoError(t, w.Start())
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

func TestNewQueueWatcher_DisabledIsNoop(t *testing.T) {
	conf := &structures.Config{Deploy: structures.DeployConfig{QueueFile: "/tmp/.queue"}}
	w := NewQueueWatcher(conf, nil, &testutil.MockLogger{})
	assert.IsType(t, &noopWatcher{}, w)
	assert.NoError(t, w.Start())
	assert.NoError(t, w.Close())
}
