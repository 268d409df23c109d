package deploy

import (
	"os"
	"path/filepath"
	"publishd/internal/providers"
	"publishd/internal/structures"

	"github.com/fsnotify/fsnotify"
)

type WatcherInterface interface {
	Start() error
	Close() error
}

// QueueWatcher triggers a deploy whenever the queue file is written. It
// watches the parent directory so the file may be created after startup.
type QueueWatcher struct {
	queueFile string
	trigger   func()
	logger    providers.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
}

func NewQueueWatcher(conf *structures.Config, orchestrator OrchestratorInterface, logger providers.Logger) WatcherInterface {
	if !conf.Deploy.WatchQueue {
		return &noopWatcher{}
	}
	return newQueueWatcher(conf.Deploy.QueueFile, orchestrator.Trigger, logger)
}

func newQueueWatcher(queueFile string, trigger func(), logger providers.Logger) *QueueWatcher {
	return &QueueWatcher{
		queueFile: filepath.Clean(queueFile),
		trigger:   trigger,
		logger:    logger,
	}
}

func (w *QueueWatcher) Start() error {
	dir := filepath.Dir(w.queueFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher
	w.done = make(chan struct{})
	go w.loop()
	w.logger.Infof(providers.TypeDeploy, "Watching %s for queued changes", w.queueFile)
	return nil
}

func (w *QueueWatcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.queueFile {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.trigger()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnf(providers.TypeDeploy, "Queue watcher error: %s", err)
		}
	}
}

func (w *QueueWatcher) Close() error {
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	<-w.done
	w.watcher = nil
	return err
}

type noopWatcher struct{}

func (n *noopWatcher) Start() error { return nil }
func (n *noopWatcher) Close() error { return nil }
