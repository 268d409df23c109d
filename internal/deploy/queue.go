package deploy

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"publishd/internal/fileutil"
	"publishd/internal/models"
	"publishd/internal/providers"
	"publishd/internal/structures"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
)

const (
	pendingSuffix = ".pending"
	queueFileMode = 0644
)

type DeployQueueInterface interface {
	Enqueue(change models.DeployChange) error
	IsEmpty() (bool, error)
	HasPending() (bool, error)
	Len() (int, error)
	ReadQueuedAndPendingFiles() (string, error)
	ClearQueueFile() error
	WritePendingFile(content string) error
	DeletePendingFile() error
	Drain() (string, error)
	ParseQueueContent(content string) []models.DeployChange
}

// DeployQueue is a file backed FIFO of DeployChange records, one JSON object
// per line. A drained batch is checkpointed to the pending file until the
// deploy that publishes it succeeds.
type DeployQueue struct {
	queueFile   string
	pendingFile string
	logger      providers.Logger

	mu sync.Mutex
}

func NewDeployQueue(conf *structures.Config, logger providers.Logger) DeployQueueInterface {
	return &DeployQueue{
		queueFile:   conf.Deploy.QueueFile,
		pendingFile: conf.Deploy.QueueFile + pendingSuffix,
		logger:      logger,
	}
}

// Enqueue appends one change with a single write so concurrent writers never
// interleave partial lines.
func (q *DeployQueue) Enqueue(change models.DeployChange) error {
	line, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encoding deploy change: %w", err)
	}
	line = append(line, '\n')

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(q.queueFile), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(q.queueFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, queueFileMode)
	if err != nil {
		return fmt.Errorf("opening queue file: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("appending to queue file: %w", err)
	}
	return f.Close()
}

func (q *DeployQueue) IsEmpty() (bool, error) {
	info, err := os.Stat(q.queueFile)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return info.Size() == 0, nil
}

func (q *DeployQueue) HasPending() (bool, error) {
	_, err := os.Stat(q.pendingFile)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Len counts the changes waiting in the live queue file.
func (q *DeployQueue) Len() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	data, err := readIfExists(q.queueFile)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	return n, nil
}

// ReadQueuedAndPendingFiles returns the pending batch of an unconfirmed
// deploy followed by the live queue.
func (q *DeployQueue) ReadQueuedAndPendingFiles() (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.readCombined()
}

func (q *DeployQueue) readCombined() (string, error) {
	pending, err := readIfExists(q.pendingFile)
	if err != nil {
		return "", fmt.Errorf("reading pending file: %w", err)
	}
	queued, err := readIfExists(q.queueFile)
	if err != nil {
		return "", fmt.Errorf("reading queue file: %w", err)
	}

	var b strings.Builder
	for _, part := range [][]byte{pending, queued} {
		if len(part) == 0 {
			continue
		}
		b.Write(part)
		if part[len(part)-1] != '\n' {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

func (q *DeployQueue) ClearQueueFile() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.clearQueue()
}

func (q *DeployQueue) clearQueue() error {
	err := os.Truncate(q.queueFile, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (q *DeployQueue) WritePendingFile(content string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return fileutil.WriteFileAtomic(q.pendingFile, []byte(content), queueFileMode)
}

func (q *DeployQueue) DeletePendingFile() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	err := os.Remove(q.pendingFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Drain moves everything queued into the pending file and truncates the live
// queue, holding the lock so no enqueue lands between the read and the
// truncate. The checkpoint is written first: a crash in between duplicates
// changes instead of losing them.
func (q *DeployQueue) Drain() (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	content, err := q.readCombined()
	if err != nil {
		return "", err
	}
	if content == "" {
		return "", nil
	}
	if err := fileutil.WriteFileAtomic(q.pendingFile, []byte(content), queueFileMode); err != nil {
		return "", fmt.Errorf("writing pending file: %w", err)
	}
	if err := q.clearQueue(); err != nil {
		return "", fmt.Errorf("truncating queue file: %w", err)
	}
	return content, nil
}

// ParseQueueContent decodes queue lines. Lines that do not decode are logged
// and dropped so one bad record cannot block every later deploy.
func (q *DeployQueue) ParseQueueContent(content string) []models.DeployChange {
	var changes []models.DeployChange
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var change models.DeployChange
		if err := json.Unmarshal(line, &change); err != nil {
			q.logger.Warnf(providers.TypeDeploy, "Skipping malformed queue line %d: %s", lineNo, err)
			continue
		}
		changes = append(changes, change)
	}
	if err := scanner.Err(); err != nil {
		q.logger.Warnf(providers.TypeDeploy, "Reading queue content: %s", err)
	}
	return changes
}

func readIfExists(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}
