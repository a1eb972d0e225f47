package meadow

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

type LoadStatus int

const (
	LoadPending LoadStatus = iota
	LoadReady
	LoadFailed
)

func (s LoadStatus) String() string {
	switch s {
	case LoadPending:
		return "pending"
	case LoadReady:
		return "ready"
	case LoadFailed:
		return "failed"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int(s))
	}
}

type loadResult struct {
	id    AssetId
	value any
	err   error
}

// AssetLoader decodes assets on a bounded worker pool. Decoded values are
// handed back through a channel and only become visible to the scene when
// drained, so the GPU upload stays on the main thread.
type AssetLoader struct {
	pool    worker.DynamicWorkerPool
	results chan loadResult

	mu      sync.Mutex
	taskID  int
	pending map[AssetId]struct{}
	failed  map[AssetId]error
}

// NewAssetLoader starts a pool with at most workers goroutines; idle workers
// are reclaimed after a second.
func NewAssetLoader(workers int) *AssetLoader {
	if workers < 1 {
		workers = 1
	}
	return &AssetLoader{
		pool:    worker.NewDynamicWorkerPool(workers, 64, 1*time.Second),
		results: make(chan loadResult, 64),
		pending: make(map[AssetId]struct{}),
		failed:  make(map[AssetId]error),
	}
}

func (l *AssetLoader) submit(id AssetId, decode func() (any, error)) {
	l.mu.Lock()
	l.pending[id] = struct{}{}
	taskID := l.taskID
	l.taskID++
	l.mu.Unlock()

	l.pool.SubmitTask(worker.Task{
		ID: taskID,
		Do: func() (any, error) {
			value, err := decode()
			l.results <- loadResult{id: id, value: value, err: err}
			return value, err
		},
	})
}

// drain collects every result that has arrived so far without blocking.
func (l *AssetLoader) drain() []loadResult {
	var out []loadResult
	for {
		select {
		case res := <-l.results:
			l.mu.Lock()
			delete(l.pending, res.id)
			if res.err != nil {
				l.failed[res.id] = res.err
			}
			l.mu.Unlock()
			out = append(out, res)
		default:
			return out
		}
	}
}

func (l *AssetLoader) status(id AssetId) (LoadStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, ok := l.failed[id]; ok {
		return LoadFailed, err
	}
	if _, ok := l.pending[id]; ok {
		return LoadPending, nil
	}
	return LoadReady, nil
}
