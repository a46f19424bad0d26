package jsruntime

import (
	"runtime/metrics"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
)

const (
	heapMetric           = "/memory/classes/heap/objects:bytes"
	memorySampleInterval = 20 * time.Millisecond
)

// The heap metric is process wide, so growth can only be attributed to a
// runtime while no other runtime is live. runtimeStarts lets a watcher see
// that another runtime came and went between two samples.
var (
	liveRuntimes  atomic.Int64
	runtimeStarts atomic.Uint64
)

// enterRuntime registers a live runtime; the returned func releases it
func enterRuntime() (leave func()) {
	runtimeStarts.Add(1)
	liveRuntimes.Add(1)
	var once sync.Once
	return func() { once.Do(func() { liveRuntimes.Add(-1) }) }
}

func heapObjectBytes() uint64 {
	sample := []metrics.Sample{{Name: heapMetric}}
	metrics.Read(sample)
	if sample[0].Value.Kind() != metrics.KindUint64 {
		return 0
	}
	return sample[0].Value.Uint64()
}

// memoryWatch samples heap growth for one runtime
type memoryWatch struct {
	limit  uint64
	base   uint64
	starts uint64
}

func newMemoryWatch(limit uint64) *memoryWatch {
	return &memoryWatch{limit: limit, base: heapObjectBytes(), starts: runtimeStarts.Load()}
}

// exceeded reports whether growth since the baseline is over the limit.
// While other runtimes are live, or one started since the last sample, the
// baseline moves with the heap and nothing is enforced.
func (w *memoryWatch) exceeded(heap uint64, live int64, starts uint64) bool {
	if live != 1 || starts != w.starts {
		w.base = heap
		w.starts = starts
		return false
	}
	if heap < w.base {
		w.base = heap
		return false
	}
	return heap-w.base > w.limit
}

// watchMemory interrupts vm once heap growth attributable to it exceeds
// limit. The caller must have registered vm with enterRuntime.
func watchMemory(vm *goja.Runtime, limit uint64) (stop func()) {
	if limit == 0 {
		return func() {}
	}
	w := newMemoryWatch(limit)
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(memorySampleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if w.exceeded(heapObjectBytes(), liveRuntimes.Load(), runtimeStarts.Load()) {
					vm.Interrupt(errMemoryLimit)
					return
				}
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
