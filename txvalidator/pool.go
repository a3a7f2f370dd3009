package txvalidator

import (
	"container/heap"
	"runtime"
	"sync"

	"github.com/CredaCash/CredaCash-sub002/objstore"
)

// Priority classes for the work queue; higher value preempts lower at
// dequeue time (§5 "Ordering guarantees": "higher priority preempts
// lower at dequeue time; within a priority class, FIFO by enqueue
// time").
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// WorkItem is one queued validation request (§4.5: "Each item carries
// an owning buffer handle, a priority class, an optional completion
// callback id, and an is_block_tx flag").
type WorkItem struct {
	Buffer      *objstore.Buffer
	Tx          *Tx
	Priority    Priority
	IsBlockTx   bool
	CallbackID  uint32
	seq         uint64 // enqueue order, for FIFO-within-priority
}

// workHeap implements container/heap.Interface, following the
// teacher's txPriorityQueue idiom (mining/mining.go): a plain slice
// plus a Less that encodes the ordering policy.
type workHeap struct {
	items []*WorkItem
}

func (h *workHeap) Len() int { return len(h.items) }
func (h *workHeap) Less(i, j int) bool {
	if h.items[i].Priority != h.items[j].Priority {
		return h.items[i].Priority > h.items[j].Priority
	}
	return h.items[i].seq < h.items[j].seq
}
func (h *workHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *workHeap) Push(x interface{}) {
	h.items = append(h.items, x.(*WorkItem))
}
func (h *workHeap) Pop() interface{} {
	n := len(h.items)
	item := h.items[n-1]
	h.items[n-1] = nil
	h.items = h.items[:n-1]
	return item
}

// Queue is the shared priority work queue the pool's workers drain.
// Workers park on a condition variable when empty and are woken on
// Enqueue or Stop (§5 "The validator pools use condition variables to
// park idle workers and wake on queue insert").
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	heap    workHeap
	nextSeq uint64
	stopped bool
}

// NewQueue returns an empty, ready Queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	heap.Init(&q.heap)
	return q
}

// Enqueue adds item to the queue and wakes one parked worker.
func (q *Queue) Enqueue(item *WorkItem) {
	q.mu.Lock()
	q.nextSeq++
	item.seq = q.nextSeq
	heap.Push(&q.heap, item)
	q.mu.Unlock()
	q.cond.Signal()
}

// Pop blocks until an item is available or the queue is stopped, in
// which case it returns (nil, false).
func (q *Queue) Pop() (*WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.heap.Len() == 0 && !q.stopped {
		q.cond.Wait()
	}
	if q.heap.Len() == 0 {
		return nil, false
	}
	return heap.Pop(&q.heap).(*WorkItem), true
}

// Len reports the number of queued items awaiting a worker.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

// Stop wakes every parked worker so Pop returns (nil, false); used
// during graceful node shutdown (§5 "Cancellation").
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Pool is a fixed-size worker pool draining a Queue (§4.5: "A
// fixed-size thread pool (default ~= CPU count, clamped to [1,
// 2000])").
type Pool struct {
	queue   *Queue
	newCtx  func() *Context
	onDone  func(item *WorkItem, result Result)
	wg      sync.WaitGroup
}

// MinWorkers and MaxWorkers bound the default pool size clamp (§4.5).
const (
	MinWorkers = 1
	MaxWorkers = 2000
)

// DefaultWorkerCount returns runtime.NumCPU(), clamped to
// [MinWorkers, MaxWorkers].
func DefaultWorkerCount() int {
	n := runtime.NumCPU()
	if n < MinWorkers {
		return MinWorkers
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}

// NewPool starts workers workers draining queue. newCtx builds a
// fresh validation Context per item (so per-call fields like
// PublicInputs and BlockTime vary); onDone is invoked with each item's
// result once Validate returns.
func NewPool(workers int, queue *Queue, newCtx func() *Context, onDone func(item *WorkItem, result Result)) *Pool {
	if workers < MinWorkers {
		workers = MinWorkers
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}

	p := &Pool{queue: queue, newCtx: newCtx, onDone: onDone}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		item, ok := p.queue.Pop()
		if !ok {
			return
		}
		ctx := p.newCtx()
		result := Validate(item.Tx, ctx)
		if p.onDone != nil {
			p.onDone(item, result)
		}
	}
}

// Wait blocks until every worker has exited, which only happens after
// Queue.Stop is called.
func (p *Pool) Wait() {
	p.wg.Wait()
}
