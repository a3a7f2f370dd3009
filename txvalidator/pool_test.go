package txvalidator

import (
	"sync"
	"testing"
	"time"
)

func TestQueuePriorityOrdering(t *testing.T) {
	q := NewQueue()
	low := &WorkItem{Tx: &Tx{}, Priority: PriorityLow}
	high := &WorkItem{Tx: &Tx{}, Priority: PriorityHigh}
	normal := &WorkItem{Tx: &Tx{}, Priority: PriorityNormal}

	q.Enqueue(low)
	q.Enqueue(high)
	q.Enqueue(normal)

	first, _ := q.Pop()
	if first != high {
		t.Fatal("expected high priority item to dequeue first")
	}
	second, _ := q.Pop()
	if second != normal {
		t.Fatal("expected normal priority item to dequeue second")
	}
	third, _ := q.Pop()
	if third != low {
		t.Fatal("expected low priority item to dequeue last")
	}
}

func TestQueueFIFOWithinPriority(t *testing.T) {
	q := NewQueue()
	a := &WorkItem{Tx: &Tx{}, Priority: PriorityNormal}
	b := &WorkItem{Tx: &Tx{}, Priority: PriorityNormal}

	q.Enqueue(a)
	q.Enqueue(b)

	first, _ := q.Pop()
	if first != a {
		t.Fatal("expected FIFO ordering within the same priority class")
	}
}

func TestQueueStopUnblocksWaiters(t *testing.T) {
	q := NewQueue()
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Stop()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected Pop to return ok=false after Stop")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not unblock after Stop")
	}
}

func TestPoolProcessesAllQueuedItems(t *testing.T) {
	q := NewQueue()
	var mu sync.Mutex
	results := make(map[*WorkItem]Result)

	pool := NewPool(4, q, basicContext, func(item *WorkItem, result Result) {
		mu.Lock()
		results[item] = result
		mu.Unlock()
	})

	items := make([]*WorkItem, 20)
	for i := range items {
		items[i] = &WorkItem{Tx: basicTx(), Priority: PriorityNormal}
		q.Enqueue(items[i])
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(results)
		mu.Unlock()
		if n == len(items) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for all items to process, got %d/%d", n, len(items))
		}
		time.Sleep(time.Millisecond)
	}

	q.Stop()
	pool.Wait()

	for _, item := range items {
		if results[item] != ResultOk {
			t.Fatalf("expected ResultOk, got %v", results[item])
		}
	}
}
