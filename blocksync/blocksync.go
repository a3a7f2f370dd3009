// Package blocksync drives initial block download: a work list of
// (level, nlevels) ranges handed out to outgoing connections, refilled
// from the last-indelible horizon as it is consumed, with requeueing
// on a failed or disconnected request (§4.9 "Catch-up sync").
//
// Grounded on BlockSyncList
// (_examples/original_source/source/ccnode/src/blocksync.hpp lines
// 58-76 and blocksync.cpp lines 577-651: a FastSpinLock-guarded deque
// of requeued ranges consumed before minting new ones off
// m_next_level, bounded by a max_span ahead of the last-indelible
// level) and on the teacher's IBD range request queue
// (protocol/flowcontext, mining/mining.go txPriorityQueue idiom for a
// mutex+slice work queue).
package blocksync

import (
	"sync"
)

// NLevelsPerRequest is the number of levels requested per batch
// (blocksync.cpp BLOCKSYNC_NLEVELS_PER_REQ).
const NLevelsPerRequest = 100

// LostSecs is how long without a processed block before a sync
// connection is considered stalled and dropped (blocksync.cpp
// BLOCKSYNC_LOST_SECS).
const LostSecs = 420

// Entry is one work item: request nlevels blocks starting at level.
type Entry struct {
	Level   uint64
	NLevels uint16
}

func (e Entry) empty() bool { return e.NLevels == 0 }

// List is the shared pool of outstanding sync work, one per node.
// Safe for concurrent use by every sync connection's goroutine.
type List struct {
	mu         sync.Mutex
	queue      []Entry
	nextLevel  uint64
	maxOutConn int
}

// NewList creates an empty List. Call Init once the node knows its
// own last-indelible level.
func NewList(maxOutConn int) *List {
	if maxOutConn < 1 {
		maxOutConn = 1
	}
	return &List{maxOutConn: maxOutConn}
}

// Init resets the list to start minting fresh ranges at level
// (BlockSyncList::Init).
func (l *List) Init(level uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queue = l.queue[:0]
	l.nextLevel = level
}

// GetNextEntry returns the next work item, or a zero Entry if the
// sync frontier has caught up to lastIndelibleLevel plus its
// look-ahead span (BlockSyncList::GetNextEntry). Requeued ranges are
// drained first and trimmed of any levels already made indelible by
// the time they're handed back out.
func (l *List) GetNextEntry(lastIndelibleLevel uint64) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		if len(l.queue) > 0 {
			entry := l.queue[0]
			l.queue = l.queue[1:]

			for entry.NLevels > 0 && entry.Level <= lastIndelibleLevel {
				entry.Level++
				entry.NLevels--
			}
			if !entry.empty() {
				return entry
			}
			continue
		}

		maxSpan := uint64(2 * NLevelsPerRequest * clamp(l.maxOutConn+1, 4, 10))
		maxLevel := lastIndelibleLevel + maxSpan

		if l.nextLevel <= lastIndelibleLevel {
			l.nextLevel = lastIndelibleLevel + 1
		}
		if l.nextLevel > maxLevel {
			return Entry{}
		}

		nlevels := uint16(NLevelsPerRequest - (l.nextLevel+NLevelsPerRequest-1)%NLevelsPerRequest)
		entry := Entry{Level: l.nextLevel, NLevels: nlevels}
		l.nextLevel += uint64(nlevels)
		return entry
	}
}

// RequeueEntry returns an unfulfilled or partially fulfilled range to
// the queue, dropping it silently if it starts at or beyond the next
// level not yet handed out (BlockSyncList::RequeueEntry).
func (l *List) RequeueEntry(entry Entry) {
	if entry.empty() {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Level >= l.nextLevel {
		return
	}

	l.queue = append(l.queue, entry)

	if end := entry.Level + uint64(entry.NLevels); end > l.nextLevel {
		l.nextLevel = end
	}
}

// HasRequeues reports whether the queue holds work returned by a
// failed connection, ahead of minting fresh ranges.
func (l *List) HasRequeues() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue) > 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Client coordinates a pool of outgoing sync connections sharing one
// List and decides when catch-up sync as a whole is done. Each
// connection goroutine calls SignalFinished once it has run out of
// work and has nothing left to requeue; Done reports true once a
// quorum of them agree and no requeued ranges remain outstanding
// (BlockSyncClient::SignalFinished / IsFinishing / DoSync's `done :=
// IsFinishing() && !m_sync_list.HasRequeues()`).
type Client struct {
	List *List

	maxOutConns int

	mu            sync.Mutex
	finishedPeers map[string]bool
}

// NewClient returns a Client driving list across at most maxOutConns
// concurrent outgoing connections.
func NewClient(list *List, maxOutConns int) *Client {
	if maxOutConns < 1 {
		maxOutConns = 1
	}
	return &Client{
		List:          list,
		maxOutConns:   maxOutConns,
		finishedPeers: make(map[string]bool),
	}
}

// SignalFinished records that peer currently has no more sync work
// and no requeues of its own (BlockSyncConnection::FinishConnection's
// `m_finished && !m_has_requeues` case). Idempotent per peer, matching
// the original's per-connection-lifetime counter semantics.
func (c *Client) SignalFinished(peer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finishedPeers[peer] = true
}

// Unfinished clears peer's finished mark, called when a connection
// previously reported finished is handed new requeued work and so is
// no longer idle (the original re-arms m_finished on its next read).
func (c *Client) Unfinished(peer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.finishedPeers, peer)
}

// quorum is the number of independently-finished peers required
// before IsFinishing reports true (BlockSyncClient::IsFinishing:
// min(max(3, (max_outconns+1)/2), 8)).
func (c *Client) quorum() int {
	return clamp((c.maxOutConns+1)/2, 3, 8)
}

// IsFinishing reports whether a quorum of connections have
// independently signaled they have no more work.
func (c *Client) IsFinishing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.finishedPeers) >= c.quorum()
}

// Done reports whether catch-up sync as a whole is complete: a
// quorum of peers finished and no requeued ranges left outstanding.
func (c *Client) Done() bool {
	return c.IsFinishing() && !c.List.HasRequeues()
}

// Reset clears finished-peer tracking, called at the start of a fresh
// sync pass (BlockSyncClient::DoSync zeroing m_nfinished before the
// connection loop begins).
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finishedPeers = make(map[string]bool)
}
