package expire

import (
	"sync"
	"testing"
	"time"

	"github.com/CredaCash/CredaCash-sub002/blockgraph"
	"github.com/CredaCash/CredaCash-sub002/chainparams"
	"github.com/CredaCash/CredaCash-sub002/objstore"
)

type fakeSource struct {
	mu      sync.Mutex
	pending []Candidate
	deleted []int64
}

func (f *fakeSource) NextExpiring() Candidate {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return Candidate{Seqnum: NoCandidate}
	}
	c := f.pending[0]
	f.pending = f.pending[1:]
	return c
}

func (f *fakeSource) Delete(seqnum int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, seqnum)
	return nil
}

func TestWorkerExpiresAgedObjectImmediately(t *testing.T) {
	src := &fakeSource{pending: []Candidate{{Seqnum: 1, FirstSeen: time.Now().Add(-time.Hour)}}}
	w := NewWorker("test", src, time.Second, nil)

	done := make(chan struct{})
	go func() { w.Run(); close(done) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		src.mu.Lock()
		n := len(src.deleted)
		src.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	w.Stop()
	<-done

	if len(src.deleted) != 1 || src.deleted[0] != 1 {
		t.Fatalf("expected seqnum 1 to be deleted, got %v", src.deleted)
	}
}

func TestWorkerHoldsUnexpiredObjectUntilStop(t *testing.T) {
	src := &fakeSource{pending: []Candidate{{Seqnum: 1, FirstSeen: time.Now()}}}
	w := NewWorker("test", src, time.Hour, nil)

	done := make(chan struct{})
	go func() { w.Run(); close(done) }()

	time.Sleep(50 * time.Millisecond)
	w.Stop()
	<-done

	if len(src.deleted) != 0 {
		t.Fatalf("expected no deletions for an unexpired object, got %v", src.deleted)
	}
}

func TestWorkerBreaksPriorLinkOnceBelowPruneHorizon(t *testing.T) {
	params := chainparams.BlockchainParams{NWitnesses: 3, NextNWitnesses: 3}
	params.SetConfSigs()

	priorBuf := objstore.NewBuffer(objstore.OID{1}, []byte("prior"))
	prior := blockgraph.NewBlock(priorBuf, 0, 0, 0, params)

	childBuf := objstore.NewBuffer(objstore.OID{2}, []byte("child"))
	child := blockgraph.NewBlock(childBuf, 5, 0, 0, params)
	child.SetPriorBlock(prior)

	pruneLevel := uint64(100) // above the block's level; should trigger the break immediately
	src := &fakeSource{pending: []Candidate{{Seqnum: 1, Block: child}}}
	w := NewWorker("test", src, time.Hour, func() uint64 { return pruneLevel })

	done := make(chan struct{})
	go func() { w.Run(); close(done) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if child.PriorBlock() == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	w.Stop()
	<-done

	if child.PriorBlock() != nil {
		t.Fatal("expected the prior link to be broken once the block fell below the prune horizon")
	}
	if len(src.deleted) != 1 {
		t.Fatalf("expected the block candidate to be deleted after its link was broken, got %v", src.deleted)
	}
}

func TestSetAgeAppliesToInFlightWait(t *testing.T) {
	src := &fakeSource{pending: []Candidate{{Seqnum: 1, FirstSeen: time.Now()}}}
	w := NewWorker("test", src, time.Hour, nil)

	done := make(chan struct{})
	go func() { w.Run(); close(done) }()

	time.Sleep(20 * time.Millisecond)
	w.SetAge(0) // object is now immediately expirable

	deadline := time.Now().Add(12 * time.Second)
	for time.Now().Before(deadline) {
		src.mu.Lock()
		n := len(src.deleted)
		src.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	w.Stop()
	<-done

	if len(src.deleted) != 1 {
		t.Fatalf("expected the age change to be picked up on the next re-sample, got %v", src.deleted)
	}
}
