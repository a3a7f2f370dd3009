package validobjs

import (
	"testing"

	"github.com/CredaCash/CredaCash-sub002/objstore"
)

func TestInsertAndGet(t *testing.T) {
	s, err := NewStore(10)
	if err != nil {
		t.Fatal(err)
	}
	oid := objstore.OID{1}
	buf := objstore.NewBuffer(oid, []byte("x"))

	seq := s.Insert(ClassBlock, oid, buf)
	if seq != 1 {
		t.Fatalf("expected first insert to get seq 1, got %d", seq)
	}

	got, ok := s.Get(oid)
	if !ok || got != buf {
		t.Fatal("expected to retrieve the inserted buffer")
	}
}

func TestSinceSeqReturnsOnlyNewer(t *testing.T) {
	s, err := NewStore(10)
	if err != nil {
		t.Fatal(err)
	}
	oid1, oid2, oid3 := objstore.OID{1}, objstore.OID{2}, objstore.OID{3}
	s.Insert(ClassTx, oid1, objstore.NewBuffer(oid1, []byte("a")))
	seq2 := s.Insert(ClassTx, oid2, objstore.NewBuffer(oid2, []byte("b")))
	s.Insert(ClassTx, oid3, objstore.NewBuffer(oid3, []byte("c")))

	oids, cursor := s.SinceSeq(ClassTx, seq2-1)
	if len(oids) != 2 {
		t.Fatalf("expected 2 oids newer than seq %d, got %d", seq2-1, len(oids))
	}
	if cursor != 3 {
		t.Fatalf("expected cursor 3, got %d", cursor)
	}
}

func TestClassesAreIndependent(t *testing.T) {
	s, err := NewStore(10)
	if err != nil {
		t.Fatal(err)
	}
	oidBlock, oidTx := objstore.OID{1}, objstore.OID{2}
	s.Insert(ClassBlock, oidBlock, objstore.NewBuffer(oidBlock, []byte("a")))
	seqTx := s.Insert(ClassTx, oidTx, objstore.NewBuffer(oidTx, []byte("b")))

	blockOids, _ := s.SinceSeq(ClassBlock, 0)
	if len(blockOids) != 1 || blockOids[0] != oidBlock {
		t.Fatalf("expected only the block-class OID, got %v", blockOids)
	}
	if seqTx != 1 {
		t.Fatalf("expected independent per-class sequence counters, tx seq = %d", seqTx)
	}
}

func TestPeerRelayBackPressure(t *testing.T) {
	p := NewPeerRelay(2)

	if !p.SetStatus(objstore.OID{1}, RelayRequested) {
		t.Fatal("expected first SetStatus to succeed")
	}
	if !p.SetStatus(objstore.OID{2}, RelayRequested) {
		t.Fatal("expected second SetStatus to succeed")
	}
	if p.SetStatus(objstore.OID{3}, RelayRequested) {
		t.Fatal("expected a third new OID to be rejected once maxSize is reached")
	}
	if !p.SetStatus(objstore.OID{1}, RelaySent) {
		t.Fatal("expected updating an already-tracked OID to always succeed")
	}
}

func TestPeerRelayOutstandingCount(t *testing.T) {
	p := NewPeerRelay(10)
	p.SetStatus(objstore.OID{1}, RelayRequested)
	p.SetStatus(objstore.OID{2}, RelayRequested)
	p.SetStatus(objstore.OID{3}, RelaySent)

	if got := p.Outstanding(); got != 2 {
		t.Fatalf("expected 2 outstanding requests, got %d", got)
	}

	p.Forget(objstore.OID{1})
	if got := p.Outstanding(); got != 1 {
		t.Fatalf("expected 1 outstanding request after Forget, got %d", got)
	}
}
