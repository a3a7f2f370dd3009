package relay

import (
	"testing"
	"time"

	"github.com/CredaCash/CredaCash-sub002/objstore"
	"github.com/CredaCash/CredaCash-sub002/validobjs"
	"github.com/CredaCash/CredaCash-sub002/wireproto"
)

type fakeTransport struct {
	sent   []wireproto.Tag
	closed bool
}

func (f *fakeTransport) WriteMessage(tag wireproto.Tag, payload []byte) error {
	f.sent = append(f.sent, tag)
	return nil
}
func (f *fakeTransport) Close() error { f.closed = true; return nil }

type fakeObjects struct {
	blocks     []objstore.OID
	pruneLevel uint64
	objs       map[objstore.OID]*objstore.Buffer
}

func (f *fakeObjects) SinceSeq(class validobjs.Class, after uint64) ([]objstore.OID, uint64) {
	if class != validobjs.ClassBlock || after >= uint64(len(f.blocks)) {
		return nil, after
	}
	return f.blocks[after:], uint64(len(f.blocks))
}

func (f *fakeObjects) Get(oid objstore.OID) (*objstore.Buffer, bool) {
	b, ok := f.objs[oid]
	return b, ok
}

func (f *fakeObjects) PruneLevel() uint64 { return f.pruneLevel }

func TestAnnounceNewSendsHaveBlockAndAdvancesCursor(t *testing.T) {
	tr := &fakeTransport{}
	objs := &fakeObjects{blocks: []objstore.OID{{1}, {2}}}
	c := NewConnection(tr, objs)

	c.announceNew()
	if len(tr.sent) != 1 || tr.sent[0] != wireproto.TagHaveBlock {
		t.Fatalf("expected one HAVE_BLOCK message, got %v", tr.sent)
	}

	// Second call with no new blocks should send nothing more.
	c.announceNew()
	if len(tr.sent) != 1 {
		t.Fatalf("expected cursor to suppress re-announcement, got %v", tr.sent)
	}
}

func TestHandleHaveSkipsBelowPruneLevel(t *testing.T) {
	objs := &fakeObjects{pruneLevel: 10}
	c := NewConnection(&fakeTransport{}, objs)

	c.HandleHave(true, objstore.OID{1}, 5)
	if c.remote.Status(objstore.OID{1}) != validobjs.RelayUnknown {
		t.Fatal("expected a below-prune-level HAVE_BLOCK to be ignored")
	}

	c.HandleHave(true, objstore.OID{2}, 20)
	if c.remote.Status(objstore.OID{2}) != validobjs.RelayAnnounced {
		t.Fatal("expected an above-prune-level HAVE_BLOCK to be recorded")
	}
}

func TestCheckForDownloadRespectsLowWaterAndSendMax(t *testing.T) {
	objs := &fakeObjects{}
	c := NewConnection(&fakeTransport{}, objs)
	c.pending = DownloadLowWater + 1

	announced := []objstore.OID{{1}}
	for _, oid := range announced {
		c.remote.SetStatus(oid, validobjs.RelayAnnounced)
	}

	if err := c.CheckForDownload(announced, wireproto.TagSendBlock); err != nil {
		t.Fatal(err)
	}
	if c.Outstanding() != DownloadLowWater+1 {
		t.Fatalf("expected no new requests while above low water, got pending=%d", c.Outstanding())
	}

	c.pending = 0
	tr := c.transport.(*fakeTransport)
	if err := c.CheckForDownload(announced, wireproto.TagSendBlock); err != nil {
		t.Fatal(err)
	}
	if len(tr.sent) != 1 || tr.sent[0] != wireproto.TagSendBlock {
		t.Fatalf("expected a SEND_BLOCK request, got %v", tr.sent)
	}
	if c.remote.Status(objstore.OID{1}) != validobjs.RelayRequested {
		t.Fatal("expected the requested OID's status to advance to RelayRequested")
	}
}

func TestHandleSendRepliesBufferFullWhenQueueTooSmall(t *testing.T) {
	tr := &fakeTransport{}
	objs := &fakeObjects{objs: map[objstore.OID]*objstore.Buffer{}}
	c := NewConnection(tr, objs)

	if err := c.HandleSend([]objstore.OID{{1}, {2}, {3}}, 1); err != nil {
		t.Fatal(err)
	}
	if len(tr.sent) != 1 || tr.sent[0] != wireproto.TagResultBufferFull {
		t.Fatalf("expected a BUFFER_FULL reply, got %v", tr.sent)
	}
}

func TestHandleSendRepliesNoObjForUnknownOid(t *testing.T) {
	tr := &fakeTransport{}
	objs := &fakeObjects{objs: map[objstore.OID]*objstore.Buffer{}}
	c := NewConnection(tr, objs)

	if err := c.HandleSend([]objstore.OID{{9}}, 10); err != nil {
		t.Fatal(err)
	}
	if len(tr.sent) != 1 || tr.sent[0] != wireproto.TagNoObj {
		t.Fatalf("expected a NO_OBJ reply, got %v", tr.sent)
	}
}

func TestHandleReceivedObjectDecrementsPendingAndResetsLiveness(t *testing.T) {
	objs := &fakeObjects{}
	c := NewConnection(&fakeTransport{}, objs)
	c.pending = 2
	c.remote.SetStatus(objstore.OID{1}, validobjs.RelayRequested)
	before := time.Now().Add(-time.Hour)
	c.lastValidAt = before

	c.HandleReceivedObject(objstore.OID{1})

	if c.Outstanding() != 1 {
		t.Fatalf("expected pending to drop to 1, got %d", c.Outstanding())
	}
	if c.remote.Status(objstore.OID{1}) != validobjs.RelaySent {
		t.Fatal("expected status to advance to RelaySent")
	}
	if !c.lastValidAt.After(before) {
		t.Fatal("expected liveness clock to reset")
	}
}

func TestStartAndStopTransitionsState(t *testing.T) {
	c := NewConnection(&fakeTransport{}, &fakeObjects{})
	c.Start()
	if c.State() != StateConnected {
		t.Fatalf("expected CONNECTED after Start, got %v", c.State())
	}

	c.Stop()
	if c.State() != StateStopped {
		t.Fatalf("expected STOPPED after Stop, got %v", c.State())
	}
}
