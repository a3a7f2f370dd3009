// Package relay drives one peer connection's object-gossip protocol
// (§4.8): periodic HAVE announcements (OID lists) of newly valid
// blocks and txs (exchange requests are scanned but not announced),
// SEND requests for objects a peer has announced, and the BUFFER-FULL
// back-pressure reply when a peer's outstanding request queue is
// saturated.
//
// Grounded on RelayConnection's state machine and heartbeat loop
// (_examples/original_source/source/ccnode/src/relay.cpp:
// StartConnection/HandleMsgReadComplete/HeartbeatTimeout, constants
// RELAY_HEARTBEAT=100ms, RELAY_TIMEOUT=40s) and on the teacher's
// per-connection goroutine pair (netadapter/netadapter.go
// startReceiveLoop/startSendLoop: one goroutine per direction, woken
// by channel sends rather than callbacks).
package relay

import (
	"bytes"
	"sync"
	"time"

	"github.com/CredaCash/CredaCash-sub002/objstore"
	"github.com/CredaCash/CredaCash-sub002/validobjs"
	"github.com/CredaCash/CredaCash-sub002/wireproto"
)

// State is the lifecycle of one peer connection (§4.8 "Connection
// states").
type State int32

const (
	StateConnecting State = iota
	StateConnected
	StateDraining // stopping; finish outstanding sends, accept no new work
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateDraining:
		return "DRAINING"
	case StateStopped:
		return "STOPPED"
	default:
		return "CONNECTING"
	}
}

// Heartbeat is the interval at which a connection checks for new
// objects to announce and for a stalled peer (§4.8, RELAY_HEARTBEAT).
const Heartbeat = 100 * time.Millisecond

// Timeout disconnects a peer that has sent nothing valid in this long
// (§4.8, RELAY_TIMEOUT).
const Timeout = 40 * time.Second

// SendMax bounds the number of outstanding SEND requests this node
// will make of one peer at a time (§4.8 "CC_TX_SEND_MAX").
const SendMax = 24

// DownloadLowWater / DownloadHighWater gate when CheckForDownload
// issues a fresh batch of SEND requests: a batch is issued only while
// pending is at or below the low water mark, and one batch requests at
// most DownloadHighWater objects, never taking pending past SendMax
// (relay.cpp RELAY_DOWNLOAD_LOW_WATER/HIGH_WATER).
const (
	DownloadLowWater  = 12
	DownloadHighWater = 5
)

// Transport is the minimal send/receive surface relay needs from the
// underlying connection, so this package stays transport-agnostic
// (grpc, raw TCP, or an in-process pipe for tests).
type Transport interface {
	WriteMessage(tag wireproto.Tag, payload []byte) error
	Close() error
}

// ObjectSource supplies newly valid objects to announce and resolves
// a requested OID to its wire bytes.
type ObjectSource interface {
	SinceSeq(class validobjs.Class, afterSeq uint64) (oids []objstore.OID, cursor uint64)
	Get(oid objstore.OID) (*objstore.Buffer, bool)
	PruneLevel() uint64
}

// Connection runs the gossip protocol for one peer.
type Connection struct {
	transport Transport
	objects   ObjectSource

	mu    sync.Mutex
	state State

	remote *validobjs.PeerRelay // what this peer has announced/requested of us
	cursor [3]uint64            // per-class SinceSeq cursor (ClassBlock, ClassTx, ClassXReq)

	pending     int // outstanding SEND requests we've made of the peer
	lastValidAt time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewConnection wraps a transport in a CONNECTING connection; Start
// launches its heartbeat loop.
func NewConnection(transport Transport, objects ObjectSource) *Connection {
	c := &Connection{
		transport:   transport,
		objects:     objects,
		state:       StateConnecting,
		remote:      validobjs.NewPeerRelay(SendMax * 4),
		lastValidAt: time.Now(),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	return c
}

// Start transitions to CONNECTED and launches the heartbeat loop,
// mirroring RelayConnection::StartConnection's seqnum baseline: a
// fresh connection announces every currently-valid object once, then
// only new ones.
func (c *Connection) Start() {
	c.mu.Lock()
	c.state = StateConnected
	c.mu.Unlock()

	go c.heartbeatLoop()
}

// Stop requests a graceful drain; outstanding announce/send work is
// allowed to finish before the transport closes.
func (c *Connection) Stop() {
	c.mu.Lock()
	if c.state == StateStopped || c.state == StateDraining {
		c.mu.Unlock()
		return
	}
	c.state = StateDraining
	c.mu.Unlock()

	close(c.stopCh)
	<-c.doneCh
	_ = c.transport.Close()

	c.mu.Lock()
	c.state = StateStopped
	c.mu.Unlock()
}

// State reports the current connection state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) heartbeatLoop() {
	defer close(c.doneCh)

	ticker := time.NewTicker(Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			stale := time.Since(c.lastValidAt) > Timeout
			c.mu.Unlock()
			if stale {
				go c.Stop()
				return
			}
			c.announceNew()
		}
	}
}

// announceNew sends HAVE_BLOCK/HAVE_TX OID lists for every block and
// tx validated since this connection's cursor, advancing the cursor
// past objects already announced (§4.8 "Heartbeat"). Exchange requests
// have no HAVE tag in haveTagFor: their cursor advances and nothing is
// sent for them.
func (c *Connection) announceNew() {
	for class := validobjs.ClassBlock; class <= validobjs.ClassXReq; class++ {
		c.mu.Lock()
		after := c.cursor[class]
		c.mu.Unlock()

		oids, next := c.objects.SinceSeq(class, after)
		if len(oids) == 0 {
			continue
		}

		tag := haveTagFor(class)
		if tag != 0 {
			_ = c.sendOIDList(tag, oids)
		}

		c.mu.Lock()
		c.cursor[class] = next
		c.mu.Unlock()
	}
}

func haveTagFor(class validobjs.Class) wireproto.Tag {
	switch class {
	case validobjs.ClassBlock:
		return wireproto.TagHaveBlock
	case validobjs.ClassTx:
		return wireproto.TagHaveTx
	default:
		return 0
	}
}

func (c *Connection) sendOIDList(tag wireproto.Tag, oids []objstore.OID) error {
	var buf bytes.Buffer
	if err := wireproto.WriteOIDList(&buf, oids); err != nil {
		return err
	}
	return c.transport.WriteMessage(tag, buf.Bytes())
}

// HandleHave records an incoming HAVE announcement, marking each OID
// announced-but-not-yet-requested unless it falls below the current
// prune horizon (relay.cpp HandleMsgReadComplete CC_MSG_HAVE_BLOCK:
// "skipping download of block below prune_level").
func (c *Connection) HandleHave(isBlock bool, oid objstore.OID, level uint64) {
	if isBlock && level < c.objects.PruneLevel() {
		return
	}
	if c.remote.Status(oid) == validobjs.RelayUnknown {
		if !c.remote.SetStatus(oid, validobjs.RelayAnnounced) {
			return // at capacity; drop the announcement, peer will re-announce
		}
	}
	c.mu.Lock()
	c.lastValidAt = time.Now()
	c.mu.Unlock()
}

// CheckForDownload issues SEND requests for announced-but-unrequested
// objects up to DownloadHighWater once pending has drained to
// DownloadLowWater, never exceeding SendMax outstanding (§4.8
// "CC_TX_SEND_MAX").
func (c *Connection) CheckForDownload(announced []objstore.OID, sendTag wireproto.Tag) error {
	c.mu.Lock()
	pending := c.pending
	c.mu.Unlock()

	if pending > DownloadLowWater {
		return nil
	}

	room := SendMax - pending
	if room > DownloadHighWater {
		room = DownloadHighWater
	}

	var toSend []objstore.OID
	for _, oid := range announced {
		if len(toSend) >= room {
			break
		}
		if c.remote.Status(oid) != validobjs.RelayAnnounced {
			continue
		}
		if !c.remote.SetStatus(oid, validobjs.RelayRequested) {
			continue
		}
		toSend = append(toSend, oid)
	}
	if len(toSend) == 0 {
		return nil
	}

	c.mu.Lock()
	c.pending += len(toSend)
	c.mu.Unlock()

	return c.sendOIDList(sendTag, toSend)
}

// HandleSend answers a peer's SEND_BLOCK/SEND_TX request: replies
// with each object's bytes in turn, or BUFFER-FULL if our own send
// queue can't hold the batch (relay.cpp: "insufficient space in send
// queue ... sending CC_RESULT_BUFFER_FULL").
func (c *Connection) HandleSend(oids []objstore.OID, sendQueueSpace int) error {
	if sendQueueSpace < len(oids) {
		return c.transport.WriteMessage(wireproto.TagResultBufferFull, nil)
	}

	for _, oid := range oids {
		obj, ok := c.objects.Get(oid)
		if !ok {
			if err := c.transport.WriteMessage(wireproto.TagNoObj, oid[:]); err != nil {
				return err
			}
			continue
		}
		if err := c.transport.WriteMessage(wireproto.TagBlock, obj.Body()); err != nil {
			return err
		}
	}
	return nil
}

// HandleReceivedObject marks an OID sent, decrements the peer's
// outstanding-request count, and resets the liveness clock (§4.8:
// receiving a requested object counts as a heartbeat).
func (c *Connection) HandleReceivedObject(oid objstore.OID) {
	c.remote.SetStatus(oid, validobjs.RelaySent)

	c.mu.Lock()
	if c.pending > 0 {
		c.pending--
	}
	c.lastValidAt = time.Now()
	c.mu.Unlock()
}

// Outstanding reports the number of SEND requests still awaiting a
// reply from the peer.
func (c *Connection) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}
