// Package validobjs holds the ValidObjs and RelayObjs caches: the
// node's set of objects (blocks and transactions) known good, and the
// per-peer relay status of each, both keyed by OID with a monotonic
// sequence number so the relay heartbeat can resume an announcement
// cursor instead of re-scanning the whole cache (§6 "Persisted
// state": "ValidObjs(oid -> object) and RelayObjs(peer, oid ->
// status) in-memory caches backed by sequence numbers for heartbeat
// announcement").
//
// Grounded on the teacher's mempool pool (mempool/mempool.go: a
// capacity-bounded map behind one mutex, with acceptance bumping a
// monotonic counter) and sized via github.com/hashicorp/golang-lru,
// the bounded-cache library the rest of the example pack reaches for
// (maxbibeau-go-quai core/worker.go, prysmaticlabs-prysm beacon-chain/cache).
package validobjs

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/CredaCash/CredaCash-sub002/objstore"
)

// Class distinguishes the object-class cursors the relay heartbeat
// scans independently (§4.8 "Heartbeat": "per object class (blocks,
// txs, exchange requests)").
type Class int

const (
	ClassBlock Class = iota
	ClassTx
	ClassXReq
	numClasses
)

type entry struct {
	seq uint64
	obj *objstore.Buffer
	at  time.Time
}

// Store is the ValidObjs cache: OID -> validated object, with a
// global monotonic sequence counter per class so a heartbeat cursor
// can ask "what's new since seq N".
type Store struct {
	mu      sync.RWMutex
	objects map[objstore.OID]*entry
	nextSeq [numClasses]uint64

	// bySeq indexes entries per class in insertion order for cursor
	// scans; evicted via the LRU below when capacity is exceeded.
	bySeq [numClasses][]*entry

	cache *lru.Cache
}

// NewStore returns a Store capped at capacity resident objects across
// all classes combined (a simplification of the original's per-class
// caches, acceptable since OID collisions never cross classes).
func NewStore(capacity int) (*Store, error) {
	s := &Store{objects: make(map[objstore.OID]*entry)}
	cache, err := lru.NewWithEvict(capacity, s.onEvict)
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

// onEvict is the LRU callback; it only removes the map entry, the
// class-sequence index entries are skipped over lazily by cursor scans
// (which skip any entry whose OID is no longer in the map).
func (s *Store) onEvict(key, _ interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key.(objstore.OID))
}

// Insert adds obj to the cache under class, bumping the class
// sequence counter, and returns the sequence number assigned (§4.5
// "Success": "insert buffer into ValidObjs cache").
func (s *Store) Insert(class Class, oid objstore.OID, obj *objstore.Buffer) uint64 {
	s.mu.Lock()
	s.nextSeq[class]++
	seq := s.nextSeq[class]
	e := &entry{seq: seq, obj: obj, at: time.Now()}
	s.objects[oid] = e
	s.bySeq[class] = append(s.bySeq[class], e)
	s.mu.Unlock()

	// Outside s.mu: an eviction runs onEvict, which takes s.mu itself.
	s.cache.Add(oid, struct{}{})
	return seq
}

// Get returns the object for oid and whether it was found.
func (s *Store) Get(oid objstore.OID) (*objstore.Buffer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.objects[oid]
	if !ok {
		return nil, false
	}
	return e.obj, true
}

// Contains reports whether oid is resident, without touching LRU
// recency (used by HAVE-message filtering, §4.8).
func (s *Store) Contains(oid objstore.OID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[oid]
	return ok
}

// SinceSeq returns every still-resident object in class with sequence
// number greater than afterSeq, plus the new cursor value to pass next
// time (§4.8 heartbeat scan).
func (s *Store) SinceSeq(class Class, afterSeq uint64) (oids []objstore.OID, cursor uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.bySeq[class]
	cursor = afterSeq
	for _, e := range entries {
		if e.seq <= afterSeq {
			continue
		}
		if _, ok := s.objects[e.obj.ID()]; !ok {
			continue // evicted
		}
		oids = append(oids, e.obj.ID())
		if e.seq > cursor {
			cursor = e.seq
		}
	}
	return oids, cursor
}

// Len reports the number of resident objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Oldest returns the oldest still-resident entry in class, in
// insertion order, for the expiry sweeper (§4.10). ok is false once
// class holds nothing still resident.
func (s *Store) Oldest(class Class) (oid objstore.OID, seq uint64, at time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.bySeq[class] {
		if _, resident := s.objects[e.obj.ID()]; !resident {
			continue // already deleted or LRU-evicted
		}
		return e.obj.ID(), e.seq, e.at, true
	}
	return objstore.OID{}, 0, time.Time{}, false
}

// DeleteSeq removes the entry in class with the given sequence number,
// the counterpart expire.Worker calls once Oldest's candidate has aged
// past its threshold.
func (s *Store) DeleteSeq(class Class, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.bySeq[class] {
		if e.seq == seq {
			delete(s.objects, e.obj.ID())
			return nil
		}
	}
	return nil
}

// RelayStatus is a per-peer, per-object relay bookkeeping state
// (§6 "RelayObjs(peer, oid -> status)").
type RelayStatus int

const (
	RelayUnknown RelayStatus = iota
	RelayAnnounced
	RelayRequested
	RelaySent
)

// PeerRelay is the RelayObjs cache scoped to a single peer connection.
type PeerRelay struct {
	mu      sync.Mutex
	status  map[objstore.OID]RelayStatus
	maxSize int
}

// NewPeerRelay returns a PeerRelay bounded to maxSize tracked OIDs,
// the per-peer counterpart of CC_TX_SEND_MAX back-pressure (§4.8,
// §8 property 8).
func NewPeerRelay(maxSize int) *PeerRelay {
	return &PeerRelay{status: make(map[objstore.OID]RelayStatus), maxSize: maxSize}
}

// Status returns the relay status recorded for oid.
func (p *PeerRelay) Status(oid objstore.OID) RelayStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status[oid]
}

// SetStatus records oid's relay status. It refuses to add a new
// tracked OID once maxSize is reached (§4.8 "Back-pressure"); updating
// an already-tracked OID is always allowed.
func (p *PeerRelay) SetStatus(oid objstore.OID, status RelayStatus) (ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.status[oid]; !exists && len(p.status) >= p.maxSize {
		return false
	}
	p.status[oid] = status
	return true
}

// Forget drops oid from this peer's relay bookkeeping, called once a
// request is satisfied or abandoned.
func (p *PeerRelay) Forget(oid objstore.OID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.status, oid)
}

// Outstanding counts OIDs currently in RelayRequested state (§4.8, §8
// property 8); relay.Connection keeps its own pending count instead.
func (p *PeerRelay) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, st := range p.status {
		if st == RelayRequested {
			n++
		}
	}
	return n
}
