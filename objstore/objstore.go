// Package objstore owns the ref-counted, variable-size buffers that
// back every block and transaction resident in the core, plus the
// global byte accountant used for download back-pressure.
//
// Grounded on the original CredaCash SmartBuf/CCObject ownership model
// (_examples/original_source/source/ccnode/src/block.cpp
// Block::SetupAuxBuf / SetPriorBlock / prior_block_lock) and on the
// teacher's buffer bookkeeping in blockdag/dagio.go (the DAG holds
// strong references to node bodies and releases them only once no
// other structure still needs them).
package objstore

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// OID is the 32-byte content-addressable identifier of a block or
// transaction (§3 "Object ID").
type OID [32]byte

// IsZero reports whether o is the zero OID (used as a sentinel for
// "not yet computed").
func (o OID) IsZero() bool { return o == OID{} }

// AuxSlotCount is the number of opaque aux pointers a Buffer carries.
// Slot 0 holds the type-specific aux record (BlockAux, TxAux, ...);
// slot 1 holds the prior-block link for block buffers. A transaction
// buffer only ever promotes to 1 slot.
const AuxSlotCount = 2

// Buffer is a ref-counted, variable-size object body with a small aux
// scratch area, modeled on the teacher's pattern of attaching
// lazily-allocated side tables to a block/tx body rather than
// subclassing it.
type Buffer struct {
	id   OID
	body []byte

	refCount int32 // atomic

	auxSlotCount int32    // atomic; 0 until SetAuxPtr is first called
	aux          [AuxSlotCount]atomic.Value

	released int32 // atomic; guards against double-release
}

// NewBuffer allocates a Buffer with an initial reference count of 1,
// reserving its size against the global Accountant.
func NewBuffer(id OID, body []byte) *Buffer {
	b := &Buffer{id: id, body: body, refCount: 1}
	DefaultAccountant.Reserve(int64(len(body)))
	return b
}

// ID returns the buffer's object identifier.
func (b *Buffer) ID() OID { return b.id }

// Body returns the buffer's wire-format bytes.
func (b *Buffer) Body() []byte { return b.body }

// Size is the buffer's body length in bytes, the unit the Accountant
// tracks.
func (b *Buffer) Size() int64 { return int64(len(b.body)) }

// IncRef adds a strong reference. Every IncRef must be matched by a
// DecRef.
func (b *Buffer) IncRef() {
	atomic.AddInt32(&b.refCount, 1)
}

// DecRef drops a strong reference, releasing the buffer's accounted
// bytes back to the Accountant once the count reaches zero. It returns
// true if this call released the buffer.
func (b *Buffer) DecRef() bool {
	if atomic.AddInt32(&b.refCount, -1) > 0 {
		return false
	}
	if !atomic.CompareAndSwapInt32(&b.released, 0, 1) {
		return false
	}
	DefaultAccountant.Release(b.Size())
	return true
}

// RefCount returns the current strong-reference count, for tests and
// diagnostics only.
func (b *Buffer) RefCount() int32 {
	return atomic.LoadInt32(&b.refCount)
}

// SetAuxPtr stores a value in the given aux slot, promoting the
// buffer's aux-slot-count so the scratch area is walked (and, in the
// original, freed) alongside the buffer itself. slot must be < len(b.aux).
func (b *Buffer) SetAuxPtr(slot int, v interface{}) error {
	if slot < 0 || slot >= AuxSlotCount {
		return errors.Errorf("objstore: aux slot %d out of range", slot)
	}
	b.aux[slot].Store(auxBox{v})
	for {
		cur := atomic.LoadInt32(&b.auxSlotCount)
		want := int32(slot + 1)
		if cur >= want {
			return nil
		}
		if atomic.CompareAndSwapInt32(&b.auxSlotCount, cur, want) {
			return nil
		}
	}
}

// AuxPtr retrieves the value stored at slot, or nil if never set.
func (b *Buffer) AuxPtr(slot int) interface{} {
	if slot < 0 || slot >= AuxSlotCount {
		return nil
	}
	v := b.aux[slot].Load()
	if v == nil {
		return nil
	}
	return v.(auxBox).v
}

// auxSlotCount reports how many aux slots have been promoted (test/
// diagnostic use, mirrors SmartBuf::SetAuxPtrCount bookkeeping).
func (b *Buffer) AuxSlotCount() int {
	return int(atomic.LoadInt32(&b.auxSlotCount))
}

// auxBox wraps an aux value so atomic.Value (which requires a
// consistent concrete type across Store calls) can hold arbitrary
// payloads including nil interfaces.
type auxBox struct{ v interface{} }
