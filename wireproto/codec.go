package wireproto

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/CredaCash/CredaCash-sub002/objstore"
)

// WriteHeader writes a Header, little-endian (§6).
func WriteHeader(w io.Writer, h Header) error {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], h.Size)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.Tag))
	_, err := w.Write(buf[:])
	return err
}

// ReadHeader reads a Header and rejects an advertised size above
// MaxMessageSize (§7 "Parse/format ... drop the peer").
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, err
	}
	h := Header{
		Size: binary.LittleEndian.Uint32(buf[0:4]),
		Tag:  Tag(binary.LittleEndian.Uint32(buf[4:8])),
	}
	if h.Size > MaxMessageSize {
		return Header{}, errors.Errorf("wireproto: message size %d exceeds max %d", h.Size, MaxMessageSize)
	}
	return h, nil
}

// BlockWireHeaderSize is the fixed-width portion of BlockWireHeader on
// the wire: signature(64) + prior-oid(32) + level(8) + timestamp(4) +
// witness(1).
const BlockWireHeaderSize = 64 + 32 + 8 + 4 + 1

// BlockWireHeader is the fixed portion of a block's wire form (§3
// "Block wire header"). The optional next-signing-public-key field is
// feature-gated off (ROTATE_BLOCK_SIGNING_KEYS=0 in the original) and
// is not carried on the wire.
type BlockWireHeader struct {
	Signature [64]byte
	PriorOID  objstore.OID
	Level     uint64 // height from genesis
	Timestamp uint32 // packed offset from chainparams.Epoch, seconds
	Witness   uint8
}

// Encode writes h in wire order.
func (h *BlockWireHeader) Encode(w io.Writer) error {
	var buf [BlockWireHeaderSize]byte
	off := 0
	off += copy(buf[off:], h.Signature[:])
	off += copy(buf[off:], h.PriorOID[:])
	binary.LittleEndian.PutUint64(buf[off:off+8], h.Level)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:off+4], h.Timestamp)
	off += 4
	buf[off] = h.Witness
	_, err := w.Write(buf[:])
	return err
}

// Decode reads a BlockWireHeader from r.
func (h *BlockWireHeader) Decode(r io.Reader) error {
	var buf [BlockWireHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	off := 0
	off += copy(h.Signature[:], buf[off:off+64])
	off += copy(h.PriorOID[:], buf[off:off+32])
	h.Level = binary.LittleEndian.Uint64(buf[off : off+8])
	off += 8
	h.Timestamp = binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4
	h.Witness = buf[off]
	return nil
}

// SignedBytesOffset is where the byte range of a BlockWireHeader that
// feeds blocksig.CalcHash begins: everything after the signature field (§3 "Block
// hash": "over block header + body excluding the signature region").
// Offset is always 64 (the signature is first on the wire, as in
// BlockWireHeader from the original's layout).
const SignedBytesOffset = 64

// HaveBlockRecord is one entry of a CC_MSG_HAVE_BLOCK list (§6).
type HaveBlockRecord struct {
	PriorOID      objstore.OID
	Level         uint64
	Size          uint32
	Witness       uint8
	OID           objstore.OID
	AnnounceTicks uint32
}

const haveBlockRecordSize = 32 + 8 + 4 + 1 + 32 + 4

// Encode writes r in wire order.
func (r *HaveBlockRecord) Encode(w io.Writer) error {
	var buf [haveBlockRecordSize]byte
	off := 0
	off += copy(buf[off:], r.PriorOID[:])
	binary.LittleEndian.PutUint64(buf[off:off+8], r.Level)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:off+4], r.Size)
	off += 4
	buf[off] = r.Witness
	off++
	off += copy(buf[off:], r.OID[:])
	binary.LittleEndian.PutUint32(buf[off:off+4], r.AnnounceTicks)
	_, err := w.Write(buf[:])
	return err
}

// Decode reads a HaveBlockRecord from r.
func (r *HaveBlockRecord) Decode(rd io.Reader) error {
	var buf [haveBlockRecordSize]byte
	if _, err := io.ReadFull(rd, buf[:]); err != nil {
		return err
	}
	off := 0
	off += copy(r.PriorOID[:], buf[off:off+32])
	r.Level = binary.LittleEndian.Uint64(buf[off : off+8])
	off += 8
	r.Size = binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4
	r.Witness = buf[off]
	off++
	off += copy(r.OID[:], buf[off:off+32])
	r.AnnounceTicks = binary.LittleEndian.Uint32(buf[off : off+4])
	return nil
}

// HaveTxRecord is one entry of a CC_MSG_HAVE_TX list (§6).
type HaveTxRecord struct {
	OID        objstore.OID
	ParamLevel uint64
	Size       uint32
}

const haveTxRecordSize = 32 + 8 + 4

// Encode writes r in wire order.
func (r *HaveTxRecord) Encode(w io.Writer) error {
	var buf [haveTxRecordSize]byte
	off := 0
	off += copy(buf[off:], r.OID[:])
	binary.LittleEndian.PutUint64(buf[off:off+8], r.ParamLevel)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:off+4], r.Size)
	_, err := w.Write(buf[:])
	return err
}

// Decode reads a HaveTxRecord from rd.
func (r *HaveTxRecord) Decode(rd io.Reader) error {
	var buf [haveTxRecordSize]byte
	if _, err := io.ReadFull(rd, buf[:]); err != nil {
		return err
	}
	off := 0
	off += copy(r.OID[:], buf[off:off+32])
	r.ParamLevel = binary.LittleEndian.Uint64(buf[off : off+8])
	off += 8
	r.Size = binary.LittleEndian.Uint32(buf[off : off+4])
	return nil
}

// SendLevelsRequest is the payload of CC_CMD_SEND_LEVELS (§6,
// §4.9 block-sync).
type SendLevelsRequest struct {
	StartLevel uint64
	NLevels    uint16
}

const sendLevelsRequestSize = 8 + 2

// Encode writes r in wire order.
func (r *SendLevelsRequest) Encode(w io.Writer) error {
	var buf [sendLevelsRequestSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], r.StartLevel)
	binary.LittleEndian.PutUint16(buf[8:10], r.NLevels)
	_, err := w.Write(buf[:])
	return err
}

// Decode reads a SendLevelsRequest from rd.
func (r *SendLevelsRequest) Decode(rd io.Reader) error {
	var buf [sendLevelsRequestSize]byte
	if _, err := io.ReadFull(rd, buf[:]); err != nil {
		return err
	}
	r.StartLevel = binary.LittleEndian.Uint64(buf[0:8])
	r.NLevels = binary.LittleEndian.Uint16(buf[8:10])
	return nil
}

// WriteOIDList writes a count-prefixed list of OIDs, the payload shape
// of CC_CMD_SEND_BLOCK / CC_CMD_SEND_TX (§6: "header + list of OIDs").
func WriteOIDList(w io.Writer, oids []objstore.OID) error {
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(oids)))
	if _, err := w.Write(countBuf[:]); err != nil {
		return err
	}
	for _, oid := range oids {
		if _, err := w.Write(oid[:]); err != nil {
			return err
		}
	}
	return nil
}

// ReadOIDList reads a count-prefixed list of OIDs, rejecting a count
// that implies a message larger than MaxMessageSize.
func ReadOIDList(r io.Reader) ([]objstore.OID, error) {
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, err
	}
	count := binary.LittleEndian.Uint32(countBuf[:])
	if uint64(count)*32 > MaxMessageSize {
		return nil, errors.Errorf("wireproto: OID list count %d exceeds max message size", count)
	}
	oids := make([]objstore.OID, count)
	for i := range oids {
		if _, err := io.ReadFull(r, oids[i][:]); err != nil {
			return nil, err
		}
	}
	return oids, nil
}
