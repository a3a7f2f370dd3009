package wireproto

import (
	"bytes"
	"testing"

	"github.com/CredaCash/CredaCash-sub002/objstore"
)

func TestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := Header{Size: 128, Tag: TagBlock}
	if err := WriteHeader(&buf, in); err != nil {
		t.Fatal(err)
	}
	out, err := ReadHeader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestReadHeaderRejectsOversizedMessage(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteHeader(&buf, Header{Size: MaxMessageSize + 1, Tag: TagTx})
	if _, err := ReadHeader(&buf); err == nil {
		t.Fatal("expected an oversized message size to be rejected")
	}
}

func TestBlockWireHeaderRoundTrip(t *testing.T) {
	in := BlockWireHeader{
		PriorOID:  objstore.OID{1, 2, 3},
		Level:     42,
		Timestamp: 1700000000,
		Witness:   7,
	}
	copy(in.Signature[:], bytes.Repeat([]byte{0xAB}, 64))

	var buf bytes.Buffer
	if err := in.Encode(&buf); err != nil {
		t.Fatal(err)
	}

	var out BlockWireHeader
	if err := out.Decode(&buf); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestHaveBlockRecordRoundTrip(t *testing.T) {
	in := HaveBlockRecord{
		PriorOID:      objstore.OID{9},
		Level:         5,
		Size:          256,
		Witness:       3,
		OID:           objstore.OID{8},
		AnnounceTicks: 99,
	}
	var buf bytes.Buffer
	if err := in.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	var out HaveBlockRecord
	if err := out.Decode(&buf); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestOIDListRoundTrip(t *testing.T) {
	in := []objstore.OID{{1}, {2}, {3}}
	var buf bytes.Buffer
	if err := WriteOIDList(&buf, in); err != nil {
		t.Fatal(err)
	}
	out, err := ReadOIDList(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d OIDs, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("oid %d: got %v, want %v", i, out[i], in[i])
		}
	}
}

func TestReadOIDListRejectsImplausibleCount(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0x7F}) // huge count, no data follows
	if _, err := ReadOIDList(&buf); err == nil {
		t.Fatal("expected an implausibly large OID count to be rejected")
	}
}
