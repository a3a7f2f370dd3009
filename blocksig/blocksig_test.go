package blocksig

import (
	"crypto/ed25519"
	"testing"

	"github.com/CredaCash/CredaCash-sub002/objstore"
)

func TestCalcHashDeterministic(t *testing.T) {
	body := []byte("a wire body minus its signature region")
	h1, err := CalcHash(0x4b4c4243, body)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := CalcHash(0x4b4c4243, body)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatal("CalcHash is not deterministic over identical input")
	}

	h3, _ := CalcHash(0x4b4c4244, body)
	if h1 == h3 {
		t.Fatal("expected different header tags to produce different hashes")
	}
}

func TestCalcOidDependsOnSignature(t *testing.T) {
	hash := objstore.OID{1, 2, 3}
	sig1 := []byte("signature-one-sixty-four-bytes-padded-out-to-the-right-length!!")
	sig2 := []byte("signature-two-sixty-four-bytes-padded-out-to-the-right-length!!")

	oid1, err := CalcOid(1, hash, sig1)
	if err != nil {
		t.Fatal(err)
	}
	oid2, err := CalcOid(1, hash, sig2)
	if err != nil {
		t.Fatal(err)
	}
	if oid1 == oid2 {
		t.Fatal("expected OID to depend on the signature")
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}

	digest, err := SigningDigest(objstore.OID{9}, objstore.OID{8}, nil)
	if err != nil {
		t.Fatal(err)
	}

	sig := Sign(priv, digest)
	if !Verify(pub, digest, sig) {
		t.Fatal("expected signature to verify against the same digest")
	}

	otherDigest, _ := SigningDigest(objstore.OID{9}, objstore.OID{7}, nil)
	if Verify(pub, otherDigest, sig) {
		t.Fatal("did not expect the signature to verify against a different digest")
	}
}

func TestSigningDigestFoldsRotationKeyWhenPresent(t *testing.T) {
	withRotation, err := SigningDigest(objstore.OID{1}, objstore.OID{2}, []byte("next-signing-public-key-32-byte"))
	if err != nil {
		t.Fatal(err)
	}
	withoutRotation, err := SigningDigest(objstore.OID{1}, objstore.OID{2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if withRotation == withoutRotation {
		t.Fatal("expected rotation-key folding to change the resulting digest")
	}
}
