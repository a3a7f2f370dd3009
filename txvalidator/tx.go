package txvalidator

import "github.com/CredaCash/CredaCash-sub002/objstore"

// Kind tags the transaction variant, replacing the original's
// class-hierarchy dispatch (Mint / Payment / Xreq / Xpay) with a
// small match over a tagged struct (§9 "Dynamic dispatch across tx
// types").
type Kind int

const (
	KindMint Kind = iota
	KindPayment
	KindXReq
	KindXPay
)

// SerialNumber is a per-input unique spend token (§3 invariant 6,
// GLOSSARY "Serial number").
type SerialNumber [32]byte

// Input is one spent input of a transaction.
type Input struct {
	SerialNumber    SerialNumber
	HashKey         [32]byte
	SpentCommitNum  uint64
	NoSerialNumber  bool // set only on a Mint tx's sole input
}

// XReqFields carries the cross-chain-request-specific fields
// validated by validateXReq (§4.5 "For cross-chain-request
// transactions").
type XReqFields struct {
	ForeignAddress    string
	ForeignBlockchain uint64
	ExpireTime        uint64
}

// XPayFields carries the cross-chain-payment-claim fields validated
// by validateXPay (§4.5 "For cross-chain-payment claims").
type XPayFields struct {
	MatchOID      objstore.OID
	ForeignTxid   string
	PaymentAmount uint64
}

// Tx is a parsed transaction, independent of wire encoding, the form
// the validator operates on (§4.5 "Parse wire form").
type Tx struct {
	OID   objstore.OID
	Kind  Kind
	Size  uint32
	NIn   int
	NOut  int

	ParamLevel uint64
	Donation   uint64

	Inputs []Input

	XReq *XReqFields // non-nil iff Kind == KindXReq
	XPay *XPayFields // non-nil iff Kind == KindXPay
}

// DonationParams are the per-byte/output/input/xreq cost rates used to
// compute the minimum acceptable donation (§4.5 "Compute minimum
// donation"), grounded on ValidateXreq's min_donation formula
// (processtx.cpp lines 839-847).
type DonationParams struct {
	PerByte  uint64
	PerInput uint64
	PerOut   uint64
	PerXReq  uint64
}

// MinDonation computes the minimum acceptable donation for tx.
func MinDonation(tx *Tx, params DonationParams) uint64 {
	min := uint64(tx.Size)*params.PerByte +
		uint64(tx.NOut)*params.PerOut +
		uint64(tx.NIn)*params.PerInput

	if tx.Kind == KindXReq {
		min += params.PerXReq
	}
	return min
}
