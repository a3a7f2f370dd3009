package txvalidator

import "github.com/CredaCash/CredaCash-sub002/objstore"

// ParamSource looks up the Merkle root anchoring a transaction's proof
// and the timestamp that bounds its age (§4.5: "Look up the Merkle
// root at the declared param_level and the timestamp of param_level +
// 1").
type ParamSource interface {
	MerkleRootAt(level uint64) (root [32]byte, ok bool)
	TimestampAt(level uint64) (unixSeconds uint64, ok bool)
}

// SerialIndex answers whether a serial number is already spent,
// either indelibly or tentatively within the branch being validated
// against (§4.5 "For each input, check...").
type SerialIndex interface {
	// IndelibleLookup returns the persisted spend record for sn, if
	// any.
	IndelibleLookup(sn SerialNumber) (hashKey [32]byte, commitNum uint64, found bool)
	// TentativeContains reports whether sn is already in the
	// in-progress tentative-spend set for the branch being validated.
	TentativeContains(sn SerialNumber) bool
}

// ProofVerifier runs the zero-knowledge proof system, the sole
// blocking collaborator treated as a black box per spec §1.
type ProofVerifier interface {
	Verify(tx *Tx, publicInputs []byte) bool
}

// ForeignVerifier checks a cross-chain request's foreign address or a
// cross-chain payment claim against an external blockchain (§4.5,
// both "For cross-chain-request" and "For cross-chain-payment
// claims"). Best-effort: a false return is treated as "not yet
// confirmed", not necessarily invalid, by the caller's retry policy.
type ForeignVerifier interface {
	CheckForeignAddress(foreignBlockchain uint64, address string) bool
	CheckForeignPayment(xpay *XPayFields) (confirmed bool, amountOk bool)
}

// ForeignAddressIndex enforces foreign-address uniqueness against the
// pending-request index and the blocked-address list (§4.5).
type ForeignAddressIndex interface {
	InUse(foreignBlockchain uint64, address string) bool
	IsBlocked(foreignBlockchain uint64, address string) bool
}

// Context bundles the collaborators a single Validate call needs.
type Context struct {
	Params          ParamSource
	Serials         SerialIndex
	Proof           ProofVerifier
	Foreign         ForeignVerifier
	ForeignAddrs    ForeignAddressIndex
	Donation        DonationParams
	MaxParamAgeSecs uint64
	BlockTime       uint64 // 0 when validating a gossiped (not block-carried) tx
	PublicInputs    []byte
}

// Validate runs the per-transaction checks of §4.5 against tx and
// returns a Result. It does not mutate the tentative-spend set; on
// ResultOk the caller (block validator or tx pool) is responsible for
// inserting tx's serial numbers into that set.
func Validate(tx *Tx, ctx *Context) Result {
	if r := checkSerialNumberShape(tx); r != ResultOk {
		return r
	}

	if r := checkParamAge(tx, ctx); r != ResultOk {
		return r
	}

	min := MinDonation(tx, ctx.Donation)
	if tx.Donation < min {
		return ResultInsufficientDonation
	}

	if ctx.Proof != nil && !ctx.Proof.Verify(tx, ctx.PublicInputs) {
		return ResultProofVerificationFailed
	}

	if r := checkSerialNumbers(tx, ctx); r != ResultOk {
		return r
	}

	switch tx.Kind {
	case KindXReq:
		return validateXReq(tx, ctx)
	case KindXPay:
		return validateXPay(tx, ctx)
	default:
		return ResultOk
	}
}

// checkSerialNumberShape rejects duplicate serial numbers within the
// same transaction and malformed no-serialnum flags (§4.5: "no
// duplicate serial number within the transaction"; §9 invariant 6
// applies at the block/indelible level, this is the intra-tx case).
func checkSerialNumberShape(tx *Tx) Result {
	seen := make(map[SerialNumber]bool, len(tx.Inputs))
	for _, in := range tx.Inputs {
		wantNoSerial := tx.Kind == KindMint
		if in.NoSerialNumber != wantNoSerial {
			return ResultBinaryDataInvalid
		}
		if in.NoSerialNumber {
			continue
		}
		if seen[in.SerialNumber] {
			return ResultDuplicateSerialNum
		}
		seen[in.SerialNumber] = true
	}
	return ResultOk
}

// checkParamAge rejects a transaction whose declared param_level's
// Merkle root is unknown, or whose age (measured from param_level+1's
// timestamp) exceeds MaxParamAgeSecs (§4.5). The age is checked only
// when ctx.BlockTime is set; a tx validated with BlockTime 0 is not
// age-checked.
func checkParamAge(tx *Tx, ctx *Context) Result {
	if ctx.Params == nil {
		return ResultOk
	}
	if _, ok := ctx.Params.MerkleRootAt(tx.ParamLevel); !ok {
		return ResultParamLevelInvalid
	}
	ts, ok := ctx.Params.TimestampAt(tx.ParamLevel + 1)
	if !ok {
		return ResultParamLevelInvalid
	}

	now := ctx.BlockTime
	if now == 0 {
		return ResultOk // no BlockTime (gossiped tx): age not checked
	}
	if now > ts && now-ts > ctx.MaxParamAgeSecs {
		return ResultParamLevelTooOld
	}
	return ResultOk
}

// checkSerialNumbers enforces §4.5's per-input rule: reject if
// already indelibly spent (unless it is a benign resubmission of the
// identical spend), reject on a tentative-set collision, otherwise OK
// (insertion into the tentative set is the caller's job).
func checkSerialNumbers(tx *Tx, ctx *Context) Result {
	if ctx.Serials == nil {
		return ResultOk
	}
	for _, in := range tx.Inputs {
		if in.NoSerialNumber {
			continue
		}
		if hashKey, commitNum, found := ctx.Serials.IndelibleLookup(in.SerialNumber); found {
			if hashKey == in.HashKey && commitNum == in.SpentCommitNum {
				return ResultBenignResubmission
			}
			return ResultAlreadySpent
		}
		if ctx.Serials.TentativeContains(in.SerialNumber) {
			return ResultAlreadySpent
		}
	}
	return ResultOk
}

// validateXReq enforces foreign-address uniqueness for a
// cross-chain-request transaction (§4.5). Pricing and ExpireTime are
// not checked.
func validateXReq(tx *Tx, ctx *Context) Result {
	x := tx.XReq
	if x == nil {
		return ResultBinaryDataInvalid
	}

	if ctx.ForeignAddrs != nil && x.ForeignAddress != "" {
		if ctx.ForeignAddrs.IsBlocked(x.ForeignBlockchain, x.ForeignAddress) {
			return ResultAddressInUse
		}
		if ctx.ForeignAddrs.InUse(x.ForeignBlockchain, x.ForeignAddress) {
			return ResultAddressInUse
		}
	}

	if ctx.Foreign != nil && x.ForeignAddress != "" {
		// Best-effort: a negative result here does not invalidate the
		// request outright (§4.5 "optionally pre-validate ... best-effort
		// when not enforced").
		ctx.Foreign.CheckForeignAddress(x.ForeignBlockchain, x.ForeignAddress)
	}

	return ResultOk
}

// validateXPay checks that a cross-chain-payment claim names a non-zero
// match OID (the match itself is not looked up) and, when ctx.Foreign
// is set, verifies the payment on the foreign blockchain (§4.5).
func validateXPay(tx *Tx, ctx *Context) Result {
	x := tx.XPay
	if x == nil {
		return ResultBinaryDataInvalid
	}
	if x.MatchOID == (objstore.OID{}) {
		return ResultInvalidValue
	}
	if ctx.Foreign == nil {
		return ResultOk
	}
	confirmed, amountOk := ctx.Foreign.CheckForeignPayment(x)
	if !confirmed {
		return ResultForeignError
	}
	if !amountOk {
		return ResultInvalidValue
	}
	return ResultOk
}
