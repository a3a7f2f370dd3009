// Package txvalidator runs validated transaction checks across a
// fixed worker pool draining a priority queue, and classifies
// transactions by tag for dispatch (§4.5, §9 "Dynamic dispatch across
// tx types").
//
// Grounded on ProcessTx::TxValidate and the TX_RESULT_* taxonomy
// (_examples/original_source/source/ccnode/src/processtx.hpp,
// processtx.cpp lines 584-1200+), carried to Go in the teacher's
// priority-queue idiom (mining/mining.go txPriorityQueue: a
// container/heap wrapper with a pluggable less-func).
package txvalidator

// Result is a signed result code. Negative values at or below
// StopThreshold are severe enough that the relay connection which
// supplied the offending object should be dropped; the remaining
// negative values are recoverable (§4.5 "Failure taxonomy", §7
// "Propagation policy").
type Result int32

// StopThreshold is the boundary: results <= StopThreshold cause the
// caller to drop the peer (ProcessTx.hpp: "errors <=
// PROCESS_RESULT_STOP_THRESHOLD cause the relay peer connection to be
// closed").
const StopThreshold Result = -1000

// Ok and the benign-resubmission code.
const (
	ResultOk Result = 0
	// ResultBenignResubmission is returned for an input whose serial
	// number is already indelible with the same hashkey and
	// spent-commitnum: treat as a duplicate send, not an error (§4.5
	// "return code 1").
	ResultBenignResubmission Result = 1
)

// Recoverable results (above StopThreshold): keep the peer, the
// object may become valid later or was simply stale.
const (
	ResultParamLevelTooOld Result = -1
	ResultExpired          Result = -2
	ResultAlreadySpent     Result = -3
	ResultAddressInUse     Result = -4
	ResultAlreadyPaid      Result = -5
	ResultForeignError     Result = -6
)

// Stop-threshold results: drop the peer (§4.5 "Failure taxonomy").
const (
	ResultInternalError           Result = StopThreshold
	ResultServerError             Result = StopThreshold - 1
	ResultParamLevelInvalid       Result = StopThreshold - 2
	ResultDuplicateSerialNum      Result = StopThreshold - 3
	ResultBinaryDataInvalid       Result = StopThreshold - 4
	ResultOptionNotSupported      Result = StopThreshold - 5
	ResultInsufficientDonation    Result = StopThreshold - 6
	ResultProofVerificationFailed Result = StopThreshold - 7
	ResultForeignVerificationFail Result = StopThreshold - 8
	ResultInvalidValue            Result = StopThreshold - 9
)

// IsStopThreshold reports whether r is severe enough that the
// supplying connection should be dropped.
func (r Result) IsStopThreshold() bool { return r <= StopThreshold }

// IsOk reports whether r represents successful or benignly-resubmitted
// validation.
func (r Result) IsOk() bool { return r == ResultOk || r == ResultBenignResubmission }

// String gives a human-readable label, mirroring
// ProcessTx::ResultString's role for logging.
func (r Result) String() string {
	switch r {
	case ResultOk:
		return "OK"
	case ResultBenignResubmission:
		return "OK:benign resubmission"
	case ResultParamLevelTooOld:
		return "INVALID:param level too old"
	case ResultExpired:
		return "INVALID:expired"
	case ResultAlreadySpent:
		return "INVALID:already spent"
	case ResultAddressInUse:
		return "INVALID:address in use"
	case ResultAlreadyPaid:
		return "INVALID:already paid"
	case ResultForeignError:
		return "INVALID:foreign blockchain error"
	case ResultInternalError:
		return "INTERNAL ERROR"
	case ResultServerError:
		return "SERVER ERROR"
	case ResultParamLevelInvalid:
		return "INVALID:param level invalid"
	case ResultDuplicateSerialNum:
		return "INVALID:duplicate serial number"
	case ResultBinaryDataInvalid:
		return "INVALID:binary data invalid"
	case ResultOptionNotSupported:
		return "INVALID:option not supported"
	case ResultInsufficientDonation:
		return "INVALID:insufficient donation"
	case ResultProofVerificationFailed:
		return "INVALID:proof verification failed"
	case ResultForeignVerificationFail:
		return "INVALID:foreign verification failed"
	case ResultInvalidValue:
		return "INVALID:invalid value"
	default:
		return "INVALID:unknown"
	}
}
