package txvalidator

import "testing"

type fakeParams struct {
	roots map[uint64][32]byte
	times map[uint64]uint64
}

func (f *fakeParams) MerkleRootAt(level uint64) ([32]byte, bool) {
	r, ok := f.roots[level]
	return r, ok
}
func (f *fakeParams) TimestampAt(level uint64) (uint64, bool) {
	t, ok := f.times[level]
	return t, ok
}

type fakeSerials struct {
	indelible map[SerialNumber][2]interface{}
	tentative map[SerialNumber]bool
}

func (f *fakeSerials) IndelibleLookup(sn SerialNumber) ([32]byte, uint64, bool) {
	v, ok := f.indelible[sn]
	if !ok {
		return [32]byte{}, 0, false
	}
	return v[0].([32]byte), v[1].(uint64), true
}
func (f *fakeSerials) TentativeContains(sn SerialNumber) bool {
	return f.tentative[sn]
}

func basicContext() *Context {
	return &Context{
		Params:          &fakeParams{roots: map[uint64][32]byte{5: {1}}, times: map[uint64]uint64{6: 1000}},
		Serials:         &fakeSerials{indelible: map[SerialNumber][2]interface{}{}, tentative: map[SerialNumber]bool{}},
		Donation:        DonationParams{PerByte: 1, PerInput: 2, PerOut: 2, PerXReq: 10},
		MaxParamAgeSecs: 3600,
		BlockTime:       1500,
	}
}

func basicTx() *Tx {
	return &Tx{
		Kind:       KindPayment,
		Size:       100,
		NIn:        1,
		NOut:       1,
		ParamLevel: 5,
		Donation:   200,
		Inputs:     []Input{{SerialNumber: SerialNumber{1}}},
	}
}

func TestValidateAcceptsWellFormedPayment(t *testing.T) {
	if r := Validate(basicTx(), basicContext()); r != ResultOk {
		t.Fatalf("expected ResultOk, got %v", r)
	}
}

func TestValidateRejectsDuplicateSerialWithinTx(t *testing.T) {
	tx := basicTx()
	tx.NIn = 2
	tx.Inputs = []Input{{SerialNumber: SerialNumber{1}}, {SerialNumber: SerialNumber{1}}}
	if r := Validate(tx, basicContext()); r != ResultDuplicateSerialNum {
		t.Fatalf("expected ResultDuplicateSerialNum, got %v", r)
	}
}

func TestValidateRejectsInsufficientDonation(t *testing.T) {
	tx := basicTx()
	tx.Donation = 1
	if r := Validate(tx, basicContext()); r != ResultInsufficientDonation {
		t.Fatalf("expected ResultInsufficientDonation, got %v", r)
	}
}

func TestValidateRejectsUnknownParamLevel(t *testing.T) {
	tx := basicTx()
	tx.ParamLevel = 999
	if r := Validate(tx, basicContext()); r != ResultParamLevelInvalid {
		t.Fatalf("expected ResultParamLevelInvalid, got %v", r)
	}
}

func TestValidateRejectsTooOldParamLevel(t *testing.T) {
	ctx := basicContext()
	ctx.BlockTime = 1000 + 3600 + 1
	if r := Validate(basicTx(), ctx); r != ResultParamLevelTooOld {
		t.Fatalf("expected ResultParamLevelTooOld, got %v", r)
	}
}

func TestValidateRejectsAlreadySpentSerial(t *testing.T) {
	ctx := basicContext()
	sn := SerialNumber{1}
	ctx.Serials.(*fakeSerials).indelible[sn] = [2]interface{}{[32]byte{9}, uint64(7)}

	if r := Validate(basicTx(), ctx); r != ResultAlreadySpent {
		t.Fatalf("expected ResultAlreadySpent, got %v", r)
	}
}

func TestValidateTreatsIdenticalResubmissionAsBenign(t *testing.T) {
	ctx := basicContext()
	sn := SerialNumber{1}
	ctx.Serials.(*fakeSerials).indelible[sn] = [2]interface{}{[32]byte{}, uint64(0)}

	tx := basicTx()
	tx.Inputs[0].HashKey = [32]byte{}
	tx.Inputs[0].SpentCommitNum = 0

	if r := Validate(tx, ctx); r != ResultBenignResubmission {
		t.Fatalf("expected ResultBenignResubmission, got %v", r)
	}
}

func TestValidateRejectsTentativeDoubleSpend(t *testing.T) {
	ctx := basicContext()
	ctx.Serials.(*fakeSerials).tentative[SerialNumber{1}] = true

	if r := Validate(basicTx(), ctx); r != ResultAlreadySpent {
		t.Fatalf("expected ResultAlreadySpent for tentative collision, got %v", r)
	}
}

func TestMinDonationIncludesXReqSurcharge(t *testing.T) {
	params := DonationParams{PerByte: 1, PerInput: 2, PerOut: 3, PerXReq: 50}
	payment := &Tx{Kind: KindPayment, Size: 10, NIn: 1, NOut: 1}
	xreq := &Tx{Kind: KindXReq, Size: 10, NIn: 1, NOut: 1}

	if got, want := MinDonation(payment, params), uint64(10+2+3); got != want {
		t.Fatalf("payment min donation = %d, want %d", got, want)
	}
	if got, want := MinDonation(xreq, params), uint64(10+2+3+50); got != want {
		t.Fatalf("xreq min donation = %d, want %d", got, want)
	}
}
