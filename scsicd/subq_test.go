package scsicd

import "testing"

func TestSubQChecksum(t *testing.T) {
	assert := assertFunc(t)

	q := [12]byte{0x01, 0x01, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 0x00}
	SubQMakeChecksum(q[:])
	assert(SubQCheckChecksum(q[:]))

	q[1] ^= 0x10
	assert(!SubQCheckChecksum(q[:]))
}

func TestGenSubQFromSubPW(t *testing.T) {
	assert := assertFunc(t)
	h := newTestHost(t, KIND_PCFX, nil)

	makeTestSubPW(h.drv.CD.SubPWBuf[:], 0x04, 2, 10, 160)
	h.drv.genSubQFromSubPW()

	q := h.drv.CD.SubQBufLast
	assert(q[0] == 0x41) // Data track control, ADR 1
	assert(q[1] == 0x02)
	assert(q[2] == 0x01)

	// ADR 1 lands in the time-mode slot
	assert(h.drv.CD.SubQBuf[QMODE_TIME] == q)

	m, s, f := LBAToAMSF(160)
	assert(q[7] == U8ToBCD(m) && q[8] == U8ToBCD(s) && q[9] == U8ToBCD(f))
}

// A corrupt P-W stream must not disturb the previous Q state
func TestGenSubQChecksumGate(t *testing.T) {
	assert := assertFunc(t)
	h := newTestHost(t, KIND_PCFX, nil)

	makeTestSubPW(h.drv.CD.SubPWBuf[:], 0x00, 1, 0, 150)
	h.drv.genSubQFromSubPW()
	prev := h.drv.CD.SubQBufLast

	makeTestSubPW(h.drv.CD.SubPWBuf[:], 0x00, 2, 0, 151)
	h.drv.CD.SubPWBuf[10] ^= 0x40 // Flip one Q bit
	h.drv.genSubQFromSubPW()

	assert(h.drv.CD.SubQBufLast == prev)
}
