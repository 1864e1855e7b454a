package scsicd

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// Save-state round trip: a restored drive must produce identical
// audio and bus behavior over any subsequent timestamp sequence
func TestSaveStateRoundTripAudio(t *testing.T) {
	assert := assertFunc(t)
	discA := defaultTestDisc()
	discB := defaultTestDisc()

	a := newTestHost(t, KIND_PCFX, discA)

	status, _ := a.doCommand([]byte{0x45, 0, 0x00, 0x00, 0x03, 0xE8, 0, 0x03, 0xE8, 0})
	assert(status == pcfxStatusGood)
	a.tick(123457)

	blob := a.drv.SaveState()

	b := newTestHost(t, KIND_PCFX, discB)
	if err := b.drv.LoadState(blob); err != nil {
		t.Fatal(err)
	}
	b.drv.ResetTS(a.ts)
	b.ts = a.ts

	// Clear both high-rate buffers so the comparison only covers the
	// post-restore output
	for i := range a.hrbufL {
		a.hrbufL[i] = 0
		a.hrbufR[i] = 0
		b.hrbufL[i] = 0
		b.hrbufR[i] = 0
	}

	steps := []int64{101, 9973, 65521, 300000, 12345, 290001}
	for _, step := range steps {
		a.tick(step)
		b.tick(step)

		al, ar := a.drv.CDDAValues()
		bl, br := b.drv.CDDAValues()
		assert(al == bl && ar == br)
	}

	assert(bytes32Equal(a.hrbufL, b.hrbufL))
	assert(bytes32Equal(a.hrbufR, b.hrbufR))

	// The two drives are now in identical persisted state
	assert(bytes.Equal(a.drv.SaveState(), b.drv.SaveState()))
}

func bytes32Equal(a, b []int32) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Mid-transfer state survives: din contents, read position and the
// pending transfer flag
func TestSaveStateMidDataIn(t *testing.T) {
	assert := assertFunc(t)
	a := newTestHost(t, KIND_PCFX, defaultTestDisc())

	a.sendCDB([]byte{0x12, 0, 0, 0, 0xFF, 0})
	assert(a.drv.Phase == PHASE_DATA_IN)
	for i := 0; i < 10; i++ {
		a.recvByte()
	}

	blob := a.drv.SaveState()

	b := newTestHost(t, KIND_PCFX, defaultTestDisc())
	if err := b.drv.LoadState(blob); err != nil {
		t.Fatal(err)
	}

	assert(b.drv.Phase == PHASE_DATA_IN)
	assert(b.drv.Din.InCount == a.drv.Din.InCount)
	assert(b.drv.Din.ReadPos == a.drv.Din.ReadPos)
	assert(b.drv.Din.WritePos() == (b.drv.Din.ReadPos+b.drv.Din.InCount)&(b.drv.Din.Size()-1))

	// Finish the transfer on the restored drive
	b.ts = a.ts
	b.drv.ResetTS(a.ts)
	rest := 36 - 10 - 1 // One byte is already latched on DB
	for i := 0; i < rest; i++ {
		b.recvByte()
	}
	assert(b.finishStatus() == pcfxStatusGood)
}

func TestSaveStateVersionFixups(t *testing.T) {
	assert := assertFunc(t)
	a := newTestHost(t, KIND_PCFX, defaultTestDisc())

	status, _ := a.doCommand([]byte{0x45, 0, 0x00, 0x00, 0x03, 0xE8, 0, 0x03, 0xE8, 0})
	assert(status == pcfxStatusGood)
	a.tick(123457)

	a.drv.CDDA.OversamplePos = 0x3F // Force an out-of-range value
	div := a.drv.CDDA.Div
	assert(div > 0)

	blob := a.drv.SaveState()

	// Rewrite the version field to a pre-0x0935 value
	binary.LittleEndian.PutUint32(blob[4:], 0x0934)

	b := newTestHost(t, KIND_PCFX, defaultTestDisc())
	if err := b.drv.LoadState(blob); err != nil {
		t.Fatal(err)
	}

	want := div / 2
	if want <= 0 {
		want = 1
	}
	assert(b.drv.CDDA.Div == want)
	assert(b.drv.CDDA.OversamplePos == 0x1F)
}

func TestSaveStateRebuildsModePageCaches(t *testing.T) {
	assert := assertFunc(t)
	a := newTestHost(t, KIND_PCFX, defaultTestDisc())

	a.drv.ModePages[3].Current[0] = 0x05 // CD-DA speed +5
	a.drv.updateMPCache(0x2B)
	blob := a.drv.SaveState()

	b := newTestHost(t, KIND_PCFX, defaultTestDisc())
	if err := b.drv.LoadState(blob); err != nil {
		t.Fatal(err)
	}

	assert(b.drv.ModePages[3].Current[0] == 0x05)
	assert(b.drv.CDDA.DivAcc == a.drv.CDDA.DivAcc)
	assert(b.drv.CDDA.DivAccVolFudge == 105)
}

func TestLoadStateRejectsGarbage(t *testing.T) {
	assert := assertFunc(t)
	h := newTestHost(t, KIND_PCFX, defaultTestDisc())

	assert(h.drv.LoadState([]byte{1, 2, 3}) != nil)
	assert(h.drv.LoadState([]byte("XXXXxxxxyyyyzzzz")) != nil)

	blob := h.drv.SaveState()
	assert(h.drv.LoadState(blob[:len(blob)-4]) != nil)
}
