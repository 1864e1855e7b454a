package scsicd

import "testing"

// MODE SELECT writing current values back through MODE SENSE returns
// the same page contents
func TestModeSelectSenseRoundTrip(t *testing.T) {
	assert := assertFunc(t)
	h := newTestHost(t, KIND_PCFX, defaultTestDisc())

	// Set the CD-DA speed page to +5
	payload := []byte{
		0x00, 0x00, 0x00, 0x00, // Mode parameter header
		0x2B, 0x01, 0x05, // Page 0x2B
	}
	h.sendCDB([]byte{0x15, 0, 0, 0, uint8(len(payload)), 0})
	assert(h.drv.Phase == PHASE_DATA_OUT)
	for _, b := range payload {
		h.sendByte(b)
	}
	assert(h.finishStatus() == pcfxStatusGood)

	assert(h.drv.ModePages[3].Current[0] == 0x05)

	// The speed change propagates to the divisor reload
	wantDivAcc := uint32(int64(testSystemClock) * (1 << 20) / int64(2*(44100+441*5)))
	assert(h.drv.CDDA.DivAcc == wantDivAcc)
	assert(h.drv.CDDA.DivAccVolFudge == 105)

	// Read the page back: current values
	status, data := h.doCommand([]byte{0x1A, 0, 0x2B, 0, 0xFF, 0})
	assert(status == pcfxStatusGood)

	// Header + block descriptor + page header + one parameter byte
	assert(len(data) == 4+8+2+1)
	assert(data[0] == uint8(len(data)-1))
	assert(data[3] == 0x08)
	assert(data[12] == 0x2B && data[13] == 0x01 && data[14] == 0x05)
}

func TestModeSenseAllPages(t *testing.T) {
	assert := assertFunc(t)
	h := newTestHost(t, KIND_PCFX, defaultTestDisc())

	status, data := h.doCommand([]byte{0x1A, 0x08, 0x3F, 0, 0xFF, 0})
	assert(status == pcfxStatusGood)

	// DBD set: no block descriptor. Pages in fixed order 0x28,
	// 0x29, 0x2A, 0x2B, 0x0E
	assert(data[3] == 0x00)
	idx := 4
	wantOrder := []uint8{0x28, 0x29, 0x2A, 0x2B, 0x0E}
	for _, code := range wantOrder {
		assert(data[idx] == code)
		idx += 2 + int(data[idx+1])
	}
	assert(idx == len(data))
}

func TestModeSenseAllocZero(t *testing.T) {
	assert := assertFunc(t)
	h := newTestHost(t, KIND_PCFX, defaultTestDisc())

	status, data := h.doCommand([]byte{0x1A, 0, 0x3F, 0, 0x00, 0})
	assert(status == pcfxStatusGood)
	assert(len(data) == 0)
}

func TestModeSensePCVariants(t *testing.T) {
	assert := assertFunc(t)
	h := newTestHost(t, KIND_PCFX, defaultTestDisc())

	// PC=1: alterable mask for page 0x0E
	_, data := h.doCommand([]byte{0x1A, 0x08, 0x40 | 0x0E, 0, 0xFF, 0})
	assert(data[4] == 0x0E)
	assert(data[6] == 0x04) // Immed alterable bit
	assert(data[12] == 0x01)

	// PC=2: defaults
	_, data = h.doCommand([]byte{0x1A, 0x08, 0x80 | 0x0E, 0, 0xFF, 0})
	assert(data[6] == 0x04)
	assert(data[12] == 0x01) // Port 0 routed left by default
	assert(data[14] == 0x02) // Port 1 routed right

	// PC=3 is rejected
	status, _ := h.doCommand([]byte{0x1A, 0x08, 0xC0 | 0x0E, 0, 0xFF, 0})
	assert(status == pcfxStatusCheckCond)
	h.requestSense()
}

func TestModeSenseLegacyPageZero(t *testing.T) {
	assert := assertFunc(t)
	h := newTestHost(t, KIND_PCFX, defaultTestDisc())

	status, data := h.doCommand([]byte{0x1A, 0, 0x00, 0, 0xFF, 0})
	assert(status == pcfxStatusGood)
	assert(len(data) == 10)
	assert(data[0] == 0x09)
	assert(data[2] == 0x80)
	assert(data[9] == 0x0F)
}

func TestModeSelectRespectsRealMask(t *testing.T) {
	assert := assertFunc(t)
	h := newTestHost(t, KIND_PCFX, defaultTestDisc())

	// Try to flip the port 0 volume byte on page 0x0E; its real mask
	// is zero so the value must hold at the default
	var payload [4 + 2 + 14]byte
	payload[4] = 0x0E
	payload[5] = 0x0E
	payload[6+6] = 0x02 // Channel select: right
	payload[6+7] = 0x00 // Volume, not alterable

	h.sendCDB([]byte{0x15, 0, 0, 0, uint8(len(payload)), 0})
	for _, b := range payload[:] {
		h.sendByte(b)
	}
	assert(h.finishStatus() == pcfxStatusGood)

	page := &h.drv.ModePages[4]
	assert(page.Code == 0x0E)
	assert(page.Current[6] == 0x02)
	assert(page.Current[7] == 0xFF)

	// Channel routing cache followed the select change
	assert(h.drv.CDDA.OutPortChSelectCache[0] == 1)
}

func TestModeSelectBadPage(t *testing.T) {
	assert := assertFunc(t)
	h := newTestHost(t, KIND_PCFX, defaultTestDisc())

	payload := []byte{0, 0, 0, 0, 0x31, 0x01, 0x00}
	h.sendCDB([]byte{0x15, 0, 0, 0, uint8(len(payload)), 0})
	for _, b := range payload {
		h.sendByte(b)
	}
	assert(h.finishStatus() == pcfxStatusCheckCond)

	sense := h.requestSense()
	assert(sense[2] == SENSEKEY_ILLEGAL_REQUEST)
	assert(sense[12] == NSE_INVALID_PARAMETER)
}

func TestModeSelectZeroLength(t *testing.T) {
	assert := assertFunc(t)
	h := newTestHost(t, KIND_PCFX, defaultTestDisc())

	status, _ := h.doCommand([]byte{0x15, 0, 0, 0, 0, 0})
	assert(status == pcfxStatusGood)
}
