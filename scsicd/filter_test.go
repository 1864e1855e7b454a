package scsicd

import "testing"

func TestOversampleFilterGain(t *testing.T) {
	assert := assertFunc(t)

	// Both sub-phase vectors sum to unity gain in Q15 and the second
	// is the reverse of the first
	for p := 0; p < 2; p++ {
		sum := 0
		sumAbs := 0
		for _, c := range oversampleFilter[p] {
			sum += int(c)
			if c < 0 {
				sumAbs -= int(c)
			} else {
				sumAbs += int(c)
			}
		}
		assert(sum == 32768)
		assert(sumAbs == 59076)
	}

	for i := 0; i < 0x10; i++ {
		assert(oversampleFilter[0][i] == oversampleFilter[1][0xF-i])
	}
}

func TestCDDAFilterRows(t *testing.T) {
	assert := assertFunc(t)

	// Every phase row sums to 1<<14, so the linear blend of adjacent
	// rows holds DC flat across the fractional phase sweep
	for row := range cddaFilter {
		sum := 0
		for c := 0; c < CDDA_FILTER_NUMCONVOLUTIONS; c++ {
			sum += int(cddaFilter[row][c])
		}
		assert(sum == 1<<14)

		// The padding tap stays clear
		assert(cddaFilter[row][CDDA_FILTER_NUMCONVOLUTIONS] == 0)
	}

	// The integer-phase rows concentrate on a single tap: row 1 is
	// phase zero, centered on tap 3
	peak := 0
	for c := 0; c < CDDA_FILTER_NUMCONVOLUTIONS; c++ {
		if cddaFilter[1][c] > cddaFilter[1][peak] {
			peak = c
		}
	}
	assert(peak == 3)

	// Full fractional advance shifts the center one tap right
	peak = 0
	for c := 0; c < CDDA_FILTER_NUMCONVOLUTIONS; c++ {
		if cddaFilter[1+CDDA_FILTER_NUMPHASES][c] > cddaFilter[1+CDDA_FILTER_NUMPHASES][peak] {
			peak = c
		}
	}
	assert(peak == 4)
}

// The oversample stage is linear: a DC input of s yields
// s * 32768 * volume >> 16 at every step
func TestOversampleDCResponse(t *testing.T) {
	assert := assertFunc(t)
	h := newTestHost(t, KIND_PCFX, nil)
	cdda := &h.drv.CDDA

	const s = 1000
	for i := range cdda.OversampleBuffer[0] {
		cdda.OversampleBuffer[0][i] = s
		cdda.OversampleBuffer[1][i] = s
	}

	for pos := uint32(0); pos < 0x20; pos++ {
		f := &oversampleFilter[pos&1]
		for lr := 0; lr < 2; lr++ {
			b := cdda.OversampleBuffer[lr][(pos>>1+1)&0xF:]
			var accum int32
			for i := 0; i < 0x10; i++ {
				accum += int32(f[i]) * int32(b[i])
			}
			assert(accum == s*32768)

			va := int32(int64(accum) * int64(cdda.OutPortVolumeCache[lr]) >> 16)
			assert(va == int32(int64(s)*32768*int64(cdda.OutPortVolumeCache[lr])>>16))
		}
	}
}

func TestFixOPVMuting(t *testing.T) {
	assert := assertFunc(t)
	h := newTestHost(t, KIND_PCFX, nil)

	// Defaults: port 0 left, port 1 right, full volume halved by the
	// 2*fudge divider
	assert(h.drv.CDDA.OutPortChSelectCache[0] == 0)
	assert(h.drv.CDDA.OutPortChSelectCache[1] == 1)
	assert(h.drv.CDDA.OutPortVolumeCache[0] == 65536*100/200)

	// A channel select of neither L nor R mutes the port
	h.drv.CDDA.OutPortChSelect[0] = 0x00
	h.drv.fixOPV()
	assert(h.drv.CDDA.OutPortVolumeCache[0] == 0)

	// Master volume scales and clamps
	h.drv.CDDA.OutPortChSelect[0] = 0x01
	h.drv.SetCDDAVolume(0.5, 2.0)
	assert(h.drv.CDDA.Volume[0] == 32768)
	assert(h.drv.CDDA.Volume[1] == 65536)
	assert(h.drv.CDDA.OutPortVolumeCache[0] == 32768*100/200)
}
