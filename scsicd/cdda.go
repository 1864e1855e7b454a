package scsicd

// CD-DA playback status
const (
	CDDASTATUS_PAUSED   int8 = -1
	CDDASTATUS_STOPPED  int8 = 0
	CDDASTATUS_PLAYING  int8 = 1
	CDDASTATUS_SCANNING int8 = 2
)

// CD-DA play modes, selecting what happens at the end of the read
// window
const (
	PLAYMODE_SILENT    uint8 = 0x00
	PLAYMODE_NORMAL    uint8 = 0x01
	PLAYMODE_INTERRUPT uint8 = 0x02
	PLAYMODE_LOOP      uint8 = 0x03
)

// CD-DA engine state. The divisor is Q44.20 fixed point in host clock
// cycles; DivAcc is the per-half-sample reload value
type CDDAState struct {
	DivAcc         uint32
	DivAccVolFudge uint8 // Rate-control volume compensation; 100 = 1.0
	ScanSecEnd     uint32

	PlayMode     uint8
	Volume       [2]int32 // 65536 = 1.0, the maximum
	SectorBuffer [1176]int16
	ReadPos      uint32

	Status   int8
	ScanMode uint8
	Div      int64
	TimeDiv  int32

	// Doubled so the filter loop can run without masking the index
	OversampleBuffer [2][0x10 * 2]int16
	OversamplePos    uint32

	SR [2]int16

	OutPortChSelect      [2]uint8
	OutPortChSelectCache [2]uint32
	OutPortVolumeCache   [2]int32

	DeemphState [2][2]float32
}

// Recomputes the per-output-port volume and channel routing caches
// from the master volume, the audio control mode page and the rate
// fudge
func (drv *Drive) fixOPV() {
	for port := 0; port < 2; port++ {
		tmpvol := drv.CDDA.Volume[port] * 100 / (2 * int32(drv.CDDA.DivAccVolFudge))

		drv.CDDA.OutPortVolumeCache[port] = tmpvol

		if drv.CDDA.OutPortChSelect[port]&0x01 != 0 {
			drv.CDDA.OutPortChSelectCache[port] = 0
		} else if drv.CDDA.OutPortChSelect[port]&0x02 != 0 {
			drv.CDDA.OutPortChSelectCache[port] = 1
		} else {
			drv.CDDA.OutPortChSelectCache[port] = 0
			drv.CDDA.OutPortVolumeCache[port] = 0
		}
	}
}

// Returns the current left/right CD-DA sample pair, or silence when
// nothing is playing
func (drv *Drive) CDDAValues() (left, right int16) {
	if drv.CDDA.Status != CDDASTATUS_STOPPED {
		return drv.CDDA.SR[0], drv.CDDA.SR[1]
	}
	return 0, 0
}

// Scales the per-channel master volume; 1.0 is full scale and values
// above it are clamped
func (drv *Drive) SetCDDAVolume(left, right float64) {
	drv.CDDA.Volume[0] = int32(65536 * left)
	drv.CDDA.Volume[1] = int32(65536 * right)

	for i := 0; i < 2; i++ {
		if drv.CDDA.Volume[i] > 65536 {
			drv.CDDA.Volume[i] = 65536
		}
	}

	drv.fixOPV()
}

// One even oversample step: consume a sector sample, refilling the
// sector buffer (and handling end-of-window actions) when it runs dry.
// Returns false when playback stopped and the caller should bail out
func (drv *Drive) cddaSectorStep() bool {
	cdda := &drv.CDDA

	if cdda.ReadPos == 588 {
		if drv.ReadSec >= drv.ReadSecEnd ||
			(cdda.Status == CDDASTATUS_SCANNING && drv.ReadSec == cdda.ScanSecEnd) {
			switch cdda.PlayMode {
			case PLAYMODE_SILENT, PLAYMODE_NORMAL:
				cdda.Status = CDDASTATUS_STOPPED

			case PLAYMODE_INTERRUPT:
				cdda.Status = CDDASTATUS_STOPPED
				drv.IRQCallback(IRQ_DATA_TRANSFER_DONE)

			case PLAYMODE_LOOP:
				drv.ReadSec = drv.ReadSecStart
			}

			if cdda.Status == CDDASTATUS_STOPPED {
				return false
			}
		}

		// Don't play past the user area of the disc
		if drv.ReadSec >= drv.TOC.Tracks[100].LBA {
			cdda.Status = CDDASTATUS_STOPPED
			return false
		}

		if drv.TrayOpen || drv.Backend == nil {
			cdda.Status = CDDASTATUS_STOPPED
			return false
		}

		cdda.ReadPos = 0

		var tmpbuf [SECTOR_SIZE + SUBCHANNEL_SIZE]uint8

		drv.Backend.ReadRawSector(tmpbuf[:], drv.ReadSec)

		for i := 0; i < 588*2; i++ {
			cdda.SectorBuffer[i] = int16(de16lsb(tmpbuf[i*2:]))
		}

		copy(drv.CD.SubPWBuf[:], tmpbuf[2352:2352+96])
		drv.genSubQFromSubPW()

		if drv.CD.SubQBufLast[0]&0x10 == 0 {
			// Source isn't pre-emphasized; clear the de-emphasis
			// filter state
			cdda.DeemphState = [2][2]float32{}
		}

		if cdda.Status == CDDASTATUS_SCANNING {
			tmpReadSec := int64(drv.ReadSec)

			if cdda.ScanMode&1 != 0 {
				tmpReadSec -= 24
				if tmpReadSec < int64(cdda.ScanSecEnd) {
					tmpReadSec = int64(cdda.ScanSecEnd)
				}
			} else {
				tmpReadSec += 24
				if tmpReadSec > int64(cdda.ScanSecEnd) {
					tmpReadSec = int64(cdda.ScanSecEnd)
				}
			}
			drv.ReadSec = uint32(tmpReadSec)
		} else {
			drv.ReadSec++
		}
	}

	// One subchannel byte goes to the host every six samples; the
	// two leading deliveries are sync filler
	if cdda.ReadPos%6 == 0 {
		subindex := int(cdda.ReadPos)/6 - 2

		if subindex >= 0 {
			drv.StuffSubchannels(drv.CD.SubPWBuf[subindex], subindex)
		} else {
			drv.StuffSubchannels(0x00, subindex)
		}
	}

	// If the last valid sub-Q marks this a data sector, keep the
	// previous sample latched instead of outputting it as audio
	if drv.CD.SubQBufLast[0]&0x40 == 0 && cdda.PlayMode != PLAYMODE_SILENT {
		cdda.SR[0] = cdda.SectorBuffer[cdda.ReadPos*2+cdda.OutPortChSelectCache[0]]
		cdda.SR[1] = cdda.SectorBuffer[cdda.ReadPos*2+cdda.OutPortChSelectCache[1]]
	}

	obwp := cdda.OversamplePos >> 1
	cdda.OversampleBuffer[0][obwp] = cdda.SR[0]
	cdda.OversampleBuffer[0][0x10+obwp] = cdda.SR[0]
	cdda.OversampleBuffer[1][obwp] = cdda.SR[1]
	cdda.OversampleBuffer[1][0x10+obwp] = cdda.SR[1]

	cdda.ReadPos++
	return true
}

// The CD-DA playback loop: produce high-rate sample pairs while the
// divisor owes us output for the elapsed run time
func (drv *Drive) runCDDA(systemTimestamp int64, runTime int32) {
	cdda := &drv.CDDA

	if cdda.Status != CDDASTATUS_PLAYING && cdda.Status != CDDASTATUS_SCANNING {
		return
	}

	cdda.Div -= int64(runTime) << 20

	for cdda.Div <= 0 {
		synthtimeEx := uint32((systemTimestamp<<20 + cdda.Div) / int64(cdda.TimeDiv))
		// Masked to keep the high-rate buffer index in range
		synthtime := int(synthtimeEx >> 16 & 0xFFFF)
		synthtimePhase := int(synthtimeEx&0xFFFF) - 0x80
		synthtimePhaseInt := synthtimePhase >> (16 - CDDA_FILTER_NUMPHASES_SHIFT)
		synthtimePhaseFract := synthtimePhase & (1<<(16-CDDA_FILTER_NUMPHASES_SHIFT) - 1)
		var sampleVA [2]int32

		cdda.Div += int64(cdda.DivAcc)

		if cdda.OversamplePos&1 == 0 {
			if !drv.cddaSectorStep() {
				break
			}
		}

		// 2x oversampling filter, one fixed coefficient vector per
		// sub-phase
		f := &oversampleFilter[cdda.OversamplePos&1]
		for lr := 0; lr < 2; lr++ {
			b := cdda.OversampleBuffer[lr][(cdda.OversamplePos>>1+1)&0xF:]

			var accum int32
			for i := 0; i < 0x10; i++ {
				accum += int32(f[i]) * int32(b[i])
			}

			// sum_abs * cdda_min = 59076 * -32768 = -1935802368;
			// the volume cache tops out at 65536, so the 64 bit
			// product stays in range and the shift lands back in
			// int32
			sampleVA[lr] = int32(int64(accum) * int64(cdda.OutPortVolumeCache[lr]) >> 16)
		}

		// The de-emphasis frequency response isn't exact, but no
		// known PCE CD or PC-FX game uses pre-emphasis anyway
		if drv.CD.SubQBufLast[0]&0x10 != 0 {
			for lr := 0; lr < 2; lr++ {
				inv := float32(sampleVA[lr]) * 0.35971507

				cdda.DeemphState[lr][1] = (cdda.DeemphState[lr][0] - 0.4316396*inv) + 0.7955522*cdda.DeemphState[lr][1]
				cdda.DeemphState[lr][0] = inv

				v := float64(cdda.DeemphState[lr][1])
				if v > 2147483647.0 {
					v = 2147483647.0
				} else if v < -2147483648.0 {
					v = -2147483648.0
				}
				sampleVA[lr] = int32(v)
			}
		}

		if drv.HRBufs[0] != nil && drv.HRBufs[1] != nil {
			// The final shift is 32 to stay on 32x32->64 multiplies
			const multShiftAdj = 32 - (26 + (8 - CDDA_FILTER_NUMPHASES_SHIFT))

			multA := int32(1<<(16-CDDA_FILTER_NUMPHASES_SHIFT)-synthtimePhaseFract) << multShiftAdj
			multB := int32(synthtimePhaseFract) << multShiftAdj
			var coeff [CDDA_FILTER_NUMCONVOLUTIONS]int32

			for c := 0; c < CDDA_FILTER_NUMCONVOLUTIONS; c++ {
				coeff[c] = int32(cddaFilter[1+synthtimePhaseInt][c])*multA +
					int32(cddaFilter[1+synthtimePhaseInt+1][c])*multB
			}

			tb0 := drv.HRBufs[0][synthtime:]
			tb1 := drv.HRBufs[1][synthtime:]

			for c := 0; c < CDDA_FILTER_NUMCONVOLUTIONS; c++ {
				tb0[c] += int32(int64(coeff[c]) * int64(sampleVA[0]) >> 32)
				tb1[c] += int32(int64(coeff[c]) * int64(sampleVA[1]) >> 32)
			}
		}

		cdda.OversamplePos = (cdda.OversamplePos + 1) & 0x1F
	}
}
