package scsicd

// One mode page parameter byte: its power-up default, the alterable
// mask reported for PC == 1, and the mask of bits MODE SELECT can
// really change
type ModePageParam struct {
	Default       uint8
	AlterableMask uint8
	RealMask      uint8
}

// A mode page: static parameter definitions plus the live values
type ModePage struct {
	Code        uint8
	ParamLength uint8
	Params      []ModePageParam
	Current     [64]uint8
}

const NUM_MODE_PAGES = 5

// Pages present: 0x28, 0x29, 0x2A, 0x2B, 0x0E (plus the legacy 0x00
// pseudo-page and the 0x3F fetch-all code, which are not real pages).
// 0x0E goes last for the correct data order when page code == 0x3F.
// The real masks on 0x0E are guesses; not all of its functionality is
// emulated
var modePageDefs = [NUM_MODE_PAGES]ModePage{
	// Unknown
	{Code: 0x28, ParamLength: 0x04, Params: []ModePageParam{
		{0x00, 0x00, 0xFF},
		{0x00, 0x00, 0xFF},
		{0x00, 0x00, 0xFF},
		{0x00, 0x00, 0xFF},
	}},

	// Unknown
	{Code: 0x29, ParamLength: 0x01, Params: []ModePageParam{
		{0x00, 0x00, 0xFF},
	}},

	// Unknown
	{Code: 0x2A, ParamLength: 0x02, Params: []ModePageParam{
		{0x00, 0x00, 0xFF},
		{0x11, 0x00, 0xFF},
	}},

	// CD-DA playback speed modifier
	{Code: 0x2B, ParamLength: 0x01, Params: []ModePageParam{
		{0x00, 0x00, 0xFF},
	}},

	// CD-ROM audio control parameters
	{Code: 0x0E, ParamLength: 0x0E, Params: []ModePageParam{
		{0x04, 0x04, 0x04}, // Immed
		{0x00, 0x00, 0x00}, // Reserved
		{0x00, 0x00, 0x00}, // Reserved
		{0x00, 0x01, 0x01}, // Reserved?
		{0x00, 0x00, 0x00}, // MSB of LBA per second
		{0x00, 0x00, 0x00}, // LSB of LBA per second
		{0x01, 0x01, 0x03}, // Output port 0 channel selection
		{0xFF, 0x00, 0x00}, // Output port 0 volume
		{0x02, 0x02, 0x03}, // Output port 1 channel selection
		{0xFF, 0x00, 0x00}, // Output port 1 volume
		{0x00, 0x00, 0x00}, // Output port 2 channel selection
		{0x00, 0x00, 0x00}, // Output port 2 volume
		{0x00, 0x00, 0x00}, // Output port 3 channel selection
		{0x00, 0x00, 0x00}, // Output port 3 volume
	}},
}

// Rebuilds the derived caches for one page
func (drv *Drive) updateMPCacheP(mp *ModePage) {
	switch mp.Code {
	case 0x0E:
		for i := 0; i < 2; i++ {
			drv.CDDA.OutPortChSelect[i] = mp.Current[6+i*2]
		}
		drv.fixOPV()

	case 0x28, 0x29, 0x2A:
		// No cached state

	case 0x2B:
		// The range of speed values accessible via the BIOS CD-DA
		// player is apparently -10 to 10; clamp well past that so
		// the playback rate math stays sane
		speed := int(int8(mp.Current[0]))
		if speed < -32 {
			speed = -32
		} else if speed > 32 {
			speed = 32
		}
		rate := 44100 + 441*speed

		drv.CDDA.DivAcc = uint32(int64(drv.SystemClock) * (1 << 20) / int64(2*rate))
		drv.CDDA.DivAccVolFudge = uint8(100 + speed)
		// Resampler impulse amplitude tracks the rate change
		drv.fixOPV()
	}
}

func (drv *Drive) updateMPCache(code uint8) {
	for pi := range drv.ModePages {
		if drv.ModePages[pi].Code == code {
			drv.updateMPCacheP(&drv.ModePages[pi])
			break
		}
	}
}

func (drv *Drive) initModePages() {
	drv.ModePages = modePageDefs

	for pi := range drv.ModePages {
		mp := &drv.ModePages[pi]
		for parami := 0; parami < int(mp.ParamLength); parami++ {
			mp.Current[parami] = mp.Params[parami].Default
		}
		drv.updateMPCacheP(mp)
	}
}

// MODE SELECT(6) finisher, called once the payload has arrived in the
// data-out buffer
func (drv *Drive) finishModeSelect6(data []byte) {
	dataLen := len(data)

	if dataLen < 4 {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return
	}

	// Mode parameter header: mode data length, medium type, device
	// specific, block descriptor length. Only the descriptor length
	// matters here
	blockDescriptorLength := int(data[3])
	offset := 4

	if blockDescriptorLength&0x7 != 0 {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return
	}

	if offset+blockDescriptorLength > dataLen {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return
	}

	// TODO: block descriptors
	offset += blockDescriptorLength

	// Now handle mode pages
	for offset < dataLen {
		code := data[offset]
		offset++
		pageFound := false

		if code == 0x00 {
			// Legacy page, 5 parameter bytes with no length byte
			if offset+0x5 > dataLen {
				drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
				return
			}
			drv.updateMPCache(0x00)
			offset += 0x5
			continue
		}

		if offset >= dataLen {
			drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
			return
		}

		paramLen := data[offset]
		offset++

		for pi := range drv.ModePages {
			mp := &drv.ModePages[pi]

			if code != mp.Code {
				continue
			}
			pageFound = true

			if paramLen != mp.ParamLength {
				drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
				return
			}

			if int(paramLen)+offset > dataLen {
				drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
				return
			}

			for parami := 0; parami < int(mp.ParamLength); parami++ {
				mp.Current[parami] &^= mp.Params[parami].RealMask
				mp.Current[parami] |= data[offset] & mp.Params[parami].RealMask
				offset++
			}

			drv.updateMPCacheP(mp)
			break
		}

		if !pageFound {
			drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
			return
		}
	}

	drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
}

// MODE SELECT(6): arm the data-out phase for the payload, or finish
// immediately when there is none
func (drv *Drive) CommandModeSelect6(cdb []byte) {
	if cdb[4] != 0 {
		drv.CD.DataOutPos = 0
		drv.CD.DataOutWant = cdb[4]
		drv.changePhase(PHASE_DATA_OUT)
	} else {
		drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
	}
}

// MODE SENSE(6)
func (drv *Drive) CommandModeSense6(cdb []byte) {
	pc := (cdb[2] >> 6) & 0x3
	pageCode := cdb[2] & 0x3F
	dbd := cdb[1]&0x08 != 0
	allocSize := int(cdb[4])

	if allocSize == 0 {
		drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
		return
	}

	if pc == 3 {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return
	}

	var dataIn [256]uint8

	if pageCode == 0x00 { // Special legacy case
		if dbd || pc != 0 {
			drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
			return
		}

		dataIn[0] = 0x09
		dataIn[2] = 0x80
		dataIn[9] = 0x0F

		if allocSize > 0xA {
			allocSize = 0xA
		}

		drv.doSimpleDataIn(dataIn[:allocSize])
		return
	}

	dataIn[0] = 0x00 // Length, filled in later
	dataIn[1] = 0x00 // Medium type
	dataIn[2] = 0x00 // Device-specific parameter
	if dbd {
		dataIn[3] = 0x00
	} else {
		dataIn[3] = 0x08 // Block descriptor length
	}
	index := 4

	if !dbd {
		dataIn[index] = 0x00 // Density code
		en24msb(dataIn[index+1:], 0x6E)
		index += 4

		dataIn[index] = 0x00 // Reserved
		en24msb(dataIn[index+1:], 0x800)
		index += 4
	}

	pageMatchOR := uint8(0x00)
	if pageCode == 0x3F {
		pageMatchOR = 0x3F
	}
	anyPageMatch := false

	for pi := range drv.ModePages {
		mp := &drv.ModePages[pi]

		if mp.Code|pageMatchOR != pageCode {
			continue
		}
		anyPageMatch = true

		dataIn[index] = mp.Code
		dataIn[index+1] = mp.ParamLength
		index += 2

		for parami := 0; parami < int(mp.ParamLength); parami++ {
			var data uint8

			switch pc {
			case 0x02:
				data = mp.Params[parami].Default
			case 0x01:
				data = mp.Params[parami].AlterableMask
			default:
				data = mp.Current[parami]
			}

			dataIn[index] = data
			index++
		}
	}

	if !anyPageMatch {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return
	}

	if allocSize > index {
		allocSize = index
	}

	dataIn[0] = uint8(allocSize - 1)

	drv.doSimpleDataIn(dataIn[:allocSize])
}
