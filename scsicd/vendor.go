package scsicd

// NEC vendor command handlers (0xD2-0xDE) for the PC-FX, plus the PC
// Engine CD variants of the audio playback set

func (drv *Drive) CommandNECNOP(cdb []byte) {
	drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
}

// PC-FX 0xDC - EJECT. The emulated tray only opens from the host side
func (drv *Drive) CommandNECEject(cdb []byte) {
	drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_REQUEST_IN_CDB, 0)
}

// PC-FX 0xDB - Set Stop Time
func (drv *Drive) CommandNECSetStopTime(cdb []byte) {
	drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
}

// Decodes the three-way start/end position argument shared by the NEC
// audio commands: cdb[9] selects LBA, BCD MSF or BCD track number
func (drv *Drive) decodeNECPosArg(cdb []byte) (lba uint32, ok bool) {
	switch cdb[9] & 0xC0 {
	default:
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return 0, false

	case 0x00:
		return de24msb(cdb[3:]), true

	case 0x40:
		m, mok := BCDToU8Check(cdb[2])
		s, sok := BCDToU8Check(cdb[3])
		f, fok := BCDToU8Check(cdb[4])
		if !mok || !sok || !fok {
			drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
			return 0, false
		}
		return uint32(AMSFToLBA(m, s, f)), true

	case 0x80:
		track, tok := BCDToU8Check(cdb[2])
		if cdb[2] == 0 || !tok {
			drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
			return 0, false
		}

		if track == drv.TOC.LastTrack+1 {
			track = 100
		} else if track > drv.TOC.LastTrack {
			drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_END_OF_VOLUME, 0)
			return 0, false
		}
		return drv.TOC.Tracks[track].LBA, true
	}
}

// PC-FX 0xD8 - SAPSP ("audio track search"): set the playback start
// position, playing or pausing there depending on cdb[1]
func (drv *Drive) CommandNECSAPSP(cdb []byte) {
	lba, ok := drv.decodeNECPosArg(cdb)
	if !ok {
		return
	}

	length := drv.TOC.Tracks[100].LBA - lba

	if cdb[1]&0x01 != 0 {
		drv.playAudioBase(lba, length, CDDASTATUS_PLAYING, PLAYMODE_NORMAL)
	} else {
		drv.playAudioBase(lba, length, CDDASTATUS_PAUSED, PLAYMODE_SILENT)
	}
}

// PC-FX 0xD9 - SAPEP ("play"): set the playback end position and the
// play mode
func (drv *Drive) CommandNECSAPEP(cdb []byte) {
	if drv.CDDA.Status == CDDASTATUS_STOPPED {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_AUDIO_NOT_PLAYING, 0)
		return
	}

	lba, ok := drv.decodeNECPosArg(cdb)
	if !ok {
		return
	}

	switch cdb[1] & 0x7 {
	case 0x00:
		drv.CDDA.PlayMode = PLAYMODE_SILENT
	case 0x04:
		drv.CDDA.PlayMode = PLAYMODE_LOOP
	default:
		drv.CDDA.PlayMode = PLAYMODE_NORMAL
	}
	drv.CDDA.Status = CDDASTATUS_PLAYING

	drv.ReadSecEnd = lba

	drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
}

// 0xDA - PAUSE ("still")
func (drv *Drive) CommandNECPause(cdb []byte) {
	// Pausing while already paused is fine; pausing with no track
	// playing is not
	if drv.CDDA.Status == CDDASTATUS_STOPPED {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_AUDIO_NOT_PLAYING, 0)
		return
	}

	drv.CDDA.Status = CDDASTATUS_PAUSED
	drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
}

// PC-FX 0xD2 - SCAN: fast playback towards an end position
func (drv *Drive) CommandNECScan(cdb []byte) {
	var sectorTmp uint32

	// cdb[1]: 0x03 = reverse scan, 0x02 = forward scan
	switch cdb[9] & 0xC0 {
	case 0x00:
		sectorTmp = de24msb(cdb[3:])

	case 0x40:
		sectorTmp = uint32(AMSFToLBA(BCDToU8(cdb[2]), BCDToU8(cdb[3]), BCDToU8(cdb[4])))

	case 0x80:
		sectorTmp = drv.TOC.Tracks[BCDToU8(cdb[2])].LBA
	}

	drv.CDDA.ScanMode = cdb[1] & 0x3
	drv.CDDA.ScanSecEnd = sectorTmp

	if drv.CDDA.Status != CDDASTATUS_STOPPED && drv.CDDA.ScanMode != 0 {
		drv.CDDA.Status = CDDASTATUS_SCANNING
	}
	drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
}

// 0xDD - READ SUB Q: 10 byte packed playback status + Q view
func (drv *Drive) CommandNECReadSubQ(cdb []byte) {
	subQ := drv.CD.SubQBuf[QMODE_TIME][:]
	var dataIn [10]uint8
	allocSize := int(cdb[1])
	if allocSize > 10 {
		allocSize = 10
	}

	switch drv.CDDA.Status {
	case CDDASTATUS_PAUSED:
		dataIn[0] = 2 // Pause
	case CDDASTATUS_PLAYING, CDDASTATUS_SCANNING:
		dataIn[0] = 0 // Playing
	default:
		dataIn[0] = 3 // Stopped
	}

	dataIn[1] = subQ[0] // Control/ADR
	dataIn[2] = subQ[1] // Track
	dataIn[3] = subQ[2] // Index
	dataIn[4] = subQ[3] // M (rel)
	dataIn[5] = subQ[4] // S (rel)
	dataIn[6] = subQ[5] // F (rel)
	dataIn[7] = subQ[7] // M (abs)
	dataIn[8] = subQ[8] // S (abs)
	dataIn[9] = subQ[9] // F (abs)

	drv.doSimpleDataIn(dataIn[:allocSize])
}

// Encodes one raw TOC entry the way it appears in the lead-in Q
// subchannel (mode 3 of GET DIR INFO), sans the CRC bytes
func encodeM3TOC(buf []byte, pointerRaw uint8, lba int32, plba uint32, control uint8) {
	m, s, f := LBAToAMSF(uint32(lba))
	pm, ps, pf := LBAToAMSF(plba)

	buf[0x0] = control << 4
	buf[0x1] = 0x00 // TNO
	buf[0x2] = pointerRaw
	buf[0x3] = U8ToBCD(m)
	buf[0x4] = U8ToBCD(s)
	buf[0x5] = U8ToBCD(f)
	buf[0x6] = 0x00 // Zero
	buf[0x7] = U8ToBCD(pm)
	buf[0x8] = U8ToBCD(ps)
	buf[0x9] = U8ToBCD(pf)
}

// PC-FX 0xDE - GET DIR INFO
func (drv *Drive) CommandNECGetDirInfo(cdb []byte) {
	// Mode 0x03 on a real PC-FX has a few semi-indeterminate fields
	// corresponding to where in the lead-in the data was read; not
	// modeled here
	var dataIn [2048]uint8
	var dataInSize int

	switch cdb[1] & 0x03 {
	case 0x3:
		// Raw TOC data as encoded in the lead-in Q subchannel
		lilba := int32(-150)
		match := cdb[2]

		if match != 0x00 && match != 0xA0 && match != 0xA1 && match != 0xA2 && match != 0xB0 {
			drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_ADDRESS, 0)
			return
		}

		// Total size - 2, filled in below
		offset := 2

		if match == 0 || match == 0xA0 {
			encodeM3TOC(dataIn[offset:], 0xA0, lilba,
				uint32(drv.TOC.FirstTrack)*75*60-150, drv.TOC.Tracks[drv.TOC.FirstTrack].Control)
			lilba++
			offset += 0xA
		}

		if match == 0 || match == 0xA1 {
			encodeM3TOC(dataIn[offset:], 0xA1, lilba,
				uint32(drv.TOC.LastTrack)*75*60-150, drv.TOC.Tracks[drv.TOC.LastTrack].Control)
			lilba++
			offset += 0xA
		}

		if match == 0 || match == 0xA2 {
			encodeM3TOC(dataIn[offset:], 0xA2, lilba,
				drv.TOC.Tracks[100].LBA, drv.TOC.Tracks[100].Control)
			lilba++
			offset += 0xA
		}

		if match == 0 {
			for track := int(drv.TOC.FirstTrack); track <= int(drv.TOC.LastTrack); track++ {
				encodeM3TOC(dataIn[offset:], U8ToBCD(uint8(track)), lilba,
					drv.TOC.Tracks[track].LBA, drv.TOC.Tracks[track].Control)
				lilba++
				offset += 0xA
			}
		}

		if match == 0xB0 {
			// Catalog number block? Contents unknown
			offset += 0x14
		}

		dataInSize = offset
		en16msb(dataIn[0:], uint32(offset-2))

	case 0x0:
		dataIn[0] = U8ToBCD(drv.TOC.FirstTrack)
		dataIn[1] = U8ToBCD(drv.TOC.LastTrack)
		dataInSize = 4

	case 0x1:
		m, s, f := LBAToAMSF(drv.TOC.Tracks[100].LBA)

		dataIn[0] = U8ToBCD(m)
		dataIn[1] = U8ToBCD(s)
		dataIn[2] = U8ToBCD(f)
		dataInSize = 4

	case 0x2:
		track := int(BCDToU8(cdb[2]))

		if track < int(drv.TOC.FirstTrack) || track > int(drv.TOC.LastTrack) {
			drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_ADDRESS, 0)
			return
		}

		m, s, f := LBAToAMSF(drv.TOC.Tracks[track].LBA)

		dataIn[0] = U8ToBCD(m)
		dataIn[1] = U8ToBCD(s)
		dataIn[2] = U8ToBCD(f)
		dataIn[3] = drv.TOC.Tracks[track].Control
		dataInSize = 4
	}

	drv.doSimpleDataIn(dataIn[:dataInSize])
}

//
// PC Engine CD variants. The System Card BIOS drives these instead of
// the PC-FX forms; decoding matches but playback state is set up
// differently
//

// PCE 0xD8 - SAPSP
func (drv *Drive) CommandNECPCESAPSP(cdb []byte) {
	lba, ok := drv.decodeNECPosArg(cdb)
	if !ok {
		return
	}

	if lba > drv.TOC.Tracks[100].LBA {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return
	}

	drv.CDDA.ReadPos = 0
	drv.ReadSec = lba
	drv.ReadSecStart = lba
	drv.ReadSecEnd = drv.TOC.Tracks[100].LBA

	if cdb[1]&0x01 != 0 {
		drv.CDDA.Status = CDDASTATUS_PLAYING
		drv.CDDA.PlayMode = PLAYMODE_NORMAL
	} else {
		drv.CDDA.Status = CDDASTATUS_PAUSED
		drv.CDDA.PlayMode = PLAYMODE_SILENT
	}

	if drv.ReadSec < drv.TOC.Tracks[100].LBA {
		drv.Backend.HintReadSector(drv.ReadSec)
	}

	drv.pceLastSAPSPTimestamp = drv.monotonicTimestamp

	drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
}

// PCE 0xD9 - SAPEP. The mode byte selects end-of-play behavior:
// repeat, IRQ notification, or plain stop
func (drv *Drive) CommandNECPCESAPEP(cdb []byte) {
	if drv.CDDA.Status == CDDASTATUS_STOPPED {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_AUDIO_NOT_PLAYING, 0)
		return
	}

	lba, ok := drv.decodeNECPosArg(cdb)
	if !ok {
		return
	}

	drv.ReadSecEnd = lba

	switch cdb[1] & 0x7 {
	case 0x00:
		drv.CDDA.PlayMode = PLAYMODE_SILENT
	case 0x01:
		drv.CDDA.PlayMode = PLAYMODE_LOOP
	case 0x02:
		drv.CDDA.PlayMode = PLAYMODE_INTERRUPT
	default:
		drv.CDDA.PlayMode = PLAYMODE_NORMAL
	}
	drv.CDDA.Status = CDDASTATUS_PLAYING

	drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
}

// PCE 0xDE - GET DIR INFO: BCD results, compact payloads
func (drv *Drive) CommandNECPCEGetDirInfo(cdb []byte) {
	var dataIn [4]uint8
	var dataInSize int

	switch cdb[1] {
	default:
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return

	case 0x0:
		dataIn[0] = U8ToBCD(drv.TOC.FirstTrack)
		dataIn[1] = U8ToBCD(drv.TOC.LastTrack)
		dataInSize = 2

	case 0x1:
		m, s, f := LBAToAMSF(drv.TOC.Tracks[100].LBA)

		dataIn[0] = U8ToBCD(m)
		dataIn[1] = U8ToBCD(s)
		dataIn[2] = U8ToBCD(f)
		dataInSize = 3

	case 0x2:
		track, ok := BCDToU8Check(cdb[2])
		if !ok || track < drv.TOC.FirstTrack || track > drv.TOC.LastTrack {
			drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_ADDRESS, 0)
			return
		}

		m, s, f := LBAToAMSF(drv.TOC.Tracks[track].LBA)

		dataIn[0] = U8ToBCD(m)
		dataIn[1] = U8ToBCD(s)
		dataIn[2] = U8ToBCD(f)
		dataIn[3] = drv.TOC.Tracks[track].Control
		dataInSize = 4
	}

	drv.doSimpleDataIn(dataIn[:dataInSize])
}
