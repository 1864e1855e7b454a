package scsicd

// Command table entry flags
const (
	SCF_REQUIRES_MEDIUM uint32 = 0x0001
	SCF_INCOMPLETE      uint32 = 0x4000
	SCF_UNTESTED        uint32 = 0x8000
)

type scsiCommand struct {
	cmd        uint8
	flags      uint32
	fn         func(*Drive, []byte)
	prettyName string
}

// CDB length by opcode group (top nibble)
var requiredCDBLen = [16]int32{
	6,  // 0x0n
	6,  // 0x1n
	10, // 0x2n
	10, // 0x3n
	10, // 0x4n
	10, // 0x5n
	10, // 0x6n
	10, // 0x7n
	10, // 0x8n
	10, // 0x9n
	12, // 0xAn
	12, // 0xBn
	10, // 0xCn
	10, // 0xDn
	10, // 0xEn
	10, // 0xFn
}

var pcfxCommandDefs = []scsiCommand{
	{0x00, SCF_REQUIRES_MEDIUM, (*Drive).CommandTestUnitReady, "Test Unit Ready"},
	{0x01, 0 /* ? */, (*Drive).CommandRezeroUnit, "Rezero Unit"},
	{0x03, 0, (*Drive).CommandRequestSense, "Request Sense"},
	{0x08, SCF_REQUIRES_MEDIUM, (*Drive).CommandRead6, "Read(6)"},
	{0x0B, SCF_REQUIRES_MEDIUM, (*Drive).CommandSeek6, "Seek(6)"},
	{0x0D, 0, (*Drive).CommandNECNOP, "No Operation"},
	{0x12, 0, (*Drive).CommandInquiry, "Inquiry"},
	{0x15, 0, (*Drive).CommandModeSelect6, "Mode Select(6)"},
	{0x1A, 0, (*Drive).CommandModeSense6, "Mode Sense(6)"},
	{0x1B, SCF_REQUIRES_MEDIUM, (*Drive).CommandStartStopUnit, "Start/Stop Unit"},
	{0x1E, 0, (*Drive).CommandPreventAllowRemoval, "Prevent/Allow Media Removal"},

	{0x25, SCF_REQUIRES_MEDIUM, (*Drive).CommandReadCDCap10, "Read CD-ROM Capacity"},
	{0x28, SCF_REQUIRES_MEDIUM, (*Drive).CommandRead10, "Read(10)"},
	{0x2B, SCF_REQUIRES_MEDIUM, (*Drive).CommandSeek10, "Seek(10)"},

	{0x34, SCF_REQUIRES_MEDIUM, (*Drive).CommandPrefetch, "Prefetch"},

	{0x42, SCF_REQUIRES_MEDIUM, (*Drive).CommandReadSubchannel, "Read Subchannel"},
	{0x43, SCF_REQUIRES_MEDIUM, (*Drive).CommandReadTOC, "Read TOC"},
	{0x44, SCF_REQUIRES_MEDIUM, (*Drive).CommandReadHeader10, "Read Header"},

	{0x45, SCF_REQUIRES_MEDIUM, (*Drive).CommandPlayAudio10, "Play Audio(10)"},
	{0x47, SCF_REQUIRES_MEDIUM, (*Drive).CommandPlayAudioMSF, "Play Audio MSF"},
	{0x48, SCF_REQUIRES_MEDIUM, (*Drive).CommandPlayAudioTrackIndex, "Play Audio Track Index"},
	{0x49, SCF_REQUIRES_MEDIUM, (*Drive).CommandPlayAudioTrackRel10, "Play Audio Track Relative(10)"},
	{0x4B, SCF_REQUIRES_MEDIUM, (*Drive).CommandPauseResume, "Pause/Resume"},

	{0xA5, SCF_REQUIRES_MEDIUM, (*Drive).CommandPlayAudio12, "Play Audio(12)"},
	{0xA8, SCF_REQUIRES_MEDIUM, (*Drive).CommandRead12, "Read(12)"},
	{0xA9, SCF_REQUIRES_MEDIUM, (*Drive).CommandPlayAudioTrackRel12, "Play Audio Track Relative(12)"},

	{0xD2, SCF_REQUIRES_MEDIUM, (*Drive).CommandNECScan, "Scan"},
	{0xD8, SCF_REQUIRES_MEDIUM, (*Drive).CommandNECSAPSP, "Set Audio Playback Start Position"},
	{0xD9, SCF_REQUIRES_MEDIUM, (*Drive).CommandNECSAPEP, "Set Audio Playback End Position"},
	{0xDA, SCF_REQUIRES_MEDIUM, (*Drive).CommandNECPause, "Pause"},
	{0xDB, SCF_REQUIRES_MEDIUM | SCF_UNTESTED, (*Drive).CommandNECSetStopTime, "Set Stop Time"},
	{0xDC, SCF_REQUIRES_MEDIUM, (*Drive).CommandNECEject, "Eject"},
	{0xDD, SCF_REQUIRES_MEDIUM, (*Drive).CommandNECReadSubQ, "Read Subchannel Q"},
	{0xDE, SCF_REQUIRES_MEDIUM, (*Drive).CommandNECGetDirInfo, "Get Dir Info"},
}

var pceCommandDefs = []scsiCommand{
	{0x00, SCF_REQUIRES_MEDIUM, (*Drive).CommandTestUnitReady, "Test Unit Ready"},
	{0x03, 0, (*Drive).CommandRequestSense, "Request Sense"},
	{0x08, SCF_REQUIRES_MEDIUM, (*Drive).CommandRead6, "Read(6)"},
	{0xD8, SCF_REQUIRES_MEDIUM, (*Drive).CommandNECPCESAPSP, "Set Audio Playback Start Position"},
	{0xD9, SCF_REQUIRES_MEDIUM, (*Drive).CommandNECPCESAPEP, "Set Audio Playback End Position"},
	{0xDA, SCF_REQUIRES_MEDIUM, (*Drive).CommandNECPause, "Pause"},
	{0xDD, SCF_REQUIRES_MEDIUM, (*Drive).CommandNECReadSubQ, "Read Subchannel Q"},
	{0xDE, SCF_REQUIRES_MEDIUM, (*Drive).CommandNECPCEGetDirInfo, "Get Dir Info"},
}

// Looks up and runs the fully received CDB in the command buffer
func (drv *Drive) dispatchCommand() {
	defs := pceCommandDefs
	if drv.Kind == KIND_PCFX {
		defs = pcfxCommandDefs
	}

	cdbLen := requiredCDBLen[drv.CD.CommandBuffer[0]>>4]
	cdb := drv.CD.CommandBuffer[:cdbLen]

	var cmd *scsiCommand
	for i := range defs {
		if defs[i].cmd == cdb[0] {
			cmd = &defs[i]
			break
		}
	}

	if drv.Log != nil {
		name := "!!BAD COMMAND!!"
		untested := ""
		if cmd != nil {
			name = cmd.prettyName
			if cmd.flags&SCF_UNTESTED != 0 {
				untested = "(UNTESTED)"
			}
		}
		drv.Log("SCSI", "Command: %02x, %s%s  % 02x", cdb[0], name, untested, cdb)
	}

	if cmd == nil {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_COMMAND, 0)
		drv.CD.CommandBufferPos = 0
		return
	}

	switch {
	case drv.TrayOpen && cmd.flags&SCF_REQUIRES_MEDIUM != 0:
		drv.commandCCError(SENSEKEY_NOT_READY, NSE_TRAY_OPEN, 0)

	case drv.Backend == nil && cmd.flags&SCF_REQUIRES_MEDIUM != 0:
		drv.commandCCError(SENSEKEY_NOT_READY, NSE_NO_DISC, 0)

	case drv.CD.DiscChanged && cmd.flags&SCF_REQUIRES_MEDIUM != 0:
		drv.commandCCError(SENSEKEY_UNIT_ATTENTION, NSE_DISC_CHANGED, 0)
		drv.CD.DiscChanged = false

	default:
		prevPS := drv.CDDA.Status == CDDASTATUS_PLAYING || drv.CDDA.Status == CDDASTATUS_SCANNING

		cmd.fn(drv, cdb)

		newPS := drv.CDDA.Status == CDDASTATUS_PLAYING || drv.CDDA.Status == CDDASTATUS_SCANNING

		// Starting playback through a command begins from silence
		if !prevPS && newPS {
			drv.CDDA.SR = [2]int16{}
			drv.CDDA.OversampleBuffer = [2][0x20]int16{}
			drv.CDDA.DeemphState = [2][2]float32{}
		}
	}

	drv.CD.CommandBufferPos = 0
}

func (drv *Drive) CommandTestUnitReady(cdb []byte) {
	drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
}

func (drv *Drive) CommandRezeroUnit(cdb []byte) {
	drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
}

func (drv *Drive) CommandStartStopUnit(cdb []byte) {
	// Immed, LoEj and Start are all ignored
	drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
}

func (drv *Drive) CommandPreventAllowRemoval(cdb []byte) {
	drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_REQUEST_IN_CDB, 0)
}

func (drv *Drive) CommandRequestSense(cdb []byte) {
	var dataIn [18]uint8

	MakeSense(dataIn[:], drv.CD.KeyPending, drv.CD.ASCPending, drv.CD.ASCQPending, drv.CD.FRUPending)

	drv.doSimpleDataIn(dataIn[:])

	drv.CD.KeyPending = 0
	drv.CD.ASCPending = 0
	drv.CD.ASCQPending = 0
	drv.CD.FRUPending = 0
}

// Inquiry data for the PC-FX unit. Miraculum behaves differently if
// the last byte is 0x45 ('E'), running an extra MODE SELECT; the
// trailing 0x20 is deliberate
var inqData = [0x24]uint8{
	// Peripheral device-type: CD-ROM/read-only direct access device
	0x05,

	// Removable media, device-type qualifier 0
	0x80,

	// ISO version 0, ECMA version 0, ANSI version 2
	0x02,

	// Response data format 0
	0x00,

	// Additional length
	0x1F,

	// Reserved
	0x00, 0x00,

	// No special features
	0x00,

	// 8-15, vendor ID
	'N', 'E', 'C', ' ', ' ', ' ', ' ', ' ',

	// 16-31, product ID
	'C', 'D', '-', 'R', 'O', 'M', ' ', 'D', 'R', 'I', 'V', 'E', ':', 'F', 'X', ' ',

	// 32-35, product revision level
	'1', '.', '0', ' ',
}

func (drv *Drive) CommandInquiry(cdb []byte) {
	allocSize := int(cdb[4])
	if allocSize > len(inqData) {
		allocSize = len(inqData)
	}

	if allocSize != 0 {
		drv.doSimpleDataIn(inqData[:allocSize])
	} else {
		drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
	}
}

func (drv *Drive) CommandReadTOC(cdb []byte) {
	firstTrack := int(drv.TOC.FirstTrack)
	lastTrack := int(drv.TOC.LastTrack)
	startingTrack := int(cdb[6])
	allocSize := int(de16msb(cdb[7:]))
	wantInMSF := cdb[1]&0x2 != 0

	if allocSize == 0 {
		drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
		return
	}

	if cdb[1]&^uint8(0x2) != 0 || cdb[2] != 0 || cdb[3] != 0 || cdb[4] != 0 || cdb[5] != 0 || cdb[9] != 0 {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return
	}

	if startingTrack == 0 {
		startingTrack = 1
	} else if startingTrack == 0xAA {
		startingTrack = lastTrack + 1
	} else if startingTrack > lastTrack {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return
	}

	var dataIn [4 + 101*8]uint8

	dataIn[2] = uint8(firstTrack)
	dataIn[3] = uint8(lastTrack)
	realSize := 4

	// The leadout is reported as track 0xAA after the last track
	for track := startingTrack; track <= lastTrack+1; track++ {
		sub := dataIn[realSize:]
		effTrack := track
		if track == lastTrack+1 {
			effTrack = 100
		}

		lba := drv.TOC.Tracks[effTrack].LBA
		m, s, f := LBAToAMSF(lba)

		sub[0] = 0
		sub[1] = drv.TOC.Tracks[effTrack].Control | drv.TOC.Tracks[effTrack].ADR<<4

		if effTrack == 100 {
			sub[2] = 0xAA
		} else {
			sub[2] = uint8(track)
		}

		sub[3] = 0

		if wantInMSF {
			sub[4] = 0
			sub[5] = m
			sub[6] = s
			sub[7] = f
		} else {
			en32msb(sub[4:], lba)
		}
		realSize += 8
	}

	// PC-FX: a too-small AllocSize doesn't reflect in the length field
	en16msb(dataIn[0:], uint32(realSize-2))

	if allocSize > realSize {
		allocSize = realSize
	}
	drv.doSimpleDataIn(dataIn[:allocSize])
}

func (drv *Drive) CommandReadCDCap10(cdb []byte) {
	pmi := cdb[8]&0x1 != 0
	lba := de32msb(cdb[2:])
	var dataIn [8]uint8

	if lba > 0x05FF69 {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_END_OF_VOLUME, 0)
		return
	}

	retLBA := drv.TOC.Tracks[100].LBA - 1

	if pmi {
		// Find the track containing the LBA, then the first track
		// after it with a different type (audio/data); report the
		// sector preceding that track
		if lba >= drv.TOC.Tracks[100].LBA {
			retLBA = drv.TOC.Tracks[100].LBA - 1
		} else if lba < drv.TOC.Tracks[drv.TOC.FirstTrack].LBA {
			retLBA = drv.TOC.Tracks[drv.TOC.FirstTrack].LBA - 1
		} else {
			track := drv.TOC.FindTrackByLBA(lba)

			for st := track + 1; st <= uint32(drv.TOC.LastTrack); st++ {
				if (drv.TOC.Tracks[st].Control^drv.TOC.Tracks[track].Control)&0x4 != 0 {
					retLBA = drv.TOC.Tracks[st].LBA - 1
					break
				}
			}
		}
	}

	en32msb(dataIn[0:], retLBA)
	en32msb(dataIn[4:], 2048)

	drv.CDDA.Status = CDDASTATUS_STOPPED

	drv.doSimpleDataIn(dataIn[:])
}

func (drv *Drive) CommandReadHeader10(cdb []byte) {
	wantInMSF := cdb[1]&0x2 != 0
	headerLBA := de32msb(cdb[2:])
	allocSize := int(de16msb(cdb[7:]))

	// A real PC-FX returns success with AllocSize == 0 even with no
	// disc present
	if allocSize == 0 {
		drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
		return
	}

	if headerLBA >= drv.TOC.Tracks[100].LBA {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return
	}

	if headerLBA < drv.TOC.Tracks[drv.TOC.FirstTrack].LBA {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return
	}

	var rawBuf [SECTOR_SIZE + SUBCHANNEL_SIZE]uint8

	drv.Backend.ReadRawSector(rawBuf[:], headerLBA)
	if !drv.validateRawDataSector(rawBuf[:], headerLBA) {
		return
	}

	m := BCDToU8(rawBuf[12+0])
	s := BCDToU8(rawBuf[12+1])
	f := BCDToU8(rawBuf[12+2])
	mode := rawBuf[12+3]
	lba := AMSFToLBA(m, s, f)

	var dataIn [8]uint8

	dataIn[0] = mode

	if wantInMSF {
		dataIn[4] = 0
		dataIn[5] = m
		dataIn[6] = s
		dataIn[7] = f
	} else {
		en32msb(dataIn[4:], uint32(lba))
	}

	drv.CDDA.Status = CDDASTATUS_STOPPED

	drv.doSimpleDataIn(dataIn[:])
}

func (drv *Drive) CommandReadSubchannel(cdb []byte) {
	dataFormat := cdb[3]
	trackNum := int(cdb[6])
	allocSize := int(de16msb(cdb[7:]))
	wantQ := cdb[2]&0x40 != 0
	wantMSF := cdb[1]&0x02 != 0

	if allocSize == 0 {
		drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
		return
	}

	if dataFormat > 0x3 {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return
	}

	if dataFormat == 0x3 && (trackNum < int(drv.TOC.FirstTrack) || trackNum > int(drv.TOC.LastTrack)) {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return
	}

	var dataIn [128]uint8
	offset := 0

	dataIn[offset] = 0
	offset++

	switch drv.CDDA.Status {
	case CDDASTATUS_PLAYING, CDDASTATUS_SCANNING:
		dataIn[offset] = 0x11 // Audio play operation in progress
	case CDDASTATUS_PAUSED:
		dataIn[offset] = 0x12 // Audio play operation paused
	default:
		dataIn[offset] = 0x13 // Audio play operation completed
	}
	offset++

	// Subchannel data length, filled out at the end
	offset += 2

	if wantQ {
		subQ := drv.CD.SubQBuf[QMODE_TIME][:]

		dataIn[offset] = dataFormat
		offset++

		if dataFormat == 0x00 || dataFormat == 0x01 {
			dataIn[offset] = subQ[0]&0x0F<<4 | subQ[0]&0xF0>>4 // Control/ADR
			dataIn[offset+1] = subQ[1]                         // Track
			dataIn[offset+2] = subQ[2]                         // Index
			offset += 3

			// Absolute CD-ROM address
			if wantMSF {
				dataIn[offset] = 0
				dataIn[offset+1] = BCDToU8(subQ[7])
				dataIn[offset+2] = BCDToU8(subQ[8])
				dataIn[offset+3] = BCDToU8(subQ[9])
			} else {
				lba := uint32(BCDToU8(subQ[7]))*60*75 + uint32(BCDToU8(subQ[8]))*75 + uint32(BCDToU8(subQ[9])) - 150
				en32msb(dataIn[offset:], lba)
			}
			offset += 4

			// Relative CD-ROM address
			if wantMSF {
				dataIn[offset] = 0
				dataIn[offset+1] = BCDToU8(subQ[3])
				dataIn[offset+2] = BCDToU8(subQ[4])
				dataIn[offset+3] = BCDToU8(subQ[5])
			} else {
				// No 150 sector offset on the track-relative form
				lba := uint32(BCDToU8(subQ[3]))*60*75 + uint32(BCDToU8(subQ[4]))*75 + uint32(BCDToU8(subQ[5]))
				en32msb(dataIn[offset:], lba)
			}
			offset += 4
		}

		// Media catalog number; not stored, reported as absent
		if dataFormat == 0x00 || dataFormat == 0x02 {
			if dataFormat == 0x02 {
				offset += 3
			}
			offset += 16 // MCVal, reserved, zero-filled MCN
		}

		// Track ISRC; same deal
		if dataFormat == 0x00 || dataFormat == 0x03 {
			if dataFormat == 0x03 {
				dataIn[offset] = subQ[0]&0x0F<<4 | subQ[0]&0xF0>>4
				dataIn[offset+1] = uint8(trackNum)
				offset += 3
			}
			offset += 16
		}
	}

	en16msb(dataIn[0x2:], uint32(offset-0x4))

	if allocSize > offset {
		allocSize = offset
	}
	drv.doSimpleDataIn(dataIn[:allocSize])
}

// Shared implementation of the PLAY AUDIO family
func (drv *Drive) playAudioBase(lba, length uint32, status int8, mode uint8) {
	// > instead of >= is not a typo; PC-FX quirk
	if lba > drv.TOC.Tracks[100].LBA {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return
	}

	if lba < drv.TOC.Tracks[drv.TOC.FirstTrack].LBA {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return
	}

	if length == 0 {
		drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
		return
	}

	if drv.TOC.Tracks[drv.TOC.FindTrackByLBA(lba)].Control&0x04 != 0 {
		drv.commandCCError(SENSEKEY_MEDIUM_ERROR, NSE_NOT_AUDIO_TRACK, 0)
		return
	}

	drv.CDDA.ReadPos = 588
	drv.ReadSec = lba
	drv.ReadSecStart = lba
	drv.ReadSecEnd = lba + length

	drv.CDDA.Status = status
	drv.CDDA.PlayMode = mode

	if drv.ReadSec < drv.TOC.Tracks[100].LBA {
		drv.Backend.HintReadSector(drv.ReadSec)
	}

	drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
}

func (drv *Drive) CommandPlayAudio10(cdb []byte) {
	lba := de32msb(cdb[2:])
	length := de16msb(cdb[7:])

	drv.playAudioBase(lba, length, CDDASTATUS_PLAYING, PLAYMODE_NORMAL)
}

func (drv *Drive) CommandPlayAudio12(cdb []byte) {
	lba := de32msb(cdb[2:])
	length := de32msb(cdb[6:])

	drv.playAudioBase(lba, length, CDDASTATUS_PLAYING, PLAYMODE_NORMAL)
}

func (drv *Drive) CommandPlayAudioMSF(cdb []byte) {
	lbaStart := AMSFToLBA(cdb[3], cdb[4], cdb[5])
	lbaEnd := AMSFToLBA(cdb[6], cdb[7], cdb[8])

	if lbaStart < 0 || lbaEnd < 0 || lbaStart >= int32(drv.TOC.Tracks[100].LBA) {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_END_OF_VOLUME, 0)
		return
	}

	if lbaStart == lbaEnd {
		drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
		return
	} else if lbaStart > lbaEnd {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_ADDRESS, 0)
		return
	}

	if drv.TOC.Tracks[drv.TOC.FindTrackByLBA(uint32(lbaStart))].Control&0x04 != 0 {
		drv.commandCCError(SENSEKEY_MEDIUM_ERROR, NSE_NOT_AUDIO_TRACK, 0)
		return
	}

	drv.CDDA.ReadPos = 588
	drv.ReadSec = uint32(lbaStart)
	drv.ReadSecStart = uint32(lbaStart)
	drv.ReadSecEnd = uint32(lbaEnd)

	drv.CDDA.Status = CDDASTATUS_PLAYING
	drv.CDDA.PlayMode = PLAYMODE_NORMAL

	drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
}

func (drv *Drive) CommandPlayAudioTrackIndex(cdb []byte) {
	// The index fields aren't handled; "Boundary Gate" uses this
	// command with whole tracks
	startTrack := int(cdb[4])
	endTrack := int(cdb[7])

	if startTrack == 0 || startTrack < int(drv.TOC.FirstTrack) || startTrack > int(drv.TOC.LastTrack) {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return
	}

	drv.playAudioBase(drv.TOC.Tracks[startTrack].LBA,
		drv.TOC.Tracks[endTrack].LBA-drv.TOC.Tracks[startTrack].LBA,
		CDDASTATUS_PLAYING, PLAYMODE_NORMAL)
}

// Track-relative play rejects the leadout, unlike the plain base
func (drv *Drive) playAudioTrackRelBase(lba, length uint32) {
	if lba >= drv.TOC.Tracks[100].LBA {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return
	}

	if lba < drv.TOC.Tracks[drv.TOC.FirstTrack].LBA {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return
	}

	if length == 0 {
		drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
		return
	}

	if drv.TOC.Tracks[drv.TOC.FindTrackByLBA(lba)].Control&0x04 != 0 {
		drv.commandCCError(SENSEKEY_MEDIUM_ERROR, NSE_NOT_AUDIO_TRACK, 0)
		return
	}

	drv.CDDA.ReadPos = 588
	drv.ReadSec = lba
	drv.ReadSecStart = lba
	drv.ReadSecEnd = lba + length

	drv.CDDA.Status = CDDASTATUS_PLAYING
	drv.CDDA.PlayMode = PLAYMODE_NORMAL

	drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
}

func (drv *Drive) CommandPlayAudioTrackRel10(cdb []byte) {
	relLBA := int32(de32msb(cdb[2:]))
	startTrack := int(cdb[6])
	length := de16msb(cdb[7:])

	if startTrack == 0 || startTrack < int(drv.TOC.FirstTrack) || startTrack > int(drv.TOC.LastTrack) {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return
	}

	drv.playAudioTrackRelBase(uint32(int32(drv.TOC.Tracks[startTrack].LBA)+relLBA), length)
}

func (drv *Drive) CommandPlayAudioTrackRel12(cdb []byte) {
	relLBA := int32(de32msb(cdb[2:]))
	startTrack := int(cdb[10])
	length := de32msb(cdb[6:])

	if startTrack == 0 || startTrack < int(drv.TOC.FirstTrack) || startTrack > int(drv.TOC.LastTrack) {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_INVALID_PARAMETER, 0)
		return
	}

	drv.playAudioTrackRelBase(uint32(int32(drv.TOC.Tracks[startTrack].LBA)+relLBA), length)
}

func (drv *Drive) CommandPauseResume(cdb []byte) {
	// "It shall not be considered an error to request a pause when a
	// pause is already in effect, or to request a resume when a play
	// operation is in progress."
	if drv.CDDA.Status == CDDASTATUS_STOPPED {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_AUDIO_NOT_PLAYING, 0)
		return
	}

	if cdb[8]&1 != 0 { // Resume
		drv.CDDA.Status = CDDASTATUS_PLAYING
	} else {
		drv.CDDA.Status = CDDASTATUS_PAUSED
	}

	drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
}

// Shared implementation of READ(6), READ(10) and READ(12)
func (drv *Drive) readBase(sa, sc uint32) {
	// Another off-by-one quirk: > instead of >=
	if sa > drv.TOC.Tracks[100].LBA {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_END_OF_VOLUME, 0)
		return
	}

	if sc == 0 && sa == drv.TOC.Tracks[100].LBA {
		drv.commandCCError(SENSEKEY_MEDIUM_ERROR, NSE_HEADER_READ_ERROR, 0)
		return
	}

	track := drv.TOC.FindTrackByLBA(sa)
	if track == 0 {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_END_OF_VOLUME, 0)
		return
	}

	if drv.Log != nil {
		offset := sa - drv.TOC.Tracks[track].LBA
		drv.Log("SCSI", "Read: start=0x%08x(track=%d, offs=0x%08x), cnt=0x%08x", sa, track, offset, sc)
	}

	drv.SectorAddr = sa
	drv.SectorCount = sc
	if drv.SectorCount != 0 {
		drv.Backend.HintReadSector(sa)

		mult := uint64(1)
		if drv.Kind == KIND_PCE {
			mult = 3
		}
		drv.CDReadTimer = int32(mult * 2048 * uint64(drv.SystemClock) / uint64(drv.TransferRate))
	} else {
		drv.CDReadTimer = 0
		drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
	}
	drv.CDDA.Status = CDDASTATUS_STOPPED
}

func (drv *Drive) CommandRead6(cdb []byte) {
	sa := uint32(cdb[1]&0x1F)<<16 | uint32(cdb[2])<<8 | uint32(cdb[3])
	sc := uint32(cdb[4])

	// Transfer length 0 means 256 sectors on READ(6)
	if sc == 0 {
		sc = 256
	}

	drv.readBase(sa, sc)
}

func (drv *Drive) CommandRead10(cdb []byte) {
	sa := de32msb(cdb[2:])
	sc := de16msb(cdb[7:])

	drv.readBase(sa, sc)
}

func (drv *Drive) CommandRead12(cdb []byte) {
	sa := de32msb(cdb[2:])
	sc := de32msb(cdb[6:])

	drv.readBase(sa, sc)
}

func (drv *Drive) CommandPrefetch(cdb []byte) {
	lba := de32msb(cdb[2:])

	// A real PC-FX appears to lock up to some degree when
	// lba + length >= leadout; not modeled
	if lba >= drv.TOC.Tracks[100].LBA {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_END_OF_VOLUME, 0)
		return
	}

	drv.sendStatusAndMessage(STATUS_CONDITION_MET, 0x00)
}

// Seeks are stubs until seek delays are emulated
func (drv *Drive) seekBase(lba uint32) {
	if lba >= drv.TOC.Tracks[100].LBA {
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_END_OF_VOLUME, 0)
		return
	}

	drv.CDDA.Status = CDDASTATUS_STOPPED
	drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
}

func (drv *Drive) CommandSeek6(cdb []byte) {
	lba := uint32(cdb[1]&0x1F)<<16 | uint32(cdb[2])<<8 | uint32(cdb[3])
	drv.seekBase(lba)
}

func (drv *Drive) CommandSeek10(cdb []byte) {
	drv.seekBase(de32msb(cdb[2:]))
}
