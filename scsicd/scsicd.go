package scsicd

// Which host machine the drive is wired into
type DriveKind int

const (
	KIND_PCE  DriveKind = iota // PC Engine CD / TurboGrafx-CD
	KIND_PCFX                  // PC-FX
)

// Bus signal bits
const (
	SIGNAL_BSY uint16 = 0x001
	SIGNAL_REQ uint16 = 0x002
	SIGNAL_IO  uint16 = 0x004
	SIGNAL_CD  uint16 = 0x008
	SIGNAL_MSG uint16 = 0x010
	SIGNAL_ACK uint16 = 0x020
	SIGNAL_RST uint16 = 0x040
	SIGNAL_SEL uint16 = 0x080
	SIGNAL_ATN uint16 = 0x100
)

// Codes passed to the host IRQ callback. IRQ_DEASSERT is ORed in for
// the falling edge of the done/ready conditions
const (
	IRQ_DATA_TRANSFER_DONE  = 0x01
	IRQ_DATA_TRANSFER_READY = 0x02
	IRQ_MAGICAL_REQ         = 0x04
	IRQ_DEASSERT            = 0x8000
)

// SCSI bus phase
type Phase int

const (
	PHASE_BUS_FREE Phase = iota
	PHASE_COMMAND
	PHASE_DATA_IN
	PHASE_DATA_OUT
	PHASE_STATUS
	PHASE_MESSAGE_IN
	PHASE_MESSAGE_OUT
)

// State of the SCSI bus: the 8 bit data latch and the control signals
type Bus struct {
	DB      uint8
	Signals uint16
}

// Returns true if every signal in `mask` is asserted
func (bus *Bus) Asserted(mask uint16) bool {
	return bus.Signals&mask == mask
}

// Target-side unit state
type Unit struct {
	LastRSTSignal bool

	// The pending message to send in the message phase
	MessagePending uint8

	StatusSent  bool
	MessageSent bool

	// Pending sense data, surfaced by REQUEST SENSE
	KeyPending  uint8
	ASCPending  uint8
	ASCQPending uint8
	FRUPending  uint8

	CommandBuffer    [256]uint8
	CommandBufferPos uint8

	// False while a multi-sector read still has sectors to deliver,
	// true once everything pending is in the FIFO
	DataTransferDone bool

	// Staging buffer for host to drive transfers (MODE SELECT payload)
	DataOut     [256]uint8
	DataOutPos  uint8
	DataOutWant uint8

	DiscChanged bool

	SubQBuf     [4][0xC]uint8 // One per Q addressing mode
	SubQBufLast [0xC]uint8    // Most recent valid Q packet regardless of mode
	SubPWBuf    [96]uint8
}

// An emulated SCSI-2 CD-ROM drive (NEC CD-ROM DRIVE:FX and the PC
// Engine CD unit). The host drives the bus signals at arbitrary
// timestamp granularity through Run
type Drive struct {
	Kind  DriveKind
	Bus   Bus
	CD    Unit
	CDDA  CDDAState
	Phase Phase

	Din *FIFO

	TrayOpen bool
	Backend  DiscBackend
	TOC      TOC

	// Current CD-DA read window and cursor
	ReadSecStart uint32
	ReadSec      uint32
	ReadSecEnd   uint32

	// Data sector read scheduler
	CDReadTimer int32
	SectorAddr  uint32
	SectorCount uint32

	ModePages [NUM_MODE_PAGES]ModePage

	TransferRate uint32
	SystemClock  uint32
	HRBufs       [2][]int32

	IRQCallback      func(code int)
	StuffSubchannels func(b uint8, subindex int)
	Log              func(subsys, format string, args ...interface{})

	lastTS                int64
	monotonicTimestamp    int64
	pceLastSAPSPTimestamp int64
}

// Returns a new drive instance. The high-rate buffers must each hold
// at least 0x10000+8 accumulators; the host resampler consumes them.
// `cddaTimeDiv` relates the host clock to the high-rate buffer index
func NewDrive(kind DriveKind, cddaTimeDiv int, hrbufL, hrbufR []int32,
	transferRate, systemClock uint32,
	irqFunc func(int), subFunc func(uint8, int)) *Drive {

	if systemClock >= 30000000 {
		panicFmt("scsicd: system clock %d out of range", systemClock)
	}

	drv := &Drive{
		Kind:             kind,
		TrayOpen:         true,
		TransferRate:     transferRate,
		SystemClock:      systemClock,
		IRQCallback:      irqFunc,
		StuffSubchannels: subFunc,
	}

	if kind == KIND_PCFX {
		drv.Din = NewFIFO(65536)
	} else {
		drv.Din = NewFIFO(2048)
	}

	drv.HRBufs[0] = hrbufL
	drv.HRBufs[1] = hrbufR

	drv.CDDA.DivAcc = uint32(int64(systemClock) * (1 << 20) / 88200)
	drv.CDDA.DivAccVolFudge = 100
	drv.CDDA.TimeDiv = int32(cddaTimeDiv) * (1 << (4 + 2))
	drv.CDDA.Volume[0] = 65536
	drv.CDDA.Volume[1] = 65536

	drv.initModePages()
	drv.fixOPV()

	return drv
}

// Changes the declared data transfer rate (bytes per second)
func (drv *Drive) SetTransferRate(rate uint32) {
	drv.TransferRate = rate
}

// Installs a logging hook for command tracing, or nil to disable
func (drv *Drive) SetLog(logFunc func(subsys, format string, args ...interface{})) {
	drv.Log = logFunc
}

func (drv *Drive) setIOP(mask uint16, set bool) {
	drv.Bus.Signals &^= mask
	if set {
		drv.Bus.Signals |= mask
	}
}

// A rising edge on REQ is reported to the host immediately
func (drv *Drive) setREQ(set bool) {
	if set && !drv.Bus.Asserted(SIGNAL_REQ) {
		drv.IRQCallback(IRQ_MAGICAL_REQ)
	}
	drv.setIOP(SIGNAL_REQ, set)
}

// Host-facing signal latches. Edges are observed by Run
func (drv *Drive) SetDB(data uint8) { drv.Bus.DB = data }
func (drv *Drive) SetACK(set bool)  { drv.setIOP(SIGNAL_ACK, set) }
func (drv *Drive) SetSEL(set bool)  { drv.setIOP(SIGNAL_SEL, set) }
func (drv *Drive) SetRST(set bool)  { drv.setIOP(SIGNAL_RST, set) }
func (drv *Drive) SetATN(set bool)  { drv.setIOP(SIGNAL_ATN, set) }

func (drv *Drive) changePhase(newPhase Phase) {
	switch newPhase {
	case PHASE_BUS_FREE:
		drv.setIOP(SIGNAL_BSY, false)
		drv.setIOP(SIGNAL_MSG, false)
		drv.setIOP(SIGNAL_CD, false)
		drv.setIOP(SIGNAL_IO, false)
		drv.setREQ(false)
		drv.IRQCallback(IRQ_DEASSERT | IRQ_DATA_TRANSFER_DONE)

	case PHASE_DATA_IN: // Us to them
		drv.setIOP(SIGNAL_BSY, true)
		drv.setIOP(SIGNAL_MSG, false)
		drv.setIOP(SIGNAL_CD, false)
		drv.setIOP(SIGNAL_IO, true)
		// REQ is asserted per-byte once data is on the latch
		drv.setREQ(false)

	case PHASE_STATUS: // Us to them
		drv.setIOP(SIGNAL_BSY, true)
		drv.setIOP(SIGNAL_MSG, false)
		drv.setIOP(SIGNAL_CD, true)
		drv.setIOP(SIGNAL_IO, true)
		drv.setREQ(true)

	case PHASE_MESSAGE_IN: // Us to them
		drv.setIOP(SIGNAL_BSY, true)
		drv.setIOP(SIGNAL_MSG, true)
		drv.setIOP(SIGNAL_CD, true)
		drv.setIOP(SIGNAL_IO, true)
		drv.setREQ(true)

	case PHASE_DATA_OUT: // Them to us
		drv.setIOP(SIGNAL_BSY, true)
		drv.setIOP(SIGNAL_MSG, false)
		drv.setIOP(SIGNAL_CD, false)
		drv.setIOP(SIGNAL_IO, false)
		drv.setREQ(true)

	case PHASE_COMMAND: // Them to us
		drv.setIOP(SIGNAL_BSY, true)
		drv.setIOP(SIGNAL_MSG, false)
		drv.setIOP(SIGNAL_CD, true)
		drv.setIOP(SIGNAL_IO, false)
		drv.setREQ(true)

	case PHASE_MESSAGE_OUT: // Them to us
		drv.setIOP(SIGNAL_BSY, true)
		drv.setIOP(SIGNAL_MSG, true)
		drv.setIOP(SIGNAL_CD, true)
		drv.setIOP(SIGNAL_IO, false)
		drv.setREQ(true)
	}
	drv.Phase = newPhase
}

func (drv *Drive) sendStatusAndMessage(status, message uint8) {
	// Should never have leftover bytes here, but flush defensively
	if drv.Din.InCount != 0 {
		drv.Din.Flush()
	}

	drv.CD.MessagePending = message
	drv.CD.StatusSent = false
	drv.CD.MessageSent = false

	if drv.Kind == KIND_PCE {
		if status == STATUS_GOOD || status == STATUS_CONDITION_MET {
			drv.Bus.DB = 0x00
		} else {
			drv.Bus.DB = 0x01
		}
	} else {
		drv.Bus.DB = status << 1
	}

	drv.changePhase(PHASE_STATUS)
}

func (drv *Drive) commandCCError(key, asc, ascq uint8) {
	drv.CD.KeyPending = key
	drv.CD.ASCPending = asc
	drv.CD.ASCQPending = ascq
	drv.CD.FRUPending = 0x00

	drv.sendStatusAndMessage(STATUS_CHECK_CONDITION, 0x00)
}

func (drv *Drive) doSimpleDataIn(dataIn []byte) {
	drv.Din.Write(dataIn)
	drv.CD.DataTransferDone = true
	drv.changePhase(PHASE_DATA_IN)
}

func (drv *Drive) validateRawDataSector(data []byte, lba uint32) bool {
	if !drv.Backend.ValidateRawSector(data) {
		drv.Din.Flush()
		drv.CD.DataTransferDone = false

		drv.commandCCError(SENSEKEY_MEDIUM_ERROR,
			ASC_LEC_UNCORRECTABLE_ERROR, ASCQ_LEC_UNCORRECTABLE_ERROR)
		return false
	}
	return true
}

// Swaps the disc or toggles the tray. Closing the tray over a disc
// re-reads the TOC and latches the DiscChanged unit attention unless
// `noEmuSideEffects` is set (save-state restore)
func (drv *Drive) SetDisc(newTrayOpen bool, backend DiscBackend, noEmuSideEffects bool) {
	drv.Backend = backend

	if drv.TrayOpen && !newTrayOpen {
		drv.TrayOpen = false

		if backend != nil {
			backend.ReadTOC(&drv.TOC)

			if !noEmuSideEffects {
				drv.CD.SubQBuf = [4][0xC]uint8{}
				drv.CD.SubQBufLast = [0xC]uint8{}
				drv.CD.DiscChanged = true
			}
		}
	} else if !drv.TrayOpen && newTrayOpen {
		drv.TrayOpen = true
	}
}

// Re-initializes everything below the bus interface: mode pages, the
// FIFOs, the read scheduler and the CD-DA engine
func (drv *Drive) virtualReset() {
	drv.initModePages()

	drv.Din.Flush()

	drv.CDReadTimer = 0

	drv.pceLastSAPSPTimestamp = drv.monotonicTimestamp

	drv.SectorAddr = 0
	drv.SectorCount = 0
	drv.ReadSecStart = 0
	drv.ReadSec = 0
	drv.ReadSecEnd = ^uint32(0)

	drv.CDDA.PlayMode = PLAYMODE_SILENT
	drv.CDDA.ReadPos = 0
	drv.CDDA.Status = CDDASTATUS_STOPPED
	drv.CDDA.Div = 0

	drv.CDDA.ScanMode = 0
	drv.CDDA.ScanSecEnd = 0

	drv.CDDA.OversamplePos = 0
	drv.CDDA.SR = [2]int16{}
	drv.CDDA.OversampleBuffer = [2][0x20]int16{}
	drv.CDDA.DeemphState = [2][2]float32{}

	drv.CD.DataOut = [256]uint8{}
	drv.CD.DataOutPos = 0
	drv.CD.DataOutWant = 0

	drv.fixOPV()

	drv.changePhase(PHASE_BUS_FREE)
}

// Cold power-up at `systemTimestamp`
func (drv *Drive) Power(systemTimestamp int64) {
	drv.CD = Unit{}
	drv.Bus = Bus{}

	drv.monotonicTimestamp = systemTimestamp

	if drv.Backend != nil && !drv.TrayOpen {
		drv.Backend.ReadTOC(&drv.TOC)
	}

	drv.Phase = PHASE_BUS_FREE

	drv.virtualReset()
}

// Rebases the timestamp reference after the host rolls its clock over
func (drv *Drive) ResetTS(tsBase int64) {
	drv.lastTS = tsBase
}

// Releases the drive's buffers and detaches the backend. The drive
// must not be run afterwards
func (drv *Drive) Close() {
	drv.Din = nil
	drv.Backend = nil
	drv.HRBufs[0] = nil
	drv.HRBufs[1] = nil
}

// Advances the drive to `systemTimestamp` and steps the phase machine.
// Returns the number of host cycles until the next internal event, for
// host scheduling; the hint is always >= 0
func (drv *Drive) Run(systemTimestamp int64) int32 {
	runTime := int32(systemTimestamp - drv.lastTS)

	if systemTimestamp < drv.lastTS {
		panicFmt("scsicd: timestamp went backwards: %d < %d", systemTimestamp, drv.lastTS)
	}

	drv.monotonicTimestamp += int64(runTime)
	drv.lastTS = systemTimestamp

	drv.runCDRead(runTime)
	drv.runCDDA(systemTimestamp, runTime)

	resetNeeded := drv.Bus.Asserted(SIGNAL_RST) && !drv.CD.LastRSTSignal
	drv.CD.LastRSTSignal = drv.Bus.Asserted(SIGNAL_RST)

	if resetNeeded {
		drv.virtualReset()
	} else if drv.Phase == PHASE_BUS_FREE {
		if drv.Bus.Asserted(SIGNAL_SEL) {
			// The PC-FX BIOS puts 0x84 on the data bus during
			// selection, but the drive doesn't appear to care
			drv.changePhase(PHASE_COMMAND)
		}
	} else if drv.Bus.Asserted(SIGNAL_ATN) && !drv.Bus.Asserted(SIGNAL_REQ) && !drv.Bus.Asserted(SIGNAL_ACK) {
		drv.changePhase(PHASE_MESSAGE_OUT)
	} else {
		drv.stepPhase()
	}

	nextTime := int32(0x7fffffff)

	if drv.CDReadTimer > 0 && drv.CDReadTimer < nextTime {
		nextTime = drv.CDReadTimer
	}

	if drv.CDDA.Status == CDDASTATUS_PLAYING || drv.CDDA.Status == CDDASTATUS_SCANNING {
		t := int32((drv.CDDA.Div + int64(drv.CDDA.DivAcc)*int64(drv.CDDA.OversamplePos&1) + (1 << 20) - 1) >> 20)
		if t > 0 && t < nextTime {
			nextTime = t
		}
	}

	if nextTime < 0 {
		panicFmt("scsicd: negative next event time %d", nextTime)
	}

	return nextTime
}

// One step of the per-phase bus handshake rules
func (drv *Drive) stepPhase() {
	reqAndACK := drv.Bus.Asserted(SIGNAL_REQ | SIGNAL_ACK)
	reqOrACK := drv.Bus.Asserted(SIGNAL_REQ) || drv.Bus.Asserted(SIGNAL_ACK)

	switch drv.Phase {
	case PHASE_COMMAND:
		if reqAndACK { // Data bus is valid now
			drv.CD.CommandBuffer[drv.CD.CommandBufferPos] = drv.Bus.DB
			drv.CD.CommandBufferPos++
			drv.setREQ(false)
		}

		// Received at least one byte, what should we do?
		if !reqOrACK && drv.CD.CommandBufferPos != 0 {
			if int32(drv.CD.CommandBufferPos) == requiredCDBLen[drv.CD.CommandBuffer[0]>>4] {
				drv.dispatchCommand()
				// Dispatch resets the write position
			} else {
				drv.setREQ(true)
			}
		}

	case PHASE_DATA_OUT:
		if reqAndACK {
			drv.CD.DataOut[drv.CD.DataOutPos] = drv.Bus.DB
			drv.CD.DataOutPos++
			drv.setREQ(false)
		} else if !reqOrACK && drv.CD.DataOutPos != 0 {
			if drv.CD.DataOutPos == drv.CD.DataOutWant {
				drv.CD.DataOutPos = 0

				if drv.CD.CommandBuffer[0] == 0x15 {
					drv.finishModeSelect6(drv.CD.DataOut[:drv.CD.DataOutWant])
				} else { // Shouldn't be reached
					drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
				}
			} else {
				drv.setREQ(true)
			}
		}

	case PHASE_MESSAGE_OUT:
		if reqAndACK {
			drv.setREQ(false)

			// The ABORT message is 0x06, but recovery from MESSAGE
			// OUT back to the previous phase isn't modeled, so any
			// message aborts the command in flight
			drv.Din.Flush()
			drv.CD.DataOutPos = 0
			drv.CD.DataOutWant = 0

			drv.CDReadTimer = 0
			drv.CDDA.Status = CDDASTATUS_STOPPED
			drv.changePhase(PHASE_BUS_FREE)
		}

	case PHASE_STATUS:
		if reqAndACK {
			drv.setREQ(false)
			drv.CD.StatusSent = true
		}

		if !reqOrACK && drv.CD.StatusSent {
			// Status sent, so get ready to send the message
			drv.CD.StatusSent = false
			drv.Bus.DB = drv.CD.MessagePending
			drv.changePhase(PHASE_MESSAGE_IN)
		}

	case PHASE_DATA_IN:
		if !reqOrACK {
			if drv.Din.InCount == 0 {
				drv.IRQCallback(IRQ_DEASSERT | IRQ_DATA_TRANSFER_READY)

				if drv.CD.DataTransferDone {
					drv.sendStatusAndMessage(STATUS_GOOD, 0x00)
					drv.CD.DataTransferDone = false
					drv.IRQCallback(IRQ_DATA_TRANSFER_DONE)
				}
			} else {
				drv.Bus.DB = drv.Din.ReadByte()
				drv.setREQ(true)
			}
		}
		if reqAndACK {
			drv.setREQ(false)
		}

	case PHASE_MESSAGE_IN:
		if reqAndACK {
			drv.setREQ(false)
			drv.CD.MessageSent = true
		}

		if !reqOrACK && drv.CD.MessageSent {
			drv.CD.MessageSent = false
			drv.changePhase(PHASE_BUS_FREE)
		}
	}
}

// The sector read scheduler: paces data sector fetches into the din
// FIFO at the declared transfer rate
func (drv *Drive) runCDRead(runTime int32) {
	if drv.CDReadTimer <= 0 {
		return
	}

	drv.CDReadTimer -= runTime
	if drv.CDReadTimer > 0 {
		return
	}

	need := uint32(2048)
	if drv.Kind == KIND_PCFX {
		need = 2352
	}

	if drv.Din.CanWrite() < need {
		// FIFO backed up; retry after one more sector time
		drv.CDReadTimer += int32(uint64(2048) * uint64(drv.SystemClock) / uint64(drv.TransferRate))
		return
	}

	var tmpReadBuf [SECTOR_SIZE + SUBCHANNEL_SIZE]uint8

	switch {
	case drv.TrayOpen:
		drv.Din.Flush()
		drv.CD.DataTransferDone = false
		drv.commandCCError(SENSEKEY_NOT_READY, NSE_TRAY_OPEN, 0)

	case drv.Backend == nil:
		drv.commandCCError(SENSEKEY_NOT_READY, NSE_NO_DISC, 0)

	case drv.SectorAddr >= drv.TOC.Tracks[100].LBA:
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, NSE_END_OF_VOLUME, 0)

	case !drv.Backend.ReadRawSector(tmpReadBuf[:], drv.SectorAddr):
		drv.CD.DataTransferDone = false
		drv.commandCCError(SENSEKEY_ILLEGAL_REQUEST, 0, 0)

	default:
		if !drv.validateRawDataSector(tmpReadBuf[:], drv.SectorAddr) {
			return
		}

		copy(drv.CD.SubPWBuf[:], tmpReadBuf[2352:2352+96])

		if tmpReadBuf[12+3] == 0x2 {
			drv.Din.Write(tmpReadBuf[24 : 24+2048])
		} else {
			drv.Din.Write(tmpReadBuf[16 : 16+2048])
		}

		drv.genSubQFromSubPW()

		drv.IRQCallback(IRQ_DATA_TRANSFER_READY)

		drv.SectorAddr++
		drv.SectorCount--

		if drv.Phase != PHASE_DATA_IN {
			drv.changePhase(PHASE_DATA_IN)
		}

		if drv.SectorCount != 0 {
			drv.CD.DataTransferDone = false
			drv.CDReadTimer += int32(uint64(2048) * uint64(drv.SystemClock) / uint64(drv.TransferRate))
		} else {
			drv.CD.DataTransferDone = true
		}
	}
}
