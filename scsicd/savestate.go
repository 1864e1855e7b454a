package scsicd

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Save-state blob version. Loading blobs older than 0x0935 halves the
// CD-DA divisor: those were written before the oversampling rework
// doubled its rate
const SAVESTATE_VERSION = 0x0936

var savestateMagic = [4]byte{'S', 'C', 'D', 'S'}

type stateCoder struct {
	w   *bytes.Buffer
	r   *bytes.Reader
	err error
}

func (sc *stateCoder) value(v interface{}) {
	if sc.err != nil {
		return
	}
	if sc.r != nil {
		sc.err = binary.Read(sc.r, binary.LittleEndian, v)
	} else {
		sc.err = binary.Write(sc.w, binary.LittleEndian, v)
	}
}

// Runs every persisted field through the coder, in a fixed order
// shared by save and load
func (drv *Drive) stateAction(sc *stateCoder) {
	sc.value(&drv.Bus.DB)
	sc.value(&drv.Bus.Signals)

	phase := int32(drv.Phase)
	sc.value(&phase)
	drv.Phase = Phase(phase)

	sc.value(&drv.CD.LastRSTSignal)
	sc.value(&drv.CD.MessagePending)
	sc.value(&drv.CD.StatusSent)
	sc.value(&drv.CD.MessageSent)
	sc.value(&drv.CD.KeyPending)
	sc.value(&drv.CD.ASCPending)
	sc.value(&drv.CD.ASCQPending)
	sc.value(&drv.CD.FRUPending)

	sc.value(&drv.CD.CommandBuffer)
	sc.value(&drv.CD.CommandBufferPos)

	// The FIFO write position is not persisted; it is reconstructed
	// from the read position and fill count on load
	sc.value(drv.Din.Data)
	sc.value(&drv.Din.ReadPos)
	sc.value(&drv.Din.InCount)
	sc.value(&drv.CD.DataTransferDone)

	sc.value(&drv.CD.DataOut)
	sc.value(&drv.CD.DataOutPos)
	sc.value(&drv.CD.DataOutWant)

	sc.value(&drv.CD.DiscChanged)

	sc.value(&drv.CDDA.PlayMode)
	sc.value(&drv.CDDA.SectorBuffer)
	sc.value(&drv.CDDA.ReadPos)
	sc.value(&drv.CDDA.Status)
	sc.value(&drv.CDDA.Div)
	sc.value(&drv.ReadSecStart)
	sc.value(&drv.ReadSec)
	sc.value(&drv.ReadSecEnd)

	sc.value(&drv.CDReadTimer)
	sc.value(&drv.SectorAddr)
	sc.value(&drv.SectorCount)

	sc.value(&drv.CDDA.ScanMode)
	sc.value(&drv.CDDA.ScanSecEnd)

	sc.value(&drv.CDDA.OversamplePos)
	sc.value(&drv.CDDA.SR)
	sc.value(&drv.CDDA.OversampleBuffer)

	sc.value(&drv.CDDA.DeemphState)

	sc.value(&drv.CD.SubQBuf)
	sc.value(&drv.CD.SubQBufLast)
	sc.value(&drv.CD.SubPWBuf)

	sc.value(&drv.monotonicTimestamp)
	sc.value(&drv.pceLastSAPSPTimestamp)

	for pi := range drv.ModePages {
		mp := &drv.ModePages[pi]
		sc.value(mp.Current[:mp.ParamLength])
	}
}

// Serializes the drive state into a blob
func (drv *Drive) SaveState() []byte {
	sc := &stateCoder{w: new(bytes.Buffer)}

	sc.w.Write(savestateMagic[:])
	sc.value(uint32(SAVESTATE_VERSION))

	drv.stateAction(sc)

	if sc.err != nil {
		panicFmt("scsicd: save state failed: %v", sc.err)
	}
	return sc.w.Bytes()
}

// Restores the drive state from a blob produced by SaveState (possibly
// by an older version). Derived caches are rebuilt; out-of-range
// loaded values are masked back into range
func (drv *Drive) LoadState(data []byte) error {
	sc := &stateCoder{r: bytes.NewReader(data)}

	var magic [4]byte
	sc.value(&magic)
	if sc.err == nil && magic != savestateMagic {
		return fmt.Errorf("scsicd: bad save state magic % 02x", magic[:])
	}

	var version uint32
	sc.value(&version)

	drv.stateAction(sc)
	if sc.err != nil {
		return fmt.Errorf("scsicd: truncated save state: %w", sc.err)
	}

	drv.Din.InCount &= drv.Din.Size() - 1
	drv.Din.ReadPos &= drv.Din.Size() - 1

	if version < 0x0935 {
		drv.CDDA.Div /= 2
	}

	if drv.CDDA.Div <= 0 {
		drv.CDDA.Div = 1
	}

	drv.CDDA.OversamplePos &= 0x1F

	for pi := range drv.ModePages {
		drv.updateMPCacheP(&drv.ModePages[pi])
	}

	return nil
}
