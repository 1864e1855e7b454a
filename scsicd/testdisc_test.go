package scsicd

import "testing"

// A synthetic disc for exercising the drive without a disc image.
// Sector payloads are deterministic functions of the LBA
type testTrack struct {
	lba   uint32
	audio bool
	mode  uint8
}

type testDisc struct {
	tracks     []testTrack
	leadout    uint32
	validateOK bool

	// When >= 0, overrides the control bits placed in the Q
	// subchannel of every sector
	qControl int

	readsFailAt  uint32 // LBA that ReadRawSector fails at, ^0 = never
	hintedAt     []uint32
	rawReadCount int
}

func newTestDisc(leadout uint32, tracks ...testTrack) *testDisc {
	return &testDisc{
		tracks:      tracks,
		leadout:     leadout,
		validateOK:  true,
		qControl:    -1,
		readsFailAt: ^uint32(0),
	}
}

// Two-track disc used by most tests: data track 1 at 150, audio
// track 2 at 1000, leadout at 2000
func defaultTestDisc() *testDisc {
	return newTestDisc(2000,
		testTrack{lba: 150, mode: 1},
		testTrack{lba: 1000, audio: true},
	)
}

func (d *testDisc) control(ti int) uint8 {
	if d.tracks[ti].audio {
		return 0x00
	}
	return 0x04
}

func (d *testDisc) ReadTOC(toc *TOC) {
	toc.Clear()
	toc.FirstTrack = 1
	toc.LastTrack = uint8(len(d.tracks))
	for i, t := range d.tracks {
		toc.Tracks[i+1] = Track{LBA: t.lba, ADR: 1, Control: d.control(i)}
	}
	toc.Tracks[100] = Track{LBA: d.leadout, ADR: 1, Control: d.control(len(d.tracks) - 1)}
}

func (d *testDisc) trackIndexAt(lba uint32) int {
	ti := 0
	for i, t := range d.tracks {
		if lba >= t.lba {
			ti = i
		}
	}
	return ti
}

// Deterministic data payload byte
func testDataByte(lba uint32, i int) uint8 {
	return uint8(lba + uint32(i)*7)
}

// Deterministic audio sample
func testAudioSample(lba uint32, i int) int16 {
	return int16(lba*1176 + uint32(i)*3)
}

func (d *testDisc) ReadRawSector(buf []byte, lba uint32) bool {
	d.rawReadCount++
	if lba == d.readsFailAt {
		return false
	}

	for i := range buf[:2352] {
		buf[i] = 0
	}

	ti := d.trackIndexAt(lba)
	t := &d.tracks[ti]

	if t.audio {
		for i := 0; i < 1176; i++ {
			s := testAudioSample(lba, i)
			buf[i*2] = uint8(s)
			buf[i*2+1] = uint8(s >> 8)
		}
	} else {
		buf[0] = 0x00
		for i := 1; i < 11; i++ {
			buf[i] = 0xFF
		}
		m, s, f := LBAToAMSF(lba)
		buf[12] = U8ToBCD(m)
		buf[13] = U8ToBCD(s)
		buf[14] = U8ToBCD(f)
		buf[15] = t.mode

		off := 16
		if t.mode == 2 {
			off = 24
		}
		for i := 0; i < 2048; i++ {
			buf[off+i] = testDataByte(lba, i)
		}
	}

	control := d.control(ti)
	if d.qControl >= 0 {
		control = uint8(d.qControl)
	}
	makeTestSubPW(buf[2352:2352+96], control, uint8(ti+1), lba-t.lba, lba)
	return true
}

func (d *testDisc) ValidateRawSector(buf []byte) bool {
	return d.validateOK
}

func (d *testDisc) HintReadSector(lba uint32) {
	d.hintedAt = append(d.hintedAt, lba)
}

// Scatters a checksummed mode 1 Q packet into the P-W buffer
func makeTestSubPW(pw []byte, control, track uint8, rel, abs uint32) {
	var q [12]byte

	q[0] = control<<4 | 0x1
	q[1] = U8ToBCD(track)
	q[2] = 0x01
	q[3] = U8ToBCD(uint8(rel / 75 / 60))
	q[4] = U8ToBCD(uint8(rel / 75 % 60))
	q[5] = U8ToBCD(uint8(rel % 75))
	am, as, af := LBAToAMSF(abs)
	q[7] = U8ToBCD(am)
	q[8] = U8ToBCD(as)
	q[9] = U8ToBCD(af)
	SubQMakeChecksum(q[:])

	for i := range pw[:96] {
		pw[i] = 0
	}
	for i := 0; i < 96; i++ {
		if q[i>>3]>>(7-(i&7))&1 != 0 {
			pw[i] |= 0x40
		}
	}
}

func assertFunc(t *testing.T) func(bool) {
	t.Helper()
	return func(v bool) {
		t.Helper()
		if !v {
			t.Error("assert failed")
		}
	}
}
