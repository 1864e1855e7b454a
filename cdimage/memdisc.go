package cdimage

import (
	"github.com/zeozeozeo/goscsicd/scsicd"
)

// An in-memory disc, composed track by track. Useful for tests and
// for hosts that synthesize discs on the fly; sectors come out with
// valid headers, EDC and subchannel data
type MemDisc struct {
	tracks  []memTrack
	leadout uint32
}

type memTrack struct {
	number uint8
	audio  bool
	mode   uint8
	lba    uint32
	data   [][]byte // Per sector: 2048 byte payloads, or 2352 byte PCM
}

// Returns an empty disc with the standard two second lead-in
func NewMemDisc() *MemDisc {
	return &MemDisc{leadout: 150}
}

// Appends a data track of the given mode (1 or 2). Each payload slice
// is one 2048 byte sector; short ones are zero padded
func (d *MemDisc) AddDataTrack(mode uint8, payloads [][]byte) uint8 {
	t := memTrack{
		number: uint8(len(d.tracks) + 1),
		mode:   mode,
		lba:    d.leadout,
	}
	for _, p := range payloads {
		sec := make([]byte, 2048)
		copy(sec, p)
		t.data = append(t.data, sec)
	}
	d.tracks = append(d.tracks, t)
	d.leadout += uint32(len(t.data))
	return t.number
}

// Appends an audio track from interleaved left/right samples. The
// last sector is zero padded to the 588 sample pair boundary
func (d *MemDisc) AddAudioTrack(pcm []int16) uint8 {
	t := memTrack{
		number: uint8(len(d.tracks) + 1),
		audio:  true,
		lba:    d.leadout,
	}
	for off := 0; off < len(pcm); off += 1176 {
		sec := make([]byte, 2352)
		for i := 0; i < 1176 && off+i < len(pcm); i++ {
			sec[i*2] = uint8(pcm[off+i])
			sec[i*2+1] = uint8(pcm[off+i] >> 8)
		}
		t.data = append(t.data, sec)
	}
	d.tracks = append(d.tracks, t)
	d.leadout += uint32(len(t.data))
	return t.number
}

func (t *memTrack) control() uint8 {
	if t.audio {
		return 0x00
	}
	return 0x04
}

func (d *MemDisc) ReadTOC(toc *scsicd.TOC) {
	toc.Clear()

	toc.FirstTrack = 1
	toc.LastTrack = uint8(len(d.tracks))

	for _, t := range d.tracks {
		toc.Tracks[t.number] = scsicd.Track{LBA: t.lba, ADR: 1, Control: t.control()}
	}

	last := &d.tracks[len(d.tracks)-1]
	toc.Tracks[100] = scsicd.Track{LBA: d.leadout, ADR: 1, Control: last.control()}
}

func (d *MemDisc) ReadRawSector(buf []byte, lba uint32) bool {
	for i := range d.tracks {
		t := &d.tracks[i]
		rel := lba - t.lba
		if lba < t.lba || rel >= uint32(len(t.data)) {
			continue
		}

		if t.audio {
			copy(buf[:2352], t.data[rel])
		} else {
			BuildDataSector(buf, lba, t.mode, t.data[rel])
		}
		BuildSubPW(buf[2352:2352+96], t.control(), t.number, 1, rel, lba)
		return true
	}

	// Lead-in / gaps read as zeroed audio
	for i := range buf[:2352] {
		buf[i] = 0
	}
	BuildSubPW(buf[2352:2352+96], 0, 1, 0, 0, lba)
	return lba < d.leadout
}

func (d *MemDisc) ValidateRawSector(buf []byte) bool {
	return ValidateRawSector(buf)
}

func (d *MemDisc) HintReadSector(lba uint32) {}
