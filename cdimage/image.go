package cdimage

import (
	"io"
	"os"

	"github.com/zeozeozeo/goscsicd/scsicd"
)

// One track of a disc image
type ImageTrack struct {
	Number     uint8
	Audio      bool
	Mode       uint8 // 1 or 2, data tracks only
	LBA        uint32
	Sectors    uint32
	File       io.ReaderAt
	FileOffset int64  // Byte offset of LBA in File
	SectorSize uint32 // Stored sector size: 2352, or 2048 for cooked data
}

// A CUE/BIN disc image, exposing raw sectors with synthesized
// subchannel data
type Image struct {
	Tracks  []ImageTrack
	Leadout uint32

	binFiles []*os.File
}

// Fills in the table of contents
func (img *Image) ReadTOC(toc *scsicd.TOC) {
	toc.Clear()

	toc.FirstTrack = img.Tracks[0].Number
	toc.LastTrack = img.Tracks[len(img.Tracks)-1].Number

	for _, t := range img.Tracks {
		toc.Tracks[t.Number] = scsicd.Track{
			LBA:     t.LBA,
			ADR:     1,
			Control: t.control(),
		}
	}

	// Synthetic leadout entry; it inherits the type of the last track
	toc.Tracks[100] = scsicd.Track{
		LBA:     img.Leadout,
		ADR:     1,
		Control: img.Tracks[len(img.Tracks)-1].control(),
	}
}

func (t *ImageTrack) control() uint8 {
	if t.Audio {
		return 0x00
	}
	return 0x04
}

func (img *Image) trackAt(lba uint32) *ImageTrack {
	for i := range img.Tracks {
		t := &img.Tracks[i]
		if lba >= t.LBA && lba < t.LBA+t.Sectors {
			return t
		}
	}
	return nil
}

// Reads the raw 2352+96 byte sector at `lba`. Gaps between tracks
// read as zeroed sectors of the nearest following track's type
func (img *Image) ReadRawSector(buf []byte, lba uint32) bool {
	raw := buf[:scsicd.SECTOR_SIZE]

	t := img.trackAt(lba)
	if t == nil {
		// Pregap / unmapped area
		for i := range raw {
			raw[i] = 0
		}
		ref := &img.Tracks[len(img.Tracks)-1]
		for i := range img.Tracks {
			if lba < img.Tracks[i].LBA {
				ref = &img.Tracks[i]
				break
			}
		}
		BuildSubPW(buf[2352:2352+96], ref.control(), ref.Number, 0, 0, lba)
		return true
	}

	rel := lba - t.LBA

	switch {
	case t.SectorSize == 2352:
		off := t.FileOffset + int64(rel)*2352
		if _, err := t.File.ReadAt(raw, off); err != nil {
			return false
		}

	case !t.Audio && t.SectorSize == 2048:
		// Cooked image; rebuild the raw sector around the payload
		var payload [2048]byte
		off := t.FileOffset + int64(rel)*2048
		if _, err := t.File.ReadAt(payload[:], off); err != nil {
			return false
		}
		BuildDataSector(raw, lba, t.Mode, payload[:])

	default:
		return false
	}

	BuildSubPW(buf[2352:2352+96], t.control(), t.Number, 1, rel, lba)
	return true
}

// Checks the error detection data of a raw data sector
func (img *Image) ValidateRawSector(buf []byte) bool {
	return ValidateRawSector(buf)
}

// Sequential read hint; file images need no prefetching
func (img *Image) HintReadSector(lba uint32) {}
