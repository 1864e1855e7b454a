package cdimage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zeozeozeo/goscsicd/scsicd"
)

func writeCueFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	// One data track (2 sectors), one audio track (3 sectors), in a
	// single raw BIN file
	bin := make([]byte, 5*2352)
	payload := make([]byte, 2048)
	for i := range payload {
		payload[i] = uint8(i)
	}
	BuildDataSector(bin[0:], 150, 1, payload)
	BuildDataSector(bin[2352:], 151, 1, payload)
	for i := 2 * 2352; i < len(bin); i++ {
		bin[i] = uint8(i)
	}

	if err := os.WriteFile(filepath.Join(dir, "game.bin"), bin, 0644); err != nil {
		t.Fatal(err)
	}

	cue := `REM test image
FILE "game.bin" BINARY
  TRACK 01 MODE1/2352
    INDEX 01 00:00:00
  TRACK 02 AUDIO
    INDEX 00 00:00:01
    INDEX 01 00:00:02
`
	cuePath := filepath.Join(dir, "game.cue")
	if err := os.WriteFile(cuePath, []byte(cue), 0644); err != nil {
		t.Fatal(err)
	}
	return cuePath
}

func TestOpenCue(t *testing.T) {
	assert := func(v bool) {
		if !v {
			t.Error("assert failed")
		}
	}

	img, err := OpenCue(writeCueFixture(t))
	if err != nil {
		t.Fatal(err)
	}
	defer img.Close()

	assert(len(img.Tracks) == 2)
	assert(img.Tracks[0].Number == 1 && !img.Tracks[0].Audio)
	assert(img.Tracks[0].LBA == 150)
	assert(img.Tracks[0].Sectors == 2)
	assert(img.Tracks[1].Number == 2 && img.Tracks[1].Audio)
	assert(img.Tracks[1].LBA == 152)
	assert(img.Tracks[1].Sectors == 3)
	assert(img.Leadout == 155)

	var toc scsicd.TOC
	img.ReadTOC(&toc)
	assert(toc.FirstTrack == 1 && toc.LastTrack == 2)
	assert(toc.Tracks[1].Control == 0x04)
	assert(toc.Tracks[2].Control == 0x00)
	assert(toc.Tracks[100].LBA == 155)

	// Data sector round trip through validation
	var buf [2352 + 96]byte
	assert(img.ReadRawSector(buf[:], 150))
	assert(img.ValidateRawSector(buf[:]))
	assert(buf[16] == 0 && buf[17] == 1)

	// Subchannel Q decodes and carries the position
	var q [12]byte
	for i := 0; i < 96; i++ {
		q[i>>3] |= (buf[2352+i] & 0x40) >> 6 << (7 - (i & 7))
	}
	assert(scsicd.SubQCheckChecksum(q[:]))
	assert(q[1] == 0x01)

}

func TestOpenCueErrors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.cue")
	os.WriteFile(bad, []byte("TRACK 01 MODE1/2352\n"), 0644)
	if _, err := OpenCue(bad); err == nil {
		t.Error("expected error for TRACK before FILE")
	}

	os.WriteFile(bad, []byte("FILE \"missing.bin\" BINARY\nTRACK 01 MODE1/2352\nINDEX 01 00:00:00\n"), 0644)
	if _, err := OpenCue(bad); err == nil {
		t.Error("expected error for missing BIN")
	}
}

func TestParseCueTime(t *testing.T) {
	assert := func(v bool) {
		if !v {
			t.Error("assert failed")
		}
	}

	v, err := parseCueTime("01:02:03")
	assert(err == nil && v == (60+2)*75+3)

	_, err = parseCueTime("00:61:00")
	assert(err != nil)
	_, err = parseCueTime("0:0")
	assert(err != nil)
}
