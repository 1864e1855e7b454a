// cdplay: a small host harness for the SCSI CD-ROM drive core. Opens
// a CUE/BIN image, drives the emulated bus the way a PC-FX host would,
// and either prints the TOC or plays an audio track to the sound card.
package main

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/alecthomas/kong"
	"github.com/ebitengine/oto/v3"
	"github.com/zeozeozeo/goscsicd/cdimage"
	"github.com/zeozeozeo/goscsicd/scsicd"
)

// PC-FX-ish host parameters
const (
	systemClock  = 21477270
	cddaTimeDiv  = 3
	transferRate = 153600

	// One high-rate buffer sample every (cddaTimeDiv*64)>>4 cycles
	cyclesPerHRSample = cddaTimeDiv * 64 / 16

	// Host output
	outputRate = 44100
)

func main() {
	var cli struct {
		Info infoCmd `cmd:"" help:"print the table of contents"`
		Play playCmd `cmd:"" default:"withargs" help:"play an audio track"`
	}

	ctx := kong.Parse(&cli)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

type infoCmd struct {
	Cue string `arg:"" type:"existingfile" help:"path to the cue sheet"`
}

type playCmd struct {
	Cue   string `arg:"" type:"existingfile" help:"path to the cue sheet"`
	Track uint8  `name:"track" default:"2" help:"track number to play"`
}

// A minimal SCSI host: owns the clock and handshakes bytes over the
// bus one signal edge at a time
type busHost struct {
	drv    *scsicd.Drive
	ts     int64
	dataIn []byte
}

func newBusHost(backend scsicd.DiscBackend, hrbufL, hrbufR []int32) *busHost {
	h := &busHost{}
	h.drv = scsicd.NewDrive(scsicd.KIND_PCFX, cddaTimeDiv, hrbufL, hrbufR,
		transferRate, systemClock,
		func(code int) {}, func(b uint8, subindex int) {})
	h.drv.Power(0)
	h.drv.SetDisc(false, backend, false)
	return h
}

func (h *busHost) tick() {
	h.ts++
	h.drv.Run(h.ts)
}

func (h *busHost) waitREQ() {
	for i := 0; !h.drv.Bus.Asserted(scsicd.SIGNAL_REQ); i++ {
		if i > 10_000_000 {
			log.Fatal("bus timed out waiting for REQ")
		}
		h.tick()
	}
}

// Runs one full command transaction: selection, CDB transfer, any
// data-in bytes, status and message. Returns the status byte
func (h *busHost) doCommand(cdb []byte) uint8 {
	h.dataIn = h.dataIn[:0]

	h.drv.SetSEL(true)
	h.tick()
	h.drv.SetSEL(false)
	h.tick()

	for _, b := range cdb {
		h.waitREQ()
		h.drv.SetDB(b)
		h.drv.SetACK(true)
		h.tick()
		h.drv.SetACK(false)
		h.tick()
	}

	var status uint8
	for {
		h.waitREQ()

		switch h.drv.Phase {
		case scsicd.PHASE_DATA_IN:
			h.dataIn = append(h.dataIn, h.drv.Bus.DB)
		case scsicd.PHASE_STATUS:
			status = h.drv.Bus.DB
		}
		done := h.drv.Phase == scsicd.PHASE_MESSAGE_IN

		h.drv.SetACK(true)
		h.tick()
		h.drv.SetACK(false)
		h.tick()

		if done {
			return status
		}
	}
}

func (c *infoCmd) Run() error {
	img, err := cdimage.OpenCue(c.Cue)
	if err != nil {
		return err
	}
	defer img.Close()

	hrbufL := make([]int32, 0x10000+16)
	hrbufR := make([]int32, 0x10000+16)
	h := newBusHost(img, hrbufL, hrbufR)

	// READ TOC, MSF form
	status := h.doCommand([]byte{0x43, 0x02, 0, 0, 0, 0, 0x01, 0x08, 0x00, 0})
	if status != 0 {
		return fmt.Errorf("READ TOC failed with status %d", status)
	}

	toc := h.dataIn
	fmt.Printf("first track %d, last track %d\n", toc[2], toc[3])
	for off := 4; off+8 <= len(toc); off += 8 {
		e := toc[off : off+8]
		kind := "audio"
		if e[1]&0x04 != 0 {
			kind = "data "
		}
		fmt.Printf("  track %3d  %s  %02d:%02d:%02d\n", e[2], kind, e[5], e[6], e[7])
	}
	return nil
}

const decimStep = float64(systemClock) / cyclesPerHRSample / outputRate

// Streams decimated high-rate buffer contents as 16 bit PCM
type hrStream struct {
	h      *busHost
	hrbufL []int32
	hrbufR []int32
	pcm    []byte

	decimPos float64
	decimSum [2]int64
	decimNum int64
}

func (s *hrStream) Read(p []byte) (int, error) {
	for len(s.pcm) < len(p) {
		if s.h.drv.CDDA.Status == scsicd.CDDASTATUS_STOPPED {
			if len(s.pcm) == 0 {
				return 0, io.EOF
			}
			break
		}
		s.runChunk()
	}

	n := copy(p, s.pcm)
	s.pcm = s.pcm[n:]
	return n, nil
}

// Runs the drive for one full sweep of the 64Ki high-rate ring and
// folds it down to the output rate
func (s *hrStream) runChunk() {
	s.h.ts += int64(0x10000 * cyclesPerHRSample)
	s.h.drv.Run(s.h.ts)

	for i := 0; i < 0x10000; i++ {
		s.decimSum[0] += int64(s.hrbufL[i])
		s.decimSum[1] += int64(s.hrbufR[i])
		s.decimNum++

		s.decimPos++
		if s.decimPos >= decimStep {
			s.decimPos -= decimStep
			for lr := 0; lr < 2; lr++ {
				v := s.decimSum[lr] / s.decimNum >> 11
				if v > 32767 {
					v = 32767
				} else if v < -32768 {
					v = -32768
				}
				s.pcm = append(s.pcm, uint8(v), uint8(v>>8))
				s.decimSum[lr] = 0
			}
			s.decimNum = 0
		}
	}

	// Carry the kernel tail that spilled past the ring into the next
	// sweep, then clear
	for _, buf := range [2][]int32{s.hrbufL, s.hrbufR} {
		for i := 0; i < 0x10000; i++ {
			buf[i] = 0
		}
		for i := 0x10000; i < len(buf); i++ {
			buf[i-0x10000] += buf[i]
			buf[i] = 0
		}
	}
}

func (c *playCmd) Run() error {
	img, err := cdimage.OpenCue(c.Cue)
	if err != nil {
		return err
	}
	defer img.Close()

	hrbufL := make([]int32, 0x10000+16)
	hrbufR := make([]int32, 0x10000+16)
	h := newBusHost(img, hrbufL, hrbufR)

	// SAPSP, track form, start playing immediately
	cdb := make([]byte, 10)
	cdb[0] = 0xD8
	cdb[1] = 0x01
	cdb[2] = scsicd.U8ToBCD(c.Track)
	cdb[9] = 0x80
	if status := h.doCommand(cdb); status != 0 {
		return fmt.Errorf("SAPSP failed with status %d (track %d)", status, c.Track)
	}

	log.Printf("playing track %d", c.Track)

	op := &oto.NewContextOptions{
		SampleRate:   outputRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}
	otoCtx, ready, err := oto.NewContext(op)
	if err != nil {
		return err
	}
	<-ready

	player := otoCtx.NewPlayer(&hrStream{h: h, hrbufL: hrbufL, hrbufR: hrbufR})
	player.Play()
	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	return player.Close()
}
